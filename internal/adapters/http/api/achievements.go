package api

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	service "github.com/okian/accolade/internal/app"
	"github.com/okian/accolade/internal/domain/model"
	"github.com/okian/accolade/internal/domain/render"
)

// AchievementsDependencies defines the read operations on issued awards.
type AchievementsDependencies interface {
	MemberAchievements(ctx context.Context, competitorID string) ([]model.Achievement, error)
	Overlay(ctx context.Context, recipientID string, container render.Size) (service.OverlayView, error)
}

// AchievementsHandler serves award reads.
type AchievementsHandler struct {
	deps AchievementsDependencies
}

// NewAchievementsHandler creates a new achievements handler.
func NewAchievementsHandler(deps AchievementsDependencies) *AchievementsHandler {
	return &AchievementsHandler{deps: deps}
}

type achievementResponse struct {
	ID               string     `json:"id"`
	AchievementID    string     `json:"achievement_id"`
	Name             string     `json:"name"`
	Description      string     `json:"description,omitempty"`
	Group            string     `json:"group"`
	Threshold        float64    `json:"threshold"`
	RenderValue      *float64   `json:"render_value,omitempty"`
	AchievedValue    float64    `json:"achieved_value"`
	AchievedAt       time.Time  `json:"achieved_at"`
	MemberID         string     `json:"meca_id,omitempty"`
	ResultID         string     `json:"competition_result_id,omitempty"`
	EventID          string     `json:"event_id,omitempty"`
	SeasonID         string     `json:"season_id,omitempty"`
	ImageURL         string     `json:"image_url,omitempty"`
	ImageGeneratedAt *time.Time `json:"image_generated_at,omitempty"`
}

func toAchievementResponse(a model.Achievement) achievementResponse {
	out := achievementResponse{
		ID:            a.ID,
		AchievementID: a.AchievementID,
		Name:          a.Name,
		Description:   a.Description,
		Group:         a.Group,
		Threshold:     a.Threshold,
		RenderValue:   a.RenderValue,
		AchievedValue: a.AchievedValue,
		AchievedAt:    a.AchievedAt,
		MemberID:      a.MemberID,
		ResultID:      a.ResultID,
		EventID:       a.EventID,
		SeasonID:      a.SeasonID,
		ImageURL:      a.ImageURL,
	}
	if !a.ImageGeneratedAt.IsZero() {
		t := a.ImageGeneratedAt
		out.ImageGeneratedAt = &t
	}
	return out
}

// HandleMemberAchievements handles GET /v1/members/{id}/achievements.
func (h *AchievementsHandler) HandleMemberAchievements(w http.ResponseWriter, r *http.Request) {
	list, err := h.deps.MemberAchievements(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	out := make([]achievementResponse, len(list))
	for i, a := range list {
		out[i] = toAchievementResponse(a)
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleOverlay handles GET /v1/recipients/{id}/overlay?width=&height=.
// Missing dimensions are allowed and yield a non-live view.
func (h *AchievementsHandler) HandleOverlay(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	width, err := dimension(q.Get("width"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: width: %v", ErrBadRequest, err))
		return
	}
	height, err := dimension(q.Get("height"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: height: %v", ErrBadRequest, err))
		return
	}

	view, err := h.deps.Overlay(r.Context(), r.PathValue("id"), render.Size{W: width, H: height})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func dimension(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, fmt.Errorf("not a finite value %q", raw)
	}
	if v < 0 {
		return 0, fmt.Errorf("negative value %v", v)
	}
	return v, nil
}
