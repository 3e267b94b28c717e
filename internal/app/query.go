package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/okian/accolade/internal/adapters/repository"
	"github.com/okian/accolade/internal/domain/model"
	"github.com/okian/accolade/internal/domain/render"
	"github.com/okian/accolade/pkg/logger"
)

// OverlayView tells a client how to display one award. When Live is true the
// client draws Placement over BaseImageURL; otherwise it shows ImageURL.
type OverlayView struct {
	RecipientID  string            `json:"recipient_id"`
	Name         string            `json:"name"`
	Text         string            `json:"text"`
	ImageURL     string            `json:"image_url,omitempty"`
	BaseImageURL string            `json:"base_image_url,omitempty"`
	Natural      render.Size       `json:"natural"`
	Live         bool              `json:"live"`
	Placement    *render.Placement `json:"placement,omitempty"`
}

// AssetReport says whether rendering inputs are present.
type AssetReport struct {
	RootAvailable bool     `json:"root_available"`
	Templates     int      `json:"templates"`
	Missing       []string `json:"missing,omitempty"`
}

// OK reports whether every asset is in place.
func (r AssetReport) OK() bool {
	return r.RootAvailable && len(r.Missing) == 0
}

// MemberAchievements lists the awards a competitor holds, one per group.
func (s *Service) MemberAchievements(ctx context.Context, competitorID string) ([]model.Achievement, error) {
	competitorID = strings.TrimSpace(competitorID)
	if competitorID == "" {
		return nil, fmt.Errorf("%w: empty competitor id", ErrInvalidArgument)
	}
	list, err := s.store.AchievementsForCompetitor(ctx, competitorID)
	if err != nil {
		return nil, fmt.Errorf("member achievements: %w", err)
	}
	if list == nil {
		list = []model.Achievement{}
	}
	return list, nil
}

// Overlay resolves the live overlay for one award shown in container. Missing
// artwork or geometry degrades to the pre-rendered image instead of failing.
func (s *Service) Overlay(ctx context.Context, recipientID string, container render.Size) (OverlayView, error) {
	a, err := s.store.RecipientByID(ctx, recipientID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return OverlayView{}, fmt.Errorf("%w: recipient %s", ErrNotFound, recipientID)
		}
		return OverlayView{}, fmt.Errorf("overlay: %w", err)
	}

	value := a.AchievedValue
	if a.RenderValue != nil {
		value = *a.RenderValue
	}
	view := OverlayView{
		RecipientID: a.ID,
		Name:        a.Name,
		Text:        render.FormatAchieved(value),
		ImageURL:    a.ImageURL,
	}

	tpl, err := s.store.TemplateByKey(ctx, a.TemplateKey)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return view, nil
		}
		return OverlayView{}, fmt.Errorf("overlay: %w", err)
	}
	if tpl.Text == nil {
		return view, nil
	}

	base, err := s.assets.Read(ctx, tpl.BaseImagePath)
	if err != nil {
		s.logger.Warn(ctx, "overlay artwork unavailable",
			logger.String("template", tpl.Key), logger.Error(err))
		return view, nil
	}
	natural, err := render.NaturalSize(base)
	if err != nil {
		s.logger.Warn(ctx, "overlay artwork unreadable",
			logger.String("template", tpl.Key), logger.Error(err))
		return view, nil
	}

	view.Natural = natural
	view.BaseImageURL = s.assetsBaseURL + "/" + strings.TrimPrefix(tpl.BaseImagePath, "/")
	if p, ok := render.Overlay(natural, container, tpl, view.Text); ok {
		view.Live = true
		view.Placement = &p
	}
	return view, nil
}

// CheckAssets verifies that every active template's artwork and the
// configured font can be read.
func (s *Service) CheckAssets(ctx context.Context) (AssetReport, error) {
	var report AssetReport
	if err := s.assets.Available(ctx); err != nil {
		s.logger.Warn(ctx, "assets root unavailable", logger.Error(err))
		return report, nil
	}
	report.RootAvailable = true

	tpls, err := s.store.Templates(ctx)
	if err != nil {
		return report, fmt.Errorf("%w: templates: %w", ErrLoadInputs, err)
	}
	report.Templates = len(tpls)

	paths := make([]string, 0, len(tpls)+1)
	for _, t := range tpls {
		paths = append(paths, t.BaseImagePath)
	}
	if s.fontPath != "" {
		paths = append(paths, s.fontPath)
	}
	missing, err := s.assets.Missing(ctx, paths)
	if err != nil {
		return report, fmt.Errorf("check assets: %w", err)
	}
	report.Missing = missing
	return report, nil
}

// Ping checks the store connection.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}
