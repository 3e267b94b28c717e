package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/okian/accolade/internal/adapters/http/api"
	service "github.com/okian/accolade/internal/app"
	"github.com/okian/accolade/internal/domain/award"
	"github.com/okian/accolade/internal/domain/model"
	"github.com/okian/accolade/internal/domain/render"
	. "github.com/smartystreets/goconvey/convey"
)

type mockDependencies struct {
	pingErr    error
	assets     service.AssetReport
	assetsErr  error
	list       []model.Achievement
	listErr    error
	view       service.OverlayView
	overlayErr error
	container  render.Size
	summary    service.Summary
	batchErr   error
	ran        string
}

func (m *mockDependencies) Ping(context.Context) error { return m.pingErr }

func (m *mockDependencies) CheckAssets(context.Context) (service.AssetReport, error) {
	return m.assets, m.assetsErr
}

func (m *mockDependencies) MemberAchievements(_ context.Context, id string) ([]model.Achievement, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	if strings.TrimSpace(id) == "" {
		return nil, service.ErrInvalidArgument
	}
	return m.list, nil
}

func (m *mockDependencies) Overlay(_ context.Context, id string, container render.Size) (service.OverlayView, error) {
	m.container = container
	if m.overlayErr != nil {
		return service.OverlayView{}, m.overlayErr
	}
	v := m.view
	v.RecipientID = id
	return v, nil
}

func (m *mockDependencies) RunBatch(context.Context) (service.Summary, error) {
	m.ran = service.KindAwards
	return m.summary, m.batchErr
}

func (m *mockDependencies) RegenerateMissing(context.Context) (service.Summary, error) {
	m.ran = service.KindRegenerate
	return m.summary, m.batchErr
}

func newMux(deps *mockDependencies, opts ...api.Option) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps, opts...).Register(context.Background(), mux)
	return mux
}

func serve(mux *http.ServeMux, method, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(method, target, nil))
	return w
}

func TestHealth(t *testing.T) {
	Convey("Given the health endpoint", t, func() {
		deps := &mockDependencies{assets: service.AssetReport{RootAvailable: true, Templates: 3}}
		mux := newMux(deps)

		Convey("When everything is in place", func() {
			w := serve(mux, http.MethodGet, "/healthz")

			Convey("Then it reports ok", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var body map[string]any
				So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
				So(body["status"], ShouldEqual, "ok")
				So(body["database"], ShouldEqual, "ok")
			})
		})

		Convey("When an asset is missing", func() {
			deps.assets.Missing = []string{"/templates/cath.png"}
			w := serve(mux, http.MethodGet, "/healthz")

			Convey("Then it reports degraded", func() {
				So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
				So(w.Body.String(), ShouldContainSubstring, "/templates/cath.png")
			})
		})

		Convey("When the database is down", func() {
			deps.pingErr = errors.New("dial tcp: refused")
			w := serve(mux, http.MethodGet, "/healthz")

			Convey("Then it reports unreachable", func() {
				So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
				So(w.Body.String(), ShouldContainSubstring, "unreachable")
			})
		})

		Convey("When metrics are scraped", func() {
			_ = serve(mux, http.MethodGet, "/healthz")
			w := serve(mux, http.MethodGet, "/metrics")

			Convey("Then the request counters are exposed", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, "accolade_awards_http_requests_total")
			})
		})
	})
}

func TestMemberAchievements(t *testing.T) {
	Convey("Given a member with one award", t, func() {
		generated := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		deps := &mockDependencies{list: []model.Achievement{{
			Recipient: model.Recipient{
				ID: "rec-1", AchievementID: "h165", CompetitorID: "comp-1", Group: "Certified at the Headrest",
				AchievedValue: 167.2, ImageURL: "/media/achievements/a.png", ImageGeneratedAt: generated,
			},
			Name:      "165+ dB Club",
			Threshold: 165,
		}}}
		mux := newMux(deps)

		Convey("When the list is requested", func() {
			w := serve(mux, http.MethodGet, "/v1/members/comp-1/achievements")

			Convey("Then it is returned as JSON", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var body []map[string]any
				So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
				So(len(body), ShouldEqual, 1)
				So(body[0]["achievement_id"], ShouldEqual, "h165")
				So(body[0]["threshold"], ShouldEqual, 165)
				So(body[0]["achieved_value"], ShouldEqual, 167.2)
				So(body[0]["image_generated_at"], ShouldEqual, "2025-06-01T12:00:00Z")
			})
		})

		Convey("When the store fails", func() {
			deps.listErr = errors.New("boom")
			w := serve(mux, http.MethodGet, "/v1/members/comp-1/achievements")
			So(w.Code, ShouldEqual, http.StatusInternalServerError)
		})

		Convey("When the wrong method is used", func() {
			w := serve(mux, http.MethodPost, "/v1/members/comp-1/achievements")
			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})
}

func TestOverlay(t *testing.T) {
	Convey("Given the overlay endpoint", t, func() {
		deps := &mockDependencies{view: service.OverlayView{
			Text: "131", Live: true,
			Placement: &render.Placement{Left: 240, Top: 67.12, FontSizePx: 14, Color: "#CC0F00", Text: "131"},
		}}
		mux := newMux(deps)

		Convey("When a container size is given", func() {
			w := serve(mux, http.MethodGet, "/v1/recipients/rec-x/overlay?width=800&height=800")

			Convey("Then it is passed through and the placement returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.container, ShouldResemble, render.Size{W: 800, H: 800})
				var body map[string]any
				So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
				So(body["recipient_id"], ShouldEqual, "rec-x")
				So(body["live"], ShouldEqual, true)
				So(body["placement"].(map[string]any)["font_size_px"], ShouldEqual, 14)
			})
		})

		Convey("When no size is given", func() {
			w := serve(mux, http.MethodGet, "/v1/recipients/rec-x/overlay")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.container, ShouldResemble, render.Size{})
		})

		Convey("When the size is not a number", func() {
			w := serve(mux, http.MethodGet, "/v1/recipients/rec-x/overlay?width=wide&height=800")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the size is infinite or NaN", func() {
			for _, q := range []string{"width=Inf&height=800", "width=800&height=-inf", "width=NaN&height=800", "width=800&height=1e400"} {
				w := serve(mux, http.MethodGet, "/v1/recipients/rec-x/overlay?"+q)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(json.Valid(w.Body.Bytes()), ShouldBeTrue)
			}
		})

		Convey("When the view cannot be encoded", func() {
			deps.view.Placement = &render.Placement{Left: math.Inf(1)}
			w := serve(mux, http.MethodGet, "/v1/recipients/rec-x/overlay?width=800&height=800")

			Convey("Then the client gets an error body, not an empty success", func() {
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
				So(json.Valid(w.Body.Bytes()), ShouldBeTrue)
			})
		})

		Convey("When the recipient is unknown", func() {
			deps.overlayErr = fmt.Errorf("%w: recipient nope", service.ErrNotFound)
			w := serve(mux, http.MethodGet, "/v1/recipients/nope/overlay")
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestBatch(t *testing.T) {
	Convey("Given the batch endpoint", t, func() {
		deps := &mockDependencies{summary: service.Summary{
			Kind: service.KindAwards, Units: 2,
			Statuses: map[award.Status]int{award.StatusAwarded: 2},
		}}
		mux := newMux(deps)

		Convey("When an award batch is triggered", func() {
			w := serve(mux, http.MethodPost, "/v1/batch")

			Convey("Then the summary is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.ran, ShouldEqual, service.KindAwards)
				So(w.Body.String(), ShouldContainSubstring, `"awarded":2`)
			})
		})

		Convey("When a regeneration is triggered", func() {
			w := serve(mux, http.MethodPost, "/v1/batch?kind=regenerate")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.ran, ShouldEqual, service.KindRegenerate)
		})

		Convey("When the kind is unknown", func() {
			w := serve(mux, http.MethodPost, "/v1/batch?kind=all")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When a batch is already running", func() {
			deps.batchErr = fmt.Errorf("%w: held", service.ErrBatchRunning)
			w := serve(mux, http.MethodPost, "/v1/batch")
			So(w.Code, ShouldEqual, http.StatusConflict)
		})

		Convey("When inputs cannot be read", func() {
			deps.batchErr = fmt.Errorf("%w: results", service.ErrLoadInputs)
			w := serve(mux, http.MethodPost, "/v1/batch")
			So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
		})
	})
}

func TestStatic(t *testing.T) {
	Convey("Given a static mount", t, func() {
		files := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("path=" + r.URL.Path))
		})
		mux := newMux(&mockDependencies{}, api.WithStatic("/media/", files))

		Convey("Then requests are served with the prefix stripped", func() {
			w := serve(mux, http.MethodGet, "/media/achievements/a.png")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldEqual, "path=/achievements/a.png")
		})
	})
}
