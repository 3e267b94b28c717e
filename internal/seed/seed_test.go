package seed

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/accolade/internal/adapters/repository"
	"github.com/okian/accolade/pkg/logger"
)

func f64(v float64) *float64 { return &v }
func ip(v int) *int          { return &v }

func smallFixture() Fixture {
	return Fixture{
		Templates: []Template{
			{Key: "cath", Image: "templates/cath.png", X: ip(10), Y: ip(20), FontSize: ip(30)},
			{Key: "radx", Image: "templates/radx.png"},
		},
		Definitions: []Definition{
			{ID: "h125", Name: "125", CompetitionType: "Certified at the Headrest", Threshold: 125, Template: "cath"},
			{ID: "h130", Name: "130", CompetitionType: "Certified at the Headrest", Threshold: 130, Template: "cath"},
			{ID: "r125", Name: "RadX 125", Group: "Radical X", CompetitionType: "Radical X", Threshold: 125, Template: "radx"},
			{ID: "old", Name: "Old", Group: "Radical X", CompetitionType: "Radical X", Threshold: 100, Template: "radx", Inactive: true},
		},
		Results: []Result{
			{ID: "a", Competitor: "c1", Class: "Modified 3", Format: "SPL", Score: f64(167)},
			{ID: "b", Competitor: "c1", Class: "Radical X 1", Format: "SPL", Score: f64(127.5)},
			{ID: "c", Competitor: "c2", Class: "Kids Street", Format: "SPL", Score: f64(150)},
			{ID: "d", Competitor: "c3", Class: "X Maxx", Format: "SPL", Score: f64(110)},
			{ID: "e", Class: "Modified 3", Format: "SPL", Score: f64(180)},
			{ID: "f", Competitor: "c4", Class: "Street 2", Format: "SPL"},
		},
	}
}

func TestGenerate(t *testing.T) {
	Convey("Given a generator config", t, func() {
		cfg := GenerateConfig{Competitors: 25, ResultsPerCompetitor: 3, Seed: 42, Season: "2025"}

		Convey("When it generates twice with the same seed", func() {
			a := Generate(cfg)
			b := Generate(cfg)

			Convey("Then the fixtures are identical and valid", func() {
				So(a, ShouldResemble, b)
				So(a.Validate(), ShouldBeNil)
				So(len(a.Templates), ShouldEqual, 4)
				So(len(a.Definitions), ShouldEqual, 12+6+5+4)
				So(len(a.Results), ShouldEqual, 75)
				So(a.Results[0].Season, ShouldEqual, "2025")
			})
		})

		Convey("When the seed changes", func() {
			a := Generate(cfg)
			cfg.Seed = 43
			b := Generate(cfg)

			Convey("Then results differ", func() {
				So(a.Results[0].ID, ShouldNotEqual, b.Results[0].ID)
			})
		})

		Convey("When results per competitor is unset", func() {
			f := Generate(GenerateConfig{Competitors: 2})
			So(len(f.Results), ShouldEqual, 2*defaultPerEntity)
		})
	})
}

func TestFixtureFiles(t *testing.T) {
	Convey("Given a fixture on disk", t, func() {
		path := filepath.Join(t.TempDir(), "nested", "fixture.yaml")
		So(Save(path, smallFixture()), ShouldBeNil)

		Convey("Then it loads back unchanged", func() {
			f, err := Load(path)
			So(err, ShouldBeNil)
			So(f, ShouldResemble, smallFixture())
		})

		Convey("Unknown fields are rejected", func() {
			So(os.WriteFile(path, []byte("templates: []\nbogus: 1\n"), 0o600), ShouldBeNil)
			_, err := Load(path)
			So(errors.Is(err, ErrInvalidFixture), ShouldBeTrue)
		})

		Convey("Definitions must point at known templates", func() {
			f := smallFixture()
			f.Definitions[0].Template = "nope"
			So(errors.Is(f.Validate(), ErrInvalidFixture), ShouldBeTrue)
		})

		Convey("Duplicate definition ids are rejected", func() {
			f := smallFixture()
			f.Definitions[1].ID = "h125"
			So(errors.Is(f.Validate(), ErrInvalidFixture), ShouldBeTrue)
		})

		Convey("A missing file is an error", func() {
			_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
			So(err, ShouldNotBeNil)
		})
	})
}

func TestApply(t *testing.T) {
	Convey("Given a sqlite store", t, func() {
		ctx := context.Background()
		s, err := repository.Open(ctx, repository.DriverSQLite, filepath.Join(t.TempDir(), "seed.db"))
		So(err, ShouldBeNil)
		defer s.Close()

		Convey("When the fixture is applied twice", func() {
			So(Apply(ctx, s, smallFixture()), ShouldBeNil)
			So(Apply(ctx, s, smallFixture()), ShouldBeNil)

			Convey("Then active rows are readable through the store", func() {
				defs, err := s.ActiveDefinitions(ctx)
				So(err, ShouldBeNil)
				So(len(defs), ShouldEqual, 3)

				tpl, err := s.TemplateByKey(ctx, "cath")
				So(err, ShouldBeNil)
				So(tpl.Text, ShouldNotBeNil)

				results, err := s.Results(ctx)
				So(err, ShouldBeNil)
				So(len(results), ShouldEqual, 4)
			})
		})
	})
}

func TestExpect(t *testing.T) {
	Convey("Given the small fixture", t, func() {
		got := Expect(smallFixture())

		Convey("Then only qualifying competitor groups are expected", func() {
			So(got, ShouldResemble, []Expectation{
				{CompetitorID: "c1", Group: "Certified at the Headrest", Threshold: 130, AchievedAt: 167},
				{CompetitorID: "c1", Group: "Radical X", Threshold: 125, AchievedAt: 127.5},
			})
		})
	})
}

// fakeServer serves canned awards per competitor.
func fakeServer(t *testing.T, awards map[string][]Award, healthy bool) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		if !healthy {
			http.Error(w, `{"status":"unavailable"}`, http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	mux.HandleFunc("POST /v1/batch", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"kind": r.URL.Query().Get("kind"), "units": 2, "statuses": map[string]int{"awarded": 2},
		})
	})
	mux.HandleFunc("GET /v1/members/{id}/achievements", func(w http.ResponseWriter, r *http.Request) {
		list := awards[r.PathValue("id")]
		if list == nil {
			list = []Award{}
		}
		_ = json.NewEncoder(w).Encode(list)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestVerify(t *testing.T) {
	Convey("Given the expected awards of the small fixture", t, func() {
		ctx := context.Background()
		expected := Expect(smallFixture())
		good := map[string][]Award{
			"c1": {
				{Group: "Certified at the Headrest", Threshold: 135, ImageURL: "/media/a.png"},
				{Group: "Radical X", Threshold: 125, ImageURL: "/media/b.png"},
			},
		}

		Convey("When the server holds them or better", func() {
			srv := fakeServer(t, good, true)
			report, err := Verify(ctx, NewClient(srv.URL, time.Second), expected, 2)

			Convey("Then verification passes", func() {
				So(err, ShouldBeNil)
				So(report.OK(), ShouldBeTrue)
				So(report.Matched, ShouldEqual, 2)
				So(report.Competitors, ShouldEqual, 1)
			})
		})

		Convey("When an award is lower or missing", func() {
			srv := fakeServer(t, map[string][]Award{
				"c1": {{Group: "Certified at the Headrest", Threshold: 125, ImageURL: "/media/a.png"}},
			}, true)
			report, err := Verify(ctx, NewClient(srv.URL, time.Second), expected, 0)

			Convey("Then every problem is reported", func() {
				So(errors.Is(err, ErrMismatch), ShouldBeTrue)
				So(len(report.Problems), ShouldEqual, 2)
				So(report.Matched, ShouldEqual, 0)
			})
		})

		Convey("When running against the server end to end", func() {
			srv := fakeServer(t, good, true)
			fixturePath := filepath.Join(t.TempDir(), "fx.yaml")
			So(Save(fixturePath, smallFixture()), ShouldBeNil)
			out := filepath.Join(t.TempDir(), "out.yaml")

			err := Run(ctx, Config{
				FixturePath: fixturePath,
				OutputPath:  out,
				DBDriver:    repository.DriverSQLite,
				DBDSN:       filepath.Join(t.TempDir(), "run.db"),
				BaseURL:     srv.URL,
				Verify:      true,
				Timeout:     time.Second,
				Workers:     2,
			}, logger.Nop())

			Convey("Then it succeeds and writes the fixture", func() {
				So(err, ShouldBeNil)
				_, statErr := os.Stat(out)
				So(statErr, ShouldBeNil)
			})
		})

		Convey("When the server is unhealthy", func() {
			srv := fakeServer(t, good, false)
			err := Run(ctx, Config{Generate: GenerateConfig{Competitors: 1}, BaseURL: srv.URL, Timeout: time.Second}, logger.Nop())
			So(errors.Is(err, ErrServiceUnavailable), ShouldBeTrue)
		})
	})
}
