package assets

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	. "github.com/smartystreets/goconvey/convey"
)

func TestReader(t *testing.T) {
	Convey("Given artwork on an in-memory filesystem", t, func() {
		fs := afero.NewMemMapFs()
		So(afero.WriteFile(fs, "/achievements/templates/cath.png", []byte("art"), 0o644), ShouldBeNil)
		r := New(fs)
		ctx := context.Background()

		Convey("Site paths and relative paths both resolve", func() {
			b, err := r.Read(ctx, "/achievements/templates/cath.png")
			So(err, ShouldBeNil)
			So(string(b), ShouldEqual, "art")

			b, err = r.Read(ctx, "achievements/templates/cath.png")
			So(err, ShouldBeNil)
			So(string(b), ShouldEqual, "art")
		})

		Convey("Missing files surface an error", func() {
			_, err := r.Read(ctx, "/achievements/templates/none.png")
			So(err, ShouldNotBeNil)
		})

		Convey("Traversal and URLs are rejected", func() {
			_, err := r.Read(ctx, "/../secrets")
			So(errors.Is(err, ErrInvalidPath), ShouldBeTrue)
			_, err = r.Read(ctx, "https://cdn.example/x.png")
			So(errors.Is(err, ErrInvalidPath), ShouldBeTrue)
		})

		Convey("Missing lists only what is absent", func() {
			missing, err := r.Missing(ctx, []string{
				"/achievements/templates/cath.png",
				"/achievements/templates/radx.png",
				"/achievements/templates/radx.png",
				"",
			})
			So(err, ShouldBeNil)
			So(missing, ShouldResemble, []string{"", "/achievements/templates/radx.png"})
		})

		Convey("The root is available and artwork can be served", func() {
			So(r.Available(ctx), ShouldBeNil)

			srv := httptest.NewServer(r.Handler())
			defer srv.Close()
			resp, err := srv.Client().Get(srv.URL + "/achievements/templates/cath.png")
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			body, _ := io.ReadAll(resp.Body)
			So(resp.StatusCode, ShouldEqual, 200)
			So(string(body), ShouldEqual, "art")
		})
	})

	Convey("A directory that does not exist is not available", t, func() {
		r := NewDir(filepath.Join(t.TempDir(), "nope"))
		So(r.Available(context.Background()), ShouldNotBeNil)
	})
}
