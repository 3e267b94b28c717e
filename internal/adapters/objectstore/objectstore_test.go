package objectstore

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/spf13/afero"
	. "github.com/smartystreets/goconvey/convey"
)

func TestFSStore(t *testing.T) {
	Convey("Given a store over an in-memory filesystem", t, func() {
		fs := afero.NewMemMapFs()
		s := New(fs, "http://localhost:8080/media/")
		ctx := context.Background()

		Convey("When an object is put", func() {
			url, err := s.Put(ctx, "achievements/abc-1.png", []byte("png"), "image/png")

			Convey("Then it is written and addressable", func() {
				So(err, ShouldBeNil)
				So(url, ShouldEqual, "http://localhost:8080/media/achievements/abc-1.png")
				data, err := afero.ReadFile(fs, "/achievements/abc-1.png")
				So(err, ShouldBeNil)
				So(string(data), ShouldEqual, "png")
				ok, _ := s.Exists("achievements/abc-1.png")
				So(ok, ShouldBeTrue)
			})

			Convey("Then it is served over HTTP", func() {
				srv := httptest.NewServer(http.StripPrefix("/media/", s.Handler()))
				defer srv.Close()
				resp, err := http.Get(srv.URL + "/media/achievements/abc-1.png")
				So(err, ShouldBeNil)
				defer resp.Body.Close()
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(resp.Header.Get("Content-Type"), ShouldEqual, "image/png")
			})

			Convey("Then deleting by URL removes it, twice is harmless", func() {
				So(s.Delete(ctx, url), ShouldBeNil)
				ok, _ := s.Exists("achievements/abc-1.png")
				So(ok, ShouldBeFalse)
				So(s.Delete(ctx, url), ShouldBeNil)
			})
		})

		Convey("Keys that escape the root are rejected", func() {
			_, err := s.Put(ctx, "../etc/passwd", []byte("x"), "image/png")
			So(errors.Is(err, ErrInvalidKey), ShouldBeTrue)
			_, err = s.Put(ctx, "achievements/", []byte("x"), "image/png")
			So(errors.Is(err, ErrInvalidKey), ShouldBeTrue)
		})

		Convey("URLs from elsewhere are not deleted", func() {
			err := s.Delete(ctx, "https://cdn.example/achievements/abc.png")
			So(errors.Is(err, ErrForeignURL), ShouldBeTrue)
		})
	})

	Convey("A directory store creates its root", t, func() {
		dir := t.TempDir() + "/media"
		s, err := NewDir(dir, "/media")
		So(err, ShouldBeNil)
		url, err := s.Put(context.Background(), "a/b.png", []byte("x"), "image/png")
		So(err, ShouldBeNil)
		So(url, ShouldEqual, "/media/a/b.png")
	})
}
