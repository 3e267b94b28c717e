// Package assets reads template artwork and font files from an afero filesystem.
package assets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

// ErrInvalidPath is returned for paths that leave the assets root or are URLs.
var ErrInvalidPath = errors.New("invalid asset path")

// Reader resolves asset paths against the root of fs.
type Reader struct {
	fs afero.Fs
}

// New creates a reader over fs.
func New(fs afero.Fs) *Reader {
	return &Reader{fs: fs}
}

// NewDir creates a read-only reader rooted at dir on the local disk.
func NewDir(dir string) *Reader {
	return New(afero.NewReadOnlyFs(afero.NewBasePathFs(afero.NewOsFs(), dir)))
}

// Read returns the bytes at p. Template paths are stored as site paths such as
// "/achievements/templates/cath.png", so a leading slash is relative to the root.
func (r *Reader) Read(ctx context.Context, p string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	clean, err := cleanPath(p)
	if err != nil {
		return nil, err
	}
	data, err := afero.ReadFile(r.fs, clean)
	if err != nil {
		return nil, fmt.Errorf("read asset %s: %w", clean, err)
	}
	return data, nil
}

// Missing returns the subset of paths that cannot be found, sorted and de-duplicated.
func (r *Reader) Missing(ctx context.Context, paths []string) ([]string, error) {
	seen := make(map[string]struct{}, len(paths))
	var missing []string
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}

		clean, err := cleanPath(p)
		if err != nil {
			missing = append(missing, p)
			continue
		}
		ok, err := afero.Exists(r.fs, clean)
		if err != nil {
			return nil, fmt.Errorf("stat asset %s: %w", clean, err)
		}
		if !ok {
			missing = append(missing, p)
		}
	}
	sort.Strings(missing)
	return missing, nil
}

// Available reports whether the assets root can be listed.
func (r *Reader) Available(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ok, err := afero.DirExists(r.fs, "/")
	if err != nil {
		return fmt.Errorf("stat assets root: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: assets root missing", ErrInvalidPath)
	}
	return nil
}

// Handler serves artwork for live overlays. Mount it with http.StripPrefix.
func (r *Reader) Handler() http.Handler {
	return http.FileServer(afero.NewHttpFs(r.fs).Dir("/"))
}

func cleanPath(p string) (string, error) {
	p = strings.TrimSpace(p)
	if p == "" || strings.Contains(p, "://") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, p)
	}
	raw := "/" + strings.TrimPrefix(p, "/")
	clean := path.Clean(raw)
	if clean != raw || clean == "/" {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, p)
	}
	return clean, nil
}
