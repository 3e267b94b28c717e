// Package objectstore keeps rendered award images on an afero filesystem and
// serves them under a public base URL.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/spf13/afero"

	"github.com/okian/accolade/pkg/logger"
)

// Sentinel kinds for object store errors.
var (
	ErrInvalidKey = errors.New("invalid object key")
	ErrForeignURL = errors.New("url not served by this store")
)

// Option applies a configuration option to the FSStore.
type Option func(*FSStore)

// WithLogger sets a custom logger for the store.
func WithLogger(l logger.Logger) Option {
	return func(s *FSStore) {
		if l != nil {
			s.logger = l
		}
	}
}

// FSStore writes objects below the root of fs, always addressed with a
// leading slash. Public URLs are baseURL + "/" + key.
type FSStore struct {
	fs      afero.Fs
	baseURL string
	logger  logger.Logger
}

// New creates a store over fs.
func New(fs afero.Fs, baseURL string, opts ...Option) *FSStore {
	s := &FSStore{
		fs:      fs,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewDir creates a store rooted at dir on the local disk.
func NewDir(dir, baseURL string, opts ...Option) (*FSStore, error) {
	osfs := afero.NewOsFs()
	if err := osfs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create media dir %q: %w", dir, err)
	}
	return New(afero.NewBasePathFs(osfs, dir), baseURL, opts...), nil
}

// Put stores data under key and returns its public URL.
func (s *FSStore) Put(ctx context.Context, key string, data []byte, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	clean, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	if err := s.fs.MkdirAll(path.Dir("/"+clean), 0o755); err != nil {
		return "", fmt.Errorf("create object dir: %w", err)
	}
	if err := afero.WriteFile(s.fs, "/"+clean, data, 0o644); err != nil {
		return "", fmt.Errorf("write object %s: %w", clean, err)
	}
	return s.baseURL + "/" + clean, nil
}

// Delete removes the object behind url. A missing object is not an error.
func (s *FSStore) Delete(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key, ok := strings.CutPrefix(url, s.baseURL+"/")
	if !ok {
		return fmt.Errorf("%w: %s", ErrForeignURL, url)
	}
	clean, err := cleanKey(key)
	if err != nil {
		return err
	}
	if err := s.fs.Remove("/" + clean); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove object %s: %w", clean, err)
	}
	s.logger.Debug(ctx, "object removed", logger.String("key", clean))
	return nil
}

// Exists reports whether an object is stored under key.
func (s *FSStore) Exists(key string) (bool, error) {
	clean, err := cleanKey(key)
	if err != nil {
		return false, err
	}
	return afero.Exists(s.fs, "/"+clean)
}

// Handler serves stored objects. Mount it with http.StripPrefix.
func (s *FSStore) Handler() http.Handler {
	return http.FileServer(afero.NewHttpFs(s.fs).Dir("/"))
}

func cleanKey(key string) (string, error) {
	k := strings.TrimPrefix(path.Clean("/"+key), "/")
	if k == "" || k != strings.TrimPrefix(key, "/") || strings.HasSuffix(key, "/") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return k, nil
}
