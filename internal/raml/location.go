package raml

import (
	"context"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/viant/afs"
)

// IsURL reports whether location carries a scheme (file://, mem://, s3://, ...).
func IsURL(location string) bool {
	return strings.Contains(location, "://")
}

// JoinLocation resolves rel against the directory base. Absolute paths and
// URLs in rel are returned as is.
func JoinLocation(base, rel string) string {
	if rel == "" {
		return base
	}
	if IsURL(rel) || base == "" {
		return rel
	}
	if IsURL(base) {
		u, err := url.Parse(base)
		if err != nil {
			return strings.TrimSuffix(base, "/") + "/" + rel
		}
		if strings.HasPrefix(rel, "/") {
			u.Path = path.Clean(rel)
		} else {
			u.Path = path.Join("/", u.Path, rel)
		}
		return u.String()
	}
	if filepath.IsAbs(rel) {
		return filepath.Clean(rel)
	}
	return filepath.Join(base, rel)
}

// ParentLocation returns the directory containing location.
func ParentLocation(location string) string {
	if IsURL(location) {
		u, err := url.Parse(location)
		if err != nil {
			return location
		}
		u.Path = path.Dir(u.Path)
		return u.String()
	}
	return filepath.Dir(location)
}

// Storage reads documents from local paths or any afs-supported URL.
type Storage struct {
	fs afs.Service
}

// NewStorage wraps fs; a nil fs falls back to afs.New().
func NewStorage(fs afs.Service) *Storage {
	if fs == nil {
		fs = afs.New()
	}
	return &Storage{fs: fs}
}

// Read downloads location.
func (s *Storage) Read(ctx context.Context, location string) ([]byte, error) {
	data, err := s.fs.DownloadWithURL(ctx, location)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %v", location)
	}
	return data, nil
}

// Exists reports whether location can be read.
func (s *Storage) Exists(ctx context.Context, location string) bool {
	ok, err := s.fs.Exists(ctx, location)
	return err == nil && ok
}
