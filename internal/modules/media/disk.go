package media

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// DiskStore keeps images on the local filesystem and serves them under a
// public URL prefix.
type DiskStore struct {
	dir       string
	urlPrefix string
}

// NewDiskStore creates the storage directory if needed.
func NewDiskStore(dir, urlPrefix string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create media dir: %w", err)
	}
	return &DiskStore{dir: dir, urlPrefix: strings.TrimSuffix(urlPrefix, "/")}, nil
}

func (s *DiskStore) Save(ctx context.Context, filename string, r io.Reader) (string, error) {
	ext := filepath.Ext(filename)
	name := uuid.New().String() + ext

	f, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return "", fmt.Errorf("create image file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("write image: %w", err)
	}
	return s.urlPrefix + "/" + name, nil
}

// RegisterRoutes mounts a static file server at the store's URL prefix.
func (s *DiskStore) RegisterRoutes(r chi.Router) {
	fs := http.StripPrefix(s.urlPrefix, http.FileServer(http.Dir(s.dir)))
	r.Get(s.urlPrefix+"/*", fs.ServeHTTP)
}
