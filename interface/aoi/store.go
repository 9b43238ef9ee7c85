// Package aoi stores areas of interest as GeoJSON documents on the local filesystem
package aoi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/airbusgeo/geodata-ingester/service"
	"github.com/airbusgeo/geodata-ingester/service/geometry"
	"github.com/airbusgeo/geodata-ingester/service/log"
)

const (
	filePrefix = "geojson_"
	fileExt    = ".geojson"
)

// Handle identifies an AOI in the store (its file name)
type Handle string

// Store of AOI files. Files are never updated once written
type Store struct {
	dir string
	mu  sync.Mutex
}

// NewStore creates the store directory if needed
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("aoi.NewStore: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir of the store
func (s *Store) Dir() string {
	return s.dir
}

// Save validates the ring and writes it as geojson_<n>.geojson
func (s *Store) Save(ctx context.Context, ring geometry.Ring) (Handle, error) {
	if err := ring.Validate(); err != nil {
		return "", service.InputInvalidError{Field: "coordinates", Reason: err.Error()}
	}
	data, err := service.MarshalAOI(ring, nil)
	if err != nil {
		return "", fmt.Errorf("aoi.Save.%w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return "", fmt.Errorf("aoi.Save.ReadDir: %w", err)
	}
	for n := len(entries) + 1; ; n++ {
		name := fmt.Sprintf("%s%d%s", filePrefix, n, fileExt)
		f, err := os.OpenFile(filepath.Join(s.dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("aoi.Save.OpenFile: %w", err)
		}
		_, err = f.Write(data)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			os.Remove(f.Name())
			return "", fmt.Errorf("aoi.Save.Write: %w", err)
		}
		log.Logger(ctx).Sugar().Debugf("aoi %s saved", name)
		return Handle(name), nil
	}
}

// Resolve returns the path of the handle, or NotFoundError
// A path inside the store directory is reduced to its base name
func (s *Store) Resolve(handle string) (string, error) {
	handle = strings.TrimSpace(handle)
	if handle == "" {
		return "", service.InputInvalidError{Field: "geojson_path", Reason: "missing aoi handle"}
	}
	name := filepath.Base(handle)
	if dir := filepath.Dir(handle); dir != "." && filepath.Clean(dir) != filepath.Clean(s.dir) {
		return "", service.NotFoundError{Type: "aoi", ID: handle}
	}
	if name == "." || name == string(filepath.Separator) || strings.HasPrefix(name, ".") {
		return "", service.NotFoundError{Type: "aoi", ID: handle}
	}
	p := filepath.Join(s.dir, name)
	if st, err := os.Stat(p); err != nil || st.IsDir() {
		return "", service.NotFoundError{Type: "aoi", ID: handle}
	}
	return p, nil
}

// Path of the file behind the handle (whether it exists or not)
func (s *Store) Path(handle Handle) string {
	return filepath.Join(s.dir, filepath.Base(string(handle)))
}

// Load reads the ring of the AOI
func (s *Store) Load(ctx context.Context, handle string) (geometry.Ring, error) {
	p, err := s.Resolve(handle)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("aoi.Load: %w", err)
	}
	ring, err := service.UnmarshalAOI(data)
	if err != nil {
		return nil, service.InputInvalidError{Field: "geojson_path", Reason: err.Error()}
	}
	return ring, nil
}

// Open the AOI file for reading
func (s *Store) Open(ctx context.Context, handle string) (io.ReadCloser, error) {
	p, err := s.Resolve(handle)
	if err != nil {
		return nil, err
	}
	return os.Open(p)
}
