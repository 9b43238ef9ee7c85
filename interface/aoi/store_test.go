package aoi

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/airbusgeo/geodata-ingester/service"
	"github.com/airbusgeo/geodata-ingester/service/geometry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var nairobi = geometry.RingFromBBox(geometry.BBox{West: 36.6647, South: -1.4448, East: 37.1048, North: -1.1606})

func TestSaveLoad(t *testing.T) {
	ctx := context.Background()
	s, err := NewStore(filepath.Join(t.TempDir(), "geojson_files"))
	require.NoError(t, err)

	h, err := s.Save(ctx, nairobi)
	require.NoError(t, err)
	assert.Equal(t, Handle("geojson_1.geojson"), h)

	ring, err := s.Load(ctx, string(h))
	require.NoError(t, err)
	assert.Equal(t, nairobi, ring)

	// Full path inside the store is accepted
	ring, err = s.Load(ctx, s.Path(h))
	require.NoError(t, err)
	assert.Equal(t, nairobi, ring)

	r, err := s.Open(ctx, string(h))
	require.NoError(t, err)
	defer r.Close()
	b, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Contains(t, string(b), service.CRS84)
}

func TestSaveCollision(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := NewStore(dir)
	require.NoError(t, err)

	// An unrelated file and a preexisting geojson_2
	require.NoError(t, os.WriteFile(filepath.Join(dir, "geojson_2.geojson"), []byte("{}"), 0644))
	h, err := s.Save(ctx, nairobi)
	require.NoError(t, err)
	assert.Equal(t, Handle("geojson_3.geojson"), h)

	b, err := os.ReadFile(filepath.Join(dir, "geojson_2.geojson"))
	require.NoError(t, err)
	assert.Equal(t, "{}", string(b), "existing file must not be overwritten")
}

func TestSaveConcurrent(t *testing.T) {
	ctx := context.Background()
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)

	var wg sync.WaitGroup
	handles := make([]Handle, 10)
	for i := range handles {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			h, err := s.Save(ctx, nairobi)
			assert.NoError(t, err)
			handles[i] = h
		}(i)
	}
	wg.Wait()
	seen := map[Handle]bool{}
	for _, h := range handles {
		assert.False(t, seen[h], "duplicate handle %s", h)
		seen[h] = true
	}
}

func TestSaveInvalid(t *testing.T) {
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)
	_, err = s.Save(context.Background(), geometry.Ring{{0, 0}, {1, 1}})
	var e service.InputInvalidError
	assert.True(t, errors.As(err, &e))
}

func TestLoadNotFound(t *testing.T) {
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)
	for _, h := range []string{"geojson_9.geojson", "../etc/passwd", "/tmp/geojson_1.geojson", ".."} {
		_, err = s.Load(context.Background(), h)
		var e service.NotFoundError
		assert.True(t, errors.As(err, &e), h)
	}
	_, err = s.Load(context.Background(), "")
	var e service.InputInvalidError
	assert.True(t, errors.As(err, &e))
}
