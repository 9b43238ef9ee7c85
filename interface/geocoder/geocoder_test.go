package geocoder

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/airbusgeo/geodata-ingester/service/geometry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingGeocoder struct {
	calls  int
	result Result
	err    error
}

func (m *countingGeocoder) BoundingBox(_ context.Context, _ string) (Result, error) {
	m.calls++
	return m.result, m.err
}

func TestCached_Hit(t *testing.T) {
	inner := &countingGeocoder{result: Result{Formatted: "Nairobi, Kenya", BBox: geometry.BBox{West: 36.6, South: -1.4, East: 37.1, North: -1.1}}}
	hits := 0
	cached := NewCached(inner, time.Minute)
	cached.OnHit = func() { hits++ }

	r1, err := cached.BoundingBox(context.Background(), "Nairobi")
	require.NoError(t, err)
	r2, err := cached.BoundingBox(context.Background(), " nairobi ")
	require.NoError(t, err)

	assert.Equal(t, r1, r2)
	assert.Equal(t, 1, inner.calls, "should only call inner once")
	assert.Equal(t, 1, hits)
}

func TestCached_ErrorsAreNotCached(t *testing.T) {
	inner := &countingGeocoder{err: fmt.Errorf("upstream down")}
	cached := NewCached(inner, time.Minute)

	_, err := cached.BoundingBox(context.Background(), "Nairobi")
	require.Error(t, err)
	_, err = cached.BoundingBox(context.Background(), "Nairobi")
	require.Error(t, err)

	assert.Equal(t, 2, inner.calls)
}

func TestCached_ZeroTTLDisablesCache(t *testing.T) {
	inner := &countingGeocoder{result: Result{Formatted: "Nairobi, Kenya"}}
	hits := 0
	cached := NewCached(inner, 0)
	cached.OnHit = func() { hits++ }

	for i := 0; i < 2; i++ {
		_, err := cached.BoundingBox(context.Background(), "Nairobi")
		require.NoError(t, err)
	}
	assert.Equal(t, 2, inner.calls)
	assert.Equal(t, 0, hits)
}
