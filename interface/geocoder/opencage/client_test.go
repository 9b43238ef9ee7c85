package opencage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/airbusgeo/geodata-ingester/service"
	"github.com/airbusgeo/geodata-ingester/service/geometry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const nairobiResponse = `{
  "results": [{
    "bounds": {
      "northeast": {"lat": -1.1606, "lng": 37.1048},
      "southwest": {"lat": -1.4448, "lng": 36.6647}
    },
    "formatted": "Nairobi, Kenya",
    "geometry": {"lat": -1.2833, "lng": 36.8167}
  }],
  "status": {"code": 200, "message": "OK"},
  "total_results": 1
}`

func newTestServer(t *testing.T, status int, body string) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/json", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestBoundingBox(t *testing.T) {
	srv := newTestServer(t, http.StatusOK, nairobiResponse)
	c := NewClient("test-key", srv.URL, time.Second)

	r, err := c.BoundingBox(context.Background(), "Nairobi")
	require.NoError(t, err)
	assert.Equal(t, "Nairobi, Kenya", r.Formatted)
	assert.Equal(t, geometry.BBox{West: 36.6647, South: -1.4448, East: 37.1048, North: -1.1606}, r.BBox)

	ring := geometry.RingFromBBox(r.BBox)
	assert.Equal(t, [2]float64{37.1048, -1.1606}, ring[0])
	assert.Equal(t, ring[0], ring[4])
}

func TestBoundingBox_Antimeridian(t *testing.T) {
	srv := newTestServer(t, http.StatusOK, `{"results": [{
		"bounds": {"northeast": {"lat": -12.4, "lng": -178.2}, "southwest": {"lat": -21.0, "lng": 177.0}},
		"formatted": "Fiji"
	}]}`)
	r, err := NewClient("test-key", srv.URL, time.Second).BoundingBox(context.Background(), "Fiji")
	require.NoError(t, err)
	assert.True(t, r.BBox.CrossesAntimeridian())
	assert.Equal(t, [2]float64{-178.2, -12.4}, geometry.RingFromBBox(r.BBox)[0])
}

func TestBoundingBox_Errors(t *testing.T) {
	t.Run("empty place", func(t *testing.T) {
		_, err := NewClient("test-key", "http://unused", time.Second).BoundingBox(context.Background(), "  ")
		var e service.InputInvalidError
		assert.ErrorAs(t, err, &e)
	})
	t.Run("not found", func(t *testing.T) {
		srv := newTestServer(t, http.StatusOK, `{"results": [], "total_results": 0}`)
		_, err := NewClient("test-key", srv.URL, time.Second).BoundingBox(context.Background(), "Atlantis")
		var e service.NotFoundError
		assert.ErrorAs(t, err, &e)
	})
	t.Run("upstream", func(t *testing.T) {
		srv := newTestServer(t, http.StatusPaymentRequired, `{"status": {"code": 402}}`)
		_, err := NewClient("test-key", srv.URL, time.Second).BoundingBox(context.Background(), "Nairobi")
		var e service.UpstreamError
		require.ErrorAs(t, err, &e)
		assert.Equal(t, http.StatusPaymentRequired, e.StatusCode)
	})
	t.Run("missing bounds", func(t *testing.T) {
		srv := newTestServer(t, http.StatusOK, `{"results": [{"formatted": "Somewhere"}]}`)
		_, err := NewClient("test-key", srv.URL, time.Second).BoundingBox(context.Background(), "Somewhere")
		var e service.MalformedResponseError
		assert.ErrorAs(t, err, &e)
	})
	t.Run("inverted latitudes", func(t *testing.T) {
		srv := newTestServer(t, http.StatusOK, `{"results": [{"bounds": {
			"northeast": {"lat": -21.0, "lng": 37.1}, "southwest": {"lat": -1.4, "lng": 36.6}}}]}`)
		_, err := NewClient("test-key", srv.URL, time.Second).BoundingBox(context.Background(), "Nowhere")
		var e service.MalformedResponseError
		assert.ErrorAs(t, err, &e)
	})
	t.Run("invalid json", func(t *testing.T) {
		srv := newTestServer(t, http.StatusOK, `<html>`)
		_, err := NewClient("test-key", srv.URL, time.Second).BoundingBox(context.Background(), "Nairobi")
		var e service.MalformedResponseError
		assert.ErrorAs(t, err, &e)
	})
}
