// Package opencage implements the forward geocoding on the OpenCage API
package opencage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/airbusgeo/geodata-ingester/interface/geocoder"
	"github.com/airbusgeo/geodata-ingester/service"
	"github.com/airbusgeo/geodata-ingester/service/geometry"
	"github.com/airbusgeo/geodata-ingester/service/log"
)

// DefaultURL of the OpenCage API
const DefaultURL = "https://api.opencagedata.com/geocode/v1"

const serviceName = "opencage"

// Client implements geocoder.Geocoder using the OpenCage API
type Client struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
}

// NewClient creates an OpenCage geocoding client
func NewClient(apiKey, baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	return &Client{
		apiKey:     apiKey,
		httpClient: service.NewHTTPClient(timeout),
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// BoundingBox implements geocoder.Geocoder
func (c *Client) BoundingBox(ctx context.Context, place string) (geocoder.Result, error) {
	place = strings.TrimSpace(place)
	if place == "" {
		return geocoder.Result{}, service.InputInvalidError{Field: "place", Reason: "empty place name"}
	}
	if c.apiKey == "" {
		return geocoder.Result{}, service.InputInvalidError{Field: "opencage_api_key", Reason: "missing api key"}
	}

	params := url.Values{
		"q":              {place},
		"key":            {c.apiKey},
		"limit":          {"1"},
		"no_annotations": {"1"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/json?"+params.Encode(), nil)
	if err != nil {
		return geocoder.Result{}, fmt.Errorf("OpenCage.NewRequest: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return geocoder.Result{}, fmt.Errorf("OpenCage.Do: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return geocoder.Result{}, fmt.Errorf("OpenCage.ReadAll: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return geocoder.Result{}, service.UpstreamError{Service: serviceName, StatusCode: resp.StatusCode, Body: string(body)}
	}

	var ocResp response
	if err := json.Unmarshal(body, &ocResp); err != nil {
		return geocoder.Result{}, service.MalformedResponseError{Service: serviceName, Reason: err.Error()}
	}
	if ocResp.Results == nil {
		return geocoder.Result{}, service.MalformedResponseError{Service: serviceName, Reason: "missing results"}
	}
	if len(ocResp.Results) == 0 {
		return geocoder.Result{}, service.NotFoundError{Type: "place", ID: place}
	}

	r := ocResp.Results[0]
	if r.Bounds == nil || r.Bounds.Northeast == nil || r.Bounds.Southwest == nil {
		return geocoder.Result{}, service.MalformedResponseError{Service: serviceName, Reason: "missing bounds"}
	}
	bbox := geometry.BBox{
		West:  r.Bounds.Southwest.Lng,
		South: r.Bounds.Southwest.Lat,
		East:  r.Bounds.Northeast.Lng,
		North: r.Bounds.Northeast.Lat,
	}
	if err := bbox.Validate(); err != nil {
		return geocoder.Result{}, service.MalformedResponseError{Service: serviceName, Reason: err.Error()}
	}
	if bbox.CrossesAntimeridian() {
		log.Logger(ctx).Sugar().Warnf("[OpenCage] %s crosses the antimeridian %+v", place, bbox)
	}
	log.Logger(ctx).Sugar().Debugf("[OpenCage] %s resolved to %s %+v", place, r.Formatted, bbox)
	return geocoder.Result{Formatted: r.Formatted, BBox: bbox}, nil
}

// OpenCage API response types.

type response struct {
	Results []result `json:"results"`
}

type latLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type result struct {
	Formatted string `json:"formatted"`
	Bounds    *struct {
		Northeast *latLng `json:"northeast"`
		Southwest *latLng `json:"southwest"`
	} `json:"bounds"`
}
