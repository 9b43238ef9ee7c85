package provider

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cavaliercoder/grab"
)

// HTTPFetcher downloads http(s) urls with grab
type HTTPFetcher struct {
	client *grab.Client
}

// NewHTTPFetcher creates a fetcher using the http client (that may handle authentication).
// The Authorization header is kept on redirections.
func NewHTTPFetcher(httpClient *http.Client) *HTTPFetcher {
	client := grab.NewClient()
	if httpClient != nil {
		c := *httpClient
		client.HTTPClient = &c
	}
	client.HTTPClient.CheckRedirect = checkRedirectAndCopyAuth
	client.UserAgent = "geodata-ingester"
	return &HTTPFetcher{client: client}
}

// Name implements Fetcher
func (f *HTTPFetcher) Name() string {
	return "HTTP"
}

// Fetch implements Fetcher, with a display of the progress every 5%
func (f *HTTPFetcher) Fetch(ctx context.Context, url, localFile string) (int64, error) {
	req, err := grab.NewRequest(localFile, url)
	if err != nil {
		return 0, fmt.Errorf("HTTPFetcher.NewRequest: %w", err)
	}
	req = req.WithContext(ctx)
	req.NoResume = true

	resp := f.client.Do(req)
	displayProgress(ctx, "HTTP:"+localFile, resp, 0.05)

	if err := resp.Err(); err != nil {
		return 0, fmt.Errorf("HTTPFetcher[%s]: %w", url, statusError(err, resp.HTTPResponse))
	}
	return resp.BytesComplete(), nil
}
