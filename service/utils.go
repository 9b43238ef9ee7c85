package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	neturl "net/url"
	"time"
)

// RetryBackoffUnit is the base delay of GetBodyRetry
var RetryBackoffUnit = time.Second

// GetBodyRetry: simple GET with N retries in case of temporary errors
func GetBodyRetry(ctx context.Context, client *http.Client, url string, nbRetries int) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("NewRequest: %w", err)
	}
	return GetBodyRetryReq(client, req, nbRetries)
}

// GetBodyRetryReq: simple GET with N retries in case of temporary errors
// Non-200 statuses are returned as UpstreamError. 4xx are not retried.
func GetBodyRetryReq(client *http.Client, req *http.Request, nbRetries int) ([]byte, error) {
	var e *neturl.Error
	var body []byte
	var err error
	var resp *http.Response

	if client == nil {
		client = NewHTTPClient(0)
	}
	for i := range nbRetries + 1 {
		// Exponential backoff, starting at 0
		select {
		case <-req.Context().Done():
			return nil, MergeErrors(true, req.Context().Err(), err)
		case <-time.After(time.Duration((1<<i)-1) * RetryBackoffUnit):
		}
		resp, err = client.Do(req)
		if err != nil {
			if !errors.As(err, &e) || !Temporary(e) {
				return nil, err
			}
			continue
		}
		body, err = io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			continue
		}
		if resp.StatusCode != 200 {
			err = UpstreamError{Service: req.URL.Host, StatusCode: resp.StatusCode, Body: string(body)}
			if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != 408 && resp.StatusCode != 429 {
				return nil, err
			}
			continue
		}
		return body, nil
	}
	return nil, err
}
