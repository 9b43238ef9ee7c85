package service

import (
	"net/http"
	"time"
)

// DefaultHTTPTimeout bounds every outbound call that is not a long download
const DefaultHTTPTimeout = 60 * time.Second

// NewHTTPClient returns a client with the given timeout (DefaultHTTPTimeout if zero)
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultHTTPTimeout
	}
	return &http.Client{Timeout: timeout}
}

// PageQueryParam describes a page to request from a catalogue and the rows to keep from it
type PageQueryParam struct {
	Limit            int
	Page             int
	FirstRowToSelect int
	LastRowToSelect  int
}

// ComputePagesToQuery returns the catalogue pages (of catalogLimit rows) to query in order to
// retrieve the rows of the client page (of clientLimit rows).
// Pages and rows are zero-based.
func ComputePagesToQuery(clientPage, clientLimit, catalogLimit int) []PageQueryParam {
	if clientLimit <= 0 {
		return nil
	}
	if catalogLimit <= 0 {
		catalogLimit = clientLimit
	}
	first := clientPage * clientLimit
	last := first + clientLimit - 1

	var params []PageQueryParam
	for page := first / catalogLimit; page*catalogLimit <= last; page++ {
		start := page * catalogLimit
		params = append(params, PageQueryParam{
			Limit:            catalogLimit,
			Page:             page,
			FirstRowToSelect: max(first-start, 0),
			LastRowToSelect:  min(last-start, catalogLimit-1),
		})
	}
	return params
}

// QueryGetResult returns the rows of the page selected by the queryParams
func QueryGetResult[T any](queryParams *PageQueryParam, hits []T) []T {
	if queryParams.FirstRowToSelect >= len(hits) {
		return hits[:0]
	}
	last := min(queryParams.LastRowToSelect+1, len(hits))
	return hits[queryParams.FirstRowToSelect:last]
}
