package provider

import (
	"context"
	"fmt"
	neturl "net/url"
	"strings"

	"github.com/airbusgeo/geodata-ingester/service"
)

// Fetcher is the interface of an artifact download service
type Fetcher interface {
	// Fetch downloads url to localFile and returns the number of bytes written
	Fetch(ctx context.Context, url, localFile string) (int64, error)

	// Name of the fetcher
	Name() string
}

// Fetchers dispatches the url to the fetcher of its scheme
type Fetchers struct {
	HTTP  Fetcher
	FTP   Fetcher
	GS    Fetcher
	S3    Fetcher
	Local Fetcher
}

// Name implements Fetcher
func (f *Fetchers) Name() string {
	return "Fetchers"
}

// For returns the fetcher supporting the scheme of the url
func (f *Fetchers) For(url string) (Fetcher, error) {
	u, err := neturl.Parse(url)
	if err != nil {
		return nil, service.InputInvalidError{Field: "url", Reason: err.Error()}
	}
	var fetcher Fetcher
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		fetcher = f.HTTP
	case "ftp", "ftps":
		fetcher = f.FTP
	case "gs":
		fetcher = f.GS
	case "s3":
		fetcher = f.S3
	case "file":
		fetcher = f.Local
	}
	if fetcher == nil {
		return nil, service.InputInvalidError{Field: "url", Reason: fmt.Sprintf("scheme not supported: %s", url)}
	}
	return fetcher, nil
}

// Fetch implements Fetcher
func (f *Fetchers) Fetch(ctx context.Context, url, localFile string) (int64, error) {
	fetcher, err := f.For(url)
	if err != nil {
		return 0, err
	}
	return fetcher.Fetch(ctx, url, localFile)
}
