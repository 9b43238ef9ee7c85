// Package downloader downloads and extracts the artifacts of the dataset sources
package downloader

import (
	"context"
	"fmt"
	neturl "net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/airbusgeo/geodata-ingester/interface/provider"
	"github.com/airbusgeo/geodata-ingester/service"
	"github.com/airbusgeo/geodata-ingester/service/log"
	"github.com/airbusgeo/geodata-ingester/service/metrics"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// Downloader fetches artifacts to Dir. Requests are rate-limited per host.
type Downloader struct {
	Dir      string
	Fetcher  provider.Fetcher
	Metrics  *metrics.Metrics
	limiters *hostLimiters
}

type hostLimiters struct {
	rps      rate.Limit
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// New creates a Downloader. requestsPerSecond <= 0 disables the rate limiting.
func New(dir string, fetcher provider.Fetcher, requestsPerSecond float64) (*Downloader, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("downloader.New: %w", err)
	}
	rps := rate.Inf
	if requestsPerSecond > 0 {
		rps = rate.Limit(requestsPerSecond)
	}
	return &Downloader{
		Dir:      dir,
		Fetcher:  fetcher,
		limiters: &hostLimiters{rps: rps, limiters: map[string]*rate.Limiter{}},
	}, nil
}

// WithFetcher returns a Downloader using another fetcher and sharing the rate limiters
func (d *Downloader) WithFetcher(fetcher provider.Fetcher) *Downloader {
	c := *d
	c.Fetcher = fetcher
	return &c
}

func (l *hostLimiters) get(url string) *rate.Limiter {
	host := url
	if u, err := neturl.Parse(url); err == nil {
		host = u.Scheme + "://" + u.Host
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	limiter, ok := l.limiters[host]
	if !ok {
		limiter = rate.NewLimiter(l.rps, 1)
		l.limiters[host] = limiter
	}
	return limiter
}

// Wait for the rate limiter of the host of the url
func (d *Downloader) Wait(ctx context.Context, url string) error {
	if err := d.limiters.get(url).Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	return nil
}

// fetch downloads the first available url. Errors are merged, temporary errors first.
func (d *Downloader) fetch(ctx context.Context, source string, urls []string, localFile string) error {
	var err error
	for _, url := range urls {
		if e := d.Wait(ctx, url); e != nil {
			return service.MergeErrors(true, err, e)
		}
		n, e := d.Fetcher.Fetch(ctx, url, localFile)
		if err = service.MergeErrors(false, err, e); e == nil {
			d.Metrics.Downloaded(source, n)
			return nil
		}
		log.Logger(ctx).Sugar().Warnf("%s: %v", url, e)
	}
	if err == nil {
		err = fmt.Errorf("no url to fetch")
	}
	return err
}

// archiveExt returns the archive extension of the url (".zip" by default)
func archiveExt(url string) string {
	p := url
	if u, err := neturl.Parse(url); err == nil {
		p = u.Path
	}
	for _, ext := range []string{".tar.gz", ".tar.bz2", ".tar.xz", ".tar"} {
		if strings.HasSuffix(strings.ToLower(p), ext) {
			return ext
		}
	}
	if ext := path.Ext(p); service.IsArchive("file" + ext) {
		return ext
	}
	return "." + string(service.ExtensionZIP)
}

// ProductDir returns the directory where the product is extracted
func (d *Downloader) ProductDir(productID string) string {
	return filepath.Join(d.Dir, productID)
}

// productExt returns the extension of the product, given its content or, failing that, its url
func productExt(localFile, url string) (service.Extension, error) {
	ext, err := service.DetectExtension(localFile)
	if err != nil || ext != service.NoExtension {
		return ext, err
	}
	if u, err := neturl.Parse(url); err == nil {
		url = u.Path
	}
	return service.GetExt(path.Base(url)), nil
}

// DownloadProduct downloads the product from the first available url.
// An archive is extracted into <Dir>/<productID>/, any other file is moved to <Dir>/<productID>.<ext>.
// It returns the path of the product.
func (d *Downloader) DownloadProduct(ctx context.Context, source, productID string, urls ...string) (string, error) {
	if productID == "" || strings.ContainsAny(productID, `/\`) || productID == ".." {
		return "", service.InputInvalidError{Field: "product id", Reason: fmt.Sprintf("invalid %q", productID)}
	}
	localFile := filepath.Join(d.Dir, "."+productID+"-"+uuid.New().String())
	defer os.Remove(localFile)

	log.Logger(ctx).Sugar().Infof("downloading %s", productID)
	if err := d.fetch(ctx, source, urls, localFile); err != nil {
		return "", fmt.Errorf("DownloadProduct[%s].%w", productID, err)
	}

	ext, err := productExt(localFile, urls[len(urls)-1])
	if err != nil {
		return "", fmt.Errorf("DownloadProduct[%s].%w", productID, err)
	}
	if service.IsArchiveExtension(ext) {
		productDir := d.ProductDir(productID)
		if _, err := service.Unarchive(localFile, productDir); err != nil {
			return "", fmt.Errorf("DownloadProduct[%s].%w", productID, err)
		}
		return productDir, nil
	}
	productFile := filepath.Join(d.Dir, service.ArtifactFileName(productID, ext))
	if err := os.Rename(localFile, productFile); err != nil {
		return "", service.MakeTemporary(fmt.Errorf("DownloadProduct[%s].Rename: %w", productID, err))
	}
	log.Logger(ctx).Sugar().Debugf("%s is not an archive (%q): kept as %s", productID, ext, productFile)
	return productFile, nil
}

// DownloadArchive downloads the archive from the first available url and extracts it into Dir,
// replacing the entries that already exist. It returns the extracted top-level entries.
func (d *Downloader) DownloadArchive(ctx context.Context, source string, urls ...string) ([]string, error) {
	if len(urls) == 0 {
		return nil, fmt.Errorf("DownloadArchive[%s]: no url", source)
	}
	localArchive := filepath.Join(d.Dir, "."+source+"-"+uuid.New().String()+archiveExt(urls[len(urls)-1]))
	defer os.Remove(localArchive)

	log.Logger(ctx).Sugar().Infof("downloading %s", source)
	if err := d.fetch(ctx, source, urls, localArchive); err != nil {
		return nil, fmt.Errorf("DownloadArchive[%s].%w", source, err)
	}
	entries, err := service.Unarchive(localArchive, d.Dir)
	if err != nil {
		return nil, fmt.Errorf("DownloadArchive[%s].%w", source, err)
	}
	return entries, nil
}
