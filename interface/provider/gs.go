package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"sync"

	"cloud.google.com/go/storage"
	"github.com/airbusgeo/geodata-ingester/service"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GSFetcher downloads gs://bucket/object urls from Google Storage
// The object may contain wildcards (* and ?): the first matching object is downloaded.
type GSFetcher struct {
	anonymous bool
	once      sync.Once
	client    *storage.Client
	err       error
}

// NewGSFetcher creates a fetcher. The client is created on first use
// anonymous is for public buckets
func NewGSFetcher(anonymous bool) *GSFetcher {
	return &GSFetcher{anonymous: anonymous}
}

// Name implements Fetcher
func (f *GSFetcher) Name() string {
	return "GoogleStorage"
}

func (f *GSFetcher) storageClient(ctx context.Context) (*storage.Client, error) {
	f.once.Do(func() {
		var opts []option.ClientOption
		if f.anonymous {
			opts = append(opts, option.WithoutAuthentication())
		}
		f.client, f.err = storage.NewClient(context.WithoutCancel(ctx), opts...)
	})
	return f.client, f.err
}

// parseGS returns the bucket and the object of a gs:// url
func parseGS(url string) (string, string, error) {
	if !strings.HasPrefix(url, "gs://") {
		return "", "", fmt.Errorf("not a gs url: %s", url)
	}
	splits := strings.SplitN(strings.TrimPrefix(url, "gs://"), "/", 2)
	if len(splits) != 2 || splits[0] == "" || splits[1] == "" {
		return "", "", fmt.Errorf("missing bucket or object: %s", url)
	}
	return splits[0], splits[1], nil
}

// findBlob returns the first object that matches the pattern
func (f *GSFetcher) findBlob(ctx context.Context, client *storage.Client, bucket, blob string) (string, error) {
	// Create a regexp from blob, replacing "*" by ".*" and "?" by "."
	blobRe := strings.ReplaceAll(strings.ReplaceAll(regexp.QuoteMeta(blob), "\\*", ".*"), "\\?", ".")
	re, err := regexp.Compile(blobRe)
	if err != nil {
		return "", fmt.Errorf("compile[%s]: %w", blobRe, err)
	}
	// Extract the prefix
	prefix := blob
	if i := strings.IndexAny(prefix, "*?"); i != -1 {
		prefix = prefix[:i]
	}
	// Find all the blobs that match the prefix
	q := &storage.Query{Prefix: prefix}
	q.SetAttrSelection([]string{"Name"})
	it := client.Bucket(bucket).Objects(ctx, q)
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return "", fmt.Errorf("list[%s/%s*]: %w", bucket, prefix, err)
		}
		if idx := re.FindStringIndex(attrs.Name); idx != nil && idx[0] == 0 && idx[1] == len(attrs.Name) {
			return attrs.Name, nil
		}
	}
	return "", service.ErrFileNotFound{File: "gs://" + bucket + "/" + blob}
}

// Fetch implements Fetcher
func (f *GSFetcher) Fetch(ctx context.Context, url, localFile string) (int64, error) {
	bucket, object, err := parseGS(url)
	if err != nil {
		return 0, fmt.Errorf("GSFetcher: %w", err)
	}
	client, err := f.storageClient(ctx)
	if err != nil {
		return 0, fmt.Errorf("GSFetcher.NewClient: %w", err)
	}
	if strings.ContainsAny(object, "*?") {
		if object, err = f.findBlob(ctx, client, bucket, object); err != nil {
			return 0, fmt.Errorf("GSFetcher.%w", err)
		}
	}

	r, err := client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return 0, fmt.Errorf("GSFetcher: %w", service.ErrFileNotFound{File: url})
		}
		return 0, fmt.Errorf("GSFetcher.NewReader: %w", err)
	}
	defer r.Close()

	destFile, err := os.Create(localFile)
	if err != nil {
		return 0, fmt.Errorf("GSFetcher.Create: %w", err)
	}
	defer destFile.Close()

	n, err := io.Copy(destFile, io.TeeReader(r, &WriteCounter{Progress: NewProgress(ctx, "GS:"+localFile, r.Attrs.Size, 5)}))
	if err != nil {
		os.Remove(localFile)
		return 0, service.MakeTemporary(fmt.Errorf("GSFetcher.Copy: %w", err))
	}
	return n, nil
}
