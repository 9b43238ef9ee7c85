package provider

import (
	"context"
	"fmt"
	"io"
	neturl "net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/airbusgeo/geodata-ingester/service"
)

// LocalFetcher copies file:///path urls (local or mounted archives)
type LocalFetcher struct {
	root string
}

// NewLocalFetcher creates a fetcher of the files under root (any file if root is empty)
func NewLocalFetcher(root string) *LocalFetcher {
	return &LocalFetcher{root: root}
}

// Name implements Fetcher
func (f *LocalFetcher) Name() string {
	return "FileSystem (" + f.root + ")"
}

func (f *LocalFetcher) path(url string) (string, error) {
	u, err := neturl.Parse(url)
	if err != nil {
		return "", err
	}
	if u.Scheme != "file" || u.Path == "" {
		return "", fmt.Errorf("not a file url: %s", url)
	}
	p := filepath.Clean(filepath.FromSlash(u.Path))
	if f.root != "" {
		root := filepath.Clean(f.root)
		if p != root && !strings.HasPrefix(p, root+string(filepath.Separator)) {
			return "", service.InputInvalidError{Field: "url", Reason: fmt.Sprintf("%s is outside %s", p, root)}
		}
	}
	return p, nil
}

// Fetch implements Fetcher
func (f *LocalFetcher) Fetch(ctx context.Context, url, localFile string) (int64, error) {
	src, err := f.path(url)
	if err != nil {
		return 0, fmt.Errorf("LocalFetcher.%w", err)
	}
	in, err := os.Open(src)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, fmt.Errorf("LocalFetcher: %w", service.ErrFileNotFound{File: src})
		}
		return 0, fmt.Errorf("LocalFetcher: %w", err)
	}
	defer in.Close()
	var size int64
	if st, err := in.Stat(); err == nil {
		size = st.Size()
	}

	out, err := os.Create(localFile)
	if err != nil {
		return 0, fmt.Errorf("LocalFetcher.Create: %w", err)
	}
	defer out.Close()
	n, err := io.Copy(out, io.TeeReader(in, &WriteCounter{Progress: NewProgress(ctx, "File:"+localFile, size, 10)}))
	if err != nil {
		os.Remove(localFile)
		return 0, fmt.Errorf("LocalFetcher.Copy: %w", err)
	}
	return n, nil
}
