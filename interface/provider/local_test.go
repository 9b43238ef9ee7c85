package provider

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/airbusgeo/geodata-ingester/service"
)

func TestLocalFetcher(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "2023", "01", "product.zip")
	if err := os.MkdirAll(filepath.Dir(src), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(src, []byte("zip content"), 0644); err != nil {
		t.Fatal(err)
	}
	dst := filepath.Join(t.TempDir(), "product.zip")
	f := NewLocalFetcher(root)

	n, err := f.Fetch(context.Background(), "file://"+filepath.ToSlash(src), dst)
	if err != nil {
		t.Fatal(err)
	}
	if n != 11 {
		t.Errorf("expected 11 bytes, got %d", n)
	}
	if b, _ := os.ReadFile(dst); string(b) != "zip content" {
		t.Errorf("unexpected content %q", b)
	}

	_, err = f.Fetch(context.Background(), "file://"+filepath.ToSlash(filepath.Join(root, "missing.zip")), dst)
	if !service.IsErrNotFound(err) {
		t.Errorf("expected ErrFileNotFound, got %v", err)
	}

	_, err = f.Fetch(context.Background(), "file:///etc/passwd", dst)
	var ierr service.InputInvalidError
	if !errors.As(err, &ierr) {
		t.Errorf("expected InputInvalidError, got %v", err)
	}
}
