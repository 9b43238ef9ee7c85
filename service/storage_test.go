package service

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/mholt/archiver"
)

func createArchive(t *testing.T, dir string) string {
	src := filepath.Join(dir, "src")
	if err := os.MkdirAll(filepath.Join(src, "gadm36_levels_shp"), 0755); err != nil {
		t.Fatal(err)
	}
	os.WriteFile(filepath.Join(src, "gadm36_levels_shp", "gadm36_0.shp"), []byte("shp"), 0644)
	os.WriteFile(filepath.Join(src, "license.txt"), []byte("license"), 0644)

	zip := filepath.Join(dir, "admin_boundaries.zip")
	if err := archiver.NewZip().Archive([]string{
		filepath.Join(src, "gadm36_levels_shp"),
		filepath.Join(src, "license.txt"),
	}, zip); err != nil {
		t.Fatal(err)
	}
	return zip
}

func TestUnarchive(t *testing.T) {
	dir := t.TempDir()
	zip := createArchive(t, dir)
	localDir := filepath.Join(dir, "downloads")

	for i := 0; i < 2; i++ {
		entries, err := Unarchive(zip, localDir)
		if err != nil {
			t.Fatal(err)
		}
		sort.Strings(entries)
		if len(entries) != 2 || entries[0] != "gadm36_levels_shp" || entries[1] != "license.txt" {
			t.Errorf("unexpected entries %v", entries)
		}
		if _, err := os.Stat(filepath.Join(localDir, "gadm36_levels_shp", "gadm36_0.shp")); err != nil {
			t.Error(err)
		}
	}

	// No temporary directory left behind
	files, _ := os.ReadDir(localDir)
	if len(files) != 2 {
		t.Errorf("expected 2 entries in %s, got %d", localDir, len(files))
	}
}

func TestUnarchiveInvalid(t *testing.T) {
	dir := t.TempDir()
	zip := filepath.Join(dir, "broken.zip")
	os.WriteFile(zip, []byte("not a zip"), 0644)
	if _, err := Unarchive(zip, filepath.Join(dir, "out")); err == nil || !Temporary(err) {
		t.Errorf("expected a temporary error, got %v", err)
	}
}

func TestExtensions(t *testing.T) {
	if !IsArchive("N00E036.SRTMGL1.hgt.zip") {
		t.Error("zip must be an archive")
	}
	if IsArchive("daily.json") {
		t.Error("json is not an archive")
	}
	if GetExt("a/b.zip") != ExtensionZIP || GetExt("noext") != NoExtension {
		t.Error("GetExt")
	}
	if ArtifactFileName("1234", ExtensionZIP) != "1234.zip" {
		t.Error("ArtifactFileName")
	}
}

func TestDetectExtension(t *testing.T) {
	dir := t.TempDir()
	zip := createArchive(t, dir)
	tests := map[string]struct {
		content  []byte
		expected Extension
	}{
		"netcdf4": {content: []byte("\x89HDF\r\n\x1a\n\x00\x00\x00\x00"), expected: ExtensionNetCDF},
		"netcdf3": {content: []byte("CDF\x01\x00\x00\x00\x00"), expected: ExtensionNetCDF},
		"geotiff": {content: []byte("II*\x00\x08\x00\x00\x00"), expected: ExtensionGTiff},
		"json":    {content: []byte("  [{\"DATE\": \"2023-01-01\"}]"), expected: ExtensionJSON},
		"unknown": {content: []byte("plain text"), expected: NoExtension},
		"empty":   {content: nil, expected: NoExtension},
	}
	for name, tt := range tests {
		f := filepath.Join(dir, name)
		if err := os.WriteFile(f, tt.content, 0644); err != nil {
			t.Fatal(err)
		}
		if ext, err := DetectExtension(f); err != nil || ext != tt.expected {
			t.Errorf("%s: expected %q, got %q (%v)", name, tt.expected, ext, err)
		}
	}

	// a zip without extension is detected and extracted
	noext := filepath.Join(dir, "value")
	if err := os.Rename(zip, noext); err != nil {
		t.Fatal(err)
	}
	if ext, err := DetectExtension(noext); err != nil || !IsArchiveExtension(ext) {
		t.Errorf("expected an archive, got %q (%v)", ext, err)
	}
	if entries, err := Unarchive(noext, filepath.Join(dir, "out")); err != nil || len(entries) != 2 {
		t.Errorf("unexpected entries %v (%v)", entries, err)
	}
	if _, err := DetectExtension(filepath.Join(dir, "missing")); err == nil {
		t.Error("expected an error")
	}
}

func TestIsErrNotFound(t *testing.T) {
	_, err := os.Open(filepath.Join(t.TempDir(), "missing"))
	if !IsErrNotFound(err) {
		t.Error("missing file must be not found")
	}
	if !IsErrNotFound(ErrFileNotFound{File: "x"}) {
		t.Error("ErrFileNotFound must be not found")
	}
}
