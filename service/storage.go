package service

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	gstorage "cloud.google.com/go/storage"
	"github.com/google/uuid"
	"github.com/mholt/archiver"
)

// Extension of a downloaded artifact
type Extension string

// Some supported extensions
const (
	NoExtension     Extension = ""
	ExtensionGTiff  Extension = "tif"
	ExtensionZIP    Extension = "zip"
	ExtensionTAR    Extension = "tar"
	ExtensionRAR    Extension = "rar"
	ExtensionJSON   Extension = "json"
	ExtensionNetCDF Extension = "nc"
)

// ErrFileNotFound is returned when a local or remote artifact does not exist
type ErrFileNotFound struct {
	File string
}

func (e ErrFileNotFound) Error() string {
	return fmt.Sprintf("File not found: %s", e.File)
}

// IsErrNotFound returns true if the error reports a missing file or object
func IsErrNotFound(err error) bool {
	var epath *os.PathError
	var efile ErrFileNotFound
	return errors.Is(err, gstorage.ErrObjectNotExist) ||
		(errors.As(err, &epath) && os.IsNotExist(epath)) ||
		errors.As(err, &efile)
}

// ArtifactFileName returns the name of the file given its identifier and extension
func ArtifactFileName(id string, ext Extension) string {
	if ext == NoExtension {
		return id
	}
	return id + "." + string(ext)
}

// IsArchive returns true if the file can be extracted
func IsArchive(filePath string) bool {
	_, err := archiver.ByExtension(filePath)
	return err == nil
}

// Unarchive extracts the archive into localDir, replacing the entries that already exist
// and returns the top-level entries. All errors are temporary.
func Unarchive(archive, localDir string) ([]string, error) {
	if err := os.MkdirAll(localDir, 0755); err != nil {
		return nil, MakeTemporary(fmt.Errorf("Unarchive.MkdirAll: %w", err))
	}
	tmpdir := filepath.Join(localDir, "."+uuid.New().String())
	if err := os.Mkdir(tmpdir, 0755); err != nil {
		return nil, MakeTemporary(fmt.Errorf("Unarchive.Mkdir: %w", err))
	}
	defer os.RemoveAll(tmpdir)

	u, err := unarchiverOf(archive)
	if err != nil {
		return nil, fmt.Errorf("Unarchive: %w", err)
	}
	if err := u.Unarchive(archive, tmpdir); err != nil {
		return nil, MakeTemporary(fmt.Errorf("Unarchive.%s: %w", u, err))
	}

	files, err := os.ReadDir(tmpdir)
	if err != nil {
		return nil, MakeTemporary(fmt.Errorf("Unarchive.ReadDir: %w", err))
	}
	if len(files) == 0 {
		return nil, MakeTemporary(fmt.Errorf("Unarchive: empty archive %s", archive))
	}
	entries := make([]string, 0, len(files))
	for _, f := range files {
		dst := filepath.Join(localDir, f.Name())
		if err := os.RemoveAll(dst); err != nil {
			return nil, MakeTemporary(fmt.Errorf("Unarchive.RemoveAll: %w", err))
		}
		if err := os.Rename(filepath.Join(tmpdir, f.Name()), dst); err != nil {
			return nil, MakeTemporary(fmt.Errorf("Unarchive.Rename: %w", err))
		}
		entries = append(entries, f.Name())
	}
	return entries, nil
}

// unarchiverOf returns the unarchiver of the file, given its extension or, failing that, its header
func unarchiverOf(archive string) (archiver.Unarchiver, error) {
	if strings.EqualFold(string(GetExt(archive)), string(ExtensionZIP)) {
		return &archiver.Zip{OverwriteExisting: true, MkdirAll: true}, nil
	}
	if u, err := archiver.ByExtension(archive); err == nil {
		if ua, ok := u.(archiver.Unarchiver); ok {
			return ua, nil
		}
	}
	f, err := os.Open(archive)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return archiver.ByHeader(f)
}

// DetectExtension returns the extension matching the content of the file (NoExtension if unknown)
func DetectExtension(filePath string) (Extension, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return NoExtension, fmt.Errorf("DetectExtension: %w", err)
	}
	defer f.Close()
	if u, err := archiver.ByHeader(f); err == nil {
		switch u.(type) {
		case *archiver.Zip:
			return ExtensionZIP, nil
		case *archiver.Tar:
			return ExtensionTAR, nil
		case *archiver.Rar:
			return ExtensionRAR, nil
		}
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return NoExtension, fmt.Errorf("DetectExtension.Seek: %w", err)
	}
	hdr := make([]byte, 8)
	n, _ := io.ReadFull(f, hdr)
	hdr = bytes.TrimLeft(hdr[:n], " \t\r\n")
	switch {
	// HDF5 (NetCDF-4) and classic NetCDF
	case bytes.HasPrefix(hdr, []byte("\x89HDF\r\n\x1a\n")), bytes.HasPrefix(hdr, []byte("CDF")):
		return ExtensionNetCDF, nil
	case bytes.HasPrefix(hdr, []byte("II*\x00")), bytes.HasPrefix(hdr, []byte("MM\x00*")):
		return ExtensionGTiff, nil
	case bytes.HasPrefix(hdr, []byte("{")), bytes.HasPrefix(hdr, []byte("[")):
		return ExtensionJSON, nil
	}
	return NoExtension, nil
}

// IsArchiveExtension returns true if files with this extension are extracted
func IsArchiveExtension(ext Extension) bool {
	return ext == ExtensionZIP || ext == ExtensionTAR || ext == ExtensionRAR
}

// GetExt returns the extension of the file (without the dot)
func GetExt(filePath string) Extension {
	ext := path.Ext(filePath)
	if ext == "" {
		return NoExtension
	}
	return Extension(ext[1:])
}
