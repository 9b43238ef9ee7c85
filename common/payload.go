package common

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Category of a dataset source
type Category string

const (
	CategorySatelliteImagery Category = "satellite-imagery"
	CategoryRaster           Category = "raster"
	CategoryVector           Category = "vector"
	CategoryWeather          Category = "weather"
)

// Metadata keys of the provenance records
const (
	MetadataPlatform     = "platform"
	MetadataProductType  = "productType"
	MetadataProductLevel = "productLevel"
	MetadataSensingDate  = "sensingDate"
	MetadataCloudCover   = "cloudCoverPercentage"
	MetadataOrbit        = "orbit"
	MetadataTile         = "tile"
	MetadataSize         = "size"
	MetadataDownloadURL  = "downloadURL"
	MetadataLabel        = "label"
	MetadataAOI          = "aoi"
	MetadataEntries      = "entries"
)

// Document is a schema-less record, stored as is by the provenance store
type Document map[string]interface{}

// Value implements the driver.Value interface
func (d Document) Value() (driver.Value, error) {
	return json.Marshal(d)
}

// Scan implements the sql.Scanner interface.
func (d *Document) Scan(value interface{}) error {
	if value == nil {
		*d = Document{}
		return nil
	}
	b, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	return json.Unmarshal(b, d)
}

// Product is an item returned by a catalogue search
type Product struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	DownloadURL string            `json:"download_url"`
	Date        time.Time         `json:"date"`
	Attributes  map[string]string `json:"attributes,omitempty"`
	State       ProductState      `json:"state"`
}

// ProvenanceRecord describes a downloaded artifact
// ProductID is empty for source-level artifacts (static archives)
type ProvenanceRecord struct {
	Source     string            `json:"source"`
	ProductID  string            `json:"product_id,omitempty"`
	Title      string            `json:"title"`
	FilePath   string            `json:"file_path"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	RecordedAt time.Time         `json:"recorded_at"`
}

// Document returns the record as a Document
func (r ProvenanceRecord) Document() Document {
	d := Document{
		"source":      r.Source,
		"title":       r.Title,
		"file_path":   r.FilePath,
		"recorded_at": r.RecordedAt.UTC().Format(time.RFC3339),
	}
	if r.ProductID != "" {
		d["product_id"] = r.ProductID
	}
	if len(r.Metadata) > 0 {
		metadata := make(map[string]interface{}, len(r.Metadata))
		for k, v := range r.Metadata {
			metadata[k] = v
		}
		d["metadata"] = metadata
	}
	return d
}

// Summary is the result of the fetch of one source
// It is safe for concurrent use by the workers of the fetch
type Summary struct {
	Source   string            `json:"source"`
	Found    int               `json:"found"`
	Recorded int               `json:"recorded"`
	Skipped  int               `json:"skipped"`
	Failed   int               `json:"failed"`
	Errors   map[string]string `json:"errors,omitempty"`

	mu       sync.Mutex
	firstErr error
}

// NewSummary creates an empty summary for the source
func NewSummary(source string) *Summary {
	return &Summary{Source: source}
}

// Add accounts for the terminal state of a product
func (s *Summary) Add(productID string, state ProductState, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch state {
	case ProductStateRecorded:
		s.Recorded++
	case ProductStateSkipped:
		s.Skipped++
	case ProductStateFailed:
		s.Failed++
		if s.Errors == nil {
			s.Errors = map[string]string{}
		}
		if err == nil {
			err = fmt.Errorf("unknown error")
		}
		s.Errors[productID] = err.Error()
		if s.firstErr == nil {
			s.firstErr = err
		}
	}
}

// PartialFailure returns true if at least one product failed
func (s *Summary) PartialFailure() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Failed > 0
}

// FirstError returns the error of the first failed product
func (s *Summary) FirstError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.firstErr
}

// FailedProducts returns the sorted ids of the failed products
func (s *Summary) FailedProducts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.Errors))
	for id := range s.Errors {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
