package common

//go:generate go run github.com/dmarkham/enumer -json -type ProductState -trimprefix ProductState
//go:generate go run github.com/dmarkham/enumer -json -type FetchState -trimprefix FetchState

// ProductState is the lifecycle of a product during a fetch
// Discovered -> Downloaded -> Recorded, or Skipped/Failed
type ProductState int

const (
	ProductStateDiscovered ProductState = iota
	ProductStateDownloaded
	ProductStateRecorded
	ProductStateSkipped
	ProductStateFailed
)

// Terminal returns true if the product will not change anymore
func (s ProductState) Terminal() bool {
	switch s {
	case ProductStateRecorded, ProductStateSkipped, ProductStateFailed:
		return true
	}
	return false
}

// FetchState is the lifecycle of a fetch of one source
type FetchState int

const (
	FetchStateQueryBuilt FetchState = iota
	FetchStateSearching
	FetchStateProductsFound
	FetchStateNoProducts
	FetchStateDownloading
	FetchStateRecorded
	FetchStateDone
	FetchStateFailed
)
