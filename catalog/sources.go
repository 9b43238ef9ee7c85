package catalog

import (
	"time"

	"github.com/airbusgeo/geodata-ingester/common"
	db "github.com/airbusgeo/geodata-ingester/interface/database"
	icatalog "github.com/airbusgeo/geodata-ingester/interface/catalog"
)

// Identifiers of the built-in sources
const (
	Sentinel2       = "sentinel2"
	Tropomi         = "tropomi"
	DEM             = "dem"
	Landcover       = "landcover"
	AdminBoundaries = "admin_boundaries"
	Weather         = "weather"
)

// AuthKind required by a source
type AuthKind int

const (
	AuthNone AuthKind = iota
	AuthBearer
)

// Source is a dataset source. The variants are ImagerySource, ArchiveSource and JSONSource.
type Source interface {
	ID() string
	Category() common.Category
	Collection() db.Collection
	Auth() AuthKind
	isSource()
}

// ImagerySource is a searchable catalogue of satellite products
type ImagerySource struct {
	Name        string
	Label       string
	Platform    common.Platform
	Filters     []icatalog.Filter
	Start, End  time.Time
	SearchURL   string
	DownloadURL string
	PageSize    int
	MaxProducts int
	// Mirrors are url templates of the products, tried before the catalogue (see common.FormatBrackets)
	Mirrors []string
}

// ArchiveSource is a fixed archive, extracted in the download directory
type ArchiveSource struct {
	Name     string
	Label    string
	Cat      common.Category
	URL      string
	Mirrors  []string
	Artifact string
}

// JSONSource is a fixed endpoint returning an array of records
type JSONSource struct {
	Name  string
	Label string
	Cat   common.Category
	URL   string
	Coll  db.Collection
}

func (s ImagerySource) ID() string                { return s.Name }
func (s ImagerySource) Category() common.Category { return common.CategorySatelliteImagery }
func (s ImagerySource) Collection() db.Collection { return db.SatelliteImagery }
func (s ImagerySource) Auth() AuthKind            { return AuthBearer }
func (ImagerySource) isSource()                   {}

// Query returns the catalogue query of the source on the aoi
func (s ImagerySource) Query(aoi icatalog.Query) icatalog.Query {
	aoi.Filters = append(append([]icatalog.Filter{}, s.Filters...), aoi.Filters...)
	if aoi.Start.IsZero() {
		aoi.Start = s.Start
	}
	if aoi.End.IsZero() {
		aoi.End = s.End
	}
	return aoi
}

func (s ArchiveSource) ID() string                { return s.Name }
func (s ArchiveSource) Category() common.Category { return s.Cat }
func (s ArchiveSource) Collection() db.Collection { return db.GeospatialData }
func (s ArchiveSource) Auth() AuthKind            { return AuthNone }
func (ArchiveSource) isSource()                   {}

func (s JSONSource) ID() string                { return s.Name }
func (s JSONSource) Category() common.Category { return s.Cat }
func (s JSONSource) Collection() db.Collection { return s.Coll }
func (s JSONSource) Auth() AuthKind            { return AuthNone }
func (JSONSource) isSource()                   {}

// Default endpoints
const (
	DefaultSearchURL          = "https://apihub.copernicus.eu/dhus/search"
	DefaultDownloadURL        = "https://apihub.copernicus.eu/dhus/odata/v1"
	DefaultDEMURL             = "https://e4ftl01.cr.usgs.gov/SRTM/SRTMGL1.003/2000.02.11/N00E036.SRTMGL1.hgt.zip"
	DefaultLandcoverURL       = "https://maps.elie.ucl.ac.be/CCI/viewer/download/ESACCI-LC-L4-LCCS-Map-300m-P1Y-2019-v2.1.1.tif.zip"
	DefaultAdminBoundariesURL = "https://biogeo.ucdavis.edu/data/gadm3.6/gadm36_shp.zip"
	DefaultWeatherURL         = "https://www.ncei.noaa.gov/access/services/data/v1?dataset=daily-summaries&stations=GHCND:USW00094728&startDate=2023-01-01&endDate=2023-12-31&format=json"
	DefaultPageSize           = 5
	DefaultMaxProducts        = 5
)

// Sensing period of the imagery sources
var (
	DefaultStart = time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	DefaultEnd   = time.Date(2023, 12, 31, 23, 59, 59, 999000000, time.UTC)
)

// Options overrides the endpoints of the built-in sources. Empty fields take the defaults.
type Options struct {
	SearchURL          string
	DownloadURL        string
	DEMURL             string
	LandcoverURL       string
	AdminBoundariesURL string
	WeatherURL         string
	PageSize           int
	MaxProducts        int
	// Mirrors of the sources, by source id (gs://, s3://, ftp://, http(s)://)
	Mirrors map[string][]string
}

func orDefault[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}

// DefaultSources returns the built-in sources in their canonical order
func DefaultSources(opts Options) []Source {
	searchURL := orDefault(opts.SearchURL, DefaultSearchURL)
	downloadURL := orDefault(opts.DownloadURL, DefaultDownloadURL)
	pageSize := orDefault(opts.PageSize, DefaultPageSize)
	maxProducts := orDefault(opts.MaxProducts, DefaultMaxProducts)
	return []Source{
		ImagerySource{
			Name:     Sentinel2,
			Label:    "Sentinel-2",
			Platform: common.Sentinel2,
			Filters: []icatalog.Filter{
				{Key: "platformname", Value: "Sentinel-2"},
				{Key: "processinglevel", Value: "Level-2A"},
				{Key: "cloudcoverpercentage", Value: "[0 TO 30]"},
			},
			Start: DefaultStart, End: DefaultEnd,
			SearchURL: searchURL, DownloadURL: downloadURL,
			PageSize: pageSize, MaxProducts: maxProducts,
			Mirrors: opts.Mirrors[Sentinel2],
		},
		ImagerySource{
			Name:     Tropomi,
			Label:    "TROPOMI",
			Platform: common.Sentinel5P,
			Filters: []icatalog.Filter{
				{Key: "platformname", Value: "Sentinel-5P"},
				{Key: "producttype", Value: "L2__CH4___"},
			},
			Start: DefaultStart, End: DefaultEnd,
			SearchURL: searchURL, DownloadURL: downloadURL,
			PageSize: pageSize, MaxProducts: maxProducts,
			Mirrors: opts.Mirrors[Tropomi],
		},
		ArchiveSource{
			Name:     DEM,
			Label:    "SRTM DEM",
			Cat:      common.CategoryRaster,
			URL:      orDefault(opts.DEMURL, DefaultDEMURL),
			Mirrors:  opts.Mirrors[DEM],
			Artifact: "N00E036.SRTMGL1.hgt",
		},
		ArchiveSource{
			Name:     Landcover,
			Label:    "ESA Land Cover",
			Cat:      common.CategoryRaster,
			URL:      orDefault(opts.LandcoverURL, DefaultLandcoverURL),
			Mirrors:  opts.Mirrors[Landcover],
			Artifact: "landcover_data",
		},
		ArchiveSource{
			Name:     AdminBoundaries,
			Label:    "GADM",
			Cat:      common.CategoryVector,
			URL:      orDefault(opts.AdminBoundariesURL, DefaultAdminBoundariesURL),
			Mirrors:  opts.Mirrors[AdminBoundaries],
			Artifact: "gadm36_levels_shp",
		},
		JSONSource{
			Name:  Weather,
			Label: "NOAA NCEI daily summaries",
			Cat:   common.CategoryWeather,
			URL:   orDefault(opts.WeatherURL, DefaultWeatherURL),
			Coll:  db.WeatherData,
		},
	}
}
