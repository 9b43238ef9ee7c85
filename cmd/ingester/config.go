package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/airbusgeo/geodata-ingester/catalog"
	"github.com/airbusgeo/geodata-ingester/interface/auth"
	"github.com/airbusgeo/geodata-ingester/interface/catalog/dhus"
	"github.com/airbusgeo/geodata-ingester/interface/geocoder/opencage"
	"github.com/airbusgeo/geodata-ingester/service"
	"github.com/airbusgeo/geodata-ingester/workflow"
	"github.com/spf13/viper"
)

const defaultTokenURL = "https://apihub.copernicus.eu/dhus/oauth/token"

type config struct {
	LogLevel string
	Port     string

	// APIKey protects the http server (optional)
	APIKey string

	StoreURI    string
	Database    string
	DownloadDir string
	GeoJSONDir  string
	Workers     int

	HTTPTimeout     time.Duration
	DownloadTimeout time.Duration

	OpencageAPIKey  string
	OpencageURL     string
	GeocodeCacheTTL time.Duration

	CopernicusClientID     string
	CopernicusClientSecret string
	CopernicusTokenURL     string
	TokenAttempts          int
	TokenBackoff           time.Duration
	TokenMaxBackoff        time.Duration

	DHuSSearchURL      string
	DHuSDownloadURL    string
	PageSize           int
	MaxProducts        int
	RequestsPerSecond  float64
	DEMURL             string
	LandcoverURL       string
	AdminBoundariesURL string
	WeatherURL         string
	Mirrors            map[string][]string

	FTPUser, FTPPassword string
	LocalRoot            string
	GCSAnonymous         bool
	AWSRegion            string
	AWSAccessKeyID       string
	AWSSecretAccessKey   string
	AWSRequesterPays     bool
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("port", "8080")
	v.SetDefault("store_uri", "mongodb://localhost:27017/")
	v.SetDefault("database", "geospatial_data")
	v.SetDefault("download_dir", "downloads")
	v.SetDefault("geojson_dir", "geojson_files")
	v.SetDefault("workers", workflow.DefaultWorkers)
	v.SetDefault("http_timeout", service.DefaultHTTPTimeout)
	v.SetDefault("download_timeout", time.Hour)
	v.SetDefault("opencage_url", opencage.DefaultURL)
	v.SetDefault("geocode_cache_ttl", 24*time.Hour)
	v.SetDefault("copernicus_token_url", defaultTokenURL)
	v.SetDefault("token_attempts", auth.DefaultAttempts)
	v.SetDefault("token_backoff", auth.DefaultBackoff)
	v.SetDefault("token_max_backoff", auth.DefaultMaxBackoff)
	v.SetDefault("dhus_search_url", dhus.DefaultSearchURL)
	v.SetDefault("dhus_download_url", dhus.DefaultDownloadURL)
	v.SetDefault("page_size", catalog.DefaultPageSize)
	v.SetDefault("max_products", catalog.DefaultMaxProducts)
	v.SetDefault("requests_per_second", 2.0)
	v.SetDefault("dem_url", catalog.DefaultDEMURL)
	v.SetDefault("landcover_url", catalog.DefaultLandcoverURL)
	v.SetDefault("admin_boundaries_url", catalog.DefaultAdminBoundariesURL)
	v.SetDefault("weather_url", catalog.DefaultWeatherURL)
	v.SetDefault("gcs_anonymous", true)
	v.SetDefault("aws_region", "eu-central-1")
}

// loadConfig reads the configuration from v (flags, INGESTER_* env, config file, defaults)
func loadConfig(v *viper.Viper) (*config, error) {
	mirrors := map[string][]string{}
	for source, urls := range v.GetStringMapStringSlice("mirrors") {
		mirrors[strings.ToLower(source)] = urls
	}
	c := &config{
		LogLevel:               v.GetString("log_level"),
		Port:                   v.GetString("port"),
		APIKey:                 v.GetString("api_key"),
		StoreURI:               v.GetString("store_uri"),
		Database:               v.GetString("database"),
		DownloadDir:            v.GetString("download_dir"),
		GeoJSONDir:             v.GetString("geojson_dir"),
		Workers:                v.GetInt("workers"),
		HTTPTimeout:            v.GetDuration("http_timeout"),
		DownloadTimeout:        v.GetDuration("download_timeout"),
		OpencageAPIKey:         v.GetString("opencage_api_key"),
		OpencageURL:            v.GetString("opencage_url"),
		GeocodeCacheTTL:        v.GetDuration("geocode_cache_ttl"),
		CopernicusClientID:     v.GetString("copernicus_client_id"),
		CopernicusClientSecret: v.GetString("copernicus_client_secret"),
		CopernicusTokenURL:     v.GetString("copernicus_token_url"),
		TokenAttempts:          v.GetInt("token_attempts"),
		TokenBackoff:           v.GetDuration("token_backoff"),
		TokenMaxBackoff:        v.GetDuration("token_max_backoff"),
		DHuSSearchURL:          v.GetString("dhus_search_url"),
		DHuSDownloadURL:        v.GetString("dhus_download_url"),
		PageSize:               v.GetInt("page_size"),
		MaxProducts:            v.GetInt("max_products"),
		RequestsPerSecond:      v.GetFloat64("requests_per_second"),
		DEMURL:                 v.GetString("dem_url"),
		LandcoverURL:           v.GetString("landcover_url"),
		AdminBoundariesURL:     v.GetString("admin_boundaries_url"),
		WeatherURL:             v.GetString("weather_url"),
		Mirrors:                mirrors,
		FTPUser:                v.GetString("ftp_user"),
		FTPPassword:            v.GetString("ftp_password"),
		LocalRoot:              v.GetString("local_root"),
		GCSAnonymous:           v.GetBool("gcs_anonymous"),
		AWSRegion:              v.GetString("aws_region"),
		AWSAccessKeyID:         v.GetString("aws_access_key_id"),
		AWSSecretAccessKey:     v.GetString("aws_secret_access_key"),
		AWSRequesterPays:       v.GetBool("aws_requester_pays"),
	}
	return c, c.Validate()
}

// Validate checks the configuration required by every command.
// Credentials are checked by the operations that need them.
func (c *config) Validate() error {
	switch {
	case c.StoreURI == "":
		return fmt.Errorf("missing store_uri")
	case c.DownloadDir == "":
		return fmt.Errorf("missing download_dir")
	case c.GeoJSONDir == "":
		return fmt.Errorf("missing geojson_dir")
	case c.Workers <= 0:
		return fmt.Errorf("workers must be positive (%d)", c.Workers)
	case c.PageSize <= 0 || c.MaxProducts <= 0:
		return fmt.Errorf("page_size and max_products must be positive")
	case c.TokenAttempts <= 0:
		return fmt.Errorf("token_attempts must be positive")
	case c.GeocodeCacheTTL < 0:
		return fmt.Errorf("geocode_cache_ttl must not be negative (0 disables the cache)")
	}
	return nil
}

func (c *config) authConfig() auth.Config {
	return auth.Config{
		Name:         "copernicus",
		TokenURL:     c.CopernicusTokenURL,
		ClientID:     c.CopernicusClientID,
		ClientSecret: c.CopernicusClientSecret,
	}
}

func (c *config) catalogOptions() catalog.Options {
	return catalog.Options{
		SearchURL:          c.DHuSSearchURL,
		DownloadURL:        c.DHuSDownloadURL,
		DEMURL:             c.DEMURL,
		LandcoverURL:       c.LandcoverURL,
		AdminBoundariesURL: c.AdminBoundariesURL,
		WeatherURL:         c.WeatherURL,
		PageSize:           c.PageSize,
		MaxProducts:        c.MaxProducts,
		Mirrors:            c.Mirrors,
	}
}
