package main

import (
	"context"
	"fmt"
	"net/url"

	"github.com/airbusgeo/geodata-ingester/catalog"
	"github.com/airbusgeo/geodata-ingester/interface/aoi"
	"github.com/airbusgeo/geodata-ingester/interface/auth"
	db "github.com/airbusgeo/geodata-ingester/interface/database"
	"github.com/airbusgeo/geodata-ingester/interface/database/memory"
	"github.com/airbusgeo/geodata-ingester/interface/database/mongo"
	"github.com/airbusgeo/geodata-ingester/interface/database/pg"
	"github.com/airbusgeo/geodata-ingester/interface/geocoder"
	"github.com/airbusgeo/geodata-ingester/interface/geocoder/opencage"
	"github.com/airbusgeo/geodata-ingester/interface/provider"
	"github.com/airbusgeo/geodata-ingester/service"
	"github.com/airbusgeo/geodata-ingester/service/log"
	"github.com/airbusgeo/geodata-ingester/service/metrics"
	"github.com/airbusgeo/geodata-ingester/workflow"
)

// newStore connects to the provenance store: mongodb://, postgres:// or memory://
func newStore(ctx context.Context, uri, database string) (db.ProvenanceBackend, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("store_uri: %w", err)
	}
	switch u.Scheme {
	case "mongodb", "mongodb+srv":
		return mongo.New(ctx, uri, database)
	case "postgres", "postgresql":
		return pg.New(ctx, uri)
	case "memory":
		log.Logger(ctx).Warn("records are kept in memory and will be lost on exit")
		return memory.New(), nil
	}
	return nil, fmt.Errorf("store_uri: unsupported scheme %q", u.Scheme)
}

// newWorkflow connects to the store and builds the workflow.
// The caller must close the returned store.
func newWorkflow(ctx context.Context, cfg *config, m *metrics.Metrics) (*workflow.Workflow, db.ProvenanceBackend, error) {
	store, err := newStore(ctx, cfg.StoreURI, cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	aois, err := aoi.NewStore(cfg.GeoJSONDir)
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	registry, err := catalog.NewRegistry(catalog.DefaultSources(cfg.catalogOptions())...)
	if err != nil {
		store.Close()
		return nil, nil, err
	}

	var gc geocoder.Geocoder
	if cfg.OpencageAPIKey != "" {
		cached := geocoder.NewCached(opencage.NewClient(cfg.OpencageAPIKey, cfg.OpencageURL, cfg.HTTPTimeout), cfg.GeocodeCacheTTL)
		cached.OnHit = func() { m.GeocodeRequest("cached") }
		gc = cached
	} else {
		log.Logger(ctx).Warn("opencage_api_key is not configured: places cannot be geocoded")
	}

	httpClient := service.NewHTTPClient(cfg.HTTPTimeout)
	tokens := auth.NewManager(httpClient)
	tokens.Attempts = cfg.TokenAttempts
	tokens.Backoff = cfg.TokenBackoff
	tokens.MaxBackoff = cfg.TokenMaxBackoff
	tokens.Metrics = m

	wf, err := workflow.NewWorkflow(workflow.Config{
		Store:          store,
		AOIs:           aois,
		Geocoder:       gc,
		Registry:       registry,
		Tokens:         tokens,
		Auth:           cfg.authConfig(),
		HTTPClient:     httpClient,
		DownloadClient: service.NewHTTPClient(cfg.DownloadTimeout),
		Fetchers: provider.Fetchers{
			FTP:   provider.NewFTPFetcher(cfg.FTPUser, cfg.FTPPassword, cfg.HTTPTimeout),
			GS:    provider.NewGSFetcher(cfg.GCSAnonymous),
			S3:    provider.NewS3Fetcher(cfg.AWSRegion, cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey, cfg.AWSRequesterPays),
			Local: provider.NewLocalFetcher(cfg.LocalRoot),
		},
		DownloadDir:       cfg.DownloadDir,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Workers:           cfg.Workers,
		Metrics:           m,
	})
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	return wf, store, nil
}
