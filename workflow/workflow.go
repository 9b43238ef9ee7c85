package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/airbusgeo/geodata-ingester/catalog"
	"github.com/airbusgeo/geodata-ingester/common"
	"github.com/airbusgeo/geodata-ingester/downloader"
	"github.com/airbusgeo/geodata-ingester/interface/aoi"
	"github.com/airbusgeo/geodata-ingester/interface/auth"
	icatalog "github.com/airbusgeo/geodata-ingester/interface/catalog"
	"github.com/airbusgeo/geodata-ingester/interface/catalog/dhus"
	db "github.com/airbusgeo/geodata-ingester/interface/database"
	"github.com/airbusgeo/geodata-ingester/interface/geocoder"
	"github.com/airbusgeo/geodata-ingester/interface/provider"
	"github.com/airbusgeo/geodata-ingester/service"
	"github.com/airbusgeo/geodata-ingester/service/geometry"
	"github.com/airbusgeo/geodata-ingester/service/log"
	"github.com/airbusgeo/geodata-ingester/service/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultWorkers is the default number of products ingested concurrently
const DefaultWorkers = 4

const jsonRetries = 3

// Config of the Workflow
type Config struct {
	Store    db.ProvenanceBackend
	AOIs     *aoi.Store
	Geocoder geocoder.Geocoder
	Registry *catalog.Registry
	Tokens   *auth.Manager
	Auth     auth.Config
	// HTTPClient for the catalogue and json requests
	HTTPClient *http.Client
	// DownloadClient for the downloads (usually with a longer timeout)
	DownloadClient *http.Client
	// Fetchers of the mirrors (FTP, GS, S3). HTTP fetchers are set by the workflow.
	Fetchers          provider.Fetchers
	DownloadDir       string
	RequestsPerSecond float64
	Workers           int
	Metrics           *metrics.Metrics
}

// Workflow fetches the dataset sources and records their provenance
type Workflow struct {
	store          db.ProvenanceBackend
	aois           *aoi.Store
	geocoder       geocoder.Geocoder
	registry       *catalog.Registry
	tokens         *auth.Manager
	auth           auth.Config
	httpClient     *http.Client
	authClient     *http.Client
	downloader     *downloader.Downloader
	authDownloader *downloader.Downloader
	workers        int
	metrics        *metrics.Metrics
}

func authenticated(client *http.Client, tokens *auth.Manager, cfg auth.Config) *http.Client {
	c := *client
	c.Transport = &auth.Transport{Base: client.Transport, Manager: tokens, Config: cfg}
	return &c
}

// NewWorkflow creates a workflow
func NewWorkflow(cfg Config) (*Workflow, error) {
	if cfg.Store == nil || cfg.AOIs == nil || cfg.Registry == nil {
		return nil, fmt.Errorf("NewWorkflow: missing store, aoi store or registry")
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = service.NewHTTPClient(service.DefaultHTTPTimeout)
	}
	if cfg.DownloadClient == nil {
		cfg.DownloadClient = cfg.HTTPClient
	}
	if cfg.Tokens == nil {
		cfg.Tokens = auth.NewManager(cfg.HTTPClient)
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}

	fetchers := cfg.Fetchers
	fetchers.HTTP = provider.NewHTTPFetcher(cfg.DownloadClient)
	d, err := downloader.New(cfg.DownloadDir, &fetchers, cfg.RequestsPerSecond)
	if err != nil {
		return nil, fmt.Errorf("NewWorkflow.%w", err)
	}
	d.Metrics = cfg.Metrics

	authFetchers := cfg.Fetchers
	authFetchers.HTTP = provider.NewHTTPFetcher(authenticated(cfg.DownloadClient, cfg.Tokens, cfg.Auth))

	return &Workflow{
		store:          cfg.Store,
		aois:           cfg.AOIs,
		geocoder:       cfg.Geocoder,
		registry:       cfg.Registry,
		tokens:         cfg.Tokens,
		auth:           cfg.Auth,
		httpClient:     cfg.HTTPClient,
		authClient:     authenticated(cfg.HTTPClient, cfg.Tokens, cfg.Auth),
		downloader:     d,
		authDownloader: d.WithFetcher(&authFetchers),
		workers:        cfg.Workers,
		metrics:        cfg.Metrics,
	}, nil
}

// Registry of the sources
func (wf *Workflow) Registry() *catalog.Registry {
	return wf.registry
}

// AOIs returns the aoi store
func (wf *Workflow) AOIs() *aoi.Store {
	return wf.aois
}

// CreateAOI validates and saves the ring
func (wf *Workflow) CreateAOI(ctx context.Context, ring geometry.Ring) (aoi.Handle, error) {
	h, err := wf.aois.Save(ctx, ring)
	if err != nil {
		return "", fmt.Errorf("CreateAOI.%w", err)
	}
	return h, nil
}

// AOIFromPlace geocodes the place and saves the ring of its bounding box
func (wf *Workflow) AOIFromPlace(ctx context.Context, place string) (aoi.Handle, error) {
	if wf.geocoder == nil {
		return "", fmt.Errorf("AOIFromPlace: geocoder is not configured")
	}
	res, err := wf.geocoder.BoundingBox(ctx, place)
	if err != nil {
		var nferr service.NotFoundError
		if errors.As(err, &nferr) {
			wf.metrics.GeocodeRequest("not_found")
		} else {
			wf.metrics.GeocodeRequest("error")
		}
		return "", fmt.Errorf("AOIFromPlace.%w", err)
	}
	wf.metrics.GeocodeRequest("success")
	log.Logger(ctx).Sugar().Infof("%s: %s %+v", place, res.Formatted, res.BBox)
	return wf.CreateAOI(ctx, geometry.RingFromBBox(res.BBox))
}

// StoreDocuments inserts the documents as they are in the collection
func (wf *Workflow) StoreDocuments(ctx context.Context, collection db.Collection, docs []common.Document) (int, error) {
	n, err := wf.store.InsertMany(ctx, collection, docs)
	if err != nil {
		return n, fmt.Errorf("StoreDocuments[%s].%w", collection, err)
	}
	log.Logger(ctx).Sugar().Infof("%d documents stored in %s", n, collection)
	return n, nil
}

func logState(ctx context.Context, source string, state common.FetchState) {
	log.Logger(ctx).Debug("fetch", zap.String("source", source), zap.String("state", state.String()))
}

func logProductState(ctx context.Context, productID string, state common.ProductState) {
	fields := []zap.Field{zap.String("product", productID), zap.String("state", state.String())}
	if state.Terminal() {
		log.Logger(ctx).Info("product", fields...)
	} else {
		log.Logger(ctx).Debug("product", fields...)
	}
}

// Fetch ingests the source. aoiHandle is required by the imagery sources.
// If some products failed, the summary is returned with a PartialFailureError.
func (wf *Workflow) Fetch(ctx context.Context, sourceID, aoiHandle string) (*common.Summary, error) {
	src, err := wf.registry.Describe(sourceID)
	if err != nil {
		return nil, err
	}
	ctx = log.With(ctx, "source", sourceID)
	start := time.Now()
	summary := common.NewSummary(sourceID)

	switch s := src.(type) {
	case catalog.ImagerySource:
		err = wf.fetchImagery(ctx, s, aoiHandle, summary)
	case catalog.ArchiveSource:
		err = wf.fetchArchive(ctx, s, summary)
	case catalog.JSONSource:
		err = wf.fetchJSON(ctx, s, summary)
	default:
		panic(fmt.Sprintf("unexpected source type %T", src))
	}

	outcome := "success"
	switch {
	case err != nil:
		outcome = "error"
		logState(ctx, sourceID, common.FetchStateFailed)
		err = fmt.Errorf("Fetch[%s].%w", sourceID, err)
	case summary.PartialFailure():
		outcome = "partial"
		logState(ctx, sourceID, common.FetchStateDone)
		err = service.PartialFailureError{Source: sourceID, Failed: summary.Failed, Total: summary.Found, FirstFailure: summary.FirstError()}
	case summary.Found == 0:
		outcome = "no_products"
		logState(ctx, sourceID, common.FetchStateDone)
	default:
		logState(ctx, sourceID, common.FetchStateDone)
	}
	wf.metrics.Fetch(sourceID, outcome, time.Since(start).Seconds())
	log.Logger(ctx).Sugar().Infof("%s: found %d, recorded %d, skipped %d, failed %d", sourceID, summary.Found, summary.Recorded, summary.Skipped, summary.Failed)
	return summary, err
}

func (wf *Workflow) fetchImagery(ctx context.Context, src catalog.ImagerySource, aoiHandle string, summary *common.Summary) error {
	if strings.TrimSpace(aoiHandle) == "" {
		return service.InputInvalidError{Field: "geojson_path", Reason: "missing aoi"}
	}
	ring, err := wf.aois.Load(ctx, aoiHandle)
	if err != nil {
		var nferr service.NotFoundError
		if errors.As(err, &nferr) {
			return service.InputInvalidError{Field: "geojson_path", Reason: nferr.Error()}
		}
		return err
	}
	query := src.Query(icatalog.Query{AOI: ring})
	logState(ctx, src.Name, common.FetchStateQueryBuilt)

	if _, err := wf.tokens.Token(ctx, wf.auth); err != nil {
		return err
	}

	logState(ctx, src.Name, common.FetchStateSearching)
	var catalogue icatalog.ProductsProvider = &dhus.Provider{
		Client:      wf.authClient,
		SearchURL:   src.SearchURL,
		DownloadURL: src.DownloadURL,
		PageLimit:   src.PageSize,
	}
	products, err := catalogue.SearchProducts(ctx, query, src.MaxProducts)
	if err != nil {
		return err
	}
	summary.Found = len(products)
	if len(products) == 0 {
		logState(ctx, src.Name, common.FetchStateNoProducts)
		return nil
	}
	logState(ctx, src.Name, common.FetchStateProductsFound)

	logState(ctx, src.Name, common.FetchStateDownloading)
	g := errgroup.Group{}
	g.SetLimit(wf.workers)
	for _, p := range products {
		g.Go(func() error {
			state, err := wf.ingestProduct(ctx, src, p, aoiHandle)
			if err != nil {
				log.Logger(ctx).Warn("product failed", zap.String("product", p.ID), zap.Error(err))
			}
			logProductState(ctx, p.ID, state)
			summary.Add(p.ID, state, err)
			wf.metrics.Product(src.Name, strings.ToLower(state.String()))
			return nil
		})
	}
	g.Wait()
	logState(ctx, src.Name, common.FetchStateRecorded)
	return nil
}

// ingestProduct downloads and records the product, unless it is already recorded
func (wf *Workflow) ingestProduct(ctx context.Context, src catalog.ImagerySource, p common.Product, aoiHandle string) (common.ProductState, error) {
	logProductState(ctx, p.ID, common.ProductStateDiscovered)
	key := db.Key{Source: src.Name, ProductID: p.ID}
	exists, err := wf.store.Exists(ctx, src.Collection(), key)
	if err != nil {
		return common.ProductStateFailed, err
	}
	if exists {
		log.Logger(ctx).Sugar().Debugf("%s already recorded", key)
		return common.ProductStateSkipped, nil
	}

	infos := map[string]string{"ID": p.ID, "SOURCE": src.Name, "TITLE": p.Title}
	var urls []string
	if len(src.Mirrors) > 0 {
		info, _ := common.Info(p.Title)
		for _, m := range src.Mirrors {
			urls = append(urls, common.FormatBrackets(m, info, infos))
		}
	}
	urls = append(urls, p.DownloadURL)

	productPath, err := wf.authDownloader.DownloadProduct(ctx, src.Name, p.ID, urls...)
	if err != nil {
		return common.ProductStateFailed, err
	}
	logProductState(ctx, p.ID, common.ProductStateDownloaded)

	metadata := map[string]string{
		common.MetadataLabel:       src.Label,
		common.MetadataPlatform:    src.Platform.String(),
		common.MetadataDownloadURL: p.DownloadURL,
		common.MetadataAOI:         aoiHandle,
	}
	if !p.Date.IsZero() {
		metadata[common.MetadataSensingDate] = p.Date.UTC().Format(time.RFC3339)
	}
	for attr, key := range map[string]string{
		"producttype":          common.MetadataProductType,
		"processinglevel":      common.MetadataProductLevel,
		"cloudcoverpercentage": common.MetadataCloudCover,
		"orbitnumber":          common.MetadataOrbit,
		"tileid":               common.MetadataTile,
		"size":                 common.MetadataSize,
	} {
		if v, ok := p.Attributes[attr]; ok {
			metadata[key] = v
		}
	}
	record := common.ProvenanceRecord{
		Source:     src.Name,
		ProductID:  p.ID,
		Title:      p.Title,
		FilePath:   productPath,
		Metadata:   metadata,
		RecordedAt: time.Now(),
	}
	if err := wf.store.InsertOne(ctx, src.Collection(), key, record.Document()); err != nil {
		var dup db.ErrAlreadyExists
		if errors.As(err, &dup) {
			return common.ProductStateSkipped, nil
		}
		return common.ProductStateFailed, err
	}
	return common.ProductStateRecorded, nil
}

func (wf *Workflow) fetchArchive(ctx context.Context, src catalog.ArchiveSource, summary *common.Summary) error {
	infos := map[string]string{"SOURCE": src.Name, "ARTIFACT": src.Artifact}
	var urls []string
	for _, m := range src.Mirrors {
		urls = append(urls, common.FormatBrackets(m, infos))
	}
	urls = append(urls, src.URL)
	logState(ctx, src.Name, common.FetchStateQueryBuilt)
	summary.Found = 1

	logState(ctx, src.Name, common.FetchStateDownloading)
	entries, err := wf.downloader.DownloadArchive(ctx, src.Name, urls...)
	if err != nil {
		return err
	}
	record := common.ProvenanceRecord{
		Source:   src.Name,
		Title:    src.Label,
		FilePath: filepath.Join(wf.downloader.Dir, src.Artifact),
		Metadata: map[string]string{
			common.MetadataLabel:       src.Label,
			common.MetadataDownloadURL: src.URL,
			common.MetadataEntries:     strings.Join(entries, ","),
		},
		RecordedAt: time.Now(),
	}
	if err := wf.store.Upsert(ctx, src.Collection(), db.Key{Source: src.Name}, record.Document()); err != nil {
		return err
	}
	summary.Add(src.Name, common.ProductStateRecorded, nil)
	logState(ctx, src.Name, common.FetchStateRecorded)
	return nil
}

// ParseDocuments decodes a JSON array of objects
func ParseDocuments(source string, body []byte) ([]common.Document, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || body[0] != '[' {
		return nil, service.MalformedResponseError{Service: source, Reason: "a JSON array is expected"}
	}
	var docs []common.Document
	if err := json.Unmarshal(body, &docs); err != nil {
		return nil, service.MalformedResponseError{Service: source, Reason: err.Error()}
	}
	return docs, nil
}

func (wf *Workflow) fetchJSON(ctx context.Context, src catalog.JSONSource, summary *common.Summary) error {
	logState(ctx, src.Name, common.FetchStateQueryBuilt)
	if err := wf.downloader.Wait(ctx, src.URL); err != nil {
		return err
	}
	logState(ctx, src.Name, common.FetchStateSearching)
	body, err := service.GetBodyRetry(ctx, wf.httpClient, src.URL, jsonRetries)
	if err != nil {
		return err
	}
	wf.metrics.Downloaded(src.Name, int64(len(body)))
	docs, err := ParseDocuments(src.Name, body)
	if err != nil {
		return err
	}
	summary.Found = len(docs)
	if len(docs) == 0 {
		logState(ctx, src.Name, common.FetchStateNoProducts)
		return nil
	}
	n, err := wf.store.InsertMany(ctx, src.Collection(), docs)
	if err != nil {
		return err
	}
	summary.Recorded = n
	logState(ctx, src.Name, common.FetchStateRecorded)
	return nil
}

// RunAll creates the AOI of the place and fetches all the sources in order.
// A failure of a source does not prevent the other sources from being fetched.
// Cancellation of ctx is checked between the sources.
func (wf *Workflow) RunAll(ctx context.Context, place string) (aoi.Handle, []*common.Summary, error) {
	handle, err := wf.AOIFromPlace(ctx, place)
	if err != nil {
		return "", nil, fmt.Errorf("RunAll.%w", err)
	}

	// One token shared by all the sources
	var tokenErr error
	for _, id := range wf.registry.Sources() {
		if src, _ := wf.registry.Describe(id); src.Auth() == catalog.AuthBearer {
			_, tokenErr = wf.tokens.Token(ctx, wf.auth)
			break
		}
	}

	var summaries []*common.Summary
	var errs error
	for _, id := range wf.registry.Sources() {
		if err := ctx.Err(); err != nil {
			return handle, summaries, service.MergeErrors(true, errs, fmt.Errorf("RunAll: %w", err))
		}
		src, _ := wf.registry.Describe(id)
		if tokenErr != nil && src.Auth() == catalog.AuthBearer {
			errs = service.MergeErrors(true, errs, fmt.Errorf("Fetch[%s].%w", id, tokenErr))
			continue
		}
		summary, err := wf.Fetch(context.WithoutCancel(ctx), id, string(handle))
		if summary != nil {
			summaries = append(summaries, summary)
		}
		if err != nil {
			log.Logger(ctx).Sugar().Warnf("%v", err)
			errs = service.MergeErrors(true, errs, err)
		}
	}
	return handle, summaries, errs
}
