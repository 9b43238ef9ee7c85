// Package dhus searches the Copernicus Data Hub (DHuS OpenSearch API)
package dhus

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	neturl "net/url"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/go-spatial/geom/encoding/wkt"

	"github.com/airbusgeo/geodata-ingester/common"
	"github.com/airbusgeo/geodata-ingester/interface/catalog"
	"github.com/airbusgeo/geodata-ingester/service"
	"github.com/airbusgeo/geodata-ingester/service/geometry"
	"github.com/airbusgeo/geodata-ingester/service/log"
)

const (
	DefaultSearchURL   = "https://apihub.copernicus.eu/dhus/search"
	DefaultDownloadURL = "https://apihub.copernicus.eu/dhus/odata/v1"
	DefaultPageLimit   = 100
	serviceName        = "dhus"
	dateFormat         = "2006-01-02T15:04:05.000Z"
	nbRetries          = 3
)

// Provider implements catalog.ProductsProvider on a DHuS endpoint
type Provider struct {
	// Client performs the requests (it may carry the bearer authentication)
	Client      *http.Client
	SearchURL   string
	DownloadURL string
	PageLimit   int
}

// ProductURL returns the OData download url of the product
func ProductURL(downloadURL, productID string) string {
	if downloadURL == "" {
		downloadURL = DefaultDownloadURL
	}
	return fmt.Sprintf("%s/Products('%s')/$value", strings.TrimRight(downloadURL, "/"), productID)
}

// ConstructQuery returns the OpenSearch full-text query:
// footprint intersecting the bbox of the AOI, filters and sensing period
func ConstructQuery(q catalog.Query) (string, error) {
	if len(q.AOI) == 0 {
		return "", service.InputInvalidError{Field: "aoi", Reason: "empty"}
	}
	aoiWKT, err := wkt.EncodeString(geometry.RingFromBBox(q.AOI.BBox()).Polygon())
	if err != nil {
		return "", fmt.Errorf("ConstructQuery.EncodeWKT: %w", err)
	}
	parts := []string{fmt.Sprintf(`footprint:"Intersects(%s)"`, aoiWKT)}
	for _, f := range q.Filters {
		parts = append(parts, f.Key+":"+f.Value)
	}
	if !q.Start.IsZero() || !q.End.IsZero() {
		start, end := "*", "NOW"
		if !q.Start.IsZero() {
			start = q.Start.UTC().Format(dateFormat)
		}
		if !q.End.IsZero() {
			end = q.End.UTC().Format(dateFormat)
		}
		parts = append(parts, fmt.Sprintf("beginposition:[%s TO %s]", start, end))
	}
	return strings.Join(parts, " AND "), nil
}

// SearchProducts implements catalog.ProductsProvider
// Results are ordered by sensing date. maxProducts must be positive.
func (p *Provider) SearchProducts(ctx context.Context, q catalog.Query, maxProducts int) ([]common.Product, error) {
	query, err := ConstructQuery(q)
	if err != nil {
		return nil, fmt.Errorf("DHuS.%w", err)
	}
	log.Logger(ctx).Sugar().Debugf("[DHuS] query: %s", query)

	pageLimit := p.PageLimit
	if pageLimit <= 0 {
		pageLimit = DefaultPageLimit
	}
	if maxProducts > 0 {
		pageLimit = min(pageLimit, maxProducts)
	}
	searchURL := p.SearchURL
	if searchURL == "" {
		searchURL = DefaultSearchURL
	}

	var products []common.Product
	totalPages := "?"
	for _, queryParams := range service.ComputePagesToQuery(0, maxProducts, pageLimit) {
		log.Logger(ctx).Sugar().Debugf("[DHuS] Search page %d/%s", queryParams.Page+1, totalPages)
		params := neturl.Values{
			"q":       {query},
			"rows":    {strconv.Itoa(queryParams.Limit)},
			"start":   {strconv.Itoa(queryParams.Limit * queryParams.Page)},
			"format":  {"json"},
			"orderby": {"beginposition asc"},
		}
		body, err := service.GetBodyRetry(ctx, p.Client, searchURL+"?"+params.Encode(), nbRetries)
		if err != nil {
			return nil, fmt.Errorf("DHuS.SearchProducts: %w", err)
		}
		total, entries, err := parseResponse(body)
		if err != nil {
			return nil, fmt.Errorf("DHuS.SearchProducts: %w", err)
		}
		if total > 0 {
			totalPages = strconv.Itoa((total-1)/queryParams.Limit + 1)
		}
		pageFull := len(entries) >= queryParams.Limit

		for _, e := range service.QueryGetResult(&queryParams, entries) {
			product, err := e.product(p.DownloadURL)
			if err != nil {
				return nil, fmt.Errorf("DHuS.SearchProducts: %w", err)
			}
			products = append(products, product)
		}

		// Is there a next page ?
		if !pageFull || (total > 0 && (queryParams.Page+1)*queryParams.Limit >= total) {
			break
		}
	}
	return products, nil
}

func parseResponse(body []byte) (int, []entry, error) {
	var resp struct {
		Feed *struct {
			TotalResults json.RawMessage `json:"opensearch:totalResults"`
			Entry        oneOrMany[entry] `json:"entry"`
		} `json:"feed"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, nil, service.MalformedResponseError{Service: serviceName, Reason: err.Error()}
	}
	if resp.Feed == nil {
		return 0, nil, service.MalformedResponseError{Service: serviceName, Reason: "missing feed"}
	}
	total, ok, err := parseTotal(resp.Feed.TotalResults)
	if err != nil {
		return 0, nil, err
	}
	if resp.Feed.Entry == nil {
		// no entry is an empty page only if the feed reports zero results
		if !ok || total > 0 {
			return 0, nil, service.MalformedResponseError{Service: serviceName, Reason: fmt.Sprintf("missing entry (totalResults %s)", resp.Feed.TotalResults)}
		}
		return 0, nil, nil
	}
	return total, resp.Feed.Entry, nil
}

// parseTotal handles totalResults as a number or a string. ok is false if it is absent or null.
func parseTotal(raw json.RawMessage) (total int, ok bool, err error) {
	s := strings.Trim(string(raw), `"`)
	if s == "" || s == "null" {
		return 0, false, nil
	}
	if total, err = strconv.Atoi(s); err != nil {
		return 0, false, service.MalformedResponseError{Service: serviceName, Reason: "totalResults: " + err.Error()}
	}
	return total, true, nil
}

// oneOrMany decodes a JSON object or an array of objects
type oneOrMany[T any] []T

func (o *oneOrMany[T]) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '[' {
		var many []T
		if err := json.Unmarshal(data, &many); err != nil {
			return err
		}
		*o = many
		return nil
	}
	if string(data) == "null" {
		return nil
	}
	var one T
	if err := json.Unmarshal(data, &one); err != nil {
		return err
	}
	*o = []T{one}
	return nil
}

type nameContent struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// numContent accepts numeric content
type numContent struct {
	Name    string      `json:"name"`
	Content json.Number `json:"content"`
}

type link struct {
	Rel  string `json:"rel"`
	Href string `json:"href"`
}

type entry struct {
	ID     string                 `json:"id"`
	Title  string                 `json:"title"`
	Link   oneOrMany[link]        `json:"link"`
	Date   oneOrMany[nameContent] `json:"date"`
	Str    oneOrMany[nameContent] `json:"str"`
	Int    oneOrMany[numContent]  `json:"int"`
	Double oneOrMany[numContent]  `json:"double"`
}

// downloadURL returns the OData url of the product on the configured endpoint,
// or the link advertised by the catalogue
func (e entry) downloadURL(endpoint string) string {
	if endpoint == "" {
		for _, l := range e.Link {
			if l.Rel == "" && l.Href != "" {
				return l.Href
			}
		}
	}
	return ProductURL(endpoint, e.ID)
}

func (e entry) product(downloadURL string) (common.Product, error) {
	if e.ID == "" {
		return common.Product{}, service.MalformedResponseError{Service: serviceName, Reason: "entry without id"}
	}
	p := common.Product{
		ID:          e.ID,
		Title:       e.Title,
		DownloadURL: e.downloadURL(downloadURL),
		Attributes:  map[string]string{},
		State:       common.ProductStateDiscovered,
	}
	for _, s := range e.Str {
		p.Attributes[s.Name] = s.Content
	}
	for _, n := range e.Int {
		p.Attributes[n.Name] = n.Content.String()
	}
	for _, n := range e.Double {
		p.Attributes[n.Name] = n.Content.String()
	}
	for _, d := range e.Date {
		p.Attributes[d.Name] = d.Content
		if d.Name == "beginposition" {
			date, err := dateparse.ParseIn(d.Content, time.UTC)
			if err != nil {
				return common.Product{}, service.MalformedResponseError{Service: serviceName, Reason: fmt.Sprintf("%s: beginposition: %v", e.ID, err)}
			}
			p.Date = date
		}
	}
	if p.Date.IsZero() {
		if date, err := common.GetDateFromProductId(e.Title); err == nil {
			p.Date = date
		}
	}
	return p, nil
}
