package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"

	db "github.com/airbusgeo/geodata-ingester/interface/database"
	"github.com/airbusgeo/geodata-ingester/service"
	"github.com/airbusgeo/geodata-ingester/service/geometry"
	"github.com/airbusgeo/geodata-ingester/service/log"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// WelcomeMessage is returned by GET /
const WelcomeMessage = "Welcome to the geospatial data ingester"

const maxBodySize = 32 << 20

// NewHandler returns the router of the workflow server
func (wf *Workflow) NewHandler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/", wf.WelcomeHandler).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")
	r.HandleFunc("/create_geojson", wf.CreateGeoJSONHandler).Methods("POST")
	r.HandleFunc("/download_geojson/{file_name}", wf.DownloadGeoJSONHandler).Methods("GET")
	r.HandleFunc("/fetch/ground_truth", wf.StoreDocumentsHandler(db.GroundTruthData)).Methods("POST")
	r.HandleFunc("/fetch/geo_info", wf.StoreDocumentsHandler(db.GeoInfo)).Methods("POST")
	r.HandleFunc("/fetch/{source}", wf.FetchHandler).Methods("GET", "POST")
	return r
}

// StatusCode maps an error of the workflow to an http status
func StatusCode(err error) int {
	var (
		inputErr     service.InputInvalidError
		notFoundErr  service.NotFoundError
		unknownErr   service.UnknownSourceError
		partialErr   service.PartialFailureError
		upstreamErr  service.UpstreamError
		malformedErr service.MalformedResponseError
		authErr      service.AuthFailureError
	)
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &partialErr):
		return http.StatusMultiStatus
	case errors.As(err, &inputErr):
		return http.StatusBadRequest
	case errors.As(err, &notFoundErr), errors.As(err, &unknownErr):
		return http.StatusNotFound
	case errors.As(err, &authErr), errors.As(err, &upstreamErr), errors.As(err, &malformedErr):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	status := StatusCode(err)
	if status >= 500 {
		log.Logger(ctx).Sugar().Warnf("%v", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// WelcomeHandler says hello
func (wf *Workflow) WelcomeHandler(w http.ResponseWriter, req *http.Request) {
	fmt.Fprint(w, WelcomeMessage)
}

type createGeoJSONRequest struct {
	Coordinates geometry.Ring `json:"coordinates"`
}

// CreateGeoJSONHandler saves the ring posted as {"coordinates": [[lon, lat], ...]}
func (wf *Workflow) CreateGeoJSONHandler(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	var body createGeoJSONRequest
	if err := json.NewDecoder(io.LimitReader(req.Body, maxBodySize)).Decode(&body); err != nil {
		writeError(ctx, w, service.InputInvalidError{Field: "coordinates", Reason: err.Error()})
		return
	}
	if len(body.Coordinates) == 0 {
		writeError(ctx, w, service.InputInvalidError{Field: "coordinates", Reason: "missing"})
		return
	}
	handle, err := wf.CreateAOI(ctx, body.Coordinates)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	name := filepath.Base(string(handle))
	writeJSON(w, http.StatusOK, map[string]string{
		"message":       "GeoJSON file created successfully",
		"file_path":     wf.aois.Path(handle),
		"download_link": "/download_geojson/" + name,
	})
}

// DownloadGeoJSONHandler serves an AOI file as attachment
func (wf *Workflow) DownloadGeoJSONHandler(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	name := mux.Vars(req)["file_name"]
	f, err := wf.aois.Open(ctx, name)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	defer f.Close()
	w.Header().Set("Content-Type", "application/geo+json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(name)))
	io.Copy(w, f)
}

type fetchRequest struct {
	GeoJSONPath string `json:"geojson_path"`
}

// FetchHandler fetches the source. The imagery sources require geojson_path
// (query parameter or json body, GET and POST alike).
func (wf *Workflow) FetchHandler(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	source := mux.Vars(req)["source"]
	if _, err := wf.registry.Describe(source); err != nil {
		writeError(ctx, w, err)
		return
	}

	aoiHandle := req.URL.Query().Get("geojson_path")
	if aoiHandle == "" && req.Body != nil {
		var body fetchRequest
		if err := json.NewDecoder(io.LimitReader(req.Body, maxBodySize)).Decode(&body); err == nil {
			aoiHandle = body.GeoJSONPath
		}
	}

	summary, err := wf.Fetch(ctx, source, aoiHandle)
	if err != nil && summary != nil && StatusCode(err) == http.StatusMultiStatus {
		writeJSON(w, http.StatusMultiStatus, summary)
		return
	}
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// StoreDocumentsHandler stores the posted json array in the collection
func (wf *Workflow) StoreDocumentsHandler(collection db.Collection) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		ctx := req.Context()
		body, err := io.ReadAll(io.LimitReader(req.Body, maxBodySize))
		if err != nil {
			writeError(ctx, w, service.InputInvalidError{Field: "body", Reason: err.Error()})
			return
		}
		docs, err := ParseDocuments(string(collection), body)
		if err != nil {
			writeError(ctx, w, service.InputInvalidError{Field: "body", Reason: "a JSON array of objects is expected"})
			return
		}
		n, err := wf.StoreDocuments(ctx, collection, docs)
		if err != nil {
			writeError(ctx, w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"message":  fmt.Sprintf("%d documents stored", n),
			"inserted": n,
		})
	}
}
