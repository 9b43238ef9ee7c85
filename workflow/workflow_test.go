package workflow_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"

	"github.com/airbusgeo/geodata-ingester/catalog"
	"github.com/airbusgeo/geodata-ingester/common"
	"github.com/airbusgeo/geodata-ingester/interface/aoi"
	db "github.com/airbusgeo/geodata-ingester/interface/database"
	"github.com/airbusgeo/geodata-ingester/service"
	"github.com/airbusgeo/geodata-ingester/service/geometry"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Workflow", func() {
	var err error
	var summary *common.Summary

	count := func(c db.Collection) int {
		n, err := backend.Count(ctx, c)
		Expect(err).NotTo(HaveOccurred())
		return n
	}

	Describe("Creating an AOI", func() {
		var handle aoi.Handle

		Context("From coordinates", func() {
			ring := geometry.Ring{{36.6, -1.1}, {37.1, -1.1}, {37.1, -1.4}, {36.6, -1.4}, {36.6, -1.1}}
			JustBeforeEach(func() {
				handle, err = wf.CreateAOI(ctx, ring)
			})
			It("should save the ring", func() {
				Expect(err).NotTo(HaveOccurred())
				loaded, err := aoiStore.Load(ctx, string(handle))
				Expect(err).NotTo(HaveOccurred())
				Expect(loaded).To(Equal(ring))
			})
		})

		Context("From an open ring", func() {
			JustBeforeEach(func() {
				handle, err = wf.CreateAOI(ctx, geometry.Ring{{0, 0}, {1, 0}, {1, 1}})
			})
			It("should return an InputInvalidError", func() {
				var ierr service.InputInvalidError
				Expect(errors.As(err, &ierr)).To(BeTrue())
			})
		})

		Context("From a known place", func() {
			JustBeforeEach(func() {
				handle, err = wf.AOIFromPlace(ctx, "Nairobi")
			})
			It("should save the ring of its bounding box", func() {
				Expect(err).NotTo(HaveOccurred())
				loaded, err := aoiStore.Load(ctx, string(handle))
				Expect(err).NotTo(HaveOccurred())
				Expect(loaded).To(Equal(geometry.RingFromBBox(nairobi)))
			})
		})

		Context("From an unknown place", func() {
			JustBeforeEach(func() {
				handle, err = wf.AOIFromPlace(ctx, "Atlantis")
			})
			It("should return a NotFoundError and save nothing", func() {
				var nferr service.NotFoundError
				Expect(errors.As(err, &nferr)).To(BeTrue())
				entries, err := os.ReadDir(aoiStore.Dir())
				Expect(err).NotTo(HaveOccurred())
				Expect(entries).To(BeEmpty())
			})
		})
	})

	Describe("Fetching a satellite imagery source", func() {
		var handle aoi.Handle
		BeforeEach(func() {
			handle, err = wf.AOIFromPlace(ctx, "Nairobi")
			Expect(err).NotTo(HaveOccurred())
		})

		Context("Without aoi", func() {
			JustBeforeEach(func() {
				summary, err = wf.Fetch(ctx, catalog.Sentinel2, "")
			})
			It("should return an InputInvalidError before any request", func() {
				var ierr service.InputInvalidError
				Expect(errors.As(err, &ierr)).To(BeTrue())
				Expect(ierr.Field).To(Equal("geojson_path"))
				tokenHits, searchHits, _ := mock.hits()
				Expect(tokenHits).To(Equal(0))
				Expect(searchHits).To(Equal(0))
			})
		})

		Context("With an aoi that does not exist", func() {
			JustBeforeEach(func() {
				summary, err = wf.Fetch(ctx, catalog.Sentinel2, "geojson_42.geojson")
			})
			It("should return an InputInvalidError", func() {
				var ierr service.InputInvalidError
				Expect(errors.As(err, &ierr)).To(BeTrue())
			})
		})

		Context("With an empty provenance store", func() {
			JustBeforeEach(func() {
				summary, err = wf.Fetch(ctx, catalog.Sentinel2, string(handle))
			})
			It("should download and record all the products", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(summary.Found).To(Equal(5))
				Expect(summary.Recorded).To(Equal(5))
				Expect(count(db.SatelliteImagery)).To(Equal(5))
				tokenHits, searchHits, _ := mock.hits()
				Expect(tokenHits).To(Equal(1))
				Expect(searchHits).To(Equal(3))
			})
			It("should extract the products and remove the zips", func() {
				Expect(err).NotTo(HaveOccurred())
				_, err := os.Stat(filepath.Join(workdir, "downloads", "uuid-0", "uuid-0.SAFE", "manifest.safe"))
				Expect(err).NotTo(HaveOccurred())
				_, err = os.Stat(filepath.Join(workdir, "downloads", "uuid-0.zip"))
				Expect(os.IsNotExist(err)).To(BeTrue())
			})
			It("should record the provenance of the products", func() {
				doc, err := backend.Find(ctx, db.SatelliteImagery, db.Key{Source: catalog.Sentinel2, ProductID: "uuid-3"})
				Expect(err).NotTo(HaveOccurred())
				Expect(doc["source"]).To(Equal(catalog.Sentinel2))
				Expect(doc["product_id"]).To(Equal("uuid-3"))
				Expect(doc["file_path"]).To(Equal(filepath.Join(workdir, "downloads", "uuid-3")))
				metadata, ok := doc["metadata"].(map[string]interface{})
				Expect(ok).To(BeTrue())
				Expect(metadata[common.MetadataLabel]).To(Equal("Sentinel-2"))
				Expect(metadata[common.MetadataTile]).To(Equal("37MBU"))
				Expect(metadata[common.MetadataCloudCover]).To(Equal("12.5"))
				Expect(metadata[common.MetadataAOI]).To(Equal(string(handle)))
			})
		})

		Context("With products already recorded", func() {
			BeforeEach(func() {
				for _, id := range []string{"uuid-1", "uuid-4"} {
					Expect(backend.InsertOne(ctx, db.SatelliteImagery, db.Key{Source: catalog.Sentinel2, ProductID: id},
						common.Document{"source": catalog.Sentinel2, "product_id": id})).To(Succeed())
				}
			})
			JustBeforeEach(func() {
				summary, err = wf.Fetch(ctx, catalog.Sentinel2, string(handle))
			})
			It("should only download and record the new products", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(summary.Recorded).To(Equal(3))
				Expect(summary.Skipped).To(Equal(2))
				Expect(count(db.SatelliteImagery)).To(Equal(5))
				_, _, downloadHits := mock.hits()
				Expect(downloadHits).To(Equal(3))
			})
		})

		Context("When a download fails", func() {
			BeforeEach(func() {
				mock.failing["uuid-2"] = true
			})
			JustBeforeEach(func() {
				summary, err = wf.Fetch(ctx, catalog.Tropomi, string(handle))
			})
			It("should record the other products and return a PartialFailureError", func() {
				var perr service.PartialFailureError
				Expect(errors.As(err, &perr)).To(BeTrue())
				Expect(perr.Failed).To(Equal(1))
				Expect(perr.Total).To(Equal(5))
				Expect(summary.Recorded).To(Equal(4))
				Expect(summary.FailedProducts()).To(Equal([]string{"uuid-2"}))
				Expect(count(db.SatelliteImagery)).To(Equal(4))
			})
		})

		Context("When the catalogue serves files that are not archives", func() {
			BeforeEach(func() {
				mock.mu.Lock()
				mock.netcdf["uuid-1"] = true
				mock.mu.Unlock()
			})
			JustBeforeEach(func() {
				summary, err = wf.Fetch(ctx, catalog.Tropomi, string(handle))
			})
			It("should keep the file and record it", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(summary.Recorded).To(Equal(5))
				productFile := filepath.Join(workdir, "downloads", "uuid-1.nc")
				b, err := os.ReadFile(productFile)
				Expect(err).NotTo(HaveOccurred())
				Expect(string(b)).To(HaveSuffix("uuid-1"))
				doc, err := backend.Find(ctx, db.SatelliteImagery, db.Key{Source: catalog.Tropomi, ProductID: "uuid-1"})
				Expect(err).NotTo(HaveOccurred())
				Expect(doc["file_path"]).To(Equal(productFile))
			})
		})

		Context("With no product in the catalogue", func() {
			BeforeEach(func() {
				mock.total = 0
			})
			JustBeforeEach(func() {
				summary, err = wf.Fetch(ctx, catalog.Sentinel2, string(handle))
			})
			It("should return an empty summary", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(summary.Found).To(Equal(0))
				Expect(count(db.SatelliteImagery)).To(Equal(0))
			})
		})

		Context("When the token endpoint is unavailable", func() {
			BeforeEach(func() {
				mock.tokenStatus = http.StatusServiceUnavailable
			})
			JustBeforeEach(func() {
				summary, err = wf.Fetch(ctx, catalog.Sentinel2, string(handle))
			})
			It("should retry then return an AuthFailureError", func() {
				var aerr service.AuthFailureError
				Expect(errors.As(err, &aerr)).To(BeTrue())
				Expect(aerr.Attempts).To(Equal(5))
				tokenHits, searchHits, _ := mock.hits()
				Expect(tokenHits).To(Equal(5))
				Expect(searchHits).To(Equal(0))
			})
		})
	})

	Describe("Fetching a static archive", func() {
		Context("Twice", func() {
			JustBeforeEach(func() {
				_, err = wf.Fetch(ctx, catalog.DEM, "")
				Expect(err).NotTo(HaveOccurred())
				summary, err = wf.Fetch(ctx, catalog.DEM, "")
			})
			It("should extract the archive and keep a single record", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(summary.Recorded).To(Equal(1))
				Expect(count(db.GeospatialData)).To(Equal(1))
				_, err := os.Stat(filepath.Join(workdir, "downloads", "N00E036.SRTMGL1.hgt"))
				Expect(err).NotTo(HaveOccurred())
				doc, err := backend.Find(ctx, db.GeospatialData, db.Key{Source: catalog.DEM})
				Expect(err).NotTo(HaveOccurred())
				Expect(doc["file_path"]).To(Equal(filepath.Join(workdir, "downloads", "N00E036.SRTMGL1.hgt")))
			})
		})
	})

	Describe("Fetching the weather", func() {
		Context("When the endpoint returns an array", func() {
			JustBeforeEach(func() {
				summary, err = wf.Fetch(ctx, catalog.Weather, "")
			})
			It("should insert all the documents", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(summary.Recorded).To(Equal(365))
				Expect(count(db.WeatherData)).To(Equal(365))
			})
		})

		Context("When the endpoint does not return an array", func() {
			BeforeEach(func() {
				mock.weatherBody = `{"errorMessage": "bad station"}`
			})
			JustBeforeEach(func() {
				summary, err = wf.Fetch(ctx, catalog.Weather, "")
			})
			It("should return a MalformedResponseError", func() {
				var merr service.MalformedResponseError
				Expect(errors.As(err, &merr)).To(BeTrue())
				Expect(count(db.WeatherData)).To(Equal(0))
			})
		})
	})

	Describe("Fetching an unknown source", func() {
		It("should return an UnknownSourceError", func() {
			_, err := wf.Fetch(ctx, "modis", "")
			Expect(err).To(Equal(service.UnknownSourceError{Source: "modis"}))
		})
	})

	Describe("Running all the sources", func() {
		var summaries []*common.Summary
		var handle aoi.Handle

		Context("With all the services available", func() {
			JustBeforeEach(func() {
				handle, summaries, err = wf.RunAll(ctx, "Nairobi")
			})
			It("should fetch the six sources with a single token", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(handle).NotTo(BeEmpty())
				Expect(summaries).To(HaveLen(6))
				Expect(count(db.SatelliteImagery)).To(Equal(10))
				Expect(count(db.GeospatialData)).To(Equal(3))
				Expect(count(db.WeatherData)).To(Equal(365))
				tokenHits, _, _ := mock.hits()
				Expect(tokenHits).To(Equal(1))
			})
		})

		Context("When the token cannot be acquired", func() {
			BeforeEach(func() {
				mock.tokenStatus = http.StatusUnauthorized
			})
			JustBeforeEach(func() {
				handle, summaries, err = wf.RunAll(ctx, "Nairobi")
			})
			It("should still fetch the sources that do not need it", func() {
				var aerr service.AuthFailureError
				Expect(errors.As(err, &aerr)).To(BeTrue())
				Expect(summaries).To(HaveLen(4))
				Expect(count(db.SatelliteImagery)).To(Equal(0))
				Expect(count(db.GeospatialData)).To(Equal(3))
			})
		})

		Context("With an unknown place", func() {
			JustBeforeEach(func() {
				handle, summaries, err = wf.RunAll(ctx, "Atlantis")
			})
			It("should not fetch anything", func() {
				var nferr service.NotFoundError
				Expect(errors.As(err, &nferr)).To(BeTrue())
				Expect(summaries).To(BeEmpty())
				tokenHits, _, _ := mock.hits()
				Expect(tokenHits).To(Equal(0))
			})
		})
	})

	Describe("Serving http", func() {
		var rec *httptest.ResponseRecorder
		do := func(method, url, body string) {
			rec = httptest.NewRecorder()
			req := httptest.NewRequest(method, url, strings.NewReader(body))
			wf.NewHandler().ServeHTTP(rec, req)
		}

		It("should welcome", func() {
			do("GET", "/", "")
			Expect(rec.Code).To(Equal(http.StatusOK))
		})

		It("should create then serve a geojson", func() {
			do("POST", "/create_geojson", `{"coordinates": [[36.6, -1.1], [37.1, -1.1], [37.1, -1.4], [36.6, -1.4], [36.6, -1.1]]}`)
			Expect(rec.Code).To(Equal(http.StatusOK))
			var resp map[string]string
			Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp["download_link"]).To(Equal("/download_geojson/geojson_1.geojson"))

			do("GET", resp["download_link"], "")
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Header().Get("Content-Disposition")).To(ContainSubstring("geojson_1.geojson"))
			Expect(rec.Body.String()).To(ContainSubstring("FeatureCollection"))
		})

		It("should reject a geojson without coordinates", func() {
			do("POST", "/create_geojson", `{}`)
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})

		It("should not serve an unknown geojson", func() {
			do("GET", "/download_geojson/geojson_9.geojson", "")
			Expect(rec.Code).To(Equal(http.StatusNotFound))
		})

		It("should require a geojson_path to fetch imagery", func() {
			do("POST", "/fetch/sentinel2", `{}`)
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})

		It("should not fetch an unknown source", func() {
			do("GET", "/fetch/modis", "")
			Expect(rec.Code).To(Equal(http.StatusNotFound))
		})

		It("should report a partial failure", func() {
			mock.failing["uuid-0"] = true
			handle, err := wf.AOIFromPlace(ctx, "Nairobi")
			Expect(err).NotTo(HaveOccurred())
			do("POST", "/fetch/sentinel2", `{"geojson_path": "`+string(handle)+`"}`)
			Expect(rec.Code).To(Equal(http.StatusMultiStatus))
			Expect(rec.Body.String()).To(ContainSubstring(`"failed":1`))
		})

		It("should fetch imagery with a GET json body", func() {
			handle, err := wf.AOIFromPlace(ctx, "Nairobi")
			Expect(err).NotTo(HaveOccurred())
			do("GET", "/fetch/tropomi", `{"geojson_path": "`+string(handle)+`"}`)
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(ContainSubstring(`"recorded":5`))
			Expect(count(db.SatelliteImagery)).To(Equal(5))
		})

		It("should fetch the weather", func() {
			do("GET", "/fetch/weather", "")
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(ContainSubstring(`"recorded":365`))
		})

		It("should store ground truth documents", func() {
			do("POST", "/fetch/ground_truth", `[{"site": "A", "class": "forest"}, {"site": "B", "class": "urban"}]`)
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(count(db.GroundTruthData)).To(Equal(2))
		})

		It("should reject geo info that is not an array", func() {
			do("POST", "/fetch/geo_info", `{"site": "A"}`)
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			Expect(count(db.GeoInfo)).To(Equal(0))
		})
	})
})
