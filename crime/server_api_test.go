// Copyright 2025 The BerkWatch Authors
// SPDX-License-Identifier: Apache-2.0

package crime

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/berkwatch/berkwatch/geocode"
	"github.com/berkwatch/berkwatch/scanner"
)

// stubServerGeocoder lets API tests script the provider's answer.
type stubServerGeocoder struct {
	resp *geocode.Response
	err  error
}

func (s *stubServerGeocoder) Geocode(_ string) (*geocode.Response, error) {
	return s.resp, s.err
}

// setupServerTest initializes a Gin router and a Server over in-memory
// DuckDB repositories and a scripted geocoder.
func setupServerTest(t *testing.T, g geocode.Geocoder) (*gin.Engine, *sql.DB) {
	t.Helper()

	gin.SetMode(gin.TestMode)
	router := gin.Default()

	db, err := sql.Open("duckdb", "")
	require.NoError(t, err)

	t.Cleanup(func() { db.Close() })

	crimeRepo := NewRepository(db)
	require.NoError(t, crimeRepo.CreateSchema())

	articleRepo := scanner.NewRepository(db)
	require.NoError(t, articleRepo.CreateSchema())

	server := &Server{
		crimeRepo:   crimeRepo,
		articleRepo: articleRepo,
		geocoder:    g,
	}

	server.registerRoutes(router)

	return router, db
}

func TestGeocodeAPI(t *testing.T) {
	g := &stubServerGeocoder{
		resp: &geocode.Response{
			Status: geocode.StatusOK,
			Candidates: []geocode.Candidate{
				{Latitude: 37.8716, Longitude: -122.2727},
			},
		},
	}

	router, _ := setupServerTest(t, g)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/geocode?address=2180%20Milvia%20St", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp GeocodeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "2180 Milvia St", resp.Address)
	assert.Equal(t, "37.8716,-122.2727", resp.Result)
}

func TestGeocodeAPINotFound(t *testing.T) {
	g := &stubServerGeocoder{resp: &geocode.Response{Status: "ZERO_RESULTS"}}

	router, _ := setupServerTest(t, g)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/geocode?address=nowhere", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp GeocodeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, geocode.NotFound, resp.Result)
}

func TestGeocodeAPIEmptyAddress(t *testing.T) {
	// An empty address must short-circuit: the provider is never consulted,
	// so even a failing stub cannot surface.
	g := &stubServerGeocoder{err: &geocode.ProviderError{Type: geocode.ErrorTypeNetwork, Message: "unreachable"}}

	router, _ := setupServerTest(t, g)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/geocode", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp GeocodeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "", resp.Result)
}

func TestGeocodeAPIProviderError(t *testing.T) {
	g := &stubServerGeocoder{
		err: &geocode.ProviderError{Type: geocode.ErrorTypeRateLimit, Message: "too many requests"},
	}

	router, _ := setupServerTest(t, g)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/geocode?address=2180%20Milvia%20St", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestFrequencyAPI(t *testing.T) {
	router, db := setupServerTest(t, &stubServerGeocoder{})

	inWindow := time.Date(2025, 6, 14, 12, 0, 0, 0, time.UTC)

	repo := NewRepository(db)
	require.NoError(t, repo.BulkInsert([]*Record{
		// ~80m from the query point.
		mustRecord(t, "near-1", 37.8722, -122.2730, inWindow),
		mustRecord(t, "near-2", 37.8719, -122.2728, inWindow),
		// ~6.5km away.
		mustRecord(t, "far", 37.9300, -122.2730, inWindow),
	}))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet,
		"/api/frequency?lat=37.8715&lng=-122.2730&radius=500&start=2025-06-01T00:00:00Z&end=2025-06-30T00:00:00Z", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp FrequencyResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count)
	assert.InDelta(t, 500.0, resp.RadiusMeters, 0.001)
}

func TestFrequencyAPIBadParams(t *testing.T) {
	router, _ := setupServerTest(t, &stubServerGeocoder{})

	for _, path := range []string{
		"/api/frequency",                                        // missing lat/lng
		"/api/frequency?lat=37.87&lng=x",                        // bad lng
		"/api/frequency?lat=37.87&lng=-122.27&radius=-5",        // negative radius
		"/api/frequency?lat=37.87&lng=-122.27&start=yesterday",  // bad start
		"/api/frequency?lat=37.87&lng=-122.27&end=tomorrow",     // bad end
		"/api/frequency?lat=37.87&lng=-122.27&start=2025-06-30T00:00:00Z&end=2025-06-01T00:00:00Z", // inverted
	} {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, path, nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code, "path %s", path)
	}
}

func TestArticlesAPI(t *testing.T) {
	router, db := setupServerTest(t, &stubServerGeocoder{})

	repo := scanner.NewRepository(db)

	now := time.Date(2025, 8, 2, 10, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Save(&scanner.Article{
		URL:       "https://www.berkeleyscanner.com/2025/08/01/robbery-downtown/",
		Title:     "Robbery downtown",
		Published: time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC),
		FetchedAt: now,
	}))
	require.NoError(t, repo.Save(&scanner.Article{
		URL:       "https://www.berkeleyscanner.com/2025/07/15/structure-fire/",
		Title:     "Structure fire",
		Published: time.Date(2025, 7, 15, 0, 0, 0, 0, time.UTC),
		FetchedAt: now,
	}))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/articles", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var articles []*scanner.Article
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &articles))
	require.Len(t, articles, 2)
	assert.Equal(t, "Robbery downtown", articles[0].Title)

	// limit=1 keeps only the newest
	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, "/api/articles?limit=1", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	articles = nil
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &articles))
	assert.Len(t, articles, 1)
}

func TestArticlesAPIEmpty(t *testing.T) {
	router, _ := setupServerTest(t, &stubServerGeocoder{})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/articles", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())
}
