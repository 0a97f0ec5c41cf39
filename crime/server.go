// Copyright 2025 The BerkWatch Authors
// SPDX-License-Identifier: Apache-2.0

package crime

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/berkwatch/berkwatch/geocode"
	"github.com/berkwatch/berkwatch/scanner"
	"github.com/berkwatch/berkwatch/spatial"
)

// Server exposes the crime table, the geocoder and the scraped articles over
// a small local HTTP API.
type Server struct {
	crimeRepo   Repository
	articleRepo scanner.Repository
	geocoder    geocode.Geocoder
}

// NewServer wires a Server. The Google Maps API key comes from the
// environment or, failing that, from the API Keys service via ADC.
func NewServer(crimeRepo Repository, articleRepo scanner.Repository) *Server {
	apiKey, err := geocode.ResolveAPIKey(context.Background())
	if err != nil {
		log.Printf("Failed to resolve Google Maps API key: %v", err)
		log.Print("GOOGLE_MAPS_API_KEY is not set and ADC failed. /api/geocode will return errors.")
	} else {
		log.Println("✅ Google Maps API key resolved")
	}

	fmt.Println("📍 Geocoding: Google Maps (primary)")

	return &Server{
		crimeRepo:   crimeRepo,
		articleRepo: articleRepo,
		geocoder:    geocode.NewGoogleGeocoder(apiKey),
	}
}

func (s *Server) Run() error {
	r := gin.Default()

	s.registerRoutes(r)

	return r.Run("localhost:8080")
}

func (s *Server) registerRoutes(r *gin.Engine) {
	r.GET("/api/geocode", s.geocodeAddress)
	r.GET("/api/frequency", s.getFrequency)
	r.GET("/api/articles", s.listArticles)
}

// GeocodeResponse carries the flattened lookup result: "" for an empty
// address, "lat,lng" for a hit, "Not found" for a miss.
type GeocodeResponse struct {
	Address string `json:"address"`
	Result  string `json:"result"`
}

func (s *Server) geocodeAddress(ctx *gin.Context) {
	address := ctx.Query("address")

	result, err := geocode.Lookup(s.geocoder, address)
	if err != nil {
		var provErr *geocode.ProviderError
		if errors.As(err, &provErr) {
			ctx.JSON(http.StatusBadGateway, gin.H{"error": provErr.Error()})

			return
		}

		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	ctx.JSON(http.StatusOK, GeocodeResponse{Address: address, Result: result})
}

// FrequencyResponse is the count of incidents around a point in a window.
type FrequencyResponse struct {
	Count        int     `json:"count"`
	RadiusMeters float64 `json:"radius_meters"`
}

func (s *Server) getFrequency(ctx *gin.Context) {
	lat, err := strconv.ParseFloat(ctx.Query("lat"), 64)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid lat parameter"})

		return
	}

	lng, err := strconv.ParseFloat(ctx.Query("lng"), 64)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid lng parameter"})

		return
	}

	radius := 500.0

	if raw := ctx.Query("radius"); raw != "" {
		radius, err = strconv.ParseFloat(raw, 64)
		if err != nil || radius <= 0 {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid radius parameter"})

			return
		}
	}

	end := time.Now().UTC()
	start := end.AddDate(0, 0, -30)

	if raw := ctx.Query("start"); raw != "" {
		start, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid start parameter, want RFC3339"})

			return
		}
	}

	if raw := ctx.Query("end"); raw != "" {
		end, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid end parameter, want RFC3339"})

			return
		}
	}

	if end.Before(start) {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "end is before start"})

		return
	}

	center := spatial.Point{Lat: lat, Lng: lng}

	count, err := s.crimeRepo.FrequencyWithin(center, radius, start, end)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	ctx.JSON(http.StatusOK, FrequencyResponse{Count: count, RadiusMeters: radius})
}

func (s *Server) listArticles(ctx *gin.Context) {
	limit := 20

	if raw := ctx.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit parameter"})

			return
		}

		limit = parsed
	}

	articles, err := s.articleRepo.ListRecent(limit)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	if articles == nil {
		articles = []*scanner.Article{}
	}

	ctx.JSON(http.StatusOK, articles)
}
