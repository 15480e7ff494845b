package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/url"

	"github.com/gofiber/fiber/v2"
)

// ErrUpstream marks a geocoding/routing provider failure. It never
// touches group state; handlers surface it as a bad gateway.
var ErrUpstream = errors.New("geo provider failure")

// GeoPlace is one forward-geocoding candidate.
type GeoPlace struct {
	Formatted string  `json:"formatted"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// RouteEstimate is the routing provider's answer, already reduced to
// what clients display.
type RouteEstimate struct {
	DurationMinutes int     `json:"durationMinutes"`
	DistanceKM      float64 `json:"distanceKm"`
}

// GeoClient is a thin proxy over the Geoapify geocoding and routing
// APIs. It exists so the API key stays server-side; the core never
// interprets the results beyond reshaping them.
type GeoClient struct {
	baseURL string
	apiKey  string
	log     *slog.Logger
}

func NewGeoClient(baseURL, apiKey string) *GeoClient {
	return &GeoClient{baseURL: baseURL, apiKey: apiKey, log: slog.Default()}
}

// geoapify GeoJSON envelope, trimmed to the fields we read
type geoFeatures struct {
	Features []struct {
		Properties struct {
			Formatted string  `json:"formatted"`
			Lat       float64 `json:"lat"`
			Lon       float64 `json:"lon"`
			Time      float64 `json:"time"`
			Distance  float64 `json:"distance"`
		} `json:"properties"`
	} `json:"features"`
}

// Search forward-geocodes a free-text query into up to five candidates.
func (g *GeoClient) Search(text string) ([]GeoPlace, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: text is required", ErrValidation)
	}

	u := fmt.Sprintf("%s/v1/geocode/search?text=%s&apiKey=%s", g.baseURL, url.QueryEscape(text), g.apiKey)
	payload, err := g.fetch(u)
	if err != nil {
		return nil, err
	}

	places := make([]GeoPlace, 0, 5)
	for _, f := range payload.Features {
		places = append(places, GeoPlace{
			Formatted: f.Properties.Formatted,
			Latitude:  f.Properties.Lat,
			Longitude: f.Properties.Lon,
		})
		if len(places) == 5 {
			break
		}
	}
	return places, nil
}

// Reverse resolves coordinates to a formatted address. When the provider
// has no answer the raw coordinates are returned, matching what clients
// fall back to anyway.
func (g *GeoClient) Reverse(lat, lng float64) (string, error) {
	u := fmt.Sprintf("%s/v1/geocode/reverse?lat=%f&lon=%f&apiKey=%s", g.baseURL, lat, lng, g.apiKey)
	payload, err := g.fetch(u)
	if err != nil {
		return "", err
	}
	if len(payload.Features) == 0 {
		return fmt.Sprintf("%.4f, %.4f", lat, lng), nil
	}
	return payload.Features[0].Properties.Formatted, nil
}

// Route asks for a driving route between two points and reduces it to
// duration and distance.
func (g *GeoClient) Route(fromLat, fromLng, toLat, toLng float64) (*RouteEstimate, error) {
	u := fmt.Sprintf("%s/v1/routing?waypoints=%f,%f|%f,%f&mode=drive&apiKey=%s",
		g.baseURL, fromLat, fromLng, toLat, toLng, g.apiKey)
	payload, err := g.fetch(u)
	if err != nil {
		return nil, err
	}
	if len(payload.Features) == 0 {
		return nil, fmt.Errorf("%w: no route found", ErrNotFound)
	}

	props := payload.Features[0].Properties
	return &RouteEstimate{
		DurationMinutes: int(math.Round(props.Time / 60)),
		DistanceKM:      math.Round(props.Distance/10) / 100,
	}, nil
}

func (g *GeoClient) fetch(u string) (*geoFeatures, error) {
	agent := fiber.Get(u)
	agent.UserAgent("meetpoint")

	code, body, errs := agent.Bytes()
	if len(errs) > 0 {
		g.log.Warn("geo request failed", "error", errs[0])
		return nil, fmt.Errorf("%w: %v", ErrUpstream, errs[0])
	}
	if code != fiber.StatusOK {
		g.log.Warn("geo request rejected", "status", code)
		return nil, fmt.Errorf("%w: status %d", ErrUpstream, code)
	}

	var payload geoFeatures
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: bad response body: %v", ErrUpstream, err)
	}
	return &payload, nil
}
