package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"

	"meetpoint/services"
)

func setupGeoApp(upstream *httptest.Server) *fiber.App {
	h := NewGeoHandler(services.NewGeoClient(upstream.URL, "test-key"))

	app := fiber.New()
	geo := app.Group("/api/geo")
	geo.Get("/search", h.Search)
	geo.Get("/reverse", h.Reverse)
	geo.Get("/route", h.Route)
	return app
}

func TestGeoSearchReducesFeatures(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"features": []map[string]interface{}{
				{"properties": map[string]interface{}{"formatted": "Trafalgar Square, London", "lat": 51.508, "lon": -0.128}},
			},
		})
	}))
	defer upstream.Close()

	app := setupGeoApp(upstream)
	req := httptest.NewRequest(http.MethodGet, "/api/geo/search?text=trafalgar", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var places []services.GeoPlace
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(places) != 1 || places[0].Formatted != "Trafalgar Square, London" {
		t.Errorf("unexpected places: %+v", places)
	}
}

func TestGeoRouteReducesDurationToMinutes(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"features": []map[string]interface{}{
				{"properties": map[string]interface{}{"time": 720.0, "distance": 5500.0}},
			},
		})
	}))
	defer upstream.Close()

	app := setupGeoApp(upstream)
	req := httptest.NewRequest(http.MethodGet, "/api/geo/route?fromLat=51.5&fromLng=-0.09&toLat=51.51&toLng=-0.1", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	var route services.RouteEstimate
	if err := json.NewDecoder(resp.Body).Decode(&route); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if route.DurationMinutes != 12 {
		t.Errorf("expected 12 minutes, got %d", route.DurationMinutes)
	}
	if route.DistanceKM != 5.5 {
		t.Errorf("expected 5.5 km, got %v", route.DistanceKM)
	}
}

func TestGeoUpstreamFailureIsBadGateway(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer upstream.Close()

	app := setupGeoApp(upstream)
	req := httptest.NewRequest(http.MethodGet, "/api/geo/reverse?lat=51.5&lng=-0.09", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != fiber.StatusBadGateway {
		t.Errorf("expected 502, got %d", resp.StatusCode)
	}
}

func TestGeoRejectsMissingCoordinates(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer upstream.Close()

	app := setupGeoApp(upstream)
	req := httptest.NewRequest(http.MethodGet, "/api/geo/reverse", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
}
