package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"meetpoint/services"
)

// GeoHandler proxies geocoding and routing lookups so the provider API
// key never reaches clients.
type GeoHandler struct {
	geo *services.GeoClient
}

func NewGeoHandler(geo *services.GeoClient) *GeoHandler {
	return &GeoHandler{geo: geo}
}

// Search forward-geocodes ?text= into destination candidates
func (h *GeoHandler) Search(c *fiber.Ctx) error {
	places, err := h.geo.Search(c.Query("text"))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(places)
}

// Reverse resolves ?lat=&lng= to an address
func (h *GeoHandler) Reverse(c *fiber.Ctx) error {
	lat, err1 := strconv.ParseFloat(c.Query("lat"), 64)
	lng, err2 := strconv.ParseFloat(c.Query("lng"), 64)
	if err1 != nil || err2 != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "lat and lng are required",
		})
	}

	address, err := h.geo.Reverse(lat, lng)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(fiber.Map{"address": address})
}

// Route estimates driving duration and distance between two points
func (h *GeoHandler) Route(c *fiber.Ctx) error {
	fromLat, err1 := strconv.ParseFloat(c.Query("fromLat"), 64)
	fromLng, err2 := strconv.ParseFloat(c.Query("fromLng"), 64)
	toLat, err3 := strconv.ParseFloat(c.Query("toLat"), 64)
	toLng, err4 := strconv.ParseFloat(c.Query("toLng"), 64)
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "fromLat, fromLng, toLat and toLng are required",
		})
	}

	route, err := h.geo.Route(fromLat, fromLng, toLat, toLng)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(route)
}
