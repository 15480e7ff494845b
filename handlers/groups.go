package handlers

import (
	"github.com/gofiber/fiber/v2"

	"meetpoint/models"
	"meetpoint/services"
)

// GroupHandler is the control-plane surface over groups, destinations
// and online presences. Mutations made here are visible to the event
// channel the same way as websocket-driven ones: both paths serialize on
// the same per-group lock and broadcast through the same hub.
type GroupHandler struct {
	registry     *services.Registry
	destinations *services.Destinations
	presences    *services.PresenceStore
	activity     *services.ActivityLog
}

func NewGroupHandler(registry *services.Registry, destinations *services.Destinations, presences *services.PresenceStore, activity *services.ActivityLog) *GroupHandler {
	return &GroupHandler{
		registry:     registry,
		destinations: destinations,
		presences:    presences,
		activity:     activity,
	}
}

// ListGroups returns all active groups
func (h *GroupHandler) ListGroups(c *fiber.Ctx) error {
	groups, err := h.registry.ListActive()
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(groups)
}

// CreateGroup creates a new group with the creator as first member
func (h *GroupHandler) CreateGroup(c *fiber.Ctx) error {
	var input models.GroupInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	group, err := h.registry.CreateGroup(input.GroupName, input.CreatedBy)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(group)
}

// JoinGroup adds a member to the roster. Joining twice is a no-op.
func (h *GroupHandler) JoinGroup(c *fiber.Ctx) error {
	groupID := c.Params("groupId")

	var input models.JoinInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	group, err := h.registry.AddMember(groupID, input.Username)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(group)
}

// SetDestination sets the shared destination and broadcasts it
func (h *GroupHandler) SetDestination(c *fiber.Ctx) error {
	groupID := c.Params("groupId")

	var input models.DestinationInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	group, err := h.destinations.Set(groupID, input.Latitude, input.Longitude, input.Address)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(group)
}

// ClearDestination clears the shared destination, invalidates every
// cached copy and broadcasts the clear
func (h *GroupHandler) ClearDestination(c *fiber.Ctx) error {
	groupID := c.Params("groupId")

	group, err := h.destinations.Clear(groupID)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Destination cleared successfully",
		"group":   group,
	})
}

// ListOnlineUsers returns the online presences of a group
func (h *GroupHandler) ListOnlineUsers(c *fiber.Ctx) error {
	groupID := c.Params("groupId")

	presences, err := h.presences.ListOnline(groupID)
	if err != nil {
		return errorResponse(c, err)
	}

	users := make([]models.PresenceResponse, 0, len(presences))
	for i := range presences {
		users = append(users, presences[i].ToResponse())
	}
	return c.JSON(users)
}

// ListActivity returns the recent activity feed of a group
func (h *GroupHandler) ListActivity(c *fiber.Ctx) error {
	groupID := c.Params("groupId")

	if _, err := h.registry.FindGroup(groupID); err != nil {
		return errorResponse(c, err)
	}

	entries, err := h.activity.List(groupID, c.QueryInt("limit"))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(entries)
}
