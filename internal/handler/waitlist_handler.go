package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campuspulse/events-api/internal/service"
	appErrors "github.com/campuspulse/events-api/pkg/errors"
	"github.com/campuspulse/events-api/pkg/response"
)

// WaitlistHandler exposes waitlist endpoints.
type WaitlistHandler struct {
	waitlist *service.WaitlistService
}

// NewWaitlistHandler constructs WaitlistHandler.
func NewWaitlistHandler(waitlist *service.WaitlistService) *WaitlistHandler {
	return &WaitlistHandler{waitlist: waitlist}
}

// Join godoc
// @Summary Join an event's waitlist
// @Tags Waitlist
// @Accept json
// @Produce json
// @Param payload body service.JoinWaitlistRequest true "Waitlist payload"
// @Success 201 {object} response.Envelope
// @Router /waitlist [post]
func (h *WaitlistHandler) Join(c *gin.Context) {
	var req service.JoinWaitlistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	entry, err := h.waitlist.Join(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, entry)
}

// Position godoc
// @Summary Get a user's position in an event's waitlist
// @Tags Waitlist
// @Produce json
// @Param eventId path string true "Event ID"
// @Param userId path string true "User ID"
// @Success 200 {object} response.Envelope
// @Router /waitlist/position/{eventId}/{userId} [get]
func (h *WaitlistHandler) Position(c *gin.Context) {
	position, err := h.waitlist.Position(c.Request.Context(), c.Param("eventId"), c.Param("userId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, position, nil)
}

// Confirm godoc
// @Summary Confirm a promoted waitlist slot
// @Tags Waitlist
// @Accept json
// @Produce json
// @Param payload body service.ConfirmWaitlistRequest true "Confirmation payload"
// @Success 200 {object} response.Envelope
// @Router /waitlist/confirm [post]
func (h *WaitlistHandler) Confirm(c *gin.Context) {
	var req service.ConfirmWaitlistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	confirmation, err := h.waitlist.Confirm(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, confirmation, nil)
}

// Expire godoc
// @Summary Remove a waitlist entry whose turn lapsed
// @Tags Waitlist
// @Produce json
// @Param userId path string true "User ID"
// @Param eventId path string true "Event ID"
// @Success 204 {object} nil
// @Router /waitlist/expire/{userId}/{eventId} [delete]
func (h *WaitlistHandler) Expire(c *gin.Context) {
	if err := h.waitlist.Expire(c.Request.Context(), c.Param("userId"), c.Param("eventId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Check godoc
// @Summary Check whether a user is on an event's waitlist
// @Tags Waitlist
// @Produce json
// @Param userId query string true "User ID"
// @Param eventId query string true "Event ID"
// @Success 200 {object} response.Envelope
// @Router /waitlist/check [get]
func (h *WaitlistHandler) Check(c *gin.Context) {
	userID := c.Query("userId")
	eventID := c.Query("eventId")
	if userID == "" || eventID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "userId and eventId are required"))
		return
	}
	entry, found, err := h.waitlist.Check(c.Request.Context(), userID, eventID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"inWaitlist": found, "entry": entry}, nil)
}

// First godoc
// @Summary Get the earliest waitlist entry for an event
// @Tags Waitlist
// @Produce json
// @Param eventId path string true "Event ID"
// @Success 200 {object} response.Envelope
// @Router /waitlist/first/{eventId} [get]
func (h *WaitlistHandler) First(c *gin.Context) {
	entry, err := h.waitlist.First(c.Request.Context(), c.Param("eventId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}

// ListByEvent godoc
// @Summary List every waitlist entry for an event
// @Tags Waitlist
// @Produce json
// @Param eventId path string true "Event ID"
// @Success 200 {object} response.Envelope
// @Router /waitlist/all/{eventId} [get]
func (h *WaitlistHandler) ListByEvent(c *gin.Context) {
	entries, err := h.waitlist.ListByEvent(c.Request.Context(), c.Param("eventId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}
