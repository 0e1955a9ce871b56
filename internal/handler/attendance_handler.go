package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campuspulse/events-api/internal/service"
	appErrors "github.com/campuspulse/events-api/pkg/errors"
	"github.com/campuspulse/events-api/pkg/response"
)

// AttendanceHandler exposes registration and attendance endpoints.
type AttendanceHandler struct {
	attendance *service.AttendanceService
}

// NewAttendanceHandler constructs AttendanceHandler.
func NewAttendanceHandler(attendance *service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance}
}

// Register godoc
// @Summary Register for an event
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body service.RegisterRequest true "Registration payload"
// @Success 201 {object} response.Envelope
// @Router /attendance [post]
func (h *AttendanceHandler) Register(c *gin.Context) {
	var req service.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	record, err := h.attendance.Register(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, record)
}

// CheckRegistration godoc
// @Summary Check a user's registration for an event
// @Tags Attendance
// @Produce json
// @Param userId query string true "User ID"
// @Param eventId query string true "Event ID"
// @Success 200 {object} response.Envelope
// @Router /attendance/check-registration [get]
func (h *AttendanceHandler) CheckRegistration(c *gin.Context) {
	userID := c.Query("userId")
	eventID := c.Query("eventId")
	if userID == "" || eventID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "userId and eventId are required"))
		return
	}
	status, err := h.attendance.CheckRegistration(c.Request.Context(), userID, eventID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}

// RemainingSlots godoc
// @Summary Get the occupancy breakdown and remaining slots for an event
// @Tags Attendance
// @Produce json
// @Param eventId query string true "Event ID"
// @Success 200 {object} response.Envelope
// @Router /attendance/slots/remaining [get]
func (h *AttendanceHandler) RemainingSlots(c *gin.Context) {
	eventID := c.Query("eventId")
	if eventID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "eventId is required"))
		return
	}
	summary, err := h.attendance.RemainingSlots(c.Request.Context(), eventID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// MarkAttended godoc
// @Summary Mark a user as attended
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body service.RegisterRequest true "User and event"
// @Success 200 {object} response.Envelope
// @Router /attendance/attend [put]
func (h *AttendanceHandler) MarkAttended(c *gin.Context) {
	var req service.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	record, err := h.attendance.MarkAttended(c.Request.Context(), req.UserID, req.EventID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// BulkApprove godoc
// @Summary Apply a batch of registration approvals for an event
// @Tags Attendance
// @Accept json
// @Produce json
// @Param eventId path string true "Event ID"
// @Param payload body service.BulkApproveRequest true "Approval batch"
// @Success 200 {object} response.Envelope
// @Router /attendance/events/{eventId}/records [put]
func (h *AttendanceHandler) BulkApprove(c *gin.Context) {
	var req service.BulkApproveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.attendance.BulkApprove(c.Request.Context(), c.Param("eventId"), req); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"updated": len(req.Attendees)}, nil)
}

// MarkRegistered godoc
// @Summary Confirm a single attendance record
// @Tags Attendance
// @Produce json
// @Param id path string true "Attendance record ID"
// @Success 200 {object} response.Envelope
// @Router /attendance/mark-registered/{id} [put]
func (h *AttendanceHandler) MarkRegistered(c *gin.Context) {
	record, err := h.attendance.SetRegistered(c.Request.Context(), c.Param("id"), true)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// MarkUnregistered godoc
// @Summary Revoke confirmation of a single attendance record
// @Tags Attendance
// @Produce json
// @Param id path string true "Attendance record ID"
// @Success 200 {object} response.Envelope
// @Router /attendance/mark-unregistered/{id} [put]
func (h *AttendanceHandler) MarkUnregistered(c *gin.Context) {
	record, err := h.attendance.SetRegistered(c.Request.Context(), c.Param("id"), false)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// Counts godoc
// @Summary Get per-event attendance counters
// @Tags Attendance
// @Produce json
// @Param eventId path string true "Event ID"
// @Success 200 {object} response.Envelope
// @Router /attendance/count/{eventId} [get]
func (h *AttendanceHandler) Counts(c *gin.Context) {
	counts, err := h.attendance.Counts(c.Request.Context(), c.Param("eventId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, counts, nil)
}

// Unattended godoc
// @Summary List confirmed registrants who have not attended yet
// @Tags Attendance
// @Produce json
// @Param eventId query string true "Event ID"
// @Success 200 {object} response.Envelope
// @Router /attendance/unattended [get]
func (h *AttendanceHandler) Unattended(c *gin.Context) {
	eventID := c.Query("eventId")
	if eventID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "eventId is required"))
		return
	}
	records, err := h.attendance.Unattended(c.Request.Context(), eventID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}

// Delete godoc
// @Summary Delete an attendance record
// @Tags Attendance
// @Produce json
// @Param id path string true "Attendance record ID"
// @Success 204 {object} nil
// @Router /attendance/{id} [delete]
func (h *AttendanceHandler) Delete(c *gin.Context) {
	if err := h.attendance.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
