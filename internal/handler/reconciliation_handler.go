package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campuspulse/events-api/internal/service"
	"github.com/campuspulse/events-api/pkg/response"
)

// ReconciliationHandler exposes the manual sweep triggers.
type ReconciliationHandler struct {
	reconciliation *service.ReconciliationService
}

// NewReconciliationHandler constructs ReconciliationHandler.
func NewReconciliationHandler(reconciliation *service.ReconciliationService) *ReconciliationHandler {
	return &ReconciliationHandler{reconciliation: reconciliation}
}

// RunSweep godoc
// @Summary Run a reconciliation sweep over all active events
// @Tags Reconciliation
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /reconciliation/sweep [post]
func (h *ReconciliationHandler) RunSweep(c *gin.Context) {
	summary, err := h.reconciliation.RunSweep(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// SweepEvent godoc
// @Summary Reconcile a single event
// @Tags Reconciliation
// @Produce json
// @Param eventId path string true "Event ID"
// @Success 200 {object} response.Envelope
// @Router /reconciliation/sweep/{eventId} [post]
func (h *ReconciliationHandler) SweepEvent(c *gin.Context) {
	result, err := h.reconciliation.SweepEvent(c.Request.Context(), c.Param("eventId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
