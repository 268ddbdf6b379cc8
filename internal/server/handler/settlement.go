package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/sponsorenlauf/backend/internal/server/middleware"
	"github.com/sponsorenlauf/backend/internal/service"
)

// SettlementHandler exposes the settlement operations.
type SettlementHandler struct {
	settlements *service.SettlementService
	logger      *slog.Logger
}

// NewSettlementHandler creates a new SettlementHandler.
func NewSettlementHandler(settlements *service.SettlementService, logger *slog.Logger) *SettlementHandler {
	return &SettlementHandler{
		settlements: settlements,
		logger:      logger.With(slog.String("handler", "settlement")),
	}
}

// Calculate handles POST /api/settlements/calculate: one synchronous
// settlement pass under the cross-process lock.
func (h *SettlementHandler) Calculate(w http.ResponseWriter, r *http.Request) {
	callerID := middleware.CallerID(r.Context())

	result, err := h.settlements.Calculate(r.Context(), callerID)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": fmt.Sprintf("%d pledges settled", result.SettledCount),
	})
}

// Request handles POST /api/settlements: records a pending settlement job and
// hands it to the worker.
func (h *SettlementHandler) Request(w http.ResponseWriter, r *http.Request) {
	callerID := middleware.CallerID(r.Context())

	job, err := h.settlements.Request(r.Context(), callerID)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusAccepted, jobResponse(job.ID, string(job.Status), job.SettledCount, job.ErrorMessage, job.CreatedAt, job.FinishedAt))
}

// GetJob handles GET /api/settlements/{id}: returns the job status.
func (h *SettlementHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	callerID := middleware.CallerID(r.Context())
	if err := h.settlements.Authorize(r.Context(), callerID); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	job, err := h.settlements.Job(r.Context(), pathParam(r, "id"))
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, jobResponse(job.ID, string(job.Status), job.SettledCount, job.ErrorMessage, job.CreatedAt, job.FinishedAt))
}

func jobResponse(id, status string, settledCount int, errorMessage string, createdAt time.Time, finishedAt *time.Time) map[string]any {
	resp := map[string]any{
		"id":            id,
		"status":        status,
		"settled_count": settledCount,
		"created_at":    createdAt,
	}
	if errorMessage != "" {
		resp["error_message"] = errorMessage
	}
	if finishedAt != nil {
		resp["finished_at"] = *finishedAt
	}
	return resp
}
