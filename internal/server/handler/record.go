package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/sponsorenlauf/backend/internal/domain"
	"github.com/sponsorenlauf/backend/internal/server/middleware"
	"github.com/sponsorenlauf/backend/internal/service"
)

// RecordHandler exposes the lap and pledge mutation endpoints that feed the
// trigger pipeline. Any authenticated participant may mutate records; only
// settlement and dispatch require the admin role.
type RecordHandler struct {
	records *service.RecordService
	logger  *slog.Logger
}

// NewRecordHandler creates a new RecordHandler.
func NewRecordHandler(records *service.RecordService, logger *slog.Logger) *RecordHandler {
	return &RecordHandler{
		records: records,
		logger:  logger.With(slog.String("handler", "record")),
	}
}

// CreateLap handles POST /api/laps.
func (h *RecordHandler) CreateLap(w http.ResponseWriter, r *http.Request) {
	if middleware.CallerID(r.Context()) == "" {
		writeDomainError(w, h.logger, domain.ErrUnauthenticated)
		return
	}

	var req struct {
		RunnerID string `json:"runner_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RunnerID == "" {
		writeError(w, http.StatusBadRequest, "runner_id is required")
		return
	}

	lap, err := h.records.CreateLap(r.Context(), req.RunnerID)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"id":        lap.ID,
		"runner_id": lap.RunnerID,
	})
}

// DeleteLap handles DELETE /api/laps/{id}.
func (h *RecordHandler) DeleteLap(w http.ResponseWriter, r *http.Request) {
	if middleware.CallerID(r.Context()) == "" {
		writeDomainError(w, h.logger, domain.ErrUnauthenticated)
		return
	}

	if err := h.records.DeleteLap(r.Context(), pathParam(r, "id")); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreatePledge handles POST /api/pledges.
func (h *RecordHandler) CreatePledge(w http.ResponseWriter, r *http.Request) {
	callerID := middleware.CallerID(r.Context())
	if callerID == "" {
		writeDomainError(w, h.logger, domain.ErrUnauthenticated)
		return
	}

	var req struct {
		RunnerID     string  `json:"runner_id"`
		SponsorEmail string  `json:"sponsor_email"`
		SponsorName  string  `json:"sponsor_name"`
		Kind         string  `json:"kind"`
		Amount       float64 `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Kind != string(domain.PledgeFixed) && req.Kind != string(domain.PledgePerLap) {
		writeError(w, http.StatusBadRequest, "kind must be fixed or perLap")
		return
	}
	if req.Amount < 0 {
		writeError(w, http.StatusBadRequest, "amount must not be negative")
		return
	}

	pledge, err := h.records.CreatePledge(r.Context(), domain.Pledge{
		RunnerID:     req.RunnerID,
		SponsorID:    callerID,
		SponsorEmail: req.SponsorEmail,
		SponsorName:  req.SponsorName,
		Kind:         domain.PledgeKind(req.Kind),
		Amount:       req.Amount,
	})
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"id":        pledge.ID,
		"runner_id": pledge.RunnerID,
		"kind":      pledge.Kind,
		"amount":    pledge.Amount,
	})
}

// DeletePledge handles DELETE /api/pledges/{id}.
func (h *RecordHandler) DeletePledge(w http.ResponseWriter, r *http.Request) {
	if middleware.CallerID(r.Context()) == "" {
		writeDomainError(w, h.logger, domain.ErrUnauthenticated)
		return
	}

	if err := h.records.DeletePledge(r.Context(), pathParam(r, "id")); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
