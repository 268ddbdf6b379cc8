package handler

import (
	"log/slog"
	"net/http"

	"github.com/sponsorenlauf/backend/internal/domain"
	"github.com/sponsorenlauf/backend/internal/service"
)

// ParticipantHandler exposes the aggregate read endpoints used by
// scoreboards. These are public: the scoreboard at the event has no login.
type ParticipantHandler struct {
	aggregates *service.AggregateService
	logger     *slog.Logger
}

// NewParticipantHandler creates a new ParticipantHandler.
func NewParticipantHandler(aggregates *service.AggregateService, logger *slog.Logger) *ParticipantHandler {
	return &ParticipantHandler{
		aggregates: aggregates,
		logger:     logger.With(slog.String("handler", "participant")),
	}
}

type participantResponse struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	LapCount  int     `json:"lap_count"`
	OwedTotal float64 `json:"owed_total"`
}

func toParticipantResponse(p domain.Participant) participantResponse {
	return participantResponse{
		ID:        p.ID,
		Name:      p.Name,
		LapCount:  p.LapCount,
		OwedTotal: p.OwedTotal,
	}
}

// List handles GET /api/participants.
func (h *ParticipantHandler) List(w http.ResponseWriter, r *http.Request) {
	participants, err := h.aggregates.Participants(r.Context())
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	out := make([]participantResponse, 0, len(participants))
	for _, p := range participants {
		out = append(out, toParticipantResponse(p))
	}
	writeJSON(w, http.StatusOK, out)
}

// Get handles GET /api/participants/{id}.
func (h *ParticipantHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.aggregates.Participant(r.Context(), pathParam(r, "id"))
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toParticipantResponse(p))
}
