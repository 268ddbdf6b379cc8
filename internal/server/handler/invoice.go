package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/sponsorenlauf/backend/internal/server/middleware"
	"github.com/sponsorenlauf/backend/internal/service"
)

// InvoiceHandler exposes invoice dispatch.
type InvoiceHandler struct {
	invoices *service.InvoiceService
	logger   *slog.Logger
}

// NewInvoiceHandler creates a new InvoiceHandler.
func NewInvoiceHandler(invoices *service.InvoiceService, logger *slog.Logger) *InvoiceHandler {
	return &InvoiceHandler{
		invoices: invoices,
		logger:   logger.With(slog.String("handler", "invoice")),
	}
}

// Dispatch handles POST /api/invoices/dispatch: renders and enqueues one
// invoice per sponsor with settled pledges.
func (h *InvoiceHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	callerID := middleware.CallerID(r.Context())

	count, err := h.invoices.Dispatch(r.Context(), callerID)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": fmt.Sprintf("%d invoices sent", count),
	})
}
