// Package server hosts the HTTP API.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sponsorenlauf/backend/internal/server/handler"
	"github.com/sponsorenlauf/backend/internal/server/middleware"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	JWTSecret   string
}

// Handlers aggregates all HTTP handlers that the server registers.
type Handlers struct {
	Health       *handler.HealthHandler
	Settlements  *handler.SettlementHandler
	Invoices     *handler.InvoiceHandler
	Records      *handler.RecordHandler
	Participants *handler.ParticipantHandler
}

// Server is the HTTP API server.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates a new Server with all routes registered on the ServeMux
// and the middleware chain (CORS, logging, auth) applied.
func NewServer(cfg Config, handlers Handlers, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health check (no auth required).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Settlement endpoints.
	mux.HandleFunc("POST /api/settlements/calculate", handlers.Settlements.Calculate)
	mux.HandleFunc("POST /api/settlements", handlers.Settlements.Request)
	mux.HandleFunc("GET /api/settlements/{id}", handlers.Settlements.GetJob)

	// Invoice dispatch.
	mux.HandleFunc("POST /api/invoices/dispatch", handlers.Invoices.Dispatch)

	// Record mutations.
	mux.HandleFunc("POST /api/laps", handlers.Records.CreateLap)
	mux.HandleFunc("DELETE /api/laps/{id}", handlers.Records.DeleteLap)
	mux.HandleFunc("POST /api/pledges", handlers.Records.CreatePledge)
	mux.HandleFunc("DELETE /api/pledges/{id}", handlers.Records.DeletePledge)

	// Scoreboard reads.
	mux.HandleFunc("GET /api/participants", handlers.Participants.List)
	mux.HandleFunc("GET /api/participants/{id}", handlers.Participants.Get)

	var h http.Handler = mux
	h = middleware.Auth(cfg.JWTSecret)(h)
	h = middleware.Logging(logger)(h)
	h = corsMiddleware(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}

// corsMiddleware returns middleware that sets CORS headers for the allowed
// origins. If no origins are specified, it defaults to allowing all origins.
func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			if origin != "" {
				allowed := len(allowedOrigins) == 0
				for _, o := range allowedOrigins {
					if strings.EqualFold(o, "*") || strings.EqualFold(o, origin) {
						allowed = true
						break
					}
				}

				if allowed {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
					w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
					w.Header().Set("Access-Control-Max-Age", "86400")
				}
			}

			// Handle preflight requests.
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
