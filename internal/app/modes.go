package app

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sponsorenlauf/backend/internal/server"
	"github.com/sponsorenlauf/backend/internal/server/handler"
	"github.com/sponsorenlauf/backend/internal/worker"
)

// shutdownTimeout bounds how long in-flight requests may finish on shutdown.
const shutdownTimeout = 10 * time.Second

// pingAdapter lifts a plain ping func into the handler.Pinger interface.
type pingAdapter func(ctx context.Context) error

func (p pingAdapter) Ping(ctx context.Context) error { return p(ctx) }

// ServerMode runs the HTTP API alone. Settlement jobs requested through the
// API stay pending until a worker picks them up.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startServer(ctx, g, deps)
	return g.Wait()
}

// WorkerMode runs the trigger consumer alone.
func (a *App) WorkerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting worker mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startWorker(ctx, g, deps)
	return g.Wait()
}

// FullMode runs the HTTP API and the trigger consumer in one process.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startWorker(ctx, g, deps)
	if a.cfg.Server.Enabled {
		a.startServer(ctx, g, deps)
	}
	return g.Wait()
}

func (a *App) startWorker(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	consumer := worker.NewConsumer(deps.EventBus, deps.Aggregates, deps.Settlements, a.logger)
	g.Go(func() error {
		return consumer.Run(ctx)
	})
}

func (a *App) startServer(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	handlers := server.Handlers{
		Health: handler.NewHealthHandler(map[string]handler.Pinger{
			"postgres": pingAdapter(deps.PostgresPing),
			"redis":    pingAdapter(deps.RedisPing),
		}),
		Settlements:  handler.NewSettlementHandler(deps.Settlements, a.logger),
		Invoices:     handler.NewInvoiceHandler(deps.Invoices, a.logger),
		Records:      handler.NewRecordHandler(deps.Records, a.logger),
		Participants: handler.NewParticipantHandler(deps.Aggregates, a.logger),
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		JWTSecret:   a.cfg.Server.JWTSecret,
	}, handlers, a.logger)

	g.Go(func() error {
		return srv.Start()
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}
