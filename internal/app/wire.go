package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/sponsorenlauf/backend/internal/blob/s3"
	"github.com/sponsorenlauf/backend/internal/cache/redis"
	"github.com/sponsorenlauf/backend/internal/config"
	"github.com/sponsorenlauf/backend/internal/domain"
	"github.com/sponsorenlauf/backend/internal/invoice"
	"github.com/sponsorenlauf/backend/internal/notify"
	"github.com/sponsorenlauf/backend/internal/service"
	"github.com/sponsorenlauf/backend/internal/store/postgres"
)

// Dependencies bundles everything the application modes need. It is
// constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	// Stores
	ParticipantStore domain.ParticipantStore
	PledgeStore      domain.PledgeStore
	LapStore         domain.LapStore
	JobStore         domain.SettlementJobStore
	MailStore        domain.MailStore

	// Redis
	EventBus       domain.EventBus
	LockManager    domain.LockManager
	AggregateCache domain.AggregateCache

	// Services
	Aggregates  *service.AggregateService
	Settlements *service.SettlementService
	Invoices    *service.InvoiceService
	Records     *service.RecordService

	// Health probes
	PostgresPing func(ctx context.Context) error
	RedisPing    func(ctx context.Context) error
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that
// releases resources on shutdown.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- PostgreSQL ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Database.DSN,
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		Database: cfg.Database.Database,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		SSLMode:  cfg.Database.SSLMode,
		MaxConns: cfg.Database.PoolMaxConns,
		MinConns: cfg.Database.PoolMinConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)

	if cfg.Database.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}

	pool := pgClient.Pool()
	deps.ParticipantStore = postgres.NewParticipantStore(pool)
	deps.PledgeStore = postgres.NewPledgeStore(pool)
	deps.LapStore = postgres.NewLapStore(pool)
	deps.JobStore = postgres.NewSettlementJobStore(pool)
	deps.MailStore = postgres.NewMailStore(pool)
	deps.PostgresPing = pgClient.Ping

	// --- Redis ---
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	deps.EventBus = redis.NewEventBus(redisClient)
	deps.LockManager = redis.NewLockManager(redisClient)
	deps.AggregateCache = redis.NewAggregateCache(redisClient)
	deps.RedisPing = redisClient.Ping

	// --- Operator notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	notifier := notify.NewNotifier(senders, cfg.Notify.Events, logger)

	// --- Invoice dispatch archive (optional) ---
	var archiver service.Archiver
	if cfg.S3.Bucket != "" {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		archiver = s3blob.NewArchiver(s3blob.NewWriter(s3Client))
	}

	// --- Invoice renderer ---
	renderer, err := invoice.NewRenderer(invoice.Config{
		Subject:       cfg.Invoice.Subject,
		Currency:      cfg.Invoice.Currency,
		EventName:     cfg.Invoice.EventName,
		AccountHolder: cfg.Invoice.AccountHolder,
		IBAN:          cfg.Invoice.IBAN,
		BankName:      cfg.Invoice.BankName,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: invoice renderer: %w", err)
	}

	// --- Services ---
	deps.Aggregates = service.NewAggregateService(
		deps.ParticipantStore, deps.PledgeStore, deps.LapStore, deps.AggregateCache, logger,
	)
	deps.Settlements = service.NewSettlementService(
		deps.ParticipantStore, deps.PledgeStore, deps.JobStore,
		deps.LockManager, deps.EventBus, notifier,
		cfg.Settlement.LockTTL.Duration, logger,
	)
	deps.Invoices = service.NewInvoiceService(
		deps.ParticipantStore, deps.PledgeStore, deps.JobStore, deps.MailStore,
		renderer, archiver, notifier, cfg.Settlement.DispatchRequiresSuccess, logger,
	)
	deps.Records = service.NewRecordService(
		deps.PledgeStore, deps.LapStore, deps.EventBus, logger,
	)

	return deps, cleanup, nil
}
