package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sponsorenlauf/backend/internal/domain"
	"github.com/sponsorenlauf/backend/internal/invoice"
)

// Archiver stores an audit copy of each invoice dispatch run.
type Archiver interface {
	ArchiveDispatchRun(ctx context.Context, ranAt time.Time, summary []byte) error
}

// InvoiceService groups settled pledges by sponsor and appends one rendered
// invoice per sponsor to the outbound mail queue.
type InvoiceService struct {
	participants   domain.ParticipantStore
	pledges        domain.PledgeStore
	jobs           domain.SettlementJobStore
	mails          domain.MailStore
	renderer       *invoice.Renderer
	archiver       Archiver
	notifier       Notifier
	requireSettled bool
	logger         *slog.Logger
}

// NewInvoiceService creates a new InvoiceService. archiver and notifier may be
// nil, in which case dispatch runs are not archived and no operator alert is
// sent. When requireSettled is true, Dispatch refuses unless the most recent
// settlement job succeeded.
func NewInvoiceService(
	participants domain.ParticipantStore,
	pledges domain.PledgeStore,
	jobs domain.SettlementJobStore,
	mails domain.MailStore,
	renderer *invoice.Renderer,
	archiver Archiver,
	notifier Notifier,
	requireSettled bool,
	logger *slog.Logger,
) *InvoiceService {
	return &InvoiceService{
		participants:   participants,
		pledges:        pledges,
		jobs:           jobs,
		mails:          mails,
		renderer:       renderer,
		archiver:       archiver,
		notifier:       notifier,
		requireSettled: requireSettled,
		logger:         logger.With(slog.String("component", "invoice_service")),
	}
}

// invoiceGroup collects one sponsor's settled pledges. Groups are keyed by
// the exact sponsor email string and ordered by first appearance.
type invoiceGroup struct {
	email       string
	sponsorName string
	lines       []invoice.Line
	total       float64
}

// Authorize applies the same admin check as settlement: invoice dispatch is
// an administrator action.
func (s *InvoiceService) Authorize(ctx context.Context, callerID string) error {
	if callerID == "" {
		return domain.ErrUnauthenticated
	}
	caller, err := s.participants.Get(ctx, callerID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrPermissionDenied
		}
		return fmt.Errorf("invoice: load caller %s: %w", callerID, err)
	}
	if !caller.IsAdmin() {
		return domain.ErrPermissionDenied
	}
	return nil
}

// Dispatch renders and enqueues one invoice per sponsor. Only pledges that
// carry a sponsor email and a frozen settled amount are billed; everything
// else is silently left out. The settled amount is the money that counts;
// lap counts on the invoice are read live and exist for display only.
//
// Returns the number of invoices enqueued.
func (s *InvoiceService) Dispatch(ctx context.Context, callerID string) (int, error) {
	if err := s.Authorize(ctx, callerID); err != nil {
		return 0, err
	}

	if s.requireSettled {
		if err := s.checkLastSettlement(ctx); err != nil {
			return 0, err
		}
	}

	participants, err := s.participants.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("invoice: list participants: %w", err)
	}
	byID := make(map[string]domain.Participant, len(participants))
	for _, p := range participants {
		byID[p.ID] = p
	}

	pledges, err := s.pledges.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("invoice: list pledges: %w", err)
	}

	// Group billable pledges by sponsor email, preserving first-seen order.
	groupIdx := make(map[string]int)
	var groups []*invoiceGroup
	for _, p := range pledges {
		if p.SponsorEmail == "" || !p.Settled() {
			continue
		}

		i, ok := groupIdx[p.SponsorEmail]
		if !ok {
			i = len(groups)
			groupIdx[p.SponsorEmail] = i
			groups = append(groups, &invoiceGroup{
				email:       p.SponsorEmail,
				sponsorName: p.SponsorName,
			})
		}
		g := groups[i]

		// A deleted or never-created participant renders as zero laps; the
		// frozen amount is unaffected.
		runner := byID[p.RunnerID]
		runnerName := runner.Name
		if runnerName == "" {
			runnerName = p.RunnerID
		}

		amount := *p.SettledAmount
		g.lines = append(g.lines, invoice.Line{
			RunnerName: runnerName,
			LapCount:   runner.LapCount,
			Kind:       p.Kind,
			UnitAmount: p.Amount,
			Amount:     amount,
		})
		g.total += amount
	}

	now := time.Now().UTC()
	for _, g := range groups {
		html, err := s.renderer.Render(invoice.Invoice{
			SponsorName: g.sponsorName,
			Lines:       g.lines,
			Total:       g.total,
		})
		if err != nil {
			return 0, fmt.Errorf("invoice: render for %s: %w", g.email, err)
		}

		msg := domain.MailMessage{
			ID:        uuid.New().String(),
			To:        []string{g.email},
			Subject:   s.renderer.Subject(),
			HTML:      html,
			CreatedAt: now,
		}
		if err := s.mails.Append(ctx, msg); err != nil {
			return 0, fmt.Errorf("invoice: enqueue mail for %s: %w", g.email, err)
		}
	}

	s.archive(ctx, now, groups)

	if len(groups) > 0 {
		s.notify(ctx, "invoices_dispatched", "Invoices dispatched",
			fmt.Sprintf("%d invoices queued for delivery", len(groups)))
	}

	s.logger.Info("invoices dispatched",
		slog.Int("invoice_count", len(groups)),
		slog.Int("pledge_count", len(pledges)),
	)
	return len(groups), nil
}

func (s *InvoiceService) notify(ctx context.Context, event, title, message string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, event, title, message); err != nil {
		s.logger.Warn("operator notification failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}

// checkLastSettlement enforces the dispatch fence: the most recent settlement
// job must exist and have succeeded.
func (s *InvoiceService) checkLastSettlement(ctx context.Context) error {
	job, err := s.jobs.Latest(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.ErrNotSettled
	}
	if err != nil {
		return fmt.Errorf("invoice: load latest settlement job: %w", err)
	}
	if job.Status != domain.JobSuccess {
		return domain.ErrNotSettled
	}
	return nil
}

// archive writes a JSON summary of the dispatch run to object storage.
// Best-effort: the invoices are already queued, so an archive failure is
// logged and swallowed.
func (s *InvoiceService) archive(ctx context.Context, ranAt time.Time, groups []*invoiceGroup) {
	if s.archiver == nil || len(groups) == 0 {
		return
	}

	type groupSummary struct {
		Email string  `json:"email"`
		Lines int     `json:"lines"`
		Total float64 `json:"total"`
	}
	summary := struct {
		RanAt    time.Time      `json:"ran_at"`
		Invoices []groupSummary `json:"invoices"`
	}{RanAt: ranAt}
	for _, g := range groups {
		summary.Invoices = append(summary.Invoices, groupSummary{
			Email: g.email,
			Lines: len(g.lines),
			Total: g.total,
		})
	}

	data, err := json.Marshal(summary)
	if err != nil {
		s.logger.Warn("marshal dispatch archive failed", slog.String("error", err.Error()))
		return
	}
	if err := s.archiver.ArchiveDispatchRun(ctx, ranAt, data); err != nil {
		s.logger.Warn("archive dispatch run failed", slog.String("error", err.Error()))
	}
}
