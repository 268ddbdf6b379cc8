package s3blob

import (
	"context"
	"fmt"
	"time"

	"github.com/sponsorenlauf/backend/internal/domain"
)

// Archiver uploads a JSON summary of each invoice dispatch run, keyed by the
// run timestamp. The archive is the audit trail for what was billed when; it
// is written after the mail queue, so a failed upload never loses an invoice.
type Archiver struct {
	writer domain.BlobWriter
}

// NewArchiver creates a new Archiver on top of the given writer.
func NewArchiver(writer domain.BlobWriter) *Archiver {
	return &Archiver{writer: writer}
}

// ArchiveDispatchRun uploads the summary to invoices/runs/<timestamp>.json.
func (a *Archiver) ArchiveDispatchRun(ctx context.Context, ranAt time.Time, summary []byte) error {
	path := fmt.Sprintf("invoices/runs/%s.json", ranAt.UTC().Format("2006-01-02T15-04-05Z"))
	if err := a.writer.Put(ctx, path, summary, "application/json"); err != nil {
		return fmt.Errorf("s3blob: archive dispatch run: %w", err)
	}
	return nil
}
