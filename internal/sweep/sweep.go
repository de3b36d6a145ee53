// Package sweep removes aged proof images and detaches their ticket
// references. Storage delete and database update are deliberately
// separate steps; a crash in between leaves a dangling reference, which
// the client renders as a missing proof.
package sweep

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/pgpay/pgpay-backend/internal/proofstore"
)

// TicketDetacher nulls proof references after the object is gone.
type TicketDetacher interface {
	ClearProofReferences(ctx context.Context, path string) (int64, error)
}

// Report summarizes one sweep run.
type Report struct {
	Deleted      int       `json:"deleted_count"`
	Errors       int       `json:"error_count"`
	DeletedPaths []string  `json:"deleted_paths,omitempty"`
	Cutoff       time.Time `json:"cutoff"`
}

// Run deletes every proof older than retention and clears the referencing
// ticket rows. Per-object failures are counted and skipped, never fatal;
// only a failure to list the bucket aborts the run.
func Run(ctx context.Context, log *zap.Logger, proofs proofstore.Store, tickets TicketDetacher, retention time.Duration) (Report, error) {
	cutoff := time.Now().Add(-retention)
	report := Report{Cutoff: cutoff}

	objects, err := proofs.List(ctx, "")
	if err != nil {
		return report, err
	}

	for _, obj := range objects {
		if !obj.CreatedAt.Before(cutoff) {
			continue
		}
		if err := proofs.Remove(ctx, obj.Path); err != nil {
			log.Error("delete proof", zap.String("path", obj.Path), zap.Error(err))
			report.Errors++
			continue
		}
		report.Deleted++
		report.DeletedPaths = append(report.DeletedPaths, obj.Path)
	}

	for _, path := range report.DeletedPaths {
		cleared, err := tickets.ClearProofReferences(ctx, path)
		if err != nil {
			log.Error("clear proof reference", zap.String("path", path), zap.Error(err))
			report.Errors++
			continue
		}
		if cleared > 0 {
			log.Info("detached proof", zap.String("path", path), zap.Int64("tickets", cleared))
		}
	}

	log.Info("sweep finished",
		zap.Int("deleted", report.Deleted),
		zap.Int("errors", report.Errors),
		zap.Time("cutoff", cutoff),
	)
	return report, nil
}
