package job

import (
	"context"
	"log/slog"
	"time"

	"github.com/JuacoStudios/formai-backend/internal/repository"
)

// Webhook ledger rows are kept well past any provider's redelivery horizon
// before their payloads are pruned.
const ledgerRetention = 90 * 24 * time.Hour

type LedgerPruneJob struct {
	w repository.WebhookEventRepository
}

func NewLedgerPruneJob(w repository.WebhookEventRepository) *LedgerPruneJob {
	return &LedgerPruneJob{w: w}
}

func (j *LedgerPruneJob) Prune() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cutoff := time.Now().Add(-ledgerRetention)
	deleted, err := j.w.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		slog.Error("pruning webhook ledger failed", "error", err)
		return
	}
	if deleted > 0 {
		slog.Info("pruned webhook ledger", "deleted", deleted, "cutoff", cutoff)
	}
}
