package jobs

import (
	"context"
	"log/slog"
	"time"
)

type Task interface {
	Name() string
	Start(context.Context)
}

// Purger removes stale export files.
type Purger interface {
	Purge(retention time.Duration) (int, error)
}

type PurgeExports struct {
	exports   Purger
	retention time.Duration
	log       *slog.Logger
}

func (t *PurgeExports) Name() string {
	return "PurgeExports"
}

func (t *PurgeExports) Start(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	t.log.DebugContext(ctx, "task started", "task", t.Name())

	n, err := t.exports.Purge(t.retention)
	if err != nil {
		t.log.ErrorContext(ctx, "purge exports failed", "error", err, "removed", n)
		return
	}
	if n > 0 {
		t.log.InfoContext(ctx, "purged exports", "removed", n, "retention", t.retention)
	}
}
