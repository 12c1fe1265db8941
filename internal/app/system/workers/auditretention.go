// internal/app/system/workers/auditretention.go
package workers

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kneetrack/kneetrack/internal/app/store/audit"
)

// AuditRetention is a background worker that prunes audit log entries older
// than the configured retention window. It backstops the TTL index so
// deployments without TTL support (e.g. DocumentDB variants) still converge.
type AuditRetention struct {
	audits    *audit.Store
	log       *zap.Logger
	interval  time.Duration
	retention time.Duration
	stopCh    chan struct{}
	wg        sync.WaitGroup
}

// NewAuditRetention creates a new audit retention worker.
//
// Parameters:
//   - auditStore: the audit log store
//   - logger: zap logger for logging
//   - interval: how often to run pruning (e.g., 1 hour)
//   - retention: how long entries are kept (e.g., 2 years)
func NewAuditRetention(auditStore *audit.Store, logger *zap.Logger, interval, retention time.Duration) *AuditRetention {
	return &AuditRetention{
		audits:    auditStore,
		log:       logger,
		interval:  interval,
		retention: retention,
		stopCh:    make(chan struct{}),
	}
}

// Start begins the background pruning loop.
func (w *AuditRetention) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("audit retention worker started",
		zap.Duration("interval", w.interval),
		zap.Duration("retention", w.retention))
}

// Stop signals the worker to stop and waits for it to finish.
func (w *AuditRetention) Stop() {
	close(w.stopCh)
	w.wg.Wait()
	w.log.Info("audit retention worker stopped")
}

func (w *AuditRetention) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.prune()
		}
	}
}

func (w *AuditRetention) prune() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cutoff := time.Now().Add(-w.retention)
	count, err := w.audits.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		w.log.Error("failed to prune audit logs", zap.Error(err))
		return
	}

	if count > 0 {
		w.log.Info("pruned expired audit logs", zap.Int64("count", count))
	}
}
