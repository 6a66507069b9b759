package application

import (
	"context"
	"sync"
	"time"

	"github.com/marketplace-platform/webhook-service/pkg/logging"
)

// OutboxCleaner removes relayed outbox events.
type OutboxCleaner interface {
	DeletePublishedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// LedgerCleaner removes expired processed-event records.
type LedgerCleaner interface {
	Clean(ctx context.Context, before time.Time) (int64, error)
}

// HousekeepingConfig holds sweep settings
type HousekeepingConfig struct {
	Interval        time.Duration
	OutboxRetention time.Duration
}

// Housekeeper periodically purges aged records owned by this service.
// One instance runs per process and only deletes its own records.
type Housekeeper struct {
	outbox OutboxCleaner
	ledger LedgerCleaner
	config HousekeepingConfig
	logger *logging.Logger
	now    func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewHousekeeper creates a new Housekeeper. ledger may be nil.
func NewHousekeeper(outbox OutboxCleaner, ledger LedgerCleaner, config HousekeepingConfig, logger *logging.Logger) *Housekeeper {
	if config.Interval <= 0 {
		config.Interval = time.Hour
	}
	if config.OutboxRetention <= 0 {
		config.OutboxRetention = 7 * 24 * time.Hour
	}
	return &Housekeeper{
		outbox: outbox,
		ledger: ledger,
		config: config,
		logger: logger.WithComponent("housekeeping"),
		now:    time.Now,
	}
}

// Start runs the sweep every interval until Stop or ctx cancellation.
func (h *Housekeeper) Start(ctx context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancel != nil {
		return
	}

	ctx, h.cancel = context.WithCancel(ctx)
	h.done = make(chan struct{})
	go func(done chan struct{}) {
		defer close(done)
		ticker := time.NewTicker(h.config.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				h.RunOnce(ctx)
			}
		}
	}(h.done)
}

// Stop halts the sweep and waits for an in-flight run to finish.
func (h *Housekeeper) Stop() {
	h.mu.Lock()
	cancel, done := h.cancel, h.done
	h.cancel, h.done = nil, nil
	h.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// RunOnce performs a single sweep. Failures are logged and retried next tick.
func (h *Housekeeper) RunOnce(ctx context.Context) {
	now := h.now().UTC()

	if h.outbox != nil {
		deleted, err := h.outbox.DeletePublishedBefore(ctx, now.Add(-h.config.OutboxRetention))
		if err != nil {
			h.logger.WithError(err).Error("Failed to purge published outbox events")
		} else if deleted > 0 {
			h.logger.Info("Purged published outbox events", "deleted", deleted)
		}
	}

	if h.ledger != nil {
		deleted, err := h.ledger.Clean(ctx, now)
		if err != nil {
			h.logger.WithError(err).Error("Failed to purge processed events")
		} else if deleted > 0 {
			h.logger.Info("Purged processed events", "deleted", deleted)
		}
	}
}
