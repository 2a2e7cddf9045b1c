package orders

import (
	"context"
	"time"

	"github.com/bhadmusolaide/modern-ecom-with-admin-panel-sub001/pkg/config"
	"github.com/bhadmusolaide/modern-ecom-with-admin-panel-sub001/pkg/payments"
	"github.com/bhadmusolaide/modern-ecom-with-admin-panel-sub001/pkg/repository"
	"go.uber.org/zap"
)

const reconcilerBatchSize = 50

// Reconciler drives submitted refunds to a terminal state. Each pass loads
// the pending ledger rows, skips the ones still inside their backoff window,
// and asks the provider where the rest stand.
type Reconciler struct {
	proc         *RefundProcessor
	ledger       Ledger
	interval     time.Duration
	maxBackoff   time.Duration
	settleWithin time.Duration
	logger       *zap.Logger
}

func NewReconciler(proc *RefundProcessor, ledger Ledger, cfg *config.ReconcilerConfig, logger *zap.Logger) *Reconciler {
	return &Reconciler{
		proc:         proc,
		ledger:       ledger,
		interval:     cfg.PollInterval,
		maxBackoff:   cfg.MaxBackoff,
		settleWithin: cfg.SettleWithin,
		logger:       logger,
	}
}

// Run polls until the context is cancelled.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("reconciler started",
		zap.Duration("interval", r.interval),
		zap.Duration("max_backoff", r.maxBackoff),
		zap.Duration("settle_within", r.settleWithin))

	for {
		r.runOnce(ctx)
		select {
		case <-ctx.Done():
			r.logger.Info("reconciler stopped")
			return
		case <-ticker.C:
		}
	}
}

func (r *Reconciler) runOnce(ctx context.Context) {
	records, err := r.ledger.PendingRefunds(ctx, reconcilerBatchSize)
	if err != nil {
		r.logger.Error("pending refund load failed", zap.Error(err))
		return
	}

	now := time.Now()
	for i := range records {
		record := &records[i]
		if ctx.Err() != nil {
			return
		}
		if !r.due(record, now) {
			continue
		}

		if r.settleWithin > 0 && now.Sub(record.CreatedAt) > r.settleWithin {
			r.logger.Warn("refund never settled, marking stale",
				zap.String("refund_id", record.ID),
				zap.String("order_id", record.OrderID),
				zap.Int("attempts", record.Attempts))
			if err := r.proc.Fail(ctx, record, repository.RefundStale); err != nil {
				r.logger.Error("stale refund handling failed", zap.String("refund_id", record.ID), zap.Error(err))
			}
			continue
		}

		state, err := r.proc.CheckSettlement(ctx, record)
		if err != nil {
			r.logger.Warn("refund status check failed",
				zap.String("refund_id", record.ID),
				zap.String("order_id", record.OrderID),
				zap.Error(err))
			continue
		}

		switch state {
		case payments.RefundSucceeded:
			if err := r.proc.Settle(ctx, record, time.Now()); err != nil {
				r.logger.Error("refund settlement failed", zap.String("refund_id", record.ID), zap.Error(err))
			}
		case payments.RefundRejected:
			if err := r.proc.Fail(ctx, record, repository.RefundFailed); err != nil {
				r.logger.Error("refund failure handling failed", zap.String("refund_id", record.ID), zap.Error(err))
			}
		}
	}
}

// due reports whether the record's backoff window has elapsed.
func (r *Reconciler) due(record *repository.RefundRecord, now time.Time) bool {
	if record.LastCheckedAt == nil {
		return true
	}
	return now.Sub(*record.LastCheckedAt) >= r.backoff(record.Attempts)
}

// backoff doubles the poll interval per attempt, capped at maxBackoff.
func (r *Reconciler) backoff(attempts int) time.Duration {
	d := r.interval
	for i := 0; i < attempts; i++ {
		d *= 2
		if d >= r.maxBackoff {
			return r.maxBackoff
		}
	}
	return d
}
