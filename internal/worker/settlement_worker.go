package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/ayo6706/payment-ledger/internal/observability"
	"github.com/ayo6706/payment-ledger/internal/service"
	"go.uber.org/zap"
)

// SettlementWorker advances pending transactions in the background.
// It polls for due transactions at regular intervals and processes them.
// Safe for concurrent instances thanks to lease claims and SKIP LOCKED.
type SettlementWorker struct {
	settlementService *service.SettlementService
	pollInterval      time.Duration
	batchSize         int32
	stopCh            chan struct{}
}

// NewSettlementWorker creates a new SettlementWorker instance.
func NewSettlementWorker(settlementSvc *service.SettlementService) *SettlementWorker {
	return &SettlementWorker{
		settlementService: settlementSvc,
		pollInterval:      10 * time.Second,
		batchSize:         10,
		stopCh:            make(chan struct{}),
	}
}

// WithPollInterval sets the poll interval for the worker.
func (w *SettlementWorker) WithPollInterval(interval time.Duration) *SettlementWorker {
	if interval > 0 {
		w.pollInterval = interval
	}
	return w
}

// WithBatchSize sets the batch size for the worker.
func (w *SettlementWorker) WithBatchSize(size int32) *SettlementWorker {
	if size > 0 {
		w.batchSize = size
	}
	return w
}

// Start begins the background worker.
// It runs in a loop until Stop is called or the context is canceled.
func (w *SettlementWorker) Start(ctx context.Context) {
	zap.L().Info("settlement worker starting",
		zap.Duration("poll_interval", w.pollInterval),
		zap.Int32("batch_size", w.batchSize))

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			zap.L().Info("settlement worker context canceled")
			return
		case <-w.stopCh:
			zap.L().Info("settlement worker stop signal received")
			return
		case <-ticker.C:
			w.processBatch(ctx)
		}
	}
}

// Stop signals the worker to stop.
func (w *SettlementWorker) Stop() {
	close(w.stopCh)
}

func (w *SettlementWorker) processBatch(ctx context.Context) {
	if err := w.settlementService.ProcessDue(ctx, w.batchSize); err != nil {
		observability.IncrementWorkerRun("settlement", "failed")
		zap.L().Error("settlement batch failed", zap.Error(err))
		return
	}
	observability.IncrementWorkerRun("settlement", "success")
}

// ProcessOnce processes a single batch immediately.
// Useful for testing or manual triggering.
func (w *SettlementWorker) ProcessOnce(ctx context.Context) error {
	return w.settlementService.ProcessDue(ctx, w.batchSize)
}

// Run starts the worker and returns a function that can be called to stop it.
func (w *SettlementWorker) Run(ctx context.Context) func() {
	go w.Start(ctx)
	return w.Stop
}

// String returns a string representation of the worker.
func (w *SettlementWorker) String() string {
	return fmt.Sprintf("SettlementWorker(interval=%v, batch=%d)", w.pollInterval, w.batchSize)
}
