// =============================
// File: internal/pump/invoker.go
// =============================
package pump

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/rovshanmuradov/pump-sim/internal/utils/metrics"
)

// DefaultWorkers is the default number of concurrent backend calls.
const DefaultWorkers = 5

// Invoker runs blocking pricing-backend calls on a fixed-size pool so one slow
// quote cannot starve the others.
type Invoker struct {
	sem     *semaphore.Weighted
	size    int
	logger  *zap.Logger
	metrics *metrics.Collector
}

// NewInvoker creates an invoker with room for workers concurrent calls.
// Non-positive values fall back to DefaultWorkers.
func NewInvoker(workers int, logger *zap.Logger, mc *metrics.Collector) *Invoker {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Invoker{
		sem:     semaphore.NewWeighted(int64(workers)),
		size:    workers,
		logger:  logger,
		metrics: mc,
	}
}

// Size returns the pool capacity.
func (inv *Invoker) Size() int {
	return inv.size
}

// Invoke waits for a free slot and runs fn to completion.
// ctx only bounds the wait for a slot; a started backend call is never interrupted.
// An abandoned wait returns ctx.Err() as is. Every failure of fn, including a
// panic, comes back as *BackendError.
func (inv *Invoker) Invoke(ctx context.Context, op, token string, fn func() (int64, error)) (int64, error) {
	if err := inv.sem.Acquire(ctx, 1); err != nil {
		// abandoned before the backend was reached
		return 0, err
	}
	defer inv.sem.Release(1)

	start := time.Now()
	result, err := safeCall(fn)
	inv.metrics.RecordBackendCall(op, time.Since(start), err == nil)

	if err != nil {
		inv.logger.Warn("Pricing backend call failed",
			zap.String("op", op),
			zap.String("token", token),
			zap.Error(err))
		return 0, &BackendError{Op: op, Token: token, Err: err}
	}
	return result, nil
}

func safeCall(fn func() (int64, error)) (result int64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("backend panic: %v", r)
		}
	}()
	return fn()
}
