// =============================
// File: internal/pump/engine.go
// =============================
package pump

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/pump-sim/internal/dex"
	"github.com/rovshanmuradov/pump-sim/internal/utils/metrics"
)

const (
	OpPriceInput  = "get_price_input"
	OpPriceOutput = "get_price_output"
)

// Backend is the external pricing backend the engine wraps.
// Calls are synchronous and may block for a long time.
type Backend interface {
	GetPriceInput(tokenIn, tokenOut string, amount, fee int64) (int64, error)
	GetPriceOutput(tokenIn, tokenOut string, amount, fee int64) (int64, error)
}

// Engine distorts backend quotes for tokens that are being pumped.
// Every call is a fresh load → quote → transform → save cycle; no state is cached.
type Engine struct {
	store   Store
	backend Backend
	invoker *Invoker
	logger  *zap.Logger
	metrics *metrics.Collector
	now     func() time.Time
	workers int
}

var _ dex.QuoteClient = (*Engine)(nil)

// Option configures an Engine.
type Option func(*Engine)

// WithWorkers sets the backend pool size.
func WithWorkers(n int) Option {
	return func(e *Engine) { e.workers = n }
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithMetrics attaches a metrics collector.
func WithMetrics(mc *metrics.Collector) Option {
	return func(e *Engine) { e.metrics = mc }
}

// NewEngine wires a store and a backend into a quote engine.
func NewEngine(store Store, backend Backend, logger *zap.Logger, opts ...Option) *Engine {
	e := &Engine{
		store:   store,
		backend: backend,
		logger:  logger,
		now:     time.Now,
		workers: DefaultWorkers,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.invoker = NewInvoker(e.workers, logger, e.metrics)
	return e
}

// GetPriceInput returns the backend input quote, scaled by initial/current price
// when tokenIn has a started pump. Pump state is never modified here.
func (e *Engine) GetPriceInput(ctx context.Context, tokenIn, tokenOut string, amount, fee int64) (int64, error) {
	states, err := e.store.Load()
	if err != nil {
		e.metrics.RecordQuote(OpPriceInput, metrics.OutcomeStateErr)
		return 0, err
	}

	result, err := e.invoker.Invoke(ctx, OpPriceInput, tokenIn, func() (int64, error) {
		return e.backend.GetPriceInput(tokenIn, tokenOut, amount, fee)
	})
	if err != nil {
		e.metrics.RecordQuote(OpPriceInput, failureOutcome(err))
		return 0, err
	}

	st := states.Find(tokenIn)
	if st == nil || !st.PumpStarted {
		e.metrics.RecordQuote(OpPriceInput, metrics.OutcomePassthrough)
		return result, nil
	}

	distorted, err := TransformInput(result, st)
	if err != nil {
		e.metrics.RecordQuote(OpPriceInput, metrics.OutcomeStateErr)
		return 0, err
	}

	e.logger.Info("Simulated get_price_input",
		zap.String("token", tokenIn),
		zap.Int64("raw", result),
		zap.Int64("initial_price", st.InitialPrice),
		zap.Int64("current_price", st.EffectiveCurrentPrice()),
		zap.Int64("result", distorted))
	e.metrics.RecordQuote(OpPriceInput, metrics.OutcomeOK)
	return distorted, nil
}

// GetPriceOutput returns the backend output quote with the pump decay applied.
// The first call for an idle token starts its pump and returns the raw value.
// The whole collection is persisted before returning, unless the backend
// reported a negative sentinel.
func (e *Engine) GetPriceOutput(ctx context.Context, tokenIn, tokenOut string, amount, fee int64) (int64, error) {
	var result int64
	outcome := metrics.OutcomePassthrough

	err := Transact(e.store, func(states States) (bool, error) {
		raw, err := e.invoker.Invoke(ctx, OpPriceOutput, tokenIn, func() (int64, error) {
			return e.backend.GetPriceOutput(tokenIn, tokenOut, amount, fee)
		})
		if err != nil {
			return false, err
		}
		e.logger.Debug("Backend output quote",
			zap.String("token", tokenIn),
			zap.Int64("raw", raw))

		result = raw
		if raw < 0 {
			return false, nil
		}

		st := states.Find(tokenIn)
		if st == nil {
			return true, nil
		}

		now := e.now()
		wasStarted := st.PumpStarted
		distorted, _, err := TransformOutput(raw, st, now)
		if err != nil {
			return false, err
		}
		result = distorted

		if !wasStarted {
			e.logger.Info("Pump started",
				zap.String("token", st.TokenAddress),
				zap.Int64("initial_price", st.InitialPrice),
				zap.Time("pumped_at", st.PumpedAtTime()))
		} else {
			outcome = metrics.OutcomeOK
			e.logger.Info("Simulated get_price_output",
				zap.String("token", st.TokenAddress),
				zap.Int64("raw", raw),
				zap.Int64("result", distorted),
				zap.Float64("increase_pct", PercentIncrease(st.PumpedAt, st.IncreasePercentage, now)))
			e.metrics.SetPumpAmount(st.TokenAddress, distorted)
		}
		return true, nil
	})
	if err != nil {
		e.metrics.RecordQuote(OpPriceOutput, failureOutcome(err))
		return 0, err
	}

	e.metrics.RecordQuote(OpPriceOutput, outcome)
	return result, nil
}

// failureOutcome maps a failed quote to its metric outcome.
func failureOutcome(err error) string {
	switch {
	case IsBackendError(err):
		return metrics.OutcomeBackendErr
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return metrics.OutcomeCancelled
	default:
		return metrics.OutcomeStateErr
	}
}

// MakeTrade is a no-op kept for parity with a real DEX client.
func (e *Engine) MakeTrade(ctx context.Context, tokenAddress, nativeTokenAddress string, tradeAmount, fee int64) error {
	return nil
}

// MakeTradeOutput is a no-op kept for parity with a real DEX client.
func (e *Engine) MakeTradeOutput(ctx context.Context, tokenAddress, nativeTokenAddress string, tradeAmount int64) error {
	return nil
}

// Approve is a no-op kept for parity with a real DEX client.
func (e *Engine) Approve(ctx context.Context, tokenAddress string, maxApproval int64) error {
	return nil
}
