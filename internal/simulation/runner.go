package simulation

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/pump-sim/internal/dex"
	"github.com/rovshanmuradov/pump-sim/internal/pump"
)

// Result is the outcome of one quote request, after retries.
type Result struct {
	QuoteID   int
	Name      string
	Direction Direction
	Token     string
	Iteration int
	Value     int64
	Attempts  int
	Err       error
	At        time.Time
	Duration  time.Duration
}

// RunnerOptions configure the retry policy and fan-out of a Runner.
type RunnerOptions struct {
	Retries    int
	RetryDelay time.Duration
	Parallel   int
}

// Runner plays scenario quotes against a quote client, the way a trading bot would:
// backend failures are retried with exponential backoff, everything else is final.
type Runner struct {
	client dex.QuoteClient
	logger *zap.Logger
	opts   RunnerOptions
}

func NewRunner(client dex.QuoteClient, logger *zap.Logger, opts RunnerOptions) *Runner {
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	return &Runner{client: client, logger: logger, opts: opts}
}

// Run executes every quote entry concurrently and returns all results ordered by
// entry and iteration. Per-quote failures are reported in the results; the
// returned error is only set when ctx ends the run early.
func (r *Runner) Run(ctx context.Context, quotes []*Quote) ([]Result, error) {
	var (
		mu      sync.Mutex
		results []Result
	)

	g, gCtx := errgroup.WithContext(ctx)
	if r.opts.Parallel > 0 {
		g.SetLimit(r.opts.Parallel)
	}

	for _, q := range quotes {
		g.Go(func() error {
			log := r.logger.With(zap.String("quote", q.Name), zap.String("token", q.TokenIn))
			for i := 0; i < q.Repeat; i++ {
				if i > 0 && q.Interval > 0 {
					select {
					case <-gCtx.Done():
						return gCtx.Err()
					case <-time.After(q.Interval):
					}
				}
				if err := gCtx.Err(); err != nil {
					return err
				}

				res := r.execute(gCtx, q, i, log)
				mu.Lock()
				results = append(results, res)
				mu.Unlock()
			}
			return nil
		})
	}

	err := g.Wait()
	sort.Slice(results, func(i, j int) bool {
		if results[i].QuoteID != results[j].QuoteID {
			return results[i].QuoteID < results[j].QuoteID
		}
		return results[i].Iteration < results[j].Iteration
	})
	return results, err
}

func (r *Runner) execute(ctx context.Context, q *Quote, iteration int, log *zap.Logger) Result {
	start := time.Now()
	attempts := 0

	operation := func() (int64, error) {
		attempts++
		v, err := r.quote(ctx, q)
		if err != nil && !pump.IsBackendError(err) {
			return 0, backoff.Permanent(err)
		}
		return v, err
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = r.opts.RetryDelay
	policy.MaxInterval = r.opts.RetryDelay * 10

	notify := func(err error, d time.Duration) {
		log.Info("Retrying quote after backend error", zap.Error(err), zap.Duration("backoff", d))
	}

	value, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(uint(r.opts.Retries+1)),
		backoff.WithNotify(notify))

	res := Result{
		QuoteID:   q.ID,
		Name:      q.Name,
		Direction: q.Direction,
		Token:     q.TokenIn,
		Iteration: iteration,
		Value:     value,
		Attempts:  attempts,
		Err:       err,
		At:        start,
		Duration:  time.Since(start),
	}
	if err != nil {
		log.Error("Quote failed", zap.Int("iteration", iteration), zap.Int("attempts", attempts), zap.Error(err))
	} else {
		log.Info("Quote served",
			zap.String("direction", string(q.Direction)),
			zap.Int("iteration", iteration),
			zap.Int64("value", value))
	}
	return res
}

func (r *Runner) quote(ctx context.Context, q *Quote) (int64, error) {
	if q.Direction == DirectionInput {
		return r.client.GetPriceInput(ctx, q.TokenIn, q.TokenOut, q.Amount, q.Fee)
	}
	return r.client.GetPriceOutput(ctx, q.TokenIn, q.TokenOut, q.Amount, q.Fee)
}
