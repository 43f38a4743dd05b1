package pump

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/pump-sim/internal/utils/metrics"
)

const (
	pepe = "0x6982508145454Ce325dDbE47a25d4ec3d2311933"
	weth = "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"
)

type fakeBackend struct {
	mu        sync.Mutex
	input     int64
	output    int64
	err       error
	panicWith string
	calls     int
}

func (f *fakeBackend) GetPriceInput(tokenIn, tokenOut string, amount, fee int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.panicWith != "" {
		panic(f.panicWith)
	}
	return f.input, f.err
}

func (f *fakeBackend) GetPriceOutput(tokenIn, tokenOut string, amount, fee int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.panicWith != "" {
		panic(f.panicWith)
	}
	return f.output, f.err
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type engineFixture struct {
	engine  *Engine
	backend *fakeBackend
	store   *FileStore
	clock   *clock
	metrics *metrics.Collector
	path    string
}

func newFixture(t *testing.T, seed States) *engineFixture {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pump_token.json")
	store := NewFileStore(path, zap.NewNop())
	require.NoError(t, store.Save(seed))

	f := &engineFixture{
		backend: &fakeBackend{},
		store:   store,
		clock:   &clock{now: t0},
		metrics: metrics.NewCollector(),
		path:    path,
	}
	f.engine = NewEngine(store, f.backend, zap.NewNop(),
		WithClock(f.clock.Now),
		WithWorkers(2),
		WithMetrics(f.metrics))
	return f
}

func (f *engineFixture) load(t *testing.T) States {
	t.Helper()
	states, err := f.store.Load()
	require.NoError(t, err)
	return states
}

func (f *engineFixture) raw(t *testing.T) []byte {
	t.Helper()
	data, err := os.ReadFile(f.path)
	require.NoError(t, err)
	return data
}

func TestEngine_FirstOutputQuoteStartsPump(t *testing.T) {
	f := newFixture(t, States{{TokenAddress: pepe, IncreasePercentage: 10}})
	f.backend.output = 1_000_000

	got, err := f.engine.GetPriceOutput(context.Background(), pepe, weth, 1, 3000)
	require.NoError(t, err)
	assert.Equal(t, int64(1_000_000), got)

	st := f.load(t).Find(pepe)
	require.NotNil(t, st)
	assert.True(t, st.PumpStarted)
	assert.Equal(t, int64(1_000_000), st.InitialPrice)
	assert.Nil(t, st.CurrentPrice)
	assert.InDelta(t, unixSeconds(t0)-300, st.PumpedAt, 1e-3)
}

func TestEngine_OutputDecayScenario(t *testing.T) {
	f := newFixture(t, States{{
		TokenAddress:       pepe,
		PumpStarted:        true,
		InitialPrice:       1000,
		PumpedAt:           unixSeconds(t0.Add(-10 * time.Minute)),
		IncreasePercentage: 10,
	}})
	f.backend.output = 999

	got, err := f.engine.GetPriceOutput(context.Background(), pepe, weth, 1, 3000)
	require.NoError(t, err)
	assert.Equal(t, int64(500), got)

	st := f.load(t).Find(pepe)
	require.NotNil(t, st.CurrentPrice)
	assert.Equal(t, int64(500), *st.CurrentPrice)
	assert.Equal(t, int64(1000), st.InitialPrice)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Quotes().WithLabelValues(OpPriceOutput, metrics.OutcomeOK)))
}

func TestEngine_OutputMonotonicOverTime(t *testing.T) {
	f := newFixture(t, States{{TokenAddress: pepe, IncreasePercentage: 5}})
	f.backend.output = 5_000_000

	first, err := f.engine.GetPriceOutput(context.Background(), pepe, weth, 1, 3000)
	require.NoError(t, err)

	prev := first
	for i := 0; i < 20; i++ {
		f.clock.Advance(90 * time.Second)
		got, err := f.engine.GetPriceOutput(context.Background(), pepe, weth, 1, 3000)
		require.NoError(t, err)
		assert.LessOrEqual(t, got, prev)
		prev = got
	}
	assert.Less(t, prev, first)
}

func TestEngine_CaseInsensitiveLookup(t *testing.T) {
	f := newFixture(t, States{{
		TokenAddress:       "0xABCDEF",
		PumpStarted:        true,
		InitialPrice:       1000,
		CurrentPrice:       ptr(500),
		PumpedAt:           unixSeconds(t0.Add(-10 * time.Minute)),
		IncreasePercentage: 10,
	}})
	f.backend.input = 200

	got, err := f.engine.GetPriceInput(context.Background(), "0xabcdef", weth, 1, 3000)
	require.NoError(t, err)
	assert.Equal(t, int64(400), got)
}

func TestEngine_InputQuoteNeverMutatesState(t *testing.T) {
	f := newFixture(t, States{
		{TokenAddress: pepe, IncreasePercentage: 10},
		{TokenAddress: "0x2", PumpStarted: true, InitialPrice: 1000, CurrentPrice: ptr(500), PumpedAt: 1, IncreasePercentage: 10},
	})
	f.backend.input = 200
	before := f.raw(t)

	for _, token := range []string{pepe, "0x2", "0xunknown"} {
		_, err := f.engine.GetPriceInput(context.Background(), token, weth, 1, 3000)
		require.NoError(t, err)
	}
	assert.Equal(t, before, f.raw(t))
}

func TestEngine_NegativeOutputPassesThrough(t *testing.T) {
	f := newFixture(t, States{{TokenAddress: pepe, IncreasePercentage: 10}})
	f.backend.output = -1
	before := f.raw(t)

	got, err := f.engine.GetPriceOutput(context.Background(), pepe, weth, 1, 3000)
	require.NoError(t, err)
	assert.Equal(t, int64(-1), got)
	assert.Equal(t, before, f.raw(t))
	assert.False(t, f.load(t).Find(pepe).PumpStarted)
}

func TestEngine_UnknownTokenPassesThrough(t *testing.T) {
	f := newFixture(t, States{{TokenAddress: pepe, IncreasePercentage: 10}})
	f.backend.output = 321
	f.backend.input = 123

	got, err := f.engine.GetPriceOutput(context.Background(), "0xother", weth, 1, 3000)
	require.NoError(t, err)
	assert.Equal(t, int64(321), got)

	got, err = f.engine.GetPriceInput(context.Background(), "0xother", weth, 1, 3000)
	require.NoError(t, err)
	assert.Equal(t, int64(123), got)

	assert.False(t, f.load(t).Find(pepe).PumpStarted)
}

func TestEngine_BackendFailureLeavesStateUntouched(t *testing.T) {
	boom := errors.New("execution reverted")

	for _, tc := range []struct {
		name  string
		setup func(*fakeBackend)
	}{
		{"error", func(b *fakeBackend) { b.err = boom }},
		{"panic", func(b *fakeBackend) { b.panicWith = "node crashed" }},
	} {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, States{{TokenAddress: pepe, IncreasePercentage: 10}})
			tc.setup(f.backend)
			before := f.raw(t)

			_, err := f.engine.GetPriceOutput(context.Background(), pepe, weth, 1, 3000)
			assert.True(t, IsBackendError(err))

			_, err = f.engine.GetPriceInput(context.Background(), pepe, weth, 1, 3000)
			assert.True(t, IsBackendError(err))

			assert.Equal(t, before, f.raw(t))
			assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Quotes().WithLabelValues(OpPriceOutput, metrics.OutcomeBackendErr)))
		})
	}
}

func TestEngine_BackendErrorUnwraps(t *testing.T) {
	boom := errors.New("execution reverted")
	f := newFixture(t, States{})
	f.backend.err = boom

	_, err := f.engine.GetPriceOutput(context.Background(), pepe, weth, 1, 3000)
	assert.ErrorIs(t, err, boom)
}

func TestEngine_MissingStateFileFailsClosed(t *testing.T) {
	backend := &fakeBackend{output: 1}
	store := NewFileStore(filepath.Join(t.TempDir(), "missing.json"), zap.NewNop())
	engine := NewEngine(store, backend, zap.NewNop())

	_, err := engine.GetPriceOutput(context.Background(), pepe, weth, 1, 3000)
	assert.ErrorIs(t, err, ErrStateNotFound)

	_, err = engine.GetPriceInput(context.Background(), pepe, weth, 1, 3000)
	assert.ErrorIs(t, err, ErrStateNotFound)

	assert.Equal(t, 0, backend.calls, "backend must not be called without state")
}

func TestEngine_ConcurrentOutputQuotes(t *testing.T) {
	f := newFixture(t, States{
		{TokenAddress: pepe, IncreasePercentage: 10},
		{TokenAddress: "0x2", IncreasePercentage: 20},
	})
	f.backend.output = 10_000

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			token := pepe
			if i%2 == 1 {
				token = "0x2"
			}
			_, err := f.engine.GetPriceOutput(context.Background(), token, weth, 1, 3000)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	states := f.load(t)
	require.Len(t, states, 2)
	for _, st := range states {
		if st.PumpStarted {
			assert.Equal(t, int64(10_000), st.InitialPrice)
		}
	}
}

func TestEngine_NoOpsSucceed(t *testing.T) {
	f := newFixture(t, States{})
	ctx := context.Background()
	assert.NoError(t, f.engine.MakeTrade(ctx, pepe, weth, 1, 3000))
	assert.NoError(t, f.engine.MakeTradeOutput(ctx, pepe, weth, 1))
	assert.NoError(t, f.engine.Approve(ctx, pepe, 1<<62))
	assert.Equal(t, 0, f.backend.calls)
}

func TestEngine_CancelledCallerIsNotABackendError(t *testing.T) {
	f := newFixture(t, States{{TokenAddress: pepe, IncreasePercentage: 10}})
	f.backend.output = 1000
	f.backend.input = 1000
	before := f.raw(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.engine.GetPriceOutput(ctx, pepe, weth, 1, 3000)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, IsBackendError(err))

	_, err = f.engine.GetPriceInput(ctx, pepe, weth, 1, 3000)
	assert.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, 0, f.backend.calls)
	assert.Equal(t, before, f.raw(t))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Quotes().WithLabelValues(OpPriceOutput, metrics.OutcomeCancelled)))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Quotes().WithLabelValues(OpPriceInput, metrics.OutcomeCancelled)))
	assert.Zero(t, testutil.ToFloat64(f.metrics.Quotes().WithLabelValues(OpPriceOutput, metrics.OutcomeBackendErr)))
}
