// =============================
// File: internal/dex/amm/backend.go
// =============================
package amm

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	ErrPoolNotFound          = errors.New("pool not found")
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")
	ErrInvalidAmount         = errors.New("amount must be positive")
	ErrInvalidFee            = errors.New("fee out of range")
	ErrSimulatedFailure      = errors.New("simulated backend failure")
)

// Pool is a constant-product pool between two tokens.
type Pool struct {
	TokenA   string
	TokenB   string
	ReserveA uint64
	ReserveB uint64
}

// Options tune the simulated backend.
type Options struct {
	// Latency is slept before every quote to mimic an on-chain call.
	Latency time.Duration
	// FailureRate is the probability in [0,1) that a quote fails with ErrSimulatedFailure.
	FailureRate float64
	// Rand supplies randomness for failure injection; nil uses a time-seeded source.
	Rand *rand.Rand
}

// Backend quotes against in-memory constant-product pools.
// It is safe for concurrent use.
type Backend struct {
	mu     sync.RWMutex
	pools  map[string]*Pool
	opts   Options
	randMu sync.Mutex
	rnd    *rand.Rand
	logger *zap.Logger
}

// NewBackend creates an empty backend.
func NewBackend(opts Options, logger *zap.Logger) *Backend {
	rnd := opts.Rand
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Backend{
		pools:  make(map[string]*Pool),
		opts:   opts,
		rnd:    rnd,
		logger: logger,
	}
}

func pairKey(a, b string) string {
	a, b = strings.ToLower(a), strings.ToLower(b)
	if a > b {
		a, b = b, a
	}
	return a + "/" + b
}

// AddPool registers (or replaces) the pool for a token pair.
func (b *Backend) AddPool(p Pool) error {
	if p.TokenA == "" || p.TokenB == "" {
		return fmt.Errorf("pool tokens must be set")
	}
	if strings.EqualFold(p.TokenA, p.TokenB) {
		return fmt.Errorf("pool tokens must differ: %s", p.TokenA)
	}
	if p.ReserveA == 0 || p.ReserveB == 0 {
		return fmt.Errorf("pool %s/%s has empty reserves", p.TokenA, p.TokenB)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	pool := p
	b.pools[pairKey(p.TokenA, p.TokenB)] = &pool

	b.logger.Debug("Pool registered",
		zap.String("token_a", p.TokenA),
		zap.String("token_b", p.TokenB),
		zap.Uint64("reserve_a", p.ReserveA),
		zap.Uint64("reserve_b", p.ReserveB))
	return nil
}

// reserves returns (reserveIn, reserveOut) for the direction tokenIn → tokenOut.
func (b *Backend) reserves(tokenIn, tokenOut string) (uint64, uint64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	p, ok := b.pools[pairKey(tokenIn, tokenOut)]
	if !ok {
		return 0, 0, fmt.Errorf("%w: %s/%s", ErrPoolNotFound, tokenIn, tokenOut)
	}
	if strings.EqualFold(p.TokenA, tokenIn) {
		return p.ReserveA, p.ReserveB, nil
	}
	return p.ReserveB, p.ReserveA, nil
}

func (b *Backend) simulateCall() error {
	if b.opts.Latency > 0 {
		time.Sleep(b.opts.Latency)
	}
	if b.opts.FailureRate <= 0 {
		return nil
	}
	b.randMu.Lock()
	roll := b.rnd.Float64()
	b.randMu.Unlock()
	if roll < b.opts.FailureRate {
		return ErrSimulatedFailure
	}
	return nil
}

func validateQuote(amount, fee int64) error {
	if amount <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidAmount, amount)
	}
	if fee < 0 || fee >= FeeDenominator {
		return fmt.Errorf("%w: %d", ErrInvalidFee, fee)
	}
	return nil
}

// GetPriceInput returns how much tokenOut is received for amount of tokenIn.
func (b *Backend) GetPriceInput(tokenIn, tokenOut string, amount, fee int64) (int64, error) {
	if err := b.simulateCall(); err != nil {
		return 0, err
	}
	if err := validateQuote(amount, fee); err != nil {
		return 0, err
	}
	x, y, err := b.reserves(tokenIn, tokenOut)
	if err != nil {
		return 0, err
	}

	out := calculateOutput(x, y, uint64(amount), fee)
	return clampInt64(out), nil
}

// GetPriceOutput returns how much tokenIn is required to receive amount of tokenOut.
func (b *Backend) GetPriceOutput(tokenIn, tokenOut string, amount, fee int64) (int64, error) {
	if err := b.simulateCall(); err != nil {
		return 0, err
	}
	if err := validateQuote(amount, fee); err != nil {
		return 0, err
	}
	x, y, err := b.reserves(tokenIn, tokenOut)
	if err != nil {
		return 0, err
	}
	if uint64(amount) >= y {
		return 0, fmt.Errorf("%w: want %d, pool holds %d", ErrInsufficientLiquidity, amount, y)
	}

	in := calculateInput(x, y, uint64(amount), fee)
	return clampInt64(in), nil
}

func clampInt64(v uint64) int64 {
	if v > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(v)
}
