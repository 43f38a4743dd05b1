// =============================
// File: internal/dex/dex.go
// =============================
package dex

import "context"

// QuoteClient: единый интерфейс DEX-клиента, который видит торговый бот.
// A simulated engine and a real exchange client are interchangeable behind it.
type QuoteClient interface {
	// GetPriceInput quotes the output obtained for amount of tokenIn.
	GetPriceInput(ctx context.Context, tokenIn, tokenOut string, amount, fee int64) (int64, error)
	// GetPriceOutput quotes the input required to receive amount of tokenOut.
	GetPriceOutput(ctx context.Context, tokenIn, tokenOut string, amount, fee int64) (int64, error)

	MakeTrade(ctx context.Context, tokenAddress, nativeTokenAddress string, tradeAmount, fee int64) error
	MakeTradeOutput(ctx context.Context, tokenAddress, nativeTokenAddress string, tradeAmount int64) error
	Approve(ctx context.Context, tokenAddress string, maxApproval int64) error
}
