// =============================
// File: internal/dex/amm/calculations.go
// =============================
package amm

import (
	"math"
	"math/big"
)

// FeeDenominator: комиссия задаётся в сотых долях базисного пункта (3000 = 0.3%).
const FeeDenominator = 1_000_000

var feeDenominator = big.NewInt(FeeDenominator)

// calculateOutput вычисляет выходное количество токенов по формуле Constant Product AMM
// в целых числах, без потери точности на комиссии:
// outputAmount = floor(y * a * (D - fee) / (x * D + a * (D - fee))), где:
// - x - резервы входного токена
// - y - резервы выходного токена
// - a - входное количество
// - D - FeeDenominator
func calculateOutput(reserves, otherReserves, amount uint64, fee int64) uint64 {
	x := new(big.Int).SetUint64(reserves)
	y := new(big.Int).SetUint64(otherReserves)
	a := new(big.Int).SetUint64(amount)

	// a * (D - fee)
	a.Mul(a, big.NewInt(FeeDenominator-fee))

	numerator := new(big.Int).Mul(y, a)
	denominator := new(big.Int).Mul(x, feeDenominator)
	denominator.Add(denominator, a)

	return toUint64(numerator.Quo(numerator, denominator))
}

// calculateInput вычисляет, сколько входного токена нужно, чтобы получить output:
// inputAmount = ceil(x * output * D / ((y - output) * (D - fee))).
// The caller guarantees output < otherReserves and fee < D, so
// calculateOutput(calculateInput(out)) >= out always holds.
func calculateInput(reserves, otherReserves, output uint64, fee int64) uint64 {
	numerator := new(big.Int).SetUint64(reserves)
	numerator.Mul(numerator, new(big.Int).SetUint64(output))
	numerator.Mul(numerator, feeDenominator)

	denominator := new(big.Int).SetUint64(otherReserves - output)
	denominator.Mul(denominator, big.NewInt(FeeDenominator-fee))

	quo, rem := new(big.Int).QuoRem(numerator, denominator, new(big.Int))
	if rem.Sign() > 0 {
		quo.Add(quo, big.NewInt(1))
	}
	return toUint64(quo)
}

func toUint64(v *big.Int) uint64 {
	if !v.IsUint64() {
		return math.MaxUint64
	}
	return v.Uint64()
}
