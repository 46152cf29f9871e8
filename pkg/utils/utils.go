// Package utils provides small numeric and ID helpers shared across
// the engine.
package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/shopspring/decimal"
)

// GenerateID generates a random hex ID with an optional prefix. Used for
// identifiers that do not need to be globally unique across processes
// (uuid.New is used everywhere that does).
func GenerateID(prefix string) string {
	b := make([]byte, 8)
	rand.Read(b)
	id := hex.EncodeToString(b)
	if prefix != "" {
		return fmt.Sprintf("%s_%s", prefix, id)
	}
	return id
}

// NormalizeVolume rounds volume down to the nearest lotStep and clamps
// it to zero if below minLot. Exact lot step and minimum lot are
// broker-specific; callers needing a different convention can round
// their own broker.Adapter result instead.
func NormalizeVolume(volume, lotStep, minLot decimal.Decimal) decimal.Decimal {
	if lotStep.IsZero() {
		lotStep = decimal.NewFromFloat(0.01)
	}
	normalized := volume.Div(lotStep).Floor().Mul(lotStep)
	if normalized.LessThan(minLot) {
		return decimal.Zero
	}
	return normalized
}

// RoundToTickSize rounds a price down to the nearest tick size.
func RoundToTickSize(price, tickSize decimal.Decimal) decimal.Decimal {
	if tickSize.IsZero() {
		return price
	}
	return price.Div(tickSize).Floor().Mul(tickSize)
}
