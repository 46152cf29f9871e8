package indicators

import "math"

// TrueRange computes the true range for one bar. hasPrevClose must be
// false for the very first bar of a stream.
func TrueRange(high, low, prevClose float64, hasPrevClose bool) float64 {
	if !hasPrevClose {
		return high - low
	}
	return math.Max(high-low, math.Max(math.Abs(high-prevClose), math.Abs(low-prevClose)))
}

// ATR is Wilder-smoothed true range over a fixed period.
type ATR struct {
	wilder       *Wilder
	prevClose    float64
	hasPrevClose bool
}

// NewATR builds an ATR over the given period.
func NewATR(period int) *ATR {
	return &ATR{wilder: NewWilder(period)}
}

// Update feeds one new bar and returns the updated ATR value.
func (a *ATR) Update(high, low, close float64) float64 {
	tr := TrueRange(high, low, a.prevClose, a.hasPrevClose)
	a.prevClose = close
	a.hasPrevClose = true
	return a.wilder.Update(tr)
}

// Value returns the current ATR value without updating.
func (a *ATR) Value() float64 { return a.wilder.Value() }

// Initialized reports whether at least one bar has been fed.
func (a *ATR) Initialized() bool { return a.wilder.Initialized() }
