package indicators

// RSI implements the 14-period relative strength index with Wilder
// smoothing of average gain/loss. The first bar of any stream has no
// previous close and reports RSI=50 without updating the averages.
type RSI struct {
	avgGain, avgLoss *Wilder
	prevClose        float64
	hasPrevClose     bool
}

// NewRSI builds an RSI over the given period (14 by convention).
func NewRSI(period int) *RSI {
	return &RSI{avgGain: NewWilder(period), avgLoss: NewWilder(period)}
}

// Update feeds one new close and returns the updated RSI value in [0,100].
func (r *RSI) Update(close float64) float64 {
	if !r.hasPrevClose {
		r.prevClose = close
		r.hasPrevClose = true
		return 50
	}

	gain, loss := 0.0, 0.0
	if delta := close - r.prevClose; delta > 0 {
		gain = delta
	} else {
		loss = -delta
	}
	r.prevClose = close

	avgGain := r.avgGain.Update(gain)
	avgLoss := r.avgLoss.Update(loss)

	switch {
	case avgLoss == 0 && avgGain > 0:
		return 100
	case avgGain == 0 && avgLoss == 0:
		return 50
	default:
		rs := avgGain / avgLoss
		return 100 - 100/(1+rs)
	}
}
