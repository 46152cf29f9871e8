package indicators

// MACD computes the standard 12/26/9 moving-average convergence
// divergence: line = ema(fast) - ema(slow), signal = ema(signalPeriod)
// over line, hist = line - signal. Hist is unavailable until the signal
// EMA has received at least one input — callers must propagate null
// rather than substitute zero.
type MACD struct {
	fast, slow, signal *EMA
}

// NewMACD builds a MACD with the given periods (12,26,9 by
// convention).
func NewMACD(fastPeriod, slowPeriod, signalPeriod int) *MACD {
	return &MACD{
		fast:   NewEMA(fastPeriod),
		slow:   NewEMA(slowPeriod),
		signal: NewEMA(signalPeriod),
	}
}

// Result is one bar's MACD output.
type Result struct {
	Line          float64
	Signal        float64
	Hist          float64
	HistAvailable bool
}

// Update feeds one new close and returns the updated MACD result.
func (m *MACD) Update(close float64) Result {
	fast := m.fast.Update(close)
	slow := m.slow.Update(close)
	line := fast - slow

	wasInitialized := m.signal.Initialized()
	signal := m.signal.Update(line)

	res := Result{Line: line, Signal: signal}
	if wasInitialized {
		res.Hist = line - signal
		res.HistAvailable = true
	}
	return res
}
