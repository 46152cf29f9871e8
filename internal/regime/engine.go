package regime

import (
	"strings"
	"sync"

	"github.com/atlas-desktop/pulsecore/internal/indicators"
	"github.com/atlas-desktop/pulsecore/pkg/types"
	"github.com/shopspring/decimal"
)

type key struct {
	symbol    string
	timeframe types.Timeframe
}

// Transition describes a committed regime change, returned by Process
// so the owning service can decide whether to publish RegimeChanged.
type Transition struct {
	Old          types.RegimeLabel
	New          types.RegimeLabel
	Confidence   float64
	IsTransition bool
}

// symbolState is all per-(symbol,timeframe) mutable state: indicator
// chains, BB-width history for the percentile threshold, the regime
// persistence counters, the optional HTF bias, and the bounded
// recent-rows ring buffer.
type symbolState struct {
	barCount int

	ema20, ema50, ema200 *indicators.EMA
	atr14, atr50         *indicators.ATR
	rsi14                *indicators.RSI
	macd                 *indicators.MACD
	closesWindow         *indicators.RollingWindow
	bbWidthHistory       *indicators.RollingWindow

	prevEMA20     float64
	havePrevEMA20 bool
	prevRegime    types.RegimeLabel

	committed           types.RegimeLabel
	haveCommitted       bool
	pending             types.RegimeLabel
	pendingCount        int
	transitionRemaining int

	htf *htfState

	recentRows []types.EnrichedRow // ring, oldest first
}

func newSymbolState(cfg Config) *symbolState {
	s := &symbolState{
		ema20:          indicators.NewEMA(20),
		ema50:          indicators.NewEMA(50),
		ema200:         indicators.NewEMA(200),
		atr14:          indicators.NewATR(14),
		atr50:          indicators.NewATR(50),
		rsi14:          indicators.NewRSI(14),
		macd:           indicators.NewMACD(12, 26, 9),
		closesWindow:   indicators.NewRollingWindow(20),
		bbWidthHistory: indicators.NewRollingWindow(cfg.BBThresholdLen),
	}
	if cfg.HTF != nil {
		s.htf = newHTFState(*cfg.HTF)
	}
	return s
}

// Engine holds all (symbol, timeframe) state and exposes a pure,
// no-look-ahead Process function: identical input streams produce
// identical outputs.
type Engine struct {
	mu     sync.Mutex
	cfg    Config
	states map[key]*symbolState
}

// New builds an Engine with the given configuration.
func New(cfg Config) *Engine {
	return &Engine{cfg: cfg, states: make(map[key]*symbolState)}
}

func (e *Engine) stateFor(symbol string, tf types.Timeframe) *symbolState {
	k := key{symbol, tf}
	s, ok := e.states[k]
	if !ok {
		s = newSymbolState(e.cfg)
		e.states[k] = s
	}
	return s
}

// Process feeds one new closed candle for (symbol, timeframe) and
// returns the enriched row, the updated recent-rows snapshot, and a
// non-nil Transition when the committed regime just changed.
func (e *Engine) Process(symbol string, tf types.Timeframe, candle types.Candle) (types.EnrichedRow, []types.EnrichedRow, *Transition) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.stateFor(symbol, tf)
	close := candle.Close.InexactFloat64()
	high := candle.High.InexactFloat64()
	low := candle.Low.InexactFloat64()

	ema20 := s.ema20.Update(close)
	ema50 := s.ema50.Update(close)
	ema200 := s.ema200.Update(close)
	atr14 := s.atr14.Update(high, low, close)
	atr50 := s.atr50.Update(high, low, close)
	rsi14 := s.rsi14.Update(close)
	macd := s.macd.Update(close)

	s.closesWindow.Push(close)
	bbWidth := indicators.BollingerWidth(s.closesWindow.Values())

	if s.htf != nil {
		s.htf.observe(close)
	}

	row := types.EnrichedRow{
		Candle:         candle,
		EMA20:          decimal.NewFromFloat(ema20),
		EMA50:          decimal.NewFromFloat(ema50),
		EMA200:         decimal.NewFromFloat(ema200),
		ATR14:          decimal.NewFromFloat(atr14),
		ATR50:          decimal.NewFromFloat(atr50),
		RSI14:          decimal.NewFromFloat(rsi14),
		BollingerWidth: decimal.NewFromFloat(bbWidth),
		MACDLine:       decimal.NewFromFloat(macd.Line),
		MACDSignal:     decimal.NewFromFloat(macd.Signal),
	}
	if macd.HistAvailable {
		h := decimal.NewFromFloat(macd.Hist)
		row.MACDHist = &h
	}
	if s.barCount > 0 {
		row.PreviousRow = &types.PreviousFields{
			Close:  s.closesWindowPrevClose(),
			EMA20:  decimal.NewFromFloat(s.prevEMA20AtStart()),
			Regime: s.prevRegime,
		}
	}

	var transition *Transition
	if s.barCount < e.cfg.Warmup {
		row.Regime = types.RegimeWarmingUp
		row.RegimeConfidence = 0
		row.IsTransition = false
	} else {
		raw, confidence := classify(s, close, ema20, ema50, ema200, rsi14, atr14, atr50, bbWidth, macd, e.cfg)
		transition = s.commit(raw, e.cfg)
		row.Regime = s.committed
		row.RegimeConfidence = confidence
		row.IsTransition = s.transitionActiveAndAdvance()
	}

	// Append BB width to the past-only history for future threshold
	// calculations, after this bar's classification used only past
	// values.
	s.bbWidthHistory.Push(bbWidth)

	s.prevEMA20 = ema20
	s.havePrevEMA20 = true
	s.prevRegime = row.Regime
	s.barCount++

	s.recentRows = appendRing(s.recentRows, row, e.cfg.RecentRowsCapacity)
	snapshot := make([]types.EnrichedRow, len(s.recentRows))
	copy(snapshot, s.recentRows)

	return row, snapshot, transition
}

// closesWindowPrevClose returns the close prior to the one just pushed,
// used to populate PreviousFields.Close.
func (s *symbolState) closesWindowPrevClose() decimal.Decimal {
	vals := s.closesWindow.Values()
	if len(vals) < 2 {
		return decimal.Zero
	}
	return decimal.NewFromFloat(vals[len(vals)-2])
}

func (s *symbolState) prevEMA20AtStart() float64 {
	if !s.havePrevEMA20 {
		return 0
	}
	return s.prevEMA20
}

// commit runs the persist_n-gated regime commit state machine and
// returns a non-nil Transition only on the bar that actually commits a
// change.
func (s *symbolState) commit(raw types.RegimeLabel, cfg Config) *Transition {
	if !s.haveCommitted {
		s.committed = raw
		s.haveCommitted = true
		return nil
	}
	if raw == s.committed {
		s.pending = ""
		s.pendingCount = 0
		return nil
	}
	if raw == s.pending {
		s.pendingCount++
	} else {
		s.pending = raw
		s.pendingCount = 1
	}
	if s.pendingCount >= cfg.PersistN {
		old := s.committed
		s.committed = raw
		s.pending = ""
		s.pendingCount = 0
		s.transitionRemaining = cfg.TransitionBars
		return &Transition{Old: old, New: s.committed, IsTransition: true}
	}
	return nil
}

// transitionActiveAndAdvance reports whether the current bar is within
// the transition-bars window opened by the most recent commit, then
// advances the remaining counter. The bar that commits the change is
// itself the first of the transition_bars flagged bars.
func (s *symbolState) transitionActiveAndAdvance() bool {
	if s.transitionRemaining <= 0 {
		return false
	}
	s.transitionRemaining--
	return true
}

func appendRing(buf []types.EnrichedRow, row types.EnrichedRow, capacity int) []types.EnrichedRow {
	buf = append(buf, row)
	if len(buf) > capacity {
		buf = buf[len(buf)-capacity:]
	}
	return buf
}

// classify computes the raw (pre-persistence) direction+volatility
// label and confidence for one bar, using only already-updated
// indicator state (nothing here peeks at future bars).
func classify(
	s *symbolState,
	close, ema20, ema50, ema200, rsi, atr14, atr50, bbWidth float64,
	macd indicators.Result,
	cfg Config,
) (types.RegimeLabel, float64) {
	score := 0.0
	weight := 0.0

	addEMA := func(emaValue float64, w float64) {
		weight += w
		if close > emaValue {
			score += w
		} else if close < emaValue {
			score -= w
		}
	}
	addEMA(ema20, 1)
	addEMA(ema50, 2)
	addEMA(ema200, 3)

	switch {
	case rsi > 55:
		score += 2
		weight += 2
	case rsi < 45:
		score -= 2
		weight += 2
	}
	switch {
	case rsi > 70:
		score += 1
		weight += 1
	case rsi < 30:
		score -= 1
		weight += 1
	}

	if macd.HistAvailable {
		weight += 2
		if macd.Hist > 0 {
			score += 2
		} else if macd.Hist < 0 {
			score -= 2
		}
	}

	if s.havePrevEMA20 {
		weight += 1
		if ema20 > s.prevEMA20 {
			score += 1
		} else if ema20 < s.prevEMA20 {
			score -= 1
		}
	}

	direction := "neutral"
	if score > 0 {
		direction = "bull"
	} else if score < 0 {
		direction = "bear"
	}

	if s.htf != nil {
		switch s.htf.Bias() {
		case biasBull:
			if direction == "bear" {
				direction = "neutral"
			}
		case biasBear:
			if direction == "bull" {
				direction = "neutral"
			}
		}
	}

	ratio := 1.0
	if s.atr50.Initialized() && atr50 != 0 {
		ratio = atr14 / atr50
	}
	threshold := bbThreshold(s, cfg)
	volatility := "contraction"
	if ratio > cfg.ATRExpansionRatio || bbWidth > threshold {
		volatility = "expansion"
	}

	confidence := 0.0
	if weight > 0 {
		abs := score
		if abs < 0 {
			abs = -abs
		}
		confidence = abs / weight
		if confidence > 1 {
			confidence = 1
		}
	}

	return types.RegimeLabel(strings.Join([]string{direction, volatility}, "_")), confidence
}

// bbThreshold returns the 70th-percentile-of-past-only BB-width
// threshold, falling back to a constant when history is too short.
func bbThreshold(s *symbolState, cfg Config) float64 {
	past := s.bbWidthHistory.Values()
	if len(past) <= 1 {
		return 0.04
	}
	return percentile(past, cfg.BBPercentile)
}
