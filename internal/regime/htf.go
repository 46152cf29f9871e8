package regime

import "github.com/atlas-desktop/pulsecore/internal/indicators"

// bias is the higher-timeframe directional overlay.
type bias string

const (
	biasBull    bias = "bull"
	biasBear    bias = "bear"
	biasNeutral bias = "neutral"
)

// htfState aggregates base-timeframe closes into fixed-size buckets and
// updates its own EMA12/26/200 and MACD only when a bucket flips, using
// the just-finished bucket's last known close — never the forming
// bucket's in-progress close — so the bias is point-in-time safe.
type htfState struct {
	bucketBars int

	seenBars      int
	currentBucket int
	haveBucket    bool
	pendingClose  float64

	ema12, ema26, ema200 *indicators.EMA
	macd                 *indicators.MACD

	bias bias
}

func newHTFState(cfg HTFConfig) *htfState {
	return &htfState{
		bucketBars: cfg.BucketBars,
		bias:       biasNeutral,
		ema12:      indicators.NewEMA(12),
		ema26:      indicators.NewEMA(26),
		ema200:     indicators.NewEMA(200),
		macd:       indicators.NewMACD(12, 26, 9),
	}
}

// observe feeds one base-timeframe close. It must be called once per
// base bar, in order.
func (h *htfState) observe(close float64) {
	bucket := h.seenBars / h.bucketBars
	h.seenBars++

	if !h.haveBucket {
		h.currentBucket = bucket
		h.haveBucket = true
		h.pendingClose = close
		return
	}

	if bucket != h.currentBucket {
		h.flip(h.pendingClose)
		h.currentBucket = bucket
	}
	h.pendingClose = close
}

func (h *htfState) flip(bucketClose float64) {
	h.ema200.Update(bucketClose)
	res := h.macd.Update(bucketClose)

	switch {
	case bucketClose > h.ema200.Value() && res.HistAvailable && res.Hist > 0:
		h.bias = biasBull
	case bucketClose < h.ema200.Value() && res.HistAvailable && res.Hist < 0:
		h.bias = biasBear
	case bucketClose > h.ema200.Value():
		h.bias = biasBull
	case bucketClose < h.ema200.Value():
		h.bias = biasBear
	default:
		h.bias = biasNeutral
	}
	h.ema12.Update(bucketClose)
	h.ema26.Update(bucketClose)
}

// Bias returns the current higher-timeframe bias.
func (h *htfState) Bias() bias { return h.bias }
