// Package regime implements the per-(symbol,timeframe) incremental
// indicator pipeline and the point-in-time regime classifier. Every
// computation for bar k uses only bars 0..k: the classifier never reads
// a value that was not available when the bar closed.
package regime

// Config tunes the indicator pipeline and regime classifier.
type Config struct {
	Warmup             int
	PersistN           int
	TransitionBars     int
	BBThresholdLen     int
	BBPercentile       float64
	ATRExpansionRatio  float64
	RecentRowsCapacity int

	// HTF, when non-nil, enables the higher-timeframe bias override.
	HTF *HTFConfig
}

// HTFConfig configures the optional higher-timeframe bias aggregation.
type HTFConfig struct {
	// BucketBars is the number of base-timeframe bars aggregated into
	// one higher-timeframe bucket.
	BucketBars int
}

// DefaultConfig returns the standard classifier tuning.
func DefaultConfig() Config {
	return Config{
		Warmup:             500,
		PersistN:           2,
		TransitionBars:     3,
		BBThresholdLen:     200,
		BBPercentile:       0.70,
		ATRExpansionRatio:  1.1,
		RecentRowsCapacity: 6,
	}
}
