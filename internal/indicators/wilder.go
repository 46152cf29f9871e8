package indicators

// Wilder implements Wilder's smoothing: the first observation
// initializes the value directly; subsequent observations apply
// y ← prev + (x−prev)/period.
type Wilder struct {
	period      float64
	value       float64
	initialized bool
}

// NewWilder builds a Wilder smoother over the given period (must be >= 1).
func NewWilder(period int) *Wilder {
	return &Wilder{period: float64(period)}
}

// Update feeds one new observation and returns the updated value.
func (w *Wilder) Update(x float64) float64 {
	if !w.initialized {
		w.value = x
		w.initialized = true
		return w.value
	}
	w.value += (x - w.value) / w.period
	return w.value
}

// Value returns the current value without updating.
func (w *Wilder) Value() float64 { return w.value }

// Initialized reports whether at least one observation has been fed.
func (w *Wilder) Initialized() bool { return w.initialized }
