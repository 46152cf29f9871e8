package indicators

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestEMAFirstObservationInitializes(t *testing.T) {
	e := NewEMA(10)
	if got := e.Update(5); got != 5 {
		t.Fatalf("first EMA update = %v, want 5", got)
	}
	if !e.Initialized() {
		t.Fatal("expected initialized after first update")
	}
}

func TestEMARecurrence(t *testing.T) {
	e := NewEMA(3) // alpha = 0.5
	e.Update(10)
	got := e.Update(20)
	want := 0.5*20 + 0.5*10
	if !almostEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestWilderRecurrence(t *testing.T) {
	w := NewWilder(4)
	w.Update(8)
	got := w.Update(12)
	want := 8 + (12-8)/4.0
	if !almostEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestTrueRangeNoPrevClose(t *testing.T) {
	if got := TrueRange(110, 100, 0, false); got != 10 {
		t.Fatalf("got %v want 10", got)
	}
}

func TestTrueRangeWithPrevClose(t *testing.T) {
	got := TrueRange(105, 100, 95, true)
	// max(5, |105-95|=10, |100-95|=5) = 10
	if got != 10 {
		t.Fatalf("got %v want 10", got)
	}
}

func TestRSIFirstBarIsFifty(t *testing.T) {
	r := NewRSI(14)
	if got := r.Update(100); got != 50 {
		t.Fatalf("got %v want 50", got)
	}
}

func TestRSIAllGainsIsHundred(t *testing.T) {
	r := NewRSI(2)
	r.Update(100)
	r.Update(101)
	got := r.Update(102)
	if got != 100 {
		t.Fatalf("got %v want 100", got)
	}
}

func TestRSINoMovementIsFifty(t *testing.T) {
	r := NewRSI(14)
	r.Update(100)
	got := r.Update(100)
	if got != 50 {
		t.Fatalf("got %v want 50", got)
	}
}

func TestBollingerWidthEmptyIsZero(t *testing.T) {
	if got := BollingerWidth(nil); got != 0 {
		t.Fatalf("got %v want 0", got)
	}
}

func TestBollingerWidthZeroMeanIsZero(t *testing.T) {
	if got := BollingerWidth([]float64{-1, 1}); got != 0 {
		t.Fatalf("got %v want 0", got)
	}
}

func TestBollingerWidthUsesMostRecent20(t *testing.T) {
	closes := make([]float64, 25)
	for i := range closes {
		closes[i] = 1 // flat series outside the window
	}
	closes[24] = 1000 // only within the trailing 20
	got := BollingerWidth(closes)
	if got == 0 {
		t.Fatal("expected non-zero width from the trailing window's volatility")
	}
}

func TestMACDHistUnavailableOnFirstBar(t *testing.T) {
	m := NewMACD(2, 3, 2)
	res := m.Update(10)
	if res.HistAvailable {
		t.Fatal("expected hist unavailable on first bar")
	}
}

func TestMACDHistAvailableAfterFirstBar(t *testing.T) {
	m := NewMACD(2, 3, 2)
	m.Update(10)
	res := m.Update(11)
	if !res.HistAvailable {
		t.Fatal("expected hist available from the second bar onward")
	}
	if !almostEqual(res.Hist, res.Line-res.Signal) {
		t.Fatalf("hist %v != line-signal %v", res.Hist, res.Line-res.Signal)
	}
}

func TestATRUsesWilderOverTrueRange(t *testing.T) {
	a := NewATR(14)
	first := a.Update(110, 100, 105)
	if first != 10 {
		t.Fatalf("first ATR = %v, want 10 (= first TR)", first)
	}
}

func TestRollingWindowEvictsOldest(t *testing.T) {
	w := NewRollingWindow(3)
	w.Push(1)
	w.Push(2)
	w.Push(3)
	w.Push(4)
	got := w.Values()
	want := []float64{2, 3, 4}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v want %v", got, want)
		}
	}
}
