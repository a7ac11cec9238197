package market

import (
	"math"
	"testing"
)

func klinesFromCloses(closes []float64) []KlinePoint {
	points := make([]KlinePoint, len(closes))
	for i, c := range closes {
		points[i] = KlinePoint{Close: c}
	}
	return points
}

func TestCalculateSMA(t *testing.T) {
	points := klinesFromCloses([]float64{10, 12, 11, 13, 14})
	out := CalculateSMA(points, 3)
	if len(out) != 5 {
		t.Fatalf("len = %d, want 5", len(out))
	}
	if !IsSentinel(out[0]) || !IsSentinel(out[1]) {
		t.Error("first period-1 positions must be sentinel")
	}
	want := []float64{11, 12, 38.0 / 3}
	for i, w := range want {
		if math.Abs(out[i+2]-w) > 1e-9 {
			t.Errorf("out[%d] = %v, want %v", i+2, out[i+2], w)
		}
	}
}

func TestCalculateSMAInsufficientData(t *testing.T) {
	points := klinesFromCloses([]float64{10, 11, 12, 13})
	out := CalculateSMA(points, 5)
	if len(out) != 4 {
		t.Fatalf("len = %d, want 4", len(out))
	}
	for i, v := range out {
		if !IsSentinel(v) {
			t.Errorf("out[%d] = %v, want sentinel", i, v)
		}
	}
}

func TestCalculateSMAExactWindow(t *testing.T) {
	points := klinesFromCloses([]float64{10, 11, 12, 13, 14})
	out := CalculateSMA(points, 5)
	for i := 0; i < 4; i++ {
		if !IsSentinel(out[i]) {
			t.Errorf("out[%d] = %v, want sentinel", i, out[i])
		}
	}
	if math.Abs(out[4]-12) > 1e-9 {
		t.Errorf("out[4] = %v, want 12", out[4])
	}
}

func TestCalculateMACD(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100 + 2*math.Sin(float64(i)/5) + float64(i)*0.1
	}
	points := klinesFromCloses(closes)

	dif, dea, hist := CalculateMACD(points, 12, 26, 9)
	if len(dif) != 60 || len(dea) != 60 || len(hist) != 60 {
		t.Fatalf("lengths = %d/%d/%d, want 60", len(dif), len(dea), len(hist))
	}
	for i := range hist {
		want := (dif[i] - dea[i]) * 2
		if math.Abs(hist[i]-want) > 1e-12 {
			t.Errorf("hist[%d] = %v, want (dif-dea)*2 = %v", i, hist[i], want)
		}
	}
	// EMA 以首根收盘价为种子，首日三线均为 0
	if dif[0] != 0 || dea[0] != 0 || hist[0] != 0 {
		t.Errorf("day 0 = %v/%v/%v, want zeros", dif[0], dea[0], hist[0])
	}
}

func TestCalculateMACDDefaultPeriods(t *testing.T) {
	points := klinesFromCloses([]float64{10, 11, 12, 11, 10, 11, 12})
	d1, e1, h1 := CalculateMACD(points, 0, 0, 0)
	d2, e2, h2 := CalculateMACD(points, MACDFastPeriod, MACDSlowPeriod, MACDSignalPeriod)
	for i := range d1 {
		if d1[i] != d2[i] || e1[i] != e2[i] || h1[i] != h2[i] {
			t.Fatalf("invalid periods did not fall back to 12/26/9 at index %d", i)
		}
	}
}

func TestCalculateRSI(t *testing.T) {
	closes := []float64{
		44.34, 44.09, 44.15, 43.61, 44.33, 44.83, 45.10, 45.42,
		45.84, 46.08, 45.89, 46.03, 45.61, 46.28, 46.28, 46.00,
		46.03, 46.41, 46.22, 45.64,
	}
	points := klinesFromCloses(closes)
	out := CalculateRSI(points, 14)
	if len(out) != len(closes)-14 {
		t.Fatalf("len = %d, want %d", len(out), len(closes)-14)
	}
	for i, v := range out {
		if v < 0 || v > 100 {
			t.Errorf("out[%d] = %v, out of [0,100]", i, v)
		}
	}
	// Wilder 序列的经典首值约 70.46
	if math.Abs(out[0]-70.46) > 0.1 {
		t.Errorf("out[0] = %v, want ≈70.46", out[0])
	}
}

func TestCalculateRSIAllGains(t *testing.T) {
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = 10 + float64(i)
	}
	out := CalculateRSI(klinesFromCloses(closes), 14)
	for i, v := range out {
		if v != 100 {
			t.Errorf("out[%d] = %v, want 100 for monotonic gains", i, v)
		}
	}
}

func TestCalculateRSIInsufficientData(t *testing.T) {
	points := klinesFromCloses([]float64{10, 11, 12})
	if out := CalculateRSI(points, 14); out != nil {
		t.Errorf("got %v, want nil for insufficient data", out)
	}
}

func TestCalculateVolatility(t *testing.T) {
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100 * math.Pow(1.01, float64(i%3))
	}
	out := CalculateVolatility(klinesFromCloses(closes), 20)
	if len(out) != 30 {
		t.Fatalf("len = %d, want 30", len(out))
	}
	for i := 0; i < 19; i++ {
		if out[i] != 0 {
			t.Errorf("out[%d] = %v, want 0 before first full window", i, out[i])
		}
	}
	for i := 19; i < 30; i++ {
		if out[i] <= 0 {
			t.Errorf("out[%d] = %v, want positive volatility", i, out[i])
		}
	}
}

func TestCalculateVolatilityConstantSeries(t *testing.T) {
	closes := make([]float64, 25)
	for i := range closes {
		closes[i] = 50
	}
	out := CalculateVolatility(klinesFromCloses(closes), 20)
	for i, v := range out {
		if v != 0 {
			t.Errorf("out[%d] = %v, want 0 for constant prices", i, v)
		}
	}
}
