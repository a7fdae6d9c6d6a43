package gasforecast

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/selivandex/campaign-advisor/pkg/models"
)

// randomWalk produces a deterministic gas-like series with a daily cycle
func randomWalk(n int, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	y := make([]float64, n)
	level := 30.0
	for i := 0; i < n; i++ {
		level += rng.NormFloat64() * 0.8
		y[i] = level + 8*math.Sin(2*math.Pi*float64(i)/24)
	}
	return y
}

func TestFitARIMA(t *testing.T) {
	t.Run("rejects short series", func(t *testing.T) {
		_, err := FitARIMA([]float64{1, 2, 3})
		if !errors.Is(err, models.ErrModelFit) {
			t.Errorf("expected ErrModelFit, got %v", err)
		}
	})

	t.Run("fits a random walk", func(t *testing.T) {
		m, err := FitARIMA(randomWalk(200, 1))
		if err != nil {
			t.Fatalf("fit failed: %v", err)
		}
		if math.Abs(m.phi) >= 1 || math.Abs(m.theta) >= 1 {
			t.Errorf("coefficients outside unit circle: phi=%v theta=%v", m.phi, m.theta)
		}
		if m.sigma2 <= 0 {
			t.Errorf("expected positive residual variance, got %v", m.sigma2)
		}
	})
}

func TestFitSARIMA(t *testing.T) {
	t.Run("rejects series shorter than three seasons", func(t *testing.T) {
		_, err := FitSARIMA(randomWalk(50, 2), nil, 24)
		if !errors.Is(err, models.ErrModelFit) {
			t.Errorf("expected ErrModelFit, got %v", err)
		}
	})

	t.Run("rejects mismatched covariate rows", func(t *testing.T) {
		y := randomWalk(200, 3)
		exog := make([][]float64, 10)
		_, err := FitSARIMA(y, exog, 24)
		if !errors.Is(err, models.ErrModelFit) {
			t.Errorf("expected ErrModelFit, got %v", err)
		}
	})
}

func TestForecastBounds(t *testing.T) {
	m, err := FitARIMA(randomWalk(300, 4))
	if err != nil {
		t.Fatalf("fit failed: %v", err)
	}

	pred, lower, upper := m.Forecast(48, nil)
	if len(pred) != 48 || len(lower) != 48 || len(upper) != 48 {
		t.Fatalf("expected 48 steps, got %d/%d/%d", len(pred), len(lower), len(upper))
	}

	t.Run("lower <= predicted <= upper at every step", func(t *testing.T) {
		for k := range pred {
			if lower[k] > pred[k] || pred[k] > upper[k] {
				t.Fatalf("step %d: bounds out of order: %v <= %v <= %v",
					k, lower[k], pred[k], upper[k])
			}
		}
	})

	t.Run("intervals widen with horizon", func(t *testing.T) {
		prev := 0.0
		for k := range pred {
			width := upper[k] - lower[k]
			if width < prev-1e-9 {
				t.Fatalf("step %d: interval narrowed from %v to %v", k, prev, width)
			}
			prev = width
		}
	})

	t.Run("values are finite", func(t *testing.T) {
		for k := range pred {
			if math.IsNaN(pred[k]) || math.IsInf(pred[k], 0) {
				t.Fatalf("step %d: non-finite prediction %v", k, pred[k])
			}
		}
	})
}

func TestSolveOLS(t *testing.T) {
	t.Run("recovers exact coefficients", func(t *testing.T) {
		// y = 2*x1 + 3*x2 over a full-rank design
		X := [][]float64{{1, 0}, {0, 1}, {1, 1}, {2, 1}}
		y := []float64{2, 3, 5, 7}
		coef, err := solveOLS(X, y)
		if err != nil {
			t.Fatalf("solve failed: %v", err)
		}
		if math.Abs(coef[0]-2) > 1e-9 || math.Abs(coef[1]-3) > 1e-9 {
			t.Errorf("coefficients = %v, want [2 3]", coef)
		}
	})

	t.Run("reports singular systems", func(t *testing.T) {
		X := [][]float64{{1, 2}, {2, 4}, {3, 6}}
		y := []float64{1, 2, 3}
		if _, err := solveOLS(X, y); !errors.Is(err, models.ErrModelFit) {
			t.Errorf("expected ErrModelFit for collinear design, got %v", err)
		}
	})
}

func TestKeepVaryingCols(t *testing.T) {
	dExog := [][]float64{
		{1.0, 0, 3.0},
		{2.0, 0, 3.0},
		{0.5, 0, 3.0},
	}
	kept := keepVaryingCols(dExog)
	if len(kept) != 1 || kept[0] != 0 {
		t.Errorf("expected only column 0 kept, got %v", kept)
	}
}

func TestDiff(t *testing.T) {
	got := diff([]float64{1, 3, 6, 10}, 1)
	want := []float64{2, 3, 4}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("diff[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	if diff([]float64{1}, 2) != nil {
		t.Error("expected nil for series shorter than lag")
	}
}
