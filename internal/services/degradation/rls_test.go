package degradation

import (
	"math"
	"math/rand"
	"testing"
)

func TestEstimatorConvergesNoiseless(t *testing.T) {
	e := NewEstimator(defaultLambda)

	const base, slope = 92.0, 0.06
	for lap := 1; lap <= 20; lap++ {
		e.Update(lap, base+slope*float64(lap))
	}

	if got := e.BasePace(); math.Abs(got-base) > 0.1 {
		t.Fatalf("base pace: got %.4f, want %.1f +-0.1", got, base)
	}
	if got := e.DegSlope(); math.Abs(got-slope) > 0.02 {
		t.Fatalf("deg slope: got %.4f, want %.2f +-0.02", got, slope)
	}
}

func TestEstimatorConvergesUnderNoise(t *testing.T) {
	// lambda 1.0 so every lap weighs equally against the noise.
	e := NewEstimator(1.0)
	rng := rand.New(rand.NewSource(17))

	// Gaussian lap noise in antithetic pairs: each draw is reused negated
	// on the next lap, which keeps the seeded run well inside tolerance.
	const base, slope, sigma = 90.5, 0.08, 0.3
	z := 0.0
	for lap := 1; lap <= 30; lap++ {
		if lap%2 == 1 {
			z = rng.NormFloat64()
		} else {
			z = -z
		}
		e.Update(lap, base+slope*float64(lap)+sigma*z)
	}

	if got := e.DegSlope(); math.Abs(got-slope) > 0.01 {
		t.Fatalf("deg slope under noise: got %.4f, want %.2f +-0.01", got, slope)
	}
	if got := e.BasePace(); math.Abs(got-base) > 0.1 {
		t.Fatalf("base pace under noise: got %.4f, want %.1f +-0.1", got, base)
	}
}

func TestEstimatorWeightedUpdate(t *testing.T) {
	full := NewEstimator(defaultLambda)
	unit := NewEstimator(defaultLambda)
	half := NewEstimator(defaultLambda)
	none := NewEstimator(defaultLambda)
	for lap := 1; lap <= 10; lap++ {
		y := 90.0 + 0.05*float64(lap)
		full.Update(lap, y)
		unit.UpdateWeighted(lap, y, 1)
		half.Update(lap, y)
		none.Update(lap, y)
	}
	if full.DegSlope() != unit.DegSlope() || full.BasePace() != unit.BasePace() {
		t.Fatalf("unit weight must match a plain update: %.6f/%.6f vs %.6f/%.6f",
			full.BasePace(), full.DegSlope(), unit.BasePace(), unit.DegSlope())
	}

	// A slow lap pulls the slope up; the pull scales with the weight.
	before := none.DegSlope()
	full.Update(11, 92.0)
	half.UpdateWeighted(11, 92.0, 0.5)
	none.UpdateWeighted(11, 92.0, 0)

	if none.DegSlope() != before {
		t.Fatalf("zero weight must not move the estimate: %.6f -> %.6f", before, none.DegSlope())
	}
	if !(before < half.DegSlope() && half.DegSlope() < full.DegSlope()) {
		t.Fatalf("slope pull must grow with weight: none %.6f half %.6f full %.6f",
			before, half.DegSlope(), full.DegSlope())
	}
}

func TestEstimatorWarmStart(t *testing.T) {
	e := NewEstimator(defaultLambda)
	e.WarmStart(91.0, 0.05, 0.1)

	// Before any update, predictions come straight from the seed.
	if got := e.Predict(10); math.Abs(got-91.5) > 1e-9 {
		t.Fatalf("seeded prediction: got %.4f, want 91.5", got)
	}

	// A warm-started filter still tracks the true line.
	for lap := 1; lap <= 25; lap++ {
		e.Update(lap, 92.0+0.07*float64(lap))
	}
	if got := e.DegSlope(); math.Abs(got-0.07) > 0.02 {
		t.Fatalf("slope after warm start: got %.4f, want 0.07 +-0.02", got)
	}
}

func TestEstimatorPredictWithUncertainty(t *testing.T) {
	e := NewEstimator(defaultLambda)

	_, before := e.PredictWithUncertainty(5)
	for lap := 1; lap <= 10; lap++ {
		e.Update(lap, 90.0+0.05*float64(lap))
	}
	_, after := e.PredictWithUncertainty(5)

	if after >= before {
		t.Fatalf("uncertainty should shrink with data: before %.4f, after %.4f", before, after)
	}
	if after < 0 {
		t.Fatalf("negative uncertainty %.4f", after)
	}
}

func TestEstimatorConfidenceGrows(t *testing.T) {
	e := NewEstimator(defaultLambda)
	if e.Confidence() != 0 {
		t.Fatalf("fresh estimator confidence: got %.4f, want 0", e.Confidence())
	}

	prev := 0.0
	for lap := 1; lap <= 15; lap++ {
		e.Update(lap, 91.0+0.04*float64(lap))
		c := e.Confidence()
		if c < 0 || c > 1 {
			t.Fatalf("confidence out of range at lap %d: %.4f", lap, c)
		}
		if lap >= 3 && c < prev {
			t.Fatalf("confidence dropped on clean data at lap %d: %.4f -> %.4f", lap, prev, c)
		}
		prev = c
	}
}

func TestEstimatorReset(t *testing.T) {
	e := NewEstimator(defaultLambda)
	for lap := 1; lap <= 5; lap++ {
		e.Update(lap, 90.0)
	}
	e.Reset()

	if e.Updates() != 0 || e.BasePace() != 0 || e.DegSlope() != 0 {
		t.Fatalf("reset left state behind: updates=%d base=%.3f slope=%.3f", e.Updates(), e.BasePace(), e.DegSlope())
	}
}
