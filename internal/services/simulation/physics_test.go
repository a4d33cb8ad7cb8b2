package simulation

import (
	"math"
	"testing"

	"PitWall/internal/domain/models"
)

func TestTyrePenaltyPhases(t *testing.T) {
	// Warmup: cold hard tyre pays a penalty that fades to zero.
	if p := TyrePenalty(models.CompoundHard, 0); p <= 0 {
		t.Fatalf("cold hard tyre should pay a warmup penalty, got %.3f", p)
	}
	if p := TyrePenalty(models.CompoundHard, 3); p != 0 {
		t.Fatalf("hard tyre at working temperature should pay nothing, got %.3f", p)
	}

	// Stable phase: linear growth.
	p10 := TyrePenalty(models.CompoundMedium, 10)
	p11 := TyrePenalty(models.CompoundMedium, 11)
	if math.Abs((p11-p10)-0.05) > 1e-9 {
		t.Fatalf("medium linear wear should cost 0.05s/lap, got %.4f", p11-p10)
	}

	// Cliff: growth accelerates past the knee.
	pre := TyrePenalty(models.CompoundSoft, 15) - TyrePenalty(models.CompoundSoft, 14)
	post := TyrePenalty(models.CompoundSoft, 22) - TyrePenalty(models.CompoundSoft, 21)
	if post <= pre {
		t.Fatalf("wear past the cliff should accelerate: %.4f vs %.4f", post, pre)
	}
}

func TestTyrePenaltyComposition(t *testing.T) {
	for _, c := range []models.Compound{models.CompoundSoft, models.CompoundMedium, models.CompoundHard} {
		p := TyreParamsFor(c)
		for age := 0; age < p.WarmupLaps; age++ {
			if got, want := TyrePenalty(c, age), WarmupPenalty(c, age); got != want {
				t.Fatalf("%s age %d: cold penalty %.4f, warmup says %.4f", c, age, got, want)
			}
		}
		for _, age := range []int{p.WarmupLaps, p.CliffLap, p.CliffLap + 5} {
			want := float64(age-p.WarmupLaps)*p.DegRate + CliffPenalty(c, age)
			if got := TyrePenalty(c, age); math.Abs(got-want) > 1e-12 {
				t.Fatalf("%s age %d: penalty %.4f, linear+cliff says %.4f", c, age, got, want)
			}
		}
	}
}

func TestCliffPenaltyZeroBeforeKnee(t *testing.T) {
	if p := CliffPenalty(models.CompoundSoft, 15); p != 0 {
		t.Fatalf("no cliff penalty at the knee, got %.4f", p)
	}
	if p := CliffPenalty(models.CompoundSoft, 20); p <= 0 {
		t.Fatalf("cliff penalty past the knee must be positive, got %.4f", p)
	}
}

func TestFuelModel(t *testing.T) {
	if m := FuelMass(0); m != 110.0 {
		t.Fatalf("starting fuel: got %.1f, want 110.0", m)
	}
	if m := FuelMass(100); m != 0 {
		t.Fatalf("tank cannot go negative, got %.1f", m)
	}
	// A full tank costs about 3.85s per lap versus empty.
	if p := FuelPenalty(0); math.Abs(p-110.0*0.035) > 1e-9 {
		t.Fatalf("full-tank penalty: got %.3f", p)
	}
	if FuelPenalty(20) >= FuelPenalty(0) {
		t.Fatalf("burning fuel must reduce the penalty")
	}
}

func TestTrackEvolutionCapped(t *testing.T) {
	if g := TrackEvolution(10); math.Abs(g-0.3) > 1e-9 {
		t.Fatalf("evolution at lap 10: got %.3f, want 0.3", g)
	}
	if g := TrackEvolution(500); g != maxTrackEvolution {
		t.Fatalf("evolution must saturate at %.1f, got %.3f", maxTrackEvolution, g)
	}
}

func TestDirtyAirPenalty(t *testing.T) {
	if p := DirtyAirPenalty(-1); p != 0 {
		t.Fatalf("leader pays no dirty air, got %.3f", p)
	}
	if p := DirtyAirPenalty(5.0); p != 0 {
		t.Fatalf("clean air beyond the threshold, got %.3f", p)
	}
	close := DirtyAirPenalty(0.5)
	far := DirtyAirPenalty(2.5)
	if close <= far {
		t.Fatalf("penalty must grow as the gap closes: %.3f vs %.3f", close, far)
	}
	if close > dirtyAirMaxLoss {
		t.Fatalf("penalty above the cap: %.3f", close)
	}
}
