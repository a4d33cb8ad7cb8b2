package strategy

import "testing"

func TestDetectUndercut(t *testing.T) {
	const pitLoss = 22.0

	// Close to pit-loss range, car ahead degrading much faster: fresh
	// tyres recover the small remaining delta.
	viable, conf := DetectUndercut(21.0, 0.04, 0.12, pitLoss)
	if !viable {
		t.Fatalf("undercut against a fast-degrading car at 21s should be viable")
	}
	if conf <= 0 || conf > 1 {
		t.Fatalf("confidence out of range: %.2f", conf)
	}

	// Too far behind.
	if viable, _ := DetectUndercut(pitLoss+5.0, 0.04, 0.12, pitLoss); viable {
		t.Fatalf("undercut from %ds back should not be viable", int(pitLoss)+5)
	}

	// Within overtaking range; no stop needed.
	if viable, _ := DetectUndercut(0.6, 0.04, 0.12, pitLoss); viable {
		t.Fatalf("undercut inside overtaking range should not be flagged")
	}

	// Leading.
	if viable, conf := DetectUndercut(-1, 0.04, 0.12, pitLoss); viable || conf != 0 {
		t.Fatalf("leader has nobody to undercut")
	}

	// Large gap plus no degradation edge: not viable.
	if viable, _ := DetectUndercut(18.0, 0.08, 0.05, pitLoss); viable {
		t.Fatalf("undercut without a pace edge from 18s back should fail")
	}
}

func TestDetectOvercut(t *testing.T) {
	const pitLoss = 22.0

	viable, conf := DetectOvercut(5.0, 0.03, 0.09, pitLoss)
	if !viable {
		t.Fatalf("overcut with a 60ms/lap degradation edge should be viable")
	}
	if conf <= 0 || conf > 1 {
		t.Fatalf("confidence out of range: %.2f", conf)
	}

	// Gap already covers the stop.
	if viable, _ := DetectOvercut(pitLoss+1, 0.03, 0.09, pitLoss); viable {
		t.Fatalf("safe gap needs no overcut")
	}

	// Degrading faster than the car behind.
	if viable, _ := DetectOvercut(5.0, 0.09, 0.03, pitLoss); viable {
		t.Fatalf("overcut while degrading faster should not be viable")
	}
}

func TestUndercutThreshold(t *testing.T) {
	// Equal degradation over 3 laps: need a third of the pit loss per lap.
	got := UndercutThreshold(0.05, 0.05, 21.0, 3)
	if got != 7.0 {
		t.Fatalf("threshold: got %.2f, want 7.00", got)
	}

	// A faster-degrading target lowers the bar.
	easier := UndercutThreshold(0.05, 0.15, 21.0, 3)
	if easier >= got {
		t.Fatalf("faster-degrading target should lower the threshold: %.2f vs %.2f", easier, got)
	}
}

func TestEstimatePositionLoss(t *testing.T) {
	const pitLoss = 22.0

	if got := EstimatePositionLoss(30.0, pitLoss); got != 0 {
		t.Fatalf("safe gap should lose no positions, got %d", got)
	}
	if got := EstimatePositionLoss(-1, pitLoss); got != 1 {
		t.Fatalf("unknown gap should assume one position, got %d", got)
	}
	if got := EstimatePositionLoss(1.0, pitLoss); got != 5 {
		t.Fatalf("bumper-to-bumper stop should cap at five positions, got %d", got)
	}
	if got := EstimatePositionLoss(20.0, pitLoss); got != 2 {
		t.Fatalf("3s exposure should cost about two positions, got %d", got)
	}
}
