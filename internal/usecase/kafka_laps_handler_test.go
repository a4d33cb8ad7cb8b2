package usecase

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"PitWall/internal/domain/models"
	mid "PitWall/internal/middleware"
)

func lapFrame(t *testing.T, lap *models.LapData) []byte {
	t.Helper()
	b, err := json.Marshal(map[string]interface{}{"frame": "lap", "lap": lap})
	if err != nil {
		t.Fatalf("marshal frame: %v", err)
	}
	return b
}

func waitForCount(t *testing.T, m *fakeMetrics, key string, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if m.count(key) >= want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d %q, got %d", want, key, m.count(key))
}

func TestKafkaLapsHandlerRoutesThroughPipeline(t *testing.T) {
	m := newFakeMetrics()
	proc := newTestProcessor(&fakePublisher{}, &fakeArchive{}, m)
	pipe := mid.NewLapPipeline(proc, m, mid.WithMaxRPS(1000))
	pipe.Start(context.Background())
	defer pipe.Stop()

	h := NewKafkaLapsHandler("laps", pipe, proc, m)

	for lap := 1; lap <= 6; lap++ {
		frame := lapFrame(t, &models.LapData{
			CompetitorID: 7,
			LapNumber:    lap,
			LapTime:      90.0 + 0.05*float64(lap),
			Compound:     "MEDIUM",
			TyreAge:      lap,
		})
		if err := h.Handle(context.Background(), frame); err != nil {
			t.Fatalf("handle lap %d: %v", lap, err)
		}
	}

	waitForCount(t, m, "lap", 6)
	if proc.CurrentLap() != 6 {
		t.Fatalf("laps lost in transit: current lap %d, want 6", proc.CurrentLap())
	}
}

func TestKafkaLapsHandlerPositionFrame(t *testing.T) {
	m := newFakeMetrics()
	proc := newTestProcessor(&fakePublisher{}, &fakeArchive{}, m)
	h := NewKafkaLapsHandler("laps", nil, proc, m)

	b, err := json.Marshal(map[string]interface{}{
		"frame":    "position",
		"position": &models.PositionData{CompetitorID: 3, Position: 4, GapAhead: 1.2},
	})
	if err != nil {
		t.Fatalf("marshal frame: %v", err)
	}
	if err := h.Handle(context.Background(), b); err != nil {
		t.Fatalf("handle position: %v", err)
	}

	pos := proc.Position(3)
	if pos == nil || pos.Position != 4 {
		t.Fatalf("position frame lost: %+v", pos)
	}
}
