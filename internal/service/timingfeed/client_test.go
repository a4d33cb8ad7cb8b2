package timingfeed

import (
	"encoding/json"
	"math"
	"testing"
)

func TestLapFrameConversion(t *testing.T) {
	raw := `{
		"type": "lap",
		"laps": [{
			"competitor_id": 44,
			"lap_number": 12,
			"lap_time": "1:32.456",
			"sector_1": "28.801",
			"sector_2": "31.455",
			"sector_3": "32.200",
			"compound": "MEDIUM",
			"tyre_age": 11,
			"pit_out": false,
			"caution": false
		}]
	}`

	var m feedMessage
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(m.Laps) != 1 {
		t.Fatalf("expected 1 lap frame, got %d", len(m.Laps))
	}

	lap, ok := m.Laps[0].toLapData()
	if !ok {
		t.Fatalf("frame should convert")
	}
	if lap.CompetitorID != 44 || lap.LapNumber != 12 {
		t.Fatalf("identity lost: %+v", lap)
	}
	if math.Abs(lap.LapTime-92.456) > 1e-9 {
		t.Fatalf("lap time %v, want 92.456", lap.LapTime)
	}
	if math.Abs(lap.Sector1-28.801) > 1e-9 {
		t.Fatalf("sector 1 %v, want 28.801", lap.Sector1)
	}
	if lap.Compound != "MEDIUM" || lap.TyreAge != 11 {
		t.Fatalf("tyre info lost: %+v", lap)
	}
}

func TestLapFrameRejectsBadTimes(t *testing.T) {
	for _, bad := range []string{"", "1:75.000", "-3", "abc"} {
		f := &lapFrame{CompetitorID: 1, LapNumber: 1, LapTime: bad}
		if _, ok := f.toLapData(); ok {
			t.Fatalf("lap time %q should not convert", bad)
		}
	}
}

func TestLapFrameMissingSectorsDefaultToZero(t *testing.T) {
	f := &lapFrame{CompetitorID: 1, LapNumber: 3, LapTime: "90.5", Compound: "HARD"}
	lap, ok := f.toLapData()
	if !ok {
		t.Fatalf("frame should convert")
	}
	if lap.Sector1 != 0 || lap.Sector2 != 0 || lap.Sector3 != 0 {
		t.Fatalf("missing sectors must default to zero: %+v", lap)
	}
}
