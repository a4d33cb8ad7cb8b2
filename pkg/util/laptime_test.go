package util

import "testing"

func TestParseLapTimeMinutes(t *testing.T) {
	got, ok := ParseLapTime("1:32.456")
	if !ok {
		t.Fatalf("expected ok")
	}
	if got != 92.456 {
		t.Fatalf("unexpected seconds %v", got)
	}
}

func TestParseLapTimeSeconds(t *testing.T) {
	got, ok := ParseLapTime("92.456")
	if !ok {
		t.Fatalf("expected ok")
	}
	if got != 92.456 {
		t.Fatalf("unexpected seconds %v", got)
	}
}

func TestParseLapTimeInvalid(t *testing.T) {
	for _, s := range []string{"", "1:75.000", "-3", "abc", "1:xx.000"} {
		if _, ok := ParseLapTime(s); ok {
			t.Fatalf("expected failure for %q", s)
		}
	}
}

func TestParseLapTimeDefault(t *testing.T) {
	if got := ParseLapTimeDefault("", 90.0); got != 90.0 {
		t.Fatalf("expected default")
	}
}

func TestFormatLapTime(t *testing.T) {
	if got := FormatLapTime(92.456); got != "1:32.456" {
		t.Fatalf("unexpected format %q", got)
	}
	if got := FormatLapTime(59.9); got != "0:59.900" {
		t.Fatalf("unexpected format %q", got)
	}
}
