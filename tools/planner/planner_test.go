package planner

import (
	"context"
	"strings"
	"testing"
)

func TestParseCoordinates(t *testing.T) {
	cases := []struct {
		in       string
		lat, lon float64
		ok       bool
	}{
		{"48.85, 2.35", 48.85, 2.35, true},
		{"135.5, 35.0", 35.0, 135.5, true}, // lon,lat order detected by range
		{"91.0, 181.0", 0, 0, false},
		{"Paris", 0, 0, false},
		{"48.85", 0, 0, false},
	}
	for _, c := range cases {
		lat, lon, ok := parseCoordinates(c.in)
		if ok != c.ok || lat != c.lat || lon != c.lon {
			t.Fatalf("parseCoordinates(%q) = %v,%v,%v", c.in, lat, lon, ok)
		}
	}
}

func TestParseEventTime(t *testing.T) {
	for _, in := range []string{"2026-09-01 08:30:00", "2026-09-01T08:30:00", "2026-09-01 08:30", "2026-09-01"} {
		if _, err := parseEventTime(in); err != nil {
			t.Fatalf("parseEventTime(%q): %v", in, err)
		}
	}
	if _, err := parseEventTime("next tuesday"); err == nil {
		t.Fatalf("expected error for non-ISO input")
	}
}

func TestCalendarLink(t *testing.T) {
	out, err := CalendarLink("Dinner", "2026-09-01 19:00:00", "2026-09-01 21:00:00", "Rome", "table for two")
	if err != nil {
		t.Fatalf("CalendarLink: %v", err)
	}
	for _, want := range []string{"calendar.google.com", "Dinner", "20260901T190000%2F20260901T210000", "Rome"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in: %s", want, out)
		}
	}
}

func TestCalendarLinkDefaultsEndToOneHour(t *testing.T) {
	out, err := CalendarLink("Call", "2026-09-01 09:00:00", "", "", "")
	if err != nil {
		t.Fatalf("CalendarLink: %v", err)
	}
	if !strings.Contains(out, "20260901T090000%2F20260901T100000") {
		t.Fatalf("default end missing: %s", out)
	}
}

func TestCalendarLinkRejectsBadInput(t *testing.T) {
	if _, err := CalendarLink("", "2026-09-01 09:00:00", "", "", ""); err == nil {
		t.Fatalf("expected error for empty summary")
	}
	if _, err := CalendarLink("X", "2026-09-01 09:00:00", "2026-09-01 08:00:00", "", ""); err == nil {
		t.Fatalf("expected error for end before start")
	}
}

func TestForecastRequiresAPIKey(t *testing.T) {
	if _, err := (Weather{}).Forecast(context.Background(), "Paris", 3); err == nil {
		t.Fatalf("expected error without API key")
	}
}
