package database

import (
	"testing"
	"time"
)

func TestOpenRunsMigrations(t *testing.T) {
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	for _, table := range []string{"households", "household_members", "household_invites", "pacts", "pact_activities", "device_tokens"} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		if err != nil {
			t.Errorf("table %s: %v", table, err)
		}
	}

	v, err := Version(db)
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if v != 3 {
		t.Errorf("version = %d, want 3", v)
	}
}

func TestFormatTimeSortsChronologically(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	times := []time.Time{
		base,
		base.Add(500 * time.Millisecond),
		base.Add(2 * time.Second),
		base.Add(25 * time.Millisecond),
	}
	for _, a := range times {
		for _, b := range times {
			if a.Before(b) != (FormatTime(a) < FormatTime(b)) {
				t.Errorf("order mismatch for %v and %v", a, b)
			}
		}
	}
}

func TestFormatTimeRoundTrip(t *testing.T) {
	loc := time.FixedZone("UTC-3", -3*60*60)
	in := time.Date(2026, 3, 1, 9, 30, 15, 123456789, loc)

	out, err := ParseTime(FormatTime(in))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !out.Equal(in) {
		t.Errorf("round trip = %v, want %v", out, in)
	}
}
