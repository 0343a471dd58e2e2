package calendar

import (
	"testing"
	"time"
)

func nyse(t *testing.T) *Calendar {
	t.Helper()
	c, err := New(Config{
		Timezone: "America/New_York",
		Sessions: []Session{
			{Weekday: time.Monday, Open: "09:30", Close: "16:00"},
			{Weekday: time.Tuesday, Open: "09:30", Close: "16:00"},
			{Weekday: time.Wednesday, Open: "09:30", Close: "16:00"},
			{Weekday: time.Thursday, Open: "09:30", Close: "16:00"},
			{Weekday: time.Friday, Open: "09:30", Close: "16:00"},
		},
		Holidays: []string{"2025-07-04"},
	})
	if err != nil {
		t.Fatalf("calendar: %v", err)
	}
	return c
}

func TestIsOpenRegularSession(t *testing.T) {
	c := nyse(t)
	ny, _ := time.LoadLocation("America/New_York")

	cases := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"mid-session", time.Date(2025, 6, 2, 12, 0, 0, 0, ny), true}, // Monday
		{"before open", time.Date(2025, 6, 2, 9, 29, 0, 0, ny), false},
		{"at open", time.Date(2025, 6, 2, 9, 30, 0, 0, ny), true},
		{"at close", time.Date(2025, 6, 2, 16, 0, 0, 0, ny), false},
		{"saturday", time.Date(2025, 6, 7, 12, 0, 0, 0, ny), false},
		{"holiday", time.Date(2025, 7, 4, 12, 0, 0, 0, ny), false},
	}
	for _, tc := range cases {
		if got := c.IsOpen(tc.at); got != tc.want {
			t.Fatalf("%s: IsOpen = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestIsOpenConvertsTimezone(t *testing.T) {
	c := nyse(t)
	// 15:00 UTC on a Monday is 11:00 in New York: open
	if !c.IsOpen(time.Date(2025, 6, 2, 15, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected open at 15:00 UTC")
	}
	// 02:00 UTC is 22:00 the previous evening in New York: closed
	if c.IsOpen(time.Date(2025, 6, 3, 2, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected closed at 02:00 UTC")
	}
}

func TestIsOpenOvernightSession(t *testing.T) {
	// futures-style session: Sunday 18:00 through Monday 17:00
	c, err := New(Config{
		Timezone: "America/Chicago",
		Sessions: []Session{
			{Weekday: time.Sunday, Open: "18:00", Close: "17:00"},
		},
	})
	if err != nil {
		t.Fatalf("calendar: %v", err)
	}
	chi, _ := time.LoadLocation("America/Chicago")

	cases := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"sunday evening after open", time.Date(2025, 6, 1, 20, 0, 0, 0, chi), true},
		{"monday morning spillover", time.Date(2025, 6, 2, 3, 0, 0, 0, chi), true},
		{"monday after close", time.Date(2025, 6, 2, 17, 30, 0, 0, chi), false},
		{"sunday before open", time.Date(2025, 6, 1, 12, 0, 0, 0, chi), false},
	}
	for _, tc := range cases {
		if got := c.IsOpen(tc.at); got != tc.want {
			t.Fatalf("%s: IsOpen = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestEmptySessionsAlwaysOpen(t *testing.T) {
	c, err := New(Config{Timezone: "UTC", Holidays: []string{"2025-12-25"}})
	if err != nil {
		t.Fatalf("calendar: %v", err)
	}
	if !c.IsOpen(time.Date(2025, 6, 7, 3, 0, 0, 0, time.UTC)) {
		t.Fatalf("24h market should be open on a saturday night")
	}
	if c.IsOpen(time.Date(2025, 12, 25, 12, 0, 0, 0, time.UTC)) {
		t.Fatalf("holiday closes even a 24h market")
	}
}

func TestRegistryFallbacks(t *testing.T) {
	reg, err := NewRegistry(map[string]Config{
		"": {Timezone: "UTC", Sessions: []Session{{Weekday: time.Monday, Open: "09:00", Close: "17:00"}}},
		"BTC-USD": {Timezone: "UTC"}, // always open
	})
	if err != nil {
		t.Fatalf("registry: %v", err)
	}

	monday := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	sunday := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	if !reg.IsOpen("AAPL", monday) || reg.IsOpen("AAPL", sunday) {
		t.Fatalf("default calendar not applied to unmapped symbol")
	}
	if !reg.IsOpen("BTC-USD", sunday) {
		t.Fatalf("per-symbol calendar not applied")
	}

	empty, err := NewRegistry(nil)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	if !empty.IsOpen("ANY", sunday) {
		t.Fatalf("no calendars at all means always open")
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	if _, err := New(Config{Timezone: "Not/AZone"}); err == nil {
		t.Fatalf("expected timezone error")
	}
	if _, err := New(Config{Sessions: []Session{{Weekday: time.Monday, Open: "9am", Close: "16:00"}}}); err == nil {
		t.Fatalf("expected clock parse error")
	}
	if _, err := New(Config{Holidays: []string{"07/04/2025"}}); err == nil {
		t.Fatalf("expected holiday parse error")
	}
}
