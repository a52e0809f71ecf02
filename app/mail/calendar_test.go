package mail

import (
	"net/url"
	"strings"
	"testing"
	"time"

	ical "github.com/arran4/golang-ical"
)

func TestGoogleCalendarLink(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("Failed to load location: %v", err)
	}

	link := DefaultEvent().GoogleCalendarLink(time.Date(2024, 12, 31, 23, 30, 0, 0, loc), "https://example.com/a.pdf")

	u, err := url.Parse(link)
	if err != nil {
		t.Fatalf("Failed to parse link: %v", err)
	}

	if u.Host != "www.google.com" || u.Path != "/calendar/render" {
		t.Errorf("Unexpected link target %s", link)
	}

	want := map[string]string{
		"action":   "TEMPLATE",
		"text":     "NYC Planning Commission Public Meeting",
		"dates":    "20241231T233000/20250101T003000",
		"ctz":      "America/New_York",
		"details":  "Agenda: https://example.com/a.pdf",
		"location": "City Planning Commission Hearing Room, Lower Concourse - 120 Broadway, New York, NY 10271",
	}
	for key, value := range want {
		if got := u.Query().Get(key); got != value {
			t.Errorf("%s: expected %q, got %q", key, value, got)
		}
	}
}

func TestICS(t *testing.T) {
	when := time.Date(2024, 3, 4, 18, 0, 0, 0, time.UTC)

	data := DefaultEvent().ICS(3, when, "https://example.com/a.pdf")

	cal, err := ical.ParseCalendar(strings.NewReader(data))
	if err != nil {
		t.Fatalf("Expected valid calendar, got: %v", err)
	}

	events := cal.Events()
	if len(events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(events))
	}

	event := events[0]
	start, err := event.GetStartAt()
	if err != nil {
		t.Fatalf("Expected start time, got: %v", err)
	}
	if !start.Equal(when) {
		t.Errorf("Expected start %v, got %v", when, start)
	}

	end, err := event.GetEndAt()
	if err != nil {
		t.Fatalf("Expected end time, got: %v", err)
	}
	if end.Sub(start) != time.Hour {
		t.Errorf("Expected one hour event, got %v", end.Sub(start))
	}

	if p := event.GetProperty(ical.ComponentPropertySummary); p == nil || p.Value != "NYC Planning Commission Public Meeting" {
		t.Errorf("Unexpected summary %+v", p)
	}
}
