package mail

import (
	"fmt"
	"net/url"
	"time"

	ical "github.com/arran4/golang-ical"
)

const calendarLayout = "20060102T150405"

// Event describes how a meeting appears on a calendar.
type Event struct {
	Title    string
	Venue    string // Full calendar location
	Address  string // Short street address for the message body
	Duration time.Duration
	TimeZone string
}

func DefaultEvent() Event {
	return Event{
		Title:    "NYC Planning Commission Public Meeting",
		Venue:    "City Planning Commission Hearing Room, Lower Concourse - 120 Broadway, New York, NY 10271",
		Address:  "120 Broadway, New York, NY 10271",
		Duration: time.Hour,
		TimeZone: "America/New_York",
	}
}

// GoogleCalendarLink builds an "add event" link for a meeting starting at when.
func (e Event) GoogleCalendarLink(when time.Time, agendaURL string) string {
	start, end := e.span(when)

	params := url.Values{}
	params.Set("action", "TEMPLATE")
	params.Set("text", e.Title)
	params.Set("dates", start.Format(calendarLayout)+"/"+end.Format(calendarLayout))
	params.Set("ctz", e.TimeZone)
	params.Set("details", "Agenda: "+agendaURL)
	params.Set("location", e.Venue)

	return "https://www.google.com/calendar/render?" + params.Encode()
}

// ICS renders the meeting as a single-event iCalendar file.
func (e Event) ICS(id int64, when time.Time, agendaURL string) string {
	start, end := e.span(when)

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId("-//nyczoning//notifier//EN")

	event := cal.AddEvent(fmt.Sprintf("meeting-%d-%s@nyczoning", id, start.UTC().Format(calendarLayout)))
	event.SetDtStampTime(start)
	event.SetStartAt(start)
	event.SetEndAt(end)
	event.SetSummary(e.Title)
	event.SetLocation(e.Venue)
	event.SetDescription("Agenda: " + agendaURL)
	if agendaURL != "" {
		event.SetURL(agendaURL)
	}

	return cal.Serialize()
}

func (e Event) span(when time.Time) (time.Time, time.Time) {
	if loc, err := time.LoadLocation(e.TimeZone); err == nil {
		when = when.In(loc)
	}
	duration := e.Duration
	if duration <= 0 {
		duration = time.Hour
	}
	return when, when.Add(duration)
}
