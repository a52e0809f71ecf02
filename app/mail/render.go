package mail

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/nyczoning/notifier/app/agenda"
	"github.com/nyczoning/notifier/app/database"
)

const (
	ReportSubject = "nyczoning report"

	publicHearingsTitle  = "Projects that will have public hearings"
	commissionVotesTitle = "Projects that will be voted on"
)

//go:embed templates/*.html
var templateFS embed.FS

type section struct {
	Title    string
	Projects []agenda.Project
}

type meetingView struct {
	When         string
	Address      string
	CalendarLink string
	AgendaURL    string
	Sections     []section
}

// Renderer turns stored meetings into notification messages.
type Renderer struct {
	event       Event
	from        Address
	tmpl        *template.Template
	archiveBase string
}

func NewRenderer(event Event, from Address) (*Renderer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/meeting.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse meeting template: %w", err)
	}

	return &Renderer{event: event, from: from, tmpl: tmpl}, nil
}

func (r *Renderer) Event() Event {
	return r.event
}

// SetArchiveBase makes messages link the archived agenda served under
// <baseURL>/static instead of the upstream PDF.
func (r *Renderer) SetArchiveBase(baseURL string) {
	r.archiveBase = strings.TrimSuffix(baseURL, "/")
}

// AgendaURL is the agenda link shown in messages.
func (r *Renderer) AgendaURL(m database.Meeting) string {
	if r.archiveBase == "" || m.ArchivePath == "" {
		return m.SourceURL
	}
	return r.archiveBase + "/static/" + url.PathEscape(filepath.Base(m.ArchivePath))
}

// Subject is e.g. "NYC zoning meeting on Monday, January 2".
func (r *Renderer) Subject(m database.Meeting) string {
	return "NYC zoning meeting on " + m.When.Format("Monday, January 2")
}

func (r *Renderer) HTML(m database.Meeting) (string, error) {
	agendaURL := r.AgendaURL(m)
	view := meetingView{
		When:         FormatWhen(m.When),
		Address:      r.event.Address,
		CalendarLink: r.event.GoogleCalendarLink(m.When, agendaURL),
		AgendaURL:    agendaURL,
		Sections: []section{
			{Title: publicHearingsTitle, Projects: m.PublicHearings()},
			{Title: commissionVotesTitle, Projects: m.CommissionVotes()},
		},
	}

	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, "meeting.html", view); err != nil {
		return "", fmt.Errorf("failed to render meeting %d: %w", m.ID, err)
	}

	return buf.String(), nil
}

func (r *Renderer) Text(m database.Meeting) string {
	agendaURL := r.AgendaURL(m)

	var b strings.Builder

	fmt.Fprintf(&b, "The NYC planning commission will have a public meeting on %s.\n", FormatWhen(m.When))
	fmt.Fprintf(&b, "Location: %s\n", r.event.Address)
	fmt.Fprintf(&b, "Add this meeting to your Google Calendar: %s\n", r.event.GoogleCalendarLink(m.When, agendaURL))
	fmt.Fprintf(&b, "The full agenda can be found here: %s\n", agendaURL)

	fmt.Fprintf(&b, "\n%s\n\n%s", publicHearingsTitle, ProjectTable(m.PublicHearings()))
	fmt.Fprintf(&b, "\n%s\n\n%s", commissionVotesTitle, ProjectTable(m.CommissionVotes()))

	return b.String()
}

// Meeting builds the notification for one meeting addressed to recipients.
func (r *Renderer) Meeting(m database.Meeting, recipients []Address) (Message, error) {
	html, err := r.HTML(m)
	if err != nil {
		return Message{}, err
	}

	return Message{
		From:     r.from,
		To:       recipients,
		Subject:  r.Subject(m),
		HTMLPart: html,
		TextPart: r.Text(m),
		Attachments: []Attachment{{
			Filename:    "meeting-" + m.When.Format("2006-01-02") + ".ics",
			ContentType: "text/calendar",
			Content:     []byte(r.event.ICS(m.ID, m.When, r.AgendaURL(m))),
		}},
	}, nil
}

// Report builds the operator summary message.
func (r *Renderer) Report(admin Address, text string) Message {
	return Message{
		From:     r.from,
		To:       []Address{admin},
		Subject:  ReportSubject,
		TextPart: text,
	}
}

// FormatWhen is the human form used in reports and the API.
func FormatWhen(t time.Time) string {
	return t.Format("Monday, January 2 at 3:04 PM")
}
