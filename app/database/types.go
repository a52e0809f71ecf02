package database

import (
	"time"

	"github.com/nyczoning/notifier/app/agenda"
)

type Meeting struct {
	ID          int64
	When        time.Time
	ArchivePath string // Local copy of the agenda, also its public file name
	SourceURL   string // Agenda URL as published in the listing
	Notified    bool
	Projects    []agenda.Project
}

// PublicHearings returns the projects in the public hearings section, in agenda order.
func (m Meeting) PublicHearings() []agenda.Project {
	return m.section(true)
}

// CommissionVotes returns the projects in the commission votes section, in agenda order.
func (m Meeting) CommissionVotes() []agenda.Project {
	return m.section(false)
}

func (m Meeting) section(isPublicHearing bool) []agenda.Project {
	var projects []agenda.Project
	for _, p := range m.Projects {
		if p.IsPublicHearing == isPublicHearing {
			projects = append(projects, p)
		}
	}
	return projects
}

// MeetingFilter fields are optional and combined with AND.
type MeetingFilter struct {
	ID       *int64
	Notified *bool
}

type MeetingStats struct {
	Total    int
	Notified int
	Projects int
}
