package api

import (
	"html/template"

	"github.com/nyczoning/notifier/app/database"
	"github.com/nyczoning/notifier/app/mail"
	"github.com/nyczoning/notifier/app/tasks"
)

// TaskBuilder creates a fresh task for one API request.
type TaskBuilder func(source string) tasks.TaskInterface

type Handler struct {
	repo      database.MeetingRepository
	event     mail.Event
	scheduler tasks.TaskSchedulerInterface
	ingest    TaskBuilder
	notify    TaskBuilder
	index     *template.Template
	version   string
}

type ProjectResponse struct {
	CaseID          string `json:"case_id"`
	Description     string `json:"description"`
	IsPublicHearing bool   `json:"is_public_hearing"`
	Location        string `json:"location"`
	Councilmember   string `json:"councilmember"`
}

type MeetingResponse struct {
	ID        int64             `json:"id"`
	When      string            `json:"when"`
	Label     string            `json:"label"`
	Notified  bool              `json:"notified"`
	PDFPath   string            `json:"pdf_path"`
	SourceURL string            `json:"source_url"`
	GCalLink  string            `json:"gcal_link"`
	Projects  []ProjectResponse `json:"projects"`
}
