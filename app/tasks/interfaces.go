package tasks

import (
	"context"

	"github.com/nyczoning/notifier/app/agenda"
	"github.com/nyczoning/notifier/app/listing"
)

// TaskSchedulerInterface defines the interface for task scheduling operations.
// Used by serve mode and the HTTP API to queue ingest and notify runs.
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}

// AgendaSource lists meeting announcements and downloads their agendas.
type AgendaSource interface {
	Fetch(ctx context.Context) ([]listing.Announcement, error)
	Resolve(link string) (string, error)
	Download(ctx context.Context, url string) ([]byte, error)
}

// AgendaParser turns agenda PDF bytes into projects.
type AgendaParser interface {
	Run(data []byte) ([]agenda.Project, error)
}

var (
	_ AgendaSource = (*listing.Client)(nil)
	_ AgendaParser = (*agenda.Parser)(nil)
)
