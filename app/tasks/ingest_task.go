package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/nyczoning/notifier/app/database"
	"github.com/nyczoning/notifier/app/listing"
)

const DefaultMaxConcurrency = 4

type IngestOptions struct {
	StaticDir      string
	Keyword        string
	DateLayout     string
	Location       *time.Location
	MaxConcurrency int
}

type IngestResult struct {
	Listed     int // Entries in the listing
	Skipped    int // Not a meeting, no agenda yet or unparseable date
	Known      int // Already stored
	Ingested   int
	Failed     int
	MeetingIDs []int64
}

type candidate struct {
	title string
	link  string
	when  time.Time
}

type IngestAgendasTask struct {
	Task
	source AgendaSource
	parser AgendaParser
	repo   database.MeetingRepository
	opts   IngestOptions
}

func NewIngestAgendasTask(source string, agendas AgendaSource, parser AgendaParser, repo database.MeetingRepository, opts IngestOptions) *IngestAgendasTask {
	if opts.Keyword == "" {
		opts.Keyword = listing.DefaultKeyword
	}
	if opts.DateLayout == "" {
		opts.DateLayout = listing.DefaultDateLayout
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = DefaultMaxConcurrency
	}
	if opts.StaticDir == "" {
		opts.StaticDir = "static"
	}

	return &IngestAgendasTask{
		Task:   NewTask(TaskTypeIngestAgendas, source),
		source: agendas,
		parser: parser,
		repo:   repo,
		opts:   opts,
	}
}

func (t *IngestAgendasTask) Execute(ctx context.Context) error {
	_, err := t.Run(ctx)
	return err
}

// Run stores every listed meeting that is not in the store yet. Only a
// listing or store read failure fails the run; a bad agenda is counted and
// retried on the next run.
func (t *IngestAgendasTask) Run(ctx context.Context) (IngestResult, error) {
	var result IngestResult

	select {
	case <-ctx.Done():
		return result, ctx.Err()
	default:
	}

	announcements, err := t.source.Fetch(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to fetch listing: %w", err)
	}
	result.Listed = len(announcements)

	meetings, err := t.repo.ListMeetings(ctx, database.MeetingFilter{})
	if err != nil {
		return result, fmt.Errorf("failed to list stored meetings: %w", err)
	}

	known := make(map[string]bool, len(meetings))
	for _, m := range meetings {
		known[t.key(m.When)] = true
	}

	var candidates []candidate
	for _, a := range announcements {
		if !a.IsMeeting(t.opts.Keyword) {
			slog.Debug("Skipping announcement, not a public meeting", "title", a.Title)
			result.Skipped++
			continue
		}

		if !a.HasAgenda() {
			slog.Info("Skipping announcement, no agenda yet", "title", a.Title)
			result.Skipped++
			continue
		}

		when, err := a.When(t.opts.DateLayout, t.opts.Location)
		if err != nil {
			slog.Warn("Skipping announcement, bad date", "title", a.Title, "error", err)
			result.Skipped++
			continue
		}

		if known[t.key(when)] {
			slog.Debug("Skipping announcement, already stored", "title", a.Title, "when", when)
			result.Known++
			continue
		}
		known[t.key(when)] = true

		candidates = append(candidates, candidate{title: a.Title, link: a.AgendaLink, when: when})
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, t.opts.MaxConcurrency)

	for _, c := range candidates {
		wg.Add(1)
		go func(c candidate) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				mu.Lock()
				result.Failed++
				mu.Unlock()
				return
			}
			defer func() { <-sem }()

			id, err := t.ingest(ctx, c)

			mu.Lock()
			defer mu.Unlock()

			switch {
			case errors.Is(err, database.ErrDuplicateMeeting):
				slog.Info("Meeting stored concurrently, skipping", "when", c.when)
				result.Known++
			case err != nil:
				slog.Error("Failed to ingest agenda", "title", c.title, "when", c.when, "url", c.link, "error", err)
				result.Failed++
			default:
				result.Ingested++
				result.MeetingIDs = append(result.MeetingIDs, id)
			}
		}(c)
	}

	wg.Wait()

	slog.Info("Task completed",
		"type", t.GetType(),
		"source", t.GetSource(),
		"duration", t.GetDuration(),
		"listed", result.Listed,
		"skipped", result.Skipped,
		"known", result.Known,
		"ingested", result.Ingested,
		"failed", result.Failed)

	return result, nil
}

func (t *IngestAgendasTask) ingest(ctx context.Context, c candidate) (int64, error) {
	agendaURL, err := t.source.Resolve(c.link)
	if err != nil {
		return 0, err
	}

	slog.Debug("Downloading agenda", "url", agendaURL, "when", c.when)

	data, err := t.source.Download(ctx, agendaURL)
	if err != nil {
		return 0, fmt.Errorf("failed to download agenda: %w", err)
	}

	archivePath := ArchivePath(t.opts.StaticDir, c.when)
	if err := os.MkdirAll(t.opts.StaticDir, 0755); err != nil {
		return 0, fmt.Errorf("failed to create archive directory: %w", err)
	}
	if err := os.WriteFile(archivePath, data, 0644); err != nil {
		return 0, fmt.Errorf("failed to archive agenda: %w", err)
	}

	projects, err := t.parser.Run(data)
	if err != nil {
		return 0, fmt.Errorf("failed to parse agenda: %w", err)
	}

	id, err := t.repo.CommitMeeting(ctx, c.when, archivePath, agendaURL, projects)
	if err != nil {
		return 0, err
	}

	slog.Info("Meeting ingested", "id", id, "when", c.when, "projects", len(projects), "archive", archivePath)

	return id, nil
}

func (t *IngestAgendasTask) key(when time.Time) string {
	return when.In(t.opts.Location).Truncate(time.Minute).Format(time.DateTime)
}

// ArchiveName is the file name of a meeting's archived agenda.
func ArchiveName(when time.Time) string {
	return when.Format(time.DateTime) + ".pdf"
}

func ArchivePath(staticDir string, when time.Time) string {
	return filepath.Join(staticDir, ArchiveName(when))
}
