package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/nyczoning/notifier/app/database"
	"github.com/nyczoning/notifier/app/mail"
)

// notifyMu serialises notify runs so that a cron cycle and an API request
// never read the same pending meetings.
var notifyMu sync.Mutex

type NotifyOptions struct {
	MeetingID      *int64 // Notify this meeting regardless of its notified flag
	Admin          mail.Address
	MaxConcurrency int
}

type NotifyResult struct {
	Matched int
	Sent    []int64
	Failed  map[int64]error
}

type NotifyMeetingsTask struct {
	Task
	repo       database.MeetingRepository
	renderer   *mail.Renderer
	sender     mail.Sender
	recipients mail.RecipientSource
	opts       NotifyOptions
}

func NewNotifyMeetingsTask(source string, repo database.MeetingRepository, renderer *mail.Renderer, sender mail.Sender, recipients mail.RecipientSource, opts NotifyOptions) *NotifyMeetingsTask {
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = DefaultMaxConcurrency
	}

	task := NewTask(TaskTypeNotifyMeetings, source)
	// A retry after a partial send would notify subscribers twice.
	task.MaxRetries = 0

	return &NotifyMeetingsTask{
		Task:       task,
		repo:       repo,
		renderer:   renderer,
		sender:     sender,
		recipients: recipients,
		opts:       opts,
	}
}

func (t *NotifyMeetingsTask) Execute(ctx context.Context) error {
	_, err := t.Run(ctx)
	return err
}

// Run sends one message per matching meeting and marks the delivered ones
// notified in a single update.
func (t *NotifyMeetingsTask) Run(ctx context.Context) (NotifyResult, error) {
	result := NotifyResult{Failed: make(map[int64]error)}

	select {
	case <-ctx.Done():
		return result, ctx.Err()
	default:
	}

	notifyMu.Lock()
	defer notifyMu.Unlock()

	filter := database.MeetingFilter{ID: t.opts.MeetingID}
	if t.opts.MeetingID == nil {
		pending := false
		filter.Notified = &pending
	}

	meetings, err := t.repo.ListMeetings(ctx, filter)
	if err != nil {
		return result, fmt.Errorf("failed to list meetings: %w", err)
	}
	result.Matched = len(meetings)

	slog.Info("Meetings matched for notification", "count", len(meetings), "meeting_id", t.opts.MeetingID)

	if len(meetings) == 0 {
		t.report(ctx, meetings, result, nil)
		return result, nil
	}

	recipients, err := t.recipients.Recipients(ctx)
	if err != nil {
		err = fmt.Errorf("failed to resolve recipients: %w", err)
		slog.Error("Failed to notify meetings", "count", len(meetings), "error", err)
		for _, m := range meetings {
			result.Failed[m.ID] = err
		}
		t.report(ctx, meetings, result, nil)
		return result, nil
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, t.opts.MaxConcurrency)

	for _, m := range meetings {
		wg.Add(1)
		go func(m database.Meeting) {
			defer wg.Done()

			err := t.send(ctx, sem, m, recipients)

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				slog.Error("Failed to notify meeting", "id", m.ID, "when", m.When, "error", err)
				result.Failed[m.ID] = err
				return
			}
			result.Sent = append(result.Sent, m.ID)
		}(m)
	}

	wg.Wait()

	sort.Slice(result.Sent, func(i, j int) bool { return result.Sent[i] < result.Sent[j] })

	if err := t.repo.SetNotified(ctx, result.Sent, true); err != nil {
		err = fmt.Errorf("failed to mark meetings notified: %w", err)
		// Sent meetings are still pending and will be mailed again on the next run.
		t.report(ctx, meetings, result, err)
		return result, err
	}

	t.report(ctx, meetings, result, nil)

	slog.Info("Task completed",
		"type", t.GetType(),
		"source", t.GetSource(),
		"duration", t.GetDuration(),
		"matched", result.Matched,
		"sent", len(result.Sent),
		"failed", len(result.Failed))

	return result, nil
}

func (t *NotifyMeetingsTask) send(ctx context.Context, sem chan struct{}, m database.Meeting, recipients []mail.Address) error {
	select {
	case sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-sem }()

	msg, err := t.renderer.Meeting(m, recipients)
	if err != nil {
		return err
	}

	return t.sender.Send(ctx, msg)
}

// report mails the operator a summary, with runErr appended when the run
// itself failed. Its failure never affects the run.
func (t *NotifyMeetingsTask) report(ctx context.Context, meetings []database.Meeting, result NotifyResult, runErr error) {
	if t.opts.Admin.Email == "" {
		slog.Debug("No admin address, skipping report")
		return
	}

	text := ReportText(meetings, result)
	if runErr != nil {
		text = strings.TrimSuffix(text, "\n") + "\nerror: " + runErr.Error() + "\n"
	}

	msg := t.renderer.Report(t.opts.Admin, text)
	if err := t.sender.Send(ctx, msg); err != nil {
		slog.Warn("Failed to send admin report", "error", err)
		return
	}

	slog.Info("Admin report sent", "to", t.opts.Admin.Email)
}

// ReportText summarises a notify run, one line per meeting.
func ReportText(meetings []database.Meeting, result NotifyResult) string {
	if len(meetings) == 0 {
		return "meetings: none matched"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "meetings: %d matched, %d sent, %d failed\n", result.Matched, len(result.Sent), len(result.Failed))

	for _, m := range meetings {
		status := "not sent"
		if err, ok := result.Failed[m.ID]; ok {
			status = "failed: " + err.Error()
		} else {
			for _, id := range result.Sent {
				if id == m.ID {
					status = "sent"
					break
				}
			}
		}
		fmt.Fprintf(&b, "%d  %s  %d projects  %s\n", m.ID, mail.FormatWhen(m.When), len(m.Projects), status)
	}

	return b.String()
}
