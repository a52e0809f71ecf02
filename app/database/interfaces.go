package database

import (
	"context"
	"errors"
	"time"

	"github.com/nyczoning/notifier/app/agenda"
)

// ErrDuplicateMeeting is returned when a meeting with the same start time is already stored.
var ErrDuplicateMeeting = errors.New("meeting already exists")

type MeetingRepository interface {
	ListMeetings(ctx context.Context, filter MeetingFilter) ([]Meeting, error)
	GetStats(ctx context.Context) (MeetingStats, error)

	CommitMeeting(ctx context.Context, when time.Time, archivePath, sourceURL string, projects []agenda.Project) (int64, error)
	SetNotified(ctx context.Context, meetingIDs []int64, notified bool) error

	Clear(ctx context.Context) error
}
