package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/nyczoning/notifier/app/agenda"
)

// MeetingStore persists meetings and their projects
type MeetingStore struct {
	db  *DB
	loc *time.Location
}

var _ MeetingRepository = (*MeetingStore)(nil)

// NewMeetingStore creates a store that writes and reads meeting times in loc
func NewMeetingStore(db *DB, loc *time.Location) *MeetingStore {
	if loc == nil {
		loc = time.UTC
	}
	return &MeetingStore{db: db, loc: loc}
}

type storedProject struct {
	ID              *int64 `json:"id"`
	CaseID          string `json:"case_id"`
	Description     string `json:"description"`
	Location        string `json:"location"`
	IsPublicHearing int    `json:"is_public_hearing"`
}

// ListMeetings returns matching meetings with their projects in one aggregated read
func (s *MeetingStore) ListMeetings(ctx context.Context, filter MeetingFilter) ([]Meeting, error) {
	query := `
		SELECT m.id, m.datetime, m.archive_path, m.source_url, m.notified,
		       json_group_array(json_object(
		           'id', p.id,
		           'case_id', p.raw_case_id,
		           'description', p.description,
		           'location', p.location,
		           'is_public_hearing', p.is_public_hearing
		       ))
		FROM meetings m
		LEFT JOIN projects p ON p.meeting_id = m.id
		WHERE 1 = 1`

	var args []any
	if filter.ID != nil {
		query += " AND m.id = ?"
		args = append(args, *filter.ID)
	}
	if filter.Notified != nil {
		query += " AND m.notified = ?"
		args = append(args, *filter.Notified)
	}
	query += `
		GROUP BY m.id, m.datetime, m.archive_path, m.source_url, m.notified
		ORDER BY m.datetime`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list meetings: %w", err)
	}
	defer rows.Close()

	var meetings []Meeting
	for rows.Next() {
		var m Meeting
		var datetime, projectsJSON string
		if err := rows.Scan(&m.ID, &datetime, &m.ArchivePath, &m.SourceURL, &m.Notified, &projectsJSON); err != nil {
			return nil, fmt.Errorf("failed to scan meeting row: %w", err)
		}

		m.When, err = time.ParseInLocation(time.DateTime, datetime, s.loc)
		if err != nil {
			return nil, fmt.Errorf("failed to parse meeting time %q: %w", datetime, err)
		}

		m.Projects, err = decodeProjects(projectsJSON)
		if err != nil {
			return nil, fmt.Errorf("failed to decode projects of meeting %d: %w", m.ID, err)
		}

		meetings = append(meetings, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate meetings: %w", err)
	}

	return meetings, nil
}

func decodeProjects(data string) ([]agenda.Project, error) {
	var stored []storedProject
	if err := json.Unmarshal([]byte(data), &stored); err != nil {
		return nil, err
	}

	// A meeting without projects aggregates to a single all-null object
	kept := stored[:0]
	for _, p := range stored {
		if p.ID != nil {
			kept = append(kept, p)
		}
	}
	sort.Slice(kept, func(i, j int) bool { return *kept[i].ID < *kept[j].ID })

	projects := make([]agenda.Project, 0, len(kept))
	for _, p := range kept {
		projects = append(projects, agenda.Project{
			CaseID:          p.CaseID,
			Description:     p.Description,
			IsPublicHearing: p.IsPublicHearing != 0,
			Location:        agenda.ParseLocation(p.Location),
		})
	}

	return projects, nil
}

// GetStats returns meeting and project counts
func (s *MeetingStore) GetStats(ctx context.Context) (MeetingStats, error) {
	var stats MeetingStats
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN notified THEN 1 ELSE 0 END), 0),
			(SELECT COUNT(*) FROM projects)
		FROM meetings
	`).Scan(&stats.Total, &stats.Notified, &stats.Projects)

	if err != nil {
		return MeetingStats{}, fmt.Errorf("failed to get meeting stats: %w", err)
	}

	return stats, nil
}

// Tx groups meeting and project inserts into one atomic unit
type Tx struct {
	tx    *sql.Tx
	store *MeetingStore
}

// WithTx runs fn in a transaction, committing when fn returns nil
func (s *MeetingStore) WithTx(ctx context.Context, fn func(tx *Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(&Tx{tx: sqlTx, store: s}); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// InsertMeeting stores a new meeting with notified=false and returns its id
func (t *Tx) InsertMeeting(ctx context.Context, when time.Time, archivePath, sourceURL string) (int64, error) {
	datetime := t.store.format(when)

	res, err := t.tx.ExecContext(ctx, `
		INSERT INTO meetings (datetime, archive_path, source_url, notified)
		VALUES (?, ?, ?, FALSE)
	`, datetime, archivePath, sourceURL)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("%w: %s", ErrDuplicateMeeting, datetime)
		}
		return 0, fmt.Errorf("failed to insert meeting: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get meeting id: %w", err)
	}

	return id, nil
}

// InsertProjects stores projects under meetingID, keeping their order
func (t *Tx) InsertProjects(ctx context.Context, meetingID int64, projects []agenda.Project) error {
	if len(projects) == 0 {
		return nil
	}

	stmt, err := t.tx.PrepareContext(ctx, `
		INSERT INTO projects (meeting_id, is_public_hearing, raw_case_id, description, location)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare project insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range projects {
		_, err := stmt.ExecContext(ctx, meetingID, p.IsPublicHearing, p.CaseID, p.Description, p.Location.Raw)
		if err != nil {
			return fmt.Errorf("failed to insert project %q: %w", p.CaseID, err)
		}
	}

	return nil
}

// CommitMeeting inserts a meeting and all of its projects atomically
func (s *MeetingStore) CommitMeeting(ctx context.Context, when time.Time, archivePath, sourceURL string, projects []agenda.Project) (int64, error) {
	var id int64
	err := s.WithTx(ctx, func(tx *Tx) error {
		var err error
		id, err = tx.InsertMeeting(ctx, when, archivePath, sourceURL)
		if err != nil {
			return err
		}
		return tx.InsertProjects(ctx, id, projects)
	})
	if err != nil {
		return 0, err
	}

	return id, nil
}

// SetNotified updates the notified flag of the given meetings in one transaction
func (s *MeetingStore) SetNotified(ctx context.Context, meetingIDs []int64, notified bool) error {
	if len(meetingIDs) == 0 {
		return nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(meetingIDs)), ",")
	args := make([]any, 0, len(meetingIDs)+1)
	args = append(args, notified)
	for _, id := range meetingIDs {
		args = append(args, id)
	}

	return s.WithTx(ctx, func(tx *Tx) error {
		_, err := tx.tx.ExecContext(ctx,
			"UPDATE meetings SET notified = ? WHERE id IN ("+placeholders+")", args...)
		if err != nil {
			return fmt.Errorf("failed to update notified flag: %w", err)
		}
		return nil
	})
}

// Clear removes every meeting and project
func (s *MeetingStore) Clear(ctx context.Context) error {
	return s.WithTx(ctx, func(tx *Tx) error {
		if _, err := tx.tx.ExecContext(ctx, "DELETE FROM projects"); err != nil {
			return fmt.Errorf("failed to clear projects: %w", err)
		}
		if _, err := tx.tx.ExecContext(ctx, "DELETE FROM meetings"); err != nil {
			return fmt.Errorf("failed to clear meetings: %w", err)
		}
		return nil
	})
}

func (s *MeetingStore) format(when time.Time) string {
	return when.In(s.loc).Format(time.DateTime)
}

func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		code := sqliteErr.Code()
		if code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY {
			return true
		}
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
