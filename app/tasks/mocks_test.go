package tasks

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nyczoning/notifier/app/agenda"
	"github.com/nyczoning/notifier/app/database"
	"github.com/nyczoning/notifier/app/listing"
	"github.com/nyczoning/notifier/app/mail"
)

// MockMeetingRepository is an in-memory database.MeetingRepository
type MockMeetingRepository struct {
	mu             sync.Mutex
	meetings       []database.Meeting
	nextID         int64
	listErr        error
	setNotifiedErr error
	setCalls       [][]int64
}

var _ database.MeetingRepository = (*MockMeetingRepository)(nil)

func (m *MockMeetingRepository) ListMeetings(ctx context.Context, filter database.MeetingFilter) ([]database.Meeting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.listErr != nil {
		return nil, m.listErr
	}

	var out []database.Meeting
	for _, meeting := range m.meetings {
		if filter.ID != nil && meeting.ID != *filter.ID {
			continue
		}
		if filter.Notified != nil && meeting.Notified != *filter.Notified {
			continue
		}
		out = append(out, meeting)
	}
	return out, nil
}

func (m *MockMeetingRepository) GetStats(ctx context.Context) (database.MeetingStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var stats database.MeetingStats
	for _, meeting := range m.meetings {
		stats.Total++
		if meeting.Notified {
			stats.Notified++
		}
		stats.Projects += len(meeting.Projects)
	}
	return stats, nil
}

func (m *MockMeetingRepository) CommitMeeting(ctx context.Context, when time.Time, archivePath, sourceURL string, projects []agenda.Project) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, meeting := range m.meetings {
		if meeting.When.Equal(when) {
			return 0, fmt.Errorf("%w: %s", database.ErrDuplicateMeeting, when)
		}
	}

	m.nextID++
	m.meetings = append(m.meetings, database.Meeting{
		ID:          m.nextID,
		When:        when,
		ArchivePath: archivePath,
		SourceURL:   sourceURL,
		Projects:    projects,
	})
	return m.nextID, nil
}

func (m *MockMeetingRepository) SetNotified(ctx context.Context, meetingIDs []int64, notified bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.setCalls = append(m.setCalls, append([]int64(nil), meetingIDs...))
	if m.setNotifiedErr != nil {
		return m.setNotifiedErr
	}

	for i := range m.meetings {
		for _, id := range meetingIDs {
			if m.meetings[i].ID == id {
				m.meetings[i].Notified = notified
			}
		}
	}
	return nil
}

func (m *MockMeetingRepository) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.meetings = nil
	return nil
}

func (m *MockMeetingRepository) add(when time.Time, notified bool, projects ...agenda.Project) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	m.meetings = append(m.meetings, database.Meeting{
		ID:        m.nextID,
		When:      when,
		SourceURL: fmt.Sprintf("https://example.com/%d.pdf", m.nextID),
		Notified:  notified,
		Projects:  projects,
	})
	return m.nextID
}

// MockAgendaSource serves a fixed listing and agenda documents by URL
type MockAgendaSource struct {
	announcements []listing.Announcement
	fetchErr      error
	documents     map[string][]byte
	delay         time.Duration

	mu        sync.Mutex
	downloads []string
	inFlight  int32
	maxFlight int32
}

func (s *MockAgendaSource) Fetch(ctx context.Context) ([]listing.Announcement, error) {
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	return s.announcements, nil
}

func (s *MockAgendaSource) Resolve(link string) (string, error) {
	if strings.HasPrefix(link, "/") {
		return "https://example.com" + link, nil
	}
	return link, nil
}

func (s *MockAgendaSource) Download(ctx context.Context, url string) ([]byte, error) {
	n := atomic.AddInt32(&s.inFlight, 1)
	defer atomic.AddInt32(&s.inFlight, -1)

	s.mu.Lock()
	s.downloads = append(s.downloads, url)
	if n > s.maxFlight {
		s.maxFlight = n
	}
	s.mu.Unlock()

	if s.delay > 0 {
		time.Sleep(s.delay)
	}

	data, ok := s.documents[url]
	if !ok {
		return nil, fmt.Errorf("HTTP error: 404")
	}
	return data, nil
}

// MockAgendaParser returns projects keyed by document content
type MockAgendaParser struct {
	projects map[string][]agenda.Project
}

func (p *MockAgendaParser) Run(data []byte) ([]agenda.Project, error) {
	projects, ok := p.projects[string(data)]
	if !ok {
		return nil, errors.New("failed to open agenda: not a PDF")
	}
	return projects, nil
}

// MockSender records messages and fails for configured subjects
type MockSender struct {
	mu      sync.Mutex
	sent    []mail.Message
	failOn  map[string]error
	failAll error
	delay   time.Duration
}

func (s *MockSender) Send(ctx context.Context, msg mail.Message) error {
	time.Sleep(s.delay)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failAll != nil {
		return s.failAll
	}
	if err, ok := s.failOn[msg.Subject]; ok {
		return err
	}
	s.sent = append(s.sent, msg)
	return nil
}

func (s *MockSender) subjects() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []string
	for _, msg := range s.sent {
		out = append(out, msg.Subject)
	}
	sort.Strings(out)
	return out
}

type MockRecipients struct {
	addresses []mail.Address
	err       error
}

func (r *MockRecipients) Recipients(ctx context.Context) ([]mail.Address, error) {
	return r.addresses, r.err
}

var noFilter = database.MeetingFilter{}

func pendingFilter() database.MeetingFilter {
	pending := false
	return database.MeetingFilter{Notified: &pending}
}
