package cfg

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nyczoning/notifier/app/listing"
	"github.com/nyczoning/notifier/app/mail"
)

// Profile describes the meeting source: where it is listed and how its
// meetings appear on calendars.
type Profile struct {
	ListingURL       string `yaml:"listing_url"`
	TitleKeyword     string `yaml:"title_keyword"`
	DateLayout       string `yaml:"date_layout"`
	EventTitle       string `yaml:"event_title"`
	Venue            string `yaml:"venue"`
	VenueShort       string `yaml:"venue_short"`
	DurationMinutes  int    `yaml:"duration_minutes"`
	CalendarTimezone string `yaml:"calendar_timezone"`
}

func DefaultProfile() *Profile {
	event := mail.DefaultEvent()

	return &Profile{
		ListingURL:       listing.DefaultURL,
		TitleKeyword:     listing.DefaultKeyword,
		DateLayout:       listing.DefaultDateLayout,
		EventTitle:       event.Title,
		Venue:            event.Venue,
		VenueShort:       event.Address,
		DurationMinutes:  int(event.Duration / time.Minute),
		CalendarTimezone: event.TimeZone,
	}
}

// LoadProfile reads a profile file over the defaults. An empty path yields the defaults.
func LoadProfile(path string) (*Profile, error) {
	profile := DefaultProfile()
	if path == "" {
		return profile, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}

	if err := yaml.Unmarshal(data, profile); err != nil {
		return nil, fmt.Errorf("failed to parse profile YAML: %w", err)
	}

	if err := profile.validate(); err != nil {
		return nil, fmt.Errorf("invalid profile %s: %w", path, err)
	}

	slog.Debug("Profile loaded", "path", path, "listing_url", profile.ListingURL)

	return profile, nil
}

func (p *Profile) validate() error {
	required := map[string]string{
		"listing_url":   p.ListingURL,
		"title_keyword": p.TitleKeyword,
		"date_layout":   p.DateLayout,
		"event_title":   p.EventTitle,
	}
	for field, value := range required {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%s is required", field)
		}
	}

	if p.DurationMinutes <= 0 {
		return fmt.Errorf("duration_minutes must be positive")
	}

	if _, err := time.LoadLocation(p.CalendarTimezone); err != nil {
		return fmt.Errorf("invalid calendar_timezone %q: %w", p.CalendarTimezone, err)
	}

	return nil
}

// Event is the calendar view of the profile.
func (p *Profile) Event() mail.Event {
	return mail.Event{
		Title:    p.EventTitle,
		Venue:    p.Venue,
		Address:  p.VenueShort,
		Duration: time.Duration(p.DurationMinutes) * time.Minute,
		TimeZone: p.CalendarTimezone,
	}
}
