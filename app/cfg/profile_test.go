package cfg

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeProfile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "profile.yml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write profile: %v", err)
	}
	return path
}

func TestLoadProfileDefaults(t *testing.T) {
	profile, err := LoadProfile("")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	event := profile.Event()
	if event.Duration != time.Hour {
		t.Errorf("Expected one hour meetings, got %v", event.Duration)
	}
	if event.Address != "120 Broadway, New York, NY 10271" {
		t.Errorf("Unexpected address %q", event.Address)
	}
	if profile.TitleKeyword != "public meeting" {
		t.Errorf("Unexpected keyword %q", profile.TitleKeyword)
	}
}

func TestLoadProfileOverrides(t *testing.T) {
	path := writeProfile(t, `
listing_url: https://example.com/calendar.json
event_title: Landmarks Preservation Commission Public Hearing
duration_minutes: 180
`)

	profile, err := LoadProfile(path)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if profile.ListingURL != "https://example.com/calendar.json" {
		t.Errorf("Unexpected listing URL %q", profile.ListingURL)
	}
	if profile.Event().Duration != 3*time.Hour {
		t.Errorf("Expected 3h duration, got %v", profile.Event().Duration)
	}
	if profile.DateLayout != DefaultProfile().DateLayout {
		t.Errorf("Expected unset fields to keep defaults, got %q", profile.DateLayout)
	}
}

func TestLoadProfileValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "empty keyword", content: "title_keyword: ''\n"},
		{name: "negative duration", content: "duration_minutes: -5\n"},
		{name: "bad timezone", content: "calendar_timezone: Nowhere/Special\n"},
		{name: "not yaml", content: "listing_url: [unclosed\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadProfile(writeProfile(t, tt.content)); err == nil {
				t.Error("Expected error")
			}
		})
	}
}
