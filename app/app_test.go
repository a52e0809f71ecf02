package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nyczoning/notifier/app/agenda"
	"github.com/nyczoning/notifier/app/agenda/agendatest"
	"github.com/nyczoning/notifier/app/cfg"
)

func TestParseFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agenda.pdf")
	pdf := agendatest.AgendaPDF(
		[]agenda.Row{{CaseID: "C 240001 ZMK", Description: "Zoning map amendment", Location: "Citywide"}},
		nil,
	)
	if err := os.WriteFile(path, pdf, 0644); err != nil {
		t.Fatalf("Failed to write agenda: %v", err)
	}

	var out bytes.Buffer
	if err := parseFiles(&out, []string{path}); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	text := out.String()
	for _, want := range []string{"Public hearings (0)", "Commission votes (1)", "C 240001 ZMK", "None found"} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected output to contain %q, got:\n%s", want, text)
		}
	}
}

func TestParseFilesMissing(t *testing.T) {
	var out bytes.Buffer
	if err := parseFiles(&out, []string{filepath.Join(t.TempDir(), "missing.pdf")}); err == nil {
		t.Error("Expected error for a missing file")
	}
}

func TestSetupLoggingToDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")

	closeLog, err := setupLogging(&cfg.Cfg{LogDir: dir, Debug: true})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	closeLog()

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("Expected log directory, got: %v", err)
	}
	if len(entries) != 1 || !strings.HasSuffix(entries[0].Name(), ".log") {
		t.Errorf("Expected one .log file, got %v", entries)
	}
}

func TestRunResetAndNotifyLocal(t *testing.T) {
	t.Setenv("TZ", "America/New_York")
	dir := t.TempDir()
	config, err := cfg.ParseArgs([]string{
		"--db-path", filepath.Join(dir, "zoning.db"),
		"--outbox-dir", filepath.Join(dir, "outbox"),
		"--admin-email", "admin@example.com",
		"notify",
	})
	if err != nil {
		t.Fatalf("Failed to parse args: %v", err)
	}

	if err := run(t.Context(), config); err != nil {
		t.Fatalf("Expected notify to succeed, got: %v", err)
	}

	report := filepath.Join(dir, "outbox", "nyczoning report.html")
	if _, err := os.Stat(report); err != nil {
		t.Errorf("Expected admin report in the outbox: %v", err)
	}

	config.Command = cfg.CommandReset
	if err := run(t.Context(), config); err != nil {
		t.Errorf("Expected reset to succeed, got: %v", err)
	}
}
