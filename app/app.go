package main

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/nyczoning/notifier/app/agenda"
	"github.com/nyczoning/notifier/app/api"
	"github.com/nyczoning/notifier/app/cfg"
	"github.com/nyczoning/notifier/app/database"
	"github.com/nyczoning/notifier/app/listing"
	"github.com/nyczoning/notifier/app/mail"
	"github.com/nyczoning/notifier/app/tasks"
)

// app holds the components shared by every command except parse.
type app struct {
	config     *cfg.Cfg
	db         *database.DB
	store      *database.MeetingStore
	listing    *listing.Client
	parser     *agenda.Parser
	renderer   *mail.Renderer
	sender     mail.Sender
	recipients mail.RecipientSource
	admin      mail.Address
}

func newApp(config *cfg.Cfg) (*app, error) {
	db, err := database.NewConnection(config.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	slog.Info("Connected to database", "path", config.DBPath)

	from := mail.Address{Email: config.FromEmail, Name: config.FromName}
	renderer, err := mail.NewRenderer(config.Profile.Event(), from)
	if err != nil {
		db.Close()
		return nil, err
	}
	renderer.SetArchiveBase(config.BaseUrl)

	httpClient := &http.Client{Timeout: config.HTTPTimeout}

	a := &app{
		config:   config,
		db:       db,
		store:    database.NewMeetingStore(db, config.Location),
		listing:  listing.NewClient(httpClient, config.Profile.ListingURL, config.UserAgent, config.HTTPTimeout),
		parser:   agenda.NewParser(),
		renderer: renderer,
		admin:    mail.Address{Email: config.AdminEmail},
	}

	switch config.Send {
	case cfg.SendLocal:
		a.sender = mail.NewFileSender(config.OutboxDir)
		a.recipients = mail.StaticRecipients{{Email: cmp.Or(config.AdminEmail, config.FromEmail)}}
	case cfg.SendAdmin:
		a.sender = mail.NewMailjetClient(httpClient, config.MailjetURL, config.MailjetAPIKey, config.MailjetSecret, config.HTTPTimeout)
		a.recipients = mail.StaticRecipients{a.admin}
	case cfg.SendAllContacts:
		client := mail.NewMailjetClient(httpClient, config.MailjetURL, config.MailjetAPIKey, config.MailjetSecret, config.HTTPTimeout)
		a.sender = client
		a.recipients = client.ContactList(config.MailjetContactList)
	default:
		db.Close()
		return nil, fmt.Errorf("unknown send type %q", config.Send)
	}

	slog.Debug("Mail transport configured", "send", config.Send)

	return a, nil
}

func (a *app) Close() {
	if err := a.db.Close(); err != nil {
		slog.Warn("Failed to close database", "error", err)
	}
}

func (a *app) ingestTask(source string) *tasks.IngestAgendasTask {
	return tasks.NewIngestAgendasTask(source, a.listing, a.parser, a.store, tasks.IngestOptions{
		StaticDir:      a.config.StaticDir,
		Keyword:        a.config.Profile.TitleKeyword,
		DateLayout:     a.config.Profile.DateLayout,
		Location:       a.config.Location,
		MaxConcurrency: a.config.MaxConcurrency,
	})
}

func (a *app) notifyTask(source string) *tasks.NotifyMeetingsTask {
	return tasks.NewNotifyMeetingsTask(source, a.store, a.renderer, a.sender, a.recipients, tasks.NotifyOptions{
		MeetingID:      a.config.MeetingID,
		Admin:          a.admin,
		MaxConcurrency: a.config.MaxConcurrency,
	})
}

// serve runs scheduled ingest and notify cycles next to the HTTP API until ctx is done.
func (a *app) serve(ctx context.Context) error {
	scheduler, err := tasks.NewScheduler(a.config.Schedule, a.config.Location, a.config.WorkerCount,
		func(source string) []tasks.TaskInterface {
			return []tasks.TaskInterface{a.ingestTask(source), a.notifyTask(source)}
		})
	if err != nil {
		return err
	}

	handler, err := api.NewHandler(a.store, a.renderer.Event(), scheduler,
		func(source string) tasks.TaskInterface { return a.ingestTask(source) },
		func(source string) tasks.TaskInterface { return a.notifyTask(source) },
		a.config.Version)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:         ":" + a.config.Port,
		Handler:      api.NewServer(handler, a.config.APIAccessKey, a.config.StaticDir),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	slog.Info("Starting background scheduler", "schedule", a.config.Schedule, "workers", a.config.WorkerCount)
	scheduler.Start()
	defer func() {
		scheduler.Stop()
		slog.Info("Background scheduler stopped")
	}()

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", a.config.Port, "base_url", a.config.BaseUrl)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("Shutting down server gracefully")
	case err := <-serverErr:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP server shutdown error: %w", err)
	}
	slog.Info("HTTP server stopped")

	return nil
}

// parseFiles prints the projects found in local agenda PDFs.
func parseFiles(w io.Writer, files []string) error {
	parser := agenda.NewParser()

	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		projects, err := parser.Run(data)
		if err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}

		var hearings, votes []agenda.Project
		for _, p := range projects {
			if p.IsPublicHearing {
				hearings = append(hearings, p)
			} else {
				votes = append(votes, p)
			}
		}

		fmt.Fprintf(w, "%s\n\nPublic hearings (%d)\n%s\nCommission votes (%d)\n%s\n",
			path, len(hearings), mail.ProjectTable(hearings), len(votes), mail.ProjectTable(votes))
	}

	return nil
}
