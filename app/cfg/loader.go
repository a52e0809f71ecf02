package cfg

import (
	"cmp"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Storage
	DBPath    string `long:"db-path" env:"ZONING_DB_PATH" description:"SQLite database file (required)"`
	StaticDir string `long:"static-dir" env:"STATIC_DIR" default:"./static" description:"Directory for archived agenda PDFs"`
	LogDir    string `short:"l" long:"logdir" env:"LOG_DIR" description:"Directory to store log files"`

	// Notification
	Send               string `long:"send" env:"SEND_TYPE" default:"local" choice:"local" choice:"admin" choice:"all_contacts" description:"Who to send emails to"`
	MeetingID          int64  `short:"m" long:"meeting-id" description:"Which meeting to notify for. If unspecified, notifies all un-notified meetings"`
	MailjetAPIKey      string `long:"mailjet-api-key" env:"MAILJET_APIKEY" description:"Mailjet API key"`
	MailjetSecret      string `long:"mailjet-secret" env:"MAILJET_SECRET" description:"Mailjet API secret"`
	MailjetURL         string `long:"mailjet-url" env:"MAILJET_URL" default:"https://api.mailjet.com" description:"Mailjet API base URL"`
	MailjetContactList int64  `long:"mailjet-contact-list" env:"MAILJET_CONTACT_LIST" default:"10560187" description:"Mailjet contacts list for all_contacts"`
	FromEmail          string `long:"from-email" env:"FROM_EMAIL" default:"nycplanning@danielthemaniel.com" description:"Sender address"`
	FromName           string `long:"from-name" env:"FROM_NAME" default:"NYC Planning Notifications" description:"Sender name"`
	AdminEmail         string `long:"admin-email" env:"ADMIN_EMAIL" description:"Operator address for reports"`
	OutboxDir          string `long:"outbox-dir" env:"OUTBOX_DIR" default:"." description:"Directory for messages in local send mode"`

	// Ingestion
	ListingURL     string `long:"listing-url" env:"LISTING_URL" description:"Meeting calendar JSON URL (overrides the profile)"`
	ProfilePath    string `long:"profile" env:"PROFILE" description:"Meeting source profile YAML file"`
	UserAgent      string `long:"user-agent" env:"USER_AGENT" default:"NYC Zoning Notifier/1.0" description:"User agent string for HTTP requests"`
	HTTPTimeout    int    `long:"http-timeout" env:"HTTP_TIMEOUT" default:"30" description:"HTTP request timeout in seconds"`
	MaxConcurrency int    `long:"max-concurrency" env:"MAX_CONCURRENCY" default:"4" description:"Agendas downloaded or meetings notified at once"`

	// Serve mode
	Port         string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	BaseUrl      string `long:"base-url" env:"BASE_URL" description:"Public base URL for the service; messages link archived agendas under it when set"`
	APIAccessKey string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for the admin endpoints (optional)"`
	Schedule     string `long:"schedule" env:"SCHEDULE" default:"0 */6 * * *" description:"Cron schedule for ingest and notify cycles"`
	WorkerCount  int    `long:"worker-count" env:"WORKER_COUNT" default:"1" description:"Number of background workers"`

	Timezone string `long:"timezone" env:"TZ" default:"America/New_York" description:"Timezone of listed meeting times"`
	Debug    bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`

	Args struct {
		Command string   `positional-arg-name:"command" description:"run, ingest, notify, serve, reset or parse"`
		Files   []string `positional-arg-name:"files"`
	} `positional-args:"yes"`
}

// ErrHelp is returned when usage was requested and printed.
var ErrHelp = errors.New("help requested")

func Load() (*Cfg, error) {
	return ParseArgs(os.Args[1:])
}

func ParseArgs(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.ParseArgs(args); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return nil, ErrHelp
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		Command:            Command(cmp.Or(raw.Args.Command, string(CommandRun))),
		Files:              raw.Args.Files,
		DBPath:             raw.DBPath,
		StaticDir:          raw.StaticDir,
		LogDir:             raw.LogDir,
		Send:               SendType(raw.Send),
		MailjetAPIKey:      raw.MailjetAPIKey,
		MailjetSecret:      raw.MailjetSecret,
		MailjetURL:         raw.MailjetURL,
		MailjetContactList: raw.MailjetContactList,
		FromEmail:          raw.FromEmail,
		FromName:           raw.FromName,
		AdminEmail:         raw.AdminEmail,
		OutboxDir:          raw.OutboxDir,
		ListingURL:         raw.ListingURL,
		ProfilePath:        raw.ProfilePath,
		UserAgent:          raw.UserAgent,
		HTTPTimeout:        time.Duration(raw.HTTPTimeout) * time.Second,
		MaxConcurrency:     raw.MaxConcurrency,
		Port:               raw.Port,
		BaseUrl:            raw.BaseUrl,
		APIAccessKey:       raw.APIAccessKey,
		Schedule:           raw.Schedule,
		WorkerCount:        raw.WorkerCount,
		Timezone:           raw.Timezone,
		Debug:              raw.Debug,
		Version:            GetVersion(),
	}

	if raw.MeetingID != 0 {
		id := raw.MeetingID
		cfg.MeetingID = &id
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
	}
	cfg.Location = loc

	profile, err := LoadProfile(cfg.ProfilePath)
	if err != nil {
		return nil, err
	}
	if cfg.ListingURL != "" {
		profile.ListingURL = cfg.ListingURL
	}
	cfg.Profile = profile

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func validate(cfg *Cfg) error {
	if !commands[cfg.Command] {
		return fmt.Errorf("unknown command %q", cfg.Command)
	}

	if cfg.Command == CommandParse {
		if len(cfg.Files) == 0 {
			return fmt.Errorf("parse requires at least one PDF file")
		}
		// Parsing local files touches neither the store nor the mail provider
		return nil
	}

	if len(cfg.Files) > 0 {
		return fmt.Errorf("unexpected arguments for %s: %v", cfg.Command, cfg.Files)
	}

	if cfg.DBPath == "" {
		return fmt.Errorf("database path is required (--db-path or ZONING_DB_PATH)")
	}

	if cfg.Send != SendLocal && sendsMail(cfg.Command) {
		if cfg.MailjetAPIKey == "" || cfg.MailjetSecret == "" {
			return fmt.Errorf("--send %s requires MAILJET_APIKEY and MAILJET_SECRET", cfg.Send)
		}
		if cfg.AdminEmail == "" {
			return fmt.Errorf("--send %s requires --admin-email", cfg.Send)
		}
	}

	positive := map[string]int{
		"max concurrency": cfg.MaxConcurrency,
		"worker count":    cfg.WorkerCount,
	}
	for name, value := range positive {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}

	if cfg.HTTPTimeout < 0 {
		return fmt.Errorf("http timeout must be non-negative")
	}

	return nil
}

func sendsMail(command Command) bool {
	return command == CommandRun || command == CommandNotify || command == CommandServe
}
