package cfg

import (
	"time"
)

type SendType string

const (
	SendLocal       SendType = "local"        // Write messages to the outbox directory
	SendAdmin       SendType = "admin"        // Mail only the admin address
	SendAllContacts SendType = "all_contacts" // Mail the Mailjet contacts list
)

type Command string

const (
	CommandRun    Command = "run"
	CommandIngest Command = "ingest"
	CommandNotify Command = "notify"
	CommandServe  Command = "serve"
	CommandReset  Command = "reset"
	CommandParse  Command = "parse"
)

var commands = map[Command]bool{
	CommandRun:    true,
	CommandIngest: true,
	CommandNotify: true,
	CommandServe:  true,
	CommandReset:  true,
	CommandParse:  true,
}

type Cfg struct {
	Command Command
	Files   []string // Agenda PDFs for the parse command

	// Storage
	DBPath    string
	StaticDir string
	LogDir    string

	// Notification
	Send               SendType
	MeetingID          *int64
	MailjetAPIKey      string
	MailjetSecret      string
	MailjetURL         string
	MailjetContactList int64
	FromEmail          string
	FromName           string
	AdminEmail         string
	OutboxDir          string

	// Ingestion
	ListingURL     string
	ProfilePath    string
	Profile        *Profile
	UserAgent      string
	HTTPTimeout    time.Duration
	MaxConcurrency int

	// Serve mode
	Port         string
	BaseUrl      string
	APIAccessKey string
	Schedule     string
	WorkerCount  int

	Timezone string
	Location *time.Location
	Debug    bool
	Version  string
}
