package mail

import (
	"context"
)

type Address struct {
	Email string
	Name  string
}

type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

type Message struct {
	From        Address
	To          []Address
	Subject     string
	TextPart    string
	HTMLPart    string
	Attachments []Attachment
}

// Sender delivers a single message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// RecipientSource resolves who receives meeting notifications.
type RecipientSource interface {
	Recipients(ctx context.Context) ([]Address, error)
}

// StaticRecipients is a fixed recipient list.
type StaticRecipients []Address

func (s StaticRecipients) Recipients(ctx context.Context) ([]Address, error) {
	return s, nil
}
