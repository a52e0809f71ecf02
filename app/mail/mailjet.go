package mail

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mailjet/mailjet-apiv3-go/v4"
	"github.com/mailjet/mailjet-apiv3-go/v4/resources"
)

const (
	DefaultMailjetURL = "https://api.mailjet.com"
	ListDomain        = "lists.mailjet.com"
)

// MailjetClient sends through the Mailjet v3.1 send API and reads contacts
// lists from the v3 REST API.
type MailjetClient struct {
	client  *mailjet.Client
	timeout time.Duration
}

var _ Sender = (*MailjetClient)(nil)

// NewMailjetClient targets baseURL, the API host without a version suffix.
func NewMailjetClient(httpClient *http.Client, baseURL, apiKey, secret string, timeout time.Duration) *MailjetClient {
	if baseURL == "" {
		baseURL = DefaultMailjetURL
	}

	client := mailjet.NewMailjetClient(apiKey, secret, strings.TrimSuffix(baseURL, "/")+"/v3")
	if httpClient != nil {
		client.SetClient(httpClient)
	}

	return &MailjetClient{client: client, timeout: timeout}
}

func (c *MailjetClient) context(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout > 0 {
		return context.WithTimeout(ctx, c.timeout)
	}
	return context.WithCancel(ctx)
}

// Send fails unless Mailjet reports success for every message.
func (c *MailjetClient) Send(ctx context.Context, msg Message) error {
	ctx, cancel := c.context(ctx)
	defer cancel()

	results, err := c.client.SendMailV31(&mailjet.MessagesV31{
		Messages: []mailjet.InfoMessagesV31{toMailjet(msg)},
	}, mailjet.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to send %q: %w", msg.Subject, err)
	}

	if results == nil || len(results.ResultsV31) == 0 {
		return fmt.Errorf("send response has no message status")
	}
	for _, r := range results.ResultsV31 {
		if r.Status != "success" {
			return fmt.Errorf("mailjet rejected %q: %s", msg.Subject, r.Status)
		}
	}

	return nil
}

func toMailjet(msg Message) mailjet.InfoMessagesV31 {
	to := make(mailjet.RecipientsV31, 0, len(msg.To))
	for _, a := range msg.To {
		to = append(to, mailjet.RecipientV31{Email: a.Email, Name: a.Name})
	}

	m := mailjet.InfoMessagesV31{
		From:     &mailjet.RecipientV31{Email: msg.From.Email, Name: msg.From.Name},
		To:       &to,
		Subject:  msg.Subject,
		TextPart: msg.TextPart,
		HTMLPart: msg.HTMLPart,
	}

	if len(msg.Attachments) > 0 {
		attachments := make(mailjet.AttachmentsV31, 0, len(msg.Attachments))
		for _, a := range msg.Attachments {
			attachments = append(attachments, mailjet.AttachmentV31{
				ContentType:   a.ContentType,
				Filename:      a.Filename,
				Base64Content: base64.StdEncoding.EncodeToString(a.Content),
			})
		}
		m.Attachments = &attachments
	}

	return m
}

// ContactList resolves a Mailjet contacts list to its list addresses.
type ContactList struct {
	client *MailjetClient
	listID int64
}

var _ RecipientSource = (*ContactList)(nil)

func (c *MailjetClient) ContactList(listID int64) *ContactList {
	return &ContactList{client: c, listID: listID}
}

func (l *ContactList) Recipients(ctx context.Context) ([]Address, error) {
	ctx, cancel := l.client.context(ctx)
	defer cancel()

	var lists []resources.Contactslist
	req := &mailjet.Request{Resource: "contactslist", ID: l.listID}
	if err := l.client.client.Get(req, &lists, mailjet.WithContext(ctx)); err != nil {
		return nil, fmt.Errorf("failed to get contacts list %d: %w", l.listID, err)
	}

	addresses := make([]Address, 0, len(lists))
	for _, list := range lists {
		if list.Address == "" {
			continue
		}
		addresses = append(addresses, Address{Email: list.Address + "@" + ListDomain})
	}

	if len(addresses) == 0 {
		return nil, fmt.Errorf("contacts list %d has no addresses", l.listID)
	}

	return addresses, nil
}
