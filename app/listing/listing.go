package listing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultURL        = "https://www.nyc.gov/assets/planning/json/content/calendar/calendar.json"
	DefaultDateLayout = "January 2, 2006 3:04 PM"
	DefaultKeyword    = "public meeting"
)

// Announcement is one entry of the commission calendar.
type Announcement struct {
	Title      string `json:"title"`
	Date       string `json:"date"`
	StartTime  string `json:"startTime"`
	AgendaLink string `json:"agendaLink"`
}

// IsMeeting reports whether the title contains keyword, ignoring case and whitespace.
func (a Announcement) IsMeeting(keyword string) bool {
	return strings.Contains(squash(a.Title), squash(keyword))
}

func (a Announcement) HasAgenda() bool {
	return strings.TrimSpace(a.AgendaLink) != ""
}

// When combines date and start time, e.g. "April 7, 2025" and "1:00 PM", in loc.
func (a Announcement) When(layout string, loc *time.Location) (time.Time, error) {
	text := strings.TrimSpace(a.Date) + " " + strings.TrimSpace(a.StartTime)
	when, err := time.ParseInLocation(layout, text, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse meeting time %q: %w", text, err)
	}
	return when, nil
}

func squash(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), ""))
}

// Client fetches the calendar listing and agenda documents over HTTP.
type Client struct {
	httpClient *http.Client
	url        string
	userAgent  string
	timeout    time.Duration
}

func NewClient(httpClient *http.Client, listingURL, userAgent string, timeout time.Duration) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if listingURL == "" {
		listingURL = DefaultURL
	}
	return &Client{
		httpClient: httpClient,
		url:        listingURL,
		userAgent:  userAgent,
		timeout:    timeout,
	}
}

// Resolve makes an agenda link absolute against the listing URL.
func (c *Client) Resolve(link string) (string, error) {
	base, err := url.Parse(c.url)
	if err != nil {
		return "", fmt.Errorf("failed to parse listing URL: %w", err)
	}
	ref, err := url.Parse(strings.TrimSpace(link))
	if err != nil {
		return "", fmt.Errorf("failed to parse agenda link %q: %w", link, err)
	}
	return base.ResolveReference(ref).String(), nil
}

// Fetch returns every announcement in the listing, in listing order.
func (c *Client) Fetch(ctx context.Context) ([]Announcement, error) {
	data, err := c.Download(ctx, c.url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch listing: %w", err)
	}

	var announcements []Announcement
	if err := json.Unmarshal(data, &announcements); err != nil {
		return nil, fmt.Errorf("failed to decode listing: %w", err)
	}

	return announcements, nil
}

// Download returns the body of a successful GET request to url.
func (c *Client) Download(ctx context.Context, target string) ([]byte, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}
