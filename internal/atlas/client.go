// Package atlas is the JSON HTTP client for the UptimeAtlas dashboard
// server's calendar API.
package atlas

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// EventSource is the calendar's view of the server: one read per feed
// plus the mutations the UI can issue. The TUI depends on this interface
// so tests can substitute a fake.
type EventSource interface {
	FetchEvents() (*EventsPayload, error)
	FetchSchedules() (*SchedulesPayload, error)
	CreateEvent(req CreateEventRequest) (*MutationResult, error)
	DeleteEvent(id int64) (*MutationResult, error)
	DeleteSource(id int64) (*MutationResult, error)
	ResyncSource(id int64) (*ResyncResult, error)
}

// Client talks to one dashboard server.
type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

var _ EventSource = (*Client)(nil)

func NewClient(baseURL, token string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		HTTP:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) FetchEvents() (*EventsPayload, error) {
	var payload EventsPayload
	if err := c.call(http.MethodGet, "/api/calendar/events", nil, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

func (c *Client) FetchSchedules() (*SchedulesPayload, error) {
	var payload SchedulesPayload
	if err := c.call(http.MethodGet, "/api/calendar/schedules", nil, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

func (c *Client) CreateEvent(req CreateEventRequest) (*MutationResult, error) {
	var result MutationResult
	if err := c.call(http.MethodPost, "/api/calendar/events", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) DeleteEvent(id int64) (*MutationResult, error) {
	var result MutationResult
	path := fmt.Sprintf("/api/calendar/events/%d", id)
	if err := c.call(http.MethodDelete, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// DeleteSource removes every event belonging to one source.
func (c *Client) DeleteSource(id int64) (*MutationResult, error) {
	var result MutationResult
	path := fmt.Sprintf("/api/calendar/sources/%d", id)
	if err := c.call(http.MethodDelete, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ResyncSource asks the server to re-pull one source from its external
// schedule provider.
func (c *Client) ResyncSource(id int64) (*ResyncResult, error) {
	var result ResyncResult
	path := fmt.Sprintf("/api/calendar/sources/%d/resync", id)
	if err := c.call(http.MethodPost, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Ping checks that the server answers at all; used for the startup
// warning, never fatal.
func (c *Client) Ping() error {
	req, err := http.NewRequest(http.MethodGet, c.BaseURL+"/api/calendar/events", nil)
	if err != nil {
		return err
	}
	c.decorate(req)
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("server unreachable: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= 500 {
		return fmt.Errorf("server error: %s", resp.Status)
	}
	return nil
}

func (c *Client) call(method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequest(method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.decorate(req)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response from %s: %w", path, err)
	}
	return nil
}

func (c *Client) decorate(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
}
