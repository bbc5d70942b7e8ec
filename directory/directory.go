// Package directory is the HTTP client for the station backend. It fetches
// stations and confirms membership changes before they are applied locally.
package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"Tandem/station"

	"github.com/Strum355/log"
)

var (
	ErrForbidden = errors.New("not allowed by station directory")
	ErrNotFound  = errors.New("station not found")
	ErrConflict  = errors.New("station state conflict")
)

// Client talks to the directory service on behalf of one user
type Client struct {
	baseURL string
	userID  string
	token   string
	client  *http.Client
}

func New(baseURL, userID, token string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		userID:  userID,
		token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

type userBody struct {
	UserID string `json:"userId"`
}

type titleBody struct {
	Title string `json:"title"`
}

// Fetch loads a station snapshot
func (c *Client) Fetch(ctx context.Context, stationID string) (station.Station, error) {
	var s station.Station
	err := c.do(ctx, http.MethodGet, c.path(stationID, ""), nil, &s)
	return s, err
}

// Join adds the local user to the station and returns the updated snapshot
func (c *Client) Join(ctx context.Context, stationID string) (station.Station, error) {
	var s station.Station
	err := c.do(ctx, http.MethodPost, c.path(stationID, "join"), nil, &s)
	return s, err
}

func (c *Client) Leave(ctx context.Context, stationID string) error {
	return c.do(ctx, http.MethodPost, c.path(stationID, "leave"), nil, nil)
}

func (c *Client) Kick(ctx context.Context, stationID, userID string) error {
	return c.do(ctx, http.MethodPost, c.path(stationID, "kick"), userBody{userID}, nil)
}

func (c *Client) Ban(ctx context.Context, stationID, userID string) error {
	return c.do(ctx, http.MethodPost, c.path(stationID, "ban"), userBody{userID}, nil)
}

func (c *Client) Unban(ctx context.Context, stationID, userID string) error {
	return c.do(ctx, http.MethodPost, c.path(stationID, "unban"), userBody{userID}, nil)
}

func (c *Client) TransferHost(ctx context.Context, stationID, userID string) error {
	return c.do(ctx, http.MethodPost, c.path(stationID, "transfer"), userBody{userID}, nil)
}

func (c *Client) Close(ctx context.Context, stationID string) error {
	return c.do(ctx, http.MethodPost, c.path(stationID, "close"), nil, nil)
}

func (c *Client) UpdateTitle(ctx context.Context, stationID, title string) error {
	return c.do(ctx, http.MethodPatch, c.path(stationID, "title"), titleBody{title}, nil)
}

func (c *Client) path(stationID, action string) string {
	p := c.baseURL + "/stations/" + url.PathEscape(stationID)
	if action != "" {
		p += "/" + action
	}
	return p
}

func (c *Client) do(ctx context.Context, method, endpoint string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-User-Id", c.userID)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	if err := statusError(resp); err != nil {
		log.WithFields(log.Fields{
			"method": method,
			"url":    endpoint,
			"status": resp.StatusCode,
		}).Debug("Directory request rejected")
		return err
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", endpoint, err)
	}
	return nil
}

func statusError(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	detail := strings.TrimSpace(string(msg))

	var base error
	switch resp.StatusCode {
	case http.StatusForbidden, http.StatusUnauthorized:
		base = ErrForbidden
	case http.StatusNotFound:
		base = ErrNotFound
	case http.StatusConflict:
		base = ErrConflict
	default:
		return fmt.Errorf("directory returned status %d: %s", resp.StatusCode, detail)
	}
	if detail == "" {
		return base
	}
	return fmt.Errorf("%w: %s", base, detail)
}
