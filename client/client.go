// Package client is a typed ProblemHunt API client. All requests go through
// the session manager, which attaches bearer credentials and retries once on
// auth failures.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/problem-hunt/huntkit/session"
)

// Client issues authenticated calls against the ProblemHunt API.
type Client struct {
	sessions *session.Manager
	log      zerolog.Logger
}

// New creates a client on top of a session manager.
func New(sessions *session.Manager, logger *zerolog.Logger) *Client {
	log := zerolog.Nop()
	if logger != nil {
		log = *logger
	}
	return &Client{sessions: sessions, log: log}
}

// APIError is a non-2xx API response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %s (status %d)", e.Message, e.Status)
}

// do issues one request and decodes the JSON response into out when non-nil.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body []byte
	if in != nil {
		var err error
		body, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}
	resp, err := c.sessions.Do(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err := apiError(resp)
		c.log.Debug().
			Str("method", method).
			Str("path", path).
			Int("status", resp.StatusCode).
			Msg("api request failed")
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func apiError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var er struct {
		Error string `json:"error"`
	}
	_ = json.Unmarshal(raw, &er)
	msg := er.Error
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &APIError{Status: resp.StatusCode, Message: msg}
}
