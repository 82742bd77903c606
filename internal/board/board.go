// Package board talks to the dispatch-board web frontend: a
// healthcheck and an out-of-band mirror of every status transition.
// Board failures never influence engine state; the board is a display,
// not an authority.
package board

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dispatchsim/engine/internal/status"
)

// Client handles communication with the dispatch-board web frontend.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New creates a new board client.
func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Healthcheck checks if the board is reachable.
func (c *Client) Healthcheck() error {
	resp, err := c.httpClient.Get(c.baseURL + "/healthcheck")
	if err != nil {
		return fmt.Errorf("healthcheck request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("healthcheck returned status %d", resp.StatusCode)
	}
	return nil
}

// statusUpdate is the wire payload for one mirrored transition.
type statusUpdate struct {
	UnitID    string    `json:"unitId"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// PostStatus mirrors one unit status to the board.
func (c *Client) PostStatus(ctx context.Context, unitID string, code status.Code) error {
	body, err := json.Marshal(statusUpdate{
		UnitID:    unitID,
		Status:    code.Wire(),
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to encode status update: %w", err)
	}

	url := fmt.Sprintf("%s/api/v1/units/%s/status", c.baseURL, unitID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("status update request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("status update returned status %d", resp.StatusCode)
	}
	return nil
}
