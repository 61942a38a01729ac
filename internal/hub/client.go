// Package hub is a thin client for the notebook hub's REST API, used to
// provision named servers after a project copy.
package hub

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// ServerSpec carries the user options forwarded to the spawner for a new
// named server.
type ServerSpec struct {
	Image       string `json:"image"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Client talks to the hub API with the service's token.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// CreateNamedServer asks the hub to provision a named server for the user's
// project directory and returns the URL the caller should be sent to.
func (c *Client) CreateNamedServer(ctx context.Context, user, slug string, spec ServerSpec) (string, error) {
	body, err := json.Marshal(spec)
	if err != nil {
		return "", err
	}

	endpoint := fmt.Sprintf("%s/hub/api/users/%s/servers/%s",
		c.baseURL, url.PathEscape(user), url.PathEscape(slug))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "token "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("hub request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("hub returned %d: %s", resp.StatusCode, msg)
	}

	return fmt.Sprintf("%s/user/%s/%s", c.baseURL, url.PathEscape(user), url.PathEscape(slug)), nil
}
