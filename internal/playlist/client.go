// SPDX-License-Identifier: MIT

// Package playlist fetches the live channel list from an Xtream-Codes
// compatible provider.
package playlist

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Entry is one raw live channel as supplied by the provider. Immutable; the
// same name may repeat across runs.
type Entry struct {
	Name     string
	Category string
	StreamID int
}

// Client talks to the provider's player API.
type Client struct {
	base string
	user string
	pass string
	http *http.Client
}

// NewClient builds a client for the given portal base URL and credentials.
func NewClient(base, user, pass string) *Client {
	return &Client{
		base: strings.TrimRight(base, "/"),
		user: user,
		pass: pass,
		http: &http.Client{Timeout: 30 * time.Second},
	}
}

// LiveStreams fetches all live channels. Records without a name are skipped.
func (c *Client) LiveStreams(ctx context.Context) ([]Entry, error) {
	q := url.Values{}
	q.Set("username", c.user)
	q.Set("password", c.pass)
	q.Set("action", "get_live_streams")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/player_api.php?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build playlist request: %w", err)
	}
	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch playlist: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch playlist: unexpected status %d", res.StatusCode)
	}

	var raw []struct {
		Name       string `json:"name"`
		CategoryID string `json:"category_id"`
		StreamID   int    `json:"stream_id"`
	}
	if err := json.NewDecoder(res.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode playlist: %w", err)
	}

	out := make([]Entry, 0, len(raw))
	for _, s := range raw {
		name := strings.TrimSpace(s.Name)
		if name == "" {
			continue
		}
		out = append(out, Entry{Name: name, Category: s.CategoryID, StreamID: s.StreamID})
	}
	return out, nil
}

// StreamURL returns the tune-in URL for a live entry on this portal.
func (c *Client) StreamURL(e Entry) string {
	return fmt.Sprintf("%s/live/%s/%s/%d.ts", c.base, c.user, c.pass, e.StreamID)
}
