// Package concepts tags explanation text with ranked concepts via an
// external annotation API.
package concepts

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const maxResponseBytes = 1 << 20 // 1 MB

// DisabledMessage is returned in place of concepts when the feature has
// no API key configured.
const DisabledMessage = "concept_tags functionality turned off in current service"

// Config configures the concept tagger.
type Config struct {
	APIURL string
	APIKey string
}

// Tagger extracts ranked concepts from free text. The zero API key
// disables the feature rather than failing requests.
type Tagger struct {
	client *http.Client
	apiURL string
	apiKey string
}

// New creates a tagger. A nil client falls back to a default with a
// conservative timeout.
func New(cfg Config, client *http.Client) *Tagger {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Tagger{client: client, apiURL: cfg.APIURL, apiKey: cfg.APIKey}
}

// Enabled reports whether an API key is configured.
func (t *Tagger) Enabled() bool {
	return t.apiKey != ""
}

// Concepts annotates text and returns concepts keyed by rank order.
func (t *Tagger) Concepts(ctx context.Context, text string) (map[string]string, error) {
	params := url.Values{}
	params.Set("apikey", t.apiKey)
	params.Set("text", text)
	params.Set("outputMode", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		t.apiURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create concepts request: %w", err)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("concepts request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("concepts request: unexpected status %d", resp.StatusCode)
	}

	var payload struct {
		Concepts []struct {
			Text string `json:"text"`
		} `json:"concepts"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode concepts response: %w", err)
	}

	ranked := make(map[string]string, len(payload.Concepts))
	for i, c := range payload.Concepts {
		ranked[strconv.Itoa(i)] = c.Text
	}
	return ranked, nil
}
