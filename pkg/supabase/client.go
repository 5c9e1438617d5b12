// Package supabase is a minimal PostgREST client for Supabase tables
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Resolution selects how an upsert treats rows that hit the conflict target
type Resolution string

const (
	// MergeDuplicates updates the existing row
	MergeDuplicates Resolution = "merge-duplicates"
	// IgnoreDuplicates keeps the existing row; only new rows are returned
	IgnoreDuplicates Resolution = "ignore-duplicates"
)

// Error is returned for any response with status >= 400
type Error struct {
	StatusCode int
	Body       string
}

func (e *Error) Error() string {
	return fmt.Sprintf("supabase error (status %d): %s", e.StatusCode, e.Body)
}

// Client represents a Supabase client
type Client struct {
	URL        string
	ServiceKey string
	HTTPClient *http.Client
}

// NewClient creates a new Supabase client
func NewClient(url, serviceKey string) *Client {
	return &Client{
		URL:        url,
		ServiceKey: serviceKey,
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// Query selects rows from a table. Values in query are PostgREST filters,
// e.g. "user_id": "eq.abc".
func (c *Client) Query(ctx context.Context, table string, query map[string]string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, table, query, nil, "")
}

// Upsert inserts records, resolving conflicts on the onConflict columns
// (e.g. "user_id,id") according to resolution
func (c *Client) Upsert(ctx context.Context, table string, data any, onConflict string, resolution Resolution) ([]byte, error) {
	query := map[string]string{"on_conflict": onConflict}
	return c.do(ctx, http.MethodPost, table, query, data, "return=representation,resolution="+string(resolution))
}

func (c *Client) do(ctx context.Context, method, table string, query map[string]string, data any, prefer string) ([]byte, error) {
	url := fmt.Sprintf("%s/rest/v1/%s", c.URL, table)

	var body io.Reader
	if data != nil {
		jsonData, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}

	if len(query) > 0 {
		q := req.URL.Query()
		for key, value := range query {
			q.Add(key, value)
		}
		req.URL.RawQuery = q.Encode()
	}

	req.Header.Set("apikey", c.ServiceKey)
	req.Header.Set("Authorization", "Bearer "+c.ServiceKey)
	if data != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, &Error{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	return respBody, nil
}
