package labels

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Client queries the external moderation-label service over HTTP. Only the
// spam label is consulted here; richer label taxonomies stay with the
// moderation service.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

type labelResponse struct {
	Did         string `json:"did"`
	SpamLabeled bool   `json:"spam_labeled"`
}

// IsSpamLabeled reports whether the label service carries a spam label
// for the account.
func (c *Client) IsSpamLabeled(ctx context.Context, did string) (bool, error) {
	endpoint := fmt.Sprintf("%s/labels/v1/spam/%s", c.baseURL, url.PathEscape(did))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("label service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("label service: unexpected status %d", resp.StatusCode)
	}
	var out labelResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return false, fmt.Errorf("label service: decode response: %w", err)
	}
	return out.SpamLabeled, nil
}

type batchRequest struct {
	Dids []string `json:"dids"`
}

type batchResponse struct {
	Labels map[string]bool `json:"labels"`
}

// BatchIsSpamLabeled resolves spam labels for many DIDs in one call.
// Absent DIDs are reported unlabeled.
func (c *Client) BatchIsSpamLabeled(ctx context.Context, dids []string) (map[string]bool, error) {
	body, err := json.Marshal(batchRequest{Dids: dids})
	if err != nil {
		return nil, err
	}
	endpoint := c.baseURL + "/labels/v1/spam/batch"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("label service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("label service: unexpected status %d", resp.StatusCode)
	}
	var out batchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("label service: decode response: %w", err)
	}
	result := make(map[string]bool, len(dids))
	for _, did := range dids {
		result[did] = out.Labels[did]
	}
	return result, nil
}
