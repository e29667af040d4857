package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const requestTimeout = 30 * time.Second

// Client is the HTTP implementation of Provider.
type Client struct {
	baseURL  string
	clientID string
	secret   string
	http     *http.Client
}

func NewClient(baseURL, clientID, secret string) *Client {
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		clientID: strings.TrimSpace(clientID),
		secret:   strings.TrimSpace(secret),
		http:     &http.Client{Timeout: requestTimeout},
	}
}

func (c *Client) ExchangePublicToken(ctx context.Context, publicToken string) (string, error) {
	var out struct {
		AccessToken string `json:"access_token"`
	}
	err := c.post(ctx, "/item/public_token/exchange", map[string]any{
		"public_token": publicToken,
	}, &out)
	if err != nil {
		return "", err
	}
	return out.AccessToken, nil
}

func (c *Client) Sync(ctx context.Context, accessToken, cursor string) (*SyncPage, error) {
	body := map[string]any{
		"access_token": accessToken,
	}
	if cursor != "" {
		body["cursor"] = cursor
	}
	var page SyncPage
	if err := c.post(ctx, "/transactions/sync", body, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *Client) GetRange(ctx context.Context, accessToken string, start, end time.Time, offset, count int) (*RangePage, error) {
	body := map[string]any{
		"access_token": accessToken,
		"start_date":   start.Format("2006-01-02"),
		"end_date":     end.Format("2006-01-02"),
		"options": map[string]any{
			"offset": offset,
			"count":  count,
		},
	}
	var page RangePage
	if err := c.post(ctx, "/transactions/get", body, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *Client) post(ctx context.Context, path string, body map[string]any, out any) error {
	body["client_id"] = c.clientID
	body["secret"] = c.secret
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("feed: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("feed: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("feed: %s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return fmt.Errorf("feed: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		remote := &RemoteError{StatusCode: resp.StatusCode}
		if err := json.Unmarshal(raw, remote); err != nil || remote.Message == "" {
			remote.Message = strings.TrimSpace(string(raw))
		}
		return remote
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("feed: decode %s response: %w", path, err)
	}
	return nil
}
