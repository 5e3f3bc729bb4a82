package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// HTTPClient talks to the aggregation provider over HTTPS. Requests get a
// generous timeout and a single retry at page granularity; retrying is
// safe because a failed page never advances the persisted cursor.
type HTTPClient struct {
	baseURL    string
	clientID   string
	secret     string
	httpClient *http.Client
}

// NewHTTPClient creates a provider client from the given options.
func NewHTTPClient(opts Options) *HTTPClient {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &HTTPClient{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		clientID:   opts.ClientID,
		secret:     opts.Secret,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type syncRequest struct {
	ClientID    string `json:"client_id"`
	Secret      string `json:"secret"`
	AccessToken string `json:"access_token"`
	Cursor      string `json:"cursor,omitempty"`
	Count       int    `json:"count"`
}

// SyncPage implements Client.
func (c *HTTPClient) SyncPage(ctx context.Context, accessToken, cursor string, pageSize int) (*SyncPage, error) {
	body := syncRequest{
		ClientID:    c.clientID,
		Secret:      c.secret,
		AccessToken: accessToken,
		Cursor:      cursor,
		Count:       pageSize,
	}

	var page SyncPage
	if err := c.post(ctx, "/transactions/sync", body, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

type balancesRequest struct {
	ClientID    string `json:"client_id"`
	Secret      string `json:"secret"`
	AccessToken string `json:"access_token"`
}

// GetBalances implements Client.
func (c *HTTPClient) GetBalances(ctx context.Context, accessToken string) ([]AccountBalance, error) {
	body := balancesRequest{ClientID: c.clientID, Secret: c.secret, AccessToken: accessToken}

	var result struct {
		Accounts []AccountBalance `json:"accounts"`
	}
	if err := c.post(ctx, "/accounts/balances", body, &result); err != nil {
		return nil, err
	}
	return result.Accounts, nil
}

// post sends one JSON request with a single retry on transport errors and
// 5xx responses.
func (c *HTTPClient) post(ctx context.Context, path string, body, dest interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Second):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("%s: %w", path, err)
			continue
		}

		if resp.StatusCode >= 500 {
			_ = resp.Body.Close()
			lastErr = fmt.Errorf("%s: provider returned status %d", path, resp.StatusCode)
			continue
		}
		if resp.StatusCode != http.StatusOK {
			var apiErr struct {
				ErrorMessage string `json:"error_message"`
			}
			_ = json.NewDecoder(resp.Body).Decode(&apiErr)
			_ = resp.Body.Close()
			if apiErr.ErrorMessage != "" {
				return fmt.Errorf("%s: %s", path, apiErr.ErrorMessage)
			}
			return fmt.Errorf("%s: provider returned status %d", path, resp.StatusCode)
		}

		err = json.NewDecoder(resp.Body).Decode(dest)
		_ = resp.Body.Close()
		if err != nil {
			return fmt.Errorf("decoding %s response: %w", path, err)
		}
		return nil
	}
	return lastErr
}
