package quota

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Config contains quota service client configuration.
type Config struct {
	// BaseURL is the quota service endpoint, e.g. http://users:8080.
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// Timeout bounds each request. Default: 10s.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// Client is an HTTP implementation of Coordinator against the user
// service's quota endpoints.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new quota service client.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type checkQuotaRequest struct {
	UserID string `json:"user_id"`
	Size   int64  `json:"size"`
}

type checkQuotaResponse struct {
	Allowed bool `json:"allowed"`
}

type updateUsageRequest struct {
	UserID string `json:"user_id"`
	Delta  int64  `json:"delta"`
}

// CheckQuota asks the quota service whether userID can store size more bytes.
func (c *Client) CheckQuota(ctx context.Context, userID string, size int64) (bool, error) {
	var resp checkQuotaResponse
	err := c.do(ctx, http.MethodPost, "/api/v1/quota/check", checkQuotaRequest{
		UserID: userID,
		Size:   size,
	}, &resp)
	if err != nil {
		return false, err
	}
	return resp.Allowed, nil
}

// UpdateStorageUsed adjusts the accounted usage for userID by delta bytes.
func (c *Client) UpdateStorageUsed(ctx context.Context, userID string, delta int64) error {
	return c.do(ctx, http.MethodPost, "/api/v1/quota/usage", updateUsageRequest{
		UserID: userID,
		Delta:  delta,
	}, nil)
}

// do performs an HTTP request and decodes the response.
func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("quota request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		return fmt.Errorf("quota service returned %d: %s", resp.StatusCode, string(respBody))
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
