package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/cloo-solutions/ragpipe/internal/api/handlers"
	"github.com/cloo-solutions/ragpipe/internal/domain"
	"github.com/spf13/cobra"
)

const envAPIURL = "RAGPIPE_API_URL"

// APIClient talks to a running ragpiped instead of opening the index locally.
type APIClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewAPIClientWithCmd resolves the daemon URL from the --api-url flag, then
// RAGPIPE_API_URL. It returns nil when neither is set.
func NewAPIClientWithCmd(cmd *cobra.Command) *APIClient {
	var baseURL string
	if cmd != nil {
		if flagURL, err := cmd.Flags().GetString("api-url"); err == nil {
			baseURL = flagURL
		}
	}
	if baseURL == "" {
		baseURL = os.Getenv(envAPIURL)
	}
	if baseURL == "" {
		return nil
	}
	return NewAPIClient(baseURL, 120*time.Second)
}

func NewAPIClient(baseURL string, timeout time.Duration) *APIClient {
	return &APIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// APIResponse represents the standard API response format.
type APIResponse struct {
	Data  json.RawMessage `json:"data,omitempty"`
	Error string          `json:"error,omitempty"`
	Code  string          `json:"code,omitempty"`
}

// APIError represents an error from the API.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("API error (%d %s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

// Ask posts a question to /ask.
func (c *APIClient) Ask(ctx context.Context, question string) (*handlers.AskResponse, error) {
	var out handlers.AskResponse
	if err := c.do(ctx, http.MethodPost, "/ask", handlers.AskRequest{Question: question}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Retrieve posts a query to /retrieve.
func (c *APIClient) Retrieve(ctx context.Context, req handlers.RetrieveRequest) (*handlers.RetrieveResponse, error) {
	var out handlers.RetrieveResponse
	if err := c.do(ctx, http.MethodPost, "/retrieve", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Stats fetches collection statistics.
func (c *APIClient) Stats(ctx context.Context) (*domain.CollectionStats, error) {
	var out domain.CollectionStats
	if err := c.do(ctx, http.MethodGet, "/stats", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *APIClient) do(ctx context.Context, method, path string, body, dst interface{}) error {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	var apiResp APIResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		if resp.StatusCode >= 400 {
			return &APIError{StatusCode: resp.StatusCode, Message: string(respBody)}
		}
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return &APIError{StatusCode: resp.StatusCode, Code: apiResp.Code, Message: apiResp.Error}
	}

	if err := json.Unmarshal(apiResp.Data, dst); err != nil {
		return fmt.Errorf("failed to parse response data: %w", err)
	}
	return nil
}
