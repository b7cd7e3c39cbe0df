package pathao

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tournevent/shipments/pkg/courier"
)

// HTTPAPIClient is the production implementation of APIClient using HTTP.
// The base endpoint and credentials come from the courier account at call
// time, so one client serves any number of configured Pathao accounts.
type HTTPAPIClient struct {
	httpClient *http.Client
}

// HTTPAPIClientConfig holds configuration for the HTTP client.
type HTTPAPIClientConfig struct {
	Timeout time.Duration
}

// NewHTTPAPIClient creates a new HTTP-based API client for production use.
func NewHTTPAPIClient(cfg HTTPAPIClientConfig) *HTTPAPIClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &HTTPAPIClient{
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// CreateOrder books a consignment via the Pathao API.
// POST /orders
func (c *HTTPAPIClient) CreateOrder(ctx context.Context, acct courier.Account, req *OrderRequest) (*OrderResponse, error) {
	resp, err := c.doRequest(ctx, acct, http.MethodPost, "/orders", req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, c.parseError(resp)
	}

	var result OrderResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode order response: %w", err)
	}

	return &result, nil
}

// TrackOrder fetches consignment state via the Pathao API.
// GET /orders/{token}/status
func (c *HTTPAPIClient) TrackOrder(ctx context.Context, acct courier.Account, token string) (*TrackResponse, error) {
	path := fmt.Sprintf("/orders/%s/status", url.PathEscape(token))

	resp, err := c.doRequest(ctx, acct, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp)
	}

	var result TrackResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode track response: %w", err)
	}

	return &result, nil
}

// doRequest performs an HTTP request with Pathao's authentication headers.
// Pathao authenticates with a bearer access token plus a client id header.
func (c *HTTPAPIClient) doRequest(ctx context.Context, acct courier.Account, method, path string, body interface{}) (*http.Response, error) {
	endpoint := strings.TrimRight(acct.BaseURL, "/") + path

	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+acct.APIKey)
	if acct.ClientID != "" {
		req.Header.Set("X-Client-Id", acct.ClientID)
	}
	req.Header.Set("User-Agent", "delivro-shipments/1.0")

	return c.httpClient.Do(req)
}

// parseError extracts error information from an HTTP response.
func (c *HTTPAPIClient) parseError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	var apiErr APIError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Code != "" {
		apiErr.StatusCode = resp.StatusCode
		apiErr.Body = string(body)
		return &apiErr
	}

	var simpleErr struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &simpleErr); err == nil {
		msg := simpleErr.Error
		if msg == "" {
			msg = simpleErr.Message
		}
		if msg != "" {
			return &APIError{
				Code:       fmt.Sprintf("HTTP_%d", resp.StatusCode),
				Message:    msg,
				StatusCode: resp.StatusCode,
				Body:       string(body),
			}
		}
	}

	return &APIError{
		Code:       fmt.Sprintf("HTTP_%d", resp.StatusCode),
		Message:    string(body),
		StatusCode: resp.StatusCode,
		Body:       string(body),
	}
}

// Ensure HTTPAPIClient implements APIClient interface
var _ APIClient = (*HTTPAPIClient)(nil)
