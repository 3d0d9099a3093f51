// ABOUTME: HTTP client for the analysis backend's chat, manual pipeline, and official agent endpoints.
// ABOUTME: Classifies failures into network, HTTP status, and response-shape errors for the console to render.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// maxResponseBytes bounds response bodies. Reports may embed base64 charts.
const maxResponseBytes = 32 << 20

// Endpoints are the request paths appended to the client's base URL.
type Endpoints struct {
	Chat     string `yaml:"chat"`
	Manual   string `yaml:"manual"`
	Official string `yaml:"official"`
}

// DefaultEndpoints returns the backend's standard paths.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		Chat:     "/api/v1/chat",
		Manual:   "/api/v1/deep-research/invest/manual",
		Official: "/api/v1/deep-research/invest/official",
	}
}

// Client calls the analysis backend. It is safe for concurrent use.
type Client struct {
	baseURL    string
	endpoints  Endpoints
	userID     string
	httpClient *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithEndpoints overrides request paths. Empty fields keep their defaults.
func WithEndpoints(e Endpoints) ClientOption {
	return func(c *Client) {
		if e.Chat != "" {
			c.endpoints.Chat = e.Chat
		}
		if e.Manual != "" {
			c.endpoints.Manual = e.Manual
		}
		if e.Official != "" {
			c.endpoints.Official = e.Official
		}
	}
}

// WithUserID sets the user id sent with chat requests.
func WithUserID(id string) ClientOption {
	return func(c *Client) {
		if id != "" {
			c.userID = id
		}
	}
}

// WithTimeout bounds each request. Zero means no client-side timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// NewClient creates a Client rooted at baseURL, which must be an absolute
// http or https URL.
func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing backend url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("backend url %q must use http or https", baseURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("backend url %q has no host", baseURL)
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		endpoints:  DefaultEndpoints(),
		userID:     DefaultUserID,
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the backend root the client was created with.
func (c *Client) BaseURL() string { return c.baseURL }

// Chat sends one message for intent classification and answer generation.
// The response status is not checked: the body must carry a data object
// with a text field regardless of status.
func (c *Client) Chat(ctx context.Context, message string) (*ChatPayload, error) {
	status, body, err := c.post(ctx, c.endpoints.Chat, ChatRequest{Message: message, UserID: c.userID})
	if err != nil {
		return nil, err
	}

	var env chatEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, newShapeError(fmt.Sprintf("chat response (status %d) is not valid JSON", status), err)
	}
	if env.Data == nil {
		return nil, newShapeError("chat response has no data object", nil)
	}
	if env.Data.Text == nil {
		return nil, newShapeError("chat response data has no text", nil)
	}
	return &ChatPayload{
		Text:        *env.Data.Text,
		Intent:      env.Data.Intent,
		IsEmergency: env.Data.IsEmergency,
		Graph:       env.Data.Graph,
	}, nil
}

// Manual runs the fixed-pipeline research for symbol. Like Chat, the status
// code is not a failure signal; a missing data object is.
func (c *Client) Manual(ctx context.Context, symbol string) (*ManualReport, error) {
	status, body, err := c.post(ctx, c.endpoints.Manual, SymbolRequest{Symbol: symbol})
	if err != nil {
		return nil, err
	}

	var env manualEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, newShapeError(fmt.Sprintf("manual response (status %d) is not valid JSON", status), err)
	}
	if env.Data == nil {
		return nil, newShapeError("manual response has no data object", nil)
	}
	if env.Data.DataRaw == nil || env.Data.FinalResponse == nil {
		return nil, newShapeError("manual response data lacks data_raw or final_response", nil)
	}
	return &ManualReport{
		DataRaw:       *env.Data.DataRaw,
		FinalResponse: *env.Data.FinalResponse,
	}, nil
}

// Official runs the autonomous-agent research for symbol. Any non-2xx status
// is an *HTTPError.
func (c *Client) Official(ctx context.Context, symbol string) (*OfficialResponse, error) {
	status, body, err := c.post(ctx, c.endpoints.Official, SymbolRequest{Symbol: symbol})
	if err != nil {
		return nil, err
	}
	if status < 200 || status > 299 {
		return nil, newHTTPError(fmt.Sprintf("official endpoint returned status %d", status), status)
	}

	var resp OfficialResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, newShapeError("official response is not valid JSON", err)
	}
	return &resp, nil
}

// post JSON-encodes body, sends it, and returns the status and full response body.
func (c *Client) post(ctx context.Context, path string, body any) (int, []byte, error) {
	endpoint := c.baseURL + path

	encoded, err := json.Marshal(body)
	if err != nil {
		return 0, nil, fmt.Errorf("encoding request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return 0, nil, newNetworkError(endpoint, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("component=backend action=request_failed path=%s duration=%s err=%v", path, time.Since(start).Round(time.Millisecond), err)
		return 0, nil, newNetworkError(endpoint, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, nil, newNetworkError(endpoint, fmt.Errorf("reading response body: %w", err))
	}
	log.Printf("component=backend action=request path=%s status=%d bytes=%d duration=%s", path, resp.StatusCode, len(data), time.Since(start).Round(time.Millisecond))
	return resp.StatusCode, data, nil
}
