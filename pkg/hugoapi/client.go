package hugoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Client talks to the coaching conversation backend.
//
// A Client serializes streaming sends: starting a second stream while one is
// open returns ErrStreamInFlight. Blocking calls are not serialized.
type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
	pacing  Pacing

	mu       sync.Mutex
	inflight bool
}

// Pacing is an optional delivery-timing policy for token callbacks: after
// every Burst tokens, delivery pauses for Delay. It coalesces timing only,
// never content or order.
type Pacing struct {
	Delay time.Duration
	Burst int
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for all requests.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpc = h }
}

// WithAPIKey sets a bearer token sent with every request.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithPacing sets the token delivery pacing policy.
func WithPacing(delay time.Duration, burst int) Option {
	return func(c *Client) { c.pacing = Pacing{Delay: delay, Burst: burst} }
}

// NewClient creates a backend client for the given base URL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CreateSession creates a backend session and returns its identity plus the
// initial coach reply. Failures are reported as *SessionCreateError.
func (c *Client) CreateSession(ctx context.Context, params SessionParams) (*Session, error) {
	var out Session
	if err := c.postJSON(ctx, "/api/v2/sessions", params, &out); err != nil {
		return nil, &SessionCreateError{Cause: err}
	}
	return &out, nil
}

// SendMessage sends one user message over the blocking endpoint.
func (c *Client) SendMessage(ctx context.Context, sessionID, text string) (*Reply, error) {
	body := map[string]string{"sessionId": sessionID, "message": text}
	var out Reply
	if err := c.postJSON(ctx, "/api/v2/session/message", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// EndSession marks a backend session inactive. Best effort; a missing
// session is not an error.
func (c *Client) EndSession(ctx context.Context, sessionID string) error {
	err := c.postJSON(ctx, "/api/v2/session/"+sessionID+"/end", nil, nil)
	if apiErr, ok := err.(*APIError); ok && apiErr.HTTPStatus == http.StatusNotFound {
		return nil
	}
	return err
}

// AudioCredentials fetches the url+token pair that bootstraps an audio room
// connection.
func (c *Client) AudioCredentials(ctx context.Context, techniqueID string) (*RoomCredentials, error) {
	body := map[string]string{"techniqueId": techniqueID}
	var out RoomCredentials
	if err := c.postJSON(ctx, "/api/v2/media/audio-token", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AvatarCredentials fetches the signed session token that bootstraps an
// avatar video stream.
func (c *Client) AvatarCredentials(ctx context.Context) (*AvatarCredentials, error) {
	var out AvatarCredentials
	if err := c.postJSON(ctx, "/api/v2/media/avatar-token", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Techniques returns the read-only technique taxonomy.
func (c *Client) Techniques(ctx context.Context) ([]Technique, error) {
	var out []Technique
	if err := c.getJSON(ctx, "/api/v2/techniques", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Evaluate asks the scoring service for a session evaluation. The result is
// opaque data for the caller; this client does not interpret it.
func (c *Client) Evaluate(ctx context.Context, sessionID string) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.postJSON(ctx, "/api/v2/session/"+sessionID+"/evaluate", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// post issues a JSON POST and returns the raw response.
func (c *Client) post(ctx context.Context, path string, body any) (*http.Response, error) {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("hugoapi: encode request: %w", err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, rd)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	return c.httpc.Do(req)
}

func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	resp, err := c.post(ctx, path, body)
	if err != nil {
		return fmt.Errorf("hugoapi: %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return readAPIError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("hugoapi: decode %s response: %w", path, err)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("hugoapi: %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return readAPIError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("hugoapi: decode %s response: %w", path, err)
	}
	return nil
}

// readAPIError decodes a non-success response into an *APIError.
func readAPIError(resp *http.Response) *APIError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var payload struct {
		Code    string `json:"code"`
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	_ = json.Unmarshal(body, &payload)

	msg := payload.Message
	if msg == "" {
		msg = payload.Error
	}
	if msg == "" {
		msg = strings.TrimSpace(string(body))
	}
	code := payload.Code
	if code == "" {
		code = "request_failed"
	}
	return &APIError{Code: code, Message: msg, HTTPStatus: resp.StatusCode}
}
