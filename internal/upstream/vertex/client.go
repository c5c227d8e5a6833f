package vertex

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type ObserverFunc func(endpoint string, status int, duration time.Duration)

type Option func(*Client)

// Endpoint identifies the publisher model that receives generateContent calls.
// BaseURL is optional and defaults to the regional aiplatform host.
type Endpoint struct {
	BaseURL   string
	ProjectID string
	Location  string
	Model     string
}

func (e Endpoint) GenerateContentURL() string {
	base := strings.TrimRight(strings.TrimSpace(e.BaseURL), "/")
	if base == "" {
		base = "https://" + e.Location + "-aiplatform.googleapis.com"
	}
	return fmt.Sprintf("%s/v1/projects/%s/locations/%s/publishers/google/models/%s:generateContent",
		base, url.PathEscape(e.ProjectID), url.PathEscape(e.Location), url.PathEscape(e.Model))
}

// DefaultMaxResponseBytes bounds how much of an upstream body is read.
const DefaultMaxResponseBytes = 16 << 20

type Client struct {
	url              string
	httpClient       *http.Client
	observer         ObserverFunc
	maxResponseBytes int64
}

type Error struct {
	StatusCode int
	Body       string
}

func (e *Error) Error() string {
	return fmt.Sprintf("Vertex AI error: %d %s", e.StatusCode, e.Body)
}

var (
	ErrInvalidResponse  = errors.New("invalid generateContent response")
	ErrResponseTooLarge = errors.New("generateContent response exceeds size limit")
)

type Part struct {
	Text string `json:"text"`
}

type Content struct {
	Role  string `json:"role"`
	Parts []Part `json:"parts"`
}

// GenerationConfig always serializes Temperature so that a zero value is sent
// explicitly instead of falling back to the model default.
type GenerationConfig struct {
	Temperature      float64 `json:"temperature"`
	ResponseMIMEType string  `json:"response_mime_type,omitempty"`
}

type GenerateContentRequest struct {
	Contents         []Content        `json:"contents"`
	GenerationConfig GenerationConfig `json:"generation_config"`
}

func WithObserver(observer ObserverFunc) Option {
	return func(c *Client) {
		c.observer = observer
	}
}

func WithMaxResponseBytes(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxResponseBytes = n
		}
	}
}

func New(endpoint Endpoint, httpClient *http.Client, opts ...Option) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	c := &Client{
		url:              endpoint.GenerateContentURL(),
		httpClient:       httpClient,
		maxResponseBytes: DefaultMaxResponseBytes,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// GenerateContent posts reqPayload with the given bearer token and returns the
// response body untouched. Non-2xx statuses come back as *Error carrying the
// raw body.
func (c *Client) GenerateContent(ctx context.Context, token string, reqPayload GenerateContentRequest) (json.RawMessage, error) {
	started := time.Now()
	statusCode := 0
	defer func() { c.observe("generate_content", statusCode, time.Since(started)) }()

	payload, err := json.Marshal(reqPayload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	statusCode = resp.StatusCode

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, c.maxResponseBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(respBody)) > c.maxResponseBytes {
		return nil, ErrResponseTooLarge
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	if !json.Valid(respBody) {
		return nil, ErrInvalidResponse
	}
	return json.RawMessage(respBody), nil
}

func (c *Client) observe(endpoint string, status int, duration time.Duration) {
	if c.observer != nil {
		c.observer(endpoint, status, duration)
	}
}
