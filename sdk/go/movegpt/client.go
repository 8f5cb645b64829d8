// Package movegpt is a small Go client for the MoveGPT HTTP API.
package movegpt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"time"
)

// DefaultHTTPTimeout is used by clients created without a custom http.Client.
// Completions can be slow, so it is longer than a typical REST timeout.
const DefaultHTTPTimeout = 90 * time.Second

// Client wraps the HTTP interactions with a MoveGPT server.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
}

// Question is the payload of both answer endpoints.
type Question struct {
	Question  string `json:"question"`
	SessionID string `json:"session_id,omitempty"`
}

// Answer is returned by /generate-response.
type Answer struct {
	Answer    string `json:"answer"`
	SessionID string `json:"session_id,omitempty"`
}

// ResourceAnswer is returned by /generate-resource-response.
type ResourceAnswer struct {
	Answer    string `json:"answer"`
	Address   string `json:"address"`
	SessionID string `json:"session_id,omitempty"`
}

// Session is the rendered history of one conversation.
type Session struct {
	SessionID string `json:"session_id"`
	History   string `json:"history"`
}

// Turn is one recorded question and answer.
type Turn struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Mode      string    `json:"mode"`
	Question  string    `json:"question"`
	Context   string    `json:"context,omitempty"`
	Answer    string    `json:"answer"`
	Addresses []string  `json:"addresses,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// APIError represents a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Code       string `json:"code"`
	Message    string `json:"error"`
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	if e.Code != "" {
		return fmt.Sprintf("movegpt api error (%d): %s - %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("movegpt api error (%d): %s", e.StatusCode, e.Message)
}

// NewClient instantiates a client for the given base URL. When httpClient is
// nil a client with DefaultHTTPTimeout is used.
func NewClient(rawURL string, httpClient *http.Client) (*Client, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid base url: %q", rawURL)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultHTTPTimeout}
	}
	return &Client{baseURL: parsed, httpClient: httpClient}, nil
}

// Ask sends a Move programming question.
func (c *Client) Ask(ctx context.Context, q Question) (Answer, error) {
	var out Answer
	if err := c.post(ctx, "/generate-response", q, &out); err != nil {
		return Answer{}, err
	}
	return out, nil
}

// AskAboutAccount sends a question about an on-chain account.
func (c *Client) AskAboutAccount(ctx context.Context, q Question) (ResourceAnswer, error) {
	var out ResourceAnswer
	if err := c.post(ctx, "/generate-resource-response", q, &out); err != nil {
		return ResourceAnswer{}, err
	}
	return out, nil
}

// Session fetches the rendered history of a session.
func (c *Client) Session(ctx context.Context, id string) (Session, error) {
	var out Session
	if err := c.get(ctx, "/api/v1/sessions/"+url.PathEscape(id), nil, &out); err != nil {
		return Session{}, err
	}
	return out, nil
}

// Turns lists the most recent turns.
func (c *Client) Turns(ctx context.Context, limit int) ([]Turn, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	var out []Turn
	if err := c.get(ctx, "/api/v1/turns", query, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) post(ctx context.Context, endpoint string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, endpoint, nil, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, endpoint string, query url.Values, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, endpoint, query, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, query url.Values, body io.Reader) (*http.Request, error) {
	rel := &url.URL{Path: path.Join(c.baseURL.Path, endpoint)}
	if len(query) > 0 {
		rel.RawQuery = query.Encode()
	}
	u := c.baseURL.ResolveReference(rel)
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := APIError{StatusCode: resp.StatusCode}
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read error response: %w", err)
		}
		if len(data) > 0 {
			_ = json.Unmarshal(data, &apiErr)
		}
		if apiErr.Message == "" {
			apiErr.Message = string(bytes.TrimSpace(data))
		}
		return &apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
