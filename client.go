// Package whatsthat is a Go client for the WhatsThat messaging API.
//
// It covers accounts, users, contacts and chats with the sub-client access
// pattern, plus the local pieces a chat screen needs: a persisted session,
// per-chat drafts and a Thread that keeps a displayed chat consistent with
// the server after every change.
//
// Example:
//
//	client := whatsthat.NewClient(whatsthat.WithBaseURL("http://localhost:3333/api/1.0.0"))
//
//	sess, _ := client.Account.Login(ctx, "ash@example.com", "Secret1!")
//	authed := client.WithSession(sess)
//
//	chats, _ := authed.Chats.List(ctx)
//	authed.Chats.Send(ctx, chats[0].ChatID, "hello")
package whatsthat

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

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	DefaultBaseURL = "http://localhost:3333/api/1.0.0"
	DefaultTimeout = 30 * time.Second

	// AuthHeader carries the session token on every authenticated call.
	AuthHeader = "X-Authorization"
)

// ============================================================================
// Client
// ============================================================================

type Client struct {
	baseURL       string
	session       Session
	trailingSpace bool
	httpClient    *http.Client
	log           zerolog.Logger
	metrics       *Metrics

	Account  *AccountClient
	Users    *UsersClient
	Chats    *ChatsClient
	Contacts *ContactsClient
}

type ClientOption func(*Client)

func WithBaseURL(url string) ClientOption {
	return func(c *Client) { c.baseURL = strings.TrimRight(url, "/") }
}

func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) { c.httpClient.Timeout = timeout }
}

func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = client }
}

func WithLogger(logger zerolog.Logger) ClientOption {
	return func(c *Client) { c.log = logger }
}

// WithMetrics records every round trip in m.
func WithMetrics(m *Metrics) ClientOption {
	return func(c *Client) { c.metrics = m }
}

// WithTrailingSpace controls whether a single space is appended to sent and
// edited message text. It is on by default because the service has always
// received text in that form.
func WithTrailingSpace(on bool) ClientOption {
	return func(c *Client) { c.trailingSpace = on }
}

// NewClient creates a client. Without a session only Account.SignUp and
// Account.Login can succeed; use WithSession to get an authenticated copy.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL:       DefaultBaseURL,
		trailingSpace: true,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		log: log.Logger,
	}

	for _, opt := range opts {
		opt(c)
	}

	c.bind()
	return c
}

// WithSession returns a copy of the client that authenticates as s. The
// receiver is not modified.
func (c *Client) WithSession(s Session) *Client {
	cp := *c
	cp.session = s
	cp.bind()
	return &cp
}

// Session returns the identity the client authenticates as.
func (c *Client) Session() Session {
	return c.session
}

func (c *Client) bind() {
	c.Account = &AccountClient{c: c}
	c.Users = &UsersClient{c: c}
	c.Chats = &ChatsClient{c: c}
	c.Contacts = &ContactsClient{c: c}
}

// normalizeText applies the outgoing message text convention.
func (c *Client) normalizeText(text string) string {
	if c.trailingSpace {
		return text + " "
	}
	return text
}

// ============================================================================
// Internal request helper
// ============================================================================

type request struct {
	op          string
	method      string
	path        string
	query       url.Values
	body        interface{}
	raw         []byte
	contentType string
	accept      string
	anonymous   bool
}

type response struct {
	status int
	header http.Header
	body   []byte
}

// do performs exactly one round trip. There is no retry: any non-success
// status or transport failure is logged and returned as an *APIError.
func (c *Client) do(ctx context.Context, r request) (*response, error) {
	start := time.Now()
	resp, err := c.roundTrip(ctx, r)
	c.metrics.observe(r.op, err, time.Since(start))
	if err != nil {
		c.logFailure(r, err)
		return nil, err
	}
	return resp, nil
}

func (c *Client) roundTrip(ctx context.Context, r request) (*response, error) {
	fail := func(kind error, status int, cause error) error {
		return &APIError{Kind: kind, Op: r.op, Method: r.method, Path: r.path, Status: status, Err: cause}
	}

	if !r.anonymous && c.session.Token == "" {
		return nil, fail(ErrUnauthorized, 0, fmt.Errorf("no session token"))
	}

	u := c.baseURL + r.path
	if len(r.query) > 0 {
		u += "?" + r.query.Encode()
	}

	var bodyReader io.Reader
	contentType := r.contentType
	switch {
	case r.raw != nil:
		bodyReader = bytes.NewReader(r.raw)
	case r.body != nil:
		b, err := json.Marshal(r.body)
		if err != nil {
			return nil, fail(ErrValidation, 0, fmt.Errorf("failed to marshal request: %w", err))
		}
		bodyReader = bytes.NewReader(b)
		contentType = "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, r.method, u, bodyReader)
	if err != nil {
		return nil, fail(ErrNetwork, 0, fmt.Errorf("failed to create request: %w", err))
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if r.accept != "" {
		req.Header.Set("Accept", r.accept)
	}
	if !r.anonymous {
		req.Header.Set(AuthHeader, c.session.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fail(ErrNetwork, 0, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fail(ErrNetwork, resp.StatusCode, fmt.Errorf("failed to read response: %w", err))
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fail(kindForStatus(resp.StatusCode), resp.StatusCode, nil)
	}
	return &response{status: resp.StatusCode, header: resp.Header, body: body}, nil
}

func (c *Client) logFailure(r request, err error) {
	ev := c.log.Warn()
	if apiErr, ok := err.(*APIError); ok {
		if apiErr.Kind == ErrNetwork {
			ev = c.log.Error()
		}
		ev = ev.Int("status", apiErr.Status)
		if apiErr.Err != nil {
			ev = ev.AnErr("cause", apiErr.Err)
		}
	}
	ev.Str("op", r.op).
		Str("method", r.method).
		Str("path", r.path).
		Str("kind", kindName(err)).
		Msg("request failed")
}

// call performs r and decodes a JSON response body into out when out is
// non-nil.
func (c *Client) call(ctx context.Context, r request, out interface{}) error {
	resp, err := c.do(ctx, r)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(resp.body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.body, out); err != nil {
		return &APIError{Kind: ErrServer, Op: r.op, Method: r.method, Path: r.path, Status: resp.status,
			Err: fmt.Errorf("failed to unmarshal response: %w", err)}
	}
	return nil
}

func decodeJSON[T any](ctx context.Context, c *Client, r request) (T, error) {
	var result T
	err := c.call(ctx, r, &result)
	return result, err
}

func escape(id ID) string {
	return url.PathEscape(string(id))
}
