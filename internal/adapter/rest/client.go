package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hykura1501/e-commerce/internal/logging"
)

// TokenSource mints the bearer token sent on behalf of a user.
type TokenSource interface {
	Issue(userID, sessionID string) (string, error)
}

// client is the shared JSON-over-HTTP plumbing of the upstream service clients.
type client struct {
	base    string
	hc      *http.Client
	tokens  TokenSource
	ua      string
	timeout time.Duration
}

func newClient(base string, hc *http.Client, tokens TokenSource, timeout time.Duration) *client {
	if hc == nil {
		hc = http.DefaultClient
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &client{base: strings.TrimRight(base, "/"), hc: hc, tokens: tokens, ua: "cart-api", timeout: timeout}
}

// reply is what an upstream said: its status, its raw body and, on
// non-2xx, its message.
type reply struct {
	Status  int
	Message string
	Body    []byte
}

type errorBody struct {
	Message string `json:"message"`
}

// do sends body as JSON and decodes a 2xx response into out. Non-2xx
// responses are not errors; the caller decides what the status means.
func (c *client) do(ctx context.Context, method, path, userID string, body, out any) (reply, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return reply{}, err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return reply{}, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.ua)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil && userID != "" {
		tok, err := c.tokens.Issue(userID, "")
		if err != nil {
			return reply{}, fmt.Errorf("issue token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		return reply{}, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	logging.FromCtx(ctx).Debug("upstream call", "method", method, "path", path, "status", resp.StatusCode, "latency_ms", time.Since(start).Milliseconds())

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return reply{Status: resp.StatusCode}, fmt.Errorf("read body: %w", err)
	}
	r := reply{Status: resp.StatusCode, Body: raw}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var eb errorBody
		if json.Unmarshal(raw, &eb) == nil {
			r.Message = eb.Message
		}
		return r, nil
	}
	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return r, fmt.Errorf("decode %s %s: %w", method, path, err)
		}
	}
	return r, nil
}

var errUnexpectedStatus = errors.New("unexpected status")
