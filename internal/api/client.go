package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/park285/pokeleague/pkg/battledto"
)

// Client calls the battle HTTP API. Accept/reject and reads are retried on
// transport errors and 5xx; battle creation is never retried.
type Client struct {
	baseURL string
	http    *fasthttp.Client

	defaultTimeout time.Duration
	retryMax       int
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.defaultTimeout = d }
}

func WithRetry(max int) Option {
	return func(c *Client) { c.retryMax = max }
}

// WithDial replaces the TCP dialer, e.g. with an in-memory listener.
func WithDial(dial func(addr string) (net.Conn, error)) Option {
	return func(c *Client) { c.http.Dial = dial }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 64},
		defaultTimeout: 10 * time.Second,
		retryMax:       3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) CreateBattle(ctx context.Context, req battledto.CreateBattleRequest) (*battledto.CreateBattleResponse, error) {
	var resp battledto.CreateBattleResponse
	if err := c.doJSON(ctx, fasthttp.MethodPost, "/battles", req, &resp, false); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Simulate is not retried: every call records a new battle.
func (c *Client) Simulate(ctx context.Context, req battledto.SimulateRequest) (*battledto.SimulateResponse, error) {
	var resp battledto.SimulateResponse
	if err := c.doJSON(ctx, fasthttp.MethodPost, "/battles/simulate", req, &resp, false); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Accept(ctx context.Context, id int64) error {
	return c.doJSON(ctx, fasthttp.MethodPost, battlePath(id, "accept"), nil, nil, true)
}

func (c *Client) Reject(ctx context.Context, id int64) error {
	return c.doJSON(ctx, fasthttp.MethodPost, battlePath(id, "reject"), nil, nil, true)
}

func (c *Client) Result(ctx context.Context, id int64) (*battledto.BattleResult, error) {
	var res battledto.BattleResult
	if err := c.doJSON(ctx, fasthttp.MethodGet, battlePath(id, ""), nil, &res, true); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) Challenge(ctx context.Context, req battledto.ChallengeRequest) (bool, error) {
	var resp battledto.ChallengeResponse
	if err := c.doJSON(ctx, fasthttp.MethodPost, "/challenge", req, &resp, false); err != nil {
		return false, err
	}
	return resp.Delivered, nil
}

// Health reports whether the service answers /healthz.
func (c *Client) Health(ctx context.Context) error {
	return c.doJSON(ctx, fasthttp.MethodGet, "/healthz", nil, nil, true)
}

func battlePath(id int64, action string) string {
	p := "/battles/" + strconv.FormatInt(id, 10)
	if action != "" {
		p += "/" + action
	}
	return p
}

func (c *Client) doJSON(ctx context.Context, method, path string, in any, out any, retry bool) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(method)
	req.SetRequestURI(c.baseURL + path)
	req.Header.SetContentType("application/json")

	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		req.SetBody(payload)
	}

	attempts := 1
	if retry && c.retryMax > 1 {
		attempts = c.retryMax
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := c.http.DoDeadline(req, resp, c.computeDeadline(ctx))
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
		} else if status := resp.StatusCode(); status < 200 || status >= 300 {
			apiErr := decodeAPIError(status, resp.Body())
			if !shouldRetryStatus(status) {
				return apiErr
			}
			lastErr = apiErr
		} else {
			if out != nil {
				if err := json.Unmarshal(resp.Body(), out); err != nil {
					return fmt.Errorf("decode response: %w", err)
				}
			}
			return nil
		}
		if attempt == attempts {
			break
		}
		if sleepErr := sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
			return lastErr
		}
	}
	if lastErr == nil {
		lastErr = errors.New("unknown error")
	}
	return lastErr
}

// StatusError carries the HTTP status and the decoded error body.
type StatusError struct {
	Status int
	battledto.APIError
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("battle api error: status=%d code=%s message=%s", e.Status, e.Code, e.Message)
}

func decodeAPIError(status int, body []byte) error {
	se := &StatusError{Status: status}
	if err := json.Unmarshal(body, &se.APIError); err != nil {
		se.Message = truncate(string(body), 512)
	}
	return se
}

func (c *Client) computeDeadline(ctx context.Context) time.Time {
	clientDL := time.Now().Add(c.defaultTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(clientDL) {
		return dl
	}
	return clientDL
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func backoffDuration(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	return time.Duration(1<<uint(attempt-1)) * 100 * time.Millisecond
}

func shouldRetryStatus(code int) bool {
	switch code {
	case 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
