package viking

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/jonwraymond/openviking-mcp/auth"
	"github.com/jonwraymond/openviking-mcp/observe"
	"github.com/jonwraymond/openviking-mcp/resilience"
)

// Identity headers forwarded on every per-identity request.
const (
	HeaderAccount = "X-OpenViking-Account"
	HeaderUser    = "X-OpenViking-User"
	HeaderAgent   = auth.AgentHeader
	HeaderAPIKey  = "X-API-Key"
)

const apiPrefix = "/api/v1"

// ClientConfig configures Client.
type ClientConfig struct {
	// BaseURL is the OpenViking server, e.g. http://127.0.0.1:1933.
	BaseURL string

	// RootKey is sent as X-API-Key when set.
	RootKey string

	// Workspace is the local data directory reported by Workspace.
	Workspace string

	// Policy governs every upstream call.
	Policy resilience.Policy

	// Startup governs the health wait performed by Initialize.
	// Default: 10 attempts, 200ms initial delay, 3s max delay
	Startup resilience.RetryConfig

	// HTTPClient defaults to a client without a timeout; request contexts
	// and Policy.Timeout bound each call.
	HTTPClient *http.Client

	Logger observe.Logger
}

// Client implements Service over the OpenViking HTTP API.
type Client struct {
	base      *url.URL
	rootKey   string
	workspace string
	http      *http.Client
	exec      *resilience.Executor
	startup   *resilience.Retry
	logger    observe.Logger

	initialized atomic.Bool
}

// NewClient validates config and builds a Client. No request is made until
// Initialize.
func NewClient(config ClientConfig) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(config.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("viking: invalid base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("viking: invalid base url %q: scheme must be http or https", config.BaseURL)
	}

	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{}
	}
	if config.Logger == nil {
		config.Logger = observe.NopLogger()
	}

	policy := config.Policy
	if policy.Breaker.IsFailure == nil {
		policy.Breaker.IsFailure = isTransportFailure
	}
	if policy.Retry.RetryIf == nil {
		policy.Retry.RetryIf = isTransportFailure
	}
	if policy.Breaker.OnStateChange == nil {
		logger := config.Logger
		policy.Breaker.OnStateChange = func(from, to resilience.State) {
			logger.Warn(context.Background(), "OpenViking circuit breaker state changed",
				observe.Field{Key: "from", Value: from.String()},
				observe.Field{Key: "to", Value: to.String()})
		}
	}

	startup := config.Startup
	if startup.MaxAttempts <= 0 {
		startup.MaxAttempts = 10
	}
	if startup.InitialDelay <= 0 {
		startup.InitialDelay = 200 * time.Millisecond
	}
	if startup.MaxDelay <= 0 {
		startup.MaxDelay = 3 * time.Second
	}

	return &Client{
		base:      base,
		rootKey:   config.RootKey,
		workspace: config.Workspace,
		http:      config.HTTPClient,
		exec:      resilience.NewExecutor(policy),
		startup:   resilience.NewRetry(startup),
		logger:    config.Logger,
	}, nil
}

// Breaker exposes the upstream circuit breaker.
func (c *Client) Breaker() *resilience.CircuitBreaker {
	return c.exec.Breaker()
}

// Initialize waits for the server to report healthy, then asks it to
// initialize its system scope.
func (c *Client) Initialize(ctx context.Context) error {
	err := c.startup.Execute(ctx, func(ctx context.Context) error {
		ok, err := c.ping(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return errUnhealthy
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("viking: waiting for %s: %w", c.base, err)
	}

	if err := c.call(ctx, http.MethodPost, "/system/initialize", nil, nil, map[string]any{"scope": "system"}, nil, true); err != nil {
		return err
	}
	c.initialized.Store(true)
	return nil
}

// Close marks the client uninitialized and releases idle connections.
func (c *Client) Close(context.Context) error {
	c.initialized.Store(false)
	c.http.CloseIdleConnections()
	return nil
}

func (c *Client) Initialized() bool { return c.initialized.Load() }
func (c *Client) Workspace() string { return c.workspace }

func (c *Client) InitializeAccountDirectories(ctx context.Context, rc auth.RequestContext) error {
	return c.initializeScope(ctx, rc, "account")
}

func (c *Client) InitializeUserDirectories(ctx context.Context, rc auth.RequestContext) error {
	return c.initializeScope(ctx, rc, "user")
}

func (c *Client) InitializeAgentDirectories(ctx context.Context, rc auth.RequestContext) error {
	return c.initializeScope(ctx, rc, "agent")
}

func (c *Client) initializeScope(ctx context.Context, rc auth.RequestContext, scope string) error {
	return c.call(ctx, http.MethodPost, "/system/initialize", &rc, nil, map[string]any{"scope": scope}, nil, true)
}

func (c *Client) FS() FS               { return fsClient{c} }
func (c *Client) Search() Search       { return searchClient{c} }
func (c *Client) Resources() Resources { return resourcesClient{c} }
func (c *Client) Sessions() Sessions   { return sessionsClient{c} }
func (c *Client) Relations() Relations { return relationsClient{c} }
func (c *Client) Pack() Pack           { return packClient{c} }
func (c *Client) Debug() Debug         { return debugClient{c} }

var errUnhealthy = errors.New("viking: server reports unhealthy")

// statusError is a non-2xx response without a decodable error envelope.
type statusError struct {
	status int
	body   string
}

func (e *statusError) Error() string {
	if e.body == "" {
		return "viking: unexpected status " + strconv.Itoa(e.status)
	}
	return "viking: unexpected status " + strconv.Itoa(e.status) + ": " + e.body
}

// isTransportFailure reports whether err says something about the health of
// the upstream. Errors reported by the knowledge base, client-side 4xx
// responses and caller cancellation do not.
func isTransportFailure(err error) bool {
	if err == nil {
		return false
	}
	if _, ok := AsError(err); ok {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var se *statusError
	if errors.As(err, &se) {
		return se.status >= 500 || se.status == http.StatusTooManyRequests
	}
	return true
}

type envelope struct {
	Status string          `json:"status"`
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details any    `json:"details"`
	} `json:"error"`
}

// call performs one request through the executor. rc, when set, is
// forwarded as identity headers; out receives the decoded result.
func (c *Client) call(ctx context.Context, method, path string, rc *auth.RequestContext, query url.Values, body any, out any, retryable bool) error {
	return c.do(ctx, method, path, rc, query, body, out, func(ctx context.Context, op func(context.Context) error) error {
		return c.exec.Execute(ctx, retryable, op)
	})
}

// callLong is call for operations that wait on upstream processing. The
// caller's timeout travels in the body and only ctx bounds the request.
func (c *Client) callLong(ctx context.Context, path string, rc *auth.RequestContext, body any, out any) error {
	return c.do(ctx, http.MethodPost, path, rc, nil, body, out, c.exec.ExecuteUnbounded)
}

func (c *Client) do(ctx context.Context, method, path string, rc *auth.RequestContext, query url.Values, body any, out any,
	execute func(context.Context, func(context.Context) error) error) error {
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("viking: encode %s %s: %w", method, path, err)
		}
		payload = b
	}

	err := execute(ctx, func(ctx context.Context) error {
		return c.roundTrip(ctx, method, path, rc, query, payload, out)
	})
	return c.mapError(method, path, err)
}

func (c *Client) mapError(method, path string, err error) error {
	if err == nil {
		return nil
	}
	if ve, ok := AsError(err); ok {
		return ve
	}
	switch {
	case errors.Is(err, resilience.ErrCircuitOpen):
		return Errorf(CodeUnavailable, "knowledge base unavailable: circuit open")
	case errors.Is(err, resilience.ErrBulkheadFull):
		return Errorf(CodeUnavailable, "knowledge base busy: too many concurrent requests")
	case errors.Is(err, resilience.ErrTimeout):
		return Errorf(CodeDeadlineExceeded, "%s %s timed out", method, path)
	}
	return fmt.Errorf("viking: %s %s: %w", method, path, err)
}

func (c *Client) roundTrip(ctx context.Context, method, path string, rc *auth.RequestContext, query url.Values, payload []byte, out any) error {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + apiPrefix + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return resilience.Permanent(err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.setHeaders(req, rc)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return err
	}
	return decodeEnvelope(resp.StatusCode, raw, out)
}

func (c *Client) setHeaders(req *http.Request, rc *auth.RequestContext) {
	if c.rootKey != "" {
		req.Header.Set(HeaderAPIKey, c.rootKey)
	}
	if rc == nil {
		return
	}
	req.Header.Set(HeaderAccount, rc.User.Account())
	req.Header.Set(HeaderUser, rc.User.User())
	req.Header.Set(HeaderAgent, rc.User.Agent())
	req.Header.Set("X-OpenViking-Role", rc.Role.String())
}

func decodeEnvelope(status int, raw []byte, out any) error {
	var env envelope
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&env); err != nil || (env.Status == "" && env.Error == nil) {
		if status < 200 || status > 299 {
			return &statusError{status: status, body: truncate(string(raw), 256)}
		}
		if err != nil {
			return resilience.Permanent(fmt.Errorf("viking: malformed response: %w", err))
		}
	}

	if env.Status == "error" || env.Error != nil {
		if env.Error == nil {
			return NewError(CodeInternal, "unknown error", nil)
		}
		code := env.Error.Code
		if code == "" {
			code = CodeInternal
		}
		return NewError(code, env.Error.Message, env.Error.Details)
	}
	if status < 200 || status > 299 {
		return &statusError{status: status, body: truncate(string(raw), 256)}
	}

	if out == nil || len(env.Result) == 0 {
		return nil
	}
	rdec := json.NewDecoder(bytes.NewReader(env.Result))
	rdec.UseNumber()
	if err := rdec.Decode(out); err != nil {
		return resilience.Permanent(fmt.Errorf("viking: decode result: %w", err))
	}
	return nil
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// ping reports whether /health answered 2xx. Transport failures are
// returned as errors so callers can retry them.
func (c *Client) ping(ctx context.Context) (bool, error) {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + "/health"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return false, resilience.Permanent(err)
	}
	c.setHeaders(req, nil)

	resp, err := c.http.Do(req)
	if err != nil {
		return false, err
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))
	_ = resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode <= 299, nil
}

var _ Service = (*Client)(nil)
