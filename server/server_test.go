package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jonwraymond/openviking-mcp/app"
	"github.com/jonwraymond/openviking-mcp/auth"
	"github.com/jonwraymond/openviking-mcp/config"
	"github.com/jonwraymond/openviking-mcp/health"
	"github.com/jonwraymond/openviking-mcp/resilience"
	"github.com/jonwraymond/openviking-mcp/viking/vikingtest"
)

const testRootKey = "root-secret"

func startApp(t *testing.T, rootKey string) *app.App {
	t.Helper()
	a, err := app.New(vikingtest.New(t.TempDir()), app.Config{RootKey: rootKey})
	if err != nil {
		t.Fatalf("app.New() error = %v", err)
	}
	if err := a.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { _ = a.Close(context.Background()) })
	return a
}

func testOptions(rootKey string) Options {
	cfg := config.Default()
	cfg.RootAPIKey = rootKey
	return Options{Config: cfg, Version: "test"}
}

// bearerTransport adds the credential headers to every request.
type bearerTransport struct {
	token string
	agent string
}

func (b bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	if b.token != "" {
		req.Header.Set("Authorization", "Bearer "+b.token)
	}
	if b.agent != "" {
		req.Header.Set(auth.AgentHeader, b.agent)
	}
	return http.DefaultTransport.RoundTrip(req)
}

func connectHTTP(t *testing.T, url string, creds bearerTransport) (*mcp.ClientSession, error) {
	t.Helper()
	client := mcp.NewClient(&mcp.Implementation{Name: "client", Version: "v0.0.1"}, nil)
	cs, err := client.Connect(context.Background(), &mcp.StreamableClientTransport{
		Endpoint:   url + mcpPath,
		HTTPClient: &http.Client{Transport: creds},
	}, nil)
	if err == nil {
		t.Cleanup(func() { _ = cs.Close() })
	}
	return cs, err
}

func callJSON(t *testing.T, cs *mcp.ClientSession, name string, args map[string]any) map[string]any {
	t.Helper()
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		t.Fatalf("CallTool(%s) error = %v", name, err)
	}
	if len(res.Content) != 1 {
		t.Fatalf("CallTool(%s) content = %d items", name, len(res.Content))
	}
	text, ok := res.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("CallTool(%s) content = %T", name, res.Content[0])
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(text.Text), &out); err != nil {
		t.Fatalf("CallTool(%s) = %q: %v", name, text.Text, err)
	}
	return out
}

func TestNewHandler_Probes(t *testing.T) {
	a := startApp(t, "")
	h := NewHandler(a, testOptions(""))

	for _, path := range []string{"/healthz", "/readyz", "/health"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, rec.Code)
		}
	}
}

func TestNewHandler_Metrics(t *testing.T) {
	a := startApp(t, "")

	tests := []struct {
		name     string
		exporter string
		want     int
	}{
		{"disabled", "", http.StatusNotFound},
		{"prometheus", "prometheus", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := testOptions("")
			opts.Config.Telemetry.MetricsExporter = tt.exporter
			rec := httptest.NewRecorder()
			NewHandler(a, opts).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
			if rec.Code != tt.want {
				t.Errorf("GET /metrics = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestNewHandler_RequiresBearer(t *testing.T) {
	a := startApp(t, testRootKey)
	h := NewHandler(a, testOptions(testRootKey))

	body := `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`
	tests := []struct {
		name  string
		token string
	}{
		{"missing", ""},
		{"unknown", "not-a-key"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, mcpPath, strings.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Accept", "application/json, text/event-stream")
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("POST /mcp = %d, want 401", rec.Code)
			}
		})
	}
}

func TestHTTP_IdentityPerToken(t *testing.T) {
	a := startApp(t, testRootKey)
	srv := httptest.NewServer(NewHandler(a, testOptions(testRootKey)))
	defer srv.Close()

	root, err := connectHTTP(t, srv.URL, bearerTransport{token: testRootKey})
	if err != nil {
		t.Fatalf("connect as root: %v", err)
	}
	if got := callJSON(t, root, "system_status", map[string]any{}); got["role"] != "root" {
		t.Errorf("root system_status = %v", got)
	}

	created := callJSON(t, root, "admin_create_account", map[string]any{"account_id": "acme", "admin_user_id": "alice"})
	key, _ := created["user_key"].(string)
	if key == "" {
		t.Fatalf("admin_create_account = %v", created)
	}

	admin, err := connectHTTP(t, srv.URL, bearerTransport{token: key, agent: "cli"})
	if err != nil {
		t.Fatalf("connect as admin: %v", err)
	}
	got := callJSON(t, admin, "system_status", map[string]any{})
	if got["role"] != "admin" || got["user"] != "acme:alice:cli" {
		t.Errorf("admin system_status = %v", got)
	}
	denied := callJSON(t, admin, "admin_list_accounts", map[string]any{})
	if denied["code"] != auth.CodePermissionDenied || denied["message"] != auth.MsgRootRequired {
		t.Errorf("admin_list_accounts as admin = %v", denied)
	}

	if _, err := connectHTTP(t, srv.URL, bearerTransport{token: "bogus"}); err == nil {
		t.Error("connect with an unknown key succeeded")
	}
}

func TestHTTP_RemovedKeyStopsWorking(t *testing.T) {
	a := startApp(t, testRootKey)
	srv := httptest.NewServer(NewHandler(a, testOptions(testRootKey)))
	defer srv.Close()

	ctx := context.Background()
	km := a.KeyManager()
	if _, err := km.CreateAccount(ctx, "acme", "alice"); err != nil {
		t.Fatalf("CreateAccount() error = %v", err)
	}
	key, err := km.RegisterUser(ctx, "acme", "bob", "user")
	if err != nil {
		t.Fatalf("RegisterUser() error = %v", err)
	}

	if _, err := connectHTTP(t, srv.URL, bearerTransport{token: key}); err != nil {
		t.Fatalf("connect with a registered key: %v", err)
	}
	if err := km.RemoveUser(ctx, "acme", "bob"); err != nil {
		t.Fatalf("RemoveUser() error = %v", err)
	}
	if _, err := connectHTTP(t, srv.URL, bearerTransport{token: key}); err == nil {
		t.Error("removed key still verifies")
	}
}

func TestStdioSlot(t *testing.T) {
	ctx := context.Background()

	t.Run("dev mode has no identity", func(t *testing.T) {
		a := startApp(t, "")
		slot, err := StdioSlot(ctx, a, testOptions(""))
		if err != nil || slot != nil {
			t.Errorf("StdioSlot() = %v, %v, want nil, nil", slot, err)
		}
	})

	t.Run("auth without key", func(t *testing.T) {
		a := startApp(t, testRootKey)
		if _, err := StdioSlot(ctx, a, testOptions(testRootKey)); !errors.Is(err, ErrStdioCredentials) {
			t.Errorf("StdioSlot() error = %v, want ErrStdioCredentials", err)
		}
	})

	t.Run("unknown key", func(t *testing.T) {
		a := startApp(t, testRootKey)
		opts := testOptions(testRootKey)
		opts.Config.APIKey = "nope"
		if _, err := StdioSlot(ctx, a, opts); !errors.Is(err, ErrStdioCredentials) {
			t.Errorf("StdioSlot() error = %v, want ErrStdioCredentials", err)
		}
	})

	t.Run("user key", func(t *testing.T) {
		a := startApp(t, testRootKey)
		if _, err := a.KeyManager().CreateAccount(ctx, "acme", "alice"); err != nil {
			t.Fatalf("CreateAccount() error = %v", err)
		}
		key, err := a.KeyManager().RegisterUser(ctx, "acme", "bob", "user")
		if err != nil {
			t.Fatalf("RegisterUser() error = %v", err)
		}
		opts := testOptions(testRootKey)
		opts.Config.APIKey = key

		slot, err := StdioSlot(ctx, a, opts)
		if err != nil {
			t.Fatalf("StdioSlot() error = %v", err)
		}
		rc := auth.BuildRequestContext(slot)
		if rc.Role != auth.RoleUser || rc.User.String() != "acme:bob:default" {
			t.Errorf("stdio context = %s %s", rc.User, rc.Role)
		}
	})
}

func TestKeyStore_JWT(t *testing.T) {
	ctx := context.Background()
	a := startApp(t, testRootKey)
	cfg := testOptions(testRootKey).Config
	cfg.JWTSecret = "jwt-secret-with-enough-bytes-0123456789"

	signer := auth.NewJWTKeyStore(auth.JWTConfig{}, auth.NewStaticKeyProvider([]byte(cfg.JWTSecret)))
	token, err := signer.SignToken(ctx, auth.ResolvedIdentity{AccountID: "acme", UserID: "carol", Role: auth.RoleAdmin}, 0)
	if err != nil {
		t.Fatalf("SignToken() error = %v", err)
	}

	store := keyStore(a, cfg)
	id, err := store.Resolve(ctx, token)
	if err != nil || id == nil || id.UserID != "carol" || id.Method != auth.AuthMethodJWT {
		t.Errorf("Resolve(jwt) = %+v, %v", id, err)
	}
	if id, _ := store.Resolve(ctx, testRootKey); id == nil || id.Role != auth.RoleRoot {
		t.Errorf("Resolve(root) = %+v", id)
	}

	cfg.JWTSecret = ""
	if id, _ := keyStore(a, cfg).Resolve(ctx, token); id != nil {
		t.Errorf("Resolve(jwt) without secret = %+v, want nil", id)
	}
}

func TestServe_Errors(t *testing.T) {
	if err := Serve(context.Background(), nil, Options{}); !errors.Is(err, ErrNilApp) {
		t.Errorf("Serve(nil) error = %v, want ErrNilApp", err)
	}

	a := startApp(t, "")
	opts := testOptions("")
	opts.Config.Transport = "carrier-pigeon"
	if err := Serve(context.Background(), a, opts); !errors.Is(err, config.ErrInvalidTransport) {
		t.Errorf("Serve() error = %v, want ErrInvalidTransport", err)
	}
}

func TestNewHandler_ReadinessAfterClose(t *testing.T) {
	a := startApp(t, "")
	h := NewHandler(a, testOptions(""))
	if err := a.Close(context.Background()); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("GET /readyz after Close = %d, want 503", rec.Code)
	}
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("GET /healthz after Close = %d, want 200", rec.Code)
	}
}

func TestCircuitChecker(t *testing.T) {
	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{MaxFailures: 1, ResetTimeout: time.Hour})
	c := circuitChecker(cb)

	if got := c.Check(context.Background()).Status; got != health.StatusHealthy {
		t.Errorf("closed circuit = %v, want healthy", got)
	}
	_ = cb.Execute(context.Background(), func(context.Context) error { return errors.New("refused") })
	got := c.Check(context.Background())
	if got.Status != health.StatusDegraded || got.Details["state"] != "open" {
		t.Errorf("open circuit = %v %v, want degraded open", got.Status, got.Details)
	}
}
