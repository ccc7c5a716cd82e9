package tools

import (
	"context"
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jonwraymond/openviking-mcp/app"
	"github.com/jonwraymond/openviking-mcp/auth"
	"github.com/jonwraymond/openviking-mcp/viking"
	"github.com/jonwraymond/openviking-mcp/viking/vikingtest"
)

const testRootKey = "root-secret"

func startApp(t *testing.T, rootKey string) (*app.App, *vikingtest.Service) {
	t.Helper()
	svc := vikingtest.New(t.TempDir())
	a, err := app.New(svc, app.Config{RootKey: rootKey})
	if err != nil {
		t.Fatalf("app.New() error = %v", err)
	}
	if err := a.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { _ = a.Close(context.Background()) })
	return a, svc
}

// connect serves a fresh Toolset over in-memory transports. slot is the
// identity every call of the session carries.
func connect(t *testing.T, a *app.App, slot *auth.SessionSlot) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()

	server := mcp.NewServer(&mcp.Implementation{Name: "openviking-mcp", Version: "test"}, nil)
	New(Config{App: a, Fallback: slot}).Register(server)

	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	ss, err := server.Connect(ctx, serverTransport, nil)
	if err != nil {
		t.Fatalf("server connect: %v", err)
	}
	client := mcp.NewClient(&mcp.Implementation{Name: "client", Version: "v0.0.1"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() {
		_ = cs.Close()
		_ = ss.Wait()
	})
	return cs
}

func slotFor(account, user string, role auth.Role) *auth.SessionSlot {
	return auth.NewSessionSlot(&auth.ResolvedIdentity{
		AccountID: account,
		UserID:    user,
		Role:      role,
		Method:    auth.AuthMethodAPIKey,
	})
}

func rootSlot() *auth.SessionSlot {
	return auth.NewSessionSlot(&auth.ResolvedIdentity{Role: auth.RoleRoot, Method: auth.AuthMethodRootKey})
}

func callText(t *testing.T, cs *mcp.ClientSession, name string, args map[string]any) string {
	t.Helper()
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		t.Fatalf("CallTool(%s) error = %v", name, err)
	}
	if res.IsError {
		t.Fatalf("CallTool(%s) returned a tool error: %+v", name, res.Content)
	}
	if len(res.Content) != 1 {
		t.Fatalf("CallTool(%s) content = %d items, want 1", name, len(res.Content))
	}
	text, ok := res.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("CallTool(%s) content = %T, want *mcp.TextContent", name, res.Content[0])
	}
	return text.Text
}

func callJSON(t *testing.T, cs *mcp.ClientSession, name string, args map[string]any) map[string]any {
	t.Helper()
	text := callText(t, cs, name, args)
	var out map[string]any
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		t.Fatalf("CallTool(%s) = %q, not a JSON object: %v", name, text, err)
	}
	return out
}

func wantError(t *testing.T, got map[string]any, code, message string) {
	t.Helper()
	if got["error"] != true || got["code"] != code || got["message"] != message {
		t.Errorf("payload = %v, want error %s %q", got, code, message)
	}
}

func TestRegister_AllTools(t *testing.T) {
	a, _ := startApp(t, "")
	cs := connect(t, a, nil)

	res, err := cs.ListTools(context.Background(), nil)
	if err != nil {
		t.Fatalf("ListTools() error = %v", err)
	}
	if len(res.Tools) != 38 {
		t.Errorf("ListTools() = %d tools, want 38", len(res.Tools))
	}

	destructive := map[string]bool{}
	for _, tool := range res.Tools {
		if ann := tool.Annotations; ann != nil && ann.DestructiveHint != nil && *ann.DestructiveHint {
			destructive[tool.Name] = true
		}
	}
	want := map[string]bool{
		"fs_rm":                true,
		"session_delete":       true,
		"admin_delete_account": true,
		"admin_remove_user":    true,
	}
	if !reflect.DeepEqual(destructive, want) {
		t.Errorf("destructive tools = %v, want %v", destructive, want)
	}
}

func TestToolset_Names(t *testing.T) {
	a, _ := startApp(t, "")
	ts := New(Config{App: a})
	ts.Register(mcp.NewServer(&mcp.Implementation{Name: "x", Version: "v"}, nil))

	names := ts.Names()
	if len(names) != 38 {
		t.Fatalf("Names() = %d, want 38", len(names))
	}
	if names[0] != "system_health" || names[len(names)-1] != "admin_set_role" {
		t.Errorf("Names() = %v", names)
	}
}

func TestSystemStatus_DevModeIsRoot(t *testing.T) {
	a, _ := startApp(t, "")
	cs := connect(t, a, nil)

	got := callJSON(t, cs, "system_status", map[string]any{})
	want := map[string]any{"initialized": true, "user": "default:default:default", "role": "root"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("system_status = %v, want %v", got, want)
	}

	if got := callJSON(t, cs, "system_health", map[string]any{}); got["healthy"] != true {
		t.Errorf("system_health = %v, want healthy", got)
	}
}

func TestObserverStatus(t *testing.T) {
	a, svc := startApp(t, "")
	svc.Set("debug.observer", map[string]any{"status": "ok"})
	cs := connect(t, a, nil)

	got := callJSON(t, cs, "observer_status", map[string]any{})
	if got["status"] != "ok" {
		t.Errorf("observer_status = %v", got)
	}
	got = callJSON(t, cs, "observer_status", map[string]any{"component": "queue"})
	if got["status"] != "ok" {
		t.Errorf("observer_status(queue) = %v", got)
	}

	calls := svc.CallsTo("debug.observer")
	if len(calls) != 2 || calls[0].Args["component"] != viking.ComponentSystem || calls[1].Args["component"] != "queue" {
		t.Errorf("observer calls = %+v", calls)
	}

	got = callJSON(t, cs, "observer_status", map[string]any{"component": "bogus"})
	wantError(t, got, viking.CodeInvalidArgument, "Unknown component: bogus. Valid: queue, vikingdb, vlm, transaction")
	if n := len(svc.CallsTo("debug.observer")); n != 2 {
		t.Errorf("observer calls after rejection = %d, want 2", n)
	}
}

func TestFSLs_ForwardsDefaults(t *testing.T) {
	a, svc := startApp(t, "")
	svc.Set("fs.ls", []any{"a.md"})
	cs := connect(t, a, nil)

	if got := callText(t, cs, "fs_ls", map[string]any{"uri": "viking://resources/"}); got != `["a.md"]` {
		t.Errorf("fs_ls = %s", got)
	}
	callText(t, cs, "fs_tree", map[string]any{"uri": "viking://", "abs_limit": 64})

	ls := svc.CallsTo("fs.ls")[0].Args["opts"]
	wantLs := viking.LsOptions{Output: "agent", AbsLimit: 256, NodeLimit: 1000}
	if ls != wantLs {
		t.Errorf("fs_ls options = %+v, want %+v", ls, wantLs)
	}
	tree := svc.CallsTo("fs.tree")[0].Args["opts"]
	wantTree := viking.TreeOptions{Output: "agent", AbsLimit: 64, NodeLimit: 1000}
	if tree != wantTree {
		t.Errorf("fs_tree options = %+v, want %+v", tree, wantTree)
	}
}

func TestFSMutations(t *testing.T) {
	a, _ := startApp(t, "")
	cs := connect(t, a, nil)

	tests := []struct {
		tool string
		args map[string]any
		want string
	}{
		{"fs_mkdir", map[string]any{"uri": "viking://resources/new"}, `{"uri":"viking://resources/new"}`},
		{"fs_rm", map[string]any{"uri": "viking://resources/old", "recursive": true}, `{"uri":"viking://resources/old"}`},
		{"fs_mv", map[string]any{"from_uri": "viking://a", "to_uri": "viking://b"}, `{"from":"viking://a","to":"viking://b"}`},
		{"pack_export", map[string]any{"uri": "viking://a", "to": "/tmp/a.ovpack"}, `{"file":"/tmp/a.ovpack"}`},
	}
	for _, tt := range tests {
		t.Run(tt.tool, func(t *testing.T) {
			if got := callText(t, cs, tt.tool, tt.args); got != tt.want {
				t.Errorf("%s = %s, want %s", tt.tool, got, tt.want)
			}
		})
	}
}

func TestDomainErrorRenderedInBand(t *testing.T) {
	a, svc := startApp(t, "")
	verr := viking.NewError(viking.CodeNotFound, "Resource not found: viking://x", map[string]any{"uri": "viking://x"})
	svc.Fail("fs.stat", verr)
	cs := connect(t, a, nil)

	if got := callText(t, cs, "fs_stat", map[string]any{"uri": "viking://x"}); got != viking.FormatError(verr) {
		t.Errorf("fs_stat = %s, want %s", got, viking.FormatError(verr))
	}
}

func TestContent_RawStrings(t *testing.T) {
	a, svc := startApp(t, "")
	svc.Set("fs.read", "# Title\nbody")
	svc.Set("fs.overview", map[string]any{"sections": 2})
	cs := connect(t, a, nil)

	if got := callText(t, cs, "content_read", map[string]any{"uri": "viking://doc"}); got != "# Title\nbody" {
		t.Errorf("content_read = %q", got)
	}
	if got := callText(t, cs, "content_overview", map[string]any{"uri": "viking://doc"}); got != `{"sections":2}` {
		t.Errorf("content_overview = %q", got)
	}

	read := svc.CallsTo("fs.read")[0]
	if read.Args["offset"] != 0 || read.Args["limit"] != -1 {
		t.Errorf("content_read args = %v, want offset 0 limit -1", read.Args)
	}
}

func TestSearch(t *testing.T) {
	a, svc := startApp(t, "")
	cs := connect(t, a, nil)

	callText(t, cs, "search_find", map[string]any{"query": "auth"})
	q := svc.CallsTo("search.find")[0].Args["query"].(viking.SearchQuery)
	if q.Query != "auth" || q.Limit != 10 || q.ScoreThreshold != nil {
		t.Errorf("search_find query = %+v", q)
	}

	callText(t, cs, "search_search", map[string]any{"query": "auth", "session_id": "s1", "score_threshold": 0.5})
	if gets := svc.CallsTo("sessions.get"); len(gets) != 1 || gets[0].Args["session_id"] != "s1" {
		t.Errorf("search_search did not load the session: %+v", gets)
	}
	q = svc.CallsTo("search.search")[0].Args["query"].(viking.SearchQuery)
	if q.SessionID != "s1" || q.ScoreThreshold == nil || *q.ScoreThreshold != 0.5 {
		t.Errorf("search_search query = %+v", q)
	}

	callText(t, cs, "search_glob", map[string]any{"pattern": "*.md"})
	if uri := svc.CallsTo("fs.glob")[0].Args["uri"]; uri != "viking://" {
		t.Errorf("search_glob uri = %v, want viking://", uri)
	}
}

func TestSearch_MissingSession(t *testing.T) {
	a, svc := startApp(t, "")
	svc.Fail("sessions.get", viking.NewError(viking.CodeNotFound, "Session not found: s9", nil))
	cs := connect(t, a, nil)

	got := callJSON(t, cs, "search_search", map[string]any{"query": "q", "session_id": "s9"})
	if got["code"] != viking.CodeNotFound {
		t.Errorf("search_search = %v, want NOT_FOUND", got)
	}
	if n := len(svc.CallsTo("search.search")); n != 0 {
		t.Errorf("search ran %d times after the session lookup failed", n)
	}
}

func TestSessionLifecycle(t *testing.T) {
	a, svc := startApp(t, "")
	cs := connect(t, a, slotFor("acme", "alice", auth.RoleUser))

	got := callJSON(t, cs, "session_create", map[string]any{})
	if got["session_id"] != "session-1" || got["user"] != "acme:alice:default" {
		t.Errorf("session_create = %v", got)
	}
	var ops []string
	for _, c := range svc.Calls() {
		ops = append(ops, c.Op)
	}
	if want := []string{"dirs.user", "dirs.agent", "sessions.create"}; !reflect.DeepEqual(ops, want) {
		t.Errorf("session_create ops = %v, want %v", ops, want)
	}

	svc.Set("sessions.get", viking.Session{ID: "s1", MessageCount: 3})
	got = callJSON(t, cs, "session_get", map[string]any{"session_id": "s1"})
	want := map[string]any{"session_id": "s1", "user": "acme:alice:default", "message_count": float64(3)}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("session_get = %v, want %v", got, want)
	}

	if got := callText(t, cs, "session_delete", map[string]any{"session_id": "s1"}); got != `{"session_id":"s1","deleted":true}` {
		t.Errorf("session_delete = %s", got)
	}
}

func TestSessionAddMessage(t *testing.T) {
	a, svc := startApp(t, "")
	svc.Set("sessions.add_message", 4)
	cs := connect(t, a, nil)

	got := callJSON(t, cs, "session_add_message", map[string]any{"session_id": "s1", "role": "user"})
	wantError(t, got, viking.CodeInvalidArgument, "Either content or parts must be provided")

	got = callJSON(t, cs, "session_add_message", map[string]any{
		"session_id": "s1",
		"role":       "user",
		"content":    "hello",
		"parts":      []any{map[string]any{"type": "text", "text": "ignored"}},
	})
	if got["message_count"] != float64(4) || got["session_id"] != "s1" {
		t.Errorf("session_add_message = %v", got)
	}
	parts := svc.CallsTo("sessions.add_message")[0].Args["parts"].([]viking.Part)
	if !reflect.DeepEqual(parts, []viking.Part{viking.TextPart("hello")}) {
		t.Errorf("parts = %v, want the content as one text part", parts)
	}
	if n := len(svc.CallsTo("sessions.get")); n != 2 {
		t.Errorf("sessions.get calls = %d, want 2", n)
	}
}

func TestRelationLink_StringOrList(t *testing.T) {
	a, svc := startApp(t, "")
	cs := connect(t, a, nil)

	tests := []struct {
		name   string
		toURIs any
		want   string
		uris   []string
	}{
		{"single", "viking://b", `{"from":"viking://a","to":"viking://b"}`, []string{"viking://b"}},
		{"list", []any{"viking://b", "viking://c"}, `{"from":"viking://a","to":["viking://b","viking://c"]}`, []string{"viking://b", "viking://c"}},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := callText(t, cs, "relation_link", map[string]any{"from_uri": "viking://a", "to_uris": tt.toURIs})
			if got != tt.want {
				t.Errorf("relation_link = %s, want %s", got, tt.want)
			}
			link := svc.CallsTo("relations.link")[i]
			if !reflect.DeepEqual(link.Args["to_uris"], tt.uris) {
				t.Errorf("to_uris = %v, want %v", link.Args["to_uris"], tt.uris)
			}
		})
	}

	got := callJSON(t, cs, "relation_link", map[string]any{"from_uri": "viking://a", "to_uris": 7})
	wantError(t, got, viking.CodeInvalidArgument, "to_uris must be a string or a list of strings")
}

func TestPackImport_VectorizeDefault(t *testing.T) {
	a, svc := startApp(t, "")
	svc.Set("pack.import", "viking://resources/pkg")
	cs := connect(t, a, nil)

	if got := callText(t, cs, "pack_import", map[string]any{"file_path": "/tmp/p.ovpack", "parent": "viking://resources"}); got != `{"uri":"viking://resources/pkg"}` {
		t.Errorf("pack_import = %s", got)
	}
	args := svc.CallsTo("pack.import")[0].Args
	if args["vectorize"] != true || args["force"] != false {
		t.Errorf("pack_import args = %v", args)
	}
}

func TestAdmin_DevModeDenied(t *testing.T) {
	a, _ := startApp(t, "")
	cs := connect(t, a, nil)

	got := callJSON(t, cs, "admin_create_account", map[string]any{"account_id": "acme", "admin_user_id": "alice"})
	wantError(t, got, auth.CodePermissionDenied, auth.MsgDevMode)
	if _, ok := got["details"]; ok {
		t.Errorf("denial carries details: %v", got)
	}
}

func TestAdmin_RoleGates(t *testing.T) {
	a, svc := startApp(t, testRootKey)
	root := connect(t, a, rootSlot())

	created := callJSON(t, root, "admin_create_account", map[string]any{"account_id": "acme", "admin_user_id": "alice"})
	if created["account_id"] != "acme" || created["admin_user_id"] != "alice" || created["user_key"] == "" {
		t.Fatalf("admin_create_account = %v", created)
	}
	dirs := svc.CallsTo("dirs.account")
	if len(dirs) != 1 || dirs[0].RC.User.String() != "acme:alice:default" || dirs[0].RC.Role != auth.RoleAdmin {
		t.Errorf("account directories initialized with %+v", dirs)
	}
	callJSON(t, root, "admin_create_account", map[string]any{"account_id": "other", "admin_user_id": "olga"})

	user := connect(t, a, slotFor("acme", "bob", auth.RoleUser))
	wantError(t, callJSON(t, user, "admin_list_accounts", map[string]any{}), auth.CodePermissionDenied, auth.MsgRootRequired)
	wantError(t, callJSON(t, user, "admin_list_users", map[string]any{"account_id": "acme"}), auth.CodePermissionDenied, auth.MsgAdminOrRootRequired)

	admin := connect(t, a, slotFor("acme", "alice", auth.RoleAdmin))
	got := callJSON(t, admin, "admin_register_user", map[string]any{"account_id": "other", "user_id": "mallory"})
	wantError(t, got, auth.CodePermissionDenied, auth.MsgAdminOrRootRequired)
	wantError(t, callJSON(t, admin, "admin_set_role", map[string]any{"account_id": "acme", "user_id": "alice", "role": "user"}),
		auth.CodePermissionDenied, auth.MsgRootRequired)

	got = callJSON(t, admin, "admin_register_user", map[string]any{"account_id": "acme", "user_id": "bob"})
	if got["user_id"] != "bob" || got["user_key"] == "" {
		t.Fatalf("admin_register_user = %v", got)
	}
	userDirs := svc.CallsTo("dirs.user")
	if len(userDirs) != 1 || userDirs[0].RC.User.String() != "acme:bob:default" || userDirs[0].RC.Role != auth.RoleUser {
		t.Errorf("user directories initialized with %+v", userDirs)
	}

	id, err := a.KeyManager().Resolve(context.Background(), got["user_key"].(string))
	if err != nil || id == nil || id.AccountID != "acme" || id.UserID != "bob" {
		t.Errorf("Resolve(new key) = %+v, %v", id, err)
	}

	text := callText(t, admin, "admin_list_users", map[string]any{"account_id": "acme"})
	var users []map[string]any
	if err := json.Unmarshal([]byte(text), &users); err != nil || len(users) != 2 {
		t.Errorf("admin_list_users = %s", text)
	}

	if got := callText(t, admin, "admin_remove_user", map[string]any{"account_id": "acme", "user_id": "bob"}); got != `{"account_id":"acme","user_id":"bob","deleted":true}` {
		t.Errorf("admin_remove_user = %s", got)
	}
}

func TestAdmin_KeyManagerErrors(t *testing.T) {
	a, _ := startApp(t, testRootKey)
	root := connect(t, a, rootSlot())

	callJSON(t, root, "admin_create_account", map[string]any{"account_id": "acme", "admin_user_id": "alice"})

	tests := []struct {
		name string
		tool string
		args map[string]any
		code string
	}{
		{"duplicate account", "admin_create_account", map[string]any{"account_id": "acme", "admin_user_id": "x"}, viking.CodeAlreadyExists},
		{"missing account", "admin_delete_account", map[string]any{"account_id": "nope"}, viking.CodeNotFound},
		{"bad role", "admin_set_role", map[string]any{"account_id": "acme", "user_id": "alice", "role": "root"}, viking.CodeInvalidArgument},
		{"uppercase role", "admin_set_role", map[string]any{"account_id": "acme", "user_id": "alice", "role": "ADMIN"}, viking.CodeInvalidArgument},
		{"padded role", "admin_set_role", map[string]any{"account_id": "acme", "user_id": "alice", "role": " user"}, viking.CodeInvalidArgument},
		{"empty role", "admin_set_role", map[string]any{"account_id": "acme", "user_id": "alice", "role": ""}, viking.CodeInvalidArgument},
		{"padded register role", "admin_register_user", map[string]any{"account_id": "acme", "user_id": "bob", "role": " ADMIN "}, viking.CodeInvalidArgument},
		{"missing user", "admin_remove_user", map[string]any{"account_id": "acme", "user_id": "ghost"}, viking.CodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := callJSON(t, root, tt.tool, tt.args)
			if got["error"] != true || got["code"] != tt.code {
				t.Errorf("%s = %v, want code %s", tt.tool, got, tt.code)
			}
		})
	}

	users := callText(t, root, "admin_list_users", map[string]any{"account_id": "acme"})
	if strings.Contains(users, `"bob"`) {
		t.Errorf("admin_list_users = %v, want bob not registered", users)
	}

	got := callJSON(t, root, "admin_set_role", map[string]any{"account_id": "acme", "user_id": "alice", "role": "user"})
	want := map[string]any{"account_id": "acme", "user_id": "alice", "role": "user"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("admin_set_role = %v, want %v", got, want)
	}
	if got := callText(t, root, "admin_delete_account", map[string]any{"account_id": "acme"}); got != `{"account_id":"acme","deleted":true}` {
		t.Errorf("admin_delete_account = %s", got)
	}
}

func TestCall_NotReady(t *testing.T) {
	a, _ := startApp(t, "")
	cs := connect(t, a, nil)
	if err := a.Close(context.Background()); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: "system_status", Arguments: map[string]any{}})
	if err == nil && !res.IsError {
		t.Errorf("CallTool() after Close = %+v, want a failed call", res.Content)
	}
}

func TestRender(t *testing.T) {
	tests := []struct {
		name    string
		out     any
		err     error
		want    string
		wantErr bool
	}{
		{"json", map[string]any{"a": 1}, nil, `{"a":1}`, false},
		{"raw", rawText("plain"), nil, "plain", false},
		{"denial", nil, &auth.AuthzError{Reason: auth.MsgRootRequired}, viking.PermissionDenied(auth.MsgRootRequired), false},
		{"argument", nil, invalidArgument("bad"), viking.InBandError(viking.CodeInvalidArgument, "bad"), false},
		{"domain", nil, viking.NewError(viking.CodeUnavailable, "busy", nil), viking.FormatError(viking.NewError(viking.CodeUnavailable, "busy", nil)), false},
		{"other", nil, context.DeadlineExceeded, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := render(tt.out, tt.err)
			if (err != nil) != tt.wantErr {
				t.Fatalf("render() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("render() = %q, want %q", got, tt.want)
			}
		})
	}
}
