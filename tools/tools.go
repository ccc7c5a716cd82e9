package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jonwraymond/openviking-mcp/app"
	"github.com/jonwraymond/openviking-mcp/auth"
	"github.com/jonwraymond/openviking-mcp/observe"
	"github.com/jonwraymond/openviking-mcp/viking"
)

// Tool groups, used as the span and metric namespace.
const (
	GroupSystem    = "system"
	GroupFS        = "fs"
	GroupContent   = "content"
	GroupSearch    = "search"
	GroupResources = "resources"
	GroupSessions  = "sessions"
	GroupRelations = "relations"
	GroupPack      = "pack"
	GroupAdmin     = "admin"
)

// Config configures a Toolset.
type Config struct {
	// App is the started application context.
	App *app.App

	// Middleware observes every call. Default: observe.NopMiddleware()
	Middleware *observe.Middleware

	// Fallback is the session slot used when a request carries no verified
	// token, as on the stdio transport. Nil means no identity, which is
	// only valid in dev mode.
	Fallback *auth.SessionSlot
}

// Toolset registers the tools on MCP servers.
type Toolset struct {
	app      *app.App
	mw       *observe.Middleware
	fallback *auth.SessionSlot
	names    []string
}

// New builds a Toolset.
func New(config Config) *Toolset {
	if config.Middleware == nil {
		config.Middleware = observe.NopMiddleware()
	}
	return &Toolset{
		app:      config.App,
		mw:       config.Middleware,
		fallback: config.Fallback,
	}
}

// Register adds every tool to server.
func (t *Toolset) Register(server *mcp.Server) {
	t.names = t.names[:0]
	t.registerSystem(server)
	t.registerFS(server)
	t.registerContent(server)
	t.registerSearch(server)
	t.registerResources(server)
	t.registerSessions(server)
	t.registerRelations(server)
	t.registerPack(server)
	t.registerAdmin(server)
}

// Names lists the registered tools in registration order.
func (t *Toolset) Names() []string {
	return append([]string(nil), t.names...)
}

// call is the per-invocation context handed to tool bodies.
type call struct {
	rc  auth.RequestContext
	app *app.App
}

func (c call) svc() viking.Service { return c.app.Service() }

type invocation[In any] struct {
	rc auth.RequestContext
	in In
}

type toolSpec struct {
	group       string
	name        string
	description string
	readOnly    bool
	destructive bool
}

func (s toolSpec) annotations() *mcp.ToolAnnotations {
	a := &mcp.ToolAnnotations{ReadOnlyHint: s.readOnly}
	if !s.readOnly {
		d := s.destructive
		a.DestructiveHint = &d
	}
	return a
}

// addTool registers body as a tool. The body runs inside the observe
// middleware; its result or error is rendered afterwards.
func addTool[In any](t *Toolset, server *mcp.Server, spec toolSpec, body func(context.Context, call, In) (any, error)) {
	meta := observe.ToolMeta{Namespace: spec.group, Name: spec.name, ReadOnly: spec.readOnly}

	exec := t.mw.Wrap(func(ctx context.Context, _ observe.ToolMeta, input any) (any, error) {
		inv := input.(invocation[In])
		return body(ctx, call{rc: inv.rc, app: t.app}, inv.in)
	})

	handler := func(ctx context.Context, req *mcp.CallToolRequest, in In) (*mcp.CallToolResult, any, error) {
		if err := t.app.Ready(); err != nil {
			return nil, nil, err
		}
		rc := auth.BuildRequestContext(t.slot(req))

		out, err := exec(ctx, meta, invocation[In]{rc: rc, in: in})
		text, err := render(out, err)
		if err != nil {
			return nil, nil, err
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: text}},
		}, nil, nil
	}

	mcp.AddTool(server, &mcp.Tool{
		Name:        spec.name,
		Description: spec.description,
		Annotations: spec.annotations(),
	}, handler)
	t.names = append(t.names, spec.name)
}

func (t *Toolset) slot(req *mcp.CallToolRequest) *auth.SessionSlot {
	if req != nil && req.Extra != nil {
		if s := auth.SlotFromTokenInfo(req.Extra.TokenInfo); s != nil {
			return s
		}
	}
	return t.fallback
}
