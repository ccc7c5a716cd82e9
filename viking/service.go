package viking

import (
	"context"

	"github.com/jonwraymond/openviking-mcp/auth"
)

// Service is the knowledge-base contract shared by every tool call.
// Implementations must be safe for concurrent use; this server adds no
// locking of its own around calls.
type Service interface {
	// Initialize prepares the service. It is called once at startup.
	Initialize(ctx context.Context) error
	// Close releases the service. It is called exactly once at shutdown.
	Close(ctx context.Context) error
	// Initialized reports whether Initialize completed.
	Initialized() bool
	// Workspace is the local data directory of the deployment.
	Workspace() string

	InitializeAccountDirectories(ctx context.Context, rc auth.RequestContext) error
	InitializeUserDirectories(ctx context.Context, rc auth.RequestContext) error
	InitializeAgentDirectories(ctx context.Context, rc auth.RequestContext) error

	FS() FS
	Search() Search
	Resources() Resources
	Sessions() Sessions
	Relations() Relations
	Pack() Pack
	Debug() Debug
}

// LsOptions configures FS.Ls.
type LsOptions struct {
	Simple        bool   `json:"simple"`
	Recursive     bool   `json:"recursive"`
	Output        string `json:"output"`
	AbsLimit      int    `json:"abs_limit"`
	ShowAllHidden bool   `json:"show_all_hidden"`
	NodeLimit     int    `json:"node_limit"`
}

// TreeOptions configures FS.Tree.
type TreeOptions struct {
	Output        string `json:"output"`
	AbsLimit      int    `json:"abs_limit"`
	ShowAllHidden bool   `json:"show_all_hidden"`
	NodeLimit     int    `json:"node_limit"`
}

// FS is the Viking filesystem. Results are decoded JSON values.
type FS interface {
	Ls(ctx context.Context, rc auth.RequestContext, uri string, opts LsOptions) (any, error)
	Tree(ctx context.Context, rc auth.RequestContext, uri string, opts TreeOptions) (any, error)
	Stat(ctx context.Context, rc auth.RequestContext, uri string) (any, error)
	Mkdir(ctx context.Context, rc auth.RequestContext, uri string) error
	Rm(ctx context.Context, rc auth.RequestContext, uri string, recursive bool) error
	Mv(ctx context.Context, rc auth.RequestContext, fromURI, toURI string) error

	// Read returns the L2 content from line offset; limit -1 reads to the end.
	Read(ctx context.Context, rc auth.RequestContext, uri string, offset, limit int) (any, error)
	// Abstract returns the L0 summary.
	Abstract(ctx context.Context, rc auth.RequestContext, uri string) (any, error)
	// Overview returns the L1 structured summary.
	Overview(ctx context.Context, rc auth.RequestContext, uri string) (any, error)

	Grep(ctx context.Context, rc auth.RequestContext, uri, pattern string, caseInsensitive bool) (any, error)
	Glob(ctx context.Context, rc auth.RequestContext, pattern, uri string) (any, error)
}

// SearchQuery configures Search.Find and Search.Search.
type SearchQuery struct {
	Query          string   `json:"query"`
	TargetURI      string   `json:"target_uri"`
	SessionID      string   `json:"session_id,omitempty"`
	Limit          int      `json:"limit"`
	ScoreThreshold *float64 `json:"score_threshold"`
}

// Search is semantic retrieval.
type Search interface {
	// Find searches without session context.
	Find(ctx context.Context, rc auth.RequestContext, q SearchQuery) (any, error)
	// Search uses q.SessionID, when set, as retrieval context.
	Search(ctx context.Context, rc auth.RequestContext, q SearchQuery) (any, error)
}

// AddResourceRequest configures Resources.AddResource.
type AddResourceRequest struct {
	Path        string   `json:"path"`
	Target      *string  `json:"target"`
	Reason      string   `json:"reason"`
	Instruction string   `json:"instruction"`
	Wait        bool     `json:"wait"`
	Timeout     *float64 `json:"timeout"`
}

// AddSkillRequest configures Resources.AddSkill.
type AddSkillRequest struct {
	Data    any      `json:"data"`
	Wait    bool     `json:"wait"`
	Timeout *float64 `json:"timeout"`
}

// Resources ingests content. Timeouts are seconds and are forwarded as given.
type Resources interface {
	AddResource(ctx context.Context, rc auth.RequestContext, req AddResourceRequest) (any, error)
	AddSkill(ctx context.Context, rc auth.RequestContext, req AddSkillRequest) (any, error)
	WaitProcessed(ctx context.Context, timeout *float64) (any, error)
}

// Session is the summary returned by Sessions.Create and Sessions.Get.
type Session struct {
	ID           string `json:"session_id"`
	MessageCount int    `json:"message_count"`
}

// Part is one structured message part, e.g. {"type":"text","text":"..."}.
type Part map[string]any

// TextPart builds a text part.
func TextPart(text string) Part {
	return Part{"type": "text", "text": text}
}

// Sessions manages conversation sessions and memory extraction.
type Sessions interface {
	Create(ctx context.Context, rc auth.RequestContext) (Session, error)
	List(ctx context.Context, rc auth.RequestContext) (any, error)
	Get(ctx context.Context, rc auth.RequestContext, sessionID string) (Session, error)
	Delete(ctx context.Context, rc auth.RequestContext, sessionID string) error
	Commit(ctx context.Context, rc auth.RequestContext, sessionID string) (any, error)
	Extract(ctx context.Context, rc auth.RequestContext, sessionID string) (any, error)
	// AddMessage appends a message and returns the new message count.
	AddMessage(ctx context.Context, rc auth.RequestContext, sessionID, role string, parts []Part) (int, error)
}

// Relations manages links between resources.
type Relations interface {
	List(ctx context.Context, rc auth.RequestContext, uri string) (any, error)
	Link(ctx context.Context, rc auth.RequestContext, fromURI string, toURIs []string, reason string) error
	Unlink(ctx context.Context, rc auth.RequestContext, fromURI, uri string) error
}

// Pack exports and imports .ovpack archives.
type Pack interface {
	// Export writes uri to the local path to and returns the written file.
	Export(ctx context.Context, rc auth.RequestContext, uri, to string) (string, error)
	// Import loads filePath under parent and returns the created URI.
	Import(ctx context.Context, rc auth.RequestContext, filePath, parent string, force, vectorize bool) (string, error)
}

// Observer components accepted by Debug.Observer. The empty component is
// the whole system.
const (
	ComponentSystem      = ""
	ComponentQueue       = "queue"
	ComponentVikingDB    = "vikingdb"
	ComponentVLM         = "vlm"
	ComponentTransaction = "transaction"
)

// Debug exposes service health and component observers.
type Debug interface {
	Healthy(ctx context.Context) (bool, error)
	Observer(ctx context.Context, component string) (any, error)
}
