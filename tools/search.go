package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jonwraymond/openviking-mcp/viking"
)

type findInput struct {
	Query          string   `json:"query" jsonschema:"Natural language query"`
	TargetURI      string   `json:"target_uri,omitempty" jsonschema:"Restrict search to this URI subtree"`
	Limit          *int     `json:"limit,omitempty" jsonschema:"Maximum number of results (default 10)"`
	ScoreThreshold *float64 `json:"score_threshold,omitempty" jsonschema:"Minimum relevance score (0.0-1.0)"`
}

type searchInput struct {
	Query          string   `json:"query" jsonschema:"Natural language query"`
	TargetURI      string   `json:"target_uri,omitempty" jsonschema:"Restrict search to this URI subtree"`
	SessionID      *string  `json:"session_id,omitempty" jsonschema:"Session ID for contextual search"`
	Limit          *int     `json:"limit,omitempty" jsonschema:"Maximum number of results (default 10)"`
	ScoreThreshold *float64 `json:"score_threshold,omitempty" jsonschema:"Minimum relevance score (0.0-1.0)"`
}

type grepInput struct {
	URI             string `json:"uri" jsonschema:"Viking URI to search within"`
	Pattern         string `json:"pattern" jsonschema:"Search pattern (regex supported)"`
	CaseInsensitive bool   `json:"case_insensitive,omitempty" jsonschema:"Ignore case when matching"`
}

type globInput struct {
	Pattern string  `json:"pattern" jsonschema:"Glob pattern (e.g. *.md, **/*.py)"`
	URI     *string `json:"uri,omitempty" jsonschema:"Base URI to search from (default viking://)"`
}

const defaultSearchLimit = 10

func (t *Toolset) registerSearch(s *mcp.Server) {
	addTool(t, s, toolSpec{
		group:       GroupSearch,
		name:        "search_find",
		description: "Semantic search without session context.",
		readOnly:    true,
	}, func(ctx context.Context, c call, in findInput) (any, error) {
		return c.svc().Search().Find(ctx, c.rc, viking.SearchQuery{
			Query:          in.Query,
			TargetURI:      in.TargetURI,
			Limit:          orDefault(in.Limit, defaultSearchLimit),
			ScoreThreshold: in.ScoreThreshold,
		})
	})

	addTool(t, s, toolSpec{
		group:       GroupSearch,
		name:        "search_search",
		description: "Semantic search with optional session context for better relevance.",
		readOnly:    true,
	}, func(ctx context.Context, c call, in searchInput) (any, error) {
		q := viking.SearchQuery{
			Query:          in.Query,
			TargetURI:      in.TargetURI,
			Limit:          orDefault(in.Limit, defaultSearchLimit),
			ScoreThreshold: in.ScoreThreshold,
		}
		if id := orDefault(in.SessionID, ""); id != "" {
			// The session must exist before it can give context.
			if _, err := c.svc().Sessions().Get(ctx, c.rc, id); err != nil {
				return nil, err
			}
			q.SessionID = id
		}
		return c.svc().Search().Search(ctx, c.rc, q)
	})

	addTool(t, s, toolSpec{
		group:       GroupSearch,
		name:        "search_grep",
		description: "Pattern-based content search (like grep).",
		readOnly:    true,
	}, func(ctx context.Context, c call, in grepInput) (any, error) {
		return c.svc().FS().Grep(ctx, c.rc, in.URI, in.Pattern, in.CaseInsensitive)
	})

	addTool(t, s, toolSpec{
		group:       GroupSearch,
		name:        "search_glob",
		description: "File pattern matching (like glob).",
		readOnly:    true,
	}, func(ctx context.Context, c call, in globInput) (any, error) {
		return c.svc().FS().Glob(ctx, c.rc, in.Pattern, orDefault(in.URI, "viking://"))
	})
}
