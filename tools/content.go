package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type readInput struct {
	URI    string `json:"uri" jsonschema:"Viking URI of the resource"`
	Offset int    `json:"offset,omitempty" jsonschema:"Starting line number (0-indexed)"`
	Limit  *int   `json:"limit,omitempty" jsonschema:"Number of lines to read (-1 means read to end)"`
}

// textOrJSON returns string results verbatim.
func textOrJSON(v any, err error) (any, error) {
	if err != nil {
		return nil, err
	}
	if s, ok := v.(string); ok {
		return rawText(s), nil
	}
	return v, nil
}

func (t *Toolset) registerContent(s *mcp.Server) {
	addTool(t, s, toolSpec{
		group:       GroupContent,
		name:        "content_read",
		description: "Read full content (L2) of a resource.",
		readOnly:    true,
	}, func(ctx context.Context, c call, in readInput) (any, error) {
		return textOrJSON(c.svc().FS().Read(ctx, c.rc, in.URI, in.Offset, orDefault(in.Limit, -1)))
	})

	addTool(t, s, toolSpec{
		group:       GroupContent,
		name:        "content_abstract",
		description: "Read L0 abstract of a resource (short summary).",
		readOnly:    true,
	}, func(ctx context.Context, c call, in uriInput) (any, error) {
		return textOrJSON(c.svc().FS().Abstract(ctx, c.rc, in.URI))
	})

	addTool(t, s, toolSpec{
		group:       GroupContent,
		name:        "content_overview",
		description: "Read L1 overview of a resource (structured summary).",
		readOnly:    true,
	}, func(ctx context.Context, c call, in uriInput) (any, error) {
		return textOrJSON(c.svc().FS().Overview(ctx, c.rc, in.URI))
	})
}
