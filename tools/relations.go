package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type linkInput struct {
	FromURI string `json:"from_uri" jsonschema:"Source URI"`
	ToURIs  any    `json:"to_uris" jsonschema:"Target URI or list of target URIs"`
	Reason  string `json:"reason,omitempty" jsonschema:"Reason for the relation"`
}

type unlinkInput struct {
	FromURI string `json:"from_uri" jsonschema:"Source URI"`
	URI     string `json:"uri" jsonschema:"Target URI to unlink"`
}

// targetURIs accepts a single URI or a list of URIs.
func targetURIs(v any) ([]string, error) {
	switch v := v.(type) {
	case string:
		return []string{v}, nil
	case []any:
		uris := make([]string, 0, len(v))
		for _, e := range v {
			s, ok := e.(string)
			if !ok {
				return nil, invalidArgument("to_uris must be a string or a list of strings")
			}
			uris = append(uris, s)
		}
		return uris, nil
	case []string:
		return v, nil
	default:
		return nil, invalidArgument("to_uris must be a string or a list of strings")
	}
}

func (t *Toolset) registerRelations(s *mcp.Server) {
	addTool(t, s, toolSpec{
		group:       GroupRelations,
		name:        "relation_list",
		description: "List relations of a resource.",
		readOnly:    true,
	}, func(ctx context.Context, c call, in uriInput) (any, error) {
		return c.svc().Relations().List(ctx, c.rc, in.URI)
	})

	addTool(t, s, toolSpec{
		group:       GroupRelations,
		name:        "relation_link",
		description: "Create relation links between resources.",
	}, func(ctx context.Context, c call, in linkInput) (any, error) {
		uris, err := targetURIs(in.ToURIs)
		if err != nil {
			return nil, err
		}
		if err := c.svc().Relations().Link(ctx, c.rc, in.FromURI, uris, in.Reason); err != nil {
			return nil, err
		}
		return fromToResult{From: in.FromURI, To: in.ToURIs}, nil
	})

	addTool(t, s, toolSpec{
		group:       GroupRelations,
		name:        "relation_unlink",
		description: "Remove a relation link between resources.",
	}, func(ctx context.Context, c call, in unlinkInput) (any, error) {
		if err := c.svc().Relations().Unlink(ctx, c.rc, in.FromURI, in.URI); err != nil {
			return nil, err
		}
		return fromToResult{From: in.FromURI, To: in.URI}, nil
	})
}
