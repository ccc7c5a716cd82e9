package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type exportInput struct {
	URI string `json:"uri" jsonschema:"Viking URI to export"`
	To  string `json:"to" jsonschema:"Local file path for the .ovpack output"`
}

type importInput struct {
	FilePath  string `json:"file_path" jsonschema:"Local path to the .ovpack file"`
	Parent    string `json:"parent" jsonschema:"Target parent Viking URI"`
	Force     bool   `json:"force,omitempty" jsonschema:"Overwrite existing resources"`
	Vectorize *bool  `json:"vectorize,omitempty" jsonschema:"Generate vector embeddings (default true)"`
}

type exportResult struct {
	File string `json:"file"`
}

func (t *Toolset) registerPack(s *mcp.Server) {
	addTool(t, s, toolSpec{
		group:       GroupPack,
		name:        "pack_export",
		description: "Export a Viking directory as a .ovpack file.",
	}, func(ctx context.Context, c call, in exportInput) (any, error) {
		file, err := c.svc().Pack().Export(ctx, c.rc, in.URI, in.To)
		if err != nil {
			return nil, err
		}
		return exportResult{File: file}, nil
	})

	addTool(t, s, toolSpec{
		group:       GroupPack,
		name:        "pack_import",
		description: "Import a .ovpack file into the Viking filesystem.",
	}, func(ctx context.Context, c call, in importInput) (any, error) {
		uri, err := c.svc().Pack().Import(ctx, c.rc, in.FilePath, in.Parent, in.Force, orDefault(in.Vectorize, true))
		if err != nil {
			return nil, err
		}
		return uriResult{URI: uri}, nil
	})
}
