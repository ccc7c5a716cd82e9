package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jonwraymond/openviking-mcp/viking"
)

type lsInput struct {
	URI           string  `json:"uri" jsonschema:"Viking URI (e.g. viking://resources/)"`
	Simple        bool    `json:"simple,omitempty" jsonschema:"Return only relative path list"`
	Recursive     bool    `json:"recursive,omitempty" jsonschema:"List all subdirectories recursively"`
	Output        *string `json:"output,omitempty" jsonschema:"Output format: original or agent (default agent)"`
	AbsLimit      *int    `json:"abs_limit,omitempty" jsonschema:"Abstract character limit, agent output only (default 256)"`
	ShowAllHidden bool    `json:"show_all_hidden,omitempty" jsonschema:"Show hidden files"`
	NodeLimit     *int    `json:"node_limit,omitempty" jsonschema:"Maximum nodes to list (default 1000)"`
}

type treeInput struct {
	URI           string  `json:"uri" jsonschema:"Viking URI"`
	Output        *string `json:"output,omitempty" jsonschema:"Output format: original or agent (default agent)"`
	AbsLimit      *int    `json:"abs_limit,omitempty" jsonschema:"Abstract character limit, agent output only (default 128)"`
	ShowAllHidden bool    `json:"show_all_hidden,omitempty" jsonschema:"Show hidden files"`
	NodeLimit     *int    `json:"node_limit,omitempty" jsonschema:"Maximum nodes to list (default 1000)"`
}

type uriInput struct {
	URI string `json:"uri" jsonschema:"Viking URI"`
}

type rmInput struct {
	URI       string `json:"uri" jsonschema:"Viking URI to remove"`
	Recursive bool   `json:"recursive,omitempty" jsonschema:"Remove directory and all contents recursively"`
}

type mvInput struct {
	FromURI string `json:"from_uri" jsonschema:"Source Viking URI"`
	ToURI   string `json:"to_uri" jsonschema:"Destination Viking URI"`
}

type uriResult struct {
	URI string `json:"uri"`
}

type fromToResult struct {
	From string `json:"from"`
	To   any    `json:"to"`
}

func orDefault[T any](p *T, def T) T {
	if p == nil {
		return def
	}
	return *p
}

func (t *Toolset) registerFS(s *mcp.Server) {
	addTool(t, s, toolSpec{
		group:       GroupFS,
		name:        "fs_ls",
		description: "List directory contents in the Viking filesystem.",
		readOnly:    true,
	}, func(ctx context.Context, c call, in lsInput) (any, error) {
		return c.svc().FS().Ls(ctx, c.rc, in.URI, viking.LsOptions{
			Simple:        in.Simple,
			Recursive:     in.Recursive,
			Output:        orDefault(in.Output, "agent"),
			AbsLimit:      orDefault(in.AbsLimit, 256),
			ShowAllHidden: in.ShowAllHidden,
			NodeLimit:     orDefault(in.NodeLimit, 1000),
		})
	})

	addTool(t, s, toolSpec{
		group:       GroupFS,
		name:        "fs_tree",
		description: "Get directory tree structure.",
		readOnly:    true,
	}, func(ctx context.Context, c call, in treeInput) (any, error) {
		return c.svc().FS().Tree(ctx, c.rc, in.URI, viking.TreeOptions{
			Output:        orDefault(in.Output, "agent"),
			AbsLimit:      orDefault(in.AbsLimit, 128),
			ShowAllHidden: in.ShowAllHidden,
			NodeLimit:     orDefault(in.NodeLimit, 1000),
		})
	})

	addTool(t, s, toolSpec{
		group:       GroupFS,
		name:        "fs_stat",
		description: "Get file or directory metadata (size, type, timestamps, etc.).",
		readOnly:    true,
	}, func(ctx context.Context, c call, in uriInput) (any, error) {
		return c.svc().FS().Stat(ctx, c.rc, in.URI)
	})

	addTool(t, s, toolSpec{
		group:       GroupFS,
		name:        "fs_mkdir",
		description: "Create a directory in the Viking filesystem.",
	}, func(ctx context.Context, c call, in uriInput) (any, error) {
		if err := c.svc().FS().Mkdir(ctx, c.rc, in.URI); err != nil {
			return nil, err
		}
		return uriResult{URI: in.URI}, nil
	})

	addTool(t, s, toolSpec{
		group:       GroupFS,
		name:        "fs_rm",
		description: "Remove a file or directory from the Viking filesystem.",
		destructive: true,
	}, func(ctx context.Context, c call, in rmInput) (any, error) {
		if err := c.svc().FS().Rm(ctx, c.rc, in.URI, in.Recursive); err != nil {
			return nil, err
		}
		return uriResult{URI: in.URI}, nil
	})

	addTool(t, s, toolSpec{
		group:       GroupFS,
		name:        "fs_mv",
		description: "Move or rename a file/directory in the Viking filesystem.",
	}, func(ctx context.Context, c call, in mvInput) (any, error) {
		if err := c.svc().FS().Mv(ctx, c.rc, in.FromURI, in.ToURI); err != nil {
			return nil, err
		}
		return fromToResult{From: in.FromURI, To: in.ToURI}, nil
	})
}
