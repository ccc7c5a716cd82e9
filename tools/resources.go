package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jonwraymond/openviking-mcp/viking"
)

type resourceAddInput struct {
	Path        string   `json:"path" jsonschema:"Local file path or URL to add"`
	Target      *string  `json:"target,omitempty" jsonschema:"Target Viking URI (e.g. viking://resources/docs/)"`
	Reason      string   `json:"reason,omitempty" jsonschema:"Why this resource is being added"`
	Instruction string   `json:"instruction,omitempty" jsonschema:"Processing instruction for semantic extraction"`
	Wait        bool     `json:"wait,omitempty" jsonschema:"Wait for semantic processing to complete"`
	Timeout     *float64 `json:"timeout,omitempty" jsonschema:"Timeout in seconds when waiting"`
}

type skillAddInput struct {
	Data    any      `json:"data" jsonschema:"Skill data: a directory path, SKILL.md content, or a skill object"`
	Wait    bool     `json:"wait,omitempty" jsonschema:"Wait for processing to complete"`
	Timeout *float64 `json:"timeout,omitempty" jsonschema:"Timeout in seconds when waiting"`
}

type waitInput struct {
	Timeout *float64 `json:"timeout,omitempty" jsonschema:"Timeout in seconds"`
}

func (t *Toolset) registerResources(s *mcp.Server) {
	addTool(t, s, toolSpec{
		group:       GroupResources,
		name:        "resource_add",
		description: "Add a resource (file, URL, or directory) to OpenViking.",
	}, func(ctx context.Context, c call, in resourceAddInput) (any, error) {
		return c.svc().Resources().AddResource(ctx, c.rc, viking.AddResourceRequest{
			Path:        in.Path,
			Target:      in.Target,
			Reason:      in.Reason,
			Instruction: in.Instruction,
			Wait:        in.Wait,
			Timeout:     in.Timeout,
		})
	})

	addTool(t, s, toolSpec{
		group:       GroupResources,
		name:        "skill_add",
		description: "Add a skill to OpenViking.",
	}, func(ctx context.Context, c call, in skillAddInput) (any, error) {
		return c.svc().Resources().AddSkill(ctx, c.rc, viking.AddSkillRequest{
			Data:    in.Data,
			Wait:    in.Wait,
			Timeout: in.Timeout,
		})
	})

	addTool(t, s, toolSpec{
		group:       GroupResources,
		name:        "wait_processed",
		description: "Wait for all queued resource processing to complete.",
	}, func(ctx context.Context, c call, in waitInput) (any, error) {
		return c.svc().Resources().WaitProcessed(ctx, in.Timeout)
	})
}
