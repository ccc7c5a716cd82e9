package tools

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jonwraymond/openviking-mcp/viking"
)

type emptyInput struct{}

type observerInput struct {
	Component *string `json:"component,omitempty" jsonschema:"Component name (queue, vikingdb, vlm, transaction). If omitted, returns full system status."`
}

type healthResult struct {
	Healthy bool `json:"healthy"`
}

type statusResult struct {
	Initialized bool   `json:"initialized"`
	User        string `json:"user"`
	Role        string `json:"role"`
}

var observerComponents = map[string]bool{
	viking.ComponentQueue:       true,
	viking.ComponentVikingDB:    true,
	viking.ComponentVLM:         true,
	viking.ComponentTransaction: true,
}

func (t *Toolset) registerSystem(s *mcp.Server) {
	addTool(t, s, toolSpec{
		group:       GroupSystem,
		name:        "system_health",
		description: "Check if the OpenViking service is healthy.",
		readOnly:    true,
	}, func(ctx context.Context, c call, _ emptyInput) (any, error) {
		ok, err := c.svc().Debug().Healthy(ctx)
		if err != nil {
			return nil, err
		}
		return healthResult{Healthy: ok}, nil
	})

	addTool(t, s, toolSpec{
		group:       GroupSystem,
		name:        "system_status",
		description: "Get the current system status including initialization state and user info.",
		readOnly:    true,
	}, func(ctx context.Context, c call, _ emptyInput) (any, error) {
		return statusResult{
			Initialized: c.svc().Initialized(),
			User:        c.rc.User.String(),
			Role:        c.rc.Role.String(),
		}, nil
	})

	addTool(t, s, toolSpec{
		group:       GroupSystem,
		name:        "observer_status",
		description: "Get observer status for system components.",
		readOnly:    true,
	}, func(ctx context.Context, c call, in observerInput) (any, error) {
		component := viking.ComponentSystem
		if in.Component != nil {
			component = *in.Component
			if !observerComponents[component] {
				return nil, invalidArgument(fmt.Sprintf("Unknown component: %s. Valid: queue, vikingdb, vlm, transaction", component))
			}
		}
		return c.svc().Debug().Observer(ctx, component)
	})
}
