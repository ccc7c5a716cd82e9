package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jonwraymond/openviking-mcp/viking"
)

type sessionIDInput struct {
	SessionID string `json:"session_id" jsonschema:"Session ID"`
}

type addMessageInput struct {
	SessionID string           `json:"session_id" jsonschema:"Session ID"`
	Role      string           `json:"role" jsonschema:"Message role (user or assistant)"`
	Content   *string          `json:"content,omitempty" jsonschema:"Simple text content"`
	Parts     []map[string]any `json:"parts,omitempty" jsonschema:"Structured message parts, e.g. {type: text, text: ...}"`
}

type sessionCreated struct {
	SessionID string `json:"session_id"`
	User      string `json:"user"`
}

type sessionInfo struct {
	SessionID    string `json:"session_id"`
	User         string `json:"user"`
	MessageCount int    `json:"message_count"`
}

type sessionDeleted struct {
	SessionID string `json:"session_id"`
	Deleted   bool   `json:"deleted"`
}

type messageAdded struct {
	SessionID    string `json:"session_id"`
	MessageCount int    `json:"message_count"`
}

func (t *Toolset) registerSessions(s *mcp.Server) {
	addTool(t, s, toolSpec{
		group:       GroupSessions,
		name:        "session_create",
		description: "Create a new conversation session.",
	}, func(ctx context.Context, c call, _ emptyInput) (any, error) {
		svc := c.svc()
		if err := svc.InitializeUserDirectories(ctx, c.rc); err != nil {
			return nil, err
		}
		if err := svc.InitializeAgentDirectories(ctx, c.rc); err != nil {
			return nil, err
		}
		sess, err := svc.Sessions().Create(ctx, c.rc)
		if err != nil {
			return nil, err
		}
		return sessionCreated{SessionID: sess.ID, User: c.rc.User.String()}, nil
	})

	addTool(t, s, toolSpec{
		group:       GroupSessions,
		name:        "session_list",
		description: "List all sessions for the current user.",
		readOnly:    true,
	}, func(ctx context.Context, c call, _ emptyInput) (any, error) {
		return c.svc().Sessions().List(ctx, c.rc)
	})

	addTool(t, s, toolSpec{
		group:       GroupSessions,
		name:        "session_get",
		description: "Get session details.",
		readOnly:    true,
	}, func(ctx context.Context, c call, in sessionIDInput) (any, error) {
		sess, err := c.svc().Sessions().Get(ctx, c.rc, in.SessionID)
		if err != nil {
			return nil, err
		}
		return sessionInfo{
			SessionID:    sess.ID,
			User:         c.rc.User.String(),
			MessageCount: sess.MessageCount,
		}, nil
	})

	addTool(t, s, toolSpec{
		group:       GroupSessions,
		name:        "session_delete",
		description: "Delete a session.",
		destructive: true,
	}, func(ctx context.Context, c call, in sessionIDInput) (any, error) {
		if err := c.svc().Sessions().Delete(ctx, c.rc, in.SessionID); err != nil {
			return nil, err
		}
		return sessionDeleted{SessionID: in.SessionID, Deleted: true}, nil
	})

	addTool(t, s, toolSpec{
		group:       GroupSessions,
		name:        "session_commit",
		description: "Commit a session: archive messages and extract long-term memories.",
	}, func(ctx context.Context, c call, in sessionIDInput) (any, error) {
		return c.svc().Sessions().Commit(ctx, c.rc, in.SessionID)
	})

	addTool(t, s, toolSpec{
		group:       GroupSessions,
		name:        "session_extract",
		description: "Extract memories from a session without committing.",
	}, func(ctx context.Context, c call, in sessionIDInput) (any, error) {
		return c.svc().Sessions().Extract(ctx, c.rc, in.SessionID)
	})

	addTool(t, s, toolSpec{
		group:       GroupSessions,
		name:        "session_add_message",
		description: "Add a message to a session.",
	}, func(ctx context.Context, c call, in addMessageInput) (any, error) {
		sessions := c.svc().Sessions()
		if _, err := sessions.Get(ctx, c.rc, in.SessionID); err != nil {
			return nil, err
		}

		var parts []viking.Part
		switch {
		case in.Content != nil:
			parts = []viking.Part{viking.TextPart(*in.Content)}
		case in.Parts != nil:
			parts = make([]viking.Part, len(in.Parts))
			for i, p := range in.Parts {
				parts[i] = viking.Part(p)
			}
		default:
			return nil, invalidArgument("Either content or parts must be provided")
		}

		n, err := sessions.AddMessage(ctx, c.rc, in.SessionID, in.Role, parts)
		if err != nil {
			return nil, err
		}
		return messageAdded{SessionID: in.SessionID, MessageCount: n}, nil
	})
}
