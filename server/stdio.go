package server

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jonwraymond/openviking-mcp/app"
	"github.com/jonwraymond/openviking-mcp/auth"
	"github.com/jonwraymond/openviking-mcp/observe"
)

// StdioSlot resolves apiKey into the identity of the stdio session. In dev
// mode it returns nil, which builds the default ROOT context. With a key
// store, an empty or unresolvable key is an error: an empty slot would
// otherwise grant ROOT.
func StdioSlot(ctx context.Context, a *app.App, opts Options) (*auth.SessionSlot, error) {
	opts.defaults()
	store := keyStore(a, opts.Config)
	if store == nil {
		return nil, nil
	}
	if opts.Config.APIKey == "" {
		return nil, ErrStdioCredentials
	}
	res := auth.NewIdentityResolver(opts.Logger).Lookup(ctx, store, opts.Config.APIKey)
	if res.Outcome != auth.OutcomeResolved {
		return nil, fmt.Errorf("%w: %s", ErrStdioCredentials, res.Outcome)
	}
	opts.Logger.Info(ctx, "stdio identity resolved",
		observe.Field{Key: "account_id", Value: res.Identity.AccountID},
		observe.Field{Key: "user_id", Value: res.Identity.UserID},
		observe.Field{Key: "role", Value: string(res.Identity.Role)},
	)
	return auth.NewSessionSlot(res.Identity), nil
}

func serveStdio(ctx context.Context, a *app.App, opts Options) error {
	slot, err := StdioSlot(ctx, a, opts)
	if err != nil {
		return err
	}
	return newMCPServer(a, opts, slot).Run(ctx, &mcp.StdioTransport{})
}
