package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jonwraymond/openviking-mcp/auth"
	"github.com/jonwraymond/openviking-mcp/keys"
)

type createAccountInput struct {
	AccountID   string `json:"account_id" jsonschema:"Account ID to create"`
	AdminUserID string `json:"admin_user_id" jsonschema:"User ID of the first admin"`
}

type accountInput struct {
	AccountID string `json:"account_id" jsonschema:"Account ID"`
}

type registerUserInput struct {
	AccountID string  `json:"account_id" jsonschema:"Account ID"`
	UserID    string  `json:"user_id" jsonschema:"User ID to register"`
	Role      *string `json:"role,omitempty" jsonschema:"Role: admin or user (default user)"`
}

type userInput struct {
	AccountID string `json:"account_id" jsonschema:"Account ID"`
	UserID    string `json:"user_id" jsonschema:"User ID"`
}

type setRoleInput struct {
	AccountID string `json:"account_id" jsonschema:"Account ID"`
	UserID    string `json:"user_id" jsonschema:"User ID"`
	Role      string `json:"role" jsonschema:"New role: admin or user"`
}

type accountCreated struct {
	AccountID   string `json:"account_id"`
	AdminUserID string `json:"admin_user_id"`
	UserKey     string `json:"user_key"`
}

type accountDeleted struct {
	AccountID string `json:"account_id"`
	Deleted   bool   `json:"deleted"`
}

type userRegistered struct {
	AccountID string `json:"account_id"`
	UserID    string `json:"user_id"`
	UserKey   string `json:"user_key"`
}

type userRemoved struct {
	AccountID string `json:"account_id"`
	UserID    string `json:"user_id"`
	Deleted   bool   `json:"deleted"`
}

type roleSet struct {
	AccountID string `json:"account_id"`
	UserID    string `json:"user_id"`
	Role      string `json:"role"`
}

// keyManager runs the role guard, then refuses in dev mode.
func (c call) keyManager(guard *auth.AuthzError) (*keys.Manager, error) {
	if guard != nil {
		return nil, guard
	}
	km := c.app.KeyManager()
	if denied := auth.RequireKeyManager(c.rc, km != nil); denied != nil {
		return nil, denied
	}
	return km, nil
}

func (t *Toolset) registerAdmin(s *mcp.Server) {
	addTool(t, s, toolSpec{
		group:       GroupAdmin,
		name:        "admin_create_account",
		description: "Create a new account with its first admin user. Requires ROOT.",
	}, func(ctx context.Context, c call, in createAccountInput) (any, error) {
		km, err := c.keyManager(auth.RequireRoot(c.rc))
		if err != nil {
			return nil, err
		}
		key, err := km.CreateAccount(ctx, in.AccountID, in.AdminUserID)
		if err != nil {
			return nil, err
		}
		admin := auth.RequestContext{
			User: auth.NewUserIdentifier(in.AccountID, in.AdminUserID, ""),
			Role: auth.RoleAdmin,
		}
		if err := c.svc().InitializeAccountDirectories(ctx, admin); err != nil {
			return nil, err
		}
		return accountCreated{AccountID: in.AccountID, AdminUserID: in.AdminUserID, UserKey: key}, nil
	})

	addTool(t, s, toolSpec{
		group:       GroupAdmin,
		name:        "admin_list_accounts",
		description: "List all accounts. Requires ROOT.",
		readOnly:    true,
	}, func(ctx context.Context, c call, _ emptyInput) (any, error) {
		km, err := c.keyManager(auth.RequireRoot(c.rc))
		if err != nil {
			return nil, err
		}
		return km.ListAccounts(ctx)
	})

	addTool(t, s, toolSpec{
		group:       GroupAdmin,
		name:        "admin_delete_account",
		description: "Delete an account and all its users. Requires ROOT.",
		destructive: true,
	}, func(ctx context.Context, c call, in accountInput) (any, error) {
		km, err := c.keyManager(auth.RequireRoot(c.rc))
		if err != nil {
			return nil, err
		}
		if err := km.DeleteAccount(ctx, in.AccountID); err != nil {
			return nil, err
		}
		return accountDeleted{AccountID: in.AccountID, Deleted: true}, nil
	})

	addTool(t, s, toolSpec{
		group:       GroupAdmin,
		name:        "admin_register_user",
		description: "Register a user in an account. Requires ROOT or ADMIN of the account.",
	}, func(ctx context.Context, c call, in registerUserInput) (any, error) {
		km, err := c.keyManager(auth.RequireAdminOrRoot(c.rc, in.AccountID))
		if err != nil {
			return nil, err
		}
		role := orDefault(in.Role, string(auth.RoleUser))
		key, err := km.RegisterUser(ctx, in.AccountID, in.UserID, role)
		if err != nil {
			return nil, err
		}
		user := auth.RequestContext{
			User: auth.NewUserIdentifier(in.AccountID, in.UserID, ""),
			Role: auth.Role(role),
		}
		if err := c.svc().InitializeUserDirectories(ctx, user); err != nil {
			return nil, err
		}
		return userRegistered{AccountID: in.AccountID, UserID: in.UserID, UserKey: key}, nil
	})

	addTool(t, s, toolSpec{
		group:       GroupAdmin,
		name:        "admin_list_users",
		description: "List users in an account. Requires ROOT or ADMIN of the account.",
		readOnly:    true,
	}, func(ctx context.Context, c call, in accountInput) (any, error) {
		km, err := c.keyManager(auth.RequireAdminOrRoot(c.rc, in.AccountID))
		if err != nil {
			return nil, err
		}
		return km.ListUsers(ctx, in.AccountID)
	})

	addTool(t, s, toolSpec{
		group:       GroupAdmin,
		name:        "admin_remove_user",
		description: "Remove a user from an account. Requires ROOT or ADMIN of the account.",
		destructive: true,
	}, func(ctx context.Context, c call, in userInput) (any, error) {
		km, err := c.keyManager(auth.RequireAdminOrRoot(c.rc, in.AccountID))
		if err != nil {
			return nil, err
		}
		if err := km.RemoveUser(ctx, in.AccountID, in.UserID); err != nil {
			return nil, err
		}
		return userRemoved{AccountID: in.AccountID, UserID: in.UserID, Deleted: true}, nil
	})

	addTool(t, s, toolSpec{
		group:       GroupAdmin,
		name:        "admin_set_role",
		description: "Change a user's role. Requires ROOT.",
	}, func(ctx context.Context, c call, in setRoleInput) (any, error) {
		km, err := c.keyManager(auth.RequireRoot(c.rc))
		if err != nil {
			return nil, err
		}
		if err := km.SetRole(ctx, in.AccountID, in.UserID, in.Role); err != nil {
			return nil, err
		}
		return roleSet{AccountID: in.AccountID, UserID: in.UserID, Role: in.Role}, nil
	})
}
