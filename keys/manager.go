package keys

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/jonwraymond/openviking-mcp/auth"
	"github.com/jonwraymond/openviking-mcp/observe"
	"github.com/jonwraymond/openviking-mcp/viking"
)

// FileName is the database file created inside the workspace.
const FileName = "api_keys.db"

// Config configures a Manager.
type Config struct {
	// Path is the SQLite database file. Use PathIn to derive it from a
	// workspace.
	Path string

	// RootKey is the configured root credential.
	RootKey string

	Logger observe.Logger
}

// PathIn returns the database path inside workspace.
func PathIn(workspace string) string {
	return filepath.Join(workspace, FileName)
}

// Account is one tenant.
type Account struct {
	AccountID string    `json:"account_id"`
	Users     int       `json:"users"`
	CreatedAt time.Time `json:"created_at"`
}

// User is one registered user. The key itself is never listed.
type User struct {
	AccountID string    `json:"account_id"`
	UserID    string    `json:"user_id"`
	Role      auth.Role `json:"role"`
	KeyID     string    `json:"key_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Manager is the SQLite-backed key manager. It is safe for concurrent use.
type Manager struct {
	db      *sql.DB
	rootKey string
	logger  observe.Logger
	closed  atomic.Bool

	mu        sync.RWMutex
	listeners []func()
}

// Open creates the database file if needed, applies the schema and returns
// a ready Manager.
func Open(ctx context.Context, config Config) (*Manager, error) {
	if strings.TrimSpace(config.RootKey) == "" {
		return nil, ErrRootKeyRequired
	}
	if strings.TrimSpace(config.Path) == "" {
		return nil, ErrPathRequired
	}
	if config.Logger == nil {
		config.Logger = observe.NopLogger()
	}

	path := filepath.Clean(config.Path)
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("keys: create directory: %w", err)
	}

	dsn := "file:" + path + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("keys: open sqlite db: %w", err)
	}
	// A single connection serializes writers and keeps the pragmas in effect.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("keys: ping sqlite db: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("keys: apply schema: %w", err)
	}

	return &Manager{
		db:      db,
		rootKey: strings.TrimSpace(config.RootKey),
		logger:  config.Logger,
	}, nil
}

// Close releases the database. It is safe to call more than once.
func (m *Manager) Close() error {
	if !m.closed.CompareAndSwap(false, true) {
		return nil
	}
	return m.db.Close()
}

// OnChange registers fn to run after every successful mutation.
func (m *Manager) OnChange(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

func (m *Manager) notify() {
	m.mu.RLock()
	listeners := append([]func(){}, m.listeners...)
	m.mu.RUnlock()
	for _, fn := range listeners {
		fn()
	}
}

// Resolve implements auth.KeyStore. The root key yields a ROOT identity;
// a registered user key yields that user's identity; anything else yields
// nil.
func (m *Manager) Resolve(ctx context.Context, token string) (*auth.ResolvedIdentity, error) {
	if m.closed.Load() {
		return nil, ErrClosed
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil
	}
	if auth.ConstantTimeCompare(token, m.rootKey) {
		return &auth.ResolvedIdentity{Role: auth.RoleRoot, Method: auth.AuthMethodRootKey}, nil
	}

	var accountID, userID, role string
	err := m.db.QueryRowContext(ctx,
		`SELECT account_id, user_id, role FROM users WHERE key_hash = ?`,
		auth.HashAPIKey(token),
	).Scan(&accountID, &userID, &role)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("keys: resolve: %w", err)
	}

	r, err := auth.ParseRole(role)
	if err != nil {
		return nil, err
	}
	return &auth.ResolvedIdentity{
		AccountID: accountID,
		UserID:    userID,
		Role:      r,
		Method:    auth.AuthMethodAPIKey,
	}, nil
}

// CreateAccount creates accountID with adminUserID as its first admin and
// returns the admin's key.
func (m *Manager) CreateAccount(ctx context.Context, accountID, adminUserID string) (string, error) {
	if err := requireID("account_id", accountID); err != nil {
		return "", err
	}
	if err := requireID("admin_user_id", adminUserID); err != nil {
		return "", err
	}

	var key string
	err := m.tx(ctx, func(tx *sql.Tx) error {
		exists, err := rowExists(ctx, tx, `SELECT 1 FROM accounts WHERE account_id = ?`, accountID)
		if err != nil {
			return err
		}
		if exists {
			return viking.Errorf(viking.CodeAlreadyExists, "Account already exists: %s", accountID)
		}

		now := time.Now().UTC().UnixMilli()
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO accounts (account_id, created_at) VALUES (?, ?)`, accountID, now,
		); err != nil {
			return err
		}
		key, err = insertUser(ctx, tx, accountID, adminUserID, auth.RoleAdmin, now)
		return err
	})
	if err != nil {
		return "", err
	}

	m.logger.Info(ctx, "account created",
		observe.Field{Key: "account_id", Value: accountID},
		observe.Field{Key: "admin_user_id", Value: adminUserID},
	)
	m.notify()
	return key, nil
}

// ListAccounts returns every account ordered by id.
func (m *Manager) ListAccounts(ctx context.Context) ([]Account, error) {
	if m.closed.Load() {
		return nil, ErrClosed
	}
	rows, err := m.db.QueryContext(ctx, `
		SELECT a.account_id, a.created_at, COUNT(u.user_id)
		FROM accounts a LEFT JOIN users u ON u.account_id = a.account_id
		GROUP BY a.account_id, a.created_at
		ORDER BY a.account_id`)
	if err != nil {
		return nil, fmt.Errorf("keys: list accounts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	accounts := []Account{}
	for rows.Next() {
		var a Account
		var created int64
		if err := rows.Scan(&a.AccountID, &created, &a.Users); err != nil {
			return nil, fmt.Errorf("keys: list accounts: %w", err)
		}
		a.CreatedAt = time.UnixMilli(created).UTC()
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// DeleteAccount removes accountID and all of its users.
func (m *Manager) DeleteAccount(ctx context.Context, accountID string) error {
	err := m.tx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM accounts WHERE account_id = ?`, accountID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return viking.Errorf(viking.CodeNotFound, "Account not found: %s", accountID)
		}
		return nil
	})
	if err != nil {
		return err
	}
	m.logger.Info(ctx, "account deleted", observe.Field{Key: "account_id", Value: accountID})
	m.notify()
	return nil
}

// RegisterUser adds userID to accountID with role and returns the new key.
func (m *Manager) RegisterUser(ctx context.Context, accountID, userID, role string) (string, error) {
	r, err := accountRole(role)
	if err != nil {
		return "", err
	}
	if err := requireID("user_id", userID); err != nil {
		return "", err
	}

	var key string
	err = m.tx(ctx, func(tx *sql.Tx) error {
		if err := requireAccount(ctx, tx, accountID); err != nil {
			return err
		}
		exists, err := rowExists(ctx, tx,
			`SELECT 1 FROM users WHERE account_id = ? AND user_id = ?`, accountID, userID)
		if err != nil {
			return err
		}
		if exists {
			return viking.Errorf(viking.CodeAlreadyExists, "User already exists: %s/%s", accountID, userID)
		}
		key, err = insertUser(ctx, tx, accountID, userID, r, time.Now().UTC().UnixMilli())
		return err
	})
	if err != nil {
		return "", err
	}

	m.logger.Info(ctx, "user registered",
		observe.Field{Key: "account_id", Value: accountID},
		observe.Field{Key: "user_id", Value: userID},
		observe.Field{Key: "role", Value: string(r)},
	)
	m.notify()
	return key, nil
}

// ListUsers returns the users of accountID ordered by id.
func (m *Manager) ListUsers(ctx context.Context, accountID string) ([]User, error) {
	var users []User
	err := m.tx(ctx, func(tx *sql.Tx) error {
		if err := requireAccount(ctx, tx, accountID); err != nil {
			return err
		}
		rows, err := tx.QueryContext(ctx, `
			SELECT user_id, role, key_id, created_at, updated_at
			FROM users WHERE account_id = ? ORDER BY user_id`, accountID)
		if err != nil {
			return err
		}
		defer func() { _ = rows.Close() }()

		users = []User{}
		for rows.Next() {
			u := User{AccountID: accountID}
			var role string
			var created, updated int64
			if err := rows.Scan(&u.UserID, &role, &u.KeyID, &created, &updated); err != nil {
				return err
			}
			u.Role = auth.Role(role)
			u.CreatedAt = time.UnixMilli(created).UTC()
			u.UpdatedAt = time.UnixMilli(updated).UTC()
			users = append(users, u)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return users, nil
}

// RemoveUser deletes userID from accountID, revoking its key.
func (m *Manager) RemoveUser(ctx context.Context, accountID, userID string) error {
	err := m.tx(ctx, func(tx *sql.Tx) error {
		if err := requireAccount(ctx, tx, accountID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx,
			`DELETE FROM users WHERE account_id = ? AND user_id = ?`, accountID, userID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return viking.Errorf(viking.CodeNotFound, "User not found: %s/%s", accountID, userID)
		}
		return nil
	})
	if err != nil {
		return err
	}
	m.logger.Info(ctx, "user removed",
		observe.Field{Key: "account_id", Value: accountID},
		observe.Field{Key: "user_id", Value: userID},
	)
	m.notify()
	return nil
}

// SetRole changes the role of userID in accountID.
func (m *Manager) SetRole(ctx context.Context, accountID, userID, role string) error {
	r, err := accountRole(role)
	if err != nil {
		return err
	}
	err = m.tx(ctx, func(tx *sql.Tx) error {
		if err := requireAccount(ctx, tx, accountID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx,
			`UPDATE users SET role = ?, updated_at = ? WHERE account_id = ? AND user_id = ?`,
			string(r), time.Now().UTC().UnixMilli(), accountID, userID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return viking.Errorf(viking.CodeNotFound, "User not found: %s/%s", accountID, userID)
		}
		return nil
	})
	if err != nil {
		return err
	}
	m.logger.Info(ctx, "role updated",
		observe.Field{Key: "account_id", Value: accountID},
		observe.Field{Key: "user_id", Value: userID},
		observe.Field{Key: "role", Value: string(r)},
	)
	m.notify()
	return nil
}

// tx runs fn in a transaction. *viking.Error results pass through
// unchanged; other failures are wrapped.
func (m *Manager) tx(ctx context.Context, fn func(*sql.Tx) error) error {
	if m.closed.Load() {
		return ErrClosed
	}
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("keys: begin: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		if ve, ok := viking.AsError(err); ok {
			return ve
		}
		return fmt.Errorf("keys: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("keys: commit: %w", err)
	}
	return nil
}

func insertUser(ctx context.Context, tx *sql.Tx, accountID, userID string, role auth.Role, now int64) (string, error) {
	key, err := auth.GenerateAPIKey()
	if err != nil {
		return "", fmt.Errorf("generate key: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO users (account_id, user_id, role, key_id, key_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		accountID, userID, string(role), uuid.NewString(), auth.HashAPIKey(key), now, now)
	if err != nil {
		return "", err
	}
	return key, nil
}

func rowExists(ctx context.Context, tx *sql.Tx, query string, args ...any) (bool, error) {
	var one int
	err := tx.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

func requireAccount(ctx context.Context, tx *sql.Tx, accountID string) error {
	exists, err := rowExists(ctx, tx, `SELECT 1 FROM accounts WHERE account_id = ?`, accountID)
	if err != nil {
		return err
	}
	if !exists {
		return viking.Errorf(viking.CodeNotFound, "Account not found: %s", accountID)
	}
	return nil
}

func requireID(field, v string) error {
	if strings.TrimSpace(v) == "" {
		return viking.Errorf(viking.CodeInvalidArgument, "%s must not be empty", field)
	}
	return nil
}

// accountRole accepts exactly "admin" or "user". Other spellings are
// rejected rather than normalized.
func accountRole(role string) (auth.Role, error) {
	switch r := auth.Role(role); r {
	case auth.RoleAdmin, auth.RoleUser:
		return r, nil
	default:
		return "", viking.Errorf(viking.CodeInvalidArgument, "Invalid role: %s (valid: admin, user)", role)
	}
}

var _ auth.KeyStore = (*Manager)(nil)
