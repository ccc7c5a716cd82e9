package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/jonwraymond/openviking-mcp/auth"
	"github.com/jonwraymond/openviking-mcp/keys"
	"github.com/jonwraymond/openviking-mcp/observe"
	"github.com/jonwraymond/openviking-mcp/viking"
)

// State is a lifecycle state.
type State int32

const (
	StateUninitialized State = iota
	StateStarting
	StateReady
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "UNINITIALIZED"
	case StateStarting:
		return "STARTING"
	case StateReady:
		return "READY"
	case StateClosing:
		return "CLOSING"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// Config configures an App.
type Config struct {
	// RootKey enables authentication. Empty means dev mode: no key
	// manager, every caller is ROOT.
	RootKey string

	// KeyStorePath overrides the key database location.
	// Default: keys.PathIn(service.Workspace())
	KeyStorePath string

	Logger observe.Logger
}

// App is the shared application context.
type App struct {
	service viking.Service
	config  Config
	logger  observe.Logger

	state atomic.Int32

	// keys is written once while STARTING and only read afterwards.
	keys *keys.Manager

	closeOnce sync.Once
	closeErr  error
}

// New builds an UNINITIALIZED App around service.
func New(service viking.Service, config Config) (*App, error) {
	if service == nil {
		return nil, ErrNilService
	}
	if config.Logger == nil {
		config.Logger = observe.NopLogger()
	}
	config.RootKey = strings.TrimSpace(config.RootKey)
	return &App{service: service, config: config, logger: config.Logger}, nil
}

// Start initializes the service and, with a root key, opens the key
// manager. On failure everything already started is closed and the App ends
// CLOSED.
func (a *App) Start(ctx context.Context) error {
	if !a.state.CompareAndSwap(int32(StateUninitialized), int32(StateStarting)) {
		return ErrAlreadyStarted
	}

	if err := a.service.Initialize(ctx); err != nil {
		a.state.Store(int32(StateClosed))
		return fmt.Errorf("app: initialize service: %w", err)
	}
	a.logger.Info(ctx, "OpenVikingService initialized",
		observe.Field{Key: "workspace", Value: a.service.Workspace()},
	)

	if a.config.RootKey == "" {
		a.logger.Info(ctx, "Dev mode: no root_api_key, authentication disabled")
	} else {
		path := a.config.KeyStorePath
		if path == "" {
			path = keys.PathIn(a.service.Workspace())
		}
		m, err := keys.Open(ctx, keys.Config{Path: path, RootKey: a.config.RootKey, Logger: a.logger})
		if err != nil {
			closeErr := a.closeService(ctx)
			a.state.Store(int32(StateClosed))
			return errors.Join(fmt.Errorf("app: open key manager: %w", err), closeErr)
		}
		a.keys = m
		a.logger.Info(ctx, "APIKeyManager initialized", observe.Field{Key: "path", Value: path})
	}

	a.state.Store(int32(StateReady))
	return nil
}

// Close tears the App down. The service is closed exactly once however
// often Close is called; every call returns the same result.
func (a *App) Close(ctx context.Context) error {
	a.closeOnce.Do(func() {
		prev := State(a.state.Swap(int32(StateClosing)))
		if prev == StateUninitialized || prev == StateClosed {
			a.state.Store(int32(StateClosed))
			return
		}

		var errs []error
		if a.keys != nil {
			if err := a.keys.Close(); err != nil {
				errs = append(errs, fmt.Errorf("app: close key manager: %w", err))
			}
		}
		if err := a.closeService(ctx); err != nil {
			errs = append(errs, err)
		}
		a.closeErr = errors.Join(errs...)
		a.state.Store(int32(StateClosed))
	})
	return a.closeErr
}

func (a *App) closeService(ctx context.Context) error {
	if err := a.service.Close(ctx); err != nil {
		return fmt.Errorf("app: close service: %w", err)
	}
	a.logger.Info(ctx, "OpenVikingService closed")
	return nil
}

// State reports the current lifecycle state.
func (a *App) State() State {
	return State(a.state.Load())
}

// Ready returns ErrNotReady unless the App is READY.
func (a *App) Ready() error {
	if s := a.State(); s != StateReady {
		return fmt.Errorf("%w: %s", ErrNotReady, s)
	}
	return nil
}

// Service returns the shared knowledge-base service.
func (a *App) Service() viking.Service {
	return a.service
}

// KeyManager returns the key manager, or nil in dev mode.
func (a *App) KeyManager() *keys.Manager {
	return a.keys
}

// KeyStore returns the key manager as an auth.KeyStore, or a nil interface
// in dev mode.
func (a *App) KeyStore() auth.KeyStore {
	if a.keys == nil {
		return nil
	}
	return a.keys
}

// AuthEnabled reports whether a key manager exists.
func (a *App) AuthEnabled() bool {
	return a.keys != nil
}

// Run starts a, calls serve and closes a on every exit path. A serve error
// of context.Canceled counts as a clean shutdown.
func Run(ctx context.Context, a *App, serve func(context.Context, *App) error) (err error) {
	if err := a.Start(ctx); err != nil {
		return err
	}
	defer func() {
		// The serving context may already be cancelled; teardown gets its own.
		closeErr := a.Close(context.WithoutCancel(ctx))
		err = errors.Join(err, closeErr)
	}()

	if err := serve(ctx, a); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
