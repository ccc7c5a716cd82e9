package secret

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// Provider resolves secrets by reference string.
//
// Implementations must be safe for concurrent use and must not log secret values.
type Provider interface {
	Name() string
	Resolve(ctx context.Context, ref string) (string, error)
	Close() error
}

// EnvProvider resolves "secretref:env:NAME" from the process environment.
type EnvProvider struct{}

func (EnvProvider) Name() string { return "env" }

func (EnvProvider) Resolve(_ context.Context, ref string) (string, error) {
	v, ok := os.LookupEnv(ref)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrMissingEnv, ref)
	}
	return v, nil
}

func (EnvProvider) Close() error { return nil }

// FileProvider resolves "secretref:file:/path" to the trimmed file contents,
// the layout used by mounted container secrets.
type FileProvider struct {
	// Root, when set, is prepended to relative paths.
	Root string
}

func (FileProvider) Name() string { return "file" }

func (p FileProvider) Resolve(_ context.Context, ref string) (string, error) {
	path := ref
	if p.Root != "" && !strings.HasPrefix(path, "/") {
		path = p.Root + "/" + path
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("secret file %q: %w", ref, err)
	}
	return strings.TrimSpace(string(data)), nil
}

func (FileProvider) Close() error { return nil }
