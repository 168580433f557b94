package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
)

var ErrNoToken = errors.New("no bearer token available")

// TokenProvider hands out the current bearer token. It is asked on every
// request, so a provider backed by mutable storage sees logins and logouts.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

type StaticToken string

func (t StaticToken) Token(_ context.Context) (string, error) {
	if t == "" {
		return "", ErrNoToken
	}
	return string(t), nil
}

// FileToken reads the token from a file on each call.
type FileToken struct {
	Path string
}

func (f FileToken) Token(_ context.Context) (string, error) {
	raw, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrNoToken
	}
	if err != nil {
		return "", fmt.Errorf("read token file: %w", err)
	}
	token := strings.TrimSpace(string(raw))
	if token == "" {
		return "", ErrNoToken
	}
	return token, nil
}

// Clear removes the token file. Clearing an absent file is not an error.
func (f FileToken) Clear() error {
	if err := os.Remove(f.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove token file: %w", err)
	}
	return nil
}

// TokenFunc adapts a plain function.
type TokenFunc func(ctx context.Context) (string, error)

func (f TokenFunc) Token(ctx context.Context) (string, error) {
	return f(ctx)
}
