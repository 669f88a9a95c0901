// Package auth supplies bearer tokens to the API client and drives sign-in.
package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNoToken is returned when no token is configured.
var ErrNoToken = errors.New("not signed in")

// TokenEnv is the environment variable that overrides the stored token.
const TokenEnv = "ALLYSON_TOKEN"

// Static is a fixed token.
type Static string

// Token implements client.TokenSource.
func (s Static) Token(context.Context) (string, error) {
	if s == "" {
		return "", ErrNoToken
	}
	return string(s), nil
}

// FileSource resolves the token on every call using precedence: env var > file.
// Re-reading lets a login in another terminal take effect without a restart.
type FileSource struct {
	Path string
}

// Token implements client.TokenSource.
func (f FileSource) Token(context.Context) (string, error) {
	if tok := os.Getenv(TokenEnv); tok != "" {
		return tok, nil
	}
	data, err := os.ReadFile(f.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNoToken
		}
		return "", fmt.Errorf("read token: %w", err)
	}
	tok := strings.TrimSpace(string(data))
	if tok == "" {
		return "", ErrNoToken
	}
	return tok, nil
}

// SaveToken writes tok to path with owner-only permissions.
func SaveToken(path, tok string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create token dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(tok), 0600); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

// RemoveToken deletes the token file. It reports false when there was nothing to remove.
func RemoveToken(path string) (bool, error) {
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("remove token: %w", err)
	}
	return true, nil
}
