// Package auth supplies bearer tokens for the telemetry query services.
//
// Token acquisition itself happens outside telequery (for example with
// `az account get-access-token`); this package only stores and looks up
// the resulting tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	// ServiceName is the keyring service tokens are stored under.
	ServiceName = "telequery"
	// EnvVarName is the environment variable consulted before the keyring.
	EnvVarName = "TELEQUERY_TOKEN"
)

// ErrNoToken is returned when no provider has a token.
var ErrNoToken = errors.New("no access token configured")

// TokenProvider returns a bearer token for outgoing requests.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken always returns the same token.
type StaticToken string

func (t StaticToken) Token(context.Context) (string, error) {
	if t == "" {
		return "", ErrNoToken
	}
	return string(t), nil
}

// EnvToken reads the token from an environment variable.
type EnvToken struct {
	Name string
}

func (e EnvToken) Token(context.Context) (string, error) {
	name := e.Name
	if name == "" {
		name = EnvVarName
	}
	if tok := strings.TrimSpace(os.Getenv(name)); tok != "" {
		return tok, nil
	}
	return "", ErrNoToken
}

// KeyringToken reads the token stored for a profile in the OS keyring.
type KeyringToken struct {
	Profile string
}

func (k KeyringToken) Token(context.Context) (string, error) {
	tok, err := keyring.Get(ServiceName, k.Profile)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrNoToken
	}
	if err != nil {
		return "", fmt.Errorf("read keyring: %w", err)
	}
	return tok, nil
}

// Chain tries each provider in order and returns the first token found.
type Chain []TokenProvider

func (c Chain) Token(ctx context.Context) (string, error) {
	for _, p := range c {
		tok, err := p.Token(ctx)
		if err == nil {
			return tok, nil
		}
		if !errors.Is(err, ErrNoToken) {
			return "", err
		}
	}
	return "", ErrNoToken
}

// ForProfile returns the default lookup order for a profile:
// the environment first, then the keyring.
func ForProfile(profile string) TokenProvider {
	return Chain{EnvToken{}, KeyringToken{Profile: profile}}
}

// StoreToken saves a token for a profile in the OS keyring.
func StoreToken(profile, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("token is empty")
	}
	if err := keyring.Set(ServiceName, profile, token); err != nil {
		return fmt.Errorf("write keyring: %w", err)
	}
	return nil
}

// DeleteToken removes the stored token for a profile. Removing a missing
// token is not an error.
func DeleteToken(profile string) error {
	err := keyring.Delete(ServiceName, profile)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("delete keyring entry: %w", err)
	}
	return nil
}
