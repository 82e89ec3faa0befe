// Package credentials resolves the dashboard database password for the
// epadash CLI. Passwords are never written to the config file; they come
// from the environment, the system keyring, or an interactive prompt.
//
// Keyring storage:
//   - macOS: Keychain
//   - Windows: Credential Manager
//   - Linux: Secret Service (libsecret)
//
// For CI and scripted environments, set EPADASH_DB_PASSWORD.
package credentials

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	// keyringService is the service name used in the system keyring.
	keyringService = "epadash"

	// EnvPassword is the environment variable consulted first.
	EnvPassword = "EPADASH_DB_PASSWORD"
)

// Common errors.
var (
	// ErrNoPassword is returned when no provider could supply a password.
	ErrNoPassword = errors.New("no database password available")
	// ErrKeyringUnavailable indicates the system keyring is not accessible.
	ErrKeyringUnavailable = errors.New("system keyring unavailable")
)

// Provider is a single source of the database password.
type Provider interface {
	// Password returns the password for the given database user.
	// It returns ErrNoPassword when this source has nothing to offer,
	// letting the chain move on to the next provider.
	Password(user string) (string, error)

	// Description returns a human-readable description of the source.
	Description() string
}

// Chain tries each provider in order and returns the first password found.
type Chain struct {
	providers []Provider
}

// NewChain creates a chain over the given providers.
func NewChain(providers ...Provider) *Chain {
	return &Chain{providers: providers}
}

// DefaultChain returns the standard resolution order:
// environment variable, system keyring, then (when interactive) a
// terminal prompt.
func DefaultChain(interactive bool) *Chain {
	providers := []Provider{
		NewEnvProvider(EnvPassword),
		NewKeyringProvider(),
	}
	if interactive {
		providers = append(providers, NewPromptProvider())
	}
	return NewChain(providers...)
}

// Resolve returns the password for user and the description of the
// provider that supplied it.
func (c *Chain) Resolve(user string) (string, string, error) {
	for _, p := range c.providers {
		password, err := p.Password(user)
		if err == nil {
			return password, p.Description(), nil
		}
		if errors.Is(err, ErrNoPassword) {
			continue
		}
		return "", "", fmt.Errorf("%s: %w", p.Description(), err)
	}
	return "", "", ErrNoPassword
}

// SetPassword stores the password for user in the system keyring.
func SetPassword(user, password string) error {
	if err := keyring.Set(keyringService, user, password); err != nil {
		return fmt.Errorf("%w: %v", ErrKeyringUnavailable, err)
	}
	return nil
}

// DeletePassword removes the stored password for user from the keyring.
// Deleting a password that was never stored is not an error.
func DeletePassword(user string) error {
	err := keyring.Delete(keyringService, user)
	if err == nil || errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrKeyringUnavailable, err)
}

// HasStoredPassword reports whether the keyring holds a password for user.
func HasStoredPassword(user string) bool {
	_, err := keyring.Get(keyringService, user)
	return err == nil
}

// MaskPassword returns a masked version of the password for display.
func MaskPassword(password string) string {
	if len(password) <= 4 {
		return strings.Repeat("*", len(password))
	}
	return password[:2] + strings.Repeat("*", len(password)-2)
}
