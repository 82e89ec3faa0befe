package credentials

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/zalando/go-keyring"
	"golang.org/x/term"
)

// EnvProvider reads the password from an environment variable.
// This is the first stop in the chain, covering CI and scripted runs.
type EnvProvider struct {
	envVar string
}

// NewEnvProvider creates an EnvProvider reading the given variable.
func NewEnvProvider(envVar string) *EnvProvider {
	return &EnvProvider{envVar: envVar}
}

// Password returns the variable's value, or ErrNoPassword when unset.
func (p *EnvProvider) Password(_ string) (string, error) {
	if v := os.Getenv(p.envVar); v != "" {
		return v, nil
	}
	return "", ErrNoPassword
}

// Description returns a description of this provider.
func (p *EnvProvider) Description() string {
	return fmt.Sprintf("Environment variable (%s)", p.envVar)
}

// KeyringProvider reads the password from the system keyring
// (macOS Keychain, Windows Credential Manager, Linux Secret Service).
type KeyringProvider struct{}

// NewKeyringProvider creates a KeyringProvider.
func NewKeyringProvider() *KeyringProvider {
	return &KeyringProvider{}
}

// Password returns the stored password for user. A missing entry and an
// unavailable keyring both yield ErrNoPassword so the chain can continue.
func (p *KeyringProvider) Password(user string) (string, error) {
	password, err := keyring.Get(keyringService, user)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNoPassword
		}
		return "", fmt.Errorf("%w (%v)", ErrNoPassword, err)
	}
	return password, nil
}

// Description returns a description of this provider.
func (p *KeyringProvider) Description() string {
	switch runtime.GOOS {
	case "darwin":
		return "macOS Keychain"
	case "windows":
		return "Windows Credential Manager"
	default:
		return "System Keyring (Secret Service)"
	}
}

// PromptProvider asks for the password on the terminal without echo.
// It only participates when stdin is a terminal.
type PromptProvider struct {
	in  *os.File
	out *os.File
}

// NewPromptProvider creates a PromptProvider over stdin/stderr.
func NewPromptProvider() *PromptProvider {
	return &PromptProvider{in: os.Stdin, out: os.Stderr}
}

// Password prompts for the password. Non-interactive sessions get
// ErrNoPassword.
func (p *PromptProvider) Password(user string) (string, error) {
	fd := int(p.in.Fd())
	if !term.IsTerminal(fd) {
		return "", ErrNoPassword
	}

	fmt.Fprintf(p.out, "Password for database user %q: ", user)
	raw, err := term.ReadPassword(fd)
	fmt.Fprintln(p.out)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}

	password := strings.TrimSpace(string(raw))
	if password == "" {
		return "", ErrNoPassword
	}
	return password, nil
}

// Description returns a description of this provider.
func (p *PromptProvider) Description() string {
	return "Interactive prompt"
}
