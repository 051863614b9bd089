package client

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Credential selects the refresh flow. Exactly one concrete type applies at
// a time: standard principals refresh through the cookie jar, guardians
// through a stored bearer token.
type Credential interface {
	credential()
}

// StandardCredential marks the cookie-backed refresh flow.
type StandardCredential struct{}

func (StandardCredential) credential() {}

// GuardianCredential carries the guardian's stored refresh token.
type GuardianCredential struct {
	Token string
}

func (GuardianCredential) credential() {}

type vaultData struct {
	GuardianToken string `json:"guardian_token,omitempty"`
	Theme         string `json:"theme,omitempty"`
}

// Vault is a small file-backed store for the guardian refresh token and UI
// preferences. Standard sessions keep nothing here; their refresh
// credential lives in the HTTP cookie jar.
type Vault struct {
	mu   sync.Mutex
	path string
	data vaultData
}

// OpenVault loads (or initialises) the vault file at path.
func OpenVault(path string) (*Vault, error) {
	v := &Vault{path: path}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return v, nil
		}
		return nil, fmt.Errorf("read vault: %w", err)
	}
	if err := json.Unmarshal(raw, &v.data); err != nil {
		return nil, fmt.Errorf("decode vault: %w", err)
	}
	return v, nil
}

// Credential resolves the stored state into a refresh credential. A stored
// guardian token wins; otherwise the standard cookie flow applies.
func (v *Vault) Credential() Credential {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.data.GuardianToken != "" {
		return GuardianCredential{Token: v.data.GuardianToken}
	}
	return StandardCredential{}
}

// SetGuardianToken stores a rotated guardian token. An empty value clears it.
func (v *Vault) SetGuardianToken(token string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.data.GuardianToken = token
	return v.flush()
}

// GuardianToken returns the stored guardian token, if any.
func (v *Vault) GuardianToken() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.data.GuardianToken
}

// SetTheme persists the UI theme preference.
func (v *Vault) SetTheme(theme string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.data.Theme = theme
	return v.flush()
}

// Theme returns the stored theme preference.
func (v *Vault) Theme() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.data.Theme
}

func (v *Vault) flush() error {
	raw, err := json.Marshal(v.data)
	if err != nil {
		return fmt.Errorf("encode vault: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(v.path), 0o700); err != nil {
		return fmt.Errorf("prepare vault directory: %w", err)
	}
	if err := os.WriteFile(v.path, raw, 0o600); err != nil {
		return fmt.Errorf("write vault: %w", err)
	}
	return nil
}
