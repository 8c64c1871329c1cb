package credentials

import (
	"errors"
	"sync"

	"golang.org/x/oauth2"
)

// ErrNoAccessToken is returned by Memory.Token before any access token is known.
var ErrNoAccessToken = errors.New("credentials: no access token available")

// Memory is a Source that keeps credentials in process memory for the
// lifetime of the client. Tokens are not persisted anywhere.
type Memory struct {
	mu    sync.RWMutex
	creds Credentials
	token *oauth2.Token
}

var (
	_ Source             = (*Memory)(nil)
	_ oauth2.TokenSource = (*Memory)(nil)
)

// NewMemory creates a Memory source seeded with creds.
func NewMemory(creds Credentials) *Memory {
	m := &Memory{creds: creds}
	if creds.AccessToken != "" {
		m.token = &oauth2.Token{
			AccessToken:  creds.AccessToken,
			RefreshToken: creds.RefreshToken,
			TokenType:    "bearer",
		}
	}
	return m
}

func (m *Memory) Username() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.creds.Username
}

func (m *Memory) Password() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.creds.Password
}

func (m *Memory) ClientID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.creds.ClientID
}

func (m *Memory) ClientSecret() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.creds.ClientSecret
}

func (m *Memory) RefreshToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.creds.RefreshToken
}

func (m *Memory) AccessToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.creds.AccessToken
}

// TokensUpdated stores token if it carries an access token. The previous
// refresh token is kept when the server did not issue a new one.
func (m *Memory) TokensUpdated(token TokenResult) bool {
	if token.AccessToken == "" {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.creds.AccessToken = token.AccessToken
	if token.RefreshToken != "" {
		m.creds.RefreshToken = token.RefreshToken
	}

	m.token = token.OAuth2Token()
	m.token.RefreshToken = m.creds.RefreshToken
	return true
}

// Token implements oauth2.TokenSource so the current token can be handed to
// other oauth2-aware clients. It never refreshes.
func (m *Memory) Token() (*oauth2.Token, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.token == nil {
		return nil, ErrNoAccessToken
	}
	token := *m.token
	return &token, nil
}

// Snapshot returns a copy of the current credentials.
func (m *Memory) Snapshot() Credentials {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.creds
}
