// Package credentials defines where a client reads its OAuth credentials from
// and how freshly issued tokens are handed back.
package credentials

import (
	"time"

	"golang.org/x/oauth2"
)

// Source supplies the credentials used to authorize requests.
//
// Getters are called concurrently by in-flight requests and must never block
// on the network. TokensUpdated is only ever called by one refresh at a time
// per client, but reads may race with it and observe either value.
//
// A Source must not be shared by clients that are expected to refresh
// independently: each client only serializes its own refreshes.
type Source interface {
	Username() string
	Password() string
	ClientID() string
	ClientSecret() string
	RefreshToken() string
	AccessToken() string

	// TokensUpdated stores a newly issued token and reports whether it was
	// accepted. A token without an access token is never accepted.
	TokensUpdated(token TokenResult) bool
}

// Credentials is the full set of values a Source can hand out.
type Credentials struct {
	Username     string `yaml:"username"`
	Password     string `yaml:"password"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RefreshToken string `yaml:"refresh_token"`
	AccessToken  string `yaml:"access_token"`
}

// TokenResult is the token endpoint response. An empty RefreshToken means the
// server did not issue a new one.
type TokenResult struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	Scope        string `json:"scope"`
	TokenType    string `json:"token_type"`
}

// OAuth2Token converts the result to an oauth2.Token, computing the expiry
// from ExpiresIn relative to now.
func (t TokenResult) OAuth2Token() *oauth2.Token {
	token := &oauth2.Token{
		AccessToken:  t.AccessToken,
		TokenType:    t.TokenType,
		RefreshToken: t.RefreshToken,
		ExpiresIn:    t.ExpiresIn,
	}
	if t.ExpiresIn > 0 {
		token.Expiry = time.Now().Add(time.Duration(t.ExpiresIn) * time.Second)
	}
	if t.Scope != "" {
		token = token.WithExtra(map[string]interface{}{
			"scope": t.Scope,
		})
	}
	return token
}
