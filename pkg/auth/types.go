package auth

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/dvcrn/wallabag-client/pkg/apierr"
	"github.com/dvcrn/wallabag-client/pkg/credentials"
	"github.com/rs/zerolog"
)

// Doer sends a single HTTP request. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// DoerFunc adapts a function to Doer.
type DoerFunc func(req *http.Request) (*http.Response, error)

func (f DoerFunc) Do(req *http.Request) (*http.Response, error) {
	return f(req)
}

// ErrGrantNotAttempted is returned by Acquire when the credentials lack a
// field the grant requires. No request is sent.
var ErrGrantNotAttempted = errors.New("auth: grant not attempted, credentials incomplete")

// GrantKind is an OAuth2 grant flow.
type GrantKind int

const (
	GrantRefresh GrantKind = iota
	GrantPassword
)

// String returns the grant_type form value.
func (k GrantKind) String() string {
	switch k {
	case GrantRefresh:
		return "refresh_token"
	case GrantPassword:
		return "password"
	default:
		return fmt.Sprintf("GrantKind(%d)", int(k))
	}
}

// Eligible reports whether creds holds every field the grant requires.
func (k GrantKind) Eligible(creds credentials.Source) bool {
	_, ok := k.form(creds)
	return ok
}

func (k GrantKind) form(creds credentials.Source) (url.Values, bool) {
	clientID, clientSecret := creds.ClientID(), creds.ClientSecret()
	if clientID == "" || clientSecret == "" {
		return nil, false
	}

	form := url.Values{
		"grant_type":    {k.String()},
		"client_id":     {clientID},
		"client_secret": {clientSecret},
	}

	switch k {
	case GrantRefresh:
		refreshToken := creds.RefreshToken()
		if refreshToken == "" {
			return nil, false
		}
		form.Set("refresh_token", refreshToken)
	case GrantPassword:
		username, password := creds.Username(), creds.Password()
		if username == "" || password == "" {
			return nil, false
		}
		form.Set("username", username)
		form.Set("password", password)
	default:
		return nil, false
	}
	return form, true
}

// GrantError is a non-2xx answer from the token endpoint.
type GrantError struct {
	Kind     GrantKind
	Response *apierr.Error
}

func (e *GrantError) Error() string {
	return fmt.Sprintf("%s grant failed with status %d: %s", e.Kind, e.Response.StatusCode, e.Response.Message)
}

func (e *GrantError) Unwrap() error {
	return e.Response
}

// GrantFailure marks the error as coming from the token endpoint, so a 404
// there is never mistaken for a missing resource.
func (e *GrantError) GrantFailure() {}

// StatusCode is the token endpoint's HTTP status.
func (e *GrantError) StatusCode() int {
	return e.Response.StatusCode
}

// Body is the raw token endpoint response body.
func (e *GrantError) Body() []byte {
	return e.Response.Body
}

// Rejected reports a 400, the token endpoint's answer for an invalid or
// expired grant. Any other status is fatal for the refresh sequence.
func (e *GrantError) Rejected() bool {
	return e.Response.StatusCode == http.StatusBadRequest
}

// Option configures an Acquirer or an Authorizer.
type Option func(*options)

type options struct {
	logger zerolog.Logger
}

func newOptions(opts []Option) options {
	o := options{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// MaskToken shortens a token for log output.
func MaskToken(token string) string {
	if token == "" {
		return "<none>"
	}
	if len(token) > 12 {
		return token[:6] + "…" + token[len(token)-6:]
	}
	return "***"
}
