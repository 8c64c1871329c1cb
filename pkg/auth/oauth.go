package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/dvcrn/wallabag-client/pkg/apierr"
	"github.com/dvcrn/wallabag-client/pkg/credentials"
	"github.com/rs/zerolog"
)

// TokenPath is the token endpoint, relative to the service base URL.
const TokenPath = "oauth/v2/token"

// Acquirer performs single OAuth2 grant calls against the token endpoint.
type Acquirer struct {
	doer     Doer
	tokenURL string
	logger   zerolog.Logger
}

// NewAcquirer creates an Acquirer posting to tokenURL through doer.
func NewAcquirer(doer Doer, tokenURL string, opts ...Option) *Acquirer {
	o := newOptions(opts)
	return &Acquirer{
		doer:     doer,
		tokenURL: tokenURL,
		logger:   o.logger,
	}
}

// Acquire runs one grant of the given kind with the fields read from creds.
//
// It returns ErrGrantNotAttempted without a network call when a required
// field is empty, and a *GrantError for any non-2xx answer.
func (a *Acquirer) Acquire(ctx context.Context, kind GrantKind, creds credentials.Source) (*credentials.TokenResult, error) {
	form, ok := kind.form(creds)
	if !ok {
		a.logger.Debug().Str("grant_type", kind.String()).Msg("Skipping grant, credentials incomplete")
		return nil, ErrGrantNotAttempted
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create %s grant request: %w", kind, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := a.doer.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make %s grant request: %w", kind, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		grantErr := &GrantError{Kind: kind, Response: apierr.FromResponse(resp)}
		a.logger.Debug().
			Str("grant_type", kind.String()).
			Int("status_code", grantErr.StatusCode()).
			Str("error", grantErr.Response.Message).
			Msg("Grant request failed")
		return nil, grantErr
	}
	defer resp.Body.Close()

	var token credentials.TokenResult
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return nil, fmt.Errorf("failed to decode %s grant response: %w", kind, err)
	}

	a.logger.Debug().
		Str("grant_type", kind.String()).
		Int64("expires_in", token.ExpiresIn).
		Str("access_token", MaskToken(token.AccessToken)).
		Msg("Grant request succeeded")

	return &token, nil
}

// isRejection reports whether err lets the refresh sequence move on to the
// next grant: the grant was skipped or the token endpoint answered 400.
func isRejection(err error) bool {
	if errors.Is(err, ErrGrantNotAttempted) {
		return true
	}
	var grantErr *GrantError
	return errors.As(err, &grantErr) && grantErr.Rejected()
}
