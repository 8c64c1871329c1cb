package auth

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/dvcrn/wallabag-client/pkg/credentials"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

const refreshKey = "refresh"

// Authorizer decorates a Doer so every request carries the current bearer
// token. A 401 triggers one token refresh and exactly one retry.
//
// Refreshes are serialized per Authorizer: requests that hit 401 while a
// refresh is running wait for it and share its outcome.
type Authorizer struct {
	next     Doer
	creds    credentials.Source
	acquirer *Acquirer
	logger   zerolog.Logger

	refreshes singleflight.Group
}

var _ Doer = (*Authorizer)(nil)

// NewAuthorizer wraps next.
func NewAuthorizer(next Doer, creds credentials.Source, acquirer *Acquirer, opts ...Option) *Authorizer {
	o := newOptions(opts)
	return &Authorizer{
		next:     next,
		creds:    creds,
		acquirer: acquirer,
		logger:   o.logger,
	}
}

// Do sends req with authorization headers. Method, URL and body are sent as
// given. On 401 it refreshes the token and retries once, returning the retry's
// response. If no token could be obtained the original 401 is returned. A hard
// grant failure is returned as a *GrantError instead of any response.
func (a *Authorizer) Do(req *http.Request) (*http.Response, error) {
	log := a.logger.With().
		Str("request_id", uuid.NewString()).
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Logger()

	body, err := replayableBody(req)
	if err != nil {
		return nil, err
	}

	token := a.creds.AccessToken()
	resp, err := a.send(req, body, token)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}

	log.Warn().
		Str("authorization_preview", MaskToken(token)).
		Msg("Received 401 Unauthorized, attempting token refresh")

	refreshed, err := a.refresh(req.Context(), token, log)
	if err != nil {
		resp.Body.Close()
		log.Error().Err(err).Msg("Token refresh failed")
		return nil, err
	}

	if !refreshed {
		log.Warn().Msg("No token could be obtained, returning original response")
		return resp, nil
	}

	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	token = a.creds.AccessToken()
	log.Info().
		Str("authorization_preview", MaskToken(token)).
		Msg("Successfully refreshed credentials, retrying request")

	resp, err = a.send(req, body, token)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		log.Error().Msg("Still received 401 after token refresh, giving up")
	} else {
		log.Debug().Int("status_code", resp.StatusCode).Msg("Request succeeded after token refresh")
	}
	return resp, nil
}

func (a *Authorizer) send(req *http.Request, body func() (io.ReadCloser, error), token string) (*http.Response, error) {
	attempt := req.Clone(req.Context())
	if body != nil {
		rc, err := body()
		if err != nil {
			return nil, fmt.Errorf("failed to rewind request body: %w", err)
		}
		attempt.Body = rc
	}

	attempt.Header.Set("Accept", "*/*")
	if token != "" {
		attempt.Header.Set("Authorization", "Bearer "+token)
	} else {
		attempt.Header.Del("Authorization")
	}

	return a.next.Do(attempt)
}

// refresh obtains a new token unless staleToken was already replaced by a
// refresh that finished after the request was sent. It reports whether a
// usable token is now stored.
//
// The grant calls run detached from ctx so that one caller giving up does not
// fail the others sharing the refresh; they stay bounded by the transport's
// timeout. A cancelled caller stops waiting and returns ctx.Err().
func (a *Authorizer) refresh(ctx context.Context, staleToken string, log zerolog.Logger) (bool, error) {
	grantCtx := context.WithoutCancel(ctx)
	ch := a.refreshes.DoChan(refreshKey, func() (interface{}, error) {
		if current := a.creds.AccessToken(); current != "" && current != staleToken {
			log.Debug().Msg("Access token already replaced by a concurrent refresh")
			return true, nil
		}
		return a.obtainToken(grantCtx, log)
	})

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case res := <-ch:
		if res.Shared {
			log.Debug().Msg("Shared in-flight token refresh")
		}
		if res.Err != nil {
			return false, res.Err
		}
		return res.Val.(bool), nil
	}
}

// obtainToken tries the refresh grant, then the password grant. The password
// grant only runs when the refresh grant was skipped or rejected with 400.
func (a *Authorizer) obtainToken(ctx context.Context, log zerolog.Logger) (bool, error) {
	for _, kind := range []GrantKind{GrantRefresh, GrantPassword} {
		token, err := a.acquirer.Acquire(ctx, kind, a.creds)
		if err != nil {
			if isRejection(err) {
				log.Info().Str("grant_type", kind.String()).Err(err).Msg("Grant not usable, trying next")
				continue
			}
			return false, err
		}

		accepted := a.creds.TokensUpdated(*token)
		log.Info().
			Str("grant_type", kind.String()).
			Bool("accepted", accepted).
			Int64("expires_in", token.ExpiresIn).
			Msg("Obtained new OAuth token")
		return accepted, nil
	}
	return false, nil
}

// replayableBody returns a function producing a fresh copy of req's body for
// each attempt, or nil if req has no body.
func replayableBody(req *http.Request) (func() (io.ReadCloser, error), error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}
	if req.GetBody != nil {
		req.Body.Close()
		return req.GetBody, nil
	}

	buf, err := io.ReadAll(req.Body)
	req.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	return func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(buf)), nil
	}, nil
}
