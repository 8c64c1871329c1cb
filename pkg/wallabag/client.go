// Package wallabag is a client for the wallabag read-it-later REST API.
//
// Every request goes through an auth.Authorizer, so an expired access token
// is refreshed and the request retried once without the caller noticing.
// Operations where a 404 can mean "nothing there" apply the configured
// notfound.Policy.
package wallabag

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/dvcrn/wallabag-client/internal/logger"
	"github.com/dvcrn/wallabag-client/pkg/apierr"
	"github.com/dvcrn/wallabag-client/pkg/auth"
	"github.com/dvcrn/wallabag-client/pkg/credentials"
	"github.com/dvcrn/wallabag-client/pkg/notfound"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

// Client talks to one wallabag server.
type Client struct {
	baseURL    *url.URL
	http       auth.Doer
	authorizer *auth.Authorizer
	creds      credentials.Source
	classifier *notfound.Classifier
	policy     notfound.Policy
	logger     zerolog.Logger

	versions *versionCache
}

// Option configures a Client.
type Option func(*clientOptions)

type clientOptions struct {
	httpClient auth.Doer
	creds      credentials.Source
	logger     zerolog.Logger
	clock      clockwork.Clock
}

// WithHTTPClient replaces the HTTP client built from Config.NewHTTPClient.
func WithHTTPClient(doer auth.Doer) Option {
	return func(o *clientOptions) {
		o.httpClient = doer
	}
}

// WithCredentialSource replaces the in-memory source built from
// Config.Credentials, for callers that persist refreshed tokens themselves.
func WithCredentialSource(creds credentials.Source) Option {
	return func(o *clientOptions) {
		o.creds = creds
	}
}

// WithLogger sets the logger. The default is built from LOG_LEVEL and
// WALLABAG_ENV and discards everything when LOG_LEVEL is unset.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *clientOptions) {
		o.logger = logger
	}
}

// WithClock replaces the clock used by the probe cache.
func WithClock(clock clockwork.Clock) Option {
	return func(o *clientOptions) {
		o.clock = clock
	}
}

// New creates a Client from cfg.
func New(cfg *Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid wallabag config: %w", err)
	}

	baseURL, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base_url: %w", err)
	}

	o := clientOptions{
		logger: logger.New(),
		clock:  clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.httpClient == nil {
		o.httpClient = cfg.NewHTTPClient()
	}
	if o.creds == nil {
		o.creds = credentials.NewMemory(cfg.Credentials)
	}

	log := o.logger.With().Str("component", "wallabag").Logger()

	c := &Client{
		baseURL:  baseURL,
		http:     o.httpClient,
		creds:    o.creds,
		policy:   cfg.NotFoundPolicy,
		logger:   log,
		versions: &versionCache{},
	}

	acquirer := auth.NewAcquirer(o.httpClient, baseURL.JoinPath(auth.TokenPath).String(), auth.WithLogger(log))
	c.authorizer = auth.NewAuthorizer(o.httpClient, o.creds, acquirer, auth.WithLogger(log))

	classifierOpts := []notfound.Option{
		notfound.WithLogger(log),
		notfound.WithClock(o.clock),
	}
	if cfg.ProbeCacheTTL > 0 {
		classifierOpts = append(classifierOpts, notfound.WithProbeCache(cfg.ProbeCacheTTL))
	}
	c.classifier = notfound.NewClassifier(notfound.ProberFunc(c.Probe), classifierOpts...)

	return c, nil
}

// WithNotFoundPolicy returns a Client that applies policy instead of the
// configured one. It shares credentials, the refresh section and caches with
// c.
func (c *Client) WithNotFoundPolicy(policy notfound.Policy) *Client {
	clone := *c
	clone.policy = policy
	return &clone
}

// Policy returns the not-found policy applied by c.
func (c *Client) Policy() notfound.Policy {
	return c.policy
}

// Credentials returns the source holding the current tokens.
func (c *Client) Credentials() credentials.Source {
	return c.creds
}

// TokenSource hands the current access token to oauth2-aware code, e.g.
// oauth2.NewClient(ctx, src) for endpoints this client does not wrap. The
// returned source never refreshes; requests sent through Do do. It reports
// false when the credential source cannot produce oauth2 tokens.
func (c *Client) TokenSource() (oauth2.TokenSource, bool) {
	src, ok := c.creds.(oauth2.TokenSource)
	return src, ok
}

// Do sends an arbitrary request through the authorizer. The caller owns the
// response body.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.authorizer.Do(req)
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := c.baseURL.JoinPath(path)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// call sends an authorized request and returns the body of a 2xx response.
// Any other status is returned as *apierr.Error.
func (c *Client) call(ctx context.Context, method, path string, query url.Values) ([]byte, error) {
	return c.send(ctx, c.authorizer, method, path, query)
}

func (c *Client) send(ctx context.Context, doer auth.Doer, method, path string, query url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := doer.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := apierr.FromResponse(resp)
		c.logger.Debug().
			Str("method", method).
			Str("path", path).
			Int("status_code", apiErr.StatusCode).
			Msg("Request unsuccessful")
		return nil, apiErr
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return body, nil
}

func (c *Client) callJSON(ctx context.Context, method, path string, query url.Values, out interface{}) error {
	body, err := c.call(ctx, method, path, query)
	if err != nil {
		return err
	}
	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}
