package wallabag

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/dvcrn/wallabag-client/pkg/notfound"
	"github.com/hashicorp/go-version"
	"golang.org/x/sync/singleflight"
)

// Feature is an API capability that only newer servers have.
type Feature int

const (
	// FeatureDeleteTagByLabel is DELETE api/tag/label.json.
	FeatureDeleteTagByLabel Feature = iota
	// FeatureExistsByHashedURL is the hashed_url parameter of
	// api/entries/exists.json.
	FeatureExistsByHashedURL
)

var featureMinVersions = map[Feature]*version.Version{
	FeatureDeleteTagByLabel:  version.Must(version.NewVersion("2.1.0")),
	FeatureExistsByHashedURL: version.Must(version.NewVersion("2.4.0")),
}

func (f Feature) String() string {
	switch f {
	case FeatureDeleteTagByLabel:
		return "delete_tag_by_label"
	case FeatureExistsByHashedURL:
		return "exists_by_hashed_url"
	default:
		return fmt.Sprintf("Feature(%d)", int(f))
	}
}

type versionCache struct {
	mu      sync.Mutex
	version *version.Version

	fetches singleflight.Group
}

func (vc *versionCache) get() *version.Version {
	vc.mu.Lock()
	defer vc.mu.Unlock()
	return vc.version
}

func (vc *versionCache) set(v *version.Version) {
	vc.mu.Lock()
	defer vc.mu.Unlock()
	vc.version = v
}

// Version returns the raw server version from the unauthenticated
// api/version endpoint. It is also the reachability probe.
func (c *Client) Version(ctx context.Context) (string, error) {
	body, err := c.send(ctx, c.http, http.MethodGet, "api/version", nil)
	if err != nil {
		return "", err
	}

	var v string
	if err := json.Unmarshal(body, &v); err != nil {
		return "", fmt.Errorf("failed to decode server version: %w", err)
	}
	return strings.TrimSpace(v), nil
}

// Probe checks that the service answers at the configured base URL. A 404 is
// returned as an *apierr.Error, meaning the base URL is wrong.
func (c *Client) Probe(ctx context.Context) error {
	_, err := c.Version(ctx)
	return err
}

// ServerVersion returns the parsed server version. The first successful
// answer is cached for the life of the client. Concurrent callers share one
// lookup, and each stops waiting when its own ctx is done.
func (c *Client) ServerVersion(ctx context.Context) (*version.Version, error) {
	if v := c.versions.get(); v != nil {
		return v, nil
	}

	fetchCtx := context.WithoutCancel(ctx)
	ch := c.versions.fetches.DoChan("version", func() (interface{}, error) {
		if v := c.versions.get(); v != nil {
			return v, nil
		}

		raw, err := c.Version(fetchCtx)
		if err != nil {
			return nil, err
		}
		v, err := version.NewVersion(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to parse server version %q: %w", raw, err)
		}

		c.versions.set(v)
		c.logger.Debug().Str("server_version", v.String()).Msg("Detected server version")
		return v, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*version.Version), nil
	}
}

// Supports reports whether the server is recent enough for f.
func (c *Client) Supports(ctx context.Context, f Feature) (bool, error) {
	required, ok := featureMinVersions[f]
	if !ok {
		return false, fmt.Errorf("unknown feature %v", f)
	}

	actual, err := c.ServerVersion(ctx)
	if err != nil {
		return false, err
	}
	return !actual.LessThan(required), nil
}

func (c *Client) capability(f Feature) notfound.CapabilityCheck {
	return func(ctx context.Context) (bool, error) {
		return c.Supports(ctx, f)
	}
}
