package wallabag

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/dvcrn/wallabag-client/pkg/notfound"
	"github.com/tidwall/gjson"
)

// DefaultPerPage is the page size WalkEntries uses when none is given.
const DefaultPerPage = 30

// Entry is a saved article. Only the fields this client uses are decoded.
type Entry struct {
	ID         int    `json:"id"`
	URL        string `json:"url"`
	HashedURL  string `json:"hashed_url"`
	Title      string `json:"title"`
	IsArchived int    `json:"is_archived"`
	IsStarred  int    `json:"is_starred"`
	Tags       []Tag  `json:"tags"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

// Tag is a label attached to entries.
type Tag struct {
	ID    int    `json:"id"`
	Label string `json:"label"`
	Slug  string `json:"slug"`
}

// EntriesOptions filters WalkEntries. Nil pointers leave a filter unset.
type EntriesOptions struct {
	PerPage  int
	Archived *bool
	Starred  *bool
	Tags     []string
}

func (o EntriesOptions) query(page int) url.Values {
	perPage := o.PerPage
	if perPage <= 0 {
		perPage = DefaultPerPage
	}

	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("perPage", strconv.Itoa(perPage))
	if o.Archived != nil {
		q.Set("archive", boolParam(*o.Archived))
	}
	if o.Starred != nil {
		q.Set("starred", boolParam(*o.Starred))
	}
	if len(o.Tags) > 0 {
		q.Set("tags", strings.Join(o.Tags, ","))
	}
	return q
}

func boolParam(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

type entriesPage struct {
	Page     int `json:"page"`
	Pages    int `json:"pages"`
	Total    int `json:"total"`
	Embedded struct {
		Items []Entry `json:"items"`
	} `json:"_embedded"`
}

// WalkEntries calls fn for every entry matching opts, page by page, until
// the last page or until fn returns an error. A 404 for a page is handled by
// the not-found policy: when it substitutes, the walk ends without error.
func (c *Client) WalkEntries(ctx context.Context, opts EntriesOptions, fn func(Entry) error) error {
	for page := 1; ; page++ {
		var result entriesPage
		err := c.callJSON(ctx, http.MethodGet, "api/entries.json", opts.query(page), &result)

		current, err := notfound.Handle(ctx, c.classifier, c.policy, &result, err, nil, nil)
		if err != nil {
			return fmt.Errorf("failed to list entries page %d: %w", page, err)
		}
		if current == nil {
			c.logger.Debug().Int("page", page).Msg("Entries page not found, ending walk")
			return nil
		}

		for _, entry := range current.Embedded.Items {
			if err := fn(entry); err != nil {
				return err
			}
		}

		if len(current.Embedded.Items) == 0 || page >= current.Pages {
			return nil
		}
	}
}

// Entries collects every entry matching opts.
func (c *Client) Entries(ctx context.Context, opts EntriesOptions) ([]Entry, error) {
	var entries []Entry
	err := c.WalkEntries(ctx, opts, func(e Entry) error {
		entries = append(entries, e)
		return nil
	})
	return entries, err
}

// Entry fetches one entry. Under a substituting policy a missing entry is
// returned as nil with no error.
func (c *Client) Entry(ctx context.Context, id int) (*Entry, error) {
	var entry Entry
	err := c.callJSON(ctx, http.MethodGet, fmt.Sprintf("api/entries/%d.json", id), nil, &entry)
	return notfound.Handle(ctx, c.classifier, c.policy, &entry, err, nil, nil)
}

// DeleteEntry deletes an entry. It reports false when the entry was already
// gone and the policy substitutes.
func (c *Client) DeleteEntry(ctx context.Context, id int) (bool, error) {
	_, err := c.call(ctx, http.MethodDelete, fmt.Sprintf("api/entries/%d.json", id), nil)
	return notfound.Handle(ctx, c.classifier, c.policy, true, err, false, nil)
}

// RemoveTagFromEntry detaches a tag from an entry. It reports false when
// either no longer exists and the policy substitutes.
func (c *Client) RemoveTagFromEntry(ctx context.Context, entryID, tagID int) (bool, error) {
	_, err := c.call(ctx, http.MethodDelete, fmt.Sprintf("api/entries/%d/tags/%d.json", entryID, tagID), nil)
	return notfound.Handle(ctx, c.classifier, c.policy, true, err, false, nil)
}

// DeleteTagByLabel removes a tag from every entry. It reports false when no
// tag has that label and the policy substitutes. Servers too old to know
// the endpoint surface the 404 under the smart policy.
func (c *Client) DeleteTagByLabel(ctx context.Context, label string) (bool, error) {
	q := url.Values{}
	q.Set("tag", label)
	_, err := c.call(ctx, http.MethodDelete, "api/tag/label.json", q)
	return notfound.Handle(ctx, c.classifier, c.policy, true, err, false, c.capability(FeatureDeleteTagByLabel))
}

// EntryExists reports whether an entry was saved for rawURL. Servers that
// support it are queried by URL hash so the URL itself is not sent.
func (c *Client) EntryExists(ctx context.Context, rawURL string) (bool, error) {
	q := url.Values{}
	hashed, err := c.Supports(ctx, FeatureExistsByHashedURL)
	if err != nil {
		c.logger.Debug().Err(err).Msg("Could not detect server version, looking up by plain URL")
	}
	if hashed {
		sum := sha1.Sum([]byte(rawURL))
		q.Set("hashed_url", hex.EncodeToString(sum[:]))
	} else {
		q.Set("url", rawURL)
	}

	body, err := c.call(ctx, http.MethodGet, "api/entries/exists.json", q)
	if err != nil {
		return notfound.Handle(ctx, c.classifier, c.policy, false, err, false, nil)
	}

	switch exists := gjson.GetBytes(body, "exists"); exists.Type {
	case gjson.True, gjson.Number:
		return true, nil
	default:
		return false, nil
	}
}
