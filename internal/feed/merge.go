package feed

import (
	"strings"

	"github.com/pders01/scrp/internal/debuglog"
	"github.com/pders01/scrp/internal/pubdate"
	"github.com/pders01/scrp/internal/storage"
)

// Raw is an article stub as scraped: all strings, nothing trusted yet.
type Raw struct {
	URL           string
	Title         string
	Description   string
	PublishedText string
	ImageURL      string
}

// MergeInsert folds one scrape batch into the feed. The surviving
// batch goes in front of existing items with its relative order
// preserved. Records are skipped when the URL is empty, already in the
// feed, or appeared earlier in the same batch, and when the title is
// empty. Publish text resolves through the normalizer at insertion
// time. Returns the number inserted.
func MergeInsert(f *storage.Feed, raws []Raw, n *pubdate.Normalizer) int {
	if len(raws) == 0 {
		return 0
	}

	seen := make(map[string]struct{}, len(f.Items)+len(raws))
	for i := range f.Items {
		seen[f.Items[i].Link] = struct{}{}
	}

	var fresh []storage.Article
	for _, raw := range raws {
		link := strings.TrimSpace(raw.URL)
		if link == "" {
			debuglog.Warnf("skipping record with empty url (title=%q)", raw.Title)
			continue
		}
		if _, dup := seen[link]; dup {
			debuglog.Debugf("skipping known url %s", link)
			continue
		}

		title := strings.TrimSpace(raw.Title)
		if title == "" {
			debuglog.Warnf("skipping untitled record %s", link)
			continue
		}

		seen[link] = struct{}{}
		fresh = append(fresh, storage.Article{
			Title:       title,
			Link:        link,
			Description: strings.TrimSpace(raw.Description),
			Published:   n.Normalize(raw.PublishedText),
			ImageURL:    strings.TrimSpace(raw.ImageURL),
		})
	}

	if len(fresh) == 0 {
		return 0
	}

	f.Items = append(fresh, f.Items...)
	return len(fresh)
}

// Trim drops the oldest entries until the feed fits max. Evicted URLs
// are forgotten entirely; if one is scraped again later it re-enters
// as new. Returns the number evicted.
func Trim(f *storage.Feed, max int) int {
	if max <= 0 || len(f.Items) <= max {
		return 0
	}

	evicted := len(f.Items) - max
	f.Items = f.Items[:max]
	return evicted
}
