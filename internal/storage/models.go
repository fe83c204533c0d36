package storage

import "time"

// Article is one feed entry. The Link is the sole identity: two
// articles with the same Link are the same article, regardless of
// title or description drift between scrapes.
type Article struct {
	Title       string
	Link        string
	Description string
	Published   time.Time // always a concrete UTC instant
	ImageURL    string    // optional
}

// Feed is a rolling channel of articles, most recent first by
// insertion order. It is never re-sorted by publish time; discovery
// order is the order readers see.
type Feed struct {
	Title       string
	Link        string
	Description string
	Items       []Article
}

// HasURL reports whether a link is already present in the feed.
func (f *Feed) HasURL(link string) bool {
	for i := range f.Items {
		if f.Items[i].Link == link {
			return true
		}
	}
	return false
}

// Watermark records where the last delta run ended. LastSeen is the
// newest publish instant that run selected; LastRun is when it ran.
type Watermark struct {
	LastSeen time.Time `json:"last_seen"`
	LastRun  time.Time `json:"last_run"`
}

// Channel is the static metadata a feed file is created with.
type Channel struct {
	Title       string
	Link        string
	Description string
}
