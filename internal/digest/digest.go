package digest

import (
	"fmt"
	"sort"
	"time"

	"github.com/pders01/scrp/internal/storage"
)

// PlaceholderTitle names the synthetic record emitted when a delta run
// selects nothing.
const PlaceholderTitle = "No new articles since last update"

const placeholderDescription = "The last scrape finished without finding anything published after the previous digest."

// DefaultMaxPerDaily caps one daily feed when no explicit limit is
// configured.
const DefaultMaxPerDaily = 100

// Builder computes watermark-keyed daily delta feeds from the rolling
// feed.
type Builder struct {
	maxPerFeed int
	siteRoot   string
	nowFunc    func() time.Time
}

func NewBuilder(maxPerFeed int, siteRoot string) *Builder {
	return NewBuilderWithClock(maxPerFeed, siteRoot, time.Now)
}

func NewBuilderWithClock(maxPerFeed int, siteRoot string, now func() time.Time) *Builder {
	if maxPerFeed <= 0 {
		maxPerFeed = DefaultMaxPerDaily
	}
	return &Builder{maxPerFeed: maxPerFeed, siteRoot: siteRoot, nowFunc: now}
}

// Batch is one daily output feed. Seq 1 is the primary feed; higher
// sequences are overflow. Placeholder marks the synthetic batch a run
// produces when nothing new was selected.
type Batch struct {
	Seq         int
	Items       []storage.Article
	Placeholder bool
}

// Filename names the output file for daily batch seq.
func Filename(base string, seq int) string {
	if seq <= 1 {
		return base + ".xml"
	}
	return fmt.Sprintf("%s_%d.xml", base, seq)
}

// Title names the channel for daily batch seq.
func Title(base string, seq int) string {
	if seq <= 1 {
		return base
	}
	return fmt.Sprintf("%s (part %d)", base, seq)
}

func (b Batch) Filename(base string) string { return Filename(base, b.Seq) }

func (b Batch) Title(base string) string { return Title(base, b.Seq) }

// Build selects items published strictly after cutoff, sorts them
// newest first (stable, so feed order breaks ties), and chunks them
// into batches. An empty selection yields a single placeholder batch.
// The second return is the next watermark: the newest publish instant
// selected, or now when the placeholder fired.
func (b *Builder) Build(items []storage.Article, cutoff time.Time) ([]Batch, time.Time) {
	now := b.nowFunc().UTC()

	var selection []storage.Article
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		// strictly newer; boundary-equal items stay excluded
		if !item.Published.After(cutoff) {
			continue
		}
		if _, dup := seen[item.Link]; dup {
			continue
		}
		seen[item.Link] = struct{}{}
		selection = append(selection, item)
	}

	if len(selection) == 0 {
		placeholder := storage.Article{
			Title:       PlaceholderTitle,
			Link:        b.siteRoot,
			Description: placeholderDescription,
			Published:   now,
		}
		return []Batch{{Seq: 1, Items: []storage.Article{placeholder}, Placeholder: true}}, now
	}

	sort.SliceStable(selection, func(i, j int) bool {
		return selection[i].Published.After(selection[j].Published)
	})

	var batches []Batch
	for start := 0; start < len(selection); start += b.maxPerFeed {
		end := start + b.maxPerFeed
		if end > len(selection) {
			end = len(selection)
		}
		batches = append(batches, Batch{Seq: len(batches) + 1, Items: selection[start:end]})
	}

	return batches, selection[0].Published
}
