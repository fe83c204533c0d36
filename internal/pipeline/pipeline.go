package pipeline

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pders01/scrp/internal/config"
	"github.com/pders01/scrp/internal/debuglog"
	"github.com/pders01/scrp/internal/digest"
	"github.com/pders01/scrp/internal/extract"
	"github.com/pders01/scrp/internal/feed"
	"github.com/pders01/scrp/internal/pubdate"
	"github.com/pders01/scrp/internal/scrape"
	"github.com/pders01/scrp/internal/sites"
	"github.com/pders01/scrp/internal/storage"
)

// Fetcher obtains the rendered HTML of a listing page.
type Fetcher interface {
	FetchHTML(ctx context.Context, pageURL string) (string, error)
}

// Runner sequences the scrape stages: fetch a listing snapshot, merge
// extracted articles into the rolling feed, emit daily delta feeds and
// advance the watermark.
type Runner struct {
	cfg        *config.Config
	fetcher    Fetcher
	feeds      storage.FeedStore
	marks      storage.WatermarkStore
	registry   *sites.Registry
	normalizer *pubdate.Normalizer
	nowFunc    func() time.Time
	mu         sync.Mutex
}

// NewRunner wires the production pipeline from configuration.
func NewRunner(cfg *config.Config) *Runner {
	solver := scrape.NewSolver(cfg.Solver.URL, scrape.Options{
		Timeout:    cfg.Solver.Timeout,
		MaxRetries: cfg.Solver.MaxRetries,
		UserAgent:  cfg.Solver.UserAgent,
	})
	channel := storage.Channel{
		Title:       cfg.Site.Name,
		Link:        cfg.Site.URL,
		Description: cfg.Site.Description,
	}
	return NewRunnerWith(cfg, solver, storage.NewFeedFile(cfg.Paths.Feed, channel), storage.NewWatermarkFile(cfg.Paths.Watermark))
}

// NewRunnerWith wires a pipeline against explicit collaborators. Tests
// use it to swap in memory stores and canned fetchers.
func NewRunnerWith(cfg *config.Config, fetcher Fetcher, feeds storage.FeedStore, marks storage.WatermarkStore) *Runner {
	return &Runner{
		cfg:        cfg,
		fetcher:    fetcher,
		feeds:      feeds,
		marks:      marks,
		registry:   sites.NewRegistry(),
		normalizer: pubdate.NewNormalizer(),
		nowFunc:    time.Now,
	}
}

// BuildResult summarizes one merge into the rolling feed.
type BuildResult struct {
	Extracted int
	Inserted  int
	Evicted   int
	Total     int
}

// DigestResult summarizes one delta run.
type DigestResult struct {
	Cutoff      time.Time
	Mark        time.Time
	NewItems    int
	Batches     int
	Placeholder bool
	Files       []string
}

// RunResult summarizes a full fetch, build and digest cycle.
type RunResult struct {
	Build  BuildResult
	Digest DigestResult
}

// Run executes the full cycle.
func (r *Runner) Run(ctx context.Context) (RunResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var res RunResult

	if err := r.fetch(ctx); err != nil {
		return res, err
	}

	build, err := r.build()
	if err != nil {
		return res, err
	}
	res.Build = build

	dig, err := r.digest()
	if err != nil {
		return res, err
	}
	res.Digest = dig

	return res, nil
}

// Fetch downloads the listing page through the solver and stores the
// HTML snapshot.
func (r *Runner) Fetch(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fetch(ctx)
}

// Build extracts articles from the stored snapshot and merges them
// into the rolling feed.
func (r *Runner) Build() (BuildResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.build()
}

// Digest writes the daily delta feeds and advances the watermark.
func (r *Runner) Digest() (DigestResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.digest()
}

func (r *Runner) fetch(ctx context.Context) error {
	doc, err := r.fetcher.FetchHTML(ctx, r.cfg.Site.URL)
	if err != nil {
		return fmt.Errorf("fetching listing page: %w", err)
	}

	if err := storage.WriteFileAtomic(r.cfg.Paths.Snapshot, []byte(doc), 0o644); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}

	debuglog.Infof("Snapshot saved: %d bytes from %s", len(doc), r.cfg.Site.URL)
	return nil
}

func (r *Runner) build() (BuildResult, error) {
	var res BuildResult

	doc, err := os.ReadFile(r.cfg.Paths.Snapshot)
	if err != nil {
		if os.IsNotExist(err) {
			return res, fmt.Errorf("no snapshot at %s, fetch the listing page first", r.cfg.Paths.Snapshot)
		}
		return res, fmt.Errorf("reading snapshot: %w", err)
	}

	sel, err := r.selectorsFor(r.cfg.Site.URL)
	if err != nil {
		return res, err
	}

	base, err := url.Parse(r.cfg.Site.URL)
	if err != nil {
		return res, fmt.Errorf("parsing site URL: %w", err)
	}

	raws, err := extract.FromHTML(string(doc), sel, base)
	if err != nil {
		return res, fmt.Errorf("extracting articles: %w", err)
	}
	res.Extracted = len(raws)

	current, err := r.feeds.Load()
	if err != nil {
		return res, fmt.Errorf("loading feed: %w", err)
	}

	res.Inserted = feed.MergeInsert(current, raws, r.normalizer)
	res.Evicted = feed.Trim(current, r.cfg.Feed.MaxItems)
	res.Total = len(current.Items)

	if err := r.feeds.Save(current); err != nil {
		return res, fmt.Errorf("saving feed: %w", err)
	}

	debuglog.Infof("Feed built: %d extracted, %d inserted, %d evicted, %d total",
		res.Extracted, res.Inserted, res.Evicted, res.Total)
	return res, nil
}

func (r *Runner) digest() (DigestResult, error) {
	var res DigestResult

	current, err := r.feeds.Load()
	if err != nil {
		return res, fmt.Errorf("loading feed: %w", err)
	}

	mark, err := r.marks.Load()
	if err != nil {
		return res, fmt.Errorf("loading watermark: %w", err)
	}

	res.Cutoff = storage.Cutoff(mark, r.nowFunc())

	builder := digest.NewBuilderWithClock(r.cfg.Feed.MaxDailyItems, r.cfg.Site.RootURL(), r.nowFunc)
	batches, nextMark := builder.Build(current.Items, res.Cutoff)

	res.Mark = nextMark
	res.Batches = len(batches)
	res.Placeholder = batches[0].Placeholder
	if !res.Placeholder {
		for _, batch := range batches {
			res.NewItems += len(batch.Items)
		}
	}

	baseName := r.cfg.Feed.DailyBase
	for _, batch := range batches {
		channel := storage.Channel{
			Title:       batch.Title(baseName),
			Link:        r.cfg.Site.URL,
			Description: r.cfg.Site.Description,
		}
		out := &storage.Feed{
			Title:       channel.Title,
			Link:        channel.Link,
			Description: channel.Description,
			Items:       batch.Items,
		}
		path := filepath.Join(r.cfg.Paths.DailyDir, batch.Filename(baseName))
		if err := storage.NewFeedFile(path, channel).Save(out); err != nil {
			return res, fmt.Errorf("writing daily feed %s: %w", path, err)
		}
		debuglog.WithFields(map[string]interface{}{"file": path, "items": len(batch.Items)}).Debugf("daily feed written")
		res.Files = append(res.Files, path)
	}

	r.removeStaleOverflow(len(batches))

	// The watermark moves only after every daily feed hit disk.
	if err := r.marks.Save(res.Mark); err != nil {
		return res, fmt.Errorf("saving watermark: %w", err)
	}

	if res.Placeholder {
		debuglog.Infof("Digest: nothing new since %s, placeholder written", res.Cutoff.Format(time.RFC3339))
	} else {
		debuglog.Infof("Digest: %d new items in %d feeds (cutoff %s)",
			res.NewItems, res.Batches, res.Cutoff.Format(time.RFC3339))
	}
	return res, nil
}

// removeStaleOverflow deletes leftover overflow feeds from earlier,
// larger runs. Overflow files are contiguous, so the scan stops at the
// first missing sequence.
func (r *Runner) removeStaleOverflow(written int) {
	for seq := written + 1; ; seq++ {
		stale := filepath.Join(r.cfg.Paths.DailyDir, digest.Filename(r.cfg.Feed.DailyBase, seq))
		if _, err := os.Stat(stale); err != nil {
			return
		}
		if err := os.Remove(stale); err != nil {
			debuglog.Warnf("could not remove stale daily feed %s: %v", stale, err)
			return
		}
		debuglog.Debugf("removed stale daily feed %s", stale)
	}
}

// selectorsFor resolves extraction selectors: explicit configuration
// wins, otherwise a registered site profile for the URL.
func (r *Runner) selectorsFor(siteURL string) (extract.Selectors, error) {
	if r.cfg.Selectors.Article != "" {
		return extract.Selectors{
			Article:     r.cfg.Selectors.Article,
			Title:       r.cfg.Selectors.Title,
			Description: r.cfg.Selectors.Description,
			Published:   r.cfg.Selectors.Published,
			Image:       r.cfg.Selectors.Image,
		}, nil
	}

	if profile := r.registry.Find(siteURL); profile != nil {
		debuglog.Debugf("using %s profile selectors for %s", profile.Name(), siteURL)
		return profile.Selectors(), nil
	}

	return extract.Selectors{}, fmt.Errorf("no selectors configured and no site profile matches %s", siteURL)
}

// Status reports the persisted pipeline state.
type Status struct {
	SiteName     string
	SiteURL      string
	FeedPath     string
	FeedItems    int
	NewestTitle  string
	NewestTime   time.Time
	HasSnapshot  bool
	SnapshotTime time.Time
	SnapshotSize int64
	Mark         *storage.Watermark
	DailyFiles   []string
}

func (r *Runner) Status() (*Status, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	st := &Status{
		SiteName: r.cfg.Site.Name,
		SiteURL:  r.cfg.Site.URL,
		FeedPath: r.cfg.Paths.Feed,
	}

	current, err := r.feeds.Load()
	if err != nil {
		return nil, fmt.Errorf("loading feed: %w", err)
	}
	st.FeedItems = len(current.Items)
	if len(current.Items) > 0 {
		st.NewestTitle = current.Items[0].Title
		st.NewestTime = current.Items[0].Published
	}

	if info, statErr := os.Stat(r.cfg.Paths.Snapshot); statErr == nil {
		st.HasSnapshot = true
		st.SnapshotTime = info.ModTime()
		st.SnapshotSize = info.Size()
	}

	mark, err := r.marks.Load()
	if err != nil {
		return nil, fmt.Errorf("loading watermark: %w", err)
	}
	st.Mark = mark

	for seq := 1; ; seq++ {
		name := digest.Filename(r.cfg.Feed.DailyBase, seq)
		if _, statErr := os.Stat(filepath.Join(r.cfg.Paths.DailyDir, name)); statErr != nil {
			break
		}
		st.DailyFiles = append(st.DailyFiles, name)
	}

	return st, nil
}
