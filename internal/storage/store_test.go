package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var testChannel = Channel{
	Title:       "Samakal Opinion",
	Link:        "https://samakal.com/opinion",
	Description: "Latest opinion articles from Samakal",
}

func setupFeedFile(t *testing.T) (*FeedFile, string, func()) {
	tmpDir, err := os.MkdirTemp("", "feedfile-test-*")
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(tmpDir, "articles.xml")
	store := NewFeedFile(path, testChannel)

	cleanup := func() {
		os.RemoveAll(tmpDir)
	}

	return store, path, cleanup
}

func TestFeedFile_LoadMissing(t *testing.T) {
	store, _, cleanup := setupFeedFile(t)
	defer cleanup()

	feed, err := store.Load()
	if err != nil {
		t.Fatalf("load of missing file should not fail: %v", err)
	}

	if len(feed.Items) != 0 {
		t.Errorf("expected empty feed, got %d items", len(feed.Items))
	}
	if feed.Title != testChannel.Title {
		t.Errorf("expected channel title %q, got %q", testChannel.Title, feed.Title)
	}
	if feed.Link != testChannel.Link {
		t.Errorf("expected channel link %q, got %q", testChannel.Link, feed.Link)
	}
}

func TestFeedFile_SaveAndLoad(t *testing.T) {
	store, _, cleanup := setupFeedFile(t)
	defer cleanup()

	feed := &Feed{
		Title:       testChannel.Title,
		Link:        testChannel.Link,
		Description: testChannel.Description,
		Items: []Article{
			{
				Title:       "Second scrape, first item",
				Link:        "https://samakal.com/opinion/article/100?ref=a&b=c",
				Description: "Has query characters in the link",
				Published:   time.Date(2023, 10, 2, 10, 0, 0, 0, time.UTC),
				ImageURL:    "https://samakal.com/img/100.jpg",
			},
			{
				Title:     "Older item",
				Link:      "https://samakal.com/opinion/article/99",
				Published: time.Date(2023, 10, 1, 9, 30, 0, 0, time.UTC),
			},
		},
	}

	if err := store.Save(feed); err != nil {
		t.Fatalf("failed to save feed: %v", err)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("failed to load feed: %v", err)
	}

	if len(loaded.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(loaded.Items))
	}

	first := loaded.Items[0]
	if first.Link != feed.Items[0].Link {
		t.Errorf("expected link %q, got %q", feed.Items[0].Link, first.Link)
	}
	if first.Title != feed.Items[0].Title {
		t.Errorf("expected title %q, got %q", feed.Items[0].Title, first.Title)
	}
	if !first.Published.Equal(feed.Items[0].Published) {
		t.Errorf("expected published %v, got %v", feed.Items[0].Published, first.Published)
	}
	if first.ImageURL != feed.Items[0].ImageURL {
		t.Errorf("expected image %q, got %q", feed.Items[0].ImageURL, first.ImageURL)
	}

	// Insertion order must survive the roundtrip
	if loaded.Items[1].Link != feed.Items[1].Link {
		t.Errorf("item order changed on roundtrip")
	}
}

func TestFeedFile_PubDateFormat(t *testing.T) {
	store, path, cleanup := setupFeedFile(t)
	defer cleanup()

	feed := &Feed{
		Title: testChannel.Title,
		Link:  testChannel.Link,
		Items: []Article{
			{
				Title:     "Dated item",
				Link:      "https://samakal.com/opinion/article/1",
				Published: time.Date(2023, 10, 2, 10, 0, 0, 0, time.UTC),
			},
		},
	}

	if err := store.Save(feed); err != nil {
		t.Fatalf("failed to save feed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	content := string(data)
	if !strings.Contains(content, "Mon, 02 Oct 2023 10:00:00 +0000") {
		t.Errorf("pubDate not in RFC-822 +0000 form:\n%s", content)
	}
	if !strings.Contains(content, `<rss version="2.0">`) {
		t.Errorf("missing rss version attribute:\n%s", content)
	}
}

func TestFeedFile_SaveDeterministic(t *testing.T) {
	store, path, cleanup := setupFeedFile(t)
	defer cleanup()

	feed := &Feed{
		Title: testChannel.Title,
		Link:  testChannel.Link,
		Items: []Article{
			{Title: "A", Link: "https://samakal.com/opinion/article/1", Published: time.Date(2023, 10, 2, 10, 0, 0, 0, time.UTC)},
			{Title: "B", Link: "https://samakal.com/opinion/article/2", Published: time.Date(2023, 10, 1, 10, 0, 0, 0, time.UTC)},
		},
	}

	if err := store.Save(feed); err != nil {
		t.Fatal(err)
	}
	first, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	if err := store.Save(feed); err != nil {
		t.Fatal(err)
	}
	second, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	if string(first) != string(second) {
		t.Error("saving the same feed twice produced different bytes")
	}
}

func TestFeedFile_LoadCorrupt(t *testing.T) {
	store, path, cleanup := setupFeedFile(t)
	defer cleanup()

	if err := os.WriteFile(path, []byte("not xml at all"), 0o644); err != nil {
		t.Fatal(err)
	}

	feed, err := store.Load()
	if err != nil {
		t.Fatalf("corrupt file should be absorbed, got error: %v", err)
	}
	if len(feed.Items) != 0 {
		t.Errorf("expected empty feed from corrupt file, got %d items", len(feed.Items))
	}
}

func TestFeedFile_LoadRepairsRecords(t *testing.T) {
	store, path, cleanup := setupFeedFile(t)
	defer cleanup()

	raw := `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Samakal Opinion</title>
    <link>https://samakal.com/opinion</link>
    <description>d</description>
    <item>
      <title></title>
      <link>https://samakal.com/opinion/article/1</link>
      <pubDate>Mon, 02 Oct 2023 10:00:00 +0000</pubDate>
    </item>
    <item>
      <title>Unparsable date</title>
      <link>https://samakal.com/opinion/article/2</link>
      <pubDate>someday soon</pubDate>
    </item>
    <item>
      <title>Good item</title>
      <link>https://samakal.com/opinion/article/3</link>
      <pubDate>Mon, 02 Oct 2023 09:00:00 +0000</pubDate>
    </item>
  </channel>
</rss>
`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatal(err)
	}

	feed, err := store.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	// Untitled item dropped, the other two kept
	if len(feed.Items) != 2 {
		t.Fatalf("expected 2 items after repair, got %d", len(feed.Items))
	}
	for _, item := range feed.Items {
		if item.Published.IsZero() {
			t.Errorf("item %s has zero publish time after repair", item.Link)
		}
	}
	if feed.Items[0].Link != "https://samakal.com/opinion/article/2" {
		t.Errorf("unexpected first item %q", feed.Items[0].Link)
	}
}

func TestFeedFile_SaveLeavesNoTempFiles(t *testing.T) {
	store, path, cleanup := setupFeedFile(t)
	defer cleanup()

	feed := &Feed{Title: "t", Link: "https://samakal.com", Items: []Article{
		{Title: "A", Link: "https://samakal.com/opinion/article/1", Published: time.Now().UTC()},
	}}

	if err := store.Save(feed); err != nil {
		t.Fatal(err)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("expected only the feed file, found %v", names)
	}
}

func TestFeedFile_CrashedSaveLeavesCommittedFile(t *testing.T) {
	store, path, cleanup := setupFeedFile(t)
	defer cleanup()

	feed := &Feed{
		Title: testChannel.Title,
		Link:  testChannel.Link,
		Items: []Article{
			{Title: "Committed", Link: "https://samakal.com/opinion/article/1", Published: time.Date(2023, 10, 2, 10, 0, 0, 0, time.UTC)},
		},
	}
	if err := store.Save(feed); err != nil {
		t.Fatal(err)
	}

	// A crash mid-save leaves a partial temp file behind; the committed
	// file must stay readable and the leftover must not shadow it.
	partial := path + ".tmp-crashed"
	if err := os.WriteFile(partial, []byte("<rss version=\"2.0\"><chan"), 0o644); err != nil {
		t.Fatal(err)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("load after simulated crash failed: %v", err)
	}
	if len(loaded.Items) != 1 || loaded.Items[0].Title != "Committed" {
		t.Errorf("committed feed not intact after simulated crash: %+v", loaded.Items)
	}
}

func TestWriteFileAtomic(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "atomic-test-*")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(tmpDir)

	// Nested path: parent directories are created
	path := filepath.Join(tmpDir, "sub", "dir", "out.txt")
	if err := WriteFileAtomic(path, []byte("one"), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "one" {
		t.Errorf("expected %q, got %q", "one", string(data))
	}

	// Overwrite replaces content completely
	if err := WriteFileAtomic(path, []byte("two"), 0o644); err != nil {
		t.Fatalf("overwrite failed: %v", err)
	}
	data, _ = os.ReadFile(path)
	if string(data) != "two" {
		t.Errorf("expected %q after overwrite, got %q", "two", string(data))
	}
}

func TestWatermarkFile_LoadAbsent(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "mark-test-*")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(tmpDir)

	w := NewWatermarkFile(filepath.Join(tmpDir, "watermark.json"))
	mark, err := w.Load()
	if err != nil {
		t.Fatalf("absent watermark should not error: %v", err)
	}
	if mark != nil {
		t.Errorf("expected nil mark, got %+v", mark)
	}
}

func TestWatermarkFile_SaveAndLoad(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "mark-test-*")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(tmpDir)

	w := NewWatermarkFile(filepath.Join(tmpDir, "watermark.json"))
	lastSeen := time.Date(2025, 8, 25, 10, 30, 0, 0, time.UTC)

	if err := w.Save(lastSeen); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	mark, err := w.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if mark == nil {
		t.Fatal("expected mark, got nil")
	}
	if !mark.LastSeen.Equal(lastSeen) {
		t.Errorf("expected last_seen %v, got %v", lastSeen, mark.LastSeen)
	}
	if time.Since(mark.LastRun) > time.Minute {
		t.Errorf("last_run not near now: %v", mark.LastRun)
	}
}

func TestWatermarkFile_LoadCorrupt(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "mark-test-*")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(tmpDir)

	path := filepath.Join(tmpDir, "watermark.json")
	if err := os.WriteFile(path, []byte("{broken"), 0o644); err != nil {
		t.Fatal(err)
	}

	w := NewWatermarkFile(path)
	mark, err := w.Load()
	if err != nil {
		t.Fatalf("corrupt watermark should be absorbed: %v", err)
	}
	if mark != nil {
		t.Errorf("expected nil mark from corrupt file, got %+v", mark)
	}

	// Next save heals the file
	if err := w.Save(time.Now()); err != nil {
		t.Fatalf("save after corruption failed: %v", err)
	}
	if mark, _ := w.Load(); mark == nil {
		t.Error("expected mark after healing save")
	}
}

func TestCutoff(t *testing.T) {
	now := time.Date(2025, 8, 25, 12, 0, 0, 0, time.UTC)

	if got := Cutoff(nil, now); !got.Equal(now.Add(-24 * time.Hour)) {
		t.Errorf("absent mark: expected now-24h, got %v", got)
	}

	lastSeen := time.Date(2025, 8, 24, 18, 0, 0, 0, time.UTC)
	mark := &Watermark{LastSeen: lastSeen, LastRun: now}
	if got := Cutoff(mark, now); !got.Equal(lastSeen) {
		t.Errorf("present mark: expected %v, got %v", lastSeen, got)
	}
}

func TestFeed_HasURL(t *testing.T) {
	feed := &Feed{Items: []Article{
		{Title: "A", Link: "https://samakal.com/opinion/article/1"},
		{Title: "B", Link: "https://samakal.com/opinion/article/2"},
	}}

	if !feed.HasURL("https://samakal.com/opinion/article/1") {
		t.Error("expected HasURL to find existing link")
	}
	if feed.HasURL("https://samakal.com/opinion/article/3") {
		t.Error("expected HasURL to miss unknown link")
	}
}

func TestMemFeedStore_Isolation(t *testing.T) {
	store := NewMemFeedStore(testChannel)

	feed, err := store.Load()
	if err != nil {
		t.Fatal(err)
	}
	feed.Items = append(feed.Items, Article{Title: "A", Link: "https://example.org/1", Published: time.Now()})
	if err := store.Save(feed); err != nil {
		t.Fatal(err)
	}

	// Mutating the saved copy must not reach the store
	feed.Items[0].Title = "mutated"

	reloaded, err := store.Load()
	if err != nil {
		t.Fatal(err)
	}
	if reloaded.Items[0].Title != "A" {
		t.Errorf("store leaked caller mutation: %q", reloaded.Items[0].Title)
	}
	if store.Saves != 1 {
		t.Errorf("expected 1 save, got %d", store.Saves)
	}
}
