package storage

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/pders01/scrp/internal/debuglog"
	"github.com/pders01/scrp/internal/pubdate"
)

// FeedStore loads and saves the rolling feed. The file-backed
// implementation is FeedFile; tests substitute MemFeedStore.
type FeedStore interface {
	Load() (*Feed, error)
	Save(*Feed) error
}

// WatermarkStore loads and saves the delta high-water mark.
type WatermarkStore interface {
	Load() (*Watermark, error)
	Save(lastSeen time.Time) error
}

// FeedFile persists a Feed as an RSS 2.0 document. Reads go through
// gofeed so hand-edited or foreign files still load; writes are
// deterministic and atomic. Load never fails the run: missing or
// corrupt files yield an empty feed.
type FeedFile struct {
	path       string
	channel    Channel
	normalizer *pubdate.Normalizer
	parser     *gofeed.Parser
}

func NewFeedFile(path string, channel Channel) *FeedFile {
	return &FeedFile{
		path:       path,
		channel:    channel,
		normalizer: pubdate.NewNormalizer(),
		parser:     gofeed.NewParser(),
	}
}

func (s *FeedFile) Load() (*Feed, error) {
	feed := &Feed{
		Title:       s.channel.Title,
		Link:        s.channel.Link,
		Description: s.channel.Description,
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			debuglog.Warnf("feed file %s unreadable, starting empty: %v", s.path, err)
		}
		return feed, nil
	}

	parsed, err := s.parser.Parse(bytes.NewReader(data))
	if err != nil {
		debuglog.Warnf("feed file %s corrupt, starting empty: %v", s.path, err)
		return feed, nil
	}

	for _, item := range parsed.Items {
		link := strings.TrimSpace(item.Link)
		title := strings.TrimSpace(item.Title)
		if link == "" || title == "" {
			debuglog.Warnf("dropping stored item with missing link or title (link=%q)", link)
			continue
		}

		var published time.Time
		if item.PublishedParsed != nil {
			published = item.PublishedParsed.UTC()
		} else {
			published = s.normalizer.Normalize(item.Published)
		}

		feed.Items = append(feed.Items, Article{
			Title:       title,
			Link:        link,
			Description: strings.TrimSpace(item.Description),
			Published:   published,
			ImageURL:    itemImageURL(item),
		})
	}

	return feed, nil
}

func itemImageURL(item *gofeed.Item) string {
	for _, enc := range item.Enclosures {
		if enc == nil || enc.URL == "" {
			continue
		}
		if enc.Type == "" || strings.HasPrefix(enc.Type, "image/") {
			return enc.URL
		}
	}
	if item.Image != nil {
		return item.Image.URL
	}
	return ""
}

// Save writes the feed with a fixed element order and pubDate format,
// so saving the same feed twice yields byte-identical files.
func (s *FeedFile) Save(feed *Feed) error {
	doc := rssDoc{
		Version: "2.0",
		Channel: rssChannel{
			Title:       feed.Title,
			Link:        feed.Link,
			Description: feed.Description,
		},
	}

	for i := range feed.Items {
		a := &feed.Items[i]
		item := rssItem{
			Title:       a.Title,
			Link:        a.Link,
			Description: a.Description,
			PubDate:     a.Published.UTC().Format(time.RFC1123Z),
		}
		if a.ImageURL != "" {
			item.Enclosure = &rssEnclosure{URL: a.ImageURL, Type: imageMIME(a.ImageURL)}
		}
		doc.Channel.Items = append(doc.Channel.Items, item)
	}

	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding feed: %w", err)
	}

	data := append([]byte(xml.Header), body...)
	data = append(data, '\n')

	if err := WriteFileAtomic(s.path, data, 0o644); err != nil {
		return fmt.Errorf("writing feed file: %w", err)
	}
	return nil
}

type rssDoc struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title       string    `xml:"title"`
	Link        string    `xml:"link"`
	Description string    `xml:"description"`
	Items       []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string        `xml:"title"`
	Link        string        `xml:"link"`
	Description string        `xml:"description"`
	PubDate     string        `xml:"pubDate"`
	Enclosure   *rssEnclosure `xml:"enclosure,omitempty"`
}

type rssEnclosure struct {
	URL  string `xml:"url,attr"`
	Type string `xml:"type,attr"`
}

func imageMIME(link string) string {
	l := strings.ToLower(link)
	if i := strings.IndexAny(l, "?#"); i >= 0 {
		l = l[:i]
	}
	switch {
	case strings.HasSuffix(l, ".png"):
		return "image/png"
	case strings.HasSuffix(l, ".gif"):
		return "image/gif"
	case strings.HasSuffix(l, ".webp"):
		return "image/webp"
	default:
		return "image/jpeg"
	}
}
