package extract

import (
	"fmt"
	"html"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"

	"github.com/pders01/scrp/internal/debuglog"
	"github.com/pders01/scrp/internal/feed"
)

// Selectors locate the article parts inside a listing page. Title is a
// cascade: the first selector with a non-empty match wins.
type Selectors struct {
	Article     string
	Title       []string
	Description string
	Published   string
	Image       string
}

const maxDescriptionRunes = 2048

var (
	stripPolicy  = bluemonday.StrictPolicy()
	whitespaceRE = regexp.MustCompile(`\s+`)
)

// FromHTML pulls article stubs out of listing-page HTML in document
// order. Relative links resolve against base. Cards without a
// resolvable href or a title are dropped here; duplicate hrefs keep
// the first occurrence.
func FromHTML(doc string, sel Selectors, base *url.URL) ([]feed.Raw, error) {
	d, err := goquery.NewDocumentFromReader(strings.NewReader(doc))
	if err != nil {
		return nil, fmt.Errorf("parsing listing page: %w", err)
	}

	var raws []feed.Raw
	seen := make(map[string]struct{})

	d.Find(sel.Article).Each(func(_ int, card *goquery.Selection) {
		href, ok := card.Attr("href")
		if !ok {
			return
		}
		link := resolveURL(base, href)
		if link == "" {
			debuglog.Warnf("skipping card with unresolvable href %q", href)
			return
		}
		if _, dup := seen[link]; dup {
			return
		}

		title := firstText(card, sel.Title)
		if title == "" {
			debuglog.Warnf("skipping untitled card %s", link)
			return
		}
		seen[link] = struct{}{}

		raw := feed.Raw{
			URL:   link,
			Title: title,
		}
		if sel.Description != "" {
			raw.Description = cleanText(card.Find(sel.Description).First().Text())
		}
		if sel.Published != "" {
			raw.PublishedText = strings.TrimSpace(card.Find(sel.Published).First().Text())
		}
		if sel.Image != "" {
			if src, ok := card.Find(sel.Image).First().Attr("src"); ok {
				raw.ImageURL = resolveURL(base, src)
			}
		}

		raws = append(raws, raw)
	})

	return raws, nil
}

func firstText(card *goquery.Selection, cascade []string) string {
	for _, s := range cascade {
		if s == "" {
			continue
		}
		if text := cleanText(card.Find(s).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

// cleanText strips markup and entities, collapses whitespace, and caps
// the length rune-wise (descriptions are often non-ASCII scripts).
func cleanText(s string) string {
	s = stripPolicy.Sanitize(s)
	s = html.UnescapeString(s)
	s = whitespaceRE.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	if runes := []rune(s); len(runes) > maxDescriptionRunes {
		s = strings.TrimSpace(string(runes[:maxDescriptionRunes]))
	}
	return s
}

func resolveURL(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}

	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}

	resolved := ref
	if base != nil {
		resolved = base.ResolveReference(ref)
	}
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}
	return resolved.String()
}
