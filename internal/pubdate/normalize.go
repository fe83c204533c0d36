package pubdate

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// relativePattern matches shorthand ages like "32m", "2 H" or "3d".
// Spelled-out units ("32 minutes") intentionally do not match.
var relativePattern = regexp.MustCompile(`(?i)^(\d+)\s*([mhd])$`)

// feedLayouts cover the RFC-822 date family as RSS feeds emit it,
// including the non-padded day variants seen in the wild. The zoneless
// form parses as UTC.
var feedLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"Mon, 2 Jan 2006 15:04:05",
}

// siteLayouts are the absolute formats listing pages print. Zoneless,
// so they parse as UTC.
var siteLayouts = []string{
	"Jan 2, 2006 3:04 PM",
	"2 Jan 2006 15:04:05",
	"2006-01-02 15:04:05",
}

// Normalizer converts free-form publish text into a concrete UTC
// instant. It never fails: input nothing in the cascade recognizes
// resolves to the current time.
type Normalizer struct {
	nowFunc func() time.Time
}

func NewNormalizer() *Normalizer {
	return NewNormalizerWithClock(time.Now)
}

// NewNormalizerWithClock pins the normalizer's clock. Relative
// durations and fallbacks resolve against it.
func NewNormalizerWithClock(now func() time.Time) *Normalizer {
	return &Normalizer{nowFunc: now}
}

// Normalize resolves text in recognition order: relative durations,
// RFC-822 style dates, known absolute layouts, then "now".
func (n *Normalizer) Normalize(text string) time.Time {
	now := n.nowFunc().UTC()

	text = strings.TrimSpace(text)
	if text == "" {
		return now
	}

	if d, ok := parseRelative(text); ok {
		return now.Add(-d)
	}

	for _, layout := range feedLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return t.UTC()
		}
	}

	for _, layout := range siteLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return t.UTC()
		}
	}

	return now
}

// Now returns the normalizer's view of the current UTC instant.
func (n *Normalizer) Now() time.Time {
	return n.nowFunc().UTC()
}

func parseRelative(s string) (time.Duration, bool) {
	m := relativePattern.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}

	value, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}

	var unit time.Duration
	switch strings.ToLower(m[2]) {
	case "m":
		unit = time.Minute
	case "h":
		unit = time.Hour
	case "d":
		unit = 24 * time.Hour
	}

	return time.Duration(value) * unit, true
}
