package storage

import "time"

// MemFeedStore keeps a feed in memory. It backs tests that exercise
// merge and delta behavior without touching the filesystem.
type MemFeedStore struct {
	channel Channel
	feed    *Feed

	SaveErr error // when set, Save fails with this error
	Saves   int
}

func NewMemFeedStore(channel Channel) *MemFeedStore {
	return &MemFeedStore{channel: channel}
}

func (s *MemFeedStore) Load() (*Feed, error) {
	if s.feed == nil {
		return &Feed{
			Title:       s.channel.Title,
			Link:        s.channel.Link,
			Description: s.channel.Description,
		}, nil
	}
	return copyFeed(s.feed), nil
}

func (s *MemFeedStore) Save(feed *Feed) error {
	if s.SaveErr != nil {
		return s.SaveErr
	}
	s.feed = copyFeed(feed)
	s.Saves++
	return nil
}

func copyFeed(f *Feed) *Feed {
	dup := *f
	dup.Items = append([]Article(nil), f.Items...)
	return &dup
}

// MemWatermarkStore is the in-memory WatermarkStore counterpart.
type MemWatermarkStore struct {
	mark    *Watermark
	nowFunc func() time.Time

	SaveErr error
	Saves   int
}

func NewMemWatermarkStore() *MemWatermarkStore {
	return &MemWatermarkStore{nowFunc: time.Now}
}

func (s *MemWatermarkStore) Load() (*Watermark, error) {
	if s.mark == nil {
		return nil, nil
	}
	dup := *s.mark
	return &dup, nil
}

func (s *MemWatermarkStore) Save(lastSeen time.Time) error {
	if s.SaveErr != nil {
		return s.SaveErr
	}
	s.mark = &Watermark{LastSeen: lastSeen.UTC(), LastRun: s.nowFunc().UTC()}
	s.Saves++
	return nil
}

// SetMark seeds the store for tests.
func (s *MemWatermarkStore) SetMark(lastSeen time.Time) {
	s.mark = &Watermark{LastSeen: lastSeen.UTC(), LastRun: lastSeen.UTC()}
}
