package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/pders01/scrp/internal/debuglog"
)

// DefaultLookback is how far back the first delta run reaches when no
// watermark exists yet.
const DefaultLookback = 24 * time.Hour

// WatermarkFile persists the Watermark as a small JSON document with
// RFC 3339 instants, written atomically.
type WatermarkFile struct {
	path    string
	nowFunc func() time.Time
}

func NewWatermarkFile(path string) *WatermarkFile {
	return &WatermarkFile{path: path, nowFunc: time.Now}
}

// Load returns nil when no usable watermark exists. A corrupt file is
// treated the same and heals on the next Save.
func (w *WatermarkFile) Load() (*Watermark, error) {
	data, err := os.ReadFile(w.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			debuglog.Warnf("watermark file %s unreadable, treating as absent: %v", w.path, err)
		}
		return nil, nil
	}

	var mark Watermark
	if err := json.Unmarshal(data, &mark); err != nil {
		debuglog.Warnf("watermark file %s corrupt, treating as absent: %v", w.path, err)
		return nil, nil
	}
	if mark.LastSeen.IsZero() {
		debuglog.Warnf("watermark file %s has no last_seen, treating as absent", w.path)
		return nil, nil
	}

	return &mark, nil
}

func (w *WatermarkFile) Save(lastSeen time.Time) error {
	mark := Watermark{
		LastSeen: lastSeen.UTC(),
		LastRun:  w.nowFunc().UTC(),
	}

	data, err := json.MarshalIndent(&mark, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding watermark: %w", err)
	}
	data = append(data, '\n')

	if err := WriteFileAtomic(w.path, data, 0o644); err != nil {
		return fmt.Errorf("writing watermark file: %w", err)
	}
	return nil
}

// Cutoff resolves the delta boundary: the recorded high-water instant,
// or now minus DefaultLookback when no watermark exists.
func Cutoff(mark *Watermark, now time.Time) time.Time {
	if mark == nil {
		return now.Add(-DefaultLookback).UTC()
	}
	return mark.LastSeen.UTC()
}
