// Package ics serves events from a directory of iCalendar files.
//
// Files are parsed once per content checksum and cached; recurring events are
// expanded into single occurrences on every query.
package ics

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/starford/helix/internal/calendar"
	"github.com/starford/helix/internal/checksum"
	"github.com/starford/helix/internal/storage"
)

// Verify *Source satisfies calendar.Source at compile time.
var _ calendar.Source = (*Source)(nil)

type cachedFile struct {
	checksum string
	events   []vevent
}

// Source is a calendar.Source over an ICS directory.
type Source struct {
	fs     storage.Provider
	loc    *time.Location
	logger *slog.Logger

	mu    sync.RWMutex
	files map[string]cachedFile
}

// New creates a Source reading files from fs. Floating times and output
// timestamps use loc.
func New(fs storage.Provider, loc *time.Location, logger *slog.Logger) *Source {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{fs: fs, loc: loc, logger: logger, files: make(map[string]cachedFile)}
}

// Name implements calendar.Source.
func (s *Source) Name() string { return "ics" }

// Events implements calendar.Source.
func (s *Source) Events(ctx context.Context, from, to time.Time) ([]calendar.Event, error) {
	if err := s.Sync(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	names := make([]string, 0, len(s.files))
	for name := range s.files {
		names = append(names, name)
	}
	sort.Strings(names)
	out := []calendar.Event{}
	for _, name := range names {
		out = append(out, expand(s.files[name].events, from, to, s.loc, s.Name())...)
	}
	s.mu.RUnlock()
	return out, nil
}

// Sync brings the cache up to date with the directory:
//   - new or changed files are parsed
//   - files removed from disk are dropped
func (s *Source) Sync() error {
	metas, err := s.fs.List()
	if err != nil {
		return err
	}

	s.mu.RLock()
	known := make(map[string]string, len(s.files))
	for name, f := range s.files {
		known[name] = f.checksum
	}
	s.mu.RUnlock()

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Name] = struct{}{}
		if known[m.Name] == m.Checksum {
			continue
		}
		if _, err := s.load(m.Name); err != nil {
			s.logger.Warn("ics: load failed", slog.String("file", m.Name), slog.String("error", err.Error()))
		}
	}

	for name := range known {
		if _, ok := disk[name]; !ok {
			s.drop(name)
		}
	}
	return nil
}

// load parses one file and replaces its cache entry. It reports whether the
// content changed.
func (s *Source) load(name string) (bool, error) {
	data, err := s.fs.Read(name)
	if err != nil {
		return false, err
	}
	sum := checksum.Sum(data)

	s.mu.RLock()
	prev, ok := s.files[name]
	s.mu.RUnlock()
	if ok && prev.checksum == sum {
		return false, nil
	}

	events, skipped, err := parse(data, s.loc)
	if err != nil {
		// Keep the checksum so a broken file is not re-parsed on every query.
		s.mu.Lock()
		s.files[name] = cachedFile{checksum: sum}
		s.mu.Unlock()
		return true, err
	}
	for _, e := range skipped {
		s.logger.Debug("ics: event skipped", slog.String("file", name), slog.String("error", e.Error()))
	}

	s.mu.Lock()
	s.files[name] = cachedFile{checksum: sum, events: events}
	s.mu.Unlock()
	s.logger.Debug("ics: loaded", slog.String("file", name), slog.Int("events", len(events)))
	return true, nil
}

func (s *Source) drop(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.files[name]; !ok {
		return false
	}
	delete(s.files, name)
	s.logger.Debug("ics: removed", slog.String("file", name))
	return true
}
