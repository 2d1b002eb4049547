package ics

import (
	"errors"
	"fmt"
	"time"

	"github.com/starford/helix/internal/apperr"
	"github.com/starford/helix/internal/checksum"
	"github.com/starford/helix/internal/storage"
)

// Files lists the calendar files in the directory.
func (s *Source) Files() ([]storage.FileMeta, error) {
	return s.fs.List()
}

// Put writes content to name, creating or replacing the file, and refreshes
// the cache entry. A non-empty ifMatch must equal the checksum of the current
// file or apperr.ErrConflict is returned. Content that does not parse as a
// calendar is rejected with apperr.ErrInvalidInput and nothing is written.
func (s *Source) Put(name string, content []byte, ifMatch string) (storage.FileMeta, bool, error) {
	if _, _, err := parse(content, s.loc); err != nil {
		return storage.FileMeta{}, false, fmt.Errorf("%w: %w", apperr.ErrInvalidInput, err)
	}

	created := false
	existing, err := s.fs.Read(name)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		created = true
		if ifMatch != "" {
			return storage.FileMeta{}, false, apperr.ErrConflict
		}
	case err != nil:
		return storage.FileMeta{}, false, err
	case ifMatch != "" && ifMatch != checksum.Sum(existing):
		return storage.FileMeta{}, false, apperr.ErrConflict
	}

	if err := s.fs.Write(name, content); err != nil {
		return storage.FileMeta{}, false, err
	}
	if _, err := s.load(name); err != nil {
		return storage.FileMeta{}, false, err
	}
	return storage.FileMeta{
		Name:      name,
		Size:      int64(len(content)),
		Checksum:  checksum.Sum(content),
		UpdatedAt: time.Now().UTC(),
	}, created, nil
}

// Remove deletes name from the directory and the cache.
func (s *Source) Remove(name string) error {
	if err := s.fs.Delete(name); err != nil {
		return err
	}
	s.drop(name)
	return nil
}
