package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/starford/helix/internal/apperr"
	"github.com/starford/helix/internal/checksum"
)

func tempDir(t *testing.T) *FS {
	t.Helper()
	fs, err := NewFS(t.TempDir())
	require.NoError(t, err)
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempDir(t)
	content := []byte("BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n")
	require.NoError(t, s.Write("work.ics", content))

	got, err := s.Read("work.ics")
	require.NoError(t, err)
	require.Equal(t, content, got)
}

func TestNewFS_CreatesMissingDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "calendars")
	s, err := NewFS(dir)
	require.NoError(t, err)
	info, err := os.Stat(s.Root())
	require.NoError(t, err)
	require.True(t, info.IsDir())
}

func TestDelete(t *testing.T) {
	s := tempDir(t)
	require.NoError(t, s.Write("old.ics", []byte("x")))
	require.NoError(t, s.Delete("old.ics"))

	_, err := s.Read("old.ics")
	require.ErrorIs(t, err, apperr.ErrNotFound)
	require.ErrorIs(t, s.Delete("old.ics"), apperr.ErrNotFound)
}

func TestList(t *testing.T) {
	s := tempDir(t)
	require.NoError(t, s.Write("b.ics", []byte("bbb")))
	require.NoError(t, s.Write("a.ICS", []byte("a")))
	require.NoError(t, os.WriteFile(filepath.Join(s.Root(), "notes.txt"), []byte("skip"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(s.Root(), "sub.ics"), 0o755))

	metas, err := s.List()
	require.NoError(t, err)
	require.Len(t, metas, 2)
	require.Equal(t, "a.ICS", metas[0].Name)
	require.Equal(t, "b.ics", metas[1].Name)
	require.EqualValues(t, 3, metas[1].Size)
	require.Equal(t, checksum.Sum([]byte("bbb")), metas[1].Checksum)
}

func TestListEmpty(t *testing.T) {
	metas, err := tempDir(t).List()
	require.NoError(t, err)
	require.NotNil(t, metas)
	require.Empty(t, metas)
}

func TestRejectsUnsafeNames(t *testing.T) {
	s := tempDir(t)
	for _, name := range []string{
		"",
		"../escape.ics",
		"sub/dir.ics",
		"/etc/passwd.ics",
		".hidden.ics",
		"notes.md",
	} {
		t.Run(name, func(t *testing.T) {
			require.ErrorIs(t, s.Write(name, []byte("x")), apperr.ErrInvalidInput)
			_, err := s.Read(name)
			require.ErrorIs(t, err, apperr.ErrInvalidInput)
		})
	}
}

func TestIsCalendarFile(t *testing.T) {
	require.True(t, IsCalendarFile("work.ics"))
	require.True(t, IsCalendarFile("WORK.ICS"))
	require.False(t, IsCalendarFile("work.ics.bak"))
	require.False(t, IsCalendarFile("ics"))
	require.False(t, IsCalendarFile("dir.ics/file"))
}
