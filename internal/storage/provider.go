// Package storage provides sandboxed access to the local calendar directory.
package storage

import (
	"strings"
	"time"
)

// Ext is the extension of calendar files.
const Ext = ".ics"

// FileMeta describes one calendar file.
type FileMeta struct {
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Provider is the interface for calendar file operations. Names are relative
// to the directory root.
type Provider interface {
	// List returns metadata for every calendar file, sorted by name.
	List() ([]FileMeta, error)
	// Read returns the raw bytes of the named file.
	Read(name string) ([]byte, error)
	// Write atomically replaces the named file.
	Write(name string, content []byte) error
	// Delete removes the named file.
	Delete(name string) error
	// Root is the absolute directory path, used by the watcher.
	Root() string
}

// IsCalendarFile reports whether name has the calendar extension.
func IsCalendarFile(name string) bool {
	return strings.EqualFold(filepathExt(name), Ext)
}

func filepathExt(name string) string {
	i := strings.LastIndexByte(name, '.')
	if i < 0 || strings.ContainsAny(name[i:], `/\`) {
		return ""
	}
	return name[i:]
}
