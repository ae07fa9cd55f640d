package acquire

import (
	"bufio"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/multierr"
)

// File is an open log file. Writes are buffered until Flush.
type File interface {
	io.Writer
	Flush() error
	Close() error
}

// FS is the part of the filesystem the loop uses.
type FS interface {
	Create(name string) (File, error)
	IsFile(name string) bool
	Remove(name string) error
}

// OSFS is the host filesystem.
type OSFS struct{}

// Create creates (or truncates) name, creating its directory if needed.
func (OSFS) Create(name string) (File, error) {
	if err := os.MkdirAll(filepath.Dir(name), 0o755); err != nil {
		return nil, err
	}
	f, err := os.Create(name)
	if err != nil {
		return nil, err
	}
	return &osFile{f: f, w: bufio.NewWriter(f)}, nil
}

// IsFile reports whether name exists and is a regular file.
func (OSFS) IsFile(name string) bool {
	fi, err := os.Stat(name)
	return err == nil && fi.Mode().IsRegular()
}

func (OSFS) Remove(name string) error { return os.Remove(name) }

type osFile struct {
	f *os.File
	w *bufio.Writer
}

func (o *osFile) Write(p []byte) (int, error) { return o.w.Write(p) }

// Flush pushes buffered rows to the file and the file to disk.
func (o *osFile) Flush() error {
	if err := o.w.Flush(); err != nil {
		return err
	}
	return o.f.Sync()
}

func (o *osFile) Close() error {
	return multierr.Append(o.w.Flush(), o.f.Close())
}
