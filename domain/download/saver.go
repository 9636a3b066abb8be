package download

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// DirSaver writes downloads into a directory
type DirSaver struct {
	Dir string

	// Path of the last file written
	LastPath string
}

// NewDirSaver creates a saver for dir; an empty dir means the working directory
func NewDirSaver(dir string) *DirSaver {
	if dir == "" {
		dir = "."
	}
	return &DirSaver{Dir: dir}
}

// Save creates Dir/file.Name and copies the content into it. Existing files
// are never overwritten.
func (d *DirSaver) Save(_ context.Context, file File) error {
	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return fmt.Errorf("creating download directory: %w", err)
	}

	path := filepath.Join(d.Dir, filepath.Base(file.Name))
	out, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, file.Content); err != nil {
		out.Close()
		os.Remove(path)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(path)
		return err
	}

	d.LastPath = path
	return nil
}
