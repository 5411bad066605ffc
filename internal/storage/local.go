// Package storage keeps the original spreadsheets behind import jobs.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// objectName builds a unique, filesystem and URL safe name for an upload.
func objectName(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	base = strings.Trim(unsafeNameChars.ReplaceAllString(base, "_"), "._")
	if base == "" {
		base = "upload"
	}
	if len(base) > 100 {
		base = base[len(base)-100:]
	}
	return uuid.NewString() + "-" + base
}

// Local stores uploads in a directory on disk.
type Local struct {
	dir string
}

// NewLocal creates the directory if needed.
func NewLocal(dir string) (*Local, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Local{dir: dir}, nil
}

// Save writes data under a new unique name and returns its path.
func (l *Local) Save(ctx context.Context, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	path := filepath.Join(l.dir, objectName(name))
	if err := os.WriteFile(path, data, 0o640); err != nil {
		return "", fmt.Errorf("write upload: %w", err)
	}
	return path, nil
}

// Delete removes a file written by Save. A missing file is not an error.
func (l *Local) Delete(_ context.Context, path string) error {
	rel, err := filepath.Rel(l.dir, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return fmt.Errorf("path %q is outside %s", path, l.dir)
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove upload: %w", err)
	}
	return nil
}
