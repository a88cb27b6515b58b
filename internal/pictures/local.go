package pictures

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Local stores pictures in a directory served under urlPrefix.
type Local struct {
	dir       string
	urlPrefix string
}

// NewLocal creates the directory if needed.
func NewLocal(dir, urlPrefix string) (*Local, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create picture dir: %w", err)
	}
	return &Local{dir: dir, urlPrefix: strings.TrimSuffix(urlPrefix, "/")}, nil
}

// Dir returns the storage directory.
func (l *Local) Dir() string { return l.dir }

// Put implements Store.
func (l *Local) Put(_ context.Context, name string, data []byte, _ string) error {
	return os.WriteFile(filepath.Join(l.dir, filepath.Base(name)), data, 0o644)
}

// Delete implements Store.
func (l *Local) Delete(_ context.Context, name string) error {
	err := os.Remove(filepath.Join(l.dir, filepath.Base(name)))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// URL implements Store.
func (l *Local) URL(name string) string {
	return l.urlPrefix + "/" + name
}
