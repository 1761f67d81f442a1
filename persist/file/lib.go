// Package file stores snapshot nodes as files in a directory.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Persist implements the parchment.Persist interface for storing and
// loading snapshot nodes from files. Nodes are spread over subdirectories
// named after the first two characters of their links.
type Persist struct {
	basepath string
}

// NewPersistForPath returns a Persist that loads and stores nodes as
// files under the directory at the given path, creating it if needed.
//
//	p, err := NewPersistForPath("/var/db/documents")
//	b, err := p.Load(ctx, "mJ0V6bQk1tq8LzqPVx4Q8b3R5J7hHc7G9nZ3hW2sYk0")
func NewPersistForPath(path string) (*Persist, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	return &Persist{path}, nil
}

func (p *Persist) path(name string) (string, error) {
	if len(name) < 3 || strings.ContainsAny(name, `/\.`) {
		return "", fmt.Errorf("invalid node name %q", name)
	}
	return filepath.Join(p.basepath, name[:2], name), nil
}

// Load loads the bytes persisted in the named file.
func (p *Persist) Load(ctx context.Context, name string) ([]byte, error) {
	path, err := p.path(name)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}
	return b, nil
}

// Store persists the given bytes in a file of the given name, if it
// doesn't exist already. The file appears atomically.
func (p *Persist) Store(ctx context.Context, name string, b []byte) error {
	path, err := p.path(name)
	if err != nil {
		return err
	}
	if _, err = os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("store %s: %w", name, err)
	}
	dir := filepath.Dir(path)
	if err = os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("store %s: %w", name, err)
	}
	tmp, err := os.CreateTemp(dir, name+"-*")
	if err != nil {
		return fmt.Errorf("store %s: %w", name, err)
	}
	_, err = tmp.Write(b)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Rename(tmp.Name(), path)
	}
	if err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("store %s: %w", name, err)
	}
	return nil
}
