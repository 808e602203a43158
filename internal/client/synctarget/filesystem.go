package synctarget

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dmitrijs2005/gophnotes/internal/filex"
)

// Filesystem stores files under a local directory, e.g. a folder synced by
// a third-party tool.
type Filesystem struct {
	root string
}

func NewFilesystem(root string) (*Filesystem, error) {
	if _, err := filex.EnsureDir(root); err != nil {
		return nil, err
	}
	return &Filesystem{root: root}, nil
}

func (f *Filesystem) resolve(p string) (string, error) {
	clean := path.Clean("/" + p)
	if clean == "/" {
		return "", fmt.Errorf("invalid path %q", p)
	}
	return filepath.Join(f.root, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), nil
}

func (f *Filesystem) Put(ctx context.Context, p string, content []byte) error {
	full, err := f.resolve(p)
	if err != nil {
		return err
	}
	if _, err := filex.EnsureDir(filepath.Dir(full)); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(full), ".put-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), full)
}

func (f *Filesystem) Get(ctx context.Context, p string) ([]byte, error) {
	full, err := f.resolve(p)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", p, ErrNotFound)
	}
	return b, err
}

func (f *Filesystem) Delete(ctx context.Context, p string) error {
	full, err := f.resolve(p)
	if err != nil {
		return err
	}
	return filex.RemoveIfExists(full)
}

func (f *Filesystem) List(ctx context.Context) ([]string, error) {
	var out []string
	err := filepath.WalkDir(f.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".put-") {
			return nil
		}
		rel, err := filepath.Rel(f.root, p)
		if err != nil {
			return err
		}
		out = append(out, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}
