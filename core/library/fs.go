package library

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// fsLibrary serves songs from a local filesystem root.
type fsLibrary struct {
	root string
}

func newFSLibrary(root string) (*fsLibrary, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("library: failed to open root %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("library: root %s is not a directory", root)
	}
	return &fsLibrary{root: root}, nil
}

func (l *fsLibrary) OpenSong(_ context.Context, path string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(l.root, filepath.FromSlash(path)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, notFound(path)
		}
		return nil, fmt.Errorf("library: failed to open %s: %w", path, err)
	}
	return f, nil
}
