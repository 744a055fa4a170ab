// Package library provides access to the raw bytes of songs in the music
// library. The library sits next to the MPD server: MPD knows the metadata,
// the library serves the file contents, keyed by the same database path.
package library

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrNotFound reports that the library holds no song under the given path.
var ErrNotFound = errors.New("library: song not found")

// A Library returns an open byte stream for a song path. Implementations
// must be safe for concurrent use.
type Library interface {
	OpenSong(ctx context.Context, path string) (io.ReadCloser, error)
}

// Config carries the settings needed to construct a Library.
type Config struct {
	// URL locates the library: an http(s):// origin, an s3://endpoint/bucket
	// object store, or a plain filesystem path.
	URL string

	// Object-store credentials, used only for the s3 scheme.
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// Open builds the Library implementation matching the configured URL scheme.
func Open(cfg Config) (Library, error) {
	switch {
	case cfg.URL == "":
		return nil, errors.New("library: no location configured")
	case strings.HasPrefix(cfg.URL, "http://"), strings.HasPrefix(cfg.URL, "https://"):
		return newHTTPLibrary(cfg.URL)
	case strings.HasPrefix(cfg.URL, "s3://"):
		return newS3Library(cfg)
	default:
		return newFSLibrary(cfg.URL)
	}
}

// IsNotFound reports whether an error means the song does not exist, as
// opposed to a transport failure.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func notFound(path string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, path)
}
