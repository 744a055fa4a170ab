package library

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// httpLibrary serves songs from an HTTP(S) origin.
type httpLibrary struct {
	base   *url.URL
	client *http.Client
}

func newHTTPLibrary(base string) (*httpLibrary, error) {
	// A trailing slash keeps the last path segment of the origin when song
	// paths are resolved against it.
	u, err := url.Parse(strings.TrimSuffix(base, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("library: invalid origin URL: %w", err)
	}
	return &httpLibrary{
		base:   u,
		client: &http.Client{},
	}, nil
}

func (l *httpLibrary) OpenSong(ctx context.Context, path string) (io.ReadCloser, error) {
	// Build the reference from the raw path so reserved characters in song
	// paths are escaped rather than interpreted.
	ref := &url.URL{Path: path}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.base.ResolveReference(ref).String(), nil)
	if err != nil {
		return nil, fmt.Errorf("library: failed to build request: %w", err)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("library: failed to fetch %s: %w", path, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		resp.Body.Close()
		return nil, notFound(path)
	case resp.StatusCode != http.StatusOK:
		resp.Body.Close()
		return nil, fmt.Errorf("library: unexpected status %s fetching %s", resp.Status, path)
	}

	return resp.Body, nil
}
