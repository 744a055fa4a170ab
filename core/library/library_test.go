package library

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestFSLibrary(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "a"), 0755); err != nil {
		t.Fatalf("failed to create directory: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "a", "b.flac"), []byte("song bytes"), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	lib, err := Open(Config{URL: root})
	if err != nil {
		t.Fatalf("failed to open library: %v", err)
	}

	ctx := context.Background()

	rc, err := lib.OpenSong(ctx, "a/b.flac")
	if err != nil {
		t.Fatalf("failed to open song: %v", err)
	}
	defer rc.Close()

	b, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("failed to read song: %v", err)
	}
	if string(b) != "song bytes" {
		t.Fatalf("unexpected content: %q", b)
	}

	if _, err := lib.OpenSong(ctx, "a/missing.flac"); !IsNotFound(err) {
		t.Fatalf("unexpected error: got %v, want not found", err)
	}
}

func TestFSLibraryBadRoot(t *testing.T) {
	if _, err := Open(Config{URL: filepath.Join(t.TempDir(), "missing")}); err == nil {
		t.Fatal("expected an error for a missing root")
	}
}

func TestHTTPLibrary(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/music/a.flac" {
			http.NotFound(w, r)
			return
		}
		io.WriteString(w, "song bytes")
	}))
	defer srv.Close()

	lib, err := Open(Config{URL: srv.URL + "/music/"})
	if err != nil {
		t.Fatalf("failed to open library: %v", err)
	}

	ctx := context.Background()

	rc, err := lib.OpenSong(ctx, "a.flac")
	if err != nil {
		t.Fatalf("failed to open song: %v", err)
	}
	defer rc.Close()

	b, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("failed to read song: %v", err)
	}
	if string(b) != "song bytes" {
		t.Fatalf("unexpected content: %q", b)
	}

	if _, err := lib.OpenSong(ctx, "missing.flac"); !IsNotFound(err) {
		t.Fatalf("unexpected error: got %v, want not found", err)
	}

	// The last origin segment must survive resolution even without a
	// trailing slash.
	lib, err = Open(Config{URL: srv.URL + "/music"})
	if err != nil {
		t.Fatalf("failed to open library: %v", err)
	}
	rc, err = lib.OpenSong(ctx, "a.flac")
	if err != nil {
		t.Fatalf("failed to open song: %v", err)
	}
	rc.Close()
}

func TestOpenScheme(t *testing.T) {
	if _, err := Open(Config{}); err == nil {
		t.Fatal("expected an error for an empty location")
	}

	if _, err := Open(Config{URL: "s3://endpoint-only"}); err == nil {
		t.Fatal("expected an error for an s3 URL without a bucket")
	}

	lib, err := Open(Config{URL: "s3://localhost:9000/music", AccessKey: "a", SecretKey: "b"})
	if err != nil {
		t.Fatalf("failed to build s3 library: %v", err)
	}
	if _, ok := lib.(*s3Library); !ok {
		t.Fatalf("unexpected library type %T", lib)
	}
}
