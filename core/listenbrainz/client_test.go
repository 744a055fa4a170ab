package listenbrainz

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"sonicgate/model"
)

type capturedRequest struct {
	path string
	auth string
	body map[string]interface{}
}

func newCaptureServer(t *testing.T, captured *capturedRequest) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.path = r.URL.Path
		captured.auth = r.Header.Get("Authorization")

		b, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("failed to read body: %v", err)
		}
		if err := json.Unmarshal(b, &captured.body); err != nil {
			t.Errorf("failed to decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testSong() model.Song {
	return model.Song{
		Path:          "a/b.flac",
		Title:         "Roygbiv",
		Artist:        "Boards of Canada",
		Album:         "Music Has the Right to Children",
		Track:         8,
		Duration:      150,
		MBRecordingID: "12345678-90ab-cdef-1234-567890abcdef",
	}
}

func TestClientListen(t *testing.T) {
	var captured capturedRequest
	srv := newCaptureServer(t, &captured)

	c := NewClient("secret-token")
	c.SetBaseURL(srv.URL)

	if err := c.Listen(context.Background(), testSong(), 1234); err != nil {
		t.Fatalf("failed to submit listen: %v", err)
	}

	if captured.path != "/1/submit-listens" {
		t.Fatalf("unexpected path: %s", captured.path)
	}
	if captured.auth != "Token secret-token" {
		t.Fatalf("unexpected auth header: %s", captured.auth)
	}
	if captured.body["listen_type"] != "single" {
		t.Fatalf("unexpected listen type: %v", captured.body["listen_type"])
	}

	payload := captured.body["payload"].([]interface{})
	entry := payload[0].(map[string]interface{})
	if entry["listened_at"].(float64) != 1234 {
		t.Fatalf("unexpected timestamp: %v", entry["listened_at"])
	}

	meta := entry["track_metadata"].(map[string]interface{})
	if meta["artist_name"] != "Boards of Canada" || meta["track_name"] != "Roygbiv" {
		t.Fatalf("unexpected metadata: %v", meta)
	}

	info := meta["additional_info"].(map[string]interface{})
	if info["duration_ms"].(float64) != 150000 {
		t.Fatalf("unexpected duration: %v", info["duration_ms"])
	}
	if info["submission_client"] != submissionClient {
		t.Fatalf("unexpected submission client: %v", info["submission_client"])
	}
}

func TestClientPlayingNow(t *testing.T) {
	var captured capturedRequest
	srv := newCaptureServer(t, &captured)

	c := NewClient("secret-token")
	c.SetBaseURL(srv.URL)

	if err := c.PlayingNow(context.Background(), testSong()); err != nil {
		t.Fatalf("failed to submit playing now: %v", err)
	}

	if captured.body["listen_type"] != "playing_now" {
		t.Fatalf("unexpected listen type: %v", captured.body["listen_type"])
	}

	payload := captured.body["payload"].([]interface{})
	entry := payload[0].(map[string]interface{})
	if _, ok := entry["listened_at"]; ok {
		t.Fatal("playing_now must not carry a timestamp")
	}
}

func TestClientFeedback(t *testing.T) {
	var captured capturedRequest
	srv := newCaptureServer(t, &captured)

	c := NewClient("secret-token")
	c.SetBaseURL(srv.URL)

	if err := c.Feedback(context.Background(), testSong(), ScoreHate); err != nil {
		t.Fatalf("failed to submit feedback: %v", err)
	}

	if captured.path != "/1/feedback/recording-feedback" {
		t.Fatalf("unexpected path: %s", captured.path)
	}
	if captured.body["score"].(float64) != -1 {
		t.Fatalf("unexpected score: %v", captured.body["score"])
	}
	if captured.body["recording_mbid"] != testSong().MBRecordingID {
		t.Fatalf("unexpected recording MBID: %v", captured.body["recording_mbid"])
	}
}

func TestClientIncompleteTags(t *testing.T) {
	c := NewClient("secret-token")

	err := c.PlayingNow(context.Background(), model.Song{Path: "x.flac"})
	if !errors.Is(err, ErrIncompleteTags) {
		t.Fatalf("unexpected error: got %v, want %v", err, ErrIncompleteTags)
	}
}

func TestClientErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad token", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient("bad-token")
	c.SetBaseURL(srv.URL)

	if err := c.PlayingNow(context.Background(), testSong()); err == nil {
		t.Fatal("expected an error for a rejected submission")
	}
}
