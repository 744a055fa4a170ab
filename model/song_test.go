package model

import (
	"testing"

	"sonicgate/core/mpd"
)

func TestSongFromAttrs(t *testing.T) {
	song := SongFromAttrs(mpd.Attrs{
		"file":                "a/b.flac",
		"Title":               "B",
		"Artist":              "Someone",
		"Album":               "Collected",
		"Track":               "4/12",
		"Disc":                "2",
		"Date":                "2002-05-21",
		"Genre":               "Ambient",
		"duration":            "100.534",
		"Time":                "100",
		"MUSICBRAINZ_TRACKID": "rec-1",
	})

	if song.Path != "a/b.flac" || song.Title != "B" || song.Artist != "Someone" {
		t.Fatalf("unexpected song: %+v", song)
	}
	if song.Track != 4 || song.Disc != 2 || song.Year != 2002 {
		t.Fatalf("unexpected numbers: %+v", song)
	}
	if song.Duration != 100 {
		t.Fatalf("unexpected duration: %d", song.Duration)
	}
	if song.MBRecordingID != "rec-1" {
		t.Fatalf("unexpected recording id: %q", song.MBRecordingID)
	}
}

// Older servers only report whole-second Time.
func TestSongFromAttrsTimeFallback(t *testing.T) {
	song := SongFromAttrs(mpd.Attrs{"file": "a.flac", "Time": "245"})
	if song.Duration != 245 {
		t.Fatalf("unexpected duration: %d", song.Duration)
	}
}

func TestLeadingInt(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{in: "4/12", want: 4},
		{in: "2002-05-21", want: 2002},
		{in: "7", want: 7},
		{in: "", want: 0},
		{in: "x", want: 0},
	}

	for _, tt := range tests {
		if got := leadingInt(tt.in); got != tt.want {
			t.Errorf("leadingInt(%q): got %d, want %d", tt.in, got, tt.want)
		}
	}
}
