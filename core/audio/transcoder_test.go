package audio

import (
	"context"
	"strconv"
	"strings"
	"testing"
)

func TestSelectBitrate(t *testing.T) {
	tests := []struct {
		max  int
		want int
	}{
		{max: 0, want: 192},
		{max: 96, want: 96},
		{max: 100, want: 96},
		{max: 150, want: 128},
		{max: 160, want: 160},
		{max: 192, want: 192},
		{max: 10000, want: 192},
		{max: 50, want: 96},
	}

	for _, tt := range tests {
		t.Run(strconv.Itoa(tt.max), func(t *testing.T) {
			if got := SelectBitrate(tt.max); got != tt.want {
				t.Fatalf("SelectBitrate(%d): got %d, want %d", tt.max, got, tt.want)
			}
		})
	}
}

func TestTranscoderArgs(t *testing.T) {
	tr := NewTranscoder("ffmpeg")
	args := strings.Join(tr.args(128), " ")

	if !strings.Contains(args, "-b:a 131072") {
		t.Fatalf("bitrate not expanded: %s", args)
	}
	if !strings.Contains(args, "-c:a libopus") {
		t.Fatalf("codec missing: %s", args)
	}
	if !strings.Contains(args, "volume=replaygain=track") {
		t.Fatalf("loudness normalization missing: %s", args)
	}
	if !strings.Contains(args, "replaygain_track_gain=") || !strings.Contains(args, "r128_track_gain=") {
		t.Fatalf("tag removal missing: %s", args)
	}
	if !strings.HasSuffix(args, "-f opus -") {
		t.Fatalf("output spec missing: %s", args)
	}
}

// The pipeline must terminate cleanly when the child cannot be started at
// all, rather than hanging the response.
func TestTranscoderMissingBinary(t *testing.T) {
	tr := NewTranscoder("/nonexistent/ffmpeg")

	var out strings.Builder
	tr.Stream(context.Background(), strings.NewReader("source"), &out, 128)

	if out.Len() != 0 {
		t.Fatalf("unexpected output: %q", out.String())
	}
}
