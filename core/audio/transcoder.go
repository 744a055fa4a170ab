// Package audio implements the on-the-fly transcoding pipeline. Source
// bytes are piped through a child ffmpeg process that extracts the audio
// stream, applies ReplayGain-aware loudness normalization, strips the
// ReplayGain/R128 tags the normalization already consumed, and emits Opus at
// a bounded bitrate.
package audio

import (
	"context"
	"io"
	"os/exec"
	"sort"
	"strconv"

	"sonicgate/logger"
)

// Bitrates is the ascending ladder of permitted output bitrates in kbit/s.
var Bitrates = []int{96, 112, 128, 160, 192}

// SelectBitrate picks the greatest ladder entry not exceeding max. A max of
// zero, or one beyond the top of the ladder, selects the ladder maximum.
func SelectBitrate(max int) int {
	top := Bitrates[len(Bitrates)-1]
	if max <= 0 || max > top {
		return top
	}

	// First entry greater than max; the one before it is the answer.
	i := sort.SearchInts(Bitrates, max+1)
	if i == 0 {
		return Bitrates[0]
	}
	return Bitrates[i-1]
}

// Transcoder spawns ffmpeg child processes.
type Transcoder struct {
	ffmpegPath string
}

// NewTranscoder creates a Transcoder using the given ffmpeg binary.
func NewTranscoder(ffmpegPath string) *Transcoder {
	return &Transcoder{ffmpegPath: ffmpegPath}
}

// args builds the ffmpeg argument list for one transcode at bitrateKbps.
func (t *Transcoder) args(bitrateKbps int) []string {
	return []string{
		"-v", "0",
		"-i", "-",
		"-map", "0:a:0",
		"-vn",
		"-b:a", strconv.Itoa(bitrateKbps * 1024),
		"-c:a", "libopus",
		"-vbr", "on",
		"-af", "volume=replaygain=track:replaygain_preamp=6dB:replaygain_noclip=0, alimiter=level=disabled, asidedata=mode=delete:type=REPLAYGAIN",
		"-metadata", "replaygain_album_gain=",
		"-metadata", "replaygain_album_peak=",
		"-metadata", "replaygain_track_gain=",
		"-metadata", "replaygain_track_peak=",
		"-metadata", "r128_album_gain=",
		"-metadata", "r128_track_gain=",
		"-f", "opus",
		"-",
	}
}

// Stream copies src through a transcoding child process into dst until both
// directions hit EOF, then reaps the child. The child is killed when ctx is
// canceled, so a client disconnect cannot leave it running. Copy and wait
// failures are logged; they surface to the client as the stream ending.
func (t *Transcoder) Stream(ctx context.Context, src io.Reader, dst io.Writer, bitrateKbps int) {
	cmd := exec.CommandContext(ctx, t.ffmpegPath, t.args(bitrateKbps)...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		logger.Error("failed to open transcoder stdin", logger.ErrorField(err))
		return
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		logger.Error("failed to open transcoder stdout", logger.ErrorField(err))
		return
	}

	if err := cmd.Start(); err != nil {
		logger.Error("failed to start transcoder", logger.ErrorField(err))
		return
	}

	go func() {
		if _, err := io.Copy(stdin, src); err != nil {
			logger.Warn("transcoder input copy failed", logger.ErrorField(err))
		}
		stdin.Close()
	}()

	if _, err := io.Copy(dst, stdout); err != nil {
		logger.Warn("transcoder output copy failed", logger.ErrorField(err))
	}

	if err := cmd.Wait(); err != nil {
		logger.Warn("transcoder exited abnormally", logger.ErrorField(err))
	}
}
