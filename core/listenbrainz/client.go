// Package listenbrainz is a thin client for the ListenBrainz submission API,
// used to report played and rated tracks.
package listenbrainz

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"sonicgate/model"
)

const defaultBaseURL = "https://api.listenbrainz.org"

const (
	mediaPlayer      = "sonicgate"
	submissionClient = "sonicgate"
	clientVersion    = "1.0.0"
)

// Score is a recording feedback value.
type Score int

const (
	ScoreLove   Score = 1
	ScoreHate   Score = -1
	ScoreRemove Score = 0
)

// ErrIncompleteTags reports a song that cannot be submitted because it lacks
// the artist or title tag.
var ErrIncompleteTags = errors.New("listenbrainz: song is missing artist or title tags")

// Client submits listens and feedback on behalf of one user token.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a client authenticated with the given user token.
func NewClient(token string) *Client {
	return &Client{
		baseURL: defaultBaseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: time.Second * 10,
		},
	}
}

// SetBaseURL overrides the API base URL.
func (c *Client) SetBaseURL(url string) {
	c.baseURL = url
}

type trackMetadata struct {
	ArtistName     string          `json:"artist_name"`
	TrackName      string          `json:"track_name"`
	ReleaseName    string          `json:"release_name,omitempty"`
	AdditionalInfo *additionalInfo `json:"additional_info,omitempty"`
}

type additionalInfo struct {
	ArtistMBIDs             []string `json:"artist_mbids,omitempty"`
	ReleaseMBID             string   `json:"release_mbid,omitempty"`
	RecordingMBID           string   `json:"recording_mbid,omitempty"`
	TrackMBID               string   `json:"track_mbid,omitempty"`
	WorkMBIDs               []string `json:"work_mbids,omitempty"`
	TrackNumber             int      `json:"tracknumber,omitempty"`
	DurationMS              int      `json:"duration_ms,omitempty"`
	MediaPlayer             string   `json:"media_player"`
	SubmissionClient        string   `json:"submission_client"`
	SubmissionClientVersion string   `json:"submission_client_version"`
}

type listen struct {
	ListenedAt    int64         `json:"listened_at,omitempty"`
	TrackMetadata trackMetadata `json:"track_metadata"`
}

type submission struct {
	ListenType string   `json:"listen_type"`
	Payload    []listen `json:"payload"`
}

type feedback struct {
	RecordingMBID string `json:"recording_mbid,omitempty"`
	Score         Score  `json:"score"`
}

func metadataFromSong(song model.Song) (trackMetadata, error) {
	if song.Artist == "" || song.Title == "" {
		return trackMetadata{}, ErrIncompleteTags
	}

	return trackMetadata{
		ArtistName:  song.Artist,
		TrackName:   song.Title,
		ReleaseName: song.Album,
		AdditionalInfo: &additionalInfo{
			ArtistMBIDs:             song.MBArtistIDs,
			ReleaseMBID:             song.MBReleaseID,
			RecordingMBID:           song.MBRecordingID,
			TrackMBID:               song.MBTrackID,
			WorkMBIDs:               song.MBWorkIDs,
			TrackNumber:             song.Track,
			DurationMS:              song.Duration * 1000,
			MediaPlayer:             mediaPlayer,
			SubmissionClient:        submissionClient,
			SubmissionClientVersion: clientVersion,
		},
	}, nil
}

// PlayingNow reports the song as currently playing.
func (c *Client) PlayingNow(ctx context.Context, song model.Song) error {
	meta, err := metadataFromSong(song)
	if err != nil {
		return err
	}

	return c.post(ctx, "/1/submit-listens", submission{
		ListenType: "playing_now",
		Payload:    []listen{{TrackMetadata: meta}},
	})
}

// Listen reports the song as listened to at the given Unix timestamp.
func (c *Client) Listen(ctx context.Context, song model.Song, listenedAt int64) error {
	meta, err := metadataFromSong(song)
	if err != nil {
		return err
	}

	return c.post(ctx, "/1/submit-listens", submission{
		ListenType: "single",
		Payload:    []listen{{ListenedAt: listenedAt, TrackMetadata: meta}},
	})
}

// Feedback submits a recording feedback score for the song.
func (c *Client) Feedback(ctx context.Context, song model.Song, score Score) error {
	return c.post(ctx, "/1/feedback/recording-feedback", feedback{
		RecordingMBID: song.MBRecordingID,
		Score:         score,
	})
}

func (c *Client) post(ctx context.Context, path string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("listenbrainz: failed to encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("listenbrainz: failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("listenbrainz: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("listenbrainz: unexpected status %s", resp.Status)
	}
	return nil
}
