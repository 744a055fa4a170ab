package model

import (
	"strconv"
	"strings"

	"sonicgate/core/mpd"
)

// Song represents one track of the MPD database, built from the attribute
// pairs of a database query response.
type Song struct {
	Path     string
	Title    string
	Artist   string
	Album    string
	Track    int
	Disc     int
	Year     int
	Genre    string
	Duration int // seconds

	// MusicBrainz identifiers, when tagged.
	MBArtistIDs   []string
	MBReleaseID   string
	MBRecordingID string
	MBTrackID     string
	MBWorkIDs     []string
}

// SongFromAttrs maps an MPD song response onto a Song.
func SongFromAttrs(attrs mpd.Attrs) Song {
	s := Song{
		Path:          attrs["file"],
		Title:         attrs["Title"],
		Artist:        attrs["Artist"],
		Album:         attrs["Album"],
		Genre:         attrs["Genre"],
		MBReleaseID:   attrs["MUSICBRAINZ_ALBUMID"],
		MBRecordingID: attrs["MUSICBRAINZ_TRACKID"],
		MBTrackID:     attrs["MUSICBRAINZ_RELEASETRACKID"],
	}

	s.Track = leadingInt(attrs["Track"])
	s.Disc = leadingInt(attrs["Disc"])
	s.Year = leadingInt(attrs["Date"])

	// MPD reports "duration" with sub-second precision and "Time" in whole
	// seconds; older servers only send the latter.
	if v, err := strconv.ParseFloat(attrs["duration"], 64); err == nil {
		s.Duration = int(v)
	} else if v, err := strconv.Atoi(attrs["Time"]); err == nil {
		s.Duration = v
	}

	if v := attrs["MUSICBRAINZ_ARTISTID"]; v != "" {
		s.MBArtistIDs = []string{v}
	}
	if v := attrs["MUSICBRAINZ_WORKID"]; v != "" {
		s.MBWorkIDs = []string{v}
	}

	return s
}

// leadingInt parses the leading integer of a value such as "4/12" (track
// number with total) or "2002-05-21" (date), returning 0 when there is none.
func leadingInt(v string) int {
	if i := strings.IndexAny(v, "/-"); i > 0 {
		v = v[:i]
	}
	n, _ := strconv.Atoi(v)
	return n
}
