// Package entity implements the opaque identifier codec used to address MPD
// entities through the Subsonic API. An identifier is the canonical compact
// JSON form of its fields, encoded with URL-safe base64. Tokens are stateless:
// they are computed from backend query results or request parameters, never
// stored.
package entity

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSerialization reports a failure to serialize an in-memory ID. It
	// must not occur for well-formed values; seeing it is a defect.
	ErrSerialization = errors.New("entity: serialization failed")
	// ErrDecoding reports a token that is not valid base64.
	ErrDecoding = errors.New("entity: token is not valid base64")
	// ErrDeserialization reports a token whose decoded JSON does not match
	// the expected variant shape.
	ErrDeserialization = errors.New("entity: token does not match expected shape")
)

// coverArtPrefix is prepended to playlist cover-art tokens by one known
// client. Decoding tolerates it by stripping it before base64 decoding.
const coverArtPrefix = "pl-"

func encodeToken(v interface{}) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// decodeToken reverses encodeToken and returns the decoded fields. The
// returned map is validated against the expected key set by each variant.
func decodeToken(token string) (map[string]string, error) {
	b, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecoding, err)
	}

	var m map[string]string
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeserialization, err)
	}
	return m, nil
}

// fields extracts exactly the given keys from a decoded token, failing when a
// key is absent or the token carries extra fields.
func fields(m map[string]string, keys ...string) ([]string, error) {
	if len(m) != len(keys) {
		return nil, fmt.Errorf("%w: got %d fields, want %d", ErrDeserialization, len(m), len(keys))
	}

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		v, ok := m[k]
		if !ok {
			return nil, fmt.Errorf("%w: missing field %q", ErrDeserialization, k)
		}
		out = append(out, v)
	}
	return out, nil
}

// ArtistID identifies an artist by name.
type ArtistID struct {
	Name string
}

type artistWire struct {
	Name string `json:"name"`
}

// Token returns the encoded form of the ID.
func (id ArtistID) Token() (string, error) {
	return encodeToken(artistWire{Name: id.Name})
}

// MarshalText renders the ID as its token, for XML attributes, XML character
// data and JSON strings alike.
func (id ArtistID) MarshalText() ([]byte, error) {
	t, err := id.Token()
	return []byte(t), err
}

// ParseArtistID decodes an artist token.
func ParseArtistID(token string) (ArtistID, error) {
	m, err := decodeToken(token)
	if err != nil {
		return ArtistID{}, err
	}
	f, err := fields(m, "name")
	if err != nil {
		return ArtistID{}, err
	}
	return ArtistID{Name: f[0]}, nil
}

// AlbumID identifies an album by name and artist.
type AlbumID struct {
	Name   string
	Artist string
}

type albumWire struct {
	Name   string `json:"name"`
	Artist string `json:"artist"`
}

// Token returns the encoded form of the ID.
func (id AlbumID) Token() (string, error) {
	return encodeToken(albumWire{Name: id.Name, Artist: id.Artist})
}

func (id AlbumID) MarshalText() ([]byte, error) {
	t, err := id.Token()
	return []byte(t), err
}

// ParseAlbumID decodes an album token.
func ParseAlbumID(token string) (AlbumID, error) {
	m, err := decodeToken(token)
	if err != nil {
		return AlbumID{}, err
	}
	f, err := fields(m, "name", "artist")
	if err != nil {
		return AlbumID{}, err
	}
	return AlbumID{Name: f[0], Artist: f[1]}, nil
}

// SongID identifies a song by its path in the MPD database.
type SongID struct {
	Path string
}

type songWire struct {
	Path string `json:"path"`
}

// Token returns the encoded form of the ID.
func (id SongID) Token() (string, error) {
	return encodeToken(songWire{Path: id.Path})
}

func (id SongID) MarshalText() ([]byte, error) {
	t, err := id.Token()
	return []byte(t), err
}

// ParseSongID decodes a song token.
func ParseSongID(token string) (SongID, error) {
	m, err := decodeToken(token)
	if err != nil {
		return SongID{}, err
	}
	f, err := fields(m, "path")
	if err != nil {
		return SongID{}, err
	}
	return SongID{Path: f[0]}, nil
}

// PlaylistID identifies a stored playlist by name.
type PlaylistID struct {
	Name string
}

type playlistWire struct {
	Name string `json:"name"`
}

// Token returns the encoded form of the ID.
func (id PlaylistID) Token() (string, error) {
	return encodeToken(playlistWire{Name: id.Name})
}

func (id PlaylistID) MarshalText() ([]byte, error) {
	t, err := id.Token()
	return []byte(t), err
}

// ParsePlaylistID decodes a playlist token.
func ParsePlaylistID(token string) (PlaylistID, error) {
	m, err := decodeToken(token)
	if err != nil {
		return PlaylistID{}, err
	}
	f, err := fields(m, "name")
	if err != nil {
		return PlaylistID{}, err
	}
	return PlaylistID{Name: f[0]}, nil
}

// CoverArtID addresses an artwork source: either a song file directly, or a
// playlist whose first track provides the artwork. Exactly one of Path and
// Playlist is set.
type CoverArtID struct {
	Path     string
	Playlist string
}

type coverArtSongWire struct {
	Path string `json:"path"`
}

type coverArtPlaylistWire struct {
	Playlist string `json:"playlist"`
}

// SongCoverArtID builds a CoverArtID for a song path.
func SongCoverArtID(path string) CoverArtID {
	return CoverArtID{Path: path}
}

// PlaylistCoverArtID builds a CoverArtID for a playlist name.
func PlaylistCoverArtID(name string) CoverArtID {
	return CoverArtID{Playlist: name}
}

// Token returns the encoded form of the ID.
func (id CoverArtID) Token() (string, error) {
	if id.Playlist != "" {
		return encodeToken(coverArtPlaylistWire{Playlist: id.Playlist})
	}
	return encodeToken(coverArtSongWire{Path: id.Path})
}

func (id CoverArtID) MarshalText() ([]byte, error) {
	t, err := id.Token()
	return []byte(t), err
}

// ParseCoverArtID decodes a cover-art token, tolerating the playlist
// compatibility prefix.
func ParseCoverArtID(token string) (CoverArtID, error) {
	m, err := decodeToken(strings.TrimPrefix(token, coverArtPrefix))
	if err != nil {
		return CoverArtID{}, err
	}

	if f, err := fields(m, "playlist"); err == nil {
		return CoverArtID{Playlist: f[0]}, nil
	}
	f, err := fields(m, "path")
	if err != nil {
		return CoverArtID{}, err
	}
	return CoverArtID{Path: f[0]}, nil
}
