package server

import (
	"fmt"
	"net/http"

	"sonicgate/core/entity"
	"sonicgate/model"
)

// getPlaylists lists the stored playlists of the authenticated user. Song
// counts and durations require the playlist contents, which are fetched for
// all playlists in one pipelined backend round-trip.
func (s *Server) getPlaylists(r *http.Request) (reply, error) {
	q := requestQuery(r)
	if username := q.optStr("username"); username != "" && username != s.auth.user {
		return nil, errNotAuthorized(fmt.Sprintf(
			"%s is not allowed to get the playlists of %s", s.auth.user, username))
	}

	lists, err := s.backend.ListPlaylists(r.Context())
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(lists))
	for _, attrs := range lists {
		names = append(names, attrs["playlist"])
	}

	contents, err := s.backend.PlaylistSongsBatch(r.Context(), names)
	if err != nil {
		return nil, err
	}

	out := playlists{Playlists: make([]playlistInfo, 0, len(lists))}
	for i, attrs := range lists {
		info := playlistInfo{
			ID:       entity.PlaylistID{Name: names[i]},
			Name:     names[i],
			Owner:    s.auth.user,
			Public:   true,
			CoverArt: entity.PlaylistCoverArtID(names[i]),
			Changed:  attrs["Last-Modified"],
		}
		for _, song := range contents[i] {
			info.SongCount++
			info.Duration += model.SongFromAttrs(song).Duration
		}
		out.Playlists = append(out.Playlists, info)
	}
	return out, nil
}

// getPlaylist returns one stored playlist with its tracks.
func (s *Server) getPlaylist(r *http.Request) (reply, error) {
	id, err := requestQuery(r).playlistID("id")
	if err != nil {
		return nil, err
	}

	songs, err := s.backend.PlaylistSongs(r.Context(), id.Name)
	if err != nil {
		return nil, err
	}

	out := playlistWithSongs{
		playlistInfo: playlistInfo{
			ID:       id,
			Name:     id.Name,
			Owner:    s.auth.user,
			Public:   true,
			CoverArt: entity.PlaylistCoverArtID(id.Name),
		},
		Entries: make([]child, 0, len(songs)),
	}
	for _, attrs := range songs {
		song := model.SongFromAttrs(attrs)
		out.SongCount++
		out.Duration += song.Duration
		out.Entries = append(out.Entries, childFromSong(song))
	}
	return out, nil
}
