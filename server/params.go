package server

import (
	"net/http"
	"net/url"
	"strconv"

	"sonicgate/core/entity"
)

// query wraps request parameters with typed extraction helpers. Missing
// required parameters and malformed values map onto the missing-parameter
// error code before any handler side effects run.
type query struct {
	v url.Values
}

func requestQuery(r *http.Request) query {
	return query{v: r.URL.Query()}
}

func (q query) str(name string) (string, error) {
	if !q.v.Has(name) {
		return "", errMissingParameter(name)
	}
	return q.v.Get(name), nil
}

func (q query) optStr(name string) string {
	return q.v.Get(name)
}

func (q query) int(name string) (int, error) {
	s, err := q.str(name)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, errMissingParameter(name)
	}
	return n, nil
}

func (q query) optInt(name string) (int, error) {
	if !q.v.Has(name) {
		return 0, nil
	}
	n, err := strconv.Atoi(q.v.Get(name))
	if err != nil {
		return 0, errMissingParameter(name)
	}
	return n, nil
}

func (q query) optInt64(name string) (int64, bool, error) {
	if !q.v.Has(name) {
		return 0, false, nil
	}
	n, err := strconv.ParseInt(q.v.Get(name), 10, 64)
	if err != nil {
		return 0, false, errMissingParameter(name)
	}
	return n, true, nil
}

func (q query) boolDefault(name string, fallback bool) (bool, error) {
	if !q.v.Has(name) {
		return fallback, nil
	}
	v, err := strconv.ParseBool(q.v.Get(name))
	if err != nil {
		return false, errMissingParameter(name)
	}
	return v, nil
}

func (q query) songID(name string) (entity.SongID, error) {
	token, err := q.str(name)
	if err != nil {
		return entity.SongID{}, err
	}
	id, err := entity.ParseSongID(token)
	if err != nil {
		return entity.SongID{}, errMissingParameter(name)
	}
	return id, nil
}

func (q query) playlistID(name string) (entity.PlaylistID, error) {
	token, err := q.str(name)
	if err != nil {
		return entity.PlaylistID{}, err
	}
	id, err := entity.ParsePlaylistID(token)
	if err != nil {
		return entity.PlaylistID{}, errMissingParameter(name)
	}
	return id, nil
}

func (q query) coverArtID(name string) (entity.CoverArtID, error) {
	token, err := q.str(name)
	if err != nil {
		return entity.CoverArtID{}, err
	}
	id, err := entity.ParseCoverArtID(token)
	if err != nil {
		return entity.CoverArtID{}, errMissingParameter(name)
	}
	return id, nil
}
