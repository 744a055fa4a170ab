package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"sonicgate/core/entity"
	"sonicgate/core/listenbrainz"
	"sonicgate/core/mpd"
	"sonicgate/logger"
	"sonicgate/model"
)

const (
	stickerRating  = "rating"
	stickerStarred = "starred"
)

// scrobble reports a play to the listen service. Only an explicit
// submission=true counts as a completed listen; anything else is reported as
// playing now.
func (s *Server) scrobble(r *http.Request) (reply, error) {
	q := requestQuery(r)
	id, err := q.songID("id")
	if err != nil {
		return nil, err
	}
	submission, err := q.boolDefault("submission", false)
	if err != nil {
		return nil, err
	}
	listenedAt, hasTime, err := q.optInt64("time")
	if err != nil {
		return nil, err
	}

	if s.scrobbler == nil {
		return nil, errGeneric("scrobbling is not configured")
	}

	attrs, err := s.backend.FindSong(r.Context(), id.Path)
	if err != nil {
		return nil, err
	}
	song := model.SongFromAttrs(attrs)

	if !submission {
		if err := s.scrobbler.PlayingNow(r.Context(), song); err != nil {
			return nil, err
		}
		return emptyReply{}, nil
	}

	if !hasTime {
		listenedAt = time.Now().Unix()
	}
	if err := s.scrobbler.Listen(r.Context(), song, listenedAt); err != nil {
		return nil, err
	}
	return emptyReply{}, nil
}

// setRating stores the rating as a song sticker and mirrors it to the listen
// service as recording feedback where a mapping exists.
func (s *Server) setRating(r *http.Request) (reply, error) {
	q := requestQuery(r)
	id, err := q.songID("id")
	if err != nil {
		return nil, err
	}
	rating, err := q.int("rating")
	if err != nil {
		return nil, err
	}

	if rating > 0 {
		err = s.backend.StickerSet(r.Context(), id.Path, stickerRating, strconv.Itoa(rating))
	} else {
		err = ignoreStickerMiss(s.backend.StickerDelete(r.Context(), id.Path, stickerRating))
	}
	if err != nil {
		return nil, err
	}

	if score, ok := feedbackScore(rating); ok && s.scrobbler != nil {
		attrs, err := s.backend.FindSong(r.Context(), id.Path)
		if err != nil {
			return nil, err
		}
		if err := s.scrobbler.Feedback(r.Context(), model.SongFromAttrs(attrs), score); err != nil {
			// The sticker already stuck; a feedback failure should not fail
			// the rating.
			logger.Warn("recording feedback failed", logger.ErrorField(err))
		}
	}
	return emptyReply{}, nil
}

// feedbackScore maps a Subsonic rating onto a recording feedback score.
// Ratings without a defined mapping produce no feedback.
func feedbackScore(rating int) (listenbrainz.Score, bool) {
	switch rating {
	case 0:
		return listenbrainz.ScoreRemove, true
	case 1:
		return listenbrainz.ScoreHate, true
	case 5:
		return listenbrainz.ScoreLove, true
	default:
		return 0, false
	}
}

// star marks songs with a starred sticker carrying the star time.
func (s *Server) star(r *http.Request) (reply, error) {
	ids, err := songIDs(r)
	if err != nil {
		return nil, err
	}

	starredAt := time.Now().UTC().Format(time.RFC3339)
	for _, id := range ids {
		if err := s.backend.StickerSet(r.Context(), id.Path, stickerStarred, starredAt); err != nil {
			return nil, err
		}
	}
	return emptyReply{}, nil
}

// unstar removes the starred sticker. A song that was never starred is not an
// error.
func (s *Server) unstar(r *http.Request) (reply, error) {
	ids, err := songIDs(r)
	if err != nil {
		return nil, err
	}

	for _, id := range ids {
		if err := ignoreStickerMiss(s.backend.StickerDelete(r.Context(), id.Path, stickerStarred)); err != nil {
			return nil, err
		}
	}
	return emptyReply{}, nil
}

// songIDs collects the repeatable id parameter.
func songIDs(r *http.Request) ([]entity.SongID, error) {
	tokens := requestQuery(r).v["id"]
	if len(tokens) == 0 {
		return nil, errMissingParameter("id")
	}

	out := make([]entity.SongID, 0, len(tokens))
	for _, token := range tokens {
		id, err := entity.ParseSongID(token)
		if err != nil {
			return nil, errMissingParameter("id")
		}
		out = append(out, id)
	}
	return out, nil
}

// ignoreStickerMiss treats deleting an absent sticker as success.
func ignoreStickerMiss(err error) error {
	var cmdErr *mpd.CommandError
	if errors.As(err, &cmdErr) && cmdErr.NotFound() {
		return nil
	}
	return err
}
