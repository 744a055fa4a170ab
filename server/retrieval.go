package server

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"sonicgate/core/audio"
	"sonicgate/logger"
)

// getCoverArt assembles a song's embedded artwork from backend chunks and
// serves it whole. For a playlist ID the artwork of its first track is used.
func (s *Server) getCoverArt(w http.ResponseWriter, r *http.Request) error {
	id, err := requestQuery(r).coverArtID("id")
	if err != nil {
		return err
	}

	path := id.Path
	if id.Playlist != "" {
		songs, err := s.backend.PlaylistSongs(r.Context(), id.Playlist)
		if err != nil {
			return err
		}
		if len(songs) == 0 {
			return errNotFound()
		}
		path = songs[0]["file"]
	}

	var buf bytes.Buffer
	var mime string
	for {
		chunk, err := s.backend.AlbumArtChunk(r.Context(), path, buf.Len())
		if err != nil {
			return err
		}
		if chunk.MIME != "" {
			mime = chunk.MIME
		}
		// An empty chunk before the full size means the artwork changed
		// underneath us; stop rather than loop forever.
		if len(chunk.Data) == 0 {
			break
		}
		buf.Write(chunk.Data)
		if buf.Len() >= chunk.Size {
			break
		}
	}

	if buf.Len() == 0 {
		return errNotFound()
	}
	if mime == "" {
		mime = http.DetectContentType(buf.Bytes())
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	_, err = w.Write(buf.Bytes())
	return err
}

// stream serves a song's audio, either as the raw file bytes or transcoded to
// Opus at the negotiated bitrate. The format is validated before any backend
// work happens so that a bad request still gets a proper API error.
func (s *Server) stream(w http.ResponseWriter, r *http.Request) error {
	q := requestQuery(r)
	id, err := q.songID("id")
	if err != nil {
		return err
	}
	format := q.optStr("format")
	maxBitRate, err := q.optInt("maxBitRate")
	if err != nil {
		return err
	}

	switch format {
	case "raw", "", "ogg":
	default:
		return errGeneric(fmt.Sprintf("unsupported stream format %q", format))
	}

	src, err := s.library.OpenSong(r.Context(), id.Path)
	if err != nil {
		return err
	}
	defer src.Close()

	if format == "raw" {
		w.Header().Set("Content-Type", "application/octet-stream")
		if _, err := io.Copy(w, src); err != nil {
			// Headers are long gone; all that is left is to log it.
			logger.Warn("raw stream aborted", logger.ErrorField(err))
		}
		return nil
	}

	w.Header().Set("Content-Type", "audio/ogg")
	s.transcoder.Stream(r.Context(), src, w, audio.SelectBitrate(maxBitRate))
	return nil
}
