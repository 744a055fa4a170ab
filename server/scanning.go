package server

import (
	"net/http"
	"strconv"

	"sonicgate/core/mpd"
)

// getScanStatus reports whether the backend is rescanning its database and
// how many songs it knows about.
func (s *Server) getScanStatus(r *http.Request) (reply, error) {
	stats, status, err := s.backend.ScanStatus(r.Context())
	if err != nil {
		return nil, err
	}
	return scanStatusFrom(stats, status), nil
}

// startScan triggers a database update and reports the state observed right
// after.
func (s *Server) startScan(r *http.Request) (reply, error) {
	stats, status, err := s.backend.StartScan(r.Context())
	if err != nil {
		return nil, err
	}
	return scanStatusFrom(stats, status), nil
}

func scanStatusFrom(stats, status mpd.Attrs) scanStatus {
	count, _ := strconv.ParseInt(stats["songs"], 10, 64)
	return scanStatus{
		Scanning: status["updating_db"] != "",
		Count:    count,
	}
}
