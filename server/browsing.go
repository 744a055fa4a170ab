package server

import "net/http"

// getMusicFolders reports the single folder the MPD database represents.
func (s *Server) getMusicFolders(*http.Request) (reply, error) {
	return musicFolders{
		Folders: []musicFolder{{ID: "/", Name: "Music"}},
	}, nil
}
