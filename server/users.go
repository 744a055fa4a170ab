package server

import (
	"fmt"
	"net/http"
)

// getUser describes the one configured account. Requesting any other account
// is refused rather than reported as unknown.
func (s *Server) getUser(r *http.Request) (reply, error) {
	username, err := requestQuery(r).str("username")
	if err != nil {
		return nil, err
	}
	if username != s.auth.user {
		return nil, errNotAuthorized(fmt.Sprintf(
			"%s is not allowed to get details for %s", s.auth.user, username))
	}

	return user{
		Username:          username,
		ScrobblingEnabled: s.scrobbler != nil,
		DownloadRole:      true,
		PlaylistRole:      true,
		CoverArtRole:      true,
		StreamRole:        true,
		Folders:           []string{"/"},
	}, nil
}

// getAvatar never has an image to serve: the own account has no avatar, and
// other accounts do not exist.
func (s *Server) getAvatar(r *http.Request) (reply, error) {
	username, err := requestQuery(r).str("username")
	if err != nil {
		return nil, err
	}
	if username != s.auth.user {
		return nil, errNotAuthorized(fmt.Sprintf(
			"%s is not allowed to get the avatar of %s", s.auth.user, username))
	}
	return nil, errNotFound()
}
