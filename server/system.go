package server

import "net/http"

// ping answers without touching the backend; it only proves that the gateway
// itself is up and the credentials were accepted.
func (s *Server) ping(*http.Request) (reply, error) {
	return emptyReply{}, nil
}

// getLicense always reports a valid license; there is nothing to license.
func (s *Server) getLicense(*http.Request) (reply, error) {
	return license{Valid: true}, nil
}
