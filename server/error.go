package server

import (
	"encoding/xml"
	"errors"
	"fmt"

	"sonicgate/core/library"
	"sonicgate/core/mpd"
)

// Subsonic error codes surfaced to clients.
const (
	codeGeneric              = 0
	codeMissingParameter     = 10
	codeAuthenticationFailed = 40
	codeNotAuthorized        = 50
	codeNotFound             = 70
)

// Error is an API error reply. It doubles as a Go error so handlers can
// return it through their error path.
type Error struct {
	XMLName xml.Name `xml:"error" json:"-"`
	Code    int      `xml:"code,attr" json:"code"`
	Message string   `xml:"message,attr" json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Code, e.Message)
}

func (*Error) replyName() string { return "error" }
func (*Error) failed() bool      { return true }

func errGeneric(message string) *Error {
	if message == "" {
		message = "An error occurred."
	}
	return &Error{Code: codeGeneric, Message: message}
}

func errMissingParameter(name string) *Error {
	return &Error{
		Code:    codeMissingParameter,
		Message: fmt.Sprintf("Required parameter %q is missing", name),
	}
}

func errAuthenticationFailed() *Error {
	return &Error{
		Code:    codeAuthenticationFailed,
		Message: "Wrong username or password",
	}
}

func errNotAuthorized(message string) *Error {
	return &Error{Code: codeNotAuthorized, Message: message}
}

func errNotFound() *Error {
	return &Error{Code: codeNotFound, Message: "The requested data was not found"}
}

// asAPIError maps any handler failure onto the client-facing error
// taxonomy. Unclassified failures become the generic code with the
// underlying message attached for diagnostics; no internal error type is
// exposed verbatim.
func asAPIError(err error) *Error {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}

	switch {
	case errors.Is(err, mpd.ErrNotFound), library.IsNotFound(err):
		return errNotFound()
	}

	var cmdErr *mpd.CommandError
	if errors.As(err, &cmdErr) && cmdErr.NotFound() {
		return errNotFound()
	}

	return errGeneric(err.Error())
}
