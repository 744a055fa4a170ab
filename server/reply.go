package server

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"net/http"
	"net/url"
	"strconv"

	"sonicgate/logger"
)

const (
	// apiVersion is the emulated Subsonic API version.
	apiVersion = "1.16.1"
	// xmlNS is the namespace carried by the XML envelope root.
	xmlNS = "http://subsonic.org/restapi"

	statusOK     = "ok"
	statusFailed = "failed"
)

const (
	contentTypeXML  = "text/xml; charset=utf-8"
	contentTypeJSON = "application/json"
	contentTypeJS   = "text/javascript"
)

// A reply is any payload that can be wrapped in a subsonic-response
// envelope.
type reply interface {
	// replyName is the name of the payload field in the envelope, empty
	// when the reply carries no payload.
	replyName() string
	// failed reports whether the envelope status is "failed".
	failed() bool
}

// okReply is embedded by success payloads.
type okReply struct{}

func (okReply) failed() bool { return false }

// emptyReply is a successful reply without a payload.
type emptyReply struct {
	okReply
}

func (emptyReply) replyName() string { return "" }

// replyFormat captures the query parameters controlling response
// serialization.
type replyFormat struct {
	f        string
	callback string
}

func formatFromQuery(q url.Values) replyFormat {
	return replyFormat{
		f:        q.Get("f"),
		callback: q.Get("callback"),
	}
}

// formatFromRawQuery determines the reply format from an unparsed query
// string. The authentication guard needs this before normal dispatch runs.
func formatFromRawQuery(rawQuery string) replyFormat {
	q, err := url.ParseQuery(rawQuery)
	if err != nil {
		return replyFormat{}
	}
	return formatFromQuery(q)
}

// writeReply serializes a reply into the envelope format the client asked
// for. Anything other than a well-formed json or jsonp request falls back to
// XML; clients depend on that exact behavior.
func writeReply(w http.ResponseWriter, format replyFormat, rep reply) {
	switch {
	case format.f == "json":
		body, err := jsonBody(rep)
		if err != nil {
			serializationFailure(w, err)
			return
		}
		w.Header().Set("Content-Type", contentTypeJSON)
		w.Write(body)
	case format.f == "jsonp" && format.callback != "":
		body, err := jsonBody(rep)
		if err != nil {
			serializationFailure(w, err)
			return
		}
		w.Header().Set("Content-Type", contentTypeJS)
		w.Write([]byte(format.callback + "("))
		w.Write(body)
		w.Write([]byte(")"))
	default:
		body, err := xmlBody(rep)
		if err != nil {
			serializationFailure(w, err)
			return
		}
		w.Header().Set("Content-Type", contentTypeXML)
		w.Write(body)
	}
}

// serializationFailure handles the one case where no envelope can be built
// at all; it must not occur for well-formed replies.
func serializationFailure(w http.ResponseWriter, err error) {
	logger.Error("failed to serialize reply", logger.ErrorField(err))
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

func status(rep reply) string {
	if rep.failed() {
		return statusFailed
	}
	return statusOK
}

// envelope is the XML rendering of the reply wrapper. The payload's element
// name comes from its own XMLName field.
type envelope struct {
	XMLName xml.Name    `xml:"subsonic-response"`
	XMLNS   string      `xml:"xmlns,attr"`
	Status  string      `xml:"status,attr"`
	Version string      `xml:"version,attr"`
	Payload interface{} `xml:",omitempty"`
}

func xmlBody(rep reply) ([]byte, error) {
	env := envelope{
		XMLNS:   xmlNS,
		Status:  status(rep),
		Version: apiVersion,
	}
	if rep.replyName() != "" {
		env.Payload = rep
	}

	body, err := xml.Marshal(env)
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), body...), nil
}

// jsonBody renders the envelope with a fixed member order: status, version,
// then the optional named payload.
func jsonBody(rep reply) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"subsonic-response":{"status":`)
	buf.WriteString(strconv.Quote(status(rep)))
	buf.WriteString(`,"version":`)
	buf.WriteString(strconv.Quote(apiVersion))

	if name := rep.replyName(); name != "" {
		payload, err := json.Marshal(rep)
		if err != nil {
			return nil, err
		}
		buf.WriteString(",")
		buf.WriteString(strconv.Quote(name))
		buf.WriteString(":")
		buf.Write(payload)
	}

	buf.WriteString("}}")
	return buf.Bytes(), nil
}
