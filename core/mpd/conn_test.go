package mpd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// fakeServer speaks just enough of the protocol to exercise Conn and Pool.
type fakeServer struct {
	ln net.Listener

	mu        sync.Mutex
	commands  []string // raw command lines, in arrival order
	dials     int
	playlists map[string][]Attrs
	songs     map[string]Attrs
	art       []byte
	artMIME   string
	chunkSize int
	killPing  bool // close the transport when a ping arrives
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}

	s := &fakeServer{
		ln:        ln,
		playlists: make(map[string][]Attrs),
		songs:     make(map[string]Attrs),
		chunkSize: 8192,
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			s.mu.Lock()
			s.dials++
			s.mu.Unlock()
			go s.serve(conn)
		}
	}()

	return s
}

func (s *fakeServer) addr() string {
	return s.ln.Addr().String()
}

func (s *fakeServer) recorded() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.commands...)
}

func (s *fakeServer) dialCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dials
}

func (s *fakeServer) setKillPing(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.killPing = v
}

func (s *fakeServer) serve(conn net.Conn) {
	defer conn.Close()

	io.WriteString(conn, "OK MPD 0.23.5\n")

	r := bufio.NewReader(conn)
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimSuffix(line, "\n")

		s.mu.Lock()
		s.commands = append(s.commands, line)
		s.mu.Unlock()

		if line == "command_list_ok_begin" {
			var batch []string
			for {
				cmd, err := r.ReadString('\n')
				if err != nil {
					return
				}
				cmd = strings.TrimSuffix(cmd, "\n")
				if cmd == "command_list_end" {
					break
				}
				s.mu.Lock()
				s.commands = append(s.commands, cmd)
				s.mu.Unlock()
				batch = append(batch, cmd)
			}

			failed := false
			for i, cmd := range batch {
				if ok := s.respond(conn, cmd, i); !ok {
					failed = true
					break
				}
				io.WriteString(conn, "list_OK\n")
			}
			if !failed {
				io.WriteString(conn, "OK\n")
			}
			continue
		}

		if ok := s.respond(conn, line, 0); ok {
			io.WriteString(conn, "OK\n")
		}
		if line == "close" {
			return
		}
	}
}

// respond writes the body of one command's response. It returns false after
// writing an ACK line.
func (s *fakeServer) respond(conn net.Conn, line string, index int) bool {
	args := splitArgs(line)
	if len(args) == 0 {
		return true
	}

	s.mu.Lock()
	killPing := s.killPing
	s.mu.Unlock()

	switch args[0] {
	case "ping":
		if killPing {
			conn.Close()
			return false
		}
	case "password", "binarylimit", "sticker":
	case "update":
		io.WriteString(conn, "updating_db: 1\n")
	case "stats":
		io.WriteString(conn, "songs: 42\nartists: 7\n")
	case "status":
		io.WriteString(conn, "volume: 100\nstate: stop\n")
	case "find":
		if len(args) == 3 && args[1] == "file" {
			if song, ok := s.songs[args[2]]; ok {
				writeAttrs(conn, song)
			}
		}
	case "listplaylists":
		for name := range s.playlists {
			fmt.Fprintf(conn, "playlist: %s\nLast-Modified: 2022-07-11T10:19:57Z\n", name)
		}
	case "listplaylistinfo":
		songs, ok := s.playlists[args[1]]
		if !ok {
			fmt.Fprintf(conn, "ACK [50@%d] {listplaylistinfo} No such playlist\n", index)
			return false
		}
		for _, song := range songs {
			writeAttrs(conn, song)
		}
	case "albumart":
		if s.art == nil {
			fmt.Fprintf(conn, "ACK [50@%d] {albumart} No file exists\n", index)
			return false
		}
		offset, _ := strconv.Atoi(args[2])
		if offset >= len(s.art) {
			fmt.Fprintf(conn, "ACK [2@%d] {albumart} Bad file offset\n", index)
			return false
		}
		end := offset + s.chunkSize
		if end > len(s.art) {
			end = len(s.art)
		}
		fmt.Fprintf(conn, "size: %d\n", len(s.art))
		if s.artMIME != "" {
			fmt.Fprintf(conn, "type: %s\n", s.artMIME)
		}
		fmt.Fprintf(conn, "binary: %d\n", end-offset)
		conn.Write(s.art[offset:end])
		io.WriteString(conn, "\n")
	default:
		fmt.Fprintf(conn, "ACK [5@%d] {} unknown command %q\n", index, args[0])
		return false
	}
	return true
}

func writeAttrs(w io.Writer, attrs Attrs) {
	// "file" first so list splitting works like the real server.
	if v, ok := attrs["file"]; ok {
		fmt.Fprintf(w, "file: %s\n", v)
	}
	for k, v := range attrs {
		if k == "file" {
			continue
		}
		fmt.Fprintf(w, "%s: %s\n", k, v)
	}
}

// splitArgs splits a command line on spaces, honoring double quotes and
// backslash escapes.
func splitArgs(line string) []string {
	var args []string
	var cur strings.Builder
	inQuotes := false
	hasToken := false

	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == '\\' && i+1 < len(line) && inQuotes:
			i++
			cur.WriteByte(line[i])
		case c == '"':
			inQuotes = !inQuotes
			hasToken = true
		case c == ' ' && !inQuotes:
			if hasToken || cur.Len() > 0 {
				args = append(args, cur.String())
				cur.Reset()
				hasToken = false
			}
		default:
			cur.WriteByte(c)
		}
	}
	if hasToken || cur.Len() > 0 {
		args = append(args, cur.String())
	}
	return args
}

func dialTestConn(t *testing.T, s *fakeServer) *Conn {
	t.Helper()

	conn, err := Dial(s.addr(), "")
	if err != nil {
		t.Fatalf("failed to dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestConnBanner(t *testing.T) {
	s := newFakeServer(t)
	conn := dialTestConn(t, s)

	if got, want := conn.Version(), "0.23.5"; got != want {
		t.Fatalf("unexpected version: got %q, want %q", got, want)
	}
}

func TestQuote(t *testing.T) {
	tests := []struct {
		in, out string
	}{
		{in: "plain", out: `"plain"`},
		{in: "with space", out: `"with space"`},
		{in: `quo"te`, out: `"quo\"te"`},
		{in: `back\slash`, out: `"back\\slash"`},
		{in: "", out: `""`},
	}

	for _, tt := range tests {
		if got := quote(tt.in); got != tt.out {
			t.Errorf("quote(%q): got %s, want %s", tt.in, got, tt.out)
		}
	}
}

func TestParseAck(t *testing.T) {
	cmdErr, ok := parseAck(`ACK [50@1] {listplaylistinfo} No such playlist`)
	if !ok {
		t.Fatal("expected an ACK line to parse")
	}
	if cmdErr.Code != 50 || cmdErr.Index != 1 || cmdErr.Command != "listplaylistinfo" {
		t.Fatalf("unexpected parse: %+v", cmdErr)
	}
	if !cmdErr.NotFound() {
		t.Fatal("code 50 should classify as not found")
	}

	if _, ok := parseAck("file: a.flac"); ok {
		t.Fatal("attribute line must not parse as ACK")
	}
}

func TestConnExecQuoting(t *testing.T) {
	s := newFakeServer(t)
	s.songs[`pa"th.flac`] = Attrs{"file": `pa"th.flac`, "Title": "x"}
	conn := dialTestConn(t, s)

	songs, err := conn.ExecList("file", "find", "file", `pa"th.flac`)
	if err != nil {
		t.Fatalf("failed to run find: %v", err)
	}
	if len(songs) != 1 || songs[0]["Title"] != "x" {
		t.Fatalf("unexpected result: %+v", songs)
	}

	want := `find "file" "pa\"th.flac"`
	cmds := s.recorded()
	if got := cmds[len(cmds)-1]; got != want {
		t.Fatalf("unexpected wire command: got %s, want %s", got, want)
	}
}

func TestConnExecAck(t *testing.T) {
	s := newFakeServer(t)
	conn := dialTestConn(t, s)

	_, err := conn.ExecList("file", "listplaylistinfo", "missing")

	var cmdErr *CommandError
	if !errors.As(err, &cmdErr) {
		t.Fatalf("expected a CommandError, got %v", err)
	}
	if !cmdErr.NotFound() {
		t.Fatalf("expected a not-found error, got %+v", cmdErr)
	}
	if conn.Broken() {
		t.Fatal("a protocol error must not mark the connection broken")
	}
}

func TestConnExecListSplitting(t *testing.T) {
	s := newFakeServer(t)
	s.playlists["metal"] = []Attrs{
		{"file": "a.flac", "Title": "A", "Time": "120"},
		{"file": "b.flac", "Title": "B", "Time": "30"},
	}
	conn := dialTestConn(t, s)

	songs, err := conn.ExecList("file", "listplaylistinfo", "metal")
	if err != nil {
		t.Fatalf("failed to list playlist: %v", err)
	}
	if len(songs) != 2 {
		t.Fatalf("unexpected song count: got %d, want 2", len(songs))
	}
	if songs[0]["Title"] != "A" || songs[1]["Title"] != "B" {
		t.Fatalf("unexpected songs: %+v", songs)
	}
}

func TestConnExecBatch(t *testing.T) {
	s := newFakeServer(t)
	conn := dialTestConn(t, s)

	out, err := conn.ExecBatch(Cmd("stats"), Cmd("status"))
	if err != nil {
		t.Fatalf("failed to run batch: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("unexpected batch size: got %d, want 2", len(out))
	}
	if out[0]["songs"] != "42" {
		t.Fatalf("unexpected stats: %+v", out[0])
	}
	if out[1]["state"] != "stop" {
		t.Fatalf("unexpected status: %+v", out[1])
	}
}

func TestConnExecBinary(t *testing.T) {
	art := make([]byte, 300)
	for i := range art {
		art[i] = byte(i)
	}

	s := newFakeServer(t)
	s.art = art
	s.artMIME = "image/jpeg"
	s.chunkSize = 100
	conn := dialTestConn(t, s)

	chunk, err := conn.ExecBinary("albumart", "a.flac", "100")
	if err != nil {
		t.Fatalf("failed to fetch chunk: %v", err)
	}
	if chunk.Size != 300 {
		t.Fatalf("unexpected total size: got %d, want 300", chunk.Size)
	}
	if chunk.MIME != "image/jpeg" {
		t.Fatalf("unexpected MIME: got %q", chunk.MIME)
	}
	if len(chunk.Data) != 100 || chunk.Data[0] != 100 {
		t.Fatalf("unexpected chunk data: len %d, first byte %d", len(chunk.Data), chunk.Data[0])
	}

	// The connection must stay usable after a binary read.
	if err := conn.Ping(); err != nil {
		t.Fatalf("connection unusable after binary read: %v", err)
	}
}
