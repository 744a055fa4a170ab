// Package mpd implements the line-oriented control protocol spoken by the
// backing MPD server, and a bounded connection pool on top of it. Only the
// command subset needed by the gateway is covered.
package mpd

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const dialTimeout = 5 * time.Second

// Attrs is a set of attribute key/value pairs from a command response.
type Attrs map[string]string

// Command is one protocol command with its arguments, used for pipelined
// command lists.
type Command struct {
	Name string
	Args []string
}

// Cmd is a convenience constructor for Command.
func Cmd(name string, args ...string) Command {
	return Command{Name: name, Args: args}
}

// BinaryChunk is one chunk of a binary response. Size carries the total
// object size reported by the server, which can exceed len(Data); MIME is
// empty when the server did not report a type.
type BinaryChunk struct {
	Data []byte
	Size int
	MIME string
}

// CommandError is a protocol-level error reported by the server via an ACK
// line.
type CommandError struct {
	Code    int
	Index   int
	Command string
	Message string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("mpd: command %q failed: %s (code %d)", e.Command, e.Message, e.Code)
}

// ack error 50 is ACK_ERROR_NO_EXIST.
const ackNoExist = 50

// NotFound reports whether the server rejected the command because the
// addressed entity does not exist.
func (e *CommandError) NotFound() bool {
	return e.Code == ackNoExist
}

var ackRe = regexp.MustCompile(`^ACK \[(\d+)@(\d+)\] \{([^}]*)\} (.*)$`)

func parseAck(line string) (*CommandError, bool) {
	m := ackRe.FindStringSubmatch(line)
	if m == nil {
		return nil, false
	}
	code, _ := strconv.Atoi(m[1])
	index, _ := strconv.Atoi(m[2])
	return &CommandError{
		Code:    code,
		Index:   index,
		Command: m[3],
		Message: m[4],
	}, true
}

// Conn is a single session with the server. A Conn is not safe for
// concurrent use; the pool guarantees exclusive checkout.
type Conn struct {
	conn    net.Conn
	r       *bufio.Reader
	version string
	broken  bool
}

// Dial opens a session, reads the protocol banner and logs in when a
// password is configured.
func Dial(addr, password string) (*Conn, error) {
	network := "tcp"
	if strings.HasPrefix(addr, "/") {
		network = "unix"
	}

	nc, err := net.DialTimeout(network, addr, dialTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}

	c := &Conn{
		conn: nc,
		r:    bufio.NewReader(nc),
	}

	banner, err := c.readLine()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to read banner: %w", err)
	}
	version, ok := strings.CutPrefix(banner, "OK MPD ")
	if !ok {
		nc.Close()
		return nil, fmt.Errorf("unexpected banner %q", banner)
	}
	c.version = version

	if password != "" {
		if _, err := c.Exec("password", password); err != nil {
			nc.Close()
			return nil, fmt.Errorf("failed to log in: %w", err)
		}
	}

	return c, nil
}

// Version returns the protocol version announced in the banner.
func (c *Conn) Version() string {
	return c.version
}

// Broken reports whether the session hit a transport failure and must not be
// reused.
func (c *Conn) Broken() bool {
	return c.broken
}

// Close closes the underlying transport.
func (c *Conn) Close() error {
	return c.conn.Close()
}

// Ping issues the protocol no-op, used as a liveness probe.
func (c *Conn) Ping() error {
	_, err := c.Exec("ping")
	return err
}

// quote wraps an argument in double quotes, escaping backslashes and quotes.
func quote(arg string) string {
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(arg); i++ {
		if arg[i] == '"' || arg[i] == '\\' {
			b.WriteByte('\\')
		}
		b.WriteByte(arg[i])
	}
	b.WriteByte('"')
	return b.String()
}

func formatCommand(name string, args []string) string {
	var b strings.Builder
	b.WriteString(name)
	for _, a := range args {
		b.WriteByte(' ')
		b.WriteString(quote(a))
	}
	return b.String()
}

func (c *Conn) writeLine(line string) error {
	if _, err := io.WriteString(c.conn, line+"\n"); err != nil {
		c.broken = true
		return fmt.Errorf("failed to send command: %w", err)
	}
	return nil
}

func (c *Conn) readLine() (string, error) {
	line, err := c.r.ReadString('\n')
	if err != nil {
		c.broken = true
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	return strings.TrimSuffix(line, "\n"), nil
}

// readAttrs collects "key: value" lines until the given terminator. An ACK
// line aborts the read and is returned as a *CommandError.
func (c *Conn) readAttrs(terminator string) (Attrs, error) {
	attrs := make(Attrs)
	for {
		line, err := c.readLine()
		if err != nil {
			return nil, err
		}
		if line == terminator {
			return attrs, nil
		}
		if cmdErr, ok := parseAck(line); ok {
			return nil, cmdErr
		}

		key, value, ok := strings.Cut(line, ": ")
		if !ok {
			c.broken = true
			return nil, fmt.Errorf("malformed response line %q", line)
		}
		attrs[key] = value
	}
}

// readAttrsList collects "key: value" lines until the given terminator,
// starting a new Attrs each time startKey repeats.
func (c *Conn) readAttrsList(startKey, terminator string) ([]Attrs, error) {
	var list []Attrs
	for {
		line, err := c.readLine()
		if err != nil {
			return nil, err
		}
		if line == terminator {
			return list, nil
		}
		if cmdErr, ok := parseAck(line); ok {
			return nil, cmdErr
		}

		key, value, ok := strings.Cut(line, ": ")
		if !ok {
			c.broken = true
			return nil, fmt.Errorf("malformed response line %q", line)
		}
		if key == startKey || len(list) == 0 {
			list = append(list, make(Attrs))
		}
		list[len(list)-1][key] = value
	}
}

// Exec runs a single command and returns its attribute lines.
func (c *Conn) Exec(name string, args ...string) (Attrs, error) {
	if err := c.writeLine(formatCommand(name, args)); err != nil {
		return nil, err
	}
	return c.readAttrs("OK")
}

// ExecList runs a single command whose response is a list of repeated
// structures, each beginning with startKey.
func (c *Conn) ExecList(startKey, name string, args ...string) ([]Attrs, error) {
	if err := c.writeLine(formatCommand(name, args)); err != nil {
		return nil, err
	}
	return c.readAttrsList(startKey, "OK")
}

// ExecBatch pipelines several commands as one command list and returns one
// Attrs per command. The batch executes on this connection in submission
// order; a failing command aborts the remainder.
func (c *Conn) ExecBatch(cmds ...Command) ([]Attrs, error) {
	if err := c.writeBatch(cmds); err != nil {
		return nil, err
	}

	out := make([]Attrs, 0, len(cmds))
	for range cmds {
		attrs, err := c.readAttrs("list_OK")
		if err != nil {
			return nil, err
		}
		out = append(out, attrs)
	}
	if _, err := c.readAttrs("OK"); err != nil {
		return nil, err
	}
	return out, nil
}

// ExecBatchLists pipelines several list commands as one command list and
// returns one attribute list per command.
func (c *Conn) ExecBatchLists(startKey string, cmds ...Command) ([][]Attrs, error) {
	if err := c.writeBatch(cmds); err != nil {
		return nil, err
	}

	out := make([][]Attrs, 0, len(cmds))
	for range cmds {
		list, err := c.readAttrsList(startKey, "list_OK")
		if err != nil {
			return nil, err
		}
		out = append(out, list)
	}
	if _, err := c.readAttrs("OK"); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Conn) writeBatch(cmds []Command) error {
	var b strings.Builder
	b.WriteString("command_list_ok_begin\n")
	for _, cmd := range cmds {
		b.WriteString(formatCommand(cmd.Name, cmd.Args))
		b.WriteByte('\n')
	}
	b.WriteString("command_list_end")
	return c.writeLine(b.String())
}

// ExecBinary runs a command that responds with a binary payload chunk, such
// as "albumart <uri> <offset>". The server chooses the chunk length.
func (c *Conn) ExecBinary(name string, args ...string) (*BinaryChunk, error) {
	if err := c.writeLine(formatCommand(name, args)); err != nil {
		return nil, err
	}

	chunk := &BinaryChunk{}
	for {
		line, err := c.readLine()
		if err != nil {
			return nil, err
		}
		if line == "OK" {
			return chunk, nil
		}
		if cmdErr, ok := parseAck(line); ok {
			return nil, cmdErr
		}

		key, value, ok := strings.Cut(line, ": ")
		if !ok {
			c.broken = true
			return nil, fmt.Errorf("malformed response line %q", line)
		}

		switch key {
		case "size":
			if chunk.Size, err = strconv.Atoi(value); err != nil {
				c.broken = true
				return nil, fmt.Errorf("malformed size %q", value)
			}
		case "type":
			chunk.MIME = value
		case "binary":
			n, err := strconv.Atoi(value)
			if err != nil {
				c.broken = true
				return nil, fmt.Errorf("malformed binary length %q", value)
			}
			// The payload is followed by a single newline byte.
			buf := make([]byte, n+1)
			if _, err := io.ReadFull(c.r, buf); err != nil {
				c.broken = true
				return nil, fmt.Errorf("failed to read binary payload: %w", err)
			}
			chunk.Data = buf[:n]
		}
	}
}
