package mpd

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"sonicgate/logger"
)

// binaryLimit is sent once per connection before it is handed out, so large
// binary replies such as artwork are not truncated by the server default.
const binaryLimit = 128 * 1024

// ErrPoolTimeout reports that no connection became available within the
// configured acquisition timeout.
var ErrPoolTimeout = errors.New("mpd: timed out waiting for a connection")

// ErrPoolClosed reports an acquisition attempt on a closed pool.
var ErrPoolClosed = errors.New("mpd: pool is closed")

// ErrNotFound reports that a query matched no entity.
var ErrNotFound = errors.New("mpd: not found")

// Pool maintains up to a fixed number of sessions to one server address.
// Connections are created lazily, validated with a ping before reuse and
// discarded when broken. A checked-out connection is exclusive to its caller
// until released.
type Pool struct {
	addr     string
	password string
	timeout  time.Duration

	idle  chan *Conn    // validated connections ready for checkout
	slots chan struct{} // capacity tokens, one per live connection
	done  chan struct{} // closed on Close
}

// NewPool creates a pool of at most size connections to addr. Acquisition
// blocks up to timeout before failing with ErrPoolTimeout. The server is not
// contacted until the first acquisition.
func NewPool(addr, password string, size int, timeout time.Duration) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{
		addr:     addr,
		password: password,
		timeout:  timeout,
		idle:     make(chan *Conn, size),
		slots:    make(chan struct{}, size),
		done:     make(chan struct{}),
	}
}

// get checks out a connection, dialing a new one when under capacity. The
// caller must hand the connection back with put.
func (p *Pool) get(ctx context.Context) (*Conn, error) {
	select {
	case <-p.done:
		return nil, ErrPoolClosed
	default:
	}

	timer := time.NewTimer(p.timeout)
	defer timer.Stop()

	for {
		select {
		case <-p.done:
			return nil, ErrPoolClosed
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
			return nil, ErrPoolTimeout
		case conn := <-p.idle:
			if err := p.validate(conn); err != nil {
				logger.Warn("discarding stale mpd connection", logger.ErrorField(err))
				p.discard(conn)
				continue
			}
			return conn, nil
		case p.slots <- struct{}{}:
			conn, err := p.dial()
			if err != nil {
				<-p.slots
				return nil, err
			}
			return conn, nil
		}
	}
}

// put releases a connection back to the pool. Broken connections are closed
// and their capacity freed for a replacement.
func (p *Pool) put(conn *Conn) {
	if conn.Broken() {
		p.discard(conn)
		return
	}

	select {
	case p.idle <- conn:
	default:
		p.discard(conn)
	}
}

func (p *Pool) discard(conn *Conn) {
	conn.Close()
	<-p.slots
}

// validate probes a connection before handing it back to a caller.
func (p *Pool) validate(conn *Conn) error {
	if conn.Broken() {
		return errors.New("mpd: connection marked broken")
	}
	return conn.Ping()
}

// dial opens a session and runs the one-time customization that raises the
// server's binary payload limit.
func (p *Pool) dial() (*Conn, error) {
	conn, err := Dial(p.addr, p.password)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec("binarylimit", strconv.Itoa(binaryLimit)); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to raise binary limit: %w", err)
	}

	logger.Debug("connected to mpd", logger.String("version", conn.Version()))
	return conn, nil
}

// Close shuts the pool down and closes all idle connections. In-flight
// connections are closed as they are released.
func (p *Pool) Close() {
	close(p.done)
	for {
		select {
		case conn := <-p.idle:
			conn.Close()
		default:
			return
		}
	}
}

// Ping verifies that the backend answers commands.
func (p *Pool) Ping(ctx context.Context) error {
	conn, err := p.get(ctx)
	if err != nil {
		return err
	}
	defer p.put(conn)

	return conn.Ping()
}

// FindSong looks a song up by its database path.
func (p *Pool) FindSong(ctx context.Context, path string) (Attrs, error) {
	conn, err := p.get(ctx)
	if err != nil {
		return nil, err
	}
	defer p.put(conn)

	songs, err := conn.ExecList("file", "find", "file", path)
	if err != nil {
		return nil, err
	}
	if len(songs) == 0 {
		return nil, ErrNotFound
	}
	return songs[0], nil
}

// ListPlaylists returns the stored playlists.
func (p *Pool) ListPlaylists(ctx context.Context) ([]Attrs, error) {
	conn, err := p.get(ctx)
	if err != nil {
		return nil, err
	}
	defer p.put(conn)

	return conn.ExecList("playlist", "listplaylists")
}

// PlaylistSongs returns the songs of one stored playlist, with metadata.
func (p *Pool) PlaylistSongs(ctx context.Context, name string) ([]Attrs, error) {
	conn, err := p.get(ctx)
	if err != nil {
		return nil, err
	}
	defer p.put(conn)

	return conn.ExecList("file", "listplaylistinfo", name)
}

// PlaylistSongsBatch returns the songs of several stored playlists, issued
// as a single pipelined command list on one connection.
func (p *Pool) PlaylistSongsBatch(ctx context.Context, names []string) ([][]Attrs, error) {
	conn, err := p.get(ctx)
	if err != nil {
		return nil, err
	}
	defer p.put(conn)

	cmds := make([]Command, 0, len(names))
	for _, name := range names {
		cmds = append(cmds, Cmd("listplaylistinfo", name))
	}
	return conn.ExecBatchLists("file", cmds...)
}

// ScanStatus returns the database statistics and the current server status
// in one round-trip.
func (p *Pool) ScanStatus(ctx context.Context) (stats, status Attrs, err error) {
	conn, err := p.get(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer p.put(conn)

	out, err := conn.ExecBatch(Cmd("stats"), Cmd("status"))
	if err != nil {
		return nil, nil, err
	}
	return out[0], out[1], nil
}

// StartScan triggers a database update and returns the statistics and status
// observed right after, all pipelined on one connection.
func (p *Pool) StartScan(ctx context.Context) (stats, status Attrs, err error) {
	conn, err := p.get(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer p.put(conn)

	out, err := conn.ExecBatch(Cmd("update"), Cmd("stats"), Cmd("status"))
	if err != nil {
		return nil, nil, err
	}
	return out[1], out[2], nil
}

// StickerSet attaches a sticker to a song.
func (p *Pool) StickerSet(ctx context.Context, uri, name, value string) error {
	conn, err := p.get(ctx)
	if err != nil {
		return err
	}
	defer p.put(conn)

	_, err = conn.Exec("sticker", "set", "song", uri, name, value)
	return err
}

// StickerDelete removes a sticker from a song.
func (p *Pool) StickerDelete(ctx context.Context, uri, name string) error {
	conn, err := p.get(ctx)
	if err != nil {
		return err
	}
	defer p.put(conn)

	_, err = conn.Exec("sticker", "delete", "song", uri, name)
	return err
}

// AlbumArtChunk fetches one chunk of a song's artwork starting at offset.
// The server picks the chunk length; Size on the returned chunk carries the
// total artwork size.
func (p *Pool) AlbumArtChunk(ctx context.Context, uri string, offset int) (*BinaryChunk, error) {
	conn, err := p.get(ctx)
	if err != nil {
		return nil, err
	}
	defer p.put(conn)

	chunk, err := conn.ExecBinary("albumart", uri, strconv.Itoa(offset))
	if err != nil {
		var cmdErr *CommandError
		if errors.As(err, &cmdErr) && cmdErr.NotFound() {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return chunk, nil
}
