package server

import (
	"bytes"
	"net"
	"sync"
	"time"

	"github.com/decred/slog"

	"github.com/vctt94/blackjacksrv/pkg/protocol"
)

const (
	// readBufSize is the chunk size of a single socket read.
	readBufSize = 1024

	// sendQueueLen bounds the per-connection outbound queue. A peer that
	// stops draining its socket loses frames instead of stalling the loop.
	sendQueueLen = 64

	// writeTimeout caps how long one frame may take to reach the kernel
	// before the writer gives up on the connection.
	writeTimeout = 10 * time.Second
)

// connEvent is what a connection's read pump posts to the event loop: a chunk
// of inbound bytes, or closure when data is nil.
type connEvent struct {
	conn *Conn
	data []byte
}

// Conn owns one client socket. Inbound bytes are accumulated into newline
// framed lines by the event loop via Append/Drain; outbound frames go through
// a bounded queue drained by the connection's write pump. Send never blocks,
// which makes Conn safe to hand to the game logic as a Messenger.
type Conn struct {
	id  uint64
	nc  net.Conn
	log slog.Logger

	// buf holds the partial trailing line between reads. Only the event
	// loop touches it.
	buf []byte

	// invalid counts frames that failed protocol parsing on this socket. It
	// dies with the connection; the lobby keeps its own per-player count.
	invalid int

	sendq     chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func newConn(id uint64, nc net.Conn, log slog.Logger) *Conn {
	return &Conn{
		id:    id,
		nc:    nc,
		log:   log,
		sendq: make(chan []byte, sendQueueLen),
		done:  make(chan struct{}),
	}
}

// RemoteAddr reports the peer address for log lines.
func (c *Conn) RemoteAddr() string {
	return c.nc.RemoteAddr().String()
}

// Append adds freshly read bytes to the framing buffer and reports whether at
// least one complete line is now available.
func (c *Conn) Append(data []byte) bool {
	c.buf = append(c.buf, data...)
	return bytes.IndexByte(c.buf, '\n') >= 0
}

// Drain removes every complete line from the front of the framing buffer and
// returns them, stripped of line endings. A trailing partial line stays
// buffered until more bytes arrive. Empty lines are dropped.
func (c *Conn) Drain() []string {
	var lines []string
	for {
		i := bytes.IndexByte(c.buf, '\n')
		if i < 0 {
			return lines
		}
		line := bytes.TrimSuffix(c.buf[:i], []byte{'\r'})
		if len(line) > 0 {
			lines = append(lines, string(line))
		}
		c.buf = c.buf[i+1:]
	}
}

// Send queues one frame for delivery. When the queue is full the frame is
// dropped; the peer either catches up or gets reaped by the liveness sweep.
func (c *Conn) Send(command, args string) {
	frame := protocol.Format(command, args)
	select {
	case c.sendq <- frame:
	default:
		c.log.Warnf("Send queue full for %s, dropping %s", c.RemoteAddr(), command)
	}
}

// Close releases both pumps. The write pump flushes already queued frames
// before the socket actually closes, so farewell frames like DISCONNECT
// usually make it out. Safe to call more than once.
func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// readPump feeds raw socket reads to the event loop until the peer goes away.
// It owns nothing but the read side; closure is reported as a nil-data event
// and the loop decides what to do with the session.
func (c *Conn) readPump(events chan<- connEvent) {
	buf := make([]byte, readBufSize)
	for {
		n, err := c.nc.Read(buf)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])
			select {
			case events <- connEvent{conn: c, data: data}:
			case <-c.done:
				return
			}
		}
		if err != nil {
			select {
			case events <- connEvent{conn: c}:
			case <-c.done:
			}
			return
		}
	}
}

// writePump drains the send queue onto the socket and owns the socket's
// close. A failed write abandons the connection; the read side notices the
// closed socket and reports it.
func (c *Conn) writePump() {
	defer c.nc.Close()
	for {
		select {
		case <-c.done:
			c.flush()
			return
		case frame := <-c.sendq:
			c.nc.SetWriteDeadline(time.Now().Add(writeTimeout))
			if _, err := c.nc.Write(frame); err != nil {
				c.log.Debugf("Write to %s failed: %v", c.RemoteAddr(), err)
				return
			}
		}
	}
}

// flush writes out whatever is already queued, all under one deadline. It
// runs once, between Close and the socket teardown.
func (c *Conn) flush() {
	c.nc.SetWriteDeadline(time.Now().Add(writeTimeout))
	for {
		select {
		case frame := <-c.sendq:
			if _, err := c.nc.Write(frame); err != nil {
				return
			}
		default:
			return
		}
	}
}
