// Package client implements the TCP side of the blackjack protocol for
// interactive frontends. It owns the socket, answers liveness probes on its
// own, and translates every other server frame into a typed bubbletea
// message on UpdatesCh.
package client

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/decred/slog"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vctt94/blackjacksrv/pkg/protocol"
)

const writeTimeout = 10 * time.Second

// Client is one connection to a blackjack server. The embedded lock guards
// the session fields (nick, credits, room); the read loop is the only writer
// once Dial returns.
type Client struct {
	sync.RWMutex
	cfg Config
	log slog.Logger

	nc       net.Conn
	writeMtx sync.Mutex

	nick        string
	credits     int
	roomID      int
	pendingRoom int

	// UpdatesCh carries typed server events to the UI. ErrorsCh carries
	// transport level failures. Both are dropped-on-full so a stalled UI
	// cannot wedge the read loop.
	UpdatesCh chan tea.Msg
	ErrorsCh  chan error

	closed    chan struct{}
	closeOnce sync.Once
	readDone  chan struct{}
}

// Dial connects to the server and starts the read loop. The returned client
// is ready to use; the first NickRequestMsg shows up on UpdatesCh as soon as
// the server greets the connection.
func Dial(ctx context.Context, cfg Config) (*Client, error) {
	if err := cfg.normalize(); err != nil {
		return nil, err
	}

	d := net.Dialer{Timeout: cfg.DialTimeout}
	nc, err := d.DialContext(ctx, "tcp", cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Addr, err)
	}

	c := &Client{
		cfg:         cfg,
		log:         cfg.Log,
		nc:          nc,
		roomID:      -1,
		pendingRoom: -1,
		UpdatesCh:   make(chan tea.Msg, 100),
		ErrorsCh:    make(chan error, 10),
		closed:      make(chan struct{}),
		readDone:    make(chan struct{}),
	}

	c.log.Infof("Connected to %s", cfg.Addr)
	go c.readLoop()
	return c, nil
}

// Close tears the connection down. The read loop exits without reporting the
// closure as a server-side event.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		err = c.nc.Close()
		<-c.readDone
	})
	return err
}

// Nick returns the logged-in nickname, empty before login.
func (c *Client) Nick() string {
	c.RLock()
	defer c.RUnlock()
	return c.nick
}

// Credits returns the last balance reported by the server.
func (c *Client) Credits() int {
	c.RLock()
	defer c.RUnlock()
	return c.credits
}

// RoomID returns the joined room, -1 while in the lobby.
func (c *Client) RoomID() int {
	c.RLock()
	defer c.RUnlock()
	return c.roomID
}

// send writes one frame. Callers may hit it from any goroutine.
func (c *Client) send(command, args string) error {
	c.writeMtx.Lock()
	defer c.writeMtx.Unlock()
	c.nc.SetWriteDeadline(time.Now().Add(writeTimeout))
	if _, err := c.nc.Write(protocol.Format(command, args)); err != nil {
		return fmt.Errorf("failed to send %s: %w", command, err)
	}
	return nil
}

// readLoop scans frames off the socket until it dies, dispatching each one.
// On exit the closure is reported to the UI unless Close initiated it.
func (c *Client) readLoop() {
	defer close(c.readDone)

	scanner := bufio.NewScanner(c.nc)
	for scanner.Scan() {
		line := scanner.Text()
		reply, ok := protocol.ParseReply(line)
		if !ok {
			c.log.Warnf("Dropping unparseable frame %q", line)
			continue
		}
		if c.cfg.Debug {
			c.log.Debugf("Server frame: %s", spew.Sdump(reply))
		}
		c.handleReply(reply)
	}

	select {
	case <-c.closed:
		// Locally initiated close; the UI asked for it.
		return
	default:
	}

	err := scanner.Err()
	if err != nil {
		c.pushError(fmt.Errorf("connection lost: %w", err))
	}
	c.log.Infof("Server connection closed")
	c.pushUpdate(ServerClosedMsg{Err: err})
}

// handleReply translates one server frame into its typed message. Liveness
// probes are answered here and never reach the UI.
func (c *Client) handleReply(reply protocol.Reply) {
	switch reply.Command {
	case protocol.MsgPing:
		if err := c.send(protocol.CmdPong, ""); err != nil {
			c.log.Warnf("Failed to answer ping: %v", err)
		}
	case protocol.MsgPong, protocol.MsgAckPing:
		c.pushUpdate(PongMsg{})

	case protocol.MsgReqNick:
		c.pushUpdate(NickRequestMsg{})
	case protocol.MsgAckNick:
		msg, err := parseNickAck(reply.Args)
		if err != nil {
			c.pushError(err)
			return
		}
		c.Lock()
		c.nick = msg.Nick
		c.credits = msg.Credits
		c.Unlock()
		c.pushUpdate(msg)
	case protocol.MsgNackNick:
		c.pushUpdate(NickRejectedMsg{Reason: reply.Args})
	case protocol.MsgAckRecover:
		msg, err := parseRecovered(reply.Args)
		if err != nil {
			c.pushError(err)
			return
		}
		c.Lock()
		c.nick = msg.Nick
		c.credits = msg.Credits
		c.roomID = msg.RoomID
		c.Unlock()
		c.pushUpdate(msg)

	case protocol.MsgLobbyInfo:
		msg, err := parseLobbyInfo(reply.Args)
		if err != nil {
			c.pushError(err)
			return
		}
		c.pushUpdate(msg)
	case protocol.MsgAckJoin:
		c.Lock()
		c.roomID = c.pendingRoom
		roomID := c.roomID
		c.Unlock()
		c.pushUpdate(JoinAckMsg{RoomID: roomID})
	case protocol.MsgNackJoin:
		c.pushUpdate(JoinRejectedMsg{Reason: reply.Args})
	case protocol.MsgAckLeave:
		c.Lock()
		c.roomID = -1
		c.Unlock()
		c.pushUpdate(LeaveAckMsg{})
	case protocol.MsgNackLeave:
		c.pushUpdate(LeaveRejectedMsg{Reason: reply.Args})

	case protocol.MsgAckReady:
		c.pushUpdate(ReadyAckMsg{})
	case protocol.MsgAckUnready:
		c.pushUpdate(UnreadyAckMsg{})
	case protocol.MsgRoomStatus:
		msg, err := parseRoomStatus(reply.Args)
		if err != nil {
			c.pushError(err)
			return
		}
		c.pushUpdate(msg)

	case protocol.MsgReqBet:
		c.pushUpdate(BetRequestMsg{})
	case protocol.MsgAckBet:
		amount, err := strconv.Atoi(strings.TrimSpace(reply.Args))
		if err != nil {
			c.pushError(fmt.Errorf("malformed bet ack %q: %v", reply.Args, err))
			return
		}
		c.Lock()
		c.credits -= amount
		c.Unlock()
		c.pushUpdate(BetAckMsg{Amount: amount})
	case protocol.MsgNackBet:
		c.pushUpdate(BetRejectedMsg{Reason: reply.Args})

	case protocol.MsgGameState:
		msg, err := parseGameState(reply.Args)
		if err != nil {
			c.pushError(err)
			return
		}
		c.pushUpdate(msg)
	case protocol.MsgBust:
		c.pushUpdate(BustMsg{})
	case protocol.MsgHit21:
		c.pushUpdate(Hit21Msg{})
	case protocol.MsgAckStand:
		c.pushUpdate(StandAckMsg{})
	case protocol.MsgNackHit:
		c.pushUpdate(HitRejectedMsg{Reason: reply.Args})
	case protocol.MsgRoundEnd:
		msg, err := parseRoundEnd(reply.Args)
		if err != nil {
			c.pushError(err)
			return
		}
		c.Lock()
		c.credits = msg.Credits
		c.Unlock()
		c.pushUpdate(msg)
	case protocol.MsgAckPlay:
		roomID, err := strconv.Atoi(reply.Args)
		if err != nil {
			c.pushError(fmt.Errorf("malformed play ack %q: %v", reply.Args, err))
			return
		}
		c.pushUpdate(PlayAgainAckMsg{RoomID: roomID})
	case protocol.MsgNackPlay:
		c.pushUpdate(PlayAgainRejectedMsg{Reason: reply.Args})

	case protocol.MsgNackCmd:
		c.pushUpdate(CommandRejectedMsg{Reason: reply.Args})
	case protocol.MsgInvalid:
		c.pushUpdate(CommandRejectedMsg{Reason: "Invalid message"})
	case protocol.MsgConFail:
		c.pushUpdate(ConnFailMsg{Reason: reply.Args})
	case protocol.MsgDisconnect:
		c.pushUpdate(KickedMsg{Reason: reply.Args})

	default:
		c.log.Warnf("Unhandled server frame %s", reply.Command)
	}
}

func (c *Client) pushUpdate(msg tea.Msg) {
	select {
	case c.UpdatesCh <- msg:
	default:
		c.log.Warnf("Updates channel full, dropping %T", msg)
	}
}

func (c *Client) pushError(err error) {
	select {
	case c.ErrorsCh <- err:
	default:
		c.log.Warnf("Errors channel full, dropping: %v", err)
	}
}
