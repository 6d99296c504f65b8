package server

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"sync"
	"time"

	"github.com/decred/slog"
	"golang.org/x/sync/errgroup"

	"github.com/vctt94/blackjacksrv/pkg/blackjack"
	"github.com/vctt94/blackjacksrv/pkg/logging"
	"github.com/vctt94/blackjacksrv/pkg/protocol"
)

const (
	// transportInvalidLimit caps frames that fail protocol parsing before
	// the socket is dropped. A named session still gets its recovery
	// window; the wire may just be garbled.
	transportInvalidLimit = 3

	// eventQueueLen bounds the loop's inbox of read-pump postings.
	eventQueueLen = 256
)

// Server accepts blackjack clients and runs every session on one event loop
// goroutine. Read pumps post inbound chunks to the loop, write pumps drain
// per-connection queues, and the loop alone touches the lobby, the rooms and
// the players, so none of the game state needs locks.
type Server struct {
	log slog.Logger
	cfg Config
	db  Database

	lobby *Lobby
	conns map[*Conn]struct{}

	accepts chan net.Conn
	events  chan connEvent

	ls     net.Listener
	nextID uint64

	diag *diagnostics

	// saveWg tracks in-flight ledger writes so shutdown does not lose the
	// last settled round.
	saveWg sync.WaitGroup
}

// NewServer wires a server from its parts. The db may be nil to disable the
// round ledger.
func NewServer(cfg Config, db Database, logBackend *logging.LogBackend) *Server {
	cfg.normalize()

	s := &Server{
		log:     logBackend.Logger("SRVR"),
		cfg:     cfg,
		db:      db,
		conns:   make(map[*Conn]struct{}),
		accepts: make(chan net.Conn),
		events:  make(chan connEvent, eventQueueLen),
		diag:    newDiagnostics(logBackend.Logger("DIAG")),
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	deck := blackjack.NewDeck(rand.New(rand.NewSource(seed)))

	s.lobby = newLobby(logBackend.Logger("LOBY"), cfg.RecoveryTTL, s.destroyPlayer)
	roomLog := logBackend.Logger("ROOM")
	for i := 0; i < cfg.Rooms; i++ {
		s.lobby.AddRoom(blackjack.NewRoom(blackjack.RoomConfig{
			ID:             i,
			Log:            roomLog,
			TurnTimeout:    cfg.TurnTimeout,
			Deck:           deck,
			MarkLobbyDirty: s.lobby.MarkDirty,
			DestroyPlayer:  s.destroyPlayer,
			OnRoundSettled: s.recordRound,
		}))
	}

	return s
}

// Listen binds the configured address. Run calls it when it has not been
// called already; tests call it first to learn the bound port.
func (s *Server) Listen() error {
	ls, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr(), err)
	}
	s.ls = ls
	s.log.Infof("Blackjack server listening on %s (%d rooms, %d players max)",
		ls.Addr(), s.cfg.Rooms, s.cfg.MaxPlayers)
	return nil
}

// Addr reports the bound listen address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	if s.ls == nil {
		return nil
	}
	return s.ls.Addr()
}

// Run serves until ctx is canceled. On cancellation the listener and every
// client socket are closed and pending ledger writes are waited out.
func (s *Server) Run(ctx context.Context) error {
	if s.ls == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.acceptLoop(gctx) })
	g.Go(func() error { return s.loop(gctx) })
	g.Go(func() error {
		// Unblock Accept once the rest of the group winds down.
		<-gctx.Done()
		return s.ls.Close()
	})

	err := g.Wait()
	s.saveWg.Wait()
	if errors.Is(err, net.ErrClosed) {
		err = nil
	}
	s.log.Infof("Server shut down")
	return err
}

// acceptLoop hands fresh sockets to the event loop. Capacity checks happen
// there, where the lobby state lives.
func (s *Server) acceptLoop(ctx context.Context) error {
	for {
		nc, err := s.ls.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("accept failed: %w", err)
		}
		select {
		case s.accepts <- nc:
		case <-ctx.Done():
			nc.Close()
			return nil
		}
	}
}

// loop is the event loop: it owns all lobby, room and player state. Every
// wake handles at most one event, then runs the lobby update and, at least
// every SweepEvery, the liveness sweep.
func (s *Server) loop(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.TickEvery)
	defer ticker.Stop()

	lastSweep := time.Now()
	sweeps := 0

	for {
		select {
		case <-ctx.Done():
			for c := range s.conns {
				c.Close()
			}
			return nil
		case nc := <-s.accepts:
			s.handleAccept(nc)
		case ev := <-s.events:
			s.handleConnEvent(ev)
		case <-ticker.C:
		}

		s.lobby.Update()

		if time.Since(lastSweep) >= s.cfg.SweepEvery {
			s.sweepIdle()
			lastSweep = time.Now()
			if sweeps++; sweeps%diagEverySweeps == 0 {
				s.diag.report(s.lobby.OnlineCount(), s.lobby.RecoverableCount())
			}
		}
	}
}

// handleAccept admits a socket or turns it away when the server is full.
func (s *Server) handleAccept(nc net.Conn) {
	if s.lobby.OnlineCount() >= s.cfg.MaxPlayers {
		s.log.Warnf("Rejecting %s: server is full (%d players)", nc.RemoteAddr(), s.cfg.MaxPlayers)
		nc.SetWriteDeadline(time.Now().Add(writeTimeout))
		nc.Write(protocol.Format(protocol.MsgConFail, "Max players reached"))
		nc.Close()
		return
	}

	s.nextID++
	c := newConn(s.nextID, nc, s.log)
	s.conns[c] = struct{}{}
	go c.readPump(s.events)
	go c.writePump()

	s.lobby.AddPlayer(c)
	s.log.Infof("Client connected from %s", c.RemoteAddr())
}

// handleConnEvent feeds one read-pump posting through framing and dispatch.
// Events for connections that were already dropped are stale and ignored.
func (s *Server) handleConnEvent(ev connEvent) {
	c := ev.conn
	if _, ok := s.conns[c]; !ok {
		return
	}
	if ev.data == nil {
		s.disconnect(c)
		return
	}

	p := s.lobby.Player(c)
	if p == nil {
		return
	}
	p.LastActivity = time.Now()

	if !c.Append(ev.data) {
		return
	}
	for _, line := range c.Drain() {
		s.handleFrame(c, p, line)
		if _, ok := s.conns[c]; !ok {
			// The frame cost the player the session; drop the rest.
			return
		}
	}
}

// handleFrame parses one line and routes it. The transport answers PING and
// PONG itself; everything else is the lobby's business.
func (s *Server) handleFrame(c *Conn, p *blackjack.Player, line string) {
	msg := protocol.Parse(line)
	if !msg.Valid {
		c.invalid++
		s.log.Warnf("Unparseable frame from %s (strike %d): %q", c.RemoteAddr(), c.invalid, line)
		if c.invalid >= transportInvalidLimit {
			s.log.Errorf("Dropping %s after repeated unparseable frames", c.RemoteAddr())
			s.disconnect(c)
		}
		return
	}

	switch msg.Command {
	case protocol.CmdPing:
		c.Send(protocol.MsgPong, "")
	case protocol.CmdPong:
		// Heartbeat reply; the activity refresh already happened.
	default:
		s.lobby.Handle(p, msg)
	}
}

// disconnect tears down a connection through the regular path: the socket
// closes and the session, when named, parks in the recovery window.
func (s *Server) disconnect(c *Conn) {
	if _, ok := s.conns[c]; !ok {
		return
	}
	delete(s.conns, c)
	c.Close()
	s.log.Infof("Client disconnected: %s", c.RemoteAddr())
	s.lobby.RemovePlayer(c)
}

// destroyPlayer expels a player that blew past the invalid-message cap: no
// recovery window, transport closed on the spot.
func (s *Server) destroyPlayer(p *blackjack.Player) {
	m := s.lobby.SocketOf(p)
	s.lobby.Expel(p)
	if c, ok := m.(*Conn); ok {
		delete(s.conns, c)
		c.Close()
	}
}

// sweepIdle enforces liveness: quiet peers get a PING, silent ones get
// dropped.
func (s *Server) sweepIdle() {
	now := time.Now()
	var stale []*Conn
	for c := range s.conns {
		p := s.lobby.Player(c)
		if p == nil {
			continue
		}
		idle := now.Sub(p.LastActivity)
		switch {
		case idle >= s.cfg.DropAfter:
			stale = append(stale, c)
		case idle >= s.cfg.PingAfter:
			c.Send(protocol.MsgPing, "")
		}
	}
	for _, c := range stale {
		s.log.Infof("Client %s timed out waiting for a heartbeat", c.RemoteAddr())
		s.disconnect(c)
	}
}

// recordRound persists one settled round off the event loop. Ledger errors
// are logged and otherwise ignored; play never stalls on the database.
func (s *Server) recordRound(roomID int, results []blackjack.RoundResult) {
	if s.db == nil {
		return
	}
	s.saveWg.Add(1)
	go func() {
		defer s.saveWg.Done()
		if err := s.db.RecordRound(roomID, results); err != nil {
			s.log.Errorf("Failed to record round for room %d: %v", roomID, err)
		}
	}()
}
