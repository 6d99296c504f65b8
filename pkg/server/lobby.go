package server

import (
	"strconv"
	"strings"
	"time"

	"github.com/decred/slog"

	"github.com/vctt94/blackjacksrv/pkg/blackjack"
	"github.com/vctt94/blackjacksrv/pkg/protocol"
)

const (
	minNickLen = 3
	maxNickLen = 16

	// lobbyInvalidMsgLimit caps protocol violations handled at the lobby
	// level before the player is expelled without a recovery window.
	lobbyInvalidMsgLimit = 5

	// DefaultRecoveryTTL is how long a named session outlives its socket
	// waiting for the owner to log back in.
	DefaultRecoveryTTL = 5 * time.Minute
)

// recoverableSeat is a named session parked between disconnect and reconnect.
type recoverableSeat struct {
	player *blackjack.Player
	since  time.Time
}

// Lobby tracks every live session, the parked sessions awaiting reconnect,
// and the room directory. It is not safe for concurrent use; every method
// runs on the server's event loop.
type Lobby struct {
	log slog.Logger

	online      map[blackjack.Messenger]*blackjack.Player
	recoverable map[string]recoverableSeat
	rooms       map[int]*blackjack.Room
	dirty       bool

	recoveryTTL time.Duration

	// destroy severs a player's transport without parking the session.
	destroy func(p *blackjack.Player)
}

func newLobby(log slog.Logger, recoveryTTL time.Duration, destroy func(*blackjack.Player)) *Lobby {
	if recoveryTTL <= 0 {
		recoveryTTL = DefaultRecoveryTTL
	}
	return &Lobby{
		log:         log,
		online:      make(map[blackjack.Messenger]*blackjack.Player),
		recoverable: make(map[string]recoverableSeat),
		rooms:       make(map[int]*blackjack.Room),
		recoveryTTL: recoveryTTL,
		destroy:     destroy,
	}
}

// AddRoom registers a room under its ID. Rooms are created once at startup;
// their IDs are dense starting at zero.
func (l *Lobby) AddRoom(r *blackjack.Room) {
	l.rooms[r.ID()] = r
}

// Room returns the room with the given ID, or nil.
func (l *Lobby) Room(id int) *blackjack.Room {
	return l.rooms[id]
}

// MarkDirty schedules a lobby snapshot rebroadcast on the next Update.
func (l *Lobby) MarkDirty() {
	l.dirty = true
}

// OnlineCount is the number of connected sessions, named or not.
func (l *Lobby) OnlineCount() int {
	return len(l.online)
}

// RecoverableCount is the number of parked sessions awaiting reconnect.
func (l *Lobby) RecoverableCount() int {
	return len(l.recoverable)
}

// Player returns the session bound to m, or nil.
func (l *Lobby) Player(m blackjack.Messenger) *blackjack.Player {
	return l.online[m]
}

// SocketOf returns the messenger currently bound to p, or nil.
func (l *Lobby) SocketOf(p *blackjack.Player) blackjack.Messenger {
	for m, q := range l.online {
		if q == p {
			return m
		}
	}
	return nil
}

// AddPlayer opens a fresh session on m and asks for a nickname.
func (l *Lobby) AddPlayer(m blackjack.Messenger) *blackjack.Player {
	p := blackjack.NewPlayer(m)
	l.online[m] = p
	p.Send(protocol.MsgReqNick, "")
	l.dirty = true
	return p
}

// RemovePlayer tears down the session bound to m. Named sessions are parked
// for recovery; a seat in a PLAYING room is kept so the owner can reclaim it
// mid-round.
func (l *Lobby) RemovePlayer(m blackjack.Messenger) {
	p, ok := l.online[m]
	if !ok {
		return
	}
	delete(l.online, m)
	p.Disconnect()
	if room, ok := l.rooms[p.RoomID]; ok {
		room.HandleDisconnect(p)
	}
	if p.Nickname != "" {
		p.State = blackjack.Disconnected
		l.recoverable[p.Nickname] = recoverableSeat{player: p, since: time.Now()}
		l.log.Infof("Player %s disconnected, session recoverable for %s", p.Nickname, l.recoveryTTL)
	}
	l.dirty = true
}

// Expel drops p's session outright: no recovery window, no parked seat. The
// transport teardown is the destroy callback's job.
func (l *Lobby) Expel(p *blackjack.Player) {
	for m, q := range l.online {
		if q == p {
			delete(l.online, m)
			break
		}
	}
	if room, ok := l.rooms[p.RoomID]; ok {
		room.RemovePlayer(p)
	}
	p.Disconnect()
	l.dirty = true
}

// Handle routes one valid frame from p. Frames from seated players go to
// their room; everything else is lobby business.
func (l *Lobby) Handle(p *blackjack.Player, msg protocol.Message) {
	if p.Nickname == "" && msg.Command != protocol.CmdLogin {
		l.log.Debugf("Rejected %s before login", msg.Command)
		p.Send(protocol.MsgReqNick, "")
		l.handleInvalid(p)
		return
	}

	// Leaving works from any phase, including mid-round.
	if msg.Command == protocol.CmdLeaveRoom {
		l.handleLeaveRoom(p)
		return
	}

	if p.State == blackjack.InRoom {
		if room, ok := l.rooms[p.RoomID]; ok {
			room.Handle(p, msg)
			return
		}
		l.log.Errorf("Player %s marked in room %d but the room does not exist", p.Nickname, p.RoomID)
		p.State = blackjack.InLobby
		p.RoomID = -1
	}

	switch msg.Command {
	case protocol.CmdLogin:
		l.handleLogin(p, msg)
	case protocol.CmdJoin:
		l.handleJoin(p, msg)
	case protocol.CmdPing:
		// Normally intercepted at the transport; answered here too so the
		// lobby stands alone.
		p.Send(protocol.MsgAckPing, "")
	default:
		l.log.Debugf("Unknown lobby command %s from %q", msg.Command, p.Nickname)
		p.Send(protocol.MsgInvalid, "Invalid message")
		l.handleInvalid(p)
	}
}

// Update runs after every handled event and once per tick: expired parked
// sessions are swept, a dirty lobby view is rebroadcast, and every room
// advances its state machine.
func (l *Lobby) Update() {
	l.expireRecoverable()
	if l.dirty {
		l.Broadcast(protocol.MsgLobbyInfo, l.LobbyStatePayload())
		l.dirty = false
	}
	for i := 0; i < len(l.rooms); i++ {
		l.rooms[i].Update()
	}
}

// Broadcast sends one frame to every named player idling in the lobby.
// Seated players get room snapshots instead, and nameless sessions have
// nothing to show yet.
func (l *Lobby) Broadcast(command, args string) {
	for _, p := range l.online {
		if p.Nickname == "" || p.State != blackjack.InLobby {
			continue
		}
		p.Send(command, args)
	}
}

// LobbyStatePayload renders the LBBYINFO body: the online headcount followed
// by each room's occupancy and phase.
func (l *Lobby) LobbyStatePayload() string {
	var b strings.Builder
	b.WriteString("ONLINE;" + strconv.Itoa(len(l.online)) + ":")
	b.WriteString("ROOMS;" + strconv.Itoa(len(l.rooms)) + ":")
	for i := 0; i < len(l.rooms); i++ {
		room := l.rooms[i]
		b.WriteString("R" + strconv.Itoa(room.ID()) + ";")
		b.WriteString(strconv.Itoa(room.PlayerCount()) + "/" + strconv.Itoa(blackjack.MaxPlayersPerRoom) + ";")
		b.WriteString(strconv.Itoa(int(room.State())) + ":")
	}
	return b.String()
}

func (l *Lobby) handleLogin(p *blackjack.Player, msg protocol.Message) {
	if len(msg.Args) < 1 || msg.Args[0] == "" {
		p.Send(protocol.MsgNackNick, "Nickname required")
		return
	}
	nick := msg.Args[0]

	if l.nicknameInUse(nick) {
		l.log.Debugf("Nickname %q already taken", nick)
		p.Send(protocol.MsgNackNick, "Nickname already taken")
		return
	}

	if p.Nickname != "" && p.Nickname != nick {
		l.log.Debugf("Player %s attempted relogin as %q", p.Nickname, nick)
		p.Send(protocol.MsgInvalid, "Invalid message")
		l.handleInvalid(p)
		return
	}

	// Only a fresh session may claim a parked nickname.
	if _, ok := l.recoverable[nick]; ok {
		l.recoverSession(p, nick)
		return
	}

	if !validNickname(nick) {
		l.log.Debugf("Rejected invalid nickname %q", nick)
		p.Send(protocol.MsgNackNick, "Invalid nickname")
		return
	}

	p.Nickname = nick
	l.log.Infof("Player logged in as %s", nick)
	p.Send(protocol.MsgAckNick, nick+";"+strconv.Itoa(p.Credits))
	l.dirty = true
}

// recoverSession rebinds the parked session owning nick to the socket behind
// placeholder, which it replaces. Credits, room seat and round state all
// survive from before the disconnect.
func (l *Lobby) recoverSession(placeholder *blackjack.Player, nick string) {
	m := l.SocketOf(placeholder)
	if m == nil {
		return
	}
	seat := l.recoverable[nick]
	delete(l.recoverable, nick)

	p := seat.player
	p.Reconnect(m)
	l.online[m] = p
	l.log.Infof("Player %s recovered session with %d credits (room %d)", p.Nickname, p.Credits, p.RoomID)
	p.Send(protocol.MsgAckRecover,
		p.Nickname+";"+strconv.Itoa(p.Credits)+";"+strconv.Itoa(p.RoomID))
	l.dirty = true
}

func (l *Lobby) handleJoin(p *blackjack.Player, msg protocol.Message) {
	if len(msg.Args) < 1 || msg.Args[0] == "" {
		p.Send(protocol.MsgNackJoin, "Missing room ID")
		return
	}
	roomID, err := strconv.Atoi(msg.Args[0])
	if err != nil || !l.assignPlayerToRoom(p, roomID) {
		l.log.Debugf("Player %s failed to join room %q", p.Nickname, msg.Args[0])
		p.Send(protocol.MsgNackJoin, "Cannot join room")
		return
	}
	room := l.rooms[roomID]
	l.log.Infof("Player %s joined room %d", p.Nickname, roomID)
	p.Send(protocol.MsgAckJoin, "")
	room.Broadcast(protocol.MsgRoomStatus, room.RoomStatePayload())
}

// assignPlayerToRoom seats p when the room exists, is still gathering
// players, has space, and p can afford to play.
func (l *Lobby) assignPlayerToRoom(p *blackjack.Player, roomID int) bool {
	room, ok := l.rooms[roomID]
	if !ok {
		return false
	}
	if room.State() != blackjack.WaitingForPlayers || p.Credits <= 0 {
		return false
	}
	if !room.AddPlayer(p) {
		return false
	}
	p.RoomID = roomID
	p.State = blackjack.InRoom
	l.dirty = true
	return true
}

func (l *Lobby) handleLeaveRoom(p *blackjack.Player) {
	room, ok := l.rooms[p.RoomID]
	if !ok {
		l.log.Debugf("Player %s sent LVRO without a room", p.Nickname)
		p.Send(protocol.MsgNackLeave, "Not in a valid room")
		return
	}
	room.RemovePlayer(p)
	p.Send(protocol.MsgAckLeave, "")
	if room.PlayerCount() == 0 {
		room.Reset()
	} else if room.State() == blackjack.Playing {
		room.Broadcast(protocol.MsgGameState, room.GameStatePayload())
	} else {
		room.Broadcast(protocol.MsgRoomStatus, room.RoomStatePayload())
	}
	l.log.Infof("Player %s left room %d", p.Nickname, room.ID())
	l.dirty = true
}

// handleInvalid counts one lobby-level protocol violation and expels the
// player once past the cap.
func (l *Lobby) handleInvalid(p *blackjack.Player) {
	p.InvalidMsgs++
	if p.InvalidMsgs <= lobbyInvalidMsgLimit {
		return
	}
	l.log.Errorf("Player %q exceeded invalid message limit in lobby", p.Nickname)
	p.Send(protocol.MsgDisconnect, "Too many invalid messages")
	if l.destroy != nil {
		l.destroy(p)
	}
}

// expireRecoverable drops parked sessions whose owner never came back. A seat
// still held in a room is vacated the way a live leave would be.
func (l *Lobby) expireRecoverable() {
	if len(l.recoverable) == 0 {
		return
	}
	now := time.Now()
	for nick, seat := range l.recoverable {
		if now.Sub(seat.since) < l.recoveryTTL {
			continue
		}
		delete(l.recoverable, nick)
		p := seat.player
		if room, ok := l.rooms[p.RoomID]; ok {
			room.RemovePlayer(p)
			if room.PlayerCount() == 0 {
				room.Reset()
			} else if room.State() == blackjack.Playing {
				room.Broadcast(protocol.MsgGameState, room.GameStatePayload())
			} else {
				room.Broadcast(protocol.MsgRoomStatus, room.RoomStatePayload())
			}
		}
		l.log.Infof("Recovery window for %s expired", nick)
		l.dirty = true
	}
}

func (l *Lobby) nicknameInUse(nick string) bool {
	for _, p := range l.online {
		if p.Nickname == nick {
			return true
		}
	}
	return false
}

// validNickname enforces 3-16 characters drawn from letters, digits,
// underscore and hyphen.
func validNickname(nick string) bool {
	if len(nick) < minNickLen || len(nick) > maxNickLen {
		return false
	}
	for _, r := range nick {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '_' || r == '-':
		default:
			return false
		}
	}
	return true
}
