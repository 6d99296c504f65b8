package blackjack

import (
	"time"
)

// InitialCredits is the balance granted to every new player.
const InitialCredits = 1000

// OfflineAfter is how long a player may stay silent before rooms treat them
// as offline: skipped in broadcasts and shown with status 2 in snapshots.
const OfflineAfter = 9 * time.Second

// PlayerState represents where a player currently lives in the server
type PlayerState int

const (
	// InLobby is a connected player not seated in any room
	InLobby PlayerState = iota
	// InRoom is a connected player seated in a room
	InRoom
	// Disconnected is a player whose socket closed but whose session is
	// retained for reconnection
	Disconnected
)

// Messenger delivers protocol frames to one player's transport. The server
// installs a live messenger on connect and clears it on disconnect; frames
// sent while no messenger is attached are dropped.
type Messenger interface {
	Send(command, args string)
}

// Player represents a unified player session for both lobby-level and
// room-level operations
type Player struct {
	// Identity
	Nickname string

	// Session state
	State        PlayerState
	Credits      int
	RoomID       int // -1 when not seated
	LastActivity time.Time
	InvalidMsgs  int

	// Round-local state (reset between rounds)
	Ready     bool
	HasTurn   bool
	PlacedBet bool
	BetAmount int
	Hand      []Card

	msgr Messenger
}

// NewPlayer creates a new player session bound to the given transport,
// starting in the lobby with the default credit balance
func NewPlayer(msgr Messenger) *Player {
	p := &Player{
		State:        InLobby,
		Credits:      InitialCredits,
		RoomID:       -1,
		LastActivity: time.Now(),
		msgr:         msgr,
	}
	p.ResetRound()
	return p
}

// Send delivers one frame to the player's transport. Frames are dropped when
// the player is disconnected.
func (p *Player) Send(command, args string) {
	if p.msgr == nil {
		return
	}
	p.msgr.Send(command, args)
}

// Disconnect detaches the transport. The session object survives so the
// player can reclaim it by logging in with the same nickname.
func (p *Player) Disconnect() {
	p.msgr = nil
	p.State = Disconnected
}

// Reconnect binds a fresh transport to a recovered session, clearing the
// invalid-message counter and refreshing activity
func (p *Player) Reconnect(msgr Messenger) {
	p.msgr = msgr
	p.InvalidMsgs = 0
	p.LastActivity = time.Now()
	if p.RoomID >= 0 {
		p.State = InRoom
	} else {
		p.State = InLobby
	}
}

// Offline reports whether the player should be treated as unreachable: the
// socket is gone or nothing has been heard from it for OfflineAfter
func (p *Player) Offline(now time.Time) bool {
	return p.msgr == nil || now.Sub(p.LastActivity) > OfflineAfter
}

// HandString returns the player's hand as its wire payload
func (p *Player) HandString() string {
	return FormatHand(p.Hand)
}

// HandValue returns the blackjack value of the player's hand
func (p *Player) HandValue() int {
	return HandValue(p.Hand)
}

// ResetRound clears the player's round-local state while preserving
// identity, credits and room assignment
func (p *Player) ResetRound() {
	p.Ready = false
	p.HasTurn = false
	p.PlacedBet = false
	p.BetAmount = 0
	p.Hand = p.Hand[:0]
}
