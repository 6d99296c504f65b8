package blackjack

import (
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/decred/slog"

	"github.com/vctt94/blackjacksrv/pkg/protocol"
	"github.com/vctt94/blackjacksrv/pkg/statemachine"
)

// MaxPlayersPerRoom caps how many players can share one room.
const MaxPlayersPerRoom = 7

// DefaultTurnTimeout is how long the acting player may stall before the
// room stands them automatically.
const DefaultTurnTimeout = 30 * time.Second

// invalidMsgLimit is the per-player cap on protocol violations inside a
// room before the player is expelled.
const invalidMsgLimit = 5

// GameState identifies the phase of a room's round. The integer values are
// what LBBYINFO reports on the wire.
type GameState int

const (
	WaitingForPlayers GameState = iota
	Betting
	Playing
	RoundEnd
)

// String returns the phase's protocol name as used in NACK_CMD replies
func (s GameState) String() string {
	switch s {
	case WaitingForPlayers:
		return "WAITING_FOR_PLAYERS"
	case Betting:
		return "BETTING"
	case Playing:
		return "PLAYING"
	case RoundEnd:
		return "ROUND_END"
	default:
		return "UNKNOWN"
	}
}

// RoomStateFn represents a room state function following Rob Pike's pattern
type RoomStateFn = statemachine.StateFn[Room]

// RoundResult records one seat's settled outcome for a finished round
type RoundResult struct {
	Nickname string
	Bet      int
	Delta    int
	Credits  int
}

// RoomConfig holds configuration for a new room
type RoomConfig struct {
	ID          int
	Log         slog.Logger
	MaxPlayers  int           // defaults to MaxPlayersPerRoom
	TurnTimeout time.Duration // defaults to DefaultTurnTimeout
	Deck        *Deck         // defaults to a time-seeded deck

	// MarkLobbyDirty schedules a lobby snapshot rebroadcast after a phase
	// change that alters the lobby view.
	MarkLobbyDirty func()
	// DestroyPlayer expels a player that passed the invalid-message cap:
	// close the transport and drop the session without recovery.
	DestroyPlayer func(p *Player)
	// OnRoundSettled, when set, receives the results of every finished
	// round with at least one seated player.
	OnRoundSettled func(roomID int, results []RoundResult)
}

// Room drives one blackjack table through its round lifecycle and fans state
// snapshots out to the seated players. It is not safe for concurrent use;
// the owning loop calls every method from a single goroutine.
type Room struct {
	log slog.Logger
	cfg RoomConfig

	id         int
	state      GameState
	players    []*Player // seat order
	dealerHand []Card
	turnQueue  []*Player // head is the acting player
	turnStart  time.Time
	resume     bool // set by PAG_____ to leave ROUND_END

	// State machine - Rob Pike's pattern
	machine *statemachine.Machine[Room]
}

// NewRoom creates a room in WAITING_FOR_PLAYERS
func NewRoom(cfg RoomConfig) *Room {
	if cfg.MaxPlayers <= 0 {
		cfg.MaxPlayers = MaxPlayersPerRoom
	}
	if cfg.TurnTimeout <= 0 {
		cfg.TurnTimeout = DefaultTurnTimeout
	}
	if cfg.Deck == nil {
		cfg.Deck = NewDeck(rand.New(rand.NewSource(time.Now().UnixNano())))
	}
	if cfg.Log == nil {
		cfg.Log = slog.Disabled
	}

	r := &Room{
		log:   cfg.Log,
		cfg:   cfg,
		id:    cfg.ID,
		state: WaitingForPlayers,
	}
	r.machine = statemachine.New(r, roomStateWaitingForPlayers)
	return r
}

// ID returns the room's identifier
func (r *Room) ID() int {
	return r.id
}

// State returns the room's current phase
func (r *Room) State() GameState {
	return r.state
}

// PlayerCount returns the number of seated players
func (r *Room) PlayerCount() int {
	return len(r.players)
}

// AddPlayer seats a player if the room has space
func (r *Room) AddPlayer(p *Player) bool {
	if len(r.players) >= r.cfg.MaxPlayers {
		r.log.Errorf("Room %d is full", r.id)
		return false
	}
	r.players = append(r.players, p)
	r.log.Infof("Player %s added to room %d", p.Nickname, r.id)
	return true
}

// RemovePlayer takes a player out of the room, standing them first when they
// hold the acting turn. The player's room assignment and round state are
// cleared; the caller decides what happens to the session afterwards.
func (r *Room) RemovePlayer(p *Player) {
	idx := -1
	for i, q := range r.players {
		if q == p {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}

	if len(r.turnQueue) > 0 && r.turnQueue[0] == p {
		// The leaving player holds the turn; end it so play continues.
		r.playerStand(p)
		r.Broadcast(protocol.MsgGameState, r.GameStatePayload())
	} else {
		r.dropFromTurnQueue(p)
	}

	p.RoomID = -1
	p.State = InLobby
	p.ResetRound()
	r.players = append(r.players[:idx], r.players[idx+1:]...)
	r.log.Infof("Player %s removed from room %d", p.Nickname, r.id)
}

// HandleDisconnect reacts to a seated player's transport going away. During
// PLAYING the seat is kept so the player can reclaim it on reconnect (the
// turn timer stands them if it is their turn); outside PLAYING the player is
// removed outright.
func (r *Room) HandleDisconnect(p *Player) {
	if r.state == Playing {
		r.Broadcast(protocol.MsgGameState, r.GameStatePayload())
		return
	}
	r.RemovePlayer(p)
	r.Broadcast(protocol.MsgRoomStatus, r.RoomStatePayload())
}

// Reset forces the room back to WAITING_FOR_PLAYERS regardless of phase,
// clearing the dealer hand, the turn queue and every seat's round state
func (r *Room) Reset() {
	r.state = WaitingForPlayers
	r.machine.Set(roomStateWaitingForPlayers)
	r.resume = false
	r.resetRound()

	if len(r.players) == 0 {
		r.log.Debugf("Room %d is already in default state", r.id)
		return
	}
	r.log.Infof("Room %d reset to default state", r.id)
}

// Update advances the round state machine one step. It runs after every
// handled frame and once per server tick.
func (r *Room) Update() {
	r.machine.Dispatch()
}

// Handle routes one frame from a seated player through the handler for the
// room's current phase, rebroadcasts the phase snapshot, and updates the
// state machine.
func (r *Room) Handle(p *Player, msg protocol.Message) {
	r.log.Debugf("Handling %s from player %s in room %d", msg.Command, p.Nickname, r.id)

	// A reconnecting player asks for a fresh snapshot before acting.
	if msg.Command == protocol.CmdRecover {
		if r.state == Playing {
			r.log.Infof("Player %s reconnected during PLAYING state in room %d", p.Nickname, r.id)
			r.Broadcast(protocol.MsgGameState, r.GameStatePayload())
		} else {
			r.log.Infof("Player %s reconnected during %s state in room %d", p.Nickname, r.state, r.id)
			r.Broadcast(protocol.MsgRoomStatus, r.RoomStatePayload())
		}
		return
	}

	switch r.state {
	case WaitingForPlayers:
		r.handleWaiting(p, msg)
		r.Broadcast(protocol.MsgRoomStatus, r.RoomStatePayload())
	case Betting:
		r.handleBetting(p, msg)
		r.Broadcast(protocol.MsgRoomStatus, r.RoomStatePayload())
	case Playing:
		r.handlePlaying(p, msg)
		r.Broadcast(protocol.MsgGameState, r.GameStatePayload())
	case RoundEnd:
		r.handleRoundEnd(p, msg)
		r.Broadcast(protocol.MsgRoomStatus, r.RoomStatePayload())
	}
	r.Update()
}

// Broadcast sends one frame to every seated player that is not offline
func (r *Room) Broadcast(command, args string) {
	now := time.Now()
	for _, p := range r.players {
		if p.Offline(now) {
			continue
		}
		p.Send(command, args)
	}
}

// RoomStatePayload renders the ROMSTAUP body: each seat's nickname, status
// (2 offline, 1 ready, 0 otherwise) and current bet
func (r *Room) RoomStatePayload() string {
	now := time.Now()
	var b strings.Builder
	for _, p := range r.players {
		status := "0"
		if p.Offline(now) {
			status = "2"
		} else if p.Ready {
			status = "1"
		}
		b.WriteString("P;" + p.Nickname + ";" + status + ";BET;" + strconv.Itoa(p.BetAmount) + ":")
	}
	return b.String()
}

// GameStatePayload renders the GAMESTAT body: the dealer hand followed by
// each seat's nickname, status (2 offline, 1 acting, 0 otherwise) and hand.
// Turn flags are reconciled with the queue head before rendering.
func (r *Room) GameStatePayload() string {
	now := time.Now()
	var b strings.Builder
	b.WriteString("D;" + FormatHand(r.dealerHand) + ":")
	for _, p := range r.players {
		p.HasTurn = len(r.turnQueue) > 0 && r.turnQueue[0] == p
		status := "0"
		if p.Offline(now) {
			status = "2"
		} else if p.HasTurn {
			status = "1"
		}
		b.WriteString("P;" + p.Nickname + ";" + status + ";" + p.HandString() + ":")
	}
	return b.String()
}

func (r *Room) handleWaiting(p *Player, msg protocol.Message) {
	switch msg.Command {
	case protocol.CmdReady:
		p.Ready = true
		r.log.Infof("Player %s is ready in room %d", p.Nickname, r.id)
		p.Send(protocol.MsgAckReady, "")
	case protocol.CmdNotReady:
		p.Ready = false
		r.log.Infof("Player %s is not ready in room %d", p.Nickname, r.id)
		p.Send(protocol.MsgAckUnready, "")
	case protocol.CmdPlayAgain:
		r.handlePlayAgain(p)
	default:
		r.handleInvalid(p)
		p.Send(protocol.MsgNackCmd, "Invalid command during "+r.state.String())
	}
}

func (r *Room) handleBetting(p *Player, msg protocol.Message) {
	if msg.Command != protocol.CmdBet {
		r.handleInvalid(p)
		p.Send(protocol.MsgNackCmd, "Invalid command during "+r.state.String())
		return
	}
	if len(msg.Args) < 1 {
		p.Send(protocol.MsgNackBet, "Invalid bet amount")
		return
	}
	amount, err := strconv.Atoi(msg.Args[0])
	if err != nil {
		p.Send(protocol.MsgNackBet, "Invalid bet amount")
		return
	}
	if !r.placeBet(p, amount) {
		r.log.Infof("Player %s attempted invalid bet of %d in room %d", p.Nickname, amount, r.id)
		p.Send(protocol.MsgNackBet, "Invalid bet amount")
		return
	}
	r.log.Infof("Player %s placed a bet of %d in room %d", p.Nickname, amount, r.id)
	p.Send(protocol.MsgAckBet, " "+strconv.Itoa(amount))
}

func (r *Room) handlePlaying(p *Player, msg protocol.Message) {
	switch msg.Command {
	case protocol.CmdHit:
		r.log.Infof("Player %s requested HIT in room %d", p.Nickname, r.id)
		if !r.playerHit(p) {
			p.Send(protocol.MsgNackHit, "Cannot hit at this time")
		}
		// Hands at or above 21 are done whether the hit landed or not; the
		// stand only takes effect for the acting player.
		switch v := p.HandValue(); {
		case v > 21:
			r.log.Infof("Player %s busted in room %d", p.Nickname, r.id)
			r.playerStand(p)
			p.Send(protocol.MsgBust, "")
		case v == 21:
			r.log.Infof("Player %s hit 21 in room %d", p.Nickname, r.id)
			r.playerStand(p)
			p.Send(protocol.MsgHit21, "")
		}
	case protocol.CmdStand:
		r.log.Infof("Player %s requested STAND in room %d", p.Nickname, r.id)
		r.playerStand(p)
		p.Send(protocol.MsgAckStand, "")
	default:
		r.handleInvalid(p)
		p.Send(protocol.MsgNackCmd, "Invalid command during "+r.state.String())
	}
}

func (r *Room) handleRoundEnd(p *Player, msg protocol.Message) {
	if msg.Command != protocol.CmdPlayAgain {
		r.handleInvalid(p)
		p.Send(protocol.MsgNackCmd, "Invalid command during "+r.state.String())
		return
	}
	r.handlePlayAgain(p)
}

// handlePlayAgain opts a player into the next round. In ROUND_END it is what
// releases the room back to WAITING_FOR_PLAYERS.
func (r *Room) handlePlayAgain(p *Player) {
	if p.Credits <= 0 {
		r.log.Infof("Player %s cannot prepare for next game due to insufficient credits in room %d", p.Nickname, r.id)
		p.Send(protocol.MsgNackPlay, "Insufficient credits to continue")
		return
	}
	r.log.Infof("Player %s is preparing for next game in room %d", p.Nickname, r.id)
	if r.state == RoundEnd {
		r.resume = true
	}
	r.Update()
	p.Send(protocol.MsgAckPlay, strconv.Itoa(r.id))
}

// handleInvalid counts one protocol violation and expels the player once
// past the cap
func (r *Room) handleInvalid(p *Player) {
	p.InvalidMsgs++
	if p.InvalidMsgs <= invalidMsgLimit {
		return
	}
	r.log.Errorf("Player %s exceeded invalid message limit in room %d", p.Nickname, r.id)
	p.Send(protocol.MsgDisconnect, "Too many invalid messages")
	r.RemovePlayer(p)
	if r.cfg.DestroyPlayer != nil {
		r.cfg.DestroyPlayer(p)
	}
}

// placeBet debits the stake immediately; settlement later credits winnings
// and pushes back
func (r *Room) placeBet(p *Player, amount int) bool {
	if amount <= 0 || amount > p.Credits {
		return false
	}
	p.Credits -= amount
	p.BetAmount = amount
	p.PlacedBet = true
	return true
}

// playerHit deals the acting player one more card and refreshes the turn
// timer. It refuses when it is not the player's turn or the hand is already
// at 21 or above.
func (r *Room) playerHit(p *Player) bool {
	if len(r.turnQueue) == 0 || r.turnQueue[0] != p {
		return false
	}
	if p.HandValue() >= 21 {
		return false
	}
	p.Hand = append(p.Hand, r.cfg.Deck.Draw())
	r.turnStart = time.Now()
	return true
}

// playerStand ends the acting player's turn. Standing out of turn is a
// no-op.
func (r *Room) playerStand(p *Player) {
	if len(r.turnQueue) == 0 || r.turnQueue[0] != p {
		return
	}
	r.turnQueue = r.turnQueue[1:]
	r.turnStart = time.Now()
}

func (r *Room) dropFromTurnQueue(p *Player) {
	for i, q := range r.turnQueue {
		if q == p {
			r.turnQueue = append(r.turnQueue[:i], r.turnQueue[i+1:]...)
			return
		}
	}
}

// dealCards opens the round: two cards to the dealer, two to every seat, and
// the turn queue rebuilt in seat order
func (r *Room) dealCards() {
	r.dealerHand = r.dealerHand[:0]
	r.dealerHand = append(r.dealerHand, r.cfg.Deck.Draw(), r.cfg.Deck.Draw())
	r.turnQueue = r.turnQueue[:0]
	for _, p := range r.players {
		p.Hand = p.Hand[:0]
		p.Hand = append(p.Hand, r.cfg.Deck.Draw(), r.cfg.Deck.Draw())
		r.turnQueue = append(r.turnQueue, p)
	}
}

// dealerPlay draws until the dealer reaches 17, standing on any 17
func (r *Room) dealerPlay() {
	for HandValue(r.dealerHand) < 17 {
		r.dealerHand = append(r.dealerHand, r.cfg.Deck.Draw())
	}
}

// settle resolves one seat against the dealer hand. The stake was debited at
// placement, so losses need no further debit.
func (r *Room) settle(p *Player) (credits, delta int) {
	hand := p.HandValue()
	dealer := HandValue(r.dealerHand)

	switch {
	case hand > 21 || (dealer <= 21 && dealer > hand):
		delta = -p.BetAmount
		r.log.Infof("Player %s lost the round in room %d", p.Nickname, r.id)
	case hand == dealer:
		// Push, return the stake.
		delta = p.BetAmount
		p.Credits += delta
		r.log.Infof("Player %s pushed the round in room %d", p.Nickname, r.id)
	case hand == 21 && len(p.Hand) == 2:
		delta = p.BetAmount * 3 / 2
		p.Credits += delta
		r.log.Infof("Player %s got blackjack in room %d", p.Nickname, r.id)
	default:
		delta = p.BetAmount * 2
		p.Credits += delta
		r.log.Infof("Player %s won the round in room %d", p.Nickname, r.id)
	}
	return p.Credits, delta
}

// resetRound clears the dealer hand, the turn queue and every seat's round
// state
func (r *Room) resetRound() {
	r.dealerHand = r.dealerHand[:0]
	r.turnQueue = r.turnQueue[:0]
	for _, p := range r.players {
		p.ResetRound()
	}
}

func (r *Room) allPlayersReady() bool {
	for _, p := range r.players {
		if !p.Ready {
			return false
		}
	}
	return true
}

func (r *Room) allPlayersBet() bool {
	for _, p := range r.players {
		if !p.PlacedBet {
			return false
		}
	}
	return true
}

func (r *Room) allPlayersOffline() bool {
	now := time.Now()
	for _, p := range r.players {
		if !p.Offline(now) {
			return false
		}
	}
	return true
}

func (r *Room) markLobbyDirty() {
	if r.cfg.MarkLobbyDirty != nil {
		r.cfg.MarkLobbyDirty()
	}
}

// State functions following Rob Pike's pattern
// Each state function performs its work and returns the next state function

// roomStateWaitingForPlayers waits for at least one seated player with every
// seat marked ready, then opens betting
func roomStateWaitingForPlayers(entity *Room) RoomStateFn {
	if len(entity.players) >= 1 && entity.allPlayersReady() {
		entity.state = Betting
		entity.log.Infof("Room %d transitioning to BETTING state", entity.id)
		entity.markLobbyDirty()
		entity.Broadcast(protocol.MsgReqBet, "")
		return roomStateBetting
	}
	return roomStateWaitingForPlayers // Stay in this state
}

// roomStateBetting waits for every seat to place a bet, then deals and opens
// play
func roomStateBetting(entity *Room) RoomStateFn {
	if entity.allPlayersBet() {
		entity.state = Playing
		entity.markLobbyDirty()
		entity.log.Infof("Room %d transitioning to PLAYING state", entity.id)
		entity.dealCards()
		entity.turnStart = time.Now()
		entity.Broadcast(protocol.MsgGameState, entity.GameStatePayload())
		return roomStatePlaying
	}
	return roomStateBetting // Stay in this state
}

// roomStatePlaying times out stalled turns and closes the round once the
// turn queue drains: the dealer plays and every seat is settled and told its
// outcome
func roomStatePlaying(entity *Room) RoomStateFn {
	if len(entity.turnQueue) == 0 {
		entity.state = RoundEnd
		entity.log.Infof("Room %d transitioning to ROUND_END state", entity.id)
		entity.dealerPlay()
		entity.Broadcast(protocol.MsgGameState, entity.GameStatePayload())

		results := make([]RoundResult, 0, len(entity.players))
		for _, p := range entity.players {
			bet := p.BetAmount
			credits, delta := entity.settle(p)
			p.Send(protocol.MsgRoundEnd, strconv.Itoa(credits)+";"+strconv.Itoa(delta))
			results = append(results, RoundResult{
				Nickname: p.Nickname,
				Bet:      bet,
				Delta:    delta,
				Credits:  credits,
			})
		}
		if entity.cfg.OnRoundSettled != nil && len(results) > 0 {
			entity.cfg.OnRoundSettled(entity.id, results)
		}
		return roomStateRoundEnd
	}

	if time.Since(entity.turnStart) >= entity.cfg.TurnTimeout {
		current := entity.turnQueue[0]
		entity.log.Infof("Player %s timed out in room %d, auto-standing", current.Nickname, entity.id)
		entity.playerStand(current)
		entity.Broadcast(protocol.MsgGameState, entity.GameStatePayload())
	}
	return roomStatePlaying // Stay in this state
}

// roomStateRoundEnd holds the results until a player opts into the next
// round or every seat has gone offline, then resets for a fresh round
func roomStateRoundEnd(entity *Room) RoomStateFn {
	if !entity.resume && !entity.allPlayersOffline() {
		return roomStateRoundEnd // Stay until someone opts in
	}
	entity.resume = false
	entity.resetRound()
	entity.state = WaitingForPlayers
	entity.markLobbyDirty()
	entity.log.Infof("Room %d transitioning to WAITING_FOR_PLAYERS state", entity.id)
	return roomStateWaitingForPlayers
}
