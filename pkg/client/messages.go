package client

// Every server frame the client dispatches becomes one of the typed messages
// below, delivered on UpdatesCh as a bubbletea tea.Msg. Add new types at the
// bottom of the matching group and wire them up in handleReply.

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vctt94/blackjacksrv/pkg/blackjack"
)

// Seat status codes as reported by room and game snapshots.
const (
	SeatStatusIdle    = 0
	SeatStatusActive  = 1 // ready during betting, holding the turn during play
	SeatStatusOffline = 2
)

// NickRequestMsg asks the user to pick a nickname.
type NickRequestMsg struct{}

// NickAckMsg confirms a login.
type NickAckMsg struct {
	Nick    string
	Credits int
}

// NickRejectedMsg carries the reason a login was refused.
type NickRejectedMsg struct{ Reason string }

// RecoveredMsg confirms a session recovery. RoomID is -1 when the recovered
// session was in the lobby.
type RecoveredMsg struct {
	Nick    string
	Credits int
	RoomID  int
}

// RoomSummary is one room's line in the lobby snapshot.
type RoomSummary struct {
	ID         int
	Players    int
	MaxPlayers int
	State      blackjack.GameState
}

// LobbyInfoMsg is the lobby snapshot: who is online and what every room is
// doing.
type LobbyInfoMsg struct {
	Online int
	Rooms  []RoomSummary
}

// JoinAckMsg confirms taking a seat.
type JoinAckMsg struct{ RoomID int }

// JoinRejectedMsg carries the reason a join was refused.
type JoinRejectedMsg struct{ Reason string }

// LeaveAckMsg confirms leaving a room.
type LeaveAckMsg struct{}

// LeaveRejectedMsg carries the reason a leave was refused.
type LeaveRejectedMsg struct{ Reason string }

// ReadyAckMsg confirms a ready toggle.
type ReadyAckMsg struct{}

// UnreadyAckMsg confirms an unready toggle.
type UnreadyAckMsg struct{}

// SeatStatus is one seat's line in a room snapshot.
type SeatStatus struct {
	Nickname string
	Status   int
	Bet      int
}

// RoomStatusMsg is the room snapshot outside of play.
type RoomStatusMsg struct{ Seats []SeatStatus }

// BetRequestMsg announces that betting is open.
type BetRequestMsg struct{}

// BetAckMsg confirms a placed bet.
type BetAckMsg struct{ Amount int }

// BetRejectedMsg carries the reason a bet was refused.
type BetRejectedMsg struct{ Reason string }

// SeatHand is one seat's line in a game snapshot.
type SeatHand struct {
	Nickname string
	Status   int
	Cards    []blackjack.Card
}

// GameStateMsg is the table snapshot during play: the dealer's cards and
// every seat's hand.
type GameStateMsg struct {
	Dealer []blackjack.Card
	Seats  []SeatHand
}

// BustMsg tells the player their hand went over 21.
type BustMsg struct{}

// Hit21Msg tells the player their hand reached exactly 21.
type Hit21Msg struct{}

// StandAckMsg confirms a stand.
type StandAckMsg struct{}

// HitRejectedMsg carries the reason a hit was refused.
type HitRejectedMsg struct{ Reason string }

// RoundEndMsg is the player's settled outcome: the new balance and how much
// the round added or removed.
type RoundEndMsg struct {
	Credits int
	Delta   int
}

// PlayAgainAckMsg confirms opting into the next round.
type PlayAgainAckMsg struct{ RoomID int }

// PlayAgainRejectedMsg carries the reason the opt-in was refused.
type PlayAgainRejectedMsg struct{ Reason string }

// CommandRejectedMsg reports a command the server refused outright.
type CommandRejectedMsg struct{ Reason string }

// PongMsg is the server's reply to a client PING.
type PongMsg struct{}

// ConnFailMsg is the server turning the connection away before login.
type ConnFailMsg struct{ Reason string }

// KickedMsg is the server closing the session on purpose.
type KickedMsg struct{ Reason string }

// ServerClosedMsg reports that the connection is gone. Err is nil on a clean
// remote close.
type ServerClosedMsg struct{ Err error }

// parseNickAck splits an ACK__NIC payload: <nick>;<credits>.
func parseNickAck(payload string) (NickAckMsg, error) {
	nick, creditsStr, ok := strings.Cut(payload, ";")
	if !ok {
		return NickAckMsg{}, fmt.Errorf("malformed login ack %q", payload)
	}
	credits, err := strconv.Atoi(creditsStr)
	if err != nil {
		return NickAckMsg{}, fmt.Errorf("malformed login ack %q: %v", payload, err)
	}
	return NickAckMsg{Nick: nick, Credits: credits}, nil
}

// parseRecovered splits an ACK__REC payload: <nick>;<credits>;<roomID>.
func parseRecovered(payload string) (RecoveredMsg, error) {
	parts := strings.Split(payload, ";")
	if len(parts) != 3 {
		return RecoveredMsg{}, fmt.Errorf("malformed recovery ack %q", payload)
	}
	credits, err := strconv.Atoi(parts[1])
	if err != nil {
		return RecoveredMsg{}, fmt.Errorf("malformed recovery ack %q: %v", payload, err)
	}
	roomID, err := strconv.Atoi(parts[2])
	if err != nil {
		return RecoveredMsg{}, fmt.Errorf("malformed recovery ack %q: %v", payload, err)
	}
	return RecoveredMsg{Nick: parts[0], Credits: credits, RoomID: roomID}, nil
}

// parseLobbyInfo decodes an LBBYINFO payload:
//
//	ONLINE;<n>:ROOMS;<m>:R<id>;<players>/<max>;<state>:...
func parseLobbyInfo(payload string) (LobbyInfoMsg, error) {
	var msg LobbyInfoMsg
	for _, group := range strings.Split(payload, ":") {
		if group == "" {
			continue
		}
		fields := strings.Split(group, ";")
		switch {
		case fields[0] == "ONLINE" && len(fields) == 2:
			n, err := strconv.Atoi(fields[1])
			if err != nil {
				return msg, fmt.Errorf("malformed lobby group %q: %v", group, err)
			}
			msg.Online = n
		case fields[0] == "ROOMS" && len(fields) == 2:
			// Room count; the per-room groups carry the detail.
		case strings.HasPrefix(fields[0], "R") && len(fields) == 3:
			room, err := parseRoomSummary(fields)
			if err != nil {
				return msg, err
			}
			msg.Rooms = append(msg.Rooms, room)
		default:
			return msg, fmt.Errorf("malformed lobby group %q", group)
		}
	}
	return msg, nil
}

func parseRoomSummary(fields []string) (RoomSummary, error) {
	var room RoomSummary
	id, err := strconv.Atoi(fields[0][1:])
	if err != nil {
		return room, fmt.Errorf("malformed room id %q", fields[0])
	}
	playersStr, maxStr, ok := strings.Cut(fields[1], "/")
	if !ok {
		return room, fmt.Errorf("malformed room occupancy %q", fields[1])
	}
	players, err := strconv.Atoi(playersStr)
	if err != nil {
		return room, fmt.Errorf("malformed room occupancy %q", fields[1])
	}
	max, err := strconv.Atoi(maxStr)
	if err != nil {
		return room, fmt.Errorf("malformed room occupancy %q", fields[1])
	}
	state, err := strconv.Atoi(fields[2])
	if err != nil {
		return room, fmt.Errorf("malformed room state %q", fields[2])
	}
	room.ID = id
	room.Players = players
	room.MaxPlayers = max
	room.State = blackjack.GameState(state)
	return room, nil
}

// parseRoomStatus decodes a ROMSTAUP payload:
//
//	P;<nick>;<status>;BET;<amount>:...
func parseRoomStatus(payload string) (RoomStatusMsg, error) {
	var msg RoomStatusMsg
	for _, group := range strings.Split(payload, ":") {
		if group == "" {
			continue
		}
		fields := strings.Split(group, ";")
		if len(fields) != 5 || fields[0] != "P" || fields[3] != "BET" {
			return msg, fmt.Errorf("malformed seat group %q", group)
		}
		status, err := strconv.Atoi(fields[2])
		if err != nil {
			return msg, fmt.Errorf("malformed seat status %q", group)
		}
		bet, err := strconv.Atoi(fields[4])
		if err != nil {
			return msg, fmt.Errorf("malformed seat bet %q", group)
		}
		msg.Seats = append(msg.Seats, SeatStatus{
			Nickname: fields[1],
			Status:   status,
			Bet:      bet,
		})
	}
	return msg, nil
}

// parseGameState decodes a GAMESTAT payload:
//
//	D;<hand>:P;<nick>;<status>;<hand>:...
//
// where <hand> is a semicolon-joined card list or the literal NO.
func parseGameState(payload string) (GameStateMsg, error) {
	var msg GameStateMsg
	for _, group := range strings.Split(payload, ":") {
		if group == "" {
			continue
		}
		fields := strings.Split(group, ";")
		switch fields[0] {
		case "D":
			cards, err := blackjack.ParseHand(strings.Join(fields[1:], ";"))
			if err != nil {
				return msg, fmt.Errorf("malformed dealer hand %q: %v", group, err)
			}
			msg.Dealer = cards
		case "P":
			if len(fields) < 4 {
				return msg, fmt.Errorf("malformed seat group %q", group)
			}
			status, err := strconv.Atoi(fields[2])
			if err != nil {
				return msg, fmt.Errorf("malformed seat status %q", group)
			}
			cards, err := blackjack.ParseHand(strings.Join(fields[3:], ";"))
			if err != nil {
				return msg, fmt.Errorf("malformed seat hand %q: %v", group, err)
			}
			msg.Seats = append(msg.Seats, SeatHand{
				Nickname: fields[1],
				Status:   status,
				Cards:    cards,
			})
		default:
			return msg, fmt.Errorf("malformed game group %q", group)
		}
	}
	return msg, nil
}

// parseRoundEnd splits a ROUNDEND payload: <credits>;<delta>.
func parseRoundEnd(payload string) (RoundEndMsg, error) {
	creditsStr, deltaStr, ok := strings.Cut(payload, ";")
	if !ok {
		return RoundEndMsg{}, fmt.Errorf("malformed round end %q", payload)
	}
	credits, err := strconv.Atoi(creditsStr)
	if err != nil {
		return RoundEndMsg{}, fmt.Errorf("malformed round end %q: %v", payload, err)
	}
	delta, err := strconv.Atoi(deltaStr)
	if err != nil {
		return RoundEndMsg{}, fmt.Errorf("malformed round end %q: %v", payload, err)
	}
	return RoundEndMsg{Credits: credits, Delta: delta}, nil
}
