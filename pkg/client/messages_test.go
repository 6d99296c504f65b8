package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vctt94/blackjacksrv/pkg/blackjack"
)

func TestParseNickAck(t *testing.T) {
	msg, err := parseNickAck("alice;1000")
	require.NoError(t, err)
	assert.Equal(t, NickAckMsg{Nick: "alice", Credits: 1000}, msg)

	_, err = parseNickAck("alice")
	assert.Error(t, err)
	_, err = parseNickAck("alice;lots")
	assert.Error(t, err)
}

func TestParseRecovered(t *testing.T) {
	msg, err := parseRecovered("bob;850;2")
	require.NoError(t, err)
	assert.Equal(t, RecoveredMsg{Nick: "bob", Credits: 850, RoomID: 2}, msg)

	msg, err = parseRecovered("bob;850;-1")
	require.NoError(t, err)
	assert.Equal(t, -1, msg.RoomID, "A lobby session recovers without a room")

	_, err = parseRecovered("bob;850")
	assert.Error(t, err)
}

func TestParseLobbyInfo(t *testing.T) {
	msg, err := parseLobbyInfo("ONLINE;2:ROOMS;6:R0;3/7;1:R1;0/7;0:")
	require.NoError(t, err)
	assert.Equal(t, 2, msg.Online)
	require.Len(t, msg.Rooms, 2)
	assert.Equal(t, RoomSummary{ID: 0, Players: 3, MaxPlayers: 7, State: blackjack.Betting}, msg.Rooms[0])
	assert.Equal(t, RoomSummary{ID: 1, Players: 0, MaxPlayers: 7, State: blackjack.WaitingForPlayers}, msg.Rooms[1])

	_, err = parseLobbyInfo("ONLINE;many")
	assert.Error(t, err)
	_, err = parseLobbyInfo("R0;3;1")
	assert.Error(t, err, "Occupancy must be players/max")
	_, err = parseLobbyInfo("WHAT;0")
	assert.Error(t, err)
}

func TestParseRoomStatus(t *testing.T) {
	msg, err := parseRoomStatus("P;alice;1;BET;100:P;bob;2;BET;0:")
	require.NoError(t, err)
	require.Len(t, msg.Seats, 2)
	assert.Equal(t, SeatStatus{Nickname: "alice", Status: SeatStatusActive, Bet: 100}, msg.Seats[0])
	assert.Equal(t, SeatStatus{Nickname: "bob", Status: SeatStatusOffline, Bet: 0}, msg.Seats[1])

	_, err = parseRoomStatus("X;alice;1;BET;100")
	assert.Error(t, err)
	_, err = parseRoomStatus("P;alice;ready;BET;100")
	assert.Error(t, err)
}

func TestParseGameState(t *testing.T) {
	msg, err := parseGameState("D;KH;2S:P;alice;1;AH;10D:P;bob;0;NO:")
	require.NoError(t, err)
	assert.Equal(t, []blackjack.Card{
		blackjack.NewCard(blackjack.King, blackjack.Hearts),
		blackjack.NewCard(blackjack.Two, blackjack.Spades),
	}, msg.Dealer)
	require.Len(t, msg.Seats, 2)
	assert.Equal(t, SeatHand{
		Nickname: "alice",
		Status:   SeatStatusActive,
		Cards: []blackjack.Card{
			blackjack.NewCard(blackjack.Ace, blackjack.Hearts),
			blackjack.NewCard(blackjack.Ten, blackjack.Diamonds),
		},
	}, msg.Seats[0])
	assert.Equal(t, SeatHand{Nickname: "bob", Status: SeatStatusIdle}, msg.Seats[1],
		"NO renders as an empty hand")

	_, err = parseGameState("D;XX")
	assert.Error(t, err)
	_, err = parseGameState("Q;alice;1;NO")
	assert.Error(t, err)
}

func TestParseRoundEnd(t *testing.T) {
	msg, err := parseRoundEnd("900;-100")
	require.NoError(t, err)
	assert.Equal(t, RoundEndMsg{Credits: 900, Delta: -100}, msg)

	msg, err = parseRoundEnd("1150;150")
	require.NoError(t, err)
	assert.Equal(t, RoundEndMsg{Credits: 1150, Delta: 150}, msg)

	_, err = parseRoundEnd("900")
	assert.Error(t, err)
	_, err = parseRoundEnd("900;push")
	assert.Error(t, err)
}
