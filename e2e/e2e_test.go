// This file contains end-to-end tests that spin up a full blackjack server
// backed by a real SQLite database. The tests exercise realistic gameplay
// flows with minimal mocking (only the network is in-process TCP).
//
// To keep the tests self-contained and independent they **must** be executed
// with `go test ./...` and **should not** depend on external resources.

package e2e

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/vctt94/blackjacksrv/pkg/blackjack"
	"github.com/vctt94/blackjacksrv/pkg/client"
	"github.com/vctt94/blackjacksrv/pkg/logging"
	"github.com/vctt94/blackjacksrv/pkg/server"
)

const (
	// waitTimeout bounds every single-message wait.
	waitTimeout = 5 * time.Second

	// autoplayTimeout bounds a whole automated round.
	autoplayTimeout = 30 * time.Second
)

// testEnv holds the runtime components that make up a fully functional
// instance of the blackjack server backed by a *real* SQLite database. Each
// E2E test spins up its own env so tests are completely isolated and can run
// in parallel.
type testEnv struct {
	t      *testing.T
	addr   string
	dbPath string
	db     server.Database
	srv    *server.Server
	cancel context.CancelFunc
	done   chan error
}

// createTestLogBackend builds the quiet log backend the test servers run
// with. Flip DebugLevel to debug when chasing a failure.
func createTestLogBackend() *logging.LogBackend {
	logBackend, err := logging.NewLogBackend(logging.LogConfig{
		DebugLevel:     "off",
		MaxLogFiles:    1,
		MaxBufferLines: 100,
	})
	if err != nil {
		// Fallback to a minimal LogBackend if creation fails
		return &logging.LogBackend{}
	}
	return logBackend
}

// newTestEnv creates, starts and returns a ready-to-use environment.
func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWith(t, nil)
}

// newTestEnvWith lets a test tweak the server config before startup.
func newTestEnvWith(t *testing.T, tweak func(*server.Config)) *testEnv {
	t.Helper()

	// 1. NEW TEMPORARY DATABASE -------------------------------------------------
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "blackjack.sqlite")
	database, err := server.NewDatabase(dbPath)
	require.NoError(t, err)

	// 2. TCP SERVER ---------------------------------------------------------------
	cfg := server.DefaultConfig()
	cfg.IP = "127.0.0.1"
	cfg.Port = 0 // pick a free port so parallel tests never collide
	cfg.Rooms = 2
	cfg.TickEvery = 25 * time.Millisecond
	if tweak != nil {
		tweak(&cfg)
	}

	srv := server.NewServer(cfg, database, createTestLogBackend())
	require.NoError(t, srv.Listen())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	return &testEnv{
		t:      t,
		addr:   srv.Addr().String(),
		dbPath: dbPath,
		db:     database,
		srv:    srv,
		cancel: cancel,
		done:   done,
	}
}

// Close gracefully shuts down the server and verifies it exited clean.
func (e *testEnv) Close() {
	e.cancel()
	if err := <-e.done; err != nil {
		e.t.Errorf("server exited with error: %v", err)
	}
	_ = e.db.Close()
}

// testClient wraps a client.Client with helpers that drive one player
// through the protocol and fail the test on anything unexpected.
type testClient struct {
	t *testing.T
	c *client.Client

	// outcome is filled in by autoplay once the round settles.
	outcome client.RoundEndMsg
}

// dial connects a fresh anonymous client to the env's server.
func (e *testEnv) dial() *testClient {
	e.t.Helper()
	c, err := client.Dial(context.Background(), client.Config{Addr: e.addr})
	require.NoError(e.t, err)
	return &testClient{t: e.t, c: c}
}

func (tc *testClient) close() {
	_ = tc.c.Close()
}

// expect reads tc's update stream until a message of type T arrives. Other
// message types are discarded, the way the UI only reacts to what its
// current screen cares about.
func expect[T tea.Msg](tc *testClient) T {
	tc.t.Helper()
	var zero T
	deadline := time.After(waitTimeout)
	for {
		select {
		case msg := <-tc.c.UpdatesCh:
			if m, ok := msg.(T); ok {
				return m
			}
		case err := <-tc.c.ErrorsCh:
			tc.t.Fatalf("client error while waiting for %T: %v", zero, err)
		case <-deadline:
			tc.t.Fatalf("timed out waiting for %T", zero)
		}
	}
}

// expectUntil reads messages of type T until pred accepts one.
func expectUntil[T tea.Msg](tc *testClient, what string, pred func(T) bool) T {
	tc.t.Helper()
	var zero T
	deadline := time.After(waitTimeout)
	for {
		select {
		case msg := <-tc.c.UpdatesCh:
			if m, ok := msg.(T); ok && pred(m) {
				return m
			}
		case err := <-tc.c.ErrorsCh:
			tc.t.Fatalf("client error while waiting for %s: %v", what, err)
		case <-deadline:
			tc.t.Fatalf("timed out waiting for %s (%T)", what, zero)
		}
	}
}

// login claims nick and waits for the server's ack.
func (tc *testClient) login(nick string) client.NickAckMsg {
	tc.t.Helper()
	require.NoError(tc.t, tc.c.Login(nick))
	return expect[client.NickAckMsg](tc)
}

// join takes a seat in roomID and waits for the ack.
func (tc *testClient) join(roomID int) {
	tc.t.Helper()
	require.NoError(tc.t, tc.c.Join(roomID))
	expect[client.JoinAckMsg](tc)
}

// readyUp marks the seat ready and waits for the ack.
func (tc *testClient) readyUp() {
	tc.t.Helper()
	require.NoError(tc.t, tc.c.Ready())
	expect[client.ReadyAckMsg](tc)
}

// placeBet waits for betting to open, stakes amount and waits for the ack.
func (tc *testClient) placeBet(amount int) {
	tc.t.Helper()
	expect[client.BetRequestMsg](tc)
	require.NoError(tc.t, tc.c.Bet(amount))
	ack := expect[client.BetAckMsg](tc)
	assert.Equal(tc.t, amount, ack.Amount)
}

// stand ends the turn and waits for the ack.
func (tc *testClient) stand() {
	tc.t.Helper()
	require.NoError(tc.t, tc.c.Stand())
	expect[client.StandAckMsg](tc)
}

// seatOf finds nick's seat in a game snapshot.
func seatOf(gs client.GameStateMsg, nick string) (client.SeatHand, bool) {
	for _, seat := range gs.Seats {
		if seat.Nickname == nick {
			return seat, true
		}
	}
	return client.SeatHand{}, false
}

// checkOutcome verifies the settlement arithmetic for a seat that started the
// round at before credits and staked bet: the stake is debited up front, a
// loss returns exactly the stake as a negative delta, and every positive
// delta is a push, natural or win payout credited on top of the debited
// balance.
func checkOutcome(t *testing.T, before, bet int, out client.RoundEndMsg) {
	t.Helper()
	if out.Delta < 0 {
		assert.Equal(t, -bet, out.Delta, "a lost round costs exactly the stake")
		assert.Equal(t, before-bet, out.Credits)
		return
	}
	assert.Contains(t, []int{bet, bet * 3 / 2, bet * 2}, out.Delta,
		"positive delta must be a push, natural or win payout")
	assert.Equal(t, before-bet+out.Delta, out.Credits)
}

// autoplay drives one seat with dealer-like strategy: hit below 17, stand
// otherwise. It places the stake when betting opens and returns once the
// round settles for this seat.
func (tc *testClient) autoplay(bet int) error {
	nick := tc.c.Nick()
	deadline := time.After(autoplayTimeout)
	for {
		select {
		case msg := <-tc.c.UpdatesCh:
			switch m := msg.(type) {
			case client.BetRequestMsg:
				if err := tc.c.Bet(bet); err != nil {
					return err
				}
			case client.GameStateMsg:
				seat, ok := seatOf(m, nick)
				if !ok || seat.Status != client.SeatStatusActive {
					continue
				}
				var err error
				if blackjack.HandValue(seat.Cards) < 17 {
					err = tc.c.Hit()
				} else {
					err = tc.c.Stand()
				}
				if err != nil {
					return err
				}
			case client.RoundEndMsg:
				tc.outcome = m
				return nil
			case client.BetRejectedMsg:
				return fmt.Errorf("%s: bet rejected: %s", nick, m.Reason)
			case client.HitRejectedMsg:
				return fmt.Errorf("%s: hit rejected: %s", nick, m.Reason)
			case client.CommandRejectedMsg:
				return fmt.Errorf("%s: command rejected: %s", nick, m.Reason)
			}
		case err := <-tc.c.ErrorsCh:
			return fmt.Errorf("%s: transport error: %w", nick, err)
		case <-deadline:
			return fmt.Errorf("%s: round did not settle within %s", nick, autoplayTimeout)
		}
	}
}

// -----------------------------------------------------------------------------
//
//	SCENARIO: Login handshake, lobby snapshot and liveness probe
//
// -----------------------------------------------------------------------------
func TestLoginAndLobbyInfo(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	defer env.Close()

	alice := env.dial()
	defer alice.close()

	// The server greets every connection with a nickname request.
	expect[client.NickRequestMsg](alice)

	ack := alice.login("gambler")
	assert.Equal(t, "gambler", ack.Nick)
	assert.Equal(t, blackjack.InitialCredits, ack.Credits)
	assert.Equal(t, "gambler", alice.c.Nick())

	// The first lobby snapshot follows the login.
	info := expect[client.LobbyInfoMsg](alice)
	assert.Equal(t, 1, info.Online)
	require.Len(t, info.Rooms, 2)
	for _, room := range info.Rooms {
		assert.Equal(t, 0, room.Players)
		assert.Equal(t, blackjack.MaxPlayersPerRoom, room.MaxPlayers)
		assert.Equal(t, blackjack.WaitingForPlayers, room.State)
	}

	// Liveness works both ways; the client answers server pings on its own,
	// and its own probe comes back as a pong.
	require.NoError(t, alice.c.Ping())
	expect[client.PongMsg](alice)

	// A second connection cannot steal the nickname.
	bob := env.dial()
	defer bob.close()
	require.NoError(t, bob.c.Login("gambler"))
	rejected := expect[client.NickRejectedMsg](bob)
	assert.Equal(t, "Nickname already taken", rejected.Reason)

	// Nor use a malformed one, but the connection survives to try again.
	require.NoError(t, bob.c.Login("x"))
	rejected = expect[client.NickRejectedMsg](bob)
	assert.Equal(t, "Invalid nickname", rejected.Reason)
	bob.login("better_name")
}

// -----------------------------------------------------------------------------
//
//	SCENARIO: A single player plays one complete round
//
// -----------------------------------------------------------------------------
func TestSinglePlayerRound(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	defer env.Close()

	alice := env.dial()
	defer alice.close()
	ack := alice.login("solo_sally")
	alice.join(0)
	assert.Equal(t, 0, alice.c.RoomID())

	// Readying the only seat opens betting immediately.
	alice.readyUp()
	alice.placeBet(100)

	// The stake is debited as soon as the bet is acknowledged.
	assert.Equal(t, ack.Credits-100, alice.c.Credits())

	// The opening deal: two dealer cards, two for the only seat, which also
	// holds the turn.
	deal := expectUntil(alice, "the opening deal",
		func(m client.GameStateMsg) bool { return len(m.Seats) == 1 })
	assert.Len(t, deal.Dealer, 2)
	seat := deal.Seats[0]
	assert.Equal(t, "solo_sally", seat.Nickname)
	assert.Equal(t, client.SeatStatusActive, seat.Status)
	assert.Len(t, seat.Cards, 2)

	alice.stand()

	// The dealer plays out and the seat settles.
	end := expect[client.RoundEndMsg](alice)
	checkOutcome(t, ack.Credits, 100, end)
	assert.Equal(t, end.Credits, alice.c.Credits())
}

// -----------------------------------------------------------------------------
//
//	SCENARIO: Two players share a table and the turn passes between them
//
// -----------------------------------------------------------------------------
func TestTwoPlayerRound(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	defer env.Close()

	alice := env.dial()
	defer alice.close()
	bob := env.dial()
	defer bob.close()

	alice.login("alice")
	bob.login("bob")
	alice.join(0)
	bob.join(0)

	alice.readyUp()
	bob.readyUp()

	alice.placeBet(100)
	bob.placeBet(250)

	// Seats appear in join order and the first seat acts first.
	deal := expectUntil(alice, "the opening deal",
		func(m client.GameStateMsg) bool { return len(m.Seats) == 2 })
	require.Len(t, deal.Seats, 2)
	assert.Equal(t, "alice", deal.Seats[0].Nickname)
	assert.Equal(t, "bob", deal.Seats[1].Nickname)
	assert.Equal(t, client.SeatStatusActive, deal.Seats[0].Status)
	assert.Equal(t, client.SeatStatusIdle, deal.Seats[1].Status)

	alice.stand()

	// Standing hands the turn to the next seat.
	expectUntil(bob, "the turn passing to bob", func(m client.GameStateMsg) bool {
		seat, ok := seatOf(m, "bob")
		return ok && seat.Status == client.SeatStatusActive
	})
	bob.stand()

	aliceEnd := expect[client.RoundEndMsg](alice)
	bobEnd := expect[client.RoundEndMsg](bob)
	checkOutcome(t, blackjack.InitialCredits, 100, aliceEnd)
	checkOutcome(t, blackjack.InitialCredits, 250, bobEnd)
}

// -----------------------------------------------------------------------------
//
//	SCENARIO: Autoplay a full round with 3 players hitting and standing
//
// -----------------------------------------------------------------------------
func TestThreePlayersAutoplayRound(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	defer env.Close()

	nicks := []string{"ana", "bruno", "carla"}
	bets := []int{50, 100, 150}
	clients := make([]*testClient, len(nicks))
	for i, nick := range nicks {
		clients[i] = env.dial()
		defer clients[i].close()
		clients[i].login(nick)
		clients[i].join(1)
	}
	for _, tc := range clients {
		tc.readyUp()
	}

	// Every seat plays itself: stake, then hit below 17, stand otherwise.
	var g errgroup.Group
	for i, tc := range clients {
		tc := tc
		bet := bets[i]
		g.Go(func() error { return tc.autoplay(bet) })
	}
	require.NoError(t, g.Wait())

	for i, tc := range clients {
		checkOutcome(t, blackjack.InitialCredits, bets[i], tc.outcome)
		assert.Equal(t, tc.outcome.Credits, tc.c.Credits(), "%s balance out of sync", nicks[i])
	}
}

// -----------------------------------------------------------------------------
//
//	SCENARIO: A socket dies mid-round and the player reclaims the seat
//
// -----------------------------------------------------------------------------
func TestDisconnectRecoveryMidRound(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	defer env.Close()

	alice := env.dial()
	defer alice.close()
	bob := env.dial() // closed by hand mid-test

	alice.login("stayer")
	bob.login("dropper")
	alice.join(0)
	bob.join(0)
	alice.readyUp()
	bob.readyUp()
	alice.placeBet(100)
	bob.placeBet(100)

	deal := expectUntil(bob, "the opening deal", func(m client.GameStateMsg) bool {
		seat, ok := seatOf(m, "dropper")
		return ok && len(seat.Cards) == 2
	})
	dealtSeat, _ := seatOf(deal, "dropper")

	// The socket dies mid-round. The seat must survive, not empty out.
	bob.close()
	expectUntil(alice, "dropper going offline", func(m client.GameStateMsg) bool {
		seat, ok := seatOf(m, "dropper")
		return ok && seat.Status == client.SeatStatusOffline
	})

	// Logging back in with the same nickname reclaims the parked session,
	// stake and seat included.
	bob2 := env.dial()
	defer bob2.close()
	require.NoError(t, bob2.c.Login("dropper"))
	rec := expect[client.RecoveredMsg](bob2)
	assert.Equal(t, "dropper", rec.Nick)
	assert.Equal(t, blackjack.InitialCredits-100, rec.Credits, "the staked bet must survive the disconnect")
	assert.Equal(t, 0, rec.RoomID)
	assert.Equal(t, 0, bob2.c.RoomID())

	// A fresh snapshot brings the reclaimed seat back up to speed with the
	// very hand that was dealt before the drop.
	require.NoError(t, bob2.c.RecoverGame())
	snap := expectUntil(bob2, "the recovery snapshot", func(m client.GameStateMsg) bool {
		seat, ok := seatOf(m, "dropper")
		return ok && len(seat.Cards) == 2
	})
	recoveredSeat, _ := seatOf(snap, "dropper")
	assert.Equal(t, dealtSeat.Cards, recoveredSeat.Cards)

	// Play finishes normally for both seats.
	alice.stand()
	expectUntil(bob2, "the turn reaching dropper", func(m client.GameStateMsg) bool {
		seat, ok := seatOf(m, "dropper")
		return ok && seat.Status == client.SeatStatusActive
	})
	bob2.stand()

	checkOutcome(t, blackjack.InitialCredits, 100, expect[client.RoundEndMsg](alice))
	checkOutcome(t, blackjack.InitialCredits, 100, expect[client.RoundEndMsg](bob2))
}

// -----------------------------------------------------------------------------
//
//	SCENARIO: Settled rounds land in the SQLite ledger
//
// -----------------------------------------------------------------------------
func TestRoundLedgerPersistence(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t) // closed by hand before reading the ledger

	player := env.dial()
	ack := player.login("ledger_fan")
	player.join(0)
	player.readyUp()
	player.placeBet(75)
	player.stand()
	end := expect[client.RoundEndMsg](player)
	checkOutcome(t, ack.Credits, 75, end)

	// Shut down first; Run drains pending ledger writes before returning.
	player.close()
	env.Close()

	ledger, err := server.OpenLedger(env.dbPath)
	require.NoError(t, err)
	defer ledger.Close()

	rounds, err := ledger.PlayerRounds("ledger_fan", 0)
	require.NoError(t, err)
	require.Len(t, rounds, 1)
	assert.Equal(t, 0, rounds[0].RoomID)
	assert.Equal(t, 75, rounds[0].Bet)
	assert.Equal(t, end.Delta, rounds[0].Delta)
	assert.Equal(t, end.Credits, rounds[0].CreditsAfter)

	none, err := ledger.PlayerRounds("stranger", 0)
	require.NoError(t, err)
	assert.Empty(t, none)

	// A mistyped path must fail rather than create an empty ledger.
	_, err = server.OpenLedger(filepath.Join(t.TempDir(), "missing.sqlite"))
	assert.Error(t, err)
}

// -----------------------------------------------------------------------------
//
//	SCENARIO: Leaving a room frees the seat and updates the lobby view
//
// -----------------------------------------------------------------------------
func TestLeaveRoomUpdatesLobby(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	defer env.Close()

	alice := env.dial()
	defer alice.close()
	bob := env.dial()
	defer bob.close()

	alice.login("leaver")

	// Leaving without a seat is refused.
	require.NoError(t, alice.c.LeaveRoom())
	expect[client.LeaveRejectedMsg](alice)

	alice.join(0)
	bob.login("sitter")

	// The lobby feed shows the occupied seat to whoever is still outside.
	expectUntil(bob, "room 0 filling up", func(m client.LobbyInfoMsg) bool {
		return len(m.Rooms) > 0 && m.Rooms[0].Players == 1
	})
	bob.join(0)

	expectUntil(alice, "sitter taking a seat", func(m client.RoomStatusMsg) bool {
		return len(m.Seats) == 2
	})

	require.NoError(t, alice.c.LeaveRoom())
	expect[client.LeaveAckMsg](alice)
	assert.Equal(t, -1, alice.c.RoomID())

	// The remaining player sees the seat vanish, the leaver sees the lobby.
	expectUntil(bob, "leaver going away", func(m client.RoomStatusMsg) bool {
		return len(m.Seats) == 1 && m.Seats[0].Nickname == "sitter"
	})
	expectUntil(alice, "the freed seat in the lobby view", func(m client.LobbyInfoMsg) bool {
		return len(m.Rooms) > 0 && m.Rooms[0].Players == 1
	})

	// The freed seat is reusable.
	alice.join(0)
}

// -----------------------------------------------------------------------------
//
//	SCENARIO: Joins are refused once a room is past the gathering phase
//
// -----------------------------------------------------------------------------
func TestJoinRejections(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	defer env.Close()

	alice := env.dial()
	defer alice.close()
	alice.login("early_bird")
	alice.join(0)
	alice.readyUp()
	alice.placeBet(100)

	// Room 0 is now mid-round; a newcomer cannot join it.
	bob := env.dial()
	defer bob.close()
	bob.login("late_comer")
	require.NoError(t, bob.c.Join(0))
	rejected := expect[client.JoinRejectedMsg](bob)
	assert.Equal(t, "Cannot join room", rejected.Reason)

	// Unknown rooms are refused too, and negative IDs never hit the wire.
	require.NoError(t, bob.c.Join(99))
	expect[client.JoinRejectedMsg](bob)
	assert.Error(t, bob.c.Join(-1))

	// The other room is still open.
	bob.join(1)
}

// -----------------------------------------------------------------------------
//
//	SCENARIO: Commands out of phase are refused without ending the session
//
// -----------------------------------------------------------------------------
func TestOutOfPhaseCommandsRejected(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	defer env.Close()

	alice := env.dial()
	defer alice.close()
	alice.login("rule_tester")
	alice.join(0)

	// Playing commands mean nothing while the room is still gathering.
	require.NoError(t, alice.c.Hit())
	rejected := expect[client.CommandRejectedMsg](alice)
	assert.Contains(t, rejected.Reason, "WAITING_FOR_PLAYERS")

	alice.readyUp()
	expect[client.BetRequestMsg](alice)

	// Bets beyond the bankroll bounce; zero and negative stakes never leave
	// the client.
	require.NoError(t, alice.c.Bet(5000))
	betRejected := expect[client.BetRejectedMsg](alice)
	assert.Equal(t, "Invalid bet amount", betRejected.Reason)
	assert.Error(t, alice.c.Bet(0))

	// The round still proceeds with a sane stake.
	require.NoError(t, alice.c.Bet(100))
	ack := expect[client.BetAckMsg](alice)
	assert.Equal(t, 100, ack.Amount)
	alice.stand()
	expect[client.RoundEndMsg](alice)
}

// -----------------------------------------------------------------------------
//
//	SCENARIO: A stalled turn times out and play moves on without the player
//
// -----------------------------------------------------------------------------
func TestTurnTimeoutAutoStands(t *testing.T) {
	t.Parallel()
	env := newTestEnvWith(t, func(cfg *server.Config) {
		cfg.TurnTimeout = 250 * time.Millisecond
	})
	defer env.Close()

	alice := env.dial()
	defer alice.close()
	bob := env.dial()
	defer bob.close()

	alice.login("snoozer")
	bob.login("waiter")
	alice.join(0)
	bob.join(0)
	alice.readyUp()
	bob.readyUp()
	alice.placeBet(100)
	bob.placeBet(100)

	// snoozer holds the first turn and never acts; the room stands the seat
	// automatically and the turn reaches waiter.
	expectUntil(bob, "the timed-out turn passing on", func(m client.GameStateMsg) bool {
		seat, ok := seatOf(m, "waiter")
		return ok && seat.Status == client.SeatStatusActive
	})
	bob.stand()

	// Both seats settle, the sleeping one on its dealt hand.
	checkOutcome(t, blackjack.InitialCredits, 100, expect[client.RoundEndMsg](alice))
	checkOutcome(t, blackjack.InitialCredits, 100, expect[client.RoundEndMsg](bob))
}

// -----------------------------------------------------------------------------
//
//	SCENARIO: A full server turns extra connections away at the door
//
// -----------------------------------------------------------------------------
func TestServerCapacityTurnsAwayExtras(t *testing.T) {
	t.Parallel()
	env := newTestEnvWith(t, func(cfg *server.Config) {
		cfg.MaxPlayers = 2
	})
	defer env.Close()

	first := env.dial()
	defer first.close()
	second := env.dial()
	defer second.close()

	// Both admitted connections get the greeting.
	expect[client.NickRequestMsg](first)
	expect[client.NickRequestMsg](second)

	// The third connection is told why and cut loose.
	third := env.dial()
	defer third.close()
	failed := expect[client.ConnFailMsg](third)
	assert.Equal(t, "Max players reached", failed.Reason)
	expect[client.ServerClosedMsg](third)

	// The admitted connections keep working.
	first.login("lucky_one")
}

// -----------------------------------------------------------------------------
//
//	SCENARIO: Play again rolls the table straight into the next round
//
// -----------------------------------------------------------------------------
func TestPlayAgainSecondRound(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	defer env.Close()

	alice := env.dial()
	defer alice.close()
	ack := alice.login("comeback_kid")
	alice.join(0)

	alice.readyUp()
	alice.placeBet(100)
	alice.stand()
	first := expect[client.RoundEndMsg](alice)
	checkOutcome(t, ack.Credits, 100, first)

	// Opting back in releases the room for another round in the same seat.
	require.NoError(t, alice.c.PlayAgain())
	again := expect[client.PlayAgainAckMsg](alice)
	assert.Equal(t, 0, again.RoomID)

	alice.readyUp()
	alice.placeBet(50)
	alice.stand()
	second := expect[client.RoundEndMsg](alice)
	checkOutcome(t, first.Credits, 50, second)
	assert.Equal(t, second.Credits, alice.c.Credits())
}
