// bjctl is a small operator tool for a running blackjack server and its
// round ledger: probe the lobby, measure a round trip, replay a player's
// recorded rounds, or smoke-test a table by autoplaying one round.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vctt94/blackjacksrv/pkg/blackjack"
	"github.com/vctt94/blackjacksrv/pkg/client"
	"github.com/vctt94/blackjacksrv/pkg/logging"
	"github.com/vctt94/blackjacksrv/pkg/server"

	_ "github.com/mattn/go-sqlite3"
)

// Common flags
var (
	addr   = flag.String("addr", "127.0.0.1:10000", "Server address (host:port)")
	dbFile = flag.String("db", "", "Path to the round ledger (rounds command)")
	debug  = flag.Bool("debug", false, "Dump server frames while connected")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [global flags] <command> [args]\n", os.Args[0])
		fmt.Fprintln(os.Stderr, "Commands:")
		fmt.Fprintln(os.Stderr, "  rounds <nick> [--limit N] [--json]        Print a player's settled rounds")
		fmt.Fprintln(os.Stderr, "  lobby [--nick NAME]                       Print the lobby snapshot (JSON)")
		fmt.Fprintln(os.Stderr, "  ping                                      Measure a server round trip")
		fmt.Fprintln(os.Stderr, "  autoplay --nick NAME [--room N] [--bet N] Play one round, hitting below 17")
		fmt.Fprintln(os.Stderr, "\nGlobal flags:")
		flag.PrintDefaults()
	}

	// Suppress default flag errors to avoid noisy usage on subcommands
	flag.CommandLine.SetOutput(io.Discard)
	flag.Parse()
	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch flag.Arg(0) {
	case "rounds":
		if err := handleRounds(flag.Args()[1:]); err != nil {
			fatalErr(err)
		}

	case "lobby":
		if err := handleLobby(ctx, flag.Args()[1:]); err != nil {
			fatalErr(err)
		}

	case "ping":
		if err := handlePing(ctx); err != nil {
			fatalErr(err)
		}

	case "autoplay":
		if err := handleAutoplay(ctx, flag.Args()[1:]); err != nil {
			fatalErr(err)
		}

	default:
		flag.Usage()
		os.Exit(2)
	}
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}

func fatalErr(err error) {
	fatal(err.Error())
}

// dialServer connects to the configured server with bjctl's own quiet
// logging; -debug turns on frame dumps.
func dialServer(ctx context.Context) (*client.Client, error) {
	level := "off"
	if *debug {
		level = "debug"
	}
	logBackend, err := logging.NewLogBackend(logging.LogConfig{DebugLevel: level})
	if err != nil {
		return nil, err
	}
	return client.Dial(ctx, client.Config{
		Addr:  *addr,
		Log:   logBackend.Logger("CTL"),
		Debug: *debug,
	})
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

func handleRounds(args []string) error {
	fs := flag.NewFlagSet("rounds", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	limit := fs.Int("limit", 20, "Most recent rounds to show (0 = all)")
	asJSON := fs.Bool("json", false, "Emit JSON instead of a table")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("rounds: %w", err)
	}
	if fs.NArg() < 1 {
		return errors.New("rounds requires a nickname")
	}
	if *dbFile == "" {
		return errors.New("rounds: --db is required")
	}

	ledger, err := server.OpenLedger(*dbFile)
	if err != nil {
		return err
	}
	defer ledger.Close()

	rounds, err := ledger.PlayerRounds(fs.Arg(0), *limit)
	if err != nil {
		return err
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rounds)
	}
	if len(rounds) == 0 {
		fmt.Printf("No rounds recorded for %s\n", fs.Arg(0))
		return nil
	}
	fmt.Printf("%-6s %-5s %8s %8s %10s  %s\n", "ID", "ROOM", "BET", "DELTA", "CREDITS", "WHEN")
	for _, r := range rounds {
		fmt.Printf("%-6d %-5d %8d %+8d %10d  %s\n",
			r.ID, r.RoomID, r.Bet, r.Delta, r.CreditsAfter, r.CreatedAt)
	}
	return nil
}

func handleLobby(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("lobby", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	nick := fs.String("nick", "", "Nickname to probe with (default ctl<pid>)")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("lobby: %w", err)
	}

	c, err := dialServer(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	// The lobby snapshot only goes out to named sessions.
	name := *nick
	if name == "" {
		name = fmt.Sprintf("ctl%d", os.Getpid()%100000)
	}
	if err := c.Login(name); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	for {
		select {
		case msg := <-c.UpdatesCh:
			switch m := msg.(type) {
			case client.LobbyInfoMsg:
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(m)
			case client.RecoveredMsg:
				if m.RoomID >= 0 {
					return fmt.Errorf("%s owns a parked seat in room %d; probe with another nick", m.Nick, m.RoomID)
				}
			case client.NickRejectedMsg:
				return fmt.Errorf("login refused: %s", m.Reason)
			case client.ConnFailMsg:
				return fmt.Errorf("connection refused: %s", m.Reason)
			case client.ServerClosedMsg:
				return errors.New("server closed the connection")
			}
		case err := <-c.ErrorsCh:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func handlePing(ctx context.Context) error {
	c, err := dialServer(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	start := time.Now()
	if err := c.Ping(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	for {
		select {
		case msg := <-c.UpdatesCh:
			if _, ok := msg.(client.PongMsg); ok {
				fmt.Printf("pong from %s in %s\n", *addr, time.Since(start).Round(time.Microsecond))
				return nil
			}
		case err := <-c.ErrorsCh:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// handleAutoplay plays one complete round on its own: join, ready, stake,
// then hit below 17 and stand otherwise until the table settles.
func handleAutoplay(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("autoplay", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	nick := fs.String("nick", "", "Nickname to play under")
	room := fs.Int("room", 0, "Room to join")
	bet := fs.Int("bet", 10, "Stake for the round")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("autoplay: %w", err)
	}
	if *nick == "" {
		return errors.New("autoplay: --nick is required")
	}

	c, err := dialServer(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	if err := c.Login(*nick); err != nil {
		return err
	}

	deadline := time.NewTimer(4 * time.Minute)
	defer deadline.Stop()

	for {
		select {
		case <-deadline.C:
			return errors.New("autoplay timeout")
		case msg := <-c.UpdatesCh:
			switch m := msg.(type) {
			case client.NickAckMsg:
				fmt.Printf("logged in as %s with %d credits\n", m.Nick, m.Credits)
				if err := c.Join(*room); err != nil {
					return err
				}
			case client.RecoveredMsg:
				fmt.Printf("recovered session with %d credits\n", m.Credits)
				if m.RoomID < 0 {
					if err := c.Join(*room); err != nil {
						return err
					}
				} else if err := c.RecoverGame(); err != nil {
					return err
				}
			case client.NickRejectedMsg:
				return fmt.Errorf("login refused: %s", m.Reason)
			case client.JoinAckMsg:
				fmt.Printf("seated in room %d, waiting for the table\n", m.RoomID)
				if err := c.Ready(); err != nil {
					return err
				}
			case client.JoinRejectedMsg:
				return fmt.Errorf("join refused: %s", m.Reason)
			case client.BetRequestMsg:
				fmt.Printf("betting %d\n", *bet)
				if err := c.Bet(*bet); err != nil {
					return err
				}
			case client.BetRejectedMsg:
				return fmt.Errorf("bet refused: %s", m.Reason)
			case client.GameStateMsg:
				seat, ok := seatOf(m, c.Nick())
				if !ok || seat.Status != client.SeatStatusActive {
					continue
				}
				v := blackjack.HandValue(seat.Cards)
				var err error
				if v < 17 {
					fmt.Printf("hand %s (%d): hit\n", blackjack.FormatHand(seat.Cards), v)
					err = c.Hit()
				} else {
					fmt.Printf("hand %s (%d): stand\n", blackjack.FormatHand(seat.Cards), v)
					err = c.Stand()
				}
				if err != nil {
					return err
				}
			case client.RoundEndMsg:
				fmt.Printf("round over: %+d credits, %d left\n", m.Delta, m.Credits)
				return nil
			case client.CommandRejectedMsg:
				return fmt.Errorf("command refused: %s", m.Reason)
			case client.KickedMsg:
				return fmt.Errorf("kicked: %s", m.Reason)
			case client.ConnFailMsg:
				return fmt.Errorf("connection refused: %s", m.Reason)
			case client.ServerClosedMsg:
				return errors.New("server closed the connection")
			}
		case err := <-c.ErrorsCh:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
