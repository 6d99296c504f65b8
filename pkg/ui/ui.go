// Package ui implements the terminal client using the Bubble Tea
// framework. The model is a plain value: every server frame arrives as a
// typed message on the client's update channel, gets folded into the
// model, and re-arms the channel waiter so the next frame can flow in.
package ui

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vctt94/blackjacksrv/pkg/client"
)

type menuOption string

const (
	optionSetReady   menuOption = "Set Ready"
	optionSetUnready menuOption = "Set Unready"
	optionHit        menuOption = "Hit"
	optionStand      menuOption = "Stand"
	optionPlayAgain  menuOption = "Play Again"
	optionLeaveRoom  menuOption = "Leave Room"
	optionQuit       menuOption = "Quit"
)

// screenState represents the current screen in the UI
type screenState int

const (
	stateLogin screenState = iota
	stateLobby
	stateRoom
	stateBetting
	statePlaying
	stateRoundEnd
	stateGone // connection is over, farewell screen
)

var (
	roomMenu     = []menuOption{optionSetReady, optionSetUnready, optionLeaveRoom, optionQuit}
	playingMenu  = []menuOption{optionHit, optionStand}
	roundEndMenu = []menuOption{optionPlayAgain, optionLeaveRoom, optionQuit}
)

// Model contains all the state for our UI
type Model struct {
	c *client.Client

	state screenState
	err   error

	// Temporary message
	message string

	// Text inputs (just strings for simplicity)
	nickInput string
	betInput  string

	// Menu navigation
	selectedRoom int
	selectedItem int
	menuOptions  []menuOption

	// Last world state received from the server
	online  int
	rooms   []client.RoomSummary
	seats   []client.SeatStatus
	game    client.GameStateMsg
	lastBet int
	outcome client.RoundEndMsg
}

// NewModel creates a new UI model sitting on the login screen.
func NewModel(c *client.Client) Model {
	return Model{
		c:     c,
		state: stateLogin,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(waitForServerCmd(m.c), waitForErrorCmd(m.c))
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case errorMsg:
		m.err = msg
		return m, waitForErrorCmd(m.c)
	}

	next, cmd, handled := m.applyServer(msg)
	if !handled {
		return m, nil
	}
	// Every consumed server frame re-arms the update waiter.
	return next, tea.Batch(cmd, waitForServerCmd(next.c))
}

// applyServer folds one server frame into the model. The returned bool
// reports whether the message came off the client's update channel.
func (m Model) applyServer(msg tea.Msg) (Model, tea.Cmd, bool) {
	switch msg := msg.(type) {
	case client.NickRequestMsg:
		m.state = stateLogin
		m.message = "The table asks for a nickname"

	case client.NickAckMsg:
		m.err = nil
		m.state = stateLobby
		m.message = fmt.Sprintf("Welcome %s, you have %d credits", msg.Nick, msg.Credits)

	case client.NickRejectedMsg:
		m.state = stateLogin
		m.err = errors.New(msg.Reason)

	case client.RecoveredMsg:
		m.err = nil
		if msg.RoomID >= 0 {
			m.state = stateRoom
			m.message = fmt.Sprintf("Recovered %s back into room %d", msg.Nick, msg.RoomID)
			m.menuOptions = roomMenu
			m.selectedItem = 0
			return m, recoverGameCmd(m.c), true
		}
		m.state = stateLobby
		m.message = fmt.Sprintf("Recovered %s in the lobby", msg.Nick)

	case client.LobbyInfoMsg:
		m.online = msg.Online
		m.rooms = msg.Rooms
		if m.selectedRoom >= len(m.rooms) {
			m.selectedRoom = max(0, len(m.rooms)-1)
		}

	case client.JoinAckMsg:
		m.err = nil
		m.state = stateRoom
		m.message = fmt.Sprintf("Joined room %d", msg.RoomID)
		m.menuOptions = roomMenu
		m.selectedItem = 0

	case client.JoinRejectedMsg:
		m.err = errors.New(msg.Reason)

	case client.LeaveAckMsg:
		m.state = stateLobby
		m.message = "Back in the lobby"
		m.seats = nil
		m.game = client.GameStateMsg{}

	case client.LeaveRejectedMsg:
		m.err = errors.New(msg.Reason)

	case client.ReadyAckMsg:
		m.message = "Ready for the next round"

	case client.UnreadyAckMsg:
		m.message = "No longer ready"

	case client.RoomStatusMsg:
		m.seats = msg.Seats

	case client.BetRequestMsg:
		m.state = stateBetting
		m.betInput = ""
		m.lastBet = 0
		m.message = "Betting is open"

	case client.BetAckMsg:
		m.err = nil
		m.lastBet = msg.Amount
		m.message = fmt.Sprintf("Bet of %d placed, waiting for the deal", msg.Amount)

	case client.BetRejectedMsg:
		m.err = errors.New(msg.Reason)

	case client.GameStateMsg:
		m.game = msg
		// The final table of a round arrives just before the outcome;
		// once the outcome screen is up it stays up until Play Again.
		if m.state != stateRoundEnd {
			m.state = statePlaying
			m.menuOptions = playingMenu
			if m.selectedItem >= len(m.menuOptions) {
				m.selectedItem = 0
			}
		}

	case client.BustMsg:
		m.message = "Bust!"

	case client.Hit21Msg:
		m.message = "Twenty-one!"

	case client.StandAckMsg:
		m.message = "Standing"

	case client.HitRejectedMsg:
		m.err = errors.New(msg.Reason)

	case client.RoundEndMsg:
		m.state = stateRoundEnd
		m.outcome = msg
		m.menuOptions = roundEndMenu
		m.selectedItem = 0

	case client.PlayAgainAckMsg:
		m.state = stateRoom
		m.message = "Waiting for the next round"
		m.menuOptions = roomMenu
		m.selectedItem = 0

	case client.PlayAgainRejectedMsg:
		m.err = errors.New(msg.Reason)

	case client.CommandRejectedMsg:
		m.err = errors.New(msg.Reason)

	case client.PongMsg:
		m.message = "Server answered the ping"

	case client.ConnFailMsg:
		m.state = stateGone
		m.message = msg.Reason

	case client.KickedMsg:
		m.state = stateGone
		m.message = "Kicked from the server: " + msg.Reason

	case client.ServerClosedMsg:
		m.state = stateGone
		m.message = "Connection to the server closed"
		if msg.Err != nil {
			m.err = msg.Err
		}

	default:
		return m, nil, false
	}
	return m, nil, true
}

// Run starts the UI and blocks until the player quits or the context is
// canceled.
func Run(ctx context.Context, c *client.Client) error {
	model := NewModel(c)

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("failed to run UI: %w", err)
	}
	return nil
}
