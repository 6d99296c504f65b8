package ui

import (
	"errors"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"
)

// handleKey processes keyboard input based on the current state.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if key == "ctrl+c" {
		return m, tea.Quit
	}
	if m.state == stateGone {
		// Any key leaves the farewell screen.
		return m, tea.Quit
	}

	switch m.state {
	case stateLogin:
		return m.handleLoginKey(key)
	case stateLobby:
		return m.handleLobbyKey(key)
	case stateBetting:
		return m.handleBettingKey(key)
	case stateRoom, statePlaying, stateRoundEnd:
		return m.handleMenuKey(key)
	}
	return m, nil
}

func (m Model) handleLoginKey(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "enter":
		if m.nickInput == "" {
			m.err = errors.New("nickname cannot be empty")
			return m, nil
		}
		m.err = nil
		m.message = "Logging in..."
		return m, loginCmd(m.c, m.nickInput)
	case "backspace":
		if len(m.nickInput) > 0 {
			m.nickInput = m.nickInput[:len(m.nickInput)-1]
		}
	case "esc":
		return m, tea.Quit
	default:
		if len(key) == 1 && key != " " && len(m.nickInput) < 24 {
			m.nickInput += key
		}
	}
	return m, nil
}

func (m Model) handleLobbyKey(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "q", "esc":
		return m, tea.Quit
	case "up", "k":
		m.selectedRoom = max(0, m.selectedRoom-1)
	case "down", "j":
		m.selectedRoom = min(len(m.rooms)-1, m.selectedRoom+1)
	case "enter", " ":
		if len(m.rooms) == 0 {
			return m, nil
		}
		m.err = nil
		return m, joinCmd(m.c, m.rooms[m.selectedRoom].ID)
	}
	return m, nil
}

func (m Model) handleBettingKey(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "enter":
		amount, err := strconv.Atoi(m.betInput)
		if err != nil || amount <= 0 {
			m.err = errors.New("enter a positive bet amount")
			return m, nil
		}
		m.err = nil
		return m, betCmd(m.c, amount)
	case "backspace":
		if len(m.betInput) > 0 {
			m.betInput = m.betInput[:len(m.betInput)-1]
		}
	case "q", "esc":
		return m, leaveRoomCmd(m.c)
	default:
		// Digits only.
		if len(key) == 1 && key[0] >= '0' && key[0] <= '9' && len(m.betInput) < 9 {
			m.betInput += key
		}
	}
	return m, nil
}

// handleMenuKey drives the three menu screens: the room lobby, the live
// round and the outcome screen.
func (m Model) handleMenuKey(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "q", "esc":
		return m, leaveRoomCmd(m.c)
	case "up", "k":
		m.selectedItem = max(0, m.selectedItem-1)
	case "down", "j":
		m.selectedItem = min(len(m.menuOptions)-1, m.selectedItem+1)
	case "h":
		if m.state == statePlaying {
			return m, hitCmd(m.c)
		}
	case "s":
		if m.state == statePlaying {
			return m, standCmd(m.c)
		}
	case "enter", " ":
		return m.selectMenuOption()
	}
	return m, nil
}

func (m Model) selectMenuOption() (tea.Model, tea.Cmd) {
	if len(m.menuOptions) == 0 || m.selectedItem >= len(m.menuOptions) {
		return m, nil
	}
	m.err = nil
	switch m.menuOptions[m.selectedItem] {
	case optionSetReady:
		return m, readyCmd(m.c)
	case optionSetUnready:
		return m, notReadyCmd(m.c)
	case optionHit:
		return m, hitCmd(m.c)
	case optionStand:
		return m, standCmd(m.c)
	case optionPlayAgain:
		return m, playAgainCmd(m.c)
	case optionLeaveRoom:
		return m, leaveRoomCmd(m.c)
	case optionQuit:
		return m, tea.Quit
	}
	return m, nil
}
