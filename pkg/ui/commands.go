package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/vctt94/blackjacksrv/pkg/client"
)

type errorMsg error

// waitForServerCmd hands the next server event to the update loop. It is
// re-armed after every delivered message.
func waitForServerCmd(c *client.Client) tea.Cmd {
	return func() tea.Msg {
		return <-c.UpdatesCh
	}
}

// waitForErrorCmd surfaces transport errors the same way.
func waitForErrorCmd(c *client.Client) tea.Cmd {
	return func() tea.Msg {
		return errorMsg(<-c.ErrorsCh)
	}
}

// sendCmd wraps one fire-and-forget protocol send; the server's answer
// arrives later through waitForServerCmd.
func sendCmd(send func() error) tea.Cmd {
	return func() tea.Msg {
		if err := send(); err != nil {
			return errorMsg(err)
		}
		return nil
	}
}

func loginCmd(c *client.Client, nick string) tea.Cmd {
	return sendCmd(func() error { return c.Login(nick) })
}

func joinCmd(c *client.Client, roomID int) tea.Cmd {
	return sendCmd(func() error { return c.Join(roomID) })
}

func leaveRoomCmd(c *client.Client) tea.Cmd {
	return sendCmd(c.LeaveRoom)
}

func readyCmd(c *client.Client) tea.Cmd {
	return sendCmd(c.Ready)
}

func notReadyCmd(c *client.Client) tea.Cmd {
	return sendCmd(c.NotReady)
}

func betCmd(c *client.Client, amount int) tea.Cmd {
	return sendCmd(func() error { return c.Bet(amount) })
}

func hitCmd(c *client.Client) tea.Cmd {
	return sendCmd(c.Hit)
}

func standCmd(c *client.Client) tea.Cmd {
	return sendCmd(c.Stand)
}

func playAgainCmd(c *client.Client) tea.Cmd {
	return sendCmd(c.PlayAgain)
}

func recoverGameCmd(c *client.Client) tea.Cmd {
	return sendCmd(c.RecoverGame)
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
