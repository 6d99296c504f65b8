package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/vctt94/blackjacksrv/pkg/blackjack"
	"github.com/vctt94/blackjacksrv/pkg/client"
)

// View renders the current state of the UI
func (m Model) View() string {
	var s string

	if m.message != "" {
		s += titleStyle.Render(m.message) + "\n\n"
	}
	if m.err != nil {
		s += errorStyle.Render(fmt.Sprintf("Error: %v", m.err)) + "\n\n"
	}

	switch m.state {
	case stateLogin:
		s += m.viewLogin()
	case stateLobby:
		s += m.viewLobby()
	case stateRoom:
		s += m.viewRoom()
	case stateBetting:
		s += m.viewBetting()
	case statePlaying:
		s += m.viewPlaying()
	case stateRoundEnd:
		s += m.viewRoundEnd()
	case stateGone:
		s += m.viewGone()
	}

	return s
}

func (m Model) viewLogin() string {
	var s string
	s += titleStyle.Render("🂡 Blackjack - Login 🂡") + "\n\n"
	s += focusedStyle.Render(fmt.Sprintf("Nickname: %s", m.nickInput)) + "\n\n"
	s += helpStyle.Render("Type a nickname and press Enter, Esc to quit")
	return s
}

func (m Model) viewLobby() string {
	var s string
	s += titleStyle.Render("🂡 Blackjack - Lobby 🂡") + "\n\n"
	s += gameInfoStyle.Render(fmt.Sprintf("👤 %s | 💰 %d credits | 👥 %d online",
		m.c.Nick(), m.c.Credits(), m.online)) + "\n\n"

	if len(m.rooms) == 0 {
		s += blurredStyle.Render("Waiting for the room list...") + "\n"
	} else {
		for i, room := range m.rooms {
			line := fmt.Sprintf("Room %d | 👥 %d/%d | %s",
				room.ID, room.Players, room.MaxPlayers, room.State)
			if i == m.selectedRoom {
				s += focusedStyle.Render("▶ "+line) + "\n"
			} else {
				s += blurredStyle.Render("  "+line) + "\n"
			}
		}
	}

	s += "\n" + helpStyle.Render("Use ↑↓ to pick a room, Enter to join, 'q' to quit")
	return s
}

func (m Model) viewRoom() string {
	var s string
	s += titleStyle.Render(fmt.Sprintf("🂡 Room %d 🂡", m.c.RoomID())) + "\n\n"
	s += gameInfoStyle.Render(fmt.Sprintf("💰 %d credits", m.c.Credits())) + "\n\n"
	s += m.renderSeats()
	s += m.renderMenu()
	s += "\n" + helpStyle.Render("Use ↑↓ to navigate, Enter to select, 'q' to leave the room")
	return s
}

func (m Model) viewBetting() string {
	var s string
	s += titleStyle.Render("💸 Place Your Bet 💸") + "\n\n"
	s += gameInfoStyle.Render(fmt.Sprintf("💰 %d credits", m.c.Credits())) + "\n\n"
	s += m.renderSeats()
	s += focusedStyle.Render(fmt.Sprintf("Bet Amount: %s", m.betInput)) + "\n\n"
	s += helpStyle.Render("Type an amount and press Enter to bet, 'q' to leave the room")
	return s
}

func (m Model) viewPlaying() string {
	var s string
	s += titleStyle.Render(fmt.Sprintf("🂡 Room %d 🂡", m.c.RoomID())) + "\n\n"
	s += m.renderDealer() + "\n"
	s += m.renderHands() + "\n"
	s += m.renderMenu()
	s += "\n" + helpStyle.Render("'h' to hit, 's' to stand, or ↑↓ + Enter")
	return s
}

func (m Model) viewRoundEnd() string {
	var s string
	s += titleStyle.Render("🏁 Round Over 🏁") + "\n\n"
	s += m.renderDealer() + "\n"
	s += m.renderHands() + "\n"
	s += m.renderOutcome() + "\n\n"
	s += m.renderMenu()
	s += "\n" + helpStyle.Render("Use ↑↓ to navigate, Enter to select, 'q' to leave the room")
	return s
}

func (m Model) viewGone() string {
	return helpStyle.Render("Press any key to exit")
}

// renderSeats draws the room snapshot: every seat with its status icon and
// placed bet.
func (m Model) renderSeats() string {
	if len(m.seats) == 0 {
		return blurredStyle.Render("Waiting for the seat list...") + "\n\n"
	}

	var s string
	s += "Seats:\n"
	for _, seat := range m.seats {
		line := fmt.Sprintf("  %s %s", seatStatusIcon(seat.Status), seat.Nickname)
		if seat.Bet > 0 {
			line += fmt.Sprintf(" | 🎯 %d", seat.Bet)
		}
		if seat.Nickname == m.c.Nick() {
			s += focusedStyle.Render(line+" (you)") + "\n"
		} else {
			s += blurredStyle.Render(line) + "\n"
		}
	}
	return s + "\n"
}

// renderDealer draws the dealer's hand in its own box. During play only the
// upcard has been broadcast; the hole cards arrive with the final snapshot.
func (m Model) renderDealer() string {
	label := "DEALER"
	if v := blackjack.HandValue(m.game.Dealer); v > 0 {
		label = fmt.Sprintf("DEALER (%d)", v)
	}
	content := lipgloss.JoinVertical(lipgloss.Center, label, renderHand(m.game.Dealer))
	return dealerBoxStyle.Render(content)
}

// renderHands draws every seat's cards from the last game snapshot.
func (m Model) renderHands() string {
	if len(m.game.Seats) == 0 {
		return blurredStyle.Render("Waiting for the deal...") + "\n"
	}

	var s string
	for _, seat := range m.game.Seats {
		name := seat.Nickname
		if name == m.c.Nick() {
			name += " (you)"
		}
		header := fmt.Sprintf("%s %s", seatStatusIcon(seat.Status), name)
		if v := blackjack.HandValue(seat.Cards); v > 0 {
			header += fmt.Sprintf(" - %d", v)
		}

		// During play status 1 marks the seat holding the turn.
		if seat.Status == client.SeatStatusActive {
			s += focusedStyle.Render("▶ "+header) + "\n"
		} else {
			s += blurredStyle.Render("  "+header) + "\n"
		}
		s += renderHand(seat.Cards) + "\n"
	}
	return s
}

// renderOutcome draws the settled result box. The stake was taken when the
// bet was placed, so the delta alone does not say how far ahead the player
// ended; the remembered bet disambiguates win, push and loss.
func (m Model) renderOutcome() string {
	switch {
	case m.outcome.Delta < 0:
		return lossOutcomeStyle.Render(fmt.Sprintf("You lost %d credits\n💰 %d left", -m.outcome.Delta, m.outcome.Credits))
	case m.lastBet > 0 && m.outcome.Delta == m.lastBet:
		return outcomeStyle.Render(fmt.Sprintf("Push! Your stake of %d comes back\n💰 %d credits", m.lastBet, m.outcome.Credits))
	case m.lastBet > 0:
		return outcomeStyle.Render(fmt.Sprintf("You won %d credits!\n💰 %d total", m.outcome.Delta-m.lastBet, m.outcome.Credits))
	default:
		return outcomeStyle.Render(fmt.Sprintf("The round paid %d credits\n💰 %d total", m.outcome.Delta, m.outcome.Credits))
	}
}

func (m Model) renderMenu() string {
	var s string
	for i, option := range m.menuOptions {
		if i == m.selectedItem {
			s += focusedStyle.Render(fmt.Sprintf("▶ %s", option)) + "\n"
		} else {
			s += blurredStyle.Render(fmt.Sprintf("  %s", option)) + "\n"
		}
	}
	return s
}

// renderHand draws a hand as a row of card boxes, or a single face-down
// card when the hand is empty.
func renderHand(cards []blackjack.Card) string {
	if len(cards) == 0 {
		return cardStyle.Render("🂠")
	}

	rendered := make([]string, 0, len(cards))
	for _, card := range cards {
		face := formatCard(card)
		if isRedSuit(card.GetSuit()) {
			rendered = append(rendered, redCardStyle.Render(face))
		} else {
			rendered = append(rendered, cardStyle.Render(face))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

// formatCard creates a visual representation of a playing card
func formatCard(card blackjack.Card) string {
	return card.GetRank() + getSuitSymbol(card.GetSuit())
}

// getSuitSymbol maps a wire suit code to its symbol
func getSuitSymbol(suit string) string {
	switch suit {
	case "H":
		return "♥"
	case "D":
		return "♦"
	case "C":
		return "♣"
	case "S":
		return "♠"
	default:
		return "?"
	}
}

// isRedSuit determines if a suit should be displayed in red
func isRedSuit(suit string) bool {
	return suit == "H" || suit == "D"
}

func seatStatusIcon(status int) string {
	switch status {
	case client.SeatStatusActive:
		return "✅"
	case client.SeatStatusOffline:
		return "🔌"
	default:
		return "⏳"
	}
}
