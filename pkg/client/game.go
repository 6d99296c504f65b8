package client

import (
	"fmt"
	"strconv"

	"github.com/vctt94/blackjacksrv/pkg/protocol"
)

// Ready marks the seat ready for the next round.
func (c *Client) Ready() error {
	return c.send(protocol.CmdReady, "")
}

// NotReady withdraws readiness while the room is still waiting.
func (c *Client) NotReady() error {
	return c.send(protocol.CmdNotReady, "")
}

// Bet places the round's stake. The server answers with BetAckMsg or
// BetRejectedMsg.
func (c *Client) Bet(amount int) error {
	if amount <= 0 {
		return fmt.Errorf("bet must be positive, got %d", amount)
	}
	return c.send(protocol.CmdBet, strconv.Itoa(amount))
}

// Hit asks for one more card.
func (c *Client) Hit() error {
	return c.send(protocol.CmdHit, "")
}

// Stand ends the turn.
func (c *Client) Stand() error {
	return c.send(protocol.CmdStand, "")
}

// PlayAgain opts into the next round after a settlement.
func (c *Client) PlayAgain() error {
	return c.send(protocol.CmdPlayAgain, "")
}
