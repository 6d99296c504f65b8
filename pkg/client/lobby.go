package client

import (
	"fmt"
	"strconv"

	"github.com/vctt94/blackjacksrv/pkg/protocol"
)

// Login claims a nickname, or reclaims a parked session carrying the same
// one. The server answers with NickAckMsg, RecoveredMsg or NickRejectedMsg.
func (c *Client) Login(nick string) error {
	if nick == "" {
		return fmt.Errorf("nickname is required")
	}
	return c.send(protocol.CmdLogin, nick)
}

// Join asks for a seat in a room. The room is remembered so the ack can
// carry it; the server answers with JoinAckMsg or JoinRejectedMsg.
func (c *Client) Join(roomID int) error {
	if roomID < 0 {
		return fmt.Errorf("invalid room %d", roomID)
	}
	c.Lock()
	c.pendingRoom = roomID
	c.Unlock()
	return c.send(protocol.CmdJoin, strconv.Itoa(roomID))
}

// LeaveRoom gives up the seat and returns to the lobby.
func (c *Client) LeaveRoom() error {
	return c.send(protocol.CmdLeaveRoom, "")
}

// RecoverGame asks for a fresh snapshot of the room a recovered session was
// seated in.
func (c *Client) RecoverGame() error {
	return c.send(protocol.CmdRecover, "")
}

// Ping probes the server; the answer arrives as PongMsg.
func (c *Client) Ping() error {
	return c.send(protocol.CmdPing, "")
}
