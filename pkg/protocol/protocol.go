// Package protocol implements the line-oriented wire protocol spoken between
// the blackjack server and its clients. Every frame is a single newline
// terminated line of the form
//
//	BJ:<COMMAND>[:<ARG>...]
//
// where the command token is exactly eight characters, right-padded with
// underscores.
package protocol

import "strings"

// CommandLen is the fixed width of a command token on the wire.
const CommandLen = 8

// Client → server commands.
const (
	CmdLogin     = "LOGIN___"
	CmdJoin      = "JOIN____"
	CmdLeaveRoom = "LVRO____"
	CmdReady     = "RDY_____"
	CmdNotReady  = "NRD_____"
	CmdBet       = "BT______"
	CmdHit       = "HIT_____"
	CmdStand     = "STAND___"
	CmdPlayAgain = "PAG_____"
	CmdRecover   = "REC__GAM"
	CmdPing      = "PING____"
	CmdPong      = "PONG____"
)

// Server → client messages.
const (
	MsgReqNick    = "REQ_NICK"
	MsgAckNick    = "ACK__NIC"
	MsgNackNick   = "NACK_NIC"
	MsgAckRecover = "ACK__REC"
	MsgAckJoin    = "ACK__JON"
	MsgNackJoin   = "NACK_JON"
	MsgAckLeave   = "ACK_LVRO"
	MsgNackLeave  = "NACKLVRO"
	MsgAckReady   = "ACK__RDY"
	MsgAckUnready = "ACK__NRD"
	MsgLobbyInfo  = "LBBYINFO"
	MsgRoomStatus = "ROMSTAUP"
	MsgReqBet     = "REQ_BET_"
	MsgAckBet     = "ACK___BT"
	MsgNackBet    = "NACK__BT"
	MsgGameState  = "GAMESTAT"
	MsgBust       = "BUST____"
	MsgHit21      = "HIT21___"
	MsgAckStand   = "ACK_STND"
	MsgNackHit    = "NACK_HIT"
	MsgRoundEnd   = "ROUNDEND"
	MsgAckPlay    = "ACK__PAG"
	MsgNackPlay   = "NACK_PAG"
	MsgNackCmd    = "NACK_CMD"
	MsgPing       = "PING____"
	MsgPong       = "PONG____"
	MsgAckPing    = "ACK_PING"
	MsgConFail    = "CON_FAIL"
	MsgDisconnect = "DISCONNECT"
	MsgInvalid    = "INV_MESS"
)

// Message is one parsed client frame. Valid is false when the line failed any
// framing rule; the caller decides how to count that against the sender.
type Message struct {
	Command string
	Args    []string
	Valid   bool
}

// Parse validates and tokenizes a single frame (without its trailing
// newline). The rules are strict: at least two colon-separated tokens, the
// first exactly "BJ", the second exactly CommandLen characters. The command
// token is uppercased; any further tokens become the arguments.
func Parse(line string) Message {
	var msg Message

	if line == "" {
		return msg
	}

	tokens := strings.Split(line, ":")
	if len(tokens) < 2 {
		return msg
	}
	if tokens[0] != "BJ" {
		return msg
	}
	if len(tokens[1]) != CommandLen {
		return msg
	}

	msg.Command = strings.ToUpper(tokens[1])
	msg.Args = tokens[2:]
	msg.Valid = true
	return msg
}

// Reply is one parsed server frame as seen by a client.
type Reply struct {
	Command string
	Args    string
}

// ParseReply splits a server frame into command and argument blob. Unlike
// Parse it is lenient: anything after the "BJ:" prefix up to the first colon
// is the command, whatever its length, so the ten character DISCONNECT frame
// parses like the rest. The argument blob is kept verbatim and may itself
// contain colons.
func ParseReply(line string) (Reply, bool) {
	line = strings.TrimSuffix(line, "\r")
	rest, ok := strings.CutPrefix(line, "BJ:")
	if !ok || rest == "" {
		return Reply{}, false
	}
	cmd, args, _ := strings.Cut(rest, ":")
	return Reply{Command: cmd, Args: args}, true
}

// Format renders one outbound frame. The server transmits at most a single
// argument blob per frame (already joined by the caller), so an empty args
// string yields a bare command.
func Format(command, args string) []byte {
	var b strings.Builder
	b.Grow(len("BJ:") + len(command) + 1 + len(args) + 1)
	b.WriteString("BJ:")
	b.WriteString(command)
	if args != "" {
		b.WriteByte(':')
		b.WriteString(args)
	}
	b.WriteByte('\n')
	return []byte(b.String())
}
