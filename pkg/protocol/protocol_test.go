package protocol

import (
	"reflect"
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		line string
		want Message
	}{
		{
			name: "bare command",
			line: "BJ:PING____",
			want: Message{Command: "PING____", Args: []string{}, Valid: true},
		},
		{
			name: "command with one arg",
			line: "BJ:LOGIN___:alice",
			want: Message{Command: "LOGIN___", Args: []string{"alice"}, Valid: true},
		},
		{
			name: "command with several args",
			line: "BJ:ROUNDEND:1050;+150",
			want: Message{Command: "ROUNDEND", Args: []string{"1050;+150"}, Valid: true},
		},
		{
			name: "args keep empty tokens",
			line: "BJ:JOIN____:2:",
			want: Message{Command: "JOIN____", Args: []string{"2", ""}, Valid: true},
		},
		{
			name: "lowercase command is uppercased",
			line: "BJ:login___:bob",
			want: Message{Command: "LOGIN___", Args: []string{"bob"}, Valid: true},
		},
		{
			name: "empty line",
			line: "",
			want: Message{},
		},
		{
			name: "no separator",
			line: "BJ",
			want: Message{},
		},
		{
			name: "wrong prefix",
			line: "XX:LOGIN___:alice",
			want: Message{},
		},
		{
			name: "lowercase prefix rejected",
			line: "bj:LOGIN___:alice",
			want: Message{},
		},
		{
			name: "command too short",
			line: "BJ:LOGIN__:alice",
			want: Message{},
		},
		{
			name: "command too long",
			line: "BJ:LOGIN____:alice",
			want: Message{},
		},
		{
			name: "empty command",
			line: "BJ::alice",
			want: Message{},
		},
		{
			name: "garbage",
			line: "hello world",
			want: Message{},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Parse(tc.line)
			if got.Valid != tc.want.Valid {
				t.Fatalf("Parse(%q).Valid = %v, want %v", tc.line, got.Valid, tc.want.Valid)
			}
			if !got.Valid {
				return
			}
			if got.Command != tc.want.Command {
				t.Errorf("Parse(%q).Command = %q, want %q", tc.line, got.Command, tc.want.Command)
			}
			if !reflect.DeepEqual(got.Args, tc.want.Args) {
				t.Errorf("Parse(%q).Args = %#v, want %#v", tc.line, got.Args, tc.want.Args)
			}
		})
	}
}

func TestFormat(t *testing.T) {
	if got := string(Format(MsgReqNick, "")); got != "BJ:REQ_NICK\n" {
		t.Errorf("bare frame = %q", got)
	}
	if got := string(Format(MsgAckNick, "alice;1000")); got != "BJ:ACK__NIC:alice;1000\n" {
		t.Errorf("frame with args = %q", got)
	}
	// The args blob passes through untouched, colons included.
	snapshot := "D;AS;KH:P;bob;1;NO"
	if got := string(Format(MsgGameState, snapshot)); got != "BJ:GAMESTAT:"+snapshot+"\n" {
		t.Errorf("snapshot frame = %q", got)
	}
}

func TestFormatParseRoundTrip(t *testing.T) {
	commands := []string{
		CmdLogin, CmdJoin, CmdLeaveRoom, CmdReady, CmdNotReady,
		CmdBet, CmdHit, CmdStand, CmdPlayAgain, CmdRecover,
		CmdPing, CmdPong,
		MsgReqNick, MsgAckNick, MsgNackNick, MsgAckRecover,
		MsgAckJoin, MsgNackJoin, MsgAckLeave, MsgNackLeave,
		MsgAckReady, MsgAckUnready, MsgLobbyInfo, MsgRoomStatus,
		MsgReqBet, MsgAckBet, MsgNackBet, MsgGameState,
		MsgBust, MsgHit21, MsgAckStand, MsgNackHit,
		MsgRoundEnd, MsgAckPlay, MsgNackPlay, MsgNackCmd,
		MsgAckPing, MsgConFail, MsgInvalid,
	}
	for _, cmd := range commands {
		if len(cmd) != CommandLen {
			t.Fatalf("command %q is %d chars, want %d", cmd, len(cmd), CommandLen)
		}
		line := strings.TrimSuffix(string(Format(cmd, "x;y")), "\n")
		msg := Parse(line)
		if !msg.Valid {
			t.Fatalf("round trip of %q produced invalid frame %q", cmd, line)
		}
		if msg.Command != cmd {
			t.Errorf("round trip of %q returned command %q", cmd, msg.Command)
		}
	}
}

func TestParseReply(t *testing.T) {
	tests := []struct {
		name string
		line string
		want Reply
		ok   bool
	}{
		{
			name: "bare command",
			line: "BJ:REQ_NICK",
			want: Reply{Command: "REQ_NICK"},
			ok:   true,
		},
		{
			name: "command with args",
			line: "BJ:ACK__NIC:alice;1000",
			want: Reply{Command: "ACK__NIC", Args: "alice;1000"},
			ok:   true,
		},
		{
			name: "args keep embedded colons",
			line: "BJ:GAMESTAT:D;AS;KH:P;bob;1;NO:",
			want: Reply{Command: "GAMESTAT", Args: "D;AS;KH:P;bob;1;NO:"},
			ok:   true,
		},
		{
			name: "overlong disconnect command",
			line: "BJ:DISCONNECT:Too many invalid messages",
			want: Reply{Command: "DISCONNECT", Args: "Too many invalid messages"},
			ok:   true,
		},
		{
			name: "carriage return stripped",
			line: "BJ:ACK__JON\r",
			want: Reply{Command: "ACK__JON"},
			ok:   true,
		},
		{
			name: "missing prefix",
			line: "ACK__NIC:alice",
		},
		{
			name: "empty line",
			line: "",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ParseReply(tc.line)
			if ok != tc.ok {
				t.Fatalf("ParseReply(%q) ok = %v, want %v", tc.line, ok, tc.ok)
			}
			if got != tc.want {
				t.Errorf("ParseReply(%q) = %+v, want %+v", tc.line, got, tc.want)
			}
		})
	}
}

// The disconnect notice deliberately breaks the fixed width rule; servers
// only ever send it, so Parse must treat it as it would any malformed line.
func TestDisconnectNoticeWidth(t *testing.T) {
	if len(MsgDisconnect) == CommandLen {
		t.Fatalf("MsgDisconnect unexpectedly fits the fixed width")
	}
	msg := Parse("BJ:" + MsgDisconnect + ":Too many invalid messages")
	if msg.Valid {
		t.Fatalf("disconnect notice parsed as valid inbound frame")
	}
}
