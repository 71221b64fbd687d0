package logic

import "strings"

// Command is a recognised host command.
type Command string

const (
	CmdMute    Command = "MUTE"
	CmdUnmute  Command = "UNMUTE"
	CmdAck     Command = "ACK"
	CmdVersion Command = "VERSION"
)

// ParseCommand interprets one inbound line. Whitespace is trimmed and the
// comparison ignores case. Unknown lines return false.
func ParseCommand(line string) (Command, bool) {
	line = strings.TrimSpace(line)
	for _, c := range []Command{CmdMute, CmdUnmute, CmdAck, CmdVersion} {
		if strings.EqualFold(line, string(c)) {
			return c, true
		}
	}
	return "", false
}
