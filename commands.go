package ayrelink

import (
	"fmt"
	"strconv"
	"strings"
)

// Verbs lists the command names understood by Encoder.Command.
var Verbs = []string{"volume", "up", "down", "input", "state", "query"}

// Command encodes a textual command such as "volume 12", "volume up",
// "input 3" or "state mute".
func (e Encoder) Command(addr Address, verb string, args ...string) (string, error) {
	arg := ""
	if len(args) > 0 {
		arg = strings.TrimSpace(args[0])
	}

	switch strings.ToLower(verb) {
	case "volume", "vol", "v":
		switch strings.ToLower(arg) {
		case "up", "+":
			return e.VolumeUp(addr), nil
		case "down", "-":
			return e.VolumeDown(addr), nil
		}
		v, err := strconv.Atoi(arg)
		if err != nil {
			return "", fmt.Errorf("invalid volume %q: want a number, up or down", arg)
		}
		return e.SetVolume(addr, v), nil
	case "up":
		return e.VolumeUp(addr), nil
	case "down":
		return e.VolumeDown(addr), nil
	case "input", "in", "i":
		n, err := ParseInput(arg)
		if err != nil {
			return "", err
		}
		return e.SetInput(addr, n)
	case "state", "power", "s":
		st, err := ParseOperatingState(arg)
		if err != nil {
			return "", err
		}
		return e.SetOperatingState(addr, st)
	case "query", "q":
		return e.QueryStatus(addr), nil
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownCommand, verb)
}
