package ayrelink

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Terminator ends every command and reply line on the wire.
const Terminator = "\r"

// Address is the single-character identifier of a unit on the shared bus.
type Address byte

// DefaultAddress is the preamplifier's address.
const DefaultAddress Address = 'K'

// ParseAddress accepts a single letter, case-insensitively.
func ParseAddress(s string) (Address, error) {
	if len(s) != 1 || !unicode.IsLetter(rune(s[0])) {
		return 0, fmt.Errorf("invalid bus address %q", s)
	}

	return Address(unicode.ToUpper(rune(s[0]))), nil
}

func (a Address) String() string {
	return string(rune(a))
}

// OperatingState is a settable power state code.
type OperatingState byte

const (
	StateOn      OperatingState = 'N'
	StateMute    OperatingState = 'M'
	StateStandby OperatingState = 'F'
)

func (s OperatingState) valid() bool {
	return s == StateOn || s == StateMute || s == StateStandby
}

// ParseOperatingState accepts the raw codes (N, M, F) as well as the names
// on, mute and standby (or off).
func ParseOperatingState(s string) (OperatingState, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "n", "on":
		return StateOn, nil
	case "m", "mute":
		return StateMute, nil
	case "f", "off", "standby":
		return StateStandby, nil
	}

	return 0, fmt.Errorf("%w: %q", ErrInvalidState, s)
}

// ParseInput parses an input selector, which must be an integer in 1..6.
func ParseInput(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidInput, s)
	}
	if err := checkInput(n); err != nil {
		return 0, err
	}

	return n, nil
}

const (
	minInput = 1
	maxInput = 6
)

func checkInput(n int) error {
	if n < minInput || n > maxInput {
		return fmt.Errorf("%w: %d is out of range %d-%d", ErrInvalidInput, n, minInput, maxInput)
	}

	return nil
}

// Encoder builds outbound command lines. Each setter is followed by the
// matching query so that the device confirms the new value.
type Encoder struct {
	Profile Profile
}

func line(addr Address, body string) string {
	return addr.String() + body + Terminator
}

// SetVolume clamps vol into the profile's range and formats it as two digits.
func (e Encoder) SetVolume(addr Address, vol int) string {
	vol = e.Profile.ClampVolume(vol)
	if vol < 0 {
		vol = 0
	} else if vol > MaxRawVolume {
		vol = MaxRawVolume
	}

	return line(addr, fmt.Sprintf("%02d", vol)) + e.QueryVolume(addr)
}

func (e Encoder) VolumeUp(addr Address) string {
	return line(addr, "VU") + e.QueryVolume(addr)
}

func (e Encoder) VolumeDown(addr Address) string {
	return line(addr, "VD") + e.QueryVolume(addr)
}

// SetInput selects one of the six inputs.
func (e Encoder) SetInput(addr Address, input int) (string, error) {
	if err := checkInput(input); err != nil {
		return "", err
	}

	return line(addr, "I"+strconv.Itoa(input)) + e.QueryInput(addr), nil
}

func (e Encoder) SetOperatingState(addr Address, state OperatingState) (string, error) {
	if !state.valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidState, string(rune(state)))
	}

	return line(addr, "O"+string(rune(state))) + e.QueryPower(addr), nil
}

// QueryStatus asks for everything the device reports, power then volume.
func (e Encoder) QueryStatus(addr Address) string {
	return line(addr, "*?")
}

func (e Encoder) QueryVolume(addr Address) string {
	return line(addr, "V?")
}

func (e Encoder) QueryPower(addr Address) string {
	return line(addr, "O?")
}

func (e Encoder) QueryInput(addr Address) string {
	return line(addr, "I?")
}
