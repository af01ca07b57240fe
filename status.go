package ayrelink

import "fmt"

// PowerState is the operating state reported by the preamplifier.
type PowerState int

const (
	PowerUnknown PowerState = iota
	PowerOn
	PowerMute
	PowerStandby
)

func (p PowerState) String() string {
	switch p {
	case PowerOn:
		return "ON"
	case PowerMute:
		return "MUTE"
	case PowerStandby:
		return "STANDBY"
	default:
		return "UNKNOWN"
	}
}

// MaxRawVolume is the largest volume the two-digit wire format can carry.
const MaxRawVolume = 99

// Status mirrors what the device last told us about itself. Volume is only
// meaningful when HasVolume is set.
type Status struct {
	Power        PowerState
	Volume       int
	HasVolume    bool
	Initializing bool
}

// NewStatus returns the state of a freshly opened session.
func NewStatus() Status {
	return Status{Initializing: true}
}

// Known reports whether both power state and volume have been observed.
func (s Status) Known() bool {
	return s.Power != PowerUnknown && s.HasVolume
}

func (s *Status) setVolume(v int) {
	if v < 0 || v > MaxRawVolume {
		return
	}
	s.Volume = v
	s.HasVolume = true
}

// Summary renders the status for humans, e.g. "Ayre KX-5 is ON with volume 9".
func (s Status) Summary(deviceName string) string {
	vol := "unknown"
	if s.HasVolume {
		vol = fmt.Sprint(s.Volume)
	}

	return fmt.Sprintf("%s is %s with volume %s", deviceName, s.Power, vol)
}
