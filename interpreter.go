package ayrelink

import (
	"strings"
	"unicode"

	"github.com/rs/zerolog"
)

// Writer sends a fully formed command line to the device.
type Writer interface {
	WriteCommand(cmd string) error
}

// WriterFunc adapts a function to Writer.
type WriterFunc func(cmd string) error

func (f WriterFunc) WriteCommand(cmd string) error { return f(cmd) }

type EventKind int

const (
	// EventConnected fires once per session, when power and volume are first both known.
	EventConnected EventKind = iota + 1
	// EventStatusUpdate fires for every later change of power or volume.
	EventStatusUpdate
)

func (k EventKind) String() string {
	switch k {
	case EventConnected:
		return "connected"
	case EventStatusUpdate:
		return "status_update"
	default:
		return "unknown"
	}
}

// Change tags which field a status update changed.
type Change int

const (
	ChangeNone Change = iota
	ChangeStatus
	ChangeVolume
)

func (c Change) String() string {
	switch c {
	case ChangeStatus:
		return "status"
	case ChangeVolume:
		return "volume"
	default:
		return ""
	}
}

type Event struct {
	Kind    EventKind
	Change  Change
	Summary string
	Status  Status
}

// Result says what Classify made of a line.
type Result int

const (
	// Unclassified marks a line that never went through Classify, such as
	// one captured by sniff.
	Unclassified Result = iota
	// Discarded lines were not understood or not addressed to anything we track.
	Discarded
	// Updated lines changed the tracked status.
	Updated
	// Unchanged lines were authoritative but repeated the known value.
	Unchanged
	// VolumeHint lines caused a volume query.
	VolumeHint
	// StatusHint lines caused a power query.
	StatusHint
)

func (r Result) String() string {
	switch r {
	case Updated:
		return "updated"
	case Unchanged:
		return "unchanged"
	case VolumeHint:
		return "volume-hint"
	case StatusHint:
		return "status-hint"
	case Discarded:
		return "discarded"
	default:
		return "-"
	}
}

var nopLogger = zerolog.Nop()

// Interpreter tracks the status of the preamplifier at Address from the
// lines it reports. Classify must not be called concurrently.
type Interpreter struct {
	Address Address
	Profile Profile

	// Out receives follow-up queries. May be nil, in which case they are dropped.
	Out Writer

	// OnEvent is called synchronously from Classify.
	OnEvent func(Event)

	Log *zerolog.Logger

	enc    Encoder
	status Status
}

func NewInterpreter(addr Address, profile Profile, out Writer) *Interpreter {
	i := &Interpreter{
		Address: addr,
		Profile: profile,
		Out:     out,
	}
	i.Reset()

	return i
}

// Reset forgets everything known about the device and starts a new
// initialization cycle.
func (i *Interpreter) Reset() {
	i.status = NewStatus()
	i.enc = Encoder{Profile: i.Profile}
}

func (i *Interpreter) Status() Status {
	return i.status
}

func (i *Interpreter) Summary() string {
	return i.status.Summary(i.Profile.Name)
}

func (i *Interpreter) log() *zerolog.Logger {
	if i.Log == nil {
		return &nopLogger
	}
	return i.Log
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

// Classify interprets a single line received from the bus. Lines addressed
// to the preamplifier update the status; lines from other units that hint
// at a volume or power change trigger a query instead. Everything else is
// ignored.
func (i *Interpreter) Classify(raw string) Result {
	msg := []rune(strings.ToUpper(strings.TrimRight(raw, "\r\n")))
	if len(msg) != 3 {
		i.log().Debug().Str("line", raw).Msg("discarding unrecognised line")
		return Discarded
	}

	switch {
	case msg[0] == unicode.ToUpper(rune(i.Address)):
		return i.preamp(msg)
	case msg[1] == 'V', isDigit(msg[1]) && isDigit(msg[2]):
		i.log().Debug().Str("line", raw).Msg("detected volume change, requesting update")
		i.send(i.enc.QueryVolume(i.Address))
		return VolumeHint
	case msg[1] == 'O':
		i.log().Debug().Str("line", raw).Msg("detected status change, requesting update")
		i.send(i.enc.QueryPower(i.Address))
		return StatusHint
	}

	i.log().Debug().Str("line", raw).Msg("discarding line from other unit")
	return Discarded
}

func (i *Interpreter) preamp(msg []rune) Result {
	prev := i.status

	switch tail := string(msg[1:]); {
	case tail == "ON":
		i.status.Power = PowerOn
	case tail == "OM":
		i.status.Power = PowerMute
	case tail == "OP", tail == "OF":
		i.status.Power = PowerStandby
	case isDigit(msg[1]) && isDigit(msg[2]):
		i.status.setVolume(int(msg[1]-'0')*10 + int(msg[2]-'0'))
	case msg[1] == 'V':
		i.log().Debug().Str("line", string(msg)).Msg("detected relative volume change, requesting update")
		i.send(i.enc.QueryVolume(i.Address))
		return VolumeHint
	default:
		i.log().Debug().Str("line", string(msg)).Msg("discarding unrecognised preamp message")
		return Discarded
	}

	return i.settle(prev)
}

// settle decides which event, if any, follows a status mutation.
func (i *Interpreter) settle(prev Status) Result {
	result := Unchanged
	if i.status != prev {
		result = Updated
	}

	summary := i.Summary()

	if i.status.Initializing {
		if i.status.Known() {
			i.status.Initializing = false
			i.log().Info().Str("status", summary).Msg("initial status received")
			i.emit(Event{Kind: EventConnected, Summary: summary, Status: i.status})
		}
		return result
	}

	change := ChangeNone
	switch {
	case i.status.Power != prev.Power:
		change = ChangeStatus
	case i.status.Volume != prev.Volume || i.status.HasVolume != prev.HasVolume:
		change = ChangeVolume
	}

	if change == ChangeNone {
		return result
	}

	i.log().Info().Str("change", change.String()).Msg(summary)
	i.emit(Event{Kind: EventStatusUpdate, Change: change, Summary: summary, Status: i.status})

	return result
}

func (i *Interpreter) emit(ev Event) {
	if i.OnEvent != nil {
		i.OnEvent(ev)
	}
}

func (i *Interpreter) send(cmd string) {
	if i.Out == nil {
		return
	}
	if err := i.Out.WriteCommand(cmd); err != nil {
		i.log().Warn().Err(err).Str("command", strings.TrimSpace(cmd)).Msg("follow-up query failed")
	}
}
