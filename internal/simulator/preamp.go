// Package simulator emulates an Ayre preamplifier on the serial bus, for
// bench testing without the hardware.
package simulator

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"go.tigermatt.uk/ayrelink"
)

// Preamp answers the command set the way the real unit does: setters are
// silent, queries reply with the current value, and relative volume steps
// are announced with a KVU/KVD line.
type Preamp struct {
	Address ayrelink.Address
	Profile ayrelink.Profile

	// OnCommand, if set, is called by Serve for every command received.
	OnCommand func(cmd string, replies []string)

	mu     sync.Mutex
	power  ayrelink.PowerState
	volume int
	input  int
}

func New(addr ayrelink.Address, profile ayrelink.Profile) *Preamp {
	return &Preamp{
		Address: addr,
		Profile: profile,
		power:   ayrelink.PowerOn,
		volume:  profile.ClampVolume(20),
		input:   1,
	}
}

// Set forces the simulated state, e.g. to mimic the front panel.
func (p *Preamp) Set(power ayrelink.PowerState, volume, input int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.power = power
	p.volume = volume
	p.input = input
}

func (p *Preamp) State() (ayrelink.PowerState, int, int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.power, p.volume, p.input
}

func (p *Preamp) powerLine() string {
	switch p.power {
	case ayrelink.PowerMute:
		return p.Address.String() + "OM"
	case ayrelink.PowerStandby:
		return p.Address.String() + "OP"
	default:
		return p.Address.String() + "ON"
	}
}

func (p *Preamp) volumeLine() string {
	return fmt.Sprintf("%s%02d", p.Address, p.volume)
}

// Handle processes one command line and returns the reply lines, without
// terminators.
func (p *Preamp) Handle(cmd string) []string {
	cmd = strings.ToUpper(strings.TrimSpace(cmd))
	if len(cmd) != 3 || cmd[0] != byte(p.Address) {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	addr := p.Address.String()

	switch body := cmd[1:]; {
	case body == "*?":
		return []string{p.powerLine(), p.volumeLine()}
	case body == "V?":
		return []string{p.volumeLine()}
	case body == "VU":
		p.volume = p.Profile.ClampVolume(p.volume + p.Profile.VolumeStep)
		return []string{addr + "VU"}
	case body == "VD":
		p.volume = p.Profile.ClampVolume(p.volume - p.Profile.VolumeStep)
		return []string{addr + "VD"}
	case body[0] >= '0' && body[0] <= '9' && body[1] >= '0' && body[1] <= '9':
		p.volume = p.Profile.ClampVolume(int(body[0]-'0')*10 + int(body[1]-'0'))
	case body == "O?":
		return []string{p.powerLine()}
	case body == "ON":
		p.power = ayrelink.PowerOn
	case body == "OM":
		p.power = ayrelink.PowerMute
	case body == "OF":
		p.power = ayrelink.PowerStandby
	case body == "I?":
		return []string{fmt.Sprintf("%sI%d", addr, p.input)}
	case body[0] == 'I' && body[1] >= '1' && body[1] <= '6':
		p.input = int(body[1] - '0')
	}

	return nil
}

// Serve reads commands from rw and writes the replies back until rw fails
// or ctx is cancelled.
func (p *Preamp) Serve(ctx context.Context, rw io.ReadWriter) error {
	var werr error

	lr := &ayrelink.LineReader{
		Src: rw,
		OnLine: func(line string) {
			if werr != nil {
				return
			}
			replies := p.Handle(line)
			if p.OnCommand != nil {
				p.OnCommand(line, replies)
			}
			for _, reply := range replies {
				if _, err := io.WriteString(rw, reply+ayrelink.Terminator); err != nil {
					werr = fmt.Errorf("writing reply: %w", err)
					return
				}
			}
		},
	}

	if err := lr.Consume(ctx); err != nil {
		return err
	}
	return werr
}
