package ayrelink

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"go.bug.st/serial"
	"golang.org/x/sync/errgroup"
)

// DefaultBaud is the fixed line speed of the preamplifier's serial link.
const DefaultBaud = 2400

// Settings selects the device and where to find it.
type Settings struct {
	Port    string
	Model   string
	Twenty  bool
	Address Address
	Baud    int
}

// Port is the part of a serial port a session needs.
type Port io.ReadWriteCloser

// OpenFunc opens the transport named by a session's settings.
type OpenFunc func(name string, baud int) (Port, error)

// OpenSerial opens a real serial port at 8N1.
func OpenSerial(name string, baud int) (Port, error) {
	p, err := serial.Open(name, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("opening serial port %s: %w", name, err)
	}

	return p, nil
}

// Session owns the connection to one preamplifier. Starting it again with
// new settings discards all state from the previous connection.
type Session struct {
	// Open defaults to OpenSerial.
	Open OpenFunc

	// OnEvent is called from the session's dispatch goroutine, in order.
	OnEvent func(Event)

	// Recorder, when set, captures every received line with its
	// classification.
	Recorder *Recorder

	Log *zerolog.Logger

	mu        sync.Mutex
	settings  Settings
	profile   Profile
	port      Port
	interp    *Interpreter
	pending   []Event
	connected chan struct{}
	cancel    context.CancelFunc
	group     *errgroup.Group

	writeMu sync.Mutex
}

func (s *Session) log() *zerolog.Logger {
	if s.Log == nil {
		return &nopLogger
	}
	return s.Log
}

// Start validates settings, closes any previous connection and opens a new
// one. The initial status query is sent before Start returns; callers
// should wait for the connected event (see WaitConnected) before issuing
// commands.
func (s *Session) Start(ctx context.Context, settings Settings) error {
	profile, err := LookupProfile(settings.Model, settings.Twenty)
	if err != nil {
		s.Close()
		return err
	}

	if settings.Port == "" {
		s.Close()
		return ErrUnconfigured
	}

	if settings.Address == 0 {
		settings.Address = DefaultAddress
	}
	if settings.Baud == 0 {
		settings.Baud = DefaultBaud
	}

	s.log().Info().Msg(profile.Describe(settings.Port))

	s.Close()

	open := s.Open
	if open == nil {
		open = OpenSerial
	}

	s.log().Info().Str("port", settings.Port).Msg("opening new port for parsing")
	port, err := open(settings.Port, settings.Baud)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	interp := NewInterpreter(settings.Address, profile, portWriter{mu: &s.writeMu, port: port})
	interp.Log = s.Log

	s.mu.Lock()
	s.settings = settings
	s.profile = profile
	s.port = port
	s.interp = interp
	s.pending = nil
	s.connected = make(chan struct{})
	s.cancel = cancel
	s.group = g
	interp.OnEvent = func(ev Event) { s.pending = append(s.pending, ev) }
	s.mu.Unlock()

	lines := make(chan string, 16)
	lr := &LineReader{
		Src: port,
		OnLine: func(line string) {
			select {
			case lines <- line:
			case <-gctx.Done():
			}
		},
	}
	g.Go(func() error {
		defer close(lines)
		return lr.Consume(gctx)
	})
	g.Go(func() error {
		for line := range lines {
			s.deliver(interp, line)
		}
		return nil
	})

	s.log().Info().Msg("getting initial preamp status")
	if err := s.Send(interp.enc.QueryStatus(settings.Address)); err != nil {
		s.Close()
		return fmt.Errorf("while requesting initial status: %w", err)
	}

	return nil
}

// deliver classifies one line and then dispatches whatever events it
// produced, outside the lock.
func (s *Session) deliver(in *Interpreter, line string) {
	s.mu.Lock()
	if s.interp != in {
		s.mu.Unlock()
		return
	}
	result := in.Classify(line)
	events := s.pending
	s.pending = nil
	connected := s.connected
	s.mu.Unlock()

	if s.Recorder != nil {
		if err := s.Recorder.Record(line, result); err != nil {
			s.log().Warn().Err(err).Msg("recording line failed")
		}
	}

	for _, ev := range events {
		if ev.Kind == EventConnected {
			close(connected)
		}
		if s.OnEvent != nil {
			s.OnEvent(ev)
		}
	}
}

// WaitConnected blocks until the current session has seen both power and
// volume.
func (s *Session) WaitConnected(ctx context.Context) error {
	s.mu.Lock()
	connected := s.connected
	s.mu.Unlock()

	if connected == nil {
		return ErrClosed
	}

	select {
	case <-connected:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for initial status: %w", ctx.Err())
	}
}

// Wait blocks until the session's reader stops, either because the port
// failed or the session was closed.
func (s *Session) Wait() error {
	s.mu.Lock()
	g := s.group
	s.mu.Unlock()

	if g == nil {
		return nil
	}
	return g.Wait()
}

// Send writes a command line to the device.
func (s *Session) Send(cmd string) error {
	s.mu.Lock()
	port := s.port
	s.mu.Unlock()

	if port == nil {
		return ErrClosed
	}

	return portWriter{mu: &s.writeMu, port: port}.WriteCommand(cmd)
}

// Status returns the current mirror of the device state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.interp == nil {
		return NewStatus()
	}
	return s.interp.Status()
}

// Summary describes the current device state.
func (s *Session) Summary() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.interp == nil {
		return ""
	}
	return s.interp.Summary()
}

func (s *Session) Settings() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

func (s *Session) Profile() Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profile
}

// Encoder returns a command encoder for the connected model.
func (s *Session) Encoder() Encoder {
	return Encoder{Profile: s.Profile()}
}

// Close shuts the port and waits for outstanding reads to drain. It is safe
// to call on a session that was never started, but not from OnEvent.
func (s *Session) Close() error {
	s.mu.Lock()
	port, cancel, g, name := s.port, s.cancel, s.group, s.settings.Port
	s.port, s.cancel, s.group = nil, nil, nil
	s.interp = nil
	s.connected = nil
	s.mu.Unlock()

	if port == nil {
		return nil
	}

	cancel()
	err := port.Close()

	if g != nil {
		if werr := g.Wait(); werr != nil && !errors.Is(werr, context.Canceled) {
			s.log().Warn().Err(werr).Msg("reader stopped with error")
		}
	}

	s.log().Info().Str("port", name).Msg("closed old port")

	if err != nil {
		return fmt.Errorf("closing port: %w", err)
	}
	return nil
}

type portWriter struct {
	mu   *sync.Mutex
	port Port
}

func (w portWriter) WriteCommand(cmd string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := io.WriteString(w.port, cmd); err != nil {
		return fmt.Errorf("writing %q: %w", strings.TrimRight(cmd, Terminator), err)
	}
	return nil
}
