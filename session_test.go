package ayrelink_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.tigermatt.uk/ayrelink"
	"go.tigermatt.uk/ayrelink/internal/simulator"
)

const waitTimeout = 2 * time.Second

type simHarness struct {
	pre    *simulator.Preamp
	events chan ayrelink.Event
	opens  int
}

// newSimSession returns a session whose port is an in-memory pipe to a
// simulated KX-5.
func newSimSession(t *testing.T) (*ayrelink.Session, *simHarness) {
	t.Helper()

	p, err := ayrelink.LookupProfile("KX-5", false)
	require.NoError(t, err)

	h := &simHarness{
		pre:    simulator.New(ayrelink.DefaultAddress, p),
		events: make(chan ayrelink.Event, 32),
	}

	s := &ayrelink.Session{
		Open: func(name string, baud int) (ayrelink.Port, error) {
			h.opens++
			local, remote := net.Pipe()
			go h.pre.Serve(context.Background(), remote)
			return local, nil
		},
		OnEvent: func(ev ayrelink.Event) { h.events <- ev },
	}
	t.Cleanup(func() { s.Close() })

	return s, h
}

func (h *simHarness) next(t *testing.T) ayrelink.Event {
	t.Helper()

	select {
	case ev := <-h.events:
		return ev
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for event")
		return ayrelink.Event{}
	}
}

func (h *simHarness) none(t *testing.T) {
	t.Helper()

	select {
	case ev := <-h.events:
		t.Fatalf("unexpected event %v %q", ev.Kind, ev.Summary)
	case <-time.After(100 * time.Millisecond):
	}
}

func settings() ayrelink.Settings {
	return ayrelink.Settings{Port: "sim", Model: "KX-5"}
}

func start(t *testing.T, s *ayrelink.Session) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
	defer cancel()

	require.NoError(t, s.Start(context.Background(), settings()))
	require.NoError(t, s.WaitConnected(ctx))
}

func TestSessionHandshake(t *testing.T) {
	s, h := newSimSession(t)
	h.pre.Set(ayrelink.PowerOn, 9, 1)

	start(t, s)

	ev := h.next(t)
	assert.Equal(t, ayrelink.EventConnected, ev.Kind)
	assert.Equal(t, "Ayre KX-5 is ON with volume 9", ev.Summary)

	st := s.Status()
	assert.Equal(t, ayrelink.PowerOn, st.Power)
	assert.Equal(t, 9, st.Volume)
	assert.False(t, st.Initializing)
}

func TestSessionCommands(t *testing.T) {
	s, h := newSimSession(t)
	h.pre.Set(ayrelink.PowerOn, 9, 1)
	start(t, s)
	h.next(t)

	enc := s.Encoder()
	addr := s.Settings().Address

	require.NoError(t, s.Send(enc.SetVolume(addr, 12)))
	ev := h.next(t)
	assert.Equal(t, ayrelink.EventStatusUpdate, ev.Kind)
	assert.Equal(t, ayrelink.ChangeVolume, ev.Change)
	assert.Equal(t, "Ayre KX-5 is ON with volume 12", ev.Summary)

	// KVU makes the preamp announce the step, which is answered with a
	// second query; the repeated reading must not produce another event.
	require.NoError(t, s.Send(enc.VolumeUp(addr)))
	ev = h.next(t)
	assert.Equal(t, ayrelink.ChangeVolume, ev.Change)
	assert.Equal(t, 13, ev.Status.Volume)
	h.none(t)

	cmd, err := enc.SetOperatingState(addr, ayrelink.StateMute)
	require.NoError(t, err)
	require.NoError(t, s.Send(cmd))
	ev = h.next(t)
	assert.Equal(t, ayrelink.ChangeStatus, ev.Change)
	assert.Equal(t, "Ayre KX-5 is MUTE with volume 13", ev.Summary)

	cmd, err = enc.SetInput(addr, 4)
	require.NoError(t, err)
	require.NoError(t, s.Send(cmd))
	h.none(t)
	_, _, input := h.pre.State()
	assert.Equal(t, 4, input)
}

func TestSessionClampsOutbound(t *testing.T) {
	s, h := newSimSession(t)
	start(t, s)
	h.next(t)

	require.NoError(t, s.Send(s.Encoder().SetVolume(ayrelink.DefaultAddress, 200)))
	ev := h.next(t)
	assert.Equal(t, 46, ev.Status.Volume)
}

func TestSessionRestartResetsStatus(t *testing.T) {
	s, h := newSimSession(t)
	h.pre.Set(ayrelink.PowerOn, 9, 1)
	start(t, s)
	assert.Equal(t, ayrelink.EventConnected, h.next(t).Kind)

	h.pre.Set(ayrelink.PowerMute, 30, 1)
	start(t, s)

	ev := h.next(t)
	assert.Equal(t, ayrelink.EventConnected, ev.Kind)
	assert.Equal(t, "Ayre KX-5 is MUTE with volume 30", ev.Summary)
	assert.Equal(t, 2, h.opens)
}

func TestSessionStartValidation(t *testing.T) {
	s, h := newSimSession(t)

	err := s.Start(context.Background(), ayrelink.Settings{Port: "sim", Model: "KX-9"})
	assert.ErrorIs(t, err, ayrelink.ErrUnsupported)

	err = s.Start(context.Background(), ayrelink.Settings{Model: "KX-5"})
	assert.ErrorIs(t, err, ayrelink.ErrUnconfigured)

	assert.Zero(t, h.opens)
}

func TestSessionClosed(t *testing.T) {
	s, h := newSimSession(t)

	assert.ErrorIs(t, s.Send("K*?\r"), ayrelink.ErrClosed)
	assert.ErrorIs(t, s.WaitConnected(context.Background()), ayrelink.ErrClosed)
	assert.NoError(t, s.Close())

	start(t, s)
	h.next(t)

	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.Send("K*?\r"), ayrelink.ErrClosed)
	assert.NoError(t, s.Close())
	assert.True(t, s.Status().Initializing)
}

func TestSessionWaitConnectedTimeout(t *testing.T) {
	s := &ayrelink.Session{
		Open: func(string, int) (ayrelink.Port, error) {
			local, remote := net.Pipe()
			// a silent device that swallows everything
			go func() {
				buf := make([]byte, 64)
				for {
					if _, err := remote.Read(buf); err != nil {
						return
					}
				}
			}()
			return local, nil
		},
	}
	t.Cleanup(func() { s.Close() })

	require.NoError(t, s.Start(context.Background(), settings()))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, s.WaitConnected(ctx), context.DeadlineExceeded)
	assert.True(t, s.Status().Initializing)
}

func TestSessionRecordsLines(t *testing.T) {
	s, h := newSimSession(t)

	var buf syncBuffer
	s.Recorder = &ayrelink.Recorder{Dest: &buf}

	start(t, s)
	h.next(t)
	require.NoError(t, s.Close())

	out := make(chan ayrelink.Message, 8)
	require.NoError(t, ayrelink.ReadIn(out, buf.reader()))

	var lines []string
	var results []ayrelink.Result
	for msg := range out {
		lines = append(lines, msg.Line)
		results = append(results, msg.Result)
	}
	assert.Equal(t, []string{"KON", "K20"}, lines)
	assert.Equal(t, []ayrelink.Result{ayrelink.Updated, ayrelink.Updated}, results)
}
