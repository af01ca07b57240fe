// Command kxsim pretends to be an Ayre preamplifier on a serial port, for
// exercising ayrelink over a null-modem cable.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/tarm/serial"

	"go.tigermatt.uk/ayrelink"
	"go.tigermatt.uk/ayrelink/internal/config"
	"go.tigermatt.uk/ayrelink/internal/logging"
	"go.tigermatt.uk/ayrelink/internal/simulator"
)

var (
	model    = "KX-5"
	twenty   bool
	baud     = ayrelink.DefaultBaud
	volume   = 20
	input    = 1
	power    = "on"
	logLevel = "info"
)

func main() {
	cmd := &cobra.Command{
		Use:          "kxsim DEVICE",
		Short:        "Simulate an Ayre preamplifier on a serial port",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE:         run,
	}
	cmd.Flags().StringVar(&model, "model", model, "Model to simulate ("+strings.Join(ayrelink.Models(), ", ")+")")
	cmd.Flags().BoolVar(&twenty, "twenty", twenty, "Simulate a Twenty revision")
	cmd.Flags().IntVar(&baud, "baud", baud, "Line speed")
	cmd.Flags().IntVar(&volume, "volume", volume, "Initial volume")
	cmd.Flags().IntVar(&input, "input", input, "Initial input")
	cmd.Flags().StringVar(&power, "power", power, "Initial operating state (on, mute, standby)")
	cmd.Flags().StringVar(&logLevel, "log-level", logLevel, "Log level")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(_ *cobra.Command, args []string) error {
	log := logging.New(config.LoggingConfig{Level: logLevel, Format: "console"}, nil)

	profile, err := ayrelink.LookupProfile(model, twenty)
	if err != nil {
		return err
	}

	state, err := ayrelink.ParseOperatingState(power)
	if err != nil {
		return err
	}

	pre := simulator.New(ayrelink.DefaultAddress, profile)
	pre.Set(powerState(state), profile.ClampVolume(volume), input)
	pre.OnCommand = func(cmd string, replies []string) {
		log.Debug().Str("command", cmd).Strs("replies", replies).Msg("handled")
	}

	s, err := serial.OpenPort(&serial.Config{
		Name: args[0],
		Baud: baud,
	})
	if err != nil {
		return fmt.Errorf("opening serial: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	go announce(ctx, log, pre)

	log.Info().Str("device", args[0]).Msg(profile.Describe(args[0]))
	return serve(ctx, log, pre, s)
}

// serve runs pre on port until ctx is done or the port fails, and closes
// the port exactly once.
func serve(ctx context.Context, log zerolog.Logger, pre *simulator.Preamp, port io.ReadWriteCloser) error {
	ctx, cancel := context.WithCancel(ctx)

	// closing the port is what unblocks Serve on interrupt
	closed := make(chan error, 1)
	go func() {
		<-ctx.Done()
		closed <- port.Close()
	}()

	err := pre.Serve(ctx, port)

	cancel()
	if cerr := <-closed; cerr != nil {
		log.Warn().Err(cerr).Msg("closing serial port")
	}

	return err
}

// announce logs the simulated state once a minute, like a front panel.
func announce(ctx context.Context, log zerolog.Logger, pre *simulator.Preamp) {
	t := time.NewTicker(time.Minute)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			p, v, i := pre.State()
			log.Info().Str("power", p.String()).Int("volume", v).Int("input", i).Msg("state")
		}
	}
}

func powerState(s ayrelink.OperatingState) ayrelink.PowerState {
	switch s {
	case ayrelink.StateMute:
		return ayrelink.PowerMute
	case ayrelink.StateStandby:
		return ayrelink.PowerStandby
	default:
		return ayrelink.PowerOn
	}
}
