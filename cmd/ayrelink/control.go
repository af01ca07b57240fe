package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"go.tigermatt.uk/ayrelink"
)

func volumeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "volume N|up|down",
		Short: "Set or step the volume",
		Args:  cobra.ExactArgs(1),
		RunE:  oneShot("volume"),
	}
}

func inputCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "input N",
		Short: "Select input 1-6",
		Args:  cobra.ExactArgs(1),
		RunE:  oneShot("input"),
	}
}

func stateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "state on|mute|standby",
		Short: "Set the operating state",
		Args:  cobra.ExactArgs(1),
		RunE:  oneShot("state"),
	}
}

func statusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the preamp's power state and volume",
		Args:  cobra.ExactArgs(0),
		RunE:  oneShot(""),
	}
}

// oneShot returns a RunE that connects, sends one command and prints the
// resulting status. An empty verb only prints the status.
func oneShot(verb string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		p, err := profile()
		if err != nil {
			return err
		}
		st, err := settings()
		if err != nil {
			return err
		}

		var line string
		if verb != "" {
			// validate before touching the port
			if line, err = (ayrelink.Encoder{Profile: p}).Command(st.Address, verb, args...); err != nil {
				return err
			}
		}

		ctx := listenStop()

		updates := make(chan ayrelink.Event, 8)
		s := newSession(func(ev ayrelink.Event) {
			if ev.Kind != ayrelink.EventStatusUpdate {
				return
			}
			select {
			case updates <- ev:
			default:
			}
		})
		if err := startSession(ctx, s); err != nil {
			return err
		}
		defer s.Close()

		wctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		if err := s.WaitConnected(wctx); err != nil {
			return err
		}

		if line != "" {
			if err := s.Send(line); err != nil {
				return err
			}

			// Input changes and repeated values produce no update, so
			// the timeout is not an error here.
			select {
			case <-updates:
			case <-wctx.Done():
			}
		}

		fmt.Fprintln(cmd.OutOrStdout(), s.Summary())
		return nil
	}
}
