package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"go.tigermatt.uk/ayrelink"
)

func consoleCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "console",
		Short: "Interactive prompt for controlling the preamp",
		Args:  cobra.ExactArgs(0),
		RunE:  console,
	}
}

func console(_ *cobra.Command, _ []string) error {
	ctx, cancel := context.WithCancel(listenStop())
	defer cancel()

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "ayre> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("creating readline: %w", err)
	}
	defer rl.Close()

	// keep log output from tearing through the prompt
	log = log.Output(zerolog.ConsoleWriter{Out: rl.Stderr()})

	out := rl.Stdout()
	s := newSession(func(ev ayrelink.Event) {
		fmt.Fprintf(out, "%s: %s\n", ev.Kind, ev.Summary)
	})
	if err := startSession(ctx, s); err != nil {
		return err
	}
	defer s.Close()

	printConsoleHelp(out)

	addr := s.Settings().Address
	enc := s.Encoder()

	for {
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			return nil
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		switch verb := strings.ToLower(fields[0]); verb {
		case "help", "?":
			printConsoleHelp(out)
		case "exit", "quit":
			return nil
		case "status":
			fmt.Fprintln(out, s.Summary())
		default:
			cmd, err := enc.Command(addr, verb, fields[1:]...)
			if err != nil {
				fmt.Fprintln(out, err)
				continue
			}
			if err := s.Send(cmd); err != nil {
				return err
			}
		}
	}
}

func printConsoleHelp(w io.Writer) {
	fmt.Fprint(w, `Commands:
  volume N|up|down   set or step the volume
  up, down           step the volume
  input N            select input 1-6
  state on|mute|standby
  query              ask the preamp for its status
  status             print the last known status
  exit
`)
}
