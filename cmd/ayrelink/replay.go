package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"go.tigermatt.uk/ayrelink"
)

func replay(cmd *cobra.Command, args []string) error {
	p, err := profile()
	if err != nil {
		return err
	}
	st, err := settings()
	if err != nil {
		return err
	}

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("reading file: %w", err)
	}
	defer f.Close()

	msgs := make(chan ayrelink.Message, 100)

	out := cmd.OutOrStdout()
	in := newReplayInterpreter(out, st.Address, p)

	var g errgroup.Group
	g.Go(func() error { return processMsgs(out, in, msgs) })
	g.Go(func() error { return ayrelink.ReadIn(msgs, f) })

	return g.Wait()
}

// newReplayInterpreter prints the queries it would have sent instead of
// writing them anywhere.
func newReplayInterpreter(w io.Writer, addr ayrelink.Address, p ayrelink.Profile) *ayrelink.Interpreter {
	in := ayrelink.NewInterpreter(addr, p, ayrelink.WriterFunc(func(cmd string) error {
		for _, c := range strings.Split(strings.TrimSuffix(cmd, ayrelink.Terminator), ayrelink.Terminator) {
			fmt.Fprintf(w, "%20s > %s\n", "", c)
		}
		return nil
	}))
	in.OnEvent = func(ev ayrelink.Event) {
		fmt.Fprintf(w, "%20s * %s %s %s\n", "", ev.Kind, ev.Change, ev.Summary)
	}

	return in
}

func processMsgs(w io.Writer, in *ayrelink.Interpreter, msgs <-chan ayrelink.Message) error {
	for msg := range msgs {
		fmt.Fprintf(w, "%s: %s\n", msg.Timestamp.Format("15:04:05.000"), msg.Line)
		result := in.Classify(msg.Line)
		if msg.Result != ayrelink.Unclassified && msg.Result != result {
			fmt.Fprintf(w, "%20s = %s (recorded %s)\n", "", result, msg.Result)
			continue
		}
		fmt.Fprintf(w, "%20s = %s\n", "", result)
	}

	return nil
}
