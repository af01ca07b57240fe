// Command ayrelink controls an Ayre preamplifier over its serial link.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	cmd := &cobra.Command{
		Use:           "ayrelink",
		Short:         "Control an Ayre KX-R or KX-5 preamplifier",
		Args:          cobra.ExactArgs(0),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	addSessionFlags(cmd)

	cmd.AddCommand(monitorCommand())
	cmd.AddCommand(volumeCommand())
	cmd.AddCommand(inputCommand())
	cmd.AddCommand(stateCommand())
	cmd.AddCommand(statusCommand())
	cmd.AddCommand(consoleCommand())
	cmd.AddCommand(sniffCommand())
	cmd.AddCommand(&cobra.Command{
		Use:   "replay FILE",
		Short: "Interpret a recording made with monitor --record or sniff",
		Args:  cobra.ExactArgs(1),
		RunE:  replay,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "ports",
		Short: "List serial ports",
		Args:  cobra.ExactArgs(0),
		RunE:  ports,
	})

	if err := cmd.Execute(); err != nil {
		log.Error().Err(err).Msg("ayrelink failed")
		os.Exit(1)
	}
}
