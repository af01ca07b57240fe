package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.bug.st/serial"
)

func ports(cmd *cobra.Command, _ []string) error {
	list, err := serial.GetPortsList()
	if err != nil {
		return fmt.Errorf("listing serial ports: %w", err)
	}

	for _, p := range list {
		fmt.Fprintln(cmd.OutOrStdout(), p)
	}

	return nil
}
