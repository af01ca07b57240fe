package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"go.tigermatt.uk/ayrelink"
)

var outFile string

func sniffCommand() *cobra.Command {
	cmd := cobra.Command{
		Use:   "sniff",
		Short: "Print and record every line on the bus without interpreting it",
		Args:  cobra.ExactArgs(0),
		RunE:  sniff,
	}
	cmd.Flags().StringVar(&outFile, "out", outFile, "Recording file (default <unix time>.dat)")

	return &cmd
}

func outFilename() string {
	if outFile != "" {
		return outFile
	}
	return fmt.Sprintf("%d.dat", time.Now().UTC().Unix())
}

func sniff(_ *cobra.Command, _ []string) error {
	ctx := listenStop()

	if cfg.Serial.Port == "" {
		return ayrelink.ErrUnconfigured
	}

	port, err := ayrelink.OpenSerial(cfg.Serial.Port, cfg.Serial.Baud)
	if err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		port.Close()
	}()

	f, err := os.Create(outFilename())
	if err != nil {
		return fmt.Errorf("creating recording: %w", err)
	}
	defer f.Close()

	rec := &ayrelink.Recorder{Dest: f}
	log.Info().Str("file", f.Name()).Str("port", cfg.Serial.Port).Msg("sniffing")

	lr := &ayrelink.LineReader{
		Src: port,
		OnLine: func(line string) {
			fmt.Printf("%s %s\n", time.Now().Format("15:04:05.000"), line)
			if err := rec.Record(line, ayrelink.Unclassified); err != nil {
				log.Warn().Err(err).Msg("recording line failed")
			}
		},
	}

	return lr.Consume(ctx)
}
