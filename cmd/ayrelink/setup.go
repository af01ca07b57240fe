package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"go.tigermatt.uk/ayrelink"
	"go.tigermatt.uk/ayrelink/internal/config"
	"go.tigermatt.uk/ayrelink/internal/logging"
)

var (
	configPath = "ayrelink.yaml"
	portName   string
	model      string
	twenty     bool
	logLevel   string
	timeout    = 5 * time.Second

	cfg = config.Default()
	log = logging.New(cfg.Logging, nil)
)

func addSessionFlags(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.StringVar(&configPath, "config", configPath, "Configuration file")
	f.StringVar(&portName, "port", portName, "Serial port the preamp is attached to")
	f.StringVar(&model, "model", model, "Preamp model ("+strings.Join(ayrelink.Models(), ", ")+")")
	f.BoolVar(&twenty, "twenty", twenty, "Preamp is a Twenty revision")
	f.StringVar(&logLevel, "log-level", logLevel, "Log level (debug, info, warn, error)")
	f.DurationVar(&timeout, "timeout", timeout, "How long to wait for the preamp to answer")

	cmd.PersistentPreRunE = setup
}

// setup loads the config file and applies flag overrides. The default
// config file is optional, one named with --config is not.
func setup(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()

	c, err := config.Load(configPath, !flags.Changed("config"))
	if err != nil {
		return err
	}

	if flags.Changed("port") {
		c.Serial.Port = portName
	}
	if flags.Changed("model") {
		c.Device.Model = model
	}
	if flags.Changed("twenty") {
		c.Device.Twenty = twenty
	}
	if flags.Changed("log-level") {
		c.Logging.Level = logLevel
	}

	cfg = c
	log = logging.New(cfg.Logging, nil)

	return nil
}

func settings() (ayrelink.Settings, error) {
	addr, err := ayrelink.ParseAddress(cfg.Device.Address)
	if err != nil {
		return ayrelink.Settings{}, err
	}

	return ayrelink.Settings{
		Port:    cfg.Serial.Port,
		Model:   cfg.Device.Model,
		Twenty:  cfg.Device.Twenty,
		Address: addr,
		Baud:    cfg.Serial.Baud,
	}, nil
}

func profile() (ayrelink.Profile, error) {
	return ayrelink.LookupProfile(cfg.Device.Model, cfg.Device.Twenty)
}

func newSession(onEvent func(ayrelink.Event)) *ayrelink.Session {
	return &ayrelink.Session{
		OnEvent: onEvent,
		Log:     logging.Component(log, "session"),
	}
}

func startSession(ctx context.Context, s *ayrelink.Session) error {
	st, err := settings()
	if err != nil {
		return err
	}

	if err := s.Start(ctx, st); err != nil {
		return fmt.Errorf("starting session: %w", err)
	}

	return nil
}

func listenStop() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)

	go func() {
		<-sigCh
		cancel()
	}()

	return ctx
}

func logEvent(l *zerolog.Logger) func(ayrelink.Event) {
	return func(ev ayrelink.Event) {
		e := l.Info().Str("event", ev.Kind.String())
		if ev.Change != ayrelink.ChangeNone {
			e = e.Str("change", ev.Change.String())
		}
		e.Msg(ev.Summary)
	}
}
