package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"go.tigermatt.uk/ayrelink"
	"go.tigermatt.uk/ayrelink/internal/logging"
	"go.tigermatt.uk/ayrelink/internal/mqttbridge"
)

var (
	recordPath string
	withMQTT   bool
)

func monitorCommand() *cobra.Command {
	cmd := cobra.Command{
		Use:   "monitor",
		Short: "Follow the preamp's status, optionally bridging it to MQTT",
		Args:  cobra.ExactArgs(0),
		RunE:  monitor,
	}
	cmd.Flags().StringVar(&recordPath, "record", recordPath, "Record received lines to FILE")
	cmd.Flags().BoolVar(&withMQTT, "mqtt", withMQTT, "Publish to MQTT even if disabled in the config")

	return &cmd
}

func monitor(_ *cobra.Command, _ []string) error {
	ctx := listenStop()

	p, err := profile()
	if err != nil {
		return err
	}
	st, err := settings()
	if err != nil {
		return err
	}

	handlers := []func(ayrelink.Event){logEvent(&log)}
	s := newSession(nil)

	if recordPath != "" {
		f, err := os.Create(recordPath)
		if err != nil {
			return fmt.Errorf("creating recording: %w", err)
		}
		defer f.Close()
		s.Recorder = &ayrelink.Recorder{Dest: f}
	}

	if withMQTT || cfg.MQTT.Enabled {
		mqttLog := logging.Component(log, "mqtt")

		client, err := mqttbridge.Connect(cfg.MQTT, *mqttLog)
		if err != nil {
			return err
		}
		defer client.Close()

		b, err := mqttbridge.New(mqttbridge.Options{
			Client:  client,
			Device:  s,
			Encoder: ayrelink.Encoder{Profile: p},
			Address: st.Address,
			Prefix:  cfg.MQTT.TopicPrefix,
			QoS:     byte(cfg.MQTT.QoS),
			Log:     mqttLog,
		})
		if err != nil {
			return err
		}
		if err := b.Start(); err != nil {
			return err
		}
		handlers = append(handlers, b.HandleEvent)
	}

	s.OnEvent = func(ev ayrelink.Event) {
		for _, h := range handlers {
			h(ev)
		}
	}

	if err := startSession(ctx, s); err != nil {
		return err
	}
	defer s.Close()

	errc := make(chan error, 1)
	go func() { errc <- s.Wait() }()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errc:
		return err
	}
}
