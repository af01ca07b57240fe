// Package mqttbridge publishes preamplifier state to an MQTT broker and
// turns messages on its command topics into device commands.
//
// Topics, relative to the configured prefix:
//
//	status          retained "online" / "offline"
//	state           retained JSON StateMessage
//	ack             JSON AckMessage for every command received
//	command/volume  "12", "up" or "down"
//	command/up      any payload
//	command/down    any payload
//	command/input   "1".."6"
//	command/state   "on", "mute", "standby" or N, M, F
//	command/query   any payload
package mqttbridge

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"go.tigermatt.uk/ayrelink"
)

// MQTTClient is the subset of an MQTT client the bridge uses.
type MQTTClient interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error
}

// Commander sends command lines to the device.
type Commander interface {
	Send(cmd string) error
}

type Options struct {
	Client  MQTTClient
	Device  Commander
	Encoder ayrelink.Encoder
	Address ayrelink.Address
	Prefix  string
	QoS     byte
	Log     *zerolog.Logger
}

type Bridge struct {
	client MQTTClient
	device Commander
	enc    ayrelink.Encoder
	addr   ayrelink.Address
	topics Topics
	qos    byte
	log    zerolog.Logger
	now    func() time.Time
	newID  func() string
}

func New(opts Options) (*Bridge, error) {
	if opts.Client == nil {
		return nil, fmt.Errorf("MQTT client is required")
	}
	if opts.Device == nil {
		return nil, fmt.Errorf("device is required")
	}
	if opts.Prefix == "" {
		return nil, fmt.Errorf("topic prefix is required")
	}

	b := &Bridge{
		client: opts.Client,
		device: opts.Device,
		enc:    opts.Encoder,
		addr:   opts.Address,
		topics: Topics{Prefix: opts.Prefix},
		qos:    opts.QoS,
		log:    zerolog.Nop(),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	if b.addr == 0 {
		b.addr = ayrelink.DefaultAddress
	}
	if opts.Log != nil {
		b.log = *opts.Log
	}

	return b, nil
}

// Start subscribes to the command topics and announces the bridge online.
func (b *Bridge) Start() error {
	if err := b.client.Subscribe(b.topics.CommandWildcard(), b.qos, b.handleCommand); err != nil {
		return fmt.Errorf("subscribe to commands: %w", err)
	}

	if err := b.client.Publish(b.topics.Status(), []byte(payloadOnline), b.qos, true); err != nil {
		return fmt.Errorf("publish online status: %w", err)
	}

	b.log.Info().Strs("topics", b.CommandTopics()).Msg("subscribed to commands")
	return nil
}

// HandleEvent publishes the device state carried by ev. It has the
// signature of ayrelink.Session.OnEvent.
func (b *Bridge) HandleEvent(ev ayrelink.Event) {
	payload, err := json.Marshal(newStateMessage(b.enc.Profile.Name, ev, b.now()))
	if err != nil {
		b.log.Error().Err(err).Msg("encoding state")
		return
	}

	if err := b.client.Publish(b.topics.State(), payload, b.qos, true); err != nil {
		b.log.Warn().Err(err).Msg("publishing state failed")
	}
}

// CommandTopics lists the topic of every command the bridge understands.
func (b *Bridge) CommandTopics() []string {
	topics := make([]string, 0, len(ayrelink.Verbs))
	for _, v := range ayrelink.Verbs {
		topics = append(topics, b.topics.Command(v))
	}
	return topics
}

func (b *Bridge) handleCommand(topic string, payload []byte) {
	name := topic[strings.LastIndex(topic, "/")+1:]
	arg := strings.TrimSpace(string(payload))

	ack := AckMessage{
		ID:        b.newID(),
		Command:   name,
		Payload:   arg,
		Status:    AckAccepted,
		Timestamp: b.now().UTC(),
	}

	cmd, err := b.encode(name, arg)
	if err == nil {
		err = b.device.Send(cmd)
	}
	if err != nil {
		ack.Status = AckFailed
		ack.Error = err.Error()
		b.log.Warn().Err(err).Str("command", name).Str("payload", arg).Msg("command rejected")
	}

	data, merr := json.Marshal(ack)
	if merr != nil {
		b.log.Error().Err(merr).Msg("encoding ack")
		return
	}
	if perr := b.client.Publish(b.topics.Ack(), data, b.qos, false); perr != nil {
		b.log.Warn().Err(perr).Msg("publishing ack failed")
	}
}

func (b *Bridge) encode(name, arg string) (string, error) {
	return b.enc.Command(b.addr, name, arg)
}
