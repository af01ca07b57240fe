package mqttbridge

import (
	"fmt"
	"time"

	"go.tigermatt.uk/ayrelink"
)

// Topics builds the topic names under a prefix.
type Topics struct {
	Prefix string
}

// Status carries the retained online/offline marker (also the LWT).
func (t Topics) Status() string { return t.Prefix + "/status" }

// State carries the retained device state.
func (t Topics) State() string { return t.Prefix + "/state" }

// Ack carries the outcome of each command.
func (t Topics) Ack() string { return t.Prefix + "/ack" }

// Command returns the topic for one command name.
func (t Topics) Command(name string) string { return fmt.Sprintf("%s/command/%s", t.Prefix, name) }

// CommandWildcard matches all command topics.
func (t Topics) CommandWildcard() string { return t.Prefix + "/command/+" }

const (
	payloadOnline  = "online"
	payloadOffline = "offline"
)

// StateMessage is published on every connected and status_update event.
type StateMessage struct {
	Device    string    `json:"device"`
	Power     string    `json:"power"`
	Volume    *int      `json:"volume"`
	Summary   string    `json:"summary"`
	Event     string    `json:"event"`
	Change    string    `json:"change,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func newStateMessage(device string, ev ayrelink.Event, now time.Time) StateMessage {
	msg := StateMessage{
		Device:    device,
		Power:     ev.Status.Power.String(),
		Summary:   ev.Summary,
		Event:     ev.Kind.String(),
		Change:    ev.Change.String(),
		Timestamp: now.UTC(),
	}
	if ev.Status.HasVolume {
		v := ev.Status.Volume
		msg.Volume = &v
	}

	return msg
}

type AckStatus string

const (
	AckAccepted AckStatus = "accepted"
	AckFailed   AckStatus = "failed"
)

// AckMessage reports whether a command was sent to the device.
type AckMessage struct {
	ID        string    `json:"id"`
	Command   string    `json:"command"`
	Payload   string    `json:"payload"`
	Status    AckStatus `json:"status"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
