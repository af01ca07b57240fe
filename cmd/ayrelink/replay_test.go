package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.tigermatt.uk/ayrelink"
)

func TestProcessMsgs(t *testing.T) {
	var rec bytes.Buffer
	r := &ayrelink.Recorder{Dest: &rec}

	ts := time.Date(2024, 3, 1, 20, 15, 0, 0, time.Local)
	for i, line := range []string{"KON", "K20", "AVU", "K21", "K21"} {
		require.NoError(t, r.Receive(ayrelink.Message{Line: line, Timestamp: ts.Add(time.Duration(i) * time.Second)}))
	}

	msgs := make(chan ayrelink.Message, 10)
	require.NoError(t, ayrelink.ReadIn(msgs, &rec))

	p, err := ayrelink.LookupProfile("KX-5", false)
	require.NoError(t, err)

	var out bytes.Buffer
	in := newReplayInterpreter(&out, ayrelink.DefaultAddress, p)
	require.NoError(t, processMsgs(&out, in, msgs))

	var got []string
	for _, l := range strings.Split(strings.TrimSpace(out.String()), "\n") {
		got = append(got, strings.TrimSpace(l))
	}

	assert.Equal(t, []string{
		"20:15:00.000: KON",
		"= updated",
		"20:15:01.000: K20",
		"* connected  Ayre KX-5 is ON with volume 20",
		"= updated",
		"20:15:02.000: AVU",
		"> KV?",
		"= volume-hint",
		"20:15:03.000: K21",
		"* status_update volume Ayre KX-5 is ON with volume 21",
		"= updated",
		"20:15:04.000: K21",
		"= unchanged",
	}, got)
}

func TestProcessMsgsFlagsDifferingResult(t *testing.T) {
	msgs := make(chan ayrelink.Message, 3)
	msgs <- ayrelink.Message{Line: "KON", Result: ayrelink.Updated}
	msgs <- ayrelink.Message{Line: "K20", Result: ayrelink.Updated}
	msgs <- ayrelink.Message{Line: "K20", Result: ayrelink.Discarded}
	close(msgs)

	p, err := ayrelink.LookupProfile("KX-R", false)
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, processMsgs(&out, newReplayInterpreter(&out, ayrelink.DefaultAddress, p), msgs))

	assert.Equal(t, 2, strings.Count(out.String(), "= updated\n"))
	assert.Contains(t, out.String(), "= unchanged (recorded discarded)\n")
}
