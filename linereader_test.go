package ayrelink

import (
	"bufio"
	"context"
	"errors"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanCR(t *testing.T) {
	sc := bufio.NewScanner(strings.NewReader("KON\rK09\r\nK12\r\r\nKOM"))
	sc.Split(ScanCR)

	var got []string
	for sc.Scan() {
		got = append(got, sc.Text())
	}
	require.NoError(t, sc.Err())

	// empty lines produce no token
	assert.Equal(t, []string{"KON", "K09", "K12", "KOM"}, got)
}

func TestLineReaderConsume(t *testing.T) {
	var got []string
	lr := &LineReader{
		Src:    iotest.OneByteReader(strings.NewReader("KON\r\rK09\r")),
		OnLine: func(line string) { got = append(got, line) },
	}

	require.NoError(t, lr.Consume(context.Background()))
	assert.Equal(t, []string{"KON", "K09"}, got)
}

func TestLineReaderDropsOverlongNoise(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{name: "noise then lines", in: strings.Repeat("x", 300) + "\rKON\rK09\r"},
		{name: "exactly one buffer", in: strings.Repeat("x", maxLine) + "\rKON\rK09\r"},
		{name: "noise between lines", in: "KON\r" + strings.Repeat("\x00", 1000) + "\rK09\r"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			lr := &LineReader{
				Src:    strings.NewReader(tt.in),
				OnLine: func(line string) { got = append(got, line) },
			}

			require.NoError(t, lr.Consume(context.Background()))
			assert.Equal(t, []string{"KON", "K09"}, got)
		})
	}
}

func TestLineReaderReportsReadError(t *testing.T) {
	boom := errors.New("boom")
	lr := &LineReader{
		Src:    iotest.ErrReader(boom),
		OnLine: func(string) {},
	}

	assert.ErrorIs(t, lr.Consume(context.Background()), boom)
}

func TestLineReaderIgnoresErrorAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	lr := &LineReader{
		Src:    iotest.ErrReader(errors.New("port closed")),
		OnLine: func(string) {},
	}

	assert.NoError(t, lr.Consume(ctx))
}
