package ayrelink

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
)

// maxLine bounds a single line. Longer runs are bus noise and are dropped
// up to the next CR.
const maxLine = 256

// LineReader splits a byte stream into carriage-return terminated lines.
type LineReader struct {
	Src    io.Reader
	OnLine func(string)
}

// Consume reads until Src fails or ctx is cancelled. A read error after
// cancellation, such as the port being closed underneath us, is not
// reported.
func (r *LineReader) Consume(ctx context.Context) error {
	sc := bufio.NewScanner(r.Src)
	sc.Buffer(make([]byte, 0, maxLine), maxLine)
	sc.Split(resyncing(ScanCR))

	for sc.Scan() {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if line := sc.Text(); line != "" {
			r.OnLine(line)
		}
	}

	if err := sc.Err(); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("reading from serial port: %w", err)
	}

	return nil
}

// resyncing wraps split so that a run longer than maxLine without a
// terminator is discarded instead of failing the scanner. Whatever follows
// it up to the next terminator is discarded too.
func resyncing(split bufio.SplitFunc) bufio.SplitFunc {
	skipping := false

	return func(data []byte, atEOF bool) (int, []byte, error) {
		advance, token, err := split(data, atEOF)
		if err != nil {
			return advance, token, err
		}

		if advance == 0 && len(data) >= maxLine {
			skipping = true
			return len(data), nil, nil
		}

		if skipping && advance > 0 {
			skipping = false
			return advance, nil, nil
		}

		return advance, token, nil
	}
}

// ScanCR is a bufio.SplitFunc for CR terminated lines. Stray line feeds,
// as sent by some USB adapters, are dropped.
func ScanCR(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}

	if i := bytes.IndexByte(data, '\r'); i >= 0 {
		return i + 1, bytes.Trim(data[:i], "\n"), nil
	}

	if atEOF {
		return len(data), bytes.Trim(data, "\n"), nil
	}

	return 0, nil, nil
}
