package ayrelink

import (
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
)

// Message is one line received from the bus, with what the interpreter
// made of it at the time. Result is Unclassified for raw captures.
type Message struct {
	Line      string
	Result    Result
	Timestamp time.Time
}

// Recorder writes a gob stream of Messages to Dest for later replay.
// It is safe for concurrent use.
type Recorder struct {
	Dest io.Writer

	// Now stamps recorded lines. Defaults to time.Now.
	Now func() time.Time

	mu  sync.Mutex
	enc *gob.Encoder
}

// Record stamps line and its classification and writes them out.
func (r *Recorder) Record(line string, result Result) error {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}

	return r.Receive(Message{Line: line, Result: result, Timestamp: now()})
}

// Receive writes msg as is.
func (r *Recorder) Receive(msg Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.enc == nil {
		r.enc = gob.NewEncoder(r.Dest)
	}

	if err := r.enc.Encode(msg); err != nil {
		return fmt.Errorf("while recording %q: %w", msg.Line, err)
	}
	return nil
}

// ReadIn decodes a recording into out, closing it when done.
func ReadIn(out chan<- Message, r io.Reader) error {
	defer close(out)

	dec := gob.NewDecoder(r)

	for {
		var msg Message
		if err := dec.Decode(&msg); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}

			return fmt.Errorf("while decoding: %w", err)
		}

		out <- msg
	}
}
