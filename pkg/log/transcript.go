package log

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// maxRecordedPayload bounds how much of each payload ends up in a transcript.
const maxRecordedPayload = 64

// Transcript appends one line per relayed message to a file.
// It is shared by all sessions of a process, so writes are serialized.
// A nil *Transcript records nothing.
type Transcript struct {
	mu  sync.Mutex
	w   io.WriteCloser
	now func() time.Time
}

// NewTranscript opens (creating or appending to) the transcript file at path.
func NewTranscript(path string) (*Transcript, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}

	return newTranscript(f), nil
}

func newTranscript(w io.WriteCloser) *Transcript {
	return &Transcript{w: w, now: time.Now}
}

// Record writes a line describing a message. direction is "in" or "out".
func (t *Transcript) Record(session, direction, kind string, payload []byte) error {
	if t == nil {
		return nil
	}

	shown := payload
	if len(shown) > maxRecordedPayload {
		shown = shown[:maxRecordedPayload]
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	_, err := fmt.Fprintf(t.w, "%s\t%s\t%s\t%s\t%d\t%q\n",
		t.now().UTC().Format(time.RFC3339Nano), session, direction, kind, len(payload), shown)
	if err != nil {
		return fmt.Errorf("writing transcript: %s", err)
	}
	return nil
}

// Close closes the underlying file.
func (t *Transcript) Close() error {
	if t == nil {
		return nil
	}
	return t.w.Close()
}
