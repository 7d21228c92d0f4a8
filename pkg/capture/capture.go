// Package capture provides screen frames for the screen endpoint.
package capture

import (
	"bytes"
	"context"
	"errors"
)

var (
	// ErrNoFrame is returned when a source has not produced a frame.
	ErrNoFrame = errors.New("no frame captured")
	// ErrClosed is returned by a source after Close.
	ErrClosed = errors.New("capture source closed")
)

// Source produces encoded screen frames.
type Source interface {
	// NextFrame returns the most recent JPEG frame. The returned slice must
	// not be modified.
	NextFrame(ctx context.Context) ([]byte, error)
	Close() error
}

// Factory creates a new Source. Every call returns an independent source.
type Factory func() (Source, error)

var (
	soi = []byte{0xff, 0xd8}
	eoi = []byte{0xff, 0xd9}
)

// scanJPEG is a bufio.SplitFunc yielding complete JPEG images from a
// concatenated stream. Bytes outside SOI..EOI are dropped.
func scanJPEG(data []byte, atEOF bool) (advance int, token []byte, err error) {
	start := bytes.Index(data, soi)
	if start < 0 {
		if !atEOF && len(data) > 0 && data[len(data)-1] == 0xff {
			// may be the first half of a marker
			return len(data) - 1, nil, nil
		}
		return len(data), nil, nil
	}

	end := bytes.Index(data[start+len(soi):], eoi)
	if end < 0 {
		if atEOF {
			// truncated image
			return len(data), nil, nil
		}
		return start, nil, nil
	}

	end += start + len(soi) + len(eoi)
	return end, data[start:end], nil
}
