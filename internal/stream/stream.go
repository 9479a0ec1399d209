// Package stream produces the byte samples circuits are trained and scored
// on. A Stream is a stateful, non-restartable generator of fixed-size
// buffers; it must be owned by a single evaluation context.
package stream

import (
	"errors"
	"io"
)

var (
	// ErrEndOfStream is returned when a finite source has fewer bytes left
	// than one buffer.
	ErrEndOfStream = errors.New("end of stream")
	// ErrIO wraps read failures of file-backed sources.
	ErrIO = errors.New("stream i/o error")
)

// Stream yields buffers of OutputSize bytes. The slice returned by Next is
// owned by the stream and only valid until the following call.
type Stream interface {
	OutputSize() int
	Next() ([]byte, error)
}

// Close releases the stream's resources when it holds any.
func Close(s Stream) error {
	if closer, ok := s.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
