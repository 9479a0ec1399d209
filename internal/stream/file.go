package stream

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
)

type fileStream struct {
	path string
	file *os.File
	r    *bufio.Reader
	data []byte
}

// OpenFile streams a file sequentially in osize chunks. Close it when done.
func OpenFile(path string, osize int) (Stream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrIO, path, err)
	}
	return &fileStream{path: path, file: f, r: bufio.NewReader(f), data: make([]byte, osize)}, nil
}

func (s *fileStream) OutputSize() int { return len(s.data) }

func (s *fileStream) Next() ([]byte, error) {
	if _, err := io.ReadFull(s.r, s.data); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: %s has fewer than %d bytes left", ErrEndOfStream, s.path, len(s.data))
		}
		return nil, fmt.Errorf("%w: read %s: %v", ErrIO, s.path, err)
	}
	return s.data, nil
}

func (s *fileStream) Close() error {
	return s.file.Close()
}
