package stream

import (
	"fmt"

	"github.com/praveenmunagapati/eacirc/internal/genome"
)

// Dataset is an immutable sample buffer. Any number of goroutines may read
// it, each through its own Reader.
type Dataset struct {
	data []byte
}

// Build fills a dataset of size bytes by concatenating successive buffers
// of src. The last buffer is truncated when size is not a multiple of the
// stream's output size.
func Build(src Stream, size int) (*Dataset, error) {
	if size <= 0 {
		return nil, genome.Misconfigured("dataset size must be > 0, got %d", size)
	}
	data := make([]byte, 0, size)
	for len(data) < size {
		chunk, err := src.Next()
		if err != nil {
			return nil, fmt.Errorf("build dataset: %w", err)
		}
		if len(chunk) == 0 {
			return nil, fmt.Errorf("build dataset: %w: source returned an empty buffer", ErrEndOfStream)
		}
		n := min(len(chunk), size-len(data))
		data = append(data, chunk[:n]...)
	}
	return &Dataset{data: data}, nil
}

func (d *Dataset) Len() int {
	return len(d.data)
}

// Bytes returns a copy of the dataset contents.
func (d *Dataset) Bytes() []byte {
	return append([]byte(nil), d.data...)
}

// Reader replays the dataset in osize chunks and then reports
// ErrEndOfStream.
func (d *Dataset) Reader(osize int) (Stream, error) {
	if osize <= 0 {
		return nil, genome.Misconfigured("reader output size must be > 0, got %d", osize)
	}
	return &datasetReader{data: d.data, out: make([]byte, osize)}, nil
}

type datasetReader struct {
	data []byte
	pos  int
	out  []byte
}

func (r *datasetReader) OutputSize() int { return len(r.out) }

func (r *datasetReader) Next() ([]byte, error) {
	if len(r.data)-r.pos < len(r.out) {
		return nil, fmt.Errorf("%w: dataset has %d bytes left, need %d", ErrEndOfStream, len(r.data)-r.pos, len(r.out))
	}
	copy(r.out, r.data[r.pos:])
	r.pos += len(r.out)
	return r.out, nil
}
