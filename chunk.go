package main

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	mmap "github.com/edsrzf/mmap-go"
	"golang.org/x/exp/slices"
)

// DefaultChunkSize is half of a GiB.
const DefaultChunkSize = 1 << 29

// Chunk is the byte range [Offset, Offset+len(Data)) of the input.
// Data always holds whole lines only.
type Chunk struct {
	Offset int64
	Data   []byte
}

// ChunkSource produces line aligned chunks on demand.
// Next returns io.EOF once all chunks were consumed.
type ChunkSource interface {
	Next() (Chunk, error)
}

// ChunkReader reads fixed size blocks from r and extends every block
// which does not end with a newline up to the next newline.
type ChunkReader struct {
	r      *bufio.Reader
	size   int
	offset int64
	done   bool
}

func NewChunkReader(r io.Reader, size int) *ChunkReader {
	return &ChunkReader{
		r:    bufio.NewReaderSize(r, readStep),
		size: size,
	}
}

const (
	readStep = 64 * 1024
	// room reserved past a full block for the rest of its last line
	lineSlack = 256
)

func (cr *ChunkReader) Next() (Chunk, error) {
	if cr.size <= 0 {
		return Chunk{}, fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidOptions, cr.size)
	}
	if cr.done {
		return Chunk{}, io.EOF
	}

	buf, err := cr.readBlock()
	if err != nil {
		return Chunk{}, err
	}
	if len(buf) == 0 {
		return Chunk{}, io.EOF
	}

	if !cr.done && buf[len(buf)-1] != endLine {
		tail, err := cr.r.ReadBytes(endLine)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				return Chunk{}, fmt.Errorf("failed to extend chunk at %d: %w", cr.offset, err)
			}
			cr.done = true
		}
		if cap(buf)-len(buf) < len(tail) {
			grown := make([]byte, len(buf), len(buf)+len(tail))
			copy(grown, buf)
			buf = grown
		}
		buf = append(buf, tail...)
	}

	// the final block is usually short, do not pin the unused capacity
	if cap(buf)-len(buf) > len(buf)/8 {
		buf = slices.Clone(buf)
	}

	chunk := Chunk{Offset: cr.offset, Data: buf}
	cr.offset += int64(len(buf))
	return chunk, nil
}

// readBlock reads up to size bytes into a buffer which grows only as far
// as the input goes. Every block gets its own buffer since it is handed
// over to a worker.
func (cr *ChunkReader) readBlock() ([]byte, error) {
	initial := cr.size
	if initial > readStep {
		initial = readStep
	} else {
		initial += lineSlack
	}
	buf := make([]byte, 0, initial)

	for len(buf) < cr.size {
		if len(buf) == cap(buf) {
			grow := min(cap(buf), cr.size-len(buf))
			if len(buf)+grow == cr.size {
				grow += lineSlack
			}
			buf = slices.Grow(buf, grow)
		}

		n, err := cr.r.Read(buf[len(buf):min(cap(buf), cr.size)])
		buf = buf[:len(buf)+n]
		if err != nil {
			if errors.Is(err, io.EOF) {
				cr.done = true
				return buf, nil
			}
			return nil, fmt.Errorf("failed to read chunk at %d: %w", cr.offset, err)
		}
	}
	return buf, nil
}

// FileChunks is a ChunkSource backed by an open file.
type FileChunks struct {
	ChunkSource
	close func() error
}

func (fc *FileChunks) Close() error {
	return fc.close()
}

// OpenChunks returns a ChunkReader over the file at path.
// Closing the result closes the file.
func OpenChunks(path string, size int) (*FileChunks, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidOptions, size)
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	fc := &FileChunks{
		ChunkSource: NewChunkReader(file, size),
		close:       file.Close,
	}
	return fc, nil
}

// MmapChunks splits data into line aligned chunks of at least size bytes
// without copying it.
type MmapChunks struct {
	data   []byte
	size   int
	offset int
}

func NewMmapChunks(data []byte, size int) *MmapChunks {
	return &MmapChunks{data: data, size: size}
}

func (mc *MmapChunks) Next() (Chunk, error) {
	if mc.size <= 0 {
		return Chunk{}, fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidOptions, mc.size)
	}
	if mc.offset >= len(mc.data) {
		return Chunk{}, io.EOF
	}

	start := mc.offset
	end := start + mc.size
	if end >= len(mc.data) {
		end = len(mc.data)
	} else if mc.data[end-1] != endLine {
		i := bytes.IndexByte(mc.data[end:], endLine)
		if i == -1 {
			end = len(mc.data)
		} else {
			end += i + 1
		}
	}
	mc.offset = end
	return Chunk{Offset: int64(start), Data: mc.data[start:end:end]}, nil
}

// OpenMmapChunks maps the file at path read only and splits it with
// MmapChunks. Closing the result unmaps and closes the file, so chunks
// must not be used after that.
func OpenMmapChunks(path string, size int) (*FileChunks, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidOptions, size)
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	fi, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	// an empty file can not be mapped
	if fi.Size() == 0 {
		fc := &FileChunks{
			ChunkSource: NewMmapChunks(nil, size),
			close:       file.Close,
		}
		return fc, nil
	}

	data, err := mmap.Map(file, mmap.RDONLY, 0)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to mmap file: %w", err)
	}

	fc := &FileChunks{
		ChunkSource: NewMmapChunks(data, size),
		close: func() error {
			uerr := data.Unmap()
			cerr := file.Close()
			if uerr != nil {
				return fmt.Errorf("failed to unmap file: %w", uerr)
			}
			return cerr
		},
	}
	return fc, nil
}
