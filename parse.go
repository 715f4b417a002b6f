package main

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"unicode/utf8"
)

const (
	valueSep = ';'
	endLine  = '\n'
)

var (
	ErrSeparatorNotFound = errors.New("separator not found")
	ErrInvalidValue      = errors.New("invalid value")
	ErrInvalidUTF8       = errors.New("invalid utf-8")
)

type Item struct {
	name  []byte
	value float64
}

func ParseLine(line []byte) (out Item, err error) {
	sep := bytes.IndexByte(line, valueSep)
	if sep == -1 {
		return out, ErrSeparatorNotFound
	}

	out.name = line[:sep]
	raw := bytes.TrimSpace(line[sep+1:])
	out.value, err = strconv.ParseFloat(string(raw), 64)
	if err != nil {
		return out, fmt.Errorf("%w %q: %w", ErrInvalidValue, raw, err)
	}
	return out, nil
}

// LineError reports the line of a chunk which could not be parsed.
// Line is 1-based and relative to the chunk.
type LineError struct {
	Line int
	Text string
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("failed to parse line %d %q: %v", e.Line, e.Text, e.Err)
}

func (e *LineError) Unwrap() error {
	return e.Err
}

// ParseChunk folds every line of data into a new ObservationSet.
// Lines without a separator are skipped, any other malformed line fails
// the whole chunk.
func ParseChunk(data []byte) (*ObservationSet, error) {
	if !utf8.Valid(data) {
		return nil, ErrInvalidUTF8
	}

	store := NewObservationSet()
	for n := 1; len(data) > 0; n++ {
		var line []byte
		if le := bytes.IndexByte(data, endLine); le == -1 {
			line, data = data, nil
		} else {
			line, data = data[:le], data[le+1:]
		}
		line = bytes.TrimSuffix(line, []byte{'\r'})

		item, err := ParseLine(line)
		if err != nil {
			if errors.Is(err, ErrSeparatorNotFound) {
				continue
			}
			return nil, &LineError{Line: n, Text: string(line), Err: err}
		}
		store.Add(string(item.name), item.value)
	}
	return store, nil
}
