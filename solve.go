package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"
)

var ErrInvalidOptions = errors.New("invalid options")

type Options struct {
	// ChunkSize is the number of bytes read per chunk before it is
	// extended to the next newline.
	ChunkSize int
	Workers   int
	// Mmap maps the file into memory instead of reading it.
	Mmap   bool
	Logger *slog.Logger
}

func DefaultOptions() Options {
	return Options{
		ChunkSize: DefaultChunkSize,
		Workers:   runtime.GOMAXPROCS(-1),
		Logger:    slog.Default(),
	}
}

func (o Options) Validate() error {
	if o.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidOptions, o.ChunkSize)
	}
	if o.Workers <= 0 {
		return fmt.Errorf("%w: workers must be positive, got %d", ErrInvalidOptions, o.Workers)
	}
	return nil
}

func DoWork(ctx context.Context, chunks <-chan Chunk, partials chan<- *ObservationSet) error {
	for chunk := range chunks {
		store, err := ParseChunk(chunk.Data)
		if err != nil {
			return fmt.Errorf("failed to parse chunk at %d: %w", chunk.Offset, err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case partials <- store:
		}
	}
	return nil
}

// Aggregate parses the chunks of src on workers goroutines and merges the
// results into a single ObservationSet. Only the calling goroutine touches
// the returned set. On error no set is returned.
func Aggregate(ctx context.Context, src ChunkSource, workers int, logger *slog.Logger) (*ObservationSet, error) {
	if workers <= 0 {
		return nil, fmt.Errorf("%w: workers must be positive, got %d", ErrInvalidOptions, workers)
	}
	if logger == nil {
		logger = slog.Default()
	}
	// unbuffered, so at most one chunk per worker plus the one being read
	// is alive at a time
	chunks := make(chan Chunk)
	partials := make(chan *ObservationSet)
	eg, ectx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		defer close(chunks)
		for {
			chunk, err := src.Next()
			if err != nil {
				if errors.Is(err, io.EOF) {
					return nil
				}
				return err
			}
			logger.Debug("chunk read", "offset", chunk.Offset, "size", len(chunk.Data))

			select {
			case <-ectx.Done():
				return ectx.Err()
			case chunks <- chunk:
			}
		}
	})
	for i := 0; i < workers; i++ {
		eg.Go(func() error {
			return DoWork(ectx, chunks, partials)
		})
	}

	errc := make(chan error, 1)
	go func() {
		errc <- eg.Wait()
		close(partials)
	}()

	store := NewObservationSet()
	for partial := range partials {
		store.Merge(partial)
	}
	if err := <-errc; err != nil {
		return nil, err
	}
	return store, nil
}

// Solve aggregates the file at path and reduces it into summaries.
func Solve(ctx context.Context, filename string, opts Options) (map[string]Summary, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	open := OpenChunks
	if opts.Mmap {
		open = OpenMmapChunks
	}
	src, err := open(filename, opts.ChunkSize)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	logger.Info("processing start", "file", filename, "workers", opts.Workers, "chunk_size", opts.ChunkSize)
	store, err := Aggregate(ctx, src, opts.Workers, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate: %w", err)
	}
	logger.Info("processing end", "keys", store.Len(), "values", store.Count())

	logger.Info("calculating start")
	summaries := Reduce(store)
	logger.Info("calculating end")
	return summaries, nil
}
