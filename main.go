package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime/pprof"
	"time"
)

var (
	chunkSize  = flag.Int("chunk-size", DefaultChunkSize, "bytes per chunk before extending to the next newline")
	workers    = flag.Int("workers", DefaultOptions().Workers, "number of parsing goroutines")
	useMmap    = flag.Bool("mmap", false, "mmap the input file instead of reading it")
	verbose    = flag.Bool("v", false, "log every chunk")
	cpuprofile = flag.String("cpuprofile", "", "write cpu profile to `file`")
)

func run(ctx context.Context, filename string, logger *slog.Logger) error {
	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			return fmt.Errorf("could not create CPU profile: %w", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			return fmt.Errorf("could not start CPU profile: %w", err)
		}
		defer pprof.StopCPUProfile()
	}

	opts := DefaultOptions()
	opts.ChunkSize = *chunkSize
	opts.Workers = *workers
	opts.Mmap = *useMmap
	opts.Logger = logger

	summaries, err := Solve(ctx, filename, opts)
	if err != nil {
		return err
	}
	return Print(os.Stdout, summaries)
}

func main() {
	flag.Parse()

	filename := "measurements.txt"
	if flag.NArg() > 0 {
		filename = flag.Arg(0)
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	start := time.Now()
	err := run(ctx, filename, logger)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to solve: %v\n", err)
		os.Exit(1)
	}
	logger.Info("done", "elapsed", time.Since(start))
}
