package kura

import (
	"fmt"
	"runtime/debug"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// JobOption tunes one parallel job.
type JobOption func(*jobConfig)

type jobConfig struct {
	chunkSize   int
	concurrency int
}

// ChunkSize sets the number of rows each chunk of a job covers.
func ChunkSize(n int) JobOption {
	return func(c *jobConfig) {
		c.chunkSize = n
	}
}

// Parallelism bounds the number of chunks running at once.
func Parallelism(n int) JobOption {
	return func(c *jobConfig) {
		c.concurrency = n
	}
}

// workItem is one table (and column combination) of a job.
type workItem struct {
	run  func(lo, hi int)
	rows int
}

// dispatch splits items into chunks and runs them on at most concurrency
// goroutines. It returns once every chunk has finished, with the first
// failure if any. A panicking chunk fails with ErrJobPanic and does not stop
// the others.
func (w *World) dispatch(items []workItem, opts []JobOption) error {
	cfg := jobConfig{chunkSize: w.cfg.ChunkSize, concurrency: w.cfg.Concurrency}
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.concurrency = max(cfg.concurrency, 1)

	total := 0
	for _, it := range items {
		total += it.rows
	}
	chunk := cfg.chunkSize
	if chunk <= 0 {
		chunk = max(1, total/cfg.concurrency)
	}

	var g errgroup.Group
	g.SetLimit(cfg.concurrency)
	chunks := 0
	for _, it := range items {
		for lo := 0; lo < it.rows; lo += chunk {
			hi := min(lo+chunk, it.rows)
			run := it.run
			chunks++
			g.Go(func() (err error) {
				defer func() {
					if r := recover(); r != nil {
						err = &Error{Op: "job", Err: fmt.Errorf("%w: %v\n%s", ErrJobPanic, r, debug.Stack())}
					}
				}()
				run(lo, hi)
				return nil
			})
		}
	}
	err := g.Wait()

	w.stats.jobs.Add(1)
	w.stats.chunks.Add(uint64(chunks))
	w.logger.Debug("job finished",
		zap.Int("rows", total), zap.Int("chunk_size", chunk), zap.Int("chunks", chunks))
	if err != nil {
		w.logger.Warn("job failed", zap.Error(err))
	}
	return err
}
