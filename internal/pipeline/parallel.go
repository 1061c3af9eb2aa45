package pipeline

import (
	"context"
	"errors"
	"runtime"
	"sync"
)

// ParallelConfig controls batch extraction.
type ParallelConfig struct {
	MaxWorkers int              `mapstructure:"max_workers" yaml:"max_workers" json:"max_workers"` // 0 means runtime.NumCPU()
	Progress   ProgressCallback `mapstructure:"-" yaml:"-" json:"-"`
}

// DefaultParallelConfig uses one worker per CPU.
func DefaultParallelConfig() ParallelConfig {
	return ParallelConfig{MaxWorkers: runtime.NumCPU()}
}

// BatchItem pairs an input path with its extraction result.
type BatchItem struct {
	Path   string
	Result *Result
}

type batchJob struct {
	index int
	path  string
}

type batchResult struct {
	index int
	item  BatchItem
}

// RunBatch extracts every path with a worker pool and returns the items
// in input order. Failed cards are returned with Success false. Only a
// cancelled context makes RunBatch itself fail.
func (p *Pipeline) RunBatch(ctx context.Context, paths []string, cfg ParallelConfig) ([]BatchItem, error) {
	if len(paths) == 0 {
		return nil, errors.New("no inputs provided")
	}
	workers := cfg.MaxWorkers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	workers = min(workers, len(paths))
	progress := cfg.Progress
	if progress == nil {
		progress = NoOpProgressCallback{}
	}
	progress.OnStart(len(paths))
	defer progress.OnComplete()

	jobs := make(chan batchJob)
	results := make(chan batchResult, len(paths))

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				res := p.Run(ctx, job.path)
				results <- batchResult{index: job.index, item: BatchItem{Path: job.path, Result: res}}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i, path := range paths {
			select {
			case jobs <- batchJob{index: i, path: path}:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	out := make([]BatchItem, len(paths))
	done := 0
	for r := range results {
		out[r.index] = r.item
		done++
		if !r.item.Result.Success {
			progress.OnError(r.index, errors.New(r.item.Result.Error))
		}
		progress.OnProgress(done, len(paths))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
