package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/nagarikta/internal/semantic"
	"github.com/MeKo-Tech/nagarikta/internal/testutil"
	"github.com/MeKo-Tech/nagarikta/internal/utils"
)

type countingProgress struct {
	mu       sync.Mutex
	started  int
	progress []int
	errors   []int
	complete bool
}

func (c *countingProgress) OnStart(total int) { c.started = total }

func (c *countingProgress) OnProgress(current, _ int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.progress = append(c.progress, current)
}

func (c *countingProgress) OnComplete() { c.complete = true }

func (c *countingProgress) OnError(i int, _ error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errors = append(c.errors, i)
}

func TestRunBatch_Ordered(t *testing.T) {
	p := newPipeline(t, &testutil.Recognizer{Out: frontSide()})
	dir := t.TempDir()
	var paths []string
	for i := range 5 {
		path := filepath.Join(dir, fmt.Sprintf("card%d.png", i))
		if i == 2 {
			path = filepath.Join(dir, "missing.png")
		} else {
			require.NoError(t, utils.SavePNG(path, blank()))
		}
		paths = append(paths, path)
	}

	prog := &countingProgress{}
	items, err := p.RunBatch(context.Background(), paths, ParallelConfig{MaxWorkers: 3, Progress: prog})
	require.NoError(t, err)
	require.Len(t, items, len(paths))
	for i, it := range items {
		assert.Equal(t, paths[i], it.Path)
		require.NotNil(t, it.Result)
		if i == 2 {
			assert.False(t, it.Result.Success)
			continue
		}
		assert.True(t, it.Result.Success, it.Result.Error)
		assert.Equal(t, "SRISTI BHATTARAI", it.Result.Field(semantic.FieldFullName))
	}
	assert.Equal(t, 5, prog.started)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, prog.progress)
	assert.Equal(t, []int{2}, prog.errors)
	assert.True(t, prog.complete)
}

func TestRunBatch_Errors(t *testing.T) {
	p := newPipeline(t, &testutil.Recognizer{Out: frontSide()})
	_, err := p.RunBatch(context.Background(), nil, DefaultParallelConfig())
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.RunBatch(ctx, []string{"a.png", "b.png"}, ParallelConfig{MaxWorkers: 2})
	assert.ErrorIs(t, err, context.Canceled)
}
