package mempool

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSizeClass(t *testing.T) {
	tests := []struct {
		input    int
		expected int
	}{
		{-1, 1024},
		{0, 1024},
		{1, 1024},
		{1024, 1024},
		{1025, 2048},
		{1500, 2048},
		{2048, 2048},
		{10000, 10240},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, sizeClass(tt.input), "input %d", tt.input)
	}
}

func TestGetFloat32(t *testing.T) {
	buf := GetFloat32(3000)
	require.Len(t, buf, 3000)
	assert.GreaterOrEqual(t, cap(buf), 3072)
	for i := range buf {
		buf[i] = float32(i)
	}
	PutFloat32(buf)
	PutFloat32(nil)

	again := GetFloat32(10)
	assert.Len(t, again, 10)
	PutFloat32(again)
}

func TestGetBoolIsZeroed(t *testing.T) {
	buf := GetBool(500)
	for i := range buf {
		buf[i] = true
	}
	PutBool(buf)

	for range 5 {
		b := GetBool(500)
		require.Len(t, b, 500)
		for _, v := range b {
			require.False(t, v)
		}
		PutBool(b)
	}
}

func TestPutIgnoresUndersizedBuffers(t *testing.T) {
	assert.NotPanics(t, func() {
		PutFloat32(make([]float32, 10))
		PutBool(make([]bool, 3))
	})
}

func TestConcurrentUse(t *testing.T) {
	var wg sync.WaitGroup
	for g := range 8 {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for i := range 100 {
				b := GetFloat32(n*100 + i + 1)
				b[0] = 1
				PutFloat32(b)
			}
		}(g)
	}
	wg.Wait()
}
