// Package mempool recycles the large scratch buffers of OCR inference:
// normalized image tensors and binarized probability maps.
package mempool

import "sync"

const classStep = 1024

// sizeClass rounds n up to a multiple of 1024, with 1024 as the minimum.
func sizeClass(n int) int {
	if n <= classStep {
		return classStep
	}
	return (n + classStep - 1) / classStep * classStep
}

type pool[T any] struct {
	classes sync.Map // size class -> *sync.Pool of []T
}

func (p *pool[T]) class(cls int) *sync.Pool {
	v, _ := p.classes.LoadOrStore(cls, &sync.Pool{New: func() any { return make([]T, cls) }})
	return v.(*sync.Pool)
}

func (p *pool[T]) get(n int) []T {
	cls := sizeClass(n)
	buf, ok := p.class(cls).Get().([]T)
	if !ok || cap(buf) < cls {
		buf = make([]T, cls)
	}
	return buf[:n]
}

func (p *pool[T]) put(buf []T) {
	if buf == nil {
		return
	}
	// Buffers are filed under the class their capacity fills completely.
	cls := cap(buf) / classStep * classStep
	if cls < classStep {
		return
	}
	p.class(cls).Put(buf[:cap(buf)]) //nolint:staticcheck // slices are reused by value
}

var (
	float32s pool[float32]
	bools    pool[bool]
)

// GetFloat32 returns a buffer of length n. Contents are unspecified.
// Return it with PutFloat32.
func GetFloat32(n int) []float32 { return float32s.get(n) }

// PutFloat32 recycles a buffer obtained from GetFloat32. Nil is ignored.
func PutFloat32(buf []float32) { float32s.put(buf) }

// GetBool returns a zeroed buffer of length n. Return it with PutBool.
func GetBool(n int) []bool {
	buf := bools.get(n)
	clear(buf)
	return buf
}

// PutBool recycles a buffer obtained from GetBool. Nil is ignored.
func PutBool(buf []bool) { bools.put(buf) }
