package onnx

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewImageTensor(t *testing.T) {
	ten, err := NewImageTensor(make([]float32, 3*4*5), 3, 4, 5)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3, 4, 5}, ten.Shape)
	require.NoError(t, VerifyImageTensor(ten))

	_, err = NewImageTensor(nil, 3, 4, 5)
	require.Error(t, err)
	_, err = NewImageTensor(make([]float32, 10), 3, 4, 5)
	require.Error(t, err)
}

func TestVerifyImageTensor(t *testing.T) {
	tests := []struct {
		name    string
		tensor  Tensor
		wantErr bool
	}{
		{"valid", Tensor{Data: make([]float32, 6), Shape: []int64{1, 1, 2, 3}}, false},
		{"rank 3", Tensor{Data: make([]float32, 6), Shape: []int64{1, 2, 3}}, true},
		{"zero dim", Tensor{Data: nil, Shape: []int64{1, 0, 2, 3}}, true},
		{"short data", Tensor{Data: make([]float32, 5), Shape: []int64{1, 1, 2, 3}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := VerifyImageTensor(tt.tensor)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestGPUConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultGPUConfig().Validate())

	gpu := DefaultGPUConfig()
	gpu.UseGPU = true
	assert.NoError(t, gpu.Validate())

	bad := gpu
	bad.DeviceID = -1
	assert.Error(t, bad.Validate())

	bad = gpu
	bad.ArenaExtendStrategy = "grow"
	assert.Error(t, bad.Validate())

	bad = gpu
	bad.ConvAlgoSearch = "fast"
	assert.Error(t, bad.Validate())

	cpu := GPUConfig{DeviceID: -7, ConvAlgoSearch: "nonsense"}
	assert.NoError(t, cpu.Validate(), "options are ignored without GPU")
}

func TestProviderSettings(t *testing.T) {
	c := GPUConfig{UseGPU: true, DeviceID: 2, MemLimitBytes: 1 << 30, ArenaExtendStrategy: "kSameAsRequested"}
	s := c.providerSettings()
	assert.Equal(t, "2", s["device_id"])
	assert.Equal(t, "1073741824", s["gpu_mem_limit"])
	assert.Equal(t, "kSameAsRequested", s["arena_extend_strategy"])
	assert.NotContains(t, s, "cudnn_conv_algo_search")
}

func TestLibraryName(t *testing.T) {
	for goos, want := range map[string]string{
		"linux":   "libonnxruntime.so",
		"darwin":  "libonnxruntime.dylib",
		"windows": "onnxruntime.dll",
	} {
		got, err := libraryName(goos)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := libraryName("plan9")
	assert.Error(t, err)
}

func TestLibraryPath_EnvOverride(t *testing.T) {
	lib := filepath.Join(t.TempDir(), "libonnxruntime.so")
	require.NoError(t, os.WriteFile(lib, []byte("stub"), 0o600))
	t.Setenv(EnvLibraryPath, lib)

	got, err := LibraryPath(false)
	require.NoError(t, err)
	assert.Equal(t, lib, got)
	assert.Equal(t, lib, candidateLibraryPaths(true)[0])
}

func TestNewSession_MissingModel(t *testing.T) {
	_, err := NewSession(SessionConfig{})
	require.Error(t, err)

	_, err = NewSession(SessionConfig{ModelPath: filepath.Join(t.TempDir(), "absent.onnx")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model file not found")
	assert.False(t, errors.Is(err, ErrLibraryNotFound))
}
