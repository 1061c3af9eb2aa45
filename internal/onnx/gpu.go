package onnx

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/yalue/onnxruntime_go"
)

// GPUConfig selects CUDA execution for a session.
type GPUConfig struct {
	UseGPU              bool   `mapstructure:"use_gpu" yaml:"use_gpu" json:"use_gpu"`
	DeviceID            int    `mapstructure:"device_id" yaml:"device_id" json:"device_id"`
	MemLimitBytes       uint64 `mapstructure:"mem_limit_bytes" yaml:"mem_limit_bytes" json:"mem_limit_bytes"`
	ArenaExtendStrategy string `mapstructure:"arena_extend_strategy" yaml:"arena_extend_strategy" json:"arena_extend_strategy"`
	ConvAlgoSearch      string `mapstructure:"conv_algo_search" yaml:"conv_algo_search" json:"conv_algo_search"`
}

// DefaultGPUConfig returns a CPU-only configuration with CUDA defaults
// filled in for when GPU use is switched on.
func DefaultGPUConfig() GPUConfig {
	return GPUConfig{
		ArenaExtendStrategy: "kNextPowerOfTwo",
		ConvAlgoSearch:      "DEFAULT",
	}
}

var (
	arenaStrategies = map[string]bool{"kNextPowerOfTwo": true, "kSameAsRequested": true}
	convAlgoModes   = map[string]bool{"EXHAUSTIVE": true, "HEURISTIC": true, "DEFAULT": true}
)

// Validate checks the CUDA options. A CPU configuration is always valid.
func (c GPUConfig) Validate() error {
	if !c.UseGPU {
		return nil
	}
	if c.DeviceID < 0 {
		return fmt.Errorf("device ID must be non-negative, got %d", c.DeviceID)
	}
	if c.ArenaExtendStrategy != "" && !arenaStrategies[c.ArenaExtendStrategy] {
		return fmt.Errorf("invalid arena extend strategy %q", c.ArenaExtendStrategy)
	}
	if c.ConvAlgoSearch != "" && !convAlgoModes[c.ConvAlgoSearch] {
		return fmt.Errorf("invalid conv algo search %q", c.ConvAlgoSearch)
	}
	return nil
}

// providerSettings renders the CUDA provider option map.
func (c GPUConfig) providerSettings() map[string]string {
	s := map[string]string{
		"device_id":                 strconv.Itoa(c.DeviceID),
		"do_copy_in_default_stream": "1",
	}
	if c.MemLimitBytes > 0 {
		s["gpu_mem_limit"] = strconv.FormatUint(c.MemLimitBytes, 10)
	}
	if c.ArenaExtendStrategy != "" {
		s["arena_extend_strategy"] = c.ArenaExtendStrategy
	}
	if c.ConvAlgoSearch != "" {
		s["cudnn_conv_algo_search"] = c.ConvAlgoSearch
	}
	return s
}

// configureGPU appends the CUDA execution provider to opts when GPU use is
// requested.
func configureGPU(opts *onnxruntime_go.SessionOptions, c GPUConfig) error {
	if !c.UseGPU {
		return nil
	}
	cuda, err := onnxruntime_go.NewCUDAProviderOptions()
	if err != nil {
		return fmt.Errorf("create CUDA provider options: %w", err)
	}
	defer func() {
		if err := cuda.Destroy(); err != nil {
			slog.Warn("destroy CUDA provider options", "error", err)
		}
	}()
	if err := cuda.Update(c.providerSettings()); err != nil {
		return fmt.Errorf("update CUDA provider options: %w", err)
	}
	if err := opts.AppendExecutionProviderCUDA(cuda); err != nil {
		return fmt.Errorf("append CUDA execution provider: %w", err)
	}
	return nil
}
