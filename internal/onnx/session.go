package onnx

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/yalue/onnxruntime_go"
)

// SessionConfig describes a single-input single-output model.
type SessionConfig struct {
	ModelPath  string
	NumThreads int
	GPU        GPUConfig
}

// Session runs a float32 model with one input and one output. Run is safe
// for concurrent use; Close waits for in-flight runs.
type Session struct {
	mu     sync.RWMutex
	sess   *onnxruntime_go.DynamicAdvancedSession
	input  onnxruntime_go.InputOutputInfo
	output onnxruntime_go.InputOutputInfo
	path   string
}

// NewSession initializes the environment if needed and loads the model.
func NewSession(cfg SessionConfig) (*Session, error) {
	if cfg.ModelPath == "" {
		return nil, errors.New("model path cannot be empty")
	}
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, fmt.Errorf("model file not found: %s", cfg.ModelPath)
	}
	if err := cfg.GPU.Validate(); err != nil {
		return nil, err
	}
	if err := EnsureEnvironment(cfg.GPU.UseGPU); err != nil {
		return nil, err
	}

	inputs, outputs, err := onnxruntime_go.GetInputOutputInfo(cfg.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("read model io info: %w", err)
	}
	if len(inputs) != 1 || len(outputs) != 1 {
		return nil, fmt.Errorf("expected 1 input and 1 output, got %d and %d", len(inputs), len(outputs))
	}
	if len(inputs[0].Dimensions) != 4 {
		return nil, fmt.Errorf("expected 4D input tensor, got %dD", len(inputs[0].Dimensions))
	}

	opts, err := onnxruntime_go.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("create session options: %w", err)
	}
	defer func() {
		if err := opts.Destroy(); err != nil {
			slog.Warn("destroy session options", "error", err)
		}
	}()
	if err := configureGPU(opts, cfg.GPU); err != nil {
		return nil, err
	}
	if cfg.NumThreads > 0 {
		if err := opts.SetIntraOpNumThreads(cfg.NumThreads); err != nil {
			return nil, fmt.Errorf("set thread count: %w", err)
		}
	}

	sess, err := onnxruntime_go.NewDynamicAdvancedSession(cfg.ModelPath,
		[]string{inputs[0].Name}, []string{outputs[0].Name}, opts)
	if err != nil {
		return nil, fmt.Errorf("create session for %s: %w", cfg.ModelPath, err)
	}
	slog.Debug("onnx session ready", "model", cfg.ModelPath, "input", inputs[0].Name,
		"output", outputs[0].Name, "gpu", cfg.GPU.UseGPU)
	return &Session{sess: sess, input: inputs[0], output: outputs[0], path: cfg.ModelPath}, nil
}

// InputShape returns the declared input dimensions; dynamic axes are -1.
func (s *Session) InputShape() []int64 {
	out := make([]int64, len(s.input.Dimensions))
	copy(out, s.input.Dimensions)
	return out
}

// Run feeds t to the model and returns a copy of the output data and its
// shape.
func (s *Session) Run(t Tensor) ([]float32, []int64, error) {
	if err := VerifyImageTensor(t); err != nil {
		return nil, nil, fmt.Errorf("invalid tensor: %w", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.sess == nil {
		return nil, nil, errors.New("session is closed")
	}

	in, err := onnxruntime_go.NewTensor(onnxruntime_go.NewShape(t.Shape...), t.Data)
	if err != nil {
		return nil, nil, fmt.Errorf("create input tensor: %w", err)
	}
	defer destroy(in)

	outputs := []onnxruntime_go.Value{nil}
	if err := s.sess.Run([]onnxruntime_go.Value{in}, outputs); err != nil {
		return nil, nil, fmt.Errorf("inference failed: %w", err)
	}
	defer destroy(outputs[0])

	ft, ok := outputs[0].(*onnxruntime_go.Tensor[float32])
	if !ok {
		return nil, nil, fmt.Errorf("expected float32 output, got %T", outputs[0])
	}
	data := make([]float32, len(ft.GetData()))
	copy(data, ft.GetData())
	shape := append([]int64(nil), ft.GetShape()...)
	return data, shape, nil
}

// Close releases the native session.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sess == nil {
		return nil
	}
	err := s.sess.Destroy()
	s.sess = nil
	if err != nil {
		return fmt.Errorf("destroy session %s: %w", s.path, err)
	}
	return nil
}

func destroy(v onnxruntime_go.Value) {
	if v == nil {
		return
	}
	if err := v.Destroy(); err != nil {
		slog.Warn("destroy onnx value", "error", err)
	}
}
