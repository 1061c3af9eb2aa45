// Package support holds the scenario state and step definitions of the
// extraction feature suite.
package support

import (
	"fmt"
	"image"

	"github.com/MeKo-Tech/nagarikta/internal/kyc"
	"github.com/MeKo-Tech/nagarikta/internal/ocrengine"
	"github.com/MeKo-Tech/nagarikta/internal/pipeline"
	"github.com/MeKo-Tech/nagarikta/internal/testutil"
)

// TestContext holds the state of one scenario. The OCR engine is scripted:
// it replays the detections the scenario wrote down.
type TestContext struct {
	Engine *testutil.Recognizer
	Photo  image.Image
	Result *pipeline.Result
	Claims kyc.Claims
	Checks kyc.Checks

	pipeline *pipeline.Pipeline
}

// NewTestContext creates an empty scenario state.
func NewTestContext() *TestContext {
	return &TestContext{Engine: &testutil.Recognizer{Out: ocrengine.Output{Engine: ocrengine.EnginePaddle}}}
}

// Pipeline builds the pipeline on first use, wired to the scripted engine.
func (testCtx *TestContext) Pipeline() (*pipeline.Pipeline, error) {
	if testCtx.pipeline != nil {
		return testCtx.pipeline, nil
	}
	cfg := pipeline.DefaultConfig()
	cfg.Layout.SkipEnhance = true
	p, err := pipeline.New(cfg, pipeline.WithRecognizer(testCtx.Engine))
	if err != nil {
		return nil, fmt.Errorf("create pipeline: %w", err)
	}
	testCtx.pipeline = p
	return p, nil
}

// Cleanup releases the pipeline.
func (testCtx *TestContext) Cleanup() error {
	if testCtx.pipeline == nil {
		return nil
	}
	err := testCtx.pipeline.Close()
	testCtx.pipeline = nil
	return err
}
