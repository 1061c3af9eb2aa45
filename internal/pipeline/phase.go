package pipeline

import (
	"fmt"
	"time"
)

// Phase numbers the steps of a run.
type Phase int

const (
	PhaseNormalize Phase = iota + 1
	PhaseLayout
	PhaseSemantic
)

var phaseNames = map[Phase]string{
	PhaseNormalize: "normalization",
	PhaseLayout:    "layout_ocr",
	PhaseSemantic:  "semantic",
}

func (p Phase) String() string {
	if n, ok := phaseNames[p]; ok {
		return n
	}
	return fmt.Sprintf("phase%d", int(p))
}

// TimingKey is the key of the phase duration in Result.Timing.
func (p Phase) TimingKey() string { return fmt.Sprintf("phase%d_%s_s", int(p), p) }

// PhaseObserver is told when each phase starts and ends. Calls come from
// the goroutine running the pipeline.
type PhaseObserver interface {
	PhaseStarted(p Phase)
	PhaseFinished(p Phase, d time.Duration, err error)
}

// NoOpObserver ignores every event.
type NoOpObserver struct{}

func (NoOpObserver) PhaseStarted(Phase)                        {}
func (NoOpObserver) PhaseFinished(Phase, time.Duration, error) {}
