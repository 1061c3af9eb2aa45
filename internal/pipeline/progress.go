package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

// ProgressCallback receives batch progress. OnProgress and OnError are
// called from the collecting goroutine only.
type ProgressCallback interface {
	OnStart(total int)
	OnProgress(current, total int)
	OnComplete()
	OnError(current int, err error)
}

// NoOpProgressCallback reports nothing.
type NoOpProgressCallback struct{}

func (NoOpProgressCallback) OnStart(int)         {}
func (NoOpProgressCallback) OnProgress(int, int) {}
func (NoOpProgressCallback) OnComplete()         {}
func (NoOpProgressCallback) OnError(int, error)  {}

// ConsoleProgressCallback draws a progress bar.
type ConsoleProgressCallback struct {
	mu         sync.Mutex
	w          io.Writer
	prefix     string
	width      int
	interval   time.Duration
	start      time.Time
	lastUpdate time.Time
}

// NewConsoleProgressCallback writes to w, or stderr when w is nil.
func NewConsoleProgressCallback(w io.Writer, prefix string) *ConsoleProgressCallback {
	if w == nil {
		w = os.Stderr
	}
	return &ConsoleProgressCallback{w: w, prefix: prefix, width: 40, interval: 100 * time.Millisecond}
}

func (c *ConsoleProgressCallback) OnStart(total int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.start = time.Now()
	c.lastUpdate = time.Time{}
	_, _ = fmt.Fprintf(c.w, "%s0/%d cards\n", c.prefix, total)
}

func (c *ConsoleProgressCallback) OnProgress(current, total int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	if now.Sub(c.lastUpdate) < c.interval && current < total {
		return
	}
	c.lastUpdate = now
	if total <= 0 {
		return
	}
	filled := c.width * current / total
	bar := strings.Repeat("#", filled) + strings.Repeat(".", c.width-filled)
	line := fmt.Sprintf("\r%s[%s] %d/%d", c.prefix, bar, current, total)
	if el := now.Sub(c.start); el > 0 && current > 0 {
		line += fmt.Sprintf(" %.2f cards/s", float64(current)/el.Seconds())
	}
	_, _ = fmt.Fprint(c.w, line)
}

func (c *ConsoleProgressCallback) OnComplete() {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = fmt.Fprintf(c.w, "\n%sdone in %v\n", c.prefix, time.Since(c.start).Round(time.Millisecond))
}

func (c *ConsoleProgressCallback) OnError(current int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = fmt.Fprintf(c.w, "\n%scard %d: %v\n", c.prefix, current, err)
}

// LogProgressCallback logs progress every Interval items.
type LogProgressCallback struct {
	logger   *slog.Logger
	level    slog.Level
	Interval int
	last     int
	start    time.Time
}

// NewLogProgressCallback logs through logger, or the default logger.
func NewLogProgressCallback(logger *slog.Logger, level slog.Level) *LogProgressCallback {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogProgressCallback{logger: logger, level: level, Interval: 10}
}

func (l *LogProgressCallback) OnStart(total int) {
	l.start = time.Now()
	l.last = 0
	l.logger.Log(context.Background(), l.level, "batch started", "total", total)
}

func (l *LogProgressCallback) OnProgress(current, total int) {
	if current-l.last < l.Interval && current != total {
		return
	}
	l.last = current
	l.logger.Log(context.Background(), l.level, "batch progress",
		"current", current, "total", total,
		"elapsed", time.Since(l.start).Round(time.Millisecond))
}

func (l *LogProgressCallback) OnComplete() {
	l.logger.Log(context.Background(), l.level, "batch completed",
		"elapsed", time.Since(l.start).Round(time.Millisecond))
}

func (l *LogProgressCallback) OnError(current int, err error) {
	l.logger.Error("batch item failed", "index", current, "error", err)
}

// LogObserver logs phase boundaries at debug level.
type LogObserver struct {
	Logger *slog.Logger
}

func (o LogObserver) log() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}

func (o LogObserver) PhaseStarted(p Phase) {
	o.log().Debug("phase started", "phase", p.String())
}

func (o LogObserver) PhaseFinished(p Phase, d time.Duration, err error) {
	o.log().Debug("phase finished", "phase", p.String(), "duration", d, "error", err)
}
