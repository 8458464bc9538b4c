package logger

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rileyhilliard/procmon/internal/ring"
	"github.com/sirupsen/logrus"
)

// DefaultFeedSize is how many lines the dashboard log panel keeps.
const DefaultFeedSize = 200

// storeWriteTimeout bounds a single persisted log write.
const storeWriteTimeout = 2 * time.Second

// Recorder persists log entries. The store package implements it.
type Recorder interface {
	AddLogEntry(ctx context.Context, level, source, message string, at time.Time) error
}

// StoreHook forwards log entries at or above a minimum level to a Recorder.
// Write failures are counted and swallowed: persisting a log line must never
// produce another log line or disturb the caller.
type StoreHook struct {
	recorder Recorder
	levels   []logrus.Level
	failures atomic.Int64
}

// NewStoreHook creates a hook that persists entries at min level or more severe.
func NewStoreHook(recorder Recorder, min logrus.Level) *StoreHook {
	return &StoreHook{recorder: recorder, levels: levelsAtOrAbove(min)}
}

// Levels implements logrus.Hook.
func (h *StoreHook) Levels() []logrus.Level {
	return h.levels
}

// Fire implements logrus.Hook.
func (h *StoreHook) Fire(entry *logrus.Entry) error {
	ctx, cancel := context.WithTimeout(context.Background(), storeWriteTimeout)
	defer cancel()

	err := h.recorder.AddLogEntry(ctx, strings.ToUpper(entry.Level.String()), sourceOf(entry), entry.Message, entry.Time)
	if err != nil {
		h.failures.Add(1)
	}
	return nil
}

// Failures returns how many entries could not be persisted.
func (h *StoreHook) Failures() int64 {
	return h.failures.Load()
}

// Line is one entry shown in the dashboard log panel.
type Line struct {
	Time    time.Time
	Level   string
	Source  string
	Message string
}

// String formats the line for display.
func (l Line) String() string {
	if l.Source == "" {
		return fmt.Sprintf("%s %-5s %s", l.Time.Format("15:04:05"), l.Level, l.Message)
	}
	return fmt.Sprintf("%s %-5s [%s] %s", l.Time.Format("15:04:05"), l.Level, l.Source, l.Message)
}

// Feed is a logrus hook that keeps the most recent lines in memory for the
// dashboard log panel. Lines is safe to call from the UI goroutine.
type Feed struct {
	lines  *ring.Ring[Line]
	levels []logrus.Level
}

// NewFeed creates a feed that keeps size lines at min level or more severe.
// size <= 0 uses DefaultFeedSize.
func NewFeed(size int, min logrus.Level) *Feed {
	if size <= 0 {
		size = DefaultFeedSize
	}
	return &Feed{lines: ring.New[Line](size), levels: levelsAtOrAbove(min)}
}

// Levels implements logrus.Hook.
func (f *Feed) Levels() []logrus.Level {
	return f.levels
}

// Fire implements logrus.Hook.
func (f *Feed) Fire(entry *logrus.Entry) error {
	f.lines.Push(Line{
		Time:    entry.Time,
		Level:   strings.ToUpper(entry.Level.String()),
		Source:  sourceOf(entry),
		Message: entry.Message,
	})
	return nil
}

// Lines returns the retained lines, oldest first.
func (f *Feed) Lines() []Line {
	return f.lines.Snapshot()
}

// Len returns the number of retained lines.
func (f *Feed) Len() int {
	return f.lines.Len()
}

func sourceOf(entry *logrus.Entry) string {
	if v, ok := entry.Data[SourceField]; ok {
		return fmt.Sprint(v)
	}
	return ""
}

// levelsAtOrAbove returns min and every more severe level.
// logrus orders levels from PanicLevel (0) to TraceLevel (6).
func levelsAtOrAbove(min logrus.Level) []logrus.Level {
	var levels []logrus.Level
	for _, l := range logrus.AllLevels {
		if l <= min {
			levels = append(levels, l)
		}
	}
	return levels
}
