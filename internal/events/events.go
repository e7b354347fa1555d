// Package events defines the sink that pipeline stages, the outdatedness
// checker, the executor and filters report to. Sinks are passed explicitly;
// there is no global notification center.
package events

import (
	"log/slog"
	"time"
)

// Sink receives observability events. Implementations must not fail.
type Sink interface {
	StageStarted(stage string)
	StageFinished(stage string, d time.Duration, err error)
	OutdatednessRuleEvaluated(rule string, d time.Duration)
	FilterRan(filter string, rep string, d time.Duration)
	RepCompiled(rep string, fromCache bool)
	RepSuspended(rep, waitingOn, snapshot string)
	CacheWritten(rep string)
}

// Nop discards every event.
type Nop struct{}

var _ Sink = Nop{}

func (Nop) StageStarted(string)                             {}
func (Nop) StageFinished(string, time.Duration, error)      {}
func (Nop) OutdatednessRuleEvaluated(string, time.Duration) {}
func (Nop) FilterRan(string, string, time.Duration)         {}
func (Nop) RepCompiled(string, bool)                        {}
func (Nop) RepSuspended(string, string, string)             {}
func (Nop) CacheWritten(string)                             {}

// Slog logs events at debug level, stage boundaries at info.
type Slog struct{}

var _ Sink = Slog{}

func (Slog) StageStarted(stage string) {
	slog.Debug("stage started", "stage", stage)
}

func (Slog) StageFinished(stage string, d time.Duration, err error) {
	if err != nil {
		slog.Warn("stage failed", "stage", stage, "duration_ms", d.Milliseconds(), "error", err)
		return
	}
	slog.Info("stage finished", "stage", stage, "duration_ms", d.Milliseconds())
}

func (Slog) OutdatednessRuleEvaluated(rule string, d time.Duration) {
	slog.Debug("outdatedness rule evaluated", "rule", rule, "duration_us", d.Microseconds())
}

func (Slog) FilterRan(filter, rep string, d time.Duration) {
	slog.Debug("filter ran", "filter", filter, "rep", rep, "duration_ms", d.Milliseconds())
}

func (Slog) RepCompiled(rep string, fromCache bool) {
	slog.Debug("rep compiled", "rep", rep, "from_cache", fromCache)
}

func (Slog) RepSuspended(rep, waitingOn, snapshot string) {
	slog.Debug("rep suspended", "rep", rep, "waiting_on", waitingOn, "snapshot", snapshot)
}

func (Slog) CacheWritten(rep string) {
	slog.Debug("compiled content cached", "rep", rep)
}

// Multi fans events out to every sink in order.
type Multi []Sink

var _ Sink = Multi(nil)

func (m Multi) StageStarted(stage string) {
	for _, s := range m {
		s.StageStarted(stage)
	}
}

func (m Multi) StageFinished(stage string, d time.Duration, err error) {
	for _, s := range m {
		s.StageFinished(stage, d, err)
	}
}

func (m Multi) OutdatednessRuleEvaluated(rule string, d time.Duration) {
	for _, s := range m {
		s.OutdatednessRuleEvaluated(rule, d)
	}
}

func (m Multi) FilterRan(filter, rep string, d time.Duration) {
	for _, s := range m {
		s.FilterRan(filter, rep, d)
	}
}

func (m Multi) RepCompiled(rep string, fromCache bool) {
	for _, s := range m {
		s.RepCompiled(rep, fromCache)
	}
}

func (m Multi) RepSuspended(rep, waitingOn, snapshot string) {
	for _, s := range m {
		s.RepSuspended(rep, waitingOn, snapshot)
	}
}

func (m Multi) CacheWritten(rep string) {
	for _, s := range m {
		s.CacheWritten(rep)
	}
}

// OrNop returns s, or Nop when s is nil.
func OrNop(s Sink) Sink {
	if s == nil {
		return Nop{}
	}
	return s
}
