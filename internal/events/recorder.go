package events

import (
	"fmt"
	"sync"
	"time"
)

// Recorder keeps every event as a line of text, without durations.
// Tests and the scenario harness compare these traces.
type Recorder struct {
	mu     sync.Mutex
	events []string
}

var _ Sink = (*Recorder)(nil)

func (r *Recorder) add(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, fmt.Sprintf(format, args...))
}

// Events returns a copy of the recorded lines.
func (r *Recorder) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

// Count returns how many lines have the given prefix.
func (r *Recorder) Count(prefix string) int {
	n := 0
	for _, e := range r.Events() {
		if len(e) >= len(prefix) && e[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}

func (r *Recorder) StageStarted(stage string) { r.add("stage_started %s", stage) }

func (r *Recorder) StageFinished(stage string, _ time.Duration, err error) {
	if err != nil {
		r.add("stage_failed %s", stage)
		return
	}
	r.add("stage_finished %s", stage)
}

// OutdatednessRuleEvaluated is not recorded; the chain runs for every object
// and would drown the trace.
func (r *Recorder) OutdatednessRuleEvaluated(string, time.Duration) {}

func (r *Recorder) FilterRan(filter, rep string, _ time.Duration) {
	r.add("filter %s %s", filter, rep)
}

func (r *Recorder) RepCompiled(rep string, fromCache bool) {
	if fromCache {
		r.add("cached %s", rep)
		return
	}
	r.add("compiled %s", rep)
}

func (r *Recorder) RepSuspended(rep, waitingOn, snapshot string) {
	r.add("suspended %s on %s@%s", rep, waitingOn, snapshot)
}

func (r *Recorder) CacheWritten(rep string) { r.add("cache_written %s", rep) }
