// Package metrics times the slow steps of a cv run: model fetches, renders,
// POSTs and journal writes. `cv --metrics` prints the totals on exit.
// CV_METRICS=0 turns collection off.
package metrics

import (
	"os"
	"sync/atomic"
	"time"
)

var enabled atomic.Bool

func init() {
	enabled.Store(os.Getenv("CV_METRICS") != "0")
}

// SetEnabled turns collection on or off.
func SetEnabled(on bool) {
	enabled.Store(on)
}

// TimingMetric counts the samples of one operation and keeps their total
// and maximum duration.
type TimingMetric struct {
	name  string
	count atomic.Int64
	total atomic.Int64
	max   atomic.Int64
}

func newTimingMetric(name string) *TimingMetric {
	return &TimingMetric{name: name}
}

// Record adds one sample.
func (m *TimingMetric) Record(d time.Duration) {
	if !enabled.Load() {
		return
	}
	ns := int64(d)
	m.count.Add(1)
	m.total.Add(ns)
	for {
		old := m.max.Load()
		if ns <= old || m.max.CompareAndSwap(old, ns) {
			return
		}
	}
}

// Stats is a snapshot of one metric.
type Stats struct {
	Name  string
	Count int64
	Avg   time.Duration
	Max   time.Duration
}

// Stats returns the current snapshot.
func (m *TimingMetric) Stats() Stats {
	s := Stats{Name: m.name, Count: m.count.Load(), Max: time.Duration(m.max.Load())}
	if s.Count > 0 {
		s.Avg = time.Duration(m.total.Load() / s.Count)
	}
	return s
}

func (m *TimingMetric) reset() {
	m.count.Store(0)
	m.total.Store(0)
	m.max.Store(0)
}

// Timer starts timing m; call the returned func to record the sample.
//
//	defer metrics.Timer(metrics.ModelFetch)()
func Timer(m *TimingMetric) func() {
	if !enabled.Load() || m == nil {
		return func() {}
	}
	start := time.Now()
	return func() { m.Record(time.Since(start)) }
}

var (
	ModelFetch      = newTimingMetric("model_fetch")
	ModelDecode     = newTimingMetric("model_decode")
	DiagramRender   = newTimingMetric("diagram_render")
	ChangeStatePost = newTimingMetric("change_state_post")
	MigratePost     = newTimingMetric("migrate_post")
	JournalWrite    = newTimingMetric("journal_write")
)

var all = []*TimingMetric{ModelFetch, ModelDecode, DiagramRender, ChangeStatePost, MigratePost, JournalWrite}

// ResetAll clears every metric.
func ResetAll() {
	for _, m := range all {
		m.reset()
	}
}

// AllTimingStats returns the metrics that recorded at least one sample.
func AllTimingStats() []Stats {
	var out []Stats
	for _, m := range all {
		if s := m.Stats(); s.Count > 0 {
			out = append(out, s)
		}
	}
	return out
}
