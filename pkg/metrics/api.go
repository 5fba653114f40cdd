// Package metrics collects opencensus measurements, declared as struct tags on metrics trees.
package metrics

import (
	"time"

	"go.opencensus.io/stats"
	"go.opencensus.io/tag"
)

// Init global settings for metrics collection, such as the exporter and the base path of metrics.
//
// Only the first call matters. When metrics are registered before any call to Init,
// default settings apply: views are exported to a no-op logger.
func Init(opts ...Option) {
	initOnce.Do(func() {
		mp = newSettings(opts...)
	})
}

// Flush all collected metrics to the exporter
func Flush() {
	if mp == nil {
		return
	}
	mp.Flush()
}

// EnsureMetrics registers a metrics tree at some location.
//
// Registering again at the same location returns the tree registered first.
// It panics when the types of the trees differ.
func EnsureMetrics(location string, m interface{}) interface{} {
	Init()
	return mp.EnsureMetrics(location, m)
}

func record(tags []map[string]string, m stats.Measurement) {
	_ = stats.RecordWithTags(mp.contexter(), mergeTags(tags), m)
}

// Inc increments a counter
func Inc(counter *stats.Int64Measure, tags ...map[string]string) {
	record(tags, counter.M(1))
}

// Int64 records a value
func Int64(measure *stats.Int64Measure, value int64, tags ...map[string]string) {
	record(tags, measure.M(value))
}

// Float64 records a value
func Float64(measure *stats.Float64Measure, value float64, tags ...map[string]string) {
	record(tags, measure.M(value))
}

// Since records the milliseconds elapsed since start
func Since(start time.Time, measure *stats.Float64Measure, tags ...map[string]string) {
	Duration(start, time.Now(), measure, tags...)
}

// Duration records the milliseconds elapsed between start and end
func Duration(start, end time.Time, measure *stats.Float64Measure, tags ...map[string]string) {
	record(tags, measure.M(float64(end.Sub(start))/float64(time.Millisecond)))
}

func mergeTags(extras []map[string]string) []tag.Mutator {
	mutators := make([]tag.Mutator, 0, 4)
	for _, extra := range extras {
		for k, v := range extra {
			mutators = append(mutators, tag.Upsert(tag.MustNewKey(k), v))
		}
	}
	return mutators
}

// Enable equips a type with metrics collection.
//
// Sample usage:
//
//	type M struct {
//	  Volume struct {
//	    IO metrics.IOMetrics `group:"io" description:"blob reads"`
//	  } `group:"volumetry" description:""`
//	  Usage metrics.UsageMetrics `group:"telemetry" description:""`
//	}
//
//	type Namespace struct {
//	  metrics.Enable
//	  m *M
//	}
//
//	func New() *Namespace {
//	  ns := &Namespace{}
//	  ns.EnableMetrics(true)
//	  ns.m = ns.EnsureMetrics("gitfs", &M{}).(*M)
//	  return ns
//	}
type Enable struct {
	metricsEnabled bool
}

// MetricsEnabled tells whether metrics are collected
func (e Enable) MetricsEnabled() bool {
	return e.metricsEnabled
}

// EnableMetrics toggles metrics collection
func (e *Enable) EnableMetrics(enabled bool) {
	e.metricsEnabled = enabled
}

// EnsureMetrics registers a metrics tree at some location, see EnsureMetrics.
//
// NOTE: m must be a pointer to a struct.
func (e *Enable) EnsureMetrics(name string, m interface{}) interface{} {
	return EnsureMetrics(name, m)
}
