package metrics

import (
	"context"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/docker/go-units"
	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/tag"
	"go.uber.org/zap"

	"github.com/oneconcern/gitfs/pkg/metrics/exporters/zaplog"
)

const (
	// KB stands for kilo bytes (1024 bytes)
	KB = units.KiB

	// MB stands for mega bytes (1024 kilo bytes)
	MB = units.MiB

	// GB stands for giga bytes (1024 mega bytes)
	GB = units.GiB

	unitCount    = "count"
	unitSumBytes = "sumbytes"
	unitBps      = "bps"
)

var (
	// global settings for metrics
	mp       *settings
	initOnce sync.Once
)

type settings struct {
	basePath  string
	contexter func() context.Context
	exporter  view.Exporter

	allMetrics []stats.Measure
	allViews   []*view.View

	// registered metrics trees, by location
	modules   map[string]interface{}
	exclusive sync.Mutex

	d time.Duration
}

// DefaultExporter logs views with l
func DefaultExporter(l *zap.Logger) view.Exporter {
	return flusher(zaplog.NewExporter(l))
}

func newSettings(opts ...Option) *settings {
	s := &settings{
		modules:   make(map[string]interface{}),
		contexter: context.Background,
	}
	for _, apply := range opts {
		apply(s)
	}
	if s.exporter == nil {
		s.exporter = DefaultExporter(zap.NewNop())
	}

	s.RegisterExporter()
	return s
}

func (s *settings) EnsureMetrics(location string, m interface{}) interface{} {
	s.exclusive.Lock()
	defer s.exclusive.Unlock()
	location = path.Join(s.basePath, location)

	if existing, ok := s.modules[location]; ok {
		if !equalType(existing, m) {
			panic("metrics already registered at " + location + " with a different type")
		}
		return existing
	}
	scanStruct(location, s.addMetric, m)
	s.modules[location] = m
	return m
}

// Flush exports the current data of all registered views
func (s *settings) Flush() {
	now := time.Now()
	for _, v := range s.allViews {
		rows, err := view.RetrieveData(v.Name)
		if err != nil {
			continue
		}
		s.exporter.ExportView(&view.Data{View: v, Start: now, End: now, Rows: rows})
	}
}

// RegisterExporter registers the exporter to opencensus
func (s *settings) RegisterExporter() {
	if s.exporter == nil {
		return
	}
	view.RegisterExporter(s.exporter)
	if s.d >= time.Second {
		view.SetReportingPeriod(s.d)
	}
}

// addMetric creates a measure and its views from the decoded struct tags.
//
// The default view depends on the unit:
//   - "count" or no unit: count
//   - "bytes": distribution of sizes
//   - "sumbytes": sum of sizes
//   - "milliseconds": distribution of durations
//   - "bps", "bytespersec": distribution of throughputs
//
// Extra views are declared with a tag such as extraviews:"sum,lastvalue,count".
func (s *settings) addMetric(m interface{}, metric, group string, tags map[string]string) interface{} {
	name := path.Join(group, metric)
	description := tags["description"]
	if description == "" {
		description = describeFromTags(name, tags)
	}
	unit, dist := unitAndDist(tags["unit"])

	measure := newMeasure(m, name, description, unit)
	if measure == nil {
		return nil
	}
	s.allMetrics = append(s.allMetrics, measure)
	keys := tagKeys(tags["groupings"])

	s.addView(&view.View{
		Name:        name,
		Description: describeViewFromDist(description, dist),
		Measure:     measure,
		Aggregation: dist,
		TagKeys:     keys,
	})

	for _, extra := range strings.Split(tags["views"], ",") {
		agg := extraAggregation(extra)
		if agg == nil {
			continue
		}
		s.addView(&view.View{
			Name:        describeViewFromDist(name, agg),
			Description: describeViewFromDist(description, agg),
			Measure:     measure,
			Aggregation: agg,
			TagKeys:     keys,
		})
	}
	return measure
}

func (s *settings) addView(v *view.View) {
	s.allViews = append(s.allViews, v)
	_ = view.Register(v)
}

func newMeasure(m interface{}, name, description, unit string) stats.Measure {
	switch m.(type) {
	case *stats.Int64Measure:
		return stats.Int64(name, description, unit)
	case *stats.Float64Measure:
		return stats.Float64(name, description, unit)
	default:
		return nil
	}
}

func tagKeys(groupings string) []tag.Key {
	keys := make([]tag.Key, 0, 2)
	for _, g := range strings.Split(groupings, ",") {
		if g != "" {
			keys = append(keys, tag.MustNewKey(g))
		}
	}
	return keys
}

func extraAggregation(extra string) *view.Aggregation {
	switch extra {
	case unitCount:
		return view.Count()
	case "sum":
		return view.Sum()
	case "lastvalue":
		return view.LastValue()
	default:
		return nil
	}
}

func durationDistribution() *view.Aggregation {
	// milliseconds
	return view.Distribution(
		1, 5, 10, 25, 50,
		100, 250, 500, 750,
		1000, 2500, 5000, 7500,
		10000, 30000, 60000,
	)
}

func bytesDistribution() *view.Aggregation {
	// most blobs are source files: buckets are thinner for small sizes
	return view.Distribution(
		128, 512,
		1*KB, 4*KB, 16*KB, 64*KB,
		256*KB, 1*MB, 4*MB, 16*MB,
		64*MB, 256*MB, 1*GB,
	)
}

func throughputDistribution() *view.Aggregation {
	return view.Distribution(
		1*KB, 10*KB, 100*KB,
		1*MB, 5*MB, 10*MB, 50*MB,
		100*MB, 500*MB,
	)
}

func unitAndDist(unit string) (string, *view.Aggregation) {
	switch unit {
	case "milliseconds":
		return stats.UnitMilliseconds, durationDistribution()
	case "bytes":
		return stats.UnitBytes, bytesDistribution()
	case unitSumBytes:
		return stats.UnitBytes, view.Sum()
	case "bytespersec", unitBps:
		return unitBps, throughputDistribution()
	default:
		return stats.UnitDimensionless, view.Count()
	}
}

func describeFromTags(name string, tags map[string]string) string {
	switch unit := tags["unit"]; unit {
	case unitSumBytes:
		return name + " cumulated bytes"
	case "", unitCount:
		return name + " counter"
	default:
		return name + " in " + unit
	}
}

func describeViewFromDist(desc string, in *view.Aggregation) string {
	if in == nil {
		return desc
	}
	switch in.Type {
	case view.AggTypeCount:
		return desc + " [count]"
	case view.AggTypeSum:
		return desc + " [cumulated]"
	case view.AggTypeDistribution:
		return desc + " [distribution]"
	case view.AggTypeLastValue:
		return desc + " [last]"
	default:
		return desc
	}
}

// FlushExporter is a view exporter that may be flushed on demand,
// concurrently with the opencensus background worker.
type FlushExporter interface {
	view.Exporter
	Flush(*view.Data)
}

func flusher(e view.Exporter) FlushExporter {
	if f, ok := e.(FlushExporter); ok {
		return f
	}
	return &simpleFlusher{e: e}
}

type simpleFlusher struct {
	e view.Exporter
	m sync.RWMutex
}

func (f *simpleFlusher) ExportView(data *view.Data) {
	f.m.RLock()
	f.e.ExportView(data)
	f.m.RUnlock()
}

func (f *simpleFlusher) Flush(data *view.Data) {
	f.m.Lock()
	f.e.ExportView(data)
	f.m.Unlock()
}
