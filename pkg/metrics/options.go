package metrics

import (
	"context"
	"time"

	"go.opencensus.io/stats/view"
)

// Option tunes the global metrics settings
type Option func(*settings)

// WithBasePath prefixes the location of every registered metrics tree
func WithBasePath(location string) Option {
	return func(s *settings) {
		s.basePath = location
	}
}

// WithContexter produces the context measurements are recorded with. Defaults to context.Background.
func WithContexter(c func() context.Context) Option {
	return func(s *settings) {
		if c == nil {
			return
		}
		s.contexter = c
	}
}

// WithExporter sets where views are exported. A nil exporter keeps the default one, which logs nothing.
func WithExporter(exporter view.Exporter) Option {
	return func(s *settings) {
		if exporter == nil {
			return
		}
		s.exporter = flusher(exporter)
	}
}

// WithReportingPeriod sets the interval between two exports by the opencensus worker.
//
// Periods shorter than a second are ignored: the opencensus default of 10s applies.
func WithReportingPeriod(d time.Duration) Option {
	return func(s *settings) {
		if d < time.Second {
			return
		}
		s.d = d
	}
}
