// Package zaplog exports opencensus views as structured log entries.
package zaplog

import (
	"go.opencensus.io/stats/view"
	"go.uber.org/zap"
)

var _ view.Exporter = &Exporter{}

// Exporter writes every exported view to a zap logger, at debug level
type Exporter struct {
	l *zap.Logger
}

// NewExporter builds an exporter logging to l. A nil logger discards views.
func NewExporter(l *zap.Logger) *Exporter {
	if l == nil {
		l = zap.NewNop()
	}
	return &Exporter{l: l}
}

// ExportView logs the rows of a view
func (e *Exporter) ExportView(data *view.Data) {
	if data == nil || data.View == nil {
		return
	}
	for _, row := range data.Rows {
		fields := make([]zap.Field, 0, len(row.Tags)+3)
		fields = append(fields,
			zap.String("view", data.View.Name),
			zap.Time("end", data.End),
			zap.Any("data", row.Data),
		)
		for _, t := range row.Tags {
			fields = append(fields, zap.String(t.Key.Name(), t.Value))
		}
		e.l.Debug("metrics", fields...)
	}
}
