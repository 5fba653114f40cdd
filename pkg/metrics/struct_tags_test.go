package metrics

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opencensus.io/stats"
)

func TestStructTags(t *testing.T) {
	s := newSettings()
	m := &exampleMetrics{}

	scanStruct("tags", s.addMetric, m)

	assert.Nil(t, m.Telemetry.Ignored)
	assert.Nil(t, m.Telemetry.IgnoredToo)

	assert.NotNil(t, m.Telemetry.SnapshotCount)
	assert.NotNil(t, m.Volumetry.Blobs.FileCount)
	assert.NotNil(t, m.Volumetry.Blobs.FileSize)
	assert.NotNil(t, m.Repository.Reads.Count)
	assert.NotNil(t, m.Repository.Reads.Timing)
	assert.NotNil(t, m.Repository.Reads.Failures)
	assert.NotNil(t, m.Repository.Reads.IOSize)

	require.NotNil(t, m.Repository.Reads.IOThroughput)
	assert.IsType(t, &stats.Float64Measure{}, m.Repository.Reads.IOThroughput)
	assert.Equal(t, "tags/volumetry/blobs/fileSize", m.Volumetry.Blobs.FileSize.Name())
	assert.Equal(t, "tags/repository/throughput", m.Repository.Reads.IOThroughput.Name())

	// 8 measures, 8 default views and 3 extra sum views
	assert.Len(t, s.allMetrics, 8)
	assert.Len(t, s.allViews, 11)
}

func TestScanStructRequiresPointer(t *testing.T) {
	s := newSettings()
	assert.Panics(t, func() { scanStruct("x", s.addMetric, exampleMetrics{}) })
	assert.Panics(t, func() { scanStruct("x", s.addMetric, (*exampleMetrics)(nil)) })
}

func TestFieldTags(t *testing.T) {
	field, ok := reflect.TypeOf(IOMetrics{}).FieldByName("IOSize")
	require.True(t, ok)

	tags := fieldTags(field)
	assert.Equal(t, map[string]string{
		"metric":      "ioSize",
		"unit":        "bytes",
		"description": "IO size in bytes",
		"views":       "sum",
		"groupings":   "kind,operation",
	}, tags)
}
