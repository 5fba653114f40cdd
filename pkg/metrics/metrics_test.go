package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opencensus.io/stats/view"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func fixtureRequires(t testing.TB, m *exampleMetrics) {
	require.NotNil(t, m.Telemetry.SnapshotCount)
	require.NotNil(t, m.Volumetry.Blobs.FileCount)
	require.NotNil(t, m.Repository.Reads.Count)
}

func exerciseAPI(m *exampleMetrics) {
	Inc(m.Telemetry.SnapshotCount)
	Inc(m.Volumetry.Blobs.FileCount)
	Int64(m.Repository.Reads.Count, 10)
}

func TestMetrics(t *testing.T) {
	Init(WithExporter(DefaultExporter(zap.NewNop())))

	testMetrics := &exampleMetrics{}
	_ = EnsureMetrics("example", testMetrics)

	fixtureRequires(t, testMetrics)
	exerciseAPI(testMetrics)
	Flush()
}

func TestRegister(t *testing.T) {
	testMetrics := &exampleMetrics{}

	// lazy registration
	x := EnsureMetrics("registerExample", testMetrics)
	fixtureRequires(t, testMetrics)
	exerciseAPI(testMetrics)

	// registered once
	y := EnsureMetrics("registerExample", &exampleMetrics{})
	require.Equal(t, x, y)

	assert.Panics(t, func() { _ = EnsureMetrics("registerExample", &struct{ Other IOMetrics }{}) })
}

func TestEnable(t *testing.T) {
	var e Enable
	assert.False(t, e.MetricsEnabled())
	e.EnableMetrics(true)
	assert.True(t, e.MetricsEnabled())

	m := e.EnsureMetrics("enableExample", &exampleMetrics{}).(*exampleMetrics)
	fixtureRequires(t, m)
}

func TestModules(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	s := newSettings(
		WithBasePath("root"),
		WithExporter(DefaultExporter(zap.New(core))),
	)
	testMetrics := &exampleMetrics{}
	_ = s.EnsureMetrics("moduleTesting", testMetrics)

	require.Len(t, s.modules, 1)
	assert.Len(t, s.allMetrics, 8)
	assert.Len(t, s.allViews, 11)
	fixtureRequires(t, testMetrics)

	saved := mp
	mp = s
	defer func() { mp = saved }()

	t0 := time.Now()
	testMetrics.IncSnapshot()

	reads := &testMetrics.Repository.Reads
	reads.IO(time.Now(), "read")
	reads.Size(100, "write")
	reads.Failed("delete")
	reads.Throughput(t0, time.Now().Add(time.Millisecond), 100, "read")
	reads.Throughput(t0, t0, 100, "nop")
	reads.Throughput(t0, t0, 0, "nop")

	reads.IORecord(t0, "nop")(0, nil)
	reads.IORecord(t0, "read")(100, nil)
	reads.IORecord(t0, "error")(0, fmt.Errorf("failure"))
	reads.IORecord(t0, "commit")(100, nil)

	testMetrics.Volumetry.Blobs.Inc("read")
	testMetrics.Volumetry.Blobs.Size(100, "write")
	testMetrics.Volumetry.Blobs.Size(0, "download")

	s.Flush()
	assert.NotZero(t, logs.FilterMessage("metrics").Len())
}

func TestUsage(t *testing.T) {
	Init()
	u := &struct {
		Usage UsageMetrics `group:"usage" description:""`
	}{}
	_ = EnsureMetrics("usageExample", u)
	require.NotNil(t, u.Usage.Count)

	t0 := time.Now()
	u.Usage.Inc("Stat")
	u.Usage.Used(t0, "Stat")
	u.Usage.UsedAll(t0, "Stat")(nil)
	u.Usage.UsedAll(t0, "Stat")(fmt.Errorf("failure"))

	rows, err := view.RetrieveData("usageExample/usage/usageFailures")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(1), rows[0].Data.(*view.CountData).Value)
}
