package metrics

import (
	"time"

	"go.opencensus.io/stats"
)

// FilesMetrics counts files and their sizes
type FilesMetrics struct {
	FileCount *stats.Int64Measure `metric:"fileCount" description:"number of files" extraviews:"sum" tags:"kind,operation"`
	FileSize  *stats.Int64Measure `metric:"fileSize" unit:"bytes" description:"size of files" extraviews:"sum" tags:"kind,operation"`
}

func (f *FilesMetrics) tags(operation string) map[string]string {
	return map[string]string{"kind": "file", "operation": operation}
}

// Inc counts one file
func (f *FilesMetrics) Inc(operation string) {
	Inc(f.FileCount, f.tags(operation))
}

// Size records the size of a file
func (f *FilesMetrics) Size(size int64, operation string) {
	Int64(f.FileSize, size, f.tags(operation))
}

// IOMetrics measures IO operations
type IOMetrics struct {
	Count        *stats.Int64Measure   `metric:"ioCount" description:"number of IO requests" tags:"kind,operation"`
	Timing       *stats.Float64Measure `metric:"timing" unit:"milliseconds" description:"response time in milliseconds" tags:"kind,operation"`
	Failures     *stats.Int64Measure   `metric:"ioFailures" description:"number of failed IOs" tags:"kind,operation"`
	IOSize       *stats.Int64Measure   `metric:"ioSize" unit:"bytes" description:"IO size in bytes" extraviews:"sum" tags:"kind,operation"`
	IOThroughput *stats.Float64Measure `metric:"throughput" unit:"bytespersec" description:"throughput of a single operation in bytes per second" tags:"kind,operation"`
}

func (n *IOMetrics) tags(operation string) map[string]string {
	return map[string]string{"kind": "io", "operation": operation}
}

// IO records the duration of an operation
func (n *IOMetrics) IO(start time.Time, operation string) {
	Since(start, n.Timing, n.tags(operation))
	Inc(n.Count, n.tags(operation))
}

// Size records the size of an operation. Zero sizes are not recorded.
func (n *IOMetrics) Size(size int64, operation string) {
	if size == 0 {
		return
	}
	Int64(n.IOSize, size, n.tags(operation))
}

// Failed counts a failed operation
func (n *IOMetrics) Failed(operation string) {
	Inc(n.Failures, n.tags(operation))
}

// Throughput records the throughput of a non-empty operation, in bytes per second
func (n *IOMetrics) Throughput(start, end time.Time, size int64, operation string) {
	elapsed := end.Sub(start)
	if size == 0 || elapsed <= 0 {
		return
	}
	Float64(n.IOThroughput, float64(size)/elapsed.Seconds(), n.tags(operation))
}

// IORecord returns a function recording all metrics of an operation started at start.
//
// Example:
//
//	done := m.IORecord(time.Now(), "read")
//	n, err := io.Copy(w, blob)
//	done(n, err)
func (n *IOMetrics) IORecord(start time.Time, operation string) func(int64, error) {
	return func(size int64, err error) {
		now := time.Now()
		Duration(start, now, n.Timing, n.tags(operation))
		Inc(n.Count, n.tags(operation))
		n.Size(size, operation)
		if err != nil {
			n.Failed(operation)
			return
		}
		n.Throughput(start, now, size, operation)
	}
}

// UsageMetrics measures calls to some API
type UsageMetrics struct {
	Count    *stats.Int64Measure   `metric:"usageCount" description:"number of calls" tags:"kind,method"`
	Failures *stats.Int64Measure   `metric:"usageFailures" description:"number of failed calls" tags:"kind,method"`
	Timing   *stats.Float64Measure `metric:"timing" unit:"milliseconds" description:"duration of a call" tags:"kind,method"`
}

func (u *UsageMetrics) tags(method string) map[string]string {
	return map[string]string{"kind": "usage", "method": method}
}

// Inc counts a call, without timing
func (u *UsageMetrics) Inc(method string) {
	Inc(u.Count, u.tags(method))
}

// Used records a call started at start
func (u *UsageMetrics) Used(start time.Time, method string) {
	Since(start, u.Timing, u.tags(method))
	Inc(u.Count, u.tags(method))
}

// UsedAll returns a function recording a call started at start, with its outcome.
//
// Example:
//
//	func (ns *Namespace) Stat(p string) (e Entry, err error) {
//	  defer func(start time.Time) { ns.m.Usage.UsedAll(start, "Stat")(err) }(time.Now())
//	  ...
//	}
func (u *UsageMetrics) UsedAll(start time.Time, method string) func(error) {
	return func(err error) {
		u.Used(start, method)
		if err != nil {
			u.Failed(method)
		}
	}
}

// Failed counts a failed call
func (u *UsageMetrics) Failed(method string) {
	Inc(u.Failures, u.tags(method))
}
