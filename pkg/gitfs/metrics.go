package gitfs

import (
	"time"

	"github.com/oneconcern/gitfs/pkg/metrics"
)

// M describes metrics for the gitfs package
type M struct {
	Volume struct {
		Files metrics.FilesMetrics `group:"files" description:"metrics about files written to the namespace"`
		IO    metrics.IOMetrics    `group:"io" description:"metrics about blob reads and commits"`
	} `group:"volumetry" description:""`
	Usage metrics.UsageMetrics `group:"telemetry" description:"usage stats for the gitfs package"`
}

// track records the usage of some entry point, with the error eventually returned.
//
// Usage: defer ns.track("Stat")(&err)
func (ns *Namespace) track(method string) func(*error) {
	t0 := time.Now()
	return func(err *error) {
		if ns.MetricsEnabled() {
			ns.m.Usage.UsedAll(t0, method)(*err)
		}
	}
}

func (ns *Namespace) trackIO(operation string) func(int64, error) {
	if !ns.MetricsEnabled() {
		return func(int64, error) {}
	}
	return ns.m.Volume.IO.IORecord(time.Now(), operation)
}
