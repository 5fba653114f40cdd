package fuse

import (
	"github.com/oneconcern/gitfs/pkg/metrics"
)

// M describes the metrics of a mount
type M struct {
	Volume struct {
		Files metrics.FilesMetrics `group:"files" description:"files opened on a mount"`
		IO    metrics.IOMetrics    `group:"io" description:"reads served by a mount"`

		// random access copies of file contents: "copy" on a cache miss, "evict" when released
		Copies metrics.FilesMetrics `group:"copies" description:"random access copies of files"`
	} `group:"volumetry" description:""`
	Usage metrics.UsageMetrics `group:"telemetry" description:"fuse operations"`
}
