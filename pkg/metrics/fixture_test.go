package metrics

import "go.opencensus.io/stats"

type exampleMetrics struct {
	Telemetry struct {
		Ignored       []FilesMetrics        `group:"ignored" description:""`
		IgnoredToo    []*stats.Int64Measure `group:"ignoredToo" description:""`
		SnapshotCount *stats.Int64Measure   `metric:"snapshotCount" description:"number of resolved snapshots"`
	} `group:"telemetry" description:""`
	Volumetry struct {
		Blobs FilesMetrics `group:"blobs" description:""`
	} `group:"volumetry" description:""`
	Repository struct {
		Reads IOMetrics
	} `group:"repository" description:""`
}

func (e *exampleMetrics) IncSnapshot() {
	Inc(e.Telemetry.SnapshotCount, map[string]string{"kind": "snapshot"})
}
