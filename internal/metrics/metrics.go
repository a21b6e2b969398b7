// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// Access guard metrics. decision: "ok", "no_token", "invalid_token", "forbidden"
	IncAuthDecision(decision string)

	// Model lifecycle metrics
	IncModelCreated()
	IncModelShared()
	IncModelUnshared()
	IncModelDeleted(kind string) // kind: "explicit" or "cascade"

	// Artifact metrics
	IncArtifactUploaded()
	IncArtifactDownloaded()
	IncArtifactDeleted()

	// Audit pipeline metrics
	IncAuditEventPublished(status string) // status: "success" or "dropped"
	IncAuditEventProcessed(status string) // status: "success", "failed", "dead_lettered"
	ObserveAuditBatchSize(size int)
	ObserveAuditBatchDuration(duration time.Duration)
	SetAuditQueueDepth(depth int64)
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
