package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// IncAuthDecision is a no-op.
func (n *NoopRecorder) IncAuthDecision(decision string) {}

// IncModelCreated is a no-op.
func (n *NoopRecorder) IncModelCreated() {}

// IncModelShared is a no-op.
func (n *NoopRecorder) IncModelShared() {}

// IncModelUnshared is a no-op.
func (n *NoopRecorder) IncModelUnshared() {}

// IncModelDeleted is a no-op.
func (n *NoopRecorder) IncModelDeleted(kind string) {}

// IncArtifactUploaded is a no-op.
func (n *NoopRecorder) IncArtifactUploaded() {}

// IncArtifactDownloaded is a no-op.
func (n *NoopRecorder) IncArtifactDownloaded() {}

// IncArtifactDeleted is a no-op.
func (n *NoopRecorder) IncArtifactDeleted() {}

// IncAuditEventPublished is a no-op.
func (n *NoopRecorder) IncAuditEventPublished(status string) {}

// IncAuditEventProcessed is a no-op.
func (n *NoopRecorder) IncAuditEventProcessed(status string) {}

// ObserveAuditBatchSize is a no-op.
func (n *NoopRecorder) ObserveAuditBatchSize(size int) {}

// ObserveAuditBatchDuration is a no-op.
func (n *NoopRecorder) ObserveAuditBatchDuration(duration time.Duration) {}

// SetAuditQueueDepth is a no-op.
func (n *NoopRecorder) SetAuditQueueDepth(depth int64) {}
