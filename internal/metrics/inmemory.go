package metrics

import (
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	AuthDecisionsOK           uint64
	AuthDecisionsNoToken      uint64
	AuthDecisionsInvalidToken uint64
	AuthDecisionsForbidden    uint64

	ModelsCreated         uint64
	ModelsShared          uint64
	ModelsUnshared        uint64
	ModelsDeletedExplicit uint64
	ModelsDeletedCascade  uint64

	ArtifactsUploaded   uint64
	ArtifactsDownloaded uint64
	ArtifactsDeleted    uint64

	AuditEventsPublished        uint64
	AuditEventsDropped          uint64
	AuditEventsProcessed        uint64
	AuditEventsProcessedFailed  uint64
	AuditEventsDeadLettered     uint64
	AuditBatchCount             uint64
	AuditBatchDurationCount     uint64
	AuditBatchDurationTotalNs   int64
	AuditQueueDepth             int64
}

// InMemoryRecorder stores metrics in memory for tests and the /metrics endpoint.
type InMemoryRecorder struct {
	authOK           uint64
	authNoToken      uint64
	authInvalidToken uint64
	authForbidden    uint64

	modelsCreated         uint64
	modelsShared          uint64
	modelsUnshared        uint64
	modelsDeletedExplicit uint64
	modelsDeletedCascade  uint64

	artifactsUploaded   uint64
	artifactsDownloaded uint64
	artifactsDeleted    uint64

	auditPublished        uint64
	auditDropped          uint64
	auditProcessed        uint64
	auditProcessedFailed  uint64
	auditDeadLettered     uint64
	auditBatchCount       uint64
	auditBatchDurCount    uint64
	auditBatchDurTotalNs  int64
	auditQueueDepth       int64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	return Snapshot{
		AuthDecisionsOK:           atomic.LoadUint64(&m.authOK),
		AuthDecisionsNoToken:      atomic.LoadUint64(&m.authNoToken),
		AuthDecisionsInvalidToken: atomic.LoadUint64(&m.authInvalidToken),
		AuthDecisionsForbidden:    atomic.LoadUint64(&m.authForbidden),

		ModelsCreated:         atomic.LoadUint64(&m.modelsCreated),
		ModelsShared:          atomic.LoadUint64(&m.modelsShared),
		ModelsUnshared:        atomic.LoadUint64(&m.modelsUnshared),
		ModelsDeletedExplicit: atomic.LoadUint64(&m.modelsDeletedExplicit),
		ModelsDeletedCascade:  atomic.LoadUint64(&m.modelsDeletedCascade),

		ArtifactsUploaded:   atomic.LoadUint64(&m.artifactsUploaded),
		ArtifactsDownloaded: atomic.LoadUint64(&m.artifactsDownloaded),
		ArtifactsDeleted:    atomic.LoadUint64(&m.artifactsDeleted),

		AuditEventsPublished:        atomic.LoadUint64(&m.auditPublished),
		AuditEventsDropped:          atomic.LoadUint64(&m.auditDropped),
		AuditEventsProcessed:        atomic.LoadUint64(&m.auditProcessed),
		AuditEventsProcessedFailed:  atomic.LoadUint64(&m.auditProcessedFailed),
		AuditEventsDeadLettered:     atomic.LoadUint64(&m.auditDeadLettered),
		AuditBatchCount:             atomic.LoadUint64(&m.auditBatchCount),
		AuditBatchDurationCount:     atomic.LoadUint64(&m.auditBatchDurCount),
		AuditBatchDurationTotalNs:   atomic.LoadInt64(&m.auditBatchDurTotalNs),
		AuditQueueDepth:             atomic.LoadInt64(&m.auditQueueDepth),
	}
}

// IncAuthDecision increments the counter for one access guard outcome.
func (m *InMemoryRecorder) IncAuthDecision(decision string) {
	switch decision {
	case "ok":
		atomic.AddUint64(&m.authOK, 1)
	case "no_token":
		atomic.AddUint64(&m.authNoToken, 1)
	case "invalid_token":
		atomic.AddUint64(&m.authInvalidToken, 1)
	case "forbidden":
		atomic.AddUint64(&m.authForbidden, 1)
	}
}

// IncModelCreated increments the model created counter.
func (m *InMemoryRecorder) IncModelCreated() {
	atomic.AddUint64(&m.modelsCreated, 1)
}

// IncModelShared increments the model shared counter.
func (m *InMemoryRecorder) IncModelShared() {
	atomic.AddUint64(&m.modelsShared, 1)
}

// IncModelUnshared increments the model unshared counter.
func (m *InMemoryRecorder) IncModelUnshared() {
	atomic.AddUint64(&m.modelsUnshared, 1)
}

// IncModelDeleted increments the deletion counter for the given kind.
func (m *InMemoryRecorder) IncModelDeleted(kind string) {
	switch kind {
	case "cascade":
		atomic.AddUint64(&m.modelsDeletedCascade, 1)
	default:
		atomic.AddUint64(&m.modelsDeletedExplicit, 1)
	}
}

// IncArtifactUploaded increments the artifact uploaded counter.
func (m *InMemoryRecorder) IncArtifactUploaded() {
	atomic.AddUint64(&m.artifactsUploaded, 1)
}

// IncArtifactDownloaded increments the artifact downloaded counter.
func (m *InMemoryRecorder) IncArtifactDownloaded() {
	atomic.AddUint64(&m.artifactsDownloaded, 1)
}

// IncArtifactDeleted increments the artifact deleted counter.
func (m *InMemoryRecorder) IncArtifactDeleted() {
	atomic.AddUint64(&m.artifactsDeleted, 1)
}

// IncAuditEventPublished increments the publish counter for a status.
func (m *InMemoryRecorder) IncAuditEventPublished(status string) {
	if status == "success" {
		atomic.AddUint64(&m.auditPublished, 1)
	} else {
		atomic.AddUint64(&m.auditDropped, 1)
	}
}

// IncAuditEventProcessed increments the processed counter for a status.
func (m *InMemoryRecorder) IncAuditEventProcessed(status string) {
	switch status {
	case "success":
		atomic.AddUint64(&m.auditProcessed, 1)
	case "failed":
		atomic.AddUint64(&m.auditProcessedFailed, 1)
	case "dead_lettered":
		atomic.AddUint64(&m.auditDeadLettered, 1)
	}
}

// ObserveAuditBatchSize counts one processed batch.
func (m *InMemoryRecorder) ObserveAuditBatchSize(size int) {
	atomic.AddUint64(&m.auditBatchCount, 1)
}

// ObserveAuditBatchDuration records batch processing time.
func (m *InMemoryRecorder) ObserveAuditBatchDuration(duration time.Duration) {
	atomic.AddUint64(&m.auditBatchDurCount, 1)
	atomic.AddInt64(&m.auditBatchDurTotalNs, duration.Nanoseconds())
}

// SetAuditQueueDepth records the current stream depth.
func (m *InMemoryRecorder) SetAuditQueueDepth(depth int64) {
	atomic.StoreInt64(&m.auditQueueDepth, depth)
}
