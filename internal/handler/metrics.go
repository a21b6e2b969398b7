package handler

import (
	"fmt"
	"net/http"

	"github.com/modelvault/modelvault/internal/metrics"
)

// MetricsHandler exposes in-memory metrics.
type MetricsHandler struct {
	snapshotter metrics.Snapshotter
}

// NewMetricsHandler creates a new MetricsHandler.
func NewMetricsHandler(snapshotter metrics.Snapshotter) *MetricsHandler {
	return &MetricsHandler{snapshotter: snapshotter}
}

// Metrics returns metrics in Prometheus exposition format.
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.snapshotter == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	snap := h.snapshotter.Snapshot()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	writeMetric(w, "modelvault_auth_decisions_total{decision=\"ok\"} %d\n", snap.AuthDecisionsOK)
	writeMetric(w, "modelvault_auth_decisions_total{decision=\"no_token\"} %d\n", snap.AuthDecisionsNoToken)
	writeMetric(w, "modelvault_auth_decisions_total{decision=\"invalid_token\"} %d\n", snap.AuthDecisionsInvalidToken)
	writeMetric(w, "modelvault_auth_decisions_total{decision=\"forbidden\"} %d\n", snap.AuthDecisionsForbidden)

	writeMetric(w, "modelvault_models_created_total %d\n", snap.ModelsCreated)
	writeMetric(w, "modelvault_models_shared_total %d\n", snap.ModelsShared)
	writeMetric(w, "modelvault_models_unshared_total %d\n", snap.ModelsUnshared)
	writeMetric(w, "modelvault_models_deleted_total{kind=\"explicit\"} %d\n", snap.ModelsDeletedExplicit)
	writeMetric(w, "modelvault_models_deleted_total{kind=\"cascade\"} %d\n", snap.ModelsDeletedCascade)

	writeMetric(w, "modelvault_artifacts_uploaded_total %d\n", snap.ArtifactsUploaded)
	writeMetric(w, "modelvault_artifacts_downloaded_total %d\n", snap.ArtifactsDownloaded)
	writeMetric(w, "modelvault_artifacts_deleted_total %d\n", snap.ArtifactsDeleted)

	writeMetric(w, "modelvault_audit_events_published_total{status=\"success\"} %d\n", snap.AuditEventsPublished)
	writeMetric(w, "modelvault_audit_events_published_total{status=\"dropped\"} %d\n", snap.AuditEventsDropped)

	writeMetric(w, "modelvault_audit_events_processed_total{status=\"success\"} %d\n", snap.AuditEventsProcessed)
	writeMetric(w, "modelvault_audit_events_processed_total{status=\"failed\"} %d\n", snap.AuditEventsProcessedFailed)
	writeMetric(w, "modelvault_audit_events_processed_total{status=\"dead_lettered\"} %d\n", snap.AuditEventsDeadLettered)

	writeMetric(w, "modelvault_audit_batches_total %d\n", snap.AuditBatchCount)
	writeMetric(w, "modelvault_audit_queue_depth %d\n", snap.AuditQueueDepth)
	writeMetric(w, "modelvault_audit_batch_duration_seconds_count %d\n", snap.AuditBatchDurationCount)
	writeMetric(w, "modelvault_audit_batch_duration_seconds_sum %.6f\n", float64(snap.AuditBatchDurationTotalNs)/1e9)
}

func writeMetric(w http.ResponseWriter, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
