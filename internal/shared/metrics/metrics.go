package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

var (
	analysisStarted   = newCounterVec()
	analysisCompleted = newCounterVec()
	analysisFailed    = newCounterVec()
	streamChunks      = newCounterVec()
	callJobs          = newCounterVec()

	analysisDuration = newHistogram([]float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000, 120000})
)

// IncAnalysisStarted increments the started counter for a record kind.
func IncAnalysisStarted(kind string) {
	analysisStarted.inc(kind, 1)
}

// IncAnalysisCompleted increments the completed counter for a record kind.
func IncAnalysisCompleted(kind string) {
	analysisCompleted.inc(kind, 1)
}

// IncAnalysisFailed increments the failed counter for a record kind.
func IncAnalysisFailed(kind string) {
	analysisFailed.inc(kind, 1)
}

// AddStreamChunks counts SSE chunk events relayed to clients.
func AddStreamChunks(kind string, n int) {
	if n <= 0 {
		return
	}
	streamChunks.inc(kind, uint64(n))
}

// IncCallJobsReceived counts queue messages picked up by the worker.
func IncCallJobsReceived() {
	callJobs.inc("received", 1)
}

// IncCallJobsCompleted counts queue messages processed and deleted.
func IncCallJobsCompleted() {
	callJobs.inc("completed", 1)
}

// IncCallJobsFailed counts queue messages left for redelivery.
func IncCallJobsFailed() {
	callJobs.inc("failed", 1)
}

// IncCallJobsDeletedUnrecoverable counts messages dropped as permanently invalid.
func IncCallJobsDeletedUnrecoverable() {
	callJobs.inc("deleted_unrecoverable", 1)
}

// ObserveAnalysisDurationMs records an analysis duration in milliseconds.
func ObserveAnalysisDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	analysisDuration.Observe(value)
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	writeCounterVec(&buf, "analysis_started_total", "Total analyses started", analysisStarted.snapshot())
	writeCounterVec(&buf, "analysis_completed_total", "Total analyses completed", analysisCompleted.snapshot())
	writeCounterVec(&buf, "analysis_failed_total", "Total analyses failed", analysisFailed.snapshot())
	writeCounterVec(&buf, "analysis_stream_chunks_total", "Total SSE chunk events relayed", streamChunks.snapshot())
	writeCounterVec(&buf, "call_jobs_total", "Call analysis jobs by outcome", callJobs.snapshot())
	writeHistogram(&buf, "analysis_duration_ms", "Analysis duration in milliseconds", analysisDuration.Snapshot())
	return buf.String()
}

type counterVec struct {
	mu     sync.Mutex
	values map[string]uint64
}

func newCounterVec() *counterVec {
	return &counterVec{values: make(map[string]uint64)}
}

func (c *counterVec) inc(kind string, n uint64) {
	if kind == "" {
		kind = "unknown"
	}
	c.mu.Lock()
	c.values[kind] += n
	c.mu.Unlock()
}

func (c *counterVec) snapshot() map[string]uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]uint64, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
			break
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
}

func writeCounterVec(buf *bytes.Buffer, name, help string, values map[string]uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	kinds := make([]string, 0, len(values))
	for k := range values {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		fmt.Fprintf(buf, "%s{kind=%q} %d\n", name, k, values[k])
	}
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}

// Since returns the elapsed time since start in milliseconds.
func Since(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}
