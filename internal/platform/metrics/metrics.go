// Package metrics provides observability for the dispatch server.
// Counters cover catch-up runs, mission outcomes, event writes and WebSocket traffic.
package metrics

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// Collector gathers performance metrics.
type Collector struct {
	// Catch-up run metrics
	RunCount       int64
	RunLatencySum  int64 // nanoseconds
	RunLatencyMax  int64
	TicksProcessed int64
	RunFailures    int64
	LastRunTime    time.Time

	// Mission metrics
	MissionsDispatched int64
	MissionsSucceeded  int64
	MissionsFailed     int64

	// Event metrics
	EventsWritten    int64
	EventWriteLatSum int64
	EventWriteLatMax int64
	EventWriteErrors int64

	// WebSocket metrics
	WSConnectionsActive int64
	WSMessagesIn        int64
	WSMessagesOut       int64
	WSErrors            int64

	// System
	StartTime time.Time
	mu        sync.RWMutex
}

// Global collector instance
var collector = &Collector{
	StartTime: time.Now(),
}

// Get returns the global collector.
func Get() *Collector {
	return collector
}

// RecordRun records a completed (or failed) catch-up run.
func (c *Collector) RecordRun(ticks int, latency time.Duration, err error) {
	atomic.AddInt64(&c.RunCount, 1)
	atomic.AddInt64(&c.TicksProcessed, int64(ticks))
	atomic.AddInt64(&c.RunLatencySum, int64(latency))

	// Update max (non-atomic but acceptable for metrics)
	if int64(latency) > atomic.LoadInt64(&c.RunLatencyMax) {
		atomic.StoreInt64(&c.RunLatencyMax, int64(latency))
	}

	if err != nil {
		atomic.AddInt64(&c.RunFailures, 1)
	}

	c.mu.Lock()
	c.LastRunTime = time.Now()
	c.mu.Unlock()
}

// RecordMission records one resolved mission dispatch.
func (c *Collector) RecordMission(success bool) {
	atomic.AddInt64(&c.MissionsDispatched, 1)
	if success {
		atomic.AddInt64(&c.MissionsSucceeded, 1)
	} else {
		atomic.AddInt64(&c.MissionsFailed, 1)
	}
}

// RecordEventWrite records an event write to the database.
func (c *Collector) RecordEventWrite(latency time.Duration, err error) {
	atomic.AddInt64(&c.EventsWritten, 1)
	atomic.AddInt64(&c.EventWriteLatSum, int64(latency))

	if int64(latency) > atomic.LoadInt64(&c.EventWriteLatMax) {
		atomic.StoreInt64(&c.EventWriteLatMax, int64(latency))
	}

	if err != nil {
		atomic.AddInt64(&c.EventWriteErrors, 1)
	}
}

// RecordWSConnection records WebSocket connection changes.
func (c *Collector) RecordWSConnection(delta int64) {
	atomic.AddInt64(&c.WSConnectionsActive, delta)
}

// RecordWSMessage records WebSocket messages.
func (c *Collector) RecordWSMessage(incoming bool) {
	if incoming {
		atomic.AddInt64(&c.WSMessagesIn, 1)
	} else {
		atomic.AddInt64(&c.WSMessagesOut, 1)
	}
}

// RecordWSError records a WebSocket error.
func (c *Collector) RecordWSError() {
	atomic.AddInt64(&c.WSErrors, 1)
}

// Snapshot returns current metrics as a map.
func (c *Collector) Snapshot() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	runCount := atomic.LoadInt64(&c.RunCount)
	eventsWritten := atomic.LoadInt64(&c.EventsWritten)

	var runAvg, eventAvg float64
	if runCount > 0 {
		runAvg = float64(atomic.LoadInt64(&c.RunLatencySum)) / float64(runCount) / 1e6 // ms
	}
	if eventsWritten > 0 {
		eventAvg = float64(atomic.LoadInt64(&c.EventWriteLatSum)) / float64(eventsWritten) / 1e6
	}

	return map[string]interface{}{
		"uptime_seconds": time.Since(c.StartTime).Seconds(),

		"catchup": map[string]interface{}{
			"runs":            runCount,
			"ticks_processed": atomic.LoadInt64(&c.TicksProcessed),
			"failures":        atomic.LoadInt64(&c.RunFailures),
			"avg_latency_ms":  runAvg,
			"max_latency_ms":  float64(atomic.LoadInt64(&c.RunLatencyMax)) / 1e6,
			"last_run":        c.LastRunTime.Format(time.RFC3339),
		},

		"missions": map[string]interface{}{
			"dispatched": atomic.LoadInt64(&c.MissionsDispatched),
			"succeeded":  atomic.LoadInt64(&c.MissionsSucceeded),
			"failed":     atomic.LoadInt64(&c.MissionsFailed),
		},

		"events": map[string]interface{}{
			"written":          eventsWritten,
			"avg_write_lat_ms": eventAvg,
			"max_write_lat_ms": float64(atomic.LoadInt64(&c.EventWriteLatMax)) / 1e6,
			"errors":           atomic.LoadInt64(&c.EventWriteErrors),
		},

		"websocket": map[string]interface{}{
			"active_connections": atomic.LoadInt64(&c.WSConnectionsActive),
			"messages_in":        atomic.LoadInt64(&c.WSMessagesIn),
			"messages_out":       atomic.LoadInt64(&c.WSMessagesOut),
			"errors":             atomic.LoadInt64(&c.WSErrors),
		},
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-cache")

		snapshot := collector.Snapshot()
		json.NewEncoder(w).Encode(snapshot)
	}
}

// PrometheusHandler returns metrics in Prometheus format.
func PrometheusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")

		c := collector

		fmt.Fprintf(w, "# HELP chief_catchup_runs Total catch-up runs\n")
		fmt.Fprintf(w, "# TYPE chief_catchup_runs counter\n")
		fmt.Fprintf(w, "chief_catchup_runs %d\n\n", atomic.LoadInt64(&c.RunCount))

		fmt.Fprintf(w, "# HELP chief_ticks_processed Total ticks processed\n")
		fmt.Fprintf(w, "# TYPE chief_ticks_processed counter\n")
		fmt.Fprintf(w, "chief_ticks_processed %d\n\n", atomic.LoadInt64(&c.TicksProcessed))

		fmt.Fprintf(w, "# HELP chief_catchup_failures Catch-up runs aborted on collaborator failure\n")
		fmt.Fprintf(w, "# TYPE chief_catchup_failures counter\n")
		fmt.Fprintf(w, "chief_catchup_failures %d\n\n", atomic.LoadInt64(&c.RunFailures))

		fmt.Fprintf(w, "# HELP chief_catchup_latency_max_ms Maximum catch-up run latency\n")
		fmt.Fprintf(w, "# TYPE chief_catchup_latency_max_ms gauge\n")
		fmt.Fprintf(w, "chief_catchup_latency_max_ms %.2f\n\n", float64(atomic.LoadInt64(&c.RunLatencyMax))/1e6)

		fmt.Fprintf(w, "# HELP chief_missions_total Total resolved mission dispatches\n")
		fmt.Fprintf(w, "# TYPE chief_missions_total counter\n")
		fmt.Fprintf(w, "chief_missions_total{outcome=\"success\"} %d\n", atomic.LoadInt64(&c.MissionsSucceeded))
		fmt.Fprintf(w, "chief_missions_total{outcome=\"failure\"} %d\n\n", atomic.LoadInt64(&c.MissionsFailed))

		fmt.Fprintf(w, "# HELP chief_events_written Total events written\n")
		fmt.Fprintf(w, "# TYPE chief_events_written counter\n")
		fmt.Fprintf(w, "chief_events_written %d\n\n", atomic.LoadInt64(&c.EventsWritten))

		fmt.Fprintf(w, "# HELP chief_event_write_errors Total event write errors\n")
		fmt.Fprintf(w, "# TYPE chief_event_write_errors counter\n")
		fmt.Fprintf(w, "chief_event_write_errors %d\n\n", atomic.LoadInt64(&c.EventWriteErrors))

		fmt.Fprintf(w, "# HELP chief_ws_connections Active WebSocket connections\n")
		fmt.Fprintf(w, "# TYPE chief_ws_connections gauge\n")
		fmt.Fprintf(w, "chief_ws_connections %d\n\n", atomic.LoadInt64(&c.WSConnectionsActive))

		fmt.Fprintf(w, "# HELP chief_ws_messages_total Total WebSocket messages\n")
		fmt.Fprintf(w, "# TYPE chief_ws_messages_total counter\n")
		fmt.Fprintf(w, "chief_ws_messages_total{direction=\"in\"} %d\n", atomic.LoadInt64(&c.WSMessagesIn))
		fmt.Fprintf(w, "chief_ws_messages_total{direction=\"out\"} %d\n", atomic.LoadInt64(&c.WSMessagesOut))
	}
}
