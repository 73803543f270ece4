package network

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/policechief/server/internal/events"
	"github.com/policechief/server/internal/platform/logger"
)

// HistoryHandler serves the immutable event history: filtered views for
// dashboards and a compressed full export for offline analysis.
type HistoryHandler struct {
	eventLog *events.EventLog
	logger   *logger.Logger
}

// NewHistoryHandler creates the event history handler.
func NewHistoryHandler(el *events.EventLog, log *logger.Logger) *HistoryHandler {
	return &HistoryHandler{eventLog: el, logger: log}
}

// HistoryResponse is the API response for event history queries.
type HistoryResponse struct {
	TotalEvents int                `json:"total_events"`
	FilteredBy  string             `json:"filtered_by,omitempty"`
	GeneratedAt string             `json:"generated_at"`
	Events      []events.GameEvent `json:"events"`
}

// HandleHistory returns the event history, optionally filtered.
// GET /api/history?profile_id=XXX&type=MISSION_RESOLVED&limit=N
func (hh *HistoryHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		hh.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	profileID := r.URL.Query().Get("profile_id")
	eventType := r.URL.Query().Get("type")
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, _ = strconv.Atoi(raw)
	}

	filtered := hh.filter(profileID, eventType)
	filterDesc := ""
	if profileID != "" {
		filterDesc = "profile " + profileID
	}
	if eventType != "" {
		if filterDesc != "" {
			filterDesc += ", "
		}
		filterDesc += "type " + eventType
	}

	if limit > 0 && len(filtered) > limit {
		filtered = filtered[len(filtered)-limit:]
	}

	response := HistoryResponse{
		TotalEvents: len(filtered),
		FilteredBy:  filterDesc,
		GeneratedAt: time.Now().Format(time.RFC3339),
		Events:      filtered,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// HandleExport streams the full event history as gzip-compressed JSON.
// GET /api/history/export?profile_id=XXX
func (hh *HistoryHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		hh.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	profileID := r.URL.Query().Get("profile_id")
	filtered := hh.filter(profileID, "")

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Encoding", "gzip")
	w.Header().Set("Content-Disposition", `attachment; filename="events.json.gz"`)

	gz, err := gzip.NewWriterLevel(w, gzip.BestSpeed)
	if err != nil {
		hh.jsonError(w, "Compression failed", http.StatusInternalServerError)
		return
	}
	defer gz.Close()

	if err := json.NewEncoder(gz).Encode(filtered); err != nil {
		hh.logger.Error("Event export failed: %v", err)
		return
	}
	hh.logger.Event("HISTORY_EXPORT", profileID, strconv.Itoa(len(filtered))+" events")
}

// HandleStats returns aggregate counters over the event history.
// GET /api/history/stats
func (hh *HistoryHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		hh.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	all := hh.eventLog.Replay()
	stats := map[string]int{
		"total_events":        len(all),
		"ticks_processed":     0,
		"missions_resolved":   0,
		"purchases":           0,
		"admin_interventions": 0,
	}
	for _, e := range all {
		switch e.Type {
		case events.EventTypeTickProcessed:
			stats["ticks_processed"]++
		case events.EventTypeMissionResolved:
			stats["missions_resolved"]++
		case events.EventTypeVehiclePurchased, events.EventTypeStaffHired, events.EventTypeUpgradePurchased:
			stats["purchases"]++
		case events.EventTypeAdminRelease:
			stats["admin_interventions"]++
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"generated_at": time.Now().Format(time.RFC3339),
		"stats":        stats,
	})
}

// RegisterRoutes sets up the history API routes.
func (hh *HistoryHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/history", hh.HandleHistory)
	mux.HandleFunc("/api/history/export", hh.HandleExport)
	mux.HandleFunc("/api/history/stats", hh.HandleStats)
}

func (hh *HistoryHandler) filter(profileID, eventType string) []events.GameEvent {
	all := hh.eventLog.Replay()
	var filtered []events.GameEvent
	for _, e := range all {
		if profileID != "" && e.ProfileID != profileID {
			continue
		}
		if eventType != "" && string(e.Type) != eventType {
			continue
		}
		filtered = append(filtered, e)
	}
	return filtered
}

func (hh *HistoryHandler) jsonError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
