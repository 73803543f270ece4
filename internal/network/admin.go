package network

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/policechief/server/internal/content"
	"github.com/policechief/server/internal/engine"
	"github.com/policechief/server/internal/events"
	"github.com/policechief/server/internal/platform/logger"
	"github.com/policechief/server/internal/platform/metrics"
)

// AdminBridge exposes operator tooling: cooldown releases, content reloads
// and a connection overview. It is expected to sit behind network-level
// access control; the handlers themselves do not authenticate.
type AdminBridge struct {
	engine   *engine.Engine
	loader   *content.Loader
	eventLog *events.EventLog
	wsHub    *Hub
	logger   *logger.Logger
}

// NewAdminBridge creates the operator API handler.
func NewAdminBridge(eng *engine.Engine, loader *content.Loader, el *events.EventLog, hub *Hub, log *logger.Logger) *AdminBridge {
	return &AdminBridge{
		engine:   eng,
		loader:   loader,
		eventLog: el,
		wsHub:    hub,
		logger:   log,
	}
}

// ReleaseRequest is the payload for a cooldown release.
type ReleaseRequest struct {
	ProfileID string `json:"profile_id"`
	UnitID    string `json:"unit_id"`
	Operator  string `json:"operator"`
}

// HandleRelease clears a unit's cooldown immediately.
// POST /api/admin/release
func (ab *AdminBridge) HandleRelease(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		ab.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req ReleaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ab.jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.ProfileID == "" || req.UnitID == "" {
		ab.jsonError(w, "Missing profile_id or unit_id", http.StatusBadRequest)
		return
	}

	if err := ab.engine.AdminReleaseUnit(r.Context(), req.ProfileID, req.UnitID); err != nil {
		ab.jsonError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	ab.logger.Event("ADMIN_RELEASE", req.ProfileID, "unit "+req.UnitID+" by "+req.Operator)
	ab.jsonSuccess(w, map[string]interface{}{
		"released": req.UnitID,
	})
}

// HandleReload re-reads the content packs and swaps in the new catalog.
// POST /api/admin/reload
func (ab *AdminBridge) HandleReload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		ab.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := ab.loader.Load(); err != nil {
		ab.logger.Error("Content reload failed: %v", err)
		ab.jsonError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	snap := ab.loader.Current()
	ab.eventLog.Append(events.New(events.EventTypeContentReloaded, "", time.Now().UTC(), map[string]interface{}{
		"missions":  len(snap.Missions),
		"vehicles":  len(snap.Vehicles),
		"staff":     len(snap.Staff),
		"districts": len(snap.Districts),
	}))
	ab.logger.Event("CONTENT_RELOAD", "", "catalog reloaded")

	ab.jsonSuccess(w, map[string]interface{}{
		"reloaded": true,
		"missions": len(snap.Missions),
	})
}

// HandleOverview returns operator-facing server state.
// GET /api/admin/overview
func (ab *AdminBridge) HandleOverview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		ab.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ab.jsonSuccess(w, map[string]interface{}{
		"connected_clients": ab.wsHub.ConnectedCount(),
		"events_in_memory":  ab.eventLog.Len(),
		"metrics":           metrics.Get().Snapshot(),
		"timestamp":         time.Now().Unix(),
	})
}

// RegisterRoutes sets up the admin API routes.
func (ab *AdminBridge) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/admin/release", ab.HandleRelease)
	mux.HandleFunc("/api/admin/reload", ab.HandleReload)
	mux.HandleFunc("/api/admin/overview", ab.HandleOverview)
}

func (ab *AdminBridge) jsonError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func (ab *AdminBridge) jsonSuccess(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(data)
}
