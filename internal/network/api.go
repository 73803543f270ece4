package network

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/policechief/server/internal/domain/profile"
	"github.com/policechief/server/internal/engine"
	"github.com/policechief/server/internal/infra/cache"
	"github.com/policechief/server/internal/platform/logger"
)

// API is the REST surface for profile state and economy operations.
type API struct {
	engine *engine.Engine
	cache  *cache.ProfileCache
	logger *logger.Logger
}

// NewAPI creates the REST API handler. The cache is optional.
func NewAPI(eng *engine.Engine, profileCache *cache.ProfileCache, log *logger.Logger) *API {
	return &API{engine: eng, cache: profileCache, logger: log}
}

// RegisterRoutes sets up the game API routes.
func (a *API) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/profile", a.handleProfile)
	mux.HandleFunc("/api/tick", a.handleTick)
	mux.HandleFunc("/api/dispatch", a.handleDispatch)
	mux.HandleFunc("/api/vehicles/purchase", a.handlePurchaseVehicle)
	mux.HandleFunc("/api/staff/hire", a.handleHireStaff)
	mux.HandleFunc("/api/units/sell", a.handleSellUnit)
	mux.HandleFunc("/api/upgrades/purchase", a.handlePurchaseUpgrade)
	mux.HandleFunc("/api/districts/unlock", a.handleUnlockDistrict)
	mux.HandleFunc("/api/automation", a.handleAutomation)
	mux.HandleFunc("/api/policies", a.handlePolicies)
	mux.HandleFunc("/api/status", a.handleStatus)
	mux.HandleFunc("/api/catalog", a.handleCatalog)
}

type profileRequest struct {
	ProfileID string `json:"profile_id"`
	TypeID    string `json:"type_id,omitempty"`
	UnitID    string `json:"unit_id,omitempty"`
	MissionID string `json:"mission_id,omitempty"`
	Enabled   bool   `json:"enabled,omitempty"`

	PolicyIDs []string `json:"policy_ids,omitempty"`
}

func (a *API) decode(w http.ResponseWriter, r *http.Request, req *profileRequest) bool {
	if r.Method != http.MethodPost {
		a.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		a.jsonError(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	if req.ProfileID == "" {
		a.jsonError(w, "Missing profile_id", http.StatusBadRequest)
		return false
	}
	return true
}

// handleProfile loads (or creates) the profile and drains pending ticks.
// POST /api/profile
func (a *API) handleProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if !a.decode(w, r, &req) {
		return
	}

	if _, err := a.engine.GetOrCreateProfile(r.Context(), req.ProfileID); err != nil {
		a.engineError(w, err)
		return
	}
	report, err := a.engine.ProcessCatchup(r.Context(), req.ProfileID)
	if err != nil {
		a.engineError(w, err)
		return
	}
	balance, err := a.engine.Balance(r.Context(), req.ProfileID)
	if err != nil {
		a.engineError(w, err)
		return
	}
	a.invalidate(r, req.ProfileID)

	a.jsonSuccess(w, map[string]interface{}{
		"profile": report.Profile,
		"balance": balance,
		"report":  report,
	})
}

// handleTick runs catch-up processing for a profile.
// POST /api/tick
func (a *API) handleTick(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if !a.decode(w, r, &req) {
		return
	}

	report, err := a.engine.ProcessCatchup(r.Context(), req.ProfileID)
	if err != nil {
		// A partial report still commits; surface both.
		if report != nil && report.TicksProcessed > 0 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusAccepted)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"report": report,
				"error":  err.Error(),
				"retry":  engine.IsRetryable(err),
			})
			return
		}
		a.engineError(w, err)
		return
	}
	a.invalidate(r, req.ProfileID)
	a.jsonSuccess(w, map[string]interface{}{"report": report})
}

// handleDispatch runs a manual dispatch.
// POST /api/dispatch
func (a *API) handleDispatch(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if !a.decode(w, r, &req) {
		return
	}
	if req.MissionID == "" {
		a.jsonError(w, "Missing mission_id", http.StatusBadRequest)
		return
	}

	result, err := a.engine.ManualDispatch(r.Context(), req.ProfileID, req.MissionID)
	if err != nil {
		a.engineError(w, err)
		return
	}
	a.invalidate(r, req.ProfileID)
	a.jsonSuccess(w, map[string]interface{}{"result": result})
}

// POST /api/vehicles/purchase
func (a *API) handlePurchaseVehicle(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if !a.decode(w, r, &req) {
		return
	}
	unit, err := a.engine.PurchaseVehicle(r.Context(), req.ProfileID, req.TypeID)
	if err != nil {
		a.engineError(w, err)
		return
	}
	a.invalidate(r, req.ProfileID)
	a.jsonSuccess(w, map[string]interface{}{"unit": unit})
}

// POST /api/staff/hire
func (a *API) handleHireStaff(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if !a.decode(w, r, &req) {
		return
	}
	unit, err := a.engine.HireStaff(r.Context(), req.ProfileID, req.TypeID)
	if err != nil {
		a.engineError(w, err)
		return
	}
	a.invalidate(r, req.ProfileID)
	a.jsonSuccess(w, map[string]interface{}{"unit": unit})
}

// POST /api/units/sell
func (a *API) handleSellUnit(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if !a.decode(w, r, &req) {
		return
	}
	if err := a.engine.SellUnit(r.Context(), req.ProfileID, req.UnitID); err != nil {
		a.engineError(w, err)
		return
	}
	a.invalidate(r, req.ProfileID)
	a.jsonSuccess(w, map[string]interface{}{"sold": req.UnitID})
}

// POST /api/upgrades/purchase
func (a *API) handlePurchaseUpgrade(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if !a.decode(w, r, &req) {
		return
	}
	if err := a.engine.PurchaseUpgrade(r.Context(), req.ProfileID, req.TypeID); err != nil {
		a.engineError(w, err)
		return
	}
	a.invalidate(r, req.ProfileID)
	a.jsonSuccess(w, map[string]interface{}{"purchased": req.TypeID})
}

// POST /api/districts/unlock
func (a *API) handleUnlockDistrict(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if !a.decode(w, r, &req) {
		return
	}
	if err := a.engine.UnlockDistrict(r.Context(), req.ProfileID, req.TypeID); err != nil {
		a.engineError(w, err)
		return
	}
	a.invalidate(r, req.ProfileID)
	a.jsonSuccess(w, map[string]interface{}{"unlocked": req.TypeID})
}

// POST /api/automation
func (a *API) handleAutomation(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if !a.decode(w, r, &req) {
		return
	}
	if err := a.engine.SetAutomation(r.Context(), req.ProfileID, req.Enabled); err != nil {
		a.engineError(w, err)
		return
	}
	a.invalidate(r, req.ProfileID)
	a.jsonSuccess(w, map[string]interface{}{"automation_enabled": req.Enabled})
}

// POST /api/policies
func (a *API) handlePolicies(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if !a.decode(w, r, &req) {
		return
	}
	if err := a.engine.SetPolicies(r.Context(), req.ProfileID, req.PolicyIDs); err != nil {
		a.engineError(w, err)
		return
	}
	a.invalidate(r, req.ProfileID)
	a.jsonSuccess(w, map[string]interface{}{"active_policies": req.PolicyIDs})
}

// handleStatus serves a lightweight profile summary, cached for dashboards.
// GET /api/status?profile_id=XXX
func (a *API) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	profileID := r.URL.Query().Get("profile_id")
	if profileID == "" {
		a.jsonError(w, "Missing profile_id", http.StatusBadRequest)
		return
	}

	if a.cache != nil {
		if summary, err := a.cache.GetSummary(r.Context(), profileID); err == nil {
			a.jsonSuccess(w, summary)
			return
		}
	}

	p, err := a.engine.GetProfile(r.Context(), profileID)
	if err != nil {
		a.engineError(w, err)
		return
	}
	balance, err := a.engine.Balance(r.Context(), profileID)
	if err != nil {
		a.engineError(w, err)
		return
	}

	summary := summarize(p, balance)
	if a.cache != nil {
		if err := a.cache.SetSummary(r.Context(), summary); err != nil {
			a.logger.Warn("Failed to cache summary for %s: %v", profileID, err)
		}
	}
	a.jsonSuccess(w, summary)
}

// handleCatalog serves the active content snapshot.
// GET /api/catalog
func (a *API) handleCatalog(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	snap := a.engine.Catalog()
	if snap == nil {
		a.jsonError(w, "Catalog not loaded", http.StatusServiceUnavailable)
		return
	}
	a.jsonSuccess(w, map[string]interface{}{
		"missions":  snap.Missions,
		"vehicles":  snap.Vehicles,
		"staff":     snap.Staff,
		"districts": snap.Districts,
		"upgrades":  snap.Upgrades,
		"policies":  snap.Policies,
	})
}

func summarize(p *profile.Profile, balance int) cache.ProfileSummary {
	now := time.Now()
	onDuty := 0
	for _, u := range append(append([]*profile.Unit(nil), p.Vehicles...), p.Staff...) {
		if !u.Available(now) {
			onDuty++
		}
	}
	return cache.ProfileSummary{
		ProfileID:     p.ID,
		StationName:   p.StationName,
		StationLevel:  p.StationLevel,
		Reputation:    p.Reputation,
		Heat:          p.Heat,
		Balance:       balance,
		VehicleCount:  len(p.Vehicles),
		StaffCount:    len(p.Staff),
		UnitsOnDuty:   onDuty,
		LastProcessed: p.LastProcessedTick.Unix(),
	}
}

func (a *API) invalidate(r *http.Request, profileID string) {
	if a.cache == nil {
		return
	}
	if err := a.cache.Invalidate(r.Context(), profileID); err != nil {
		a.logger.Warn("Failed to invalidate cache for %s: %v", profileID, err)
	}
}

// engineError maps the engine's taxonomy onto HTTP status codes.
func (a *API) engineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrUnknownEntity):
		a.jsonError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, engine.ErrInsufficientFunds):
		a.jsonError(w, err.Error(), http.StatusPaymentRequired)
	case errors.Is(err, engine.ErrResourceUnavailable):
		a.jsonError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, engine.ErrInvalidState):
		a.jsonError(w, err.Error(), http.StatusUnprocessableEntity)
	case engine.IsRetryable(err):
		a.jsonError(w, err.Error(), http.StatusServiceUnavailable)
	default:
		a.jsonError(w, err.Error(), http.StatusInternalServerError)
	}
}

func (a *API) jsonError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func (a *API) jsonSuccess(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(data)
}
