package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"daily-trivia-service/internal/app"
	"daily-trivia-service/internal/domain"
)

// AdminHandler exposes the administrative operations: tenant schedules,
// forced question regeneration, score adjustments, and leaderboard queries.
type AdminHandler struct {
	service   *app.TriviaService
	scheduler *app.Scheduler
}

func NewAdminHandler(service *app.TriviaService, scheduler *app.Scheduler) *AdminHandler {
	return &AdminHandler{service: service, scheduler: scheduler}
}

// Register mounts the admin routes on mux.
func (h *AdminHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/tenants", h.handleSetTenant)
	mux.HandleFunc("/admin/regenerate", h.handleRegenerate)
	mux.HandleFunc("/admin/adjust-score", h.handleAdjustScore)
	mux.HandleFunc("/leaderboard", h.handleLeaderboard)
	mux.HandleFunc("/score", h.handleScore)
}

type setTenantRequest struct {
	Tenant    string `json:"tenant"`
	ChannelID string `json:"channelId"`
	Hour      int    `json:"hour"`
	Minute    int    `json:"minute"`
	Timezone  string `json:"timezone"`
}

func (h *AdminHandler) handleSetTenant(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req setTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	schedule, err := h.service.SetSchedule(req.Tenant, req.ChannelID, req.Hour, req.Minute, req.Timezone)
	if err != nil {
		writeError(w, err)
		return
	}
	// Re-arm timers so the new posting time takes effect immediately.
	h.scheduler.Refresh()
	writeJSON(w, http.StatusOK, schedule)
}

type regenerateRequest struct {
	Tenant string `json:"tenant"`
}

func (h *AdminHandler) handleRegenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req regenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.service.RegenerateToday(r.Context(), req.Tenant); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "regenerated"})
}

type adjustScoreRequest struct {
	Tenant string `json:"tenant"`
	Player string `json:"player"`
	Delta  int    `json:"delta"`
}

func (h *AdminHandler) handleAdjustScore(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req adjustScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Player == "" || req.Delta == 0 {
		http.Error(w, "player and a non-zero delta are required", http.StatusBadRequest)
		return
	}
	if err := h.service.AdjustScore(r.Context(), req.Tenant, req.Player, req.Delta); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "adjusted"})
}

func (h *AdminHandler) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	tenant := r.URL.Query().Get("tenant")
	periodType, ok := parsePeriod(r.URL.Query().Get("period"))
	if !ok {
		http.Error(w, "unknown period", http.StatusBadRequest)
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}
	entries, err := h.service.TopN(tenant, periodType, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"tenant":  tenant,
		"period":  periodType,
		"entries": entries,
	})
}

func (h *AdminHandler) handleScore(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	tenant := r.URL.Query().Get("tenant")
	player := r.URL.Query().Get("player")
	periodType, ok := parsePeriod(r.URL.Query().Get("period"))
	if !ok {
		http.Error(w, "unknown period", http.StatusBadRequest)
		return
	}
	entry, found, err := h.service.PlayerScore(tenant, player, periodType)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"tenant": tenant,
		"period": periodType,
		"found":  found,
		"entry":  entry,
	})
}

// parsePeriod defaults an empty value to the daily window.
func parsePeriod(raw string) (domain.PeriodType, bool) {
	switch raw {
	case "":
		return domain.PeriodDaily, true
	case string(domain.PeriodDaily), string(domain.PeriodWeekly), string(domain.PeriodMonthly), string(domain.PeriodAllTime):
		return domain.PeriodType(raw), true
	default:
		return "", false
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrTenantNotConfigured):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidSchedule):
		status = http.StatusBadRequest
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("could not write response: %v", err)
	}
}
