package account

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handlers contains HTTP handlers for account administration
type Handlers struct {
	svc *Service
	log zerolog.Logger
}

// NewHandlers creates a new account handlers instance
func NewHandlers(svc *Service, log zerolog.Logger) *Handlers {
	return &Handlers{
		svc: svc,
		log: log.With().Str("handler", "account").Logger(),
	}
}

// HandleList returns all accounts
// GET /api/accounts
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.svc.List()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list accounts")
		http.Error(w, "Failed to list accounts", http.StatusInternalServerError)
		return
	}

	writeJSON(w, h.log, map[string]interface{}{"accounts": accounts})
}

// HandleGet returns a single account
// GET /api/accounts/{id}
func (h *Handlers) HandleGet(w http.ResponseWriter, r *http.Request) {
	acct, err := h.svc.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, err, "Failed to get account")
		return
	}

	writeJSON(w, h.log, acct)
}

// HandleCreate registers a new account
// POST /api/accounts
func (h *Handlers) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name                string        `json:"name"`
		InitialCapital      float64       `json:"initial_capital"`
		Environment         string        `json:"environment"`
		Automation          string        `json:"automation"`
		ExchangeEnvironment string        `json:"exchange_environment"`
		FeeRate             float64       `json:"fee_rate"`
		RiskSettings        *RiskSettings `json:"risk_settings"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	acct := Account{
		Name:                req.Name,
		InitialCapital:      req.InitialCapital,
		Environment:         Environment(req.Environment),
		Automation:          Automation(req.Automation),
		ExchangeEnvironment: ExchangeEnvironment(req.ExchangeEnvironment),
		FeeRate:             req.FeeRate,
	}
	if req.RiskSettings != nil {
		acct.Risk = *req.RiskSettings
	}

	created, err := h.svc.Create(acct)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to create account")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(created); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode response")
	}
}

// HandleSetEnvironment switches an account between simulation and live
// PUT /api/accounts/{id}/environment
func (h *Handlers) HandleSetEnvironment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Environment string `json:"environment"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	env, err := EnvironmentFromString(req.Environment)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.svc.SetEnvironment(id, env); err != nil {
		h.respondError(w, err, "Failed to set environment")
		return
	}

	writeJSON(w, h.log, map[string]string{"id": id, "environment": string(env)})
}

// HandleSetAutomation changes an account's automation level
// PUT /api/accounts/{id}/automation
func (h *Handlers) HandleSetAutomation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Automation string `json:"automation"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	automation, err := AutomationFromString(req.Automation)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.svc.SetAutomation(id, automation); err != nil {
		h.respondError(w, err, "Failed to set automation")
		return
	}

	writeJSON(w, h.log, map[string]string{"id": id, "automation": string(automation)})
}

// HandleUpdateRiskSettings replaces an account's risk limits
// PUT /api/accounts/{id}/risk-settings
func (h *Handlers) HandleUpdateRiskSettings(w http.ResponseWriter, r *http.Request) {
	var settings RiskSettings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := settings.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.svc.UpdateRiskSettings(id, settings); err != nil {
		h.respondError(w, err, "Failed to update risk settings")
		return
	}

	writeJSON(w, h.log, map[string]interface{}{"id": id, "risk_settings": settings})
}

func (h *Handlers) respondError(w http.ResponseWriter, err error, message string) {
	if errors.Is(err, ErrNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	h.log.Error().Err(err).Msg(message)
	http.Error(w, message, http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, log zerolog.Logger, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
