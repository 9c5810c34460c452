package handler

import (
	"encoding/json"
	"net/http"

	"github.com/playground-ai/chat-playground/internal/model"
	"github.com/playground-ai/chat-playground/internal/store"
	"github.com/playground-ai/chat-playground/pkg/logger"
)

// SettingsHandler handles model selection and generation parameters.
type SettingsHandler struct {
	store  *store.Store
	logger *logger.Logger
}

// NewSettingsHandler creates a new settings handler.
func NewSettingsHandler(st *store.Store, log *logger.Logger) *SettingsHandler {
	return &SettingsHandler{
		store:  st,
		logger: log,
	}
}

// Models handles GET /api/v1/models
func (h *SettingsHandler) Models(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"models":          model.Catalog(),
		"selectedModelId": h.store.SelectedModelID(),
	})
}

// SelectModel handles PUT /api/v1/models/selected
// Selecting a catalog model resets maxTokens/temperature to its defaults.
func (h *SettingsHandler) SelectModel(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ModelID string `json:"model_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ModelID == "" {
		writeError(w, http.StatusBadRequest, "model_id is required")
		return
	}

	h.store.SetSelectedModel(req.ModelID)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"selectedModelId": h.store.SelectedModelID(),
		"parameters":      h.store.Parameters(),
	})
}

// Parameters handles GET /api/v1/parameters
func (h *SettingsHandler) Parameters(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.Parameters())
}

// updateParametersRequest uses pointers so omitted fields stay untouched.
type updateParametersRequest struct {
	MaxTokens        *int     `json:"maxTokens,omitempty"`
	Temperature      *float64 `json:"temperature,omitempty"`
	TopP             *float64 `json:"topP,omitempty"`
	FrequencyPenalty *float64 `json:"frequencyPenalty,omitempty"`
	PresencePenalty  *float64 `json:"presencePenalty,omitempty"`
}

// UpdateParameters handles PUT /api/v1/parameters
// Scalar setters only; range validation is an input-control concern.
func (h *SettingsHandler) UpdateParameters(w http.ResponseWriter, r *http.Request) {
	var req updateParametersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.MaxTokens != nil {
		h.store.SetMaxTokens(*req.MaxTokens)
	}
	if req.Temperature != nil {
		h.store.SetTemperature(*req.Temperature)
	}
	if req.TopP != nil {
		h.store.SetTopP(*req.TopP)
	}
	if req.FrequencyPenalty != nil {
		h.store.SetFrequencyPenalty(*req.FrequencyPenalty)
	}
	if req.PresencePenalty != nil {
		h.store.SetPresencePenalty(*req.PresencePenalty)
	}

	writeJSON(w, http.StatusOK, h.store.Parameters())
}

// Presets handles GET /api/v1/parameters/presets
func (h *SettingsHandler) Presets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, model.ParameterPresets)
}

// ApplyPreset handles POST /api/v1/parameters/preset
func (h *SettingsHandler) ApplyPreset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	preset, ok := model.PresetByName(req.Name)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown preset")
		return
	}

	h.store.ApplyParameterPreset(preset)
	writeJSON(w, http.StatusOK, h.store.Parameters())
}

// ClearState handles POST /api/v1/state/clear — the "forget everything"
// reset.
func (h *SettingsHandler) ClearState(w http.ResponseWriter, r *http.Request) {
	h.store.ClearState()
	w.WriteHeader(http.StatusNoContent)
}
