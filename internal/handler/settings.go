package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/chorespec/chorespec/internal/store"
)

type SettingsHandler struct {
	settings *store.SettingsStore
	logger   *slog.Logger
}

func NewSettingsHandler(settings *store.SettingsStore, logger *slog.Logger) *SettingsHandler {
	return &SettingsHandler{settings: settings, logger: logger}
}

const defaultLanguageKey = "default_language"

// GetDefaultLanguage returns the household's fallback language.
func (h *SettingsHandler) GetDefaultLanguage(w http.ResponseWriter, r *http.Request) {
	setting, err := h.settings.Get(defaultLanguageKey)
	if err != nil {
		h.logger.Error("get default language", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get setting")
		return
	}
	if setting == nil {
		writeError(w, http.StatusNotFound, "setting not found")
		return
	}
	writeJSON(w, http.StatusOK, setting)
}

// SetDefaultLanguage updates the fallback language (en or de).
func (h *SettingsHandler) SetDefaultLanguage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Value string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Value != "en" && req.Value != "de" {
		writeError(w, http.StatusBadRequest, "value must be en or de")
		return
	}

	setting, err := h.settings.Set(defaultLanguageKey, req.Value, nil)
	if err != nil {
		h.logger.Error("set default language", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update setting")
		return
	}
	writeJSON(w, http.StatusOK, setting)
}
