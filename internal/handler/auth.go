package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/chorespec/chorespec/internal/store"
)

type AuthHandler struct {
	users  *store.UserStore
	logger *slog.Logger
}

func NewAuthHandler(users *store.UserStore, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{users: users, logger: logger}
}

type loginRequest struct {
	Nickname string `json:"nickname"`
	PIN      string `json:"pin"`
}

// Login checks nickname + PIN and returns the user with their role.
// Wrong nickname and wrong PIN return the same message, so the
// endpoint leaks nothing about which part failed.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Nickname = strings.TrimSpace(req.Nickname)
	if req.Nickname == "" || req.PIN == "" {
		writeError(w, http.StatusBadRequest, "nickname and pin are required")
		return
	}

	user, err := h.users.GetByNickname(req.Nickname)
	if err != nil {
		h.logger.Error("login lookup", "error", err)
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}
	if user == nil {
		writeError(w, http.StatusUnauthorized, "invalid nickname or PIN")
		return
	}

	hash, err := h.users.GetPINHash(user.ID)
	if err != nil {
		h.logger.Error("login pin lookup", "user_id", user.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.PIN)) != nil {
		writeError(w, http.StatusUnauthorized, "invalid nickname or PIN")
		return
	}

	h.logger.Info("login", "user_id", user.ID, "nickname", user.Nickname)
	writeJSON(w, http.StatusOK, user)
}
