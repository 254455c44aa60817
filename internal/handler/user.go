package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"

	"github.com/chorespec/chorespec/internal/model"
	"github.com/chorespec/chorespec/internal/store"
)

type UserHandler struct {
	users   *store.UserStore
	roles   *store.RoleStore
	rewards *store.RewardStore
	logger  *slog.Logger
}

func NewUserHandler(users *store.UserStore, roles *store.RoleStore, rewards *store.RewardStore, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, roles: roles, rewards: rewards, logger: logger}
}

type createUserRequest struct {
	Nickname string `json:"nickname"`
	PIN      string `json:"pin"`
	RoleID   int64  `json:"role_id"`
}

func validPIN(pin string) bool {
	if len(pin) != 4 {
		return false
	}
	for _, r := range pin {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Nickname = strings.TrimSpace(req.Nickname)
	if req.Nickname == "" {
		writeError(w, http.StatusBadRequest, "nickname is required")
		return
	}
	if !validPIN(req.PIN) {
		writeError(w, http.StatusBadRequest, "pin must be exactly 4 digits")
		return
	}

	role, err := h.roles.GetByID(req.RoleID)
	if err != nil {
		h.logger.Error("load role", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create user")
		return
	}
	if role == nil {
		writeError(w, http.StatusBadRequest, "role not found")
		return
	}

	existing, err := h.users.GetByNickname(req.Nickname)
	if err != nil {
		h.logger.Error("check nickname", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create user")
		return
	}
	if existing != nil {
		writeError(w, http.StatusConflict, "nickname already taken")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.PIN), bcrypt.DefaultCost)
	if err != nil {
		h.logger.Error("hash pin", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	user, err := h.users.Create(req.Nickname, string(hash), req.RoleID)
	if err != nil {
		h.logger.Error("create user", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List()
	if err != nil {
		h.logger.Error("list users", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list users")
		return
	}
	if users == nil {
		users = []model.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	user, err := h.users.GetByID(id)
	if err != nil {
		h.logger.Error("get user", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get user")
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// SetGoal pins a reward as the user's savings goal.
func (h *UserHandler) SetGoal(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req struct {
		RewardID int64 `json:"reward_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	reward, err := h.rewards.GetByID(req.RewardID)
	if err != nil {
		h.logger.Error("load reward", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to set goal")
		return
	}
	if reward == nil {
		writeError(w, http.StatusNotFound, "reward not found")
		return
	}

	existing, err := h.users.GetByID(id)
	if err != nil {
		h.logger.Error("get user", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to set goal")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}

	user, err := h.users.SetGoal(id, req.RewardID)
	if err != nil {
		h.logger.Error("set goal", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to set goal")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// UpdateLanguage sets or clears the user's preferred language.
func (h *UserHandler) UpdateLanguage(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req struct {
		PreferredLanguage *string `json:"preferred_language"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.PreferredLanguage != nil {
		lang := *req.PreferredLanguage
		if lang != "" && lang != "en" && lang != "de" {
			writeError(w, http.StatusBadRequest, "preferred_language must be en or de")
			return
		}
	}

	existing, err := h.users.GetByID(id)
	if err != nil {
		h.logger.Error("get user", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update language")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}

	user, err := h.users.UpdateLanguage(id, req.PreferredLanguage)
	if err != nil {
		h.logger.Error("update language", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update language")
		return
	}
	writeJSON(w, http.StatusOK, user)
}
