package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/chorespec/chorespec/internal/model"
	"github.com/chorespec/chorespec/internal/store"
)

type RoleHandler struct {
	roles  *store.RoleStore
	users  *store.UserStore
	logger *slog.Logger
}

func NewRoleHandler(roles *store.RoleStore, users *store.UserStore, logger *slog.Logger) *RoleHandler {
	return &RoleHandler{roles: roles, users: users, logger: logger}
}

type roleRequest struct {
	Name            string  `json:"name"`
	MultiplierValue float64 `json:"multiplier_value"`
}

func (h *RoleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req roleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.MultiplierValue < 0.1 {
		writeError(w, http.StatusBadRequest, "multiplier_value must be >= 0.1")
		return
	}

	existing, err := h.roles.GetByName(req.Name)
	if err != nil {
		h.logger.Error("check role name", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create role")
		return
	}
	if existing != nil {
		writeError(w, http.StatusConflict, "role name already exists")
		return
	}

	role, err := h.roles.Create(req.Name, req.MultiplierValue)
	if err != nil {
		h.logger.Error("create role", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create role")
		return
	}
	writeJSON(w, http.StatusCreated, role)
}

func (h *RoleHandler) List(w http.ResponseWriter, r *http.Request) {
	roles, err := h.roles.List()
	if err != nil {
		h.logger.Error("list roles", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list roles")
		return
	}
	if roles == nil {
		roles = []model.Role{}
	}
	writeJSON(w, http.StatusOK, roles)
}

func (h *RoleHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req roleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.MultiplierValue < 0.1 {
		writeError(w, http.StatusBadRequest, "multiplier_value must be >= 0.1")
		return
	}

	existing, err := h.roles.GetByID(id)
	if err != nil {
		h.logger.Error("get role", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update role")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "role not found")
		return
	}

	role, err := h.roles.UpdateMultiplier(id, req.MultiplierValue)
	if err != nil {
		h.logger.Error("update role", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update role")
		return
	}
	writeJSON(w, http.StatusOK, role)
}

// Delete removes a role. When users still hold it, the request must
// name a reassignment role; the role's tasks drop to unassigned.
func (h *RoleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.roles.GetByID(id)
	if err != nil {
		h.logger.Error("get role", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete role")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "role not found")
		return
	}

	var req struct {
		ReassignToRoleID *int64 `json:"reassign_to_role_id"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON")
			return
		}
	}

	holders, err := h.roles.CountUsers(id)
	if err != nil {
		h.logger.Error("count role users", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete role")
		return
	}
	if holders > 0 {
		if req.ReassignToRoleID == nil {
			writeError(w, http.StatusBadRequest, "role has users; reassign_to_role_id is required")
			return
		}
		if *req.ReassignToRoleID == id {
			writeError(w, http.StatusBadRequest, "cannot reassign users to the role being deleted")
			return
		}
		target, err := h.roles.GetByID(*req.ReassignToRoleID)
		if err != nil {
			h.logger.Error("get reassignment role", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to delete role")
			return
		}
		if target == nil {
			writeError(w, http.StatusBadRequest, "reassignment role not found")
			return
		}
	}

	moved, detached, err := h.roles.DeleteReassigning(id, req.ReassignToRoleID)
	if err != nil {
		h.logger.Error("delete role", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete role")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Role deleted successfully. %d users reassigned, %d tasks updated.", moved, detached),
	})
}

// ListUsers returns the members currently holding the role.
func (h *RoleHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	role, err := h.roles.GetByID(id)
	if err != nil {
		h.logger.Error("get role", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list role users")
		return
	}
	if role == nil {
		writeError(w, http.StatusNotFound, "role not found")
		return
	}

	users, err := h.users.ListByRole(id)
	if err != nil {
		h.logger.Error("list role users", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list role users")
		return
	}
	if users == nil {
		users = []model.User{}
	}
	writeJSON(w, http.StatusOK, users)
}
