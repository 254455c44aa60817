package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/chorespec/chorespec/internal/events"
	"github.com/chorespec/chorespec/internal/model"
	"github.com/chorespec/chorespec/internal/points"
	"github.com/chorespec/chorespec/internal/schedule"
	"github.com/chorespec/chorespec/internal/store"
)

type TaskHandler struct {
	tasks         *store.TaskStore
	instances     *store.InstanceStore
	users         *store.UserStore
	roles         *store.RoleStore
	notifications *store.NotificationStore
	engine        *points.Engine
	generator     *schedule.Generator
	broker        *events.Broker
	logger        *slog.Logger
}

func NewTaskHandler(tasks *store.TaskStore, instances *store.InstanceStore, users *store.UserStore,
	roles *store.RoleStore, notifications *store.NotificationStore, engine *points.Engine,
	generator *schedule.Generator, broker *events.Broker, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{
		tasks:         tasks,
		instances:     instances,
		users:         users,
		roles:         roles,
		notifications: notifications,
		engine:        engine,
		generator:     generator,
		broker:        broker,
		logger:        logger,
	}
}

type taskRequest struct {
	Name                      string `json:"name"`
	Description               string `json:"description"`
	BasePoints                int    `json:"base_points"`
	AssignedRoleID            *int64 `json:"assigned_role_id"`
	ScheduleType              string `json:"schedule_type"`
	DefaultDueTime            string `json:"default_due_time"`
	RecurrenceMinDays         *int   `json:"recurrence_min_days"`
	RecurrenceMaxDays         *int   `json:"recurrence_max_days"`
	RequiresPhotoVerification bool   `json:"requires_photo_verification"`
}

var weekdayNames = map[string]bool{
	"Monday": true, "Tuesday": true, "Wednesday": true, "Thursday": true,
	"Friday": true, "Saturday": true, "Sunday": true,
}

func validDailyTime(s string) bool {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return false
	}
	hour, err1 := strconv.Atoi(parts[0])
	minute, err2 := strconv.Atoi(parts[1])
	return err1 == nil && err2 == nil && hour >= 0 && hour < 24 && minute >= 0 && minute < 60
}

// validateTask enforces the schedule rules: daily tasks carry an HH:MM
// due time, weekly tasks a weekday name, recurring tasks a min/max
// cooldown in 1..365 days with min <= max.
func validateTask(req *taskRequest) string {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || len(req.Name) > 100 {
		return "name must be 1-100 characters"
	}
	if req.Description == "" || len(req.Description) > 500 {
		return "description must be 1-500 characters"
	}
	if req.BasePoints < 1 || req.BasePoints > 1000 {
		return "base_points must be 1-1000"
	}

	switch req.ScheduleType {
	case model.ScheduleDaily:
		if !validDailyTime(req.DefaultDueTime) {
			return "for daily tasks, default_due_time must be in HH:MM format"
		}
	case model.ScheduleWeekly:
		if !weekdayNames[req.DefaultDueTime] {
			return "for weekly tasks, default_due_time must be a day name (Monday-Sunday)"
		}
	case model.ScheduleRecurring:
		if req.RecurrenceMinDays == nil || req.RecurrenceMaxDays == nil {
			return "for recurring tasks, recurrence_min_days and recurrence_max_days are required"
		}
		min, max := *req.RecurrenceMinDays, *req.RecurrenceMaxDays
		if min < 1 || min > 365 || max < 1 || max > 365 {
			return "recurrence days must be 1-365"
		}
		if min > max {
			return "recurrence_min_days must be <= recurrence_max_days"
		}
	default:
		return `schedule_type must be "daily", "weekly", or "recurring"`
	}
	return ""
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if msg := validateTask(&req); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	if req.AssignedRoleID != nil {
		role, err := h.roles.GetByID(*req.AssignedRoleID)
		if err != nil {
			h.logger.Error("load role", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to create task")
			return
		}
		if role == nil {
			writeError(w, http.StatusBadRequest, "assigned role not found")
			return
		}
	}

	task, err := h.tasks.Create(model.Task{
		Name:                      req.Name,
		Description:               req.Description,
		BasePoints:                req.BasePoints,
		AssignedRoleID:            req.AssignedRoleID,
		ScheduleType:              req.ScheduleType,
		DefaultDueTime:            req.DefaultDueTime,
		RecurrenceMinDays:         req.RecurrenceMinDays,
		RecurrenceMaxDays:         req.RecurrenceMaxDays,
		RequiresPhotoVerification: req.RequiresPhotoVerification,
	})
	if err != nil {
		h.logger.Error("create task", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create task")
		return
	}

	h.broker.Publish("task_created", map[string]any{"task_id": task.ID, "name": task.Name})
	writeJSON(w, http.StatusCreated, task)
}

func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.tasks.List()
	if err != nil {
		h.logger.Error("list tasks", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list tasks")
		return
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.tasks.GetByID(id)
	if err != nil {
		h.logger.Error("get task", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update task")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}

	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if msg := validateTask(&req); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	task, err := h.tasks.Update(id, model.Task{
		Name:                      req.Name,
		Description:               req.Description,
		BasePoints:                req.BasePoints,
		AssignedRoleID:            req.AssignedRoleID,
		ScheduleType:              req.ScheduleType,
		DefaultDueTime:            req.DefaultDueTime,
		RecurrenceMinDays:         req.RecurrenceMinDays,
		RecurrenceMaxDays:         req.RecurrenceMaxDays,
		RequiresPhotoVerification: req.RequiresPhotoVerification,
	})
	if err != nil {
		h.logger.Error("update task", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update task")
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.tasks.GetByID(id)
	if err != nil {
		h.logger.Error("get task", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete task")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}

	if err := h.tasks.Delete(id); err != nil {
		h.logger.Error("delete task", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete task")
		return
	}

	h.broker.Publish("task_deleted", map[string]any{"task_id": id})
	writeJSON(w, http.StatusOK, map[string]string{"message": fmt.Sprintf("Task %d deleted successfully", id)})
}

// exportDocument is the portable task backup format.
type exportDocument struct {
	Version string           `json:"version"`
	Tasks   []exportTaskItem `json:"tasks"`
}

type exportTaskItem struct {
	Name                      string  `json:"name"`
	Description               string  `json:"description"`
	BasePoints                int     `json:"base_points"`
	AssignedRole              *string `json:"assigned_role,omitempty"`
	ScheduleType              string  `json:"schedule_type"`
	DefaultDueTime            string  `json:"default_due_time"`
	RecurrenceMinDays         *int    `json:"recurrence_min_days,omitempty"`
	RecurrenceMaxDays         *int    `json:"recurrence_max_days,omitempty"`
	RequiresPhotoVerification bool    `json:"requires_photo_verification"`
}

// Export dumps all task templates as a portable JSON document. Roles
// are referenced by name so the document survives re-import into a
// database with different ids.
func (h *TaskHandler) Export(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.tasks.List()
	if err != nil {
		h.logger.Error("list tasks", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to export tasks")
		return
	}

	doc := exportDocument{Version: "1.0", Tasks: make([]exportTaskItem, 0, len(tasks))}
	roleNames := make(map[int64]string)
	for i := range tasks {
		t := &tasks[i]
		item := exportTaskItem{
			Name:                      t.Name,
			Description:               t.Description,
			BasePoints:                t.BasePoints,
			ScheduleType:              t.ScheduleType,
			DefaultDueTime:            t.DefaultDueTime,
			RecurrenceMinDays:         t.RecurrenceMinDays,
			RecurrenceMaxDays:         t.RecurrenceMaxDays,
			RequiresPhotoVerification: t.RequiresPhotoVerification,
		}
		if t.AssignedRoleID != nil {
			name, ok := roleNames[*t.AssignedRoleID]
			if !ok {
				role, err := h.roles.GetByID(*t.AssignedRoleID)
				if err != nil {
					h.logger.Error("load role", "error", err)
					writeError(w, http.StatusInternalServerError, "failed to export tasks")
					return
				}
				if role != nil {
					name = role.Name
					roleNames[*t.AssignedRoleID] = name
				}
			}
			if name != "" {
				item.AssignedRole = &name
			}
		}
		doc.Tasks = append(doc.Tasks, item)
	}
	writeJSON(w, http.StatusOK, doc)
}

type importRequest struct {
	Tasks          []exportTaskItem `json:"tasks"`
	SkipDuplicates bool             `json:"skip_duplicates"`
}

type importResult struct {
	Success bool     `json:"success"`
	Summary string   `json:"summary"`
	Created []string `json:"created"`
	Skipped []string `json:"skipped"`
	Errors  []string `json:"errors"`
}

// Import creates tasks from an exported document, reporting per item.
// With skip_duplicates set, an existing task of the same name is
// skipped instead of erroring.
func (h *TaskHandler) Import(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if len(req.Tasks) == 0 {
		writeError(w, http.StatusBadRequest, "no tasks to import")
		return
	}

	result := importResult{Created: []string{}, Skipped: []string{}, Errors: []string{}}
	for _, item := range req.Tasks {
		tr := taskRequest{
			Name:                      item.Name,
			Description:               item.Description,
			BasePoints:                item.BasePoints,
			ScheduleType:              normalizeScheduleType(item.ScheduleType),
			DefaultDueTime:            item.DefaultDueTime,
			RecurrenceMinDays:         item.RecurrenceMinDays,
			RecurrenceMaxDays:         item.RecurrenceMaxDays,
			RequiresPhotoVerification: item.RequiresPhotoVerification,
		}

		// A "weekly" task carrying an HH:MM time instead of a weekday
		// is treated as every-7-days recurring, preserving the time.
		if tr.ScheduleType == model.ScheduleWeekly && validDailyTime(tr.DefaultDueTime) {
			seven := 7
			tr.ScheduleType = model.ScheduleRecurring
			tr.RecurrenceMinDays = &seven
			tr.RecurrenceMaxDays = &seven
		}

		if msg := validateTask(&tr); msg != "" {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %s", item.Name, msg))
			continue
		}

		exists, err := h.tasks.NameExists(tr.Name)
		if err != nil {
			h.logger.Error("check task name", "error", err)
			result.Errors = append(result.Errors, fmt.Sprintf("%s: lookup failed", tr.Name))
			continue
		}
		if exists {
			if req.SkipDuplicates {
				result.Skipped = append(result.Skipped, tr.Name)
				continue
			}
			result.Errors = append(result.Errors, fmt.Sprintf("%s: already exists", tr.Name))
			continue
		}

		if item.AssignedRole != nil && *item.AssignedRole != "" {
			role, err := h.roles.GetByName(*item.AssignedRole)
			if err != nil {
				h.logger.Error("load role by name", "error", err)
				result.Errors = append(result.Errors, fmt.Sprintf("%s: role lookup failed", tr.Name))
				continue
			}
			if role == nil {
				result.Errors = append(result.Errors, fmt.Sprintf("%s: role %q not found", tr.Name, *item.AssignedRole))
				continue
			}
			tr.AssignedRoleID = &role.ID
		}

		if _, err := h.tasks.Create(model.Task{
			Name:                      tr.Name,
			Description:               tr.Description,
			BasePoints:                tr.BasePoints,
			AssignedRoleID:            tr.AssignedRoleID,
			ScheduleType:              tr.ScheduleType,
			DefaultDueTime:            tr.DefaultDueTime,
			RecurrenceMinDays:         tr.RecurrenceMinDays,
			RecurrenceMaxDays:         tr.RecurrenceMaxDays,
			RequiresPhotoVerification: tr.RequiresPhotoVerification,
		}); err != nil {
			h.logger.Error("import task", "name", tr.Name, "error", err)
			result.Errors = append(result.Errors, fmt.Sprintf("%s: create failed", tr.Name))
			continue
		}
		result.Created = append(result.Created, tr.Name)
	}

	result.Success = len(result.Errors) == 0
	result.Summary = fmt.Sprintf("%d created, %d skipped, %d errors",
		len(result.Created), len(result.Skipped), len(result.Errors))
	writeJSON(w, http.StatusOK, result)
}

// normalizeScheduleType maps localized schedule names onto the
// canonical ones, so documents exported from a German UI import
// cleanly.
func normalizeScheduleType(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "daily", "täglich":
		return model.ScheduleDaily
	case "weekly", "wöchentlich":
		return model.ScheduleWeekly
	case "recurring", "wiederkehrend":
		return model.ScheduleRecurring
	default:
		return strings.ToLower(strings.TrimSpace(s))
	}
}

// DailyReset generates today's instances on demand.
func (h *TaskHandler) DailyReset(w http.ResponseWriter, r *http.Request) {
	count, err := h.generator.Run()
	if err != nil {
		h.logger.Error("daily reset", "error", err)
		writeError(w, http.StatusInternalServerError, "daily reset failed")
		return
	}

	h.broker.Publish("daily_reset", map[string]any{"created": count})
	writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Daily reset complete. Created %d task instances.", count),
	})
}

// ListDaily returns the user's pending instances for today.
func (h *TaskHandler) ListDaily(w http.ResponseWriter, r *http.Request) {
	userID, err := parseIDParam(r, "user_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	instances, err := h.instances.ListDailyForUser(userID, time.Now())
	if err != nil {
		h.logger.Error("list daily instances", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list daily tasks")
		return
	}
	if instances == nil {
		instances = []model.TaskInstance{}
	}
	writeJSON(w, http.StatusOK, instances)
}

// ListPending returns all open instances with task and user attached,
// for the family dashboard and the review queue.
func (h *TaskHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	instances, err := h.instances.ListPending()
	if err != nil {
		h.logger.Error("list pending instances", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list pending tasks")
		return
	}
	if instances == nil {
		instances = []model.TaskInstance{}
	}
	writeJSON(w, http.StatusOK, instances)
}

// parseActualUserID reads the optional actual_user_id query parameter
// used when a member claims another member's open task.
func parseActualUserID(r *http.Request) (*int64, error) {
	raw := r.URL.Query().Get("actual_user_id")
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// Complete finalizes an instance and awards points to the actor.
func (h *TaskHandler) Complete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "instance_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid instance id")
		return
	}
	actualUserID, err := parseActualUserID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid actual_user_id")
		return
	}

	result, err := h.engine.Complete(id, actualUserID)
	if err != nil {
		h.logger.Warn("complete instance", "instance_id", id, "error", err)
		writePointsError(w, err)
		return
	}

	h.notifyCompletion(result)
	h.broker.Publish("task_completed", map[string]any{
		"instance_id": id,
		"user_id":     result.UserID,
		"points":      result.AwardedPoints,
	})
	writeJSON(w, http.StatusOK, result)
}

// SubmitReview moves a photo-verified instance into the review queue.
func (h *TaskHandler) SubmitReview(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "instance_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid instance id")
		return
	}
	actualUserID, err := parseActualUserID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid actual_user_id")
		return
	}

	var req struct {
		PhotoURL string `json:"photo_url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.PhotoURL == "" {
		writeError(w, http.StatusBadRequest, "photo_url is required")
		return
	}

	instance, err := h.engine.SubmitForReview(id, actualUserID, req.PhotoURL)
	if err != nil {
		h.logger.Warn("submit review", "instance_id", id, "error", err)
		writePointsError(w, err)
		return
	}

	h.broker.Publish("task_in_review", map[string]any{"instance_id": id, "user_id": instance.UserID})
	writeJSON(w, http.StatusOK, instance)
}

// Approve accepts a submitted photo and awards the points.
func (h *TaskHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "instance_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid instance id")
		return
	}

	result, err := h.engine.Approve(id)
	if err != nil {
		h.logger.Warn("approve instance", "instance_id", id, "error", err)
		writePointsError(w, err)
		return
	}

	h.notifyCompletion(result)
	h.broker.Publish("task_completed", map[string]any{
		"instance_id": id,
		"user_id":     result.UserID,
		"points":      result.AwardedPoints,
	})
	writeJSON(w, http.StatusOK, result)
}

// Reject closes a submitted instance without points.
func (h *TaskHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "instance_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid instance id")
		return
	}

	instance, err := h.engine.Reject(id)
	if err != nil {
		h.logger.Warn("reject instance", "instance_id", id, "error", err)
		writePointsError(w, err)
		return
	}

	h.broker.Publish("task_rejected", map[string]any{"instance_id": id, "user_id": instance.UserID})
	writeJSON(w, http.StatusOK, instance)
}

// notifyCompletion writes a TASK_COMPLETED notification for every
// other family member. Failures are logged, never surfaced: the
// completion already committed.
func (h *TaskHandler) notifyCompletion(result *points.CompletionResult) {
	actor, err := h.users.GetByID(result.UserID)
	if err != nil || actor == nil {
		h.logger.Warn("load actor for notification", "user_id", result.UserID, "error", err)
		return
	}
	users, err := h.users.List()
	if err != nil {
		h.logger.Warn("list users for notification", "error", err)
		return
	}

	task, err := h.tasks.GetByID(result.Instance.TaskID)
	taskName := "a task"
	if err == nil && task != nil {
		taskName = fmt.Sprintf("%q", task.Name)
	}

	for _, u := range users {
		if u.ID == result.UserID {
			continue
		}
		if _, err := h.notifications.Create(
			u.ID, model.NotifyTaskCompleted,
			"Task completed",
			fmt.Sprintf("%s completed %s for %d points", actor.Nickname, taskName, result.AwardedPoints),
			nil,
		); err != nil {
			h.logger.Warn("notify completion", "user_id", u.ID, "error", err)
		}
	}
}
