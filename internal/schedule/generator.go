// Package schedule generates task instances from their templates and
// runs the midnight reset that keeps each day's chore list fresh.
package schedule

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/chorespec/chorespec/internal/model"
	"github.com/chorespec/chorespec/internal/store"
)

// Generator materializes due TaskInstances from task templates. Runs
// are idempotent: an existing PENDING instance for the same task, user
// and day suppresses a new one.
type Generator struct {
	tasks         *store.TaskStore
	users         *store.UserStore
	instances     *store.InstanceStore
	notifications *store.NotificationStore
	logger        *slog.Logger

	// now is swappable in tests.
	now func() time.Time
}

func NewGenerator(db *sql.DB, logger *slog.Logger) *Generator {
	return &Generator{
		tasks:         store.NewTaskStore(db),
		users:         store.NewUserStore(db),
		instances:     store.NewInstanceStore(db),
		notifications: store.NewNotificationStore(db),
		logger:        logger,
		now:           time.Now,
	}
}

// Run generates instances for every eligible task template and returns
// how many it created.
//
// Eligibility per schedule type:
//   - daily: every run, due at the template's HH:MM time
//   - weekly: only when today's weekday matches default_due_time
//     (a day name like "Monday"), due at 23:59
//   - recurring: only when at least recurrence_min_days have passed
//     since the last completion by any user, due at 23:59
func (g *Generator) Run() (int, error) {
	now := g.now()
	tasks, err := g.tasks.List()
	if err != nil {
		return 0, fmt.Errorf("list tasks: %w", err)
	}

	created := 0
	for i := range tasks {
		task := &tasks[i]

		switch task.ScheduleType {
		case model.ScheduleWeekly:
			if task.DefaultDueTime != now.Weekday().String() {
				continue
			}
		case model.ScheduleRecurring:
			ready, err := g.cooldownElapsed(task, now)
			if err != nil {
				return created, err
			}
			if !ready {
				continue
			}
		}

		users, err := g.targetUsers(task)
		if err != nil {
			return created, err
		}

		dueTime := dueTimeFor(task, now)
		for _, user := range users {
			exists, err := g.instances.HasPendingForDay(task.ID, user.ID, now)
			if err != nil {
				return created, err
			}
			if exists {
				continue
			}

			instance, err := g.instances.Create(task.ID, user.ID, dueTime)
			if err != nil {
				return created, fmt.Errorf("create instance for task %d user %d: %w", task.ID, user.ID, err)
			}
			created++

			if _, err := g.notifications.Create(
				user.ID, model.NotifyTaskAssigned,
				"New task assigned",
				fmt.Sprintf("%q is due today", task.Name),
				nil,
			); err != nil {
				g.logger.Warn("notify task assigned", "instance_id", instance.ID, "error", err)
			}
		}
	}

	g.logger.Info("instance generation complete", "created", created)
	return created, nil
}

// cooldownElapsed reports whether a recurring task is out of its
// cooldown window. A task with no completion history is always ready.
func (g *Generator) cooldownElapsed(task *model.Task, now time.Time) (bool, error) {
	if task.RecurrenceMinDays == nil {
		return true, nil
	}
	last, err := g.instances.LastCompletion(task.ID)
	if err != nil {
		return false, err
	}
	if last == nil || last.CompletedAt == nil {
		return true, nil
	}

	// Compare calendar dates, not timestamps, so a completion late in
	// the evening still counts as a full day.
	completed := dateOf(*last.CompletedAt)
	today := dateOf(now)
	daysSince := int(today.Sub(completed).Hours() / 24)
	return daysSince >= *task.RecurrenceMinDays, nil
}

// targetUsers returns the users an instance should be created for:
// the assigned role's users, or everyone when the task is unassigned.
func (g *Generator) targetUsers(task *model.Task) ([]model.User, error) {
	if task.AssignedRoleID != nil {
		return g.users.ListByRole(*task.AssignedRoleID)
	}
	return g.users.List()
}

// dueTimeFor computes today's due time for the template. Daily tasks
// parse their HH:MM time, falling back to 17:00 on a malformed value;
// weekly and recurring tasks are due at end of day.
func dueTimeFor(task *model.Task, now time.Time) time.Time {
	if task.ScheduleType == model.ScheduleDaily {
		if t, err := time.Parse("15:04", task.DefaultDueTime); err == nil {
			return time.Date(now.Year(), now.Month(), now.Day(), t.Hour(), t.Minute(), 0, 0, now.Location())
		}
		return time.Date(now.Year(), now.Month(), now.Day(), 17, 0, 0, 0, now.Location())
	}
	return time.Date(now.Year(), now.Month(), now.Day(), 23, 59, 0, 0, now.Location())
}

func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
