package store

import (
	"database/sql"
	"testing"

	"github.com/chorespec/chorespec/internal/database"
	"github.com/chorespec/chorespec/internal/model"
)

func setupRoleTestDB(t *testing.T) (*RoleStore, *sql.DB) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewRoleStore(db), db
}

func TestRoleSeedData(t *testing.T) {
	rs, _ := setupRoleTestDB(t)

	roles, err := rs.List()
	if err != nil {
		t.Fatalf("list roles: %v", err)
	}
	if len(roles) != 2 {
		t.Fatalf("expected 2 seed roles, got %d", len(roles))
	}
	if roles[0].Name != "Parent" || roles[0].MultiplierValue != 1.5 {
		t.Errorf("roles[0] = %+v, want Parent x1.5", roles[0])
	}
	if roles[1].Name != "Child" || roles[1].MultiplierValue != 1.0 {
		t.Errorf("roles[1] = %+v, want Child x1.0", roles[1])
	}
}

func TestRoleCRUD(t *testing.T) {
	rs, _ := setupRoleTestDB(t)

	role, err := rs.Create("Teenager", 1.2)
	if err != nil {
		t.Fatalf("create role: %v", err)
	}
	if role.Name != "Teenager" || role.MultiplierValue != 1.2 {
		t.Errorf("role = %+v, want Teenager x1.2", role)
	}

	got, err := rs.GetByName("Teenager")
	if err != nil {
		t.Fatalf("get by name: %v", err)
	}
	if got == nil || got.ID != role.ID {
		t.Fatalf("get by name = %+v, want id %d", got, role.ID)
	}

	updated, err := rs.UpdateMultiplier(role.ID, 1.3)
	if err != nil {
		t.Fatalf("update multiplier: %v", err)
	}
	if updated.MultiplierValue != 1.3 {
		t.Errorf("multiplier = %v, want 1.3", updated.MultiplierValue)
	}

	missing, err := rs.GetByName("Ghost")
	if err != nil {
		t.Fatalf("get missing: %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for missing role, got %+v", missing)
	}
}

func TestDeleteReassigning(t *testing.T) {
	rs, db := setupRoleTestDB(t)

	role, err := rs.Create("Teenager", 1.2)
	if err != nil {
		t.Fatalf("create role: %v", err)
	}

	users := NewUserStore(db)
	u1, err := users.Create("alice", "hash", role.ID)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if _, err := users.Create("bob", "hash", role.ID); err != nil {
		t.Fatalf("create user: %v", err)
	}

	tasks := NewTaskStore(db)
	if _, err := tasks.Create(model.Task{
		Name: "Homework", Description: "d", BasePoints: 10,
		ScheduleType: model.ScheduleDaily, DefaultDueTime: "16:00",
		AssignedRoleID: &role.ID,
	}); err != nil {
		t.Fatalf("create task: %v", err)
	}

	childRole := int64(2)
	moved, detached, err := rs.DeleteReassigning(role.ID, &childRole)
	if err != nil {
		t.Fatalf("delete reassigning: %v", err)
	}
	if moved != 2 {
		t.Errorf("users moved = %d, want 2", moved)
	}
	if detached != 1 {
		t.Errorf("tasks detached = %d, want 1", detached)
	}

	gone, err := rs.GetByID(role.ID)
	if err != nil {
		t.Fatalf("get deleted role: %v", err)
	}
	if gone != nil {
		t.Errorf("role still exists: %+v", gone)
	}

	alice, err := users.GetByID(u1.ID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if alice.RoleID != childRole {
		t.Errorf("alice role = %d, want %d", alice.RoleID, childRole)
	}

	list, err := tasks.List()
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if len(list) != 1 || list[0].AssignedRoleID != nil {
		t.Errorf("task not detached: %+v", list)
	}
}

func TestCountUsers(t *testing.T) {
	rs, db := setupRoleTestDB(t)

	if n, err := rs.CountUsers(2); err != nil || n != 0 {
		t.Fatalf("empty count = %d, %v; want 0, nil", n, err)
	}

	users := NewUserStore(db)
	if _, err := users.Create("alice", "hash", 2); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if _, err := users.Create("bob", "hash", 2); err != nil {
		t.Fatalf("create user: %v", err)
	}

	n, err := rs.CountUsers(2)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 2 {
		t.Errorf("count = %d, want 2", n)
	}
}
