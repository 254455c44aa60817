package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/chorespec/chorespec/internal/database"
	"github.com/chorespec/chorespec/internal/store"
)

func setupAuthHandler(t *testing.T) *AuthHandler {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	hash, err := bcrypt.GenerateFromPassword([]byte("1234"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash pin: %v", err)
	}
	if _, err := store.NewUserStore(db).Create("alice", string(hash), 2); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return NewAuthHandler(store.NewUserStore(db), slog.Default())
}

func login(t *testing.T, h *AuthHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", "/login/", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Login(rec, req)
	return rec
}

func TestLoginSuccess(t *testing.T) {
	h := setupAuthHandler(t)

	rec := login(t, h, `{"nickname": "alice", "pin": "1234"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var user struct {
		Nickname string `json:"nickname"`
		Role     *struct {
			Name string `json:"name"`
		} `json:"role"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &user); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if user.Nickname != "alice" {
		t.Errorf("nickname = %q, want alice", user.Nickname)
	}
	if user.Role == nil || user.Role.Name != "Child" {
		t.Errorf("role = %+v, want Child", user.Role)
	}
	if strings.Contains(rec.Body.String(), "login_pin") {
		t.Error("response leaks the PIN hash")
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	h := setupAuthHandler(t)

	wrongPIN := login(t, h, `{"nickname": "alice", "pin": "9999"}`)
	unknownUser := login(t, h, `{"nickname": "mallory", "pin": "1234"}`)

	for name, rec := range map[string]*httptest.ResponseRecorder{
		"wrong pin": wrongPIN, "unknown user": unknownUser,
	} {
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s: status = %d, want 401", name, rec.Code)
		}
	}
	// Same body for both failure modes.
	if wrongPIN.Body.String() != unknownUser.Body.String() {
		t.Errorf("bodies differ: %q vs %q", wrongPIN.Body.String(), unknownUser.Body.String())
	}
}

func TestLoginValidation(t *testing.T) {
	h := setupAuthHandler(t)

	if rec := login(t, h, `{"nickname": "", "pin": "1234"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("empty nickname: status = %d, want 400", rec.Code)
	}
	if rec := login(t, h, `not json`); rec.Code != http.StatusBadRequest {
		t.Errorf("bad json: status = %d, want 400", rec.Code)
	}
}
