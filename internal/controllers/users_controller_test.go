package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/approvalflow/approvalflow/pkg/approvalflow/core"
	"github.com/approvalflow/approvalflow/pkg/approvalflow/domain"
)

func TestUsersController_Create(t *testing.T) {
	var saved *domain.User
	userRepo := &MockUserRepo{
		SaveFunc: func(user *domain.User) (int64, error) {
			user.ID = 2
			saved = user
			return 2, nil
		},
	}
	c := NewUsersController(userRepo)

	req := httptest.NewRequest("POST", "/api/users", strings.NewReader(`{"username":"fin","password":"longenough","roleId":2}`))
	w := httptest.NewRecorder()
	c.handleCreateUser(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	if saved == nil {
		t.Fatal("user was not saved")
	}
	if saved.Password == "longenough" {
		t.Error("password must be stored hashed")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(saved.Password), []byte("longenough")); err != nil {
		t.Errorf("stored hash does not match password: %v", err)
	}
	// The hash must never appear in the response.
	var resp map[string]any
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	for k := range resp {
		if strings.EqualFold(k, "password") {
			t.Error("response must not contain the password field")
		}
	}
}

func TestUsersController_Create_ShortPassword(t *testing.T) {
	c := NewUsersController(&MockUserRepo{})

	req := httptest.NewRequest("POST", "/api/users", strings.NewReader(`{"username":"fin","password":"short","roleId":2}`))
	w := httptest.NewRecorder()
	c.handleCreateUser(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestUsersController_Create_DuplicateUsername(t *testing.T) {
	userRepo := &MockUserRepo{
		FindByUsernameFunc: func(username string) (*domain.User, error) {
			return &domain.User{ID: 1, Username: username}, nil
		},
	}
	c := NewUsersController(userRepo)

	req := httptest.NewRequest("POST", "/api/users", strings.NewReader(`{"username":"fin","password":"longenough","roleId":2}`))
	w := httptest.NewRecorder()
	c.handleCreateUser(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("Expected status 409, got %d", w.Code)
	}
}

func TestUsersController_Delete_WithActions(t *testing.T) {
	userRepo := &MockUserRepo{
		FindByUsernameFunc: func(username string) (*domain.User, error) {
			return &domain.User{ID: 1, Username: username}, nil
		},
		CountActionsFunc: func(userID int64) (int, error) {
			return 3, nil
		},
		DeleteByIdFunc: func(id int64) error {
			t.Errorf("DeleteById called for a user with actions")
			return nil
		},
	}
	c := NewUsersController(userRepo)

	req := httptest.NewRequest("DELETE", "/api/users/5", nil)
	req.SetPathValue("id", "5")
	ctx := context.WithValue(req.Context(), core.CtxKeyUsername, "mandy")
	w := httptest.NewRecorder()
	c.handleDeleteUser(w, req.WithContext(ctx))

	if w.Code != http.StatusConflict {
		t.Errorf("Expected status 409, got %d", w.Code)
	}
}

func TestUsersController_Delete_CountFails(t *testing.T) {
	userRepo := &MockUserRepo{
		FindByUsernameFunc: func(username string) (*domain.User, error) {
			return &domain.User{ID: 1, Username: username}, nil
		},
		CountActionsFunc: func(userID int64) (int, error) {
			return 0, errors.New("disk I/O error")
		},
	}
	c := NewUsersController(userRepo)

	req := httptest.NewRequest("DELETE", "/api/users/5", nil)
	req.SetPathValue("id", "5")
	ctx := context.WithValue(req.Context(), core.CtxKeyUsername, "mandy")
	w := httptest.NewRecorder()
	c.handleDeleteUser(w, req.WithContext(ctx))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", w.Code)
	}
}

func TestUsersController_Delete_NoActions(t *testing.T) {
	deleted := false
	userRepo := &MockUserRepo{
		FindByUsernameFunc: func(username string) (*domain.User, error) {
			return &domain.User{ID: 1, Username: username}, nil
		},
		DeleteByIdFunc: func(id int64) error {
			deleted = true
			return nil
		},
	}
	c := NewUsersController(userRepo)

	req := httptest.NewRequest("DELETE", "/api/users/5", nil)
	req.SetPathValue("id", "5")
	ctx := context.WithValue(req.Context(), core.CtxKeyUsername, "mandy")
	w := httptest.NewRecorder()
	c.handleDeleteUser(w, req.WithContext(ctx))

	if w.Code != http.StatusNoContent {
		t.Errorf("Expected status 204, got %d", w.Code)
	}
	if !deleted {
		t.Errorf("Expected DeleteById to be called")
	}
}

func TestUsersController_Delete_Self(t *testing.T) {
	userRepo := &MockUserRepo{
		FindByUsernameFunc: func(username string) (*domain.User, error) {
			return &domain.User{ID: 5, Username: username}, nil
		},
	}
	c := NewUsersController(userRepo)

	req := httptest.NewRequest("DELETE", "/api/users/5", nil)
	req.SetPathValue("id", "5")
	ctx := context.WithValue(req.Context(), core.CtxKeyUsername, "mandy")
	w := httptest.NewRecorder()
	c.handleDeleteUser(w, req.WithContext(ctx))

	if w.Code != http.StatusConflict {
		t.Errorf("Expected status 409, got %d", w.Code)
	}
}
