package controllers

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/approvalflow/approvalflow/internal/util"
	"github.com/approvalflow/approvalflow/pkg/approvalflow/domain"
	"github.com/approvalflow/approvalflow/pkg/approvalflow/models"
)

type UsersController struct {
	AuthController
	validate *validator.Validate
}

func NewUsersController(userRepo UserRepo) *UsersController {
	return &UsersController{
		validate: validator.New(validator.WithRequiredStructEnabled()),
		AuthController: AuthController{
			UserRepo: userRepo,
		},
	}
}

func (c *UsersController) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := c.UserRepo.FindAll()
	if err != nil {
		slog.Error("Failed to list users", "error", err)
		util.WriteJSONError(w, http.StatusInternalServerError, "failed to list users")
		return
	}
	util.WriteJSONResponse(w, http.StatusOK, users)
}

func (c *UsersController) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		util.WriteJSONError(w, http.StatusBadRequest, "id is an integer")
		return
	}
	u, err := c.UserRepo.FindById(id)
	if err != nil {
		slog.Error("Failed to get user", "error", err, "id", id)
		util.WriteJSONError(w, http.StatusInternalServerError, "failed to get user")
		return
	}
	if u == nil {
		util.WriteJSONError(w, http.StatusNotFound, "user not found")
		return
	}
	util.WriteJSONResponse(w, http.StatusOK, u)
}

func (c *UsersController) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	req, err := util.DecodeJSONBody[models.CreateUserRequest](r)
	if err != nil {
		util.WriteJSONError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if err := c.validate.Struct(req); err != nil {
		util.WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	existing, err := c.UserRepo.FindByUsername(req.Username)
	if err != nil {
		slog.Error("Failed to check username", "error", err)
		util.WriteJSONError(w, http.StatusInternalServerError, "failed to create user")
		return
	}
	if existing != nil {
		util.WriteJSONError(w, http.StatusConflict, "username already exists")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		slog.Error("Failed to hash password", "error", err)
		util.WriteJSONError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	u := &domain.User{
		Username: req.Username,
		Password: string(hash),
		RoleID:   req.RoleID,
		Enabled:  sql.NullBool{Bool: true, Valid: true},
	}
	if req.ApiKey != "" {
		u.ApiKey = sql.NullString{String: req.ApiKey, Valid: true}
	}
	if _, err := c.UserRepo.Save(u); err != nil {
		slog.Error("Failed to create user", "error", err, "username", req.Username)
		util.WriteJSONError(w, http.StatusInternalServerError, "failed to create user")
		return
	}
	util.WriteJSONResponse(w, http.StatusCreated, u)
}

func (c *UsersController) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		util.WriteJSONError(w, http.StatusBadRequest, "id is an integer")
		return
	}
	acting, err := c.actingUser(r)
	if err != nil {
		slog.Error("Failed to resolve acting user", "error", err)
		util.WriteJSONError(w, http.StatusInternalServerError, "failed to delete user")
		return
	}
	if acting != nil && acting.ID == id {
		util.WriteJSONError(w, http.StatusConflict, "cannot delete the authenticated user")
		return
	}
	actions, err := c.UserRepo.CountActions(id)
	if err != nil {
		slog.Error("Failed to count user actions", "error", err, "id", id)
		util.WriteJSONError(w, http.StatusInternalServerError, "failed to delete user")
		return
	}
	if actions > 0 {
		// The action log is append-only; a user with history stays.
		util.WriteJSONError(w, http.StatusConflict, "user is referenced by workflow actions")
		return
	}
	if err := c.UserRepo.DeleteById(id); err != nil {
		slog.Error("Failed to delete user", "error", err, "id", id)
		util.WriteJSONError(w, http.StatusInternalServerError, "failed to delete user")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
