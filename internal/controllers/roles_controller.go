package controllers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/approvalflow/approvalflow/internal/repository"
	"github.com/approvalflow/approvalflow/internal/util"
	"github.com/approvalflow/approvalflow/pkg/approvalflow/domain"
	"github.com/approvalflow/approvalflow/pkg/approvalflow/models"
)

type RolesController struct {
	AuthController
	RoleRepo *repository.RoleRepository
	validate *validator.Validate
}

func NewRolesController(roleRepo *repository.RoleRepository, userRepo UserRepo) *RolesController {
	return &RolesController{
		RoleRepo: roleRepo,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		AuthController: AuthController{
			UserRepo: userRepo,
		},
	}
}

func (c *RolesController) handleListRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := c.RoleRepo.FindAll()
	if err != nil {
		slog.Error("Failed to list roles", "error", err)
		util.WriteJSONError(w, http.StatusInternalServerError, "failed to list roles")
		return
	}
	util.WriteJSONResponse(w, http.StatusOK, roles)
}

func (c *RolesController) handleGetRole(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		util.WriteJSONError(w, http.StatusBadRequest, "id is an integer")
		return
	}
	role, err := c.RoleRepo.FindByID(id)
	if err != nil {
		slog.Error("Failed to get role", "error", err, "id", id)
		util.WriteJSONError(w, http.StatusInternalServerError, "failed to get role")
		return
	}
	if role == nil {
		util.WriteJSONError(w, http.StatusNotFound, "role not found")
		return
	}
	util.WriteJSONResponse(w, http.StatusOK, role)
}

func (c *RolesController) handleCreateRole(w http.ResponseWriter, r *http.Request) {
	req, err := util.DecodeJSONBody[models.SaveRoleRequest](r)
	if err != nil {
		util.WriteJSONError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if err := c.validate.Struct(req); err != nil {
		util.WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	role := &domain.Role{Name: req.Name}
	if _, err := c.RoleRepo.Save(role); err != nil {
		slog.Error("Failed to create role", "error", err)
		util.WriteJSONError(w, http.StatusInternalServerError, "failed to create role")
		return
	}
	util.WriteJSONResponse(w, http.StatusCreated, role)
}

// handleRenameRole changes the role's display name. Identity is fixed once
// steps or users reference the role.
func (c *RolesController) handleRenameRole(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		util.WriteJSONError(w, http.StatusBadRequest, "id is an integer")
		return
	}
	req, err := util.DecodeJSONBody[models.SaveRoleRequest](r)
	if err != nil {
		util.WriteJSONError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if err := c.validate.Struct(req); err != nil {
		util.WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	role, err := c.RoleRepo.FindByID(id)
	if err != nil {
		slog.Error("Failed to get role", "error", err, "id", id)
		util.WriteJSONError(w, http.StatusInternalServerError, "failed to get role")
		return
	}
	if role == nil {
		util.WriteJSONError(w, http.StatusNotFound, "role not found")
		return
	}
	if err := c.RoleRepo.Rename(id, req.Name); err != nil {
		slog.Error("Failed to rename role", "error", err, "id", id)
		util.WriteJSONError(w, http.StatusInternalServerError, "failed to rename role")
		return
	}
	role.Name = req.Name
	util.WriteJSONResponse(w, http.StatusOK, role)
}

func (c *RolesController) handleDeleteRole(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		util.WriteJSONError(w, http.StatusBadRequest, "id is an integer")
		return
	}
	refs, err := c.RoleRepo.CountReferences(id)
	if err != nil {
		slog.Error("Failed to count role references", "error", err, "id", id)
		util.WriteJSONError(w, http.StatusInternalServerError, "failed to delete role")
		return
	}
	if refs > 0 {
		util.WriteJSONError(w, http.StatusConflict, "role is referenced by steps or users")
		return
	}
	if err := c.RoleRepo.DeleteById(id); err != nil {
		slog.Error("Failed to delete role", "error", err, "id", id)
		util.WriteJSONError(w, http.StatusInternalServerError, "failed to delete role")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
