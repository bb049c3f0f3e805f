package controllers

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/approvalflow/approvalflow/internal/engine"
	"github.com/approvalflow/approvalflow/internal/repository"
	"github.com/approvalflow/approvalflow/internal/util"
	"github.com/approvalflow/approvalflow/pkg/approvalflow/domain"
	"github.com/approvalflow/approvalflow/pkg/approvalflow/models"
)

// TemplatesController manages workflow templates and their steps. Template
// writes never touch running instances; the engine reads templates only.
type TemplatesController struct {
	AuthController
	TemplateRepo *repository.TemplateRepository
	InstanceRepo *repository.InstanceRepository
	Tx           *repository.TxRunner
	validate     *validator.Validate
}

func NewTemplatesController(templateRepo *repository.TemplateRepository, instanceRepo *repository.InstanceRepository,
	tx *repository.TxRunner, userRepo UserRepo) *TemplatesController {
	return &TemplatesController{
		TemplateRepo: templateRepo,
		InstanceRepo: instanceRepo,
		Tx:           tx,
		validate:     validator.New(validator.WithRequiredStructEnabled()),
		AuthController: AuthController{
			UserRepo: userRepo,
		},
	}
}

func (c *TemplatesController) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := c.TemplateRepo.FindAll()
	if err != nil {
		slog.Error("Failed to list workflow templates", "error", err)
		util.WriteJSONError(w, http.StatusInternalServerError, "failed to list templates")
		return
	}
	mapped := make([]models.TemplateApiResponse, 0)
	if templates != nil {
		for i := range *templates {
			mapped = append(mapped, mapTemplate(&(*templates)[i]))
		}
	}
	util.WriteJSONResponse(w, http.StatusOK, mapped)
}

func (c *TemplatesController) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		util.WriteJSONError(w, http.StatusBadRequest, "id is an integer")
		return
	}
	template, err := c.TemplateRepo.FindByIDWithSteps(id)
	if err != nil {
		slog.Error("Failed to get workflow template", "error", err, "id", id)
		util.WriteJSONError(w, http.StatusInternalServerError, "failed to get template")
		return
	}
	if template == nil {
		util.WriteJSONError(w, http.StatusNotFound, "template not found")
		return
	}
	util.WriteJSONResponse(w, http.StatusOK, mapTemplate(template))
}

func (c *TemplatesController) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	req, ok := c.decodeSaveRequest(w, r)
	if !ok {
		return
	}

	template := templateFromRequest(req)
	err := c.Tx.InTx(r.Context(), func(tx *sql.Tx) error {
		_, err := c.TemplateRepo.Save(tx, template)
		return err
	})
	if err != nil {
		slog.Error("Failed to create workflow template", "error", err)
		util.WriteJSONError(w, http.StatusInternalServerError, "failed to create template")
		return
	}
	slog.Info("Created workflow template", "id", template.ID, "name", template.Name, "steps", len(template.Steps))
	util.WriteJSONResponse(w, http.StatusCreated, mapTemplate(template))
}

// handleUpdateTemplate replaces the template's fields and reconciles its
// steps: steps present in the payload are kept or added, the rest are
// deleted.
func (c *TemplatesController) handleUpdateTemplate(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		util.WriteJSONError(w, http.StatusBadRequest, "id is an integer")
		return
	}
	existing, err := c.TemplateRepo.FindByIDWithSteps(id)
	if err != nil {
		slog.Error("Failed to load workflow template", "error", err, "id", id)
		util.WriteJSONError(w, http.StatusInternalServerError, "failed to load template")
		return
	}
	if existing == nil {
		util.WriteJSONError(w, http.StatusNotFound, "template not found")
		return
	}

	req, ok := c.decodeSaveRequest(w, r)
	if !ok {
		return
	}

	template := templateFromRequest(req)
	template.ID = id
	err = c.Tx.InTx(r.Context(), func(tx *sql.Tx) error {
		return c.TemplateRepo.Update(tx, template)
	})
	if err != nil {
		slog.Error("Failed to update workflow template", "error", err, "id", id)
		util.WriteJSONError(w, http.StatusInternalServerError, "failed to update template")
		return
	}

	updated, err := c.TemplateRepo.FindByIDWithSteps(id)
	if err != nil || updated == nil {
		slog.Error("Failed to reload workflow template", "error", err, "id", id)
		util.WriteJSONError(w, http.StatusInternalServerError, "failed to reload template")
		return
	}
	util.WriteJSONResponse(w, http.StatusOK, mapTemplate(updated))
}

// handleDeleteTemplate removes a template and its steps. Templates with
// non-terminal instances cannot be deleted; running approvals must finish
// or be rejected first.
func (c *TemplatesController) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		util.WriteJSONError(w, http.StatusBadRequest, "id is an integer")
		return
	}
	template, err := c.TemplateRepo.FindByIDWithSteps(id)
	if err != nil {
		slog.Error("Failed to load workflow template", "error", err, "id", id)
		util.WriteJSONError(w, http.StatusInternalServerError, "failed to load template")
		return
	}
	if template == nil {
		util.WriteJSONError(w, http.StatusNotFound, "template not found")
		return
	}
	active, err := c.InstanceRepo.CountActiveByTemplateID(id)
	if err != nil {
		slog.Error("Failed to count active instances", "error", err, "templateId", id)
		util.WriteJSONError(w, http.StatusInternalServerError, "failed to check instances")
		return
	}
	if active > 0 {
		util.WriteJSONError(w, http.StatusConflict, "template has instances still in progress")
		return
	}
	err = c.Tx.InTx(r.Context(), func(tx *sql.Tx) error {
		// Terminal instances still reference the template; remove them first.
		if err := c.InstanceRepo.DeleteByTemplateID(tx, id); err != nil {
			return err
		}
		return c.TemplateRepo.DeleteById(tx, id)
	})
	if err != nil {
		slog.Error("Failed to delete workflow template", "error", err, "id", id)
		util.WriteJSONError(w, http.StatusInternalServerError, "failed to delete template")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (c *TemplatesController) decodeSaveRequest(w http.ResponseWriter, r *http.Request) (models.SaveTemplateRequest, bool) {
	req, err := util.DecodeJSONBody[models.SaveTemplateRequest](r)
	if err != nil {
		util.WriteJSONError(w, http.StatusBadRequest, "invalid JSON payload")
		return req, false
	}
	if err := c.validate.Struct(req); err != nil {
		util.WriteJSONError(w, http.StatusBadRequest, err.Error())
		return req, false
	}
	if err := engine.ValidateSteps(req.Steps); err != nil {
		util.WriteJSONError(w, http.StatusBadRequest, err.Error())
		return req, false
	}
	return req, true
}

func templateFromRequest(req models.SaveTemplateRequest) *domain.WorkflowTemplate {
	template := &domain.WorkflowTemplate{
		Name:        req.Name,
		Description: req.Description,
		Active:      true,
	}
	if req.Active != nil {
		template.Active = *req.Active
	}
	for _, s := range req.Steps {
		template.Steps = append(template.Steps, domain.WorkflowStep{
			ID:        s.ID,
			RoleID:    s.RoleID,
			Name:      s.Name,
			Condition: s.Condition,
			StepOrder: s.StepOrder,
		})
	}
	return template
}

func mapTemplate(t *domain.WorkflowTemplate) models.TemplateApiResponse {
	resp := models.TemplateApiResponse{
		ID:          t.ID,
		Name:        t.Name,
		Description: t.Description,
		Active:      t.Active,
		Created:     t.Created,
		Modified:    t.Modified,
		Steps:       make([]models.StepApiResponse, 0, len(t.Steps)),
	}
	for i := range t.Steps {
		resp.Steps = append(resp.Steps, mapStep(&t.Steps[i]))
	}
	return resp
}

func mapStep(s *domain.WorkflowStep) models.StepApiResponse {
	return models.StepApiResponse{
		ID:        s.ID,
		RoleID:    s.RoleID,
		Name:      s.Name,
		Condition: s.Condition,
		StepOrder: s.StepOrder,
	}
}
