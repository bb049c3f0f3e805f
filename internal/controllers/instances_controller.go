package controllers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/approvalflow/approvalflow/internal/engine"
	"github.com/approvalflow/approvalflow/internal/util"
	"github.com/approvalflow/approvalflow/pkg/approvalflow/domain"
	"github.com/approvalflow/approvalflow/pkg/approvalflow/models"
)

// InstancesController holds dependencies for workflow instance HTTP endpoints.
type InstancesController struct {
	AuthController
	Engine   *engine.WorkflowEngine
	validate *validator.Validate
}

func NewInstancesController(wfEngine *engine.WorkflowEngine, userRepo UserRepo) *InstancesController {
	return &InstancesController{
		Engine:   wfEngine,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		AuthController: AuthController{
			UserRepo: userRepo,
		},
	}
}

func (c *InstancesController) handleListInstances(w http.ResponseWriter, r *http.Request) {
	instances, err := c.Engine.ListInstances(r.Context())
	if err != nil {
		slog.Error("Failed to list workflow instances", "error", err)
		util.WriteJSONError(w, http.StatusInternalServerError, "failed to list instances")
		return
	}
	util.WriteJSONResponse(w, http.StatusOK, mapInstances(instances))
}

func (c *InstancesController) handleSearchInstances(w http.ResponseWriter, r *http.Request) {
	req, err := util.DecodeJSONBody[models.SearchInstancesRequest](r)
	if err != nil {
		util.WriteJSONError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if req.Limit > 1000 {
		util.WriteJSONError(w, http.StatusBadRequest, "limit cannot be greater than 1000")
		return
	}
	instances, err := c.Engine.SearchInstances(r.Context(), req)
	if err != nil {
		slog.Error("Failed to search workflow instances", "error", err)
		util.WriteJSONError(w, http.StatusInternalServerError, "failed to search instances")
		return
	}
	mapped := mapInstances(instances)
	util.WriteJSONResponse(w, http.StatusOK, models.SearchInstancesResponse{
		Results:   len(mapped),
		Offset:    req.Offset,
		Instances: mapped,
	})
}

func (c *InstancesController) handleCreateInstance(w http.ResponseWriter, r *http.Request) {
	req, err := util.DecodeJSONBody[models.CreateInstanceRequest](r)
	if err != nil {
		util.WriteJSONError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if err := c.validate.Struct(req); err != nil {
		util.WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	inst, err := c.Engine.CreateInstance(r.Context(), req.TemplateID, req.Data)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	util.WriteJSONResponse(w, http.StatusCreated, mapInstance(inst))
}

func (c *InstancesController) handleGetInstance(w http.ResponseWriter, r *http.Request) {
	ref := r.PathValue("id")
	if ref == "" {
		util.WriteJSONError(w, http.StatusBadRequest, "id is required")
		return
	}
	detail, err := c.Engine.GetInstance(r.Context(), ref)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	util.WriteJSONResponse(w, http.StatusOK, mapInstanceDetail(detail))
}

func (c *InstancesController) handleApprove(w http.ResponseWriter, r *http.Request) {
	c.handleAction(w, r, domain.ActionApprove)
}

func (c *InstancesController) handleReject(w http.ResponseWriter, r *http.Request) {
	c.handleAction(w, r, domain.ActionReject)
}

func (c *InstancesController) handleAction(w http.ResponseWriter, r *http.Request, action string) {
	ref := r.PathValue("id")
	if ref == "" {
		util.WriteJSONError(w, http.StatusBadRequest, "id is required")
		return
	}
	req, err := util.DecodeJSONBody[models.ActionRequest](r)
	if err != nil {
		util.WriteJSONError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	user, err := c.actingUser(r)
	if err != nil || user == nil {
		util.WriteJSONError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	detail, err := c.Engine.GetInstance(r.Context(), ref)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	if action == domain.ActionApprove {
		detail, err = c.Engine.Approve(r.Context(), detail.Instance.ID, user, req.Feedback)
	} else {
		detail, err = c.Engine.Reject(r.Context(), detail.Instance.ID, user, req.Feedback)
	}
	if err != nil {
		writeEngineError(w, err)
		return
	}
	util.WriteJSONResponse(w, http.StatusOK, mapInstanceDetail(detail))
}

// writeEngineError translates engine error kinds to HTTP statuses.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrNotFound):
		util.WriteJSONError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, engine.ErrForbidden):
		util.WriteJSONError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, engine.ErrInvalidState):
		util.WriteJSONError(w, http.StatusConflict, err.Error())
	case errors.Is(err, engine.ErrValidation),
		errors.Is(err, engine.ErrInvalidTemplate),
		errors.Is(err, engine.ErrConditionNotMet):
		util.WriteJSONError(w, http.StatusBadRequest, err.Error())
	default:
		slog.Error("Workflow engine operation failed", "error", err)
		util.WriteJSONError(w, http.StatusInternalServerError, "internal error")
	}
}

func mapInstances(instances *[]domain.WorkflowInstance) []models.InstanceApiResponse {
	mapped := make([]models.InstanceApiResponse, 0)
	if instances == nil {
		return mapped
	}
	for i := range *instances {
		mapped = append(mapped, mapInstance(&(*instances)[i]))
	}
	return mapped
}

func mapInstance(inst *domain.WorkflowInstance) models.InstanceApiResponse {
	data := map[string]any{}
	if inst.Data != "" {
		if err := json.Unmarshal([]byte(inst.Data), &data); err != nil {
			slog.Warn("Failed to parse instance data", "id", inst.ID, "error", err)
		}
	}
	resp := models.InstanceApiResponse{
		ID:         inst.ID,
		ExternalID: inst.ExternalID,
		TemplateID: inst.TemplateID,
		Data:       data,
		Status:     inst.Status,
		Created:    inst.Created,
		Modified:   inst.Modified,
	}
	if inst.CurrentStepID.Valid {
		resp.CurrentStepID = inst.CurrentStepID.Int64
	}
	return resp
}

func mapInstanceDetail(detail *engine.InstanceDetail) models.InstanceDetailResponse {
	resp := models.InstanceDetailResponse{
		Instance: mapInstance(detail.Instance),
		Actions:  make([]models.ActionApiResponse, 0, len(detail.Actions)),
	}
	if detail.Template != nil {
		resp.Template = mapTemplate(detail.Template)
	}
	if detail.CurrentStep != nil {
		step := mapStep(detail.CurrentStep)
		resp.CurrentStep = &step
	}
	for _, a := range detail.Actions {
		mapped := models.ActionApiResponse{
			ID:      a.ID,
			StepID:  a.StepID,
			UserID:  a.UserID,
			Action:  a.Action,
			Created: a.Created,
		}
		if a.Feedback.Valid {
			mapped.Feedback = a.Feedback.String
		}
		resp.Actions = append(resp.Actions, mapped)
	}
	return resp
}
