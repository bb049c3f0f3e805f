package engine

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/approvalflow/approvalflow/pkg/approvalflow/core"
	"github.com/approvalflow/approvalflow/pkg/approvalflow/domain"
	"github.com/approvalflow/approvalflow/pkg/approvalflow/models"
)

// WorkflowEngine is the approval state machine. It creates instances from
// templates, advances them on approve, terminates them on reject, and owns
// the append-only action log. Every mutation of an instance runs as one
// transaction guarded by the instance's modified timestamp, so concurrent
// callers on the same step resolve to one winner and one ErrInvalidState.
type WorkflowEngine struct {
	TemplateRepo TemplateRepo
	InstanceRepo InstanceRepo
	ActionRepo   ActionRepo
	tx           TxRunner
	clock        core.Clock
}

func NewWorkflowEngine(templateRepo TemplateRepo, instanceRepo InstanceRepo, actionRepo ActionRepo, tx TxRunner, clock core.Clock) *WorkflowEngine {
	return &WorkflowEngine{
		TemplateRepo: templateRepo,
		InstanceRepo: instanceRepo,
		ActionRepo:   actionRepo,
		tx:           tx,
		clock:        clock,
	}
}

// InstanceDetail is the full view of an instance: its template, the
// pending step (nil when terminal) and the action history in order.
type InstanceDetail struct {
	Instance    *domain.WorkflowInstance
	Template    *domain.WorkflowTemplate
	CurrentStep *domain.WorkflowStep
	Actions     []domain.WorkflowAction
}

// CreateInstance starts a template against a data payload. The first step
// is the minimum (step_order, id) step; its condition must hold for the
// given data or the instance is never persisted.
func (e *WorkflowEngine) CreateInstance(ctx context.Context, templateID int64, data map[string]any) (*domain.WorkflowInstance, error) {
	template, err := e.TemplateRepo.FindByIDWithSteps(templateID)
	if err != nil {
		return nil, err
	}
	if template == nil {
		return nil, fmt.Errorf("workflow template %d: %w", templateID, ErrNotFound)
	}
	if len(template.Steps) == 0 {
		return nil, fmt.Errorf("workflow template %d has no steps: %w", templateID, ErrInvalidTemplate)
	}

	firstStep := template.Steps[0]
	if !EvaluateCondition(firstStep.Condition, data) {
		return nil, fmt.Errorf("step %q: %w", firstStep.Name, ErrConditionNotMet)
	}

	encoded, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode instance data: %w", err)
	}

	now := e.clock.Now().UTC()
	inst := &domain.WorkflowInstance{
		ExternalID:    uuid.NewString(),
		TemplateID:    template.ID,
		Data:          string(encoded),
		CurrentStepID: sql.NullInt64{Int64: firstStep.ID, Valid: true},
		Status:        domain.InstanceStatusInProgress,
		Created:       now,
		Modified:      now,
	}
	if _, err := e.InstanceRepo.Save(inst); err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "Created workflow instance",
		"id", inst.ID, "externalId", inst.ExternalID, "template", template.Name, "firstStep", firstStep.Name)
	return inst, nil
}

// Approve records an approval of the current step by the acting user and
// advances the instance to the next eligible step, or to approved when no
// remaining step's condition holds. Steps with a false condition are
// skipped permanently and receive no action record.
func (e *WorkflowEngine) Approve(ctx context.Context, instanceID int64, actingUser *domain.User, feedback string) (*InstanceDetail, error) {
	return e.act(ctx, instanceID, actingUser, domain.ActionApprove, feedback)
}

// Reject records a rejection of the current step by the acting user and
// terminates the instance. Feedback is required.
func (e *WorkflowEngine) Reject(ctx context.Context, instanceID int64, actingUser *domain.User, feedback string) (*InstanceDetail, error) {
	if strings.TrimSpace(feedback) == "" {
		return nil, fmt.Errorf("feedback is required to reject: %w", ErrValidation)
	}
	return e.act(ctx, instanceID, actingUser, domain.ActionReject, feedback)
}

func (e *WorkflowEngine) act(ctx context.Context, instanceID int64, actingUser *domain.User, action string, feedback string) (*InstanceDetail, error) {
	inst, err := e.InstanceRepo.FindByID(instanceID)
	if err != nil {
		return nil, err
	}
	if inst == nil {
		return nil, fmt.Errorf("workflow instance %d: %w", instanceID, ErrNotFound)
	}
	if inst.Status != domain.InstanceStatusInProgress || !inst.CurrentStepID.Valid {
		return nil, fmt.Errorf("workflow instance %d is %s: %w", inst.ID, inst.Status, ErrInvalidState)
	}

	template, err := e.TemplateRepo.FindByIDWithSteps(inst.TemplateID)
	if err != nil {
		return nil, err
	}
	if template == nil {
		return nil, fmt.Errorf("workflow template %d: %w", inst.TemplateID, ErrNotFound)
	}
	currentStep := stepByID(template.Steps, inst.CurrentStepID.Int64)
	if currentStep == nil {
		return nil, fmt.Errorf("current step %d of instance %d: %w", inst.CurrentStepID.Int64, inst.ID, ErrNotFound)
	}
	if actingUser.RoleID != currentStep.RoleID {
		return nil, fmt.Errorf("step %q requires role %d: %w", currentStep.Name, currentStep.RoleID, ErrForbidden)
	}

	nextStepID := sql.NullInt64{}
	nextStatus := domain.InstanceStatusRejected
	if action == domain.ActionApprove {
		nextStatus = domain.InstanceStatusApproved
		data, err := decodeData(inst.Data)
		if err != nil {
			return nil, err
		}
		if next := nextEligibleStep(template.Steps, currentStep, data); next != nil {
			nextStepID = sql.NullInt64{Int64: next.ID, Valid: true}
			nextStatus = domain.InstanceStatusInProgress
		}
	}

	record := &domain.WorkflowAction{
		InstanceID: inst.ID,
		StepID:     currentStep.ID,
		UserID:     actingUser.ID,
		Action:     action,
		Created:    e.clock.Now().UTC(),
	}
	if feedback != "" {
		record.Feedback = sql.NullString{String: feedback, Valid: true}
	}

	err = e.tx.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := e.ActionRepo.Save(tx, record); err != nil {
			return err
		}
		advanced, err := e.InstanceRepo.AdvanceStep(tx, inst.ID, inst.Modified, nextStepID, nextStatus)
		if err != nil {
			return err
		}
		if !advanced {
			// Lost a concurrent race; roll back the action record too.
			return fmt.Errorf("workflow instance %d was modified concurrently: %w", inst.ID, ErrInvalidState)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Recorded workflow action",
		"instanceId", inst.ID, "step", currentStep.Name, "action", action, "user", actingUser.Username, "status", nextStatus)
	return e.detailByID(inst.ID)
}

// GetInstance resolves ref as a numeric id or an external uuid and returns
// the instance with its template, current step and full history.
func (e *WorkflowEngine) GetInstance(ctx context.Context, ref string) (*InstanceDetail, error) {
	var inst *domain.WorkflowInstance
	var err error
	if id, convErr := strconv.ParseInt(ref, 10, 64); convErr == nil {
		inst, err = e.InstanceRepo.FindByID(id)
	} else {
		inst, err = e.InstanceRepo.FindByExternalID(ref)
	}
	if err != nil {
		return nil, err
	}
	if inst == nil {
		return nil, fmt.Errorf("workflow instance %q: %w", ref, ErrNotFound)
	}
	return e.detail(inst)
}

// ListInstances returns all instances, newest first.
func (e *WorkflowEngine) ListInstances(ctx context.Context) (*[]domain.WorkflowInstance, error) {
	return e.InstanceRepo.FindAll()
}

// SearchInstances delegates to the repository to search based on request filters.
func (e *WorkflowEngine) SearchInstances(ctx context.Context, req models.SearchInstancesRequest) (*[]domain.WorkflowInstance, error) {
	return e.InstanceRepo.Search(req)
}

func (e *WorkflowEngine) detailByID(id int64) (*InstanceDetail, error) {
	inst, err := e.InstanceRepo.FindByID(id)
	if err != nil {
		return nil, err
	}
	if inst == nil {
		return nil, fmt.Errorf("workflow instance %d: %w", id, ErrNotFound)
	}
	return e.detail(inst)
}

func (e *WorkflowEngine) detail(inst *domain.WorkflowInstance) (*InstanceDetail, error) {
	template, err := e.TemplateRepo.FindByIDWithSteps(inst.TemplateID)
	if err != nil {
		return nil, err
	}
	actions, err := e.ActionRepo.FindAllByInstanceID(inst.ID)
	if err != nil {
		return nil, err
	}
	detail := &InstanceDetail{Instance: inst, Template: template}
	if actions != nil {
		detail.Actions = *actions
	}
	if template != nil && inst.CurrentStepID.Valid {
		detail.CurrentStep = stepByID(template.Steps, inst.CurrentStepID.Int64)
	}
	return detail, nil
}

// nextEligibleStep scans the steps strictly after current in (step_order, id)
// order and returns the first whose condition holds for the data, or nil.
// Steps are assumed sorted by the repository.
func nextEligibleStep(steps []domain.WorkflowStep, current *domain.WorkflowStep, data map[string]any) *domain.WorkflowStep {
	for i := range steps {
		s := &steps[i]
		if s.StepOrder < current.StepOrder {
			continue
		}
		if s.StepOrder == current.StepOrder && s.ID <= current.ID {
			continue
		}
		if EvaluateCondition(s.Condition, data) {
			return s
		}
	}
	return nil
}

func stepByID(steps []domain.WorkflowStep, id int64) *domain.WorkflowStep {
	for i := range steps {
		if steps[i].ID == id {
			return &steps[i]
		}
	}
	return nil
}

func decodeData(raw string) (map[string]any, error) {
	data := map[string]any{}
	if raw == "" {
		return data, nil
	}
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, fmt.Errorf("decode instance data: %w", err)
	}
	return data, nil
}

// ValidateSteps checks a template save payload: step orders must be
// positive and unique within the template, and every condition must parse.
// Rejecting duplicates here keeps "first" and "next" unambiguous at run time.
func ValidateSteps(steps []models.SaveStepRequest) error {
	seen := make(map[int]string, len(steps))
	for _, s := range steps {
		if s.StepOrder <= 0 {
			return fmt.Errorf("step %q: order must be positive: %w", s.Name, ErrValidation)
		}
		if prev, ok := seen[s.StepOrder]; ok {
			return fmt.Errorf("steps %q and %q share order %d: %w", prev, s.Name, s.StepOrder, ErrValidation)
		}
		seen[s.StepOrder] = s.Name
		if _, err := ParseCondition(s.Condition); err != nil {
			return fmt.Errorf("step %q: %v: %w", s.Name, err, ErrValidation)
		}
	}
	return nil
}
