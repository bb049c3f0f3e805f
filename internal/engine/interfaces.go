package engine

import (
	"context"
	"database/sql"
	"time"

	"github.com/approvalflow/approvalflow/pkg/approvalflow/domain"
	"github.com/approvalflow/approvalflow/pkg/approvalflow/models"
)

// TemplateRepo is the read-only template access the engine needs,
// matching repository.TemplateRepository.
type TemplateRepo interface {
	FindByIDWithSteps(id int64) (*domain.WorkflowTemplate, error)
}

// InstanceRepo defines the interface for instance persistence, matching
// repository.InstanceRepository.
type InstanceRepo interface {
	Save(inst *domain.WorkflowInstance) (int64, error)
	FindByID(id int64) (*domain.WorkflowInstance, error)
	FindByExternalID(externalID string) (*domain.WorkflowInstance, error)
	FindAll() (*[]domain.WorkflowInstance, error)
	Search(req models.SearchInstancesRequest) (*[]domain.WorkflowInstance, error)
	AdvanceStep(tx *sql.Tx, id int64, modified time.Time, nextStep sql.NullInt64, status string) (bool, error)
}

// ActionRepo defines the interface for the append-only action log,
// matching repository.ActionRepository.
type ActionRepo interface {
	Save(tx *sql.Tx, a *domain.WorkflowAction) (int64, error)
	FindAllByInstanceID(instanceID int64) (*[]domain.WorkflowAction, error)
}

// TxRunner runs a function inside one transaction, matching
// repository.TxRunner.
type TxRunner interface {
	InTx(ctx context.Context, fn func(tx *sql.Tx) error) error
}
