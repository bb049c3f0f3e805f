package repository

import (
	"database/sql"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/approvalflow/approvalflow/pkg/approvalflow/core"
	"github.com/approvalflow/approvalflow/pkg/approvalflow/domain"
	"github.com/approvalflow/approvalflow/pkg/approvalflow/models"
)

// InstanceRepository provides persistence methods for workflow instances.
type InstanceRepository struct {
	db    *sql.DB
	clock core.Clock
}

func NewInstanceRepository(db *sql.DB, clock core.Clock) *InstanceRepository {
	return &InstanceRepository{db: db, clock: clock}
}

const instanceColumns = ` id, external_id, template_id, data, current_step_id, status, created, modified `

func (r *InstanceRepository) Save(inst *domain.WorkflowInstance) (int64, error) {
	vals := []interface{}{
		inst.ExternalID,
		inst.TemplateID,
		inst.Data,
		inst.CurrentStepID,
		inst.Status,
		formatDateInDatabase(inst.Created),
		formatDateInDatabase(inst.Modified),
	}
	pps := make([]string, 0, len(vals))
	for i := range vals {
		pps = append(pps, placeholder(i+1))
	}
	base := `INSERT INTO workflow_instances (
		external_id, template_id, data, current_step_id, status, created, modified
	) VALUES (` + pps[0] + `, ` + pps[1] + `, ` + pps[2] + `, ` + pps[3] + `, ` + pps[4] + `, ` + pps[5] + `, ` + pps[6] + `)`
	var err error
	if supportsReturning() {
		err = r.db.QueryRow(base+" RETURNING id", vals...).Scan(&inst.ID)
	} else {
		res, e := r.db.Exec(base, vals...)
		if e != nil {
			err = e
		} else {
			id, e2 := res.LastInsertId()
			if e2 != nil {
				err = e2
			} else {
				inst.ID = id
			}
		}
	}
	return inst.ID, err
}

// FindByID fetches an instance by id. Returns (nil, nil) if not found.
func (r *InstanceRepository) FindByID(id int64) (*domain.WorkflowInstance, error) {
	query := `
		SELECT ` + instanceColumns + `
		FROM workflow_instances
		WHERE id = ` + placeholder(1) + `
	`
	return r.scanOne(r.db.QueryRow(query, id))
}

// FindByExternalID fetches an instance by its external uuid. Returns
// (nil, nil) if not found.
func (r *InstanceRepository) FindByExternalID(externalID string) (*domain.WorkflowInstance, error) {
	query := `
		SELECT ` + instanceColumns + `
		FROM workflow_instances
		WHERE external_id = ` + placeholder(1) + `
	`
	return r.scanOne(r.db.QueryRow(query, externalID))
}

func (r *InstanceRepository) scanOne(row *sql.Row) (*domain.WorkflowInstance, error) {
	var inst domain.WorkflowInstance
	err := row.Scan(
		&inst.ID,
		&inst.ExternalID,
		&inst.TemplateID,
		&inst.Data,
		&inst.CurrentStepID,
		&inst.Status,
		&inst.Created,
		&inst.Modified,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &inst, nil
}

// FindAll returns all instances, newest first.
func (r *InstanceRepository) FindAll() (*[]domain.WorkflowInstance, error) {
	query := `
		SELECT ` + instanceColumns + `
		FROM workflow_instances
		ORDER BY id DESC
	`
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.scanMany(rows)
}

// Search returns instances matching the request filters, newest first.
func (r *InstanceRepository) Search(req models.SearchInstancesRequest) (*[]domain.WorkflowInstance, error) {
	builder := sq.Select("id", "external_id", "template_id", "data", "current_step_id", "status", "created", "modified").
		From("workflow_instances").
		OrderBy("id DESC").
		PlaceholderFormat(placeholderFormat())
	if req.TemplateID != 0 {
		builder = builder.Where(sq.Eq{"template_id": req.TemplateID})
	}
	if req.Status != "" {
		builder = builder.Where(sq.Eq{"status": req.Status})
	}
	if req.ExternalID != "" {
		builder = builder.Where(sq.Eq{"external_id": req.ExternalID})
	}
	if req.Limit > 0 {
		builder = builder.Limit(uint64(req.Limit)).Offset(uint64(req.Offset))
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.scanMany(rows)
}

func (r *InstanceRepository) scanMany(rows *sql.Rows) (*[]domain.WorkflowInstance, error) {
	instances := make([]domain.WorkflowInstance, 0)
	for rows.Next() {
		var inst domain.WorkflowInstance
		if err := rows.Scan(
			&inst.ID,
			&inst.ExternalID,
			&inst.TemplateID,
			&inst.Data,
			&inst.CurrentStepID,
			&inst.Status,
			&inst.Created,
			&inst.Modified,
		); err != nil {
			return nil, err
		}
		instances = append(instances, inst)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &instances, nil
}

// AdvanceStep moves an in-progress instance to the next step or a terminal
// status. The update is guarded by the modified timestamp read alongside
// the current step, so of two concurrent callers exactly one sees a row
// affected; the loser must treat false as a lost race.
func (r *InstanceRepository) AdvanceStep(tx *sql.Tx, id int64, modified time.Time, nextStep sql.NullInt64, status string) (bool, error) {
	query := `
		UPDATE workflow_instances
		SET current_step_id = ` + placeholder(1) + `, status = ` + placeholder(2) + `, modified = ` + placeholder(3) + `
		WHERE id = ` + placeholder(4) + ` AND modified = ` + placeholder(5) + ` AND status = '` + domain.InstanceStatusInProgress + `'
	`
	now := r.clock.Now().UTC()
	result, err := tx.Exec(query, nextStep, status, formatDateInDatabase(now), id, formatDateInDatabase(modified))
	if err != nil {
		slog.Error("Failed to advance workflow instance", "error", err, "id", id, "status", status)
		return false, err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rowsAffected == 1, nil
}

// CountActiveByTemplateID counts instances of a template that are not in a
// terminal status. Used to guard template deletion.
func (r *InstanceRepository) CountActiveByTemplateID(templateID int64) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM workflow_instances
		WHERE template_id = ` + placeholder(1) + `
		  AND status IN ('` + domain.InstanceStatusPending + `', '` + domain.InstanceStatusInProgress + `')
	`
	var count int
	err := r.db.QueryRow(query, templateID).Scan(&count)
	return count, err
}

// DeleteByTemplateID removes all instances of a template and their action
// history within the given transaction. Callers must first check that none
// of them is still in progress.
func (r *InstanceRepository) DeleteByTemplateID(tx *sql.Tx, templateID int64) error {
	del := `
		DELETE FROM workflow_actions
		WHERE instance_id IN (SELECT id FROM workflow_instances WHERE template_id = ` + placeholder(1) + `)
	`
	if _, err := tx.Exec(del, templateID); err != nil {
		return err
	}
	_, err := tx.Exec(`DELETE FROM workflow_instances WHERE template_id = `+placeholder(1), templateID)
	return err
}

// DeleteById removes an instance and its action history within the given
// transaction. Actions are owned by the instance and go with it.
func (r *InstanceRepository) DeleteById(tx *sql.Tx, id int64) error {
	if _, err := tx.Exec(`DELETE FROM workflow_actions WHERE instance_id = `+placeholder(1), id); err != nil {
		return err
	}
	_, err := tx.Exec(`DELETE FROM workflow_instances WHERE id = `+placeholder(1), id)
	return err
}
