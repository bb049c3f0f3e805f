package repository

import (
	"database/sql"
	"log/slog"

	"github.com/approvalflow/approvalflow/pkg/approvalflow/core"
	"github.com/approvalflow/approvalflow/pkg/approvalflow/domain"
)

// ActionRepository persists the append-only audit trail of approve and
// reject records. Rows are never updated or deleted individually.
type ActionRepository struct {
	db    *sql.DB
	clock core.Clock
}

func NewActionRepository(db *sql.DB, clock core.Clock) *ActionRepository {
	return &ActionRepository{db: db, clock: clock}
}

// Save inserts a new action record within the given transaction and
// returns its ID.
func (r *ActionRepository) Save(tx *sql.Tx, a *domain.WorkflowAction) (int64, error) {
	if a.Created.IsZero() {
		a.Created = r.clock.Now().UTC()
	}
	base := `
		INSERT INTO workflow_actions (
			instance_id, step_id, user_id, action, feedback, created
		) VALUES (
			` + placeholder(1) + `, ` + placeholder(2) + `, ` + placeholder(3) + `, ` + placeholder(4) + `, ` + placeholder(5) + `, ` + placeholder(6) + `
		)`
	vals := []interface{}{
		a.InstanceID,
		a.StepID,
		a.UserID,
		a.Action,
		a.Feedback,
		formatDateInDatabase(a.Created),
	}
	var err error
	if supportsReturning() {
		err = tx.QueryRow(base+" RETURNING id", vals...).Scan(&a.ID)
	} else {
		res, e := tx.Exec(base, vals...)
		if e != nil {
			err = e
		} else {
			id, e2 := res.LastInsertId()
			if e2 != nil {
				err = e2
			} else {
				a.ID = id
			}
		}
	}
	if err != nil {
		slog.Error("Failed to save workflow action", "error", err)
	}
	return a.ID, err
}

// FindAllByInstanceID returns the full history for an instance in the
// order the actions happened.
func (r *ActionRepository) FindAllByInstanceID(instanceID int64) (*[]domain.WorkflowAction, error) {
	query := `
		SELECT id, instance_id, step_id, user_id, action, feedback, created
		FROM workflow_actions
		WHERE instance_id = ` + placeholder(1) + `
		ORDER BY id ASC
	`
	rows, err := r.db.Query(query, instanceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	actions := make([]domain.WorkflowAction, 0)
	for rows.Next() {
		var a domain.WorkflowAction
		if err := rows.Scan(
			&a.ID,
			&a.InstanceID,
			&a.StepID,
			&a.UserID,
			&a.Action,
			&a.Feedback,
			&a.Created,
		); err != nil {
			return nil, err
		}
		actions = append(actions, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &actions, nil
}
