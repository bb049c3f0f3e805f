package repository

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/approvalflow/approvalflow/pkg/approvalflow/core"
	"github.com/approvalflow/approvalflow/pkg/approvalflow/domain"
)

// TemplateRepository provides persistence for workflow templates and their
// steps. A template owns its steps: they are written and deleted together.
type TemplateRepository struct {
	db    *sql.DB
	clock core.Clock
}

func NewTemplateRepository(db *sql.DB, clock core.Clock) *TemplateRepository {
	return &TemplateRepository{db: db, clock: clock}
}

const templateColumns = ` id, name, description, active, created, modified `

// FindByIDWithSteps fetches a template and its steps sorted by
// (step_order, id) ascending. Returns (nil, nil) if not found.
func (r *TemplateRepository) FindByIDWithSteps(id int64) (*domain.WorkflowTemplate, error) {
	query := `
		SELECT ` + templateColumns + `
		FROM workflow_templates
		WHERE id = ` + placeholder(1) + `
	`
	var t domain.WorkflowTemplate
	err := r.db.QueryRow(query, id).Scan(
		&t.ID,
		&t.Name,
		&t.Description,
		&t.Active,
		&t.Created,
		&t.Modified,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	steps, err := r.FindSteps(t.ID)
	if err != nil {
		return nil, err
	}
	t.Steps = steps
	return &t, nil
}

// FindSteps returns a template's steps sorted by (step_order, id) ascending.
// The sort order is the engine's sole progression order; the id component
// makes duplicate step_order values deterministic.
func (r *TemplateRepository) FindSteps(templateID int64) ([]domain.WorkflowStep, error) {
	query := `
		SELECT id, template_id, role_id, name, condition_expr, step_order
		FROM workflow_steps
		WHERE template_id = ` + placeholder(1) + `
		ORDER BY step_order ASC, id ASC
	`
	rows, err := r.db.Query(query, templateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	steps := make([]domain.WorkflowStep, 0)
	for rows.Next() {
		var s domain.WorkflowStep
		if err := rows.Scan(&s.ID, &s.TemplateID, &s.RoleID, &s.Name, &s.Condition, &s.StepOrder); err != nil {
			return nil, err
		}
		steps = append(steps, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return steps, nil
}

// FindAll returns all templates with their steps, ordered by id ascending.
func (r *TemplateRepository) FindAll() (*[]domain.WorkflowTemplate, error) {
	query := `
		SELECT ` + templateColumns + `
		FROM workflow_templates
		ORDER BY id ASC
	`
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	templates := make([]domain.WorkflowTemplate, 0)
	for rows.Next() {
		var t domain.WorkflowTemplate
		if err := rows.Scan(&t.ID, &t.Name, &t.Description, &t.Active, &t.Created, &t.Modified); err != nil {
			return nil, err
		}
		templates = append(templates, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range templates {
		steps, err := r.FindSteps(templates[i].ID)
		if err != nil {
			return nil, err
		}
		templates[i].Steps = steps
	}
	return &templates, nil
}

// Save inserts a template and its steps within the given transaction.
func (r *TemplateRepository) Save(tx *sql.Tx, t *domain.WorkflowTemplate) (int64, error) {
	now := r.clock.Now().UTC()
	t.Created = now
	t.Modified = now
	base := `
		INSERT INTO workflow_templates (name, description, active, created, modified)
		VALUES (` + placeholder(1) + `, ` + placeholder(2) + `, ` + placeholder(3) + `, ` + placeholder(4) + `, ` + placeholder(5) + `)
	`
	vals := []interface{}{t.Name, t.Description, t.Active, formatDateInDatabase(now), formatDateInDatabase(now)}
	var err error
	if supportsReturning() {
		err = tx.QueryRow(base+" RETURNING id", vals...).Scan(&t.ID)
	} else {
		res, e := tx.Exec(base, vals...)
		if e != nil {
			err = e
		} else {
			id, e2 := res.LastInsertId()
			if e2 != nil {
				err = e2
			} else {
				t.ID = id
			}
		}
	}
	if err != nil {
		return 0, err
	}
	for i := range t.Steps {
		t.Steps[i].TemplateID = t.ID
		if err := r.insertStep(tx, &t.Steps[i]); err != nil {
			return 0, err
		}
	}
	return t.ID, nil
}

// Update rewrites the template row and reconciles its steps: steps with an
// id are updated, steps without one are inserted, and stored steps missing
// from the payload are deleted. Runs within the given transaction.
func (r *TemplateRepository) Update(tx *sql.Tx, t *domain.WorkflowTemplate) error {
	query := `
		UPDATE workflow_templates
		SET name = ` + placeholder(1) + `, description = ` + placeholder(2) + `, active = ` + placeholder(3) + `, modified = ` + placeholder(4) + `
		WHERE id = ` + placeholder(5) + `
	`
	t.Modified = r.clock.Now().UTC()
	if _, err := tx.Exec(query, t.Name, t.Description, t.Active, formatDateInDatabase(t.Modified), t.ID); err != nil {
		return err
	}

	kept := make([]interface{}, 0, len(t.Steps)+1)
	kept = append(kept, t.ID)
	for i := range t.Steps {
		step := &t.Steps[i]
		step.TemplateID = t.ID
		if step.ID == 0 {
			if err := r.insertStep(tx, step); err != nil {
				return err
			}
		} else {
			update := `
				UPDATE workflow_steps
				SET role_id = ` + placeholder(1) + `, name = ` + placeholder(2) + `, condition_expr = ` + placeholder(3) + `, step_order = ` + placeholder(4) + `
				WHERE id = ` + placeholder(5) + ` AND template_id = ` + placeholder(6) + `
			`
			res, err := tx.Exec(update, step.RoleID, step.Name, step.Condition, step.StepOrder, step.ID, t.ID)
			if err != nil {
				return err
			}
			affected, err := res.RowsAffected()
			if err != nil {
				return err
			}
			if affected == 0 {
				return fmt.Errorf("step %d does not belong to template %d", step.ID, t.ID)
			}
		}
		kept = append(kept, step.ID)
	}

	if len(t.Steps) == 0 {
		_, err := tx.Exec(`DELETE FROM workflow_steps WHERE template_id = `+placeholder(1), t.ID)
		return err
	}

	pps := make([]string, 0, len(t.Steps))
	for i := 2; i <= len(kept); i++ {
		pps = append(pps, placeholder(i))
	}
	del := `
		DELETE FROM workflow_steps
		WHERE template_id = ` + placeholder(1) + ` AND id NOT IN (` + strings.Join(pps, ", ") + `)
	`
	_, err := tx.Exec(del, kept...)
	return err
}

func (r *TemplateRepository) insertStep(tx *sql.Tx, s *domain.WorkflowStep) error {
	base := `
		INSERT INTO workflow_steps (template_id, role_id, name, condition_expr, step_order)
		VALUES (` + placeholder(1) + `, ` + placeholder(2) + `, ` + placeholder(3) + `, ` + placeholder(4) + `, ` + placeholder(5) + `)
	`
	vals := []interface{}{s.TemplateID, s.RoleID, s.Name, s.Condition, s.StepOrder}
	if supportsReturning() {
		return tx.QueryRow(base+" RETURNING id", vals...).Scan(&s.ID)
	}
	res, err := tx.Exec(base, vals...)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = id
	return nil
}

// DeleteById removes a template and its steps within the given transaction.
// Callers must first check for non-terminal instances referencing it.
func (r *TemplateRepository) DeleteById(tx *sql.Tx, id int64) error {
	if _, err := tx.Exec(`DELETE FROM workflow_steps WHERE template_id = `+placeholder(1), id); err != nil {
		return err
	}
	_, err := tx.Exec(`DELETE FROM workflow_templates WHERE id = `+placeholder(1), id)
	return err
}
