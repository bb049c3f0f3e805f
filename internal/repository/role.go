package repository

import (
	"database/sql"

	"github.com/approvalflow/approvalflow/pkg/approvalflow/core"
	"github.com/approvalflow/approvalflow/pkg/approvalflow/domain"
)

// RoleRepository provides persistence methods for the roles table.
type RoleRepository struct {
	db    *sql.DB
	clock core.Clock
}

func NewRoleRepository(db *sql.DB, clock core.Clock) *RoleRepository {
	return &RoleRepository{db: db, clock: clock}
}

func (r *RoleRepository) Save(role *domain.Role) (int64, error) {
	if role.Created.IsZero() {
		role.Created = r.clock.Now().UTC()
	}
	base := `
		INSERT INTO roles (name, created)
		VALUES (` + placeholder(1) + `, ` + placeholder(2) + `)
	`
	var err error
	if supportsReturning() {
		err = r.db.QueryRow(base+" RETURNING id", role.Name, formatDateInDatabase(role.Created)).Scan(&role.ID)
	} else {
		res, e := r.db.Exec(base, role.Name, formatDateInDatabase(role.Created))
		if e != nil {
			err = e
		} else {
			id, e2 := res.LastInsertId()
			if e2 != nil {
				err = e2
			} else {
				role.ID = id
			}
		}
	}
	return role.ID, err
}

// FindByID fetches a role by id. Returns (nil, nil) if not found.
func (r *RoleRepository) FindByID(id int64) (*domain.Role, error) {
	query := `
		SELECT id, name, created
		FROM roles
		WHERE id = ` + placeholder(1) + `
	`
	var role domain.Role
	err := r.db.QueryRow(query, id).Scan(&role.ID, &role.Name, &role.Created)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &role, nil
}

func (r *RoleRepository) FindAll() (*[]domain.Role, error) {
	query := `
		SELECT id, name, created
		FROM roles
		ORDER BY id ASC
	`
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	roles := make([]domain.Role, 0)
	for rows.Next() {
		var role domain.Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Created); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &roles, nil
}

// Rename updates the role name. Role identity is fixed once referenced by
// steps; only the display name may change.
func (r *RoleRepository) Rename(id int64, name string) error {
	query := `
		UPDATE roles
		SET name = ` + placeholder(1) + `
		WHERE id = ` + placeholder(2) + `
	`
	_, err := r.db.Exec(query, name, id)
	return err
}

// DeleteById removes a role. The steps and users foreign keys are declared
// RESTRICT, so deleting a referenced role surfaces a constraint error.
// CountReferences counts the steps and users still holding the role.
// A referenced role cannot be deleted.
func (r *RoleRepository) CountReferences(id int64) (int, error) {
	query := `
		SELECT (SELECT COUNT(*) FROM workflow_steps WHERE role_id = ` + placeholder(1) + `)
		     + (SELECT COUNT(*) FROM users WHERE role_id = ` + placeholder(2) + `)
	`
	var count int
	err := r.db.QueryRow(query, id, id).Scan(&count)
	return count, err
}

func (r *RoleRepository) DeleteById(id int64) error {
	query := `
		DELETE FROM roles
		WHERE id = ` + placeholder(1) + `
	`
	_, err := r.db.Exec(query, id)
	return err
}
