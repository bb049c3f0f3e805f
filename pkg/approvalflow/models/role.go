package models

// SaveRoleRequest creates or renames a role.
type SaveRoleRequest struct {
	Name string `json:"name" validate:"required"`
}
