package models

import "time"

// SaveTemplateRequest creates or replaces a workflow template. On update,
// steps carrying an id are edited in place, steps without an id are added,
// and existing steps missing from the payload are deleted.
type SaveTemplateRequest struct {
	Name        string            `json:"name" validate:"required"`
	Description string            `json:"description"`
	Active      *bool             `json:"active"`
	Steps       []SaveStepRequest `json:"steps" validate:"required,min=1,dive"`
}

type SaveStepRequest struct {
	ID        int64  `json:"id,omitempty"`
	RoleID    int64  `json:"roleId" validate:"required"`
	Name      string `json:"name" validate:"required"`
	Condition string `json:"condition"`
	StepOrder int    `json:"stepOrder" validate:"required,gt=0"`
}

// TemplateApiResponse represents a template in API responses.
type TemplateApiResponse struct {
	ID          int64             `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Active      bool              `json:"active"`
	Created     time.Time         `json:"created"`
	Modified    time.Time         `json:"modified"`
	Steps       []StepApiResponse `json:"steps"`
}

type StepApiResponse struct {
	ID        int64  `json:"id"`
	RoleID    int64  `json:"roleId"`
	Name      string `json:"name"`
	Condition string `json:"condition,omitempty"`
	StepOrder int    `json:"stepOrder"`
}
