package domain

import "time"

// WorkflowTemplate is a reusable ordered definition of approval steps.
// Steps is populated by the repository, sorted by (step_order, id) ascending.
type WorkflowTemplate struct {
	ID          int64          `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Active      bool           `json:"active"`
	Created     time.Time      `json:"created"`
	Modified    time.Time      `json:"modified"`
	Steps       []WorkflowStep `json:"steps,omitempty"`
}

// WorkflowStep is one stage of a template, owned by a role and optionally
// gated by a condition expression ("field op literal", empty = always eligible).
type WorkflowStep struct {
	ID         int64  `json:"id"`
	TemplateID int64  `json:"templateId"`
	RoleID     int64  `json:"roleId"`
	Name       string `json:"name"`
	Condition  string `json:"condition"`
	StepOrder  int    `json:"stepOrder"`
}
