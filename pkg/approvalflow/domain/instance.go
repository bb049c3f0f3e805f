package domain

import (
	"database/sql"
	"time"
)

const (
	InstanceStatusPending    = "pending"
	InstanceStatusInProgress = "in_progress"
	InstanceStatusApproved   = "approved"
	InstanceStatusRejected   = "rejected"
)

// WorkflowInstance is a single running execution of a template against a
// data payload. Data is a JSON object mapping field names to scalar values.
// CurrentStepID is null once the instance reaches a terminal status.
// Modified doubles as the optimistic concurrency token for step transitions.
type WorkflowInstance struct {
	ID            int64
	ExternalID    string
	TemplateID    int64
	Data          string
	CurrentStepID sql.NullInt64
	Status        string
	Created       time.Time
	Modified      time.Time
}

// Terminal reports whether no further approve/reject operations are allowed.
func (w *WorkflowInstance) Terminal() bool {
	return w.Status == InstanceStatusApproved || w.Status == InstanceStatusRejected
}
