package domain

import (
	"database/sql"
	"time"
)

const (
	ActionApprove = "approve"
	ActionReject  = "reject"
)

// WorkflowAction is an immutable audit record of an approve or reject on a
// single step of an instance. Actions are append-only.
type WorkflowAction struct {
	ID         int64          `json:"id"`
	InstanceID int64          `json:"instanceId"`
	StepID     int64          `json:"stepId"`
	UserID     int64          `json:"userId"`
	Action     string         `json:"action"`
	Feedback   sql.NullString `json:"-"`
	Created    time.Time      `json:"created"`
}
