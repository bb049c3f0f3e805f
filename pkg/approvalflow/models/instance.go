package models

import "time"

// CreateInstanceRequest is the payload for starting a workflow instance.
// Data holds the business payload the step conditions are evaluated against.
type CreateInstanceRequest struct {
	TemplateID int64          `json:"templateId" validate:"required"`
	Data       map[string]any `json:"data" validate:"required"`
}

// ActionRequest is the payload for approve and reject calls. Feedback is
// optional on approve and required on reject.
type ActionRequest struct {
	Feedback string `json:"feedback"`
}

// InstanceApiResponse represents a workflow instance in API responses.
type InstanceApiResponse struct {
	ID            int64          `json:"id"`
	ExternalID    string         `json:"externalId"`
	TemplateID    int64          `json:"templateId"`
	Data          map[string]any `json:"data"`
	CurrentStepID int64          `json:"currentStepId,omitempty"`
	Status        string         `json:"status"`
	Created       time.Time      `json:"created"`
	Modified      time.Time      `json:"modified"`
}

// ActionApiResponse represents one audit record in API responses.
type ActionApiResponse struct {
	ID       int64     `json:"id"`
	StepID   int64     `json:"stepId"`
	UserID   int64     `json:"userId"`
	Action   string    `json:"action"`
	Feedback string    `json:"feedback,omitempty"`
	Created  time.Time `json:"created"`
}

// InstanceDetailResponse is the full view of an instance: the template it
// runs, the pending step (absent when terminal) and the action history in
// chronological order.
type InstanceDetailResponse struct {
	Instance    InstanceApiResponse `json:"instance"`
	Template    TemplateApiResponse `json:"template"`
	CurrentStep *StepApiResponse    `json:"currentStep,omitempty"`
	Actions     []ActionApiResponse `json:"actions"`
}

// SearchInstancesRequest filters the instance listing.
type SearchInstancesRequest struct {
	TemplateID int64  `json:"templateId,omitempty"`
	Status     string `json:"status,omitempty"`
	ExternalID string `json:"externalId,omitempty"`
	Limit      int    `json:"limit,omitempty"`
	Offset     int    `json:"offset,omitempty"`
}

// SearchInstancesResponse wraps search results with paging info.
type SearchInstancesResponse struct {
	Results   int                   `json:"results"`
	Offset    int                   `json:"offset"`
	Instances []InstanceApiResponse `json:"instances"`
}
