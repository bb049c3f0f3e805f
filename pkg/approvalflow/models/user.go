package models

// CreateUserRequest creates a user holding a role. The password is hashed
// with bcrypt before storage.
type CreateUserRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
	RoleID   int64  `json:"roleId" validate:"required"`
	ApiKey   string `json:"apiKey,omitempty"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	SessionID string `json:"sessionId"`
}
