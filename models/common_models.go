package models

// Response status constants
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Message roles
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// StatusResponse is the generic acknowledgement body returned by endpoints
// that only confirm an action (clear_history, feedback).
type StatusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ErrorResponse is the generic error body returned on request failures.
type ErrorResponse struct {
	Error  string `json:"error"`
	Status string `json:"status"`
}
