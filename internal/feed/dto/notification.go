package dto

// ErrorResponse represents a generic error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// UnreadCountResponse carries the unread badge count for a user.
type UnreadCountResponse struct {
	Count int64 `json:"count"`
}
