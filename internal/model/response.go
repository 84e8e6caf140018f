package model

// ErrorResponse is the standard envelope for failed requests. Hint is only
// set on authentication failures, where it names the accepted credential
// formats without revealing which check failed.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Hint    string `json:"hint,omitempty"`
}

// MessageResponse is the envelope for successful requests that carry no
// resource payload beyond a human-readable confirmation.
type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
