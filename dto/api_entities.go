package dto

// ErrorResp is the body of every error the edge router returns.
type ErrorResp struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Status  int    `json:"status,omitempty"`
}
