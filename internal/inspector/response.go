package inspector

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse is the error body shape.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries the error code and message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// sendJSON writes a JSON response with the given status code.
func sendJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// sendError writes an error response.
func sendError(w http.ResponseWriter, status int, code, message string) {
	sendJSON(w, status, ErrorResponse{
		Error: ErrorDetail{Code: code, Message: message},
	})
}

// Error codes.
const (
	errCodeInternalError = "INTERNAL_ERROR"
)
