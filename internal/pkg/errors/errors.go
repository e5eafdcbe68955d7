package errors

import (
	"encoding/json"
	"net/http"
)

type ErrorResponse struct {
	Error   string      `json:"error"`
	Message string      `json:"message"`
	Code    string      `json:"code"`
	Details interface{} `json:"details,omitempty"`
}

const (
	ErrCodeInvalidInput      = "INVALID_INPUT"
	ErrCodeUnauthorized      = "UNAUTHORIZED"
	ErrCodeForbidden         = "FORBIDDEN"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeConflict          = "CONFLICT"
	ErrCodeRateLimitExceeded = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternal          = "INTERNAL_ERROR"
)

// Matrix error codes, per the client-server and server-server specs.
// Federation callers expect exactly this body shape.
const (
	MatrixNotFound = "M_NOT_FOUND"
	MatrixUnknown  = "M_UNKNOWN"
)

type MatrixError struct {
	ErrCode string `json:"errcode"`
	Error   string `json:"error"`
}

func WriteError(w http.ResponseWriter, status int, code, message string, details interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    code,
		Details: details,
	})
}

// WriteMatrixError writes a Matrix-shaped error body. All media and federation
// endpoints use this shape regardless of what went wrong internally.
func WriteMatrixError(w http.ResponseWriter, status int, errcode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	json.NewEncoder(w).Encode(MatrixError{
		ErrCode: errcode,
		Error:   message,
	})
}

// WriteMatrixNotFound writes the generic body used when media is missing or the
// caller is not allowed to see it. The two cases are deliberately
// indistinguishable.
func WriteMatrixNotFound(w http.ResponseWriter) {
	WriteMatrixError(w, http.StatusNotFound, MatrixNotFound, "Media not found")
}
