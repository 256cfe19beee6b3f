package types

import "fmt"

// Error types carried in the JSON error envelope
const (
	ErrorTypeAuth       = "auth"
	ErrorTypeForbidden  = "forbidden"
	ErrorTypeNotFound   = "notfound"
	ErrorTypeValidation = "validation"
	ErrorTypeConflict   = "conflict"
	ErrorTypeHost       = "host"
	ErrorTypeServer     = "server"
)

type CustomError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

func NewCustomError(code int, message, errorType string) *CustomError {
	return &CustomError{Code: code, Message: message, Type: errorType}
}

func (e *CustomError) Error() string {
	return fmt.Sprintf("%d: %s [type: %s]", e.Code, e.Message, e.Type)
}
