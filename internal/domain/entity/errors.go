package entity

import (
	"errors"
	"fmt"
)

// ErrorCode машиночитаемый код ошибки
type ErrorCode string

const (
	CodeInvalidRequest     ErrorCode = "invalid_request"
	CodeInvalidCoordinates ErrorCode = "invalid_coordinates"
	CodeInvalidPolygon     ErrorCode = "invalid_polygon"
	CodeNoImageProvided    ErrorCode = "no_image_provided"
	CodeFieldNotFound      ErrorCode = "field_not_found"
	CodeNotFound           ErrorCode = "not_found"
	CodeFieldBusy          ErrorCode = "field_busy"
	CodeGeofenceViolation  ErrorCode = "geofence_violation"
	CodeNoModelsAvailable  ErrorCode = "no_models_available"
	CodeAnalysisFailure    ErrorCode = "analysis_failure"
	CodePersistenceError   ErrorCode = "persistence_error"
	CodeInternal           ErrorCode = "internal"
)

// Error ошибка прикладного слоя с кодом и состоянием, в котором она возникла
type Error struct {
	Code    ErrorCode
	Message string
	State   SpotState
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError создаёт ошибку без состояния конечного автомата
func NewError(code ErrorCode, msg string, err error) *Error {
	return &Error{Code: code, Message: msg, Err: err}
}

// CodeOf извлекает код из цепочки ошибок; неизвестные ошибки считаются internal
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// IsValidation сообщает, отклонён ли запрос до каких-либо записей
func (c ErrorCode) IsValidation() bool {
	switch c {
	case CodeInvalidRequest, CodeInvalidCoordinates, CodeInvalidPolygon, CodeNoImageProvided, CodeGeofenceViolation:
		return true
	}
	return false
}
