package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"cropscout/internal/domain/entity"
)

// errorResponse тело ответа с ошибкой
type errorResponse struct {
	Code    entity.ErrorCode `json:"code"`
	Message string           `json:"message"`
}

// StatusOf HTTP-статус для кода ошибки прикладного слоя
func StatusOf(code entity.ErrorCode) int {
	switch {
	case code.IsValidation():
		return http.StatusBadRequest
	case code == entity.CodeFieldNotFound, code == entity.CodeNotFound:
		return http.StatusNotFound
	case code == entity.CodeFieldBusy:
		return http.StatusConflict
	case code == entity.CodeAnalysisFailure:
		return http.StatusBadGateway
	case code == entity.CodeNoModelsAvailable:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func toResponse(err error) (int, errorResponse) {
	var appErr *entity.Error
	if errors.As(err, &appErr) {
		status := StatusOf(appErr.Code)
		if appErr.Code == entity.CodeAnalysisFailure && errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusGatewayTimeout
		}
		return status, errorResponse{Code: appErr.Code, Message: appErr.Message}
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		code := entity.CodeInvalidRequest
		switch {
		case he.Code == http.StatusNotFound:
			code = entity.CodeNotFound
		case he.Code >= http.StatusInternalServerError:
			code = entity.CodeInternal
		}
		return he.Code, errorResponse{Code: code, Message: fmt.Sprint(he.Message)}
	}

	return http.StatusInternalServerError, errorResponse{Code: entity.CodeInternal, Message: "internal server error"}
}

// ErrorHandler пишет ошибку как {"code", "message"}; серверные ошибки попадают в журнал
func ErrorHandler(log *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, body := toResponse(err)
		if status >= http.StatusInternalServerError {
			log.Error("request failed",
				"method", c.Request().Method,
				"path", c.Request().URL.Path,
				"status", status,
				"code", body.Code,
				"error", err,
			)
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(status)
		} else {
			werr = c.JSON(status, body)
		}
		if werr != nil {
			log.Error("failed to write error response", "error", werr)
		}
	}
}

func badRequest(msg string, err error) error {
	return entity.NewError(entity.CodeInvalidRequest, msg, err)
}
