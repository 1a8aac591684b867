package api

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/lyricgraph/internal/errors"
	"github.com/tphakala/lyricgraph/internal/logger"
	"github.com/tphakala/lyricgraph/internal/privacy"
)

// ErrorResponse is the body of every failed API call.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	Code          int    `json:"code"`
	CorrelationID string `json:"correlation_id"`
	Hint          string `json:"hint,omitempty"`
}

// NewErrorResponse creates a new API error response.
func NewErrorResponse(err error, message string, code int, correlationID string) *ErrorResponse {
	errorStr := message
	if err != nil {
		errorStr = privacy.ScrubMessage(err.Error())
	}
	return &ErrorResponse{
		Error:         errorStr,
		Message:       message,
		Code:          code,
		CorrelationID: correlationID,
		Hint:          errors.HintOf(err),
	}
}

// HandleError logs err and writes it as an ErrorResponse. code 0 derives the
// status from the error category.
func (s *Server) HandleError(c echo.Context, err error, message string, code int) error {
	if code == 0 {
		code = statusFor(err)
	}
	correlationID := c.Response().Header().Get(echo.HeaderXRequestID)
	resp := NewErrorResponse(err, message, code, correlationID)

	fields := []logger.Field{
		logger.String("correlation_id", correlationID),
		logger.String("path", c.Path()),
		logger.Int("status", code),
		logger.String("ip", c.RealIP()),
	}
	if err != nil {
		fields = append(fields, logger.Error(err))
	}
	log := s.log.WithContext(c.Request().Context())
	if code >= http.StatusInternalServerError {
		log.Error(message, fields...)
	} else {
		log.Warn(message, fields...)
	}
	return c.JSON(code, resp)
}

// statusFor maps error categories onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusInternalServerError
	case errors.IsNotFound(err), errors.IsMissingData(err):
		return http.StatusNotFound
	case errors.IsCategory(err, errors.CategoryValidation):
		return http.StatusBadRequest
	case errors.IsCategory(err, errors.CategoryRateLimit):
		return http.StatusTooManyRequests
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.IsCategory(err, errors.CategoryProvider):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
