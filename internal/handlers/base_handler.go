package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/campuskit/classroom-service/internal/repositories"
	"github.com/campuskit/classroom-service/internal/services"
	"github.com/campuskit/classroom-service/internal/utils"
)

// BaseHandler provides shared logging and error mapping for all handlers.
type BaseHandler struct {
	logger utils.Logger
}

func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

// SuccessResponse is the envelope for successful responses that carry a message.
type SuccessResponse struct {
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// ErrorResponse is the envelope for all error responses.
type ErrorResponse struct {
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func (h *BaseHandler) LogRequest(c *gin.Context, msg string, args ...any) {
	utils.LoggerFromContext(c.Request.Context(), h.logger).Info(msg, args...)
}

func (h *BaseHandler) LogError(c *gin.Context, err error, msg string, args ...any) {
	args = append(args, "error", err)
	utils.LoggerFromContext(c.Request.Context(), h.logger).Error(msg, args...)
}

// parseIDParam parses a numeric path parameter. On failure it writes a 400
// response and returns 0; callers must return immediately on 0.
func (h *BaseHandler) parseIDParam(c *gin.Context, name string) uint {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid " + name + " parameter",
			Details: raw,
		})
		return 0
	}
	return uint(id)
}

// handleServiceError maps service-layer errors onto HTTP status codes.
func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	var validationErrs services.ValidationErrors
	if errors.As(err, &validationErrs) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: validationErrs,
		})
		return
	}

	var permErr *services.PermissionError
	if errors.As(err, &permErr) {
		c.JSON(http.StatusForbidden, ErrorResponse{
			Message: permErr.Reason,
		})
		return
	}

	var ruleErr *services.BusinessRuleError
	if errors.As(err, &ruleErr) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: ruleErr.Message,
		})
		return
	}

	switch {
	case errors.Is(err, services.ErrClassroomNotFound),
		errors.Is(err, services.ErrClassCodeNotFound),
		errors.Is(err, services.ErrMaterialNotFound),
		errors.Is(err, services.ErrReadingInfoEmpty),
		repositories.IsNotFoundError(err):
		c.JSON(http.StatusNotFound, ErrorResponse{Message: err.Error()})

	case errors.Is(err, services.ErrOwnTeacherJoin),
		errors.Is(err, services.ErrUsernameTaken):
		c.JSON(http.StatusConflict, ErrorResponse{Message: err.Error()})

	case errors.Is(err, services.ErrInvalidCredentials),
		errors.Is(err, services.ErrInvalidToken):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: err.Error()})

	default:
		h.LogError(c, err, "Unhandled service error")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Internal server error",
		})
	}
}
