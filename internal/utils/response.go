// internal/utils/response.go
package utils

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/javajoker/licensing-portal/internal/i18n"
	"github.com/javajoker/licensing-portal/internal/models"
	"github.com/javajoker/licensing-portal/internal/workflow"
)

type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
	Meta    interface{} `json:"meta,omitempty"`
}

type APIError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// Context keys set by the auth middleware.
const (
	ContextActorIdentity = "actor_identity"
	ContextActorRole     = "actor_role"
	ContextLang          = "lang"
)

func SuccessResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Data:    data,
	})
}

func SuccessResponseWithMeta(c *gin.Context, data interface{}, meta interface{}) {
	c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Data:    data,
		Meta:    meta,
	})
}

func CreatedResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, APIResponse{
		Success: true,
		Data:    data,
	})
}

func ErrorResponse(c *gin.Context, statusCode int, code, message string, details interface{}) {
	c.JSON(statusCode, APIResponse{
		Success: false,
		Error: &APIError{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

func BadRequestResponse(c *gin.Context, message string, details interface{}) {
	lang := GetLangFromContext(c)
	if message == "" {
		message = i18n.T(lang, i18n.KeyValidationInvalid, "request")
	}
	ErrorResponse(c, http.StatusBadRequest, "BAD_REQUEST", message, details)
}

func UnauthorizedResponse(c *gin.Context, message string) {
	lang := GetLangFromContext(c)
	if message == "" {
		message = i18n.T(lang, i18n.KeyAuthRequired)
	}
	ErrorResponse(c, http.StatusUnauthorized, "UNAUTHORIZED", message, nil)
}

func ForbiddenResponse(c *gin.Context, message string) {
	lang := GetLangFromContext(c)
	if message == "" {
		message = i18n.T(lang, i18n.KeyForbidden)
	}
	ErrorResponse(c, http.StatusForbidden, "FORBIDDEN", message, nil)
}

func NotFoundResponse(c *gin.Context, messageKey string) {
	lang := GetLangFromContext(c)
	message := i18n.T(lang, messageKey)
	ErrorResponse(c, http.StatusNotFound, "NOT_FOUND", message, nil)
}

func ConflictResponse(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusConflict, "ILLEGAL_TRANSITION", message, nil)
}

func InternalErrorResponse(c *gin.Context, message string) {
	if message == "" {
		message = "Internal server error"
	}
	ErrorResponse(c, http.StatusInternalServerError, "INTERNAL_ERROR", message, nil)
}

// WorkflowErrorResponse renders a workflow failure. Validation and
// authorization failures carry an actionable message; persistence and
// integrity failures get a generic one so storage details never leak.
func WorkflowErrorResponse(c *gin.Context, err error) {
	lang := GetLangFromContext(c)

	var details interface{}
	if fields := workflowFields(err); len(fields) > 0 {
		details = fields
	}

	switch workflow.KindOf(err) {
	case workflow.KindValidation:
		ErrorResponse(c, http.StatusBadRequest, "VALIDATION_ERROR", i18n.T(lang, i18n.KeyValidationInvalid, "input"), details)
	case workflow.KindNotFound:
		NotFoundResponse(c, i18n.KeyApplicationNotFound)
	case workflow.KindForbidden:
		ForbiddenResponse(c, i18n.T(lang, i18n.KeyForbidden))
	case workflow.KindIllegalTransition:
		ConflictResponse(c, i18n.T(lang, i18n.KeyIllegalTransition))
	case workflow.KindPersistence:
		ErrorResponse(c, http.StatusServiceUnavailable, "TRY_AGAIN", i18n.T(lang, i18n.KeyTryAgain), nil)
	case workflow.KindIntegrity:
		ErrorResponse(c, http.StatusInternalServerError, "CONTACT_SUPPORT", i18n.T(lang, i18n.KeyContactSupport), nil)
	default:
		InternalErrorResponse(c, "")
	}
}

func workflowFields(err error) []workflow.FieldError {
	var we *workflow.Error
	if !errors.As(err, &we) {
		return nil
	}
	return we.Fields
}

func PaginatedResponse(c *gin.Context, result PaginationResult) {
	SetPaginationHeaders(c, result)
	SuccessResponseWithMeta(c, result.Data, gin.H{
		"pagination": gin.H{
			"page":        result.Page,
			"limit":       result.Limit,
			"total":       result.Total,
			"total_pages": result.TotalPages,
		},
	})
}

func GetLangFromContext(c *gin.Context) string {
	if lang, exists := c.Get(ContextLang); exists {
		if langStr, ok := lang.(string); ok {
			return langStr
		}
	}
	return "en"
}

// GetActorFromContext returns the caller identity placed on the context by
// the auth middleware.
func GetActorFromContext(c *gin.Context) (workflow.Actor, bool) {
	identity := c.GetString(ContextActorIdentity)
	role := c.GetString(ContextActorRole)
	if identity == "" || role == "" {
		return workflow.Actor{}, false
	}
	return workflow.Actor{Identity: identity, Role: models.Role(role)}, true
}
