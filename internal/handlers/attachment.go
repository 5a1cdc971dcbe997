// internal/handlers/attachment.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/javajoker/licensing-portal/internal/i18n"
	"github.com/javajoker/licensing-portal/internal/services"
	"github.com/javajoker/licensing-portal/internal/utils"
)

type AttachmentHandler struct {
	attachmentService *services.AttachmentService
}

func NewAttachmentHandler(attachmentService *services.AttachmentService) *AttachmentHandler {
	return &AttachmentHandler{
		attachmentService: attachmentService,
	}
}

// POST /attachments/presign
func (h *AttachmentHandler) PresignUpload(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	actor, exists := utils.GetActorFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	var req services.PresignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), nil)
		return
	}

	result, err := h.attachmentService.PresignUpload(c.Request.Context(), actor, &req)
	if errors.Is(err, services.ErrAttachmentsUnavailable) {
		utils.ErrorResponse(c, http.StatusServiceUnavailable, "ATTACHMENTS_UNAVAILABLE", i18n.T(lang, i18n.KeyAttachmentUnavailable), nil)
		return
	}
	if err != nil {
		utils.WorkflowErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message":    i18n.T(lang, i18n.KeyAttachmentPresigned),
		"attachment": result,
	})
}
