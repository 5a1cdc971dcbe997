// internal/handlers/application.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/javajoker/licensing-portal/internal/i18n"
	"github.com/javajoker/licensing-portal/internal/services"
	"github.com/javajoker/licensing-portal/internal/utils"
)

type ApplicationHandler struct {
	applicationService *services.ApplicationService
	timelineService    *services.TimelineService
}

func NewApplicationHandler(applicationService *services.ApplicationService, timelineService *services.TimelineService) *ApplicationHandler {
	return &ApplicationHandler{
		applicationService: applicationService,
		timelineService:    timelineService,
	}
}

// POST /applications
func (h *ApplicationHandler) SubmitApplication(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	actor, exists := utils.GetActorFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	var req services.SubmitApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), nil)
		return
	}

	application, err := h.applicationService.SubmitApplication(c.Request.Context(), actor, &req)
	if err != nil {
		utils.WorkflowErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message":     i18n.T(lang, i18n.KeyApplicationSubmitted),
		"application": application,
	})
}

// GET /applications
func (h *ApplicationHandler) ListApplications(c *gin.Context) {
	actor, exists := utils.GetActorFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	params := utils.GetPaginationParams(c)

	applications, total, err := h.timelineService.ListApplications(c.Request.Context(), actor, params, c.Query("status"))
	if err != nil {
		utils.WorkflowErrorResponse(c, err)
		return
	}

	result := utils.CreatePaginationResult(applications, total, params)
	utils.PaginatedResponse(c, result)
}

// GET /applications/:uid/timeline
func (h *ApplicationHandler) GetTimeline(c *gin.Context) {
	actor, exists := utils.GetActorFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	timeline, err := h.timelineService.ViewTimeline(c.Request.Context(), actor, c.Param("uid"))
	if err != nil {
		utils.WorkflowErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, timeline)
}

// GET /applications/:uid/actions
func (h *ApplicationHandler) GetAvailableActions(c *gin.Context) {
	actor, exists := utils.GetActorFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	actions, err := h.timelineService.AvailableActions(c.Request.Context(), actor, c.Param("uid"))
	if err != nil {
		utils.WorkflowErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"actions": actions})
}

// POST /applications/:uid/transitions
func (h *ApplicationHandler) ApplyTransition(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	actor, exists := utils.GetActorFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	var req services.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), nil)
		return
	}
	req.ApplicationUID = c.Param("uid")

	result, err := h.applicationService.ApplyTransition(c.Request.Context(), actor, &req)
	if err != nil {
		utils.WorkflowErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":     i18n.T(lang, i18n.KeyTransitionApplied, result.Application.Status),
		"application": result.Application,
		"event":       result.Event,
	})
}
