// internal/handlers/workflow.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/javajoker/licensing-portal/internal/utils"
	"github.com/javajoker/licensing-portal/internal/workflow"
)

type WorkflowHandler struct {
	table *workflow.Table
}

func NewWorkflowHandler(table *workflow.Table) *WorkflowHandler {
	return &WorkflowHandler{table: table}
}

// GET /workflow/transitions
func (h *WorkflowHandler) GetTransitions(c *gin.Context) {
	utils.SuccessResponse(c, gin.H{
		"initial_status":   workflow.InitialStatus,
		"submission_roles": workflow.SubmissionRoles,
		"transitions":      h.table.Rules(),
	})
}
