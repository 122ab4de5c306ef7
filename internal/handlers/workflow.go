// internal/handlers/workflow.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/Mahd-Mehn/MM-legato-sub000/internal/i18n"
	"github.com/Mahd-Mehn/MM-legato-sub000/internal/services"
	"github.com/Mahd-Mehn/MM-legato-sub000/internal/templates"
	"github.com/Mahd-Mehn/MM-legato-sub000/internal/utils"
)

type WorkflowHandler struct {
	workflowService *services.WorkflowService
	templates       *templates.Registry
}

func NewWorkflowHandler(workflowService *services.WorkflowService, registry *templates.Registry) *WorkflowHandler {
	return &WorkflowHandler{
		workflowService: workflowService,
		templates:       registry,
	}
}

// GET /workflows/:id
func (h *WorkflowHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	workflow, err := h.workflowService.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "workflow")
		return
	}

	utils.SuccessResponse(c, gin.H{"workflow": workflow})
}

// GET /workflows/:id/progress
func (h *WorkflowHandler) Progress(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	progress, err := h.workflowService.GetProgress(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "workflow")
		return
	}

	utils.SuccessResponse(c, gin.H{"progress": progress})
}

// PUT /workflows/:id/milestones/:milestone_id
func (h *WorkflowHandler) UpdateMilestone(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	if _, ok := requireActor(c); !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req services.UpdateMilestoneRequest
	if !bindJSON(c, &req) {
		return
	}

	workflow, err := h.workflowService.UpdateMilestone(c.Request.Context(), id, c.Param("milestone_id"), &req)
	if err != nil {
		respondError(c, err, "workflow")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":  i18n.T(lang, i18n.KeyWorkflowMilestoneUpdated),
		"workflow": workflow,
	})
}

// PUT /workflows/:id/steps/:step_id
func (h *WorkflowHandler) UpdateStep(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	if _, ok := requireActor(c); !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req services.UpdateStepRequest
	if !bindJSON(c, &req) {
		return
	}

	workflow, err := h.workflowService.UpdateStep(c.Request.Context(), id, c.Param("step_id"), &req)
	if err != nil {
		respondError(c, err, "workflow")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":  i18n.T(lang, i18n.KeyWorkflowStepUpdated),
		"workflow": workflow,
	})
}

// POST /workflows/:id/cancel
func (h *WorkflowHandler) Cancel(c *gin.Context) {
	if _, ok := requireActor(c); !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	expected, ok := bindOptionalVersion(c)
	if !ok {
		return
	}

	workflow, err := h.workflowService.Cancel(c.Request.Context(), id, expected)
	if err != nil {
		respondError(c, err, "workflow")
		return
	}

	utils.SuccessResponse(c, gin.H{"workflow": workflow})
}

// GET /templates
func (h *WorkflowHandler) Templates(c *gin.Context) {
	var out []*templates.Template
	for _, category := range h.templates.Categories() {
		tmpl, err := h.templates.ForCategory(category)
		if err != nil {
			respondError(c, err, "workflow")
			return
		}
		out = append(out, tmpl)
	}

	utils.SuccessResponse(c, gin.H{"templates": out})
}
