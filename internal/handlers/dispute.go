// internal/handlers/dispute.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/Mahd-Mehn/MM-legato-sub000/internal/i18n"
	"github.com/Mahd-Mehn/MM-legato-sub000/internal/services"
	"github.com/Mahd-Mehn/MM-legato-sub000/internal/utils"
)

type DisputeHandler struct {
	disputeService *services.DisputeService
}

func NewDisputeHandler(disputeService *services.DisputeService) *DisputeHandler {
	return &DisputeHandler{
		disputeService: disputeService,
	}
}

// POST /workflows/:id/disputes
func (h *DisputeHandler) Raise(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	actorID, ok := requireActor(c)
	if !ok {
		return
	}
	workflowID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req services.RaiseDisputeRequest
	if !bindJSON(c, &req) {
		return
	}
	req.RaisedByID = actorID

	dispute, err := h.disputeService.RaiseDispute(c.Request.Context(), workflowID, &req)
	if err != nil {
		respondError(c, err, "workflow")
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyDisputeRaised),
		"dispute": dispute,
	})
}

// GET /workflows/:id/disputes
func (h *DisputeHandler) List(c *gin.Context) {
	workflowID, ok := parseID(c, "id")
	if !ok {
		return
	}

	disputes, err := h.disputeService.ListByWorkflow(c.Request.Context(), workflowID)
	if err != nil {
		respondError(c, err, "workflow")
		return
	}

	utils.SuccessResponse(c, gin.H{"disputes": disputes})
}

// GET /disputes/:id
func (h *DisputeHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	dispute, err := h.disputeService.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "dispute")
		return
	}

	utils.SuccessResponse(c, gin.H{"dispute": dispute})
}

// POST /disputes/:id/mediation
func (h *DisputeHandler) StartMediation(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
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

	dispute, err := h.disputeService.StartMediation(c.Request.Context(), id, expected)
	if err != nil {
		respondError(c, err, "dispute")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyDisputeMediation),
		"dispute": dispute,
	})
}

// POST /disputes/:id/resolve
func (h *DisputeHandler) Resolve(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	actorID, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req services.ResolveDisputeRequest
	if !bindJSON(c, &req) {
		return
	}
	req.ResolvedBy = actorID

	dispute, err := h.disputeService.ResolveDispute(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err, "dispute")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyDisputeResolved),
		"dispute": dispute,
	})
}
