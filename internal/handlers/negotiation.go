// internal/handlers/negotiation.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Mahd-Mehn/MM-legato-sub000/internal/i18n"
	"github.com/Mahd-Mehn/MM-legato-sub000/internal/services"
	"github.com/Mahd-Mehn/MM-legato-sub000/internal/utils"
)

type NegotiationHandler struct {
	negotiationService *services.NegotiationService
	contractService    *services.ContractService
}

func NewNegotiationHandler(negotiationService *services.NegotiationService, contractService *services.ContractService) *NegotiationHandler {
	return &NegotiationHandler{
		negotiationService: negotiationService,
		contractService:    contractService,
	}
}

// POST /negotiations
func (h *NegotiationHandler) Initiate(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	actorID, ok := requireActor(c)
	if !ok {
		return
	}

	var req services.InitiateNegotiationRequest
	if !bindJSON(c, &req) {
		return
	}
	// The studio opens negotiations; a missing studio id means the caller.
	if req.StudioID == "" {
		req.StudioID = actorID
	}
	if req.StudioID != actorID {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "studio_id"), nil)
		return
	}

	session, err := h.negotiationService.Initiate(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err, "negotiation")
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message":     i18n.T(lang, i18n.KeyNegotiationInitiated),
		"negotiation": session,
	})
}

// GET /negotiations
func (h *NegotiationHandler) List(c *gin.Context) {
	actorID, ok := requireActor(c)
	if !ok {
		return
	}

	sessions, err := h.negotiationService.ListByParty(c.Request.Context(), actorID)
	if err != nil {
		respondError(c, err, "negotiation")
		return
	}

	utils.PaginatedResponse(c, utils.Paginate(sessions, utils.GetPaginationParams(c)))
}

// GET /negotiations/:id
func (h *NegotiationHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	session, err := h.negotiationService.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "negotiation")
		return
	}

	utils.SuccessResponse(c, gin.H{"negotiation": session})
}

// POST /negotiations/:id/messages
func (h *NegotiationHandler) SendMessage(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	actorID, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req services.SendMessageRequest
	if !bindJSON(c, &req) {
		return
	}
	req.SenderID = actorID

	session, err := h.negotiationService.SendMessage(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err, "negotiation")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":     i18n.T(lang, i18n.KeyNegotiationMessage),
		"negotiation": session,
	})
}

// POST /negotiations/:id/accept
func (h *NegotiationHandler) Accept(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	req, id, ok := h.closeRequest(c)
	if !ok {
		return
	}

	session, err := h.negotiationService.Accept(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err, "negotiation")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":     i18n.T(lang, i18n.KeyNegotiationAccepted),
		"negotiation": session,
	})
}

// POST /negotiations/:id/reject
func (h *NegotiationHandler) Reject(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	req, id, ok := h.closeRequest(c)
	if !ok {
		return
	}

	session, err := h.negotiationService.Reject(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err, "negotiation")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":     i18n.T(lang, i18n.KeyNegotiationRejected),
		"negotiation": session,
	})
}

// POST /negotiations/:id/contract
func (h *NegotiationHandler) GenerateContract(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	if _, ok := requireActor(c); !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req services.GenerateContractRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}

	contract, err := h.contractService.GenerateContract(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err, "negotiation")
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message":  i18n.T(lang, i18n.KeyContractGenerated),
		"contract": contract,
	})
}

func (h *NegotiationHandler) closeRequest(c *gin.Context) (*services.CloseNegotiationRequest, uuid.UUID, bool) {
	actorID, ok := requireActor(c)
	if !ok {
		return nil, uuid.Nil, false
	}
	id, ok := parseID(c, "id")
	if !ok {
		return nil, uuid.Nil, false
	}

	var req services.CloseNegotiationRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return nil, uuid.Nil, false
	}
	req.ActorID = actorID
	return &req, id, true
}
