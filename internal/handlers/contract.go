// internal/handlers/contract.go
package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Mahd-Mehn/MM-legato-sub000/internal/i18n"
	"github.com/Mahd-Mehn/MM-legato-sub000/internal/services"
	"github.com/Mahd-Mehn/MM-legato-sub000/internal/utils"
)

const documentLinkTTL = 15 * time.Minute

type ContractHandler struct {
	contractService *services.ContractService
	workflowService *services.WorkflowService
}

func NewContractHandler(contractService *services.ContractService, workflowService *services.WorkflowService) *ContractHandler {
	return &ContractHandler{
		contractService: contractService,
		workflowService: workflowService,
	}
}

// GET /contracts
func (h *ContractHandler) List(c *gin.Context) {
	actorID, ok := requireActor(c)
	if !ok {
		return
	}

	contracts, err := h.contractService.ListByParty(c.Request.Context(), actorID)
	if err != nil {
		respondError(c, err, "contract")
		return
	}

	utils.PaginatedResponse(c, utils.Paginate(contracts, utils.GetPaginationParams(c)))
}

// GET /contracts/:id
func (h *ContractHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	contract, err := h.contractService.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "contract")
		return
	}

	utils.SuccessResponse(c, gin.H{"contract": contract})
}

// POST /contracts/:id/sign
func (h *ContractHandler) Sign(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	actorID, ok := requireActor(c)
	if !ok {
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

	contract, err := h.contractService.Sign(c.Request.Context(), id, &services.SignContractRequest{
		SignerID:        actorID,
		ExpectedVersion: expected,
	})
	if err != nil {
		respondError(c, err, "contract")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":  i18n.T(lang, i18n.KeyContractSigned),
		"contract": contract,
	})
}

// POST /contracts/:id/cancel
func (h *ContractHandler) Cancel(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	actorID, ok := requireActor(c)
	if !ok {
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

	contract, err := h.contractService.Cancel(c.Request.Context(), id, actorID, expected)
	if err != nil {
		respondError(c, err, "contract")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":  i18n.T(lang, i18n.KeyContractCancelled),
		"contract": contract,
	})
}

// GET /contracts/:id/document
func (h *ContractHandler) Document(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	url, err := h.contractService.DocumentURL(c.Request.Context(), id, documentLinkTTL)
	if err != nil {
		respondError(c, err, "contract")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"url":        url,
		"expires_in": int(documentLinkTTL.Seconds()),
	})
}

// POST /contracts/:id/workflow
func (h *ContractHandler) CreateWorkflow(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	if _, ok := requireActor(c); !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	workflow, err := h.workflowService.CreateWorkflow(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "contract")
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message":  i18n.T(lang, i18n.KeyWorkflowCreated),
		"workflow": workflow,
	})
}
