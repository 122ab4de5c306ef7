// internal/handlers/distribution.go
package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/Mahd-Mehn/MM-legato-sub000/internal/i18n"
	"github.com/Mahd-Mehn/MM-legato-sub000/internal/services"
	"github.com/Mahd-Mehn/MM-legato-sub000/internal/utils"
)

const periodLayout = "2006-01-02"

type DistributionHandler struct {
	revenueService *services.RevenueService
}

func NewDistributionHandler(revenueService *services.RevenueService) *DistributionHandler {
	return &DistributionHandler{
		revenueService: revenueService,
	}
}

// processDistributionBody is the wire form of a revenue event. Periods are
// calendar dates.
type processDistributionBody struct {
	GrossRevenue decimal.Decimal `json:"gross_revenue"`
	PeriodStart  string          `json:"period_start"`
	PeriodEnd    string          `json:"period_end"`
	Source       string          `json:"source"`
}

type confirmSettlementBody struct {
	PaymentReference string `json:"payment_reference"`
}

// POST /workflows/:id/distributions
func (h *DistributionHandler) Process(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	if _, ok := requireActor(c); !ok {
		return
	}
	workflowID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var body processDistributionBody
	if !bindJSON(c, &body) {
		return
	}
	start, err := time.Parse(periodLayout, body.PeriodStart)
	if err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "period_start"), nil)
		return
	}
	end, err := time.Parse(periodLayout, body.PeriodEnd)
	if err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "period_end"), nil)
		return
	}

	record, created, err := h.revenueService.ProcessRevenueDistribution(c.Request.Context(), workflowID, &services.ProcessDistributionRequest{
		GrossRevenue: body.GrossRevenue,
		PeriodStart:  start,
		PeriodEnd:    end,
		Source:       body.Source,
	})
	if err != nil {
		respondError(c, err, "workflow")
		return
	}

	response := gin.H{
		"message":      i18n.T(lang, i18n.KeyDistributionProcessed),
		"distribution": record,
		"created":      created,
	}
	if created {
		utils.CreatedResponse(c, response)
		return
	}
	utils.SuccessResponse(c, response)
}

// GET /workflows/:id/distributions
func (h *DistributionHandler) List(c *gin.Context) {
	workflowID, ok := parseID(c, "id")
	if !ok {
		return
	}

	records, err := h.revenueService.ListDistributions(c.Request.Context(), workflowID)
	if err != nil {
		respondError(c, err, "workflow")
		return
	}

	utils.PaginatedResponse(c, utils.Paginate(records, utils.GetPaginationParams(c)))
}

// GET /distributions/:id
func (h *DistributionHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	record, err := h.revenueService.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "distribution")
		return
	}

	utils.SuccessResponse(c, gin.H{"distribution": record})
}

// POST /distributions/:id/settlement
func (h *DistributionHandler) ReportSettlement(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	if _, ok := requireActor(c); !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var report services.SettlementReport
	if !bindJSON(c, &report) {
		return
	}

	record, err := h.revenueService.ReportSettlement(c.Request.Context(), id, &report)
	if err != nil {
		respondError(c, err, "distribution")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":      i18n.T(lang, i18n.KeyDistributionSettled),
		"distribution": record,
	})
}

// POST /distributions/:id/confirm
func (h *DistributionHandler) ConfirmSettlement(c *gin.Context) {
	if _, ok := requireActor(c); !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var body confirmSettlementBody
	if !bindJSON(c, &body) {
		return
	}

	record, err := h.revenueService.ConfirmSettlement(c.Request.Context(), id, body.PaymentReference)
	if err != nil {
		respondError(c, err, "distribution")
		return
	}

	utils.SuccessResponse(c, gin.H{"distribution": record})
}
