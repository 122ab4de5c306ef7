// internal/router/router.go
package router

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/Mahd-Mehn/MM-legato-sub000/internal/config"
	"github.com/Mahd-Mehn/MM-legato-sub000/internal/handlers"
	"github.com/Mahd-Mehn/MM-legato-sub000/internal/metrics"
	"github.com/Mahd-Mehn/MM-legato-sub000/internal/middleware"
	"github.com/Mahd-Mehn/MM-legato-sub000/internal/repository"
	"github.com/Mahd-Mehn/MM-legato-sub000/internal/services"
	"github.com/Mahd-Mehn/MM-legato-sub000/internal/templates"
	"github.com/Mahd-Mehn/MM-legato-sub000/internal/utils"
)

const version = "1.0.0"

// Initialize builds the HTTP surface. ctx bounds background work owned by
// the router, such as the rate limiter's bucket sweep.
func Initialize(ctx context.Context, cfg *config.Config, svc *services.Services, registry *templates.Registry, audit repository.AuditRepository, logger *logrus.Logger) *gin.Engine {
	// Initialize handlers
	negotiationHandler := handlers.NewNegotiationHandler(svc.Negotiations, svc.Contracts)
	contractHandler := handlers.NewContractHandler(svc.Contracts, svc.Workflows)
	workflowHandler := handlers.NewWorkflowHandler(svc.Workflows, registry)
	distributionHandler := handlers.NewDistributionHandler(svc.Revenue)
	disputeHandler := handlers.NewDisputeHandler(svc.Disputes)

	// Tokens are minted by the identity service; we only verify them
	utils.SetJWTSecret(cfg.JWT.SecretKey)
	utils.SetJWTIssuer(cfg.JWT.Issuer)

	// Initialize Gin router
	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.CORS(cfg.CORS.AllowedOrigins))
	r.Use(middleware.I18nMiddleware())
	r.Use(middleware.AuditLogMiddleware(audit, logger))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": version,
		})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	// API v1 routes
	v1 := r.Group("/v1")
	v1.Use(middleware.AuthRequired())
	if cfg.Server.RateLimit > 0 {
		v1.Use(middleware.NewRateLimiter(ctx, rate.Limit(cfg.Server.RateLimit), cfg.Server.RateLimitBurst).Middleware())
	}
	{
		v1.GET("/templates", workflowHandler.Templates)

		negotiations := v1.Group("/negotiations")
		{
			negotiations.POST("", negotiationHandler.Initiate)
			negotiations.GET("", negotiationHandler.List)
			negotiations.GET("/:id", negotiationHandler.Get)
			negotiations.POST("/:id/messages", negotiationHandler.SendMessage)
			negotiations.POST("/:id/accept", negotiationHandler.Accept)
			negotiations.POST("/:id/reject", negotiationHandler.Reject)
			negotiations.POST("/:id/contract", negotiationHandler.GenerateContract)
		}

		contracts := v1.Group("/contracts")
		{
			contracts.GET("", contractHandler.List)
			contracts.GET("/:id", contractHandler.Get)
			contracts.POST("/:id/sign", contractHandler.Sign)
			contracts.POST("/:id/cancel", contractHandler.Cancel)
			contracts.GET("/:id/document", contractHandler.Document)
			contracts.POST("/:id/workflow", contractHandler.CreateWorkflow)
		}

		workflows := v1.Group("/workflows")
		{
			workflows.GET("/:id", workflowHandler.Get)
			workflows.GET("/:id/progress", workflowHandler.Progress)
			workflows.PUT("/:id/milestones/:milestone_id", workflowHandler.UpdateMilestone)
			workflows.PUT("/:id/steps/:step_id", workflowHandler.UpdateStep)
			workflows.POST("/:id/cancel", workflowHandler.Cancel)

			workflows.POST("/:id/distributions", distributionHandler.Process)
			workflows.GET("/:id/distributions", distributionHandler.List)

			workflows.POST("/:id/disputes", disputeHandler.Raise)
			workflows.GET("/:id/disputes", disputeHandler.List)
		}

		distributions := v1.Group("/distributions")
		{
			distributions.GET("/:id", distributionHandler.Get)
			distributions.POST("/:id/settlement", distributionHandler.ReportSettlement)
			distributions.POST("/:id/confirm", distributionHandler.ConfirmSettlement)
		}

		disputes := v1.Group("/disputes")
		{
			disputes.GET("/:id", disputeHandler.Get)
			disputes.POST("/:id/mediation", disputeHandler.StartMediation)
			disputes.POST("/:id/resolve", disputeHandler.Resolve)
		}
	}

	return r
}
