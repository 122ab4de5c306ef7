// internal/i18n/keys.go
package i18n

// Translation keys constants
const (
	// Common
	KeySuccess = "success"
	KeyError   = "error"

	// Authentication
	KeyAuthRequired     = "auth.required"
	KeyAuthInvalidToken = "auth.invalid_token"
	KeyAuthTokenExpired = "auth.token_expired"
	KeyRateLimited      = "auth.rate_limited"

	// Negotiations
	KeyNegotiationInitiated = "negotiation.initiated"
	KeyNegotiationMessage   = "negotiation.message_sent"
	KeyNegotiationAccepted  = "negotiation.accepted"
	KeyNegotiationRejected  = "negotiation.rejected"
	KeyNegotiationNotFound  = "negotiation.not_found"

	// Contracts
	KeyContractGenerated = "contract.generated"
	KeyContractSigned    = "contract.signed"
	KeyContractCancelled = "contract.cancelled"
	KeyContractNotFound  = "contract.not_found"

	// Workflows
	KeyWorkflowCreated          = "workflow.created"
	KeyWorkflowMilestoneUpdated = "workflow.milestone_updated"
	KeyWorkflowStepUpdated      = "workflow.step_updated"
	KeyWorkflowNotFound         = "workflow.not_found"

	// Distributions
	KeyDistributionProcessed = "distribution.processed"
	KeyDistributionSettled   = "distribution.settled"
	KeyDistributionSuspended = "distribution.suspended"
	KeyDistributionNotFound  = "distribution.not_found"

	// Disputes
	KeyDisputeRaised    = "dispute.raised"
	KeyDisputeMediation = "dispute.mediation"
	KeyDisputeResolved  = "dispute.resolved"
	KeyDisputeNotFound  = "dispute.not_found"

	// Errors
	KeyStateConflict       = "error.state_conflict"
	KeyConcurrencyConflict = "error.concurrency_conflict"
	KeyDownstreamFailure   = "error.downstream_failure"

	// Validation
	KeyValidationRequired = "validation.required"
	KeyValidationInvalid  = "validation.invalid"
)
