// internal/repository/repository.go
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/Mahd-Mehn/MM-legato-sub000/internal/models"
)

var (
	ErrNotFound        = errors.New("repository: record not found")
	ErrVersionConflict = errors.New("repository: version conflict")
	ErrDuplicate       = errors.New("repository: duplicate key")
)

// Create and Update methods accept outbox events that are persisted
// atomically with the aggregate. Update succeeds only when the aggregate's
// Version still matches the stored row; on success Version is incremented.

type NegotiationRepository interface {
	CreateNegotiation(ctx context.Context, session *models.NegotiationSession, events ...*models.OutboxEvent) error
	GetNegotiation(ctx context.Context, id uuid.UUID) (*models.NegotiationSession, error)
	UpdateNegotiation(ctx context.Context, session *models.NegotiationSession, events ...*models.OutboxEvent) error
	ListNegotiationsByParty(ctx context.Context, partyID string) ([]models.NegotiationSession, error)
	ListExpiredNegotiations(ctx context.Context, now time.Time, limit int) ([]models.NegotiationSession, error)
}

type ContractRepository interface {
	CreateContract(ctx context.Context, contract *models.Contract, events ...*models.OutboxEvent) error
	GetContract(ctx context.Context, id uuid.UUID) (*models.Contract, error)
	GetContractByNegotiation(ctx context.Context, negotiationID uuid.UUID) (*models.Contract, error)
	ListContractsByParty(ctx context.Context, partyID string) ([]models.Contract, error)
	UpdateContract(ctx context.Context, contract *models.Contract, events ...*models.OutboxEvent) error
}

type WorkflowRepository interface {
	CreateWorkflow(ctx context.Context, workflow *models.LicensingWorkflow, events ...*models.OutboxEvent) error
	GetWorkflow(ctx context.Context, id uuid.UUID) (*models.LicensingWorkflow, error)
	GetWorkflowByContract(ctx context.Context, contractID uuid.UUID) (*models.LicensingWorkflow, error)
	UpdateWorkflow(ctx context.Context, workflow *models.LicensingWorkflow, events ...*models.OutboxEvent) error
}

type DistributionRepository interface {
	// CommitDistribution inserts the record and applies the workflow update
	// (version checked) in one transaction. A record with the same ID yields
	// ErrDuplicate and nothing is written.
	CommitDistribution(ctx context.Context, record *models.RevenueDistributionRecord, workflow *models.LicensingWorkflow, events ...*models.OutboxEvent) error
	GetDistribution(ctx context.Context, id uuid.UUID) (*models.RevenueDistributionRecord, error)
	ListDistributions(ctx context.Context, workflowID uuid.UUID) ([]models.RevenueDistributionRecord, error)
	UpdateDistribution(ctx context.Context, record *models.RevenueDistributionRecord, events ...*models.OutboxEvent) error
}

type DisputeRepository interface {
	CreateDispute(ctx context.Context, dispute *models.Dispute, events ...*models.OutboxEvent) error
	GetDispute(ctx context.Context, id uuid.UUID) (*models.Dispute, error)
	UpdateDispute(ctx context.Context, dispute *models.Dispute, events ...*models.OutboxEvent) error
	ListDisputesByWorkflow(ctx context.Context, workflowID uuid.UUID) ([]models.Dispute, error)
	CountBlockingDisputes(ctx context.Context, workflowID uuid.UUID) (int64, error)
}

type OutboxRepository interface {
	ListPendingEvents(ctx context.Context, limit int) ([]models.OutboxEvent, error)
	MarkEventPublished(ctx context.Context, id uuid.UUID, at time.Time) error
	MarkEventFailed(ctx context.Context, id uuid.UUID, reason string) error
}

type AuditRepository interface {
	CreateAuditLog(ctx context.Context, entry *models.AuditLog) error
}

// Store is the full persistence surface of the licensing engine.
type Store interface {
	NegotiationRepository
	ContractRepository
	WorkflowRepository
	DistributionRepository
	DisputeRepository
	OutboxRepository
	AuditRepository
}

func blockingDisputeStatuses() []models.DisputeStatus {
	return []models.DisputeStatus{models.DisputeStatusOpen, models.DisputeStatusMediation}
}
