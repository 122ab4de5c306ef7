// internal/repository/gorm_store.go
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/Mahd-Mehn/MM-legato-sub000/internal/database"
	"github.com/Mahd-Mehn/MM-legato-sub000/internal/models"
)

const uniqueViolation = "23505"

// GormStore persists aggregates in PostgreSQL through gorm.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

var _ Store = (*GormStore)(nil)

func (s *GormStore) withTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return database.WithTransaction(ctx, s.db, fn)
}

// Negotiations

func (s *GormStore) CreateNegotiation(ctx context.Context, session *models.NegotiationSession, events ...*models.OutboxEvent) error {
	return s.withTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(session).Error; err != nil {
			return translateError(err)
		}
		return appendEvents(tx, events)
	})
}

func (s *GormStore) GetNegotiation(ctx context.Context, id uuid.UUID) (*models.NegotiationSession, error) {
	var session models.NegotiationSession
	if err := s.db.WithContext(ctx).First(&session, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return &session, nil
}

func (s *GormStore) UpdateNegotiation(ctx context.Context, session *models.NegotiationSession, events ...*models.OutboxEvent) error {
	return s.withTx(ctx, func(tx *gorm.DB) error {
		if err := updateVersioned(tx, session, &session.BaseModel); err != nil {
			return err
		}
		return appendEvents(tx, events)
	})
}

func (s *GormStore) ListNegotiationsByParty(ctx context.Context, partyID string) ([]models.NegotiationSession, error) {
	var sessions []models.NegotiationSession
	err := s.db.WithContext(ctx).
		Where("studio_id = ? OR writer_id = ?", partyID, partyID).
		Order("created_at desc").
		Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list negotiations: %w", err)
	}
	return sessions, nil
}

func (s *GormStore) ListExpiredNegotiations(ctx context.Context, now time.Time, limit int) ([]models.NegotiationSession, error) {
	var sessions []models.NegotiationSession
	err := s.db.WithContext(ctx).
		Where("status IN ? AND expires_at < ?", []models.NegotiationStatus{
			models.NegotiationStatusInitiated,
			models.NegotiationStatusInProgress,
			models.NegotiationStatusCounterOffer,
		}, now).
		Order("expires_at asc").
		Limit(limit).
		Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list expired negotiations: %w", err)
	}
	return sessions, nil
}

// Contracts

func (s *GormStore) CreateContract(ctx context.Context, contract *models.Contract, events ...*models.OutboxEvent) error {
	return s.withTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(contract).Error; err != nil {
			return translateError(err)
		}
		return appendEvents(tx, events)
	})
}

func (s *GormStore) GetContract(ctx context.Context, id uuid.UUID) (*models.Contract, error) {
	var contract models.Contract
	if err := s.db.WithContext(ctx).First(&contract, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return &contract, nil
}

func (s *GormStore) GetContractByNegotiation(ctx context.Context, negotiationID uuid.UUID) (*models.Contract, error) {
	var contract models.Contract
	if err := s.db.WithContext(ctx).First(&contract, "negotiation_id = ?", negotiationID).Error; err != nil {
		return nil, translateError(err)
	}
	return &contract, nil
}

// ListContractsByParty matches partyID against the parties array, which the
// GIN index on contracts(parties) serves.
func (s *GormStore) ListContractsByParty(ctx context.Context, partyID string) ([]models.Contract, error) {
	var contracts []models.Contract
	err := s.db.WithContext(ctx).
		Where("? = ANY(parties)", partyID).
		Order("created_at desc").
		Find(&contracts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list contracts: %w", err)
	}
	return contracts, nil
}

func (s *GormStore) UpdateContract(ctx context.Context, contract *models.Contract, events ...*models.OutboxEvent) error {
	return s.withTx(ctx, func(tx *gorm.DB) error {
		if err := updateVersioned(tx, contract, &contract.BaseModel); err != nil {
			return err
		}
		return appendEvents(tx, events)
	})
}

// Workflows

func (s *GormStore) CreateWorkflow(ctx context.Context, workflow *models.LicensingWorkflow, events ...*models.OutboxEvent) error {
	return s.withTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(workflow).Error; err != nil {
			return translateError(err)
		}
		return appendEvents(tx, events)
	})
}

func (s *GormStore) GetWorkflow(ctx context.Context, id uuid.UUID) (*models.LicensingWorkflow, error) {
	var workflow models.LicensingWorkflow
	if err := s.db.WithContext(ctx).First(&workflow, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return &workflow, nil
}

func (s *GormStore) GetWorkflowByContract(ctx context.Context, contractID uuid.UUID) (*models.LicensingWorkflow, error) {
	var workflow models.LicensingWorkflow
	if err := s.db.WithContext(ctx).First(&workflow, "contract_id = ?", contractID).Error; err != nil {
		return nil, translateError(err)
	}
	return &workflow, nil
}

func (s *GormStore) UpdateWorkflow(ctx context.Context, workflow *models.LicensingWorkflow, events ...*models.OutboxEvent) error {
	return s.withTx(ctx, func(tx *gorm.DB) error {
		if err := updateVersioned(tx, workflow, &workflow.BaseModel); err != nil {
			return err
		}
		return appendEvents(tx, events)
	})
}

// Distributions

func (s *GormStore) CommitDistribution(ctx context.Context, record *models.RevenueDistributionRecord, workflow *models.LicensingWorkflow, events ...*models.OutboxEvent) error {
	version := workflow.Version
	err := s.withTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(record).Error; err != nil {
			return translateError(err)
		}
		if err := updateVersioned(tx, workflow, &workflow.BaseModel); err != nil {
			return err
		}
		return appendEvents(tx, events)
	})
	if err != nil {
		workflow.Version = version
	}
	return err
}

func (s *GormStore) GetDistribution(ctx context.Context, id uuid.UUID) (*models.RevenueDistributionRecord, error) {
	var record models.RevenueDistributionRecord
	if err := s.db.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return &record, nil
}

func (s *GormStore) ListDistributions(ctx context.Context, workflowID uuid.UUID) ([]models.RevenueDistributionRecord, error) {
	var records []models.RevenueDistributionRecord
	err := s.db.WithContext(ctx).
		Where("workflow_id = ?", workflowID).
		Order("period_start asc").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list distributions: %w", err)
	}
	return records, nil
}

func (s *GormStore) UpdateDistribution(ctx context.Context, record *models.RevenueDistributionRecord, events ...*models.OutboxEvent) error {
	return s.withTx(ctx, func(tx *gorm.DB) error {
		if err := updateVersioned(tx, record, &record.BaseModel); err != nil {
			return err
		}
		return appendEvents(tx, events)
	})
}

// Disputes

func (s *GormStore) CreateDispute(ctx context.Context, dispute *models.Dispute, events ...*models.OutboxEvent) error {
	return s.withTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(dispute).Error; err != nil {
			return translateError(err)
		}
		return appendEvents(tx, events)
	})
}

func (s *GormStore) GetDispute(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	var dispute models.Dispute
	if err := s.db.WithContext(ctx).First(&dispute, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return &dispute, nil
}

func (s *GormStore) UpdateDispute(ctx context.Context, dispute *models.Dispute, events ...*models.OutboxEvent) error {
	return s.withTx(ctx, func(tx *gorm.DB) error {
		if err := updateVersioned(tx, dispute, &dispute.BaseModel); err != nil {
			return err
		}
		return appendEvents(tx, events)
	})
}

func (s *GormStore) ListDisputesByWorkflow(ctx context.Context, workflowID uuid.UUID) ([]models.Dispute, error) {
	var disputes []models.Dispute
	err := s.db.WithContext(ctx).
		Where("workflow_id = ?", workflowID).
		Order("created_at desc").
		Find(&disputes).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list disputes: %w", err)
	}
	return disputes, nil
}

func (s *GormStore) CountBlockingDisputes(ctx context.Context, workflowID uuid.UUID) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Dispute{}).
		Where("workflow_id = ? AND status IN ?", workflowID, blockingDisputeStatuses()).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count disputes: %w", err)
	}
	return count, nil
}

// Outbox

func (s *GormStore) ListPendingEvents(ctx context.Context, limit int) ([]models.OutboxEvent, error) {
	var events []models.OutboxEvent
	err := s.db.WithContext(ctx).
		Where("published_at IS NULL").
		Order("occurred_at asc").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list outbox events: %w", err)
	}
	return events, nil
}

func (s *GormStore) MarkEventPublished(ctx context.Context, id uuid.UUID, at time.Time) error {
	res := s.db.WithContext(ctx).Model(&models.OutboxEvent{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"published_at": at,
			"attempts":     gorm.Expr("attempts + 1"),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to mark event published: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) MarkEventFailed(ctx context.Context, id uuid.UUID, reason string) error {
	res := s.db.WithContext(ctx).Model(&models.OutboxEvent{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"last_error": reason,
			"attempts":   gorm.Expr("attempts + 1"),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to mark event failed: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Audit

func (s *GormStore) CreateAuditLog(ctx context.Context, entry *models.AuditLog) error {
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	return nil
}

// Helpers

func updateVersioned(tx *gorm.DB, model interface{}, base *models.BaseModel) error {
	expected := base.Version
	base.Version = expected + 1

	res := tx.Model(model).
		Where("version = ?", expected).
		Select("*").
		Omit("ID", "CreatedAt").
		Updates(model)
	if res.Error != nil {
		base.Version = expected
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		base.Version = expected
		return ErrVersionConflict
	}
	return nil
}

func appendEvents(tx *gorm.DB, events []*models.OutboxEvent) error {
	if len(events) == 0 {
		return nil
	}
	if err := tx.Create(events).Error; err != nil {
		return fmt.Errorf("failed to append outbox events: %w", err)
	}
	return nil
}

func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrDuplicate
	}
	return fmt.Errorf("database error: %w", err)
}
