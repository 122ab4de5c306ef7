// internal/services/dispute_service.go
package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Mahd-Mehn/MM-legato-sub000/internal/events"
	"github.com/Mahd-Mehn/MM-legato-sub000/internal/metrics"
	"github.com/Mahd-Mehn/MM-legato-sub000/internal/models"
	"github.com/Mahd-Mehn/MM-legato-sub000/internal/repository"
	"github.com/Mahd-Mehn/MM-legato-sub000/internal/utils"
)

type disputePolicy struct {
	priority models.DisputePriority
	days     int
}

var disputePolicies = map[models.DisputeType]disputePolicy{
	models.DisputeTypePayment:            {models.DisputePriorityHigh, 7},
	models.DisputeTypeContractBreach:     {models.DisputePriorityHigh, 14},
	models.DisputeTypeRightsInfringement: {models.DisputePriorityHigh, 10},
	models.DisputeTypeMilestoneDelay:     {models.DisputePriorityMedium, 14},
}

var defaultDisputePolicy = disputePolicy{models.DisputePriorityMedium, 14}

const (
	stepEvidenceCollection = "evidence_collection"
	stepFinancialAudit     = "financial_audit"
	stepMediation          = "mediation"
	stepResolution         = "resolution"
)

type DisputeStore interface {
	repository.DisputeRepository
	GetWorkflow(ctx context.Context, id uuid.UUID) (*models.LicensingWorkflow, error)
}

type DisputeService struct {
	repo   DisputeStore
	clock  utils.Clock
	logger *logrus.Logger
}

type RaiseDisputeRequest struct {
	Type        models.DisputeType `json:"type" validate:"required,dispute_type"`
	Description string             `json:"description" validate:"required,max=5000"`
	RaisedByID  string             `json:"raised_by_id" validate:"required,max=100"`
}

type ResolveDisputeRequest struct {
	Outcome         models.DisputeStatus `json:"outcome" validate:"required,oneof=RESOLVED ESCALATED"`
	Summary         string               `json:"summary" validate:"required,max=5000"`
	ResolvedBy      string               `json:"resolved_by" validate:"required,max=100"`
	ExpectedVersion *int64               `json:"expected_version,omitempty"`
}

func NewDisputeService(repo DisputeStore, clock utils.Clock, logger *logrus.Logger) *DisputeService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &DisputeService{
		repo:   repo,
		clock:  clock,
		logger: logger,
	}
}

// PolicyFor returns the priority and resolution timeline of a dispute type.
func PolicyFor(t models.DisputeType) (models.DisputePriority, int) {
	p, ok := disputePolicies[t]
	if !ok {
		p = defaultDisputePolicy
	}
	return p.priority, p.days
}

func resolutionSteps(t models.DisputeType) []models.ResolutionStep {
	names := []string{stepEvidenceCollection}
	if t == models.DisputeTypePayment {
		names = append(names, stepFinancialAudit)
	}
	names = append(names, stepMediation, stepResolution)

	steps := make([]models.ResolutionStep, len(names))
	for i, name := range names {
		steps[i] = models.ResolutionStep{Name: name, Status: models.ResolutionStepPending}
	}
	steps[0].Status = models.ResolutionStepInProgress
	return steps
}

func (s *DisputeService) RaiseDispute(ctx context.Context, workflowID uuid.UUID, req *RaiseDisputeRequest) (*models.Dispute, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetWorkflow(ctx, workflowID); err != nil {
		return nil, translateRepoError(err, "workflow")
	}

	now := s.clock.Now()
	priority, days := PolicyFor(req.Type)
	dispute := &models.Dispute{
		WorkflowID:             workflowID,
		Type:                   req.Type,
		Priority:               priority,
		Description:            req.Description,
		RaisedByID:             req.RaisedByID,
		ResolutionTimelineDays: days,
		DueAt:                  now.AddDate(0, 0, days),
		Status:                 models.DisputeStatusOpen,
		ResolutionSteps:        resolutionSteps(req.Type),
	}
	dispute.ID = uuid.New()
	dispute.Version = 1

	event := events.New(events.TopicDisputeRaised, dispute.ID, now, models.JSONB{
		"workflow_id": workflowID,
		"type":        dispute.Type,
		"priority":    dispute.Priority,
		"due_at":      dispute.DueAt,
		"raised_by":   dispute.RaisedByID,
	})
	if err := s.repo.CreateDispute(ctx, dispute, event); err != nil {
		return nil, translateRepoError(err, "dispute")
	}

	metrics.DisputesRaised.WithLabelValues(string(dispute.Type)).Inc()
	s.logger.WithFields(logrus.Fields{
		"dispute_id":  dispute.ID,
		"workflow_id": workflowID,
		"type":        dispute.Type,
		"priority":    dispute.Priority,
	}).Warn("Dispute raised, revenue distribution suspended")

	return dispute, nil
}

// StartMediation closes evidence collection (and the financial audit, when
// present) and opens mediation.
func (s *DisputeService) StartMediation(ctx context.Context, id uuid.UUID, expectedVersion *int64) (*models.Dispute, error) {
	dispute, err := s.loadForTransition(ctx, id, models.DisputeStatusMediation, expectedVersion)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	for i := range dispute.ResolutionSteps {
		step := &dispute.ResolutionSteps[i]
		switch step.Name {
		case stepEvidenceCollection, stepFinancialAudit:
			step.Status = models.ResolutionStepCompleted
			step.CompletedAt = &now
		case stepMediation:
			step.Status = models.ResolutionStepInProgress
		}
	}
	dispute.Status = models.DisputeStatusMediation

	if err := s.repo.UpdateDispute(ctx, dispute); err != nil {
		return nil, translateRepoError(err, "dispute")
	}

	s.logger.WithField("dispute_id", dispute.ID).Info("Dispute moved to mediation")
	return dispute, nil
}

// ResolveDispute closes a dispute in mediation as RESOLVED or ESCALATED,
// which lifts the distribution gate on its workflow.
func (s *DisputeService) ResolveDispute(ctx context.Context, id uuid.UUID, req *ResolveDisputeRequest) (*models.Dispute, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	dispute, err := s.loadForTransition(ctx, id, req.Outcome, req.ExpectedVersion)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	final := models.ResolutionStepCompleted
	if req.Outcome == models.DisputeStatusEscalated {
		final = models.ResolutionStepEscalated
	}
	for i := range dispute.ResolutionSteps {
		step := &dispute.ResolutionSteps[i]
		switch step.Name {
		case stepMediation, stepResolution:
			step.Status = final
			step.CompletedAt = &now
		}
	}
	dispute.Status = req.Outcome
	dispute.Resolution = req.Summary
	dispute.ResolvedByID = req.ResolvedBy
	dispute.ResolvedAt = &now

	event := events.New(events.TopicDisputeResolved, dispute.ID, now, models.JSONB{
		"workflow_id": dispute.WorkflowID,
		"outcome":     dispute.Status,
		"resolved_by": dispute.ResolvedByID,
	})
	if err := s.repo.UpdateDispute(ctx, dispute, event); err != nil {
		return nil, translateRepoError(err, "dispute")
	}

	s.logger.WithFields(logrus.Fields{
		"dispute_id":  dispute.ID,
		"workflow_id": dispute.WorkflowID,
		"outcome":     dispute.Status,
	}).Info("Dispute closed")

	return dispute, nil
}

func (s *DisputeService) HasBlockingDispute(ctx context.Context, workflowID uuid.UUID) (bool, error) {
	count, err := s.repo.CountBlockingDisputes(ctx, workflowID)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *DisputeService) Get(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	dispute, err := s.repo.GetDispute(ctx, id)
	if err != nil {
		return nil, translateRepoError(err, "dispute")
	}
	return dispute, nil
}

func (s *DisputeService) ListByWorkflow(ctx context.Context, workflowID uuid.UUID) ([]models.Dispute, error) {
	if _, err := s.repo.GetWorkflow(ctx, workflowID); err != nil {
		return nil, translateRepoError(err, "workflow")
	}
	return s.repo.ListDisputesByWorkflow(ctx, workflowID)
}

func (s *DisputeService) loadForTransition(ctx context.Context, id uuid.UUID, target models.DisputeStatus, expectedVersion *int64) (*models.Dispute, error) {
	dispute, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !dispute.Status.CanTransitionTo(target) {
		return nil, stateConflictf("dispute cannot move from %s to %s", dispute.Status, target)
	}
	if err := checkVersion(expectedVersion, dispute.Version); err != nil {
		return nil, err
	}
	return dispute, nil
}
