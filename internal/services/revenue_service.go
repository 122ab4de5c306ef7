// internal/services/revenue_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/Mahd-Mehn/MM-legato-sub000/internal/events"
	"github.com/Mahd-Mehn/MM-legato-sub000/internal/metrics"
	"github.com/Mahd-Mehn/MM-legato-sub000/internal/models"
	"github.com/Mahd-Mehn/MM-legato-sub000/internal/repository"
	"github.com/Mahd-Mehn/MM-legato-sub000/internal/utils"
)

// distributionNamespace scopes the name-based UUIDs of distribution records.
var distributionNamespace = uuid.MustParse("6f1c3a52-8e0b-5d7e-9a43-2b1f0c8d4e61")

const commitAttempts = 3

// DisputeGate reports whether an unresolved dispute blocks a workflow.
type DisputeGate interface {
	HasBlockingDispute(ctx context.Context, workflowID uuid.UUID) (bool, error)
}

type RevenueStore interface {
	repository.WorkflowRepository
	repository.DistributionRepository
}

type RevenueService struct {
	repo     RevenueStore
	disputes DisputeGate
	gateway  SettlementGateway
	clock    utils.Clock
	logger   *logrus.Logger
}

type ProcessDistributionRequest struct {
	GrossRevenue decimal.Decimal `json:"gross_revenue"`
	PeriodStart  time.Time       `json:"period_start"`
	PeriodEnd    time.Time       `json:"period_end"`
	Source       string          `json:"source" validate:"required,max=100"`
}

type SettlementReport struct {
	Success              bool   `json:"success"`
	TransactionReference string `json:"transaction_reference" validate:"max=255"`
	FailureReason        string `json:"failure_reason,omitempty" validate:"max=2000"`
}

func NewRevenueService(repo RevenueStore, disputes DisputeGate, gateway SettlementGateway, clock utils.Clock, logger *logrus.Logger) *RevenueService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &RevenueService{
		repo:     repo,
		disputes: disputes,
		gateway:  gateway,
		clock:    clock,
		logger:   logger,
	}
}

// ComputeDistribution splits gross into platform fee, writer share and studio
// share. The three parts always sum to gross exactly.
func ComputeDistribution(gross, platformFeePercent, writerPercentOfNet decimal.Decimal) (utils.Split, error) {
	split, err := utils.ComputeSplit(gross, platformFeePercent, writerPercentOfNet)
	if err != nil {
		return utils.Split{}, validationErrorf("%v", err)
	}
	return split, nil
}

// DistributionID derives the record identity from the workflow and the
// revenue period, so a redelivered revenue event maps onto the same record.
func DistributionID(workflowID uuid.UUID, periodStart, periodEnd time.Time) uuid.UUID {
	name := strings.Join([]string{
		workflowID.String(),
		utcDay(periodStart).Format("2006-01-02"),
		utcDay(periodEnd).Format("2006-01-02"),
	}, "|")
	return uuid.NewSHA1(distributionNamespace, []byte(name))
}

// ProcessRevenueDistribution records the split of one revenue period. The
// returned flag is false when the period had already been recorded, in which
// case the existing record is returned untouched.
func (s *RevenueService) ProcessRevenueDistribution(ctx context.Context, workflowID uuid.UUID, req *ProcessDistributionRequest) (*models.RevenueDistributionRecord, bool, error) {
	if err := validateRequest(req); err != nil {
		return nil, false, err
	}
	if err := utils.ValidateAmount(req.GrossRevenue); err != nil {
		return nil, false, validationErrorf("gross revenue: %v", err)
	}
	if req.PeriodStart.IsZero() || req.PeriodEnd.IsZero() {
		return nil, false, validationErrorf("revenue period start and end are required")
	}
	start, end := utcDay(req.PeriodStart), utcDay(req.PeriodEnd)
	if end.Before(start) {
		return nil, false, validationErrorf("period end %s is before period start %s", end.Format("2006-01-02"), start.Format("2006-01-02"))
	}

	id := DistributionID(workflowID, start, end)
	for attempt := 1; ; attempt++ {
		if existing, err := s.repo.GetDistribution(ctx, id); err == nil {
			s.logReplay(existing, req.GrossRevenue)
			return existing, false, nil
		} else if !errors.Is(err, repository.ErrNotFound) {
			return nil, false, translateRepoError(err, "distribution")
		}

		record, err := s.commit(ctx, id, workflowID, start, end, req)
		if err == nil {
			return record, true, nil
		}
		retryable := errors.Is(err, repository.ErrDuplicate) || errors.Is(err, repository.ErrVersionConflict)
		if retryable && attempt < commitAttempts {
			continue
		}
		return nil, false, translateRepoError(err, "workflow")
	}
}

func (s *RevenueService) commit(ctx context.Context, id, workflowID uuid.UUID, start, end time.Time, req *ProcessDistributionRequest) (*models.RevenueDistributionRecord, error) {
	workflow, err := s.repo.GetWorkflow(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	if workflow.Status == models.WorkflowStatusCancelled {
		return nil, stateConflictf("workflow is %s", workflow.Status)
	}
	// Late reports for periods inside the term are still accepted.
	if !workflow.ExpiresAt.IsZero() && start.After(workflow.ExpiresAt) {
		return nil, stateConflictf("period starting %s is after the license term ended on %s", start.Format("2006-01-02"), workflow.ExpiresAt.Format("2006-01-02"))
	}

	blocked, err := s.disputes.HasBlockingDispute(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	if blocked {
		metrics.Distributions.WithLabelValues("suspended").Inc()
		return nil, fmt.Errorf("%w: workflow %s has an open dispute", ErrWorkflowSuspended, workflowID)
	}

	step, ok := workflow.RecurringStep()
	if !ok {
		return nil, stateConflictf("workflow has no recurring distribution step")
	}
	if met, missing := workflow.DependenciesMet(step); !met {
		return nil, stateConflictf("revenue distribution waits on step %s", missing)
	}

	split, err := ComputeDistribution(req.GrossRevenue, workflow.PlatformFeePercent, workflow.WriterSharePercent)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	record := &models.RevenueDistributionRecord{
		WorkflowID:         workflowID,
		PeriodStart:        start,
		PeriodEnd:          end,
		GrossRevenue:       split.Gross,
		PlatformFeePercent: workflow.PlatformFeePercent,
		WriterSharePercent: workflow.WriterSharePercent,
		PlatformFee:        split.PlatformFee,
		WriterShare:        split.WriterShare,
		StudioShare:        split.StudioShare,
		Source:             req.Source,
		Status:             models.DistributionStatusPending,
	}
	record.ID = id
	record.Version = 1
	if !record.Reconciles() {
		return nil, fmt.Errorf("distribution %s does not reconcile", id)
	}

	if step.Status == models.StepStatusPending {
		step.Status = models.StepStatusInProgress
		step.StartedAt = &now
	}
	workflow.TotalGross = workflow.TotalGross.Add(split.Gross)
	workflow.TotalPlatformFee = workflow.TotalPlatformFee.Add(split.PlatformFee)
	workflow.TotalWriterShare = workflow.TotalWriterShare.Add(split.WriterShare)
	workflow.TotalStudioShare = workflow.TotalStudioShare.Add(split.StudioShare)
	workflow.DistributionCount++
	workflow.LastDistributionAt = &now

	event := events.New(events.TopicDistributionCreated, record.ID, now, models.JSONB{
		"workflow_id":  workflowID,
		"period_start": start.Format("2006-01-02"),
		"period_end":   end.Format("2006-01-02"),
		"gross":        split.Gross.StringFixed(utils.MoneyPlaces),
		"platform_fee": split.PlatformFee.StringFixed(utils.MoneyPlaces),
		"writer_share": split.WriterShare.StringFixed(utils.MoneyPlaces),
		"studio_share": split.StudioShare.StringFixed(utils.MoneyPlaces),
	})
	if err := s.repo.CommitDistribution(ctx, record, workflow, event); err != nil {
		return nil, err
	}

	metrics.Distributions.WithLabelValues("created").Inc()
	s.logger.WithFields(logrus.Fields{
		"distribution_id": record.ID,
		"workflow_id":     workflowID,
		"gross":           split.Gross.StringFixed(utils.MoneyPlaces),
	}).Info("Revenue distribution recorded")

	return record, nil
}

func (s *RevenueService) logReplay(existing *models.RevenueDistributionRecord, gross decimal.Decimal) {
	metrics.Distributions.WithLabelValues("replayed").Inc()
	entry := s.logger.WithFields(logrus.Fields{
		"distribution_id": existing.ID,
		"workflow_id":     existing.WorkflowID,
	})
	if !existing.GrossRevenue.Equal(gross) {
		entry.WithFields(logrus.Fields{
			"recorded_gross":  existing.GrossRevenue.StringFixed(utils.MoneyPlaces),
			"requested_gross": gross.StringFixed(utils.MoneyPlaces),
		}).Warn("Revenue period already recorded with a different gross; keeping the recorded split")
		return
	}
	entry.Debug("Revenue period already recorded")
}

func (s *RevenueService) Get(ctx context.Context, id uuid.UUID) (*models.RevenueDistributionRecord, error) {
	record, err := s.repo.GetDistribution(ctx, id)
	if err != nil {
		return nil, translateRepoError(err, "distribution")
	}
	return record, nil
}

func (s *RevenueService) ListDistributions(ctx context.Context, workflowID uuid.UUID) ([]models.RevenueDistributionRecord, error) {
	if _, err := s.repo.GetWorkflow(ctx, workflowID); err != nil {
		return nil, translateRepoError(err, "workflow")
	}
	return s.repo.ListDistributions(ctx, workflowID)
}

// ReportSettlement applies the payment service's outcome to a PENDING record.
// Settled records never change; repeating the same report is a no-op.
func (s *RevenueService) ReportSettlement(ctx context.Context, id uuid.UUID, report *SettlementReport) (*models.RevenueDistributionRecord, error) {
	if err := validateRequest(report); err != nil {
		return nil, err
	}
	if report.Success && strings.TrimSpace(report.TransactionReference) == "" {
		return nil, validationErrorf("transaction reference is required for a successful settlement")
	}

	record, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	target := models.DistributionStatusFailed
	if report.Success {
		target = models.DistributionStatusCompleted
	}
	if record.Status == target && record.TransactionReference == report.TransactionReference {
		return record, nil
	}
	if !record.Status.CanTransitionTo(target) {
		return nil, stateConflictf("distribution is already %s", record.Status)
	}

	now := s.clock.Now()
	record.Status = target
	record.TransactionReference = report.TransactionReference
	record.FailureReason = report.FailureReason
	record.SettledAt = &now

	event := events.New(events.TopicDistributionSettled, record.ID, now, models.JSONB{
		"workflow_id":           record.WorkflowID,
		"status":                record.Status,
		"transaction_reference": record.TransactionReference,
		"failure_reason":        record.FailureReason,
	})
	if err := s.repo.UpdateDistribution(ctx, record, event); err != nil {
		return nil, translateRepoError(err, "distribution")
	}

	metrics.Settlements.WithLabelValues(string(record.Status)).Inc()
	entry := s.logger.WithFields(logrus.Fields{
		"distribution_id": record.ID,
		"status":          record.Status,
	})
	if record.Status == models.DistributionStatusFailed {
		entry.WithField("reason", record.FailureReason).Warn("Distribution settlement failed")
	} else {
		entry.Info("Distribution settled")
	}

	return record, nil
}

// ConfirmSettlement asks the settlement gateway for the outcome of the
// payout identified by reference and reports it. A payout still in flight
// leaves the record PENDING.
func (s *RevenueService) ConfirmSettlement(ctx context.Context, id uuid.UUID, reference string) (*models.RevenueDistributionRecord, error) {
	if strings.TrimSpace(reference) == "" {
		return nil, validationErrorf("payment reference is required")
	}
	if s.gateway == nil {
		return nil, fmt.Errorf("%w: no settlement gateway configured", ErrDownstream)
	}

	record, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	outcome, err := s.gateway.LookupPayment(ctx, reference)
	if err != nil {
		if !errors.Is(err, ErrDownstream) {
			err = fmt.Errorf("%w: %v", ErrDownstream, err)
		}
		return nil, err
	}

	switch {
	case outcome.Settled:
		return s.ReportSettlement(ctx, id, &SettlementReport{Success: true, TransactionReference: outcome.Reference})
	case outcome.Failed:
		return s.ReportSettlement(ctx, id, &SettlementReport{
			Success:              false,
			TransactionReference: outcome.Reference,
			FailureReason:        "payment " + outcome.Status,
		})
	default:
		return record, nil
	}
}

func utcDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
