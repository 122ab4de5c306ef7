// internal/services/workflow_service.go
package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/Mahd-Mehn/MM-legato-sub000/internal/config"
	"github.com/Mahd-Mehn/MM-legato-sub000/internal/events"
	"github.com/Mahd-Mehn/MM-legato-sub000/internal/metrics"
	"github.com/Mahd-Mehn/MM-legato-sub000/internal/models"
	"github.com/Mahd-Mehn/MM-legato-sub000/internal/repository"
	"github.com/Mahd-Mehn/MM-legato-sub000/internal/templates"
	"github.com/Mahd-Mehn/MM-legato-sub000/internal/utils"
)

type WorkflowService struct {
	repo      repository.WorkflowRepository
	contracts *ContractService
	templates *templates.Registry
	config    config.LicensingConfig
	clock     utils.Clock
	logger    *logrus.Logger
}

type UpdateMilestoneRequest struct {
	Status          models.MilestoneStatus `json:"status" validate:"required,oneof=PENDING IN_PROGRESS COMPLETED"`
	CompletionDate  *time.Time             `json:"completion_date,omitempty"`
	Notes           *string                `json:"notes,omitempty" validate:"omitempty,max=2000"`
	ExpectedVersion *int64                 `json:"expected_version,omitempty"`
}

type UpdateStepRequest struct {
	Status          models.StepStatus `json:"status" validate:"required,oneof=PENDING IN_PROGRESS COMPLETED"`
	ExpectedVersion *int64            `json:"expected_version,omitempty"`
}

type WorkflowProgress struct {
	WorkflowID             uuid.UUID             `json:"workflow_id"`
	Status                 models.WorkflowStatus `json:"status"`
	StepsCompleted         int                   `json:"steps_completed"`
	StepsTotal             int                   `json:"steps_total"`
	MilestonesCompleted    int                   `json:"milestones_completed"`
	MilestonesTotal        int                   `json:"milestones_total"`
	PaymentReleasedPercent decimal.Decimal       `json:"payment_released_percent"`
	PaymentReleasedAmount  decimal.Decimal       `json:"payment_released_amount"`
	NextMilestone          *models.Milestone     `json:"next_milestone,omitempty"`
	TotalGross             decimal.Decimal       `json:"total_gross"`
	DistributionCount      int64                 `json:"distribution_count"`
}

func (p WorkflowProgress) MarshalJSON() ([]byte, error) {
	type plain WorkflowProgress
	return json.Marshal(struct {
		plain
		PaymentReleasedPercent string `json:"payment_released_percent"`
		PaymentReleasedAmount  string `json:"payment_released_amount"`
		TotalGross             string `json:"total_gross"`
	}{
		plain:                  plain(p),
		PaymentReleasedPercent: p.PaymentReleasedPercent.StringFixed(utils.MoneyPlaces),
		PaymentReleasedAmount:  p.PaymentReleasedAmount.StringFixed(utils.MoneyPlaces),
		TotalGross:             p.TotalGross.StringFixed(utils.MoneyPlaces),
	})
}

func NewWorkflowService(repo repository.WorkflowRepository, contracts *ContractService, registry *templates.Registry, cfg config.LicensingConfig, clock utils.Clock, logger *logrus.Logger) *WorkflowService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &WorkflowService{
		repo:      repo,
		contracts: contracts,
		templates: registry,
		config:    cfg,
		clock:     clock,
		logger:    logger,
	}
}

// CreateWorkflow builds the workflow of an ACTIVE contract from its license
// category template. One workflow exists per contract; repeated calls return
// it.
func (s *WorkflowService) CreateWorkflow(ctx context.Context, contractID uuid.UUID) (*models.LicensingWorkflow, error) {
	existing, err := s.repo.GetWorkflowByContract(ctx, contractID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, translateRepoError(err, "workflow")
	}

	contract, err := s.contracts.Get(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if contract.Status != models.ContractStatusActive {
		return nil, stateConflictf("contract is %s, workflows require ACTIVE", contract.Status)
	}

	category, ok := contract.LicenseType.Category()
	if !ok {
		return nil, validationErrorf("unknown license type %q", contract.LicenseType)
	}
	tmpl, err := s.templates.ForCategory(category)
	if err != nil {
		return nil, validationErrorf("%v", err)
	}
	orderedSteps, err := tmpl.OrderedSteps()
	if err != nil {
		return nil, validationErrorf("%v", err)
	}

	now := s.clock.Now()
	workflow := &models.LicensingWorkflow{
		ContractID:         contract.ID,
		LicenseType:        contract.LicenseType,
		LicenseCategory:    category,
		Status:             models.WorkflowStatusActive,
		AdvanceAmount:      contract.FinalTerms.AdvanceAmount,
		PlatformFeePercent: s.config.PlatformFeePercent,
		WriterSharePercent: contract.FinalTerms.WriterSharePercent,
		TotalGross:         decimal.Zero,
		TotalPlatformFee:   decimal.Zero,
		TotalWriterShare:   decimal.Zero,
		TotalStudioShare:   decimal.Zero,
		ExpiresAt:          now.AddDate(0, contract.FinalTerms.DurationMonths, 0),
	}
	workflow.ID = uuid.New()
	workflow.Version = 1
	if workflow.WriterSharePercent.IsZero() {
		workflow.WriterSharePercent = s.config.DefaultWriterSharePercent
	}

	for _, st := range orderedSteps {
		workflow.Steps = append(workflow.Steps, models.WorkflowStep{
			ID:        st.ID,
			Name:      st.Name,
			Required:  st.Required,
			Recurring: st.Recurring,
			DependsOn: append([]string{}, st.DependsOn...),
			Status:    models.StepStatusPending,
		})
	}

	percents := make([]decimal.Decimal, len(tmpl.Milestones))
	for i, m := range tmpl.Milestones {
		p, err := m.Percentage()
		if err != nil {
			return nil, validationErrorf("%v", err)
		}
		percents[i] = p
	}
	amounts := utils.AllocateByPercent(workflow.AdvanceAmount, percents)
	for i, m := range tmpl.Milestones {
		workflow.Milestones = append(workflow.Milestones, models.Milestone{
			ID:                m.ID,
			Name:              m.Name,
			PaymentPercentage: percents[i],
			PaymentAmount:     amounts[i],
			EstimatedDate:     now.AddDate(0, 0, m.OffsetDays),
			Status:            models.MilestoneStatusPending,
		})
	}

	if err := s.repo.CreateWorkflow(ctx, workflow); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			winner, getErr := s.repo.GetWorkflowByContract(ctx, contractID)
			if getErr != nil {
				return nil, translateRepoError(getErr, "workflow")
			}
			return winner, nil
		}
		return nil, translateRepoError(err, "workflow")
	}

	s.logger.WithFields(logrus.Fields{
		"workflow_id": workflow.ID,
		"contract_id": workflow.ContractID,
		"category":    workflow.LicenseCategory,
	}).Info("Licensing workflow created")

	return workflow, nil
}

func (s *WorkflowService) Get(ctx context.Context, id uuid.UUID) (*models.LicensingWorkflow, error) {
	workflow, err := s.repo.GetWorkflow(ctx, id)
	if err != nil {
		return nil, translateRepoError(err, "workflow")
	}
	return workflow, nil
}

func (s *WorkflowService) GetByContract(ctx context.Context, contractID uuid.UUID) (*models.LicensingWorkflow, error) {
	workflow, err := s.repo.GetWorkflowByContract(ctx, contractID)
	if err != nil {
		return nil, translateRepoError(err, "workflow")
	}
	return workflow, nil
}

// UpdateMilestone moves a milestone one step along PENDING, IN_PROGRESS,
// COMPLETED. Completing a milestone records progress only; no money moves.
func (s *WorkflowService) UpdateMilestone(ctx context.Context, workflowID uuid.UUID, milestoneID string, req *UpdateMilestoneRequest) (*models.LicensingWorkflow, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	workflow, err := s.loadMutable(ctx, workflowID, req.ExpectedVersion)
	if err != nil {
		return nil, err
	}
	milestone, ok := workflow.Milestone(milestoneID)
	if !ok {
		return nil, translateRepoError(repository.ErrNotFound, "milestone "+milestoneID)
	}
	if !milestone.Status.CanTransitionTo(req.Status) {
		return nil, stateConflictf("milestone %s cannot move from %s to %s", milestoneID, milestone.Status, req.Status)
	}

	now := s.clock.Now()
	milestone.Status = req.Status
	switch req.Status {
	case models.MilestoneStatusInProgress:
		milestone.StartedAt = &now
	case models.MilestoneStatusCompleted:
		completed := now
		if req.CompletionDate != nil {
			completed = req.CompletionDate.UTC()
		}
		milestone.CompletedAt = &completed
	}
	if req.Notes != nil {
		milestone.Notes = *req.Notes
	}

	var outbox []*models.OutboxEvent
	if milestone.Status == models.MilestoneStatusCompleted {
		outbox = append(outbox, events.New(events.TopicMilestoneCompleted, workflow.ID, now, models.JSONB{
			"milestone_id":       milestone.ID,
			"payment_percentage": milestone.PaymentPercentage.StringFixed(utils.MoneyPlaces),
			"payment_amount":     milestone.PaymentAmount.StringFixed(utils.MoneyPlaces),
		}))
	}
	outbox = append(outbox, s.completeIfDone(workflow, now)...)

	if err := s.repo.UpdateWorkflow(ctx, workflow, outbox...); err != nil {
		return nil, translateRepoError(err, "workflow")
	}
	if milestone.Status == models.MilestoneStatusCompleted {
		metrics.MilestonesCompleted.WithLabelValues(string(workflow.LicenseCategory)).Inc()
	}

	return workflow, nil
}

// UpdateStep moves a workflow step forward. A step enters IN_PROGRESS or
// COMPLETED only after every step it depends on is COMPLETED.
func (s *WorkflowService) UpdateStep(ctx context.Context, workflowID uuid.UUID, stepID string, req *UpdateStepRequest) (*models.LicensingWorkflow, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	workflow, err := s.loadMutable(ctx, workflowID, req.ExpectedVersion)
	if err != nil {
		return nil, err
	}
	step, ok := workflow.Step(stepID)
	if !ok {
		return nil, translateRepoError(repository.ErrNotFound, "step "+stepID)
	}
	if !step.Status.CanTransitionTo(req.Status) {
		return nil, stateConflictf("step %s cannot move from %s to %s", stepID, step.Status, req.Status)
	}
	if met, missing := workflow.DependenciesMet(step); !met {
		return nil, validationErrorf("step %s depends on %s, which is not completed", stepID, missing)
	}

	now := s.clock.Now()
	step.Status = req.Status
	switch req.Status {
	case models.StepStatusInProgress:
		step.StartedAt = &now
	case models.StepStatusCompleted:
		if step.StartedAt == nil {
			step.StartedAt = &now
		}
		step.CompletedAt = &now
	}

	outbox := s.completeIfDone(workflow, now)
	if err := s.repo.UpdateWorkflow(ctx, workflow, outbox...); err != nil {
		return nil, translateRepoError(err, "workflow")
	}

	return workflow, nil
}

// Cancel stops an ACTIVE workflow. Cancelled workflows accept no further
// distributions.
func (s *WorkflowService) Cancel(ctx context.Context, workflowID uuid.UUID, expectedVersion *int64) (*models.LicensingWorkflow, error) {
	workflow, err := s.Get(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	if !workflow.Status.CanTransitionTo(models.WorkflowStatusCancelled) {
		return nil, stateConflictf("workflow is %s", workflow.Status)
	}
	if err := checkVersion(expectedVersion, workflow.Version); err != nil {
		return nil, err
	}

	workflow.Status = models.WorkflowStatusCancelled
	if err := s.repo.UpdateWorkflow(ctx, workflow); err != nil {
		return nil, translateRepoError(err, "workflow")
	}

	s.logger.WithField("workflow_id", workflow.ID).Info("Licensing workflow cancelled")
	return workflow, nil
}

func (s *WorkflowService) GetProgress(ctx context.Context, workflowID uuid.UUID) (*WorkflowProgress, error) {
	workflow, err := s.Get(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	progress := &WorkflowProgress{
		WorkflowID:             workflow.ID,
		Status:                 workflow.Status,
		StepsTotal:             len(workflow.Steps),
		MilestonesTotal:        len(workflow.Milestones),
		PaymentReleasedPercent: decimal.Zero,
		PaymentReleasedAmount:  decimal.Zero,
		TotalGross:             workflow.TotalGross,
		DistributionCount:      workflow.DistributionCount,
	}
	for _, st := range workflow.Steps {
		if st.Status == models.StepStatusCompleted {
			progress.StepsCompleted++
		}
	}
	for i := range workflow.Milestones {
		m := workflow.Milestones[i]
		if m.Status == models.MilestoneStatusCompleted {
			progress.MilestonesCompleted++
			progress.PaymentReleasedPercent = progress.PaymentReleasedPercent.Add(m.PaymentPercentage)
			progress.PaymentReleasedAmount = progress.PaymentReleasedAmount.Add(m.PaymentAmount)
			continue
		}
		if progress.NextMilestone == nil {
			progress.NextMilestone = &m
		}
	}
	return progress, nil
}

func (s *WorkflowService) loadMutable(ctx context.Context, workflowID uuid.UUID, expectedVersion *int64) (*models.LicensingWorkflow, error) {
	workflow, err := s.Get(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	if workflow.Status == models.WorkflowStatusCancelled {
		return nil, stateConflictf("workflow is %s", workflow.Status)
	}
	if err := checkVersion(expectedVersion, workflow.Version); err != nil {
		return nil, err
	}
	return workflow, nil
}

// completeIfDone marks an ACTIVE workflow COMPLETED once every milestone and
// every required non-recurring step is COMPLETED.
func (s *WorkflowService) completeIfDone(workflow *models.LicensingWorkflow, now time.Time) []*models.OutboxEvent {
	if workflow.Status != models.WorkflowStatusActive {
		return nil
	}
	for _, m := range workflow.Milestones {
		if m.Status != models.MilestoneStatusCompleted {
			return nil
		}
	}
	for _, st := range workflow.Steps {
		if st.Required && !st.Recurring && st.Status != models.StepStatusCompleted {
			return nil
		}
	}

	workflow.Status = models.WorkflowStatusCompleted
	workflow.CompletedAt = &now
	s.logger.WithField("workflow_id", workflow.ID).Info("Licensing workflow completed")
	return []*models.OutboxEvent{
		events.New(events.TopicWorkflowCompleted, workflow.ID, now, models.JSONB{
			"contract_id": workflow.ContractID,
		}),
	}
}
