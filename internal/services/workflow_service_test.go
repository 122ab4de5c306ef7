package services

import (
	"github.com/Mahd-Mehn/MM-legato-sub000/internal/events"
	"github.com/Mahd-Mehn/MM-legato-sub000/internal/models"
)

func (s *EngineTestSuite) TestCreateWorkflowFromAdaptationTemplate() {
	workflow := s.filmWorkflow()

	s.Equal(models.LicenseCategoryAdaptation, workflow.LicenseCategory)
	s.Equal(models.WorkflowStatusActive, workflow.Status)
	s.True(workflow.PlatformFeePercent.Equal(dec("15")))
	s.True(workflow.WriterSharePercent.Equal(dec("85")))

	var stepIDs []string
	for _, step := range workflow.Steps {
		stepIDs = append(stepIDs, step.ID)
		s.Equal(models.StepStatusPending, step.Status)
	}
	s.Equal([]string{"contract_execution", "development_approval", "rights_transfer", "production_tracking", "revenue_distribution"}, stepIDs)

	recurring, ok := workflow.RecurringStep()
	s.Require().True(ok)
	s.Equal("revenue_distribution", recurring.ID)

	wantAmounts := map[string]string{
		"contract_signing":     "2000",
		"development_approval": "3000",
		"production_start":     "2500",
		"release":              "2500",
	}
	s.Require().Len(workflow.Milestones, len(wantAmounts))
	for _, m := range workflow.Milestones {
		s.True(m.PaymentAmount.Equal(dec(wantAmounts[m.ID])), "milestone %s amount %s", m.ID, m.PaymentAmount)
	}
}

func (s *EngineTestSuite) TestCreateWorkflowIsIdempotentPerContract() {
	workflow := s.filmWorkflow()

	again, err := s.workflows.CreateWorkflow(s.ctx, workflow.ContractID)
	s.Require().NoError(err)
	s.Equal(workflow.ID, again.ID)
}

func (s *EngineTestSuite) TestCreateWorkflowRequiresActiveContract() {
	session := s.accepted(models.LicenseTypeFilm, filmOffer())
	contract, err := s.contracts.GenerateContract(s.ctx, session.ID, nil)
	s.Require().NoError(err)

	_, err = s.workflows.CreateWorkflow(s.ctx, contract.ID)
	s.ErrorIs(err, ErrStateConflict)
}

func (s *EngineTestSuite) TestWriterShareFallsBackToDefault() {
	offer := filmOffer()
	offer.WriterSharePercent = dec("0")
	offer.Format = ""
	offer.TargetLanguages = []string{"de"}
	contract := s.activeContract(models.LicenseTypeTranslation, offer)

	workflow, err := s.workflows.CreateWorkflow(s.ctx, contract.ID)
	s.Require().NoError(err)
	s.Equal(models.LicenseCategoryTranslation, workflow.LicenseCategory)
	s.True(workflow.WriterSharePercent.Equal(dec("85")))
	s.Len(workflow.Milestones, 2)
}

func (s *EngineTestSuite) TestStepCannotStartBeforeItsDependencies() {
	workflow := s.filmWorkflow()

	_, err := s.workflows.UpdateStep(s.ctx, workflow.ID, "development_approval", &UpdateStepRequest{Status: models.StepStatusInProgress})
	s.ErrorIs(err, ErrValidation)

	_, err = s.workflows.UpdateStep(s.ctx, workflow.ID, "contract_execution", &UpdateStepRequest{Status: models.StepStatusCompleted})
	s.Require().NoError(err)

	workflow, err = s.workflows.UpdateStep(s.ctx, workflow.ID, "development_approval", &UpdateStepRequest{Status: models.StepStatusInProgress})
	s.Require().NoError(err)
	step, _ := workflow.Step("development_approval")
	s.Equal(models.StepStatusInProgress, step.Status)
	s.NotNil(step.StartedAt)

	_, err = s.workflows.UpdateStep(s.ctx, workflow.ID, "contract_execution", &UpdateStepRequest{Status: models.StepStatusInProgress})
	s.ErrorIs(err, ErrStateConflict)

	_, err = s.workflows.UpdateStep(s.ctx, workflow.ID, "casting", &UpdateStepRequest{Status: models.StepStatusInProgress})
	s.ErrorIs(err, ErrNotFound)
}

func (s *EngineTestSuite) TestMilestonesMoveOneStepAtATime() {
	workflow := s.filmWorkflow()

	_, err := s.workflows.UpdateMilestone(s.ctx, workflow.ID, "contract_signing", &UpdateMilestoneRequest{Status: models.MilestoneStatusCompleted})
	s.ErrorIs(err, ErrStateConflict)

	_, err = s.workflows.UpdateMilestone(s.ctx, workflow.ID, "contract_signing", &UpdateMilestoneRequest{Status: models.MilestoneStatusInProgress})
	s.Require().NoError(err)

	notes := "signed copies archived"
	workflow, err = s.workflows.UpdateMilestone(s.ctx, workflow.ID, "contract_signing", &UpdateMilestoneRequest{
		Status: models.MilestoneStatusCompleted,
		Notes:  &notes,
	})
	s.Require().NoError(err)
	milestone, _ := workflow.Milestone("contract_signing")
	s.Equal(models.MilestoneStatusCompleted, milestone.Status)
	s.Equal(notes, milestone.Notes)
	s.Contains(s.topics(), events.TopicMilestoneCompleted)

	progress, err := s.workflows.GetProgress(s.ctx, workflow.ID)
	s.Require().NoError(err)
	s.Equal(1, progress.MilestonesCompleted)
	s.True(progress.PaymentReleasedPercent.Equal(dec("20")))
	s.True(progress.PaymentReleasedAmount.Equal(dec("2000")))
	s.Require().NotNil(progress.NextMilestone)
	s.Equal("development_approval", progress.NextMilestone.ID)

	_, err = s.workflows.UpdateMilestone(s.ctx, workflow.ID, "contract_signing", &UpdateMilestoneRequest{Status: models.MilestoneStatusPending})
	s.ErrorIs(err, ErrStateConflict)
}

func (s *EngineTestSuite) TestWorkflowCompletesWhenEverythingIsDone() {
	workflow := s.readyForRevenue()

	for _, m := range workflow.Milestones {
		var err error
		_, err = s.workflows.UpdateMilestone(s.ctx, workflow.ID, m.ID, &UpdateMilestoneRequest{Status: models.MilestoneStatusInProgress})
		s.Require().NoError(err)
		workflow, err = s.workflows.UpdateMilestone(s.ctx, workflow.ID, m.ID, &UpdateMilestoneRequest{Status: models.MilestoneStatusCompleted})
		s.Require().NoError(err)
	}

	// production_tracking is optional and revenue_distribution is recurring.
	s.Equal(models.WorkflowStatusCompleted, workflow.Status)
	s.NotNil(workflow.CompletedAt)
	s.Contains(s.topics(), events.TopicWorkflowCompleted)

	// Royalties keep flowing after the production milestones are done.
	_, created, err := s.distribute(workflow.ID, "500.00", s.clock.Now())
	s.Require().NoError(err)
	s.True(created)
}

func (s *EngineTestSuite) TestCancelledWorkflowIsFrozen() {
	workflow := s.readyForRevenue()

	workflow, err := s.workflows.Cancel(s.ctx, workflow.ID, version(workflow.Version))
	s.Require().NoError(err)
	s.Equal(models.WorkflowStatusCancelled, workflow.Status)

	_, err = s.workflows.UpdateStep(s.ctx, workflow.ID, "production_tracking", &UpdateStepRequest{Status: models.StepStatusInProgress})
	s.ErrorIs(err, ErrStateConflict)

	_, _, err = s.distribute(workflow.ID, "100.00", s.clock.Now())
	s.ErrorIs(err, ErrStateConflict)
}

func (s *EngineTestSuite) TestWorkflowUpdateWithStaleVersion() {
	workflow := s.filmWorkflow()
	stale := workflow.Version

	_, err := s.workflows.UpdateStep(s.ctx, workflow.ID, "contract_execution", &UpdateStepRequest{
		Status:          models.StepStatusInProgress,
		ExpectedVersion: version(stale),
	})
	s.Require().NoError(err)

	_, err = s.workflows.UpdateStep(s.ctx, workflow.ID, "contract_execution", &UpdateStepRequest{
		Status:          models.StepStatusCompleted,
		ExpectedVersion: version(stale),
	})
	s.ErrorIs(err, ErrConcurrencyConflict)
}
