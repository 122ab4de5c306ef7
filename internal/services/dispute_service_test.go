package services

import (
	"time"

	"github.com/google/uuid"

	"github.com/Mahd-Mehn/MM-legato-sub000/internal/models"
)

func (s *EngineTestSuite) TestPaymentDisputeGetsHighPriorityAndAudit() {
	workflow := s.filmWorkflow()

	dispute, err := s.disputes.RaiseDispute(s.ctx, workflow.ID, &RaiseDisputeRequest{
		Type:        models.DisputeTypePayment,
		Description: "Q1 royalties never arrived",
		RaisedByID:  writerID,
	})
	s.Require().NoError(err)

	s.Equal(models.DisputePriorityHigh, dispute.Priority)
	s.Equal(7, dispute.ResolutionTimelineDays)
	s.Equal(s.clock.Now().AddDate(0, 0, 7), dispute.DueAt)
	s.Equal(models.DisputeStatusOpen, dispute.Status)

	var names []string
	for _, step := range dispute.ResolutionSteps {
		names = append(names, step.Name)
	}
	s.Equal([]string{"evidence_collection", "financial_audit", "mediation", "resolution"}, names)
	s.Equal(models.ResolutionStepInProgress, dispute.ResolutionSteps[0].Status)
}

func (s *EngineTestSuite) TestDisputePolicies() {
	cases := []struct {
		disputeType models.DisputeType
		priority    models.DisputePriority
		days        int
	}{
		{models.DisputeTypePayment, models.DisputePriorityHigh, 7},
		{models.DisputeTypeContractBreach, models.DisputePriorityHigh, 14},
		{models.DisputeTypeRightsInfringement, models.DisputePriorityHigh, 10},
		{models.DisputeTypeMilestoneDelay, models.DisputePriorityMedium, 14},
		{models.DisputeTypeOther, models.DisputePriorityMedium, 14},
	}
	for _, tc := range cases {
		priority, days := PolicyFor(tc.disputeType)
		s.Equal(tc.priority, priority, tc.disputeType)
		s.Equal(tc.days, days, tc.disputeType)
	}

	steps := resolutionSteps(models.DisputeTypeContractBreach)
	s.Len(steps, 3)
}

func (s *EngineTestSuite) TestOpenDisputeSuspendsDistribution() {
	workflow := s.readyForRevenue()
	start := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

	dispute, err := s.disputes.RaiseDispute(s.ctx, workflow.ID, &RaiseDisputeRequest{
		Type:        models.DisputeTypePayment,
		Description: "royalty statement is wrong",
		RaisedByID:  writerID,
	})
	s.Require().NoError(err)

	_, _, err = s.distribute(workflow.ID, "1000.00", start)
	s.ErrorIs(err, ErrWorkflowSuspended)

	dispute, err = s.disputes.StartMediation(s.ctx, dispute.ID, nil)
	s.Require().NoError(err)
	s.Equal(models.DisputeStatusMediation, dispute.Status)

	_, _, err = s.distribute(workflow.ID, "1000.00", start)
	s.ErrorIs(err, ErrWorkflowSuspended)

	records, err := s.revenue.ListDistributions(s.ctx, workflow.ID)
	s.Require().NoError(err)
	s.Empty(records)

	dispute, err = s.disputes.ResolveDispute(s.ctx, dispute.ID, &ResolveDisputeRequest{
		Outcome:    models.DisputeStatusResolved,
		Summary:    "statement corrected",
		ResolvedBy: "mediator-1",
	})
	s.Require().NoError(err)
	s.Equal(models.DisputeStatusResolved, dispute.Status)
	s.NotNil(dispute.ResolvedAt)
	for _, step := range dispute.ResolutionSteps {
		s.Equal(models.ResolutionStepCompleted, step.Status, step.Name)
	}

	_, created, err := s.distribute(workflow.ID, "1000.00", start)
	s.Require().NoError(err)
	s.True(created)
}

func (s *EngineTestSuite) TestEscalatedDisputeLiftsTheGate() {
	workflow := s.readyForRevenue()

	dispute, err := s.disputes.RaiseDispute(s.ctx, workflow.ID, &RaiseDisputeRequest{
		Type:        models.DisputeTypeRightsInfringement,
		Description: "unlicensed sequel",
		RaisedByID:  studioID,
	})
	s.Require().NoError(err)

	_, err = s.disputes.ResolveDispute(s.ctx, dispute.ID, &ResolveDisputeRequest{
		Outcome:    models.DisputeStatusResolved,
		Summary:    "skip mediation",
		ResolvedBy: "mediator-1",
	})
	s.ErrorIs(err, ErrStateConflict)

	dispute, err = s.disputes.StartMediation(s.ctx, dispute.ID, version(dispute.Version))
	s.Require().NoError(err)
	dispute, err = s.disputes.ResolveDispute(s.ctx, dispute.ID, &ResolveDisputeRequest{
		Outcome:    models.DisputeStatusEscalated,
		Summary:    "referred to arbitration",
		ResolvedBy: "mediator-1",
	})
	s.Require().NoError(err)
	s.Equal(models.DisputeStatusEscalated, dispute.Status)

	blocked, err := s.disputes.HasBlockingDispute(s.ctx, workflow.ID)
	s.Require().NoError(err)
	s.False(blocked)

	_, err = s.disputes.StartMediation(s.ctx, dispute.ID, nil)
	s.ErrorIs(err, ErrStateConflict)
}

func (s *EngineTestSuite) TestRaiseDisputeValidation() {
	workflow := s.filmWorkflow()

	_, err := s.disputes.RaiseDispute(s.ctx, workflow.ID, &RaiseDisputeRequest{
		Type:        "grudge",
		Description: "x",
		RaisedByID:  writerID,
	})
	s.ErrorIs(err, ErrValidation)

	_, err = s.disputes.RaiseDispute(s.ctx, uuid.New(), &RaiseDisputeRequest{
		Type:        models.DisputeTypeOther,
		Description: "x",
		RaisedByID:  writerID,
	})
	s.ErrorIs(err, ErrNotFound)

	disputes, err := s.disputes.ListByWorkflow(s.ctx, workflow.ID)
	s.Require().NoError(err)
	s.Empty(disputes)
}
