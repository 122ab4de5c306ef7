package services

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/Mahd-Mehn/MM-legato-sub000/internal/events"
	"github.com/Mahd-Mehn/MM-legato-sub000/internal/models"
)

func TestDistributionIDIgnoresTimeOfDayAndZone(t *testing.T) {
	workflowID := uuid.New()
	tokyo := time.FixedZone("JST", 9*60*60)

	a := DistributionID(workflowID,
		time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC))
	b := DistributionID(workflowID,
		time.Date(2025, 1, 1, 17, 30, 0, 0, time.UTC),
		time.Date(2025, 2, 1, 8, 0, 0, 0, tokyo))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, DistributionID(uuid.New(), time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)))
	assert.NotEqual(t, a, DistributionID(workflowID, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC)))
}

func TestComputeDistributionWrapsValidation(t *testing.T) {
	_, err := ComputeDistribution(dec("0"), dec("15"), dec("85"))
	assert.ErrorIs(t, err, ErrValidation)

	split, err := ComputeDistribution(dec("45678.90"), dec("15"), dec("85"))
	assert.NoError(t, err)
	assert.Equal(t, "6851.84", split.PlatformFee.StringFixed(2))
}

func (s *EngineTestSuite) TestDistributionMatchesWorkedExample() {
	workflow := s.readyForRevenue()
	start := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

	record, created, err := s.distribute(workflow.ID, "45678.90", start)
	s.Require().NoError(err)
	s.True(created)

	s.Equal("45678.90", record.GrossRevenue.StringFixed(2))
	s.Equal("6851.84", record.PlatformFee.StringFixed(2))
	s.Equal("33003.00", record.WriterShare.StringFixed(2))
	s.Equal("5824.06", record.StudioShare.StringFixed(2))
	s.True(record.Reconciles())
	s.Equal(models.DistributionStatusPending, record.Status)
	s.Equal(DistributionID(workflow.ID, start, start.AddDate(0, 1, -1)), record.ID)

	stored, err := s.workflows.Get(s.ctx, workflow.ID)
	s.Require().NoError(err)
	s.Equal(int64(1), stored.DistributionCount)
	s.True(stored.TotalGross.Equal(dec("45678.90")))
	s.True(stored.TotalWriterShare.Equal(dec("33003.00")))
	step, _ := stored.RecurringStep()
	s.Equal(models.StepStatusInProgress, step.Status)
	s.Contains(s.topics(), events.TopicDistributionCreated)
}

func (s *EngineTestSuite) TestReplayedPeriodReturnsExistingRecord() {
	workflow := s.readyForRevenue()
	start := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

	first, created, err := s.distribute(workflow.ID, "1200.00", start)
	s.Require().NoError(err)
	s.True(created)

	// Same period, different time of day and a different gross.
	replay, created, err := s.distribute(workflow.ID, "999.99", start.Add(13*time.Hour))
	s.Require().NoError(err)
	s.False(created)
	s.Equal(first.ID, replay.ID)
	s.True(replay.GrossRevenue.Equal(dec("1200.00")))

	stored, err := s.workflows.Get(s.ctx, workflow.ID)
	s.Require().NoError(err)
	s.Equal(int64(1), stored.DistributionCount)
	s.True(stored.TotalGross.Equal(dec("1200.00")))

	records, err := s.revenue.ListDistributions(s.ctx, workflow.ID)
	s.Require().NoError(err)
	s.Len(records, 1)
}

func (s *EngineTestSuite) TestTotalsAccumulateAcrossPeriods() {
	workflow := s.readyForRevenue()
	jan := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

	_, _, err := s.distribute(workflow.ID, "100.01", jan)
	s.Require().NoError(err)
	_, _, err = s.distribute(workflow.ID, "200.02", feb)
	s.Require().NoError(err)

	stored, err := s.workflows.Get(s.ctx, workflow.ID)
	s.Require().NoError(err)
	s.Equal(int64(2), stored.DistributionCount)
	s.True(stored.TotalGross.Equal(dec("300.03")))
	sum := stored.TotalPlatformFee.Add(stored.TotalWriterShare).Add(stored.TotalStudioShare)
	s.True(sum.Equal(stored.TotalGross))

	records, err := s.revenue.ListDistributions(s.ctx, workflow.ID)
	s.Require().NoError(err)
	s.Require().Len(records, 2)
	s.True(records[0].PeriodStart.Before(records[1].PeriodStart))
}

func (s *EngineTestSuite) TestDistributionWaitsForRightsTransfer() {
	workflow := s.filmWorkflow()

	_, _, err := s.distribute(workflow.ID, "100.00", s.clock.Now())
	s.ErrorIs(err, ErrStateConflict)
}

func (s *EngineTestSuite) TestDistributionAfterLicenseTermIsRejected() {
	workflow := s.readyForRevenue()

	// Last month of the 36 month term is still distributable.
	lastMonth := time.Date(workflow.ExpiresAt.Year(), workflow.ExpiresAt.Month(), 1, 0, 0, 0, 0, time.UTC)
	_, created, err := s.distribute(workflow.ID, "100.00", lastMonth)
	s.Require().NoError(err)
	s.True(created)

	_, _, err = s.distribute(workflow.ID, "100.00", workflow.ExpiresAt.AddDate(0, 1, 0))
	s.ErrorIs(err, ErrStateConflict)

	stored, err := s.workflows.Get(s.ctx, workflow.ID)
	s.Require().NoError(err)
	s.Equal(int64(1), stored.DistributionCount)
}

func (s *EngineTestSuite) TestDistributionRejectsBadInput() {
	workflow := s.readyForRevenue()
	start := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		req  *ProcessDistributionRequest
	}{
		{"zero gross", &ProcessDistributionRequest{GrossRevenue: dec("0"), PeriodStart: start, PeriodEnd: start, Source: "sales"}},
		{"negative gross", &ProcessDistributionRequest{GrossRevenue: dec("-5"), PeriodStart: start, PeriodEnd: start, Source: "sales"}},
		{"sub-cent gross", &ProcessDistributionRequest{GrossRevenue: dec("1.005"), PeriodStart: start, PeriodEnd: start, Source: "sales"}},
		{"missing period", &ProcessDistributionRequest{GrossRevenue: dec("10"), Source: "sales"}},
		{"inverted period", &ProcessDistributionRequest{GrossRevenue: dec("10"), PeriodStart: start, PeriodEnd: start.AddDate(0, 0, -1), Source: "sales"}},
		{"missing source", &ProcessDistributionRequest{GrossRevenue: dec("10"), PeriodStart: start, PeriodEnd: start}},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			_, _, err := s.revenue.ProcessRevenueDistribution(s.ctx, workflow.ID, tc.req)
			s.ErrorIs(err, ErrValidation)
		})
	}

	_, _, err := s.revenue.ProcessRevenueDistribution(s.ctx, uuid.New(), &ProcessDistributionRequest{
		GrossRevenue: dec("10"), PeriodStart: start, PeriodEnd: start, Source: "sales",
	})
	s.ErrorIs(err, ErrNotFound)
}

func (s *EngineTestSuite) TestSettlementReportIsAppliedOnce() {
	workflow := s.readyForRevenue()
	record, _, err := s.distribute(workflow.ID, "800.00", s.clock.Now())
	s.Require().NoError(err)

	_, err = s.revenue.ReportSettlement(s.ctx, record.ID, &SettlementReport{Success: true})
	s.ErrorIs(err, ErrValidation)

	settled, err := s.revenue.ReportSettlement(s.ctx, record.ID, &SettlementReport{Success: true, TransactionReference: "tr_001"})
	s.Require().NoError(err)
	s.Equal(models.DistributionStatusCompleted, settled.Status)
	s.NotNil(settled.SettledAt)

	repeat, err := s.revenue.ReportSettlement(s.ctx, record.ID, &SettlementReport{Success: true, TransactionReference: "tr_001"})
	s.Require().NoError(err)
	s.Equal(settled.Version, repeat.Version)

	_, err = s.revenue.ReportSettlement(s.ctx, record.ID, &SettlementReport{Success: false, FailureReason: "bounced"})
	s.ErrorIs(err, ErrStateConflict)

	settledEvents := 0
	for _, topic := range s.topics() {
		if topic == events.TopicDistributionSettled {
			settledEvents++
		}
	}
	s.Equal(1, settledEvents)
}

func (s *EngineTestSuite) TestConfirmSettlementConsultsGateway() {
	workflow := s.readyForRevenue()
	record, _, err := s.distribute(workflow.ID, "800.00", s.clock.Now())
	s.Require().NoError(err)

	pending, err := s.revenue.ConfirmSettlement(s.ctx, record.ID, "pi_inflight")
	s.Require().NoError(err)
	s.Equal(models.DistributionStatusPending, pending.Status)

	s.gateway.outcomes["pi_done"] = &PaymentOutcome{Reference: "pi_done", Settled: true, Status: "succeeded"}
	settled, err := s.revenue.ConfirmSettlement(s.ctx, record.ID, "pi_done")
	s.Require().NoError(err)
	s.Equal(models.DistributionStatusCompleted, settled.Status)
	s.Equal("pi_done", settled.TransactionReference)
}

func (s *EngineTestSuite) TestConfirmSettlementFailures() {
	workflow := s.readyForRevenue()
	record, _, err := s.distribute(workflow.ID, "800.00", s.clock.Now())
	s.Require().NoError(err)

	s.gateway.outcomes["pi_cancel"] = &PaymentOutcome{Reference: "pi_cancel", Failed: true, Status: "canceled"}
	failed, err := s.revenue.ConfirmSettlement(s.ctx, record.ID, "pi_cancel")
	s.Require().NoError(err)
	s.Equal(models.DistributionStatusFailed, failed.Status)
	s.Equal("payment canceled", failed.FailureReason)

	s.gateway.err = errors.New("connection reset")
	_, err = s.revenue.ConfirmSettlement(s.ctx, record.ID, "pi_other")
	s.ErrorIs(err, ErrDownstream)

	_, err = s.revenue.ConfirmSettlement(s.ctx, record.ID, " ")
	s.ErrorIs(err, ErrValidation)
}
