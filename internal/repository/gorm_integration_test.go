//go:build integration

package repository_test

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"gorm.io/gorm"

	"github.com/Mahd-Mehn/MM-legato-sub000/internal/config"
	"github.com/Mahd-Mehn/MM-legato-sub000/internal/database"
	"github.com/Mahd-Mehn/MM-legato-sub000/internal/models"
	"github.com/Mahd-Mehn/MM-legato-sub000/internal/repository"
	"github.com/Mahd-Mehn/MM-legato-sub000/internal/services"
	"github.com/Mahd-Mehn/MM-legato-sub000/internal/templates"
)

type GormStoreSuite struct {
	suite.Suite
	ctx       context.Context
	container *postgres.PostgresContainer
	db        *gorm.DB
	store     *repository.GormStore
	svc       *services.Services
}

func TestGormStoreSuite(t *testing.T) {
	suite.Run(t, new(GormStoreSuite))
}

func (s *GormStoreSuite) SetupSuite() {
	s.ctx = context.Background()

	container, err := postgres.Run(s.ctx,
		"postgres:16",
		postgres.WithDatabase("licensing"),
		postgres.WithUsername("licensing"),
		postgres.WithPassword("licensing"),
		postgres.BasicWaitStrategies(),
	)
	s.Require().NoError(err)
	s.container = container

	dsn, err := container.ConnectionString(s.ctx, "sslmode=disable")
	s.Require().NoError(err)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	s.db, err = database.Open(dsn, config.DatabaseConfig{LogLevel: "silent", MaxOpenConns: 5}, logger)
	s.Require().NoError(err)
	s.Require().NoError(database.RunMigrations(s.db, logger))

	registry, err := templates.LoadDefault()
	s.Require().NoError(err)

	s.store = repository.NewGormStore(s.db)
	s.svc = services.New(services.Options{
		Store:     s.store,
		Templates: registry,
		Licensing: config.DefaultLicensing(),
		Logger:    logger,
	})
}

func (s *GormStoreSuite) TearDownSuite() {
	if s.container != nil {
		s.Require().NoError(s.container.Terminate(s.ctx))
	}
}

func (s *GormStoreSuite) acceptedNegotiation(studio, writer string) *models.NegotiationSession {
	session, err := s.svc.Negotiations.Initiate(s.ctx, &services.InitiateNegotiationRequest{
		ListingID:   "listing-" + uuid.NewString()[:8],
		StudioID:    studio,
		WriterID:    writer,
		LicenseType: models.LicenseTypeFilm,
		InitialOffer: &models.OfferTerms{
			Territory:          "worldwide",
			DurationMonths:     36,
			AdvanceAmount:      decimal.RequireFromString("10000.00"),
			WriterSharePercent: decimal.NewFromInt(85),
			Exclusive:          true,
		},
	})
	s.Require().NoError(err)

	_, err = s.svc.Negotiations.SendMessage(s.ctx, session.ID, &services.SendMessageRequest{SenderID: writer, Text: "Agreed."})
	s.Require().NoError(err)

	session, err = s.svc.Negotiations.Accept(s.ctx, session.ID, &services.CloseNegotiationRequest{ActorID: writer})
	s.Require().NoError(err)
	return session
}

func (s *GormStoreSuite) TestNegotiationRoundTripAndVersioning() {
	session := s.acceptedNegotiation("studio-rt", "writer-rt")

	loaded, err := s.store.GetNegotiation(s.ctx, session.ID)
	s.Require().NoError(err)
	s.Equal(models.NegotiationStatusAccepted, loaded.Status)
	s.Len(loaded.Messages, 2)
	s.True(loaded.CurrentTerms.AdvanceAmount.Equal(decimal.RequireFromString("10000.00")))
	s.Equal(session.Version, loaded.Version)

	stale := *loaded
	stale.Version = loaded.Version - 1
	err = s.store.UpdateNegotiation(s.ctx, &stale)
	s.ErrorIs(err, repository.ErrVersionConflict)

	byParty, err := s.store.ListNegotiationsByParty(s.ctx, "writer-rt")
	s.Require().NoError(err)
	s.Len(byParty, 1)

	_, err = s.store.GetNegotiation(s.ctx, uuid.New())
	s.ErrorIs(err, repository.ErrNotFound)
}

func (s *GormStoreSuite) TestContractPerNegotiationIsUnique() {
	session := s.acceptedNegotiation("studio-uq", "writer-uq")

	first, err := s.svc.Contracts.GenerateContract(s.ctx, session.ID, nil)
	s.Require().NoError(err)
	s.ElementsMatch([]string{"studio-uq", "writer-uq"}, []string(first.Parties))

	again, err := s.svc.Contracts.GenerateContract(s.ctx, session.ID, nil)
	s.Require().NoError(err)
	s.Equal(first.ID, again.ID)

	dup := *first
	dup.ID = uuid.New()
	err = s.store.CreateContract(s.ctx, &dup)
	s.ErrorIs(err, repository.ErrDuplicate)
}

func (s *GormStoreSuite) TestListContractsByPartyMatchesArray() {
	first := s.acceptedNegotiation("studio-any", "writer-any-1")
	second := s.acceptedNegotiation("studio-any", "writer-any-2")
	for _, session := range []uuid.UUID{first.ID, second.ID} {
		_, err := s.svc.Contracts.GenerateContract(s.ctx, session, nil)
		s.Require().NoError(err)
	}

	studioContracts, err := s.store.ListContractsByParty(s.ctx, "studio-any")
	s.Require().NoError(err)
	s.Len(studioContracts, 2)

	writerContracts, err := s.store.ListContractsByParty(s.ctx, "writer-any-2")
	s.Require().NoError(err)
	s.Require().Len(writerContracts, 1)
	s.Equal(second.ID, writerContracts[0].NegotiationID)

	none, err := s.store.ListContractsByParty(s.ctx, "writer-any")
	s.Require().NoError(err)
	s.Empty(none)
}

func (s *GormStoreSuite) TestDistributionCommitIsIdempotent() {
	session := s.acceptedNegotiation("studio-rev", "writer-rev")
	contract, err := s.svc.Contracts.GenerateContract(s.ctx, session.ID, nil)
	s.Require().NoError(err)
	for _, signer := range []string{"studio-rev", "writer-rev"} {
		contract, err = s.svc.Contracts.Sign(s.ctx, contract.ID, &services.SignContractRequest{SignerID: signer})
		s.Require().NoError(err)
	}

	workflow, err := s.svc.Workflows.CreateWorkflow(s.ctx, contract.ID)
	s.Require().NoError(err)
	for _, step := range []string{"contract_execution", "development_approval", "rights_transfer"} {
		_, err = s.svc.Workflows.UpdateStep(s.ctx, workflow.ID, step, &services.UpdateStepRequest{Status: models.StepStatusCompleted})
		s.Require().NoError(err)
	}

	req := &services.ProcessDistributionRequest{
		GrossRevenue: decimal.RequireFromString("45678.90"),
		PeriodStart:  time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:    time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC),
		Source:       "box_office",
	}
	record, created, err := s.svc.Revenue.ProcessRevenueDistribution(s.ctx, workflow.ID, req)
	s.Require().NoError(err)
	s.True(created)

	replay, created, err := s.svc.Revenue.ProcessRevenueDistribution(s.ctx, workflow.ID, req)
	s.Require().NoError(err)
	s.False(created)
	s.Equal(record.ID, replay.ID)

	stored, err := s.store.GetWorkflow(s.ctx, workflow.ID)
	s.Require().NoError(err)
	s.True(stored.TotalGross.Equal(decimal.RequireFromString("45678.90")))
	s.Equal(int64(1), stored.DistributionCount)

	err = s.store.CommitDistribution(s.ctx, record, stored)
	s.ErrorIs(err, repository.ErrDuplicate)
}

func (s *GormStoreSuite) TestOutboxAndAudit() {
	s.acceptedNegotiation("studio-ob", "writer-ob")

	pending, err := s.store.ListPendingEvents(s.ctx, 500)
	s.Require().NoError(err)
	s.Require().GreaterOrEqual(len(pending), 2)

	s.Require().NoError(s.store.MarkEventPublished(s.ctx, pending[0].ID, time.Now()))
	s.Require().NoError(s.store.MarkEventFailed(s.ctx, pending[1].ID, "broker unavailable"))

	after, err := s.store.ListPendingEvents(s.ctx, 500)
	s.Require().NoError(err)
	for _, event := range after {
		s.NotEqual(pending[0].ID, event.ID)
	}

	s.NoError(s.store.CreateAuditLog(s.ctx, &models.AuditLog{
		ActorID:      "studio-ob",
		Action:       "POST /v1/negotiations",
		ResourceType: "negotiations",
		StatusCode:   201,
	}))
}
