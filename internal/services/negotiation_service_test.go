package services

import (
	"time"

	"github.com/Mahd-Mehn/MM-legato-sub000/internal/events"
	"github.com/Mahd-Mehn/MM-legato-sub000/internal/models"
)

func (s *EngineTestSuite) TestInitiateOpensSessionWithStudioTerms() {
	session := s.initiate(models.LicenseTypeFilm, filmOffer())

	s.Equal(models.NegotiationStatusInitiated, session.Status)
	s.Equal(models.PartyRoleStudio, session.TermsProposedBy)
	s.Equal(s.clock.Now().AddDate(0, 0, 30), session.ExpiresAt)
	s.Require().Len(session.Messages, 1)
	s.NotNil(session.Messages[0].Offer)
	s.Equal([]string{events.TopicNegotiationMessage}, s.topics())
}

func (s *EngineTestSuite) TestInitiateRejectsInvalidRequests() {
	cases := []struct {
		name    string
		mutate  func(req *InitiateNegotiationRequest)
		wantErr error
	}{
		{"same party on both sides", func(req *InitiateNegotiationRequest) { req.WriterID = studioID }, ErrValidation},
		{"unknown license type", func(req *InitiateNegotiationRequest) { req.LicenseType = "stage_rights" }, ErrValidation},
		{"missing offer", func(req *InitiateNegotiationRequest) { req.InitialOffer = nil }, ErrValidation},
		{"adaptation without format", func(req *InitiateNegotiationRequest) { req.InitialOffer.Format = "" }, ErrValidation},
		{"negative advance", func(req *InitiateNegotiationRequest) { req.InitialOffer.AdvanceAmount = dec("-1") }, ErrValidation},
		{"sub-cent advance", func(req *InitiateNegotiationRequest) { req.InitialOffer.AdvanceAmount = dec("10.001") }, ErrValidation},
		{"writer share above 100", func(req *InitiateNegotiationRequest) { req.InitialOffer.WriterSharePercent = dec("100.5") }, ErrValidation},
		{"writer share finer than hundredths", func(req *InitiateNegotiationRequest) { req.InitialOffer.WriterSharePercent = dec("33.3333") }, ErrValidation},
	}

	for _, tc := range cases {
		s.Run(tc.name, func() {
			req := &InitiateNegotiationRequest{
				ListingID:    "listing-1",
				StudioID:     studioID,
				WriterID:     writerID,
				LicenseType:  models.LicenseTypeFilm,
				InitialOffer: filmOffer(),
			}
			tc.mutate(req)

			_, err := s.negotiations.Initiate(s.ctx, req)
			s.ErrorIs(err, tc.wantErr)
		})
	}
}

func (s *EngineTestSuite) TestTranslationOfferNeedsTargetLanguages() {
	offer := filmOffer()
	offer.Format = ""

	err := ValidateOffer(models.LicenseTypeTranslation, offer)
	s.ErrorIs(err, ErrValidation)

	offer.TargetLanguages = []string{"es", "fr"}
	s.NoError(ValidateOffer(models.LicenseTypeTranslation, offer))
}

func (s *EngineTestSuite) TestCounterOfferShiftsProposer() {
	session := s.initiate(models.LicenseTypeFilm, filmOffer())

	counter := filmOffer()
	counter.AdvanceAmount = dec("15000.00")
	session, err := s.negotiations.SendMessage(s.ctx, session.ID, &SendMessageRequest{
		SenderID: writerID,
		Text:     "I need a higher advance.",
		Offer:    counter,
	})
	s.Require().NoError(err)
	s.Equal(models.NegotiationStatusCounterOffer, session.Status)
	s.Equal(models.PartyRoleWriter, session.TermsProposedBy)
	s.True(session.CurrentTerms.AdvanceAmount.Equal(dec("15000")))

	// The writer proposed the current terms and cannot accept them.
	_, err = s.negotiations.Accept(s.ctx, session.ID, &CloseNegotiationRequest{ActorID: writerID})
	s.ErrorIs(err, ErrValidation)

	session, err = s.negotiations.Accept(s.ctx, session.ID, &CloseNegotiationRequest{ActorID: studioID})
	s.Require().NoError(err)
	s.Equal(models.NegotiationStatusAccepted, session.Status)
	s.Equal(studioID, session.ClosedBy)
	s.NotNil(session.ClosedAt)
}

func (s *EngineTestSuite) TestAcceptFromInitiatedIsAStateConflict() {
	session := s.initiate(models.LicenseTypeFilm, filmOffer())

	_, err := s.negotiations.Accept(s.ctx, session.ID, &CloseNegotiationRequest{ActorID: writerID})
	s.ErrorIs(err, ErrStateConflict)
}

func (s *EngineTestSuite) TestTerminalSessionsRejectEveryMutation() {
	// Cases run in order; the expired one advances the clock past every
	// deadline, so it goes last.
	cases := []struct {
		name   string
		status models.NegotiationStatus
		setup  func() *models.NegotiationSession
	}{
		{"accepted", models.NegotiationStatusAccepted, func() *models.NegotiationSession {
			return s.accepted(models.LicenseTypeFilm, filmOffer())
		}},
		{"rejected", models.NegotiationStatusRejected, func() *models.NegotiationSession {
			session := s.initiate(models.LicenseTypeFilm, filmOffer())
			_, err := s.negotiations.SendMessage(s.ctx, session.ID, &SendMessageRequest{SenderID: writerID, Text: "No thanks."})
			s.Require().NoError(err)
			session, err = s.negotiations.Reject(s.ctx, session.ID, &CloseNegotiationRequest{ActorID: writerID, Reason: "not selling"})
			s.Require().NoError(err)
			return session
		}},
		{"expired", models.NegotiationStatusExpired, func() *models.NegotiationSession {
			session := s.initiate(models.LicenseTypeFilm, filmOffer())
			s.clock.Advance(31 * 24 * time.Hour)
			session, err := s.negotiations.Get(s.ctx, session.ID)
			s.Require().NoError(err)
			return session
		}},
	}

	for _, tc := range cases {
		s.Run(tc.name, func() {
			session := tc.setup()
			s.Require().Equal(tc.status, session.Status)

			_, err := s.negotiations.SendMessage(s.ctx, session.ID, &SendMessageRequest{SenderID: studioID, Text: "one more thing"})
			s.ErrorIs(err, ErrStateConflict)

			_, err = s.negotiations.Reject(s.ctx, session.ID, &CloseNegotiationRequest{ActorID: studioID})
			s.ErrorIs(err, ErrStateConflict)

			_, err = s.negotiations.Accept(s.ctx, session.ID, &CloseNegotiationRequest{ActorID: studioID})
			s.ErrorIs(err, ErrStateConflict)

			stored, err := s.negotiations.Get(s.ctx, session.ID)
			s.Require().NoError(err)
			s.Equal(tc.status, stored.Status)
			s.Equal(session.Version, stored.Version)
		})
	}
}

func (s *EngineTestSuite) TestRejectRecordsReason() {
	session := s.initiate(models.LicenseTypeAudio, filmOffer())
	_, err := s.negotiations.SendMessage(s.ctx, session.ID, &SendMessageRequest{SenderID: writerID, Text: "Let me think."})
	s.Require().NoError(err)

	session, err = s.negotiations.Reject(s.ctx, session.ID, &CloseNegotiationRequest{ActorID: writerID, Reason: "advance too low"})
	s.Require().NoError(err)
	s.Equal(models.NegotiationStatusRejected, session.Status)
	s.Equal("advance too low", session.RejectionReason)
	s.Contains(s.topics(), events.TopicNegotiationClosed)
}

func (s *EngineTestSuite) TestOutsiderCannotParticipate() {
	session := s.initiate(models.LicenseTypeFilm, filmOffer())

	_, err := s.negotiations.SendMessage(s.ctx, session.ID, &SendMessageRequest{SenderID: "agent-9", Text: "hello"})
	s.ErrorIs(err, ErrValidation)

	_, err = s.negotiations.SendMessage(s.ctx, session.ID, &SendMessageRequest{SenderID: writerID})
	s.ErrorIs(err, ErrValidation)
}

func (s *EngineTestSuite) TestStaleVersionIsAConcurrencyConflict() {
	session := s.initiate(models.LicenseTypeFilm, filmOffer())
	stale := session.Version

	_, err := s.negotiations.SendMessage(s.ctx, session.ID, &SendMessageRequest{
		SenderID:        writerID,
		Text:            "first",
		ExpectedVersion: version(stale),
	})
	s.Require().NoError(err)

	_, err = s.negotiations.SendMessage(s.ctx, session.ID, &SendMessageRequest{
		SenderID:        studioID,
		Text:            "second",
		ExpectedVersion: version(stale),
	})
	s.ErrorIs(err, ErrConcurrencyConflict)
}

func (s *EngineTestSuite) TestSessionExpiresOnceDeadlinePasses() {
	session := s.initiate(models.LicenseTypeFilm, filmOffer())

	s.clock.Advance(31 * 24 * time.Hour)

	stored, err := s.negotiations.Get(s.ctx, session.ID)
	s.Require().NoError(err)
	s.Equal(models.NegotiationStatusExpired, stored.Status)

	_, err = s.negotiations.SendMessage(s.ctx, session.ID, &SendMessageRequest{SenderID: writerID, Text: "too late"})
	s.ErrorIs(err, ErrStateConflict)
}

func (s *EngineTestSuite) TestExpireStaleSweepsOverdueSessions() {
	first := s.initiate(models.LicenseTypeFilm, filmOffer())
	second := s.initiate(models.LicenseTypeTV, filmOffer())
	done := s.accepted(models.LicenseTypeGame, filmOffer())

	s.clock.Advance(45 * 24 * time.Hour)

	expired, err := s.negotiations.ExpireStale(s.ctx, 10)
	s.Require().NoError(err)
	s.Equal(2, expired)

	stored, err := s.store.GetNegotiation(s.ctx, first.ID)
	s.Require().NoError(err)
	s.Equal(models.NegotiationStatusExpired, stored.Status)
	stored, err = s.store.GetNegotiation(s.ctx, second.ID)
	s.Require().NoError(err)
	s.Equal(models.NegotiationStatusExpired, stored.Status)
	stored, err = s.store.GetNegotiation(s.ctx, done.ID)
	s.Require().NoError(err)
	s.Equal(models.NegotiationStatusAccepted, stored.Status)

	again, err := s.negotiations.ExpireStale(s.ctx, 10)
	s.Require().NoError(err)
	s.Zero(again)
}

func (s *EngineTestSuite) TestListByPartyReturnsBothSides() {
	s.initiate(models.LicenseTypeFilm, filmOffer())
	s.initiate(models.LicenseTypeAudio, filmOffer())

	forWriter, err := s.negotiations.ListByParty(s.ctx, writerID)
	s.Require().NoError(err)
	s.Len(forWriter, 2)

	forOther, err := s.negotiations.ListByParty(s.ctx, "nobody")
	s.Require().NoError(err)
	s.Empty(forOther)

	_, err = s.negotiations.ListByParty(s.ctx, "")
	s.ErrorIs(err, ErrValidation)
}
