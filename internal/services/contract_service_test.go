package services

import (
	"time"

	"github.com/Mahd-Mehn/MM-legato-sub000/internal/events"
	"github.com/Mahd-Mehn/MM-legato-sub000/internal/models"
)

func (s *EngineTestSuite) TestGenerateContractIsIdempotent() {
	session := s.accepted(models.LicenseTypeFilm, filmOffer())

	first, err := s.contracts.GenerateContract(s.ctx, session.ID, nil)
	s.Require().NoError(err)
	second, err := s.contracts.GenerateContract(s.ctx, session.ID, nil)
	s.Require().NoError(err)

	s.Equal(first.ID, second.ID)
	s.Equal(models.ContractStatusPendingSignatures, first.Status)
	s.ElementsMatch([]string{studioID, writerID}, []string(first.Parties))
	s.Equal(s.clock.Now().AddDate(0, 0, 7), first.SignatureDeadline)

	generated := 0
	for _, topic := range s.topics() {
		if topic == events.TopicContractGenerated {
			generated++
		}
	}
	s.Equal(1, generated)
}

func (s *EngineTestSuite) TestGenerateContractRequiresAcceptedNegotiation() {
	session := s.initiate(models.LicenseTypeFilm, filmOffer())

	_, err := s.contracts.GenerateContract(s.ctx, session.ID, nil)
	s.ErrorIs(err, ErrStateConflict)
}

func (s *EngineTestSuite) TestGenerateContractUsesFinalTermsOverride() {
	session := s.accepted(models.LicenseTypeFilm, filmOffer())

	final := filmOffer()
	final.Territory = "north_america"
	contract, err := s.contracts.GenerateContract(s.ctx, session.ID, &GenerateContractRequest{FinalTerms: final})
	s.Require().NoError(err)
	s.Equal("north_america", contract.FinalTerms.Territory)
}

func (s *EngineTestSuite) TestSigningActivatesContractOnceBothPartiesSign() {
	session := s.accepted(models.LicenseTypeFilm, filmOffer())
	contract, err := s.contracts.GenerateContract(s.ctx, session.ID, nil)
	s.Require().NoError(err)

	contract, err = s.contracts.Sign(s.ctx, contract.ID, &SignContractRequest{SignerID: writerID})
	s.Require().NoError(err)
	s.Equal(models.ContractStatusPendingSignatures, contract.Status)
	s.NotNil(contract.WriterSignedAt)

	again, err := s.contracts.Sign(s.ctx, contract.ID, &SignContractRequest{SignerID: writerID})
	s.Require().NoError(err)
	s.Equal(contract.Version, again.Version)

	contract, err = s.contracts.Sign(s.ctx, contract.ID, &SignContractRequest{SignerID: studioID})
	s.Require().NoError(err)
	s.Equal(models.ContractStatusActive, contract.Status)
	s.NotNil(contract.ActivatedAt)
	s.Contains(s.topics(), events.TopicContractActivated)
}

func (s *EngineTestSuite) TestNonPartyCannotSign() {
	session := s.accepted(models.LicenseTypeFilm, filmOffer())
	contract, err := s.contracts.GenerateContract(s.ctx, session.ID, nil)
	s.Require().NoError(err)

	_, err = s.contracts.Sign(s.ctx, contract.ID, &SignContractRequest{SignerID: "lawyer-3"})
	s.ErrorIs(err, ErrValidation)
}

func (s *EngineTestSuite) TestUnsignedContractExpiresAfterWindow() {
	session := s.accepted(models.LicenseTypeFilm, filmOffer())
	contract, err := s.contracts.GenerateContract(s.ctx, session.ID, nil)
	s.Require().NoError(err)

	s.clock.Advance(8 * 24 * time.Hour)

	_, err = s.contracts.Sign(s.ctx, contract.ID, &SignContractRequest{SignerID: studioID})
	s.ErrorIs(err, ErrStateConflict)

	stored, err := s.contracts.Get(s.ctx, contract.ID)
	s.Require().NoError(err)
	s.Equal(models.ContractStatusExpired, stored.Status)
}

func (s *EngineTestSuite) TestListContractsByParty() {
	session := s.accepted(models.LicenseTypeFilm, filmOffer())
	contract, err := s.contracts.GenerateContract(s.ctx, session.ID, nil)
	s.Require().NoError(err)

	for _, party := range []string{studioID, writerID} {
		listed, err := s.contracts.ListByParty(s.ctx, party)
		s.Require().NoError(err)
		s.Require().Len(listed, 1, party)
		s.Equal(contract.ID, listed[0].ID)
	}

	none, err := s.contracts.ListByParty(s.ctx, "outsider-1")
	s.Require().NoError(err)
	s.Empty(none)

	_, err = s.contracts.ListByParty(s.ctx, "")
	s.ErrorIs(err, ErrValidation)

	s.clock.Advance(8 * 24 * time.Hour)
	listed, err := s.contracts.ListByParty(s.ctx, writerID)
	s.Require().NoError(err)
	s.Require().Len(listed, 1)
	s.Equal(models.ContractStatusExpired, listed[0].Status)
}

func (s *EngineTestSuite) TestCancelPendingContract() {
	session := s.accepted(models.LicenseTypeFilm, filmOffer())
	contract, err := s.contracts.GenerateContract(s.ctx, session.ID, nil)
	s.Require().NoError(err)

	_, err = s.contracts.Cancel(s.ctx, contract.ID, "stranger", nil)
	s.ErrorIs(err, ErrValidation)

	contract, err = s.contracts.Cancel(s.ctx, contract.ID, studioID, version(contract.Version))
	s.Require().NoError(err)
	s.Equal(models.ContractStatusCancelled, contract.Status)

	_, err = s.contracts.Cancel(s.ctx, contract.ID, studioID, nil)
	s.ErrorIs(err, ErrStateConflict)
}

func (s *EngineTestSuite) TestDocumentURLFallsBackWithoutLocator() {
	contract := s.activeContract(models.LicenseTypeAudio, filmOffer())

	url, err := s.contracts.DocumentURL(s.ctx, contract.ID, time.Minute)
	s.Require().NoError(err)
	s.Equal(contract.ContractURL, url)
}
