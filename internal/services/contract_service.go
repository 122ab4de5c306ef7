// internal/services/contract_service.go
package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/Mahd-Mehn/MM-legato-sub000/internal/config"
	"github.com/Mahd-Mehn/MM-legato-sub000/internal/events"
	"github.com/Mahd-Mehn/MM-legato-sub000/internal/metrics"
	"github.com/Mahd-Mehn/MM-legato-sub000/internal/models"
	"github.com/Mahd-Mehn/MM-legato-sub000/internal/repository"
	"github.com/Mahd-Mehn/MM-legato-sub000/internal/utils"
)

// DocumentLocator resolves where the rendered document of a contract lives.
type DocumentLocator interface {
	ContractURL(contract *models.Contract) string
	PresignContractURL(contract *models.Contract, expiration time.Duration) (string, error)
}

type ContractService struct {
	repo         repository.ContractRepository
	negotiations *NegotiationService
	documents    DocumentLocator
	config       config.LicensingConfig
	clock        utils.Clock
	logger       *logrus.Logger
}

type GenerateContractRequest struct {
	FinalTerms *models.OfferTerms `json:"final_terms,omitempty"`
}

type SignContractRequest struct {
	SignerID        string `json:"signer_id" validate:"required,max=100"`
	ExpectedVersion *int64 `json:"expected_version,omitempty"`
}

func NewContractService(repo repository.ContractRepository, negotiations *NegotiationService, documents DocumentLocator, cfg config.LicensingConfig, clock utils.Clock, logger *logrus.Logger) *ContractService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &ContractService{
		repo:         repo,
		negotiations: negotiations,
		documents:    documents,
		config:       cfg,
		clock:        clock,
		logger:       logger,
	}
}

// GenerateContract freezes an ACCEPTED negotiation into a contract. Calling it
// again for the same negotiation returns the contract created first.
func (s *ContractService) GenerateContract(ctx context.Context, negotiationID uuid.UUID, req *GenerateContractRequest) (*models.Contract, error) {
	existing, err := s.repo.GetContractByNegotiation(ctx, negotiationID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, translateRepoError(err, "contract")
	}

	session, err := s.negotiations.Get(ctx, negotiationID)
	if err != nil {
		return nil, err
	}
	if session.Status != models.NegotiationStatusAccepted {
		return nil, stateConflictf("negotiation is %s, contracts require ACCEPTED", session.Status)
	}

	terms := session.CurrentTerms
	if req != nil && req.FinalTerms != nil {
		if err := ValidateOffer(session.LicenseType, req.FinalTerms); err != nil {
			return nil, err
		}
		terms = *req.FinalTerms
	}

	now := s.clock.Now()
	contract := &models.Contract{
		NegotiationID:     session.ID,
		ListingID:         session.ListingID,
		StudioID:          session.StudioID,
		WriterID:          session.WriterID,
		Parties:           pq.StringArray{session.StudioID, session.WriterID},
		LicenseType:       session.LicenseType,
		FinalTerms:        terms,
		Status:            models.ContractStatusPendingSignatures,
		SignatureDeadline: now.AddDate(0, 0, s.config.SignatureWindowDays),
	}
	contract.ID = uuid.New()
	contract.Version = 1
	if s.documents != nil {
		contract.ContractURL = s.documents.ContractURL(contract)
	}

	event := events.New(events.TopicContractGenerated, contract.ID, now, models.JSONB{
		"negotiation_id":     contract.NegotiationID,
		"license_type":       contract.LicenseType,
		"signature_deadline": contract.SignatureDeadline,
		"contract_url":       contract.ContractURL,
	})
	if err := s.repo.CreateContract(ctx, contract, event); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			// Lost a race with a concurrent call; return the winner.
			winner, getErr := s.repo.GetContractByNegotiation(ctx, negotiationID)
			if getErr != nil {
				return nil, translateRepoError(getErr, "contract")
			}
			return winner, nil
		}
		return nil, translateRepoError(err, "contract")
	}

	metrics.ContractsGenerated.Inc()
	s.logger.WithFields(logrus.Fields{
		"contract_id":    contract.ID,
		"negotiation_id": contract.NegotiationID,
	}).Info("Contract generated")

	return contract, nil
}

func (s *ContractService) Get(ctx context.Context, id uuid.UUID) (*models.Contract, error) {
	contract, err := s.repo.GetContract(ctx, id)
	if err != nil {
		return nil, translateRepoError(err, "contract")
	}
	if err := s.expireIfDue(ctx, contract); err != nil {
		return nil, err
	}
	return contract, nil
}

func (s *ContractService) GetByNegotiation(ctx context.Context, negotiationID uuid.UUID) (*models.Contract, error) {
	contract, err := s.repo.GetContractByNegotiation(ctx, negotiationID)
	if err != nil {
		return nil, translateRepoError(err, "contract")
	}
	if err := s.expireIfDue(ctx, contract); err != nil {
		return nil, err
	}
	return contract, nil
}

// ListByParty returns the contracts partyID is a party to, newest first.
func (s *ContractService) ListByParty(ctx context.Context, partyID string) ([]models.Contract, error) {
	if partyID == "" {
		return nil, validationErrorf("party id is required")
	}
	contracts, err := s.repo.ListContractsByParty(ctx, partyID)
	if err != nil {
		return nil, err
	}
	for i := range contracts {
		if err := s.expireIfDue(ctx, &contracts[i]); err != nil {
			return nil, err
		}
	}
	return contracts, nil
}

// Sign records the signer's signature. Signing twice is a no-op; the contract
// becomes ACTIVE once both parties signed before the deadline.
func (s *ContractService) Sign(ctx context.Context, id uuid.UUID, req *SignContractRequest) (*models.Contract, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	contract, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	role, ok := contract.RoleOf(req.SignerID)
	if !ok {
		return nil, validationErrorf("signer %s is not a party to this contract", req.SignerID)
	}
	if alreadySigned(contract, role) {
		return contract, nil
	}
	if contract.Status != models.ContractStatusPendingSignatures {
		return nil, stateConflictf("contract is %s", contract.Status)
	}
	if err := checkVersion(req.ExpectedVersion, contract.Version); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	switch role {
	case models.PartyRoleStudio:
		contract.StudioSignedAt = &now
	case models.PartyRoleWriter:
		contract.WriterSignedAt = &now
	}

	var outbox []*models.OutboxEvent
	if contract.StudioSignedAt != nil && contract.WriterSignedAt != nil {
		contract.Status = models.ContractStatusActive
		contract.ActivatedAt = &now
		outbox = append(outbox, events.New(events.TopicContractActivated, contract.ID, now, models.JSONB{
			"negotiation_id": contract.NegotiationID,
			"license_type":   contract.LicenseType,
		}))
	}

	if err := s.repo.UpdateContract(ctx, contract, outbox...); err != nil {
		return nil, translateRepoError(err, "contract")
	}

	s.logger.WithFields(logrus.Fields{
		"contract_id": contract.ID,
		"signer_role": role,
		"status":      contract.Status,
	}).Info("Contract signed")

	return contract, nil
}

func (s *ContractService) Cancel(ctx context.Context, id uuid.UUID, actorID string, expectedVersion *int64) (*models.Contract, error) {
	contract, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, ok := contract.RoleOf(actorID); !ok {
		return nil, validationErrorf("actor %s is not a party to this contract", actorID)
	}
	if !contract.Status.CanTransitionTo(models.ContractStatusCancelled) {
		return nil, stateConflictf("contract is %s", contract.Status)
	}
	if err := checkVersion(expectedVersion, contract.Version); err != nil {
		return nil, err
	}

	contract.Status = models.ContractStatusCancelled
	if err := s.repo.UpdateContract(ctx, contract); err != nil {
		return nil, translateRepoError(err, "contract")
	}

	s.logger.WithField("contract_id", contract.ID).Info("Contract cancelled")
	return contract, nil
}

// DocumentURL returns a time-limited link to the contract document, falling
// back to the stored location when presigning is unavailable.
func (s *ContractService) DocumentURL(ctx context.Context, id uuid.UUID, expiration time.Duration) (string, error) {
	contract, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if s.documents == nil {
		return contract.ContractURL, nil
	}

	url, err := s.documents.PresignContractURL(contract, expiration)
	if err != nil {
		s.logger.WithError(err).WithField("contract_id", contract.ID).Warn("Falling back to stored contract URL")
		return contract.ContractURL, nil
	}
	return url, nil
}

func (s *ContractService) expireIfDue(ctx context.Context, contract *models.Contract) error {
	if contract.Status != models.ContractStatusPendingSignatures || !s.clock.Now().After(contract.SignatureDeadline) {
		return nil
	}

	contract.Status = models.ContractStatusExpired
	if err := s.repo.UpdateContract(ctx, contract); err != nil {
		return translateRepoError(err, "contract")
	}
	s.logger.WithField("contract_id", contract.ID).Info("Contract signature window expired")
	return nil
}

func alreadySigned(contract *models.Contract, role models.PartyRole) bool {
	if role == models.PartyRoleStudio {
		return contract.StudioSignedAt != nil
	}
	return contract.WriterSignedAt != nil
}
