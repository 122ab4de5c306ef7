// internal/services/negotiation_service.go
package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Mahd-Mehn/MM-legato-sub000/internal/config"
	"github.com/Mahd-Mehn/MM-legato-sub000/internal/events"
	"github.com/Mahd-Mehn/MM-legato-sub000/internal/metrics"
	"github.com/Mahd-Mehn/MM-legato-sub000/internal/models"
	"github.com/Mahd-Mehn/MM-legato-sub000/internal/repository"
	"github.com/Mahd-Mehn/MM-legato-sub000/internal/utils"
)

type NegotiationService struct {
	repo   repository.NegotiationRepository
	config config.LicensingConfig
	clock  utils.Clock
	logger *logrus.Logger
}

type InitiateNegotiationRequest struct {
	ListingID    string             `json:"listing_id" validate:"required,max=100"`
	StudioID     string             `json:"studio_id" validate:"required,max=100"`
	WriterID     string             `json:"writer_id" validate:"required,max=100"`
	LicenseType  models.LicenseType `json:"license_type" validate:"required,license_type"`
	InitialOffer *models.OfferTerms `json:"initial_offer" validate:"required"`
	Message      string             `json:"message,omitempty" validate:"max=5000"`
}

type SendMessageRequest struct {
	SenderID        string             `json:"sender_id" validate:"required,max=100"`
	Text            string             `json:"text" validate:"max=5000"`
	Offer           *models.OfferTerms `json:"offer,omitempty"`
	ExpectedVersion *int64             `json:"expected_version,omitempty"`
}

type CloseNegotiationRequest struct {
	ActorID         string `json:"actor_id" validate:"required,max=100"`
	Reason          string `json:"reason,omitempty" validate:"max=2000"`
	ExpectedVersion *int64 `json:"expected_version,omitempty"`
}

func NewNegotiationService(repo repository.NegotiationRepository, cfg config.LicensingConfig, clock utils.Clock, logger *logrus.Logger) *NegotiationService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &NegotiationService{
		repo:   repo,
		config: cfg,
		clock:  clock,
		logger: logger,
	}
}

func (s *NegotiationService) Initiate(ctx context.Context, req *InitiateNegotiationRequest) (*models.NegotiationSession, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if req.StudioID == req.WriterID {
		return nil, validationErrorf("studio and writer must be different parties")
	}
	if err := ValidateOffer(req.LicenseType, req.InitialOffer); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	session := &models.NegotiationSession{
		ListingID:       req.ListingID,
		StudioID:        req.StudioID,
		WriterID:        req.WriterID,
		LicenseType:     req.LicenseType,
		Status:          models.NegotiationStatusInitiated,
		CurrentTerms:    *req.InitialOffer,
		TermsProposedBy: models.PartyRoleStudio,
		ExpiresAt:       now.AddDate(0, 0, s.config.NegotiationTTLDays),
	}
	session.ID = uuid.New()
	session.Version = 1

	offer := *req.InitialOffer
	message := models.NegotiationMessage{
		ID:         uuid.New(),
		SenderID:   req.StudioID,
		SenderRole: models.PartyRoleStudio,
		Text:       req.Message,
		Offer:      &offer,
		SentAt:     now,
	}
	session.Messages = []models.NegotiationMessage{message}

	if err := s.repo.CreateNegotiation(ctx, session, messageEvent(session, message)); err != nil {
		return nil, translateRepoError(err, "negotiation")
	}

	metrics.NegotiationTransitions.WithLabelValues(string(session.Status)).Inc()
	s.logger.WithFields(logrus.Fields{
		"negotiation_id": session.ID,
		"listing_id":     session.ListingID,
		"license_type":   session.LicenseType,
	}).Info("Negotiation initiated")

	return session, nil
}

// Get returns the session, persisting EXPIRED first when its deadline passed.
func (s *NegotiationService) Get(ctx context.Context, id uuid.UUID) (*models.NegotiationSession, error) {
	session, err := s.repo.GetNegotiation(ctx, id)
	if err != nil {
		return nil, translateRepoError(err, "negotiation")
	}
	if _, err := s.expireIfDue(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *NegotiationService) SendMessage(ctx context.Context, id uuid.UUID, req *SendMessageRequest) (*models.NegotiationSession, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	session, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.Status.IsTerminal() {
		return nil, stateConflictf("negotiation is %s", session.Status)
	}
	if err := checkVersion(req.ExpectedVersion, session.Version); err != nil {
		return nil, err
	}

	role, ok := session.RoleOf(req.SenderID)
	if !ok {
		return nil, validationErrorf("sender %s is not a party to this negotiation", req.SenderID)
	}
	if strings.TrimSpace(req.Text) == "" && req.Offer == nil {
		return nil, validationErrorf("message needs text or an offer")
	}

	next := session.Status
	var offer *models.OfferTerms
	if req.Offer != nil {
		if err := ValidateOffer(session.LicenseType, req.Offer); err != nil {
			return nil, err
		}
		copied := *req.Offer
		offer = &copied
		if role != session.TermsProposedBy {
			next = models.NegotiationStatusCounterOffer
		} else {
			next = models.NegotiationStatusInProgress
		}
	} else if session.Status == models.NegotiationStatusInitiated {
		next = models.NegotiationStatusInProgress
	}

	if next != session.Status && !session.Status.CanTransitionTo(next) {
		return nil, stateConflictf("cannot move negotiation from %s to %s", session.Status, next)
	}

	message := models.NegotiationMessage{
		ID:         uuid.New(),
		SenderID:   req.SenderID,
		SenderRole: role,
		Text:       req.Text,
		Offer:      offer,
		SentAt:     s.clock.Now(),
	}
	session.Messages = append(session.Messages, message)
	if offer != nil {
		session.CurrentTerms = *offer
		session.TermsProposedBy = role
	}
	previous := session.Status
	session.Status = next

	if err := s.repo.UpdateNegotiation(ctx, session, messageEvent(session, message)); err != nil {
		return nil, translateRepoError(err, "negotiation")
	}
	if previous != next {
		metrics.NegotiationTransitions.WithLabelValues(string(next)).Inc()
	}

	return session, nil
}

// Accept closes the negotiation on its current terms. The party that
// proposed those terms cannot accept them.
func (s *NegotiationService) Accept(ctx context.Context, id uuid.UUID, req *CloseNegotiationRequest) (*models.NegotiationSession, error) {
	session, role, err := s.loadForClose(ctx, id, req, models.NegotiationStatusAccepted)
	if err != nil {
		return nil, err
	}
	if role == session.TermsProposedBy {
		return nil, validationErrorf("the %s proposed the current terms and cannot accept them", role)
	}

	s.close(session, models.NegotiationStatusAccepted, req.ActorID, "")
	event := events.New(events.TopicNegotiationAccepted, session.ID, s.clock.Now(), models.JSONB{
		"listing_id":   session.ListingID,
		"studio_id":    session.StudioID,
		"writer_id":    session.WriterID,
		"license_type": session.LicenseType,
		"accepted_by":  req.ActorID,
	})
	if err := s.repo.UpdateNegotiation(ctx, session, event); err != nil {
		return nil, translateRepoError(err, "negotiation")
	}

	metrics.NegotiationTransitions.WithLabelValues(string(session.Status)).Inc()
	s.logger.WithField("negotiation_id", session.ID).Info("Negotiation accepted")
	return session, nil
}

func (s *NegotiationService) Reject(ctx context.Context, id uuid.UUID, req *CloseNegotiationRequest) (*models.NegotiationSession, error) {
	session, _, err := s.loadForClose(ctx, id, req, models.NegotiationStatusRejected)
	if err != nil {
		return nil, err
	}

	s.close(session, models.NegotiationStatusRejected, req.ActorID, req.Reason)
	event := events.New(events.TopicNegotiationClosed, session.ID, s.clock.Now(), models.JSONB{
		"status":    session.Status,
		"closed_by": req.ActorID,
		"reason":    req.Reason,
	})
	if err := s.repo.UpdateNegotiation(ctx, session, event); err != nil {
		return nil, translateRepoError(err, "negotiation")
	}

	metrics.NegotiationTransitions.WithLabelValues(string(session.Status)).Inc()
	s.logger.WithField("negotiation_id", session.ID).Info("Negotiation rejected")
	return session, nil
}

// ExpireStale moves up to limit overdue sessions to EXPIRED and returns how
// many were expired. Sessions changed concurrently are skipped.
func (s *NegotiationService) ExpireStale(ctx context.Context, limit int) (int, error) {
	due, err := s.repo.ListExpiredNegotiations(ctx, s.clock.Now(), limit)
	if err != nil {
		return 0, err
	}

	expired := 0
	for i := range due {
		ok, err := s.expireIfDue(ctx, &due[i])
		if err != nil {
			if errors.Is(err, ErrConcurrencyConflict) {
				s.logger.WithField("negotiation_id", due[i].ID).Warn("Skipping negotiation changed during expiry sweep")
				continue
			}
			return expired, err
		}
		if ok {
			expired++
		}
	}
	return expired, nil
}

func (s *NegotiationService) ListByParty(ctx context.Context, partyID string) ([]models.NegotiationSession, error) {
	if partyID == "" {
		return nil, validationErrorf("party id is required")
	}
	sessions, err := s.repo.ListNegotiationsByParty(ctx, partyID)
	if err != nil {
		return nil, err
	}
	for i := range sessions {
		if _, err := s.expireIfDue(ctx, &sessions[i]); err != nil {
			return nil, err
		}
	}
	return sessions, nil
}

func (s *NegotiationService) loadForClose(ctx context.Context, id uuid.UUID, req *CloseNegotiationRequest, target models.NegotiationStatus) (*models.NegotiationSession, models.PartyRole, error) {
	if err := validateRequest(req); err != nil {
		return nil, "", err
	}

	session, err := s.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if !session.Status.CanTransitionTo(target) {
		return nil, "", stateConflictf("cannot move negotiation from %s to %s", session.Status, target)
	}
	if err := checkVersion(req.ExpectedVersion, session.Version); err != nil {
		return nil, "", err
	}

	role, ok := session.RoleOf(req.ActorID)
	if !ok {
		return nil, "", validationErrorf("actor %s is not a party to this negotiation", req.ActorID)
	}
	return session, role, nil
}

func (s *NegotiationService) close(session *models.NegotiationSession, status models.NegotiationStatus, actorID, reason string) {
	now := s.clock.Now()
	session.Status = status
	session.ClosedAt = &now
	session.ClosedBy = actorID
	session.RejectionReason = reason
}

// expireIfDue persists EXPIRED for a non-terminal session past its deadline.
func (s *NegotiationService) expireIfDue(ctx context.Context, session *models.NegotiationSession) (bool, error) {
	if session.Status.IsTerminal() || !s.clock.Now().After(session.ExpiresAt) {
		return false, nil
	}

	s.close(session, models.NegotiationStatusExpired, "", "")
	event := events.New(events.TopicNegotiationClosed, session.ID, s.clock.Now(), models.JSONB{
		"status": session.Status,
	})
	if err := s.repo.UpdateNegotiation(ctx, session, event); err != nil {
		return false, translateRepoError(err, "negotiation")
	}

	metrics.NegotiationTransitions.WithLabelValues(string(session.Status)).Inc()
	s.logger.WithField("negotiation_id", session.ID).Info("Negotiation expired")
	return true, nil
}

// ValidateOffer checks offer terms against the requirements of licenseType.
func ValidateOffer(licenseType models.LicenseType, offer *models.OfferTerms) error {
	if offer == nil {
		return validationErrorf("offer terms are required")
	}
	if err := validateRequest(offer); err != nil {
		return err
	}

	category, ok := licenseType.Category()
	if !ok {
		return validationErrorf("unknown license type %q", licenseType)
	}
	if offer.AdvanceAmount.IsNegative() {
		return validationErrorf("advance amount cannot be negative")
	}
	if !offer.AdvanceAmount.Equal(utils.Round2(offer.AdvanceAmount)) {
		return validationErrorf("advance amount has more than two fractional digits")
	}
	if !utils.ValidPercent(offer.WriterSharePercent) {
		return validationErrorf("writer share percent must be between 0 and 100 with at most two fractional digits")
	}

	switch category {
	case models.LicenseCategoryAdaptation:
		if strings.TrimSpace(offer.Format) == "" {
			return validationErrorf("format is required for %s", licenseType)
		}
	case models.LicenseCategoryTranslation:
		if len(offer.TargetLanguages) == 0 {
			return validationErrorf("target languages are required for %s", licenseType)
		}
	}
	return nil
}

func messageEvent(session *models.NegotiationSession, message models.NegotiationMessage) *models.OutboxEvent {
	return events.New(events.TopicNegotiationMessage, session.ID, message.SentAt, models.JSONB{
		"message_id":  message.ID,
		"sender_id":   message.SenderID,
		"sender_role": message.SenderRole,
		"status":      session.Status,
		"has_offer":   message.Offer != nil,
	})
}
