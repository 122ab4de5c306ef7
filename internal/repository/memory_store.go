// internal/repository/memory_store.go
package repository

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Mahd-Mehn/MM-legato-sub000/internal/models"
)

// MemoryStore is an in-process Store with the same version and uniqueness
// semantics as GormStore. Values are deep-copied on the way in and out so
// callers never share state with the store.
type MemoryStore struct {
	mu            sync.Mutex
	negotiations  map[uuid.UUID]*models.NegotiationSession
	contracts     map[uuid.UUID]*models.Contract
	workflows     map[uuid.UUID]*models.LicensingWorkflow
	distributions map[uuid.UUID]*models.RevenueDistributionRecord
	disputes      map[uuid.UUID]*models.Dispute
	outbox        []*models.OutboxEvent
	audit         []*models.AuditLog
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		negotiations:  make(map[uuid.UUID]*models.NegotiationSession),
		contracts:     make(map[uuid.UUID]*models.Contract),
		workflows:     make(map[uuid.UUID]*models.LicensingWorkflow),
		distributions: make(map[uuid.UUID]*models.RevenueDistributionRecord),
		disputes:      make(map[uuid.UUID]*models.Dispute),
	}
}

var _ Store = (*MemoryStore)(nil)

// Negotiations

func (s *MemoryStore) CreateNegotiation(ctx context.Context, session *models.NegotiationSession, events ...*models.OutboxEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stampNew(&session.BaseModel)
	if _, exists := s.negotiations[session.ID]; exists {
		return ErrDuplicate
	}
	s.negotiations[session.ID] = clone(session)
	s.appendEvents(events)
	return nil
}

func (s *MemoryStore) GetNegotiation(ctx context.Context, id uuid.UUID) (*models.NegotiationSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.negotiations[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(session), nil
}

func (s *MemoryStore) UpdateNegotiation(ctx context.Context, session *models.NegotiationSession, events ...*models.OutboxEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.negotiations[session.ID]
	if !ok {
		return ErrNotFound
	}
	if err := bumpVersion(&stored.BaseModel, &session.BaseModel); err != nil {
		return err
	}
	s.negotiations[session.ID] = clone(session)
	s.appendEvents(events)
	return nil
}

func (s *MemoryStore) ListNegotiationsByParty(ctx context.Context, partyID string) ([]models.NegotiationSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.NegotiationSession
	for _, session := range s.negotiations {
		if session.StudioID == partyID || session.WriterID == partyID {
			out = append(out, *clone(session))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) ListExpiredNegotiations(ctx context.Context, now time.Time, limit int) ([]models.NegotiationSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.NegotiationSession
	for _, session := range s.negotiations {
		if !session.Status.IsTerminal() && session.ExpiresAt.Before(now) {
			out = append(out, *clone(session))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(out[j].ExpiresAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Contracts

func (s *MemoryStore) CreateContract(ctx context.Context, contract *models.Contract, events ...*models.OutboxEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stampNew(&contract.BaseModel)
	if _, exists := s.contracts[contract.ID]; exists {
		return ErrDuplicate
	}
	for _, existing := range s.contracts {
		if existing.NegotiationID == contract.NegotiationID {
			return ErrDuplicate
		}
	}
	s.contracts[contract.ID] = clone(contract)
	s.appendEvents(events)
	return nil
}

func (s *MemoryStore) GetContract(ctx context.Context, id uuid.UUID) (*models.Contract, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	contract, ok := s.contracts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(contract), nil
}

func (s *MemoryStore) GetContractByNegotiation(ctx context.Context, negotiationID uuid.UUID) (*models.Contract, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, contract := range s.contracts {
		if contract.NegotiationID == negotiationID {
			return clone(contract), nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) ListContractsByParty(ctx context.Context, partyID string) ([]models.Contract, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Contract
	for _, contract := range s.contracts {
		for _, party := range contract.Parties {
			if party == partyID {
				out = append(out, *clone(contract))
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) UpdateContract(ctx context.Context, contract *models.Contract, events ...*models.OutboxEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.contracts[contract.ID]
	if !ok {
		return ErrNotFound
	}
	if err := bumpVersion(&stored.BaseModel, &contract.BaseModel); err != nil {
		return err
	}
	s.contracts[contract.ID] = clone(contract)
	s.appendEvents(events)
	return nil
}

// Workflows

func (s *MemoryStore) CreateWorkflow(ctx context.Context, workflow *models.LicensingWorkflow, events ...*models.OutboxEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stampNew(&workflow.BaseModel)
	if _, exists := s.workflows[workflow.ID]; exists {
		return ErrDuplicate
	}
	for _, existing := range s.workflows {
		if existing.ContractID == workflow.ContractID {
			return ErrDuplicate
		}
	}
	s.workflows[workflow.ID] = clone(workflow)
	s.appendEvents(events)
	return nil
}

func (s *MemoryStore) GetWorkflow(ctx context.Context, id uuid.UUID) (*models.LicensingWorkflow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	workflow, ok := s.workflows[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(workflow), nil
}

func (s *MemoryStore) GetWorkflowByContract(ctx context.Context, contractID uuid.UUID) (*models.LicensingWorkflow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, workflow := range s.workflows {
		if workflow.ContractID == contractID {
			return clone(workflow), nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) UpdateWorkflow(ctx context.Context, workflow *models.LicensingWorkflow, events ...*models.OutboxEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.workflows[workflow.ID]
	if !ok {
		return ErrNotFound
	}
	if err := bumpVersion(&stored.BaseModel, &workflow.BaseModel); err != nil {
		return err
	}
	s.workflows[workflow.ID] = clone(workflow)
	s.appendEvents(events)
	return nil
}

// Distributions

func (s *MemoryStore) CommitDistribution(ctx context.Context, record *models.RevenueDistributionRecord, workflow *models.LicensingWorkflow, events ...*models.OutboxEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.distributions[record.ID]; exists && record.ID != uuid.Nil {
		return ErrDuplicate
	}
	stored, ok := s.workflows[workflow.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.Version != workflow.Version {
		return ErrVersionConflict
	}

	stampNew(&record.BaseModel)
	if err := bumpVersion(&stored.BaseModel, &workflow.BaseModel); err != nil {
		return err
	}
	s.distributions[record.ID] = clone(record)
	s.workflows[workflow.ID] = clone(workflow)
	s.appendEvents(events)
	return nil
}

func (s *MemoryStore) GetDistribution(ctx context.Context, id uuid.UUID) (*models.RevenueDistributionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.distributions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(record), nil
}

func (s *MemoryStore) ListDistributions(ctx context.Context, workflowID uuid.UUID) ([]models.RevenueDistributionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.RevenueDistributionRecord
	for _, record := range s.distributions {
		if record.WorkflowID == workflowID {
			out = append(out, *clone(record))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PeriodStart.Before(out[j].PeriodStart) })
	return out, nil
}

func (s *MemoryStore) UpdateDistribution(ctx context.Context, record *models.RevenueDistributionRecord, events ...*models.OutboxEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.distributions[record.ID]
	if !ok {
		return ErrNotFound
	}
	if err := bumpVersion(&stored.BaseModel, &record.BaseModel); err != nil {
		return err
	}
	s.distributions[record.ID] = clone(record)
	s.appendEvents(events)
	return nil
}

// Disputes

func (s *MemoryStore) CreateDispute(ctx context.Context, dispute *models.Dispute, events ...*models.OutboxEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stampNew(&dispute.BaseModel)
	if _, exists := s.disputes[dispute.ID]; exists {
		return ErrDuplicate
	}
	s.disputes[dispute.ID] = clone(dispute)
	s.appendEvents(events)
	return nil
}

func (s *MemoryStore) GetDispute(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dispute, ok := s.disputes[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(dispute), nil
}

func (s *MemoryStore) UpdateDispute(ctx context.Context, dispute *models.Dispute, events ...*models.OutboxEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.disputes[dispute.ID]
	if !ok {
		return ErrNotFound
	}
	if err := bumpVersion(&stored.BaseModel, &dispute.BaseModel); err != nil {
		return err
	}
	s.disputes[dispute.ID] = clone(dispute)
	s.appendEvents(events)
	return nil
}

func (s *MemoryStore) ListDisputesByWorkflow(ctx context.Context, workflowID uuid.UUID) ([]models.Dispute, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Dispute
	for _, dispute := range s.disputes {
		if dispute.WorkflowID == workflowID {
			out = append(out, *clone(dispute))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) CountBlockingDisputes(ctx context.Context, workflowID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	for _, dispute := range s.disputes {
		if dispute.WorkflowID == workflowID && dispute.Status.BlocksDistribution() {
			count++
		}
	}
	return count, nil
}

// Outbox

func (s *MemoryStore) ListPendingEvents(ctx context.Context, limit int) ([]models.OutboxEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.OutboxEvent
	for _, event := range s.outbox {
		if event.PublishedAt != nil {
			continue
		}
		out = append(out, *clone(event))
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *MemoryStore) MarkEventPublished(ctx context.Context, id uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, event := range s.outbox {
		if event.ID == id {
			published := at
			event.PublishedAt = &published
			event.Attempts++
			return nil
		}
	}
	return ErrNotFound
}

func (s *MemoryStore) MarkEventFailed(ctx context.Context, id uuid.UUID, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, event := range s.outbox {
		if event.ID == id {
			event.LastError = reason
			event.Attempts++
			return nil
		}
	}
	return ErrNotFound
}

// Audit

func (s *MemoryStore) CreateAuditLog(ctx context.Context, entry *models.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.audit = append(s.audit, clone(entry))
	return nil
}

// AuditLogs returns the recorded audit entries, in append order.
func (s *MemoryStore) AuditLogs() []models.AuditLog {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.AuditLog, 0, len(s.audit))
	for _, entry := range s.audit {
		out = append(out, *clone(entry))
	}
	return out
}

// Events returns every outbox event recorded so far, in append order.
func (s *MemoryStore) Events() []models.OutboxEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.OutboxEvent, 0, len(s.outbox))
	for _, event := range s.outbox {
		out = append(out, *clone(event))
	}
	return out
}

func (s *MemoryStore) appendEvents(events []*models.OutboxEvent) {
	for _, event := range events {
		if event.ID == uuid.Nil {
			event.ID = uuid.New()
		}
		if event.OccurredAt.IsZero() {
			event.OccurredAt = time.Now().UTC()
		}
		s.outbox = append(s.outbox, clone(event))
	}
}

func stampNew(base *models.BaseModel) {
	if base.ID == uuid.Nil {
		base.ID = uuid.New()
	}
	if base.Version == 0 {
		base.Version = 1
	}
	now := time.Now().UTC()
	if base.CreatedAt.IsZero() {
		base.CreatedAt = now
	}
	base.UpdatedAt = now
}

func bumpVersion(stored, incoming *models.BaseModel) error {
	if stored.Version != incoming.Version {
		return ErrVersionConflict
	}
	incoming.Version++
	incoming.CreatedAt = stored.CreatedAt
	incoming.UpdatedAt = time.Now().UTC()
	return nil
}

func clone[T any](v *T) *T {
	data, err := json.Marshal(v)
	if err != nil {
		panic("repository: clone marshal: " + err.Error())
	}
	out := new(T)
	if err := json.Unmarshal(data, out); err != nil {
		panic("repository: clone unmarshal: " + err.Error())
	}
	return out
}
