// internal/models/transitions.go
package models

// Every status type carries an explicit edge table. Mutations must consult
// CanTransitionTo before writing; edges missing from a table are illegal.

var negotiationTransitions = map[NegotiationStatus][]NegotiationStatus{
	NegotiationStatusInitiated:    {NegotiationStatusInProgress, NegotiationStatusCounterOffer, NegotiationStatusExpired},
	NegotiationStatusInProgress:   {NegotiationStatusCounterOffer, NegotiationStatusAccepted, NegotiationStatusRejected, NegotiationStatusExpired},
	NegotiationStatusCounterOffer: {NegotiationStatusInProgress, NegotiationStatusAccepted, NegotiationStatusRejected, NegotiationStatusExpired},
}

func (s NegotiationStatus) CanTransitionTo(next NegotiationStatus) bool {
	return contains(negotiationTransitions[s], next)
}

func (s NegotiationStatus) IsTerminal() bool {
	return s == NegotiationStatusAccepted || s == NegotiationStatusRejected || s == NegotiationStatusExpired
}

var contractTransitions = map[ContractStatus][]ContractStatus{
	ContractStatusPendingSignatures: {ContractStatusActive, ContractStatusExpired, ContractStatusCancelled},
}

func (s ContractStatus) CanTransitionTo(next ContractStatus) bool {
	return contains(contractTransitions[s], next)
}

var workflowTransitions = map[WorkflowStatus][]WorkflowStatus{
	WorkflowStatusActive: {WorkflowStatusCompleted, WorkflowStatusCancelled},
}

func (s WorkflowStatus) CanTransitionTo(next WorkflowStatus) bool {
	return contains(workflowTransitions[s], next)
}

var stepTransitions = map[StepStatus][]StepStatus{
	StepStatusPending:    {StepStatusInProgress, StepStatusCompleted},
	StepStatusInProgress: {StepStatusCompleted},
}

func (s StepStatus) CanTransitionTo(next StepStatus) bool {
	return contains(stepTransitions[s], next)
}

var milestoneTransitions = map[MilestoneStatus][]MilestoneStatus{
	MilestoneStatusPending:    {MilestoneStatusInProgress},
	MilestoneStatusInProgress: {MilestoneStatusCompleted},
}

func (s MilestoneStatus) CanTransitionTo(next MilestoneStatus) bool {
	return contains(milestoneTransitions[s], next)
}

var distributionTransitions = map[DistributionStatus][]DistributionStatus{
	DistributionStatusPending: {DistributionStatusCompleted, DistributionStatusFailed},
}

func (s DistributionStatus) CanTransitionTo(next DistributionStatus) bool {
	return contains(distributionTransitions[s], next)
}

var disputeTransitions = map[DisputeStatus][]DisputeStatus{
	DisputeStatusOpen:      {DisputeStatusMediation},
	DisputeStatusMediation: {DisputeStatusResolved, DisputeStatusEscalated},
}

func (s DisputeStatus) CanTransitionTo(next DisputeStatus) bool {
	return contains(disputeTransitions[s], next)
}

// BlocksDistribution reports whether a dispute in this status gates the
// workflow's recurring revenue distribution.
func (s DisputeStatus) BlocksDistribution() bool {
	return s == DisputeStatusOpen || s == DisputeStatusMediation
}

func contains[T comparable](list []T, v T) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
