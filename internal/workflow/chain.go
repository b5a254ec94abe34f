package workflow

import "github.com/buildcore-ai/be-ops-approvals/internal/errors"

// GenerateChain expands a definition's step templates into a fresh approval
// chain: one PENDING entry per step with no decision fields set. It is
// invoked exactly once per work item, at submission.
func GenerateChain(def *WorkflowDefinition) []ApprovalChainEntry {
	chain := make([]ApprovalChainEntry, 0, len(def.Steps))
	for _, step := range def.Steps {
		chain = append(chain, ApprovalChainEntry{
			StepNo:       step.StepNo,
			RoleRequired: step.RoleRequired,
			RequireNote:  step.RequireNote,
			Status:       DecisionPending,
		})
	}
	return chain
}

// DefaultChain is the fallback when no definition matches: a single
// MANAGER step, escalating to MANAGER then DIRECTOR for purchase-type
// requests at or above the amount threshold (cents).
func DefaultChain(t WorkItemType, amount, escalationThreshold int64) []ApprovalChainEntry {
	if t == TypePurchase && escalationThreshold > 0 && amount >= escalationThreshold {
		return []ApprovalChainEntry{
			{StepNo: 1, RoleRequired: RoleManager, Status: DecisionPending},
			{StepNo: 2, RoleRequired: RoleDirector, Status: DecisionPending},
		}
	}
	return []ApprovalChainEntry{
		{StepNo: 1, RoleRequired: RoleManager, Status: DecisionPending},
	}
}

// ActiveStep returns the chain's active entry: the lowest-numbered PENDING
// entry. Returns (nil, -1) when the chain is exhausted or empty. The chain
// must be in ascending step order, which generation guarantees.
func ActiveStep(chain []ApprovalChainEntry) (*ApprovalChainEntry, int) {
	for i := range chain {
		if chain[i].Status == DecisionPending {
			return &chain[i], i
		}
	}
	return nil, -1
}

// ChainDecided reports whether any entry carries a decision. A decided
// chain must never be regenerated: that would discard audit history.
func ChainDecided(chain []ApprovalChainEntry) bool {
	for i := range chain {
		if chain[i].Status != DecisionPending {
			return true
		}
	}
	return false
}

// ValidateChain checks the structural invariant: step numbers contiguous
// starting at 1.
func ValidateChain(chain []ApprovalChainEntry) error {
	for i := range chain {
		if chain[i].StepNo != i+1 {
			return errors.Newf(errors.ErrCodeValidation,
				"approval chain step numbers not contiguous: entry %d has step_no %d", i, chain[i].StepNo)
		}
	}
	return nil
}
