package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransitionTableCoversEveryStatus(t *testing.T) {
	for _, s := range AllStatuses() {
		assert.True(t, s.IsValid(), "status %s missing from transition table", s)
		for _, next := range NextStatuses(s) {
			assert.True(t, next.IsValid(), "%s transitions to unknown status %s", s, next)
		}
	}
}

func TestTerminalStatusesHaveNoSuccessors(t *testing.T) {
	for _, s := range []Status{StatusClosed, StatusCancelled, StatusRejected, StatusDone} {
		assert.True(t, s.IsTerminal(), "%s should be terminal", s)
		assert.Empty(t, NextStatuses(s), "%s should have no successors", s)
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from Status
		to   Status
		want bool
	}{
		{"draft to submitted", StatusDraft, StatusSubmitted, true},
		{"draft to cancelled", StatusDraft, StatusCancelled, true},
		{"draft to approved skips submission", StatusDraft, StatusApprovedFinal, false},
		{"submitted to need info", StatusSubmitted, StatusNeedInfo, true},
		{"submitted to rejected", StatusSubmitted, StatusRejected, true},
		{"submitted to ordered skips approval", StatusSubmitted, StatusOrdered, false},
		{"need info back to submitted", StatusNeedInfo, StatusSubmitted, true},
		{"l1 to l2", StatusApprovedL1, StatusApprovedL2, true},
		{"l2 to final", StatusApprovedL2, StatusApprovedFinal, true},
		{"final to ordered", StatusApprovedFinal, StatusOrdered, true},
		{"ordered to delivered", StatusOrdered, StatusDelivered, true},
		{"delivered to invoiced", StatusDelivered, StatusInvoiced, true},
		{"invoiced to closed", StatusInvoiced, StatusClosed, true},
		{"closed is terminal", StatusClosed, StatusDraft, false},
		{"rejected is terminal", StatusRejected, StatusSubmitted, false},
		{"reopening cancelled", StatusCancelled, StatusDraft, false},
		{"unknown status", Status("BOGUS"), StatusDraft, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestCanTransitionMatchesNextStatuses(t *testing.T) {
	// CanTransition(from, to) must hold exactly when to is listed for from.
	for _, from := range AllStatuses() {
		listed := map[Status]bool{}
		for _, next := range NextStatuses(from) {
			listed[next] = true
		}
		for _, to := range AllStatuses() {
			assert.Equal(t, listed[to], CanTransition(from, to),
				"%s -> %s disagrees with NextStatuses", from, to)
		}
	}
}

func TestCanonicalMapsLegacyAliases(t *testing.T) {
	tests := []struct {
		in   Status
		want Status
	}{
		{StatusDone, StatusClosed},
		{StatusApproved, StatusApprovedFinal},
		{StatusInReview, StatusSubmitted},
		{StatusInProgress, StatusOrdered},
		{StatusDraft, StatusDraft},
		{StatusApprovedFinal, StatusApprovedFinal},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.in.Canonical())
	}
}

func TestLegacyStatusesRemainLoadable(t *testing.T) {
	for _, s := range []Status{StatusDone, StatusApproved, StatusInReview, StatusInProgress} {
		require.True(t, s.IsValid(), "legacy status %s must stay in the table", s)
		assert.True(t, s.IsLegacy())
		assert.False(t, s.Canonical().IsLegacy(), "canonical form of %s must be current", s)
	}
}

func TestNextStatusesReturnsCopy(t *testing.T) {
	first := NextStatuses(StatusDraft)
	require.NotEmpty(t, first)
	first[0] = Status("MUTATED")
	assert.NotContains(t, NextStatuses(StatusDraft), Status("MUTATED"))
}
