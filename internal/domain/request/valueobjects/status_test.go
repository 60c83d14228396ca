package valueobjects

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusTransitionTable(t *testing.T) {
	allowed := map[[2]Status]bool{
		{StatusDraft, StatusSubmitted}:      true,
		{StatusSubmitted, StatusInProgress}: true,
		{StatusInProgress, StatusCompleted}: true,
		{StatusDraft, StatusCancelled}:      true,
		{StatusSubmitted, StatusCancelled}:  true,
		{StatusInProgress, StatusCancelled}: true,
	}

	for _, from := range AllStatuses {
		for _, to := range AllStatuses {
			want := from == to || allowed[[2]Status{from, to}]
			assert.Equal(t, want, from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
}

func TestStatusTerminal(t *testing.T) {
	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())
	assert.False(t, StatusDraft.IsTerminal())
	assert.False(t, Status("Archived").CanTransitionTo(StatusDraft))
}

func TestNewStatus(t *testing.T) {
	st, err := NewStatus("InProgress")
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, st)

	_, err = NewStatus("in_progress")
	assert.Error(t, err)
}

func TestNewFinalResult(t *testing.T) {
	r, err := NewFinalResult("")
	require.NoError(t, err)
	assert.Equal(t, FinalResultNone, r)

	r, err = NewFinalResult("Waiver")
	require.NoError(t, err)
	assert.Equal(t, FinalResultWaiver, r)

	_, err = NewFinalResult("pass")
	assert.Error(t, err)
}
