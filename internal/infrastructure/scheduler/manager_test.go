package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kreltrack/internal/shared/logger"
)

type countingJob struct {
	calls atomic.Int32
	err   error
}

func (j *countingJob) Execute(context.Context) (int, error) {
	j.calls.Add(1)
	return 1, j.err
}

func TestLookupRefreshRuns(t *testing.T) {
	m, err := NewManager(logger.NewDiscard())
	require.NoError(t, err)

	job := &countingJob{}
	require.NoError(t, m.RegisterLookupRefresh(job, 10*time.Millisecond))
	require.Len(t, m.Jobs(), 1)
	assert.Equal(t, "lookup-refresh", m.Jobs()[0].Name())

	m.Start()
	assert.True(t, m.IsStarted())
	require.Eventually(t, func() bool { return job.calls.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, m.Stop())
	assert.False(t, m.IsStarted())
	require.NoError(t, m.Stop())
}

func TestLookupRefreshDisabled(t *testing.T) {
	m, err := NewManager(logger.NewDiscard())
	require.NoError(t, err)

	require.NoError(t, m.RegisterLookupRefresh(&countingJob{}, 0))
	assert.Empty(t, m.Jobs())
}

func TestFailingJobKeepsRunning(t *testing.T) {
	m, err := NewManager(logger.NewDiscard())
	require.NoError(t, err)

	job := &countingJob{err: errors.New("store down")}
	require.NoError(t, m.RegisterLookupRefresh(job, 10*time.Millisecond))
	m.Start()
	defer func() { _ = m.Stop() }()

	require.Eventually(t, func() bool { return job.calls.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)
}
