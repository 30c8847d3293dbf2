package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testJob struct {
	name     string
	schedule string
	runs     atomic.Int32
	block    chan struct{}
	err      error
}

func (j *testJob) Name() string { return j.name }
func (j *testJob) Schedule() string { return j.schedule }

func (j *testJob) Run(ctx context.Context) error {
	j.runs.Add(1)
	if j.block != nil {
		select {
		case <-j.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return j.err
}

func TestTaskExecutor_SkipsOverlappingRuns(t *testing.T) {
	job := &testJob{name: "slow", block: make(chan struct{})}
	executor := NewTaskExecutor(job)

	done := make(chan bool)
	go func() { done <- executor.run(job) }()
	require.Eventually(t, func() bool { return job.runs.Load() == 1 }, time.Second, time.Millisecond)

	assert.False(t, executor.run(job))
	assert.Equal(t, int32(1), job.runs.Load())

	close(job.block)
	assert.True(t, <-done)

	// the job can run again once the previous run returned
	assert.True(t, executor.run(job))
	assert.Equal(t, int32(2), job.runs.Load())
}

func TestTaskExecutor_FailureIsLogged(t *testing.T) {
	job := &testJob{name: "failing", err: errors.New("boom")}
	executor := NewTaskExecutor(job)

	assert.True(t, executor.run(job))
	assert.True(t, executor.run(job))
}

func TestTaskExecutor_StartAndStop(t *testing.T) {
	ticking := &testJob{name: "ticking", schedule: "@every 1s"}
	disabled := &testJob{name: "disabled"}

	executor := NewTaskExecutor(ticking, disabled)
	require.NoError(t, executor.Start())
	assert.Eventually(t, func() bool { return ticking.runs.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
	executor.Stop()

	assert.Zero(t, disabled.runs.Load())
}

func TestTaskExecutor_StopCancelsRunningJobs(t *testing.T) {
	job := &testJob{name: "blocked", block: make(chan struct{})}
	executor := NewTaskExecutor(job)

	go executor.run(job)
	require.Eventually(t, func() bool { return job.runs.Load() == 1 }, time.Second, time.Millisecond)

	executor.Stop()
	assert.Zero(t, executor.running.Cardinality())
}

func TestTaskExecutor_InvalidSchedule(t *testing.T) {
	executor := NewTaskExecutor(&testJob{name: "broken", schedule: "whenever"})
	assert.Error(t, executor.Start())
}
