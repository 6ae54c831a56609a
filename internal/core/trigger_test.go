package core

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingRunner struct {
	mu      sync.Mutex
	runs    []Trigger
	gate    chan struct{} // when set, Run blocks until the gate closes
	started chan struct{}
	runErr  error
}

func (r *countingRunner) Run(ctx context.Context, trigger Trigger) (*RunResult, error) {
	if r.started != nil {
		r.started <- struct{}{}
	}
	if r.gate != nil {
		<-r.gate
	}
	r.mu.Lock()
	r.runs = append(r.runs, trigger)
	r.mu.Unlock()
	if r.runErr != nil {
		return nil, r.runErr
	}
	return &RunResult{Trigger: trigger}, nil
}

func (r *countingRunner) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.runs)
}

func TestTriggerCoordinator_RequestRuns(t *testing.T) {
	runner := &countingRunner{}
	coord := NewTriggerCoordinator(runner, zap.NewNop())
	defer coord.Close()

	coord.Request(TriggerChange)

	require.Eventually(t, func() bool { return runner.count() == 1 }, 2*time.Second, 10*time.Millisecond)
	require.Equal(t, TriggerChange, runner.runs[0])
}

func TestTriggerCoordinator_BurstCoalesces(t *testing.T) {
	runner := &countingRunner{
		gate:    make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	coord := NewTriggerCoordinator(runner, zap.NewNop())
	defer coord.Close()

	coord.Request(TriggerChange)
	<-runner.started // worker is inside the first run

	// A burst of notifications while the run executes fills the single
	// pending slot once; the rest are absorbed.
	for i := 0; i < 10; i++ {
		coord.Request(TriggerChange)
	}
	close(runner.gate)

	require.Eventually(t, func() bool { return runner.count() == 2 }, 2*time.Second, 10*time.Millisecond)

	// No further runs after the queue drained.
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, 2, runner.count())
}

func TestTriggerCoordinator_RunErrorsDoNotStopWorker(t *testing.T) {
	runner := &countingRunner{runErr: context.DeadlineExceeded}
	coord := NewTriggerCoordinator(runner, zap.NewNop())
	defer coord.Close()

	coord.Request(TriggerScheduled)
	require.Eventually(t, func() bool { return runner.count() == 1 }, 2*time.Second, 10*time.Millisecond)

	coord.Request(TriggerScheduled)
	require.Eventually(t, func() bool { return runner.count() == 2 }, 2*time.Second, 10*time.Millisecond)
}

func TestTriggerCoordinator_ScheduleFires(t *testing.T) {
	runner := &countingRunner{}
	coord := NewTriggerCoordinator(runner, zap.NewNop())
	defer coord.Close()

	require.NoError(t, coord.StartSchedule("@every 100ms"))
	require.Eventually(t, func() bool { return runner.count() >= 1 }, 3*time.Second, 20*time.Millisecond)

	runner.mu.Lock()
	first := runner.runs[0]
	runner.mu.Unlock()
	require.Equal(t, TriggerScheduled, first)
}

func TestTriggerCoordinator_InvalidScheduleRejected(t *testing.T) {
	coord := NewTriggerCoordinator(&countingRunner{}, zap.NewNop())
	defer coord.Close()

	require.Error(t, coord.StartSchedule("not a schedule"))
}

func TestTriggerCoordinator_CloseStopsWorker(t *testing.T) {
	runner := &countingRunner{}
	coord := NewTriggerCoordinator(runner, zap.NewNop())
	coord.Close()

	coord.Request(TriggerChange)
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, 0, runner.count())
}
