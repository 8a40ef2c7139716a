package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ArCaneSec/apidock/internal/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePurger struct {
	mu    sync.Mutex
	calls []time.Duration
	err   error
}

func (p *fakePurger) Purge(retention time.Duration) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, retention)
	return 1, p.err
}

func (p *fakePurger) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

func TestPurgeExportsTask(t *testing.T) {
	p := &fakePurger{}
	task := &PurgeExports{exports: p, retention: time.Hour, log: logging.Nop()}

	task.Start(context.Background())
	require.Equal(t, []time.Duration{time.Hour}, p.calls)

	p.err = errors.New("disk gone")
	task.Start(context.Background())
	assert.Equal(t, 2, p.count())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	task.Start(ctx)
	assert.Equal(t, 2, p.count())
}

func TestSchedulerRunsImmediately(t *testing.T) {
	p := &fakePurger{}
	s, err := ScheduleJobs(Config{ExportRetention: time.Hour, PurgeInterval: time.Hour}, p, nil)
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return p.count() == 1 }, 2*time.Second, 10*time.Millisecond)

	assert.Error(t, s.ActiveJob(0))
	assert.Error(t, s.ActiveJob(5))
	require.NoError(t, s.DeactiveJob(0))
	assert.Error(t, s.DeactiveJob(0))

	require.NoError(t, s.Shutdown())
}
