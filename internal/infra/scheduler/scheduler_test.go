package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func TestRegisterValidation(t *testing.T) {
	s := New(testLogger())

	require.NoError(t, s.Register("sweep", time.Hour, func(context.Context) error { return nil }))

	err := s.Register("sweep", time.Hour, func(context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrDuplicateJob)

	err = s.Register("bad", 0, func(context.Context) error { return nil })
	assert.Error(t, err)
}

func TestStartRunsEveryJobImmediately(t *testing.T) {
	s := New(testLogger())

	var first, second atomic.Int32
	require.NoError(t, s.Register("first", time.Hour, func(context.Context) error {
		first.Add(1)
		return nil
	}))
	require.NoError(t, s.Register("second", time.Hour, func(context.Context) error {
		second.Add(1)
		return nil
	}))

	require.NoError(t, s.Start())
	defer s.Stop()

	assert.Equal(t, int32(1), first.Load())
	assert.Equal(t, int32(1), second.Load())
}

func TestRegisterAfterStart(t *testing.T) {
	s := New(testLogger())
	require.NoError(t, s.Register("sweep", time.Hour, func(context.Context) error { return nil }))
	require.NoError(t, s.Start())
	defer s.Stop()

	err := s.Register("late", time.Hour, func(context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrAlreadyStarted)
	assert.ErrorIs(t, s.Start(), ErrAlreadyStarted)
}

func TestRunJob(t *testing.T) {
	s := New(testLogger())

	var runs atomic.Int32
	require.NoError(t, s.Register("sweep", time.Hour, func(context.Context) error {
		runs.Add(1)
		return nil
	}))

	require.NoError(t, s.RunJob("sweep"))
	require.NoError(t, s.RunJob("sweep"))
	assert.Equal(t, int32(2), runs.Load())

	assert.ErrorIs(t, s.RunJob("missing"), ErrJobNotFound)
}

func TestOverlappingRunsAreSkipped(t *testing.T) {
	s := New(testLogger())

	release := make(chan struct{})
	entered := make(chan struct{})
	var runs atomic.Int32
	require.NoError(t, s.Register("slow", time.Hour, func(context.Context) error {
		runs.Add(1)
		entered <- struct{}{}
		<-release
		return nil
	}))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, s.RunJob("slow"))
	}()
	<-entered

	// A trigger while the first run is still in flight is dropped, not queued.
	require.NoError(t, s.RunJob("slow"))
	assert.Equal(t, int32(1), runs.Load())

	close(release)
	wg.Wait()

	// Once the first run finishes the job is runnable again.
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, s.RunJob("slow"))
	}()
	<-entered
	assert.Equal(t, int32(2), runs.Load())
	wg.Wait()
}

func TestHandlerErrorsAndPanicsAreContained(t *testing.T) {
	s := New(testLogger())

	require.NoError(t, s.Register("failing", time.Hour, func(context.Context) error {
		return errors.New("boom")
	}))
	require.NoError(t, s.Register("panicking", time.Hour, func(context.Context) error {
		panic("boom")
	}))

	assert.NoError(t, s.RunJob("failing"))
	assert.NoError(t, s.RunJob("panicking"))

	// Both jobs stay runnable after misbehaving.
	assert.NoError(t, s.RunJob("failing"))
	assert.NoError(t, s.RunJob("panicking"))
}

func TestStatus(t *testing.T) {
	s := New(testLogger())
	now := time.Date(2025, time.June, 1, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	require.NoError(t, s.Register("hourly", time.Hour, func(context.Context) error { return nil }))
	require.NoError(t, s.Register("daily", 24*time.Hour, func(context.Context) error { return nil }))

	statuses := s.Status()
	require.Len(t, statuses, 2)
	assert.Equal(t, "hourly", statuses[0].Name)
	assert.Equal(t, "daily", statuses[1].Name)
	assert.True(t, statuses[0].LastRun.IsZero())
	assert.Equal(t, now.Add(time.Hour), statuses[0].NextRun)

	require.NoError(t, s.RunJob("hourly"))
	now = now.Add(10 * time.Minute)

	statuses = s.Status()
	assert.Equal(t, now.Add(-10*time.Minute), statuses[0].LastRun)
	assert.Equal(t, now.Add(50*time.Minute), statuses[0].NextRun)
	assert.True(t, statuses[1].LastRun.IsZero())
	assert.False(t, statuses[0].Running)
}
