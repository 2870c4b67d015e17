package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

func TestNew_Validation(t *testing.T) {
	_, err := New("stats", 0, func(context.Context) error { return nil }, nil)
	assert.Error(t, err)

	_, err = New("stats", time.Second, nil, nil)
	assert.Error(t, err)
}

func TestRunner_RunsUntilCanceled(t *testing.T) {
	var runs atomic.Int32
	r, err := New("stats", 5*time.Millisecond, func(ctx context.Context) error {
		runs.Add(1)
		return nil
	}, zaptest.NewLogger(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	assert.Eventually(t, func() bool { return runs.Load() >= 3 }, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("runner did not stop")
	}
}

func TestRunner_RunOnStart(t *testing.T) {
	ran := make(chan struct{}, 1)
	r, err := New("stats", time.Hour, func(ctx context.Context) error {
		ran <- struct{}{}
		return nil
	}, zap.NewNop(), RunOnStart())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = r.Run(ctx) }()

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("task did not run on start")
	}
}

func TestRunner_SurvivesFailuresAndPanics(t *testing.T) {
	var runs atomic.Int32
	r, err := New("stats", 2*time.Millisecond, func(ctx context.Context) error {
		switch runs.Add(1) {
		case 1:
			return errors.New("database locked")
		case 2:
			panic("unexpected")
		}
		return nil
	}, zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = r.Run(ctx) }()

	assert.Eventually(t, func() bool { return runs.Load() >= 3 }, time.Second, time.Millisecond)
}
