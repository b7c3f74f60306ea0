// Copyright (c) 2025 FGP Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package health

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotBeforeFirstProbe(t *testing.T) {
	s := NewState()
	snap := s.Snapshot()
	assert.False(t, snap.UpstreamReachable)
	assert.True(t, snap.LastCheck.IsZero())
	assert.False(t, snap.StartedAt.IsZero())
}

func TestRecordUpdatesSnapshot(t *testing.T) {
	s := NewState()
	s.Record(true)
	snap := s.Snapshot()
	assert.True(t, snap.UpstreamReachable)
	assert.False(t, snap.LastCheck.IsZero())

	s.Record(false)
	assert.False(t, s.Snapshot().UpstreamReachable)
}

func TestMonitorProbesImmediately(t *testing.T) {
	s := NewState()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	probed := make(chan struct{})
	var once sync.Once
	go s.Monitor(ctx, time.Hour, func(context.Context) error {
		once.Do(func() { close(probed) })
		return nil
	})

	select {
	case <-probed:
	case <-time.After(2 * time.Second):
		t.Fatal("monitor did not probe at startup")
	}
	require.Eventually(t, func() bool {
		return s.Snapshot().UpstreamReachable
	}, 2*time.Second, 10*time.Millisecond)
}

func TestMonitorRecordsFailure(t *testing.T) {
	s := NewState()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Monitor(ctx, time.Hour, func(context.Context) error {
			return errors.New("unreachable")
		})
	}()

	require.Eventually(t, func() bool {
		return !s.Snapshot().LastCheck.IsZero()
	}, 2*time.Second, 10*time.Millisecond)
	assert.False(t, s.Snapshot().UpstreamReachable)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("monitor did not stop on context cancellation")
	}
}

func TestSnapshotReadsAreRaceFree(t *testing.T) {
	s := NewState()
	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
				s.Record(i%2 == 0)
			}
		}
	}()
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				snap := s.Snapshot()
				// A torn read would pair a recorded check with a zero time.
				if snap.UpstreamReachable && snap.LastCheck.IsZero() {
					t.Error("torn snapshot")
					return
				}
			}
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(stop)
	wg.Wait()
}
