// Copyright (c) 2025 FGP Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package health tracks process-wide daemon readiness and upstream
// reachability. The background monitor owns all writes; any number of
// dispatcher workers read consistent snapshots, so the health method never
// probes the upstream synchronously and stays fast regardless of upstream
// latency.
package health

import (
	"context"
	"sync"
	"time"
)

// DefaultInterval is how often the monitor refreshes upstream reachability.
const DefaultInterval = 30 * time.Second

// Snapshot is a consistent view of the daemon's health state.
type Snapshot struct {
	StartedAt         time.Time
	UpstreamReachable bool
	LastCheck         time.Time
}

// Uptime returns how long the daemon has been running at time now.
func (s Snapshot) Uptime(now time.Time) time.Duration {
	return now.Sub(s.StartedAt)
}

// State is the synchronized health state. Upstream reachability is unknown
// (reported false) until the first probe completes.
type State struct {
	mu        sync.RWMutex
	startedAt time.Time
	reachable bool
	lastCheck time.Time
}

// NewState creates health state anchored at the current time.
func NewState() *State {
	return &State{startedAt: time.Now()}
}

// Snapshot returns a consistent copy of the current state.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		StartedAt:         s.startedAt,
		UpstreamReachable: s.reachable,
		LastCheck:         s.lastCheck,
	}
}

// Record stores the outcome of one upstream probe.
func (s *State) Record(reachable bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reachable = reachable
	s.lastCheck = time.Now()
}

// Monitor probes the upstream with ping immediately and then on every tick of
// interval until ctx is cancelled. It is the sole writer of the state.
func (s *State) Monitor(ctx context.Context, interval time.Duration, ping func(context.Context) error) {
	if interval <= 0 {
		interval = DefaultInterval
	}
	probe := func() {
		probeCtx, cancel := context.WithTimeout(ctx, interval)
		defer cancel()
		s.Record(ping(probeCtx) == nil)
	}
	probe()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			probe()
		}
	}
}
