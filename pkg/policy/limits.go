// Package policy enforces per-run risk limits and the run-duration budget.
// State is an explicit, injectable object with defined reset semantics so
// multiple process instances and tests never share hidden counters.
package policy

import (
	"fmt"
	"sync"
	"time"
)

// Limits defines the risk parameters for one scheduled run.
type Limits struct {
	MaxBetsPerRun        int           // max bets submitted per run
	MaxRunExposureCents  int64         // max total stake per run
	MaxPerIdentityPerRun int           // max submissions per idempotent identity
	MaxRunDuration       time.Duration // budget before unsubmitted work defers
}

// DefaultLimits returns conservative limits for a scheduled batch run.
func DefaultLimits() *Limits {
	return &Limits{
		MaxBetsPerRun:        25,
		MaxRunExposureCents:  50000, // $500
		MaxPerIdentityPerRun: 1,
		MaxRunDuration:       5 * time.Minute,
	}
}

// RunState tracks one run's consumption against its limits.
type RunState struct {
	limits *Limits

	mu            sync.Mutex
	startedAt     time.Time
	betsPlaced    int
	exposureCents int64
	perIdentity   map[string]int
}

// NewRunState creates run state with the given limits.
func NewRunState(limits *Limits) *RunState {
	if limits == nil {
		limits = DefaultLimits()
	}
	return &RunState{
		limits:      limits,
		startedAt:   time.Now(),
		perIdentity: make(map[string]int),
	}
}

// BeginRun resets all per-run counters and restarts the duration budget.
func (r *RunState) BeginRun(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.startedAt = now
	r.betsPlaced = 0
	r.exposureCents = 0
	r.perIdentity = make(map[string]int)
}

// CheckBet validates a proposed submission against the run limits.
func (r *RunState) CheckBet(identity string, stakeCents int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.checkLocked(identity, stakeCents)
}

// Reserve validates the proposed submission and consumes its budget in one
// atomic step, so concurrent submitters cannot all pass the check before
// any of them records. A reservation whose bet does not go out must be
// returned with Release.
func (r *RunState) Reserve(identity string, stakeCents int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkLocked(identity, stakeCents); err != nil {
		return err
	}
	r.betsPlaced++
	r.exposureCents += stakeCents
	r.perIdentity[identity]++
	return nil
}

// Release returns a reservation whose bet was not submitted.
func (r *RunState) Release(identity string, stakeCents int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.betsPlaced--
	r.exposureCents -= stakeCents
	r.perIdentity[identity]--
}

func (r *RunState) checkLocked(identity string, stakeCents int64) error {
	if r.limits.MaxBetsPerRun > 0 && r.betsPlaced >= r.limits.MaxBetsPerRun {
		return fmt.Errorf("run bet limit reached: %d", r.limits.MaxBetsPerRun)
	}
	if r.limits.MaxRunExposureCents > 0 &&
		r.exposureCents+stakeCents > r.limits.MaxRunExposureCents {
		return fmt.Errorf("would exceed run exposure limit: %d + %d > %d cents",
			r.exposureCents, stakeCents, r.limits.MaxRunExposureCents)
	}
	if r.limits.MaxPerIdentityPerRun > 0 &&
		r.perIdentity[identity] >= r.limits.MaxPerIdentityPerRun {
		return fmt.Errorf("identity %s already placed %d bets this run",
			identity, r.perIdentity[identity])
	}
	return nil
}

// RecordBet consumes budget for a submitted bet.
func (r *RunState) RecordBet(identity string, stakeCents int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.betsPlaced++
	r.exposureCents += stakeCents
	r.perIdentity[identity]++
}

// Deadline returns the run's hard deadline, ok=false when unbounded.
func (r *RunState) Deadline() (time.Time, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.limits.MaxRunDuration <= 0 {
		return time.Time{}, false
	}
	return r.startedAt.Add(r.limits.MaxRunDuration), true
}

// Expired reports whether the run-duration budget has been spent.
func (r *RunState) Expired(now time.Time) bool {
	deadline, ok := r.Deadline()
	return ok && now.After(deadline)
}

// Stats returns the current run consumption.
func (r *RunState) Stats() (bets int, exposureCents int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.betsPlaced, r.exposureCents
}
