// Package autotune implements the training loop (C10): repeatedly invoking
// the historical validation engine with perturbed parameters until a
// consecutive-pass streak reaches its target, or attempts run out.
package autotune

import (
	"encoding/json"
	"hash/fnv"
	"math/rand/v2"
	"sort"
)

// ParamSnapshot is one candidate parameter set, keyed by name for
// deterministic coordinate-wise perturbation and canonical hashing.
type ParamSnapshot map[string]float64

// Hash returns a stable fingerprint of the snapshot: canonical (sorted-key)
// JSON marshal through fnv, so two snapshots with identical values always
// hash identically regardless of map iteration order.
func (s ParamSnapshot) Hash() uint64 {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ordered := make([]struct {
		Key   string  `json:"key"`
		Value float64 `json:"value"`
	}, len(keys))
	for i, k := range keys {
		ordered[i].Key = k
		ordered[i].Value = s[k]
	}

	canonical, _ := json.Marshal(ordered)

	h := fnv.New64a()
	_, _ = h.Write(canonical)
	return h.Sum64()
}

// Outcome is the result fed back into StateMachine.Step after one
// validation.Engine.Run.
type Outcome struct {
	Passed     bool
	Snapshot   ParamSnapshot
	ReturnPct  float64
}

// StateMachine tracks the current parameter snapshot and consecutive-pass
// streak against it, testable in isolation from the driver loop around it.
type StateMachine struct {
	rng         *rand.Rand
	current     ParamSnapshot
	streakHash  uint64
	streak      int
	target      int
	temperature float64
}

// NewStateMachine seeds a StateMachine at an initial snapshot. rng is the
// same injected source of randomness threaded through C9, never read from a
// package-level generator.
func NewStateMachine(rng *rand.Rand, initial ParamSnapshot, targetStreak int) *StateMachine {
	return &StateMachine{
		rng:         rng,
		current:     initial,
		streakHash:  initial.Hash(),
		target:      targetStreak,
		temperature: 1.0,
	}
}

// Step consumes the last run's outcome and returns the next snapshot to try
// and whether the target streak has been reached. A streak counts
// consecutive passed=true runs sharing the current parameter snapshot; any
// failure resets it, and a pass against a different snapshot than the one
// currently tracked also resets it (the snapshot changed between the step
// that produced it and this one).
func (sm *StateMachine) Step(last Outcome) (next ParamSnapshot, done bool) {
	if last.Passed && last.Snapshot.Hash() == sm.streakHash {
		sm.streak++
	} else {
		sm.streak = 0
		sm.streakHash = sm.current.Hash()
	}

	if sm.streak >= sm.target {
		return sm.current, true
	}

	sm.current = sm.perturb(sm.current)
	sm.streakHash = sm.current.Hash()
	sm.temperature *= 0.95
	return sm.current, false
}

// Streak reports the current consecutive-pass count.
func (sm *StateMachine) Streak() int {
	return sm.streak
}

// perturb applies coordinate-wise jitter scaled by the shrinking
// temperature, using the injected RNG exclusively.
func (sm *StateMachine) perturb(snapshot ParamSnapshot) ParamSnapshot {
	next := make(ParamSnapshot, len(snapshot))
	for k, v := range snapshot {
		jitter := (sm.rng.Float64() - 0.5) * 2 * sm.temperature * 0.1
		next[k] = v * (1 + jitter)
	}
	return next
}
