// Package balancer selects the worker that receives the next task based on
// the cumulative estimated cost already placed on each worker.
package balancer

import (
	"errors"
	"math/rand"
	"sort"
	"sync"
	"time"
)

// DefaultThresholdRatio is the fraction of the mean cost under which a worker
// counts as underloaded.
const DefaultThresholdRatio = 0.8

// ErrInvalidPolicy is returned by Policy.Validate.
var ErrInvalidPolicy = errors.New("invalid balancer policy")

// Policy holds the tunable selection parameters.
type Policy struct {
	// ThresholdRatio scales the mean cost into the candidate threshold.
	ThresholdRatio float64 `yaml:"threshold_ratio"`
	// IncludeMedianTies keeps workers sitting exactly on the median in the
	// fallback set even when some worker is strictly below it.
	IncludeMedianTies bool `yaml:"include_median_ties"`
}

// DefaultPolicy returns the default selection policy.
func DefaultPolicy() Policy {
	return Policy{ThresholdRatio: DefaultThresholdRatio}
}

// Validate checks the policy parameters.
func (p Policy) Validate() error {
	if p.ThresholdRatio <= 0 || p.ThresholdRatio > 1 {
		return ErrInvalidPolicy
	}
	return nil
}

// Candidates returns the indices of workers acceptable for the next task.
//
// Workers whose cost is at or below ThresholdRatio * mean are preferred. When
// none qualify, the upper median of the sorted costs is used instead. The
// result is never empty for a non-empty cost slice.
func Candidates(costs []int64, p Policy) []int {
	n := len(costs)
	if n == 0 {
		return nil
	}

	var sum float64
	for _, c := range costs {
		sum += float64(c)
	}
	threshold := sum / float64(n) * p.ThresholdRatio

	candidates := make([]int, 0, n)
	for i, c := range costs {
		if float64(c) <= threshold {
			candidates = append(candidates, i)
		}
	}
	if len(candidates) > 0 {
		return candidates
	}

	sorted := make([]int64, n)
	copy(sorted, costs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	median := sorted[n/2]

	if !p.IncludeMedianTies {
		for i, c := range costs {
			if c < median {
				candidates = append(candidates, i)
			}
		}
		if len(candidates) > 0 {
			return candidates
		}
	}
	for i, c := range costs {
		if c <= median {
			candidates = append(candidates, i)
		}
	}
	return candidates
}

// Balancer picks uniformly at random among the candidate workers.
type Balancer struct {
	policy Policy

	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a balancer. A zero seed uses the current time.
func New(p Policy, seed int64) *Balancer {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Balancer{
		policy: p,
		rng:    rand.New(rand.NewSource(seed)),
	}
}

// Policy returns the balancer's selection policy.
func (b *Balancer) Policy() Policy {
	return b.policy
}

// Select returns the index of the worker that should receive the next task.
// It returns -1 for an empty cost slice.
func (b *Balancer) Select(costs []int64) int {
	candidates := Candidates(costs, b.policy)
	if len(candidates) == 0 {
		return -1
	}
	if len(candidates) == 1 {
		return candidates[0]
	}
	b.mu.Lock()
	pick := b.rng.Intn(len(candidates))
	b.mu.Unlock()
	return candidates[pick]
}
