// Package session implements the Session Tracker (C11): a purely additive
// accumulator of advisor token usage and best-effort cost, scoped to one
// user session. It never gates control flow - a failed cost calculation is
// swallowed, never propagated.
package session

import (
	"sync"
)

// Stats is an additive accumulator of advisor usage for one session.
type Stats struct {
	mu               sync.Mutex
	promptTokens     int
	completionTokens int
	totalTokens      int
	apiCalls         int
	costUSD          float64
	haveCost         bool
}

// NewStats builds an empty Stats accumulator.
func NewStats() *Stats {
	return &Stats{}
}

// Track records one advisor response's usage. costUSD is nil when the cost
// could not be computed (unknown model, pricing table miss, etc.); the
// tracker simply omits it from the running total rather than erroring.
func (s *Stats) Track(promptTokens, completionTokens int, costUSD *float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.promptTokens += promptTokens
	s.completionTokens += completionTokens
	s.totalTokens += promptTokens + completionTokens
	s.apiCalls++
	if costUSD != nil {
		s.costUSD += *costUSD
		s.haveCost = true
	}
}

// Summary is a snapshot of the accumulator's current state.
type Summary struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	APICalls         int
	CostUSD          *float64
}

// Summary returns the current totals. CostUSD is nil if no tracked call
// ever carried a usable cost figure.
func (s *Stats) Summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	summary := Summary{
		PromptTokens:     s.promptTokens,
		CompletionTokens: s.completionTokens,
		TotalTokens:      s.totalTokens,
		APICalls:         s.apiCalls,
	}
	if s.haveCost {
		cost := s.costUSD
		summary.CostUSD = &cost
	}
	return summary
}

// Reset zeroes the accumulator, for reuse across sessions in a long-lived
// process.
func (s *Stats) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.promptTokens = 0
	s.completionTokens = 0
	s.totalTokens = 0
	s.apiCalls = 0
	s.costUSD = 0
	s.haveCost = false
}
