package memory

import (
	"math/rand/v2"
	"slices"
)

// DefaultHistorySize is the default size of the anti-repetition window.
const DefaultHistorySize = 5

// Selector chooses one retained message for replay. It owns the replay
// history: a small FIFO of recently emitted texts that are excluded from
// re-selection while enough other candidates exist.
//
// Selector is not safe for concurrent use; the event-handling path is the
// single caller.
type Selector struct {
	policy      Policy
	historySize int
	history     []string

	// intn picks a random index; overridable in tests.
	intn func(n int) int
}

// NewSelector creates a Selector applying policy, with an anti-repetition
// window of historySize entries. A non-positive historySize selects
// DefaultHistorySize.
func NewSelector(policy Policy, historySize int) *Selector {
	if historySize <= 0 {
		historySize = DefaultHistorySize
	}
	return &Selector{
		policy:      policy,
		historySize: historySize,
		intn:        rand.IntN,
	}
}

// Pick selects one replay-eligible message from corpus, uniformly at
// random, avoiding recently replayed texts. When every eligible message is
// in the replay history the anti-repetition constraint is relaxed rather
// than going silent — small corpora would otherwise never replay at all.
// Returns false when no eligible candidate exists.
func (s *Selector) Pick(corpus []string) (string, bool) {
	if len(corpus) == 0 {
		return "", false
	}

	var fresh, eligible []string
	for _, text := range corpus {
		if !s.policy.Replayable(text) {
			continue
		}
		eligible = append(eligible, text)
		if !slices.Contains(s.history, text) {
			fresh = append(fresh, text)
		}
	}

	candidates := fresh
	if len(candidates) == 0 {
		candidates = eligible
	}
	if len(candidates) == 0 {
		return "", false
	}

	choice := candidates[s.intn(len(candidates))]
	s.remember(choice)
	return choice, true
}

// remember pushes text onto the replay history, evicting the oldest entry
// on overflow.
func (s *Selector) remember(text string) {
	s.history = append(s.history, text)
	if excess := len(s.history) - s.historySize; excess > 0 {
		s.history = s.history[excess:]
	}
}

// History returns a copy of the current anti-repetition window,
// oldest-first.
func (s *Selector) History() []string {
	out := make([]string, len(s.history))
	copy(out, s.history)
	return out
}
