package memory

// DefaultCorpusCap is the default maximum number of retained messages.
const DefaultCorpusCap = 20000

// Corpus is the bounded, ordered in-memory set of retained messages.
// Insertion order is significant: the oldest entry is evicted first when
// the cap is exceeded, and backends load entries oldest-first so eviction
// stays continuous across restarts.
//
// Corpus is not safe for concurrent use. The event-handling path is the
// single mutator; see Session.
type Corpus struct {
	cap     int
	entries []string
}

// NewCorpus creates an empty Corpus. A non-positive capacity selects
// DefaultCorpusCap.
func NewCorpus(capacity int) *Corpus {
	if capacity <= 0 {
		capacity = DefaultCorpusCap
	}
	return &Corpus{cap: capacity}
}

// Append adds one retained message, evicting the oldest entries when the
// cap would be exceeded.
func (c *Corpus) Append(text string) {
	c.entries = append(c.entries, text)
	if excess := len(c.entries) - c.cap; excess > 0 {
		c.entries = c.entries[excess:]
	}
}

// Reset replaces the corpus contents with entries, keeping only the newest
// cap entries (the tail) when more are supplied. Used when loading from a
// backend at startup.
func (c *Corpus) Reset(entries []string) {
	if excess := len(entries) - c.cap; excess > 0 {
		entries = entries[excess:]
	}
	c.entries = append(c.entries[:0:0], entries...)
}

// All returns a copy of the corpus, oldest-first. The copy is safe to hand
// to background persistence goroutines.
func (c *Corpus) All() []string {
	out := make([]string, len(c.entries))
	copy(out, c.entries)
	return out
}

// Len returns the number of retained messages.
func (c *Corpus) Len() int {
	return len(c.entries)
}

// Cap returns the configured maximum corpus size.
func (c *Corpus) Cap() int {
	return c.cap
}
