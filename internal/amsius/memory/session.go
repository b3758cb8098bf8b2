package memory

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/amsius/amsius/common/trace"
)

// DefaultCountThreshold is the number of qualifying inbound messages
// between count-triggered replays.
const DefaultCountThreshold = 15

// Inbound is one observed chat message, as delivered by the channel
// adapter. The core never sees transport types.
type Inbound struct {
	// Room identifies the channel the message arrived on; replies go back
	// to the same room.
	Room string

	// Sender is the message author's username (Matrix localpart).
	Sender string

	// Text is the raw message body.
	Text string

	// Echo is true when the message is the bot's own output coming back
	// through the sync stream.
	Echo bool
}

// SessionConfig holds the tunable knobs of a Session.
type SessionConfig struct {
	// BotName is the bot's display name, used for mention detection.
	BotName string

	// CorpusCap bounds the retained corpus. Zero selects DefaultCorpusCap.
	CorpusCap int

	// MaxLength caps learned and replayed message length in runes.
	// Zero selects DefaultMaxLength.
	MaxLength int

	// CountThreshold is the number of qualifying messages between
	// count-triggered replays. Zero selects DefaultCountThreshold.
	CountThreshold int

	// HistorySize is the anti-repetition window size. Zero selects
	// DefaultHistorySize.
	HistorySize int

	// IgnoredUsers lists usernames of other automated accounts whose
	// messages never reach learning or the replay triggers. Matched
	// case-insensitively.
	IgnoredUsers []string
}

// persistQueueSize bounds the backlog of unwritten backend saves. A full
// queue drops the write (logged), never blocks learning.
const persistQueueSize = 256

// persistRequest is one queued backend write: the learned text plus a
// corpus snapshot for backends that rewrite the whole store.
type persistRequest struct {
	text    string
	corpus  []string
	traceID string
}

// Session owns the mutable learning state: the corpus, the replay
// selector's history, and the engagement counter. All inbound messages
// flow through HandleMessage, one at a time, which is the only mutator —
// no locking is needed on the state itself. Backend writes are queued to
// a single background writer so they land in learn order while the
// learning path never waits on persistence.
type Session struct {
	policy    Policy
	corpus    *Corpus
	selector  *Selector
	backend   Backend
	logger    *slog.Logger
	threshold int
	counter   int
	ignored   map[string]struct{}

	writes     chan persistRequest
	writerDone chan struct{}

	// pending tracks queued backend writes so Close can drain them.
	pending sync.WaitGroup
}

// NewSession creates a Session on the given backend. If logger is nil, the
// default slog logger is used. Call LoadCorpus before handling messages.
func NewSession(cfg SessionConfig, backend Backend, logger *slog.Logger) *Session {
	if backend == nil {
		backend = NewNoopBackend(logger)
	}
	if logger == nil {
		logger = slog.Default()
	}
	threshold := cfg.CountThreshold
	if threshold <= 0 {
		threshold = DefaultCountThreshold
	}
	policy := NewPolicy(cfg.BotName, cfg.MaxLength)

	ignored := make(map[string]struct{}, len(cfg.IgnoredUsers))
	for _, u := range cfg.IgnoredUsers {
		if u = strings.ToLower(strings.TrimSpace(u)); u != "" {
			ignored[u] = struct{}{}
		}
	}

	s := &Session{
		policy:     policy,
		corpus:     NewCorpus(cfg.CorpusCap),
		selector:   NewSelector(policy, cfg.HistorySize),
		backend:    backend,
		logger:     logger,
		threshold:  threshold,
		ignored:    ignored,
		writes:     make(chan persistRequest, persistQueueSize),
		writerDone: make(chan struct{}),
	}
	go s.persistLoop()
	return s
}

// persistLoop is the single background writer. Draining one channel keeps
// durable writes in learn order: row ids in the SQLite backend match the
// order messages were observed, and a snapshot file is never overwritten
// by a staler corpus.
func (s *Session) persistLoop() {
	defer close(s.writerDone)
	for req := range s.writes {
		if err := s.backend.Save(context.Background(), req.text, req.corpus); err != nil {
			s.logger.Warn("memory: persist retained message",
				"trace_id", req.traceID, "err", err)
		}
		s.pending.Done()
	}
}

// LoadCorpus populates the corpus from the backend. Called once at
// startup, before the message stream begins. A load failure leaves the
// corpus empty and is returned to the caller for logging; it is not fatal.
func (s *Session) LoadCorpus(ctx context.Context) error {
	texts, err := s.backend.Load(ctx, s.corpus.Cap())
	if err != nil {
		return err
	}
	s.corpus.Reset(texts)
	s.logger.Info("memory: corpus loaded", "messages", s.corpus.Len())
	return nil
}

// HandleMessage processes one inbound message: learning, mention trigger,
// and count trigger, in that order of precedence. It returns the replay
// text to emit and true when a trigger fired and a candidate was found.
//
// A mention returns immediately: it neither increments nor resets the
// engagement counter, and a message is never subject to both triggers.
func (s *Session) HandleMessage(ctx context.Context, msg Inbound) (string, bool) {
	if msg.Echo {
		return "", false
	}
	if _, ok := s.ignored[strings.ToLower(msg.Sender)]; ok {
		return "", false
	}

	text := strings.TrimSpace(msg.Text)

	if s.policy.Mentions(text) {
		return s.replay(ctx, "mention")
	}

	if s.policy.Learnable(text) {
		s.learn(ctx, text)
	}

	s.counter++
	if s.counter >= s.threshold {
		s.counter = 0
		return s.replay(ctx, "count")
	}
	return "", false
}

// Corpus returns a copy of the retained corpus, oldest-first.
func (s *Session) Corpus() []string {
	return s.corpus.All()
}

// Close drains queued backend writes, stops the writer, and closes the
// backend.
func (s *Session) Close() error {
	s.pending.Wait()
	close(s.writes)
	<-s.writerDone
	return s.backend.Close()
}

// learn appends text to the corpus and queues the write for the
// background writer. Persistence is best-effort: a failed or dropped
// write is logged and the message stays learned in memory.
func (s *Session) learn(ctx context.Context, text string) {
	s.corpus.Append(text)

	req := persistRequest{
		text:    text,
		corpus:  s.corpus.All(),
		traceID: trace.FromContext(ctx),
	}
	s.pending.Add(1)
	select {
	case s.writes <- req:
	default:
		s.pending.Done()
		s.logger.Warn("memory: persistence queue full, dropping write",
			"trace_id", req.traceID)
	}
}

// replay asks the selector for a candidate and logs the emission. A corpus
// with no eligible candidate is not an error; the trigger event is skipped
// silently.
func (s *Session) replay(ctx context.Context, triggered string) (string, bool) {
	text, ok := s.selector.Pick(s.corpus.All())
	if !ok {
		s.logger.Debug("memory: no replay candidate",
			"trace_id", trace.FromContext(ctx), "trigger", triggered)
		return "", false
	}
	s.logger.Info("memory: replaying retained message",
		"trace_id", trace.FromContext(ctx),
		"replay_id", uuid.New().String(),
		"trigger", triggered,
		"text_len", len(text),
	)
	return text, true
}
