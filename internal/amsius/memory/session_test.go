package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
)

// recordingBackend captures Save calls so tests can observe the
// fire-and-forget persistence path.
type recordingBackend struct {
	mu      sync.Mutex
	preload []string
	saved   []string
	saveErr error
}

func (b *recordingBackend) Load(_ context.Context, limit int) ([]string, error) {
	if limit > 0 && len(b.preload) > limit {
		return b.preload[len(b.preload)-limit:], nil
	}
	return b.preload, nil
}

func (b *recordingBackend) Save(_ context.Context, text string, _ []string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.saveErr != nil {
		return b.saveErr
	}
	b.saved = append(b.saved, text)
	return nil
}

func (b *recordingBackend) Close() error { return nil }

func (b *recordingBackend) savedTexts() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.saved))
	copy(out, b.saved)
	return out
}

func newTestSession(t *testing.T, cfg SessionConfig, backend Backend) *Session {
	t.Helper()
	if cfg.BotName == "" {
		cfg.BotName = "Amsius"
	}
	s := NewSession(cfg, backend, nil)
	if err := s.LoadCorpus(context.Background()); err != nil {
		t.Fatalf("LoadCorpus: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func inbound(text string) Inbound {
	return Inbound{Room: "!chat:test", Sender: "alice", Text: text}
}

func TestSession_LearnsQualifyingMessage(t *testing.T) {
	backend := &recordingBackend{}
	s := newTestSession(t, SessionConfig{}, backend)

	if _, ok := s.HandleMessage(context.Background(), inbound("hello there")); ok {
		t.Fatal("expected no replay from a single message")
	}

	corpus := s.Corpus()
	if len(corpus) != 1 || corpus[0] != "hello there" {
		t.Fatalf("corpus = %v, want [hello there]", corpus)
	}

	s.pending.Wait()
	if saved := backend.savedTexts(); len(saved) != 1 || saved[0] != "hello there" {
		t.Errorf("backend saved %v, want [hello there]", saved)
	}
}

func TestSession_DoesNotLearnCommand(t *testing.T) {
	s := newTestSession(t, SessionConfig{}, &recordingBackend{})

	s.HandleMessage(context.Background(), inbound("!skip this"))

	if len(s.Corpus()) != 0 {
		t.Errorf("corpus = %v, want empty (commands are not learned)", s.Corpus())
	}
}

func TestSession_ExclusionRulesKeepCorpusClean(t *testing.T) {
	s := newTestSession(t, SessionConfig{}, &recordingBackend{})
	ctx := context.Background()

	for _, text := range []string{
		"x",
		"!roll",
		"@Amsius hi",
		"look http://example.com",
		"www.example.com broke",
	} {
		s.HandleMessage(ctx, inbound(text))
	}

	if len(s.Corpus()) != 0 {
		t.Errorf("corpus = %v, want empty", s.Corpus())
	}
}

func TestSession_IgnoresEchoes(t *testing.T) {
	s := newTestSession(t, SessionConfig{CountThreshold: 2}, &recordingBackend{})
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		msg := inbound("a perfectly fine message")
		msg.Echo = true
		if _, ok := s.HandleMessage(ctx, msg); ok {
			t.Fatal("echo produced a reply")
		}
	}

	if len(s.Corpus()) != 0 {
		t.Error("echoes were learned")
	}
	if s.counter != 0 {
		t.Errorf("counter = %d, want 0 (echoes never count)", s.counter)
	}
}

func TestSession_IgnoresKnownBots(t *testing.T) {
	s := newTestSession(t, SessionConfig{IgnoredUsers: []string{"NightBot", "moobot"}}, &recordingBackend{})
	ctx := context.Background()

	msg := inbound("bot chatter")
	msg.Sender = "nightbot"
	s.HandleMessage(ctx, msg)

	if len(s.Corpus()) != 0 {
		t.Error("ignored sender was learned")
	}
	if s.counter != 0 {
		t.Errorf("counter = %d, want 0 (ignored senders never count)", s.counter)
	}
}

func TestSession_MentionTriggersReplay(t *testing.T) {
	backend := &recordingBackend{preload: []string{"something from the past"}}
	s := newTestSession(t, SessionConfig{}, backend)

	reply, ok := s.HandleMessage(context.Background(), inbound("@Amsius tell me something"))
	if !ok {
		t.Fatal("expected a mention-triggered replay")
	}
	if reply != "something from the past" {
		t.Errorf("reply = %q, want the preloaded entry", reply)
	}
	if s.counter != 0 {
		t.Errorf("counter = %d, want 0 (mentions never touch the counter)", s.counter)
	}
}

func TestSession_MentionWithEmptyCorpus(t *testing.T) {
	s := newTestSession(t, SessionConfig{}, &recordingBackend{})

	if _, ok := s.HandleMessage(context.Background(), inbound("@Amsius hello?")); ok {
		t.Error("expected no replay with an empty corpus")
	}
	if s.counter != 0 {
		t.Errorf("counter = %d, want 0", s.counter)
	}
}

func TestSession_MentionSkipsCountTrigger(t *testing.T) {
	s := newTestSession(t, SessionConfig{CountThreshold: 3}, &recordingBackend{preload: []string{"old news"}})
	ctx := context.Background()

	s.HandleMessage(ctx, inbound("one"))
	s.HandleMessage(ctx, inbound("two"))

	// The mention returns early: it must not push the counter to the
	// threshold or reset it.
	s.HandleMessage(ctx, inbound("@Amsius ping"))
	if s.counter != 2 {
		t.Fatalf("counter = %d after mention, want 2", s.counter)
	}

	if _, ok := s.HandleMessage(ctx, inbound("three")); !ok {
		t.Error("expected the third counted message to fire the count trigger")
	}
}

func TestSession_CountTriggerFiresAtThreshold(t *testing.T) {
	const threshold = 15
	s := newTestSession(t, SessionConfig{CountThreshold: threshold}, &recordingBackend{})
	ctx := context.Background()

	replies := 0
	for i := 1; i <= threshold; i++ {
		if _, ok := s.HandleMessage(ctx, inbound(fmt.Sprintf("chat message number %d", i))); ok {
			replies++
			if i != threshold {
				t.Errorf("replay fired on message %d, want only on %d", i, threshold)
			}
		}
	}

	if replies != 1 {
		t.Errorf("got %d replays over %d messages, want exactly 1", replies, threshold)
	}
	if s.counter != 0 {
		t.Errorf("counter = %d after firing, want 0", s.counter)
	}
}

func TestSession_CountTriggerResetsWithoutCandidate(t *testing.T) {
	s := newTestSession(t, SessionConfig{CountThreshold: 3}, &recordingBackend{})
	ctx := context.Background()

	// Nothing learnable ever enters the corpus, so the trigger finds no
	// candidate — but it must still reset the counter.
	for i := 0; i < 3; i++ {
		if _, ok := s.HandleMessage(ctx, inbound("!cmd")); ok {
			t.Fatal("unexpected replay with an empty corpus")
		}
	}
	if s.counter != 0 {
		t.Errorf("counter = %d, want 0 after the trigger fired empty", s.counter)
	}
}

func TestSession_CountTriggerCountsUnlearnableMessages(t *testing.T) {
	s := newTestSession(t, SessionConfig{CountThreshold: 5}, &recordingBackend{})
	ctx := context.Background()

	// Short and command messages are not learned but do count.
	for _, text := range []string{"k", "!cmd", "j", "!x"} {
		s.HandleMessage(ctx, inbound(text))
	}
	if s.counter != 4 {
		t.Errorf("counter = %d, want 4", s.counter)
	}
}

// stallingBackend delays its first Save so that a second write issued in
// the meantime would overtake it if writes were not serialized.
type stallingBackend struct {
	mu      sync.Mutex
	calls   int
	saved   []string
	stalled chan struct{}
}

func (b *stallingBackend) Load(_ context.Context, _ int) ([]string, error) { return nil, nil }

func (b *stallingBackend) Save(_ context.Context, text string, _ []string) error {
	b.mu.Lock()
	b.calls++
	first := b.calls == 1
	b.mu.Unlock()

	if first {
		<-b.stalled
	}
	b.mu.Lock()
	b.saved = append(b.saved, text)
	b.mu.Unlock()
	return nil
}

func (b *stallingBackend) Close() error { return nil }

func TestSession_PersistPreservesLearnOrder(t *testing.T) {
	backend := &stallingBackend{stalled: make(chan struct{})}
	s := newTestSession(t, SessionConfig{}, backend)
	ctx := context.Background()

	s.HandleMessage(ctx, inbound("first message"))
	s.HandleMessage(ctx, inbound("second message"))

	// Release the stalled first write only after both are queued. A
	// serialized writer must still land them in learn order.
	close(backend.stalled)
	s.pending.Wait()

	want := []string{"first message", "second message"}
	backend.mu.Lock()
	defer backend.mu.Unlock()
	if len(backend.saved) != len(want) {
		t.Fatalf("persisted %d entries, want %d", len(backend.saved), len(want))
	}
	for i := range want {
		if backend.saved[i] != want[i] {
			t.Fatalf("persisted order %v inverts learn order %v", backend.saved, want)
		}
	}
}

func TestSession_PersistFailureDoesNotUnlearn(t *testing.T) {
	backend := &recordingBackend{saveErr: errors.New("disk on fire")}
	s := newTestSession(t, SessionConfig{}, backend)

	s.HandleMessage(context.Background(), inbound("still learned"))
	s.pending.Wait()

	corpus := s.Corpus()
	if len(corpus) != 1 || corpus[0] != "still learned" {
		t.Errorf("corpus = %v, want [still learned] despite the write failure", corpus)
	}
}

func TestSession_LoadCorpusRespectsCap(t *testing.T) {
	preload := make([]string, 10)
	for i := range preload {
		preload[i] = fmt.Sprintf("old-%d", i)
	}
	s := newTestSession(t, SessionConfig{CorpusCap: 4}, &recordingBackend{preload: preload})

	corpus := s.Corpus()
	if len(corpus) != 4 {
		t.Fatalf("corpus length = %d, want 4", len(corpus))
	}
	if corpus[0] != "old-6" || corpus[3] != "old-9" {
		t.Errorf("corpus = %v, want the newest 4 entries oldest-first", corpus)
	}
}

func TestSession_TrimsBeforeLearning(t *testing.T) {
	s := newTestSession(t, SessionConfig{}, &recordingBackend{})

	s.HandleMessage(context.Background(), inbound("  padded message  "))

	corpus := s.Corpus()
	if len(corpus) != 1 || corpus[0] != "padded message" {
		t.Errorf("corpus = %v, want trimmed text", corpus)
	}
}
