// Package conversation implements thread-keyed bounded history with LRU
// eviction and TTL cleanup. A thread's stored history never contains system
// messages; the system prompt is injected fresh on every Prepare call by the
// caller (the ReAct engine, consulting the Prompt Registry) rather than
// persisted in the thread.
package conversation

import (
	"container/list"
	"sync"
	"time"

	"github.com/aws-idp/agentcore/model"
)

// Default bounds for thread count, per-thread message count, and TTL.
const (
	DefaultMaxThreadsReact          = 100
	DefaultMaxThreadsSearch         = 500
	DefaultMaxMessagesPerThread     = 50
	DefaultTTL                      = time.Hour
	ttlCleanupEveryNAccesses        = 10
)

type thread struct {
	id                       string
	messages                 []model.Message
	lastAccess               time.Time
	summary                  string
	messageCount             int
	lastSummaryAt            time.Time
	lastSummaryMessageCount  int
	elem                     *list.Element // position in the LRU list
}

// Stats reports the store's current bounds for observability.
type Stats struct {
	ThreadCount int
	MaxThreads  int
}

// Store is a thread-keyed bounded history. All exported methods are safe
// for concurrent use; operations hold a single exclusive lock over the
// thread map.
type Store struct {
	mu sync.Mutex

	maxThreads      int
	maxMessages     int
	ttl             time.Duration

	threads  map[string]*thread
	lru      *list.List // front = most recently used
	accesses int
}

// Option configures a Store at construction.
type Option func(*Store)

// WithMaxThreads overrides DefaultMaxThreadsReact.
func WithMaxThreads(n int) Option { return func(s *Store) { s.maxThreads = n } }

// WithMaxMessagesPerThread overrides DefaultMaxMessagesPerThread.
func WithMaxMessagesPerThread(n int) Option { return func(s *Store) { s.maxMessages = n } }

// WithTTL overrides DefaultTTL.
func WithTTL(d time.Duration) Option { return func(s *Store) { s.ttl = d } }

// New constructs a Store with default bounds, overridable via Option.
func New(opts ...Option) *Store {
	s := &Store{
		maxThreads:  DefaultMaxThreadsReact,
		maxMessages: DefaultMaxMessagesPerThread,
		ttl:         DefaultTTL,
		threads:     make(map[string]*thread),
		lru:         list.New(),
	}
	for _, o := range opts {
		if o != nil {
			o(s)
		}
	}
	return s
}

// Prepare returns [system] + history + incoming, injecting systemPrompt and
// deduplicating incoming against the tail of history. It creates the thread
// on first use.
func (s *Store) Prepare(threadID string, incoming model.Message, systemPrompt string) []model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.touchLocked(threadID)

	out := make([]model.Message, 0, len(t.messages)+2)
	out = append(out, model.NewTextMessage(model.RoleSystem, systemPrompt))
	out = append(out, t.messages...)
	if !duplicatesTail(t.messages, incoming) {
		out = append(out, incoming)
	}
	return out
}

// AppendUser appends a user message to the thread's stored history,
// ignoring empty content and duplicate appends against the last message.
func (s *Store) AppendUser(threadID string, msg model.Message) {
	s.append(threadID, msg)
}

// AppendAssistant appends an assistant (or tool) message with the same
// empty/duplicate guards as AppendUser.
func (s *Store) AppendAssistant(threadID string, msg model.Message) {
	s.append(threadID, msg)
}

func (s *Store) append(threadID string, msg model.Message) {
	if msg.IsEmpty() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.touchLocked(threadID)
	if duplicatesTail(t.messages, msg) {
		return
	}
	t.messages = append(t.messages, msg)
	t.messageCount++
	if len(t.messages) > s.maxMessages {
		t.messages = t.messages[len(t.messages)-s.maxMessages:]
	}
}

// SetSummary records a compacted summary of older history, trimming the
// thread's live messages to kept, the tail of messages to retain alongside
// the new summary.
func (s *Store) SetSummary(threadID, summary string, kept []model.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.touchLocked(threadID)
	t.summary = summary
	t.messages = kept
	t.lastSummaryAt = time.Now()
	t.lastSummaryMessageCount = t.messageCount
}

// Summary returns the thread's compacted summary, its current message
// count, the number of messages appended since the last summarization, and
// the last summarization time. sinceLastSummary is used by the ReAct
// engine's "should summarize?" check.
func (s *Store) Summary(threadID string) (summary string, messageCount, sinceLastSummary int, lastSummarizationAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.threads[threadID]
	if !ok {
		return "", 0, 0, time.Time{}
	}
	return t.summary, len(t.messages), t.messageCount - t.lastSummaryMessageCount, t.lastSummaryAt
}

// Clear removes a single thread's history, or every thread when threadID is
// empty.
func (s *Store) Clear(threadID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if threadID == "" {
		s.threads = make(map[string]*thread)
		s.lru.Init()
		return
	}
	if t, ok := s.threads[threadID]; ok {
		s.lru.Remove(t.elem)
		delete(s.threads, threadID)
	}
}

// Stats reports the store's current bounds.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{ThreadCount: len(s.threads), MaxThreads: s.maxThreads}
}

// touchLocked returns the thread for id, creating it on first use, bumping
// its LRU position, and opportunistically running TTL cleanup every ~10
// accesses. Caller must hold s.mu.
func (s *Store) touchLocked(id string) *thread {
	now := time.Now()
	if t, ok := s.threads[id]; ok {
		t.lastAccess = now
		s.lru.MoveToFront(t.elem)
		s.maybeCleanLocked(now)
		return t
	}
	t := &thread{id: id, lastAccess: now}
	t.elem = s.lru.PushFront(t)
	s.threads[id] = t
	s.evictOverflowLocked()
	s.maybeCleanLocked(now)
	return t
}

// evictOverflowLocked drops the least-recently-used threads until the
// thread count is within bounds.
func (s *Store) evictOverflowLocked() {
	for len(s.threads) > s.maxThreads {
		back := s.lru.Back()
		if back == nil {
			return
		}
		t := back.Value.(*thread)
		s.lru.Remove(back)
		delete(s.threads, t.id)
	}
}

func (s *Store) maybeCleanLocked(now time.Time) {
	s.accesses++
	if s.accesses < ttlCleanupEveryNAccesses {
		return
	}
	s.accesses = 0
	for e := s.lru.Back(); e != nil; {
		t := e.Value.(*thread)
		prev := e.Prev()
		if now.Sub(t.lastAccess) > s.ttl {
			s.lru.Remove(e)
			delete(s.threads, t.id)
		}
		e = prev
	}
}

// duplicatesTail reports whether candidate duplicates the last message in
// history (same role and text), guarding against double-appending the same
// user turn.
func duplicatesTail(history []model.Message, candidate model.Message) bool {
	if len(history) == 0 {
		return false
	}
	last := history[len(history)-1]
	return last.Role == candidate.Role && last.Text() == candidate.Text() && len(last.ToolCalls) == 0 && len(candidate.ToolCalls) == 0
}
