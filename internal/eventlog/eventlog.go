// Package eventlog implements the append-only, time-ordered record of
// supervision actions that the presentation layer displays.
package eventlog

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/procwatch/internal/domain"
)

// Subscriber receives events in emission order.
// It must not append to the log it is subscribed to.
type Subscriber func(domain.LogEvent)

// Log is an unbounded in-memory event log safe for concurrent use.
type Log struct {
	// deliverMu serializes append+delivery so subscribers see emission order.
	deliverMu sync.Mutex

	mu      sync.Mutex
	events  []domain.LogEvent
	drained int
	subs    map[int]Subscriber
	nextSub int

	now    func() time.Time
	logger *zap.Logger
}

// New creates an empty log. A nil logger disables the zap mirror.
func New(logger *zap.Logger) *Log {
	return NewWithClock(logger, time.Now)
}

// NewWithClock creates a log with an injectable clock (for testing).
func NewWithClock(logger *zap.Logger, now func() time.Time) *Log {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Log{
		subs:   make(map[int]Subscriber),
		now:    now,
		logger: logger,
	}
}

// Append records an informational message.
func (l *Log) Append(message string) domain.LogEvent {
	return l.Emit(domain.EventInfo, "", message)
}

// Emit records a classified message and delivers it to subscribers.
func (l *Log) Emit(kind domain.EventKind, target, message string) domain.LogEvent {
	l.deliverMu.Lock()
	defer l.deliverMu.Unlock()

	l.mu.Lock()
	ts := l.now()
	if n := len(l.events); n > 0 && ts.Before(l.events[n-1].Timestamp) {
		ts = l.events[n-1].Timestamp // Keep timestamps monotonic across clock steps
	}
	event := domain.LogEvent{
		Seq:       uint64(len(l.events) + 1),
		Timestamp: ts,
		Kind:      kind,
		Target:    target,
		Message:   message,
	}
	l.events = append(l.events, event)
	subs := make([]Subscriber, 0, len(l.subs))
	for id := 0; id < l.nextSub; id++ {
		if s, ok := l.subs[id]; ok {
			subs = append(subs, s)
		}
	}
	l.mu.Unlock()

	l.logger.Debug(message,
		zap.String("kind", string(kind)),
		zap.String("target", target),
		zap.Uint64("seq", event.Seq))

	for _, s := range subs {
		s(event)
	}
	return event
}

// Events returns a copy of every event appended so far.
func (l *Log) Events() []domain.LogEvent {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]domain.LogEvent, len(l.events))
	copy(out, l.events)
	return out
}

// Drain returns the events appended since the previous Drain call.
func (l *Log) Drain() []domain.LogEvent {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]domain.LogEvent, len(l.events)-l.drained)
	copy(out, l.events[l.drained:])
	l.drained = len(l.events)
	return out
}

// Subscribe registers fn for every future event. The returned function
// cancels the subscription; it is safe to call more than once.
func (l *Log) Subscribe(fn Subscriber) (cancel func()) {
	l.mu.Lock()
	id := l.nextSub
	l.nextSub++
	l.subs[id] = fn
	l.mu.Unlock()

	return func() {
		l.mu.Lock()
		delete(l.subs, id)
		l.mu.Unlock()
	}
}

// Len returns the number of events appended so far.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}

// Ensure Log implements domain.EventLog.
var _ domain.EventLog = (*Log)(nil)
