package session

import (
	"context"
	"sync"
	"time"

	"github.com/rexdotsh/valeo/internal/dtos"
	"github.com/rexdotsh/valeo/internal/models"
)

const defaultPollInterval = time.Second

// QueueSource is the subset of the repository client the queue poller
// needs.
type QueueSource interface {
	ListQueue(ctx context.Context, urgency models.Urgency) ([]dtos.QueueEntry, error)
	GetSession(ctx context.Context, sessionID string) (*dtos.SessionResponse, error)
}

// QueueUpdate is one observation of the patient's place in line. Position
// is nil while the session is not in the waiting queue.
type QueueUpdate struct {
	Status   models.SessionStatus
	Position *int
}

// QueuePoller periodically re-reads the queue and session status for one
// waiting patient. Transient fetch errors are swallowed; the next tick
// retries. Results that arrive after Stop are discarded.
type QueuePoller struct {
	source    QueueSource
	sessionID string
	interval  time.Duration
	onUpdate  func(QueueUpdate)

	mu       sync.Mutex
	stopped  bool
	cancel   context.CancelFunc
	done     chan struct{}
	doneOnce sync.Once
}

// NewQueuePoller creates a poller that invokes onUpdate with each fresh
// observation. A non-positive interval falls back to one second.
func NewQueuePoller(source QueueSource, sessionID string, interval time.Duration, onUpdate func(QueueUpdate)) *QueuePoller {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return &QueuePoller{
		source:    source,
		sessionID: sessionID,
		interval:  interval,
		onUpdate:  onUpdate,
		done:      make(chan struct{}),
	}
}

// Start begins polling until Stop is called or the context is cancelled.
func (p *QueuePoller) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		cancel()
		p.doneOnce.Do(func() { close(p.done) })
		return
	}
	p.cancel = cancel
	p.mu.Unlock()

	go func() {
		defer p.doneOnce.Do(func() { close(p.done) })
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		p.tick(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.tick(ctx)
			}
		}
	}()
}

// Stop halts polling. Safe to call more than once. An in-flight request
// may still complete but its result is never delivered.
func (p *QueuePoller) Stop() {
	p.mu.Lock()
	already := p.stopped
	p.stopped = true
	cancel := p.cancel
	p.mu.Unlock()
	if cancel != nil {
		cancel()
	} else if !already {
		p.doneOnce.Do(func() { close(p.done) })
	}
}

// Done is closed once the polling goroutine has exited.
func (p *QueuePoller) Done() <-chan struct{} {
	return p.done
}

func (p *QueuePoller) tick(ctx context.Context) {
	update, ok := p.fetch(ctx)
	if !ok {
		return
	}
	p.mu.Lock()
	stopped := p.stopped
	p.mu.Unlock()
	if stopped {
		return
	}
	p.onUpdate(update)
}

// fetch recomputes the position from the full waiting snapshot rather
// than trusting a cached index, so reordering ahead of us is reflected
// immediately.
func (p *QueuePoller) fetch(ctx context.Context) (QueueUpdate, bool) {
	sess, err := p.source.GetSession(ctx, p.sessionID)
	if err != nil || sess == nil {
		return QueueUpdate{}, false
	}
	update := QueueUpdate{Status: models.SessionStatus(sess.Status)}
	if update.Status != models.SessionStatusWaiting {
		return update, true
	}
	entries, err := p.source.ListQueue(ctx, "")
	if err != nil {
		return QueueUpdate{}, false
	}
	for i, entry := range entries {
		if entry.SessionID == p.sessionID {
			pos := i + 1
			update.Position = &pos
			break
		}
	}
	return update, true
}

// MessageSource is the subset of the repository client the message poller
// needs.
type MessageSource interface {
	ListMessages(ctx context.Context, sessionID string) ([]dtos.MessageEntry, error)
}

// MessagePoller periodically re-reads the transcript and delivers only
// messages not seen before, in order.
type MessagePoller struct {
	source    MessageSource
	sessionID string
	interval  time.Duration
	onMessage func(dtos.MessageEntry)

	mu       sync.Mutex
	stopped  bool
	cancel   context.CancelFunc
	seen     int
	done     chan struct{}
	doneOnce sync.Once
}

// NewMessagePoller creates a transcript poller. A non-positive interval
// falls back to one second.
func NewMessagePoller(source MessageSource, sessionID string, interval time.Duration, onMessage func(dtos.MessageEntry)) *MessagePoller {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return &MessagePoller{
		source:    source,
		sessionID: sessionID,
		interval:  interval,
		onMessage: onMessage,
		done:      make(chan struct{}),
	}
}

// Start begins polling until Stop is called or the context is cancelled.
func (p *MessagePoller) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		cancel()
		p.doneOnce.Do(func() { close(p.done) })
		return
	}
	p.cancel = cancel
	p.mu.Unlock()

	go func() {
		defer p.doneOnce.Do(func() { close(p.done) })
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		p.tick(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.tick(ctx)
			}
		}
	}()
}

// Stop halts polling. Safe to call more than once.
func (p *MessagePoller) Stop() {
	p.mu.Lock()
	already := p.stopped
	p.stopped = true
	cancel := p.cancel
	p.mu.Unlock()
	if cancel != nil {
		cancel()
	} else if !already {
		p.doneOnce.Do(func() { close(p.done) })
	}
}

// Done is closed once the polling goroutine has exited.
func (p *MessagePoller) Done() <-chan struct{} {
	return p.done
}

func (p *MessagePoller) tick(ctx context.Context) {
	entries, err := p.source.ListMessages(ctx, p.sessionID)
	if err != nil {
		return
	}
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	start := p.seen
	if start > len(entries) {
		start = len(entries)
	}
	fresh := entries[start:]
	p.seen = len(entries)
	p.mu.Unlock()
	for _, entry := range fresh {
		p.onMessage(entry)
	}
}
