package signaling

import "sync"

// MessageBuffer holds signaling messages that arrive before the
// counterpart has joined. Either party may dial first, so early offers
// and candidates are kept and flushed in order once the other side shows
// up.
type MessageBuffer struct {
	mu       sync.Mutex
	messages []Envelope
	maxSize  int
}

// NewMessageBuffer creates a buffer capped at maxSize messages.
func NewMessageBuffer(maxSize int) *MessageBuffer {
	return &MessageBuffer{
		messages: make([]Envelope, 0, maxSize),
		maxSize:  maxSize,
	}
}

// Add appends a message. Returns ErrMessageBufferFull when the cap is
// reached.
func (mb *MessageBuffer) Add(env Envelope) error {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	if len(mb.messages) >= mb.maxSize {
		return ErrMessageBufferFull
	}
	mb.messages = append(mb.messages, env)
	return nil
}

// Flush returns all buffered messages in insertion order and clears the
// buffer.
func (mb *MessageBuffer) Flush() []Envelope {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	messages := mb.messages
	mb.messages = make([]Envelope, 0, mb.maxSize)
	return messages
}

// Size returns the current number of buffered messages.
func (mb *MessageBuffer) Size() int {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	return len(mb.messages)
}
