// Package notify keeps a short feed of user-facing messages per workspace.
package notify

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Levels.
const (
	LevelSuccess = "success"
	LevelError   = "error"
)

// DefaultCapacity bounds the number of messages kept per feed.
const DefaultCapacity = 50

type Message struct {
	Seq     uint64    `json:"seq"`
	Level   string    `json:"level"`
	Title   string    `json:"title"`
	Detail  string    `json:"detail,omitempty"`
	Created time.Time `json:"created"`
}

// Notifier collects messages for one workspace. The oldest messages are
// dropped once the feed is full.
type Notifier struct {
	scope    string
	capacity int

	mu   sync.Mutex
	seq  uint64
	msgs []Message
}

func New(scope string, capacity int) *Notifier {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Notifier{scope: scope, capacity: capacity}
}

func (n *Notifier) Success(title, detail string) {
	log.Info().Str("workspace", n.scope).Str("detail", detail).Msg(title)
	n.push(LevelSuccess, title, detail)
}

func (n *Notifier) Error(title, detail string) {
	log.Warn().Str("workspace", n.scope).Str("detail", detail).Msg(title)
	n.push(LevelError, title, detail)
}

func (n *Notifier) push(level, title, detail string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.seq++
	n.msgs = append(n.msgs, Message{Seq: n.seq, Level: level, Title: title, Detail: detail, Created: time.Now()})
	if over := len(n.msgs) - n.capacity; over > 0 {
		n.msgs = append([]Message(nil), n.msgs[over:]...)
	}
}

// Since returns the messages with a sequence number above after.
func (n *Notifier) Since(after uint64) []Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []Message
	for _, m := range n.msgs {
		if m.Seq > after {
			out = append(out, m)
		}
	}
	return out
}

// Drain returns every message and empties the feed.
func (n *Notifier) Drain() []Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := n.msgs
	n.msgs = nil
	return out
}
