package generator

import (
	"strings"
	"sync"
)

// TranscriptSeparator precedes every entry of a rendered transcript.
const TranscriptSeparator = "\n---\n"

// Conversation 持有一个看板会话中已接受的模型原始输出，用于避免重复模块。
// It is safe for concurrent use. Two generations running at once on the same
// Conversation may each miss the other's entry, but no entry is lost.
type Conversation struct {
	mu      sync.Mutex
	entries []string
	limit   int
}

// NewConversation returns an empty conversation keeping at most limit entries.
// limit <= 0 keeps every entry.
func NewConversation(limit int) *Conversation {
	return &Conversation{limit: limit}
}

// Append records one raw model output, evicting the oldest entries past the limit.
func (c *Conversation) Append(raw string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, raw)
	if c.limit > 0 && len(c.entries) > c.limit {
		drop := len(c.entries) - c.limit
		c.entries = append([]string(nil), c.entries[drop:]...)
	}
}

// Entries returns a copy of the retained entries in call order.
func (c *Conversation) Entries() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.entries...)
}

// Len reports the number of retained entries.
func (c *Conversation) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Transcript renders the entries the way they are fed back to the model.
func (c *Conversation) Transcript() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var sb strings.Builder
	for _, e := range c.entries {
		sb.WriteString(TranscriptSeparator)
		sb.WriteString(e)
	}
	return sb.String()
}

// Reset drops every entry.
func (c *Conversation) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = nil
}
