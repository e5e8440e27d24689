package session

import (
	"fmt"
	"slices"
)

// Conversation is the append-only message log of one process lifetime.
// Messages are addressed by index and never reordered, rewritten or removed.
// It is not safe for concurrent use; the agent loop is its only writer.
type Conversation struct {
	messages []Message
}

// NewConversation creates a conversation seeded with exactly one system and
// one developer message.
func NewConversation(system, developer Message) (*Conversation, error) {
	if system.Role != RoleSystem {
		return nil, fmt.Errorf("first message must have role %q, got %q", RoleSystem, system.Role)
	}
	if developer.Role != RoleDeveloper {
		return nil, fmt.Errorf("second message must have role %q, got %q", RoleDeveloper, developer.Role)
	}
	c := &Conversation{messages: make([]Message, 0, 16)}
	c.Append(system)
	c.Append(developer)
	return c, nil
}

// Append adds a message to the end of the log and returns its index.
func (c *Conversation) Append(m Message) int {
	m.Content = slices.Clone(m.Content)
	c.messages = append(c.messages, m)
	return len(c.messages) - 1
}

// At returns the message at index i. It panics if i is out of range.
func (c *Conversation) At(i int) Message {
	m := c.messages[i]
	m.Content = slices.Clone(m.Content)
	return m
}

// Len returns the number of messages.
func (c *Conversation) Len() int { return len(c.messages) }

// Messages returns a copy of the log.
func (c *Conversation) Messages() []Message {
	out := make([]Message, len(c.messages))
	for i := range c.messages {
		out[i] = c.At(i)
	}
	return out
}
