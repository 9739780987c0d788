// Package convo contains the conversation stages of the voice pipeline:
// the state tracker, the order knowledge injector, and the transcript
// recorder.
package convo

import "sync"

// Message roles used in the LLM context.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Appender is the one capability the knowledge injector needs from the
// LLM context: appending a message to the history.
type Appender interface {
	Append(role, content string)
}

// Message is one entry in the conversation history.
type Message struct {
	Role    string
	Content string
}

// Context is the mutable LLM conversation history shared between the
// knowledge injector (system facts) and the LLM stage (turns). Safe for
// concurrent use.
type Context struct {
	mu       sync.Mutex
	messages []Message
}

// NewContext creates a context, seeded with a system prompt when one is
// given.
func NewContext(systemPrompt string) *Context {
	c := &Context{}
	if systemPrompt != "" {
		c.Append(RoleSystem, systemPrompt)
	}
	return c
}

// Append adds a message to the history.
func (c *Context) Append(role, content string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, Message{Role: role, Content: content})
}

// Messages returns a copy of the current history.
func (c *Context) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

var _ Appender = (*Context)(nil)
