package types

import "time"

// Role identifies the author of a conversation message.
type Role string

const (
	RoleSystem    Role = "system"    // RoleSystem marks instruction messages that anchor a context window.
	RoleUser      Role = "user"      // RoleUser marks messages written by the person building the app.
	RoleAssistant Role = "assistant" // RoleAssistant marks model responses, including synthetic summaries.
)

// MetadataCollapsed marks a synthetic summary message produced by history
// collapsing. MetadataCollapsedCount carries the number of messages it replaced.
const (
	MetadataCollapsed      = "collapsed"
	MetadataCollapsedCount = "collapsed_count"
)

// Message is a single entry in a conversation history.
type Message struct {
	// Metadata holds optional additional information about the message.
	Metadata map[string]interface{}

	// Content is the text content of the message.
	Content string

	// Role indicates who authored the message.
	Role Role

	// Timestamp records when the message was created.
	Timestamp time.Time
}

// NewSystemMessage creates a new system instruction message.
func NewSystemMessage(content string) Message {
	return Message{
		Role:      RoleSystem,
		Content:   content,
		Timestamp: time.Now(),
		Metadata:  make(map[string]interface{}),
	}
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string) Message {
	return Message{
		Role:      RoleUser,
		Content:   content,
		Timestamp: time.Now(),
		Metadata:  make(map[string]interface{}),
	}
}

// NewAssistantMessage creates a new assistant message.
func NewAssistantMessage(content string) Message {
	return Message{
		Role:      RoleAssistant,
		Content:   content,
		Timestamp: time.Now(),
		Metadata:  make(map[string]interface{}),
	}
}

// WithMetadata adds metadata to the message and returns it for chaining.
func (m Message) WithMetadata(key string, value interface{}) Message {
	if m.Metadata == nil {
		m.Metadata = make(map[string]interface{})
	}
	m.Metadata[key] = value
	return m
}

// WithTimestamp sets the message timestamp and returns it for chaining.
func (m Message) WithTimestamp(ts time.Time) Message {
	m.Timestamp = ts
	return m
}

// IsCollapsed returns true if this message is a synthetic summary that
// replaced a span of older history.
func (m Message) IsCollapsed() bool {
	collapsed, ok := m.Metadata[MetadataCollapsed].(bool)
	return ok && collapsed
}
