// Package message defines the chat message model and its persisted JSON
// codec. Messages form a closed set of four variants discriminated by Role;
// tool metadata on assistant and function messages is round-tripped as
// opaque JSON and never interpreted here.
package message

import (
	"encoding/json"
	"fmt"
)

// Role discriminates the message variants.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleFunction  Role = "function"
)

// Valid reports whether r is one of the four known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant, RoleFunction:
		return true
	}
	return false
}

// Interactive reports whether r belongs to the ordered conversation log
// rather than the single system slot.
func (r Role) Interactive() bool {
	return r.Valid() && r != RoleSystem
}

// Insertion is a typed value interleaved with the literal fragments of a
// structured prompt.
type Insertion struct {
	Kind  string `json:"kind"`
	Value string `json:"value"`
}

// Prompt is structured message content: literal fragments with typed
// insertions interleaved between them.
type Prompt struct {
	Fragments  []string    `json:"fragments"`
	Insertions []Insertion `json:"insertions,omitempty"`
}

// Content is either plain text or a structured prompt. Plain text persists
// as a JSON string, a prompt as a JSON object.
type Content struct {
	Text   string
	Prompt *Prompt
}

// MarshalJSON implements json.Marshaler.
func (c Content) MarshalJSON() ([]byte, error) {
	if c.Prompt != nil {
		return json.Marshal(c.Prompt)
	}
	return json.Marshal(c.Text)
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *Content) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		c.Text = text
		c.Prompt = nil
		return nil
	}

	var prompt Prompt
	if err := json.Unmarshal(data, &prompt); err != nil {
		return fmt.Errorf("content is neither text nor a structured prompt: %w", err)
	}
	c.Text = ""
	c.Prompt = &prompt
	return nil
}

// Message is one chat message. Exactly one variant per value, selected by
// Role; ToolCalls is only meaningful for assistant messages and ToolCallID
// for function messages.
type Message struct {
	Role       Role            `json:"role"`
	Content    Content         `json:"content"`
	Name       string          `json:"name,omitempty"`
	ToolCalls  json.RawMessage `json:"tool_calls,omitempty"`
	ToolCallID string          `json:"tool_call_id,omitempty"`
}

// Interactive reports whether m belongs to the interactive log.
func (m Message) Interactive() bool {
	return m.Role.Interactive()
}

// Clone returns a deep copy of m. Cached values are cloned on the way in and
// on the way out so callers can never alias cache-internal state.
func (m Message) Clone() Message {
	out := m
	if m.Prompt() != nil {
		p := &Prompt{}
		if m.Content.Prompt.Fragments != nil {
			p.Fragments = make([]string, len(m.Content.Prompt.Fragments))
			copy(p.Fragments, m.Content.Prompt.Fragments)
		}
		if m.Content.Prompt.Insertions != nil {
			p.Insertions = make([]Insertion, len(m.Content.Prompt.Insertions))
			copy(p.Insertions, m.Content.Prompt.Insertions)
		}
		out.Content.Prompt = p
	}
	if m.ToolCalls != nil {
		out.ToolCalls = make(json.RawMessage, len(m.ToolCalls))
		copy(out.ToolCalls, m.ToolCalls)
	}
	return out
}

// Prompt returns the structured prompt content, or nil for plain text.
func (m Message) Prompt() *Prompt {
	return m.Content.Prompt
}

// CloneAll deep-copies a message slice.
func CloneAll(msgs []Message) []Message {
	if msgs == nil {
		return nil
	}
	out := make([]Message, len(msgs))
	for i, m := range msgs {
		out[i] = m.Clone()
	}
	return out
}
