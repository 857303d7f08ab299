package message

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// CodecError reports a persisted payload that could not be decoded into one
// of the four message variants.
type CodecError struct {
	Reason string
	Cause  error
}

func (e *CodecError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("message codec: %s: %v", e.Reason, e.Cause)
	}
	return fmt.Sprintf("message codec: %s", e.Reason)
}

func (e *CodecError) Unwrap() error { return e.Cause }

// payloadSchema is the shape contract for persisted payloads: a known role
// plus content that is either a string or a fragments/insertions object.
// Foreign JSON is rejected before unmarshalling.
const payloadSchema = `{
	"type": "object",
	"required": ["role", "content"],
	"properties": {
		"role": {"type": "string", "enum": ["system", "user", "assistant", "function"]},
		"content": {
			"oneOf": [
				{"type": "string"},
				{
					"type": "object",
					"required": ["fragments"],
					"properties": {
						"fragments": {"type": "array", "items": {"type": "string"}},
						"insertions": {
							"type": "array",
							"items": {
								"type": "object",
								"required": ["kind", "value"],
								"properties": {
									"kind": {"type": "string"},
									"value": {"type": "string"}
								}
							}
						}
					}
				}
			]
		},
		"name": {"type": "string"},
		"tool_call_id": {"type": "string"}
	}
}`

var payloadSchemaLoader = gojsonschema.NewStringLoader(payloadSchema)

// Encode serializes a message into its persisted JSON form. Total for the
// four variants.
func Encode(m Message) ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message: %w", err)
	}
	return data, nil
}

// Decode parses a persisted payload back into a Message. Malformed or
// foreign JSON yields a *CodecError carrying the cause.
func Decode(payload []byte) (Message, error) {
	result, err := gojsonschema.Validate(payloadSchemaLoader, gojsonschema.NewBytesLoader(payload))
	if err != nil {
		return Message{}, &CodecError{Reason: "payload is not valid JSON", Cause: err}
	}
	if !result.Valid() {
		var reasons []string
		for _, desc := range result.Errors() {
			reasons = append(reasons, desc.String())
		}
		return Message{}, &CodecError{Reason: "payload violates the message schema: " + strings.Join(reasons, "; ")}
	}

	var m Message
	if err := json.Unmarshal(payload, &m); err != nil {
		return Message{}, &CodecError{Reason: "failed to unmarshal payload", Cause: err}
	}
	if !m.Role.Valid() {
		return Message{}, &CodecError{Reason: fmt.Sprintf("unknown role %q", m.Role)}
	}
	return m, nil
}
