package message

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTripAllVariants(t *testing.T) {
	variants := []Message{
		{Role: RoleSystem, Content: Content{Text: "You are a helpful assistant."}},
		{Role: RoleUser, Content: Content{Text: "What's the weather?"}, Name: "alex"},
		{
			Role:      RoleAssistant,
			Content:   Content{Text: "Checking."},
			ToolCalls: json.RawMessage(`[{"id":"call_1","function":{"name":"get_weather","arguments":"{\"city\":\"Oslo\"}"}}]`),
		},
		{
			Role:       RoleFunction,
			Content:    Content{Text: `{"temp": 12}`},
			Name:       "get_weather",
			ToolCallID: "call_1",
		},
		{
			Role: RoleUser,
			Content: Content{Prompt: &Prompt{
				Fragments:  []string{"Translate ", " to ", ""},
				Insertions: []Insertion{{Kind: "string", Value: "hello"}, {Kind: "lang", Value: "no"}},
			}},
		},
	}

	for _, original := range variants {
		payload, err := Encode(original)
		require.NoError(t, err, "encode role %q", original.Role)

		decoded, err := Decode(payload)
		require.NoError(t, err, "decode role %q", original.Role)

		assert.Equal(t, original.Role, decoded.Role)
		assert.Equal(t, original.Name, decoded.Name)
		assert.Equal(t, original.ToolCallID, decoded.ToolCallID)
		assert.Equal(t, original.Content.Text, decoded.Content.Text)
		if original.Prompt() != nil {
			require.NotNil(t, decoded.Prompt())
			assert.Equal(t, original.Prompt().Fragments, decoded.Prompt().Fragments)
			assert.Equal(t, original.Prompt().Insertions, decoded.Prompt().Insertions)
		}
		if original.ToolCalls != nil {
			assert.JSONEq(t, string(original.ToolCalls), string(decoded.ToolCalls))
		}
	}
}

func TestDecodeMalformedJSON(t *testing.T) {
	_, err := Decode([]byte(`{"role": "user", "content"`))
	require.Error(t, err)

	var codecErr *CodecError
	assert.ErrorAs(t, err, &codecErr)
}

func TestDecodeUnknownRole(t *testing.T) {
	_, err := Decode([]byte(`{"role": "narrator", "content": "once upon a time"}`))
	require.Error(t, err)

	var codecErr *CodecError
	require.ErrorAs(t, err, &codecErr)
	assert.Contains(t, codecErr.Error(), "schema")
}

func TestDecodeForeignJSON(t *testing.T) {
	// Valid JSON that is not a message at all.
	for _, payload := range []string{`42`, `"just a string"`, `{"foo": "bar"}`, `[]`} {
		_, err := Decode([]byte(payload))
		var codecErr *CodecError
		assert.ErrorAs(t, err, &codecErr, "payload %s", payload)
	}
}

func TestDecodeMissingContent(t *testing.T) {
	_, err := Decode([]byte(`{"role": "user"}`))
	var codecErr *CodecError
	assert.ErrorAs(t, err, &codecErr)
}
