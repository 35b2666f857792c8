package translator

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strptr(s string) *string { return &s }

func TestUnmarshalChatCompletionRequest(t *testing.T) {
	payload := `{"model":"llama","messages":[{"role":"user","content":"Hello"}],"stream":true}`

	var req ChatCompletionRequest
	require.NoError(t, json.Unmarshal([]byte(payload), &req))

	assert.Equal(t, "llama", req.Model)
	assert.True(t, req.Stream)
	require.Len(t, req.Messages, 1)
	assert.Equal(t, "user", *req.Messages[0].Role)
	assert.Equal(t, "Hello", *req.Messages[0].Content)
}

func TestUnmarshalStreamDefaultsFalse(t *testing.T) {
	var req ChatCompletionRequest
	require.NoError(t, json.Unmarshal([]byte(`{"model":"llama","messages":[]}`), &req))
	assert.False(t, req.Stream)
}

func TestUnmarshalRejectsEmptyModel(t *testing.T) {
	var req ChatCompletionRequest
	err := json.Unmarshal([]byte(`{"model":"  ","messages":[]}`), &req)
	assert.ErrorIs(t, err, errEmptyModel)
}

func TestUnmarshalKeepsMalformedMessages(t *testing.T) {
	// Message shape is not a schema concern; a missing key only fails during
	// projection.
	var req ChatCompletionRequest
	require.NoError(t, json.Unmarshal([]byte(`{"model":"llama","messages":[{"content":"hi"}]}`), &req))
	require.Len(t, req.Messages, 1)
	assert.Nil(t, req.Messages[0].Role)
}

func TestPromptLines(t *testing.T) {
	lines, err := PromptLines([]ChatMessage{
		{Role: strptr("user"), Content: strptr("hi")},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"user: hi"}, lines)
}

func TestPromptLinesPreservesOrder(t *testing.T) {
	lines, err := PromptLines([]ChatMessage{
		{Role: strptr("system"), Content: strptr("be brief")},
		{Role: strptr("user"), Content: strptr("Hello")},
		{Role: strptr("assistant"), Content: strptr("Hi")},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"system: be brief", "user: Hello", "assistant: Hi"}, lines)
}

func TestPromptLinesEmpty(t *testing.T) {
	lines, err := PromptLines(nil)
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestPromptLinesMissingKeys(t *testing.T) {
	_, err := PromptLines([]ChatMessage{{Content: strptr("hi")}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing role")

	_, err = PromptLines([]ChatMessage{{Role: strptr("user")}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing content")
}

func TestNewCompletionID(t *testing.T) {
	id := NewCompletionID()
	assert.True(t, strings.HasPrefix(id, "chatcmpl-"))
	assert.Greater(t, len(id), len("chatcmpl-"))
}

func TestNewEnvelope(t *testing.T) {
	env := NewEnvelope("llama", "Hi there")

	assert.Equal(t, "chat.completion", env.Object)
	assert.Equal(t, "llama", env.Model)
	assert.True(t, strings.HasPrefix(env.ID, "chatcmpl-"))
	assert.NotZero(t, env.Created)

	require.Len(t, env.Choices, 1)
	choice := env.Choices[0]
	assert.Equal(t, 0, choice.Index)
	assert.Equal(t, "assistant", choice.Message.Role)
	assert.Equal(t, "Hi there", choice.Message.Content)
	assert.Equal(t, "stop", choice.FinishReason)

	assert.Zero(t, env.Usage.PromptTokens)
	assert.Zero(t, env.Usage.CompletionTokens)
	assert.Zero(t, env.Usage.TotalTokens)
}

func TestNewChunkSerialisesNullFinishReason(t *testing.T) {
	chunk := NewChunk("llama", "Hi")

	assert.Equal(t, "chat.completion.chunk", chunk.Object)
	require.Len(t, chunk.Choices, 1)
	assert.Equal(t, "Hi", chunk.Choices[0].Delta.Content)
	assert.Nil(t, chunk.Choices[0].FinishReason)

	data, err := json.Marshal(chunk)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"finish_reason":null`)
	assert.Contains(t, string(data), `"delta":{"content":"Hi"}`)
}

func TestNewTerminalChunkSerialisesEmptyDelta(t *testing.T) {
	chunk := NewTerminalChunk("llama")

	require.Len(t, chunk.Choices, 1)
	assert.Empty(t, chunk.Choices[0].Delta.Content)
	require.NotNil(t, chunk.Choices[0].FinishReason)
	assert.Equal(t, "stop", *chunk.Choices[0].FinishReason)

	data, err := json.Marshal(chunk)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"delta":{}`)
	assert.Contains(t, string(data), `"finish_reason":"stop"`)
}
