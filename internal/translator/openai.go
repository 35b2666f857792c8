// Package translator reshapes OpenAI chat requests into generator prompts
// and generator output into OpenAI response envelopes and chunks.
package translator

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"ollm-bridge/internal/models"
)

const (
	objectChatCompletion = "chat.completion"
	objectChatChunk      = "chat.completion.chunk"
	roleAssistant        = "assistant"
	finishReasonStop     = "stop"
	idPrefix             = "chatcmpl-"
)

var errEmptyModel = errors.New("model must be provided")

// ChatCompletionRequest models the chat/completions request payload. Message
// shape is deliberately not validated here: a missing role or content key
// only fails later, during projection.
type ChatCompletionRequest struct {
	Model    string
	Messages []ChatMessage
	Stream   bool
}

// ChatMessage is one request message. Role and Content stay pointers so a
// missing key is distinguishable from an empty string.
type ChatMessage struct {
	Role    *string `json:"role"`
	Content *string `json:"content"`
}

// UnmarshalJSON enforces the schema-level constraints only: valid JSON and a
// non-empty model.
func (r *ChatCompletionRequest) UnmarshalJSON(data []byte) error {
	type alias struct {
		Model    string        `json:"model"`
		Messages []ChatMessage `json:"messages"`
		Stream   bool          `json:"stream"`
	}

	var raw alias
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode chat request: %w", err)
	}

	r.Model = strings.TrimSpace(raw.Model)
	r.Messages = raw.Messages
	r.Stream = raw.Stream

	if r.Model == "" {
		return errEmptyModel
	}
	return nil
}

// PromptLines projects each message into the flat "role: content" line the
// generator expects, preserving message order. The projection is lossy; role
// stops being a separate field past this point.
func PromptLines(messages []ChatMessage) ([]string, error) {
	lines := make([]string, 0, len(messages))
	for i, msg := range messages {
		if msg.Role == nil {
			return nil, fmt.Errorf("message[%d]: missing role", i)
		}
		if msg.Content == nil {
			return nil, fmt.Errorf("message[%d]: missing content", i)
		}
		lines = append(lines, *msg.Role+": "+*msg.Content)
	}
	return lines, nil
}

// NewCompletionID returns a fresh response identifier. Identifiers are
// opaque trace tags; nothing downstream relies on uniqueness.
func NewCompletionID() string {
	return idPrefix + uuid.NewString()
}

// NewEnvelope wraps fully drained generator output in the buffered response
// shape. Usage counters stay zero: the generator exposes no token accounting.
func NewEnvelope(model, content string) models.Envelope {
	return models.Envelope{
		ID:      NewCompletionID(),
		Object:  objectChatCompletion,
		Created: time.Now().Unix(),
		Model:   model,
		Choices: []models.Choice{
			{
				Index: 0,
				Message: models.Message{
					Role:    roleAssistant,
					Content: content,
				},
				FinishReason: finishReasonStop,
			},
		},
		Usage: models.Usage{},
	}
}

// NewChunk builds one incremental streaming chunk carrying a single fragment.
func NewChunk(model, fragment string) models.Chunk {
	return models.Chunk{
		ID:      NewCompletionID(),
		Object:  objectChatChunk,
		Created: time.Now().Unix(),
		Model:   model,
		Choices: []models.ChunkChoice{
			{
				Index:        0,
				Delta:        models.Delta{Content: fragment},
				FinishReason: nil,
			},
		},
	}
}

// NewTerminalChunk builds the final streamed chunk: empty delta, stop reason.
func NewTerminalChunk(model string) models.Chunk {
	stop := finishReasonStop
	return models.Chunk{
		ID:      NewCompletionID(),
		Object:  objectChatChunk,
		Created: time.Now().Unix(),
		Model:   model,
		Choices: []models.ChunkChoice{
			{
				Index:        0,
				Delta:        models.Delta{},
				FinishReason: &stop,
			},
		},
	}
}
