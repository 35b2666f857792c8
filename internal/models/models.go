// Package models defines the OpenAI-compatible response wire schema.
package models

// Envelope is the full buffered chat completion response.
type Envelope struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

// Choice is the single completion choice inside an envelope.
type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

// Message is a role/content pair as serialised on the wire.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Chunk is one incremental streaming response object.
type Chunk struct {
	ID      string        `json:"id"`
	Object  string        `json:"object"`
	Created int64         `json:"created"`
	Model   string        `json:"model"`
	Choices []ChunkChoice `json:"choices"`
}

// ChunkChoice carries the delta for one streamed chunk. FinishReason stays a
// pointer so non-terminal chunks serialise an explicit null.
type ChunkChoice struct {
	Index        int     `json:"index"`
	Delta        Delta   `json:"delta"`
	FinishReason *string `json:"finish_reason"`
}

// Delta holds only the incremental content; the terminal chunk serialises an
// empty object.
type Delta struct {
	Content string `json:"content,omitempty"`
}

// Usage mirrors the token usage block. The generator exposes no token
// accounting, so every counter is always zero.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}
