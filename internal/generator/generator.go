// Package generator defines the boundary to the external text generator.
package generator

import (
	"context"
	"io"
	"strings"
)

// Generator produces text for a flat, ordered prompt. Implementations talk to
// an external inference backend; callers treat them as a black box that may
// fail on an unknown model or a generation error.
type Generator interface {
	Generate(ctx context.Context, model string, prompt []string, stream bool) (*Stream, error)
}

// Stream is a pull-based iterator over generated text fragments. Fragments
// arrive strictly in production order, and the consumer's Recv rate gates how
// fast the producer is asked for more.
type Stream struct {
	fragments <-chan string
	errs      <-chan error
}

// NewStream wraps a fragment channel and an error channel. The producer must
// close both when done; errs must be buffered so a trailing error survives
// the close.
func NewStream(fragments <-chan string, errs <-chan error) *Stream {
	return &Stream{fragments: fragments, errs: errs}
}

// Recv returns the next fragment, io.EOF once the sequence is exhausted, or
// the production error if generation failed partway.
func (s *Stream) Recv() (string, error) {
	fragment, ok := <-s.fragments
	if !ok {
		if err, ok := <-s.errs; ok && err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return fragment, nil
}

// Text drains the stream eagerly and concatenates every fragment with no
// separator between them.
func (s *Stream) Text() (string, error) {
	var builder strings.Builder
	for {
		fragment, err := s.Recv()
		if err == io.EOF {
			return builder.String(), nil
		}
		if err != nil {
			return "", err
		}
		builder.WriteString(fragment)
	}
}
