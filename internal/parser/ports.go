// Package parser turns free text or a voice recording into a
// structured transaction candidate using an external language model.
// The model's output is untrusted: everything is validated or
// defaulted here before it reaches the domain.
package parser

import (
	"context"
	"errors"

	"bolso/internal/core"
)

// ErrParseFailure means the model returned nothing usable. The caller
// surfaces "couldn't understand, try again"; no transaction is created.
var ErrParseFailure = errors.New("could not extract a transaction from the input")

// ErrEmptyInput means there was nothing to parse.
var ErrEmptyInput = errors.New("empty input")

// TransactionParser is the natural-language parsing collaborator.
type TransactionParser interface {
	// ParseText extracts a transaction candidate from free text.
	ParseText(ctx context.Context, text string) (core.ParsedInput, error)

	// ParseAudio extracts a transaction candidate from a voice
	// recording with the given MIME type.
	ParseAudio(ctx context.Context, audio []byte, mimeType string) (core.ParsedInput, error)
}
