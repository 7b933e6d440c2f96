// internal/providers/provider.go

// Package providers defines the abstraction for streaming answer
// generation. It describes requests, response chunks, and callbacks
// independently of the backing service so the engine and tests can swap
// implementations freely.
package providers

import (
	"context"
	"fmt"
	"time"
)

// Blob is inline binary request data, typically a prepared image.
type Blob struct {
	MIMEType string
	Data     []byte
}

// Part is one element of a generation request payload: either text or an
// inline blob, never both.
type Part struct {
	Text       string
	InlineData *Blob
}

// GenerationConfig carries the sampling parameters for one request.
type GenerationConfig struct {
	Temperature     float64
	TopP            float64
	TopK            int
	MaxOutputTokens int
}

// StreamRequest encapsulates everything needed to start a generation
// stream.
type StreamRequest struct {
	Model      string
	System     string
	Parts      []Part
	Generation GenerationConfig
}

// StreamChunk is one increment of a streaming response. Text may be empty
// on the terminal chunk; FinishReason and BlockReason are set only when
// the service reports them.
type StreamChunk struct {
	Text         string
	FinishReason string
	BlockReason  string
}

// StreamCallbacks defines the hooks invoked while a stream is running.
// OnChunk is called once per received chunk; returning an error aborts the
// stream.
type StreamCallbacks struct {
	OnChunk func(StreamChunk) error
}

// Generator is the interface answer backends implement.
type Generator interface {
	Stream(ctx context.Context, req StreamRequest, callbacks StreamCallbacks) error
}

// RateLimitError reports request throttling by the backing service.
// RetryAfter is the service-suggested wait, zero when the service gave
// none.
type RateLimitError struct {
	RetryAfter time.Duration
	Message    string
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited: %s (retry after %s)", e.Message, e.RetryAfter)
	}
	return fmt.Sprintf("rate limited: %s", e.Message)
}
