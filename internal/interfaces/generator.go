package interfaces

import (
	"context"
)

// GenerationRequest is a provider-agnostic text generation request.
type GenerationRequest struct {
	// Prompt is the user prompt text.
	Prompt string

	// SystemInstruction optionally sets the system role for the call.
	SystemInstruction string

	// Model selects a specific model; empty uses the provider default.
	Model string

	// Temperature overrides the provider default when greater than zero.
	Temperature float32
}

// TextGenerator is the capability boundary to the generation service: one
// request/response exchange per call, free text out. The response text has
// no format guarantees; callers own parsing and fallback.
type TextGenerator interface {
	GenerateText(ctx context.Context, request *GenerationRequest) (string, error)
}
