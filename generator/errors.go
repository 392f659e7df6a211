package generator

import "fmt"

// ErrorKind classifies why a generation request produced no module.
type ErrorKind int

const (
	// KindUpstreamFailure: the model call itself failed (network, auth, quota).
	KindUpstreamFailure ErrorKind = iota + 1
	// KindMalformedResponse: the model output is not JSON.
	KindMalformedResponse
	// KindUnexpectedShape: the output is JSON but lacks a usable title/html.
	KindUnexpectedShape
	// KindInvalidPrompt: the prompt was rejected before calling the model.
	KindInvalidPrompt
)

func (k ErrorKind) String() string {
	switch k {
	case KindUpstreamFailure:
		return "upstream_failure"
	case KindMalformedResponse:
		return "malformed_response"
	case KindUnexpectedShape:
		return "unexpected_shape"
	case KindInvalidPrompt:
		return "invalid_prompt"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// GenerationError is returned by Orchestrator.GenerateModule for every failure.
type GenerationError struct {
	Kind ErrorKind
	Err  error
	// Raw holds the parsed model payload for KindUnexpectedShape.
	Raw any
}

func (e *GenerationError) Error() string {
	switch e.Kind {
	case KindUnexpectedShape:
		return "Model returned unexpected shape"
	case KindMalformedResponse:
		return fmt.Sprintf("malformed model response: %v", e.Err)
	case KindInvalidPrompt:
		return fmt.Sprintf("invalid prompt: %v", e.Err)
	default:
		return fmt.Sprintf("%v", e.Err)
	}
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match on kind alone, e.g. errors.Is(err, &GenerationError{Kind: KindUnexpectedShape}).
func (e *GenerationError) Is(target error) bool {
	t, ok := target.(*GenerationError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Err == nil
}
