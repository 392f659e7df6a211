package generator

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Orchestrator turns one user prompt into one validated Module.
type Orchestrator struct {
	llm    LLMClient
	facts  string
	logger *zap.Logger

	rejectBlank bool
	sanitized   bool
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger; the default is a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithRejectBlankPrompt makes blank prompts fail with KindInvalidPrompt
// instead of being forwarded to the model.
func WithRejectBlankPrompt(reject bool) Option {
	return func(o *Orchestrator) { o.rejectBlank = reject }
}

// WithSanitizedMarkup tells the model its markup will pass the allow-list,
// so it asks for inline SVG and no <style>/<script>.
func WithSanitizedMarkup(on bool) Option {
	return func(o *Orchestrator) { o.sanitized = on }
}

// NewOrchestrator builds an Orchestrator around llm. facts is the immutable
// domain reference text included in every request.
func NewOrchestrator(llm LLMClient, facts string, opts ...Option) (*Orchestrator, error) {
	if llm == nil {
		return nil, errors.New("llm client is required")
	}
	o := &Orchestrator{llm: llm, facts: facts, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// GenerateModule asks the model for one new module given conv's transcript.
// conv receives the raw output once it parses as JSON, before the shape check.
// Apart from a nil conv, every failure is a *GenerationError; nothing is retried.
func (o *Orchestrator) GenerateModule(ctx context.Context, conv *Conversation, prompt string) (Module, error) {
	if conv == nil {
		return Module{}, errors.New("conversation is required")
	}
	if o.rejectBlank && strings.TrimSpace(prompt) == "" {
		return Module{}, &GenerationError{Kind: KindInvalidPrompt, Err: errors.New("prompt is blank")}
	}

	p := BuildModulePrompt(prompt, o.facts, conv.Transcript(), o.sanitized)

	start := time.Now()
	raw, err := o.llm.Complete(ctx, p)
	if err != nil {
		o.logger.Warn("model call failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		return Module{}, &GenerationError{Kind: KindUpstreamFailure, Err: err}
	}
	o.logger.Debug("model call done", zap.Int("bytes", len(raw)), zap.Duration("elapsed", time.Since(start)))

	payload, err := ParseResponse(raw)
	if err != nil {
		o.logger.Warn("model returned non-JSON output", zap.Error(err))
		return Module{}, err
	}
	conv.Append(raw)

	mod, err := ValidateModule(payload)
	if err != nil {
		o.logger.Warn("model returned unexpected shape", zap.Error(err))
		return Module{}, err
	}
	o.logger.Info("module generated", zap.String("title", mod.Title), zap.Int("html_bytes", len(mod.HTML)))
	return mod, nil
}
