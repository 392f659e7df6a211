// Package stream is the client side of the dashboard: it issues generation
// requests one at a time and renders every accepted module as a card.
package stream

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"dashboard_builder/generator"
)

// State of a Stream with respect to its single outstanding request.
type State int

const (
	Idle State = iota
	Requesting
)

func (s State) String() string {
	if s == Requesting {
		return "requesting"
	}
	return "idle"
}

// Notifier shows a failure to the user.
type Notifier interface {
	Notify(msg string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(msg string)

func (f NotifierFunc) Notify(msg string) { f(msg) }

// Stream keeps the accepted modules in arrival order and the rendered page
// in newest-first order.
type Stream struct {
	transport Transport
	notifier  Notifier
	sessionID string
	logger    *zap.Logger
	sanitize  bool

	requesting atomic.Bool

	mu       sync.Mutex
	modules  []generator.Module
	renderer *Renderer
}

// Option configures a Stream.
type Option func(*Stream)

func WithNotifier(n Notifier) Option {
	return func(s *Stream) { s.notifier = n }
}

// WithSessionID attaches every request to a server-side conversation.
func WithSessionID(id string) Option {
	return func(s *Stream) { s.sessionID = id }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Stream) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithSanitize toggles the allow-list applied to module markup when it is
// rendered. It is on by default.
func WithSanitize(on bool) Option {
	return func(s *Stream) { s.sanitize = on }
}

func New(t Transport, opts ...Option) (*Stream, error) {
	if t == nil {
		return nil, fmt.Errorf("transport is required")
	}
	s := &Stream{
		transport: t,
		logger:    zap.NewNop(),
		sanitize:  true,
		notifier: NotifierFunc(func(msg string) {
			fmt.Fprintln(os.Stderr, msg)
		}),
	}
	for _, opt := range opts {
		opt(s)
	}
	r, err := NewRenderer(s.sanitize)
	if err != nil {
		return nil, err
	}
	s.renderer = r
	return s, nil
}

// Submit requests one module for text and blocks until it is rendered or
// the failure has been reported. Blank text, or a call made while another
// request is outstanding, does nothing. It reports whether a request was issued.
func (s *Stream) Submit(ctx context.Context, text string) bool {
	prompt := strings.TrimSpace(text)
	if prompt == "" {
		return false
	}
	if !s.requesting.CompareAndSwap(false, true) {
		s.logger.Debug("submit ignored while requesting", zap.String("prompt", prompt))
		return false
	}
	defer s.requesting.Store(false)

	req := generator.GenerationRequest{
		Prompt:       prompt,
		PriorModules: s.PriorModules(),
		SessionID:    s.sessionID,
	}
	mod, err := s.transport.Generate(ctx, req)
	if err != nil {
		s.logger.Warn("generate module failed", zap.Error(err))
		s.notifier.Notify("Error: " + err.Error())
		return true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.renderer.Append(mod); err != nil {
		s.logger.Warn("render module failed", zap.Error(err))
		s.notifier.Notify("Error: " + err.Error())
		return true
	}
	s.modules = append(s.modules, mod)
	s.logger.Info("module added", zap.String("title", mod.Title), zap.Int("modules", len(s.modules)))
	return true
}

// State reports whether a request is outstanding.
func (s *Stream) State() State {
	if s.requesting.Load() {
		return Requesting
	}
	return Idle
}

// Modules returns the accepted modules in arrival order.
func (s *Stream) Modules() []generator.Module {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]generator.Module(nil), s.modules...)
}

// PriorModules is the title/summary list sent with each request.
func (s *Stream) PriorModules() []generator.ModuleRef {
	s.mu.Lock()
	defer s.mu.Unlock()
	refs := make([]generator.ModuleRef, 0, len(s.modules))
	for _, m := range s.modules {
		refs = append(refs, m.Ref())
	}
	return refs
}

// Render writes the dashboard page, newest card first.
func (s *Stream) Render(w io.Writer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.renderer.Render(w)
}
