package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLLM struct {
	mu      sync.Mutex
	outputs []string
	err     error
	prompts []Prompt
}

func (s *stubLLM) Complete(_ context.Context, p Prompt) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = append(s.prompts, p)
	if s.err != nil {
		return "", s.err
	}
	if len(s.outputs) == 0 {
		return "", errors.New("stub exhausted")
	}
	out := s.outputs[0]
	if len(s.outputs) > 1 {
		s.outputs = s.outputs[1:]
	}
	return out, nil
}

func newTestOrchestrator(t *testing.T, llm LLMClient, opts ...Option) *Orchestrator {
	t.Helper()
	o, err := NewOrchestrator(llm, "Revenue FY24: 12.4M", opts...)
	require.NoError(t, err)
	return o
}

func TestGenerateModule_SummaryDefaultsToEmpty(t *testing.T) {
	llm := &stubLLM{outputs: []string{`{"title":"Monthly Revenue","html":"<div>...</div>"}`}}
	o := newTestOrchestrator(t, llm)
	conv := NewConversation(0)

	mod, err := o.GenerateModule(context.Background(), conv, "show monthly revenue")
	require.NoError(t, err)

	assert.Equal(t, Module{Title: "Monthly Revenue", Summary: "", HTML: "<div>...</div>"}, mod)
	assert.Equal(t, 1, conv.Len())
}

func TestGenerateModule_KeepsSummary(t *testing.T) {
	llm := &stubLLM{outputs: []string{`{"title":"Cash","summary":"Runway overview","html":"<p>9 months</p>"}`}}
	o := newTestOrchestrator(t, llm)

	mod, err := o.GenerateModule(context.Background(), NewConversation(0), "cash runway")
	require.NoError(t, err)
	assert.Equal(t, "Runway overview", mod.Summary)
}

func TestGenerateModule_ComposesPrompt(t *testing.T) {
	llm := &stubLLM{outputs: []string{`{"title":"A","html":"<p>a</p>"}`, `{"title":"B","html":"<p>b</p>"}`}}
	o := newTestOrchestrator(t, llm)
	conv := NewConversation(0)

	_, err := o.GenerateModule(context.Background(), conv, "first")
	require.NoError(t, err)
	_, err = o.GenerateModule(context.Background(), conv, "second")
	require.NoError(t, err)

	require.Len(t, llm.prompts, 2)
	assert.Equal(t, SystemInstructions, llm.prompts[0].System)
	assert.Contains(t, llm.prompts[0].User, "User prompt: first")
	assert.Contains(t, llm.prompts[0].User, "[BEGIN_FACTS]\nRevenue FY24: 12.4M\n[END_FACTS]")
	assert.Contains(t, llm.prompts[0].User, "[BEGIN_PREVIOUS_MODULES]\n\n[END_PREVIOUS_MODULES]")
	assert.Contains(t, llm.prompts[1].User, TranscriptSeparator+`{"title":"A","html":"<p>a</p>"}`)
}

func TestGenerateModule_MalformedResponse(t *testing.T) {
	llm := &stubLLM{outputs: []string{"not json"}}
	o := newTestOrchestrator(t, llm)
	conv := NewConversation(0)

	_, err := o.GenerateModule(context.Background(), conv, "anything")
	require.Error(t, err)

	var gerr *GenerationError
	require.True(t, errors.As(err, &gerr))
	assert.Equal(t, KindMalformedResponse, gerr.Kind)
	assert.Equal(t, 0, conv.Len(), "non-JSON output must not enter the transcript")
}

func TestGenerateModule_UnexpectedShape(t *testing.T) {
	cases := []struct {
		name string
		out  string
	}{
		{"missing title", `{"html":"<p>x</p>"}`},
		{"missing html", `{"title":"T"}`},
		{"empty title", `{"title":"","html":"<p>x</p>"}`},
		{"non-string html", `{"title":"T","html":42}`},
		{"array", `[1,2]`},
		{"null", `null`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			llm := &stubLLM{outputs: []string{tc.out}}
			o := newTestOrchestrator(t, llm)
			conv := NewConversation(0)

			_, err := o.GenerateModule(context.Background(), conv, "p")
			var gerr *GenerationError
			require.True(t, errors.As(err, &gerr))
			assert.Equal(t, KindUnexpectedShape, gerr.Kind)
			assert.True(t, errors.Is(err, &GenerationError{Kind: KindUnexpectedShape}))

			want, perr := ParseResponse(tc.out)
			require.NoError(t, perr)
			assert.Equal(t, want, gerr.Raw)
			assert.Equal(t, 1, conv.Len(), "parsed output is recorded even when the shape is wrong")
		})
	}
}

func TestGenerateModule_UpstreamFailure(t *testing.T) {
	llm := &stubLLM{err: errors.New("429 quota exceeded")}
	o := newTestOrchestrator(t, llm)
	conv := NewConversation(0)

	_, err := o.GenerateModule(context.Background(), conv, "p")
	var gerr *GenerationError
	require.True(t, errors.As(err, &gerr))
	assert.Equal(t, KindUpstreamFailure, gerr.Kind)
	assert.Equal(t, "429 quota exceeded", err.Error())
	assert.Equal(t, 0, conv.Len())
	assert.Len(t, llm.prompts, 1, "no retries")
}

func TestGenerateModule_BlankPrompt(t *testing.T) {
	t.Run("accepted by default", func(t *testing.T) {
		llm := &stubLLM{outputs: []string{`{"title":"T","html":"<p>x</p>"}`}}
		o := newTestOrchestrator(t, llm)
		_, err := o.GenerateModule(context.Background(), NewConversation(0), "   ")
		require.NoError(t, err)
		assert.Len(t, llm.prompts, 1)
	})

	t.Run("rejected when hardened", func(t *testing.T) {
		llm := &stubLLM{outputs: []string{`{"title":"T","html":"<p>x</p>"}`}}
		o := newTestOrchestrator(t, llm, WithRejectBlankPrompt(true))
		_, err := o.GenerateModule(context.Background(), NewConversation(0), "   ")
		assert.True(t, errors.Is(err, &GenerationError{Kind: KindInvalidPrompt}))
		assert.Empty(t, llm.prompts)
	})
}

func TestGenerateModule_TranscriptInCallOrder(t *testing.T) {
	const n = 5
	outs := make([]string, n)
	for i := range outs {
		outs[i] = fmt.Sprintf(`{"title":"M%d","html":"<p>%d</p>"}`, i, i)
	}
	// The last output is shape-invalid JSON; it still counts as an entry.
	outs = append(outs, `{"title":"no html"}`)
	llm := &stubLLM{outputs: outs}
	o := newTestOrchestrator(t, llm)
	conv := NewConversation(0)

	for i := 0; i <= n; i++ {
		_, _ = o.GenerateModule(context.Background(), conv, fmt.Sprintf("p%d", i))
	}

	assert.Equal(t, outs, conv.Entries())
	assert.Equal(t, TranscriptSeparator+strings.Join(outs, TranscriptSeparator), conv.Transcript())
}

func TestGenerateModule_ConcurrentAppendsAreNotLost(t *testing.T) {
	const n = 32
	llm := &stubLLM{outputs: []string{`{"title":"T","html":"<p>x</p>"}`}}
	o := newTestOrchestrator(t, llm)
	conv := NewConversation(0)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := o.GenerateModule(context.Background(), conv, "p")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, n, conv.Len())
}

func TestGenerateModule_SanitizedInstructions(t *testing.T) {
	llm := &stubLLM{outputs: []string{`{"title":"T","html":"<p>x</p>"}`}}
	o := newTestOrchestrator(t, llm, WithSanitizedMarkup(true))

	_, err := o.GenerateModule(context.Background(), NewConversation(0), "revenue chart")
	require.NoError(t, err)

	require.Len(t, llm.prompts, 1)
	assert.Equal(t, SanitizedSystemInstructions, llm.prompts[0].System)
	assert.Contains(t, llm.prompts[0].System, "Do NOT include <style> or <script>")
	assert.NotContains(t, llm.prompts[0].System, "You MAY include a <style>")
}

func TestGenerateModule_NilConversation(t *testing.T) {
	llm := &stubLLM{outputs: []string{`{"title":"T","html":"<p>x</p>"}`}}
	o := newTestOrchestrator(t, llm)

	_, err := o.GenerateModule(context.Background(), nil, "p")
	require.Error(t, err)
	var gerr *GenerationError
	assert.False(t, errors.As(err, &gerr), "argument errors are not generation failures")
	assert.Empty(t, llm.prompts)
}

func TestNewOrchestrator_RequiresLLM(t *testing.T) {
	_, err := NewOrchestrator(nil, "")
	assert.Error(t, err)
}
