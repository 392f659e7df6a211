package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"strings"
)

// MockLLM 一个简单的占位实现，便于本地调试，不调用外部模型。
type MockLLM struct{}

func (m MockLLM) Complete(_ context.Context, prompt Prompt) (string, error) {
	title := strings.TrimSpace(prompt.Request)
	if title == "" {
		title = "Untitled module"
	}
	var sb strings.Builder
	sb.WriteString(`<div class="mock-module">`)
	sb.WriteString(fmt.Sprintf("<p>Mock module for <strong>%s</strong>.</p>", html.EscapeString(title)))
	sb.WriteString(`<svg width="120" height="40"><rect x="0" y="10" width="80" height="20" fill="#4a90d9"></rect></svg>`)
	sb.WriteString(`</div>`)

	out, err := json.Marshal(Module{
		Title:   title,
		Summary: "Generated locally without a model call.",
		HTML:    sb.String(),
	})
	if err != nil {
		return "", err
	}
	return string(out), nil
}
