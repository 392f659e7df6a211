// Package facts loads the static domain reference text included in every
// generation request.
package facts

import (
	"bytes"
	_ "embed"
	"errors"
	"os"
	"strings"

	"github.com/yuin/goldmark"
)

//go:embed mock_finance_facts.md
var mockFinanceFacts string

// Facts is the immutable DomainFacts block, loaded once at startup.
type Facts struct {
	text string
	html string
}

// Load reads facts from path. An empty path selects the bundled mock finance facts.
func Load(path string) (Facts, error) {
	if path == "" {
		return New(mockFinanceFacts)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Facts{}, err
	}
	return New(string(data))
}

// New builds Facts from markdown text.
func New(text string) (Facts, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Facts{}, errors.New("facts are empty")
	}
	html, err := mdToHTML(text)
	if err != nil {
		return Facts{}, err
	}
	return Facts{text: text, html: html}, nil
}

// Text is the raw block sent to the model.
func (f Facts) Text() string { return f.text }

// HTML is the block rendered for display next to the dashboard.
func (f Facts) HTML() string { return f.html }

func mdToHTML(md string) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
