package generator

import (
	"fmt"
	"strings"
)

// Prompt 表示发送给 LLM 的消息集合。
type Prompt struct {
	System string
	User   string
	// Request is the user's prompt before composition.
	Request string
}

// SystemInstructions is the response-shape contract sent with every request.
const SystemInstructions = `You are "Codex UI Module Generator".
Return ONLY valid JSON (no prose) that matches:

{
  "title": "human-friendly title",
  "summary": "one-line summary",
  "html": "<div>...self-contained module markup...</div>"
}

Rules:
- The "html" must be self-contained, no external CSS/JS, no network fetches.
- You MAY include a <style> tag scoped to the module root and harmless <script> for simple interactivity.
- Prefer semantic HTML; keep styles minimal; use metric units.
- Never include <script src>, <link rel>, or inline event handlers that reach the network.
- If the user requests a chart/plot, render a simple SVG or <canvas>-based static chart without remote assets.
- Keep modules minimal and small in size.
`

// SanitizedSystemInstructions replaces SystemInstructions when module markup
// goes through the allow-list, which removes <style>, <script> and anything
// a canvas would need to draw.
const SanitizedSystemInstructions = `You are "Codex UI Module Generator".
Return ONLY valid JSON (no prose) that matches:

{
  "title": "human-friendly title",
  "summary": "one-line summary",
  "html": "<div>...self-contained module markup...</div>"
}

Rules:
- The "html" must be self-contained, no external CSS/JS, no network fetches.
- Do NOT include <style> or <script> tags, inline event handlers, ids, or <canvas>; they are removed.
- Use semantic HTML (tables, lists, headings) and inline style attributes for simple styling; use metric units.
- Never include <link>, remote images, or any URL.
- If the user requests a chart/plot, render a static inline SVG (rect, line, polyline, path, text) with explicit width/height.
- Keep modules minimal and small in size.
`

// BuildModulePrompt composes the request for one new module from the user's
// prompt, the domain facts and the transcript of modules created so far.
// sanitized selects the instructions matching the markup allow-list.
func BuildModulePrompt(request, facts, transcript string, sanitized bool) Prompt {
	system := SystemInstructions
	if sanitized {
		system = SanitizedSystemInstructions
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("User prompt: %s\n\n", request))
	sb.WriteString("CONTEXT FACTS (can invent details as needed):\n")
	sb.WriteString("[BEGIN_FACTS]\n")
	sb.WriteString(facts)
	sb.WriteString("\n[END_FACTS]\n\n")
	sb.WriteString("MODULES CREATED PREVIOUSLY:\n")
	sb.WriteString("[BEGIN_PREVIOUS_MODULES]\n")
	sb.WriteString(transcript)
	sb.WriteString("\n[END_PREVIOUS_MODULES]\n\n")
	sb.WriteString("Produce one new module that complements (not repeats) what's already there.\n")
	sb.WriteString("Return JSON ONLY.\n")

	return Prompt{
		System:  system,
		User:    sb.String(),
		Request: request,
	}
}
