package generator

// Module is one validated, model-generated dashboard card.
type Module struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
	HTML    string `json:"html"`
}

// ModuleRef is the lightweight view of a Module a client sends back with
// later requests.
type ModuleRef struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
}

// Ref returns the title/summary view of m.
func (m Module) Ref() ModuleRef {
	return ModuleRef{Title: m.Title, Summary: m.Summary}
}

// GenerationRequest is the body of POST /api/generate-module.
type GenerationRequest struct {
	Prompt       string      `json:"prompt"`
	PriorModules []ModuleRef `json:"priorModules,omitempty"`
	SessionID    string      `json:"session_id,omitempty"`
}
