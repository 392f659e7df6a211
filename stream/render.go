package stream

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"dashboard_builder/generator"
	"dashboard_builder/sanitize"
)

const pageTemplate = `<!doctype html>
<html lang="en"><head><meta charset="utf-8"><title>Dashboard</title>
<style>
body{font-family:system-ui,sans-serif;margin:1.5rem;background:#f6f7f9}
#grid{display:grid;grid-template-columns:repeat(auto-fill,minmax(320px,1fr));gap:1rem}
.card{background:#fff;border-radius:8px;box-shadow:0 1px 3px rgba(0,0,0,.12)}
.card header{padding:.7rem .9rem;font-weight:600}
.card .muted{display:block;font-weight:400;font-size:.85em;color:#6b7385}
.card .content{padding:.9rem}
</style></head><body><main id="grid"></main></body></html>`

// Renderer owns the dashboard document and inserts one card per module,
// newest first.
type Renderer struct {
	doc   *html.Node
	grid  *html.Node
	clean bool
}

// NewRenderer parses the page shell. With sanitize off, module markup is
// inserted exactly as received.
func NewRenderer(sanitizeHTML bool) (*Renderer, error) {
	doc, err := html.Parse(strings.NewReader(pageTemplate))
	if err != nil {
		return nil, err
	}
	grid := findByID(doc, "grid")
	if grid == nil {
		return nil, fmt.Errorf("page template has no #grid")
	}
	return &Renderer{doc: doc, grid: grid, clean: sanitizeHTML}, nil
}

// Append builds a card for mod and puts it at the front of the grid.
func (r *Renderer) Append(mod generator.Module) error {
	card := element(atom.Article, "class", "card")

	header := element(atom.Header)
	title := mod.Title
	if title == "" {
		title = "Module"
	}
	header.AppendChild(&html.Node{Type: html.TextNode, Data: title})
	muted := element(atom.Span, "class", "muted")
	if mod.Summary != "" {
		muted.AppendChild(&html.Node{Type: html.TextNode, Data: mod.Summary})
	}
	header.AppendChild(muted)

	content := element(atom.Section, "class", "content")
	markup := mod.HTML
	if r.clean {
		markup = sanitize.ModuleHTML(markup)
	}
	nodes, err := html.ParseFragment(strings.NewReader(markup), content)
	if err != nil {
		return fmt.Errorf("parse module markup: %w", err)
	}
	for _, n := range nodes {
		content.AppendChild(n)
	}

	card.AppendChild(header)
	card.AppendChild(content)
	r.grid.InsertBefore(card, r.grid.FirstChild)
	return nil
}

// Len is the number of cards in the grid.
func (r *Renderer) Len() int {
	n := 0
	for c := r.grid.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == atom.Article {
			n++
		}
	}
	return n
}

// Render writes the whole page.
func (r *Renderer) Render(w io.Writer) error {
	return html.Render(w, r.doc)
}

func element(a atom.Atom, attrs ...string) *html.Node {
	n := &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String()}
	for i := 0; i+1 < len(attrs); i += 2 {
		n.Attr = append(n.Attr, html.Attribute{Key: attrs[i], Val: attrs[i+1]})
	}
	return n
}

func findByID(n *html.Node, id string) *html.Node {
	if n.Type == html.ElementNode {
		for _, a := range n.Attr {
			if a.Key == "id" && a.Val == id {
				return n
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findByID(c, id); found != nil {
			return found
		}
	}
	return nil
}
