// Package sanitize holds the allow-list applied to model-generated module
// markup before it reaches a page.
package sanitize

import (
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	modulePolicyOnce sync.Once
	modulePolicy     *bluemonday.Policy
)

// ModuleHTML returns markup with scripts, event handlers, external resource
// references and unknown elements removed. Scoped <style> blocks are dropped too.
func ModuleHTML(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	return strings.TrimSpace(policy().Sanitize(trimmed))
}

func policy() *bluemonday.Policy {
	modulePolicyOnce.Do(func() {
		p := bluemonday.NewPolicy()
		// No id: module markup must not collide with page ids such as #grid.
		p.AllowAttrs("dir", "lang", "title", "class").Globally()
		p.AllowStyles(
			"color", "background-color", "font-size", "font-weight", "font-style",
			"text-align", "margin", "padding", "border", "border-radius",
			"display", "gap", "grid-template-columns", "width", "height",
		).Globally()

		p.AllowElements(
			"article", "aside", "section", "header", "footer", "div", "span", "p", "br", "hr",
			"h1", "h2", "h3", "h4", "h5", "h6", "ul", "ol", "li", "dl", "dt", "dd",
			"table", "thead", "tbody", "tfoot", "tr", "th", "td", "caption",
			"strong", "em", "b", "i", "small", "sub", "sup", "code", "pre", "blockquote",
			"figure", "figcaption", "details", "summary", "progress", "meter", "label", "img",
		)
		p.AllowAttrs("colspan", "rowspan", "scope").OnElements("td", "th")
		p.AllowAttrs("value", "min", "max", "low", "high", "optimum").OnElements("progress", "meter")
		p.AllowAttrs("open").OnElements("details")
		p.AllowAttrs("alt", "src", "width", "height").OnElements("img")
		p.AllowElements("canvas")
		p.AllowAttrs("width", "height").OnElements("canvas")

		p.AllowElements(
			"svg", "g", "path", "circle", "rect", "line", "polyline", "polygon",
			"ellipse", "text", "tspan", "title", "desc",
		)
		p.AllowAttrs(
			"xmlns", "viewbox", "width", "height", "fill", "stroke",
			"stroke-width", "role", "aria-label", "preserveaspectratio",
		).OnElements("svg")
		for _, el := range []string{"path", "circle", "rect", "line", "polyline", "polygon", "ellipse", "text", "tspan", "g"} {
			p.AllowAttrs(
				"d", "cx", "cy", "r", "x", "y", "x1", "y1", "x2", "y2", "dx", "dy",
				"points", "rx", "ry", "fill", "stroke", "stroke-width", "opacity",
				"transform", "text-anchor", "font-size", "font-family",
				"width", "height", "preserveaspectratio",
			).OnElements(el)
		}

		// Modules are self-contained: no URL scheme is allowed, so remote and
		// relative references are dropped. Inline data: images survive.
		p.RequireParseableURLs(true)
		p.AllowDataURIImages()

		modulePolicy = p
	})
	return modulePolicy
}
