package topics

import (
	"github.com/charmbracelet/glamour"
)

// Renderer formats topic content for the terminal
type Renderer interface {
	// Render takes raw content and its file extension and returns display text
	Render(content string, format string) string
}

// PlainRenderer returns content as-is. Used when output is not a terminal
// or colors are disabled.
type PlainRenderer struct{}

// Render returns the content unchanged
func (r *PlainRenderer) Render(content string, format string) string {
	return content
}

// GlamourRenderer renders markdown topics with glamour
type GlamourRenderer struct {
	Style string // "auto", a standard style name, or a path to a style file
	Width int    // 0 keeps glamour's default wrapping
}

// NewGlamourRenderer creates a markdown renderer with terminal auto-detection
func NewGlamourRenderer() *GlamourRenderer {
	return &GlamourRenderer{Style: "auto"}
}

// Render converts markdown to styled terminal output, falling back to the
// raw content if glamour fails.
func (r *GlamourRenderer) Render(content string, format string) string {
	if format != ".md" {
		return content
	}

	var options []glamour.TermRendererOption
	if r.Style != "" && r.Style != "auto" {
		options = append(options, glamour.WithStylePath(r.Style))
	} else {
		options = append(options, glamour.WithAutoStyle())
	}
	if r.Width > 0 {
		options = append(options, glamour.WithWordWrap(r.Width))
	}

	renderer, err := glamour.NewTermRenderer(options...)
	if err != nil {
		return content
	}
	rendered, err := renderer.Render(content)
	if err != nil {
		return content
	}
	return rendered
}
