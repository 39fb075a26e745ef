package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"

	"github.com/arthur-debert/declarix/pkg/logging"
	"github.com/arthur-debert/declarix/pkg/output/styles"
	"github.com/arthur-debert/declarix/pkg/types"
)

// Renderer writes lines grouped under category/setting headers
type Renderer struct {
	writer io.Writer
	sheet  *styles.Sheet
}

// NewRenderer creates a renderer for w. Colors are dropped when noColor
// is set, NO_COLOR is present, or w is not a terminal.
func NewRenderer(w io.Writer, noColor bool) *Renderer {
	r := lipgloss.NewRenderer(w)
	plain := Plain(w, noColor)
	if plain {
		r.SetColorProfile(termenv.Ascii)
	}

	logger := logging.GetLogger("output")
	logger.Debug().
		Bool("plain", plain).
		Str("TERM", os.Getenv("TERM")).
		Msg("Created renderer")

	return &Renderer{writer: w, sheet: styles.Default(r)}
}

// Plain reports whether output to w must be left unstyled
func Plain(w io.Writer, noColor bool) bool {
	return noColor || os.Getenv("NO_COLOR") != "" || !isTerminal(w)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Format renders lines to a string
func (r *Renderer) Format(lines []Line) string {
	var b strings.Builder
	var current types.Group
	for i, l := range lines {
		if i == 0 || l.Group() != current {
			current = l.Group()
			if i > 0 {
				b.WriteString("\n")
			}
			b.WriteString(r.sheet.Get("Header").Render(fmt.Sprintf("%s %s", l.Category, l.Setting.Label())))
			b.WriteString("\n")
		}

		var row strings.Builder
		row.WriteString(r.sheet.Get(l.Outcome.Style()).Render(fmt.Sprintf("%-9s", l.Outcome)))
		row.WriteString(" ")
		if label := l.Label(); label != "" {
			row.WriteString(r.sheet.Get("Title").Render("[" + label + "]"))
			row.WriteString(" ")
		}
		row.WriteString(l.Path)
		if l.Message != "" {
			row.WriteString(" ")
			row.WriteString(r.sheet.Get("Message").Render(l.Message))
		}
		b.WriteString(r.sheet.Get("Path").Render(row.String()))
		b.WriteString("\n")
	}
	return b.String()
}

// Render writes lines followed by a one line summary
func (r *Renderer) Render(lines []Line) error {
	if _, err := io.WriteString(r.writer, r.Format(lines)); err != nil {
		return err
	}
	_, err := fmt.Fprintln(r.writer, r.sheet.Get("Message").Render(Summary(lines)))
	return err
}

// Error writes a fatal error line
func (r *Renderer) Error(err error) {
	_, _ = fmt.Fprintln(r.writer, r.sheet.Get("Error").Render("Error: "+err.Error()))
}
