package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

const (
	glyphOK   = "✓"
	glyphFail = "✗"
	glyphWarn = "⚠"
)

var (
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#2E7D32", Dark: "#81C784"})
	failStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "#C62828", Dark: "#EF9A9A"})
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#EF6C00", Dark: "#FFCC80"})
	dimStyle  = lipgloss.NewStyle().Faint(true)
)

// printer writes status lines. Glyphs are colored only when w is a
// terminal.
type printer struct {
	w     io.Writer
	color bool
}

func newPrinter(w io.Writer) *printer {
	return &printer{w: w, color: isTerminal(w)}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (p *printer) style(s lipgloss.Style, text string) string {
	if !p.color {
		return text
	}
	return s.Render(text)
}

func (p *printer) status(glyph string, s lipgloss.Style, indent, format string, args []any) {
	fmt.Fprintf(p.w, "%s%s %s\n", indent, p.style(s, glyph), fmt.Sprintf(format, args...))
}

func (p *printer) ok(format string, args ...any) {
	p.status(glyphOK, okStyle, "", format, args)
}

func (p *printer) fail(format string, args ...any) {
	p.status(glyphFail, failStyle, "", format, args)
}

func (p *printer) warn(format string, args ...any) {
	p.status(glyphWarn, warnStyle, "", format, args)
}

// item prints an indented detail line under a status line.
func (p *printer) item(glyph string, format string, args ...any) {
	s := okStyle
	switch glyph {
	case glyphFail:
		s = failStyle
	case glyphWarn:
		s = warnStyle
	}
	p.status(glyph, s, "  ", format, args)
}

func (p *printer) dim(format string, args ...any) {
	fmt.Fprintln(p.w, p.style(dimStyle, fmt.Sprintf(format, args...)))
}

func (p *printer) line(format string, args ...any) {
	fmt.Fprintf(p.w, format+"\n", args...)
}
