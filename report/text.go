package report

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

const (
	bannerBegin = "<<<<<<<<<<<<<<<<<<<<<<<< Begin of backtrace >>>>>>>>>>>>>>>>>>>>>>>"
	bannerEnd   = "<<<<<<<<<<<<<<<<<<<<<<<<<<<<< END >>>>>>>>>>>>>>>>>>>>>>>>>>>>>>>>>>"
)

// Styles are the lipgloss styles of the text report.
type Styles struct {
	Banner   lipgloss.Style
	Alert    lipgloss.Style
	Subtle   lipgloss.Style
	Number   lipgloss.Style
	Pkg      lipgloss.Style
	Func     lipgloss.Style
	Instr    lipgloss.Style
	Position lipgloss.Style
	Success  lipgloss.Style
}

// PlainStyles renders without any color or emphasis.
func PlainStyles() Styles {
	reset := lipgloss.NewStyle()
	return Styles{
		Banner:   reset,
		Alert:    reset,
		Subtle:   reset,
		Number:   reset,
		Pkg:      reset,
		Func:     reset,
		Instr:    reset,
		Position: reset,
		Success:  reset,
	}
}

// ColorStyles is the pastel adaptive palette.
func ColorStyles() Styles {
	pastelBlue := lipgloss.AdaptiveColor{Light: "#3366cc", Dark: "#8fb3ff"}
	pastelTeal := lipgloss.AdaptiveColor{Light: "#2b7a78", Dark: "#7ad1c4"}
	pastelLav := lipgloss.AdaptiveColor{Light: "#6d5fa6", Dark: "#b7a9ff"}
	pastelRose := lipgloss.AdaptiveColor{Light: "#ad5d7d", Dark: "#ffb3c9"}
	pastelGold := lipgloss.AdaptiveColor{Light: "#b58b00", Dark: "#ffd666"}
	pastelGreen := lipgloss.AdaptiveColor{Light: "#2f7d32", Dark: "#9ada9f"}
	pastelGray := lipgloss.AdaptiveColor{Light: "#6b6f76", Dark: "#9aa0aa"}
	pastelPkg := lipgloss.AdaptiveColor{Light: "#4a6892", Dark: "#87a7d9"}

	return Styles{
		Banner:   lipgloss.NewStyle().Foreground(pastelBlue).Bold(true),
		Alert:    lipgloss.NewStyle().Foreground(pastelRose).Bold(true),
		Subtle:   lipgloss.NewStyle().Foreground(pastelGray),
		Number:   lipgloss.NewStyle().Foreground(pastelGold).Bold(true),
		Pkg:      lipgloss.NewStyle().Foreground(pastelPkg),
		Func:     lipgloss.NewStyle().Foreground(pastelLav).Bold(true),
		Instr:    lipgloss.NewStyle().Foreground(pastelTeal),
		Position: lipgloss.NewStyle().Foreground(pastelGray),
		Success:  lipgloss.NewStyle().Foreground(pastelGreen),
	}
}

// DetectStyles picks ColorStyles when w is a terminal and neither
// NO_COLOR nor TAINT_THEME=plain is set.
func DetectStyles(w io.Writer) Styles {
	if os.Getenv("NO_COLOR") != "" || strings.EqualFold(os.Getenv("TAINT_THEME"), "plain") {
		return PlainStyles()
	}
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return ColorStyles()
	}
	return PlainStyles()
}

// TextWriter writes the backtrace banner format.
type TextWriter struct {
	w      io.Writer
	styles Styles
}

// NewTextWriter returns a TextWriter with styles detected for w.
func NewTextWriter(w io.Writer) *TextWriter {
	return &TextWriter{w: w, styles: DetectStyles(w)}
}

// WithStyles overrides the detected styles.
func (t *TextWriter) WithStyles(s Styles) *TextWriter {
	t.styles = s
	return t
}

// Write writes one banner per finding, followed by a summary line.
func (t *TextWriter) Write(r *Report) error {
	bw := bufio.NewWriter(t.w)
	s := t.styles

	for _, f := range r.Findings {
		fmt.Fprintln(bw, s.Banner.Render(bannerBegin))
		fmt.Fprintf(bw, "\t%s\n", s.Alert.Render("🔥 Vulnerability detected 🔥"))
		fmt.Fprintf(bw, "\t🎯 Sink: %s (argument %d)\n", t.function(f.Callee), f.Arg)
		fmt.Fprintln(bw, "\t🔀 The Trace is:")
		for i, fr := range f.Trace {
			fmt.Fprintf(bw, "\t\t🔄 %s %s : %s", s.Number.Render(fmt.Sprintf("#%d", i)), t.function(fr.Function), s.Instr.Render(fr.Instruction))
			if fr.Position != "" {
				fmt.Fprintf(bw, " %s", s.Position.Render("("+fr.Position+")"))
			}
			fmt.Fprintln(bw)
		}
		fmt.Fprintln(bw, s.Banner.Render(bannerEnd))
	}

	if r.Count == 0 {
		fmt.Fprintf(bw, "%s\n", s.Success.Render(fmt.Sprintf("✓ no tainted data reaches a sink from %s", r.Entry)))
	} else {
		fmt.Fprintf(bw, "%s\n", s.Alert.Render(fmt.Sprintf("✗ %d violation(s) found from %s", r.Count, r.Entry)))
	}

	return bw.Flush()
}

// function colors the package part of a qualified name separately.
func (t *TextWriter) function(name string) string {
	i := strings.LastIndex(name, ".")
	if i <= 0 || strings.HasSuffix(name, ")") {
		return t.styles.Func.Render(name)
	}
	return t.styles.Pkg.Render(name[:i+1]) + t.styles.Func.Render(name[i+1:])
}
