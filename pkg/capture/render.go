package capture

import (
	"fmt"
	"io"

	"github.com/briandowns/spinner"
	"github.com/charmbracelet/lipgloss"
)

// Status is what the renderer draws after every state change.
type Status struct {
	Working bool
	Frame   int
	Buffer  string
	Pending int
}

type StatusRenderer interface {
	Render(s Status)
	Clear()
}

// workingFrames is the braille spinner charset.
var workingFrames = spinner.CharSets[14]

var (
	spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	bufferStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

// TermRenderer draws a single fixed-position status line, rewriting it in
// place with a carriage return and erase-to-end-of-line.
type TermRenderer struct {
	w io.Writer
}

var _ StatusRenderer = (*TermRenderer)(nil)

func NewTermRenderer(w io.Writer) *TermRenderer {
	return &TermRenderer{w: w}
}

func (r *TermRenderer) Render(s Status) {
	line := ""
	if s.Working {
		frame := workingFrames[s.Frame%len(workingFrames)]
		line = spinnerStyle.Render(frame) + " working"
	}
	if s.Pending > 0 {
		line += pendingStyle.Render(fmt.Sprintf(" [%d queued]", s.Pending))
	}
	if s.Buffer != "" {
		line += bufferStyle.Render(" > " + s.Buffer)
	}
	fmt.Fprintf(r.w, "\r\x1b[K%s", line)
}

func (r *TermRenderer) Clear() {
	fmt.Fprint(r.w, "\r\x1b[K")
}

// NopRenderer discards all rendering. Used when no terminal is attached.
type NopRenderer struct{}

var _ StatusRenderer = (*NopRenderer)(nil)

func (NopRenderer) Render(Status) {}
func (NopRenderer) Clear()        {}
