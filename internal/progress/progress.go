// Package progress draws a single-line batch progress bar on a terminal.
package progress

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/bubbles/progress"
)

const maxLabel = 48

// Bar reports batch progress. It is silent unless enabled.
type Bar struct {
	out             io.Writer
	enabled         bool
	total           int
	current         int
	lastRenderWidth int
	label           string
	bar             progress.Model
}

// New returns a bar drawing to stderr when stderr is a terminal and quiet
// is false.
func New(quiet bool) *Bar {
	return NewWriter(os.Stderr, !quiet && isTerminal(os.Stderr))
}

// NewWriter returns a bar drawing to out when enabled.
func NewWriter(out io.Writer, enabled bool) *Bar {
	bar := progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage())
	bar.Width = 36

	if cols, err := strconv.Atoi(strings.TrimSpace(os.Getenv("COLUMNS"))); err == nil && cols > 0 {
		bar.Width = min(max(cols-40-maxLabel, 16), 64)
	}
	return &Bar{out: out, enabled: enabled, bar: bar}
}

// Enabled reports whether the bar draws anything.
func (p *Bar) Enabled() bool { return p.enabled }

// Start resets the bar for total items.
func (p *Bar) Start(total int) {
	p.total = max(total, 1)
	p.current = 0
	p.label = ""
	if p.enabled {
		p.render()
	}
}

// Advance marks one item done.
func (p *Bar) Advance(label string) {
	if !p.enabled {
		return
	}
	p.current = min(p.current+1, p.total)
	p.label = label
	p.render()
}

// Finish fills the bar and ends the line.
func (p *Bar) Finish() {
	if !p.enabled {
		return
	}
	p.current = p.total
	p.label = "done"
	p.render()
	fmt.Fprint(p.out, "\n")
	p.lastRenderWidth = 0
}

func (p *Bar) render() {
	percent := float64(p.current) / float64(p.total)
	percent = min(max(percent, 0), 1)
	line := fmt.Sprintf("%s %3.0f%% %d/%d %s", p.bar.ViewAs(percent), percent*100, p.current, p.total, shorten(p.label))
	pad := ""
	if p.lastRenderWidth > len(line) {
		pad = strings.Repeat(" ", p.lastRenderWidth-len(line))
	}
	fmt.Fprintf(p.out, "\r%s%s", line, pad)
	p.lastRenderWidth = len(line)
}

func shorten(label string) string {
	label = strings.TrimSpace(label)
	if utf8.RuneCountInString(label) <= maxLabel {
		return label
	}
	return string([]rune(label)[:maxLabel-1]) + "…"
}

func isTerminal(f *os.File) bool {
	if f == nil {
		return false
	}
	if strings.EqualFold(strings.TrimSpace(os.Getenv("TERM")), "dumb") {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
