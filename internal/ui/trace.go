package ui

import (
	"fmt"
	"io"
)

// Trace writes the labeled progress lines for one orchestrator run.
type Trace struct {
	w     io.Writer
	quiet bool
}

// NewTrace returns a trace writing to w. A quiet trace drops everything
// except failures.
func NewTrace(w io.Writer, quiet bool) *Trace {
	return &Trace{w: w, quiet: quiet}
}

// Run labels the start of a whole run.
func (t *Trace) Run(id string) {
	if t.quiet {
		return
	}
	fmt.Fprintf(t.w, "%s %s\n", accentStyle.Render("run"), mutedStyle.Render(id))
}

// Backend labels the start of one backend's version walk.
func (t *Trace) Backend(kind string, versions int) {
	if t.quiet {
		return
	}
	fmt.Fprintf(t.w, "%s %s %s\n",
		accentStyle.Render("backend"), kind,
		mutedStyle.Render(fmt.Sprintf("(%d versions)", versions)))
}

// Stage labels one stage of one version's test.
func (t *Trace) Stage(backend, version, stage string) {
	if t.quiet {
		return
	}
	fmt.Fprintf(t.w, "  %s %s %s\n", stageStyle.Render("▶"), version, stageStyle.Render(stage))
}

// Pass reports a fully passed version.
func (t *Trace) Pass(backend, version string) {
	if t.quiet {
		return
	}
	fmt.Fprintf(t.w, "  %s %s %s\n", passStyle.Render("✓"), version, mutedStyle.Render(backend))
}

// Fail reports a failed version. Printed even in quiet mode.
func (t *Trace) Fail(backend, version, stage, msg string) {
	fmt.Fprintf(t.w, "  %s %s %s %s: %s\n",
		failStyle.Render("✗"), version, mutedStyle.Render(backend), failStyle.Render(stage), msg)
}

// Snapshot echoes a labeled state snapshot, used when a consistency
// failure needs both sides shown in full.
func (t *Trace) Snapshot(label, body string) {
	fmt.Fprintf(t.w, "%s\n%s\n", failStyle.Render("--- "+label+" ---"), body)
}

// Summary prints the final outcome line.
func (t *Trace) Summary(passed, total int) {
	style := passStyle
	if passed != total {
		style = failStyle
	}
	fmt.Fprintf(t.w, "%s\n", style.Render(fmt.Sprintf("%d/%d version tests passed", passed, total)))
}
