package report

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/ajrichter/my-agents-cc/internal/manifest"
	"github.com/ajrichter/my-agents-cc/internal/pipeline"
)

// Status icons.
const (
	IconDone    = "[done]"
	IconRunning = "[....]"
	IconFailed  = "[FAIL]"
	IconPending = "[    ]"
)

var (
	green  = lipgloss.Color("76")
	red    = lipgloss.Color("204")
	yellow = lipgloss.Color("214")
	dim    = lipgloss.Color("243")
)

// Printer renders reports to a writer. Colour is used only when the writer
// is a terminal.
type Printer struct {
	w       io.Writer
	done    lipgloss.Style
	running lipgloss.Style
	failed  lipgloss.Style
	muted   lipgloss.Style
	heading lipgloss.Style
}

// NewPrinter creates a Printer for w.
func NewPrinter(w io.Writer) *Printer {
	r := lipgloss.NewRenderer(w)
	return &Printer{
		w:       w,
		done:    r.NewStyle().Foreground(green),
		running: r.NewStyle().Foreground(yellow),
		failed:  r.NewStyle().Foreground(red),
		muted:   r.NewStyle().Foreground(dim),
		heading: r.NewStyle().Bold(true),
	}
}

func (p *Printer) icon(status string) string {
	switch status {
	case pipeline.StatusCompleted:
		return p.done.Render(IconDone)
	case pipeline.StatusInProgress:
		return p.running.Render(IconRunning)
	case pipeline.StatusFailed:
		return p.failed.Render(IconFailed)
	}
	return p.muted.Render(IconPending)
}

// Status prints the phase table of one target.
func (p *Printer) Status(s *Summary) {
	if !s.Exists {
		fmt.Fprintln(p.w, s.Message)
		return
	}
	fmt.Fprintln(p.w, p.heading.Render("=== Pipeline Status ==="))
	fmt.Fprintf(p.w, "Pipeline ID: %s\n", s.PipelineID)
	fmt.Fprintf(p.w, "Overall: %s\n\n", s.OverallStatus)
	for _, ph := range s.Phases {
		line := fmt.Sprintf("  %s %s", p.icon(ph.Status), ph.Label)
		if ph.StartedAt != nil {
			line += p.muted.Render(fmt.Sprintf(" (started: %s)", stamp(*ph.StartedAt)))
		}
		if ph.CompletedAt != nil {
			line += p.muted.Render(fmt.Sprintf(" (completed: %s)", stamp(*ph.CompletedAt)))
		}
		if ph.ErrorCount > 0 {
			line += p.failed.Render(fmt.Sprintf(" (%d errors)", ph.ErrorCount))
		}
		fmt.Fprintln(p.w, line)
	}
}

// Manifest prints the change manifest summary. Nothing is printed for an
// empty manifest.
func (p *Printer) Manifest(m *manifest.Manifest) {
	if m == nil {
		return
	}
	if len(m.Changes) > 0 {
		fmt.Fprintf(p.w, "\nChanges tracked: %d files\n", len(m.Changes))
		for _, c := range m.Changes {
			fmt.Fprintf(p.w, "  [%s] %s %s\n", c.ChangeType, c.File, p.muted.Render("("+c.Agent+")"))
		}
	}
	if sc := m.ScanCoverage; sc != nil && sc.TotalFiles > 0 {
		fmt.Fprintf(p.w, "\nScan coverage: %d files scanned\n", sc.TotalFiles)
		fmt.Fprintf(p.w, "Coverage complete: %t\n", sc.CoverageComplete)
	}
}

// Combined prints the per-target lines and totals of a multi-target run.
func (p *Printer) Combined(c *CombinedStatus) {
	fmt.Fprintln(p.w, p.heading.Render("=== Multi-Repo Pipeline Status ==="))
	fmt.Fprintln(p.w)
	for _, t := range c.Repos {
		var icon, detail string
		switch {
		case t.Error != "":
			icon, detail = p.icon(pipeline.StatusFailed), "error: "+t.Error
		case t.Status == nil || !t.Status.Exists:
			icon, detail = p.icon(pipeline.StatusPending), "not started"
		default:
			bucket := t.Status.Bucket()
			icon, detail = p.icon(bucket), t.Status.OverallStatus
			if bucket == pipeline.StatusCompleted {
				detail = "complete"
			}
		}
		fmt.Fprintf(p.w, "  %s %s - %s\n", icon, t.Name, detail)
	}
	fmt.Fprintf(p.w, "\nTotal: %d repos\n", c.Totals.Total)
	fmt.Fprintf(p.w, "  Completed: %d\n", c.Totals.Completed)
	fmt.Fprintf(p.w, "  In Progress: %d\n", c.Totals.InProgress)
	fmt.Fprintf(p.w, "  Pending: %d\n", c.Totals.Pending)
	fmt.Fprintf(p.w, "  Failed: %d\n", c.Totals.Failed)
}

func stamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
