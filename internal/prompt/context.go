package prompt

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ajrichter/my-agents-cc/internal/config"
	"github.com/ajrichter/my-agents-cc/internal/pipeline"
	"github.com/ajrichter/my-agents-cc/internal/tracking"
)

// Builder assembles the prompt for one phase run from the target's
// tracking documents.
type Builder struct {
	store     *tracking.Store
	git       GitRunner
	promptDir string
}

// NewBuilder creates a Builder. git may be nil; promptDir may be empty.
func NewBuilder(store *tracking.Store, git GitRunner, promptDir string) *Builder {
	return &Builder{store: store, git: git, promptDir: promptDir}
}

// BuildOpts configures what context to build.
type BuildOpts struct {
	Target   string
	Phase    config.Phase
	Loop     int // 0 outside the build/inspect loop
	MaxLoops int
	Status   *pipeline.PipelineStatus // nil before initialization
}

// Vars collects template variables for a phase.
func (b *Builder) Vars(opts BuildOpts) Vars {
	phase := opts.Phase.Name
	vars := Vars{
		"phase":        phase,
		"label":        opts.Phase.Label,
		"target":       opts.Target,
		"tracking_dir": b.store.Dir(opts.Target),
		"output_file":  b.store.Path(opts.Target, tracking.OutputFile(phase)),
		"max_loops":    strconv.Itoa(opts.MaxLoops),
		"loop":         "",
	}
	if opts.Loop > 0 {
		vars["loop"] = strconv.Itoa(opts.Loop)
	}

	switch phase {
	case config.PhaseDiscoverer:
		vars["input_doc"] = b.readDoc(opts.Target, tracking.InputFile(phase))
	case config.PhaseBuilder:
		vars["discoverer_output"] = b.readDoc(opts.Target, tracking.OutputFile(config.PhaseDiscoverer))
		vars["loop_instructions"] = b.readDoc(opts.Target, tracking.LoopInstructionsFile)
	case config.PhaseInspector:
		vars["discoverer_output"] = b.readDoc(opts.Target, tracking.OutputFile(config.PhaseDiscoverer))
		vars["builder_output"] = b.readDoc(opts.Target, tracking.OutputFile(config.PhaseBuilder))
		b.addGitContext(opts.Target, vars)
	}
	vars["prior_phase_summary"] = priorPhaseSummary(opts.Status, opts.Phase.Order)
	return vars
}

// Render loads the phase template and expands it.
func (b *Builder) Render(opts BuildOpts) (string, error) {
	tmpl, err := Load(opts.Phase.Name, b.promptDir)
	if err != nil {
		return "", err
	}
	out, err := Render(tmpl, b.Vars(opts))
	if err != nil {
		return "", fmt.Errorf("render %s prompt: %w", opts.Phase.Name, err)
	}
	return out, nil
}

func (b *Builder) readDoc(target, name string) string {
	data, found, err := b.store.ReadRaw(target, name)
	if err != nil || !found {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// addGitContext adds the working-tree diff when the target is a git
// checkout. Failures leave the variables empty.
func (b *Builder) addGitContext(target string, vars Vars) {
	vars["git_diff_summary"] = ""
	vars["files_changed"] = ""
	if b.git == nil {
		return
	}
	if _, err := os.Stat(filepath.Join(target, ".git")); err != nil {
		return
	}
	if summary, err := b.git.DiffSummary(target); err == nil {
		vars["git_diff_summary"] = summary
	}
	if files, err := b.git.FilesChanged(target); err == nil {
		vars["files_changed"] = files
	}
}

// priorPhaseSummary lists completed phases before order with their
// recorded summaries.
func priorPhaseSummary(ps *pipeline.PipelineStatus, order int) string {
	if ps == nil {
		return ""
	}
	var sb strings.Builder
	for _, p := range ps.Ordered() {
		if p.Order >= order || p.Status != pipeline.StatusCompleted {
			continue
		}
		fmt.Fprintf(&sb, "### %s (%s): %s\n", p.Label, p.Name, p.Status)
		if len(p.Summary) > 0 {
			if data, err := json.Marshal(p.Summary); err == nil {
				fmt.Fprintf(&sb, "%s\n", data)
			}
		}
		sb.WriteString("\n")
	}
	return strings.TrimSpace(sb.String())
}
