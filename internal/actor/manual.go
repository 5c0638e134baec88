package actor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/ajrichter/my-agents-cc/internal/prompt"
	"github.com/ajrichter/my-agents-cc/internal/tracking"
)

// ManualRunner hands phases to a human-driven actor. When the phase output
// is missing it writes the phase prompt, prints how to run the actor and
// reports Pending; once the actor has written its output document the
// next run picks it up.
type ManualRunner struct {
	store   *tracking.Store
	prompts *prompt.Builder
	out     io.Writer
}

// NewManualRunner creates a ManualRunner printing instructions to out.
func NewManualRunner(store *tracking.Store, prompts *prompt.Builder, out io.Writer) *ManualRunner {
	if out == nil {
		out = io.Discard
	}
	return &ManualRunner{store: store, prompts: prompts, out: out}
}

// Run implements Runner.
func (r *ManualRunner) Run(ctx context.Context, req Request) (*Result, error) {
	name := req.Phase.Name
	outputName := tracking.OutputFile(name)

	data, found, err := r.store.ReadRaw(req.Target, outputName)
	if err != nil {
		return nil, err
	}
	if found {
		if msg, failed := reportedError(data); failed {
			slog.Debug("actor reported failure", "target", req.Target, "phase", name, "error", msg)
			return &Result{Kind: Failure, Message: msg}, nil
		}
		return &Result{Kind: Output, Output: json.RawMessage(data)}, nil
	}

	text, err := r.prompts.Render(prompt.BuildOpts{
		Target:   req.Target,
		Phase:    req.Phase,
		Loop:     req.Loop,
		MaxLoops: req.MaxLoops,
		Status:   req.Status,
	})
	if err != nil {
		return nil, err
	}
	promptPath, err := r.store.WriteRaw(req.Target, tracking.PromptFile(name), []byte(text))
	if err != nil {
		return nil, fmt.Errorf("write prompt: %w", err)
	}

	r.printInstructions(req, promptPath, r.store.Path(req.Target, outputName))
	return &Result{Kind: Pending, PromptFile: promptPath}, nil
}

func (r *ManualRunner) printInstructions(req Request, promptPath, outputPath string) {
	heading := fmt.Sprintf("Run the %s agent (%s)", req.Phase.Label, req.Phase.Name)
	if req.Loop > 0 {
		heading += fmt.Sprintf(", loop %d/%d", req.Loop, req.MaxLoops)
	}
	fmt.Fprintf(r.out, "%s:\n", heading)
	fmt.Fprintf(r.out, "  cd %q\n", req.Target)
	fmt.Fprintf(r.out, "  prompt: %s\n", promptPath)
	fmt.Fprintf(r.out, "When it finishes, its output must be at:\n  %s\n", outputPath)
	fmt.Fprintf(r.out, "Then re-run this command to continue.\n")
}

// reportedError extracts a non-empty top-level "error" string, the way an
// actor signals that it could not do the work.
func reportedError(data []byte) (string, bool) {
	var report struct {
		Error any `json:"error"`
	}
	if err := json.Unmarshal(data, &report); err != nil {
		return "", false
	}
	msg, ok := report.Error.(string)
	if !ok || strings.TrimSpace(msg) == "" {
		return "", false
	}
	return msg, true
}
