package prompt

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRenderVars(t *testing.T) {
	result, err := Render("Run {{phase}} against {{target}}.", Vars{
		"phase":  "builder",
		"target": "/repos/api",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "Run builder against /repos/api." {
		t.Errorf("got %q", result)
	}
}

func TestRenderMissingVarsListed(t *testing.T) {
	_, err := Render("{{phase}} {{target}} {{output_file}}", Vars{"phase": "x"})
	if err == nil {
		t.Fatal("expected error for missing variables")
	}
	for _, name := range []string{"target", "output_file"} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("error should mention %s, got: %v", name, err)
		}
	}
}

func TestRenderConditionals(t *testing.T) {
	tmpl := "A{{#if loop}} loop {{loop}}{{/if}}B"
	tests := []struct {
		name string
		vars Vars
		want string
	}{
		{"set", Vars{"loop": "2"}, "A loop 2B"},
		{"unset", Vars{}, "AB"},
		{"empty", Vars{"loop": ""}, "AB"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Render(tmpl, tt.vars)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRenderNestedConditionals(t *testing.T) {
	tmpl := "S{{#if a}}outer {{#if b}}inner{{/if}} end{{/if}}F"
	cases := map[string]struct {
		vars Vars
		want string
	}{
		"both":       {Vars{"a": "1", "b": "1"}, "Souter inner endF"},
		"outer only": {Vars{"a": "1"}, "Souter  endF"},
		"neither":    {Vars{}, "SF"},
	}
	for name, c := range cases {
		got, err := Render(tmpl, c.vars)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", name, err)
		}
		if got != c.want {
			t.Errorf("%s: got %q, want %q", name, got, c.want)
		}
	}
}

func TestRenderValuesInsertedLiterally(t *testing.T) {
	got, err := Render("{{a}} / {{b}}", Vars{"a": "{{b}} {{/if}}", "b": "x"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "{{b}} {{/if}} / x" {
		t.Errorf("got %q", got)
	}
}

func TestRenderMalformedBlocks(t *testing.T) {
	if _, err := Render("x{{#if a}}y", Vars{"a": "1"}); err == nil || !strings.Contains(err.Error(), "unclosed") {
		t.Errorf("unclosed block: err = %v", err)
	}
	if _, err := Render("x{{/if}}", Vars{}); err == nil || !strings.Contains(err.Error(), "dangling") {
		t.Errorf("dangling close: err = %v", err)
	}
}

func TestLoadBuiltin(t *testing.T) {
	for _, phase := range []string{"discoverer", "builder", "inspector"} {
		tmpl, err := Load(phase, "")
		if err != nil {
			t.Errorf("Load(%s) error: %v", phase, err)
			continue
		}
		if !strings.Contains(tmpl, "{{output_file}}") {
			t.Errorf("%s template does not tell the actor where to write output", phase)
		}
	}
	if _, err := Load("deployer", ""); err == nil {
		t.Error("Load(deployer) should fail")
	}
}

func TestLoadOverride(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "builder.md"), []byte("custom {{phase}}"), 0o644); err != nil {
		t.Fatal(err)
	}

	tmpl, err := Load("builder", dir)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if tmpl != "custom {{phase}}" {
		t.Errorf("override not used: %q", tmpl)
	}

	// No override for this phase: falls back to the built-in.
	tmpl, err = Load("inspector", dir)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if tmpl != inspectorTemplate {
		t.Error("inspector did not fall back to the built-in template")
	}
}

func TestExport(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "prompts")
	written, err := Export(dir, false)
	if err != nil {
		t.Fatalf("Export() error: %v", err)
	}
	if len(written) != 3 {
		t.Fatalf("written = %v, want 3 templates", written)
	}

	custom := filepath.Join(dir, "builder.md")
	if err := os.WriteFile(custom, []byte("mine"), 0o644); err != nil {
		t.Fatal(err)
	}
	written, err = Export(dir, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(written) != 0 {
		t.Errorf("second Export() wrote %v, want nothing", written)
	}
	data, _ := os.ReadFile(custom)
	if string(data) != "mine" {
		t.Error("Export() overwrote a customized template")
	}

	if written, err = Export(dir, true); err != nil || len(written) != 3 {
		t.Errorf("Export(overwrite) = %v, %v", written, err)
	}
}

func TestBuiltinTemplatesRenderWithBaseVars(t *testing.T) {
	base := Vars{
		"phase":               "p",
		"label":               "L",
		"target":              "/t",
		"tracking_dir":        "/t/.agent-tracking",
		"output_file":         "/t/.agent-tracking/p-output.json",
		"max_loops":           "3",
		"loop":                "",
		"input_doc":           "",
		"discoverer_output":   "",
		"builder_output":      "",
		"loop_instructions":   "",
		"prior_phase_summary": "",
		"git_diff_summary":    "",
		"files_changed":       "",
	}
	for name, tmpl := range builtinTemplates {
		if _, err := Render(tmpl, base); err != nil {
			t.Errorf("%s: %v", name, err)
		}
	}
}
