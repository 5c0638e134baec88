package prompt

// builtinTemplates maps template filename to content.
var builtinTemplates = map[string]string{
	"discoverer.md": discovererTemplate,
	"builder.md":    builderTemplate,
	"inspector.md":  inspectorTemplate,
}

const discovererTemplate = `# {{label}}: scan {{target}}

You are running as the "{{phase}}" agent against the repository at
{{target}}. Work inside that directory only.

## Goal
Find every place in the codebase that calls one of the HTTP endpoints
listed below and plan how each call will be migrated.

{{#if input_doc}}
## Endpoints
` + "```json" + `
{{input_doc}}
` + "```" + `
{{/if}}

## Instructions
1. Detect the primary language of the repository.
2. Search source files for each endpoint's method and path, including
   string concatenation and template literal forms.
3. Record each call site with file, line and a short context snippet.
4. Record which paths you scanned and how many files you looked at:
   agents manifest record-scan --target {{target}} --path <dir> --total <n>

## Output
Write a JSON document to:

    {{output_file}}

with the fields repoPath, scannedFiles, language and occurrences (each
occurrence has endpoint and locations). If you cannot complete the scan,
write {"error": "<reason>"} instead.
`

const builderTemplate = `# {{label}}: implement changes in {{target}}
{{#if loop}}
Loop {{loop}} of {{max_loops}}.
{{/if}}

You are running as the "{{phase}}" agent against the repository at
{{target}}. Work inside that directory only.

## Goal
Implement the migration planned by the discoverer, test first.

{{#if discoverer_output}}
## Discoverer Output
` + "```json" + `
{{discoverer_output}}
` + "```" + `
{{/if}}
{{#if loop_instructions}}
## Items From The Previous Inspection
The inspector sent this work back. Address every item before anything
else.
` + "```json" + `
{{loop_instructions}}
` + "```" + `
{{/if}}
{{#if prior_phase_summary}}
## Prior Phases
{{prior_phase_summary}}
{{/if}}

## Instructions
1. Write a failing test for each call site before changing it.
2. Replace the call and make the test pass.
3. Run the full test suite.
4. Record every file you touch:
   agents manifest record-change --target {{target}} --agent {{phase}} --file <path> --type created|modified|deleted --description "<what>"

## Output
Write a JSON document to:

    {{output_file}}

with the fields generatedFiles, testResults (total, passed, failed) and
modifiedFiles. If you cannot finish, write {"error": "<reason>"} instead.
`

const inspectorTemplate = `# {{label}}: review {{target}}
{{#if loop}}
Reviewing loop {{loop}} of {{max_loops}}.
{{/if}}

You are running as the "{{phase}}" agent against the repository at
{{target}}. Do not modify source files.

## Goal
Validate the builder's changes: lint, tests and code review of every
changed file.

{{#if discoverer_output}}
## Discoverer Output
` + "```json" + `
{{discoverer_output}}
` + "```" + `
{{/if}}
{{#if builder_output}}
## Builder Output
` + "```json" + `
{{builder_output}}
` + "```" + `
{{/if}}
{{#if git_diff_summary}}
## Diff Summary
` + "```" + `
{{git_diff_summary}}
` + "```" + `
{{/if}}
{{#if files_changed}}
## Files Changed
{{files_changed}}
{{/if}}

## Output
Write a JSON document to:

    {{output_file}}

with validationResults (passed, checks) and requiresBuilderLoop. When the
builder must do another pass, set requiresBuilderLoop to true and give a
loopReason and the loopItems to fix. Optional fields: recommendations,
changedFileReview, confidenceScore (0-100). If you cannot finish the
review, write {"error": "<reason>"} instead.
`
