package mcpserver

// SourceFormatContract describes the canonical monolithic prompt document
// format that LLM consumers should follow when authoring documents intended
// for migration.
const SourceFormatContract = `# Dagaz Source Document Format Contract

Every monolithic prompt document migrated by Dagaz SHOULD follow this
structure. The migrator is total (every line lands somewhere), but documents
that follow the contract classify cleanly and derive a complete
configuration record.

## Structure

` + "```" + `markdown
---
name: code-reviewer                 # OPTIONAL – agent id; file stem used when absent
role: reviewer                      # REQUIRED – implementer | reviewer | planner | utility
domain: backend                     # OPTIONAL – used to partition the skill catalog
broad_context: false                # OPTIONAL – overrides role default when present
no_domain_skills: false             # OPTIONAL – overrides role default when present
---

Leading prose before the first named section is treated as introduction.

<role>
You are a meticulous code reviewer.
</role>

<workflow>
## Steps
1. Read the diff.
2. Leave comments.
</workflow>

<examples>
...worked examples...
</examples>

<critical_requirements>
...hard constraints...
</critical_requirements>

<critical_reminders>
...final reminders...
</critical_reminders>
` + "```" + `

## Rules

1. **YAML frontmatter fences** (` + "`" + `---` + "`" + `) must be the first thing in the file when
   present. ` + "`" + `role` + "`" + ` must name a known role or the migration is rejected.
2. **Named sections** are opened by ` + "`" + `<name>` + "`" + ` and closed by ` + "`" + `</name>` + "`" + `, each
   standing alone on its line. Names are lowercase (` + "`" + `[a-z][a-z0-9_-]*` + "`" + `).
   An unclosed section degrades to plain text and is reported as a warning.
3. **Section vocabulary.** ` + "`" + `role` + "`" + ` and ` + "`" + `intro` + "`" + ` map to the introduction;
   ` + "`" + `examples` + "`" + `, ` + "`" + `critical_requirements` + "`" + `, and ` + "`" + `critical_reminders` + "`" + ` map to
   their categories; unrecognized section names fall through to the workflow.
4. **Inclusion directives** are infrastructure and are discarded, with their
   targets recorded in the discard manifest. Recognized forms, each alone on
   a line:
   - ` + "`" + `{{include: path}}` + "`" + ` (also ` + "`" + `inject` + "`" + ` and ` + "`" + `import` + "`" + ` verbs)
   - ` + "`" + `<!-- include: path -->` + "`" + `
5. **Trailing boilerplate** appended by the legacy framework is stripped:
   the ` + "`" + `--- END OF SYSTEM PROMPT ---` + "`" + ` line and the fixed generator strings.
   Near-matches are kept as content.
6. **Encoding** is UTF-8. Paths use forward slashes and end with ` + "`" + `.md` + "`" + `.

## What migration produces

- Five artifacts per agent: ` + "`" + `intro.md` + "`" + `, ` + "`" + `workflow.md` + "`" + `, ` + "`" + `examples.md` + "`" + `,
  ` + "`" + `critical-requirements.md` + "`" + `, ` + "`" + `critical-reminders.md` + "`" + ` (placeholder bodies
  for empty categories).
- A ` + "`" + `discard-manifest.json` + "`" + ` naming every discarded block and stripped line.
- A configuration record (prompt sets, output format, skill partition)
  derived from the role/domain decision table.

Content is verified byte-for-byte (ignoring whitespace): every non-discarded
byte of the source must land in exactly one artifact or the run fails.
`
