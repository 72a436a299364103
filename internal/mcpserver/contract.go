package mcpserver

// SkillFormatContract describes the canonical SKILL.md format that
// LLM consumers should follow when creating skills.
const SkillFormatContract = `# Sowilo Skill Format Contract

Every skill is a directory containing a SKILL.md manifest plus optional
asset files. The manifest MUST follow this structure.

## Structure

` + "```" + `markdown
---
name: my-skill                       # REQUIRED - hyphen-case, equals the directory name
description: One-line summary of     # REQUIRED - non-empty; shown in listings and search
  what the skill does and when to use it.
license: Apache-2.0                  # OPTIONAL - license identifier string
allowed-tools:                       # OPTIONAL - YAML list of tool names
  - bash
  - read_file
metadata:                            # OPTIONAL - string-keyed mapping, passed through verbatim
  version: "1.2"
---

Markdown guidance body: instructions, examples, caveats.
` + "```" + `

## Rules

1. **YAML frontmatter is mandatory.** The opening ` + "`---`" + ` must be the first
   line of the file and the block must be closed with a second ` + "`---`" + ` line.
2. **` + "`name`" + ` must equal the directory name.** A skill at
   ` + "`document-skills/docx/SKILL.md`" + ` must declare ` + "`name: docx`" + `.
3. **Names are hyphen-case**: lowercase letters, digits, and single hyphens.
4. **` + "`description`" + ` is required** and should state both what the skill does
   and when an agent should reach for it.
5. **Assets** are ordinary files next to SKILL.md (scripts, templates,
   reference material). Address them by their path relative to the skill
   directory. Paths prefixed ` + "`@user/`" + ` live in the user overlay.
6. **Notes are additive.** Use ` + "`store_skill_note`" + ` to record corrections or
   better examples; notes land under ` + "`_notes/`" + ` and existing files are never
   edited. Over time notes guide maintainers to improve the canonical SKILL.md.
7. **Nothing is deleted in place.** ` + "`trash_skill`" + ` and ` + "`trash_skill_asset`" + `
   relocate files into a timestamped trash area; vendor skills (from the
   mirrored root) are protected from destructive moves.
8. **Encoding** is UTF-8 with a trailing newline.

## Example

` + "```" + `markdown
---
name: pdf-extract
description: Extract text and tables from PDF files. Use when the user
  supplies a PDF and asks questions about its contents.
allowed-tools:
  - bash
---

# PDF extraction

Run ` + "`scripts/extract.py <file.pdf>`" + ` to dump text per page...
` + "```" + `
`
