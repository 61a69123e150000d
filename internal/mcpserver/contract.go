package mcpserver

import (
	"fmt"
	"strings"

	"github.com/starford/saga/internal/entity"
)

const contractIntro = `# Saga Entity Format Contract

Every story entity is one Markdown file inside its kind folder, for example
` + "`Characters/Aria Vale.md`" + `. Use the save_entity tool rather than writing
files by hand; it keeps frontmatter order and unknown keys intact.

## Structure

` + "```" + `markdown
---
id: 7d0c2f4e-...          # assigned on create when missing
name: Aria Vale           # REQUIRED, also the file name
status: alive
traits:
  - brave
---

## Description
Free Markdown. Link other entities with [[Entity Name]] or [[Entity Name|alias]].

## Backstory
` + "```" + `

## Rules

1. Short fields live in YAML frontmatter; long-form fields are "## Heading" sections.
2. Keys already in a file are kept, with their order, even when the schema does not know them.
3. Empty values are only written for keys that already exist in the file.
4. The ` + "`position`" + ` key is editor metadata and is never written.
5. Event dates go in ` + "`dateTime`" + `. Accepted forms include ISO 8601 (` + "`2024-05-01T14:30`" + `),
   ` + "`15 March 44 BC`" + `, ` + "`500 BCE`" + `, ` + "`circa 1066`" + ` and month names in the vault locale.
6. Custom fields are top-level keys (flatten mode) or live under ` + "`customFields`" + ` (nested mode).
7. Images go through add_image and are referenced as ` + "`/images/<file>`" + `.

## Kinds
`

// EntityFormatContract returns the contract text with one table per kind.
func EntityFormatContract() string {
	var b strings.Builder
	b.WriteString(contractIntro)
	for _, k := range entity.Kinds() {
		s := entity.SchemaFor(k)
		fmt.Fprintf(&b, "\n### %s (folder `%s`)\n\n", k, s.Folder)
		b.WriteString("| key | stored as |\n|---|---|\n")
		for _, f := range s.Fields {
			switch f.Category {
			case entity.Section:
				fmt.Fprintf(&b, "| %s | section `## %s` |\n", f.Key, f.Heading)
			case entity.Custom:
				fmt.Fprintf(&b, "| %s | custom fields |\n", f.Key)
			default:
				if f.List {
					fmt.Fprintf(&b, "| %s | frontmatter list |\n", f.Key)
				} else {
					fmt.Fprintf(&b, "| %s | frontmatter |\n", f.Key)
				}
			}
		}
	}
	return b.String()
}
