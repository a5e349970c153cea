package schema

import (
	"fmt"
	"strings"
)

// RenderTables produces the human-readable rendering of a set of tables:
// name, comment, and one line per column with its type string. It backs
// full-schema display and the per-table text handed to embedding
// providers.
func RenderTables(tables []Table) string {
	var b strings.Builder

	for i, t := range tables {
		if i > 0 {
			b.WriteString("\n")
		}

		fmt.Fprintf(&b, "Table: %s\n", t.Name)

		if t.Comment != "" {
			fmt.Fprintf(&b, "Comment: %s\n", t.Comment)
		}

		b.WriteString("Columns:\n")

		for _, c := range t.Columns {
			line := fmt.Sprintf("  - %s: %s", c.Name, c.TypeString())

			if !c.Nullable {
				line += " NOT NULL"
			}

			if c.Comment != "" {
				line += ", " + c.Comment
			}

			b.WriteString(line + "\n")
		}
	}

	return b.String()
}

// Render produces the rendering of the whole snapshot.
func Render(s *Snapshot) string {
	return RenderTables(s.Tables)
}
