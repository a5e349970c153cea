// Package formatter renders query results, pool status, and schema
// listings as plain text for the terminal.
package formatter

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/askdb/askdb/internal/cache"
	"github.com/askdb/askdb/internal/engine"
	"github.com/askdb/askdb/internal/pool"
	"github.com/askdb/askdb/internal/schema"
)

// pipelineStages fixes the display order of stage timings; map iteration
// order would shuffle them between runs.
var pipelineStages = []string{
	engine.StageSelectTables,
	engine.StageBuildPrompt,
	engine.StageInvokeModel,
	engine.StageValidateSQL,
	engine.StageExecute,
	engine.StageTotal,
}

// Formatter handles terminal output formatting
type Formatter struct{}

// NewFormatter creates a new formatter instance
func NewFormatter() *Formatter {
	return &Formatter{}
}

// FormatResult renders one query outcome: the generated SQL, the result
// rows, any warnings, and the elapsed time. Failed queries render the
// error message and its suggestions instead.
func (f *Formatter) FormatResult(res *engine.Result) string {
	if res.Status != engine.StatusSuccess {
		return f.formatFailure(res)
	}

	var lines []string

	lines = append(lines, "Generated SQL:")
	lines = append(lines, res.SQL)
	lines = append(lines, "")
	lines = append(lines, f.FormatRows(res.Columns, res.Rows))

	for _, warning := range res.Warnings {
		lines = append(lines, "warning: "+warning)
	}

	summary := fmt.Sprintf("%d rows", res.RowCount)
	if res.RowCount == 1 {
		summary = "1 row"
	}

	if total, ok := res.Timings[engine.StageTotal]; ok {
		summary += fmt.Sprintf(" (%s)", f.formatDuration(total))
	}

	lines = append(lines, "")
	lines = append(lines, summary)

	return strings.Join(lines, "\n")
}

// formatFailure renders the error form of a result
func (f *Formatter) formatFailure(res *engine.Result) string {
	var lines []string

	lines = append(lines, "Query failed: "+res.Error)

	for _, suggestion := range res.Suggestions {
		lines = append(lines, "  hint: "+suggestion)
	}

	if res.SQL != "" {
		lines = append(lines, "")
		lines = append(lines, "Generated SQL:")
		lines = append(lines, res.SQL)
	}

	return strings.Join(lines, "\n")
}

// FormatRows renders columns and rows as an aligned text table. Widths
// follow the longest cell per column, counted in runes.
func (f *Formatter) FormatRows(columns []string, rows [][]any) string {
	if len(columns) == 0 {
		return "(no columns)"
	}

	cells := make([][]string, 0, len(rows))
	widths := make([]int, len(columns))

	for i, col := range columns {
		widths[i] = utf8.RuneCountInString(col)
	}

	for _, row := range rows {
		rendered := make([]string, len(columns))

		for i := range columns {
			var value any
			if i < len(row) {
				value = row[i]
			}

			rendered[i] = f.formatValue(value)
			if w := utf8.RuneCountInString(rendered[i]); w > widths[i] {
				widths[i] = w
			}
		}

		cells = append(cells, rendered)
	}

	var lines []string

	lines = append(lines, f.formatRow(columns, widths))

	separators := make([]string, len(columns))
	for i, w := range widths {
		separators[i] = strings.Repeat("-", w)
	}

	lines = append(lines, f.formatRow(separators, widths))

	for _, row := range cells {
		lines = append(lines, f.formatRow(row, widths))
	}

	if len(rows) == 0 {
		lines = append(lines, "(no rows)")
	}

	return strings.Join(lines, "\n")
}

// formatRow pads each cell to its column width and joins with two spaces
func (f *Formatter) formatRow(cells []string, widths []int) string {
	parts := make([]string, len(cells))

	for i, cell := range cells {
		pad := widths[i] - utf8.RuneCountInString(cell)
		if pad < 0 {
			pad = 0
		}

		parts[i] = cell + strings.Repeat(" ", pad)
	}

	return strings.TrimRight(strings.Join(parts, "  "), " ")
}

// formatValue renders a single cell value
func (f *Formatter) formatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return "NULL"
	case string:
		return v
	case time.Time:
		return v.Format("2006-01-02 15:04:05")
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// FormatTimings renders the per-stage timing block in pipeline order,
// skipping stages that never ran.
func (f *Formatter) FormatTimings(timings map[string]time.Duration) string {
	width := 0

	for _, stage := range pipelineStages {
		if _, ok := timings[stage]; ok && len(stage) > width {
			width = len(stage)
		}
	}

	var lines []string

	lines = append(lines, "Stage timings:")

	for _, stage := range pipelineStages {
		d, ok := timings[stage]
		if !ok {
			continue
		}

		lines = append(lines, fmt.Sprintf("  %-*s  %s", width, stage, f.formatDuration(d)))
	}

	return strings.Join(lines, "\n")
}

// FormatPoolStatus renders pool status as key: value lines
func (f *Formatter) FormatPoolStatus(status pool.Status) string {
	lines := []string{
		"state: " + status.State,
	}

	if status.State == pool.StateUninitialized {
		return strings.Join(lines, "\n")
	}

	lines = append(lines,
		"total: "+strconv.Itoa(status.Total),
		"in_use: "+strconv.Itoa(status.InUse),
		"available: "+strconv.Itoa(status.Available),
		"overflow: "+strconv.Itoa(status.Overflow),
		"max_size: "+strconv.Itoa(status.MaxSize),
	)

	return strings.Join(lines, "\n")
}

// FormatTables renders the available-tables listing, one table per line
func (f *Formatter) FormatTables(tables []schema.Table) string {
	if len(tables) == 0 {
		return "(no tables)"
	}

	lines := make([]string, 0, len(tables))

	for _, table := range tables {
		comment := table.Comment
		if comment == "" {
			comment = "no description"
		}

		lines = append(lines, table.Name+" - "+comment)
	}

	return strings.Join(lines, "\n")
}

// FormatCacheEntries renders the cache listing for `askdb cache info`
func (f *Formatter) FormatCacheEntries(directory string, entries []cache.EntryInfo) string {
	var lines []string

	lines = append(lines, "Cache directory: "+directory)

	if len(entries) == 0 {
		lines = append(lines, "(empty)")
		return strings.Join(lines, "\n")
	}

	for _, entry := range entries {
		lines = append(lines, fmt.Sprintf("  %s  %s  %s",
			entry.Key,
			f.formatSize(entry.Size),
			entry.ModTime.Format("2006-01-02 15:04:05")))
	}

	return strings.Join(lines, "\n")
}

// formatDuration rounds to a readable precision: sub-second values show
// milliseconds, longer ones hundredths of a second.
func (f *Formatter) formatDuration(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}

	return fmt.Sprintf("%.2fs", d.Seconds())
}

// formatSize renders a byte count with a binary unit
func (f *Formatter) formatSize(size int64) string {
	switch {
	case size >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(size)/(1<<20))
	case size >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(size)/(1<<10))
	default:
		return fmt.Sprintf("%d B", size)
	}
}
