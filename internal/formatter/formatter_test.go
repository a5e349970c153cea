package formatter

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/askdb/askdb/internal/cache"
	"github.com/askdb/askdb/internal/engine"
	"github.com/askdb/askdb/internal/pool"
	"github.com/askdb/askdb/internal/schema"
	"github.com/askdb/askdb/internal/testutil"
)

func TestFormatRowsAligned(t *testing.T) {
	f := NewFormatter()

	out := f.FormatRows(
		[]string{"ProductName", "Stock"},
		[][]any{
			{"Laptop", int64(12)},
			{"无线鼠标", int64(250)},
		},
	)

	expected := strings.Join([]string{
		"ProductName  Stock",
		"-----------  -----",
		"Laptop       12",
		"无线鼠标         250",
	}, "\n")
	assert.Equal(t, expected, out)
}

func TestFormatRowsEmpty(t *testing.T) {
	f := NewFormatter()

	out := f.FormatRows([]string{"n"}, nil)

	assert.Equal(t, "n\n-\n(no rows)", out)
}

func TestFormatRowsNoColumns(t *testing.T) {
	f := NewFormatter()

	assert.Equal(t, "(no columns)", f.FormatRows(nil, nil))
}

func TestFormatRowsValueKinds(t *testing.T) {
	f := NewFormatter()

	out := f.FormatRows(
		[]string{"a", "b", "c", "d"},
		[][]any{{nil, time.Date(2024, 5, 1, 8, 30, 0, 0, time.UTC), 3.5, true}},
	)

	assert.Contains(t, out, "NULL")
	assert.Contains(t, out, "2024-05-01 08:30:00")
	assert.Contains(t, out, "3.5")
	assert.Contains(t, out, "true")
}

func TestFormatResultSuccess(t *testing.T) {
	f := NewFormatter()

	res := &engine.Result{
		Status:   engine.StatusSuccess,
		SQL:      "SELECT ProductName FROM Products",
		Columns:  []string{"ProductName"},
		Rows:     [][]any{{"Laptop"}},
		RowCount: 1,
		Timings: map[string]time.Duration{
			engine.StageTotal: 1500 * time.Millisecond,
		},
	}

	out := f.FormatResult(res)

	assert.Contains(t, out, "Generated SQL:\nSELECT ProductName FROM Products")
	assert.Contains(t, out, "Laptop")
	assert.Contains(t, out, "1 row (1.50s)")
	assert.NotContains(t, out, "warning:")
}

func TestFormatResultRowsPlural(t *testing.T) {
	f := NewFormatter()

	res := &engine.Result{
		Status:   engine.StatusSuccess,
		SQL:      "SELECT 1",
		Columns:  []string{"n"},
		Rows:     [][]any{{int64(1)}, {int64(2)}},
		RowCount: 2,
		Timings: map[string]time.Duration{
			engine.StageTotal: 40 * time.Millisecond,
		},
	}

	out := f.FormatResult(res)

	assert.Contains(t, out, "2 rows (40ms)")
}

func TestFormatResultWarnings(t *testing.T) {
	f := NewFormatter()

	res := &engine.Result{
		Status:   engine.StatusSuccess,
		SQL:      "SELECT Prodct FROM Products",
		Columns:  []string{"Prodct"},
		RowCount: 0,
		Warnings: []string{"identifier not found in schema: Prodct"},
	}

	out := f.FormatResult(res)

	assert.Contains(t, out, "warning: identifier not found in schema: Prodct")
}

func TestFormatResultFailure(t *testing.T) {
	f := NewFormatter()

	res := &engine.Result{
		Status:      engine.StatusError,
		Error:       "only SELECT statements are allowed",
		Suggestions: []string{"Ask for a read-only query; the statement must start with SELECT"},
	}

	out := f.FormatResult(res)

	assert.Contains(t, out, "Query failed: only SELECT statements are allowed")
	assert.Contains(t, out, "  hint: Ask for a read-only query")
	assert.NotContains(t, out, "Generated SQL:")
}

func TestFormatResultFailureWithSQL(t *testing.T) {
	f := NewFormatter()

	res := &engine.Result{
		Status: engine.StatusError,
		Error:  "query failed after 0.10s",
		SQL:    "SELECT * FROM Products",
	}

	out := f.FormatResult(res)

	assert.Contains(t, out, "Query failed: query failed after 0.10s")
	assert.Contains(t, out, "Generated SQL:\nSELECT * FROM Products")
}

func TestFormatTimings(t *testing.T) {
	f := NewFormatter()

	out := f.FormatTimings(map[string]time.Duration{
		engine.StageSelectTables: 2 * time.Millisecond,
		engine.StageBuildPrompt:  time.Millisecond,
		engine.StageInvokeModel:  1200 * time.Millisecond,
		engine.StageValidateSQL:  time.Millisecond,
		engine.StageExecute:      15 * time.Millisecond,
		engine.StageTotal:        1219 * time.Millisecond,
	})

	assert.Contains(t, out, "Stage timings:")
	assert.Contains(t, out, "select_tables  2ms")
	assert.Contains(t, out, "invoke_model   1.20s")

	// Stages are listed in pipeline order, not map order.
	assert.Less(t, strings.Index(out, "select_tables"), strings.Index(out, "invoke_model"))
	assert.Less(t, strings.Index(out, "invoke_model"), strings.Index(out, "total"))
}

func TestFormatTimingsSkipsMissingStages(t *testing.T) {
	f := NewFormatter()

	out := f.FormatTimings(map[string]time.Duration{
		engine.StageInvokeModel: time.Second,
		engine.StageTotal:       time.Second,
	})

	assert.NotContains(t, out, "select_tables")
	assert.NotContains(t, out, "execute")
	assert.Contains(t, out, "invoke_model")
}

func TestFormatPoolStatusUninitialized(t *testing.T) {
	f := NewFormatter()

	out := f.FormatPoolStatus(pool.Status{State: pool.StateUninitialized})

	assert.Equal(t, "state: uninitialized", out)
}

func TestFormatPoolStatusActive(t *testing.T) {
	f := NewFormatter()

	out := f.FormatPoolStatus(pool.Status{
		State:     pool.StateActive,
		Total:     3,
		InUse:     1,
		Available: 2,
		Overflow:  0,
		MaxSize:   5,
	})

	expected := strings.Join([]string{
		"state: active",
		"total: 3",
		"in_use: 1",
		"available: 2",
		"overflow: 0",
		"max_size: 5",
	}, "\n")
	assert.Equal(t, expected, out)
}

func TestFormatTables(t *testing.T) {
	f := NewFormatter()

	out := f.FormatTables(testutil.SampleTables())

	lines := strings.Split(out, "\n")
	assert.Len(t, lines, 5)
	assert.Equal(t, "Products - 产品信息表，存储所有销售产品的详细信息", lines[0])
}

func TestFormatTablesWithoutComment(t *testing.T) {
	f := NewFormatter()

	out := f.FormatTables([]schema.Table{{Name: "Bare"}})

	assert.Equal(t, "Bare - no description", out)
}

func TestFormatTablesEmpty(t *testing.T) {
	f := NewFormatter()

	assert.Equal(t, "(no tables)", f.FormatTables(nil))
}

func TestFormatCacheEntries(t *testing.T) {
	f := NewFormatter()

	out := f.FormatCacheEntries("/tmp/cache", []cache.EntryInfo{
		{
			Key:     "schema_v1.0_abc",
			Size:    2048,
			ModTime: time.Date(2024, 5, 1, 8, 30, 0, 0, time.UTC),
		},
	})

	assert.Contains(t, out, "Cache directory: /tmp/cache")
	assert.Contains(t, out, "schema_v1.0_abc  2.0 KB  2024-05-01 08:30:00")
}

func TestFormatCacheEntriesEmpty(t *testing.T) {
	f := NewFormatter()

	out := f.FormatCacheEntries("/tmp/cache", nil)

	assert.Contains(t, out, "(empty)")
}
