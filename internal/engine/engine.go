// Package engine runs one question through the full pipeline: table
// selection, prompt construction, model invocation, SQL validation and
// execution. Failures end the pipeline early and are reported inside the
// Result rather than as Go errors, so an interactive host keeps running.
package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/askdb/askdb/internal/errors"
	"github.com/askdb/askdb/internal/llm"
	"github.com/askdb/askdb/internal/pool"
	"github.com/askdb/askdb/internal/schema"
	"github.com/askdb/askdb/internal/selector"
	"github.com/askdb/askdb/internal/sqlsafe"
)

// Pipeline states, recorded on log lines for correlation.
const (
	StateReceived       = "RECEIVED"
	StateTablesSelected = "TABLES_SELECTED"
	StatePromptBuilt    = "PROMPT_BUILT"
	StateModelInvoked   = "MODEL_INVOKED"
	StateSQLValidated   = "SQL_VALIDATED"
	StateExecuted       = "EXECUTED"
	StateSucceeded      = "SUCCEEDED"
	StateFailed         = "FAILED"
)

// Result statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Stage names used as timing keys.
const (
	StageSelectTables = "select_tables"
	StageBuildPrompt  = "build_prompt"
	StageInvokeModel  = "invoke_model"
	StageValidateSQL  = "validate_sql"
	StageExecute      = "execute"
	StageTotal        = "total"
)

// Result carries everything one query produced, including the failure when
// there was one.
type Result struct {
	ID          string                   `json:"id"`
	Question    string                   `json:"question"`
	State       string                   `json:"state"`
	Status      string                   `json:"status"`
	SQL         string                   `json:"sql,omitempty"`
	Columns     []string                 `json:"columns,omitempty"`
	Rows        [][]any                  `json:"rows,omitempty"`
	RowCount    int                      `json:"row_count"`
	Warnings    []string                 `json:"warnings,omitempty"`
	Error       string                   `json:"error,omitempty"`
	ErrorType   errors.ErrorType         `json:"error_type,omitempty"`
	Suggestions []string                 `json:"suggestions,omitempty"`
	Timings     map[string]time.Duration `json:"timings"`
}

// Engine holds the wired collaborators for query execution. Hosts own the
// lifetime of every dependency; the engine never reaches for globals.
type Engine struct {
	snapshot   *schema.Snapshot
	embeddings map[string][]float32
	selector   *selector.Selector
	model      llm.Service
	pool       *pool.Pool
	logger     *zap.Logger
}

// New wires an engine from an already-loaded snapshot and its
// collaborators.
func New(snapshot *schema.Snapshot, embeddings map[string][]float32, sel *selector.Selector,
	model llm.Service, p *pool.Pool, logger *zap.Logger,
) *Engine {
	return &Engine{
		snapshot:   snapshot,
		embeddings: embeddings,
		selector:   sel,
		model:      model,
		pool:       p,
		logger:     logger,
	}
}

// Snapshot returns the schema the engine answers against.
func (e *Engine) Snapshot() *schema.Snapshot {
	return e.snapshot
}

// TableEmbeddings returns the cached per-table vectors, nil when embeddings
// are disabled.
func (e *Engine) TableEmbeddings() map[string][]float32 {
	return e.embeddings
}

// Query runs the pipeline for one question. The returned Result always has
// a status, a final state and per-stage timings; it is never nil.
func (e *Engine) Query(ctx context.Context, question string) *Result {
	started := time.Now()

	result := &Result{
		ID:       uuid.NewString(),
		Question: question,
		State:    StateReceived,
		Timings:  make(map[string]time.Duration),
	}

	log := e.logger.With(zap.String("query_id", result.ID))
	log.Info("query received", zap.String("question", question))

	stageStart := time.Now()
	tables := e.selector.Select(question, e.snapshot)
	result.Timings[StageSelectTables] = time.Since(stageStart)
	result.State = StateTablesSelected

	names := make([]string, 0, len(tables))
	for _, t := range tables {
		names = append(names, t.Name)
	}

	log.Debug("tables selected",
		zap.String("state", result.State),
		zap.Strings("tables", names),
		zap.Duration("elapsed", result.Timings[StageSelectTables]))

	stageStart = time.Now()
	dialect := llm.DialectFor(e.pool.Driver())
	prompt := llm.BuildPrompt(dialect, selector.RenderCompact(tables), question)
	result.Timings[StageBuildPrompt] = time.Since(stageStart)
	result.State = StatePromptBuilt

	log.Debug("prompt built",
		zap.String("state", result.State),
		zap.Int("chars", len(prompt)))

	stageStart = time.Now()
	raw, err := e.model.Complete(ctx, prompt)
	result.Timings[StageInvokeModel] = time.Since(stageStart)

	if err != nil {
		return e.fail(result, err, started, log)
	}

	result.State = StateModelInvoked

	log.Debug("model invoked",
		zap.String("state", result.State),
		zap.Duration("elapsed", result.Timings[StageInvokeModel]))

	stageStart = time.Now()
	sql, err := sqlsafe.Validate(raw)
	result.Timings[StageValidateSQL] = time.Since(stageStart)

	if err != nil {
		return e.fail(result, err, started, log)
	}

	result.SQL = sql
	result.State = StateSQLValidated

	if unknown := sqlsafe.CheckColumns(sql, e.snapshot); len(unknown) > 0 {
		result.Warnings = unknown
		log.Warn("identifiers not found in schema", zap.Strings("identifiers", unknown))
	}

	log.Debug("sql validated", zap.String("state", result.State), zap.String("sql", sql))

	stageStart = time.Now()
	rows, err := e.pool.Execute(ctx, sql)
	result.Timings[StageExecute] = time.Since(stageStart)

	if err != nil {
		return e.fail(result, err, started, log)
	}

	result.State = StateExecuted
	result.Columns = rows.Columns
	result.Rows = rows.Rows
	result.RowCount = rows.Len()

	result.State = StateSucceeded
	result.Status = StatusSuccess
	result.Timings[StageTotal] = time.Since(started)

	log.Info("query succeeded",
		zap.String("state", result.State),
		zap.Int("rows", result.RowCount),
		zap.Duration("total", result.Timings[StageTotal]))

	return result
}

func (e *Engine) fail(result *Result, err error, started time.Time, log *zap.Logger) *Result {
	result.State = StateFailed
	result.Status = StatusError
	result.Error = err.Error()
	result.ErrorType = errors.GetType(err)
	result.Suggestions = errors.GetSuggestions(err)
	result.Timings[StageTotal] = time.Since(started)

	log.Error("query failed",
		zap.String("state", result.State),
		zap.String("error_type", string(result.ErrorType)),
		zap.Error(err))

	return result
}
