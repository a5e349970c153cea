package cmd

import (
	"bytes"
	"context"
	"os"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/askdb/askdb/internal/engine"
	"github.com/askdb/askdb/internal/llm"
	"github.com/askdb/askdb/internal/pool"
	"github.com/askdb/askdb/internal/selector"
	"github.com/askdb/askdb/internal/testutil"
)

type fakeModel struct {
	text string
	err  error
}

func (f *fakeModel) Complete(_ context.Context, _ string) (string, error) {
	return f.text, f.err
}

// newTestEngine wires an engine over the sample schema, a fake model and a
// mock-backed pool.
func newTestEngine(t *testing.T, model llm.Service) (*engine.Engine, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	p := pool.NewPoolFromDB(db,
		pool.Descriptor{Driver: "mssql", Server: "db.example.com", Database: "Sales"},
		pool.Config{
			MaxSize:        5,
			MaxOverflow:    10,
			AcquireTimeout: 5 * time.Second,
			RecycleAfter:   30 * time.Minute,
		},
		zap.NewNop())

	sel := selector.New(testutil.SampleAliases(), 5, zap.NewNop())

	return engine.New(testutil.SampleSnapshot(), nil, sel, model, p, zap.NewNop()), mock
}

// captureOutput runs fn with stdout redirected and returns what it printed.
func captureOutput(t *testing.T, fn func() error) (string, error) {
	t.Helper()

	oldStdout := os.Stdout

	r, w, err := os.Pipe()
	require.NoError(t, err)

	os.Stdout = w

	runErr := fn()

	_ = w.Close()

	os.Stdout = oldStdout

	var buf bytes.Buffer
	_, _ = buf.ReadFrom(r)

	return buf.String(), runErr
}
