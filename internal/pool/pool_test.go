package pool

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	askerrors "github.com/askdb/askdb/internal/errors"
)

func testDescriptor() Descriptor {
	return Descriptor{
		Driver:   "mssql",
		Server:   "db.example.com",
		Database: "Sales",
		Username: "reader",
		Password: "hunter2",
	}
}

func testConfig() Config {
	return Config{
		MaxSize:           5,
		MaxOverflow:       10,
		AcquireTimeout:    5 * time.Second,
		RecycleAfter:      30 * time.Minute,
		ValidateBeforeUse: true,
	}
}

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)

	return db, mock
}

// managerWith returns a manager whose pool opens against the given mock
// handle instead of a real driver.
func managerWith(db *sql.DB) (*Manager, *int) {
	opens := 0
	m := NewManager(zap.NewNop())
	m.openDB = func(driverName, dsn string) (*sql.DB, error) {
		opens++
		return db, nil
	}

	return m, &opens
}

func TestManagerStatusUninitialized(t *testing.T) {
	m := NewManager(zap.NewNop())

	status := m.Status()
	assert.Equal(t, "uninitialized", status.State)
	assert.Zero(t, status.Total)
	assert.Zero(t, status.InUse)
	assert.Zero(t, status.Available)
	assert.Zero(t, status.Overflow)
}

func TestManagerGetBuildsOnce(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectPing()

	m, opens := managerWith(db)

	first, err := m.Get(context.Background(), testDescriptor(), testConfig())
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, 1, *opens)

	second, err := m.Get(context.Background(), testDescriptor(), testConfig())
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, *opens)

	status := m.Status()
	assert.Equal(t, "active", status.State)
	assert.Equal(t, 5, status.MaxSize)
}

func TestManagerGetNewReplacesPool(t *testing.T) {
	first, firstMock := newMock(t)
	firstMock.ExpectPing()
	firstMock.ExpectClose()

	second, secondMock := newMock(t)
	secondMock.ExpectPing()

	handles := []*sql.DB{first, second}
	m := NewManager(zap.NewNop())
	m.openDB = func(driverName, dsn string) (*sql.DB, error) {
		db := handles[0]
		handles = handles[1:]
		return db, nil
	}

	p1, err := m.Get(context.Background(), testDescriptor(), testConfig())
	require.NoError(t, err)

	p2, err := m.GetNew(context.Background(), testDescriptor(), testConfig())
	require.NoError(t, err)

	assert.NotSame(t, p1, p2)
	assert.Same(t, p2, m.Current())
	require.NoError(t, firstMock.ExpectationsWereMet())
}

func TestManagerGetPingFailure(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectPing().WillReturnError(errors.New("login failed"))
	mock.ExpectClose()

	m, _ := managerWith(db)

	_, err := m.Get(context.Background(), testDescriptor(), testConfig())
	require.Error(t, err)
	assert.True(t, askerrors.IsType(err, askerrors.ErrTypePoolInit))
	assert.Contains(t, err.Error(), "db.example.com/Sales")
	assert.NotContains(t, err.Error(), "hunter2")

	// A failed build leaves the manager uninitialized.
	assert.Equal(t, "uninitialized", m.Status().State)
}

func TestManagerClose(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectPing()
	mock.ExpectClose()

	m, _ := managerWith(db)

	_, err := m.Get(context.Background(), testDescriptor(), testConfig())
	require.NoError(t, err)

	require.NoError(t, m.Close())
	assert.Equal(t, "uninitialized", m.Status().State)
	require.NoError(t, m.Close())
}

func TestPoolExecute(t *testing.T) {
	db, mock := newMock(t)
	defer db.Close()

	mock.ExpectPing()
	mock.ExpectQuery("SELECT (.+) FROM Products").WillReturnRows(
		sqlmock.NewRows([]string{"ProductID", "ProductName"}).
			AddRow(1, "Widget").
			AddRow(2, "Gadget"))

	p := NewPoolFromDB(db, testDescriptor(), testConfig(), zap.NewNop())

	result, err := p.Execute(context.Background(), "SELECT ProductID, ProductName FROM Products")
	require.NoError(t, err)

	assert.Equal(t, []string{"ProductID", "ProductName"}, result.Columns)
	assert.Equal(t, 2, result.Len())
	assert.EqualValues(t, 1, result.Rows[0][0])
	assert.Equal(t, "Widget", result.Rows[0][1])

	records := result.Records()
	require.Len(t, records, 2)
	assert.Equal(t, "Gadget", records[1]["ProductName"])
}

func TestPoolExecuteTextBytesBecomeStrings(t *testing.T) {
	db, mock := newMock(t)
	defer db.Close()

	mock.ExpectPing()
	mock.ExpectQuery("SELECT (.+)").WillReturnRows(
		sqlmock.NewRows([]string{"FaultDesc"}).AddRow([]byte("主轴异响")))

	p := NewPoolFromDB(db, testDescriptor(), testConfig(), zap.NewNop())

	result, err := p.Execute(context.Background(), "SELECT FaultDesc FROM MesMachineMaintain")
	require.NoError(t, err)
	assert.Equal(t, "主轴异响", result.Rows[0][0])
}

func TestPoolExecuteQueryError(t *testing.T) {
	db, mock := newMock(t)
	defer db.Close()

	mock.ExpectPing()
	mock.ExpectQuery("SELECT (.+)").WillReturnError(errors.New("table vanished"))

	p := NewPoolFromDB(db, testDescriptor(), testConfig(), zap.NewNop())

	_, err := p.Execute(context.Background(), "SELECT * FROM Gone")
	require.Error(t, err)
	assert.True(t, askerrors.IsType(err, askerrors.ErrTypeQueryExecution))
	assert.Contains(t, err.Error(), "query failed after")
}

func TestPoolExecuteValidationFailure(t *testing.T) {
	db, mock := newMock(t)
	defer db.Close()

	mock.ExpectPing().WillReturnError(errors.New("gone away"))

	p := NewPoolFromDB(db, testDescriptor(), testConfig(), zap.NewNop())

	_, err := p.Execute(context.Background(), "SELECT 1")
	require.Error(t, err)
	assert.True(t, askerrors.IsType(err, askerrors.ErrTypeQueryExecution))
}

func TestManagerStatusAfterQueryRelease(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectPing()
	mock.ExpectPing()
	mock.ExpectQuery("SELECT (.+)").WillReturnRows(
		sqlmock.NewRows([]string{"n"}).AddRow(1))

	m, _ := managerWith(db)

	p, err := m.Get(context.Background(), testDescriptor(), testConfig())
	require.NoError(t, err)

	_, err = p.Execute(context.Background(), "SELECT 1")
	require.NoError(t, err)

	// The connection is back in the pool once Execute returns.
	status := m.Status()
	assert.Equal(t, "active", status.State)
	assert.Zero(t, status.InUse)
	assert.GreaterOrEqual(t, status.Available, 1)
}
