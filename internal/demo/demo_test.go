package demo

import (
	"bytes"
	"context"
	"errors"
	"log"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hetulpatel/bqusers/internal/cache"
	"github.com/hetulpatel/bqusers/internal/storage/sqlite"
	"github.com/hetulpatel/bqusers/internal/users"
	"github.com/hetulpatel/bqusers/internal/warehouse"
)

// mockWarehouse records calls and returns canned results.
type mockWarehouse struct {
	insertErr error
	rows      []users.User
	queryErr  error
	avg       float64
	avgOK     bool
	avgErr    error

	calls   []string
	queries []string
	batch   []users.User
}

func (m *mockWarehouse) Insert(_ context.Context, dataset, table string, rows []users.User) (warehouse.InsertResponse, error) {
	m.calls = append(m.calls, "insert")
	m.batch = rows
	resp := warehouse.InsertResponse{Backend: "mock", Dataset: dataset, Table: table}
	if m.insertErr != nil {
		return resp, m.insertErr
	}
	resp.Rows = len(rows)
	return resp, nil
}

func (m *mockWarehouse) QueryUsers(_ context.Context, query string) ([]users.User, error) {
	m.calls = append(m.calls, "list")
	m.queries = append(m.queries, query)
	return m.rows, m.queryErr
}

func (m *mockWarehouse) QueryAverage(_ context.Context, query, column string) (float64, bool, error) {
	m.calls = append(m.calls, "average")
	m.queries = append(m.queries, query)
	return m.avg, m.avgOK, m.avgErr
}

func (m *mockWarehouse) Close() error { return nil }

type memAverages struct {
	records map[string]cache.AverageRecord
	getErr  error
}

func (c *memAverages) Get(_ context.Context, table string) (*cache.AverageRecord, bool, error) {
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	rec, ok := c.records[table]
	if !ok {
		return nil, false, nil
	}
	return &rec, true, nil
}

func (c *memAverages) Set(_ context.Context, table string, record cache.AverageRecord) error {
	c.records[table] = record
	return nil
}

func (c *memAverages) Close() error { return nil }

type countingWriter struct {
	n int
}

func (w *countingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.n += len(msgs)
	return nil
}

func testDeps(wh warehouse.Warehouse) Deps {
	return Deps{
		Warehouse:  wh,
		Generator:  users.NewGenerator(11),
		Target:     warehouse.DefaultTarget(),
		RowLimit:   warehouse.DefaultRowLimit,
		UsersCount: 500,
		Out:        &bytes.Buffer{},
	}
}

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })
	return &buf
}

func TestRunOrderAndQueries(t *testing.T) {
	wh := &mockWarehouse{rows: users.NewGenerator(1).Generate(3), avg: 8000, avgOK: true}
	report, err := Run(context.Background(), testDeps(wh))
	require.NoError(t, err)

	assert.Equal(t, []string{"insert", "list", "average"}, wh.calls)
	assert.Equal(t, []string{
		"SELECT * FROM emidataset.users LIMIT 20",
		"SELECT AVG(salary) AS average_salary FROM emidataset.users",
	}, wh.queries)
	assert.Len(t, wh.batch, 500)
	assert.True(t, report.Insert.OK())
	assert.Equal(t, 500, report.Insert.Response.Rows)
	assert.Len(t, report.Rows, 3)
	assert.True(t, report.Average.Present)
	assert.Equal(t, 8000.0, report.Average.Value)
}

func TestRunContinuesAfterInsertFailure(t *testing.T) {
	buf := captureLog(t)
	wh := &mockWarehouse{insertErr: errors.New("invalid credentials"), avgOK: false}

	report, err := Run(context.Background(), testDeps(wh))
	require.NoError(t, err)
	assert.False(t, report.Insert.OK())
	assert.EqualError(t, report.Insert.Err, "invalid credentials")
	assert.Equal(t, []string{"insert", "list", "average"}, wh.calls)
	assert.Contains(t, buf.String(), "insert failed: invalid credentials")
}

func TestRunStopsOnListFailure(t *testing.T) {
	wh := &mockWarehouse{queryErr: errors.New("table not found")}
	_, err := Run(context.Background(), testDeps(wh))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list rows")
	assert.Equal(t, []string{"insert", "list"}, wh.calls)
}

func TestRunAverageFailureIsAbsent(t *testing.T) {
	buf := captureLog(t)
	wh := &mockWarehouse{avgErr: errors.New("quota exceeded")}
	report, err := Run(context.Background(), testDeps(wh))
	require.NoError(t, err)
	assert.False(t, report.Average.Present)
	assert.Error(t, report.Average.Err)
	assert.Contains(t, buf.String(), "average salary: unavailable")
}

func TestRunRequiresDeps(t *testing.T) {
	_, err := Run(context.Background(), Deps{})
	require.Error(t, err)
}

func TestRunPublishesOnlyAfterSuccessfulInsert(t *testing.T) {
	w := &countingWriter{}
	deps := testDeps(&mockWarehouse{avgOK: false})
	deps.Publisher = w
	report, err := Run(context.Background(), deps)
	require.NoError(t, err)
	assert.Equal(t, 500, w.n)
	assert.NotEmpty(t, report.BatchID)

	w = &countingWriter{}
	deps = testDeps(&mockWarehouse{insertErr: errors.New("boom")})
	deps.Publisher = w
	report, err = Run(context.Background(), deps)
	require.NoError(t, err)
	assert.Zero(t, w.n)
	assert.Empty(t, report.BatchID)
}

func TestRunComparesCachedAverage(t *testing.T) {
	buf := captureLog(t)
	averages := &memAverages{records: map[string]cache.AverageRecord{
		"emidataset.users": {Value: 9000, ComputedAt: time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)},
	}}
	deps := testDeps(&mockWarehouse{avg: 9500, avgOK: true})
	deps.Averages = averages

	_, err := Run(context.Background(), deps)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "previous average salary: 9000.00")
	assert.Contains(t, buf.String(), "change +500.00")
	assert.Equal(t, 9500.0, averages.records["emidataset.users"].Value)
}

func TestRunCacheReadErrorStillStores(t *testing.T) {
	averages := &memAverages{records: map[string]cache.AverageRecord{}, getErr: errors.New("redis down")}
	deps := testDeps(&mockWarehouse{avg: 7000, avgOK: true})
	deps.Averages = averages

	_, err := Run(context.Background(), deps)
	require.NoError(t, err)
	assert.Equal(t, 7000.0, averages.records["emidataset.users"].Value)
}

func TestRunEndToEndSQLite(t *testing.T) {
	buf := captureLog(t)
	ctx := context.Background()
	store, err := sqlite.Open(sqlite.MemoryPath, warehouse.DefaultDataset)
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.CreateTables(ctx, warehouse.DefaultTable))

	var out bytes.Buffer
	deps := testDeps(store)
	deps.Out = &out

	report, err := Run(ctx, deps)
	require.NoError(t, err)

	assert.Contains(t, buf.String(), "created 500 test users")
	assert.Contains(t, buf.String(), "insert response: {backend:sqlite table:emidataset.users rows:500}")
	assert.True(t, report.Insert.OK())
	assert.LessOrEqual(t, len(report.Rows), 20)
	assert.NotEmpty(t, report.Rows)
	for _, u := range report.Rows {
		assert.GreaterOrEqual(t, u.Age, users.MinAge)
		assert.LessOrEqual(t, u.Salary, users.MaxSalary)
	}
	require.True(t, report.Average.Present)
	assert.GreaterOrEqual(t, report.Average.Value, float64(users.MinSalary))
	assert.LessOrEqual(t, report.Average.Value, float64(users.MaxSalary))
	assert.True(t, strings.HasPrefix(out.String(), "Listing 20 users from emidataset.users:"))

	n, err := store.Count(ctx, warehouse.DefaultTable)
	require.NoError(t, err)
	assert.Equal(t, 500, n)
}

func TestAverageSalaryEmptyTable(t *testing.T) {
	ctx := context.Background()
	store, err := sqlite.Open(sqlite.MemoryPath, warehouse.DefaultDataset)
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.CreateTables(ctx, warehouse.DefaultTable))

	res := AverageSalary(ctx, store, warehouse.DefaultTarget())
	assert.False(t, res.Present)
	assert.NoError(t, res.Err)
}

func TestInsertFailureAddsNoRows(t *testing.T) {
	ctx := context.Background()
	store, err := sqlite.Open(sqlite.MemoryPath, warehouse.DefaultDataset)
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.CreateTables(ctx, warehouse.DefaultTable))

	res := Insert(ctx, store, warehouse.Target{Dataset: "elsewhere", Table: "users"}, users.NewGenerator(1).Generate(5))
	assert.False(t, res.OK())
	n, err := store.Count(ctx, warehouse.DefaultTable)
	require.NoError(t, err)
	assert.Zero(t, n)
}
