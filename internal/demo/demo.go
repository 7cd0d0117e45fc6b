package demo

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/hetulpatel/bqusers/internal/cache"
	"github.com/hetulpatel/bqusers/internal/logging"
	"github.com/hetulpatel/bqusers/internal/queue"
	"github.com/hetulpatel/bqusers/internal/users"
	"github.com/hetulpatel/bqusers/internal/warehouse"
)

var logger = logging.With("[bq-demo]")

// InsertResult reports one batch insert. The cause is kept so callers can log it.
type InsertResult struct {
	Response warehouse.InsertResponse
	Err      error
}

func (r InsertResult) OK() bool {
	return r.Err == nil
}

// AverageResult is absent (Present=false) on failure and on an empty table;
// Err tells the two apart.
type AverageResult struct {
	Value   float64
	Present bool
	Err     error
}

// Insert sends records to dataset.table in a single call.
func Insert(ctx context.Context, wh warehouse.Warehouse, target warehouse.Target, records []users.User) InsertResult {
	resp, err := wh.Insert(ctx, target.Dataset, target.Table, records)
	if err != nil {
		logger.Errorf("insert failed: %v", err)
		return InsertResult{Response: resp, Err: err}
	}
	logger.Infof("insert response: %s", resp)
	return InsertResult{Response: resp}
}

// ListRows returns at most limit rows in whatever order the warehouse yields.
func ListRows(ctx context.Context, wh warehouse.Warehouse, target warehouse.Target, limit int) ([]users.User, error) {
	return wh.QueryUsers(ctx, target.SelectRowsSQL(limit))
}

// AverageSalary averages the salary column over the whole table.
func AverageSalary(ctx context.Context, wh warehouse.Warehouse, target warehouse.Target) AverageResult {
	avg, ok, err := wh.QueryAverage(ctx, target.AverageSalarySQL(), warehouse.AverageSalaryColumn)
	if err != nil {
		logger.Errorf("average salary failed: %v", err)
		return AverageResult{Err: err}
	}
	return AverageResult{Value: avg, Present: ok}
}

// Deps is everything Run needs. Publisher and Averages are optional.
type Deps struct {
	Warehouse  warehouse.Warehouse
	Generator  *users.Generator
	Target     warehouse.Target
	RowLimit   int
	UsersCount int

	Publisher queue.MessageWriter
	Averages  cache.AverageCache
	Out       io.Writer
}

// Report is what one run produced.
type Report struct {
	Insert  InsertResult
	BatchID string
	Rows    []users.User
	Average AverageResult
}

// Run inserts a fresh batch, lists rows, then averages salaries. Only a listing
// failure stops the run; insert and aggregate failures are logged and reported.
func Run(ctx context.Context, deps Deps) (Report, error) {
	var report Report
	if deps.Warehouse == nil || deps.Generator == nil {
		return report, fmt.Errorf("warehouse and generator are required")
	}
	out := deps.Out
	if out == nil {
		out = os.Stdout
	}

	batch := deps.Generator.Generate(deps.UsersCount)
	report.Insert = Insert(ctx, deps.Warehouse, deps.Target, batch)
	if report.Insert.OK() {
		report.BatchID = publish(ctx, deps, batch)
	}

	rows, err := ListRows(ctx, deps.Warehouse, deps.Target, deps.RowLimit)
	if err != nil {
		return report, fmt.Errorf("list rows: %w", err)
	}
	report.Rows = rows
	printRows(out, deps.Target, rows)

	report.Average = AverageSalary(ctx, deps.Warehouse, deps.Target)
	switch {
	case report.Average.Present:
		logger.Infof("average salary: %.2f", report.Average.Value)
		compareCached(ctx, deps, report.Average.Value)
	case report.Average.Err != nil:
		logger.Infof("average salary: unavailable")
	default:
		logger.Infof("average salary: unavailable (%s is empty)", deps.Target.FullName())
	}
	return report, nil
}

func publish(ctx context.Context, deps Deps, batch []users.User) string {
	if deps.Publisher == nil {
		return ""
	}
	batchID, err := queue.PublishBatch(ctx, deps.Publisher, deps.Target.Dataset, deps.Target.Table, batch)
	if err != nil {
		logger.Errorf("publish error: %v", err)
		return batchID
	}
	logger.Debugf("published batch %s (%d users)", batchID, len(batch))
	return batchID
}

func compareCached(ctx context.Context, deps Deps, avg float64) {
	if deps.Averages == nil {
		return
	}
	table := deps.Target.FullName()
	prev, ok, err := deps.Averages.Get(ctx, table)
	if err != nil {
		logger.Errorf("average cache read error: %v", err)
	} else if ok {
		logger.Infof("previous average salary: %.2f (computed %s, change %+.2f)",
			prev.Value, prev.ComputedAt.Format(time.RFC3339), avg-prev.Value)
	}
	if err := deps.Averages.Set(ctx, table, cache.AverageRecord{Value: avg, ComputedAt: time.Now().UTC()}); err != nil {
		logger.Errorf("average cache write error: %v", err)
	}
}

func printRows(w io.Writer, target warehouse.Target, rows []users.User) {
	if len(rows) == 0 {
		fmt.Fprintf(w, "No rows in %s.\n", target.FullName())
		return
	}
	fmt.Fprintf(w, "Listing %d users from %s:\n", len(rows), target.FullName())
	for _, u := range rows {
		fmt.Fprintf(w, " - #%s %s <%s> age=%d salary=%d\n", u.ID, u.Name, u.Email, u.Age, u.Salary)
	}
}
