package warehouse

import (
	"context"
	"fmt"
	"regexp"

	"github.com/hetulpatel/bqusers/internal/users"
)

const (
	DefaultDataset  = "emidataset"
	DefaultTable    = "users"
	DefaultRowLimit = 20

	AverageSalaryColumn = "average_salary"
)

// Warehouse is the handle every demo operation is issued through.
type Warehouse interface {
	Insert(ctx context.Context, dataset, table string, rows []users.User) (InsertResponse, error)
	QueryUsers(ctx context.Context, query string) ([]users.User, error)
	// QueryAverage runs a single-row aggregate and reads column. ok is false when
	// the aggregate is NULL, which is what AVG returns over zero rows.
	QueryAverage(ctx context.Context, query, column string) (value float64, ok bool, err error)
	Close() error
}

// InsertResponse describes an accepted batch.
type InsertResponse struct {
	Backend string `json:"backend"`
	Dataset string `json:"dataset"`
	Table   string `json:"table"`
	Rows    int    `json:"rows"`
}

func (r InsertResponse) String() string {
	return fmt.Sprintf("{backend:%s table:%s.%s rows:%d}", r.Backend, r.Dataset, r.Table, r.Rows)
}

// Target names the dataset and table the demo reads and writes.
type Target struct {
	Dataset string
	Table   string
}

func DefaultTarget() Target {
	return Target{Dataset: DefaultDataset, Table: DefaultTable}
}

func (t Target) FullName() string {
	return t.Dataset + "." + t.Table
}

// SelectRowsSQL lists up to limit rows with no ordering.
func (t Target) SelectRowsSQL(limit int) string {
	return fmt.Sprintf("SELECT * FROM %s LIMIT %d", t.FullName(), limit)
}

func (t Target) AverageSalarySQL() string {
	return fmt.Sprintf("SELECT AVG(salary) AS %s FROM %s", AverageSalaryColumn, t.FullName())
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidIdentifier reports whether name can be spliced into SQL as a dataset or table.
func ValidIdentifier(name string) bool {
	return identRe.MatchString(name)
}

func (t Target) Validate() error {
	if !ValidIdentifier(t.Dataset) {
		return fmt.Errorf("invalid dataset name %q", t.Dataset)
	}
	if !ValidIdentifier(t.Table) {
		return fmt.Errorf("invalid table name %q", t.Table)
	}
	return nil
}
