package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hetulpatel/bqusers/internal/users"
	"github.com/hetulpatel/bqusers/internal/warehouse"
)

const (
	BackendName = "sqlite"
	MemoryPath  = ":memory:"

	defaultPath = "data/emidataset.db"
)

// Store is a local stand-in for the warehouse. The dataset file is ATTACHed under
// the dataset name so queries written as dataset.table run unchanged.
type Store struct {
	path    string
	dataset string
	db      *sql.DB
}

var _ warehouse.Warehouse = (*Store)(nil)

// Open creates (if needed) and attaches the dataset database at path.
func Open(path, dataset string) (*Store, error) {
	if path == "" {
		path = defaultPath
	}
	if !warehouse.ValidIdentifier(dataset) {
		return nil, fmt.Errorf("invalid dataset name %q", dataset)
	}
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("ensure data dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", MemoryPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// ATTACH is per connection; a single connection keeps the dataset visible.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(fmt.Sprintf("ATTACH DATABASE ? AS %s;", dataset), path); err != nil {
		db.Close()
		return nil, fmt.Errorf("attach %s: %w", dataset, err)
	}
	if path != MemoryPath {
		if err := ensureWAL(db, dataset); err != nil {
			db.Close()
			return nil, fmt.Errorf("set WAL mode: %w", err)
		}
	}
	return &Store{path: path, dataset: dataset, db: db}, nil
}

func ensureWAL(db *sql.DB, dataset string) error {
	const (
		maxAttempts = 5
		delay       = 200 * time.Millisecond
	)
	for i := 0; i < maxAttempts; i++ {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA %s.journal_mode=WAL;", dataset)); err != nil {
			if strings.Contains(err.Error(), "database is locked") {
				time.Sleep(delay)
				continue
			}
			return err
		}
		return nil
	}
	return fmt.Errorf("database is locked after retries")
}

// Path returns the path backing the dataset.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) Dataset() string {
	return s.dataset
}

// Close closes the DB.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) qualified(table string) (string, error) {
	if !warehouse.ValidIdentifier(table) {
		return "", fmt.Errorf("invalid table name %q", table)
	}
	return s.dataset + "." + table, nil
}

// CreateTables ensures the users table exists. There is no primary key: ids repeat
// across batches, as they do in the warehouse.
func (s *Store) CreateTables(ctx context.Context, table string) error {
	name, err := s.qualified(table)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, fmt.Sprintf(usersSchemaSQL, name))
	return err
}

// DropTables removes the users table.
func (s *Store) DropTables(ctx context.Context, table string) error {
	name, err := s.qualified(table)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %s;`, name))
	return err
}

// ClearTables truncates the users table.
func (s *Store) ClearTables(ctx context.Context, table string) error {
	name, err := s.qualified(table)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s;`, name))
	return err
}

// Count returns the number of rows in table.
func (s *Store) Count(ctx context.Context, table string) (int, error) {
	name, err := s.qualified(table)
	if err != nil {
		return 0, err
	}
	var n int
	err = s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s;`, name)).Scan(&n)
	return n, err
}

const usersSchemaSQL = `
CREATE TABLE IF NOT EXISTS %s (
	id TEXT NOT NULL,
	name TEXT NOT NULL,
	age INTEGER NOT NULL,
	email TEXT NOT NULL,
	salary INTEGER NOT NULL
);
`

const insertUserSQL = `INSERT INTO %s (id, name, age, email, salary) VALUES (?, ?, ?, ?, ?)`

// Insert writes rows in one transaction; any failing row rolls back the batch.
func (s *Store) Insert(ctx context.Context, dataset, table string, rows []users.User) (warehouse.InsertResponse, error) {
	resp := warehouse.InsertResponse{Backend: BackendName, Dataset: dataset, Table: table}
	if dataset != s.dataset {
		return resp, fmt.Errorf("dataset %q is not attached (have %q)", dataset, s.dataset)
	}
	name, err := s.qualified(table)
	if err != nil {
		return resp, err
	}
	if len(rows) == 0 {
		return resp, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return resp, err
	}
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(insertUserSQL, name))
	if err != nil {
		tx.Rollback()
		return resp, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, u := range rows {
		if _, err := stmt.ExecContext(ctx, u.ID, u.Name, u.Age, u.Email, u.Salary); err != nil {
			tx.Rollback()
			return resp, fmt.Errorf("insert user %s: %w", u.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return resp, fmt.Errorf("commit: %w", err)
	}
	resp.Rows = len(rows)
	return resp, nil
}

// QueryUsers runs query and maps result columns onto users by name; unknown
// columns are ignored.
func (s *Store) QueryUsers(ctx context.Context, query string) ([]users.User, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("select users: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	out := make([]users.User, 0)
	for rows.Next() {
		u, err := scanUser(rows, cols)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func scanUser(rows *sql.Rows, cols []string) (users.User, error) {
	var (
		id, name, email sql.NullString
		age, salary     sql.NullInt64
	)
	dest := make([]any, len(cols))
	for i, col := range cols {
		switch strings.ToLower(col) {
		case "id":
			dest[i] = &id
		case "name":
			dest[i] = &name
		case "age":
			dest[i] = &age
		case "email":
			dest[i] = &email
		case "salary":
			dest[i] = &salary
		default:
			dest[i] = new(any)
		}
	}
	if err := rows.Scan(dest...); err != nil {
		return users.User{}, err
	}
	return users.User{
		ID:     id.String,
		Name:   name.String,
		Age:    int(age.Int64),
		Email:  email.String,
		Salary: int(salary.Int64),
	}, nil
}

func (s *Store) QueryAverage(ctx context.Context, query, column string) (float64, bool, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return 0, false, fmt.Errorf("run aggregate: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return 0, false, err
	}
	idx := -1
	for i, c := range cols {
		if c == column {
			idx = i
			break
		}
	}
	if idx < 0 {
		return 0, false, fmt.Errorf("column %q missing from result", column)
	}
	if !rows.Next() {
		return 0, false, rows.Err()
	}
	dest := make([]any, len(cols))
	for i := range dest {
		dest[i] = new(any)
	}
	var avg sql.NullFloat64
	dest[idx] = &avg
	if err := rows.Scan(dest...); err != nil {
		return 0, false, fmt.Errorf("scan aggregate: %w", err)
	}
	return avg.Float64, avg.Valid, rows.Err()
}
