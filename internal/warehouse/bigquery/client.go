package bigquery

import (
	"context"
	"errors"
	"fmt"

	bq "cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/hetulpatel/bqusers/internal/credentials"
	"github.com/hetulpatel/bqusers/internal/users"
	"github.com/hetulpatel/bqusers/internal/warehouse"
)

const BackendName = "bigquery"

// Client issues demo operations against BigQuery.
type Client struct {
	projectID string
	bq        *bq.Client
}

var _ warehouse.Warehouse = (*Client)(nil)

// New builds a client authenticated with the service-account key.
func New(ctx context.Context, creds *credentials.Credentials, opts ...option.ClientOption) (*Client, error) {
	if creds == nil {
		return nil, fmt.Errorf("bigquery credentials are required")
	}
	opts = append([]option.ClientOption{option.WithCredentialsJSON(creds.Raw)}, opts...)
	client, err := bq.NewClient(ctx, creds.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("bigquery client: %w", err)
	}
	return &Client{projectID: creds.ProjectID, bq: client}, nil
}

func (c *Client) ProjectID() string {
	return c.projectID
}

// Insert streams rows to dataset.table in a single request.
func (c *Client) Insert(ctx context.Context, dataset, table string, rows []users.User) (warehouse.InsertResponse, error) {
	resp := warehouse.InsertResponse{Backend: BackendName, Dataset: dataset, Table: table}
	if len(rows) == 0 {
		return resp, nil
	}
	savers := make([]*userSaver, 0, len(rows))
	for i := range rows {
		savers = append(savers, &userSaver{user: rows[i]})
	}
	inserter := c.bq.Dataset(dataset).Table(table).Inserter()
	if err := inserter.Put(ctx, savers); err != nil {
		var multi bq.PutMultiError
		if errors.As(err, &multi) {
			return resp, fmt.Errorf("insert %s.%s: %d of %d rows rejected: %w", dataset, table, len(multi), len(rows), err)
		}
		return resp, fmt.Errorf("insert %s.%s: %w", dataset, table, err)
	}
	resp.Rows = len(rows)
	return resp, nil
}

func (c *Client) QueryUsers(ctx context.Context, query string) ([]users.User, error) {
	it, err := c.bq.Query(query).Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("run query: %w", err)
	}
	out := make([]users.User, 0)
	for {
		var u users.User
		err := it.Next(&u)
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		out = append(out, u)
	}
	return out, nil
}

func (c *Client) QueryAverage(ctx context.Context, query, column string) (float64, bool, error) {
	it, err := c.bq.Query(query).Read(ctx)
	if err != nil {
		return 0, false, fmt.Errorf("run query: %w", err)
	}
	var row map[string]bq.Value
	err = it.Next(&row)
	if errors.Is(err, iterator.Done) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read row: %w", err)
	}
	return averageFromRow(row, column)
}

func (c *Client) Close() error {
	if c == nil || c.bq == nil {
		return nil
	}
	return c.bq.Close()
}

func averageFromRow(row map[string]bq.Value, column string) (float64, bool, error) {
	val, ok := row[column]
	if !ok {
		return 0, false, fmt.Errorf("column %q missing from result", column)
	}
	switch v := val.(type) {
	case nil:
		return 0, false, nil
	case float64:
		return v, true, nil
	case int64:
		return float64(v), true, nil
	default:
		return 0, false, fmt.Errorf("column %q has unexpected type %T", column, val)
	}
}

// userSaver leaves insertID empty so the client assigns a random one per row.
type userSaver struct {
	user users.User
}

func (s *userSaver) Save() (map[string]bq.Value, string, error) {
	return map[string]bq.Value{
		"id":     s.user.ID,
		"name":   s.user.Name,
		"age":    s.user.Age,
		"email":  s.user.Email,
		"salary": s.user.Salary,
	}, "", nil
}
