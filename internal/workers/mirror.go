package workers

import (
	"context"
	"fmt"
	"sync"

	"github.com/hetulpatel/bqusers/internal/models"
	"github.com/hetulpatel/bqusers/internal/users"
	"github.com/hetulpatel/bqusers/internal/warehouse"
)

// Inserter is the slice of warehouse.Warehouse the mirror writes through.
type Inserter interface {
	Insert(ctx context.Context, dataset, table string, rows []users.User) (warehouse.InsertResponse, error)
}

// Mirror copies published user events into a local table. Redelivered events are
// recognised by batch id plus fingerprint and written once.
type Mirror struct {
	dst     Inserter
	dataset string
	table   string

	mu   sync.Mutex
	seen map[string]struct{}
}

func NewMirror(dst Inserter, dataset, table string) *Mirror {
	return &Mirror{dst: dst, dataset: dataset, table: table, seen: make(map[string]struct{})}
}

func (m *Mirror) Handle(ctx context.Context, ev *models.UserEvent) error {
	if ev == nil {
		return nil
	}
	key := ev.BatchID + ":" + ev.Fingerprint
	m.mu.Lock()
	_, dup := m.seen[key]
	m.mu.Unlock()
	if dup {
		return nil
	}

	if _, err := m.dst.Insert(ctx, m.dataset, m.table, []users.User{ev.User}); err != nil {
		return fmt.Errorf("mirror user %s (batch %s): %w", ev.User.ID, ev.BatchID, err)
	}

	m.mu.Lock()
	m.seen[key] = struct{}{}
	m.mu.Unlock()
	return nil
}
