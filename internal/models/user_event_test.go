package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/hetulpatel/bqusers/internal/users"
)

func TestFingerprintTracksEveryField(t *testing.T) {
	base := users.User{ID: "1", Name: "Ava Li", Age: 30, Email: "ava@example.com", Salary: 5000}
	fp := Fingerprint(base)
	assert.Len(t, fp, 64)
	assert.Equal(t, fp, Fingerprint(base))

	changed := base
	changed.Salary = 5001
	assert.NotEqual(t, fp, Fingerprint(changed))

	changed = base
	changed.ID = "2"
	assert.NotEqual(t, fp, Fingerprint(changed))
}

func TestNewUserEvent(t *testing.T) {
	u := users.User{ID: "0", Name: "Noah Diaz", Age: 44, Email: "noah@example.com", Salary: 12000}
	at := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	ev := NewUserEvent("emidataset", "users", "batch-1", u, at)
	assert.Equal(t, "emidataset", ev.Dataset)
	assert.Equal(t, "users", ev.Table)
	assert.Equal(t, "batch-1", ev.BatchID)
	assert.Equal(t, u, ev.User)
	assert.Equal(t, Fingerprint(u), ev.Fingerprint)
	assert.Equal(t, at, ev.InsertedAt)
}

func TestFingerprintSeparatesFields(t *testing.T) {
	a := users.User{ID: "1", Name: "2"}
	b := users.User{ID: "12", Name: ""}
	assert.NotEqual(t, Fingerprint(a), Fingerprint(b))
}
