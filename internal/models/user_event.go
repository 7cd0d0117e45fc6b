package models

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"

	"github.com/hetulpatel/bqusers/internal/users"
)

// UserEvent is the payload placed on the users topic for every inserted row.
type UserEvent struct {
	Dataset     string     `json:"dataset"`
	Table       string     `json:"table"`
	BatchID     string     `json:"batch_id"`
	Fingerprint string     `json:"fingerprint"`
	User        users.User `json:"user"`
	InsertedAt  time.Time  `json:"inserted_at"`
}

func NewUserEvent(dataset, table, batchID string, u users.User, insertedAt time.Time) UserEvent {
	return UserEvent{
		Dataset:     dataset,
		Table:       table,
		BatchID:     batchID,
		Fingerprint: Fingerprint(u),
		User:        u,
		InsertedAt:  insertedAt,
	}
}

// Fingerprint hashes every field of u; ids alone repeat across batches.
func Fingerprint(u users.User) string {
	h := sha256.New()
	for _, p := range []string{u.ID, u.Name, strconv.Itoa(u.Age), u.Email, strconv.Itoa(u.Salary)} {
		h.Write([]byte(p))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}
