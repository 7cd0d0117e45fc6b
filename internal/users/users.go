package users

import (
	"strconv"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/hetulpatel/bqusers/internal/logging"
)

const (
	MinAge    = 18
	MaxAge    = 100
	MinSalary = 4000
	MaxSalary = 15000
)

// User is the single row shape of the users table.
type User struct {
	ID     string `json:"id" bigquery:"id"`
	Name   string `json:"name" bigquery:"name"`
	Age    int    `json:"age" bigquery:"age"`
	Email  string `json:"email" bigquery:"email"`
	Salary int    `json:"salary" bigquery:"salary"`
}

// Generator produces synthetic users from a seeded faker.
type Generator struct {
	seed  uint64
	faker *gofakeit.Faker
}

// NewGenerator builds a generator. A zero seed is replaced by a time-derived one,
// which is logged so a batch can be reproduced with DEMO_SEED.
func NewGenerator(seed uint64) *Generator {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
		logging.Debugf("[users] using seed: %d", seed)
	}
	return &Generator{seed: seed, faker: gofakeit.New(seed)}
}

func (g *Generator) Seed() uint64 {
	return g.seed
}

// Generate returns exactly count users with ids "0".."count-1".
func (g *Generator) Generate(count int) []User {
	if count < 0 {
		count = 0
	}
	out := make([]User, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, User{
			ID:     strconv.Itoa(i),
			Name:   g.faker.Name(),
			Age:    g.faker.IntRange(MinAge, MaxAge),
			Email:  g.faker.Email(),
			Salary: g.faker.IntRange(MinSalary, MaxSalary),
		})
	}
	logging.Infof("created %d test users", count)
	return out
}
