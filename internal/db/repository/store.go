package repository

import (
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store implements the match core's persistence contract on Postgres. Method
// groups live in match_repo.go, question_repo.go and player_repo.go.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a Postgres-backed store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}
