package catalog

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/ariefcatur/go-retail-fulfillment/internal/postgres"
)

var ErrUserNotFound = errors.New("user not found")

type User struct {
	ID    string
	Email string
	Name  string
}

// Users is the identity lookup the orchestrator uses before creating an
// order. Profile CRUD and auth are out of scope here.
type Users struct{}

func (Users) Get(ctx context.Context, q postgres.DBTX, id string) (User, error) {
	var u User
	err := q.QueryRow(ctx, `SELECT id, email, name FROM users WHERE id=$1`, id).
		Scan(&u.ID, &u.Email, &u.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	return u, err
}
