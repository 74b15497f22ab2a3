package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dukapoint/storefront/internal/fault"
)

// ErrEmailTaken is returned when signup hits the unique email constraint.
var ErrEmailTaken = errors.New("email already exists")

// User is a stored account. PasswordHash never leaves this package.
type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	IsAdmin      bool
}

// UserRepository persists accounts.
type UserRepository interface {
	CreateUser(ctx context.Context, name, email, passwordHash string, isAdmin bool) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserByID(ctx context.Context, id int64) (*User, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	ListUsers(ctx context.Context) ([]UserSummary, error)
}

// UserSummary is the admin listing row.
type UserSummary struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// PostgresUserRepository implements UserRepository over PostgreSQL.
type PostgresUserRepository struct {
	db *pgxpool.Pool
}

// NewUserRepository creates a PostgresUserRepository.
func NewUserRepository(db *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

func (r *PostgresUserRepository) CreateUser(ctx context.Context, name, email, passwordHash string, isAdmin bool) (*User, error) {
	user := &User{Name: name, Email: email, PasswordHash: passwordHash, IsAdmin: isAdmin}
	err := r.db.QueryRow(ctx, `
		INSERT INTO users (name, email, password, is_admin)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, name, email, passwordHash, isAdmin).Scan(&user.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

func (r *PostgresUserRepository) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	var user User
	err := r.db.QueryRow(ctx, `
		SELECT id, name, email, password, is_admin
		FROM users WHERE email = $1
	`, email).Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.IsAdmin)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &fault.NotFoundError{Entity: "user", ID: email}
		}
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}
	return &user, nil
}

func (r *PostgresUserRepository) GetUserByID(ctx context.Context, id int64) (*User, error) {
	var user User
	err := r.db.QueryRow(ctx, `
		SELECT id, name, email, password, is_admin
		FROM users WHERE id = $1
	`, id).Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.IsAdmin)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &fault.NotFoundError{Entity: "user", ID: fmt.Sprint(id)}
		}
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}
	return &user, nil
}

func (r *PostgresUserRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE users SET password = $1 WHERE id = $2
	`, passwordHash, id)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &fault.NotFoundError{Entity: "user", ID: fmt.Sprint(id)}
	}
	return nil
}

func (r *PostgresUserRepository) ListUsers(ctx context.Context) ([]UserSummary, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := make([]UserSummary, 0)
	for rows.Next() {
		var u UserSummary
		if err := rows.Scan(&u.ID, &u.Name); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
