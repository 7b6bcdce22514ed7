package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/mangashelf/apiserver/types"
)

// UserRepository handles persistence for users.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, name, email, avatar, bio, reading_goal, total_read, completed, manga_list, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner, extra ...any) (types.User, error) {
	var user types.User
	dest := []any{
		&user.ID,
		&user.Name,
		&user.Email,
		&user.Avatar,
		&user.Bio,
		&user.ReadingGoal,
		&user.ReadingStats.TotalRead,
		&user.ReadingStats.Completed,
		pq.Array(&user.MangaList),
		&user.CreatedAt,
		&user.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	return user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int) (types.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (types.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, types.NormalizeEmail(email)))
}

// GetCredentialsByEmail is the only read that loads the password hash.
func (r *UserRepository) GetCredentialsByEmail(ctx context.Context, email string) (types.User, error) {
	query := `SELECT ` + userColumns + `, password_hash FROM users WHERE email = $1`
	var hash string
	user, err := scanUser(r.db.QueryRowContext(ctx, query, types.NormalizeEmail(email)), &hash)
	if err != nil {
		return types.User{}, err
	}
	user.PasswordHash = hash
	return user, nil
}

func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	const query = `
		INSERT INTO users (name, email, password_hash, avatar, bio, reading_goal, total_read, completed, manga_list, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Avatar,
		user.Bio,
		user.ReadingGoal,
		user.ReadingStats.TotalRead,
		user.ReadingStats.Completed,
		pq.Array(user.MangaList),
		user.CreatedAt,
		user.UpdatedAt,
	).Scan(&user.ID); err != nil {
		if isUniqueViolation(err) {
			return types.User{}, ErrConflict
		}
		return types.User{}, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

// UpdateProfile writes the editable profile fields and returns the stored row.
func (r *UserRepository) UpdateProfile(ctx context.Context, user types.User) (types.User, error) {
	query := `
		UPDATE users
		SET name = $1,
			bio = $2,
			reading_goal = $3,
			avatar = $4,
			updated_at = $5
		WHERE id = $6
		RETURNING ` + userColumns
	return scanUser(r.db.QueryRowContext(
		ctx,
		query,
		user.Name,
		user.Bio,
		user.ReadingGoal,
		user.Avatar,
		time.Now(),
		user.ID,
	))
}

func (r *UserRepository) UpdateReadingStats(ctx context.Context, id int, stats types.ReadingStats) error {
	const query = `
		UPDATE users
		SET total_read = $1,
			completed = $2,
			updated_at = $3
		WHERE id = $4`
	result, err := r.db.ExecContext(ctx, query, stats.TotalRead, stats.Completed, time.Now(), id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
