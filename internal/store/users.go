package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/campusmint/backend/internal/models"
)

// UserStore persists platform users, with a read-through cache on FindByID.
type UserStore struct {
	db    *sql.DB
	cache *entityCache
}

// NewUserStore builds the store. rdb may be nil to disable caching.
func NewUserStore(db *sql.DB, rdb *redis.Client, cacheTTL time.Duration) *UserStore {
	return &UserStore{db: db, cache: newEntityCache(rdb, "user:", cacheTTL)}
}

// FindByID returns the user, or nil when no such row exists.
func (s *UserStore) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var cached models.User
	if s.cache.get(ctx, id.String(), &cached) {
		return &cached, nil
	}

	row := q(ctx, s.db).QueryRowContext(ctx,
		"SELECT id, name, account_id, created_at FROM users WHERE id = $1", id)

	var user models.User
	err := row.Scan(&user.ID, &user.Name, &user.AccountID, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding user %s: %w", id, err)
	}

	s.cache.set(ctx, id.String(), user)
	return &user, nil
}

// FindAll returns every user. Used by the stats job, which needs the full
// population; not cached.
func (s *UserStore) FindAll(ctx context.Context) ([]models.User, error) {
	rows, err := q(ctx, s.db).QueryContext(ctx,
		"SELECT id, name, account_id, created_at FROM users ORDER BY created_at, id")
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var user models.User
		if err := rows.Scan(&user.ID, &user.Name, &user.AccountID, &user.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// Save upserts the user and drops any cached copy.
func (s *UserStore) Save(ctx context.Context, user models.User) error {
	_, err := q(ctx, s.db).ExecContext(ctx, `
		INSERT INTO users (id, name, account_id, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name`,
		user.ID, user.Name, user.AccountID, user.CreatedAt)
	if err != nil {
		return fmt.Errorf("saving user %s: %w", user.ID, err)
	}

	s.cache.invalidate(ctx, user.ID.String())
	return nil
}
