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

// ProjectStore persists projects, with a read-through cache on FindByID.
type ProjectStore struct {
	db    *sql.DB
	cache *entityCache
}

// NewProjectStore builds the store. rdb may be nil to disable caching.
func NewProjectStore(db *sql.DB, rdb *redis.Client, cacheTTL time.Duration) *ProjectStore {
	return &ProjectStore{db: db, cache: newEntityCache(rdb, "project:", cacheTTL)}
}

const projectColumns = "id, name, owner_user_id, account_id, description, created_at"

// FindByID returns the project, or nil when no such row exists.
func (s *ProjectStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	var cached models.Project
	if s.cache.get(ctx, id.String(), &cached) {
		return &cached, nil
	}

	row := q(ctx, s.db).QueryRowContext(ctx,
		"SELECT "+projectColumns+" FROM projects WHERE id = $1", id)

	project, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding project %s: %w", id, err)
	}

	s.cache.set(ctx, id.String(), project)
	return &project, nil
}

// FindAll returns every project, in creation order.
func (s *ProjectStore) FindAll(ctx context.Context) ([]models.Project, error) {
	rows, err := q(ctx, s.db).QueryContext(ctx,
		"SELECT "+projectColumns+" FROM projects ORDER BY created_at, id")
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	defer rows.Close()

	var projects []models.Project
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning project: %w", err)
		}
		projects = append(projects, project)
	}
	return projects, rows.Err()
}

// Save upserts the project and drops any cached copy.
func (s *ProjectStore) Save(ctx context.Context, project models.Project) error {
	_, err := q(ctx, s.db).ExecContext(ctx, `
		INSERT INTO projects (id, name, owner_user_id, account_id, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, description = EXCLUDED.description`,
		project.ID, project.Name, project.OwnerUserID, project.AccountID,
		nullIfEmpty(project.Description), project.CreatedAt)
	if err != nil {
		return fmt.Errorf("saving project %s: %w", project.ID, err)
	}

	s.cache.invalidate(ctx, project.ID.String())
	return nil
}

func scanProject(row rowScanner) (models.Project, error) {
	var (
		project     models.Project
		description sql.NullString
	)
	err := row.Scan(&project.ID, &project.Name, &project.OwnerUserID,
		&project.AccountID, &description, &project.CreatedAt)
	if err != nil {
		return models.Project{}, err
	}
	project.Description = description.String
	return project, nil
}
