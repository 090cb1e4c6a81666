package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/campusmint/backend/internal/models"
)

// APIKeyStore persists project API-key credentials.
type APIKeyStore struct {
	db *sql.DB
}

func NewAPIKeyStore(db *sql.DB) *APIKeyStore {
	return &APIKeyStore{db: db}
}

func (s *APIKeyStore) Save(ctx context.Context, key models.APIKey) error {
	_, err := q(ctx, s.db).ExecContext(ctx, `
		INSERT INTO api_keys (key_id, project_id, secret_hash, created_at)
		VALUES ($1, $2, $3, $4)`,
		key.KeyID, key.ProjectID, key.SecretHash, key.CreatedAt)
	if err != nil {
		return fmt.Errorf("saving api key %s: %w", key.KeyID, err)
	}
	return nil
}

// FindByKeyID returns the credential, or nil when no such key exists.
func (s *APIKeyStore) FindByKeyID(ctx context.Context, keyID uuid.UUID) (*models.APIKey, error) {
	row := q(ctx, s.db).QueryRowContext(ctx, `
		SELECT key_id, project_id, secret_hash, created_at
		FROM api_keys WHERE key_id = $1`, keyID)

	var key models.APIKey
	err := row.Scan(&key.KeyID, &key.ProjectID, &key.SecretHash, &key.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding api key %s: %w", keyID, err)
	}
	return &key, nil
}

// DeleteByProject revokes every key a project holds.
func (s *APIKeyStore) DeleteByProject(ctx context.Context, projectID uuid.UUID) error {
	_, err := q(ctx, s.db).ExecContext(ctx,
		"DELETE FROM api_keys WHERE project_id = $1", projectID)
	if err != nil {
		return fmt.Errorf("revoking api keys for project %s: %w", projectID, err)
	}
	return nil
}
