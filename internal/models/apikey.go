package models

import (
	"time"

	"github.com/google/uuid"
)

// APIKey is a project's machine credential. Only the argon2id hash of the
// secret is stored; the plaintext exists once, in the issue response.
type APIKey struct {
	KeyID      uuid.UUID `json:"keyId"`
	ProjectID  uuid.UUID `json:"projectId"`
	SecretHash string    `json:"-"`
	CreatedAt  time.Time `json:"createdAt"`
}
