package services

import (
	"context"
	cryptorand "crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/argon2"

	"github.com/campusmint/backend/internal/apperr"
	"github.com/campusmint/backend/internal/config"
	"github.com/campusmint/backend/internal/models"
)

const (
	argon2Threads   = 4
	argon2KeyLength = 32
	argon2SaltBytes = 16
	apiKeySecretLen = 32
)

// AuthService issues and verifies the two credential kinds: short-lived JWTs
// for users and long-lived API keys for projects. API-key secrets are stored
// only as argon2id hashes; the plaintext appears once, in the issue result.
type AuthService struct {
	keys APIKeyStore
	cfg  config.AuthConfig
	log  zerolog.Logger
	now  func() time.Time
}

func NewAuthService(keys APIKeyStore, cfg config.AuthConfig, log zerolog.Logger) *AuthService {
	return &AuthService{keys: keys, cfg: cfg, log: log, now: time.Now}
}

// MintUserToken issues a signed JWT for the user.
func (s *AuthService) MintUserToken(userID uuid.UUID) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID.String(),
		"exp":     s.now().Add(s.cfg.JWTExpiry).Unix(),
		"iat":     s.now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("signing user token: %w", err)
	}
	return signed, nil
}

// VerifyUserToken validates a JWT and returns the user it identifies.
func (s *AuthService) VerifyUserToken(tokenString string) (uuid.UUID, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return uuid.Nil, apperr.Forbidden("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, apperr.Forbidden("invalid token")
	}
	raw, _ := claims["user_id"].(string)
	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperr.Forbidden("invalid token")
	}
	return userID, nil
}

// IssueProjectKey creates a new API key for the project and returns its one
// plaintext form, "<keyId>.<secret>".
func (s *AuthService) IssueProjectKey(ctx context.Context, projectID uuid.UUID) (string, error) {
	secret := make([]byte, apiKeySecretLen)
	if _, err := cryptorand.Read(secret); err != nil {
		return "", fmt.Errorf("generating api key secret: %w", err)
	}
	plaintext := base64.RawURLEncoding.EncodeToString(secret)

	hash, err := s.hashSecret(plaintext)
	if err != nil {
		return "", err
	}

	key := models.APIKey{
		KeyID:      models.NewID(),
		ProjectID:  projectID,
		SecretHash: hash,
		CreatedAt:  s.now(),
	}
	if err := s.keys.Save(ctx, key); err != nil {
		return "", err
	}

	s.log.Info().
		Str("key_id", key.KeyID.String()).
		Str("project_id", projectID.String()).
		Msg("project api key issued")
	return key.KeyID.String() + "." + plaintext, nil
}

// VerifyProjectKey validates a presented API key and returns the project
// it belongs to.
func (s *AuthService) VerifyProjectKey(ctx context.Context, presented string) (uuid.UUID, error) {
	keyIDPart, secret, found := strings.Cut(presented, ".")
	if !found {
		return uuid.Nil, apperr.Forbidden("invalid api key")
	}
	keyID, err := uuid.Parse(keyIDPart)
	if err != nil {
		return uuid.Nil, apperr.Forbidden("invalid api key")
	}

	key, err := s.keys.FindByKeyID(ctx, keyID)
	if err != nil {
		return uuid.Nil, err
	}
	if key == nil || !s.verifySecret(secret, key.SecretHash) {
		return uuid.Nil, apperr.Forbidden("invalid api key")
	}
	return key.ProjectID, nil
}

// RevokeProjectKeys invalidates every key the project holds.
func (s *AuthService) RevokeProjectKeys(ctx context.Context, projectID uuid.UUID) error {
	return s.keys.DeleteByProject(ctx, projectID)
}

// hashSecret derives an argon2id hash, stored as "salt$hash" in base64.
func (s *AuthService) hashSecret(secret string) (string, error) {
	salt := make([]byte, argon2SaltBytes)
	if _, err := cryptorand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}

	hash := argon2.IDKey([]byte(secret+s.cfg.APIKeySalt), salt,
		s.cfg.Argon2Time, s.cfg.Argon2MemKB, argon2Threads, argon2KeyLength)
	return base64.StdEncoding.EncodeToString(salt) + "$" + base64.StdEncoding.EncodeToString(hash), nil
}

func (s *AuthService) verifySecret(secret, stored string) bool {
	saltPart, hashPart, found := strings.Cut(stored, "$")
	if !found {
		return false
	}
	salt, err := base64.StdEncoding.DecodeString(saltPart)
	if err != nil {
		return false
	}
	hash, err := base64.StdEncoding.DecodeString(hashPart)
	if err != nil {
		return false
	}

	computed := argon2.IDKey([]byte(secret+s.cfg.APIKeySalt), salt,
		s.cfg.Argon2Time, s.cfg.Argon2MemKB, argon2Threads, argon2KeyLength)
	return subtle.ConstantTimeCompare(hash, computed) == 1
}
