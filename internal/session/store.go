// Package session implements server-side admin sessions. A session token is
// a signed JWT whose token id is also written to Redis with the session TTL;
// validation requires both the signature and a live Redis entry, so logout
// and expiry revoke a token even before its claims lapse.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/openphms/admin-api/internal/model"
	apperrors "github.com/openphms/admin-api/pkg/errors"
)

const keyPrefix = "session:"

type Manager struct {
	client *redis.Client
	secret []byte
	ttl    time.Duration
}

func NewManager(client *redis.Client, secret string, ttl time.Duration) *Manager {
	return &Manager{
		client: client,
		secret: []byte(secret),
		ttl:    ttl,
	}
}

// NewRedisClient parses a redis URL and verifies connectivity.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

// Issue creates a session for the administrator and returns the signed token.
func (m *Manager) Issue(ctx context.Context, admin *model.Administrator) (string, time.Time, error) {
	now := time.Now().UTC()
	expiry := now.Add(m.ttl)
	jti := uuid.New().String()

	claims := model.SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiry),
			Subject:   admin.ID.String(),
		},
		AdminID:   admin.ID,
		AdminName: admin.Name,
		UserID:    admin.UserID,
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign session token: %w", err)
	}

	if err := m.client.Set(ctx, keyPrefix+jti, admin.ID.String(), m.ttl).Err(); err != nil {
		return "", time.Time{}, apperrors.Storage(fmt.Errorf("failed to store session: %w", err))
	}
	return token, expiry, nil
}

// Validate checks signature, expiry, and server-side liveness, returning the
// session claims.
func (m *Manager) Validate(ctx context.Context, tokenString string) (*model.SessionClaims, error) {
	claims := &model.SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperrors.Expired("session expired")
		}
		return nil, apperrors.Unauthenticated("invalid session token")
	}
	if !token.Valid || claims.ID == "" {
		return nil, apperrors.Unauthenticated("invalid session token")
	}

	exists, err := m.client.Exists(ctx, keyPrefix+claims.ID).Result()
	if err != nil {
		return nil, apperrors.Storage(fmt.Errorf("failed to check session: %w", err))
	}
	if exists == 0 {
		return nil, apperrors.Expired("session expired")
	}
	return claims, nil
}

// Revoke removes the server-side session record; the token is dead from the
// next Validate onward.
func (m *Manager) Revoke(ctx context.Context, tokenString string) error {
	claims := &model.SessionClaims{}
	// Parse without liveness check: revoking an already-expired token is fine.
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	})
	if err != nil && !errors.Is(err, jwt.ErrTokenExpired) {
		return apperrors.Unauthenticated("invalid session token")
	}
	if claims.ID == "" {
		return apperrors.Unauthenticated("invalid session token")
	}
	if err := m.client.Del(ctx, keyPrefix+claims.ID).Err(); err != nil {
		return apperrors.Storage(fmt.Errorf("failed to revoke session: %w", err))
	}
	return nil
}
