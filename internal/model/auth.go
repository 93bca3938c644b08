package model

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type LoginRequest struct {
	UserID   string `json:"user_id" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// SessionClaims are the JWT claims carried by a session token. The token id
// (jti) doubles as the server-side session key; a token is only valid while
// that key is live.
type SessionClaims struct {
	jwt.RegisteredClaims
	AdminID   uuid.UUID `json:"admin_id"`
	AdminName string    `json:"admin_name"`
	UserID    string    `json:"user_id"`
}
