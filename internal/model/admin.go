package model

// Administrator is a system operator. Accounts are never self-registered:
// they are created by the bootstrap step or by an authenticated administrator
// presenting the provisioning secret.
type Administrator struct {
	Base
	UserID             string `json:"user_id" db:"user_id"`
	Name               string `json:"name" db:"name"`
	PasswordHash       string `json:"-" db:"password_hash"`
	SecretPasswordHash string `json:"-" db:"secret_password_hash"`
	IsActive           bool   `json:"is_active" db:"is_active"`
}

// CreateAdminRequest carries admin provisioning parameters. SecretPassword is
// the requester's provisioning secret, not the candidate's.
type CreateAdminRequest struct {
	UserID         string `json:"user_id" binding:"required"`
	Name           string `json:"name" binding:"required"`
	Password       string `json:"password" binding:"required,min=8"`
	SecretPassword string `json:"secret_password" binding:"required"`
}
