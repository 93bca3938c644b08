package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/openphms/admin-api/internal/model"
	"github.com/openphms/admin-api/internal/repository"
	apperrors "github.com/openphms/admin-api/pkg/errors"
)

type adminRepository struct {
	db *sqlx.DB
}

func NewAdminRepository(db *sqlx.DB) repository.AdminRepository {
	return &adminRepository{db: db}
}

func (r *adminRepository) Create(ctx context.Context, admin *model.Administrator) error {
	query := `
		INSERT INTO admins (id, user_id, name, password_hash, secret_password_hash, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	admin.CreatedAt = time.Now().UTC()
	admin.UpdatedAt = admin.CreatedAt

	_, err := r.db.ExecContext(ctx, query,
		admin.ID,
		admin.UserID,
		admin.Name,
		admin.PasswordHash,
		admin.SecretPasswordHash,
		admin.IsActive,
		admin.CreatedAt,
		admin.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return apperrors.Conflict(fmt.Sprintf("user id %q already exists", admin.UserID))
		}
		return apperrors.Storage(fmt.Errorf("failed to create admin: %w", err))
	}
	return nil
}

func (r *adminRepository) Get(ctx context.Context, id uuid.UUID) (*model.Administrator, error) {
	query := `SELECT * FROM admins WHERE id = $1`
	var admin model.Administrator
	err := r.db.GetContext(ctx, &admin, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("admin")
	}
	if err != nil {
		return nil, apperrors.Storage(fmt.Errorf("failed to get admin: %w", err))
	}
	return &admin, nil
}

func (r *adminRepository) GetByUserID(ctx context.Context, userID string) (*model.Administrator, error) {
	query := `SELECT * FROM admins WHERE user_id = $1`
	var admin model.Administrator
	err := r.db.GetContext(ctx, &admin, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("admin")
	}
	if err != nil {
		return nil, apperrors.Storage(fmt.Errorf("failed to get admin by user id: %w", err))
	}
	return &admin, nil
}

func (r *adminRepository) List(ctx context.Context) ([]*model.Administrator, error) {
	query := `SELECT * FROM admins ORDER BY name ASC`
	var admins []*model.Administrator
	if err := r.db.SelectContext(ctx, &admins, query); err != nil {
		return nil, apperrors.Storage(fmt.Errorf("failed to list admins: %w", err))
	}
	return admins, nil
}

func (r *adminRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM admins WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23503" {
			return apperrors.Conflict("administrator still has appointments; reassign or cancel them first")
		}
		return apperrors.Storage(fmt.Errorf("failed to delete admin: %w", err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NotFound("admin")
	}
	return nil
}
