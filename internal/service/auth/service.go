package auth

import (
	"context"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/openphms/admin-api/internal/model"
	"github.com/openphms/admin-api/internal/repository"
	"github.com/openphms/admin-api/internal/session"
	apperrors "github.com/openphms/admin-api/pkg/errors"
)

const bcryptCost = 12

// dummyHash is compared against when the admin does not exist, so the login
// path costs the same whether the user id is known or not.
var dummyHash = []byte("$2a$12$R9h/cIPz0gi.URNNX3kh2OPST9/PgBkqquzi.Ss7KIUgO2t0jWMUW")

var (
	upperRe   = regexp.MustCompile(`[A-Z]`)
	lowerRe   = regexp.MustCompile(`[a-z]`)
	digitRe   = regexp.MustCompile(`[0-9]`)
	specialRe = regexp.MustCompile("[!@#$%^&*(),.?\":{}|<>_\\-+=\\[\\]\\\\/`~;]")
)

type Service struct {
	adminRepo repository.AdminRepository
	sessions  *session.Manager
}

func NewService(adminRepo repository.AdminRepository, sessions *session.Manager) *Service {
	return &Service{
		adminRepo: adminRepo,
		sessions:  sessions,
	}
}

// Authenticate verifies the credential pair and establishes a session.
// NotFound and InvalidCredential are distinguished here for callers that
// need it (logging, tests); the HTTP layer collapses both.
func (s *Service) Authenticate(ctx context.Context, userID, password string) (*model.TokenResponse, error) {
	admin, err := s.adminRepo.GetByUserID(ctx, userID)
	if err != nil {
		if apperrors.CodeOf(err) == apperrors.ErrNotFound {
			// Equalize timing with the found-admin path.
			bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			return nil, apperrors.NotFound("admin")
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)); err != nil {
		return nil, apperrors.Unauthenticated("invalid credentials")
	}

	if !admin.IsActive {
		return nil, apperrors.Forbidden("account is deactivated")
	}

	token, expiry, err := s.sessions.Issue(ctx, admin)
	if err != nil {
		return nil, err
	}

	log.Info().Str("user_id", admin.UserID).Msg("admin logged in")

	return &model.TokenResponse{
		AccessToken: token,
		ExpiresIn:   int64(time.Until(expiry).Seconds()),
	}, nil
}

// Authorize resolves a session token to its administrator. Every gated
// operation passes through here via the auth middleware.
func (s *Service) Authorize(ctx context.Context, token string) (*model.Administrator, error) {
	claims, err := s.sessions.Validate(ctx, token)
	if err != nil {
		return nil, err
	}
	admin, err := s.adminRepo.Get(ctx, claims.AdminID)
	if err != nil {
		if apperrors.CodeOf(err) == apperrors.ErrNotFound {
			return nil, apperrors.Unauthenticated("session admin no longer exists")
		}
		return nil, err
	}
	if !admin.IsActive {
		return nil, apperrors.Forbidden("account is deactivated")
	}
	return admin, nil
}

func (s *Service) Logout(ctx context.Context, token string) error {
	return s.sessions.Revoke(ctx, token)
}

// CreateAdmin provisions a new administrator. The requester must hold a
// valid session AND present their provisioning secret; a wrong secret is
// Forbidden no matter how valid the session is.
func (s *Service) CreateAdmin(ctx context.Context, requester *model.Administrator, req *model.CreateAdminRequest) (*model.Administrator, error) {
	if err := bcrypt.CompareHashAndPassword([]byte(requester.SecretPasswordHash), []byte(req.SecretPassword)); err != nil {
		return nil, apperrors.Forbidden("invalid provisioning secret")
	}

	if err := validatePassword(req.Password); err != nil {
		return nil, err
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	// New admins inherit the requester's provisioning secret hash; rotating
	// the secret means provisioning a fresh admin generation.
	admin := &model.Administrator{
		Base: model.Base{
			ID: uuid.New(),
		},
		UserID:             req.UserID,
		Name:               req.Name,
		PasswordHash:       string(passwordHash),
		SecretPasswordHash: requester.SecretPasswordHash,
		IsActive:           true,
	}

	if err := s.adminRepo.Create(ctx, admin); err != nil {
		return nil, err
	}

	log.Info().Str("user_id", admin.UserID).Str("created_by", requester.UserID).Msg("admin created")
	return admin, nil
}

// Bootstrap creates the first administrator when none exist. Used by the
// out-of-band bootstrap step only.
func (s *Service) Bootstrap(ctx context.Context, userID, name, password, secret string) (*model.Administrator, error) {
	if err := validatePassword(password); err != nil {
		return nil, err
	}
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	secretHash, err := bcrypt.GenerateFromPassword([]byte(secret), bcryptCost)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	admin := &model.Administrator{
		Base:               model.Base{ID: uuid.New()},
		UserID:             userID,
		Name:               name,
		PasswordHash:       string(passwordHash),
		SecretPasswordHash: string(secretHash),
		IsActive:           true,
	}
	if err := s.adminRepo.Create(ctx, admin); err != nil {
		return nil, err
	}
	return admin, nil
}

func (s *Service) ListAdmins(ctx context.Context) ([]*model.Administrator, error) {
	return s.adminRepo.List(ctx)
}

// DeleteAdmin removes an account. Self-deletion is rejected so a deployment
// cannot lock itself out.
func (s *Service) DeleteAdmin(ctx context.Context, requester *model.Administrator, id uuid.UUID) error {
	if requester.ID == id {
		return apperrors.Forbidden("cannot delete your own account")
	}
	if err := s.adminRepo.Delete(ctx, id); err != nil {
		return err
	}
	log.Info().Str("admin_id", id.String()).Str("deleted_by", requester.UserID).Msg("admin deleted")
	return nil
}

func validatePassword(password string) error {
	switch {
	case len(password) < 8:
		return apperrors.ValidationField("password", "password must be at least 8 characters")
	case !upperRe.MatchString(password):
		return apperrors.ValidationField("password", "password must contain an uppercase letter")
	case !lowerRe.MatchString(password):
		return apperrors.ValidationField("password", "password must contain a lowercase letter")
	case !digitRe.MatchString(password):
		return apperrors.ValidationField("password", "password must contain a digit")
	case !specialRe.MatchString(password):
		return apperrors.ValidationField("password", "password must contain a special character")
	}
	return nil
}
