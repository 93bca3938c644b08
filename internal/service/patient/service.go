package patient

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/openphms/admin-api/internal/model"
	"github.com/openphms/admin-api/internal/repository"
	apperrors "github.com/openphms/admin-api/pkg/errors"
)

type Service struct {
	repo repository.PatientRepository
}

func NewService(repo repository.PatientRepository) *Service {
	return &Service{repo: repo}
}

func (s *Service) CreatePatient(ctx context.Context, req *model.CreatePatientRequest) (*model.Patient, error) {
	name := strings.TrimSpace(req.FullName)
	if name == "" {
		return nil, apperrors.ValidationField("full_name", "full name is required")
	}

	patient := &model.Patient{
		Base: model.Base{
			ID: uuid.New(),
		},
		FullName:          name,
		Age:               req.Age,
		Gender:            req.Gender,
		ContactNumber:     req.ContactNumber,
		Email:             req.Email,
		Address:           req.Address,
		MedicalConditions: normalizeConditions(req.MedicalConditions),
		EmergencyContact:  req.EmergencyContact,
	}

	if err := s.repo.Create(ctx, patient); err != nil {
		return nil, err
	}

	log.Info().Str("patient_id", patient.ID.String()).Msg("patient created")
	return patient, nil
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) ListPatients(ctx context.Context, p model.Pagination) ([]*model.Patient, error) {
	return s.repo.List(ctx, p)
}

func (s *Service) SearchPatients(ctx context.Context, search model.PatientSearch) ([]*model.Patient, error) {
	search.Query = strings.TrimSpace(search.Query)
	if search.Query == "" {
		return s.repo.List(ctx, search.Pagination)
	}
	return s.repo.Search(ctx, search)
}

func (s *Service) UpdatePatient(ctx context.Context, id uuid.UUID, req *model.UpdatePatientRequest) (*model.Patient, error) {
	if req.FullName != nil && strings.TrimSpace(*req.FullName) == "" {
		return nil, apperrors.ValidationField("full_name", "full name cannot be empty")
	}
	if req.MedicalConditions != nil {
		normalized := []string(normalizeConditions(*req.MedicalConditions))
		req.MedicalConditions = &normalized
	}
	return s.repo.Update(ctx, id, req)
}

// DeletePatient removes the patient and, by the documented cascade policy,
// every snapshot it owns.
func (s *Service) DeletePatient(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	log.Info().Str("patient_id", id.String()).Msg("patient deleted with snapshots")
	return nil
}

// normalizeConditions trims and drops empty freeform tags; tags have no
// fixed vocabulary.
func normalizeConditions(tags []string) pq.StringArray {
	out := pq.StringArray{}
	for _, tag := range tags {
		if t := strings.TrimSpace(tag); t != "" {
			out = append(out, t)
		}
	}
	return out
}
