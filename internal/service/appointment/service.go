// Package appointment schedules patient visits against administrator time
// slots. A slot is held only while SCHEDULED; cancelling, completing or a
// no-show frees it. Overlap checks treat slots as half-open intervals.
package appointment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/openphms/admin-api/internal/model"
	"github.com/openphms/admin-api/internal/repository"
	apperrors "github.com/openphms/admin-api/pkg/errors"
)

const (
	MinDuration     = 15 * time.Minute
	MaxDuration     = 4 * time.Hour
	MaxAdvance      = 90 * 24 * time.Hour
	DefaultDuration = 30 * time.Minute
)

type Service struct {
	repo     repository.AppointmentRepository
	patients repository.PatientRepository
	admins   repository.AdminRepository

	// now is swappable so slot validation is testable at fixed instants.
	now func() time.Time
}

func NewService(repo repository.AppointmentRepository, patients repository.PatientRepository, admins repository.AdminRepository) *Service {
	return &Service{
		repo:     repo,
		patients: patients,
		admins:   admins,
		now:      time.Now,
	}
}

// Create books a slot for the patient with the given admin. The slot must be
// in the future, within the advance-booking window, and free of overlap with
// the admin's other SCHEDULED appointments.
func (s *Service) Create(ctx context.Context, req *model.CreateAppointmentRequest, requestedBy uuid.UUID) (*model.Appointment, error) {
	adminID := requestedBy
	if req.AdminID != nil {
		adminID = *req.AdminID
	}

	aptType := model.AppointmentConsultation
	if req.Type != nil {
		aptType = model.AppointmentType(*req.Type)
		if !aptType.Valid() {
			return nil, apperrors.ValidationField("type", fmt.Sprintf("unknown appointment type %q", *req.Type))
		}
	}

	start, end, err := s.slot(req.StartTime, req.DurationMinutes)
	if err != nil {
		return nil, err
	}

	if _, err := s.patients.Get(ctx, req.PatientID); err != nil {
		return nil, err
	}
	if _, err := s.admins.Get(ctx, adminID); err != nil {
		return nil, err
	}
	if err := s.ensureFree(ctx, adminID, start, end, uuid.Nil); err != nil {
		return nil, err
	}

	apt := &model.Appointment{
		Base: model.Base{
			ID: uuid.New(),
		},
		PatientID: req.PatientID,
		AdminID:   adminID,
		StartTime: start,
		EndTime:   end,
		Type:      aptType,
		Status:    model.AppointmentScheduled,
		Notes:     req.Notes,
	}
	if err := s.repo.Create(ctx, apt); err != nil {
		return nil, err
	}

	log.Info().
		Str("appointment_id", apt.ID.String()).
		Str("patient_id", apt.PatientID.String()).
		Str("admin_id", apt.AdminID.String()).
		Time("start_time", apt.StartTime).
		Msg("appointment scheduled")
	return apt, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, filters model.AppointmentFilters) ([]*model.Appointment, error) {
	if filters.Status != nil && !model.AppointmentStatus(*filters.Status).Valid() {
		return nil, apperrors.ValidationField("status", fmt.Sprintf("unknown status %q", *filters.Status))
	}
	if filters.From != nil && filters.To != nil && filters.To.Before(*filters.From) {
		return nil, apperrors.ValidationField("to", "range end precedes range start")
	}
	return s.repo.List(ctx, filters)
}

// Reschedule moves a SCHEDULED appointment to a new slot, keeping the
// duration unless a new one is given. The old slot is ignored in the overlap
// check so an appointment can shift within its own time.
func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, req *model.RescheduleAppointmentRequest) (*model.Appointment, error) {
	apt, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if apt.Status != model.AppointmentScheduled {
		return nil, apperrors.Validation(fmt.Sprintf("appointment in status %s cannot be rescheduled", apt.Status))
	}

	minutes := int(apt.EndTime.Sub(apt.StartTime) / time.Minute)
	if req.DurationMinutes != nil {
		minutes = *req.DurationMinutes
	}
	start, end, err := s.slot(req.StartTime, minutes)
	if err != nil {
		return nil, err
	}
	if err := s.ensureFree(ctx, apt.AdminID, start, end, apt.ID); err != nil {
		return nil, err
	}

	apt.StartTime = start
	apt.EndTime = end
	if err := s.repo.Update(ctx, apt); err != nil {
		return nil, err
	}

	log.Info().
		Str("appointment_id", apt.ID.String()).
		Time("start_time", apt.StartTime).
		Msg("appointment rescheduled")
	return apt, nil
}

// Cancel frees the slot. Completed appointments are history and stay as-is.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, reason *string) (*model.Appointment, error) {
	apt, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	switch apt.Status {
	case model.AppointmentCancelled:
		return nil, apperrors.Validation("appointment is already cancelled")
	case model.AppointmentCompleted:
		return nil, apperrors.Validation("cannot cancel a completed appointment")
	}

	apt.Status = model.AppointmentCancelled
	apt.CancelReason = reason
	if err := s.repo.Update(ctx, apt); err != nil {
		return nil, err
	}
	return apt, nil
}

// Complete marks the visit as held. Only a SCHEDULED appointment can
// complete; terminal states never transition again.
func (s *Service) Complete(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	return s.transition(ctx, id, model.AppointmentCompleted)
}

// MarkNoShow records that the patient did not turn up.
func (s *Service) MarkNoShow(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	return s.transition(ctx, id, model.AppointmentNoShow)
}

// Delete removes an appointment outright; only cancelled ones may go, the
// rest are either live bookings or visit history.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	apt, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if apt.Status != model.AppointmentCancelled {
		return apperrors.Validation("only cancelled appointments can be deleted")
	}
	return s.repo.Delete(ctx, id)
}

// CheckConflict reports whether a prospective slot overlaps an existing
// SCHEDULED appointment of the admin. It never books anything.
func (s *Service) CheckConflict(ctx context.Context, q model.ConflictQuery) (bool, error) {
	minutes := q.DurationMinutes
	if minutes == 0 {
		minutes = int(DefaultDuration / time.Minute)
	}
	duration := time.Duration(minutes) * time.Minute
	if duration < MinDuration || duration > MaxDuration {
		return false, apperrors.ValidationField("duration_minutes",
			fmt.Sprintf("duration must be between %v and %v", MinDuration, MaxDuration))
	}
	start := q.StartTime.UTC()
	n, err := s.repo.CountOverlapping(ctx, q.AdminID, start, start.Add(duration), uuid.Nil)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, to model.AppointmentStatus) (*model.Appointment, error) {
	apt, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if apt.Status != model.AppointmentScheduled {
		return nil, apperrors.Validation(fmt.Sprintf("appointment in status %s cannot change to %s", apt.Status, to))
	}
	apt.Status = to
	if err := s.repo.Update(ctx, apt); err != nil {
		return nil, err
	}
	return apt, nil
}

func (s *Service) slot(start time.Time, minutes int) (time.Time, time.Time, error) {
	var zero time.Time
	if minutes == 0 {
		minutes = int(DefaultDuration / time.Minute)
	}
	duration := time.Duration(minutes) * time.Minute
	if duration < MinDuration || duration > MaxDuration {
		return zero, zero, apperrors.ValidationField("duration_minutes",
			fmt.Sprintf("duration must be between %v and %v", MinDuration, MaxDuration))
	}

	start = start.UTC()
	now := s.now().UTC()
	if start.Before(now) {
		return zero, zero, apperrors.ValidationField("start_time", "appointment cannot be scheduled in the past")
	}
	if start.Sub(now) > MaxAdvance {
		return zero, zero, apperrors.ValidationField("start_time",
			fmt.Sprintf("appointment cannot be booked more than %v in advance", MaxAdvance))
	}
	return start, start.Add(duration), nil
}

func (s *Service) ensureFree(ctx context.Context, adminID uuid.UUID, start, end time.Time, exclude uuid.UUID) error {
	n, err := s.repo.CountOverlapping(ctx, adminID, start, end, exclude)
	if err != nil {
		return err
	}
	if n > 0 {
		return apperrors.Conflict("time slot is already booked")
	}
	return nil
}
