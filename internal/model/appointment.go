package model

import (
	"time"

	"github.com/google/uuid"
)

// AppointmentStatus tracks the scheduling lifecycle. SCHEDULED is the only
// state that occupies a time slot; the terminal states free it.
type AppointmentStatus string

const (
	AppointmentScheduled AppointmentStatus = "SCHEDULED"
	AppointmentCompleted AppointmentStatus = "COMPLETED"
	AppointmentCancelled AppointmentStatus = "CANCELLED"
	AppointmentNoShow    AppointmentStatus = "NO_SHOW"
)

func (s AppointmentStatus) Valid() bool {
	switch s {
	case AppointmentScheduled, AppointmentCompleted, AppointmentCancelled, AppointmentNoShow:
		return true
	}
	return false
}

type AppointmentType string

const (
	AppointmentConsultation AppointmentType = "CONSULTATION"
	AppointmentFollowUp     AppointmentType = "FOLLOW_UP"
	AppointmentCheckup      AppointmentType = "CHECKUP"
	AppointmentLabReview    AppointmentType = "LAB_REVIEW"
)

func (t AppointmentType) Valid() bool {
	switch t {
	case AppointmentConsultation, AppointmentFollowUp, AppointmentCheckup, AppointmentLabReview:
		return true
	}
	return false
}

// Appointment books one patient with one administrator for a time slot.
// AdminID is the attending doctor; slots of the same admin never overlap
// while SCHEDULED.
type Appointment struct {
	Base
	PatientID    uuid.UUID         `json:"patient_id" db:"patient_id"`
	AdminID      uuid.UUID         `json:"admin_id" db:"admin_id"`
	StartTime    time.Time         `json:"start_time" db:"start_time"`
	EndTime      time.Time         `json:"end_time" db:"end_time"`
	Type         AppointmentType   `json:"type" db:"type"`
	Status       AppointmentStatus `json:"status" db:"status"`
	Notes        *string           `json:"notes,omitempty" db:"notes"`
	CancelReason *string           `json:"cancel_reason,omitempty" db:"cancel_reason"`
}

// CreateAppointmentRequest books a slot. AdminID defaults to the requesting
// administrator; DurationMinutes defaults to 30.
type CreateAppointmentRequest struct {
	PatientID       uuid.UUID  `json:"patient_id" binding:"required"`
	AdminID         *uuid.UUID `json:"admin_id"`
	StartTime       time.Time  `json:"start_time" binding:"required"`
	DurationMinutes int        `json:"duration_minutes"`
	Type            *string    `json:"type"`
	Notes           *string    `json:"notes"`
}

// RescheduleAppointmentRequest moves a SCHEDULED appointment. A nil duration
// keeps the current slot length.
type RescheduleAppointmentRequest struct {
	StartTime       time.Time `json:"start_time" binding:"required"`
	DurationMinutes *int      `json:"duration_minutes"`
}

type CancelAppointmentRequest struct {
	Reason *string `json:"reason"`
}

// AppointmentFilters bounds a listing; all fields are optional.
type AppointmentFilters struct {
	Status    *string    `json:"status" form:"status"`
	PatientID *uuid.UUID `json:"patient_id" form:"patient_id"`
	AdminID   *uuid.UUID `json:"admin_id" form:"admin_id"`
	From      *time.Time `json:"from" form:"from" time_format:"2006-01-02"`
	To        *time.Time `json:"to" form:"to" time_format:"2006-01-02"`
	Pagination
}

// ConflictQuery asks whether a prospective slot overlaps an existing
// SCHEDULED appointment of the same admin.
type ConflictQuery struct {
	AdminID         uuid.UUID `json:"admin_id" form:"admin_id" binding:"required"`
	StartTime       time.Time `json:"start_time" form:"start_time" time_format:"2006-01-02T15:04:05Z07:00" binding:"required"`
	DurationMinutes int       `json:"duration_minutes" form:"duration_minutes"`
}
