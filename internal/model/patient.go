package model

import (
	"github.com/lib/pq"
)

type Patient struct {
	Base
	FullName          string         `json:"full_name" db:"full_name"`
	Age               *int           `json:"age,omitempty" db:"age"`
	Gender            *string        `json:"gender,omitempty" db:"gender"`
	ContactNumber     *string        `json:"contact_number,omitempty" db:"contact_number"`
	Email             *string        `json:"email,omitempty" db:"email"`
	Address           *string        `json:"address,omitempty" db:"address"`
	MedicalConditions pq.StringArray `json:"medical_conditions" db:"medical_conditions"`
	EmergencyContact  *string        `json:"emergency_contact,omitempty" db:"emergency_contact"`
}

type CreatePatientRequest struct {
	FullName          string   `json:"full_name" binding:"required"`
	Age               *int     `json:"age" binding:"omitempty,gte=0,lte=150"`
	Gender            *string  `json:"gender" binding:"omitempty,gender"`
	ContactNumber     *string  `json:"contact_number"`
	Email             *string  `json:"email" binding:"omitempty,email"`
	Address           *string  `json:"address"`
	MedicalConditions []string `json:"medical_conditions"`
	EmergencyContact  *string  `json:"emergency_contact"`
}

// UpdatePatientRequest is a partial update: nil fields are left untouched.
type UpdatePatientRequest struct {
	FullName          *string   `json:"full_name"`
	Age               *int      `json:"age" binding:"omitempty,gte=0,lte=150"`
	Gender            *string   `json:"gender" binding:"omitempty,gender"`
	ContactNumber     *string   `json:"contact_number"`
	Email             *string   `json:"email" binding:"omitempty,email"`
	Address           *string   `json:"address"`
	MedicalConditions *[]string `json:"medical_conditions"`
	EmergencyContact  *string   `json:"emergency_contact"`
}

// PatientSearch holds search parameters: a case-insensitive partial name
// match, or an exact id when the query parses as a uuid.
type PatientSearch struct {
	Query string `json:"query" form:"q"`
	Pagination
}
