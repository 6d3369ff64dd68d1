package models

import (
	"time"
)

// AppointmentStatus represents the status of an appointment
type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCancelled AppointmentStatus = "cancelled"
	StatusCompleted AppointmentStatus = "completed"
)

// ValidStatus reports whether s is one of the four recognised statuses.
func ValidStatus(s AppointmentStatus) bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// Appointment represents a scheduled meeting between one patient and one
// doctor at an exact point in time. Appointments are never deleted; a delete
// is a transition to cancelled.
type Appointment struct {
	BaseModel
	PatientID string            `gorm:"size:36;index" json:"patientId"`
	DoctorID  string            `gorm:"size:36;index:idx_doctor_date,priority:1" json:"doctorId"`
	Date      time.Time         `gorm:"index:idx_doctor_date,priority:2" json:"date"`
	Status    AppointmentStatus `gorm:"size:20;default:'pending';index" json:"status"`

	CancellationReason string     `gorm:"size:255" json:"cancellationReason,omitempty"`
	CancelledAt        *time.Time `json:"cancelledAt,omitempty"`

	// Relations, preloaded where the caller needs display data
	Patient User `gorm:"foreignKey:PatientID" json:"patient,omitempty"`
	Doctor  User `gorm:"foreignKey:DoctorID" json:"doctor,omitempty"`
}
