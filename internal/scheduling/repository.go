package scheduling

import (
	"context"
	"time"

	"medbook-server/internal/models"
)

// Filter narrows appointment listings. Zero values mean "no constraint".
type Filter struct {
	DoctorID  string
	PatientID string
	Status    models.AppointmentStatus
	From      *time.Time
	To        *time.Time
}

// AppointmentRepository contains all appointment storage interactions needed
// by the service. Implementations must enforce the doctor/date uniqueness
// invariant inside the write path: CreateExclusive and MoveExclusive return
// ErrSlotConflict when another non-cancelled appointment for the same doctor
// holds the exact same timestamp, and must do so correctly under concurrent
// writers.
type AppointmentRepository interface {
	CreateExclusive(ctx context.Context, appt *models.Appointment) error
	FindByID(ctx context.Context, id string) (*models.Appointment, error)
	Find(ctx context.Context, f Filter) ([]models.Appointment, error)

	// FindForDoctorDay returns the doctor's non-cancelled appointments with
	// date inside [dayStart, dayEnd], ordered chronologically.
	FindForDoctorDay(ctx context.Context, doctorID string, dayStart, dayEnd time.Time) ([]models.Appointment, error)

	Update(ctx context.Context, appt *models.Appointment) error
	MoveExclusive(ctx context.Context, appt *models.Appointment, newDate time.Time) error

	// CancelRange cancels every appointment of the doctor with date in
	// [start, end] and status outside the terminal set, in a single
	// multi-row update. Returns the number of rows modified.
	CancelRange(ctx context.Context, doctorID string, start, end time.Time, reason string, at time.Time) (int64, error)

	CountByStatus(ctx context.Context) (map[models.AppointmentStatus]int64, error)
}

// UserDirectory resolves users by id and role. A (nil, nil) return means no
// such user exists with that role.
type UserDirectory interface {
	FindByIDAndRole(ctx context.Context, id string, role models.Role) (*models.User, error)
}
