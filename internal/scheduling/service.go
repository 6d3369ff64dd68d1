package scheduling

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"medbook-server/internal/models"
)

// Service implements the appointment scheduling rules: slot availability,
// conflict-free booking, the status state machine and bulk cancellation.
// All validation happens before any write.
type Service struct {
	appointments AppointmentRepository
	users        UserDirectory
	log          zerolog.Logger
	now          func() time.Time
}

// NewService creates a scheduling service backed by the given repositories.
func NewService(appointments AppointmentRepository, users UserDirectory, log zerolog.Logger) *Service {
	return &Service{
		appointments: appointments,
		users:        users,
		log:          log,
		now:          time.Now,
	}
}

// Book creates a pending appointment for the patient with the doctor at the
// exact timestamp date. The date must be strictly in the future and the
// doctor must not already hold a non-cancelled appointment at that instant.
func (s *Service) Book(ctx context.Context, patientID, doctorID string, date time.Time) (*models.Appointment, error) {
	if patientID == "" || doctorID == "" || date.IsZero() {
		return nil, fmt.Errorf("%w: patientId, doctorId and date are required", ErrMissingField)
	}

	patient, err := s.users.FindByIDAndRole(ctx, patientID, models.RolePatient)
	if err != nil {
		return nil, err
	}
	if patient == nil {
		return nil, ErrPatientNotFound
	}
	doctor, err := s.users.FindByIDAndRole(ctx, doctorID, models.RoleDoctor)
	if err != nil {
		return nil, err
	}
	if doctor == nil {
		return nil, ErrDoctorNotFound
	}

	if !date.After(s.now()) {
		return nil, ErrPastDate
	}

	appt := &models.Appointment{
		PatientID: patientID,
		DoctorID:  doctorID,
		Date:      date,
		Status:    models.StatusPending,
	}
	if err := s.appointments.CreateExclusive(ctx, appt); err != nil {
		return nil, err
	}
	appt.Patient = *patient
	appt.Doctor = *doctor

	s.log.Info().
		Str("appointment", appt.ID).
		Str("doctor", doctorID).
		Time("date", date).
		Msg("appointment booked")
	return appt, nil
}

// Get returns a single appointment with patient/doctor references resolved.
func (s *Service) Get(ctx context.Context, id string) (*models.Appointment, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: appointment id is required", ErrMissingField)
	}
	return s.appointments.FindByID(ctx, id)
}

// List returns appointments matching the filter in chronological order.
func (s *Service) List(ctx context.Context, f Filter) ([]models.Appointment, error) {
	if f.Status != "" && !models.ValidStatus(f.Status) {
		return nil, ErrInvalidStatus
	}
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return nil, ErrInvalidDateRange
	}
	return s.appointments.Find(ctx, f)
}

// AvailableSlots returns the free half-hour slots for the doctor on day's
// calendar date. Read-only: existing non-cancelled appointments that day
// knock out every grid slot within 30 minutes of them.
func (s *Service) AvailableSlots(ctx context.Context, doctorID string, day time.Time) ([]Slot, error) {
	if doctorID == "" {
		return nil, fmt.Errorf("%w: doctorId is required", ErrMissingField)
	}
	doctor, err := s.users.FindByIDAndRole(ctx, doctorID, models.RoleDoctor)
	if err != nil {
		return nil, err
	}
	if doctor == nil {
		return nil, ErrDoctorNotFound
	}

	dayStart, dayEnd := DayBounds(day)
	existing, err := s.appointments.FindForDoctorDay(ctx, doctorID, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}
	booked := make([]time.Time, len(existing))
	for i, a := range existing {
		booked[i] = a.Date
	}
	return AvailableSlots(day, booked), nil
}

// UpdateStatus transitions an appointment to status. Cancelled is terminal:
// once there, every further update is rejected. Completed is not hardened
// as terminal; callers are expected to only move forward from it.
func (s *Service) UpdateStatus(ctx context.Context, id string, status models.AppointmentStatus) (*models.Appointment, error) {
	if !models.ValidStatus(status) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	appt, err := s.appointments.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.Status == models.StatusCancelled {
		return nil, ErrCannotModifyCancelled
	}

	appt.Status = status
	if status == models.StatusCancelled {
		at := s.now()
		appt.CancelledAt = &at
	}
	if err := s.appointments.Update(ctx, appt); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("appointment", appt.ID).
		Str("status", string(status)).
		Msg("appointment status updated")
	return appt, nil
}

// UpdateDate moves an appointment to newDate, re-validating the future-date
// rule and the doctor/date uniqueness invariant against the new timestamp.
func (s *Service) UpdateDate(ctx context.Context, id string, newDate time.Time) (*models.Appointment, error) {
	if newDate.IsZero() {
		return nil, fmt.Errorf("%w: date is required", ErrMissingField)
	}
	if !newDate.After(s.now()) {
		return nil, ErrPastDate
	}
	appt, err := s.appointments.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.Status == models.StatusCancelled {
		return nil, ErrCannotModifyCancelled
	}

	if err := s.appointments.MoveExclusive(ctx, appt, newDate); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("appointment", appt.ID).
		Time("date", newDate).
		Msg("appointment rescheduled")
	return appt, nil
}

// Cancel soft-deletes an appointment: it transitions to cancelled with the
// given reason and a cancellation timestamp. Already-cancelled appointments
// are rejected.
func (s *Service) Cancel(ctx context.Context, id, reason string) (*models.Appointment, error) {
	appt, err := s.appointments.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.Status == models.StatusCancelled {
		return nil, ErrCannotModifyCancelled
	}

	at := s.now()
	appt.Status = models.StatusCancelled
	appt.CancellationReason = reason
	appt.CancelledAt = &at
	if err := s.appointments.Update(ctx, appt); err != nil {
		return nil, err
	}

	s.log.Info().Str("appointment", appt.ID).Msg("appointment cancelled")
	return appt, nil
}

// CancelDoctorRange cancels every non-terminal appointment of the doctor
// with date in [start, end], stamping the reason and cancellation time.
// Zero matches is a successful no-op.
func (s *Service) CancelDoctorRange(ctx context.Context, doctorID string, start, end time.Time, reason string) (int64, error) {
	if doctorID == "" {
		return 0, fmt.Errorf("%w: doctorId is required", ErrMissingField)
	}
	if start.IsZero() || end.IsZero() {
		return 0, fmt.Errorf("%w: start and end dates are required", ErrInvalidDate)
	}
	if end.Before(start) {
		return 0, ErrInvalidDateRange
	}
	doctor, err := s.users.FindByIDAndRole(ctx, doctorID, models.RoleDoctor)
	if err != nil {
		return 0, err
	}
	if doctor == nil {
		return 0, ErrDoctorNotFound
	}

	modified, err := s.appointments.CancelRange(ctx, doctorID, start, end, reason, s.now())
	if err != nil {
		return 0, err
	}

	s.log.Info().
		Str("doctor", doctorID).
		Time("start", start).
		Time("end", end).
		Int64("modified", modified).
		Msg("appointments bulk-cancelled")
	return modified, nil
}

// StatusCounts reports appointment totals per status for admin statistics.
func (s *Service) StatusCounts(ctx context.Context) (map[models.AppointmentStatus]int64, error) {
	return s.appointments.CountByStatus(ctx)
}
