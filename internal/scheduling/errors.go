package scheduling

import "errors"

// Domain failures surfaced by the scheduling service. Handlers translate
// these to HTTP statuses with errors.Is; anything else is an internal error.
var (
	ErrMissingField          = errors.New("required field is missing")
	ErrInvalidID             = errors.New("invalid id format")
	ErrInvalidDate           = errors.New("invalid date")
	ErrInvalidDateRange      = errors.New("end date must not be before start date")
	ErrPastDate              = errors.New("appointment date must be in the future")
	ErrPatientNotFound       = errors.New("patient not found")
	ErrDoctorNotFound        = errors.New("doctor not found")
	ErrAppointmentNotFound   = errors.New("appointment not found")
	ErrSlotConflict          = errors.New("doctor already has an appointment at this time")
	ErrCannotModifyCancelled = errors.New("cancelled appointments cannot be modified")
	ErrInvalidStatus         = errors.New("invalid appointment status")
)
