package handlers

import (
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"medbook-server/internal/middleware"
	"medbook-server/internal/models"
	"medbook-server/internal/scheduling"
	"medbook-server/internal/utils"
)

// AppointmentHandler exposes the scheduling service over HTTP.
type AppointmentHandler struct {
	Scheduler *scheduling.Service
}

// NewAppointmentHandler creates a new AppointmentHandler.
func NewAppointmentHandler(scheduler *scheduling.Service) *AppointmentHandler {
	return &AppointmentHandler{Scheduler: scheduler}
}

// schedulingError maps domain errors to HTTP responses.
func schedulingError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, scheduling.ErrMissingField),
		errors.Is(err, scheduling.ErrInvalidID),
		errors.Is(err, scheduling.ErrInvalidDate),
		errors.Is(err, scheduling.ErrInvalidDateRange),
		errors.Is(err, scheduling.ErrPastDate),
		errors.Is(err, scheduling.ErrInvalidStatus):
		utils.BadRequest(c, err.Error())
	case errors.Is(err, scheduling.ErrPatientNotFound),
		errors.Is(err, scheduling.ErrDoctorNotFound),
		errors.Is(err, scheduling.ErrAppointmentNotFound):
		utils.NotFound(c, err.Error())
	case errors.Is(err, scheduling.ErrSlotConflict),
		errors.Is(err, scheduling.ErrCannotModifyCancelled):
		utils.Conflict(c, err.Error())
	default:
		utils.InternalServerError(c, "Unexpected error: "+err.Error())
	}
}

// CreateAppointmentRequest represents the request body for booking.
type CreateAppointmentRequest struct {
	DoctorID  string    `json:"doctorId" binding:"required,uuid"`
	PatientID string    `json:"patientId" binding:"required,uuid"`
	Date      time.Time `json:"date" binding:"required"`
}

// CreateAppointment books a new appointment. Typically initiated by a
// patient; doctors and admins may book on a patient's behalf.
func (h *AppointmentHandler) CreateAppointment(c *gin.Context) {
	var req CreateAppointmentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}
	role, _ := middleware.GetUserRoleFromContext(c)
	if role == models.RolePatient && userID != req.PatientID {
		utils.Forbidden(c, "Patients can only book appointments for themselves.")
		return
	}

	appt, err := h.Scheduler.Book(c.Request.Context(), req.PatientID, req.DoctorID, req.Date)
	if err != nil {
		schedulingError(c, err)
		return
	}
	utils.Created(c, "Appointment created successfully", appt)
}

// listFilter builds a scheduling filter from the optional query parameters
// status, from and to.
func listFilter(c *gin.Context) (scheduling.Filter, bool) {
	var f scheduling.Filter
	f.Status = models.AppointmentStatus(c.Query("status"))

	for name, dst := range map[string]**time.Time{"from": &f.From, "to": &f.To} {
		raw := c.Query(name)
		if raw == "" {
			continue
		}
		t, err := parseDateParam(raw)
		if err != nil {
			utils.BadRequest(c, "Invalid "+name+" date: "+raw)
			return f, false
		}
		*dst = &t
	}
	return f, true
}

// parseDateParam accepts either an RFC 3339 timestamp or a plain
// YYYY-MM-DD calendar date in server-local time.
func parseDateParam(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006-01-02", raw, time.Local)
}

// GetAppointmentsForUser lists appointments for the logged-in user: patients
// see their own bookings, doctors their own schedule, admins everything.
func (h *AppointmentHandler) GetAppointmentsForUser(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}
	role, _ := middleware.GetUserRoleFromContext(c)

	f, ok := listFilter(c)
	if !ok {
		return
	}
	switch role {
	case models.RolePatient:
		f.PatientID = userID
	case models.RoleDoctor:
		f.DoctorID = userID
	case models.RoleAdmin:
		f.PatientID = c.Query("patientId")
		f.DoctorID = c.Query("doctorId")
	default:
		utils.Forbidden(c, "User role not permitted to view appointments this way.")
		return
	}

	appts, err := h.Scheduler.List(c.Request.Context(), f)
	if err != nil {
		schedulingError(c, err)
		return
	}
	utils.Success(c, "Appointments fetched successfully", appts)
}

// GetAppointmentByID fetches a single appointment. Accessible by the
// involved patient, the involved doctor, or an admin.
func (h *AppointmentHandler) GetAppointmentByID(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	appt, err := h.Scheduler.Get(c.Request.Context(), id)
	if err != nil {
		schedulingError(c, err)
		return
	}

	if !involvedOrAdmin(c, appt) {
		utils.Forbidden(c, "You are not authorized to view this appointment")
		return
	}
	utils.Success(c, "Appointment fetched successfully", appt)
}

// GetAppointmentsByDoctor lists a doctor's appointments. Doctors may only
// view their own schedule; admins may view any.
func (h *AppointmentHandler) GetAppointmentsByDoctor(c *gin.Context) {
	doctorID := c.Param("doctorId")
	userID, _ := middleware.GetUserIDFromContext(c)
	role, _ := middleware.GetUserRoleFromContext(c)
	if role != models.RoleAdmin && !(role == models.RoleDoctor && userID == doctorID) {
		utils.Forbidden(c, "You are not authorized to view this doctor's schedule")
		return
	}

	f, ok := listFilter(c)
	if !ok {
		return
	}
	f.DoctorID = doctorID

	appts, err := h.Scheduler.List(c.Request.Context(), f)
	if err != nil {
		schedulingError(c, err)
		return
	}
	utils.Success(c, "Appointments fetched successfully", appts)
}

// GetAppointmentsByPatient lists a patient's appointments. Patients may only
// view their own; doctors and admins may view any patient's.
func (h *AppointmentHandler) GetAppointmentsByPatient(c *gin.Context) {
	patientID := c.Param("patientId")
	userID, _ := middleware.GetUserIDFromContext(c)
	role, _ := middleware.GetUserRoleFromContext(c)
	if role == models.RolePatient && userID != patientID {
		utils.Forbidden(c, "Patients can only view their own appointments")
		return
	}

	f, ok := listFilter(c)
	if !ok {
		return
	}
	f.PatientID = patientID

	appts, err := h.Scheduler.List(c.Request.Context(), f)
	if err != nil {
		schedulingError(c, err)
		return
	}
	utils.Success(c, "Appointments fetched successfully", appts)
}

// GetAvailableSlots returns the free half-hour slots for a doctor on a
// calendar day, e.g. GET /appointments/available-slots?doctorId=...&date=2025-03-10.
func (h *AppointmentHandler) GetAvailableSlots(c *gin.Context) {
	doctorID := c.Query("doctorId")
	if doctorID == "" {
		utils.BadRequest(c, "doctorId query parameter is required")
		return
	}
	if _, err := uuid.Parse(doctorID); err != nil {
		schedulingError(c, fmt.Errorf("%w: doctorId", scheduling.ErrInvalidID))
		return
	}
	day, err := time.ParseInLocation("2006-01-02", c.Query("date"), time.Local)
	if err != nil {
		utils.BadRequest(c, "Invalid date, expected YYYY-MM-DD")
		return
	}

	slots, err := h.Scheduler.AvailableSlots(c.Request.Context(), doctorID, day)
	if err != nil {
		schedulingError(c, err)
		return
	}
	utils.Success(c, "Available slots fetched successfully", slots)
}

// UpdateAppointmentStatusRequest represents a status transition request.
type UpdateAppointmentStatusRequest struct {
	Status models.AppointmentStatus `json:"status" binding:"required,oneof=pending confirmed cancelled completed"`
	Reason string                   `json:"reason"` // recorded when cancelling
}

// UpdateAppointmentStatus transitions an appointment's status. Doctors and
// admins may apply any transition; patients may only cancel their own
// appointments.
func (h *AppointmentHandler) UpdateAppointmentStatus(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	var req UpdateAppointmentStatusRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	appt, err := h.Scheduler.Get(c.Request.Context(), id)
	if err != nil {
		schedulingError(c, err)
		return
	}

	userID, _ := middleware.GetUserIDFromContext(c)
	role, _ := middleware.GetUserRoleFromContext(c)
	switch {
	case role == models.RoleAdmin:
	case role == models.RoleDoctor && userID == appt.DoctorID:
	case role == models.RolePatient && userID == appt.PatientID:
		if req.Status != models.StatusCancelled {
			utils.Forbidden(c, "Patients can only cancel appointments.")
			return
		}
	default:
		utils.Forbidden(c, "You are not authorized to update this appointment's status.")
		return
	}

	var updated *models.Appointment
	if req.Status == models.StatusCancelled {
		updated, err = h.Scheduler.Cancel(c.Request.Context(), id, req.Reason)
	} else {
		updated, err = h.Scheduler.UpdateStatus(c.Request.Context(), id, req.Status)
	}
	if err != nil {
		schedulingError(c, err)
		return
	}
	utils.Success(c, "Appointment status updated successfully", updated)
}

// RescheduleAppointmentRequest represents a date-change request.
type RescheduleAppointmentRequest struct {
	Date time.Time `json:"date" binding:"required"`
}

// RescheduleAppointment moves an appointment to a new date. The involved
// doctor, the involved patient or an admin may reschedule.
func (h *AppointmentHandler) RescheduleAppointment(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	var req RescheduleAppointmentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	appt, err := h.Scheduler.Get(c.Request.Context(), id)
	if err != nil {
		schedulingError(c, err)
		return
	}
	if !involvedOrAdmin(c, appt) {
		utils.Forbidden(c, "You are not authorized to reschedule this appointment.")
		return
	}

	updated, err := h.Scheduler.UpdateDate(c.Request.Context(), id, req.Date)
	if err != nil {
		schedulingError(c, err)
		return
	}
	utils.Success(c, "Appointment rescheduled successfully", updated)
}

// DeleteAppointment soft-deletes an appointment by cancelling it. The record
// is kept with status=cancelled and a cancellation timestamp.
func (h *AppointmentHandler) DeleteAppointment(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	appt, err := h.Scheduler.Get(c.Request.Context(), id)
	if err != nil {
		schedulingError(c, err)
		return
	}
	if !involvedOrAdmin(c, appt) {
		utils.Forbidden(c, "You are not authorized to cancel this appointment.")
		return
	}

	updated, err := h.Scheduler.Cancel(c.Request.Context(), id, c.Query("reason"))
	if err != nil {
		schedulingError(c, err)
		return
	}
	utils.Success(c, "Appointment cancelled successfully", updated)
}

// CancelDoctorRangeRequest represents a bulk cancellation request.
type CancelDoctorRangeRequest struct {
	StartDate string `json:"startDate" binding:"required"`
	EndDate   string `json:"endDate" binding:"required"`
	Reason    string `json:"reason" binding:"required"`
}

// CancelDoctorRange cancels all of a doctor's non-terminal appointments in a
// date range, e.g. when the doctor goes on leave. Doctors may only clear
// their own schedule; admins any.
func (h *AppointmentHandler) CancelDoctorRange(c *gin.Context) {
	doctorID := c.Param("doctorId")
	userID, _ := middleware.GetUserIDFromContext(c)
	role, _ := middleware.GetUserRoleFromContext(c)
	if role != models.RoleAdmin && !(role == models.RoleDoctor && userID == doctorID) {
		utils.Forbidden(c, "You are not authorized to cancel this doctor's appointments.")
		return
	}

	var req CancelDoctorRangeRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	start, err := parseDateParam(req.StartDate)
	if err != nil {
		utils.BadRequest(c, "Invalid startDate: "+req.StartDate)
		return
	}
	end, err := parseDateParam(req.EndDate)
	if err != nil {
		utils.BadRequest(c, "Invalid endDate: "+req.EndDate)
		return
	}
	// A plain calendar end date covers the whole day.
	if len(req.EndDate) == len("2006-01-02") {
		_, end = scheduling.DayBounds(end)
	}

	modified, err := h.Scheduler.CancelDoctorRange(c.Request.Context(), doctorID, start, end, req.Reason)
	if err != nil {
		schedulingError(c, err)
		return
	}
	utils.Success(c, "Appointments cancelled successfully", gin.H{"modifiedCount": modified})
}

func parseIDParam(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		schedulingError(c, fmt.Errorf("%w: appointment id", scheduling.ErrInvalidID))
		return "", false
	}
	return id, true
}

func involvedOrAdmin(c *gin.Context, appt *models.Appointment) bool {
	userID, _ := middleware.GetUserIDFromContext(c)
	role, _ := middleware.GetUserRoleFromContext(c)
	if role == models.RoleAdmin {
		return true
	}
	return userID == appt.PatientID || userID == appt.DoctorID
}
