package scheduling

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"medbook-server/internal/models"
)

// Compile-time checks that the test doubles satisfy the contracts.
var (
	_ AppointmentRepository = (*mockAppointmentRepo)(nil)
	_ AppointmentRepository = (*memoryAppointmentRepo)(nil)
	_ UserDirectory         = (*mockUserDirectory)(nil)
)

// mockAppointmentRepo is a func-field mock of AppointmentRepository.
type mockAppointmentRepo struct {
	CreateExclusiveFunc  func(ctx context.Context, appt *models.Appointment) error
	FindByIDFunc         func(ctx context.Context, id string) (*models.Appointment, error)
	FindFunc             func(ctx context.Context, f Filter) ([]models.Appointment, error)
	FindForDoctorDayFunc func(ctx context.Context, doctorID string, dayStart, dayEnd time.Time) ([]models.Appointment, error)
	UpdateFunc           func(ctx context.Context, appt *models.Appointment) error
	MoveExclusiveFunc    func(ctx context.Context, appt *models.Appointment, newDate time.Time) error
	CancelRangeFunc      func(ctx context.Context, doctorID string, start, end time.Time, reason string, at time.Time) (int64, error)
	CountByStatusFunc    func(ctx context.Context) (map[models.AppointmentStatus]int64, error)
}

func (m *mockAppointmentRepo) CreateExclusive(ctx context.Context, appt *models.Appointment) error {
	if m.CreateExclusiveFunc != nil {
		return m.CreateExclusiveFunc(ctx, appt)
	}
	return nil
}

func (m *mockAppointmentRepo) FindByID(ctx context.Context, id string) (*models.Appointment, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	return nil, errors.New("FindByIDFunc not implemented in mock")
}

func (m *mockAppointmentRepo) Find(ctx context.Context, f Filter) ([]models.Appointment, error) {
	if m.FindFunc != nil {
		return m.FindFunc(ctx, f)
	}
	return nil, nil
}

func (m *mockAppointmentRepo) FindForDoctorDay(ctx context.Context, doctorID string, dayStart, dayEnd time.Time) ([]models.Appointment, error) {
	if m.FindForDoctorDayFunc != nil {
		return m.FindForDoctorDayFunc(ctx, doctorID, dayStart, dayEnd)
	}
	return nil, nil
}

func (m *mockAppointmentRepo) Update(ctx context.Context, appt *models.Appointment) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, appt)
	}
	return nil
}

func (m *mockAppointmentRepo) MoveExclusive(ctx context.Context, appt *models.Appointment, newDate time.Time) error {
	if m.MoveExclusiveFunc != nil {
		return m.MoveExclusiveFunc(ctx, appt, newDate)
	}
	appt.Date = newDate
	return nil
}

func (m *mockAppointmentRepo) CancelRange(ctx context.Context, doctorID string, start, end time.Time, reason string, at time.Time) (int64, error) {
	if m.CancelRangeFunc != nil {
		return m.CancelRangeFunc(ctx, doctorID, start, end, reason, at)
	}
	return 0, errors.New("CancelRangeFunc not implemented in mock")
}

func (m *mockAppointmentRepo) CountByStatus(ctx context.Context) (map[models.AppointmentStatus]int64, error) {
	if m.CountByStatusFunc != nil {
		return m.CountByStatusFunc(ctx)
	}
	return nil, nil
}

// mockUserDirectory resolves users from a fixed set.
type mockUserDirectory struct {
	users map[string]models.Role
}

func directoryWith(users map[string]models.Role) *mockUserDirectory {
	return &mockUserDirectory{users: users}
}

func (m *mockUserDirectory) FindByIDAndRole(ctx context.Context, id string, role models.Role) (*models.User, error) {
	if r, ok := m.users[id]; ok && r == role {
		u := &models.User{Role: r}
		u.ID = id
		return u, nil
	}
	return nil, nil
}

// memoryAppointmentRepo is a mutex-guarded in-memory store honouring the
// exclusive-write contract, used for round-trip and concurrency tests.
type memoryAppointmentRepo struct {
	mu    sync.Mutex
	appts map[string]*models.Appointment
}

func newMemoryRepo() *memoryAppointmentRepo {
	return &memoryAppointmentRepo{appts: make(map[string]*models.Appointment)}
}

func (m *memoryAppointmentRepo) conflictLocked(doctorID string, date time.Time, excludeID string) bool {
	for _, a := range m.appts {
		if a.ID == excludeID {
			continue
		}
		if a.DoctorID == doctorID && a.Date.Equal(date) && a.Status != models.StatusCancelled {
			return true
		}
	}
	return false
}

func (m *memoryAppointmentRepo) CreateExclusive(ctx context.Context, appt *models.Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conflictLocked(appt.DoctorID, appt.Date, "") {
		return ErrSlotConflict
	}
	appt.ID = uuid.New().String()
	stored := *appt
	m.appts[appt.ID] = &stored
	return nil
}

func (m *memoryAppointmentRepo) FindByID(ctx context.Context, id string) (*models.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appts[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memoryAppointmentRepo) Find(ctx context.Context, f Filter) ([]models.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Appointment
	for _, a := range m.appts {
		if f.DoctorID != "" && a.DoctorID != f.DoctorID {
			continue
		}
		if f.PatientID != "" && a.PatientID != f.PatientID {
			continue
		}
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		out = append(out, *a)
	}
	return out, nil
}

func (m *memoryAppointmentRepo) FindForDoctorDay(ctx context.Context, doctorID string, dayStart, dayEnd time.Time) ([]models.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Appointment
	for _, a := range m.appts {
		if a.DoctorID != doctorID || a.Status == models.StatusCancelled {
			continue
		}
		if a.Date.Before(dayStart) || a.Date.After(dayEnd) {
			continue
		}
		out = append(out, *a)
	}
	return out, nil
}

func (m *memoryAppointmentRepo) Update(ctx context.Context, appt *models.Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *appt
	m.appts[appt.ID] = &stored
	return nil
}

func (m *memoryAppointmentRepo) MoveExclusive(ctx context.Context, appt *models.Appointment, newDate time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conflictLocked(appt.DoctorID, newDate, appt.ID) {
		return ErrSlotConflict
	}
	appt.Date = newDate
	stored := *appt
	m.appts[appt.ID] = &stored
	return nil
}

func (m *memoryAppointmentRepo) CancelRange(ctx context.Context, doctorID string, start, end time.Time, reason string, at time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var modified int64
	for _, a := range m.appts {
		if a.DoctorID != doctorID {
			continue
		}
		if a.Status == models.StatusCancelled || a.Status == models.StatusCompleted {
			continue
		}
		if a.Date.Before(start) || a.Date.After(end) {
			continue
		}
		cancelled := at
		a.Status = models.StatusCancelled
		a.CancellationReason = reason
		a.CancelledAt = &cancelled
		modified++
	}
	return modified, nil
}

func (m *memoryAppointmentRepo) CountByStatus(ctx context.Context) (map[models.AppointmentStatus]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[models.AppointmentStatus]int64)
	for _, a := range m.appts {
		counts[a.Status]++
	}
	return counts, nil
}
