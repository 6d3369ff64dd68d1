package scheduling

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medbook-server/internal/models"
)

const (
	patientID = "11111111-1111-1111-1111-111111111111"
	doctorID  = "22222222-2222-2222-2222-222222222222"
)

var testNow = time.Date(2025, time.March, 1, 12, 0, 0, 0, time.Local)

func newTestService(repo AppointmentRepository, users UserDirectory) *Service {
	svc := NewService(repo, users, zerolog.Nop())
	svc.now = func() time.Time { return testNow }
	return svc
}

func knownUsers() *mockUserDirectory {
	return directoryWith(map[string]models.Role{
		patientID: models.RolePatient,
		doctorID:  models.RoleDoctor,
	})
}

func futureDate() time.Time {
	return at(day(2025, time.March, 10), 10, 0)
}

func TestBookCreatesPendingAppointment(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, knownUsers())

	appt, err := svc.Book(context.Background(), patientID, doctorID, futureDate())

	require.NoError(t, err)
	assert.NotEmpty(t, appt.ID)
	assert.Equal(t, patientID, appt.PatientID)
	assert.Equal(t, doctorID, appt.DoctorID)
	assert.Equal(t, models.StatusPending, appt.Status)
	assert.True(t, appt.Date.Equal(futureDate()))
	assert.Equal(t, patientID, appt.Patient.ID)
	assert.Equal(t, doctorID, appt.Doctor.ID)
}

func TestBookThenGetRoundTrip(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, knownUsers())

	created, err := svc.Book(context.Background(), patientID, doctorID, futureDate())
	require.NoError(t, err)

	fetched, err := svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.PatientID, fetched.PatientID)
	assert.Equal(t, created.DoctorID, fetched.DoctorID)
	assert.True(t, created.Date.Equal(fetched.Date))
	assert.Equal(t, models.StatusPending, fetched.Status)
}

func TestBookMissingFields(t *testing.T) {
	svc := newTestService(&mockAppointmentRepo{}, knownUsers())

	_, err := svc.Book(context.Background(), "", doctorID, futureDate())
	assert.ErrorIs(t, err, ErrMissingField)

	_, err = svc.Book(context.Background(), patientID, "", futureDate())
	assert.ErrorIs(t, err, ErrMissingField)

	_, err = svc.Book(context.Background(), patientID, doctorID, time.Time{})
	assert.ErrorIs(t, err, ErrMissingField)
}

func TestBookUnknownParticipants(t *testing.T) {
	svc := newTestService(&mockAppointmentRepo{}, knownUsers())

	_, err := svc.Book(context.Background(), "33333333-3333-3333-3333-333333333333", doctorID, futureDate())
	assert.ErrorIs(t, err, ErrPatientNotFound)

	_, err = svc.Book(context.Background(), patientID, "33333333-3333-3333-3333-333333333333", futureDate())
	assert.ErrorIs(t, err, ErrDoctorNotFound)

	// A doctor id pointing at a patient must not resolve.
	_, err = svc.Book(context.Background(), patientID, patientID, futureDate())
	assert.ErrorIs(t, err, ErrDoctorNotFound)
}

func TestBookPastDate(t *testing.T) {
	svc := newTestService(&mockAppointmentRepo{}, knownUsers())

	_, err := svc.Book(context.Background(), patientID, doctorID, testNow.Add(-time.Hour))
	assert.ErrorIs(t, err, ErrPastDate)

	// Boundary: date == now is also rejected.
	_, err = svc.Book(context.Background(), patientID, doctorID, testNow)
	assert.ErrorIs(t, err, ErrPastDate)
}

func TestBookExactTimestampConflict(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, knownUsers())

	_, err := svc.Book(context.Background(), patientID, doctorID, futureDate())
	require.NoError(t, err)

	_, err = svc.Book(context.Background(), patientID, doctorID, futureDate())
	assert.ErrorIs(t, err, ErrSlotConflict)
}

func TestBookConflictLiftedAfterCancellation(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, knownUsers())

	first, err := svc.Book(context.Background(), patientID, doctorID, futureDate())
	require.NoError(t, err)
	_, err = svc.Cancel(context.Background(), first.ID, "patient request")
	require.NoError(t, err)

	// Cancelled appointments do not hold the slot.
	_, err = svc.Book(context.Background(), patientID, doctorID, futureDate())
	assert.NoError(t, err)
}

func TestBookConcurrentSameSlot(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, knownUsers())

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Book(context.Background(), patientID, doctorID, futureDate())
		}(i)
	}
	wg.Wait()

	var conflicts, successes int
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		case assert.ErrorIs(t, err, ErrSlotConflict):
			conflicts++
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, conflicts)
}

func TestAvailableSlotsFiltersExisting(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, knownUsers())
	d := day(2025, time.March, 10)

	_, err := svc.Book(context.Background(), patientID, doctorID, at(d, 10, 0))
	require.NoError(t, err)

	slots, err := svc.AvailableSlots(context.Background(), doctorID, d)
	require.NoError(t, err)
	require.Len(t, slots, 13)
	for _, s := range slots {
		assert.NotEqual(t, at(d, 9, 30), s.Time)
		assert.NotEqual(t, at(d, 10, 0), s.Time)
		assert.NotEqual(t, at(d, 10, 30), s.Time)
	}
}

func TestAvailableSlotsIgnoresCancelled(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, knownUsers())
	d := day(2025, time.March, 10)

	appt, err := svc.Book(context.Background(), patientID, doctorID, at(d, 10, 0))
	require.NoError(t, err)
	_, err = svc.Cancel(context.Background(), appt.ID, "no longer needed")
	require.NoError(t, err)

	slots, err := svc.AvailableSlots(context.Background(), doctorID, d)
	require.NoError(t, err)
	assert.Len(t, slots, 16)
}

func TestAvailableSlotsUnknownDoctor(t *testing.T) {
	svc := newTestService(&mockAppointmentRepo{}, knownUsers())

	_, err := svc.AvailableSlots(context.Background(), patientID, day(2025, time.March, 10))
	assert.ErrorIs(t, err, ErrDoctorNotFound)
}

func TestUpdateStatusForwardPath(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, knownUsers())

	appt, err := svc.Book(context.Background(), patientID, doctorID, futureDate())
	require.NoError(t, err)

	confirmed, err := svc.UpdateStatus(context.Background(), appt.ID, models.StatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, confirmed.Status)

	completed, err := svc.UpdateStatus(context.Background(), appt.ID, models.StatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, completed.Status)
}

func TestUpdateStatusInvalid(t *testing.T) {
	svc := newTestService(&mockAppointmentRepo{}, knownUsers())

	_, err := svc.UpdateStatus(context.Background(), "some-id", "rescheduled")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestUpdateStatusNotFound(t *testing.T) {
	svc := newTestService(newMemoryRepo(), knownUsers())

	_, err := svc.UpdateStatus(context.Background(), "missing", models.StatusConfirmed)
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
}

func TestUpdateStatusToCancelledStampsTimestamp(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, knownUsers())

	appt, err := svc.Book(context.Background(), patientID, doctorID, futureDate())
	require.NoError(t, err)

	cancelled, err := svc.UpdateStatus(context.Background(), appt.ID, models.StatusCancelled)
	require.NoError(t, err)
	require.NotNil(t, cancelled.CancelledAt)
	assert.True(t, cancelled.CancelledAt.Equal(testNow))
}

func TestCancelledIsTerminal(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, knownUsers())

	appt, err := svc.Book(context.Background(), patientID, doctorID, futureDate())
	require.NoError(t, err)
	_, err = svc.Cancel(context.Background(), appt.ID, "clinic closure")
	require.NoError(t, err)

	_, err = svc.UpdateStatus(context.Background(), appt.ID, models.StatusConfirmed)
	assert.ErrorIs(t, err, ErrCannotModifyCancelled)

	_, err = svc.UpdateStatus(context.Background(), appt.ID, models.StatusCancelled)
	assert.ErrorIs(t, err, ErrCannotModifyCancelled)

	_, err = svc.UpdateDate(context.Background(), appt.ID, futureDate().Add(24*time.Hour))
	assert.ErrorIs(t, err, ErrCannotModifyCancelled)

	_, err = svc.Cancel(context.Background(), appt.ID, "again")
	assert.ErrorIs(t, err, ErrCannotModifyCancelled)
}

func TestCancelRecordsReason(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, knownUsers())

	appt, err := svc.Book(context.Background(), patientID, doctorID, futureDate())
	require.NoError(t, err)

	cancelled, err := svc.Cancel(context.Background(), appt.ID, "patient request")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, cancelled.Status)
	assert.Equal(t, "patient request", cancelled.CancellationReason)
	require.NotNil(t, cancelled.CancelledAt)
	assert.True(t, cancelled.CancelledAt.Equal(testNow))
}

func TestUpdateDateRules(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, knownUsers())

	appt, err := svc.Book(context.Background(), patientID, doctorID, futureDate())
	require.NoError(t, err)

	_, err = svc.UpdateDate(context.Background(), appt.ID, testNow)
	assert.ErrorIs(t, err, ErrPastDate)

	newDate := futureDate().Add(24 * time.Hour)
	moved, err := svc.UpdateDate(context.Background(), appt.ID, newDate)
	require.NoError(t, err)
	assert.True(t, moved.Date.Equal(newDate))
}

func TestUpdateDateConflictsWithOtherAppointment(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, knownUsers())

	first, err := svc.Book(context.Background(), patientID, doctorID, futureDate())
	require.NoError(t, err)
	second, err := svc.Book(context.Background(), patientID, doctorID, futureDate().Add(time.Hour))
	require.NoError(t, err)

	_, err = svc.UpdateDate(context.Background(), second.ID, first.Date)
	assert.ErrorIs(t, err, ErrSlotConflict)

	// Keeping its own timestamp is not a conflict with itself.
	_, err = svc.UpdateDate(context.Background(), second.ID, second.Date)
	assert.NoError(t, err)
}

func TestCancelDoctorRangeValidation(t *testing.T) {
	svc := newTestService(&mockAppointmentRepo{}, knownUsers())
	start := day(2025, time.March, 10)
	end := day(2025, time.March, 12)

	_, err := svc.CancelDoctorRange(context.Background(), "", start, end, "leave")
	assert.ErrorIs(t, err, ErrMissingField)

	_, err = svc.CancelDoctorRange(context.Background(), doctorID, time.Time{}, end, "leave")
	assert.ErrorIs(t, err, ErrInvalidDate)

	_, err = svc.CancelDoctorRange(context.Background(), doctorID, end, start, "leave")
	assert.ErrorIs(t, err, ErrInvalidDateRange)

	_, err = svc.CancelDoctorRange(context.Background(), patientID, start, end, "leave")
	assert.ErrorIs(t, err, ErrDoctorNotFound)
}

func TestCancelDoctorRangeScope(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, knownUsers())

	inRange1, err := svc.Book(context.Background(), patientID, doctorID, at(day(2025, time.March, 10), 9, 0))
	require.NoError(t, err)
	inRange2, err := svc.Book(context.Background(), patientID, doctorID, at(day(2025, time.March, 11), 14, 0))
	require.NoError(t, err)
	outside, err := svc.Book(context.Background(), patientID, doctorID, at(day(2025, time.March, 20), 9, 0))
	require.NoError(t, err)

	// A completed appointment inside the range is terminal and untouched.
	completed, err := svc.Book(context.Background(), patientID, doctorID, at(day(2025, time.March, 10), 15, 0))
	require.NoError(t, err)
	_, err = svc.UpdateStatus(context.Background(), completed.ID, models.StatusCompleted)
	require.NoError(t, err)

	modified, err := svc.CancelDoctorRange(context.Background(), doctorID,
		day(2025, time.March, 10), at(day(2025, time.March, 12), 23, 59), "doctor on leave")
	require.NoError(t, err)
	assert.Equal(t, int64(2), modified)

	for _, id := range []string{inRange1.ID, inRange2.ID} {
		a, err := svc.Get(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, models.StatusCancelled, a.Status)
		assert.Equal(t, "doctor on leave", a.CancellationReason)
		require.NotNil(t, a.CancelledAt)
	}

	untouched, err := svc.Get(context.Background(), outside.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, untouched.Status)

	stillCompleted, err := svc.Get(context.Background(), completed.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, stillCompleted.Status)
}

func TestCancelDoctorRangeNoMatchesIsSuccess(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, knownUsers())

	modified, err := svc.CancelDoctorRange(context.Background(), doctorID,
		day(2025, time.March, 10), day(2025, time.March, 12), "leave")
	require.NoError(t, err)
	assert.Equal(t, int64(0), modified)
}

func TestListRejectsInvalidFilter(t *testing.T) {
	svc := newTestService(&mockAppointmentRepo{}, knownUsers())

	_, err := svc.List(context.Background(), Filter{Status: "unknown"})
	assert.ErrorIs(t, err, ErrInvalidStatus)

	from := day(2025, time.March, 12)
	to := day(2025, time.March, 10)
	_, err = svc.List(context.Background(), Filter{From: &from, To: &to})
	assert.ErrorIs(t, err, ErrInvalidDateRange)
}
