package repository

import (
	"context"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"medbook-server/internal/models"
	"medbook-server/internal/scheduling"
)

// AppointmentRepo is the GORM-backed implementation of the scheduling
// repository contract.
type AppointmentRepo struct {
	db *gorm.DB
}

var _ scheduling.AppointmentRepository = (*AppointmentRepo)(nil)

// NewAppointmentRepo creates a new AppointmentRepo.
func NewAppointmentRepo(db *gorm.DB) *AppointmentRepo {
	return &AppointmentRepo{db: db}
}

// CreateExclusive inserts the appointment unless the doctor already holds a
// non-cancelled appointment at the exact same timestamp. The conflict check
// and the insert run in one transaction that first locks the doctor's user
// row FOR UPDATE: conflicting appointment rows may not exist yet when two
// first bookings race for an empty slot, so the doctor row — which always
// exists — is the serialization point. The losing transaction blocks on the
// doctor lock, re-counts after the winner commits, and returns
// ErrSlotConflict. "Unique among non-cancelled rows" cannot be a plain
// unique index, hence the locked check instead of a constraint.
func (r *AppointmentRepo) CreateExclusive(ctx context.Context, appt *models.Appointment) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockDoctor(tx, appt.DoctorID); err != nil {
			return err
		}
		taken, err := slotTaken(tx, appt.DoctorID, appt.Date, "")
		if err != nil {
			return err
		}
		if taken {
			return scheduling.ErrSlotConflict
		}
		return tx.Create(appt).Error
	})
	return deadlockAsConflict(err)
}

// MoveExclusive changes the appointment's date, re-checking the doctor/date
// uniqueness invariant against the new timestamp while ignoring the
// appointment itself. Serialized per doctor the same way as CreateExclusive.
func (r *AppointmentRepo) MoveExclusive(ctx context.Context, appt *models.Appointment, newDate time.Time) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockDoctor(tx, appt.DoctorID); err != nil {
			return err
		}
		taken, err := slotTaken(tx, appt.DoctorID, newDate, appt.ID)
		if err != nil {
			return err
		}
		if taken {
			return scheduling.ErrSlotConflict
		}
		appt.Date = newDate
		return tx.Model(appt).Update("date", newDate).Error
	})
	return deadlockAsConflict(err)
}

// lockDoctor takes a FOR UPDATE lock on the doctor's user row so that all
// schedule writers for one doctor run one at a time.
func lockDoctor(tx *gorm.DB, doctorID string) error {
	var row struct{ ID string }
	return tx.Model(&models.User{}).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").
		Where("id = ?", doctorID).
		Take(&row).Error
}

// deadlockAsConflict maps an InnoDB deadlock rollback (error 1213) to
// ErrSlotConflict. With writers serialized on the doctor row the only
// deadlock these statements can still hit is two bookings racing for the
// same slot, and the rolled-back loser must surface as a conflict, not an
// internal error.
func deadlockAsConflict(err error) error {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == 1213 {
		return scheduling.ErrSlotConflict
	}
	return err
}

func slotTaken(tx *gorm.DB, doctorID string, date time.Time, excludeID string) (bool, error) {
	q := tx.Model(&models.Appointment{}).
		Where("doctor_id = ? AND date = ? AND status <> ?", doctorID, date, models.StatusCancelled)
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// FindByID fetches one appointment with its patient and doctor resolved.
func (r *AppointmentRepo) FindByID(ctx context.Context, id string) (*models.Appointment, error) {
	var appt models.Appointment
	err := r.db.WithContext(ctx).
		Preload("Patient").Preload("Doctor").
		First(&appt, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, scheduling.ErrAppointmentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &appt, nil
}

// Find lists appointments matching the filter, oldest first.
func (r *AppointmentRepo) Find(ctx context.Context, f scheduling.Filter) ([]models.Appointment, error) {
	q := r.db.WithContext(ctx).
		Preload("Patient").Preload("Doctor").
		Order("date asc")
	if f.DoctorID != "" {
		q = q.Where("doctor_id = ?", f.DoctorID)
	}
	if f.PatientID != "" {
		q = q.Where("patient_id = ?", f.PatientID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.From != nil {
		q = q.Where("date >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("date <= ?", *f.To)
	}

	var appts []models.Appointment
	if err := q.Find(&appts).Error; err != nil {
		return nil, err
	}
	return appts, nil
}

// FindForDoctorDay returns the doctor's non-cancelled appointments within
// the day bounds, ordered chronologically.
func (r *AppointmentRepo) FindForDoctorDay(ctx context.Context, doctorID string, dayStart, dayEnd time.Time) ([]models.Appointment, error) {
	var appts []models.Appointment
	err := r.db.WithContext(ctx).
		Where("doctor_id = ? AND date BETWEEN ? AND ? AND status <> ?",
			doctorID, dayStart, dayEnd, models.StatusCancelled).
		Order("date asc").
		Find(&appts).Error
	if err != nil {
		return nil, err
	}
	return appts, nil
}

// Update persists the appointment's current field values.
func (r *AppointmentRepo) Update(ctx context.Context, appt *models.Appointment) error {
	return r.db.WithContext(ctx).Save(appt).Error
}

// CancelRange cancels the doctor's non-terminal appointments inside
// [start, end] in a single multi-row update and reports how many rows
// changed.
func (r *AppointmentRepo) CancelRange(ctx context.Context, doctorID string, start, end time.Time, reason string, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Appointment{}).
		Where("doctor_id = ? AND date BETWEEN ? AND ? AND status NOT IN ?",
			doctorID, start, end,
			[]models.AppointmentStatus{models.StatusCancelled, models.StatusCompleted}).
		Updates(map[string]interface{}{
			"status":              models.StatusCancelled,
			"cancellation_reason": reason,
			"cancelled_at":        at,
		})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

// CountByStatus groups appointment totals by status.
func (r *AppointmentRepo) CountByStatus(ctx context.Context) (map[models.AppointmentStatus]int64, error) {
	var rows []struct {
		Status models.AppointmentStatus
		Total  int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.Appointment{}).
		Select("status, count(*) as total").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[models.AppointmentStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Total
	}
	return counts, nil
}
