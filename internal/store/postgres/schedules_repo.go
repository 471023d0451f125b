package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"medisched/internal/domain"
	"medisched/internal/store"
)

type ScheduleRepo struct {
	db *bun.DB
}

func NewScheduleRepo(db *bun.DB) *ScheduleRepo {
	return &ScheduleRepo{db: db}
}

// GetSchedules returns the specialist's records in creation order so that
// callers iterating for a first match see a stable order.
func (r *ScheduleRepo) GetSchedules(ctx context.Context, specialistID string) ([]domain.ScheduleRecord, error) {
	var rows []domain.ScheduleRecord
	err := r.db.NewSelect().
		Model(&rows).
		Where("specialist_id = ?", specialistID).
		OrderExpr("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *ScheduleRepo) GetSchedule(ctx context.Context, specialistID string, scheduleID uuid.UUID) (domain.ScheduleRecord, error) {
	var rec domain.ScheduleRecord
	err := r.db.NewSelect().
		Model(&rec).
		Where("specialist_id = ?", specialistID).
		Where("id = ?", scheduleID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ScheduleRecord{}, store.ErrNotFound
		}
		return domain.ScheduleRecord{}, err
	}
	return rec, nil
}

func (r *ScheduleRepo) AddSchedule(ctx context.Context, rec domain.ScheduleRecord) (domain.ScheduleRecord, error) {
	if err := rec.Validate(); err != nil {
		return domain.ScheduleRecord{}, err
	}

	var out domain.ScheduleRecord
	err := r.inSpecialistTransaction(ctx, rec.SpecialistID, func(ctx context.Context, tx bun.Tx) error {
		m := rec
		if _, err := tx.NewInsert().Model(&m).Exec(ctx); err != nil {
			return err
		}
		out = m
		return nil
	})
	if err != nil {
		return domain.ScheduleRecord{}, err
	}
	return out, nil
}

func (r *ScheduleRepo) UpdateSchedule(ctx context.Context, rec domain.ScheduleRecord) (domain.ScheduleRecord, error) {
	if err := rec.Validate(); err != nil {
		return domain.ScheduleRecord{}, err
	}

	var out domain.ScheduleRecord
	err := r.inSpecialistTransaction(ctx, rec.SpecialistID, func(ctx context.Context, tx bun.Tx) error {
		m := rec
		res, err := tx.NewUpdate().
			Model(&m).
			Column("clinic_id", "room_or_unit", "recurrence_type", "days_of_week", "slot_template", "valid_from", "is_active", "last_updated").
			Where("specialist_id = ?", rec.SpecialistID).
			Where("id = ?", rec.ID).
			Exec(ctx)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return store.ErrNotFound
		}
		out = m
		return nil
	})
	if err != nil {
		return domain.ScheduleRecord{}, err
	}
	return out, nil
}

func (r *ScheduleRepo) DeleteSchedule(ctx context.Context, specialistID string, scheduleID uuid.UUID) error {
	return r.inSpecialistTransaction(ctx, specialistID, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewDelete().
			Model((*domain.ScheduleRecord)(nil)).
			Where("specialist_id = ?", specialistID).
			Where("id = ?", scheduleID).
			Exec(ctx)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return store.ErrNotFound
		}
		return nil
	})
}

func (r *ScheduleRepo) GetAllClinics(ctx context.Context) ([]domain.Clinic, error) {
	var rows []domain.Clinic
	err := r.db.NewSelect().
		Model(&rows).
		OrderExpr("name ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *ScheduleRepo) GetClinicByID(ctx context.Context, clinicID string) (domain.Clinic, error) {
	var clinic domain.Clinic
	err := r.db.NewSelect().
		Model(&clinic).
		Where("id = ?", clinicID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Clinic{}, store.ErrNotFound
		}
		return domain.Clinic{}, err
	}
	return clinic, nil
}

// inSpecialistTransaction serializes mutations of one specialist's schedule
// set behind an advisory lock. Concurrent mutations for different
// specialists do not contend.
func (r *ScheduleRepo) inSpecialistTransaction(ctx context.Context, specialistID string, fn func(ctx context.Context, tx bun.Tx) error) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewRaw("SELECT pg_advisory_xact_lock(hashtext(?))", specialistID).Exec(ctx); err != nil {
			return err
		}
		return fn(ctx, tx)
	})
}
