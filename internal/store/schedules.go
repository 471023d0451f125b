package store

import (
	"context"

	"github.com/google/uuid"

	"medisched/internal/domain"
)

// ScheduleRepository persists schedule records and resolves clinic
// references. GetSchedules returns records in creation order; that order is
// the first-match-wins iteration order used by availability projection.
type ScheduleRepository interface {
	GetSchedules(ctx context.Context, specialistID string) ([]domain.ScheduleRecord, error)
	GetSchedule(ctx context.Context, specialistID string, scheduleID uuid.UUID) (domain.ScheduleRecord, error)
	AddSchedule(ctx context.Context, rec domain.ScheduleRecord) (domain.ScheduleRecord, error)
	UpdateSchedule(ctx context.Context, rec domain.ScheduleRecord) (domain.ScheduleRecord, error)
	DeleteSchedule(ctx context.Context, specialistID string, scheduleID uuid.UUID) error

	GetAllClinics(ctx context.Context) ([]domain.Clinic, error)
	GetClinicByID(ctx context.Context, clinicID string) (domain.Clinic, error)
}
