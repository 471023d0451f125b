package store

import (
	"context"

	"medisched/internal/domain"
)

// BookingSource exposes the two independent booking feeds. Callers consult
// both and union the results in memory; the feeds are never merged at the
// storage layer.
type BookingSource interface {
	GetReferrals(ctx context.Context, specialistID string) ([]domain.BookingRecord, error)
	GetAppointments(ctx context.Context, specialistID string) ([]domain.BookingRecord, error)
}
