package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"medisched/internal/domain"
)

// referralRow and appointmentRow mirror the two feed tables owned by the
// booking subsystem. This service only ever reads them.
type referralRow struct {
	bun.BaseModel `bun:"table:referrals"`

	ID              uuid.UUID `bun:"id,pk,type:uuid"`
	SpecialistID    string    `bun:"specialist_id,notnull"`
	AppointmentDate time.Time `bun:"appointment_date,notnull"`
	AppointmentTime string    `bun:"appointment_time,notnull"`
	Status          string    `bun:"status,notnull"`
}

type appointmentRow struct {
	bun.BaseModel `bun:"table:appointments"`

	ID              uuid.UUID `bun:"id,pk,type:uuid"`
	SpecialistID    string    `bun:"specialist_id,notnull"`
	AppointmentDate time.Time `bun:"appointment_date,notnull"`
	AppointmentTime string    `bun:"appointment_time,notnull"`
	Status          string    `bun:"status,notnull"`
}

type BookingFeeds struct {
	db *bun.DB
}

func NewBookingFeeds(db *bun.DB) *BookingFeeds {
	return &BookingFeeds{db: db}
}

func (f *BookingFeeds) GetReferrals(ctx context.Context, specialistID string) ([]domain.BookingRecord, error) {
	var rows []referralRow
	err := f.db.NewSelect().
		Model(&rows).
		Where("specialist_id = ?", specialistID).
		OrderExpr("appointment_date ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]domain.BookingRecord, 0, len(rows))
	for _, row := range rows {
		rec := domain.BookingRecord{
			SpecialistID:    row.SpecialistID,
			AppointmentDate: domain.DateOnly(row.AppointmentDate),
			AppointmentTime: row.AppointmentTime,
			Status:          domain.BookingStatus(row.Status),
			Feed:            domain.BookingFeedReferral,
		}
		if err := rec.Validate(); err != nil {
			return nil, fmt.Errorf("referral %s: %w", row.ID, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func (f *BookingFeeds) GetAppointments(ctx context.Context, specialistID string) ([]domain.BookingRecord, error) {
	var rows []appointmentRow
	err := f.db.NewSelect().
		Model(&rows).
		Where("specialist_id = ?", specialistID).
		OrderExpr("appointment_date ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]domain.BookingRecord, 0, len(rows))
	for _, row := range rows {
		rec := domain.BookingRecord{
			SpecialistID:    row.SpecialistID,
			AppointmentDate: domain.DateOnly(row.AppointmentDate),
			AppointmentTime: row.AppointmentTime,
			Status:          domain.BookingStatus(row.Status),
			Feed:            domain.BookingFeedAppointment,
		}
		if err := rec.Validate(); err != nil {
			return nil, fmt.Errorf("appointment %s: %w", row.ID, err)
		}
		out = append(out, rec)
	}
	return out, nil
}
