package schedules

import (
	"context"
	"log/slog"
	"time"

	"medisched/internal/domain"
	"medisched/internal/store"
)

type ConflictReason string

const (
	ReasonNoConflict           ConflictReason = "no_conflict"
	ReasonBlockedByReferral    ConflictReason = "blocked_by_referral"
	ReasonBlockedByAppointment ConflictReason = "blocked_by_appointment"
)

// ConflictGuard decides whether a schedule may be mutated or destroyed
// given the bookings that depend on its pattern. The edit and delete checks
// deliberately use different windows and status sets; see CanModify and
// CanDelete.
type ConflictGuard struct {
	bookings store.BookingSource
	log      *slog.Logger
	now      func() time.Time
}

func NewConflictGuard(bookings store.BookingSource, log *slog.Logger) *ConflictGuard {
	if log == nil {
		log = slog.Default()
	}
	return &ConflictGuard{
		bookings: bookings,
		log:      log.With(slog.String("component", "schedules.guard")),
		now:      time.Now,
	}
}

// CanModify blocks when any booking from either feed — pending included —
// falls on or after proposedValidFrom and matches the schedule's weekday
// set and one of its slot labels. A feed that cannot be reached is treated
// as empty: an outage must not lock providers out of edits.
func (g *ConflictGuard) CanModify(ctx context.Context, schedule domain.ScheduleRecord, proposedValidFrom time.Time) (bool, ConflictReason) {
	cutoff := domain.DateOnly(proposedValidFrom)

	referrals, err := g.bookings.GetReferrals(ctx, schedule.SpecialistID)
	if err != nil {
		g.log.Warn("referral feed unavailable during edit check; proceeding without it",
			slog.Any("err", err),
			slog.String("specialist_id", schedule.SpecialistID),
			slog.String("schedule_id", schedule.ID.String()),
		)
		referrals = nil
	}
	if anyBlocking(referrals, schedule, cutoff, domain.BookingStatus.IsCommitment) {
		return false, ReasonBlockedByReferral
	}

	appointments, err := g.bookings.GetAppointments(ctx, schedule.SpecialistID)
	if err != nil {
		g.log.Warn("appointment feed unavailable during edit check; proceeding without it",
			slog.Any("err", err),
			slog.String("specialist_id", schedule.SpecialistID),
			slog.String("schedule_id", schedule.ID.String()),
		)
		appointments = nil
	}
	if anyBlocking(appointments, schedule, cutoff, domain.BookingStatus.IsCommitment) {
		return false, ReasonBlockedByAppointment
	}

	return true, ReasonNoConflict
}

// CanDelete blocks only on firm bookings (confirmed or completed) dated
// today or later; past commitments never pin a schedule against deletion.
// Unlike the edit check, a feed error is returned to the caller: deletion
// is destructive and must not proceed on partial knowledge.
func (g *ConflictGuard) CanDelete(ctx context.Context, schedule domain.ScheduleRecord) (bool, ConflictReason, error) {
	today := domain.DateOnly(g.now())

	referrals, err := g.bookings.GetReferrals(ctx, schedule.SpecialistID)
	if err != nil {
		return false, ReasonNoConflict, err
	}
	if anyBlocking(referrals, schedule, today, domain.BookingStatus.IsFirm) {
		return false, ReasonBlockedByReferral, nil
	}

	appointments, err := g.bookings.GetAppointments(ctx, schedule.SpecialistID)
	if err != nil {
		return false, ReasonNoConflict, err
	}
	if anyBlocking(appointments, schedule, today, domain.BookingStatus.IsFirm) {
		return false, ReasonBlockedByAppointment, nil
	}

	return true, ReasonNoConflict, nil
}

func anyBlocking(bookings []domain.BookingRecord, schedule domain.ScheduleRecord, cutoff time.Time, statusBlocks func(domain.BookingStatus) bool) bool {
	for _, b := range bookings {
		if !statusBlocks(b.Status) {
			continue
		}
		date := domain.DateOnly(b.AppointmentDate)
		if date.Before(cutoff) {
			continue
		}
		if !weekdaySelected(schedule.DaysOfWeek, int16(date.Weekday())) {
			continue
		}
		if schedule.HasSlotAt(b.AppointmentTime) {
			return true
		}
	}
	return false
}

func weekdaySelected(days []int16, wd int16) bool {
	for _, d := range days {
		if d == wd {
			return true
		}
	}
	return false
}
