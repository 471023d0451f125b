package schedules

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"medisched/internal/domain"
)

type fakeBookingSource struct {
	referralsFn    func(ctx context.Context, specialistID string) ([]domain.BookingRecord, error)
	appointmentsFn func(ctx context.Context, specialistID string) ([]domain.BookingRecord, error)
}

func (f *fakeBookingSource) GetReferrals(ctx context.Context, specialistID string) ([]domain.BookingRecord, error) {
	if f.referralsFn == nil {
		return nil, nil
	}
	return f.referralsFn(ctx, specialistID)
}

func (f *fakeBookingSource) GetAppointments(ctx context.Context, specialistID string) ([]domain.BookingRecord, error) {
	if f.appointmentsFn == nil {
		return nil, nil
	}
	return f.appointmentsFn(ctx, specialistID)
}

func guardSchedule() domain.ScheduleRecord {
	return domain.ScheduleRecord{
		ID:             uuid.MustParse("00000000-0000-0000-0000-000000000010"),
		SpecialistID:   "sp1",
		ClinicID:       "cl1",
		RoomOrUnit:     "Room 2",
		RecurrenceType: domain.RecurrenceTypeWeekly,
		DaysOfWeek:     []int16{1, 3, 5}, // Mon, Wed, Fri
		SlotTemplate: []domain.TemplateSlot{
			{Label: "09:00 AM", DefaultStatus: domain.SlotStatusAvailable, DurationMinutes: 20},
			{Label: "09:20 AM", DefaultStatus: domain.SlotStatusAvailable, DurationMinutes: 20},
			{Label: "09:40 AM", DefaultStatus: domain.SlotStatusAvailable, DurationMinutes: 20},
		},
		ValidFrom: time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC),
		IsActive:  true,
	}
}

// Tuesday; the Monday before it is in the schedule's weekday set.
var guardToday = time.Date(2025, 6, 10, 8, 30, 0, 0, time.UTC)

func newTestGuard(src *fakeBookingSource) *ConflictGuard {
	g := NewConflictGuard(src, nil)
	g.now = func() time.Time { return guardToday }
	return g
}

func booking(date time.Time, label string, status domain.BookingStatus) domain.BookingRecord {
	return domain.BookingRecord{
		SpecialistID:    "sp1",
		AppointmentDate: date,
		AppointmentTime: label,
		Status:          status,
	}
}

func TestGuard_NoBookingsAllowsEverything(t *testing.T) {
	g := newTestGuard(&fakeBookingSource{})
	sched := guardSchedule()

	ok, reason := g.CanModify(context.Background(), sched, sched.ValidFrom)
	if !ok || reason != ReasonNoConflict {
		t.Fatalf("CanModify = %v/%v, want true/no_conflict", ok, reason)
	}

	ok, reason, err := g.CanDelete(context.Background(), sched)
	if err != nil {
		t.Fatalf("CanDelete error: %v", err)
	}
	if !ok || reason != ReasonNoConflict {
		t.Fatalf("CanDelete = %v/%v, want true/no_conflict", ok, reason)
	}
}

func TestGuard_ConfirmedTodayBlocksBoth(t *testing.T) {
	// A confirmed booking on a matching weekday and slot, dated today.
	today := time.Date(2025, 6, 11, 0, 0, 0, 0, time.UTC) // Wednesday
	src := &fakeBookingSource{
		appointmentsFn: func(ctx context.Context, specialistID string) ([]domain.BookingRecord, error) {
			return []domain.BookingRecord{booking(today, "09:20 AM", domain.BookingStatusConfirmed)}, nil
		},
	}
	g := newTestGuard(src)
	g.now = func() time.Time { return today.Add(10 * time.Hour) }
	sched := guardSchedule()

	ok, reason := g.CanModify(context.Background(), sched, sched.ValidFrom)
	if ok || reason != ReasonBlockedByAppointment {
		t.Fatalf("CanModify = %v/%v, want false/blocked_by_appointment", ok, reason)
	}

	ok, reason, err := g.CanDelete(context.Background(), sched)
	if err != nil {
		t.Fatalf("CanDelete error: %v", err)
	}
	if ok || reason != ReasonBlockedByAppointment {
		t.Fatalf("CanDelete = %v/%v, want false/blocked_by_appointment", ok, reason)
	}
}

func TestGuard_ConfirmedYesterdayBlocksModifyOnly(t *testing.T) {
	yesterday := time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC) // Monday
	src := &fakeBookingSource{
		referralsFn: func(ctx context.Context, specialistID string) ([]domain.BookingRecord, error) {
			return []domain.BookingRecord{booking(yesterday, "09:00 AM", domain.BookingStatusConfirmed)}, nil
		},
	}
	g := newTestGuard(src)
	sched := guardSchedule()

	ok, reason := g.CanModify(context.Background(), sched, sched.ValidFrom)
	if ok || reason != ReasonBlockedByReferral {
		t.Fatalf("CanModify = %v/%v, want false/blocked_by_referral", ok, reason)
	}

	ok, _, err := g.CanDelete(context.Background(), sched)
	if err != nil {
		t.Fatalf("CanDelete error: %v", err)
	}
	if !ok {
		t.Fatalf("past confirmed booking must not block deletion")
	}
}

func TestGuard_PendingBlocksModifyNeverDelete(t *testing.T) {
	nextMonday := time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC)
	src := &fakeBookingSource{
		appointmentsFn: func(ctx context.Context, specialistID string) ([]domain.BookingRecord, error) {
			return []domain.BookingRecord{booking(nextMonday, "09:40 AM", domain.BookingStatusPending)}, nil
		},
	}
	g := newTestGuard(src)
	sched := guardSchedule()

	ok, reason := g.CanModify(context.Background(), sched, sched.ValidFrom)
	if ok || reason != ReasonBlockedByAppointment {
		t.Fatalf("CanModify = %v/%v, want false/blocked_by_appointment", ok, reason)
	}

	ok, _, err := g.CanDelete(context.Background(), sched)
	if err != nil {
		t.Fatalf("CanDelete error: %v", err)
	}
	if !ok {
		t.Fatalf("pending booking must never block deletion")
	}
}

func TestGuard_ProposedValidFromPastBookingUnblocksModify(t *testing.T) {
	nextMonday := time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC)
	src := &fakeBookingSource{
		referralsFn: func(ctx context.Context, specialistID string) ([]domain.BookingRecord, error) {
			return []domain.BookingRecord{booking(nextMonday, "09:00 AM", domain.BookingStatusConfirmed)}, nil
		},
	}
	g := newTestGuard(src)
	sched := guardSchedule()

	ok, _ := g.CanModify(context.Background(), sched, time.Date(2025, 6, 17, 0, 0, 0, 0, time.UTC))
	if !ok {
		t.Fatalf("booking before proposed valid_from must not block the edit")
	}
}

func TestGuard_NonMatchingBookingsDoNotBlock(t *testing.T) {
	tests := []struct {
		name string
		rec  domain.BookingRecord
	}{
		{
			name: "cancelled",
			rec:  booking(time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC), "09:00 AM", domain.BookingStatusCancelled),
		},
		{
			name: "weekday not in set",
			rec:  booking(time.Date(2025, 6, 17, 0, 0, 0, 0, time.UTC), "09:00 AM", domain.BookingStatusConfirmed), // Tuesday
		},
		{
			name: "time not in template",
			rec:  booking(time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC), "11:00 AM", domain.BookingStatusConfirmed),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &fakeBookingSource{
				referralsFn: func(ctx context.Context, specialistID string) ([]domain.BookingRecord, error) {
					return []domain.BookingRecord{tt.rec}, nil
				},
			}
			g := newTestGuard(src)
			sched := guardSchedule()

			if ok, _ := g.CanModify(context.Background(), sched, sched.ValidFrom); !ok {
				t.Fatalf("CanModify blocked unexpectedly")
			}
			ok, _, err := g.CanDelete(context.Background(), sched)
			if err != nil {
				t.Fatalf("CanDelete error: %v", err)
			}
			if !ok {
				t.Fatalf("CanDelete blocked unexpectedly")
			}
		})
	}
}

func TestGuard_ReferralFeedConsultedFirst(t *testing.T) {
	nextMonday := time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC)
	blocker := []domain.BookingRecord{booking(nextMonday, "09:00 AM", domain.BookingStatusConfirmed)}
	src := &fakeBookingSource{
		referralsFn: func(ctx context.Context, specialistID string) ([]domain.BookingRecord, error) {
			return blocker, nil
		},
		appointmentsFn: func(ctx context.Context, specialistID string) ([]domain.BookingRecord, error) {
			return blocker, nil
		},
	}
	g := newTestGuard(src)
	sched := guardSchedule()

	_, reason := g.CanModify(context.Background(), sched, sched.ValidFrom)
	if reason != ReasonBlockedByReferral {
		t.Fatalf("reason = %v, want blocked_by_referral when both feeds block", reason)
	}
}

func TestGuard_CanModifyFailsOpenOnFeedError(t *testing.T) {
	src := &fakeBookingSource{
		referralsFn: func(ctx context.Context, specialistID string) ([]domain.BookingRecord, error) {
			return nil, errors.New("feed down")
		},
	}
	g := newTestGuard(src)
	sched := guardSchedule()

	ok, reason := g.CanModify(context.Background(), sched, sched.ValidFrom)
	if !ok || reason != ReasonNoConflict {
		t.Fatalf("CanModify = %v/%v, want fail-open true/no_conflict", ok, reason)
	}
}

func TestGuard_CanModifyFailOpenStillSeesOtherFeed(t *testing.T) {
	nextMonday := time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC)
	src := &fakeBookingSource{
		referralsFn: func(ctx context.Context, specialistID string) ([]domain.BookingRecord, error) {
			return nil, errors.New("feed down")
		},
		appointmentsFn: func(ctx context.Context, specialistID string) ([]domain.BookingRecord, error) {
			return []domain.BookingRecord{booking(nextMonday, "09:00 AM", domain.BookingStatusPending)}, nil
		},
	}
	g := newTestGuard(src)
	sched := guardSchedule()

	ok, reason := g.CanModify(context.Background(), sched, sched.ValidFrom)
	if ok || reason != ReasonBlockedByAppointment {
		t.Fatalf("CanModify = %v/%v, want false/blocked_by_appointment", ok, reason)
	}
}

func TestGuard_CanDeletePropagatesFeedError(t *testing.T) {
	feedErr := errors.New("feed down")
	src := &fakeBookingSource{
		appointmentsFn: func(ctx context.Context, specialistID string) ([]domain.BookingRecord, error) {
			return nil, feedErr
		},
	}
	g := newTestGuard(src)
	sched := guardSchedule()

	_, _, err := g.CanDelete(context.Background(), sched)
	if !errors.Is(err, feedErr) {
		t.Fatalf("CanDelete error = %v, want %v", err, feedErr)
	}
}
