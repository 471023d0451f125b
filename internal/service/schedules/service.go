package schedules

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"medisched/internal/domain"
	"medisched/internal/store"
)

type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func NewValidationError(msg string) *ValidationError {
	return &ValidationError{msg: msg}
}

func validationError(msg string) error {
	return NewValidationError(msg)
}

// ScheduleLockedError is returned when the conflict guard refuses a
// mutation or deletion. Reason identifies the feed that caused the block.
type ScheduleLockedError struct {
	Reason ConflictReason
}

func (e *ScheduleLockedError) Error() string {
	switch e.Reason {
	case ReasonBlockedByReferral:
		return "schedule is locked by existing referrals"
	case ReasonBlockedByAppointment:
		return "schedule is locked by existing appointments"
	default:
		return "schedule is locked by existing bookings"
	}
}

const dateLayout = "2006-01-02"

const defaultClinicCacheSize = 128

var allowedDurations = map[int]struct{}{
	15: {},
	20: {},
	30: {},
	45: {},
	60: {},
}

// ScheduleInput is the form surface for creating or replacing a schedule.
type ScheduleInput struct {
	ClinicID        string
	RoomOrUnit      string
	ValidFrom       string // YYYY-MM-DD
	DaysOfWeek      []int16
	StartTime       string // hh:mm AM/PM
	EndTime         string // hh:mm AM/PM
	DurationMinutes int
}

type Service struct {
	repo     store.ScheduleRepository
	bookings store.BookingSource
	guard    *ConflictGuard
	clinics  *clinicCache
	log      *slog.Logger
	now      func() time.Time
}

func NewService(repo store.ScheduleRepository, bookings store.BookingSource, log *slog.Logger, clinicCacheSize int) (*Service, error) {
	if log == nil {
		log = slog.Default()
	}
	if clinicCacheSize <= 0 {
		clinicCacheSize = defaultClinicCacheSize
	}
	clinics, err := newClinicCache(repo, clinicCacheSize)
	if err != nil {
		return nil, err
	}
	return &Service{
		repo:     repo,
		bookings: bookings,
		guard:    NewConflictGuard(bookings, log),
		clinics:  clinics,
		log:      log.With(slog.String("component", "schedules.service")),
		now:      time.Now,
	}, nil
}

func (s *Service) AddSchedule(ctx context.Context, specialistID string, in ScheduleInput) (domain.ScheduleRecord, error) {
	rec, err := s.buildRecord(ctx, specialistID, in)
	if err != nil {
		return domain.ScheduleRecord{}, err
	}
	rec.IsActive = true
	return s.repo.AddSchedule(ctx, rec)
}

func (s *Service) UpdateSchedule(ctx context.Context, specialistID string, scheduleID uuid.UUID, in ScheduleInput) (domain.ScheduleRecord, error) {
	existing, err := s.repo.GetSchedule(ctx, specialistID, scheduleID)
	if err != nil {
		return domain.ScheduleRecord{}, err
	}

	rec, err := s.buildRecord(ctx, specialistID, in)
	if err != nil {
		return domain.ScheduleRecord{}, err
	}

	ok, reason := s.guard.CanModify(ctx, existing, rec.ValidFrom)
	if !ok {
		return domain.ScheduleRecord{}, &ScheduleLockedError{Reason: reason}
	}

	rec.ID = existing.ID
	rec.IsActive = existing.IsActive
	rec.CreatedAt = existing.CreatedAt
	return s.repo.UpdateSchedule(ctx, rec)
}

func (s *Service) DeleteSchedule(ctx context.Context, specialistID string, scheduleID uuid.UUID) error {
	existing, err := s.repo.GetSchedule(ctx, specialistID, scheduleID)
	if err != nil {
		return err
	}

	ok, reason, err := s.guard.CanDelete(ctx, existing)
	if err != nil {
		return err
	}
	if !ok {
		return &ScheduleLockedError{Reason: reason}
	}

	return s.repo.DeleteSchedule(ctx, specialistID, scheduleID)
}

func (s *Service) ListSchedules(ctx context.Context, specialistID string) ([]domain.ScheduleRecord, error) {
	if specialistID == "" {
		return nil, validationError("specialist_id is required")
	}
	return s.repo.GetSchedules(ctx, specialistID)
}

func (s *Service) Clinics(ctx context.Context) ([]domain.Clinic, error) {
	return s.repo.GetAllClinics(ctx)
}

// MonthAvailability projects the Sunday-anchored 42-cell grid for a month.
func (s *Service) MonthAvailability(ctx context.Context, specialistID string, year int, month time.Month) ([]DayAvailability, error) {
	if month < time.January || month > time.December {
		return nil, validationError("month must be between 1 and 12")
	}
	scheds, bookings, err := s.fetchProjectionInputs(ctx, specialistID)
	if err != nil {
		return nil, err
	}
	return ProjectMonthGrid(scheds, bookings, year, month), nil
}

// WindowAvailability projects an arbitrary forward-looking window.
func (s *Service) WindowAvailability(ctx context.Context, specialistID string, from time.Time, days int) ([]DayAvailability, error) {
	if days < 1 || days > 366 {
		return nil, validationError("days must be between 1 and 366")
	}
	scheds, bookings, err := s.fetchProjectionInputs(ctx, specialistID)
	if err != nil {
		return nil, err
	}
	return ProjectAvailability(scheds, bookings, from, days), nil
}

func (s *Service) AvailableDates(ctx context.Context, specialistID string, from time.Time, days int) ([]time.Time, error) {
	projection, err := s.WindowAvailability(ctx, specialistID, from, days)
	if err != nil {
		return nil, err
	}
	return AvailableDates(projection), nil
}

func (s *Service) fetchProjectionInputs(ctx context.Context, specialistID string) ([]domain.ScheduleRecord, []domain.BookingRecord, error) {
	if specialistID == "" {
		return nil, nil, validationError("specialist_id is required")
	}

	scheds, err := s.repo.GetSchedules(ctx, specialistID)
	if err != nil {
		return nil, nil, err
	}

	referrals, err := s.bookings.GetReferrals(ctx, specialistID)
	if err != nil {
		return nil, nil, err
	}
	appointments, err := s.bookings.GetAppointments(ctx, specialistID)
	if err != nil {
		return nil, nil, err
	}

	union := make([]domain.BookingRecord, 0, len(referrals)+len(appointments))
	union = append(union, referrals...)
	union = append(union, appointments...)
	return scheds, union, nil
}

// buildRecord runs the full form validation and slot template generation.
// All checks happen before any persistence write.
func (s *Service) buildRecord(ctx context.Context, specialistID string, in ScheduleInput) (domain.ScheduleRecord, error) {
	if specialistID == "" {
		return domain.ScheduleRecord{}, validationError("specialist_id is required")
	}

	clinicID := strings.TrimSpace(in.ClinicID)
	if clinicID == "" {
		return domain.ScheduleRecord{}, validationError("clinic_id is required")
	}
	if _, err := s.clinics.Get(ctx, clinicID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.ScheduleRecord{}, validationError(fmt.Sprintf("unknown clinic %q", clinicID))
		}
		return domain.ScheduleRecord{}, err
	}

	room := strings.TrimSpace(in.RoomOrUnit)
	if room == "" {
		return domain.ScheduleRecord{}, validationError("room_or_unit is required")
	}

	validFrom, err := time.ParseInLocation(dateLayout, in.ValidFrom, time.UTC)
	if err != nil {
		return domain.ScheduleRecord{}, validationError("valid_from must be a YYYY-MM-DD date")
	}
	today := domain.DateOnly(s.now())
	if validFrom.Before(today) {
		return domain.ScheduleRecord{}, validationError("valid_from must not be earlier than today")
	}

	days, err := normalizeWeekdays(in.DaysOfWeek)
	if err != nil {
		return domain.ScheduleRecord{}, err
	}

	if _, ok := allowedDurations[in.DurationMinutes]; !ok {
		return domain.ScheduleRecord{}, validationError("duration must be 15, 20, 30, 45 or 60 minutes")
	}

	template, err := domain.GenerateSlotTemplate(in.StartTime, in.EndTime, in.DurationMinutes)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidTimeFormat) {
			return domain.ScheduleRecord{}, validationError(err.Error())
		}
		return domain.ScheduleRecord{}, err
	}

	return domain.ScheduleRecord{
		SpecialistID:   specialistID,
		ClinicID:       clinicID,
		RoomOrUnit:     room,
		RecurrenceType: domain.RecurrenceTypeWeekly,
		DaysOfWeek:     days,
		SlotTemplate:   template,
		ValidFrom:      validFrom,
	}, nil
}

func normalizeWeekdays(days []int16) ([]int16, error) {
	dedup := make(map[int16]struct{}, len(days))
	normalized := make([]int16, 0, len(days))
	for _, wd := range days {
		if wd < 0 || wd > 6 {
			return nil, validationError("weekdays must be between 0 (Sunday) and 6 (Saturday)")
		}
		if _, ok := dedup[wd]; ok {
			continue
		}
		dedup[wd] = struct{}{}
		normalized = append(normalized, wd)
	}
	if len(normalized) == 0 {
		return nil, validationError("at least one weekday is required")
	}

	for i := 1; i < len(normalized); i++ {
		key := normalized[i]
		j := i - 1
		for j >= 0 && normalized[j] > key {
			normalized[j+1] = normalized[j]
			j--
		}
		normalized[j+1] = key
	}
	return normalized, nil
}
