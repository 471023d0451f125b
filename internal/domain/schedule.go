package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type RecurrenceType string

const (
	RecurrenceTypeWeekly RecurrenceType = "weekly"
)

// ScheduleRecord is a provider's recurring block of bookable time. Weekday
// numbering is 0=Sunday through 6=Saturday, matching time.Weekday.
type ScheduleRecord struct {
	bun.BaseModel `bun:"table:schedules"`

	ID             uuid.UUID      `bun:"id,pk,type:uuid" json:"id"`
	SpecialistID   string         `bun:"specialist_id,notnull" json:"specialistId"`
	ClinicID       string         `bun:"clinic_id,notnull" json:"clinicId"`
	RoomOrUnit     string         `bun:"room_or_unit,notnull" json:"roomOrUnit"`
	RecurrenceType RecurrenceType `bun:"recurrence_type,notnull" json:"recurrenceType"`
	DaysOfWeek     []int16        `bun:"days_of_week,array,notnull" json:"daysOfWeek"`
	SlotTemplate   []TemplateSlot `bun:"slot_template,type:jsonb,notnull" json:"slotTemplate"`
	ValidFrom      time.Time      `bun:"valid_from,notnull" json:"validFrom"`
	IsActive       bool           `bun:"is_active,notnull" json:"isActive"`
	CreatedAt      time.Time      `bun:"created_at,notnull" json:"createdAt"`
	LastUpdated    time.Time      `bun:"last_updated,notnull" json:"lastUpdated"`
}

func (s *ScheduleRecord) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if s.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			s.ID = id
		}
		if s.CreatedAt.IsZero() {
			s.CreatedAt = now
		}
		if s.LastUpdated.IsZero() {
			s.LastUpdated = now
		}
	case *bun.UpdateQuery:
		s.LastUpdated = now
	}
	return nil
}

// DateOnly truncates t to midnight UTC. All calendar-date comparisons in
// this package go through it so time-of-day never leaks into the result.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// AppliesOn reports whether the schedule's recurrence pattern covers the
// given calendar date: active, on or after valid_from, weekday selected.
func (s *ScheduleRecord) AppliesOn(date time.Time) bool {
	if !s.IsActive {
		return false
	}
	d := DateOnly(date)
	if d.Before(DateOnly(s.ValidFrom)) {
		return false
	}
	wd := int16(d.Weekday())
	for _, day := range s.DaysOfWeek {
		if day == wd {
			return true
		}
	}
	return false
}

// HasSlotAt reports whether label is one of the template's canonical keys.
func (s *ScheduleRecord) HasSlotAt(label string) bool {
	for _, slot := range s.SlotTemplate {
		if slot.Label == label {
			return true
		}
	}
	return false
}

// Validate rejects malformed records at the persistence boundary so bad
// slot labels or out-of-range weekdays never reach matching code.
func (s *ScheduleRecord) Validate() error {
	if s.SpecialistID == "" {
		return errors.New("specialist_id is required")
	}
	if s.ClinicID == "" {
		return errors.New("clinic_id is required")
	}
	if s.RoomOrUnit == "" {
		return errors.New("room_or_unit is required")
	}
	if s.RecurrenceType != RecurrenceTypeWeekly {
		return fmt.Errorf("unsupported recurrence type %q", s.RecurrenceType)
	}
	if len(s.DaysOfWeek) == 0 {
		return errors.New("at least one weekday is required")
	}
	for _, wd := range s.DaysOfWeek {
		if wd < 0 || wd > 6 {
			return fmt.Errorf("invalid weekday %d", wd)
		}
	}
	if len(s.SlotTemplate) == 0 {
		return errors.New("slot template is empty")
	}
	prev := -1
	for _, slot := range s.SlotTemplate {
		at, err := ParseTimeLabel(slot.Label)
		if err != nil {
			return err
		}
		if at <= prev {
			return fmt.Errorf("slot template out of chronological order at %q", slot.Label)
		}
		prev = at
		if slot.DurationMinutes <= 0 {
			return fmt.Errorf("slot %q has non-positive duration", slot.Label)
		}
		switch slot.DefaultStatus {
		case SlotStatusAvailable, SlotStatusBooked, SlotStatusUnavailable:
		default:
			return fmt.Errorf("slot %q has unknown status %q", slot.Label, slot.DefaultStatus)
		}
	}
	if s.ValidFrom.IsZero() {
		return errors.New("valid_from is required")
	}
	return nil
}
