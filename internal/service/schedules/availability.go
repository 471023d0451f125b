package schedules

import (
	"time"

	"medisched/internal/domain"
)

// MonthGridDays is the size of the 6x7 Sunday-first calendar grid the UI
// renders for a month view.
const MonthGridDays = 42

type DaySlot struct {
	Time            string            `json:"time"`
	DurationMinutes int               `json:"durationMinutes"`
	DefaultStatus   domain.SlotStatus `json:"defaultStatus"`
	IsBooked        bool              `json:"isBooked"`
}

type DayAvailability struct {
	Date        time.Time `json:"date"`
	HasSchedule bool      `json:"hasSchedule"`
	Slots       []DaySlot `json:"slots"`
}

// ProjectAvailability computes per-date slot availability for a forward
// window of days. For each date the first schedule (in input order) whose
// recurrence covers it supplies the slot template; templates of later
// matches are never merged in. A slot is booked only by a firm booking on
// the same specialist, date and label — pending bookings do not show as
// booked.
func ProjectAvailability(scheds []domain.ScheduleRecord, bookings []domain.BookingRecord, from time.Time, days int) []DayAvailability {
	start := domain.DateOnly(from)
	out := make([]DayAvailability, 0, days)

	for i := 0; i < days; i++ {
		date := start.AddDate(0, 0, i)
		day := DayAvailability{Date: date, Slots: []DaySlot{}}

		for j := range scheds {
			s := &scheds[j]
			if !s.AppliesOn(date) {
				continue
			}
			day.HasSchedule = true
			for _, slot := range s.SlotTemplate {
				day.Slots = append(day.Slots, DaySlot{
					Time:            slot.Label,
					DurationMinutes: slot.DurationMinutes,
					DefaultStatus:   slot.DefaultStatus,
					IsBooked:        slotBooked(bookings, s.SpecialistID, date, slot.Label),
				})
			}
			break
		}

		out = append(out, day)
	}
	return out
}

// MonthGridStart returns the first Sunday on or before the 1st of the month.
func MonthGridStart(year int, month time.Month) time.Time {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return first.AddDate(0, 0, -int(first.Weekday()))
}

// ProjectMonthGrid projects availability over the 42-cell month grid.
func ProjectMonthGrid(scheds []domain.ScheduleRecord, bookings []domain.BookingRecord, year int, month time.Month) []DayAvailability {
	return ProjectAvailability(scheds, bookings, MonthGridStart(year, month), MonthGridDays)
}

// AvailableDates filters a projection down to the dates that have a
// schedule and at least one unbooked slot.
func AvailableDates(projection []DayAvailability) []time.Time {
	out := make([]time.Time, 0, len(projection))
	for _, day := range projection {
		if !day.HasSchedule {
			continue
		}
		for _, slot := range day.Slots {
			if !slot.IsBooked {
				out = append(out, day.Date)
				break
			}
		}
	}
	return out
}

func slotBooked(bookings []domain.BookingRecord, specialistID string, date time.Time, label string) bool {
	for _, b := range bookings {
		if b.SpecialistID != specialistID {
			continue
		}
		if !b.Status.IsFirm() {
			continue
		}
		if !domain.DateOnly(b.AppointmentDate).Equal(date) {
			continue
		}
		if b.AppointmentTime == label {
			return true
		}
	}
	return false
}
