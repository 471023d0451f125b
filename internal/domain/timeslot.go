package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

type SlotStatus string

const (
	SlotStatusAvailable   SlotStatus = "available"
	SlotStatusBooked      SlotStatus = "booked"
	SlotStatusUnavailable SlotStatus = "unavailable"
)

var (
	ErrInvalidTimeFormat = errors.New("time must be a hh:mm AM/PM label")
	ErrInvalidRange      = errors.New("end time must be after start time")
)

var timeLabelPattern = regexp.MustCompile(`^(0?[1-9]|1[0-2]):([0-5][0-9]) (AM|PM)$`)

// TemplateSlot is one entry of a schedule's slot template. Templates are
// ordered slices keyed by the canonical label; label order is always
// chronological by parsed minutes, never lexical.
type TemplateSlot struct {
	Label           string     `json:"time"`
	DefaultStatus   SlotStatus `json:"defaultStatus"`
	DurationMinutes int        `json:"durationMinutes"`
}

// ParseTimeLabel converts a canonical 12-hour label ("09:00 AM") to minutes
// since midnight. 12 AM maps to 0, 12 PM to 720.
func ParseTimeLabel(label string) (int, error) {
	m := timeLabelPattern.FindStringSubmatch(label)
	if m == nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, label)
	}
	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	if m[3] == "AM" {
		if hour == 12 {
			hour = 0
		}
	} else if hour != 12 {
		hour += 12
	}
	return hour*60 + minute, nil
}

// FormatTimeLabel is the inverse of ParseTimeLabel, with a zero-padded hour.
func FormatTimeLabel(minutes int) string {
	hour := minutes / 60 % 24
	minute := minutes % 60
	meridiem := "AM"
	if hour >= 12 {
		meridiem = "PM"
	}
	switch {
	case hour == 0:
		hour = 12
	case hour > 12:
		hour -= 12
	}
	return fmt.Sprintf("%02d:%02d %s", hour, minute, meridiem)
}

// GenerateSlotTemplate expands a working window into fixed-duration slots.
// A slot is emitted whenever its start is strictly before the end label;
// the last slot's own end may run past the window and is kept as-is.
func GenerateSlotTemplate(startLabel, endLabel string, durationMinutes int) ([]TemplateSlot, error) {
	if durationMinutes <= 0 {
		return nil, errors.New("duration must be positive")
	}
	start, err := ParseTimeLabel(startLabel)
	if err != nil {
		return nil, err
	}
	end, err := ParseTimeLabel(endLabel)
	if err != nil {
		return nil, err
	}
	if start >= end {
		return nil, ErrInvalidRange
	}

	slots := make([]TemplateSlot, 0, (end-start)/durationMinutes+1)
	for at := start; at < end; at += durationMinutes {
		slots = append(slots, TemplateSlot{
			Label:           FormatTimeLabel(at),
			DefaultStatus:   SlotStatusAvailable,
			DurationMinutes: durationMinutes,
		})
	}
	return slots, nil
}
