package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// IsCommitment reports whether the booking still represents a claim on a
// slot pattern. Pending counts: an unconfirmed request is still a
// commitment for edit-guard purposes.
func (s BookingStatus) IsCommitment() bool {
	return s == BookingStatusPending || s == BookingStatusConfirmed || s == BookingStatusCompleted
}

// IsFirm reports whether the booking is confirmed or already took place.
// Only firm bookings mark a slot booked or block deletion.
func (s BookingStatus) IsFirm() bool {
	return s == BookingStatusConfirmed || s == BookingStatusCompleted
}

type BookingFeed string

const (
	BookingFeedReferral    BookingFeed = "referral"
	BookingFeedAppointment BookingFeed = "appointment"
)

// BookingRecord is a read-only row from one of the two external booking
// feeds. The feeds share a shape but are never merged into one store; the
// Feed tag records provenance for conflict messaging.
type BookingRecord struct {
	SpecialistID    string        `json:"specialistId"`
	AppointmentDate time.Time     `json:"appointmentDate"`
	AppointmentTime string        `json:"appointmentTime"`
	Status          BookingStatus `json:"status"`
	Feed            BookingFeed   `json:"feed"`
}

func (b BookingRecord) Validate() error {
	if b.SpecialistID == "" {
		return errors.New("specialist_id is required")
	}
	if b.AppointmentDate.IsZero() {
		return errors.New("appointment_date is required")
	}
	if _, err := ParseTimeLabel(b.AppointmentTime); err != nil {
		return err
	}
	switch b.Status {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusCompleted, BookingStatusCancelled:
	default:
		return fmt.Errorf("unknown booking status %q", b.Status)
	}
	return nil
}

type Clinic struct {
	bun.BaseModel `bun:"table:clinics"`

	ID   string `bun:"id,pk" json:"id"`
	Name string `bun:"name,notnull" json:"name"`
}
