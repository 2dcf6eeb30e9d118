package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

type Ticket struct {
	ID          int64           `json:"id" db:"id"`
	Code        string          `json:"code" db:"code"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	Firstname   string          `json:"firstname" db:"firstname"`
	Lastname    string          `json:"lastname" db:"lastname"`
	PhoneNumber string          `json:"phone_number" db:"phone_number"`
	Cost        decimal.Decimal `json:"cost" db:"cost"`
	IsAdult     bool            `json:"is_adult" db:"is_adult"`
	IsStudent   bool            `json:"is_student" db:"is_student"`
	EventID     int64           `json:"event_id" db:"event_id"`
	SeatID      *int64          `json:"seat_id,omitempty" db:"seat_id"`
	UserID      int64           `json:"user_id" db:"user_id"`
	Paid        bool            `json:"paid" db:"paid"`
	Pdf         string          `json:"pdf" db:"pdf"`
}

// PaymentExpired reports whether an unpaid ticket is at or past the payment
// window. The expiry sweep uses the same boundary.
func (t Ticket) PaymentExpired(now time.Time, window time.Duration) bool {
	if t.Paid {
		return false
	}
	return !t.CreatedAt.After(now.Add(-window))
}

func (t Ticket) HasSeat() bool {
	return t.SeatID != nil
}

// SameState compares what concurrent writers change behind each other's
// back: payment, seat and document.
func (t Ticket) SameState(other Ticket) bool {
	if t.Paid != other.Paid || t.Pdf != other.Pdf {
		return false
	}
	if t.SeatID == nil || other.SeatID == nil {
		return t.SeatID == other.SeatID
	}
	return *t.SeatID == *other.SeatID
}

func (t Ticket) DocumentFilename() string {
	return "ticket-" + t.Code + ".pdf"
}

type TicketRequest struct {
	Firstname   string `json:"firstname" validate:"required"`
	Lastname    string `json:"lastname" validate:"required"`
	PhoneNumber string `json:"phone_number" validate:"required"`
	IsAdult     bool   `json:"is_adult"`
	IsStudent   bool   `json:"is_student"`
	EventID     int64  `json:"event_id" validate:"required,gt=0"`
}

type TicketField struct {
	ID    int64  `json:"id"`
	Key   string `json:"key"`
	Value any    `json:"value"`
}
