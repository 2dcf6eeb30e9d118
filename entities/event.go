package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

type Event struct {
	ID               int64               `json:"id" db:"id"`
	Name             string              `json:"name" db:"name"`
	Description      string              `json:"description" db:"description"`
	MaxTicketAmount  int                 `json:"max_ticket_amount" db:"max_ticket_amount"`
	IsSoldOut        bool                `json:"is_sold_out" db:"is_sold_out"`
	UnitPrice        decimal.Decimal     `json:"unit_price" db:"unit_price"`
	Currency         string              `json:"currency" db:"currency"`
	ChildrenDiscount decimal.NullDecimal `json:"children_discount" db:"children_discount"`
	StudentsDiscount decimal.NullDecimal `json:"students_discount" db:"students_discount"`
	StartAt          time.Time           `json:"start_at" db:"start_at"`
	EndAt            time.Time           `json:"end_at" db:"end_at"`
	Country          string              `json:"country" db:"country"`
	Address          string              `json:"address" db:"address"`
	LocalizationName string              `json:"localization_name" db:"localization_name"`
	IsWithoutSeats   bool                `json:"is_without_seats" db:"is_without_seats"`
}

func (e Event) Started(now time.Time) bool {
	return !now.Before(e.StartAt)
}

func (e Event) RequiresSeats() bool {
	return !e.IsWithoutSeats
}

type EventPatch struct {
	ID        int64 `json:"id" validate:"required,gt=0"`
	IsSoldOut *bool `json:"is_sold_out,omitempty"`
}
