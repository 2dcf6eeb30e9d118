package entities

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// TicketCost prices a ticket from the event pricing. A child discount wins
// over adult pricing, a student discount applies to adult students only.
func TicketCost(event Event, isAdult, isStudent bool) (decimal.Decimal, error) {
	switch {
	case !isAdult && event.ChildrenDiscount.Valid:
		return discounted(event.UnitPrice, event.ChildrenDiscount.Decimal), nil
	case isAdult && isStudent && event.StudentsDiscount.Valid:
		return discounted(event.UnitPrice, event.StudentsDiscount.Decimal), nil
	case isAdult:
		return event.UnitPrice, nil
	}

	return decimal.Decimal{}, NewConflictError("", "cost", event.ID, "unknown discounts configuration")
}

func discounted(price, percent decimal.Decimal) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(1).Sub(percent.Div(hundred).RoundDown(2)))
}

// NormalizeStudent drops the student flag for non-adults.
func NormalizeStudent(isAdult, isStudent bool) bool {
	return isAdult && isStudent
}
