package db

import (
	"fmt"
	"strings"

	"github.com/eve-ticketing/tickets/entities"
)

func ticketFilterClause(f entities.TicketFilter) (string, []any) {
	var conditions []string
	var args []any

	add := func(condition string, arg any) {
		args = append(args, arg)
		conditions = append(conditions, fmt.Sprintf(condition, len(args)))
	}

	if f.Code != nil {
		add("code = $%d", *f.Code)
	}
	if f.Firstname != nil {
		add("firstname ILIKE $%d", "%"+*f.Firstname+"%")
	}
	if f.Lastname != nil {
		add("lastname ILIKE $%d", "%"+*f.Lastname+"%")
	}
	if f.PhoneNumber != nil {
		add("phone_number = $%d", *f.PhoneNumber)
	}
	if f.MinCost != nil {
		add("cost >= $%d", *f.MinCost)
	}
	if f.MaxCost != nil {
		add("cost <= $%d", *f.MaxCost)
	}
	if f.MinDate != nil {
		add("created_at >= $%d", *f.MinDate)
	}
	if f.MaxDate != nil {
		add("created_at <= $%d", *f.MaxDate)
	}
	if f.UserID != nil {
		add("user_id = $%d", *f.UserID)
	}
	if f.EventID != nil {
		add("event_id = $%d", *f.EventID)
	}
	if f.SeatID != nil {
		add("seat_id = $%d", *f.SeatID)
	}
	if f.Paid != nil {
		add("paid = $%d", *f.Paid)
	}

	if len(conditions) == 0 {
		return "", nil
	}

	return " WHERE " + strings.Join(conditions, " AND "), args
}
