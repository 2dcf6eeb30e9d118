package entities

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const DateLayout = "2006-01-02T15:04:05"

type TicketFilter struct {
	Code        *string
	Firstname   *string
	Lastname    *string
	PhoneNumber *string
	MinCost     *decimal.Decimal
	MaxCost     *decimal.Decimal
	MinDate     *time.Time
	MaxDate     *time.Time
	UserID      *int64
	EventID     *int64
	SeatID      *int64
	Paid        *bool
}

type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// Sortable ticket columns. Only these are ever interpolated into SQL.
var ticketSortColumns = map[string]string{
	"id":         "id",
	"created_at": "created_at",
	"cost":       "cost",
	"user_id":    "user_id",
	"event_id":   "event_id",
	"seat_id":    "seat_id",
}

type TicketSort struct {
	Field     string
	Direction SortDirection
}

var DefaultTicketSort = TicketSort{Field: "id", Direction: SortDesc}

// ParseTicketSort reads "field,direction", e.g. "cost,asc".
func ParseTicketSort(raw string) (TicketSort, error) {
	if raw == "" {
		return DefaultTicketSort, nil
	}

	field, dir, _ := strings.Cut(raw, ",")
	field = strings.TrimSpace(strings.ToLower(field))
	dir = strings.TrimSpace(strings.ToLower(dir))

	if _, ok := ticketSortColumns[field]; !ok {
		return TicketSort{}, NewValidationError("GET", "sort", raw, "sort field is not allowed")
	}

	sort := TicketSort{Field: field, Direction: SortAsc}
	switch SortDirection(dir) {
	case "", SortAsc:
	case SortDesc:
		sort.Direction = SortDesc
	default:
		return TicketSort{}, NewValidationError("GET", "sort", raw, "sort direction must be asc or desc")
	}

	return sort, nil
}

func (s TicketSort) Column() string {
	return ticketSortColumns[s.Field]
}

type PageRequest struct {
	Page int
	Size int
}

const (
	DefaultPageSize = 50
	MaxPageSize     = 500
)

func (p PageRequest) Normalize() PageRequest {
	if p.Page < 0 {
		p.Page = 0
	}
	if p.Size <= 0 {
		p.Size = DefaultPageSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	return p
}

type TicketPage struct {
	Content       []Ticket `json:"content"`
	Page          int      `json:"page"`
	Size          int      `json:"size"`
	TotalElements int      `json:"total_elements"`
	TotalPages    int      `json:"total_pages"`
}

func NewTicketPage(content []Ticket, page PageRequest, total int) TicketPage {
	if content == nil {
		content = []Ticket{}
	}
	totalPages := 0
	if page.Size > 0 {
		totalPages = (total + page.Size - 1) / page.Size
	}
	return TicketPage{
		Content:       content,
		Page:          page.Page,
		Size:          page.Size,
		TotalElements: total,
		TotalPages:    totalPages,
	}
}
