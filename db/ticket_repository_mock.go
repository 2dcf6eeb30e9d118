package db

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/eve-ticketing/tickets/entities"
)

// TicketRepositoryMock keeps tickets in memory. It honours the same NotFound
// and conditional delete semantics as TicketRepository.
type TicketRepositoryMock struct {
	mock sync.Mutex

	nextID  int64
	Tickets map[int64]entities.Ticket

	// AddErr, when set, is returned by Add. UpdateErr is returned by Update
	// and PayForTickets.
	AddErr    error
	UpdateErr error
}

func NewTicketRepoMock() *TicketRepositoryMock {
	return &TicketRepositoryMock{
		Tickets: map[int64]entities.Ticket{},
	}
}

func (tr *TicketRepositoryMock) Add(ctx context.Context, ticket entities.Ticket) (entities.Ticket, error) {
	tr.mock.Lock()
	defer tr.mock.Unlock()

	if tr.AddErr != nil {
		return entities.Ticket{}, tr.AddErr
	}
	for _, t := range tr.Tickets {
		if t.Code == ticket.Code {
			return entities.Ticket{}, entities.NewConflictError("POST", "code", ticket.Code, "ticket code already exists")
		}
	}

	tr.nextID++
	ticket.ID = tr.nextID
	tr.Tickets[ticket.ID] = ticket

	return ticket, nil
}

func (tr *TicketRepositoryMock) ByID(ctx context.Context, id int64) (entities.Ticket, error) {
	tr.mock.Lock()
	defer tr.mock.Unlock()

	ticket, ok := tr.Tickets[id]
	if !ok {
		return entities.Ticket{}, entities.NewNotFoundError("GET", "id", id, "id not found")
	}
	return ticket, nil
}

func (tr *TicketRepositoryMock) ByIDs(ctx context.Context, ids []int64) ([]entities.Ticket, error) {
	tr.mock.Lock()
	defer tr.mock.Unlock()

	return tr.byIDs(ids), nil
}

func (tr *TicketRepositoryMock) byIDs(ids []int64) []entities.Ticket {
	var tickets []entities.Ticket
	for _, id := range ids {
		if ticket, ok := tr.Tickets[id]; ok {
			tickets = append(tickets, ticket)
		}
	}
	slices.SortFunc(tickets, func(a, b entities.Ticket) int { return int(a.ID - b.ID) })
	return tickets
}

func (tr *TicketRepositoryMock) Update(ctx context.Context, previous, ticket entities.Ticket) error {
	tr.mock.Lock()
	defer tr.mock.Unlock()

	if tr.UpdateErr != nil {
		return tr.UpdateErr
	}

	stored, ok := tr.Tickets[ticket.ID]
	if !ok {
		return entities.NewNotFoundError("PUT", "id", ticket.ID, "id not found")
	}
	if !stored.SameState(previous) {
		return entities.NewConflictError("PUT", "id", ticket.ID, "ticket was changed in the meantime")
	}

	ticket.Code = stored.Code
	ticket.CreatedAt = stored.CreatedAt
	ticket.EventID = stored.EventID
	ticket.UserID = stored.UserID
	ticket.Paid = stored.Paid
	tr.Tickets[ticket.ID] = ticket

	return nil
}

func (tr *TicketRepositoryMock) Delete(ctx context.Context, id int64, cond DeleteCondition) (entities.Ticket, error) {
	tr.mock.Lock()
	defer tr.mock.Unlock()

	ticket, ok := tr.Tickets[id]
	if !ok {
		return entities.Ticket{}, entities.NewNotFoundError("DELETE", "id", id, "id not found")
	}
	if cond.UnpaidCreatedBefore != nil && (ticket.Paid || ticket.CreatedAt.After(*cond.UnpaidCreatedBefore)) {
		return entities.Ticket{}, entities.NewNotFoundError("DELETE", "id", id, "id not found")
	}

	delete(tr.Tickets, id)
	return ticket, nil
}

func (tr *TicketRepositoryMock) PayForTickets(
	ctx context.Context,
	ids []int64,
	updateFn func(tickets []entities.Ticket) ([]entities.Ticket, error),
) ([]entities.Ticket, error) {
	tr.mock.Lock()
	defer tr.mock.Unlock()

	if tr.UpdateErr != nil {
		return nil, tr.UpdateErr
	}

	updated, err := updateFn(tr.byIDs(ids))
	if err != nil {
		return nil, err
	}
	for _, ticket := range updated {
		tr.Tickets[ticket.ID] = ticket
	}

	return updated, nil
}

func (tr *TicketRepositoryMock) FindExpired(ctx context.Context, cutoff time.Time) ([]entities.Ticket, error) {
	tr.mock.Lock()
	defer tr.mock.Unlock()

	var tickets []entities.Ticket
	for _, ticket := range tr.Tickets {
		if !ticket.Paid && !ticket.CreatedAt.After(cutoff) {
			tickets = append(tickets, ticket)
		}
	}
	return tickets, nil
}

func (tr *TicketRepositoryMock) List(
	ctx context.Context,
	filter entities.TicketFilter,
	sort entities.TicketSort,
	page entities.PageRequest,
) ([]entities.Ticket, int, error) {
	tr.mock.Lock()
	defer tr.mock.Unlock()

	var tickets []entities.Ticket
	for _, ticket := range tr.Tickets {
		if filter.UserID != nil && ticket.UserID != *filter.UserID {
			continue
		}
		if filter.EventID != nil && ticket.EventID != *filter.EventID {
			continue
		}
		if filter.Paid != nil && ticket.Paid != *filter.Paid {
			continue
		}
		tickets = append(tickets, ticket)
	}
	slices.SortFunc(tickets, func(a, b entities.Ticket) int { return int(a.ID - b.ID) })

	total := len(tickets)
	from := min(page.Page*page.Size, total)
	to := min(from+page.Size, total)

	return tickets[from:to], total, nil
}
