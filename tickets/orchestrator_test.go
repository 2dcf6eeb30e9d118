package tickets_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/eve-ticketing/tickets/api"
	"github.com/eve-ticketing/tickets/db"
	"github.com/eve-ticketing/tickets/entities"
	"github.com/eve-ticketing/tickets/saga"
	"github.com/eve-ticketing/tickets/tickets"
	"github.com/jonboulle/clockwork"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

const (
	validPhone = "+48 501 234 567"
	adminEmail = "boss@eve.test"
)

var (
	owner = entities.User{ID: 10, Role: "USER", Email: "jan@eve.test", Firstname: "Jan", Lastname: "Kowalski"}
	other = entities.User{ID: 11, Role: "USER", Email: "anna@eve.test", Firstname: "Anna"}
	admin = entities.User{ID: 1, Role: entities.RoleAdmin, Email: "root@eve.test"}
)

type publisherMock struct {
	lock sync.Mutex

	notifications []entities.TicketNotification
	emails        []entities.TicketEmail
}

func (p *publisherMock) PublishNotification(ctx context.Context, notification entities.TicketNotification) {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.notifications = append(p.notifications, notification)
}

func (p *publisherMock) PublishEmail(ctx context.Context, email entities.TicketEmail) {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.emails = append(p.emails, email)
}

type compensationQueueMock struct {
	lock sync.Mutex

	releases []entities.ReleaseSeat
	discards []entities.DiscardDocument
}

func (q *compensationQueueMock) ReleaseSeat(ctx context.Context, cmd entities.ReleaseSeat) error {
	q.lock.Lock()
	defer q.lock.Unlock()
	q.releases = append(q.releases, cmd)
	return nil
}

func (q *compensationQueueMock) DiscardDocument(ctx context.Context, cmd entities.DiscardDocument) error {
	q.lock.Lock()
	defer q.lock.Unlock()
	q.discards = append(q.discards, cmd)
	return nil
}

type fixture struct {
	clock     *clockwork.FakeClock
	repo      *db.TicketRepositoryMock
	events    *api.EventsServiceClientMock
	seats     *api.SeatsServiceClientMock
	pdf       *api.PdfServiceClientMock
	storage   *api.StorageServiceClientMock
	auth      *api.AuthServiceClientMock
	publisher *publisherMock
	queue     *compensationQueueMock

	orchestrator *tickets.Orchestrator
}

var start = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func concert(id int64, max int) entities.Event {
	return entities.Event{
		ID:               id,
		Name:             "Concert",
		MaxTicketAmount:  max,
		UnitPrice:        decimal.NewFromInt(100),
		Currency:         "PLN",
		ChildrenDiscount: decimal.NewNullDecimal(decimal.NewFromInt(50)),
		StudentsDiscount: decimal.NewNullDecimal(decimal.NewFromInt(33)),
		StartAt:          start.Add(30 * 24 * time.Hour),
		EndAt:            start.Add(30*24*time.Hour + 3*time.Hour),
	}
}

func seat(id, eventID int64, number int) entities.Seat {
	return entities.Seat{ID: id, EventID: eventID, Sector: "A", Row: 1, Number: number}
}

func newFixture(t *testing.T, events []entities.Event, seats ...entities.Seat) *fixture {
	t.Helper()

	f := &fixture{
		clock:     clockwork.NewFakeClockAt(start),
		repo:      db.NewTicketRepoMock(),
		events:    api.NewEventsServiceClientMock(events...),
		pdf:       &api.PdfServiceClientMock{},
		storage:   api.NewStorageServiceClientMock(),
		auth: &api.AuthServiceClientMock{Users: map[string]entities.User{
			"owner": owner,
			"other": other,
			"admin": admin,
		}},
		publisher: &publisherMock{},
		queue:     &compensationQueueMock{},
	}
	f.seats = api.NewSeatsServiceClientMock(f.events, seats...)
	f.storage.CurrentLink = func(entity string, id int64, field string) string {
		ticket, err := f.repo.ByID(context.Background(), id)
		if err != nil {
			return ""
		}
		return ticket.Pdf
	}

	f.orchestrator = f.build(f.repo, f.seats)

	return f
}

// build wires an orchestrator over the fixture, with repo and seats
// replaceable to inject failures.
func (f *fixture) build(repo tickets.TicketRepository, seats tickets.SeatsService) *tickets.Orchestrator {
	return tickets.NewOrchestrator(
		repo,
		tickets.NewEventGuard(f.events, f.clock),
		tickets.NewSeatAllocator(seats),
		tickets.NewDocumentIssuer(f.pdf, f.storage),
		f.publisher,
		f.publisher,
		f.queue,
		f.auth,
		f.clock,
		tickets.Config{AdminEmails: []string{adminEmail}, PaymentWindow: 10 * time.Minute},
		saga.WithBackOff(func() backoff.BackOff {
			return backoff.WithMaxRetries(&backoff.ZeroBackOff{}, 1)
		}),
	)
}

// interleavedRepository runs beforeUpdate once, right before the next
// ticket update is stored, to let another request commit in between.
type interleavedRepository struct {
	*db.TicketRepositoryMock
	beforeUpdate func()
}

func (r *interleavedRepository) Update(ctx context.Context, previous, ticket entities.Ticket) error {
	if fn := r.beforeUpdate; fn != nil {
		r.beforeUpdate = nil
		fn()
	}
	return r.TicketRepositoryMock.Update(ctx, previous, ticket)
}

// lostResponseSeats commits claims but reports a timeout, as if the
// response of the seat service never arrived.
type lostResponseSeats struct {
	*api.SeatsServiceClientMock
}

func (s lostResponseSeats) Reserve(ctx context.Context, eventID int64, holder string) (entities.Seat, error) {
	if _, err := s.SeatsServiceClientMock.Reserve(ctx, eventID, holder); err != nil {
		return entities.Seat{}, err
	}
	return entities.Seat{}, entities.NewDownstreamError("PUT", "event_id", eventID, "seat service timed out", context.DeadlineExceeded)
}

func (s lostResponseSeats) Occupy(ctx context.Context, seatID int64, holder string) (entities.Seat, error) {
	if _, err := s.SeatsServiceClientMock.Occupy(ctx, seatID, holder); err != nil {
		return entities.Seat{}, err
	}
	return entities.Seat{}, entities.NewDownstreamError("PUT", "seat_id", seatID, "seat service timed out", context.DeadlineExceeded)
}

func ticketRequest(eventID int64) entities.TicketRequest {
	return entities.TicketRequest{
		Firstname:   "Jan",
		Lastname:    "Kowalski",
		PhoneNumber: validPhone,
		IsAdult:     true,
		EventID:     eventID,
	}
}

func TestCreateTicket(t *testing.T) {
	f := newFixture(t, []entities.Event{concert(1, 2)}, seat(1, 1, 1), seat(2, 1, 2))
	ctx := context.Background()

	ticket, err := f.orchestrator.CreateTicket(ctx, ticketRequest(1), owner)
	require.NoError(t, err)

	assert.NotZero(t, ticket.ID)
	assert.NotEmpty(t, ticket.Code)
	assert.Equal(t, start, ticket.CreatedAt)
	assert.Equal(t, owner.ID, ticket.UserID)
	assert.False(t, ticket.Paid)
	assert.True(t, decimal.NewFromInt(100).Equal(ticket.Cost))
	require.NotNil(t, ticket.SeatID)
	assert.Equal(t, int64(1), *ticket.SeatID)

	assert.True(t, f.seats.Seats[1].Occupied)
	assert.Equal(t, ticket.Code, f.seats.Seats[1].Holder)
	assert.False(t, f.events.Events[1].IsSoldOut)

	assert.Contains(t, f.storage.Files, ticket.Pdf)
	require.Len(t, f.pdf.Rendered, 1)
	assert.Equal(t, ticket.Code, f.pdf.Rendered[0]["code"])
	assert.Equal(t, "A", f.pdf.Rendered[0]["sector"])

	require.Len(t, f.publisher.notifications, 1)
	assert.Equal(t, validPhone, f.publisher.notifications[0].PhoneNumber)
	assert.Contains(t, f.publisher.notifications[0].Message, "You have reserved on the 2024-05-01 12:00")
	require.Len(t, f.publisher.emails, 1)
	assert.Equal(t, owner.Email, f.publisher.emails[0].To)
	assert.Equal(t, entities.TicketEmailTemplate, f.publisher.emails[0].Template)
	assert.Equal(t, ticket.Pdf, f.publisher.emails[0].Attachment)
	assert.Equal(t, "ticket-"+ticket.Code+".pdf", f.publisher.emails[0].AttachmentName)
}

func TestCreateTicket_child_is_never_a_student(t *testing.T) {
	f := newFixture(t, []entities.Event{concert(1, 2)}, seat(1, 1, 1))

	req := ticketRequest(1)
	req.IsAdult = false
	req.IsStudent = true

	ticket, err := f.orchestrator.CreateTicket(context.Background(), req, owner)
	require.NoError(t, err)
	assert.False(t, ticket.IsStudent)
	assert.True(t, decimal.NewFromInt(50).Equal(ticket.Cost))
}

func TestCreateTicket_event_without_seats(t *testing.T) {
	event := concert(1, 100)
	event.IsWithoutSeats = true
	f := newFixture(t, []entities.Event{event})

	ticket, err := f.orchestrator.CreateTicket(context.Background(), ticketRequest(1), owner)
	require.NoError(t, err)
	assert.Nil(t, ticket.SeatID)
}

func TestCreateTicket_rejections(t *testing.T) {
	started := concert(2, 1)
	started.StartAt = start
	soldOut := concert(3, 1)
	soldOut.IsSoldOut = true

	testCases := []struct {
		Name    string
		Request func() entities.TicketRequest
		Kind    entities.ErrorKind
	}{
		{
			Name: "invalid_phone",
			Request: func() entities.TicketRequest {
				req := ticketRequest(1)
				req.PhoneNumber = "12"
				return req
			},
			Kind: entities.KindValidation,
		},
		{
			Name:    "missing_event",
			Request: func() entities.TicketRequest { return ticketRequest(99) },
			Kind:    entities.KindNotFound,
		},
		{
			Name:    "event_started",
			Request: func() entities.TicketRequest { return ticketRequest(2) },
			Kind:    entities.KindConflict,
		},
		{
			Name:    "event_sold_out",
			Request: func() entities.TicketRequest { return ticketRequest(3) },
			Kind:    entities.KindConflict,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			f := newFixture(t, []entities.Event{concert(1, 1), started, soldOut}, seat(1, 1, 1))

			_, err := f.orchestrator.CreateTicket(context.Background(), tc.Request(), owner)
			require.Error(t, err)
			assert.Equal(t, tc.Kind, entities.KindOf(err))
			assert.Empty(t, f.repo.Tickets)
			assert.False(t, f.seats.Seats[1].Occupied)
		})
	}
}

func TestCreateTicket_concurrent_requests_for_last_seat(t *testing.T) {
	f := newFixture(t, []entities.Event{concert(1, 1)}, seat(1, 1, 1))

	var lock sync.Mutex
	var succeeded, conflicted int

	g := errgroup.Group{}
	for i := 0; i < 2; i++ {
		g.Go(func() error {
			_, err := f.orchestrator.CreateTicket(context.Background(), ticketRequest(1), owner)

			lock.Lock()
			defer lock.Unlock()
			switch {
			case err == nil:
				succeeded++
			case entities.IsConflict(err):
				conflicted++
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, conflicted)
	assert.Len(t, f.repo.Tickets, 1)
	assert.True(t, f.events.Events[1].IsSoldOut)
}

func TestCreateTicket_document_failure_releases_seat(t *testing.T) {
	f := newFixture(t, []entities.Event{concert(1, 1)}, seat(1, 1, 1))
	f.pdf.Err = entities.NewDownstreamError("POST", "template_name", "ticketpdf", "pdf service is unavailable", errors.New("timeout"))

	_, err := f.orchestrator.CreateTicket(context.Background(), ticketRequest(1), owner)
	require.Error(t, err)
	assert.Equal(t, entities.KindDownstream, entities.KindOf(err))

	assert.False(t, f.seats.Seats[1].Occupied)
	assert.Empty(t, f.seats.Seats[1].Holder)
	assert.False(t, f.events.Events[1].IsSoldOut)
	assert.Empty(t, f.repo.Tickets)
	assert.Empty(t, f.publisher.notifications)
	assert.Empty(t, f.queue.releases)
}

func TestCreateTicket_persist_failure_discards_document(t *testing.T) {
	f := newFixture(t, []entities.Event{concert(1, 2)}, seat(1, 1, 1), seat(2, 1, 2))
	f.repo.AddErr = errors.New("connection reset")

	_, err := f.orchestrator.CreateTicket(context.Background(), ticketRequest(1), owner)
	require.Error(t, err)
	assert.EqualError(t, errors.Unwrap(err), "connection reset")

	assert.Empty(t, f.storage.Files)
	require.Len(t, f.storage.Deleted, 1)
	assert.False(t, f.seats.Seats[1].Occupied)
	assert.False(t, f.seats.Seats[2].Occupied)
}

func TestCreateTicket_failed_release_is_escalated(t *testing.T) {
	f := newFixture(t, []entities.Event{concert(1, 1)}, seat(1, 1, 1))
	f.pdf.Err = entities.NewDownstreamError("POST", "template_name", "ticketpdf", "pdf service is unavailable", nil)
	f.seats.ReleaseErr = entities.NewDownstreamError("PUT", "seat_id", 1, "seat service is unavailable", nil)
	f.seats.ReleaseFailures = 10

	_, err := f.orchestrator.CreateTicket(context.Background(), ticketRequest(1), owner)
	require.Error(t, err)

	var sagaErr *saga.Error
	require.ErrorAs(t, err, &sagaErr)
	assert.Empty(t, sagaErr.Unresolved)

	require.Len(t, f.queue.releases, 1)
	assert.Equal(t, int64(1), f.queue.releases[0].SeatID)
	assert.Equal(t, f.seats.Seats[1].Holder, f.queue.releases[0].Holder)
}

func TestCreateTicket_lost_reserve_response_releases_seat(t *testing.T) {
	f := newFixture(t, []entities.Event{concert(1, 1)}, seat(1, 1, 1))
	o := f.build(f.repo, lostResponseSeats{f.seats})

	_, err := o.CreateTicket(context.Background(), ticketRequest(1), owner)
	require.Error(t, err)
	assert.Equal(t, entities.KindDownstream, entities.KindOf(err))

	assert.False(t, f.seats.Seats[1].Occupied)
	assert.Empty(t, f.seats.Seats[1].Holder)
	assert.False(t, f.events.Events[1].IsSoldOut)
	assert.Empty(t, f.repo.Tickets)
	assert.Empty(t, f.storage.Files)
	assert.Empty(t, f.queue.releases)
}

func TestCreateTicket_lost_reserve_response_is_escalated_by_holder(t *testing.T) {
	f := newFixture(t, []entities.Event{concert(1, 1)}, seat(1, 1, 1))
	f.seats.ReleaseErr = entities.NewDownstreamError("PUT", "event_id", 1, "seat service is unavailable", nil)
	f.seats.ReleaseFailures = 10
	o := f.build(f.repo, lostResponseSeats{f.seats})

	_, err := o.CreateTicket(context.Background(), ticketRequest(1), owner)
	require.Error(t, err)

	require.Len(t, f.queue.releases, 1)
	assert.Equal(t, int64(1), f.queue.releases[0].EventID)
	assert.Zero(t, f.queue.releases[0].SeatID)
	assert.Equal(t, f.seats.Seats[1].Holder, f.queue.releases[0].Holder)
}

func TestUpdateTicket_seat_change(t *testing.T) {
	f := newFixture(t, []entities.Event{concert(1, 2)}, seat(1, 1, 1), seat(2, 1, 2))
	ctx := context.Background()

	ticket, err := f.orchestrator.CreateTicket(ctx, ticketRequest(1), owner)
	require.NoError(t, err)
	oldPdf := ticket.Pdf

	newSeat := int64(2)
	updated, err := f.orchestrator.UpdateTicket(ctx, ticket.ID, entities.TicketPatch{SeatID: &newSeat}, owner)
	require.NoError(t, err)

	require.NotNil(t, updated.SeatID)
	assert.Equal(t, int64(2), *updated.SeatID)
	assert.False(t, f.seats.Seats[1].Occupied)
	assert.True(t, f.seats.Seats[2].Occupied)
	assert.Equal(t, ticket.Code, f.seats.Seats[2].Holder)

	assert.NotEqual(t, oldPdf, updated.Pdf)
	assert.Contains(t, f.storage.Deleted, oldPdf)
	assert.Contains(t, f.storage.Files, updated.Pdf)
	assert.Equal(t, updated.Pdf, f.repo.Tickets[ticket.ID].Pdf)
	assert.Equal(t, int64(2), *f.repo.Tickets[ticket.ID].SeatID)

	require.Len(t, f.publisher.notifications, 2)
	assert.Contains(t, f.publisher.notifications[1].Message, "You have updated a ticket")
}

func TestUpdateTicket_taken_seat_keeps_ticket(t *testing.T) {
	f := newFixture(t, []entities.Event{concert(1, 3)}, seat(1, 1, 1), seat(2, 1, 2), seat(3, 1, 3))
	ctx := context.Background()

	first, err := f.orchestrator.CreateTicket(ctx, ticketRequest(1), owner)
	require.NoError(t, err)
	second, err := f.orchestrator.CreateTicket(ctx, ticketRequest(1), other)
	require.NoError(t, err)

	_, err = f.orchestrator.UpdateTicket(ctx, first.ID, entities.TicketPatch{SeatID: second.SeatID}, owner)
	require.Error(t, err)
	assert.True(t, entities.IsConflict(err))

	assert.Equal(t, first, f.repo.Tickets[first.ID])
	assert.Equal(t, first.Code, f.seats.Seats[*first.SeatID].Holder)
	assert.Equal(t, second.Code, f.seats.Seats[*second.SeatID].Holder)
}

func TestUpdateTicket_lost_occupy_response_releases_new_seat(t *testing.T) {
	f := newFixture(t, []entities.Event{concert(1, 2)}, seat(1, 1, 1), seat(2, 1, 2))
	ctx := context.Background()

	ticket, err := f.orchestrator.CreateTicket(ctx, ticketRequest(1), owner)
	require.NoError(t, err)

	newSeat := int64(2)
	_, err = f.build(f.repo, lostResponseSeats{f.seats}).UpdateTicket(ctx, ticket.ID, entities.TicketPatch{SeatID: &newSeat}, owner)
	require.Error(t, err)
	assert.Equal(t, entities.KindDownstream, entities.KindOf(err))

	assert.Equal(t, ticket, f.repo.Tickets[ticket.ID])
	assert.True(t, f.seats.Seats[1].Occupied)
	assert.False(t, f.seats.Seats[2].Occupied)
	assert.False(t, f.events.Events[1].IsSoldOut)
}

func TestUpdateTicket_concurrent_payment_wins(t *testing.T) {
	f := newFixture(t, []entities.Event{concert(1, 2)}, seat(1, 1, 1))
	ctx := context.Background()

	ticket, err := f.orchestrator.CreateTicket(ctx, ticketRequest(1), owner)
	require.NoError(t, err)

	repo := &interleavedRepository{TicketRepositoryMock: f.repo}
	o := f.build(repo, f.seats)

	var payErr error
	repo.beforeUpdate = func() {
		_, payErr = o.PayForTickets(ctx, []int64{ticket.ID}, owner)
	}

	name := "Piotr"
	_, err = o.UpdateTicket(ctx, ticket.ID, entities.TicketPatch{Firstname: &name}, owner)
	require.NoError(t, payErr)
	require.Error(t, err)
	assert.True(t, entities.IsConflict(err))

	stored := f.repo.Tickets[ticket.ID]
	assert.True(t, stored.Paid)
	assert.Equal(t, "Jan", stored.Firstname)
	assert.Contains(t, f.storage.Files, stored.Pdf)
	// only the document of the payment is left
	assert.Len(t, f.storage.Files, 1)
}

func TestUpdateTicket_concurrent_seat_changes(t *testing.T) {
	f := newFixture(t, []entities.Event{concert(1, 3)}, seat(1, 1, 1), seat(2, 1, 2), seat(3, 1, 3))
	ctx := context.Background()

	ticket, err := f.orchestrator.CreateTicket(ctx, ticketRequest(1), owner)
	require.NoError(t, err)

	repo := &interleavedRepository{TicketRepositoryMock: f.repo}
	o := f.build(repo, f.seats)

	seatTwo, seatThree := int64(2), int64(3)
	var secondErr error
	repo.beforeUpdate = func() {
		_, secondErr = o.UpdateTicket(ctx, ticket.ID, entities.TicketPatch{SeatID: &seatThree}, owner)
	}

	_, err = o.UpdateTicket(ctx, ticket.ID, entities.TicketPatch{SeatID: &seatTwo}, owner)
	require.NoError(t, secondErr)
	assert.True(t, entities.IsConflict(err))

	stored := f.repo.Tickets[ticket.ID]
	require.NotNil(t, stored.SeatID)
	assert.Equal(t, seatThree, *stored.SeatID)

	assert.False(t, f.seats.Seats[1].Occupied)
	assert.False(t, f.seats.Seats[2].Occupied)
	assert.True(t, f.seats.Seats[3].Occupied)
	assert.Equal(t, []string{stored.Pdf}, lo.Keys(f.storage.Files))
}

func TestUpdateTicket_persist_failure_keeps_stored_document(t *testing.T) {
	f := newFixture(t, []entities.Event{concert(1, 2)}, seat(1, 1, 1))
	ctx := context.Background()

	ticket, err := f.orchestrator.CreateTicket(ctx, ticketRequest(1), owner)
	require.NoError(t, err)

	f.repo.UpdateErr = errors.New("connection reset")
	name := "Piotr"
	_, err = f.orchestrator.UpdateTicket(ctx, ticket.ID, entities.TicketPatch{Firstname: &name}, owner)
	require.Error(t, err)

	stored := f.repo.Tickets[ticket.ID]
	assert.Equal(t, ticket.Pdf, stored.Pdf)
	assert.Contains(t, f.storage.Files, stored.Pdf)
	assert.NotContains(t, f.storage.Deleted, stored.Pdf)
	assert.Len(t, f.storage.Files, 1)
}

func TestUpdateTicket_by_admin_addresses_owner(t *testing.T) {
	f := newFixture(t, []entities.Event{concert(1, 2)}, seat(1, 1, 1))
	ctx := context.Background()

	ticket, err := f.orchestrator.CreateTicket(ctx, ticketRequest(1), owner)
	require.NoError(t, err)

	name := "Piotr"
	_, err = f.orchestrator.UpdateTicket(ctx, ticket.ID, entities.TicketPatch{Firstname: &name}, admin)
	require.NoError(t, err)

	rendered := f.pdf.Rendered[len(f.pdf.Rendered)-1]
	assert.Equal(t, owner.Email, rendered["email"])
	assert.Equal(t, owner.Firstname, rendered["userFirstname"])
	require.Len(t, f.publisher.emails, 2)
	assert.Equal(t, owner.Email, f.publisher.emails[1].To)
}

func TestUpdateTicket_by_admin_for_unknown_owner(t *testing.T) {
	f := newFixture(t, []entities.Event{concert(1, 2)}, seat(1, 1, 1))
	ctx := context.Background()

	gone := entities.User{ID: 77, Role: "USER", Email: "gone@eve.test"}
	ticket, err := f.orchestrator.CreateTicket(ctx, ticketRequest(1), gone)
	require.NoError(t, err)

	name := "Piotr"
	_, err = f.orchestrator.UpdateTicket(ctx, ticket.ID, entities.TicketPatch{Firstname: &name}, admin)
	require.NoError(t, err)

	assert.Empty(t, f.pdf.Rendered[len(f.pdf.Rendered)-1]["email"])
	assert.Len(t, f.publisher.emails, 1)
}

func TestUpdateTicket_reprices_on_age_change(t *testing.T) {
	f := newFixture(t, []entities.Event{concert(1, 2)}, seat(1, 1, 1))
	ctx := context.Background()

	ticket, err := f.orchestrator.CreateTicket(ctx, ticketRequest(1), owner)
	require.NoError(t, err)

	isStudent := true
	updated, err := f.orchestrator.UpdateTicket(ctx, ticket.ID, entities.TicketPatch{IsStudent: &isStudent}, owner)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(67).Equal(updated.Cost))

	isAdult := false
	updated, err = f.orchestrator.UpdateTicket(ctx, ticket.ID, entities.TicketPatch{IsAdult: &isAdult}, owner)
	require.NoError(t, err)
	assert.False(t, updated.IsStudent)
	assert.True(t, decimal.NewFromInt(50).Equal(updated.Cost))
}

func TestUpdateTicket_empty_patch_is_noop(t *testing.T) {
	f := newFixture(t, []entities.Event{concert(1, 2)}, seat(1, 1, 1))
	ctx := context.Background()

	ticket, err := f.orchestrator.CreateTicket(ctx, ticketRequest(1), owner)
	require.NoError(t, err)

	sameName := ticket.Firstname
	updated, err := f.orchestrator.UpdateTicket(ctx, ticket.ID, entities.TicketPatch{Firstname: &sameName}, owner)
	require.NoError(t, err)
	assert.Equal(t, ticket, updated)
	assert.Len(t, f.pdf.Rendered, 1)
	assert.Len(t, f.publisher.notifications, 1)
}

func TestUpdateTicket_other_user(t *testing.T) {
	f := newFixture(t, []entities.Event{concert(1, 2)}, seat(1, 1, 1))
	ctx := context.Background()

	ticket, err := f.orchestrator.CreateTicket(ctx, ticketRequest(1), owner)
	require.NoError(t, err)

	name := "Piotr"
	_, err = f.orchestrator.UpdateTicket(ctx, ticket.ID, entities.TicketPatch{Firstname: &name}, other)
	assert.Equal(t, entities.KindValidation, entities.KindOf(err))

	_, err = f.orchestrator.UpdateTicket(ctx, ticket.ID, entities.TicketPatch{Firstname: &name}, admin)
	assert.NoError(t, err)
}

func TestDeleteTicket_is_idempotent(t *testing.T) {
	f := newFixture(t, []entities.Event{concert(1, 1)}, seat(1, 1, 1))
	ctx := context.Background()

	ticket, err := f.orchestrator.CreateTicket(ctx, ticketRequest(1), owner)
	require.NoError(t, err)
	assert.True(t, f.events.Events[1].IsSoldOut)

	require.NoError(t, f.orchestrator.DeleteTicket(ctx, ticket.ID, owner))

	assert.False(t, f.seats.Seats[1].Occupied)
	assert.False(t, f.events.Events[1].IsSoldOut)
	assert.Contains(t, f.storage.Deleted, ticket.Pdf)
	require.Len(t, f.publisher.emails, 2)
	assert.Equal(t, entities.TicketCanceledEmailTemplate, f.publisher.emails[1].Template)
	assert.Contains(t, f.publisher.notifications[1].Message, "was canceled")

	err = f.orchestrator.DeleteTicket(ctx, ticket.ID, owner)
	assert.True(t, entities.IsNotFound(err))
	assert.Equal(t, 1, f.seats.Releases)
}

func TestDeleteTicket_by_admin_emails_owner(t *testing.T) {
	f := newFixture(t, []entities.Event{concert(1, 1)}, seat(1, 1, 1))
	ctx := context.Background()

	ticket, err := f.orchestrator.CreateTicket(ctx, ticketRequest(1), owner)
	require.NoError(t, err)

	require.NoError(t, f.orchestrator.DeleteTicket(ctx, ticket.ID, admin))

	require.Len(t, f.publisher.emails, 2)
	assert.Equal(t, entities.TicketCanceledEmailTemplate, f.publisher.emails[1].Template)
	assert.Equal(t, owner.Email, f.publisher.emails[1].To)
}

func TestDeleteTicket_does_not_free_reassigned_seat(t *testing.T) {
	f := newFixture(t, []entities.Event{concert(1, 1)}, seat(1, 1, 1))
	ctx := context.Background()

	ticket, err := f.orchestrator.CreateTicket(ctx, ticketRequest(1), owner)
	require.NoError(t, err)

	// the seat already belongs to someone else, e.g. after a lost release
	reassigned := f.seats.Seats[1]
	reassigned.Holder = "another-ticket"
	f.seats.Seats[1] = reassigned

	require.NoError(t, f.orchestrator.DeleteTicket(ctx, ticket.ID, owner))
	assert.True(t, f.seats.Seats[1].Occupied)
	assert.Equal(t, "another-ticket", f.seats.Seats[1].Holder)
}

func TestDeleteTicket_concurrent_with_expiry(t *testing.T) {
	f := newFixture(t, []entities.Event{concert(1, 1)}, seat(1, 1, 1))
	ctx := context.Background()

	ticket, err := f.orchestrator.CreateTicket(ctx, ticketRequest(1), owner)
	require.NoError(t, err)
	f.clock.Advance(11 * time.Minute)

	g := errgroup.Group{}
	results := make([]error, 2)
	g.Go(func() error {
		results[0] = f.orchestrator.DeleteTicket(ctx, ticket.ID, owner)
		return nil
	})
	g.Go(func() error {
		results[1] = f.orchestrator.ExpireTicket(ctx, ticket.ID, f.clock.Now().Add(-10*time.Minute))
		return nil
	})
	require.NoError(t, g.Wait())

	failed := 0
	for _, err := range results {
		if err != nil {
			assert.True(t, entities.IsNotFound(err))
			failed++
		}
	}
	assert.LessOrEqual(t, failed, 1)
	assert.Equal(t, 1, f.seats.Releases)
	assert.False(t, f.seats.Seats[1].Occupied)
}

func TestPayForTickets(t *testing.T) {
	f := newFixture(t, []entities.Event{concert(1, 2)}, seat(1, 1, 1), seat(2, 1, 2))
	ctx := context.Background()

	first, err := f.orchestrator.CreateTicket(ctx, ticketRequest(1), owner)
	require.NoError(t, err)
	second, err := f.orchestrator.CreateTicket(ctx, ticketRequest(1), owner)
	require.NoError(t, err)

	f.clock.Advance(9*time.Minute + 59*time.Second)

	paid, err := f.orchestrator.PayForTickets(ctx, []int64{first.ID, second.ID, first.ID}, owner)
	require.NoError(t, err)
	require.Len(t, paid, 2)

	for _, ticket := range []entities.Ticket{first, second} {
		stored := f.repo.Tickets[ticket.ID]
		assert.True(t, stored.Paid)
		assert.NotEqual(t, ticket.Pdf, stored.Pdf)
		assert.Contains(t, f.storage.Files, stored.Pdf)
		assert.Contains(t, f.storage.Deleted, ticket.Pdf)
	}
	assert.Equal(t, true, f.pdf.Rendered[len(f.pdf.Rendered)-1]["paid"])
}

func TestPayForTickets_by_admin_addresses_owners(t *testing.T) {
	f := newFixture(t, []entities.Event{concert(1, 2)}, seat(1, 1, 1), seat(2, 1, 2))
	ctx := context.Background()

	first, err := f.orchestrator.CreateTicket(ctx, ticketRequest(1), owner)
	require.NoError(t, err)
	second, err := f.orchestrator.CreateTicket(ctx, ticketRequest(1), other)
	require.NoError(t, err)

	_, err = f.orchestrator.PayForTickets(ctx, []int64{first.ID, second.ID}, admin)
	require.NoError(t, err)

	recipients := lo.Map(f.publisher.emails[2:], func(email entities.TicketEmail, _ int) string { return email.To })
	assert.ElementsMatch(t, []string{owner.Email, other.Email}, recipients)
	assert.NotContains(t, recipients, admin.Email)
}

func TestPayForTickets_persist_failure_keeps_stored_document(t *testing.T) {
	f := newFixture(t, []entities.Event{concert(1, 2)}, seat(1, 1, 1))
	ctx := context.Background()

	ticket, err := f.orchestrator.CreateTicket(ctx, ticketRequest(1), owner)
	require.NoError(t, err)

	f.repo.UpdateErr = errors.New("connection reset")
	_, err = f.orchestrator.PayForTickets(ctx, []int64{ticket.ID}, owner)
	require.Error(t, err)

	stored := f.repo.Tickets[ticket.ID]
	assert.False(t, stored.Paid)
	assert.Equal(t, ticket.Pdf, stored.Pdf)
	assert.Contains(t, f.storage.Files, stored.Pdf)
	assert.Len(t, f.storage.Files, 1)
}

func TestPayForTickets_rejects_whole_batch_with_expired_ticket(t *testing.T) {
	f := newFixture(t, []entities.Event{concert(1, 2)}, seat(1, 1, 1), seat(2, 1, 2))
	ctx := context.Background()

	old, err := f.orchestrator.CreateTicket(ctx, ticketRequest(1), owner)
	require.NoError(t, err)
	f.clock.Advance(11 * time.Minute)
	fresh, err := f.orchestrator.CreateTicket(ctx, ticketRequest(1), owner)
	require.NoError(t, err)

	files := len(f.storage.Files)

	_, err = f.orchestrator.PayForTickets(ctx, []int64{fresh.ID, old.ID}, owner)
	require.Error(t, err)
	assert.True(t, entities.IsConflict(err))

	var appErr *entities.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "some tickets with provided ids are expired", appErr.Description)

	assert.False(t, f.repo.Tickets[old.ID].Paid)
	assert.False(t, f.repo.Tickets[fresh.ID].Paid)
	assert.Len(t, f.storage.Files, files)
}

func TestPayForTickets_invalid_input(t *testing.T) {
	f := newFixture(t, []entities.Event{concert(1, 2)}, seat(1, 1, 1))
	ctx := context.Background()

	ticket, err := f.orchestrator.CreateTicket(ctx, ticketRequest(1), owner)
	require.NoError(t, err)

	_, err = f.orchestrator.PayForTickets(ctx, nil, owner)
	assert.Equal(t, entities.KindValidation, entities.KindOf(err))

	_, err = f.orchestrator.PayForTickets(ctx, []int64{ticket.ID, 404}, owner)
	assert.True(t, entities.IsNotFound(err))

	_, err = f.orchestrator.PayForTickets(ctx, []int64{ticket.ID}, other)
	assert.Equal(t, entities.KindValidation, entities.KindOf(err))

	assert.False(t, f.repo.Tickets[ticket.ID].Paid)
}

func TestPayForTickets_document_failure_discards_issued_documents(t *testing.T) {
	f := newFixture(t, []entities.Event{concert(1, 2)}, seat(1, 1, 1), seat(2, 1, 2))
	ctx := context.Background()

	first, err := f.orchestrator.CreateTicket(ctx, ticketRequest(1), owner)
	require.NoError(t, err)

	f.storage.UploadErr = entities.NewDownstreamError("POST", "file", "x", "storage service is unavailable", nil)
	_, err = f.orchestrator.PayForTickets(ctx, []int64{first.ID}, owner)
	require.Error(t, err)
	assert.Equal(t, entities.KindDownstream, entities.KindOf(err))

	stored := f.repo.Tickets[first.ID]
	assert.False(t, stored.Paid)
	assert.Equal(t, first.Pdf, stored.Pdf)
	assert.Contains(t, f.storage.Files, first.Pdf)
}

func TestExpireTicket_boundary(t *testing.T) {
	f := newFixture(t, []entities.Event{concert(1, 1)}, seat(1, 1, 1))
	ctx := context.Background()
	window := f.orchestrator.PaymentWindow()

	ticket, err := f.orchestrator.CreateTicket(ctx, ticketRequest(1), owner)
	require.NoError(t, err)

	f.clock.Advance(9*time.Minute + 59*time.Second)
	err = f.orchestrator.ExpireTicket(ctx, ticket.ID, f.clock.Now().Add(-window))
	assert.True(t, entities.IsNotFound(err))
	assert.Contains(t, f.repo.Tickets, ticket.ID)

	f.clock.Advance(2 * time.Second)
	require.NoError(t, f.orchestrator.ExpireTicket(ctx, ticket.ID, f.clock.Now().Add(-window)))

	assert.NotContains(t, f.repo.Tickets, ticket.ID)
	assert.False(t, f.seats.Seats[1].Occupied)
	assert.False(t, f.events.Events[1].IsSoldOut)
	// expiry has no caller to email, only the holder gets a notification
	assert.Len(t, f.publisher.emails, 1)
	assert.Len(t, f.publisher.notifications, 2)
}

func TestExpireTicket_skips_paid_ticket(t *testing.T) {
	f := newFixture(t, []entities.Event{concert(1, 1)}, seat(1, 1, 1))
	ctx := context.Background()

	ticket, err := f.orchestrator.CreateTicket(ctx, ticketRequest(1), owner)
	require.NoError(t, err)
	_, err = f.orchestrator.PayForTickets(ctx, []int64{ticket.ID}, owner)
	require.NoError(t, err)

	f.clock.Advance(time.Hour)
	err = f.orchestrator.ExpireTicket(ctx, ticket.ID, f.clock.Now().Add(-10*time.Minute))
	assert.True(t, entities.IsNotFound(err))
	assert.True(t, f.seats.Seats[1].Occupied)
}

func TestListTickets_scoping(t *testing.T) {
	f := newFixture(t, []entities.Event{concert(1, 3)}, seat(1, 1, 1), seat(2, 1, 2), seat(3, 1, 3))
	ctx := context.Background()

	_, err := f.orchestrator.CreateTicket(ctx, ticketRequest(1), owner)
	require.NoError(t, err)
	_, err = f.orchestrator.CreateTicket(ctx, ticketRequest(1), owner)
	require.NoError(t, err)
	_, err = f.orchestrator.CreateTicket(ctx, ticketRequest(1), other)
	require.NoError(t, err)

	someoneElse := other.ID
	page, err := f.orchestrator.ListTickets(ctx, entities.TicketFilter{UserID: &someoneElse}, entities.DefaultTicketSort, entities.PageRequest{}, owner)
	require.NoError(t, err)
	assert.Equal(t, 2, page.TotalElements)
	for _, ticket := range page.Content {
		assert.Equal(t, owner.ID, ticket.UserID)
	}

	_, err = f.orchestrator.ListTickets(ctx, entities.TicketFilter{}, entities.TicketSort{Field: "user_id", Direction: entities.SortAsc}, entities.PageRequest{}, owner)
	assert.Equal(t, entities.KindValidation, entities.KindOf(err))

	allowlisted := entities.User{ID: 99, Role: "USER", Email: adminEmail}
	page, err = f.orchestrator.ListTickets(ctx, entities.TicketFilter{}, entities.TicketSort{Field: "user_id", Direction: entities.SortAsc}, entities.PageRequest{Size: 2}, allowlisted)
	require.NoError(t, err)
	assert.Equal(t, 3, page.TotalElements)
	assert.Equal(t, 2, page.TotalPages)
	assert.Len(t, page.Content, 2)
}

func TestGetTicketField(t *testing.T) {
	f := newFixture(t, []entities.Event{concert(1, 1)}, seat(1, 1, 1))
	ctx := context.Background()

	ticket, err := f.orchestrator.CreateTicket(ctx, ticketRequest(1), owner)
	require.NoError(t, err)

	field, err := f.orchestrator.GetTicketField(ctx, ticket.ID, "pdf", owner)
	require.NoError(t, err)
	assert.Equal(t, entities.TicketField{ID: ticket.ID, Key: "pdf", Value: ticket.Pdf}, field)

	_, err = f.orchestrator.GetTicketField(ctx, ticket.ID, "password", owner)
	assert.Equal(t, entities.KindValidation, entities.KindOf(err))

	_, err = f.orchestrator.GetTicketField(ctx, ticket.ID, "pdf", other)
	assert.Equal(t, entities.KindValidation, entities.KindOf(err))
}
