package tickets

import (
	"context"
	"fmt"

	"github.com/eve-ticketing/tickets/entities"
)

const notificationTimeLayout = "2006-01-02 15:04"

type notificationKind int

const (
	ticketReserved notificationKind = iota
	ticketUpdated
	ticketCanceled
	ticketPaid
)

func notificationMessage(kind notificationKind, ticket entities.Ticket, eventName string) string {
	var body string
	switch kind {
	case ticketReserved:
		body = fmt.Sprintf("You have reserved on the %s a ticket with code %q for %s.",
			ticket.CreatedAt.Format(notificationTimeLayout), ticket.Code, eventName)
	case ticketUpdated:
		body = fmt.Sprintf("You have updated a ticket with code %q for %s. Please, see the details on our page.",
			ticket.Code, eventName)
	case ticketCanceled:
		body = fmt.Sprintf("Your ticket with code %q for %s was canceled. Please, see the details on our page.",
			ticket.Code, eventName)
	case ticketPaid:
		body = fmt.Sprintf("Your ticket with code %q for %s is paid.", ticket.Code, eventName)
	}

	return fmt.Sprintf("Hi %s.\n%s\nSee you soon,\nEve ticketing system", ticket.Firstname, body)
}

func (o *Orchestrator) notify(ctx context.Context, kind notificationKind, ticket entities.Ticket, eventName string) {
	o.notifications.PublishNotification(ctx, entities.TicketNotification{
		Header:      entities.NewEventHeader(o.clock.Now()),
		PhoneNumber: ticket.PhoneNumber,
		Firstname:   ticket.Firstname,
		Message:     notificationMessage(kind, ticket, eventName),
	})
}

// email sends the ticket document link to the user. Canceled tickets get the
// cancellation template and no attachment.
func (o *Orchestrator) email(
	ctx context.Context,
	template string,
	ticket entities.Ticket,
	event entities.Event,
	seat *entities.Seat,
	user entities.User,
) {
	if user.Email == "" {
		return
	}

	email := entities.TicketEmail{
		Header:   entities.NewEventHeader(o.clock.Now()),
		To:       user.Email,
		Subject:  ticket.DocumentFilename(),
		Template: template,
		Data:     documentData(ticket, event, seat, user),
	}
	if template != entities.TicketCanceledEmailTemplate && ticket.Pdf != "" {
		email.Attachment = ticket.Pdf
		email.AttachmentName = ticket.DocumentFilename()
		email.AttachmentType = documentContentType
	}

	o.emails.PublishEmail(ctx, email)
}
