package tickets

import (
	"context"

	"github.com/eve-ticketing/tickets/api"
	"github.com/eve-ticketing/tickets/entities"
)

const (
	documentEntity      = "ticket"
	documentField       = "pdf"
	documentContentType = "application/pdf"
)

type PdfService interface {
	Create(ctx context.Context, template string, data map[string]any) ([]byte, error)
}

type StorageService interface {
	Upload(ctx context.Context, upload api.Upload) (entities.Document, error)
	Delete(ctx context.Context, link string) error
}

// DocumentIssuer renders ticket documents and stores them. A stored document
// is only referenced once the ticket row points at it, until then it can be
// discarded.
type DocumentIssuer struct {
	pdf     PdfService
	storage StorageService
}

func NewDocumentIssuer(pdf PdfService, storage StorageService) DocumentIssuer {
	if pdf == nil {
		panic("missing pdf service")
	}
	if storage == nil {
		panic("missing storage service")
	}
	return DocumentIssuer{pdf: pdf, storage: storage}
}

func (d DocumentIssuer) Issue(
	ctx context.Context,
	ticket entities.Ticket,
	event entities.Event,
	seat *entities.Seat,
	user entities.User,
) (entities.Document, error) {
	content, err := d.pdf.Create(ctx, api.TicketPdfTemplate, documentData(ticket, event, seat, user))
	if err != nil {
		return entities.Document{}, err
	}

	// the previous document is deleted by the caller once the new link is
	// stored, so storage must not replace it on its own
	return d.storage.Upload(ctx, api.Upload{
		Entity:      documentEntity,
		Field:       documentField,
		ContentType: documentContentType,
		Filename:    ticket.DocumentFilename(),
		Content:     content,
	})
}

func (d DocumentIssuer) Discard(ctx context.Context, link string) error {
	if link == "" {
		return nil
	}
	return d.storage.Delete(ctx, link)
}

func documentData(ticket entities.Ticket, event entities.Event, seat *entities.Seat, user entities.User) map[string]any {
	data := map[string]any{
		"email":           user.Email,
		"userFirstname":   user.Firstname,
		"userLastname":    user.Lastname,
		"userPhoneNumber": user.PhoneNumber,
		"event":           event,
		"code":            ticket.Code,
		"firstname":       ticket.Firstname,
		"lastname":        ticket.Lastname,
		"phoneNumber":     ticket.PhoneNumber,
		"adult":           ticket.IsAdult,
		"student":         ticket.IsStudent,
		"paid":            ticket.Paid,
		"cost":            ticket.Cost.StringFixed(2),
	}
	if seat != nil {
		data["sector"] = seat.Sector
		data["row"] = seat.Row
		data["number"] = seat.Number
	}
	return data
}
