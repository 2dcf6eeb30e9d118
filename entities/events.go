package entities

import (
	"time"

	"github.com/google/uuid"
)

const (
	NotificationTopic = "notification"
	EmailTopic        = "email"

	TicketEmailTemplate         = "ticketemail"
	TicketCanceledEmailTemplate = "ticketcanceled"
)

type EventHeader struct {
	ID          string    `json:"id"`
	PublishedAt time.Time `json:"published_at"`
}

func NewEventHeader(now time.Time) EventHeader {
	return EventHeader{
		ID:          uuid.NewString(),
		PublishedAt: now.UTC(),
	}
}

// IEvent is implemented by every message published on the event bus.
type IEvent interface {
	Topic() string
}

type TicketNotification struct {
	Header EventHeader `json:"header"`

	PhoneNumber string `json:"phone_number"`
	Firstname   string `json:"firstname"`
	Message     string `json:"message"`
}

func (TicketNotification) Topic() string {
	return NotificationTopic
}

type TicketEmail struct {
	Header EventHeader `json:"header"`

	To             string         `json:"to"`
	Subject        string         `json:"subject"`
	Template       string         `json:"template"`
	Data           map[string]any `json:"data"`
	Attachment     string         `json:"attachment,omitempty"`
	AttachmentName string         `json:"attachment_name,omitempty"`
	AttachmentType string         `json:"attachment_type,omitempty"`
}

func (TicketEmail) Topic() string {
	return EmailTopic
}
