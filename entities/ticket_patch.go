package entities

import (
	"encoding/json"
	"slices"

	"github.com/samber/lo"
)

// TicketPatch lists every field a ticket update may touch. Nil means
// "leave as is".
type TicketPatch struct {
	Firstname   *string
	Lastname    *string
	PhoneNumber *string
	IsAdult     *bool
	IsStudent   *bool
	SeatID      *int64
}

type patchDecoder func(p *TicketPatch, raw json.RawMessage) error

var updatableTicketFields = map[string]patchDecoder{
	"firstname":    func(p *TicketPatch, raw json.RawMessage) error { return decodeNonNull(raw, &p.Firstname) },
	"lastname":     func(p *TicketPatch, raw json.RawMessage) error { return decodeNonNull(raw, &p.Lastname) },
	"phone_number": func(p *TicketPatch, raw json.RawMessage) error { return decodeNonNull(raw, &p.PhoneNumber) },
	"is_adult":     func(p *TicketPatch, raw json.RawMessage) error { return decodeNonNull(raw, &p.IsAdult) },
	"is_student":   func(p *TicketPatch, raw json.RawMessage) error { return decodeNonNull(raw, &p.IsStudent) },
	"seat_id":      func(p *TicketPatch, raw json.RawMessage) error { return decodeNonNull(raw, &p.SeatID) },
}

var immutableTicketFields = []string{"code", "created_at", "cost", "event_id", "user_id"}

// ParseTicketPatch reads the body of PUT /ticket/update. Keys are checked in
// sorted order so the same body always yields the same error.
func ParseTicketPatch(body map[string]json.RawMessage) (int64, TicketPatch, error) {
	const method = "PUT"

	var patch TicketPatch

	rawID, ok := body["id"]
	if !ok {
		return 0, patch, NewValidationError(method, "id", "", "can not be null or has different type than Number")
	}
	var id int64
	if err := json.Unmarshal(rawID, &id); err != nil || id <= 0 {
		return 0, patch, NewValidationError(method, "id", string(rawID), "can not be null or has different type than Number")
	}

	keys := lo.Keys(body)
	slices.Sort(keys)

	for _, key := range keys {
		if key == "id" {
			continue
		}
		if slices.Contains(immutableTicketFields, key) {
			return 0, patch, NewValidationError(method, key, string(body[key]), "field can not be updated")
		}
		decode, ok := updatableTicketFields[key]
		if !ok {
			return 0, patch, NewValidationError(method, key, string(body[key]), "unknown field")
		}
		if err := decode(&patch, body[key]); err != nil {
			return 0, patch, NewValidationError(method, key, string(body[key]), "invalid value").WithCause(err)
		}
	}

	return id, patch, nil
}

type errNullValue struct{}

func (errNullValue) Error() string { return "value can not be null" }

func decodeNonNull[T any](raw json.RawMessage, dst **T) error {
	if string(raw) == "null" {
		return errNullValue{}
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	*dst = &v
	return nil
}

// Apply returns the patched ticket together with the names of the fields that
// actually changed. Cost is left untouched, callers reprice when pricing
// fields change.
func (p TicketPatch) Apply(t Ticket) (Ticket, []string) {
	var changed []string

	if p.Firstname != nil && *p.Firstname != t.Firstname {
		t.Firstname = *p.Firstname
		changed = append(changed, "firstname")
	}
	if p.Lastname != nil && *p.Lastname != t.Lastname {
		t.Lastname = *p.Lastname
		changed = append(changed, "lastname")
	}
	if p.PhoneNumber != nil && *p.PhoneNumber != t.PhoneNumber {
		t.PhoneNumber = *p.PhoneNumber
		changed = append(changed, "phone_number")
	}
	if p.IsAdult != nil && *p.IsAdult != t.IsAdult {
		t.IsAdult = *p.IsAdult
		changed = append(changed, "is_adult")
	}
	if p.IsStudent != nil && *p.IsStudent != t.IsStudent {
		t.IsStudent = *p.IsStudent
		changed = append(changed, "is_student")
	}
	if normalized := NormalizeStudent(t.IsAdult, t.IsStudent); normalized != t.IsStudent {
		t.IsStudent = normalized
		if !slices.Contains(changed, "is_student") {
			changed = append(changed, "is_student")
		}
	}
	if p.SeatID != nil && (t.SeatID == nil || *p.SeatID != *t.SeatID) {
		seatID := *p.SeatID
		t.SeatID = &seatID
		changed = append(changed, "seat_id")
	}

	return t, changed
}

func PricingChanged(changed []string) bool {
	return slices.Contains(changed, "is_adult") || slices.Contains(changed, "is_student")
}
