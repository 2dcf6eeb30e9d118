package entities

// ReleaseSeat is sent when releasing a seat failed in place and has to be
// retried from the compensation queue. Without SeatID every seat of EventID
// held by Holder is released.
type ReleaseSeat struct {
	Header EventHeader `json:"header"`

	EventID int64  `json:"event_id,omitempty"`
	SeatID  int64  `json:"seat_id"`
	Holder  string `json:"holder"`
	Reason  string `json:"reason"`
}

// DiscardDocument removes an uploaded ticket document that is no longer
// referenced by any ticket.
type DiscardDocument struct {
	Header EventHeader `json:"header"`

	Link   string `json:"link"`
	Reason string `json:"reason"`
}
