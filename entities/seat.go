package entities

type Seat struct {
	ID       int64  `json:"id" db:"id"`
	EventID  int64  `json:"event_id" db:"event_id"`
	Sector   string `json:"sector" db:"sector"`
	Row      int    `json:"row" db:"row"`
	Number   int    `json:"number" db:"number"`
	Occupied bool   `json:"occupied" db:"occupied"`
	Holder   string `json:"holder,omitempty" db:"holder"`
}

// SeatUpdate is the body of PUT /seat/update. Reserve with EventID claims any
// free seat of the event; ID with Occupied occupies or releases one seat.
// EventID with Occupied false releases every seat of the event held by
// Holder.
type SeatUpdate struct {
	ID       *int64 `json:"id,omitempty"`
	EventID  *int64 `json:"event_id,omitempty"`
	Reserve  bool   `json:"reserve,omitempty"`
	Occupied *bool  `json:"occupied,omitempty"`
	Holder   string `json:"holder,omitempty"`
}

type SeatCreate struct {
	EventID int64  `json:"event_id" validate:"required,gt=0"`
	Sector  string `json:"sector" validate:"required"`
	Row     int    `json:"row" validate:"gte=0"`
	Number  int    `json:"number" validate:"gte=0"`
}
