package entities

type Document struct {
	Filename string `json:"filename"`
	Link     string `json:"link"`
}

func (d Document) IsZero() bool {
	return d.Link == ""
}
