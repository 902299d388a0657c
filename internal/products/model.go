package products

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("product not found")

const (
	EventsQueue  = "products.events"
	EventCreated = "product_created"
	EventUpdated = "product_updated"
	EventDeleted = "product_deleted"
)

// DateLayout is the wire format of product dates in forms and query strings.
const DateLayout = "2006-01-02"

type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

func (s Status) Valid() bool {
	return s == StatusActive || s == StatusInactive
}

type Product struct {
	ID          string    `json:"id" example:"7f1c2b9e-3f0a-4c1e-9d8e-2a6b5c4d3e21"`
	Title       string    `json:"title" example:"Fountain pen"`
	Description string    `json:"description" example:"Steel nib, blue ink"`
	Status      Status    `json:"status" example:"active" enums:"active,inactive"`
	Date        time.Time `json:"date" example:"2024-01-01T00:00:00Z"`
	ImageURL    string    `json:"imageUrl" example:"/images/0b4e7c8a-pen.png"`
}

// Fields is a validated set of writable product fields. A nil ImageURL means
// "no new image": create stores an empty URL, update keeps the stored one.
type Fields struct {
	Title       string
	Description string
	Status      Status
	Date        time.Time
	ImageURL    *string
}

// Filter narrows ListProducts. Zero values mean "no constraint"; date bounds
// are inclusive.
type Filter struct {
	Status    Status
	StartDate time.Time
	EndDate   time.Time
}

// Image is an uploaded image payload.
type Image struct {
	Name        string
	ContentType string
	Data        []byte
}

type ProductEvent struct {
	EventType string    `json:"event_type"`
	ProductID string    `json:"product_id"`
	Title     string    `json:"title,omitempty"`
	Status    Status    `json:"status,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
