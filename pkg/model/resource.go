package model

import "time"

// Resource is a rentable unit (an apartment). Only the fields the
// availability engine needs live here; listing content is owned elsewhere.
type Resource struct {
	ID        string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	Name      string    `json:"name" bson:"name" validate:"required,min=2,max=150"`
	City      string    `json:"city,omitempty" bson:"city,omitempty" validate:"omitempty,max=100"`
	CreatedAt time.Time `json:"created_at" bson:"created_at" validate:"omitempty"`
}
