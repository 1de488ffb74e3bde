package model

import "time"

type Teacher struct {
	ID        string    `json:"id" validate:"required"`
	Name      string    `json:"name" validate:"required"`
	LoginCode string    `json:"loginCode" validate:"required"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"createdAt"`
}

func (t Teacher) EntityID() string { return t.ID }

func (t Teacher) Validate() error {
	return ValidateStruct(t)
}
