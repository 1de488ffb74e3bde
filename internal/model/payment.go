package model

import "time"

// Payment is immutable once recorded.
type Payment struct {
	ID         string    `json:"id" validate:"required"`
	Amount     float64   `json:"amount" validate:"gt=0"`
	Date       time.Time `json:"date"`
	Title      string    `json:"title" validate:"required"`
	RecordedBy string    `json:"recordedBy"`
}

type Badge struct {
	ID        string    `json:"id" validate:"required"`
	Title     string    `json:"title" validate:"required"`
	Date      time.Time `json:"date"`
	AwardedBy string    `json:"awardedBy"`
}

// FeeReminder marks a student whose parents have been reminded of fees.
type FeeReminder struct {
	Note      string    `json:"note"`
	CreatedAt time.Time `json:"createdAt"`
}

// NextPlan is the upcoming jadeed and murajaah shown to parents.
type NextPlan struct {
	Jadeed    *QuranAssignment `json:"jadeed"`
	Murajaah  *QuranAssignment `json:"murajaah"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

func (p NextPlan) Validate() error {
	if p.Jadeed == nil && p.Murajaah == nil {
		return NewValidationError("invalid next plan", FieldError{Field: "jadeed", Error: "jadeed or murajaah is required"})
	}
	var errs []error
	if p.Jadeed != nil {
		if err := p.Jadeed.Validate(); err != nil {
			errs = append(errs, prefixFields(err, "jadeed"))
		}
	}
	if p.Murajaah != nil {
		if err := p.Murajaah.Validate(); err != nil {
			errs = append(errs, prefixFields(err, "murajaah"))
		}
	}
	return mergeValidation(errs...)
}

func (p NextPlan) Clone() NextPlan {
	if p.Jadeed != nil {
		j := p.Jadeed.Clone()
		p.Jadeed = &j
	}
	if p.Murajaah != nil {
		m := p.Murajaah.Clone()
		p.Murajaah = &m
	}
	return p
}
