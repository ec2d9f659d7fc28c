package models

import (
	"encoding/json"
	"strings"
)

// OpenBoardRequest opens a board for a symbol.
type OpenBoardRequest struct {
	Symbol string `json:"symbol" validate:"required,max=20"`
}

// BoardRequest addresses an existing board.
type BoardRequest struct {
	ID string `param:"id" validate:"required,uuid"`
}

// ComparisonRequest reads a board's scoreboard. No winner is named while
// fewer than MinSamples entries have been scored.
type ComparisonRequest struct {
	ID         string `param:"id" validate:"required,uuid"`
	MinSamples int    `query:"min_samples" default:"2" validate:"gte=1"`
}

type ChangeSymbolRequest struct {
	ID     string `param:"id" validate:"required,uuid"`
	Symbol string `json:"symbol" validate:"required,max=20"`
}

// EditSlotRequest sets one field of one slot. Value may be a JSON string or
// number; empty or null clears the field.
type EditSlotRequest struct {
	ID    string    `param:"id" validate:"required,uuid"`
	Index int       `param:"index" validate:"required,min=1"`
	Field string    `json:"field" validate:"required,oneof=open high low close"`
	Value FormValue `json:"value"`
}

type SlotRequest struct {
	ID    string `param:"id" validate:"required,uuid"`
	Index int    `param:"index" validate:"required,min=1"`
}

// FormValue is a price as typed into the form.
type FormValue string

func (v *FormValue) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	switch {
	case raw == "null":
		*v = ""
		return nil
	case strings.HasPrefix(raw, `"`):
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*v = FormValue(strings.TrimSpace(s))
		return nil
	default:
		*v = FormValue(raw)
		return nil
	}
}
