package forecast

import (
	"fmt"
	"math"

	"FinRisk/internal/domain/models"
)

// Field names one of the four price fields of a candle.
type Field string

const (
	FieldOpen  Field = "open"
	FieldHigh  Field = "high"
	FieldLow   Field = "low"
	FieldClose Field = "close"
)

// Fields lists candle fields in display order.
var Fields = []Field{FieldOpen, FieldHigh, FieldLow, FieldClose}

// ParseField converts a raw field name.
func ParseField(s string) (Field, error) {
	switch f := Field(s); f {
	case FieldOpen, FieldHigh, FieldLow, FieldClose:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownField, s)
	}
}

// Draft is a possibly partial candle as entered by a user. Nil means unset.
type Draft struct {
	Open  *float64 `json:"open"`
	High  *float64 `json:"high"`
	Low   *float64 `json:"low"`
	Close *float64 `json:"close"`
}

// DraftOf builds a complete draft from an OHLC value.
func DraftOf(c models.OHLC) Draft {
	return Draft{Open: models.Float(c.Open), High: models.Float(c.High), Low: models.Float(c.Low), Close: models.Float(c.Close)}
}

// Get returns the value of field f.
func (d Draft) Get(f Field) *float64 {
	switch f {
	case FieldOpen:
		return d.Open
	case FieldHigh:
		return d.High
	case FieldLow:
		return d.Low
	case FieldClose:
		return d.Close
	}
	return nil
}

// With returns a copy of d with field f set to v. The pointer is not retained.
func (d Draft) With(f Field, v *float64) Draft {
	if v != nil {
		v = models.Float(*v)
	}
	switch f {
	case FieldOpen:
		d.Open = v
	case FieldHigh:
		d.High = v
	case FieldLow:
		d.Low = v
	case FieldClose:
		d.Close = v
	}
	return d
}

// Complete returns the OHLC value if all four fields are set and finite.
func (d Draft) Complete() (models.OHLC, bool) {
	for _, f := range Fields {
		v := d.Get(f)
		if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
			return models.OHLC{}, false
		}
	}
	return models.OHLC{Open: *d.Open, High: *d.High, Low: *d.Low, Close: *d.Close}, true
}

// Validate checks price consistency of a candle. Equality is allowed and no
// tolerance is applied.
func Validate(d Draft) error {
	for _, f := range Fields {
		v := d.Get(f)
		if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
			return &ValidationError{Field: f, Err: ErrIncomplete}
		}
	}
	c, _ := d.Complete()
	switch {
	case c.High < c.Open || c.High < c.Close:
		return &ValidationError{Field: FieldHigh, Err: ErrInconsistentBounds}
	case c.Low > c.Open || c.Low > c.Close:
		return &ValidationError{Field: FieldLow, Err: ErrInconsistentBounds}
	}
	return nil
}

// ValidateOHLC validates a complete candle.
func ValidateOHLC(c models.OHLC) error { return Validate(DraftOf(c)) }
