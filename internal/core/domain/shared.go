package domain

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ID string

// ValidateID accepts both identifier formats produced by the stores:
// 24-char hex object ids (mongo) and UUIDs (sql).
func ValidateID(id string) bool {
	if len(id) == 24 {
		_, err := hex.DecodeString(id)
		return err == nil
	}
	if len(id) == 36 {
		_, err := uuid.Parse(id)
		return err == nil
	}
	return false
}

const amountScale = 2

var ErrAmountPrecision = errors.New("amount supports at most 2 decimal places")

// Amount is a fixed-point monetary value with two fractional digits.
type Amount struct {
	value decimal.Decimal
}

func NewAmountFromCents(cents int64) Amount {
	return Amount{value: decimal.New(cents, -amountScale)}
}

func NewAmountFromDecimal(d decimal.Decimal) Amount {
	return Amount{value: d}
}

func ParseAmount(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if !d.Equal(d.Round(amountScale)) {
		return Amount{}, ErrAmountPrecision
	}
	return Amount{value: d}, nil
}

func (a Amount) Add(b Amount) Amount {
	return Amount{value: a.value.Add(b.value)}
}

func (a Amount) Multiply(b int) Amount {
	return Amount{value: a.value.Mul(decimal.NewFromInt(int64(b)))}
}

func (a Amount) Equal(b Amount) bool {
	return a.value.Equal(b.value)
}

func (a Amount) IsPositive() bool {
	return a.value.IsPositive()
}

func (a Amount) IsZero() bool {
	return a.value.IsZero()
}

func (a Amount) Decimal() decimal.Decimal {
	return a.value
}

func (a Amount) String() string {
	return a.value.StringFixed(amountScale)
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON accepts both "12.50" and 12.50.
func (a *Amount) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("invalid amount: %s", data)
		}
		s = n.String()
	}
	parsed, err := ParseAmount(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

type Event interface {
	GetName() string
	GetEntityName() string
	GetEntityID() ID
}
