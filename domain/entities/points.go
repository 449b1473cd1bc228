package entities

import "fmt"

// Points is a non-negative quantity of community points. All wager, pot,
// payout and balance math is done in integer points so rounding behavior
// stays exact.
type Points int64

// NewPoints validates and constructs a Points value.
func NewPoints(v int64) (Points, error) {
	if v < 0 {
		return 0, fmt.Errorf("points cannot be negative: %d", v)
	}
	return Points(v), nil
}

// MustPoints constructs a Points value and panics on a negative input.
// Intended for constants and tests.
func MustPoints(v int64) Points {
	p, err := NewPoints(v)
	if err != nil {
		panic(err)
	}
	return p
}

// Int64 returns the raw integer value.
func (p Points) Int64() int64 {
	return int64(p)
}

// Add returns p + o.
func (p Points) Add(o Points) Points {
	return p + o
}

// Sub returns p - o, or an error if the result would be negative.
func (p Points) Sub(o Points) (Points, error) {
	if o > p {
		return 0, fmt.Errorf("points underflow: %d - %d", p, o)
	}
	return p - o, nil
}

// SubFloor returns p - o floored at zero.
func (p Points) SubFloor(o Points) Points {
	if o > p {
		return 0
	}
	return p - o
}

// IsZero reports whether the value is zero.
func (p Points) IsZero() bool {
	return p == 0
}

func (p Points) String() string {
	return fmt.Sprintf("%d", int64(p))
}
