package dice

import (
	"fmt"
	"strconv"
	"strings"
)

// Amount is a quantity that is either fixed ("12") or rolled ("2d6+6").
// Loot tables use it for ammo counts.
type Amount struct {
	Raw      string
	Count    int
	Sides    int
	Modifier int
}

// ParseAmount parses a fixed integer or an NdS[+-M] expression.
//
// Postcondition: Returns an Amount whose Roll is never negative, or an error.
func ParseAmount(s string) (Amount, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return Amount{}, fmt.Errorf("dice: empty amount")
	}
	if n, err := strconv.Atoi(raw); err == nil {
		if n < 0 {
			return Amount{}, fmt.Errorf("dice: amount %q must not be negative", raw)
		}
		return Amount{Raw: raw, Modifier: n}, nil
	}

	lower := strings.ToLower(raw)
	dIdx := strings.Index(lower, "d")
	if dIdx < 0 {
		return Amount{}, fmt.Errorf("dice: invalid amount %q", raw)
	}
	count := 1
	if dIdx > 0 {
		c, err := strconv.Atoi(lower[:dIdx])
		if err != nil || c < 1 {
			return Amount{}, fmt.Errorf("dice: invalid die count in %q", raw)
		}
		count = c
	}

	rest := lower[dIdx+1:]
	mod := 0
	if i := strings.IndexAny(rest, "+-"); i >= 0 {
		m, err := strconv.Atoi(rest[i:])
		if err != nil {
			return Amount{}, fmt.Errorf("dice: invalid modifier in %q: %w", raw, err)
		}
		mod = m
		rest = rest[:i]
	}
	sides, err := strconv.Atoi(rest)
	if err != nil || sides < 2 {
		return Amount{}, fmt.Errorf("dice: invalid die sides in %q", raw)
	}
	return Amount{Raw: raw, Count: count, Sides: sides, Modifier: mod}, nil
}

// Fixed reports whether the amount involves no dice.
func (a Amount) Fixed() bool { return a.Count == 0 }

// Roll evaluates the amount.
//
// Postcondition: Returns a value >= 0.
func (a Amount) Roll(src Source) int {
	total := a.Modifier
	for i := 0; i < a.Count; i++ {
		total += src.Intn(a.Sides) + 1
	}
	if total < 0 {
		return 0
	}
	return total
}

func (a Amount) String() string { return a.Raw }
