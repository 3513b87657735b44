package dice_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/gtil/internal/game/dice"
)

func TestParseAmount_Fixed(t *testing.T) {
	a, err := dice.ParseAmount("12")
	require.NoError(t, err)
	assert.True(t, a.Fixed())
	assert.Equal(t, 12, a.Roll(dice.NewSeededSource(1)))
}

func TestParseAmount_Expression(t *testing.T) {
	a, err := dice.ParseAmount("2d6+3")
	require.NoError(t, err)
	assert.Equal(t, 2, a.Count)
	assert.Equal(t, 6, a.Sides)
	assert.Equal(t, 3, a.Modifier)
}

func TestParseAmount_Invalid(t *testing.T) {
	for _, s := range []string{"", "abc", "0d6", "2d1", "-3", "2d6+x"} {
		_, err := dice.ParseAmount(s)
		assert.Error(t, err, s)
	}
}

func TestSeededSource_Deterministic(t *testing.T) {
	a, b := dice.NewSeededSource(42), dice.NewSeededSource(42)
	for i := 0; i < 20; i++ {
		assert.Equal(t, a.Intn(100), b.Intn(100))
		assert.Equal(t, a.Float64(), b.Float64())
	}
}

func TestCryptoSource_IntnPanicsOnZero(t *testing.T) {
	assert.Panics(t, func() { dice.NewCryptoSource().Intn(0) })
}

func TestProperty_AmountRollInRange(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		count := rapid.IntRange(1, 5).Draw(rt, "count")
		sides := rapid.IntRange(2, 20).Draw(rt, "sides")
		mod := rapid.IntRange(-3, 10).Draw(rt, "mod")
		a := dice.Amount{Count: count, Sides: sides, Modifier: mod}
		got := a.Roll(dice.NewSeededSource(rapid.Uint64().Draw(rt, "seed")))
		lo, hi := count+mod, count*sides+mod
		if lo < 0 {
			lo = 0
		}
		if got < lo || got > hi {
			rt.Fatalf("roll %d outside [%d, %d]", got, lo, hi)
		}
	})
}

func TestProperty_BetweenInclusive(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		lo := rapid.IntRange(-50, 50).Draw(rt, "lo")
		hi := lo + rapid.IntRange(0, 50).Draw(rt, "span")
		v := dice.Between(dice.NewCryptoSource(), lo, hi)
		if v < lo || v > hi {
			rt.Fatalf("%d outside [%d, %d]", v, lo, hi)
		}
	})
}
