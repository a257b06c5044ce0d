package rating

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpectedScoreSymmetry(t *testing.T) {
	pairs := [][2]int{{1000, 1000}, {1200, 800}, {0, 3000}, {1500, 1499}}
	for _, p := range pairs {
		sum := ExpectedScore(p[0], p[1]) + ExpectedScore(p[1], p[0])
		assert.InDelta(t, 1.0, sum, 1e-9)
	}
}

func TestExpectedScoreEqualRatings(t *testing.T) {
	assert.InDelta(t, 0.5, ExpectedScore(1200, 1200), 1e-9)
}

func TestDrawBetweenEqualRatings(t *testing.T) {
	calc := NewCalculator(DefaultConfig())

	d1, d2 := calc.Delta(1000, 1000, OutcomeDraw)
	assert.Equal(t, 0, d1)
	assert.Equal(t, 0, d2)
}

func TestUnderdogWinExceedsFavoriteWin(t *testing.T) {
	calc := NewCalculator(DefaultConfig())

	// Underdog (1000) beats favorite (1400).
	underdogGain, _ := calc.Delta(1000, 1400, OutcomeWin)
	// Favorite (1400) beats underdog (1000).
	favoriteGain, _ := calc.Delta(1400, 1000, OutcomeWin)

	assert.Greater(t, underdogGain, favoriteGain)
	assert.Positive(t, favoriteGain)
}

func TestLossNeverDropsBelowFloor(t *testing.T) {
	calc := NewCalculator(Config{KFactor: 32, MinRating: 0})

	// Second party at 5 loses to a far stronger first party.
	res := calc.Apply(2000, 5, OutcomeWin)
	assert.GreaterOrEqual(t, res.RatingSecond, 0)
	assert.Equal(t, 5+res.DeltaSecond, res.RatingSecond)

	// First party floored as well when applying a heavy loss.
	res = calc.Apply(3, 2000, OutcomeLoss)
	assert.GreaterOrEqual(t, res.RatingFirst, 0)
}

func TestApplyComposesDeltas(t *testing.T) {
	calc := NewCalculator(DefaultConfig())

	res := calc.Apply(1200, 1000, OutcomeWin)
	assert.Equal(t, 1200+res.DeltaFirst, res.RatingFirst)
	assert.Equal(t, 1000+res.DeltaSecond, res.RatingSecond)
	assert.Positive(t, res.DeltaFirst)
	assert.Negative(t, res.DeltaSecond)
}

func TestWinAndLossAreComplementary(t *testing.T) {
	calc := NewCalculator(DefaultConfig())

	winFirst, lossSecond := calc.Delta(1100, 1300, OutcomeWin)
	lossFirst, winSecond := calc.Delta(1100, 1300, OutcomeLoss)

	// K and the symmetric expectation make the two perspectives mirror each
	// other when no clamp fires.
	assert.Equal(t, winFirst, -lossSecond)
	assert.Equal(t, lossFirst, -winSecond)
}
