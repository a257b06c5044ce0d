package rating

import "math"

// Outcome of a match from the first party's perspective.
type Outcome string

const (
	OutcomeWin  Outcome = "win"
	OutcomeLoss Outcome = "loss"
	OutcomeDraw Outcome = "draw"
)

// Config holds Elo settlement constants (defaults match production).
type Config struct {
	KFactor   int // default: 32
	MinRating int // rating floor, default: 0
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{KFactor: 32, MinRating: 0}
}

// Calculator converts two ratings and an outcome into rating deltas. Stateless
// and fully deterministic; an unknown outcome is a programming error and is
// treated as a draw.
type Calculator struct {
	config Config
}

// NewCalculator creates a calculator with the provided config.
func NewCalculator(config Config) *Calculator {
	if config.KFactor == 0 {
		config.KFactor = 32
	}
	return &Calculator{config: config}
}

// ExpectedScore returns the logistic win expectation for ratingA against
// ratingB. ExpectedScore(a,b) + ExpectedScore(b,a) == 1 for all inputs.
func ExpectedScore(ratingA, ratingB int) float64 {
	return 1.0 / (1.0 + math.Pow(10, float64(ratingB-ratingA)/400.0))
}

// Delta computes the signed rating deltas for both parties. outcome is from
// the first rating's perspective. The second party's delta is clamped so its
// rating never falls below the floor.
func (c *Calculator) Delta(ratingFirst, ratingSecond int, outcome Outcome) (deltaFirst, deltaSecond int) {
	actualFirst := actualScore(outcome)
	actualSecond := 1.0 - actualFirst

	k := float64(c.config.KFactor)
	deltaFirst = int(math.Round(k * (actualFirst - ExpectedScore(ratingFirst, ratingSecond))))
	deltaSecond = int(math.Round(k * (actualSecond - ExpectedScore(ratingSecond, ratingFirst))))

	if ratingSecond+deltaSecond < c.config.MinRating {
		deltaSecond = c.config.MinRating - ratingSecond
	}
	return deltaFirst, deltaSecond
}

// Result carries both post-change ratings and the deltas that produced them.
type Result struct {
	RatingFirst  int
	RatingSecond int
	DeltaFirst   int
	DeltaSecond  int
}

// Apply composes Delta and returns both new ratings, each floored.
func (c *Calculator) Apply(ratingFirst, ratingSecond int, outcome Outcome) Result {
	deltaFirst, deltaSecond := c.Delta(ratingFirst, ratingSecond, outcome)

	newFirst := ratingFirst + deltaFirst
	if newFirst < c.config.MinRating {
		newFirst = c.config.MinRating
	}
	newSecond := ratingSecond + deltaSecond
	if newSecond < c.config.MinRating {
		newSecond = c.config.MinRating
	}

	return Result{
		RatingFirst:  newFirst,
		RatingSecond: newSecond,
		DeltaFirst:   deltaFirst,
		DeltaSecond:  deltaSecond,
	}
}

func actualScore(outcome Outcome) float64 {
	switch outcome {
	case OutcomeWin:
		return 1.0
	case OutcomeLoss:
		return 0.0
	default:
		return 0.5
	}
}
