package models

import (
	"fmt"
	"strings"
)

// Rating is the learner's self-assessment of one recall attempt.
type Rating string

const (
	RatingAgain Rating = "again" // Forgotten
	RatingHard  Rating = "hard"  // Recalled with serious difficulty
	RatingGood  Rating = "good"  // Recalled after some hesitation
	RatingEasy  Rating = "easy"  // Recalled effortlessly
)

// Ratings lists every rating in display order.
var Ratings = []Rating{RatingAgain, RatingHard, RatingGood, RatingEasy}

// IsValid reports whether r is one of again, hard, good or easy.
func (r Rating) IsValid() bool {
	switch r {
	case RatingAgain, RatingHard, RatingGood, RatingEasy:
		return true
	}
	return false
}

// ParseRating converts client input into a Rating, ignoring case and surrounding space.
func ParseRating(s string) (Rating, error) {
	r := Rating(strings.ToLower(strings.TrimSpace(s)))
	if !r.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidRating, s)
	}
	return r, nil
}
