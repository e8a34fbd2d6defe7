package spaced_repetition

import (
	"fmt"
	"math"
	"time"

	"github.com/example/srsengine/pkg/models"
)

const day = 24 * time.Hour

// Params holds the tunable constants of the scheduler.
// Zero values are replaced by DefaultParams in NewSM2.
type Params struct {
	// Ladder for cards in LEARNING
	LearningSteps []time.Duration `yaml:"learning_steps"`
	// Shorter ladder for cards in RELEARNING
	RelearningSteps []time.Duration `yaml:"relearning_steps"`
	// Interval in days when a card graduates from LEARNING
	GraduatingInterval float64 `yaml:"graduating_interval"`
	// Interval in days for an "easy" answer outside REVIEW
	EasyInterval float64 `yaml:"easy_interval"`
	// Ease factor assigned to new cards and its bounds
	StartingEase float64 `yaml:"starting_ease"`
	MinEase      float64 `yaml:"min_ease"`
	MaxEase      float64 `yaml:"max_ease"`
	// Ease deltas per rating in REVIEW
	AgainEasePenalty float64 `yaml:"again_ease_penalty"`
	HardEasePenalty  float64 `yaml:"hard_ease_penalty"`
	EasyEaseBonus    float64 `yaml:"easy_ease_bonus"`
	// Interval multipliers in REVIEW
	HardMultiplier float64 `yaml:"hard_multiplier"`
	EasyBonus      float64 `yaml:"easy_bonus"`
	// Share of the pre-lapse interval kept when RELEARNING graduates
	LapseRetention float64 `yaml:"lapse_retention"`
	// Lower bound in days for the interval after RELEARNING graduates
	MinLapseInterval float64 `yaml:"min_lapse_interval"`
	// Upper bound for any interval, in days
	MaximumInterval float64 `yaml:"maximum_interval"`
}

// DefaultParams returns the default scheduler settings.
func DefaultParams() Params {
	return Params{
		LearningSteps:      []time.Duration{10 * time.Minute, day},
		RelearningSteps:    []time.Duration{10 * time.Minute},
		GraduatingInterval: 1,
		EasyInterval:       4,
		StartingEase:       models.DefaultEaseFactor,
		MinEase:            models.MinEaseFactor,
		MaxEase:            models.MaxEaseFactor,
		AgainEasePenalty:   0.20,
		HardEasePenalty:    0.15,
		EasyEaseBonus:      0.15,
		HardMultiplier:     1.2,
		EasyBonus:          1.3,
		LapseRetention:     0.5,
		MinLapseInterval:   1,
		MaximumInterval:    36500,
	}
}

// SM2 implements the SuperMemo-2 family scheduler with learning ladders.
// It is safe for concurrent use; all methods are pure.
type SM2 struct {
	params Params
}

// NewSM2 creates a scheduler from p, filling zero fields with defaults.
func NewSM2(p Params) (*SM2, error) {
	d := DefaultParams()
	if p.LearningSteps == nil {
		p.LearningSteps = d.LearningSteps
	}
	if p.RelearningSteps == nil {
		p.RelearningSteps = d.RelearningSteps
	}
	fill := func(v *float64, def float64) {
		if *v == 0 {
			*v = def
		}
	}
	fill(&p.GraduatingInterval, d.GraduatingInterval)
	fill(&p.EasyInterval, d.EasyInterval)
	fill(&p.StartingEase, d.StartingEase)
	fill(&p.MinEase, d.MinEase)
	fill(&p.MaxEase, d.MaxEase)
	fill(&p.AgainEasePenalty, d.AgainEasePenalty)
	fill(&p.HardEasePenalty, d.HardEasePenalty)
	fill(&p.EasyEaseBonus, d.EasyEaseBonus)
	fill(&p.HardMultiplier, d.HardMultiplier)
	fill(&p.EasyBonus, d.EasyBonus)
	fill(&p.LapseRetention, d.LapseRetention)
	fill(&p.MinLapseInterval, d.MinLapseInterval)
	fill(&p.MaximumInterval, d.MaximumInterval)

	if p.MinEase < models.MinEaseFactor || p.MaxEase > models.MaxEaseFactor || p.MinEase > p.MaxEase {
		return nil, fmt.Errorf("ease bounds [%v, %v] must lie within [%v, %v]",
			p.MinEase, p.MaxEase, models.MinEaseFactor, models.MaxEaseFactor)
	}
	if p.StartingEase < p.MinEase || p.StartingEase > p.MaxEase {
		return nil, fmt.Errorf("starting ease %v outside [%v, %v]", p.StartingEase, p.MinEase, p.MaxEase)
	}
	if p.MaximumInterval < p.EasyInterval || p.GraduatingInterval < 0 || p.EasyInterval < 0 {
		return nil, fmt.Errorf("invalid interval settings: graduating=%v easy=%v maximum=%v",
			p.GraduatingInterval, p.EasyInterval, p.MaximumInterval)
	}
	for _, steps := range [][]time.Duration{p.LearningSteps, p.RelearningSteps} {
		for _, s := range steps {
			if s <= 0 {
				return nil, fmt.Errorf("ladder step %v must be positive", s)
			}
		}
	}
	return &SM2{params: p}, nil
}

// Params returns a copy of the scheduler settings.
func (sm *SM2) Params() Params {
	p := sm.params
	p.LearningSteps = append([]time.Duration(nil), p.LearningSteps...)
	p.RelearningSteps = append([]time.Duration(nil), p.RelearningSteps...)
	return p
}

// NewProgress returns the NEW defaults using the configured starting ease.
func (sm *SM2) NewProgress(userID int64, cardID string) models.Progress {
	p := models.NewProgress(userID, cardID)
	p.EaseFactor = sm.params.StartingEase
	return p
}

// ComputeNext applies rating to progress at time now and returns the new state.
// The input is not modified. Version and identity fields are carried over unchanged.
func (sm *SM2) ComputeNext(progress models.Progress, rating models.Rating, now time.Time) (models.Progress, error) {
	if !rating.IsValid() {
		return progress, fmt.Errorf("%w: %q", models.ErrInvalidRating, rating)
	}

	next := progress
	switch progress.CardState {
	case models.StateNew:
		sm.reviewNew(&next, rating)
	case models.StateLearning:
		sm.reviewLadder(&next, rating, sm.params.LearningSteps, sm.params.GraduatingInterval)
	case models.StateRelearning:
		sm.reviewLadder(&next, rating, sm.params.RelearningSteps, sm.lapseInterval(progress))
	case models.StateReview:
		sm.reviewReview(&next, rating)
	default:
		return progress, fmt.Errorf("%w: unknown card state %q", models.ErrValidation, progress.CardState)
	}

	next.EaseFactor = clamp(next.EaseFactor, sm.params.MinEase, sm.params.MaxEase)
	next.Interval = clamp(next.Interval, 0, sm.params.MaximumInterval)
	if next.CardState == models.StateReview {
		next.ReviewInterval = next.Interval
	}

	next.ReviewCount = progress.ReviewCount + 1
	reviewed := now
	next.LastReviewDate = &reviewed
	due := now.Add(daysToDuration(next.Interval))
	next.DueDate = &due

	if err := next.Validate(); err != nil {
		return progress, err
	}
	return next, nil
}

// PreviewIntervals returns the interval in days each rating would produce, without
// changing progress.
func (sm *SM2) PreviewIntervals(progress models.Progress) models.Intervals {
	var out models.Intervals
	for _, r := range models.Ratings {
		// The interval does not depend on the review time.
		next, err := sm.ComputeNext(progress, r, time.Time{})
		if err != nil {
			out.Set(r, progress.Interval)
			continue
		}
		out.Set(r, next.Interval)
	}
	return out
}

// RemainingSteps returns how many ladder steps a LEARNING or RELEARNING card still has
// before graduating. Other states report 0.
func (sm *SM2) RemainingSteps(p models.Progress) int {
	var steps []time.Duration
	switch p.CardState {
	case models.StateLearning:
		steps = sm.params.LearningSteps
	case models.StateRelearning:
		steps = sm.params.RelearningSteps
	default:
		return 0
	}
	if n := len(steps) - p.LearningStep; n > 0 {
		return n
	}
	return 0
}

// reviewNew handles the first review of a card.
func (sm *SM2) reviewNew(p *models.Progress, rating models.Rating) {
	steps := sm.params.LearningSteps
	switch rating {
	case models.RatingAgain, models.RatingHard:
		// A failed first attempt is not a lapse.
		if len(steps) == 0 {
			sm.graduate(p, sm.params.GraduatingInterval)
			return
		}
		p.CardState = models.StateLearning
		p.LearningStep = 0
		p.Interval = durationToDays(steps[0])
	case models.RatingGood:
		if len(steps) < 2 {
			sm.graduate(p, sm.params.GraduatingInterval)
			return
		}
		p.CardState = models.StateLearning
		p.LearningStep = 1
		p.Interval = durationToDays(steps[1])
	case models.RatingEasy:
		sm.graduate(p, sm.params.EasyInterval)
	}
}

// reviewLadder handles LEARNING and RELEARNING, which differ only in ladder and
// graduation interval.
func (sm *SM2) reviewLadder(p *models.Progress, rating models.Rating, steps []time.Duration, graduation float64) {
	if len(steps) == 0 {
		sm.graduate(p, graduation)
		return
	}
	step := p.LearningStep
	if step >= len(steps) {
		step = len(steps) - 1
	}

	switch rating {
	case models.RatingAgain:
		p.LearningStep = 0
		p.Interval = durationToDays(steps[0])
	case models.RatingHard:
		p.LearningStep = step
		p.Interval = durationToDays(steps[step])
	case models.RatingGood:
		step++
		if step >= len(steps) {
			sm.graduate(p, graduation)
			return
		}
		p.LearningStep = step
		p.Interval = durationToDays(steps[step])
	case models.RatingEasy:
		if p.CardState == models.StateLearning {
			graduation = sm.params.EasyInterval
		}
		sm.graduate(p, graduation)
	}
}

// reviewReview handles cards in the long-term review cycle. Growth is computed from
// the pre-transition interval and ease only.
func (sm *SM2) reviewReview(p *models.Progress, rating models.Rating) {
	interval, ease := p.Interval, p.EaseFactor
	switch rating {
	case models.RatingAgain:
		p.LapseCount++
		p.EaseFactor = math.Max(sm.params.MinEase, ease-sm.params.AgainEasePenalty)
		p.ReviewInterval = interval
		steps := sm.params.RelearningSteps
		if len(steps) == 0 {
			p.Interval = math.Max(sm.params.MinLapseInterval, interval*sm.params.LapseRetention)
			return
		}
		p.CardState = models.StateRelearning
		p.LearningStep = 0
		p.Interval = durationToDays(steps[0])
	case models.RatingHard:
		p.Interval = math.Min(interval*sm.params.HardMultiplier, interval*ease)
		p.EaseFactor = math.Max(sm.params.MinEase, ease-sm.params.HardEasePenalty)
	case models.RatingGood:
		p.Interval = interval * ease
	case models.RatingEasy:
		p.Interval = interval * ease * sm.params.EasyBonus
		p.EaseFactor = math.Min(sm.params.MaxEase, ease+sm.params.EasyEaseBonus)
	}
}

// lapseInterval is the REVIEW interval a RELEARNING card returns to.
func (sm *SM2) lapseInterval(p models.Progress) float64 {
	return math.Max(sm.params.MinLapseInterval, p.ReviewInterval*sm.params.LapseRetention)
}

func (sm *SM2) graduate(p *models.Progress, interval float64) {
	p.CardState = models.StateReview
	p.LearningStep = 0
	p.Interval = interval
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Min(hi, math.Max(lo, v))
}

func durationToDays(d time.Duration) float64 {
	return d.Seconds() / day.Seconds()
}

// daysToDuration converts a day count to a duration rounded to the second.
func daysToDuration(days float64) time.Duration {
	return time.Duration(math.Round(days * day.Seconds())) * time.Second
}
