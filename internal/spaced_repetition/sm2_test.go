package spaced_repetition

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/srsengine/pkg/models"
)

var t0 = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

func mustSM2(t *testing.T, p Params) *SM2 {
	t.Helper()
	sm, err := NewSM2(p)
	require.NoError(t, err)
	return sm
}

func reviewProgress(interval, ease float64) models.Progress {
	due := t0
	last := t0.Add(-time.Duration(interval*24) * time.Hour)
	return models.Progress{
		UserID:         1,
		CardID:         "card-1",
		CardState:      models.StateReview,
		EaseFactor:     ease,
		Interval:       interval,
		ReviewInterval: interval,
		ReviewCount:    5,
		DueDate:        &due,
		LastReviewDate: &last,
		Version:        3,
	}
}

func TestNewSM2Defaults(t *testing.T) {
	sm := mustSM2(t, Params{})
	assert.Equal(t, DefaultParams(), sm.Params())
}

func TestNewSM2RejectsInvalidParams(t *testing.T) {
	tests := []struct {
		name string
		p    Params
	}{
		{"ease below floor", Params{MinEase: 1.0}},
		{"ease above ceiling", Params{MaxEase: 3.0}},
		{"starting ease out of range", Params{StartingEase: 2.6}},
		{"negative step", Params{LearningSteps: []time.Duration{-time.Minute}}},
		{"maximum below easy", Params{MaximumInterval: 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSM2(tt.p)
			assert.Error(t, err)
		})
	}
}

func TestComputeNextNewEasy(t *testing.T) {
	sm := mustSM2(t, Params{})
	p := models.NewProgress(1, "card-1")

	next, err := sm.ComputeNext(p, models.RatingEasy, t0)
	require.NoError(t, err)

	assert.Equal(t, models.StateReview, next.CardState)
	assert.Equal(t, 4.0, next.Interval)
	assert.Equal(t, models.DefaultEaseFactor, next.EaseFactor)
	require.NotNil(t, next.DueDate)
	assert.True(t, next.DueDate.Equal(t0.Add(4*24*time.Hour)), "due %v", next.DueDate)
	assert.Equal(t, 1, next.ReviewCount)
	assert.Equal(t, 0, next.LapseCount)
}

func TestComputeNextNewAgainAndHardAreNotLapses(t *testing.T) {
	sm := mustSM2(t, Params{})
	for _, r := range []models.Rating{models.RatingAgain, models.RatingHard} {
		next, err := sm.ComputeNext(models.NewProgress(1, "c"), r, t0)
		require.NoError(t, err)
		assert.Equal(t, models.StateLearning, next.CardState, r)
		assert.Equal(t, 0, next.LearningStep, r)
		assert.Equal(t, 0, next.LapseCount, r)
		assert.True(t, next.DueDate.Equal(t0.Add(10*time.Minute)), "rating %s due %v", r, next.DueDate)
	}
}

func TestComputeNextNewGoodSingleStepLadderGraduates(t *testing.T) {
	sm := mustSM2(t, Params{LearningSteps: []time.Duration{10 * time.Minute}})
	next, err := sm.ComputeNext(models.NewProgress(1, "c"), models.RatingGood, t0)
	require.NoError(t, err)
	assert.Equal(t, models.StateReview, next.CardState)
	assert.Equal(t, 1.0, next.Interval)
}

func TestComputeNextLearningLadder(t *testing.T) {
	sm := mustSM2(t, Params{})
	p := models.NewProgress(1, "c")

	p, err := sm.ComputeNext(p, models.RatingGood, t0)
	require.NoError(t, err)
	assert.Equal(t, models.StateLearning, p.CardState)
	assert.Equal(t, 1, p.LearningStep)

	// hard repeats the current step
	p, err = sm.ComputeNext(p, models.RatingHard, t0)
	require.NoError(t, err)
	assert.Equal(t, 1, p.LearningStep)
	assert.Equal(t, 1.0, p.Interval)

	p, err = sm.ComputeNext(p, models.RatingGood, t0)
	require.NoError(t, err)
	assert.Equal(t, models.StateReview, p.CardState)
	assert.Equal(t, 1.0, p.Interval)
	assert.Equal(t, 3, p.ReviewCount)
}

func TestComputeNextLearningAgainRestartsLadder(t *testing.T) {
	sm := mustSM2(t, Params{})
	due := t0
	p := models.Progress{CardState: models.StateLearning, EaseFactor: 2.5, LearningStep: 1, Interval: 1, DueDate: &due}

	next, err := sm.ComputeNext(p, models.RatingAgain, t0)
	require.NoError(t, err)
	assert.Equal(t, models.StateLearning, next.CardState)
	assert.Equal(t, 0, next.LearningStep)
	assert.InDelta(t, 10.0/(24*60), next.Interval, 1e-12)
}

func TestComputeNextReviewAgain(t *testing.T) {
	sm := mustSM2(t, Params{})
	p := reviewProgress(10, 2.0)

	next, err := sm.ComputeNext(p, models.RatingAgain, t0)
	require.NoError(t, err)

	assert.Equal(t, models.StateRelearning, next.CardState)
	assert.Equal(t, 1, next.LapseCount)
	assert.InDelta(t, 1.8, next.EaseFactor, 1e-9)
	assert.InDelta(t, 10.0/(24*60), next.Interval, 1e-12)
	assert.Equal(t, 0, next.LearningStep)
	assert.Equal(t, 10.0, next.ReviewInterval)
}

func TestComputeNextReviewGoodMultipliesByEase(t *testing.T) {
	sm := mustSM2(t, Params{})
	for _, interval := range []float64{1, 2.5, 10, 47.3, 300} {
		for _, ease := range []float64{1.3, 1.75, 2.0, 2.5} {
			p := reviewProgress(interval, ease)
			next, err := sm.ComputeNext(p, models.RatingGood, t0)
			require.NoError(t, err)
			assert.Equal(t, interval*ease, next.Interval, "interval=%v ease=%v", interval, ease)
			assert.Equal(t, ease, next.EaseFactor)
			assert.Equal(t, models.StateReview, next.CardState)
		}
	}
}

func TestComputeNextReviewHardAndEasy(t *testing.T) {
	sm := mustSM2(t, Params{})

	hard, err := sm.ComputeNext(reviewProgress(10, 2.0), models.RatingHard, t0)
	require.NoError(t, err)
	assert.InDelta(t, 12.0, hard.Interval, 1e-9)
	assert.InDelta(t, 1.85, hard.EaseFactor, 1e-9)

	easy, err := sm.ComputeNext(reviewProgress(10, 2.0), models.RatingEasy, t0)
	require.NoError(t, err)
	assert.InDelta(t, 26.0, easy.Interval, 1e-9)
	assert.InDelta(t, 2.15, easy.EaseFactor, 1e-9)
}

func TestComputeNextRelearningGraduation(t *testing.T) {
	sm := mustSM2(t, Params{})

	lapsed, err := sm.ComputeNext(reviewProgress(10, 2.0), models.RatingAgain, t0)
	require.NoError(t, err)

	back, err := sm.ComputeNext(lapsed, models.RatingGood, t0.Add(10*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, models.StateReview, back.CardState)
	assert.InDelta(t, 5.0, back.Interval, 1e-9)
	assert.Equal(t, 1, back.LapseCount)

	// short pre-lapse intervals still return at least one day
	lapsed, err = sm.ComputeNext(reviewProgress(1.2, 1.3), models.RatingAgain, t0)
	require.NoError(t, err)
	back, err = sm.ComputeNext(lapsed, models.RatingGood, t0)
	require.NoError(t, err)
	assert.Equal(t, 1.0, back.Interval)
}

func TestComputeNextEaseStaysInBounds(t *testing.T) {
	sm := mustSM2(t, Params{})
	starts := []models.Progress{
		models.NewProgress(1, "c"),
		reviewProgress(3, 1.3),
		reviewProgress(3, 1.4),
		reviewProgress(3, 2.5),
		reviewProgress(3, 2.4),
	}
	for _, start := range starts {
		p := start
		for i := 0; i < 40; i++ {
			r := models.Ratings[(i*7+3)%len(models.Ratings)]
			next, err := sm.ComputeNext(p, r, t0.Add(time.Duration(i)*time.Hour))
			require.NoError(t, err)
			assert.GreaterOrEqual(t, next.EaseFactor, models.MinEaseFactor)
			assert.LessOrEqual(t, next.EaseFactor, models.MaxEaseFactor)
			assert.GreaterOrEqual(t, next.Interval, 0.0)
			p = next
		}
	}
}

func TestComputeNextDoesNotMutateInput(t *testing.T) {
	sm := mustSM2(t, Params{})
	p := reviewProgress(10, 2.0)
	before := p
	_, err := sm.ComputeNext(p, models.RatingAgain, t0)
	require.NoError(t, err)
	assert.Equal(t, before, p)
}

func TestComputeNextInvalidRating(t *testing.T) {
	sm := mustSM2(t, Params{})
	_, err := sm.ComputeNext(models.NewProgress(1, "c"), models.Rating("meh"), t0)
	assert.True(t, errors.Is(err, models.ErrInvalidRating))
}

func TestComputeNextKeepsVersion(t *testing.T) {
	sm := mustSM2(t, Params{})
	next, err := sm.ComputeNext(reviewProgress(4, 2.0), models.RatingGood, t0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), next.Version)
}

func TestComputeNextClampsToMaximumInterval(t *testing.T) {
	sm := mustSM2(t, Params{MaximumInterval: 100})
	next, err := sm.ComputeNext(reviewProgress(90, 2.5), models.RatingEasy, t0)
	require.NoError(t, err)
	assert.Equal(t, 100.0, next.Interval)
}

func TestComputeNextSubDayDuePrecision(t *testing.T) {
	sm := mustSM2(t, Params{LearningSteps: []time.Duration{3 * time.Minute, time.Hour}})
	next, err := sm.ComputeNext(models.NewProgress(1, "c"), models.RatingAgain, t0)
	require.NoError(t, err)
	assert.Equal(t, t0.Add(3*time.Minute), *next.DueDate)
}

func TestPreviewIntervalsPureAndIdempotent(t *testing.T) {
	sm := mustSM2(t, Params{})
	p := reviewProgress(10, 2.0)
	before := p

	first := sm.PreviewIntervals(p)
	_ = sm.RemainingSteps(p)
	second := sm.PreviewIntervals(p)

	assert.Equal(t, before, p)
	assert.Equal(t, first, second)
	assert.InDelta(t, 10.0/(24*60), first.Again, 1e-12)
	assert.InDelta(t, 12.0, first.Hard, 1e-9)
	assert.InDelta(t, 20.0, first.Good, 1e-9)
	assert.InDelta(t, 26.0, first.Easy, 1e-9)
}

func TestPreviewIntervalsMatchComputeNext(t *testing.T) {
	sm := mustSM2(t, Params{})
	p := models.NewProgress(1, "c")
	preview := sm.PreviewIntervals(p)
	for _, r := range models.Ratings {
		next, err := sm.ComputeNext(p, r, t0)
		require.NoError(t, err)
		var want models.Intervals
		want.Set(r, next.Interval)
		switch r {
		case models.RatingAgain:
			assert.Equal(t, want.Again, preview.Again)
		case models.RatingHard:
			assert.Equal(t, want.Hard, preview.Hard)
		case models.RatingGood:
			assert.Equal(t, want.Good, preview.Good)
		case models.RatingEasy:
			assert.Equal(t, want.Easy, preview.Easy)
		}
	}
}

func TestRemainingSteps(t *testing.T) {
	sm := mustSM2(t, Params{})
	assert.Equal(t, 2, sm.RemainingSteps(models.Progress{CardState: models.StateLearning}))
	assert.Equal(t, 1, sm.RemainingSteps(models.Progress{CardState: models.StateLearning, LearningStep: 1}))
	assert.Equal(t, 1, sm.RemainingSteps(models.Progress{CardState: models.StateRelearning}))
	assert.Equal(t, 0, sm.RemainingSteps(models.Progress{CardState: models.StateReview}))
}

func TestTransitionTableGolden(t *testing.T) {
	sm := mustSM2(t, Params{})
	due := t0

	learning := models.Progress{CardState: models.StateLearning, EaseFactor: 2.5, LearningStep: 1, Interval: 1, DueDate: &due}
	relearning := models.Progress{
		CardState: models.StateRelearning, EaseFactor: 1.8, Interval: 10.0 / (24 * 60),
		ReviewInterval: 10, LapseCount: 1, DueDate: &due,
	}
	starts := []models.Progress{models.NewProgress(1, "c"), learning, reviewProgress(10, 2.0), relearning}

	var b strings.Builder
	for _, start := range starts {
		for _, r := range models.Ratings {
			next, err := sm.ComputeNext(start, r, t0)
			require.NoError(t, err)
			fmt.Fprintf(&b, "%s %s -> %s step=%d interval=%.4f ease=%.2f lapses=%d\n",
				start.CardState, r, next.CardState, next.LearningStep, next.Interval, next.EaseFactor, next.LapseCount)
		}
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "transitions", []byte(b.String()))
}
