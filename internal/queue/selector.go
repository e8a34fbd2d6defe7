// Package queue builds the prioritized list of cards a user should review next.
package queue

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/example/srsengine/internal/database"
	"github.com/example/srsengine/internal/spaced_repetition"
	"github.com/example/srsengine/pkg/models"
)

const (
	DefaultLimit = 50
	MaxLimit     = 500
)

// Store is the read side of the progress store used by the selector.
type Store interface {
	ListDue(ctx context.Context, userID int64, states []models.CardState, dueBefore time.Time) ([]database.DueRow, error)
	ListNewCards(ctx context.Context, userID int64, limit int) ([]models.Card, error)
}

// DueOptions selects which groups of cards are returned.
type DueOptions struct {
	Limit           int
	IncludeNew      bool
	IncludeLearning bool
	IncludeReview   bool
}

// Selector ranks due cards. Reads take no locks; a card returned here may have
// been reviewed by the time the client submits it.
type Selector struct {
	store      Store
	scheduler  *spaced_repetition.SM2
	maxNew     int
	learnAhead time.Duration
}

// NewSelector creates a selector. maxNew bounds NEW cards per call; learnAhead
// widens the window for cards still on a ladder.
func NewSelector(store Store, scheduler *spaced_repetition.SM2, maxNew int, learnAhead time.Duration) *Selector {
	if maxNew < 0 {
		maxNew = 0
	}
	if learnAhead < 0 {
		learnAhead = 0
	}
	return &Selector{store: store, scheduler: scheduler, maxNew: maxNew, learnAhead: learnAhead}
}

const (
	groupOverdue = iota
	groupLadder
	groupNew
)

type candidate struct {
	card  models.DueCard
	group int
	key   float64
}

// DueCards returns up to opts.Limit cards for userID ranked in three groups:
// overdue REVIEW and RELEARNING cards, most overdue first; cards on a ladder by
// remaining steps; then NEW cards in catalog order. Ties fall back to order index
// and card id. Priority is the 1-based rank.
func (s *Selector) DueCards(ctx context.Context, userID int64, opts DueOptions, now time.Time) ([]models.DueCard, error) {
	now = now.UTC().Truncate(time.Second)
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	var candidates []candidate
	if opts.IncludeReview {
		rows, err := s.store.ListDue(ctx, userID, []models.CardState{models.StateReview, models.StateRelearning}, now.Add(s.learnAhead))
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			due := *row.DueDate
			switch {
			case row.CardState == models.StateReview && !due.After(now):
				candidates = append(candidates, s.overdue(row, now))
			case row.CardState == models.StateRelearning && due.Before(now):
				candidates = append(candidates, s.overdue(row, now))
			case row.CardState == models.StateRelearning:
				candidates = append(candidates, s.ladder(row, now))
			}
		}
	}

	if opts.IncludeLearning {
		rows, err := s.store.ListDue(ctx, userID, []models.CardState{models.StateLearning}, now.Add(s.learnAhead))
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			candidates = append(candidates, s.ladder(row, now))
		}
	}

	if opts.IncludeNew {
		cards, err := s.store.ListNewCards(ctx, userID, min(s.maxNew, limit))
		if err != nil {
			return nil, err
		}
		for _, c := range cards {
			candidates = append(candidates, candidate{card: s.newCard(userID, c), group: groupNew})
		}
	}

	slices.SortStableFunc(candidates, func(a, b candidate) int {
		return cmp.Or(
			cmp.Compare(a.group, b.group),
			cmp.Compare(a.key, b.key),
			cmp.Compare(a.card.OrderIndex, b.card.OrderIndex),
			cmp.Compare(a.card.ID, b.card.ID),
		)
	})

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	out := make([]models.DueCard, len(candidates))
	for i, c := range candidates {
		c.card.Priority = i + 1
		out[i] = c.card
	}
	return out, nil
}

func (s *Selector) overdue(row database.DueRow, now time.Time) candidate {
	return candidate{
		card:  dueCard(row, now),
		group: groupOverdue,
		key:   -now.Sub(*row.DueDate).Seconds(),
	}
}

func (s *Selector) ladder(row database.DueRow, now time.Time) candidate {
	return candidate{
		card:  dueCard(row, now),
		group: groupLadder,
		key:   float64(s.scheduler.RemainingSteps(row.Progress)),
	}
}

func (s *Selector) newCard(userID int64, c models.Card) models.DueCard {
	p := s.scheduler.NewProgress(userID, c.ID)
	return models.DueCard{
		ID:          c.ID,
		Category:    c.Category,
		SubCategory: c.SubCategory,
		OrderIndex:  c.OrderIndex,
		Tags:        c.Tags,
		CardState:   p.CardState,
		EaseFactor:  p.EaseFactor,
	}
}

func dueCard(row database.DueRow, now time.Time) models.DueCard {
	card := models.DueCard{
		ID:           row.CardID,
		Category:     row.Category,
		SubCategory:  row.SubCategory,
		OrderIndex:   row.OrderIndex,
		Tags:         row.Tags,
		DueDate:      row.DueDate,
		CardState:    row.CardState,
		Interval:     row.Interval,
		EaseFactor:   row.EaseFactor,
		ReviewCount:  row.ReviewCount,
		LapseCount:   row.LapseCount,
		LearningStep: row.LearningStep,
		IsOverdue:    row.DueDate != nil && row.DueDate.Before(now),
	}
	if row.LastReviewDate != nil {
		days := now.Sub(*row.LastReviewDate).Hours() / 24
		card.DaysSinceLastReview = &days
	}
	return card
}
