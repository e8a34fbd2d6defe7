package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/srsengine/pkg/models"
)

var t0 = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "srs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func seedCards(t *testing.T, db *sqlx.DB, cards ...models.Card) {
	t.Helper()
	repo := NewCardRepository(db)
	for i := range cards {
		_, err := repo.Upsert(context.Background(), &cards[i])
		require.NoError(t, err)
	}
}

func reviewed(p models.Progress, state models.CardState, due time.Time) models.Progress {
	p.CardState = state
	p.Interval = 1
	p.ReviewCount++
	p.DueDate = &due
	last := due.Add(-24 * time.Hour)
	p.LastReviewDate = &last
	return p
}

func newEvent(p models.Progress, rating models.Rating, at time.Time) *models.ReviewEvent {
	return &models.ReviewEvent{
		ID:         uuid.NewString(),
		UserID:     p.UserID,
		CardID:     p.CardID,
		Rating:     rating,
		Resulting:  p.Snapshot(),
		ReviewedAt: at,
	}
}

func TestCardRepository_Upsert(t *testing.T) {
	db := newTestDB(t)
	repo := NewCardRepository(db)
	ctx := context.Background()

	sub := "arrays"
	card := models.Card{ID: "c1", Category: "algorithms", SubCategory: &sub, OrderIndex: 2, Tags: models.Tags{"easy"}}
	created, err := repo.Upsert(ctx, &card)
	require.NoError(t, err)
	assert.True(t, created)

	card.Category = "data structures"
	created, err = repo.Upsert(ctx, &card)
	require.NoError(t, err)
	assert.False(t, created)

	got, err := repo.GetCard(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "data structures", got.Category)
	require.NotNil(t, got.SubCategory)
	assert.Equal(t, "arrays", *got.SubCategory)
	assert.Equal(t, models.Tags{"easy"}, got.Tags)

	_, err = repo.GetCard(ctx, "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestProgressRepository_SaveReviewVersioning(t *testing.T) {
	db := newTestDB(t)
	seedCards(t, db, models.Card{ID: "c1", Category: "go"})
	repo := NewProgressRepository(db)
	ctx := context.Background()

	got, err := repo.Get(ctx, 1, "c1")
	require.NoError(t, err)
	assert.Nil(t, got)

	first := reviewed(models.NewProgress(1, "c1"), models.StateLearning, t0.Add(10*time.Minute))
	require.NoError(t, repo.SaveReview(ctx, &first, newEvent(first, models.RatingAgain, t0)))
	assert.Equal(t, int64(1), first.Version)

	// a second writer that also started from "no row"
	stale := reviewed(models.NewProgress(1, "c1"), models.StateReview, t0.Add(24*time.Hour))
	err = repo.SaveReview(ctx, &stale, newEvent(stale, models.RatingEasy, t0))
	assert.ErrorIs(t, err, models.ErrConflict)

	stored, err := repo.Get(ctx, 1, "c1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, models.StateLearning, stored.CardState)
	assert.Equal(t, int64(1), stored.Version)
	assert.True(t, stored.DueDate.Equal(t0.Add(10*time.Minute)))

	next := reviewed(*stored, models.StateReview, t0.Add(24*time.Hour))
	require.NoError(t, repo.SaveReview(ctx, &next, newEvent(next, models.RatingGood, t0.Add(time.Hour))))
	assert.Equal(t, int64(2), next.Version)

	// stored still carries version 1
	again := reviewed(*stored, models.StateReview, t0.Add(48*time.Hour))
	err = repo.SaveReview(ctx, &again, newEvent(again, models.RatingGood, t0.Add(2*time.Hour)))
	assert.ErrorIs(t, err, models.ErrConflict)

	events, err := NewReviewRepository(db).ListByCard(ctx, 1, "c1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, models.RatingAgain, events[0].Rating)
	assert.Equal(t, models.RatingGood, events[1].Rating)
	assert.Equal(t, models.StateReview, events[1].Resulting.CardState)
}

func TestProgressRepository_Reset(t *testing.T) {
	db := newTestDB(t)
	seedCards(t, db, models.Card{ID: "c1", Category: "go"})
	repo := NewProgressRepository(db)
	ctx := context.Background()

	p := reviewed(models.NewProgress(1, "c1"), models.StateReview, t0)
	require.NoError(t, repo.SaveReview(ctx, &p, newEvent(p, models.RatingEasy, t0)))

	p.Reset()
	require.NoError(t, repo.Reset(ctx, &p, t0))

	stored, err := repo.Get(ctx, 1, "c1")
	require.NoError(t, err)
	assert.Equal(t, models.StateNew, stored.CardState)
	assert.Equal(t, 0, stored.ReviewCount)
	assert.Equal(t, int64(2), stored.Version)

	events, err := NewReviewRepository(db).ListByCard(ctx, 1, "c1")
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestProgressRepository_ListDueAndNew(t *testing.T) {
	db := newTestDB(t)
	seedCards(t, db,
		models.Card{ID: "a", Category: "go", OrderIndex: 1},
		models.Card{ID: "b", Category: "go", OrderIndex: 2},
		models.Card{ID: "c", Category: "sql", OrderIndex: 3},
		models.Card{ID: "d", Category: "sql", OrderIndex: 4},
	)
	repo := NewProgressRepository(db)
	ctx := context.Background()

	overdue := reviewed(models.NewProgress(1, "a"), models.StateReview, t0.Add(-48*time.Hour))
	future := reviewed(models.NewProgress(1, "b"), models.StateReview, t0.Add(48*time.Hour))
	other := reviewed(models.NewProgress(2, "c"), models.StateReview, t0.Add(-48*time.Hour))
	for _, p := range []*models.Progress{&overdue, &future, &other} {
		require.NoError(t, repo.SaveReview(ctx, p, newEvent(*p, models.RatingGood, t0)))
	}

	due, err := repo.ListDue(ctx, 1, []models.CardState{models.StateReview, models.StateRelearning}, t0)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "a", due[0].CardID)
	assert.Equal(t, "go", due[0].Category)
	assert.Equal(t, 1, due[0].OrderIndex)

	fresh, err := repo.ListNewCards(ctx, 1, 10)
	require.NoError(t, err)
	ids := make([]string, 0, len(fresh))
	for _, c := range fresh {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []string{"c", "d"}, ids)

	fresh, err = repo.ListNewCards(ctx, 1, 1)
	require.NoError(t, err)
	assert.Len(t, fresh, 1)
}

func TestProgressRepository_CreateMissing(t *testing.T) {
	db := newTestDB(t)
	seedCards(t, db,
		models.Card{ID: "a", Category: "go", OrderIndex: 1},
		models.Card{ID: "b", Category: "go", OrderIndex: 2},
	)
	repo := NewProgressRepository(db)
	ctx := context.Background()

	p := reviewed(models.NewProgress(1, "a"), models.StateReview, t0)
	require.NoError(t, repo.SaveReview(ctx, &p, newEvent(p, models.RatingEasy, t0)))

	n, err := repo.CreateMissing(ctx, 1, models.DefaultEaseFactor, t0)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = repo.CreateMissing(ctx, 1, models.DefaultEaseFactor, t0)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	b, err := repo.Get(ctx, 1, "b")
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Equal(t, models.StateNew, b.CardState)
	assert.Equal(t, int64(1), b.Version)
}

func TestStatisticsRepository(t *testing.T) {
	db := newTestDB(t)
	seedCards(t, db,
		models.Card{ID: "a", Category: "go", OrderIndex: 1},
		models.Card{ID: "b", Category: "go", OrderIndex: 2},
		models.Card{ID: "c", Category: "sql", OrderIndex: 3},
	)
	repo := NewProgressRepository(db)
	ctx := context.Background()

	learning := reviewed(models.NewProgress(1, "a"), models.StateLearning, t0.Add(-time.Minute))
	relearning := reviewed(models.NewProgress(1, "b"), models.StateRelearning, t0.Add(time.Hour))
	review := reviewed(models.NewProgress(1, "c"), models.StateReview, t0.Add(-time.Hour))
	for _, p := range []*models.Progress{&learning, &relearning, &review} {
		require.NoError(t, repo.SaveReview(ctx, p, newEvent(*p, models.RatingGood, t0)))
	}

	stats := NewStatisticsRepository(db)
	general, err := stats.CountByState(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, models.GeneralStats{New: 0, Learning: 2, Review: 1, Total: 3}, general)

	byCategory, err := stats.CountByCategory(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, byCategory, 3)
	assert.Equal(t, "go", byCategory[0].Category)

	due, err := stats.CountDue(ctx, 1, t0)
	require.NoError(t, err)
	assert.Equal(t, 2, due)

	empty, err := stats.CountByState(ctx, 99)
	require.NoError(t, err)
	assert.Zero(t, empty.Total)
}

func TestReviewRepository_Summary(t *testing.T) {
	db := newTestDB(t)
	seedCards(t, db, models.Card{ID: "a", Category: "go"})
	repo := NewProgressRepository(db)
	reviews := NewReviewRepository(db)
	ctx := context.Background()

	summary, err := reviews.Summary(ctx, 1, "a")
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Total)
	assert.Nil(t, summary.AverageResponseTime)

	p := models.NewProgress(1, "a")
	for i, rating := range []models.Rating{models.RatingAgain, models.RatingGood, models.RatingGood, models.RatingEasy} {
		p = reviewed(p, models.StateLearning, t0.Add(time.Duration(i)*time.Hour))
		ev := newEvent(p, rating, t0.Add(time.Duration(i)*time.Minute))
		ms := int64(1000 * (i + 1))
		ev.ResponseTimeMs = &ms
		require.NoError(t, repo.SaveReview(ctx, &p, ev))
	}

	summary, err = reviews.Summary(ctx, 1, "a")
	require.NoError(t, err)
	assert.Equal(t, 4, summary.Total)
	assert.Equal(t, 3, summary.Recalled)
	require.NotNil(t, summary.AverageResponseTime)
	assert.InDelta(t, 2500, *summary.AverageResponseTime, 1e-9)
}

func TestSubscriptionRepository(t *testing.T) {
	db := newTestDB(t)
	repo := NewSubscriptionRepository(db)
	ctx := context.Background()

	got, err := repo.Get(ctx, 7)
	require.NoError(t, err)
	assert.Nil(t, got)

	sub := models.ReminderSubscription{UserID: 7, ChatID: 700, Enabled: true, NotificationHour: 9}
	require.NoError(t, repo.Upsert(ctx, &sub))
	require.NoError(t, repo.Upsert(ctx, &models.ReminderSubscription{UserID: 8, ChatID: 800, Enabled: false, NotificationHour: 9}))

	subs, err := repo.ListForHour(ctx, 9)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, int64(700), subs[0].ChatID)

	sub.NotificationHour = 10
	require.NoError(t, repo.Upsert(ctx, &sub))
	got, err = repo.Get(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 10, got.NotificationHour)
}
