package models

import "time"

// GeneralStats counts a user's progress rows by display state.
// RELEARNING rows are counted under Learning.
type GeneralStats struct {
	New      int `json:"new"`
	Learning int `json:"learning"`
	Review   int `json:"review"`
	Total    int `json:"total"`
}

// Add counts n rows stored in state s.
func (g *GeneralStats) Add(s CardState, n int) {
	switch s {
	case StateNew:
		g.New += n
	case StateLearning, StateRelearning:
		g.Learning += n
	case StateReview:
		g.Review += n
	default:
		return
	}
	g.Total += n
}

// CategoryStats is GeneralStats for the cards of one catalog category.
type CategoryStats struct {
	Category string `json:"category"`
	GeneralStats
}

// Intervals holds the interval in days each rating would produce.
type Intervals struct {
	Again float64 `json:"again"`
	Hard  float64 `json:"hard"`
	Good  float64 `json:"good"`
	Easy  float64 `json:"easy"`
}

// Set stores the interval for rating r.
func (iv *Intervals) Set(r Rating, days float64) {
	switch r {
	case RatingAgain:
		iv.Again = days
	case RatingHard:
		iv.Hard = days
	case RatingGood:
		iv.Good = days
	case RatingEasy:
		iv.Easy = days
	}
}

// DueCard is a catalog card joined with the user's progress, ranked for review.
type DueCard struct {
	ID                  string     `json:"id"`
	Category            string     `json:"category"`
	SubCategory         *string    `json:"subCategory"`
	OrderIndex          int        `json:"orderIndex"`
	Tags                Tags       `json:"tags"`
	DueDate             *time.Time `json:"dueDate"`
	CardState           CardState  `json:"cardState"`
	Interval            float64    `json:"interval"`
	EaseFactor          float64    `json:"easeFactor"`
	ReviewCount         int        `json:"reviewCount"`
	LapseCount          int        `json:"lapseCount"`
	LearningStep        int        `json:"learningStep"`
	IsOverdue           bool       `json:"isOverdue"`
	DaysSinceLastReview *float64   `json:"daysSinceLastReview"`
	Priority            int        `json:"priority"`
}

// CardStats is the per-card diagnostic view.
type CardStats struct {
	CardID              string     `json:"cardId"`
	UserID              int64      `json:"userId"`
	TotalReviews        int        `json:"totalReviews"`
	LapseCount          int        `json:"lapseCount"`
	EaseFactor          float64    `json:"easeFactor"`
	CurrentInterval     float64    `json:"currentInterval"`
	CardState           CardState  `json:"cardState"`
	DueDate             *time.Time `json:"dueDate"`
	LastReviewDate      *time.Time `json:"lastReviewDate"`
	AverageResponseTime *float64   `json:"averageResponseTime"`
	RetentionRate       float64    `json:"retentionRate"`
	NextReviewIntervals Intervals  `json:"nextReviewIntervals"`
}
