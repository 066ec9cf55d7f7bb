package entity

import (
	"math"
	"time"
)

const (
	MinRatingValue = 1
	MaxRatingValue = 5
)

// Rating is a single user's score for a restaurant, stored under
// Restaurante/{restaurantId}/ratings/{key}.
type Rating struct {
	RestaurantID string    `json:"restaurant_id"`
	Key          string    `json:"-"`
	Value        int       `json:"value"`
	UserID       string    `json:"user_id,omitempty"`
	Email        string    `json:"email,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// RatingAggregate is the (ratingTotal, ratingCount, rating) triple kept on the restaurant.
type RatingAggregate struct {
	Total   float64 `json:"rating_total"`
	Count   int     `json:"rating_count"`
	Average float64 `json:"rating"`
}

// NewRatingAggregate derives the average, which is zero when nobody has rated.
func NewRatingAggregate(total float64, count int) RatingAggregate {
	if math.IsNaN(total) || math.IsInf(total, 0) {
		total = 0
	}
	if count < 0 {
		count = 0
	}

	agg := RatingAggregate{Total: total, Count: count}
	if count > 0 {
		agg.Average = total / float64(count)
	}
	return agg
}

// Apply folds one user's new value into the aggregate. previous is that
// user's earlier value, nil for a first-time rater.
func (a RatingAggregate) Apply(previous *float64, value int) RatingAggregate {
	total := a.Total
	count := a.Count
	if previous != nil {
		total -= *previous
	} else {
		count++
	}
	total += float64(value)
	return NewRatingAggregate(total, count)
}

// RatingResult is what the caller gets back after a submission.
type RatingResult struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

func (a RatingAggregate) Result() RatingResult {
	return RatingResult{Average: a.Average, Count: a.Count}
}

// ValidRatingValue reports whether v is an integer score in [1,5].
func ValidRatingValue(v float64) bool {
	if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) {
		return false
	}
	return v >= MinRatingValue && v <= MaxRatingValue
}
