package domain

import "time"

// Rating is a single score a user gave to a movie.
type Rating struct {
	MovieID string `json:"movieId"`
	Rating  int    `json:"rating"`
}

// UserRating is the ordered list of ratings of one user, as served by the ratings service.
type UserRating struct {
	UserID     string   `json:"userId"`
	UserRating []Rating `json:"userRating"`
}

// StoredRating is a rating row as persisted by the ratings service.
type StoredRating struct {
	UserID    string
	MovieID   string
	Value     int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// MinRating and MaxRating bound the accepted rating values.
const (
	MinRating = 1
	MaxRating = 5
)
