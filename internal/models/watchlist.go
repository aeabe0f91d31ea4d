package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type WatchStatus string

const (
	StatusPlanToWatch WatchStatus = "Plan to Watch"
	StatusWatching    WatchStatus = "Watching"
	StatusCompleted   WatchStatus = "Completed"
	StatusOnHold      WatchStatus = "On-Hold"
	StatusDropped     WatchStatus = "Dropped"
)

// Valid reports whether s is one of the known statuses.
func (s WatchStatus) Valid() bool {
	switch s {
	case StatusPlanToWatch, StatusWatching, StatusCompleted, StatusOnHold, StatusDropped:
		return true
	}
	return false
}

// WatchlistItem is one movie on a user's personal watchlist.
type WatchlistItem struct {
	ID         primitive.ObjectID `json:"id"          bson:"_id,omitempty"`
	UserID     string             `json:"user"        bson:"user"`
	MovieID    string             `json:"movie_id"    bson:"movie_id"`
	Title      string             `json:"title"       bson:"title"`
	PosterPath string             `json:"poster_path" bson:"poster_path,omitempty"`
	Status     WatchStatus        `json:"status"      bson:"status"`
	Score      int                `json:"score"       bson:"score"`
	AddedAt    time.Time          `json:"added_date"  bson:"added_date"`
}

// WatchlistAdd is the JSON body for POST /api/watchlist.
type WatchlistAdd struct {
	MovieID    string      `json:"movie_id"`
	Title      string      `json:"title"`
	PosterPath string      `json:"poster_path"`
	Status     WatchStatus `json:"status"`
	Score      *int        `json:"score"`
}

// WatchlistUpdate is the JSON body for PUT /api/watchlist/{id}.
type WatchlistUpdate struct {
	Status WatchStatus `json:"status"`
	Score  *int        `json:"score"`
}
