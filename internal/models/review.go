package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Review is a user's rating and text for one catalog movie.
type Review struct {
	ID       primitive.ObjectID `json:"id"       bson:"_id,omitempty"`
	UserID   string             `json:"user"     bson:"user"`
	Username string             `json:"username" bson:"username"`
	MovieID  string             `json:"movie_id" bson:"movie_id"`
	Rating   int                `json:"rating"   bson:"rating"`
	Text     string             `json:"text"     bson:"text"`
	Date     time.Time          `json:"date"     bson:"date"`
}

// ReviewInput is the JSON body for creating or editing a review.
type ReviewInput struct {
	Rating int    `json:"rating"`
	Text   string `json:"text"`
}
