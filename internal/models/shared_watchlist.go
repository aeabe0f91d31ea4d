package models

import (
	"encoding/json"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MovieEntry is a movie embedded in a shared watchlist.
type MovieEntry struct {
	MovieID    string    `json:"movie_id"              bson:"movie_id"`
	Title      string    `json:"title"                 bson:"title"`
	PosterPath string    `json:"poster_path,omitempty" bson:"poster_path,omitempty"`
	AddedBy    string    `json:"added_by"              bson:"added_by"`
	AddedAt    time.Time `json:"added_date"            bson:"added_date"`
}

// SharedWatchlist is a list owned by one user and edited by its members.
// The owner is always one of Members.
type SharedWatchlist struct {
	ID        primitive.ObjectID `json:"id"           bson:"_id,omitempty"`
	Name      string             `json:"name"         bson:"name"`
	OwnerID   string             `json:"owner"        bson:"owner"`
	MemberIDs []string           `json:"members"      bson:"members"`
	Movies    []MovieEntry       `json:"movies"       bson:"movies"`
	CreatedAt time.Time          `json:"created_date" bson:"created_date"`
}

// IsMember reports whether userID belongs to the list.
func (l *SharedWatchlist) IsMember(userID string) bool {
	for _, m := range l.MemberIDs {
		if m == userID {
			return true
		}
	}
	return false
}

// HasMovie reports whether movieID is already in the list.
func (l *SharedWatchlist) HasMovie(movieID string) bool {
	for _, m := range l.Movies {
		if m.MovieID == movieID {
			return true
		}
	}
	return false
}

// MemberRef is the display form of a user inside a shared list.
type MemberRef struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// SharedWatchlistView is a shared list with owner and members resolved.
type SharedWatchlistView struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Owner     MemberRef    `json:"owner"`
	Members   []MemberRef  `json:"members"`
	Movies    []MovieEntry `json:"movies"`
	CreatedAt time.Time    `json:"created_date"`
}

// CreateSharedWatchlistRequest is the JSON body for POST /api/shared-watchlists.
type CreateSharedWatchlistRequest struct {
	Name string `json:"name"`
}

// AddMemberRequest is the JSON body for POST /api/shared-watchlists/{id}/members.
type AddMemberRequest struct {
	Email string `json:"email"`
}

// AddMovieRequest is the JSON body for POST /api/shared-watchlists/{id}/movies.
// The web client sends {movieId, title, posterPath}; movie_id, poster_path
// and tmdbId are accepted too.
type AddMovieRequest struct {
	MovieID    string `json:"movieId"`
	Title      string `json:"title"`
	PosterPath string `json:"posterPath"`
}

func (r *AddMovieRequest) UnmarshalJSON(data []byte) error {
	var raw struct {
		MovieID         looseString `json:"movieId"`
		MovieIDSnake    looseString `json:"movie_id"`
		TMDBID          looseString `json:"tmdbId"`
		Title           string      `json:"title"`
		PosterPath      string      `json:"posterPath"`
		PosterPathSnake string      `json:"poster_path"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = AddMovieRequest{
		MovieID:    firstNonEmpty(string(raw.MovieID), string(raw.MovieIDSnake), string(raw.TMDBID)),
		Title:      raw.Title,
		PosterPath: firstNonEmpty(raw.PosterPath, raw.PosterPathSnake),
	}
	return nil
}

// looseString decodes a JSON string or number into its string form.
type looseString string

func (s *looseString) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = looseString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*s = looseString(n.String())
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
