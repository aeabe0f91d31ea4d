// Package sharedlist implements shared watchlists: lists owned by one user
// that other users can be invited into and add movies to.
package sharedlist

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yumovie/backend/internal/apperr"
	"github.com/yumovie/backend/internal/models"
)

// ListStore persists shared watchlists. AddMember and AddMovie must be
// conditional on the member or movie being absent and report
// apperr.ErrDuplicateKey otherwise.
type ListStore interface {
	Insert(ctx context.Context, list *models.SharedWatchlist) (string, error)
	ListByMember(ctx context.Context, userID string) ([]models.SharedWatchlist, error)
	GetByID(ctx context.Context, id string) (*models.SharedWatchlist, error)
	AddMember(ctx context.Context, id, userID string) error
	AddMovie(ctx context.Context, id string, entry models.MovieEntry) ([]models.MovieEntry, error)
	Delete(ctx context.Context, id string) error
}

// UserDirectory looks up the users referenced by lists.
type UserDirectory interface {
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUsersByIDs(ctx context.Context, ids []string) ([]models.User, error)
}

// ViewOptions controls how members are rendered.
type ViewOptions struct {
	IncludeEmail bool
}

type Service struct {
	lists ListStore
	users UserDirectory
	log   logrus.FieldLogger
	now   func() time.Time
}

func NewService(lists ListStore, users UserDirectory, log logrus.FieldLogger) *Service {
	return &Service{lists: lists, users: users, log: log, now: time.Now}
}

// Create makes a new list owned by requester, who is also its first member.
func (s *Service) Create(ctx context.Context, requester, name string) (*models.SharedWatchlistView, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Validation("Name is required")
	}

	list := &models.SharedWatchlist{
		Name:      name,
		OwnerID:   requester,
		MemberIDs: []string{requester},
		Movies:    []models.MovieEntry{},
		CreatedAt: s.now(),
	}
	id, err := s.lists.Insert(ctx, list)
	if err != nil {
		return nil, apperr.Internal("create shared list", err)
	}

	s.log.WithFields(logrus.Fields{"list_id": id, "owner": requester}).Info("shared list created")
	return s.resolve(ctx, list, ViewOptions{})
}

// ListForUser returns every list requester is a member of, newest first.
func (s *Service) ListForUser(ctx context.Context, requester string, opts ViewOptions) ([]models.SharedWatchlistView, error) {
	lists, err := s.lists.ListByMember(ctx, requester)
	if err != nil {
		return nil, apperr.Internal("list shared lists", err)
	}

	ids := make([]string, 0)
	for i := range lists {
		ids = append(ids, lists[i].MemberIDs...)
		ids = append(ids, lists[i].OwnerID)
	}
	names, err := s.lookup(ctx, ids)
	if err != nil {
		return nil, err
	}

	views := make([]models.SharedWatchlistView, 0, len(lists))
	for i := range lists {
		views = append(views, render(&lists[i], names, opts))
	}
	return views, nil
}

// Get returns one list if requester is a member of it.
func (s *Service) Get(ctx context.Context, listID, requester string, opts ViewOptions) (*models.SharedWatchlistView, error) {
	list, err := s.load(ctx, listID)
	if err != nil {
		return nil, err
	}
	if !list.IsMember(requester) {
		return nil, apperr.Forbidden("Access denied")
	}
	return s.resolve(ctx, list, opts)
}

// AddMember invites the user registered under email. Only the owner may
// invite, and inviting an existing member is a conflict.
func (s *Service) AddMember(ctx context.Context, listID, requester, email string) (*models.SharedWatchlistView, error) {
	list, err := s.load(ctx, listID)
	if err != nil {
		return nil, err
	}
	if list.OwnerID != requester {
		return nil, apperr.Forbidden("Only the owner can add members")
	}

	email = strings.TrimSpace(email)
	if email == "" {
		return nil, apperr.Validation("Email is required")
	}
	target, err := s.users.GetUserByEmail(ctx, email)
	if errors.Is(err, apperr.ErrRecordNotFound) {
		return nil, apperr.NotFound("User with that email not found")
	}
	if err != nil {
		return nil, apperr.Internal("find user by email", err)
	}
	if list.IsMember(target.ID) {
		return nil, apperr.Conflict("User is already a member")
	}

	if err := s.lists.AddMember(ctx, listID, target.ID); err != nil {
		return nil, storeErr("add member", err, "User is already a member")
	}
	list.MemberIDs = append(list.MemberIDs, target.ID)

	s.log.WithFields(logrus.Fields{"list_id": listID, "member": target.ID}).Info("shared list member added")
	return s.resolve(ctx, list, ViewOptions{})
}

// AddMovie appends a movie on behalf of any member and returns the list's
// movie collection.
func (s *Service) AddMovie(ctx context.Context, listID, requester string, req models.AddMovieRequest) ([]models.MovieEntry, error) {
	list, err := s.load(ctx, listID)
	if err != nil {
		return nil, err
	}
	if !list.IsMember(requester) {
		return nil, apperr.Forbidden("Access denied")
	}

	movieID := strings.TrimSpace(req.MovieID)
	title := strings.TrimSpace(req.Title)
	if movieID == "" || title == "" {
		return nil, apperr.Validation("Movie id and title are required")
	}
	if list.HasMovie(movieID) {
		return nil, apperr.Conflict("Movie is already in this list")
	}

	entry := models.MovieEntry{
		MovieID:    movieID,
		Title:      title,
		PosterPath: req.PosterPath,
		AddedBy:    requester,
		AddedAt:    s.now(),
	}
	movies, err := s.lists.AddMovie(ctx, listID, entry)
	if err != nil {
		return nil, storeErr("add movie", err, "Movie is already in this list")
	}

	s.log.WithFields(logrus.Fields{"list_id": listID, "movie_id": movieID, "added_by": requester}).Info("shared list movie added")
	return movies, nil
}

// Delete removes the list and its embedded movies. Only the owner may delete.
func (s *Service) Delete(ctx context.Context, listID, requester string) error {
	list, err := s.load(ctx, listID)
	if err != nil {
		return err
	}
	if list.OwnerID != requester {
		return apperr.Forbidden("Only the owner can delete this list")
	}
	if err := s.lists.Delete(ctx, listID); err != nil {
		return storeErr("delete shared list", err, "")
	}

	s.log.WithFields(logrus.Fields{"list_id": listID, "owner": requester}).Info("shared list deleted")
	return nil
}

func (s *Service) load(ctx context.Context, listID string) (*models.SharedWatchlist, error) {
	list, err := s.lists.GetByID(ctx, listID)
	if errors.Is(err, apperr.ErrRecordNotFound) {
		return nil, apperr.NotFound("Watchlist not found")
	}
	if err != nil {
		return nil, apperr.Internal("load shared list", err)
	}
	return list, nil
}

func (s *Service) resolve(ctx context.Context, list *models.SharedWatchlist, opts ViewOptions) (*models.SharedWatchlistView, error) {
	names, err := s.lookup(ctx, append([]string{list.OwnerID}, list.MemberIDs...))
	if err != nil {
		return nil, err
	}
	v := render(list, names, opts)
	return &v, nil
}

func (s *Service) lookup(ctx context.Context, ids []string) (map[string]models.User, error) {
	seen := make(map[string]bool, len(ids))
	unique := make([]string, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}
	out := make(map[string]models.User, len(unique))
	if len(unique) == 0 {
		return out, nil
	}
	users, err := s.users.GetUsersByIDs(ctx, unique)
	if err != nil {
		return nil, apperr.Internal("resolve members", err)
	}
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

// render builds the display form. Users that no longer exist keep their id
// with an empty name.
func render(list *models.SharedWatchlist, users map[string]models.User, opts ViewOptions) models.SharedWatchlistView {
	ref := func(id string) models.MemberRef {
		r := models.MemberRef{ID: id}
		if u, ok := users[id]; ok {
			r.Name = u.Name
			if opts.IncludeEmail {
				r.Email = u.Email
			}
		}
		return r
	}

	members := make([]models.MemberRef, 0, len(list.MemberIDs))
	for _, id := range list.MemberIDs {
		members = append(members, ref(id))
	}
	movies := list.Movies
	if movies == nil {
		movies = []models.MovieEntry{}
	}
	return models.SharedWatchlistView{
		ID:        list.ID.Hex(),
		Name:      list.Name,
		Owner:     ref(list.OwnerID),
		Members:   members,
		Movies:    movies,
		CreatedAt: list.CreatedAt,
	}
}

// storeErr maps the sentinels a conditional write can report.
func storeErr(op string, err error, conflictMsg string) error {
	switch {
	case errors.Is(err, apperr.ErrRecordNotFound):
		return apperr.NotFound("Watchlist not found")
	case conflictMsg != "" && errors.Is(err, apperr.ErrDuplicateKey):
		return apperr.Conflict(conflictMsg)
	}
	return apperr.Internal(op, err)
}
