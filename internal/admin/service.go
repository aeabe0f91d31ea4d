// Package admin implements moderation of users and reviews.
package admin

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/yumovie/backend/internal/apperr"
	"github.com/yumovie/backend/internal/models"
)

type UserStore interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	DeleteUser(ctx context.Context, id string) error
	SetRole(ctx context.Context, email string, role models.Role) (*models.User, error)
}

type ReviewStore interface {
	ListAll(ctx context.Context) ([]models.Review, error)
	Delete(ctx context.Context, id string) error
	DeleteByUser(ctx context.Context, userID string) (int64, error)
}

type Service struct {
	users   UserStore
	reviews ReviewStore
	log     logrus.FieldLogger
}

func NewService(users UserStore, reviews ReviewStore, log logrus.FieldLogger) *Service {
	return &Service{users: users, reviews: reviews, log: log}
}

func (s *Service) ListUsers(ctx context.Context) ([]models.User, error) {
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, apperr.Internal("list users", err)
	}
	if users == nil {
		users = []models.User{}
	}
	for i := range users {
		users[i].Password = ""
	}
	return users, nil
}

// DeleteUser removes every review the user wrote, then the account. If the
// reviews cannot be removed the account is kept. Watchlist items and shared
// list memberships are left in place.
func (s *Service) DeleteUser(ctx context.Context, id string) error {
	_, err := s.users.GetUserByID(ctx, id)
	if errors.Is(err, apperr.ErrRecordNotFound) {
		return apperr.NotFound("User not found")
	}
	if err != nil {
		return apperr.Internal("load user", err)
	}

	n, err := s.reviews.DeleteByUser(ctx, id)
	if err != nil {
		return apperr.Internal("delete user reviews", err)
	}

	err = s.users.DeleteUser(ctx, id)
	if errors.Is(err, apperr.ErrRecordNotFound) {
		return apperr.NotFound("User not found")
	}
	if err != nil {
		return apperr.Internal("delete user", err)
	}
	s.log.WithFields(logrus.Fields{"user_id": id, "reviews_removed": n}).Warn("user deleted by admin")
	return nil
}

func (s *Service) ListReviews(ctx context.Context) ([]models.Review, error) {
	reviews, err := s.reviews.ListAll(ctx)
	if err != nil {
		return nil, apperr.Internal("list reviews", err)
	}
	if reviews == nil {
		reviews = []models.Review{}
	}
	return reviews, nil
}

func (s *Service) DeleteReview(ctx context.Context, id string) error {
	err := s.reviews.Delete(ctx, id)
	if errors.Is(err, apperr.ErrRecordNotFound) {
		return apperr.NotFound("Review not found")
	}
	if err != nil {
		return apperr.Internal("delete review", err)
	}
	s.log.WithField("review_id", id).Info("review deleted by admin")
	return nil
}

// Promote grants the admin role to the user registered under email.
func (s *Service) Promote(ctx context.Context, email string) (*models.User, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, apperr.Validation("Email is required")
	}
	u, err := s.users.SetRole(ctx, email, models.RoleAdmin)
	if errors.Is(err, apperr.ErrRecordNotFound) {
		return nil, apperr.NotFound("User with that email not found")
	}
	if err != nil {
		return nil, apperr.Internal("set role", err)
	}
	s.log.WithField("user_id", u.ID).Info("user promoted to admin")
	return u, nil
}
