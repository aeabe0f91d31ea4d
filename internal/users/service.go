// Package users serves the caller's own profile.
package users

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
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateProfile(ctx context.Context, id, name, email string) (*models.User, error)
}

type Service struct {
	users UserStore
	log   logrus.FieldLogger
}

func NewService(users UserStore, log logrus.FieldLogger) *Service {
	return &Service{users: users, log: log}
}

// Me returns the requester's profile.
func (s *Service) Me(ctx context.Context, requester string) (*models.User, error) {
	u, err := s.users.GetUserByID(ctx, requester)
	if errors.Is(err, apperr.ErrRecordNotFound) {
		return nil, apperr.NotFound("User not found")
	}
	if err != nil {
		return nil, apperr.Internal("load user", err)
	}
	u.Password = ""
	return u, nil
}

// UpdateMe changes name and/or email. Blank fields keep their current value.
// Review author names written earlier are left as they were.
func (s *Service) UpdateMe(ctx context.Context, requester string, req models.ProfileUpdate) (*models.User, error) {
	current, err := s.Me(ctx, requester)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = current.Name
	}
	email := strings.TrimSpace(req.Email)
	if email == "" {
		email = current.Email
	}

	if email != current.Email {
		other, err := s.users.GetUserByEmail(ctx, email)
		switch {
		case err == nil && other.ID != requester:
			return nil, apperr.Conflict("Email is already in use")
		case err != nil && !errors.Is(err, apperr.ErrRecordNotFound):
			return nil, apperr.Internal("check email", err)
		}
	}

	u, err := s.users.UpdateProfile(ctx, requester, name, email)
	switch {
	case errors.Is(err, apperr.ErrDuplicateKey):
		return nil, apperr.Conflict("Email is already in use")
	case errors.Is(err, apperr.ErrRecordNotFound):
		return nil, apperr.NotFound("User not found")
	case err != nil:
		return nil, apperr.Internal("update profile", err)
	}

	s.log.WithField("user_id", requester).Info("profile updated")
	u.Password = ""
	return u, nil
}
