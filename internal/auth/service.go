package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/yumovie/backend/internal/apperr"
	"github.com/yumovie/backend/internal/models"
)

// UserStore defines the interface for user persistence.
type UserStore interface {
	CreateUser(ctx context.Context, name, email, hashedPw string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// Sessions records which issued tokens are still live.
type Sessions interface {
	Create(ctx context.Context, sessionID, userID string, ttl time.Duration) error
	Get(ctx context.Context, sessionID string) (string, error)
	Delete(ctx context.Context, sessionID string) error
}

// Service registers users and issues and verifies their tokens.
type Service struct {
	users    UserStore
	sessions Sessions
	tokens   *TokenIssuer
	log      logrus.FieldLogger
	cost     int
}

func NewService(users UserStore, sessions Sessions, tokens *TokenIssuer, log logrus.FieldLogger) *Service {
	return &Service{users: users, sessions: sessions, tokens: tokens, log: log, cost: bcrypt.DefaultCost}
}

func (s *Service) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
	name := strings.TrimSpace(req.Name)
	email := strings.TrimSpace(req.Email)
	if name == "" || email == "" || req.Password == "" {
		return nil, apperr.Validation("name, email, and password are required")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return nil, apperr.Internal("hash password", err)
	}

	user, err := s.users.CreateUser(ctx, name, email, string(hashed))
	if errors.Is(err, apperr.ErrDuplicateKey) {
		return nil, apperr.Conflict("User already exists")
	}
	if err != nil {
		return nil, apperr.Internal("create user", err)
	}

	s.log.WithField("user_id", user.ID).Info("user registered")
	return s.issue(ctx, user)
}

func (s *Service) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	user, err := s.users.GetUserByEmail(ctx, strings.TrimSpace(req.Email))
	if errors.Is(err, apperr.ErrRecordNotFound) {
		return nil, apperr.Unauthorized("Invalid credentials")
	}
	if err != nil {
		return nil, apperr.Internal("find user", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, apperr.Unauthorized("Invalid credentials")
	}
	return s.issue(ctx, user)
}

// Logout revokes the session behind token. Unknown or invalid tokens are ignored.
func (s *Service) Logout(ctx context.Context, token string) error {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil
	}
	if err := s.sessions.Delete(ctx, claims.ID); err != nil {
		return apperr.Internal("delete session", err)
	}
	return nil
}

// Authenticate resolves a token to a live user.
func (s *Service) Authenticate(ctx context.Context, token string) (*models.User, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, apperr.Unauthorized("Token is not valid")
	}

	owner, err := s.sessions.Get(ctx, claims.ID)
	if err != nil {
		return nil, apperr.Internal("load session", err)
	}
	if owner == "" || owner != claims.UserID {
		return nil, apperr.Unauthorized("Session expired")
	}

	user, err := s.users.GetUserByID(ctx, claims.UserID)
	if errors.Is(err, apperr.ErrRecordNotFound) {
		return nil, apperr.Unauthorized("Authorization denied, user not found")
	}
	if err != nil {
		return nil, apperr.Internal("load user", err)
	}
	return user, nil
}

func (s *Service) issue(ctx context.Context, user *models.User) (*models.AuthResponse, error) {
	token, jti, err := s.tokens.Issue(user)
	if err != nil {
		return nil, apperr.Internal("sign token", err)
	}
	if err := s.sessions.Create(ctx, jti, user.ID, s.tokens.TTL()); err != nil {
		return nil, apperr.Internal("session creation", err)
	}
	user.Password = ""
	return &models.AuthResponse{Token: token, User: user}, nil
}
