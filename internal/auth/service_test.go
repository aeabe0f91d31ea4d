package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/yumovie/backend/internal/apperr"
	"github.com/yumovie/backend/internal/models"
)

type memUsers struct {
	mu    sync.Mutex
	users map[string]*models.User
	seq   int
}

func (m *memUsers) CreateUser(ctx context.Context, name, email, hashed string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return nil, apperr.ErrDuplicateKey
		}
	}
	m.seq++
	u := &models.User{ID: string(rune('a'+m.seq)) + "-id", Name: name, Email: email, Password: hashed, Role: models.RoleUser}
	m.users[u.ID] = u
	c := *u
	return &c, nil
}

func (m *memUsers) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, apperr.ErrRecordNotFound
}

func (m *memUsers) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		c := *u
		c.Password = ""
		return &c, nil
	}
	return nil, apperr.ErrRecordNotFound
}

type memSessions struct {
	mu   sync.Mutex
	data map[string]string
	err  error
}

func (m *memSessions) Create(ctx context.Context, id, userID string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.data[id] = userID
	return nil
}

func (m *memSessions) Get(ctx context.Context, id string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	return m.data[id], nil
}

func (m *memSessions) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, id)
	return nil
}

func newTestService(t *testing.T) (*Service, *memUsers, *memSessions) {
	t.Helper()
	log, _ := test.NewNullLogger()
	users := &memUsers{users: map[string]*models.User{}}
	sessions := &memSessions{data: map[string]string{}}
	svc := NewService(users, sessions, NewTokenIssuer("test-secret", time.Hour), log)
	svc.cost = bcrypt.MinCost
	return svc, users, sessions
}

func TestRegisterLoginAuthenticate(t *testing.T) {
	svc, users, _ := newTestService(t)
	ctx := context.Background()

	reg, err := svc.Register(ctx, models.RegisterRequest{Name: " Una ", Email: "una@example.com", Password: "popcorn"})
	require.NoError(t, err)
	assert.NotEmpty(t, reg.Token)
	assert.Equal(t, "Una", reg.User.Name)
	assert.Empty(t, reg.User.Password)
	assert.NotEqual(t, "popcorn", users.users[reg.User.ID].Password, "password is stored hashed")

	login, err := svc.Login(ctx, models.LoginRequest{Email: "una@example.com", Password: "popcorn"})
	require.NoError(t, err)

	user, err := svc.Authenticate(ctx, login.Token)
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, user.ID)
}

func TestRegisterValidationAndConflict(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, models.RegisterRequest{Email: "x@example.com", Password: "pw"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = svc.Register(ctx, models.RegisterRequest{Name: "A", Email: "a@example.com", Password: "pw"})
	require.NoError(t, err)
	_, err = svc.Register(ctx, models.RegisterRequest{Name: "B", Email: "a@example.com", Password: "pw"})
	assert.True(t, apperr.Is(err, apperr.KindConflict))
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	_, err := svc.Register(ctx, models.RegisterRequest{Name: "A", Email: "a@example.com", Password: "right"})
	require.NoError(t, err)

	_, err = svc.Login(ctx, models.LoginRequest{Email: "a@example.com", Password: "wrong"})
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))

	_, err = svc.Login(ctx, models.LoginRequest{Email: "nobody@example.com", Password: "right"})
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))
}

func TestLogoutRevokesToken(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	reg, err := svc.Register(ctx, models.RegisterRequest{Name: "A", Email: "a@example.com", Password: "pw"})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, reg.Token))

	_, err = svc.Authenticate(ctx, reg.Token)
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))
	assert.NoError(t, svc.Logout(ctx, "garbage"))
}

func TestAuthenticateFailures(t *testing.T) {
	svc, users, sessions := newTestService(t)
	ctx := context.Background()
	reg, err := svc.Register(ctx, models.RegisterRequest{Name: "A", Email: "a@example.com", Password: "pw"})
	require.NoError(t, err)

	_, err = svc.Authenticate(ctx, "not-a-token")
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))

	sessions.err = errors.New("redis: connection refused")
	_, err = svc.Authenticate(ctx, reg.Token)
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
	sessions.err = nil

	delete(users.users, reg.User.ID)
	_, err = svc.Authenticate(ctx, reg.Token)
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))
	assert.Equal(t, "Authorization denied, user not found", apperr.Message(err))
}
