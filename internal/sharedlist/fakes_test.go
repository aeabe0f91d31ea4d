package sharedlist

import (
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/yumovie/backend/internal/apperr"
	"github.com/yumovie/backend/internal/models"
)

// memStore mirrors the conditional-update contract of the Mongo store.
type memStore struct {
	mu    sync.Mutex
	lists map[string]*models.SharedWatchlist
	order []string
	// failNext makes the next call return this error.
	failNext error
}

func newMemStore() *memStore {
	return &memStore{lists: make(map[string]*models.SharedWatchlist)}
}

func clone(l *models.SharedWatchlist) *models.SharedWatchlist {
	c := *l
	c.MemberIDs = append([]string(nil), l.MemberIDs...)
	c.Movies = append([]models.MovieEntry(nil), l.Movies...)
	return &c
}

func (m *memStore) takeFailure() error {
	err := m.failNext
	m.failNext = nil
	return err
}

func (m *memStore) Insert(ctx context.Context, list *models.SharedWatchlist) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return "", err
	}
	list.ID = primitive.NewObjectID()
	id := list.ID.Hex()
	m.lists[id] = clone(list)
	m.order = append(m.order, id)
	return id, nil
}

func (m *memStore) ListByMember(ctx context.Context, userID string) ([]models.SharedWatchlist, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return nil, err
	}
	var out []models.SharedWatchlist
	for i := len(m.order) - 1; i >= 0; i-- {
		if l, ok := m.lists[m.order[i]]; ok && l.IsMember(userID) {
			out = append(out, *clone(l))
		}
	}
	return out, nil
}

func (m *memStore) GetByID(ctx context.Context, id string) (*models.SharedWatchlist, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return nil, err
	}
	l, ok := m.lists[id]
	if !ok {
		return nil, apperr.ErrRecordNotFound
	}
	return clone(l), nil
}

func (m *memStore) AddMember(ctx context.Context, id, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.lists[id]
	if !ok {
		return apperr.ErrRecordNotFound
	}
	if l.IsMember(userID) {
		return apperr.ErrDuplicateKey
	}
	l.MemberIDs = append(l.MemberIDs, userID)
	return nil
}

func (m *memStore) AddMovie(ctx context.Context, id string, entry models.MovieEntry) ([]models.MovieEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.lists[id]
	if !ok {
		return nil, apperr.ErrRecordNotFound
	}
	if l.HasMovie(entry.MovieID) {
		return nil, apperr.ErrDuplicateKey
	}
	l.Movies = append(l.Movies, entry)
	return append([]models.MovieEntry(nil), l.Movies...), nil
}

func (m *memStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.lists[id]; !ok {
		return apperr.ErrRecordNotFound
	}
	delete(m.lists, id)
	return nil
}

// stored returns the persisted document, bypassing the service.
func (m *memStore) stored(id string) *models.SharedWatchlist {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l, ok := m.lists[id]; ok {
		return clone(l)
	}
	return nil
}

type memUsers struct {
	byID map[string]models.User
}

func newMemUsers(users ...models.User) *memUsers {
	m := &memUsers{byID: make(map[string]models.User)}
	for _, u := range users {
		m.byID[u.ID] = u
	}
	return m
}

func (m *memUsers) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range m.byID {
		if u.Email == email {
			u := u
			return &u, nil
		}
	}
	return nil, apperr.ErrRecordNotFound
}

func (m *memUsers) GetUsersByIDs(ctx context.Context, ids []string) ([]models.User, error) {
	var out []models.User
	for _, id := range ids {
		if u, ok := m.byID[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}
