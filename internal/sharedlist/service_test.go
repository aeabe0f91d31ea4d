package sharedlist

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yumovie/backend/internal/apperr"
	"github.com/yumovie/backend/internal/models"
)

var (
	u1 = models.User{ID: "u1", Name: "Una", Email: "una@example.com"}
	u2 = models.User{ID: "u2", Name: "Theo", Email: "theo@example.com"}
	u3 = models.User{ID: "u3", Name: "Mira", Email: "mira@example.com"}
)

func newTestService(t *testing.T) (*Service, *memStore) {
	t.Helper()
	log, _ := test.NewNullLogger()
	store := newMemStore()
	svc := NewService(store, newMemUsers(u1, u2, u3), log)
	svc.now = func() time.Time { return time.Date(2024, 10, 31, 20, 0, 0, 0, time.UTC) }
	return svc, store
}

// assertInvariants checks owner ∈ members and uniqueness of members and movies.
func assertInvariants(t *testing.T, l *models.SharedWatchlist) {
	t.Helper()
	assert.True(t, l.IsMember(l.OwnerID), "owner must be a member")
	seen := map[string]bool{}
	for _, m := range l.MemberIDs {
		assert.False(t, seen[m], "duplicate member %s", m)
		seen[m] = true
	}
	movies := map[string]bool{}
	for _, m := range l.Movies {
		assert.False(t, movies[m.MovieID], "duplicate movie %s", m.MovieID)
		movies[m.MovieID] = true
	}
}

func TestCreateSharedList(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	list, err := svc.Create(ctx, "u1", "  Horror Night ")
	require.NoError(t, err)

	assert.Equal(t, "Horror Night", list.Name)
	assert.Equal(t, models.MemberRef{ID: "u1", Name: "Una"}, list.Owner)
	assert.Equal(t, []models.MemberRef{{ID: "u1", Name: "Una"}}, list.Members)
	assert.Empty(t, list.Movies)
	assert.NotNil(t, list.Movies)
	assertInvariants(t, store.stored(list.ID))
}

func TestCreateRequiresName(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Create(context.Background(), "u1", "   ")

	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestCreatePersistenceFailureIsInternal(t *testing.T) {
	svc, store := newTestService(t)
	store.failNext = errors.New("write concern timeout")

	_, err := svc.Create(context.Background(), "u1", "Horror Night")

	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
	assert.Equal(t, "Server Error", apperr.Message(err))
}

func TestSharedListScenario(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	list, err := svc.Create(ctx, "u1", "Horror Night")
	require.NoError(t, err)
	id := list.ID

	// Owner invites a second user; repeating the invite conflicts.
	list, err = svc.AddMember(ctx, id, "u1", "theo@example.com")
	require.NoError(t, err)
	assert.Equal(t, []models.MemberRef{{ID: "u1", Name: "Una"}, {ID: "u2", Name: "Theo"}}, list.Members)
	assertInvariants(t, store.stored(id))

	_, err = svc.AddMember(ctx, id, "u1", "theo@example.com")
	assert.True(t, apperr.Is(err, apperr.KindConflict))
	assert.Len(t, store.stored(id).MemberIDs, 2)

	// A member who is not the owner adds a movie; adding it again conflicts.
	movies, err := svc.AddMovie(ctx, id, "u2", models.AddMovieRequest{MovieID: "550", Title: "Fight Club", PosterPath: "/fc.jpg"})
	require.NoError(t, err)
	require.Len(t, movies, 1)
	assert.Equal(t, "550", movies[0].MovieID)
	assert.Equal(t, "u2", movies[0].AddedBy)
	assert.Equal(t, svc.now(), movies[0].AddedAt)

	_, err = svc.AddMovie(ctx, id, "u2", models.AddMovieRequest{MovieID: "550", Title: "Fight Club"})
	assert.True(t, apperr.Is(err, apperr.KindConflict))
	assertInvariants(t, store.stored(id))

	// Outsiders cannot read the list.
	_, err = svc.Get(ctx, id, "u3", ViewOptions{})
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	// Owner deletes; every former member now gets NotFound.
	require.NoError(t, svc.Delete(ctx, id, "u1"))
	for _, who := range []string{"u1", "u2"} {
		_, err = svc.Get(ctx, id, who, ViewOptions{})
		assert.True(t, apperr.Is(err, apperr.KindNotFound), who)
	}
}

func TestAddMemberErrors(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	list, err := svc.Create(ctx, "u1", "Comfort Films")
	require.NoError(t, err)
	_, err = svc.AddMember(ctx, list.ID, "u1", "theo@example.com")
	require.NoError(t, err)

	cases := []struct {
		name      string
		listID    string
		requester string
		email     string
		kind      apperr.Kind
	}{
		{"missing list", "000000000000000000000000", "u1", "mira@example.com", apperr.KindNotFound},
		{"member but not owner", list.ID, "u2", "mira@example.com", apperr.KindForbidden},
		{"outsider", list.ID, "u3", "mira@example.com", apperr.KindForbidden},
		{"empty email", list.ID, "u1", " ", apperr.KindValidation},
		{"unknown email", list.ID, "u1", "ghost@example.com", apperr.KindNotFound},
		{"owner re-invites self", list.ID, "u1", "una@example.com", apperr.KindConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.AddMember(ctx, tc.listID, tc.requester, tc.email)
			assert.Equal(t, tc.kind, apperr.KindOf(err))
		})
	}
}

func TestAddMovieErrors(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	list, err := svc.Create(ctx, "u1", "Comfort Films")
	require.NoError(t, err)

	_, err = svc.AddMovie(ctx, "000000000000000000000000", "u1", models.AddMovieRequest{MovieID: "1", Title: "x"})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = svc.AddMovie(ctx, list.ID, "u3", models.AddMovieRequest{MovieID: "1", Title: "x"})
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	_, err = svc.AddMovie(ctx, list.ID, "u1", models.AddMovieRequest{MovieID: "", Title: "x"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = svc.AddMovie(ctx, list.ID, "u1", models.AddMovieRequest{MovieID: "1", Title: " "})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestDeleteRequiresOwner(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	list, err := svc.Create(ctx, "u1", "Comfort Films")
	require.NoError(t, err)
	_, err = svc.AddMember(ctx, list.ID, "u1", "theo@example.com")
	require.NoError(t, err)

	err = svc.Delete(ctx, list.ID, "u2")
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
	assert.NotNil(t, store.stored(list.ID))

	err = svc.Delete(ctx, "nope", "u1")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestListForUser(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, "u1", "Owned")
	require.NoError(t, err)
	second, err := svc.Create(ctx, "u2", "Invited")
	require.NoError(t, err)
	_, err = svc.AddMember(ctx, second.ID, "u2", "una@example.com")
	require.NoError(t, err)
	_, err = svc.Create(ctx, "u3", "Elsewhere")
	require.NoError(t, err)

	lists, err := svc.ListForUser(ctx, "u1", ViewOptions{})
	require.NoError(t, err)
	require.Len(t, lists, 2)
	assert.Equal(t, second.ID, lists[0].ID, "newest first")
	assert.Equal(t, first.ID, lists[1].ID)
	assert.Equal(t, models.MemberRef{ID: "u2", Name: "Theo"}, lists[0].Owner)
	for _, l := range lists {
		for _, m := range l.Members {
			assert.Empty(t, m.Email, "emails are hidden by default")
		}
	}

	withEmail, err := svc.ListForUser(ctx, "u1", ViewOptions{IncludeEmail: true})
	require.NoError(t, err)
	assert.Equal(t, "theo@example.com", withEmail[0].Owner.Email)

	none, err := svc.ListForUser(ctx, "nobody", ViewOptions{})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestConcurrentInvitesAddMemberOnce(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	list, err := svc.Create(ctx, "u1", "Race")
	require.NoError(t, err)

	const n = 16
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.AddMember(ctx, list.ID, "u1", "theo@example.com")
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.True(t, apperr.Is(err, apperr.KindConflict), err)
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, []string{"u1", "u2"}, store.stored(list.ID).MemberIDs)
}

func TestConcurrentMovieAddsKeepIDsUnique(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	list, err := svc.Create(ctx, "u1", "Race")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			svc.AddMovie(ctx, list.ID, "u1", models.AddMovieRequest{MovieID: "550", Title: "Fight Club"})
		}()
	}
	wg.Wait()

	stored := store.stored(list.ID)
	assert.Len(t, stored.Movies, 1)
	assertInvariants(t, stored)
}
